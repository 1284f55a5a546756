package transform

import "math"

// Site is a ground observatory location.
type Site struct {
	Name   string
	LatDeg float64 // geodetic latitude, north positive
	LonDeg float64 // east longitude
	ElevM  float64 // meters above the ellipsoid
}

// RubinSite is the Vera C. Rubin Observatory on Cerro Pachón.
var RubinSite = Site{
	Name:   "LSST",
	LatDeg: -30.2444,
	LonDeg: -70.7494,
	ElevM:  2650,
}

// Horizontal holds a topocentric altitude/azimuth pair.
type Horizontal struct {
	AltDeg float64 // 0 = horizon, 90 = zenith
	AzDeg  float64 // 0 = North, clockwise
}

// EquatorialToHorizontal converts an RA/Dec (degrees) to altitude and azimuth
// for the given site at the given MJD.
//
// Hour angle H = LMST - RA, then
//
//	sin(alt) = sin(δ)sin(φ) + cos(δ)cos(φ)cos(H)
//	az       = atan2(-cos(δ)sin(H), sin(δ)cos(φ) - cos(δ)sin(φ)cos(H))
func EquatorialToHorizontal(raDeg, decDeg, mjd float64, site Site) Horizontal {
	lst := LMST(mjd, site.LonDeg)
	return HorizontalAtLST(raDeg, decDeg, lst, site.LatDeg)
}

// HorizontalAtLST is EquatorialToHorizontal with a precomputed local sidereal
// time (radians), for callers converting many positions at one instant.
func HorizontalAtLST(raDeg, decDeg, lst, latDeg float64) Horizontal {
	ha := lst - raDeg*deg2rad
	dec := decDeg * deg2rad
	lat := latDeg * deg2rad

	sinDec, cosDec := math.Sincos(dec)
	sinLat, cosLat := math.Sincos(lat)
	sinHA, cosHA := math.Sincos(ha)

	sinAlt := sinDec*sinLat + cosDec*cosLat*cosHA
	alt := math.Asin(clamp(sinAlt, -1, 1))

	az := math.Atan2(-cosDec*sinHA, sinDec*cosLat-cosDec*sinLat*cosHA)
	if az < 0 {
		az += 2 * math.Pi
	}

	return Horizontal{
		AltDeg: alt * rad2deg,
		AzDeg:  az * rad2deg,
	}
}

// Airmass returns the plane-parallel airmass sec(z) for an altitude in degrees.
// Returns +Inf at or below the horizon.
func Airmass(altDeg float64) float64 {
	if altDeg <= 0 {
		return math.Inf(1)
	}
	return 1.0 / math.Cos((90-altDeg)*deg2rad)
}

// AngularSeparation returns the great-circle distance in degrees between two
// RA/Dec positions (degrees), using the haversine formula.
func AngularSeparation(ra1, dec1, ra2, dec2 float64) float64 {
	dra := (ra2 - ra1) * deg2rad
	ddec := (dec2 - dec1) * deg2rad
	d1 := dec1 * deg2rad
	d2 := dec2 * deg2rad

	a := math.Sin(ddec/2)*math.Sin(ddec/2) +
		math.Cos(d1)*math.Cos(d2)*math.Sin(dra/2)*math.Sin(dra/2)
	return 2 * math.Asin(math.Sqrt(clamp(a, 0, 1))) * rad2deg
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
