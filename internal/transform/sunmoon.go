package transform

import "math"

// Equatorial is an RA/Dec position in degrees.
type Equatorial struct {
	RADeg  float64
	DecDeg float64
}

// meanObliquity returns the mean obliquity of the ecliptic in degrees for n
// days from J2000.0.
func meanObliquity(n float64) float64 {
	return 23.439 - 0.0000004*n
}

// SunPosition returns the apparent geocentric RA/Dec of the Sun.
// Low-precision formula from the Astronomical Almanac (section C5), good to
// about 0.01 degrees between 1950 and 2050.
func SunPosition(mjd float64) Equatorial {
	n := mjd + MJDOffset - j2000
	L := WrapDeg(280.460 + 0.9856474*n)
	g := WrapDeg(357.528+0.9856003*n) * deg2rad
	lambda := L + 1.915*math.Sin(g) + 0.020*math.Sin(2*g)

	ra, dec := EclipticToEquatorial(lambda, 0, meanObliquity(n))
	return Equatorial{RADeg: ra, DecDeg: dec}
}

// MoonPosition returns the geocentric RA/Dec of the Moon.
// Low-precision series from the Astronomical Almanac (section D46), good to
// roughly 0.3 degrees; parallax is ignored.
func MoonPosition(mjd float64) Equatorial {
	n := mjd + MJDOffset - j2000
	T := n / 36525.0

	sind := func(x float64) float64 { return math.Sin(x * deg2rad) }

	lambda := 218.32 + 481267.881*T +
		6.29*sind(135.0+477198.87*T) -
		1.27*sind(259.3-413335.36*T) +
		0.66*sind(235.7+890534.22*T) +
		0.21*sind(269.9+954397.74*T) -
		0.19*sind(357.5+35999.05*T) -
		0.11*sind(186.5+966404.03*T)

	beta := 5.13*sind(93.3+483202.02*T) +
		0.28*sind(228.2+960400.89*T) -
		0.28*sind(318.3+6003.15*T) -
		0.17*sind(217.6-407332.21*T)

	ra, dec := EclipticToEquatorial(WrapDeg(lambda), beta, meanObliquity(n))
	return Equatorial{RADeg: ra, DecDeg: dec}
}

// MoonIllumination returns the illuminated fraction of the lunar disk in percent
// (0 = new, 100 = full), from the Sun-Moon elongation.
func MoonIllumination(mjd float64) float64 {
	sun := SunPosition(mjd)
	moon := MoonPosition(mjd)
	elong := AngularSeparation(sun.RADeg, sun.DecDeg, moon.RADeg, moon.DecDeg) * deg2rad
	return (1 - math.Cos(elong)) / 2 * 100
}

// SunAltitude is a convenience for the Sun's altitude in degrees at a site.
func SunAltitude(mjd float64, site Site) float64 {
	sun := SunPosition(mjd)
	return EquatorialToHorizontal(sun.RADeg, sun.DecDeg, mjd, site).AltDeg
}
