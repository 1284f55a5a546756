// Package transform provides the astronomical time and coordinate conversions
// used by the footprint maps and the simulated observatory.
//
// Accuracy targets are survey-planning grade: sidereal time to well under an
// arcsecond, Sun and Moon positions to a few arcminutes. Nutation, aberration
// and polar motion are ignored.
package transform

import (
	"math"
	"time"
)

// j2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const j2000 = 2451545.0

// MJDOffset converts between Julian Date and Modified Julian Date.
const MJDOffset = 2400000.5

// mjdUnixEpoch is the MJD of 1970-01-01T00:00:00Z.
const mjdUnixEpoch = 40587.0

// JulianDate converts a time.Time (UTC) to Julian Date.
// Uses the standard astronomical algorithm valid for dates after March 1, 4801 BC.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Adjust year/month for Jan/Feb (treat as months 13/14 of previous year).
	if m <= 2 {
		y -= 1
		m += 12
	}

	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + B - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0

	return jd
}

// MJD converts a time.Time to Modified Julian Date.
func MJD(t time.Time) float64 {
	return JulianDate(t) - MJDOffset
}

// TimeFromMJD converts a Modified Julian Date to a UTC time.Time.
// Resolution is one microsecond, which is far below anything the simulation resolves.
func TimeFromMJD(mjd float64) time.Time {
	usec := math.Round((mjd - mjdUnixEpoch) * 86400e6)
	return time.UnixMicro(int64(usec)).UTC()
}

// GMST calculates Greenwich Mean Sidereal Time in radians for a given UTC time.
// Uses the IAU-82 model as described in Vallado "Fundamentals of Astrodynamics".
//
// Formula (Vallado Eq 3-47):
//
//	θ_GMST = 67310.54841 + (876600h + 8640184.812866)*T + 0.093104*T² - 6.2e-6*T³
//
// where T is Julian centuries of UT1 from J2000.0, result is in seconds of time.
func GMST(t time.Time) float64 {
	return gmstFromJD(JulianDate(t))
}

// GMSTFromMJD is GMST for a Modified Julian Date. The simulation clock runs in
// MJD, so this avoids a round trip through time.Time on every step.
func GMSTFromMJD(mjd float64) float64 {
	return gmstFromJD(mjd + MJDOffset)
}

func gmstFromJD(jd float64) float64 {
	tUT1 := (jd - j2000) / 36525.0

	// GMST in seconds of time.
	// 876600h = 876600 * 3600 = 3155760000 seconds.
	gmstSec := 67310.54841 +
		(3155760000.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	// Normalize to [0, 86400) seconds, then convert to radians.
	gmstSec = math.Mod(gmstSec, 86400.0)
	if gmstSec < 0 {
		gmstSec += 86400.0
	}
	return gmstSec / 86400.0 * 2.0 * math.Pi
}

// LMST returns the local mean sidereal time in radians for an observer at the
// given east longitude (degrees).
func LMST(mjd, lonDeg float64) float64 {
	return wrapRad(GMSTFromMJD(mjd) + lonDeg*deg2rad)
}

func wrapRad(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// WrapDeg normalizes an angle to [0, 360).
func WrapDeg(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// WrapDeg180 normalizes an angle to (-180, 180].
func WrapDeg180(a float64) float64 {
	a = WrapDeg(a)
	if a > 180 {
		a -= 360
	}
	return a
}

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)
