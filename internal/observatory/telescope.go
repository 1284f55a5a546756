package observatory

import "math"

// TelescopeConfig holds the mount kinematic limits. Speeds are deg/s,
// accelerations deg/s², jerks deg/s³, times seconds.
type TelescopeConfig struct {
	AltMin float64
	AltMax float64

	AzMaxSpeed  float64
	AzAccel     float64
	AzJerk      float64
	AltMaxSpeed float64
	AltAccel    float64
	AltJerk     float64
	SettleTime  float64
}

// maxTMAPercent is the highest performance level the mount is rated for.
const maxTMAPercent = 125

// TMAMovement returns telescope limits for the mount running at percent of
// its design performance. Percent is clamped to (0, 125].
func TMAMovement(percent float64) TelescopeConfig {
	if percent > maxTMAPercent {
		percent = maxTMAPercent
	}
	if percent <= 0 {
		percent = 1
	}
	scale := percent / 100.0
	return TelescopeConfig{
		AltMin:      20,
		AltMax:      86.5,
		AzMaxSpeed:  math.Min(10.0*scale, 7.0),
		AzAccel:     10.0 * scale,
		AzJerk:      math.Max(1.0, 40.0*scale),
		AltMaxSpeed: 5.0 * scale,
		AltAccel:    5.0 * scale,
		AltJerk:     math.Max(1.0, 20.0*scale),
		SettleTime:  3.0,
	}
}

// axisTime is the time for one axis to move dist degrees under a trapezoidal
// velocity profile. A finite jerk stretches the acceleration ramps by
// accel/jerk in total, which is exact once the axis reaches both its
// acceleration and speed limits. jerk <= 0 means instantaneous acceleration.
func axisTime(dist, maxSpeed, accel, jerk float64) float64 {
	dist = math.Abs(dist)
	if dist == 0 {
		return 0
	}
	// Distance covered while accelerating to max speed and back down.
	rampDist := maxSpeed * maxSpeed / accel
	var t float64
	if dist < rampDist {
		t = 2 * math.Sqrt(dist/accel)
	} else {
		t = dist/maxSpeed + maxSpeed/accel
	}
	if jerk > 0 {
		t += accel / jerk
	}
	return t
}

// SlewTime is the time to move between two alt/az pointings: the slower axis
// plus settle. Azimuth takes the short way round.
func (tc TelescopeConfig) SlewTime(alt1, az1, alt2, az2 float64) float64 {
	dAlt := math.Abs(alt2 - alt1)
	dAz := math.Mod(math.Abs(az2-az1), 360)
	if dAz > 180 {
		dAz = 360 - dAz
	}
	if dAlt == 0 && dAz == 0 {
		return 0
	}
	t := math.Max(axisTime(dAlt, tc.AltMaxSpeed, tc.AltAccel, tc.AltJerk), axisTime(dAz, tc.AzMaxSpeed, tc.AzAccel, tc.AzJerk))
	return t + tc.SettleTime
}

// CameraConfig holds the camera timing parameters, in seconds.
type CameraConfig struct {
	ReadTime       float64
	BandChangeTime float64
	ShutterTime    float64
}

// DefaultCamera is the LSST camera timing.
var DefaultCamera = CameraConfig{
	ReadTime:       3.07,
	BandChangeTime: 140.0,
	ShutterTime:    1.0,
}

// VisitTime is the wall-clock time of a visit once the telescope is on target.
func (cc CameraConfig) VisitTime(expTime float64, nexp int) float64 {
	if nexp < 1 {
		nexp = 1
	}
	return expTime + float64(nexp)*cc.ShutterTime + float64(nexp-1)*cc.ReadTime
}
