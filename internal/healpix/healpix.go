// Package healpix implements the parts of the HEALPix RING pixelisation the
// footprint and simulation code need: pixel counts, pixel centres and the
// position-to-pixel lookup.
//
// Reference: Górski et al. 2005, ApJ 622, 759.
package healpix

import (
	"fmt"
	"math"
)

// DefaultNside is the resolution used for survey footprints.
const DefaultNside = 32

// ValidNside reports whether nside is a positive power of two.
func ValidNside(nside int) bool {
	return nside > 0 && nside&(nside-1) == 0
}

// Nside2Npix returns the number of pixels covering the sphere.
func Nside2Npix(nside int) int {
	return 12 * nside * nside
}

// Pix2Ang returns the colatitude θ and longitude φ (radians) of a pixel centre.
func Pix2Ang(nside, pix int) (theta, phi float64) {
	npix := Nside2Npix(nside)
	ncap := 2 * nside * (nside - 1)
	fact2 := 4.0 / float64(npix)

	switch {
	case pix < ncap:
		// North polar cap.
		iring := (1 + isqrt(1+2*pix)) >> 1
		iphi := pix + 1 - 2*iring*(iring-1)
		z := 1 - float64(iring*iring)*fact2
		theta = math.Acos(z)
		phi = (float64(iphi) - 0.5) * (math.Pi / 2) / float64(iring)

	case pix < npix-ncap:
		// Equatorial belt.
		fact1 := float64(2*nside) * fact2
		ip := pix - ncap
		iring := ip/(4*nside) + nside
		iphi := ip%(4*nside) + 1
		fodd := 0.5
		if (iring+nside)&1 == 1 {
			fodd = 1
		}
		z := float64(2*nside-iring) * fact1
		theta = math.Acos(z)
		phi = (float64(iphi) - fodd) * math.Pi / float64(2*nside)

	default:
		// South polar cap.
		ip := npix - pix
		iring := (1 + isqrt(2*ip-1)) >> 1
		iphi := 4*iring + 1 - (ip - 2*iring*(iring-1))
		z := -1 + float64(iring*iring)*fact2
		theta = math.Acos(z)
		phi = (float64(iphi) - 0.5) * (math.Pi / 2) / float64(iring)
	}
	return theta, phi
}

// Ang2Pix returns the pixel containing the direction (θ, φ) in radians.
func Ang2Pix(nside int, theta, phi float64) int {
	z := math.Cos(theta)
	za := math.Abs(z)
	tt := math.Mod(phi, 2*math.Pi)
	if tt < 0 {
		tt += 2 * math.Pi
	}
	tt /= math.Pi / 2 // in [0, 4)

	nl4 := 4 * nside
	if za <= 2.0/3.0 {
		// Equatorial belt.
		temp1 := float64(nside) * (0.5 + tt)
		temp2 := float64(nside) * z * 0.75
		jp := int(temp1 - temp2) // ascending edge line index
		jm := int(temp1 + temp2) // descending edge line index

		ir := nside + 1 + jp - jm // ring number counted from z = 2/3, in [1, 2n+1]
		kshift := 1 - (ir & 1)

		ip := (jp + jm - nside + kshift + 1) / 2
		ip = mod(ip, nl4)
		return 2*nside*(nside-1) + (ir-1)*nl4 + ip
	}

	// Polar caps.
	tp := tt - math.Floor(tt)
	tmp := float64(nside) * math.Sqrt(3*(1-za))

	jp := int(tp * tmp)
	jm := int((1 - tp) * tmp)

	ir := jp + jm + 1
	ip := int(tt * float64(ir))
	ip = mod(ip, 4*ir)

	if z > 0 {
		return 2*ir*(ir-1) + ip
	}
	return Nside2Npix(nside) - 2*ir*(ir+1) + ip
}

// Pix2RaDec returns the RA/Dec (degrees) of a pixel centre.
func Pix2RaDec(nside, pix int) (ra, dec float64) {
	theta, phi := Pix2Ang(nside, pix)
	return phi * 180 / math.Pi, 90 - theta*180/math.Pi
}

// RaDec2Pix returns the pixel containing an RA/Dec position in degrees.
func RaDec2Pix(nside int, ra, dec float64) int {
	return Ang2Pix(nside, (90-dec)*math.Pi/180, ra*math.Pi/180)
}

// PixelArea returns the area of one pixel in square degrees.
func PixelArea(nside int) float64 {
	return 4 * math.Pi * (180 / math.Pi) * (180 / math.Pi) / float64(Nside2Npix(nside))
}

// CheckNside returns an error for resolutions the RING formulas don't support.
func CheckNside(nside int) error {
	if !ValidNside(nside) {
		return fmt.Errorf("nside %d is not a positive power of two", nside)
	}
	if nside > 1<<13 {
		return fmt.Errorf("nside %d exceeds the supported maximum %d", nside, 1<<13)
	}
	return nil
}

func isqrt(v int) int {
	r := int(math.Sqrt(float64(v) + 0.5))
	// Guard against floating point rounding at perfect squares.
	for r*r > v {
		r--
	}
	for (r+1)*(r+1) <= v {
		r++
	}
	return r
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}
