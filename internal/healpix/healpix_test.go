package healpix

import (
	"math"
	"testing"
)

func TestNside2Npix(t *testing.T) {
	tests := []struct {
		nside int
		want  int
	}{
		{1, 12},
		{2, 48},
		{8, 768},
		{32, 12288},
	}
	for _, tt := range tests {
		if got := Nside2Npix(tt.nside); got != tt.want {
			t.Errorf("Nside2Npix(%d) = %d, want %d", tt.nside, got, tt.want)
		}
	}
}

// TestRoundTrip verifies every pixel centre maps back onto its own pixel.
func TestRoundTrip(t *testing.T) {
	for _, nside := range []int{1, 2, 4, 8, 16} {
		for pix := 0; pix < Nside2Npix(nside); pix++ {
			theta, phi := Pix2Ang(nside, pix)
			if got := Ang2Pix(nside, theta, phi); got != pix {
				t.Fatalf("nside=%d: Ang2Pix(Pix2Ang(%d)) = %d", nside, pix, got)
			}
		}
	}
}

func TestPix2AngRanges(t *testing.T) {
	nside := 8
	var zsum float64
	for pix := 0; pix < Nside2Npix(nside); pix++ {
		theta, phi := Pix2Ang(nside, pix)
		if theta < 0 || theta > math.Pi {
			t.Fatalf("pixel %d: theta %f out of range", pix, theta)
		}
		if phi < 0 || phi >= 2*math.Pi {
			t.Fatalf("pixel %d: phi %f out of range", pix, phi)
		}
		zsum += math.Cos(theta)
	}
	// Equal-area pixels are symmetric about the equator.
	if math.Abs(zsum) > 1e-9 {
		t.Errorf("sum of z over all pixels = %e, want 0", zsum)
	}
}

func TestRaDec2Pix(t *testing.T) {
	nside := 16
	// North pole is in the first ring, south pole in the last.
	if pix := RaDec2Pix(nside, 0, 90); pix > 3 {
		t.Errorf("north pole pixel = %d, want one of 0..3", pix)
	}
	if pix := RaDec2Pix(nside, 0, -90); pix < Nside2Npix(nside)-4 {
		t.Errorf("south pole pixel = %d, want one of the last 4", pix)
	}

	ra, dec := Pix2RaDec(nside, 1000)
	if got := RaDec2Pix(nside, ra, dec); got != 1000 {
		t.Errorf("RaDec2Pix(Pix2RaDec(1000)) = %d", got)
	}
}

func TestPixelArea(t *testing.T) {
	total := PixelArea(32) * float64(Nside2Npix(32))
	if math.Abs(total-41252.96) > 0.01 {
		t.Errorf("total sky area = %.2f sq deg, want 41252.96", total)
	}
}

func TestNewGeometry(t *testing.T) {
	g, err := NewGeometry(4)
	if err != nil {
		t.Fatalf("NewGeometry: %v", err)
	}
	if g.Npix() != 192 {
		t.Fatalf("Npix = %d, want 192", g.Npix())
	}

	again, err := NewGeometry(4)
	if err != nil {
		t.Fatalf("NewGeometry: %v", err)
	}
	if again != g {
		t.Error("expected cached geometry on second call")
	}

	if _, err := NewGeometry(3); err == nil {
		t.Error("expected error for nside 3")
	}
}
