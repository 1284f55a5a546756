package footprint

import (
	"fmt"

	"github.com/star/surveyruns/internal/healpix"
)

// Config holds the thresholds that define where each footprint region lies.
// Angles are in degrees. The yaml keys follow the names used in variant files.
type Config struct {
	Nside int `yaml:"nside"`

	DustLimit       float64 `yaml:"dust_limit"`       // E(B-V) below which a pixel counts as low dust
	SmoothingCutoff float64 `yaml:"smoothing_cutoff"` // smoothed low-dust fraction kept as low dust
	SmoothingBeam   float64 `yaml:"smoothing_beam"`   // FWHM of the low-dust smoothing kernel

	LMCRA     float64 `yaml:"lmc_ra"`
	LMCDec    float64 `yaml:"lmc_dec"`
	LMCRadius float64 `yaml:"lmc_radius"`
	SMCRA     float64 `yaml:"smc_ra"`
	SMCDec    float64 `yaml:"smc_dec"`
	SMCRadius float64 `yaml:"smc_radius"`

	SCPDecMax float64 `yaml:"scp_dec_max"`

	GalLong1       float64 `yaml:"gal_long1"` // bulge starts at this galactic longitude...
	GalLong2       float64 `yaml:"gal_long2"` // ...and wraps through l=0 to this one
	GalLatWidthMax float64 `yaml:"gal_lat_width_max"`
	CenterWidth    float64 `yaml:"center_width"`
	EndWidth       float64 `yaml:"end_width"`
	GalDecMax      float64 `yaml:"gal_dec_max"`

	LowDustDecMin float64 `yaml:"low_dust_dec_min"`
	LowDustDecMax float64 `yaml:"low_dust_dec_max"`
	AdjustHalves  float64 `yaml:"adjust_halves"` // |b| inside which the two low-dust halves are kept apart

	DustyDecMin float64 `yaml:"dusty_dec_min"`
	DustyDecMax float64 `yaml:"dusty_dec_max"`

	EclatMin     float64 `yaml:"eclat_min"`
	EclatMax     float64 `yaml:"eclat_max"`
	EclipDecMin  float64 `yaml:"eclip_dec_min"`
	NESGlonLimit float64 `yaml:"nes_glon_limit"`

	VirgoRA     float64 `yaml:"virgo_ra"`
	VirgoDec    float64 `yaml:"virgo_dec"`
	VirgoRadius float64 `yaml:"virgo_radius"`

	EuclidContourFile string `yaml:"euclid_contour_file"`
}

// DefaultConfig returns the baseline footprint thresholds.
// Each call returns a new value, so variants can override fields freely.
func DefaultConfig() Config {
	return Config{
		Nside:           healpix.DefaultNside,
		DustLimit:       0.199,
		SmoothingCutoff: 0.45,
		SmoothingBeam:   10,
		LMCRA:           80.893860,
		LMCDec:          -69.756126,
		LMCRadius:       6,
		SMCRA:           13.186588,
		SMCDec:          -72.828599,
		SMCRadius:       4,
		SCPDecMax:       -60,
		GalLong1:        335,
		GalLong2:        25,
		GalLatWidthMax:  23,
		CenterWidth:     12,
		EndWidth:        4,
		GalDecMax:       12,
		LowDustDecMin:   -70,
		LowDustDecMax:   15,
		AdjustHalves:    12,
		DustyDecMin:     -90,
		DustyDecMax:     15,
		EclatMin:        -10,
		EclatMax:        10,
		EclipDecMin:     0,
		NESGlonLimit:    45.0,
		VirgoRA:         186.75,
		VirgoDec:        12.717,
		VirgoRadius:     8.75,
	}
}

// Validate checks the thresholds for values that cannot describe a footprint.
func (c Config) Validate() error {
	if err := healpix.CheckNside(c.Nside); err != nil {
		return err
	}
	if c.SmoothingBeam < 0 {
		return fmt.Errorf("smoothing_beam must be non-negative, got %g", c.SmoothingBeam)
	}
	if c.LowDustDecMin >= c.LowDustDecMax {
		return fmt.Errorf("low_dust_dec_min (%g) must be below low_dust_dec_max (%g)", c.LowDustDecMin, c.LowDustDecMax)
	}
	if c.DustyDecMin >= c.DustyDecMax {
		return fmt.Errorf("dusty_dec_min (%g) must be below dusty_dec_max (%g)", c.DustyDecMin, c.DustyDecMax)
	}
	if c.EclatMin >= c.EclatMax {
		return fmt.Errorf("eclat_min (%g) must be below eclat_max (%g)", c.EclatMin, c.EclatMax)
	}
	if c.CenterWidth < c.EndWidth {
		return fmt.Errorf("center_width (%g) must be at least end_width (%g)", c.CenterWidth, c.EndWidth)
	}
	return nil
}
