package footprint

import "fmt"

// Bands are the optical filters, in the order weights are stored.
var Bands = [...]string{"u", "g", "r", "i", "z", "y"}

// NumBands is the number of optical filters.
const NumBands = len(Bands)

// BandIndex returns the position of band in Bands.
func BandIndex(band string) (int, bool) {
	for i, b := range Bands {
		if b == band {
			return i, true
		}
	}
	return 0, false
}

// Weights holds one pixel's target weight per band, indexed like Bands.
type Weights [NumBands]float64

// BandRatios is the relative visit intensity of a region in each band.
// Bands left out get zero weight.
type BandRatios map[string]float64

// Ratios assigns band ratios to regions.
type Ratios map[Region]BandRatios

// DefaultRatios returns the baseline per-region ratio tables.
func DefaultRatios() Ratios {
	return Ratios{
		MagellanicClouds: {"u": 0.65, "g": 0.65, "r": 1.1, "i": 1.1, "z": 0.34, "y": 0.35},
		SCP:              {"u": 0.1, "g": 0.175, "r": 0.1, "i": 0.135, "z": 0.046, "y": 0.047},
		NES:              {"g": 0.255, "r": 0.33, "i": 0.33, "z": 0.23},
		DustyPlane:       {"u": 0.093, "g": 0.26, "r": 0.26, "i": 0.26, "z": 0.26, "y": 0.093},
		LowDustWFD:       {"u": 0.35, "g": 0.4, "r": 1.0, "i": 1.0, "z": 0.9, "y": 0.9},
		Bulge:            {"u": 0.17, "g": 0.93, "r": 0.98, "i": 0.98, "z": 0.93, "y": 0.21},
		Virgo:            {"u": 0.35, "g": 0.4, "r": 1.0, "i": 1.0, "z": 0.9, "y": 0.9},
		EuclidOverlap:    {"u": 0.35, "g": 0.4, "r": 1.0, "i": 1.0, "z": 0.9, "y": 0.9},
	}
}

// weights converts a ratio table into a Weights value, rejecting unknown bands.
func (br BandRatios) weights() (Weights, error) {
	var w Weights
	for band, v := range br {
		idx, ok := BandIndex(band)
		if !ok {
			return w, fmt.Errorf("unknown band %q", band)
		}
		w[idx] = v
	}
	return w, nil
}

// Merge returns a copy of r with the entries of other replacing whole regions.
func (r Ratios) Merge(other Ratios) Ratios {
	out := make(Ratios, len(r)+len(other))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
