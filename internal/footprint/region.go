package footprint

import "fmt"

// Region identifies one named area of the sky footprint.
type Region int

const (
	MagellanicClouds Region = iota
	LowDustWFD
	Virgo
	Bulge
	NES
	DustyPlane
	EuclidOverlap
	SCP
	numRegions
)

var regionLabels = [numRegions]string{
	MagellanicClouds: "LMC_SMC",
	LowDustWFD:       "lowdust",
	Virgo:            "virgo",
	Bulge:            "bulgy",
	NES:              "nes",
	DustyPlane:       "dusty_plane",
	EuclidOverlap:    "euclid_overlap",
	SCP:              "scp",
}

// Label returns the per-pixel label written for the region.
func (r Region) Label() string {
	if r < 0 || r >= numRegions {
		return fmt.Sprintf("Region(%d)", int(r))
	}
	return regionLabels[r]
}

func (r Region) String() string {
	return r.Label()
}

// RegionForLabel maps a pixel label back to its region.
func RegionForLabel(label string) (Region, bool) {
	for r, l := range regionLabels {
		if l == label {
			return Region(r), true
		}
	}
	return 0, false
}

// PaintOrder is the priority in which regions claim pixels. A pixel belongs to
// the first region in this list whose selection contains it; later regions
// never relabel or reweight it.
var PaintOrder = []Region{
	MagellanicClouds,
	LowDustWFD,
	Virgo,
	Bulge,
	NES,
	DustyPlane,
	EuclidOverlap,
	SCP,
}

// ValidateOrder checks that order names each region exactly once.
func ValidateOrder(order []Region) error {
	if len(order) != int(numRegions) {
		return fmt.Errorf("paint order has %d regions, want %d", len(order), numRegions)
	}
	var seen [numRegions]bool
	for i, r := range order {
		if r < 0 || r >= numRegions {
			return fmt.Errorf("paint order position %d: unknown region %d", i, int(r))
		}
		if seen[r] {
			return fmt.Errorf("paint order position %d: region %s listed twice", i, r)
		}
		seen[r] = true
	}
	return nil
}
