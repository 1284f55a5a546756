package observatory

// BandScheduler decides which filters are loaded in the changer for a night.
type BandScheduler interface {
	Bands(c Conditions) []string
}

// SimpleBandScheduler swaps u for y when the moon is bright.
type SimpleBandScheduler struct {
	IllumLimit float64 // percent
}

func (s SimpleBandScheduler) Bands(c Conditions) []string {
	if c.MoonIllum > s.IllumLimit {
		return []string{"g", "r", "i", "z", "y"}
	}
	return []string{"u", "g", "r", "i", "z"}
}
