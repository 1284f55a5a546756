package footprint

import "fmt"

// PixelChange records a pixel whose label differs between two maps.
type PixelChange struct {
	Pixel int
	From  string
	To    string
}

// Diff lists the pixels labelled differently in a and b. Both maps must share
// a resolution.
func Diff(a, b *Maps) ([]PixelChange, error) {
	if a.Nside != b.Nside || len(a.Labels) != len(b.Labels) {
		return nil, fmt.Errorf("cannot diff maps at nside %d and %d", a.Nside, b.Nside)
	}
	var changes []PixelChange
	for i := range a.Labels {
		if a.Labels[i] != b.Labels[i] {
			changes = append(changes, PixelChange{Pixel: i, From: a.Labels[i], To: b.Labels[i]})
		}
	}
	return changes, nil
}

// Transitions summarises a diff as counts keyed by "from->to".
func Transitions(changes []PixelChange) map[string]int {
	out := make(map[string]int)
	for _, c := range changes {
		from, to := c.From, c.To
		if from == "" {
			from = "(none)"
		}
		if to == "" {
			to = "(none)"
		}
		out[from+"->"+to]++
	}
	return out
}
