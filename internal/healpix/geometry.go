package healpix

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Geometry holds per-pixel centre coordinates for one resolution.
// Immutable after construction; safe for concurrent reads.
type Geometry struct {
	Nside int
	RA    []float64 // degrees
	Dec   []float64 // degrees
}

// Npix returns the number of pixels.
func (g *Geometry) Npix() int {
	return len(g.RA)
}

// geometryCache keeps recently used resolutions. Footprints and the scheduler
// ask for the same nside repeatedly and recomputing costs O(npix) trig calls.
var geometryCache, _ = lru.New[int, *Geometry](8)

// NewGeometry returns the pixel centres for nside, computing them on first use.
func NewGeometry(nside int) (*Geometry, error) {
	if err := CheckNside(nside); err != nil {
		return nil, err
	}
	if g, ok := geometryCache.Get(nside); ok {
		return g, nil
	}

	npix := Nside2Npix(nside)
	g := &Geometry{
		Nside: nside,
		RA:    make([]float64, npix),
		Dec:   make([]float64, npix),
	}
	for i := 0; i < npix; i++ {
		g.RA[i], g.Dec[i] = Pix2RaDec(nside, i)
	}

	geometryCache.Add(nside, g)
	return g, nil
}
