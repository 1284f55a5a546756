package footprint

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// DustModel supplies the E(B-V) reddening for every pixel of a map.
type DustModel interface {
	EBV(nside int, galLat []float64) ([]float64, error)
}

// CosecantDust is a plane-parallel extinction model: E(B-V) = Scale * csc|b|,
// capped at Max. It reproduces the broad latitude dependence of the real
// dust maps, which is all the region boundaries care about.
type CosecantDust struct {
	Scale float64
	Max   float64
}

// DefaultDust is the model used when no dust map is configured.
var DefaultDust = CosecantDust{Scale: 0.03, Max: 5}

func (d CosecantDust) EBV(nside int, galLat []float64) ([]float64, error) {
	out := make([]float64, len(galLat))
	for i, b := range galLat {
		s := math.Abs(math.Sin(b * math.Pi / 180))
		if s < d.Scale/d.Max {
			out[i] = d.Max
			continue
		}
		out[i] = d.Scale / s
	}
	return out, nil
}

// FileDust reads a precomputed dust map: one E(B-V) value per line, in RING
// pixel order, at the map's resolution. Blank lines and '#' comments are skipped.
type FileDust struct {
	Path string
}

func (d FileDust) EBV(nside int, galLat []float64) ([]float64, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("opening dust map: %w", err)
	}
	defer f.Close()

	values := make([]float64, 0, len(galLat))
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("dust map %s line %d: %w", d.Path, line, err)
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading dust map: %w", err)
	}

	if len(values) != len(galLat) {
		return nil, fmt.Errorf("dust map %s has %d values, nside %d needs %d", d.Path, len(values), nside, len(galLat))
	}
	return values, nil
}
