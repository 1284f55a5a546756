package footprint

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/star/surveyruns/internal/transform"
)

// contour is a closed RA/Dec polygon (degrees).
type contour struct {
	ra  []float64
	dec []float64
}

// loadContour reads "ra dec" pairs, one vertex per line, separated by
// whitespace or a comma.
func loadContour(path string) (*contour, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening contour file: %w", err)
	}
	defer f.Close()

	c := &contour{}
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
		if len(fields) != 2 {
			return nil, fmt.Errorf("contour %s line %d: want 2 columns, got %d", path, line, len(fields))
		}
		ra, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("contour %s line %d: ra: %w", path, line, err)
		}
		dec, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("contour %s line %d: dec: %w", path, line, err)
		}
		c.ra = append(c.ra, ra)
		c.dec = append(c.dec, dec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading contour file: %w", err)
	}
	if len(c.ra) < 3 {
		return nil, fmt.Errorf("contour %s has %d vertices, need at least 3", path, len(c.ra))
	}
	return c, nil
}

// contains is an even-odd ray cast in the (RA, Dec) plane. RA is unwrapped
// relative to the first vertex so polygons crossing RA=0 work.
func (c *contour) contains(ra, dec float64) bool {
	ref := c.ra[0]
	x := transform.WrapDeg180(ra - ref)

	inside := false
	n := len(c.ra)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi := transform.WrapDeg180(c.ra[i] - ref)
		xj := transform.WrapDeg180(c.ra[j] - ref)
		yi, yj := c.dec[i], c.dec[j]
		if (yi > dec) != (yj > dec) {
			xCross := xi + (dec-yi)*(xj-xi)/(yj-yi)
			if x < xCross {
				inside = !inside
			}
		}
	}
	return inside
}
