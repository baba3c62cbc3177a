package geoop

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Simplify reduces the vertex count of the polygon with Douglas-Peucker using
// the configured tolerance. Holes collapsing below a valid ring are dropped.
// If the outer ring would collapse the input is returned unchanged.
func (e *Engine) Simplify(p orb.Polygon) orb.Polygon {
	threshold := e.cfg.SimplifyTolerance
	if e.cfg.CRS == Geographic {
		threshold = metersToDegrees(threshold)
	}

	s, ok := simplify.DouglasPeucker(threshold).Simplify(p.Clone()).(orb.Polygon)
	if !ok || len(s) == 0 || len(s[0]) < 4 {
		return p
	}

	out := s[:1]
	for _, hole := range s[1:] {
		if len(hole) >= 4 {
			out = append(out, hole)
		}
	}
	return out
}
