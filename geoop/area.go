package geoop

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// Area returns the area of the polygon in square meters. Holes are subtracted.
func (e *Engine) Area(p orb.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}

	if e.cfg.CRS == Planar {
		return math.Abs(planar.Area(p))
	}
	return math.Abs(geo.Area(p))
}
