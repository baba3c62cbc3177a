package geoop

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Centroid returns the area centroid of the polygon. Degenerate polygons
// with zero area fall back to the centroid of their outline.
func (e *Engine) Centroid(p orb.Polygon) orb.Point {
	c, _ := planar.CentroidArea(p)
	return c
}
