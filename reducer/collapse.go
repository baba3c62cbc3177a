package reducer

import (
	"github.com/paulmach/orb"
	"github.com/royalcat/polyreduce/geoop"
)

// collapse turns a non-degenerate buffer result back into a single polygon:
// of several islands only the largest is kept, and a polygon with more than
// maxVertices points is simplified.
func collapse(res geoop.BufferResult, maxVertices int, eng Engine) orb.Polygon {
	poly := res.Polygon
	if res.Kind == geoop.KindMultiPolygon {
		poly = largestIsland(res.Islands, eng.Area)
	}

	if vertexCount(poly) > maxVertices {
		poly = eng.Simplify(poly)
	}
	return poly
}

// largestIsland returns the island with the greatest area. On ties the
// first one wins.
func largestIsland(islands orb.MultiPolygon, area func(orb.Polygon) float64) orb.Polygon {
	if len(islands) == 0 {
		return nil
	}

	best, bestArea := 0, area(islands[0])
	for i := 1; i < len(islands); i++ {
		if a := area(islands[i]); a > bestArea {
			best, bestArea = i, a
		}
	}
	return islands[best]
}

// vertexCount counts the points of all rings, closing points included.
func vertexCount(p orb.Polygon) int {
	n := 0
	for _, r := range p {
		n += len(r)
	}
	return n
}
