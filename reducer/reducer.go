// Package reducer approximates the pole of inaccessibility of a polygon by
// eroding it inward until it collapses, then taking the centroid of what is
// left.
package reducer

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/royalcat/polyreduce/geoop"
)

// Engine provides the geometry primitives the reducer is built on.
// *geoop.Engine implements it.
type Engine interface {
	Area(p orb.Polygon) float64
	Buffer(p orb.Polygon, meters float64) geoop.BufferResult
	Simplify(p orb.Polygon) orb.Polygon
	Centroid(p orb.Polygon) orb.Point
}

var _ Engine = (*geoop.Engine)(nil)

type Termination uint8

const (
	// AreaFloor: the polygon shrank to the minimal area.
	AreaFloor Termination = iota
	// Degenerate: the next erosion could not be represented, the polygon
	// from before that round was used.
	Degenerate
	// Stalled: a round did not shrink the polygon.
	Stalled
	// RoundLimit: the round cap was reached.
	RoundLimit
)

func (t Termination) String() string {
	switch t {
	case AreaFloor:
		return "area_floor"
	case Degenerate:
		return "degenerate"
	case Stalled:
		return "stalled"
	case RoundLimit:
		return "round_limit"
	}
	return fmt.Sprintf("termination(%d)", uint8(t))
}

type Result struct {
	Point orb.Point
	// Rounds is the number of erosion rounds that produced a usable polygon.
	Rounds int
	// Area of the polygon the point was taken from, in square meters.
	Area        float64
	Termination Termination
}

// Reduce returns the approximate pole of inaccessibility of a polygon.
// Anything but a single orb.Polygon fails with an *InvalidInputError.
func Reduce(g orb.Geometry, opts ...Option) (orb.Point, error) {
	res, err := ReduceDetailed(g, opts...)
	if err != nil {
		return orb.Point{}, err
	}
	return res.Point, nil
}

func ReduceDetailed(g orb.Geometry, opts ...Option) (Result, error) {
	poly, err := polygonOf(g)
	if err != nil {
		return Result{}, err
	}

	o := loadOptions(opts...)
	if o.engine == nil {
		o.engine = geoop.New(geoop.ConfigDefault())
	}

	return o.reduce(poly), nil
}

func polygonOf(g orb.Geometry) (orb.Polygon, error) {
	if g == nil {
		return nil, &InvalidInputError{GeometryType: "nil"}
	}

	poly, ok := g.(orb.Polygon)
	if !ok {
		return nil, &InvalidInputError{GeometryType: fmt.Sprintf("%T", g)}
	}
	if len(poly) == 0 || len(poly[0]) < 4 {
		return nil, &InvalidInputError{GeometryType: "orb.Polygon", Reason: "outer ring needs at least 4 points"}
	}
	return poly, nil
}

func (o options) reduce(poly orb.Polygon) Result {
	eng := o.engine
	log := o.logger

	area := eng.Area(poly)
	rounds := 0

	for area > o.minArea {
		if rounds >= o.maxRounds {
			log.Warn("erosion round limit reached", "rounds", rounds, "area", area)
			return o.finish(poly, rounds, area, RoundLimit)
		}

		// the step follows the current size of the shape, so late rounds on
		// small remnants do not overshoot
		factor := -o.tolerance * math.Sqrt(area)

		res := eng.Buffer(poly, factor)
		if res.IsDegenerate() {
			log.Debug("erosion degenerated, using previous polygon", "round", rounds+1, "factor", factor, "error", res.Err)
			return o.finish(poly, rounds, area, Degenerate)
		}

		next := collapse(res, o.maxVertices, eng)
		nextArea := eng.Area(next)
		rounds++

		log.Debug("erosion round", "round", rounds, "factor", factor, "kind", res.Kind, "area", nextArea)

		if nextArea >= area {
			return o.finish(next, rounds, nextArea, Stalled)
		}
		poly, area = next, nextArea
	}

	return o.finish(poly, rounds, area, AreaFloor)
}

func (o options) finish(poly orb.Polygon, rounds int, area float64, t Termination) Result {
	return Result{
		Point:       o.engine.Centroid(poly),
		Rounds:      rounds,
		Area:        area,
		Termination: t,
	}
}
