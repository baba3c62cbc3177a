package geoop

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

type BufferKind uint8

const (
	// KindDegenerate means the offset could not be represented: the shape
	// collapsed, GEOS failed, or the distance was not finite.
	KindDegenerate BufferKind = iota
	KindPolygon
	KindMultiPolygon
)

func (k BufferKind) String() string {
	switch k {
	case KindPolygon:
		return "polygon"
	case KindMultiPolygon:
		return "multipolygon"
	default:
		return "degenerate"
	}
}

var (
	ErrCollapsed          = errors.New("buffer collapsed to an empty geometry")
	ErrNonFiniteDistance  = errors.New("buffer distance is not finite")
	ErrUnexpectedGeometry = errors.New("buffer returned an unexpected geometry type")
)

// BufferResult is the outcome of an offset: exactly one of Polygon or
// Islands is set according to Kind. A degenerate result carries the cause in Err.
type BufferResult struct {
	Kind    BufferKind
	Polygon orb.Polygon
	Islands orb.MultiPolygon
	Err     error
}

func PolygonResult(p orb.Polygon) BufferResult {
	return BufferResult{Kind: KindPolygon, Polygon: p}
}

func IslandsResult(mp orb.MultiPolygon) BufferResult {
	switch len(mp) {
	case 0:
		return Degenerate(ErrCollapsed)
	case 1:
		return PolygonResult(mp[0])
	}
	return BufferResult{Kind: KindMultiPolygon, Islands: mp}
}

func Degenerate(err error) BufferResult {
	return BufferResult{Kind: KindDegenerate, Err: err}
}

func (r BufferResult) IsDegenerate() bool {
	return r.Kind == KindDegenerate
}

// Buffer offsets the polygon by the signed distance in meters; negative
// distances erode it. It never panics and never returns an error: every
// failure is reported as a degenerate result.
func (e *Engine) Buffer(p orb.Polygon, meters float64) (res BufferResult) {
	if math.IsNaN(meters) || math.IsInf(meters, 0) {
		return Degenerate(ErrNonFiniteDistance)
	}
	if len(p) == 0 {
		return Degenerate(ErrCollapsed)
	}

	// go-geos panics when GEOS reports an error (topology exceptions on
	// eroded slivers, mostly).
	defer func() {
		if r := recover(); r != nil {
			res = Degenerate(fmt.Errorf("geos buffer: %v", r))
		}
	}()

	f := e.frameFor(p)

	data, err := wkb.Marshal(f.forward(p))
	if err != nil {
		return Degenerate(fmt.Errorf("marshal polygon: %w", err))
	}
	g, err := e.geos.NewGeomFromWKB(data)
	if err != nil {
		return Degenerate(fmt.Errorf("geos read polygon: %w", err))
	}

	buffered := g.Buffer(meters, e.cfg.QuadSegs)
	if buffered.IsEmpty() {
		return Degenerate(ErrCollapsed)
	}

	out, err := wkb.Unmarshal(buffered.ToWKB())
	if err != nil {
		return Degenerate(fmt.Errorf("unmarshal buffer result: %w", err))
	}

	switch out := out.(type) {
	case orb.Polygon:
		if len(out) == 0 {
			return Degenerate(ErrCollapsed)
		}
		return PolygonResult(f.inversePolygon(out))
	case orb.MultiPolygon:
		mp := make(orb.MultiPolygon, 0, len(out))
		for _, island := range out {
			if len(island) == 0 {
				continue
			}
			mp = append(mp, f.inversePolygon(island))
		}
		return IslandsResult(mp)
	default:
		return Degenerate(fmt.Errorf("%w: %s", ErrUnexpectedGeometry, out.GeoJSONType()))
	}
}

// frame maps lon/lat onto a local equirectangular plane in meters centered
// on the polygon, so GEOS can offset by true meters.
type frame struct {
	identity bool
	origin   orb.Point
	kx, ky   float64
}

func (e *Engine) frameFor(p orb.Polygon) frame {
	if e.cfg.CRS == Planar {
		return frame{identity: true}
	}

	origin, _ := planar.CentroidArea(p)
	return frame{
		origin: origin,
		kx:     metersPerDegree * math.Cos(origin.Lat()*math.Pi/180),
		ky:     metersPerDegree,
	}
}

func (f frame) forward(p orb.Polygon) orb.Polygon {
	if f.identity {
		return p
	}
	return project.Polygon(p.Clone(), func(pt orb.Point) orb.Point {
		return orb.Point{
			(pt[0] - f.origin[0]) * f.kx,
			(pt[1] - f.origin[1]) * f.ky,
		}
	})
}

func (f frame) inversePolygon(p orb.Polygon) orb.Polygon {
	if f.identity {
		return p
	}
	return project.Polygon(p, func(pt orb.Point) orb.Point {
		return orb.Point{
			pt[0]/f.kx + f.origin[0],
			pt[1]/f.ky + f.origin[1],
		}
	})
}
