// Package geoop implements the geometry primitives the erosion reducer is
// built from: area, centroid, simplification and buffering.
package geoop

import (
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-geos"
)

// CRS selects how coordinates and distances are interpreted.
type CRS uint8

const (
	// Geographic coordinates are lon/lat degrees, distances and areas are meters.
	Geographic CRS = iota
	// Planar coordinates are already expressed in meters.
	Planar
)

func (c CRS) String() string {
	switch c {
	case Planar:
		return "planar"
	default:
		return "geographic"
	}
}

type Config struct {
	CRS CRS
	// QuadSegs is the number of segments used to approximate a quarter circle
	// on buffer joins.
	QuadSegs int
	// SimplifyTolerance is the Douglas-Peucker tolerance in meters.
	SimplifyTolerance float64
}

func ConfigDefault() Config {
	return Config{
		CRS:               Geographic,
		QuadSegs:          8,
		SimplifyTolerance: 1,
	}
}

// Engine owns a GEOS context, so it must not be shared between goroutines.
// Use a Pool to hand engines out to workers.
type Engine struct {
	cfg  Config
	geos *geos.Context
}

func New(cfg Config) *Engine {
	if cfg.QuadSegs <= 0 {
		cfg.QuadSegs = ConfigDefault().QuadSegs
	}
	if cfg.SimplifyTolerance <= 0 || math.IsNaN(cfg.SimplifyTolerance) {
		cfg.SimplifyTolerance = ConfigDefault().SimplifyTolerance
	}
	return &Engine{
		cfg:  cfg,
		geos: geos.NewContext(),
	}
}

func (e *Engine) Config() Config {
	return e.cfg
}

type Pool struct {
	cfg  Config
	pool sync.Pool
}

func NewPool(cfg Config) *Pool {
	p := &Pool{cfg: cfg}
	p.pool.New = func() any {
		return New(p.cfg)
	}
	return p
}

func (p *Pool) Get() *Engine {
	return p.pool.Get().(*Engine)
}

func (p *Pool) Put(e *Engine) {
	p.pool.Put(e)
}

// metersPerDegree is the length of one degree of a great circle.
const metersPerDegree = orb.EarthRadius * math.Pi / 180

func metersToDegrees(m float64) float64 {
	return m / metersPerDegree
}
