package reducer

import (
	"log/slog"
	"math"
)

const (
	DefaultTolerance   = 0.1
	DefaultMaxVertices = 250
	FineMaxVertices    = 500
	DefaultMaxRounds   = 100
	DefaultMinArea     = 1.0
)

type options struct {
	tolerance   float64
	fine        bool
	maxVertices int
	maxRounds   int
	minArea     float64
	engine      Engine
	logger      *slog.Logger
}

func loadOptions(opts ...Option) options {
	o := options{
		maxRounds: DefaultMaxRounds,
		minArea:   DefaultMinArea,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt.apply(&o)
	}

	o.tolerance = normalizeTolerance(o.tolerance)
	if o.maxVertices <= 0 {
		o.maxVertices = DefaultMaxVertices
		if o.fine {
			o.maxVertices = FineMaxVertices
		}
	}
	if o.maxRounds <= 0 {
		o.maxRounds = DefaultMaxRounds
	}
	if o.minArea <= 0 || math.IsNaN(o.minArea) {
		o.minArea = DefaultMinArea
	}
	return o
}

// normalizeTolerance maps unset, NaN, infinite and zero tolerances to the
// default. The sign is ignored: erosion is always inward.
func normalizeTolerance(t float64) float64 {
	if t == 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return DefaultTolerance
	}
	return math.Abs(t)
}

type Option interface {
	apply(*options)
}

type tolerance float64

func (t tolerance) apply(o *options) {
	o.tolerance = float64(t)
}

// WithTolerance sets the erosion factor: each round erodes by
// tolerance * sqrt(area) meters.
//
// Default: 0.1
func WithTolerance(t float64) Option {
	return tolerance(t)
}

type fine bool

func (f fine) apply(o *options) {
	o.fine = bool(f)
}

// WithFine raises the vertex count that triggers simplification from 250 to
// 500. Ignored when WithMaxVertices is set.
func WithFine(enabled bool) Option {
	return fine(enabled)
}

type maxVertices int

func (m maxVertices) apply(o *options) {
	o.maxVertices = int(m)
}

func WithMaxVertices(n int) Option {
	return maxVertices(n)
}

type maxRounds int

func (m maxRounds) apply(o *options) {
	o.maxRounds = int(m)
}

// WithMaxRounds caps the number of erosion rounds.
//
// Default: 100
func WithMaxRounds(n int) Option {
	return maxRounds(n)
}

type minArea float64

func (m minArea) apply(o *options) {
	o.minArea = float64(m)
}

// WithMinArea sets the area in square meters at or below which the loop stops.
//
// Default: 1
func WithMinArea(a float64) Option {
	return minArea(a)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) {
	f(o)
}

func WithEngine(e Engine) Option {
	return optionFunc(func(o *options) {
		o.engine = e
	})
}

func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(o *options) {
		if l != nil {
			o.logger = l
		}
	})
}

// Config is the serialisable form of the reducer options, used by the
// batch labeler and the HTTP server.
type Config struct {
	Tolerance   float64
	Fine        bool
	MaxVertices int
	MaxRounds   int
}

func ConfigDefault() Config {
	return Config{
		Tolerance: DefaultTolerance,
		MaxRounds: DefaultMaxRounds,
	}
}

func (c Config) Options() []Option {
	return []Option{
		WithTolerance(c.Tolerance),
		WithFine(c.Fine),
		WithMaxVertices(c.MaxVertices),
		WithMaxRounds(c.MaxRounds),
	}
}
