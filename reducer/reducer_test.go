package reducer

import (
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/royalcat/polyreduce/geoop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/slogassert"
)

// fakeEngine erodes polygons as their bounding boxes, which is exact for
// axis aligned rectangles. Scripted buffer results are returned first.
type fakeEngine struct {
	script []geoop.BufferResult
	stall  bool

	areaCalls, bufferCalls, simplifyCalls, centroidCalls int
	distances                                            []float64
	areas                                                []float64
}

func (f *fakeEngine) Area(p orb.Polygon) float64 {
	f.areaCalls++
	a := math.Abs(planar.Area(p))
	f.areas = append(f.areas, a)
	return a
}

func (f *fakeEngine) Buffer(p orb.Polygon, d float64) geoop.BufferResult {
	f.bufferCalls++
	f.distances = append(f.distances, d)

	if len(f.script) > 0 {
		r := f.script[0]
		f.script = f.script[1:]
		return r
	}
	if f.stall {
		return geoop.PolygonResult(p)
	}

	b := p.Bound()
	b.Min = orb.Point{b.Min[0] - d, b.Min[1] - d}
	b.Max = orb.Point{b.Max[0] + d, b.Max[1] + d}
	if b.Max[0] <= b.Min[0] || b.Max[1] <= b.Min[1] {
		return geoop.Degenerate(geoop.ErrCollapsed)
	}
	return geoop.PolygonResult(orb.Polygon{b.ToRing()})
}

func (f *fakeEngine) Simplify(p orb.Polygon) orb.Polygon {
	f.simplifyCalls++
	return p
}

func (f *fakeEngine) Centroid(p orb.Polygon) orb.Point {
	f.centroidCalls++
	c, _ := planar.CentroidArea(p)
	return c
}

func (f *fakeEngine) calls() int {
	return f.areaCalls + f.bufferCalls + f.simplifyCalls + f.centroidCalls
}

func rect(minX, minY, w, h float64) orb.Polygon {
	return orb.Polygon{orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{minX + w, minY + h}}.ToRing()}
}

func circle(center orb.Point, radius float64, n int) orb.Polygon {
	ring := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		ring = append(ring, orb.Point{center[0] + radius*math.Cos(a), center[1] + radius*math.Sin(a)})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

func assertPointNear(t *testing.T, expected, actual orb.Point) {
	t.Helper()
	if math.Abs(expected[0]-actual[0]) > 1e-9 || math.Abs(expected[1]-actual[1]) > 1e-9 {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

func TestReduceSquare(t *testing.T) {
	eng := &fakeEngine{}

	res, err := ReduceDetailed(rect(0, 0, 100, 100), WithEngine(eng))
	require.NoError(t, err)

	// each round keeps 80% of the side, 0.64^21 * 10000 is the first area below 1
	assert.Equal(t, 21, res.Rounds)
	assert.Equal(t, AreaFloor, res.Termination)
	assert.LessOrEqual(t, res.Area, 1.0)
	assertPointNear(t, orb.Point{50, 50}, res.Point)

	require.GreaterOrEqual(t, len(eng.distances), 2)
	assert.InDelta(t, -10, eng.distances[0], 1e-12)
	assert.InDelta(t, -8, eng.distances[1], 1e-12)
	assert.Equal(t, 1, eng.centroidCalls)
}

func TestAreaStrictlyDecreases(t *testing.T) {
	eng := &fakeEngine{}

	_, err := Reduce(rect(-20, 10, 300, 40), WithEngine(eng), WithTolerance(0.05))
	require.NoError(t, err)

	for i := 1; i < len(eng.areas); i++ {
		if eng.areas[i] >= eng.areas[i-1] {
			t.Fatalf("area did not decrease at round %d: %v -> %v", i, eng.areas[i-1], eng.areas[i])
		}
	}
	// the loop stops on the first area at or below the floor
	for _, a := range eng.areas[:len(eng.areas)-1] {
		assert.Greater(t, a, DefaultMinArea)
	}
}

func TestReduceDeterministic(t *testing.T) {
	p := rect(3, 7, 120, 45)

	first, err := ReduceDetailed(p, WithEngine(&fakeEngine{}))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		res, err := ReduceDetailed(p, WithEngine(&fakeEngine{}))
		require.NoError(t, err)
		assert.Equal(t, first, res)
	}
}

func TestDefaultTolerance(t *testing.T) {
	p := rect(0, 0, 250, 90)

	expected, err := ReduceDetailed(p, WithEngine(&fakeEngine{}), WithTolerance(0.1))
	require.NoError(t, err)

	cases := map[string][]Option{
		"absent":   {},
		"nan":      {WithTolerance(math.NaN())},
		"zero":     {WithTolerance(0)},
		"infinite": {WithTolerance(math.Inf(1))},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := ReduceDetailed(p, append(opts, WithEngine(&fakeEngine{}))...)
			require.NoError(t, err)
			assert.Equal(t, expected, res)
		})
	}
}

func TestToleranceSignInvariance(t *testing.T) {
	p := rect(0, 0, 180, 60)

	for _, tol := range []float64{0.03, 0.1, 0.25, 0.4} {
		pos, err := ReduceDetailed(p, WithEngine(&fakeEngine{}), WithTolerance(tol))
		require.NoError(t, err)
		neg, err := ReduceDetailed(p, WithEngine(&fakeEngine{}), WithTolerance(-tol))
		require.NoError(t, err)
		assert.Equal(t, pos, neg, "tolerance %v", tol)
	}
}

func TestNormalizeTolerance(t *testing.T) {
	cases := []struct {
		in, out float64
	}{
		{0, DefaultTolerance},
		{math.NaN(), DefaultTolerance},
		{math.Inf(-1), DefaultTolerance},
		{0.2, 0.2},
		{-0.2, 0.2},
		{-1.5, 1.5},
	}
	for _, c := range cases {
		if got := normalizeTolerance(c.in); got != c.out {
			t.Errorf("normalizeTolerance(%v) = %v, expected %v", c.in, got, c.out)
		}
	}
}

func TestDegenerateFallback(t *testing.T) {
	eng := &fakeEngine{}
	thin := rect(0, 0, 1000, 2)

	res, err := ReduceDetailed(thin, WithEngine(eng))
	require.NoError(t, err)

	assert.Equal(t, Degenerate, res.Termination)
	assert.Equal(t, 0, res.Rounds)
	assert.Equal(t, 1, eng.bufferCalls)
	assertPointNear(t, orb.Point{500, 1}, res.Point)
}

func TestLargestIslandWins(t *testing.T) {
	small := rect(0, 0, 2, 2)
	large := rect(100, 100, 10, 10)
	eng := &fakeEngine{
		script: []geoop.BufferResult{geoop.IslandsResult(orb.MultiPolygon{small, large})},
	}

	res, err := ReduceDetailed(rect(0, 0, 200, 200), WithEngine(eng))
	require.NoError(t, err)

	assert.Equal(t, AreaFloor, res.Termination)
	assertPointNear(t, orb.Point{105, 105}, res.Point)
}

func TestLargestIslandTies(t *testing.T) {
	first := rect(0, 0, 5, 5)
	second := rect(10, 0, 5, 5)
	area := func(p orb.Polygon) float64 { return math.Abs(planar.Area(p)) }

	got := largestIsland(orb.MultiPolygon{first, second}, area)
	assert.Equal(t, first, got)

	got = largestIsland(orb.MultiPolygon{rect(0, 0, 1, 1), second, first}, area)
	assert.Equal(t, second, got)

	assert.Nil(t, largestIsland(nil, area))
}

func TestLargestIslandKeepsHoles(t *testing.T) {
	withHole := append(rect(0, 0, 50, 50), rect(20, 20, 5, 5)[0])
	got := largestIsland(orb.MultiPolygon{rect(100, 0, 3, 3), withHole}, func(p orb.Polygon) float64 {
		return math.Abs(planar.Area(p))
	})
	assert.Len(t, got, 2)
}

func TestCollapseDensity(t *testing.T) {
	dense := circle(orb.Point{0, 0}, 500, 400)
	require.Equal(t, 401, vertexCount(dense))

	eng := &fakeEngine{}
	collapse(geoop.PolygonResult(dense), DefaultMaxVertices, eng)
	assert.Equal(t, 1, eng.simplifyCalls)

	eng = &fakeEngine{}
	collapse(geoop.PolygonResult(dense), FineMaxVertices, eng)
	assert.Equal(t, 0, eng.simplifyCalls)

	withHoles := append(circle(orb.Point{0, 0}, 500, 200), circle(orb.Point{0, 0}, 10, 60)[0])
	assert.Equal(t, 262, vertexCount(withHoles))
	eng = &fakeEngine{}
	collapse(geoop.PolygonResult(withHoles), DefaultMaxVertices, eng)
	assert.Equal(t, 1, eng.simplifyCalls)
}

func TestFineMode(t *testing.T) {
	dense := circle(orb.Point{0, 0}, 500, 400)
	script := func() []geoop.BufferResult {
		return []geoop.BufferResult{
			geoop.PolygonResult(dense),
			geoop.Degenerate(geoop.ErrCollapsed),
		}
	}

	normal := &fakeEngine{script: script()}
	_, err := Reduce(rect(-1000, -1000, 2000, 2000), WithEngine(normal))
	require.NoError(t, err)
	assert.Equal(t, 1, normal.simplifyCalls)

	fineEng := &fakeEngine{script: script()}
	_, err = Reduce(rect(-1000, -1000, 2000, 2000), WithEngine(fineEng), WithFine(true))
	require.NoError(t, err)
	assert.Equal(t, 0, fineEng.simplifyCalls)

	explicit := &fakeEngine{script: script()}
	_, err = Reduce(rect(-1000, -1000, 2000, 2000), WithEngine(explicit), WithFine(true), WithMaxVertices(100))
	require.NoError(t, err)
	assert.Equal(t, 1, explicit.simplifyCalls)
}

func TestStalled(t *testing.T) {
	eng := &fakeEngine{stall: true}

	res, err := ReduceDetailed(rect(0, 0, 10, 10), WithEngine(eng))
	require.NoError(t, err)
	assert.Equal(t, Stalled, res.Termination)
	assert.Equal(t, 1, res.Rounds)
	assertPointNear(t, orb.Point{5, 5}, res.Point)
}

func TestRoundLimit(t *testing.T) {
	handler := slogassert.New(t, slog.LevelWarn, nil)
	eng := &fakeEngine{}

	res, err := ReduceDetailed(rect(0, 0, 100, 100), WithEngine(eng), WithMaxRounds(3), WithLogger(slog.New(handler)))
	require.NoError(t, err)

	assert.Equal(t, RoundLimit, res.Termination)
	assert.Equal(t, 3, res.Rounds)
	assertPointNear(t, orb.Point{50, 50}, res.Point)
	handler.AssertMessage("erosion round limit reached")
}

func TestSmallPolygonSkipsErosion(t *testing.T) {
	eng := &fakeEngine{}

	res, err := ReduceDetailed(rect(0, 0, 0.5, 0.5), WithEngine(eng))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rounds)
	assert.Equal(t, 0, eng.bufferCalls)
	assert.Equal(t, AreaFloor, res.Termination)
}

func TestInvalidInput(t *testing.T) {
	cases := map[string]orb.Geometry{
		"nil":          nil,
		"point":        orb.Point{1, 2},
		"linestring":   orb.LineString{{0, 0}, {1, 1}},
		"multipolygon": orb.MultiPolygon{rect(0, 0, 10, 10)},
		"ring":         rect(0, 0, 10, 10)[0],
		"collection":   orb.Collection{rect(0, 0, 10, 10)},
		"empty":        orb.Polygon{},
		"short ring":   orb.Polygon{{{0, 0}, {1, 0}, {0, 0}}},
	}
	for name, g := range cases {
		t.Run(name, func(t *testing.T) {
			eng := &fakeEngine{}
			_, err := Reduce(g, WithEngine(eng))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var invalid *InvalidInputError
			require.True(t, errors.As(err, &invalid))
			assert.NotEmpty(t, invalid.GeometryType)
			assert.Equal(t, 0, eng.calls(), "no primitive may run on invalid input")
		})
	}
}

func TestTerminationString(t *testing.T) {
	assert.Equal(t, "area_floor", AreaFloor.String())
	assert.Equal(t, "degenerate", Degenerate.String())
	assert.Equal(t, "stalled", Stalled.String())
	assert.Equal(t, "round_limit", RoundLimit.String())
}

func BenchmarkReduceFake(b *testing.B) {
	p := rect(0, 0, 1000, 400)
	for i := 0; i < b.N; i++ {
		_, _ = Reduce(p, WithEngine(&fakeEngine{}))
	}
}
