package server

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/royalcat/polyreduce/geojsonio"
	"github.com/royalcat/polyreduce/geomodel"
	"github.com/royalcat/polyreduce/geoop"
	"github.com/royalcat/polyreduce/kv"
	"github.com/royalcat/polyreduce/labeler"
	"github.com/royalcat/polyreduce/reducer"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const MaxBodySize = 32 * 1000 * 1000 // 32MB

var meter = otel.Meter("github.com/royalcat/polyreduce/server")

func Run(ctx context.Context, cfg Config) error {
	if err := setupTelemetry(ctx); err != nil {
		return fmt.Errorf("failed to initialize otel metrics: %w", err)
	}

	log := slog.Default()

	s, err := newServer(cfg)
	if err != nil {
		return err
	}

	server := &fasthttp.Server{
		ReadTimeout:        5 * time.Second,
		MaxRequestBodySize: MaxBodySize,
		Handler:            s.router().Handler,
	}

	go func() {
		log.Info("Server listening", "address", cfg.Address)
		if err := server.ListenAndServe(cfg.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stdlog.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	slog.Info("Server started")

	// wait cancel
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return server.ShutdownWithContext(shutdownCtx)
}

type cacheKey struct {
	geometry  string
	tolerance float64
	fine      bool
}

type server struct {
	reduce  reducer.Config
	engines *geoop.Pool
	labeler *labeler.Labeler
	// nil when caching is disabled
	cache kv.KVS[cacheKey, reducer.Result]

	metricLabelCallCount  metric.Int64Counter
	metricLabelsCallCount metric.Int64Counter
	metricPolygonsReduced metric.Int64Counter
	metricCacheHits       metric.Int64Counter
}

func newServer(cfg Config) (*server, error) {
	lcfg := labeler.ConfigDefault()
	lcfg.Reduce = cfg.Reduce
	lcfg.Geo = cfg.Geo
	if cfg.Threads > 0 {
		lcfg.Threads = cfg.Threads
	}
	l, err := labeler.New(lcfg)
	if err != nil {
		return nil, err
	}

	s := &server{
		reduce:  cfg.Reduce,
		engines: geoop.NewPool(cfg.Geo),
		labeler: l,
	}

	if cfg.CacheSize > 0 {
		cache, err := kv.NewLRU[cacheKey, reducer.Result](cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}

	if s.metricLabelCallCount, err = meter.Int64Counter("label_call_total"); err != nil {
		return nil, err
	}
	if s.metricLabelsCallCount, err = meter.Int64Counter("labels_call_total"); err != nil {
		return nil, err
	}
	if s.metricPolygonsReduced, err = meter.Int64Counter("polygons_reduced_total"); err != nil {
		return nil, err
	}
	if s.metricCacheHits, err = meter.Int64Counter("label_cache_hits_total"); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *server) router() *router.Router {
	r := router.New()
	r.POST("/polyreduce/label", s.LabelHandler)
	r.POST("/polyreduce/detail", s.DetailHandler)
	r.POST("/polyreduce/labels", s.LabelsHandler)
	r.Handle(http.MethodGet, "/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))
	return r
}

// LabelHandler answers with the label point of the posted polygon as a
// GeoJSON feature.
func (s *server) LabelHandler(ctx *fasthttp.RequestCtx) {
	s.metricLabelCallCount.Add(ctx, 1)

	f, res, ok := s.reduceRequest(ctx)
	if !ok {
		return
	}

	out := geojson.NewFeature(res.Point)
	out.ID = f.ID
	data, err := out.MarshalJSON()
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		ctx.Response.SetBodyString("failed to marshal response")
		return
	}

	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.SetContentType("application/geo+json")
	ctx.Response.SetBody(data)
}

// DetailHandler answers with the label point and how it was found.
func (s *server) DetailHandler(ctx *fasthttp.RequestCtx) {
	s.metricLabelCallCount.Add(ctx, 1)

	_, res, ok := s.reduceRequest(ctx)
	if !ok {
		return
	}

	data, err := geomodel.NewLabel(res).MarshalJSON()
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		ctx.Response.SetBodyString("failed to marshal response")
		return
	}

	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.SetContentType("application/json")
	ctx.Response.SetBody(data)
}

// LabelsHandler labels every polygon of a posted feature collection. Features
// that are not polygons are left out of the response.
func (s *server) LabelsHandler(ctx *fasthttp.RequestCtx) {
	s.metricLabelsCallCount.Add(ctx, 1)

	fc, err := geojsonio.Decode(ctx.Request.Body())
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		ctx.Response.SetBodyString("failed to parse request: " + err.Error())
		return
	}

	out, summary, err := s.labeler.Label(ctx, fc)
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		ctx.Response.SetBodyString(err.Error())
		return
	}
	s.metricPolygonsReduced.Add(ctx, int64(summary.Labeled))

	data, err := out.MarshalJSON()
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		return
	}

	ctx.Response.Header.Set("X-Labels-Skipped", strconv.Itoa(summary.Skipped+summary.Failed))
	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.SetContentType("application/geo+json")
	ctx.Response.SetBody(data)
}

// reduceRequest decodes a single feature or geometry and reduces it. On
// failure the response is already written.
func (s *server) reduceRequest(ctx *fasthttp.RequestCtx) (*geojson.Feature, reducer.Result, bool) {
	cfg, err := s.requestConfig(ctx.QueryArgs())
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		ctx.Response.SetBodyString(err.Error())
		return nil, reducer.Result{}, false
	}

	fc, err := geojsonio.Decode(ctx.Request.Body())
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		ctx.Response.SetBodyString("failed to parse request: " + err.Error())
		return nil, reducer.Result{}, false
	}
	if len(fc.Features) != 1 {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		ctx.Response.SetBodyString("expected a single feature or geometry")
		return nil, reducer.Result{}, false
	}
	f := fc.Features[0]

	res, err := s.reduceCached(f.Geometry, cfg)
	if errors.Is(err, reducer.ErrInvalidInput) {
		ctx.Response.SetStatusCode(http.StatusUnprocessableEntity)
		ctx.Response.SetBodyString(err.Error())
		return nil, reducer.Result{}, false
	}
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		ctx.Response.SetBodyString(err.Error())
		return nil, reducer.Result{}, false
	}
	s.metricPolygonsReduced.Add(ctx, 1)

	return f, res, true
}

func (s *server) requestConfig(args *fasthttp.Args) (reducer.Config, error) {
	cfg := s.reduce
	if v := args.Peek("tolerance"); len(v) > 0 {
		t, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid tolerance: %w", err)
		}
		cfg.Tolerance = t
	}
	if v := args.Peek("fine"); len(v) > 0 {
		fine, err := strconv.ParseBool(string(v))
		if err != nil {
			return cfg, fmt.Errorf("invalid fine flag: %w", err)
		}
		cfg.Fine = fine
	}
	return cfg, nil
}

func (s *server) reduceCached(g orb.Geometry, cfg reducer.Config) (reducer.Result, error) {
	poly, ok := g.(orb.Polygon)
	if !ok || s.cache == nil {
		return s.reduceWithEngine(g, cfg)
	}

	data, err := wkb.Marshal(poly)
	if err != nil {
		return s.reduceWithEngine(g, cfg)
	}
	key := cacheKey{geometry: string(data), tolerance: cfg.Tolerance, fine: cfg.Fine}
	if res, ok := s.cache.Get(key); ok {
		s.metricCacheHits.Add(context.Background(), 1)
		return res, nil
	}

	res, err := s.reduceWithEngine(g, cfg)
	if err != nil {
		return res, err
	}
	s.cache.Set(key, res)
	return res, nil
}

func (s *server) reduceWithEngine(g orb.Geometry, cfg reducer.Config) (reducer.Result, error) {
	eng := s.engines.Get()
	defer s.engines.Put(eng)

	return reducer.ReduceDetailed(g, append(cfg.Options(), reducer.WithEngine(eng))...)
}
