// Package labeler computes label points for every polygon of a feature
// collection on a pool of workers.
package labeler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/polyreduce/geoop"
	"github.com/royalcat/polyreduce/kv"
	"github.com/royalcat/polyreduce/reducer"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	meter  = otel.Meter("github.com/royalcat/polyreduce/labeler")
	tracer = otel.Tracer("github.com/royalcat/polyreduce/labeler")
)

type Labeler struct {
	cfg     Config
	engines *geoop.Pool
	log     *slog.Logger

	metricLabels metric.Int64Counter
	metricRounds metric.Int64Histogram
}

func New(cfg Config) (*Labeler, error) {
	if cfg.Threads <= 0 {
		cfg.Threads = ConfigDefault().Threads
	}

	labels, err := meter.Int64Counter("labels_total",
		metric.WithDescription("polygons reduced to a label point"))
	if err != nil {
		return nil, err
	}
	rounds, err := meter.Int64Histogram("label_rounds",
		metric.WithDescription("erosion rounds per polygon"))
	if err != nil {
		return nil, err
	}

	return &Labeler{
		cfg:          cfg,
		engines:      geoop.NewPool(cfg.Geo),
		log:          slog.Default().With("component", "labeler"),
		metricLabels: labels,
		metricRounds: rounds,
	}, nil
}

type job struct {
	src  *geojson.Feature
	poly orb.Polygon
	part int // -1 for a plain polygon
	key  string
}

type outcome struct {
	res     reducer.Result
	err     error
	deduped bool
}

// entry holds the shared result for identical geometries.
type entry struct {
	once sync.Once
	res  reducer.Result
	err  error
}

// Label reduces every Polygon feature of fc to a Point feature. Output order
// follows input order. Features that are not polygons are counted as skipped.
func (l *Labeler) Label(ctx context.Context, fc *geojson.FeatureCollection) (*geojson.FeatureCollection, Summary, error) {
	start := time.Now()
	summary := newSummary()

	ctx, span := tracer.Start(ctx, "labeler.Label", trace.WithAttributes(
		attribute.String("run_id", summary.RunID.String()),
		attribute.Int("features", len(fc.Features)),
	))
	defer span.End()

	log := l.log.With("run_id", summary.RunID.String())

	summary.Features = len(fc.Features)
	jobs := l.jobs(fc, &summary)
	log.Info("labeling polygons", "features", summary.Features, "polygons", len(jobs), "skipped", summary.Skipped, "threads", l.cfg.Threads)

	var bar *pb.ProgressBar
	if l.cfg.Progress {
		bar = pb.StartNew(len(jobs))
		bar.Set("prefix", "labeling")
		bar.SetRefreshRate(time.Second)
	}

	opts := slices.Clip(append(l.cfg.Reduce.Options(), reducer.WithLogger(log)))
	seen := kv.NewXMap[string, *entry]()
	defer seen.Close()

	outcomes := make([]outcome, len(jobs))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(l.cfg.Threads)
	for i, j := range jobs {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if bar != nil {
				defer bar.Increment()
			}

			e, loaded := seen.LoadOrCompute(j.key, func() *entry { return &entry{} })
			e.once.Do(func() {
				eng := l.engines.Get()
				defer l.engines.Put(eng)
				e.res, e.err = reducer.ReduceDetailed(j.poly, append(opts, reducer.WithEngine(eng))...)
			})
			outcomes[i] = outcome{res: e.res, err: e.err, deduped: loaded}

			if e.err == nil {
				attrs := metric.WithAttributes(attribute.String("termination", e.res.Termination.String()))
				l.metricLabels.Add(ctx, 1, attrs)
				l.metricRounds.Record(ctx, int64(e.res.Rounds), attrs)
			}
			return nil
		})
	}
	err := p.Wait()
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		span.RecordError(err)
		return nil, summary, fmt.Errorf("labeling interrupted: %w", err)
	}

	out := geojson.NewFeatureCollection()
	out.Features = make([]*geojson.Feature, 0, len(jobs))
	for i, j := range jobs {
		o := outcomes[i]
		if o.err != nil {
			summary.Failed++
			log.Warn("failed to label polygon", "id", j.src.ID, "error", o.err)
			continue
		}
		summary.add(o)
		out.Append(l.feature(j, o.res))
	}
	summary.Duration = time.Since(start)

	span.SetAttributes(attribute.Int("labeled", summary.Labeled), attribute.Int("failed", summary.Failed))
	log.Info("labeling done", "labeled", summary.Labeled, "failed", summary.Failed, "deduped", summary.Deduped, "elapsed", summary.Duration)

	return out, summary, nil
}

func (l *Labeler) jobs(fc *geojson.FeatureCollection, summary *Summary) []job {
	jobs := make([]job, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil {
			summary.Skipped++
			continue
		}

		switch g := f.Geometry.(type) {
		case orb.Polygon:
			jobs = append(jobs, job{src: f, poly: g, part: -1, key: geometryKey(g)})
		case orb.MultiPolygon:
			if !l.cfg.SplitMulti {
				summary.Skipped++
				continue
			}
			for i, part := range g {
				jobs = append(jobs, job{src: f, poly: part, part: i, key: geometryKey(part)})
			}
		default:
			summary.Skipped++
		}
	}
	return jobs
}

func (l *Labeler) feature(j job, res reducer.Result) *geojson.Feature {
	f := geojson.NewFeature(res.Point)
	f.ID = j.src.ID
	if j.src.Properties != nil {
		f.Properties = j.src.Properties.Clone()
	}
	if j.part >= 0 {
		f.Properties[PropPart] = j.part
	}
	if l.cfg.Annotate {
		f.Properties[PropRounds] = res.Rounds
		f.Properties[PropTermination] = res.Termination.String()
	}
	return f
}

// geometryKey identifies identical polygons. Invalid polygons get a unique
// key so each one reports its own error.
func geometryKey(p orb.Polygon) string {
	data, err := wkb.Marshal(p)
	if err != nil {
		return uuid.NewString()
	}
	return string(data)
}
