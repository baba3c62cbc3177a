package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/polyreduce/geojsonio"
	"github.com/royalcat/polyreduce/geoop"
	"github.com/royalcat/polyreduce/internal/stats"
	"github.com/royalcat/polyreduce/internal/telemetry"
	"github.com/royalcat/polyreduce/labeler"
	"github.com/royalcat/polyreduce/osmsource"
	"github.com/urfave/cli/v3"
)

func reduce(ctx *cli.Context) error {
	return runBatch(ctx, "reduce", func(runCtx context.Context) (*labeler.Summary, error) {
		fc, err := geojsonio.ReadFiles(runCtx, ctx.StringSlice("input"))
		if err != nil {
			return nil, err
		}

		out, summary, err := labelCollection(runCtx, ctx, fc)
		if err != nil {
			return &summary, err
		}
		return &summary, geojsonio.WriteFile(ctx.String("output"), out)
	})
}

func extractOSM(ctx *cli.Context) error {
	return runBatch(ctx, "osm", func(runCtx context.Context) (*labeler.Summary, error) {
		cfg := osmsource.ConfigDefault()
		if t := ctx.Int("threads"); t > 0 {
			cfg.Threads = t
		}
		cfg.Tags = ctx.String("tags")
		cfg.Progress = ctx.Bool("progress")
		if cache := ctx.String("cache"); cache != "memory" {
			cfg.CachePath = cache
		}

		fc, err := osmsource.New(cfg).Polygons(runCtx, ctx.String("input"))
		if err != nil {
			return nil, err
		}

		if !ctx.Bool("label") {
			return nil, geojsonio.WriteFile(ctx.String("output"), fc)
		}

		out, summary, err := labelCollection(runCtx, ctx, fc)
		if err != nil {
			return &summary, err
		}
		return &summary, geojsonio.WriteFile(ctx.String("output"), out)
	})
}

func labelerConfig(ctx *cli.Context) labeler.Config {
	cfg := labeler.ConfigDefault()
	if t := ctx.Int("threads"); t > 0 {
		cfg.Threads = t
	}
	cfg.Reduce.Tolerance = ctx.Float64("tolerance")
	cfg.Reduce.Fine = ctx.Bool("fine")
	if ctx.Bool("planar") {
		cfg.Geo.CRS = geoop.Planar
	}
	cfg.Annotate = ctx.Bool("annotate")
	cfg.SplitMulti = ctx.Bool("split-multi")
	cfg.Progress = ctx.Bool("progress")
	return cfg
}

func labelCollection(runCtx context.Context, ctx *cli.Context, fc *geojson.FeatureCollection) (*geojson.FeatureCollection, labeler.Summary, error) {
	l, err := labeler.New(labelerConfig(ctx))
	if err != nil {
		return nil, labeler.Summary{}, err
	}
	return l.Label(runCtx, fc)
}

// runBatch wraps a batch command with signal handling, telemetry, profiling
// and the optional run report.
func runBatch(ctx *cli.Context, command string, run func(context.Context) (*labeler.Summary, error)) error {
	log := slog.Default().With("command", command)

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := telemetry.Setup(runCtx, "polyreduce", command, ctx.String("otel-endpoint"))
	if err != nil {
		return fmt.Errorf("error setting up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Shutdown(shutdownCtx)
	}()

	if pprofListen := ctx.String("pprof.listen"); pprofListen != "" {
		go func() {
			log.Info("Starting pprof server", "address", pprofListen)
			err := http.ListenAndServe(pprofListen, nil)
			if err != nil {
				log.Error("Error starting pprof server", "error", err)
			}
		}()
	}

	if ctx.Bool("pprof.profile") {
		f, err := os.OpenFile("profile.cpu.pprof", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("error creating pprof file: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("error starting pprof: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	var collector *stats.Collector
	if ctx.String("stats") != "" {
		collector, err = stats.NewCollector(time.Second)
		if err != nil {
			return err
		}
		collector.Start()
	}

	summary, err := run(runCtx)
	if err != nil {
		if collector != nil {
			collector.Stop()
		}
		return err
	}

	if ctx.Bool("pprof.heap") {
		if err := writeHeapProfile("profile"); err != nil {
			return fmt.Errorf("error writing heap profile: %w", err)
		}
	}

	if collector != nil {
		report := stats.Report{Runtime: collector.Stop(), Labels: summary}
		if err := report.SaveToFile(ctx.String("stats")); err != nil {
			return err
		}
		log.Info("Run report written", "file", ctx.String("stats"))
	}

	return client.Flush(runCtx)
}

func writeHeapProfile(name string) error {
	f, err := os.Create(name + ".heap.prof")
	if err != nil {
		return err
	}
	defer f.Close()
	return pprof.WriteHeapProfile(f)
}
