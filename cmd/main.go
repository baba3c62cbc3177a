package main

import (
	"log"
	"os"

	"github.com/royalcat/polyreduce/internal/telemetry"
	"github.com/urfave/cli/v3"

	_ "net/http/pprof"

	_ "github.com/KimMachineGun/automemlimit"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:        "polyreduce",
		Usage:       "find label points of polygons",
		Description: "Reduces polygons to a point far from their edges by eroding them until they collapse",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			{
				Name:    "reduce",
				Aliases: []string{"r"},
				Usage:   "label every polygon of GeoJSON files",
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{
						Name:      "input",
						Aliases:   []string{"i"},
						Required:  true,
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:      "output",
						Aliases:   []string{"o"},
						Value:     "-",
						TakesFile: true,
					},
					&cli.BoolFlag{
						Name:  "annotate",
						Usage: "add round count and termination reason to every label",
					},
					&cli.BoolFlag{
						Name:  "split-multi",
						Usage: "label every part of multipolygons",
					},
				}, batchFlags()...),
				Action: reduce,
			},
			{
				Name:  "osm",
				Usage: "extract polygons from an osm pbf file, optionally labeling them",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:      "input",
						Aliases:   []string{"i"},
						Required:  true,
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:      "output",
						Aliases:   []string{"o"},
						Value:     "-",
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:  "tags",
						Value: "building",
						Usage: "way filter, comma separated alternatives of '+' joined tags, empty uses area tags",
					},
					&cli.StringFlag{
						Name:        "cache",
						Value:       "memory",
						DefaultText: "memory",
						Usage:       "node cache: 'memory' or a directory for leveldb",
					},
					&cli.BoolFlag{
						Name:  "label",
						Usage: "write label points instead of polygons",
					},
					&cli.BoolFlag{
						Name: "annotate",
					},
				}, batchFlags()...),
				Action: extractOSM,
			},
			{
				Name:  "serve",
				Usage: "serve the polyreduce http api",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
					},
					&cli.IntFlag{
						Name:  "cache-size",
						Value: 4096,
					},
					&cli.Float64Flag{
						Name:  "tolerance",
						Value: 0.1,
					},
					&cli.BoolFlag{
						Name: "fine",
					},
					&cli.IntFlag{
						Name:        "threads",
						Aliases:     []string{"t"},
						DefaultText: "max",
					},
				},
				Action: serve,
			},
		},
	}
}

func batchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:    "tolerance",
			Aliases: []string{"t"},
			Value:   0.1,
			Usage:   "erosion factor, each round erodes tolerance * sqrt(area) meters",
		},
		&cli.BoolFlag{
			Name:  "fine",
			Usage: "keep more vertices between rounds",
		},
		&cli.BoolFlag{
			Name:  "planar",
			Usage: "treat coordinates as meters instead of lon/lat",
		},
		&cli.IntFlag{
			Name:        "threads",
			DefaultText: "max",
		},
		&cli.BoolFlag{
			Name:  "progress",
			Value: true,
		},
		&cli.StringFlag{
			Name:      "stats",
			TakesFile: true,
			Usage:     "write a run report to this file",
		},
		&cli.StringFlag{
			Name:  "otel-endpoint",
			Usage: "otlp/http endpoint for metrics, traces and logs",
		},
		&cli.StringFlag{
			Name:        "pprof.listen",
			DefaultText: "",
		},
		&cli.BoolFlag{
			Name:        "pprof.profile",
			DefaultText: "",
		},
		&cli.BoolFlag{
			Name:        "pprof.heap",
			DefaultText: "",
		},
	}
}

func setupLogging(ctx *cli.Context) error {
	level, err := telemetry.ParseLevel(ctx.String("log-level"))
	if err != nil {
		return err
	}
	telemetry.SetLevel(level)
	telemetry.SetupLogging(nil)
	return nil
}
