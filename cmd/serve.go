package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/royalcat/polyreduce/server"
	"github.com/urfave/cli/v3"
)

func serve(ctx *cli.Context) error {
	cfg := server.ConfigDefault()
	cfg.Address = ctx.String("listen")
	cfg.CacheSize = ctx.Int("cache-size")
	cfg.Reduce.Tolerance = ctx.Float64("tolerance")
	cfg.Reduce.Fine = ctx.Bool("fine")
	cfg.Threads = ctx.Int("threads")

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(runCtx, cfg)
}
