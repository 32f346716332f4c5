// Command fmprobe connects to an MP3 or ICY stream, such as the one served by
// fmstream, and reports how it behaves.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	var (
		cfg   probeConfig
		debug bool
	)

	flag.StringVar(&cfg.URL, "url", "http://localhost:3030/stream", "Stream or playlist URL to probe.")
	flag.DurationVar(&cfg.Duration, "duration", 10*time.Second, "How long to read the stream, 0 for no limit.")
	flag.Int64Var(&cfg.MaxBytes, "bytes", 0, "Stop after this many audio bytes, 0 for no limit.")
	flag.BoolVar(&debug, "log.debug", false, "Log at debug level.")
	flag.Parse()

	level := new(slog.LevelVar)
	if debug {
		level.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := probe(ctx, cfg, logger)
	if r != nil {
		r.log(logger)
	}
	if err != nil {
		logger.Error("probe failed", "url", cfg.URL, "err", err)
		os.Exit(1)
	}
	if r.Bytes == 0 {
		logger.Error("no audio received", "url", cfg.URL)
		os.Exit(1)
	}
}
