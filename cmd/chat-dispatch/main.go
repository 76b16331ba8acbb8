package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"chat_dispatch/internal/config"
	"chat_dispatch/internal/dispatch"
	"chat_dispatch/internal/metrics"
	"chat_dispatch/internal/pipeline"
	"chat_dispatch/internal/store"
)

// Exit codes per the batch contract: 0 also covers a day with no data.
const (
	exitOK             = 0
	exitConfig         = 1
	exitDispatchFailed = 2
)

func main() {
	daemonMode := flag.Bool("daemon", false, "stay resident: run before each local midnight, watch the trigger dir, serve the ops API")
	flag.Parse()

	cfg, cfgErr := config.Load()
	logger := newLogger(cfg)
	if cfgErr != nil {
		logger.Error().Err(cfgErr).Msg("configuration error")
		os.Exit(exitConfig)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("configuration error")
		os.Exit(exitConfig)
	}

	stats := metrics.New()
	client := dispatch.NewClient(cfg.AnalysisURL, cfg.APIKey, cfg.HTTPTimeout())
	open := func() (pipeline.Source, error) { return store.Open(cfg.DBPath) }
	runner, err := pipeline.NewRunner(cfg, open, client, logger, stats)
	if err != nil {
		logger.Error().Err(err).Msg("configuration error")
		os.Exit(exitConfig)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if *daemonMode {
		d := newDaemon(cfg, runner, stats, logger)
		if err := d.run(ctx); err != nil {
			logger.Error().Err(err).Msg("daemon failed")
			os.Exit(exitConfig)
		}
		return
	}

	summary, err := runner.Run(ctx, time.Now())
	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		os.Exit(exitConfig)
	}
	if summary.Failed > 0 {
		for _, res := range summary.Results {
			if !res.OK {
				logger.Error().Str("conv_id", res.ConvID).Str("error", res.Error).Msg("conversation failed")
			}
		}
		logger.Error().Int("failed", summary.Failed).Int("selected", summary.Selected).Msg("dispatch incomplete")
		os.Exit(exitDispatchFailed)
	}
	os.Exit(exitOK)
}

func newLogger(cfg config.Config) zerolog.Logger {
	if cfg.Environment == "development" || cfg.Environment == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
