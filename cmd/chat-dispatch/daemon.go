package main

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"chat_dispatch/internal/config"
	"chat_dispatch/internal/metrics"
	"chat_dispatch/internal/opsapi"
	"chat_dispatch/internal/pipeline"
	"chat_dispatch/internal/schedule"
	"chat_dispatch/internal/watch"
)

// How long before local midnight the scheduled daily run fires, so the
// export still covers the day it summarizes.
const runLead = 5 * time.Minute

// daemon keeps the pipeline resident: scheduled daily runs, trigger-file
// runs, and the ops API. At most one run executes at a time.
type daemon struct {
	cfg    config.Config
	runner *pipeline.Runner
	stats  *metrics.Metrics
	log    zerolog.Logger

	running atomic.Bool
	kick    chan struct{}

	mu      sync.Mutex
	last    pipeline.Summary
	hasLast bool
}

func newDaemon(cfg config.Config, runner *pipeline.Runner, stats *metrics.Metrics, log zerolog.Logger) *daemon {
	return &daemon{
		cfg:    cfg,
		runner: runner,
		stats:  stats,
		log:    log,
		kick:   make(chan struct{}, 1),
	}
}

func (d *daemon) run(ctx context.Context) error {
	loc, err := d.cfg.Location()
	if err != nil {
		return err
	}

	watcher := watch.New(d.cfg, func() { d.TriggerRun() }, d.log)
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	go schedule.Loop(ctx, loc, runLead, func(now time.Time) { d.execute(ctx, now) })
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.kick:
				d.execute(ctx, time.Now())
			}
		}
	}()

	srv := &http.Server{Addr: d.cfg.OpsPort, Handler: opsapi.NewRouter(d, d.stats).Handler()}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	d.log.Info().Str("addr", d.cfg.OpsPort).Msg("ops api listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (d *daemon) execute(ctx context.Context, now time.Time) {
	if !d.running.CompareAndSwap(false, true) {
		d.log.Warn().Msg("run already in progress, trigger dropped")
		return
	}
	defer d.running.Store(false)

	summary, err := d.runner.Run(ctx, now)
	if err != nil {
		d.log.Error().Err(err).Msg("run failed")
		return
	}
	d.mu.Lock()
	d.last, d.hasLast = summary, true
	d.mu.Unlock()
}

// LastSummary implements opsapi.RunControl.
func (d *daemon) LastSummary() (pipeline.Summary, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.hasLast
}

// TriggerRun implements opsapi.RunControl.
func (d *daemon) TriggerRun() bool {
	if d.running.Load() {
		return false
	}
	select {
	case d.kick <- struct{}{}:
	default:
	}
	return true
}
