package watch

import (
	"context"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"chat_dispatch/internal/config"
)

// Watcher monitors the trigger directory and requests an immediate pipeline
// run when a trigger file is dropped there (ops convenience: `touch
// runtime/trigger/run` forces an export outside the midnight schedule).
type Watcher struct {
	cfg     config.Config
	trigger func()
	log     zerolog.Logger
}

func New(cfg config.Config, trigger func(), log zerolog.Logger) *Watcher {
	return &Watcher{cfg: cfg, trigger: trigger, log: log}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.EnableWatcher {
		w.log.Info().Msg("trigger watcher disabled")
		return nil
	}
	if err := os.MkdirAll(w.cfg.TriggerDir, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
					w.log.Info().Str("file", evt.Name).Msg("trigger file detected")
					_ = os.Remove(evt.Name)
					w.trigger()
				}
			case err := <-watcher.Errors:
				w.log.Error().Err(err).Msg("watcher error")
			}
		}
	}()
	return watcher.Add(w.cfg.TriggerDir)
}
