package app

import (
	"context"
	"log/slog"
	"time"

	"mangle/internal/core/config"
	"mangle/internal/shared/observability"

	"golang.org/x/time/rate"
)

type WatchOptions struct {
	// Paths are the files whose changes trigger a run, normally the config
	// file and the input model.
	Paths    []string
	Debounce time.Duration
	// MinInterval is the least time between two runs; zero disables the limit.
	MinInterval time.Duration
	// Reload, when set, rebuilds the configuration before each run.
	Reload func() (*config.Config, error)
}

// Watch runs a pass immediately and again after every debounced change until
// ctx is cancelled. Runs never overlap: change events only queue the next run.
func (a *App) Watch(ctx context.Context, opts WatchOptions, report func(Result, error)) error {
	pending := make(chan string, 1)
	w := config.NewWatcher(opts.Debounce, func(changed string) {
		select {
		case pending <- changed:
		default:
		}
	}, opts.Paths...)
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}

	limiter.Allow()
	report(a.RunFiles(ctx))
	for {
		select {
		case <-ctx.Done():
			return nil
		case changed := <-pending:
			observability.WatcherEventsTotal.Inc()
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			slog.Info("re-running after change", "path", changed)
			if opts.Reload != nil {
				cfg, err := opts.Reload()
				if err != nil {
					a.record("", err)
					report(Result{}, err)
					continue
				}
				a.Config = cfg
			}
			report(a.RunFiles(ctx))
		}
	}
}
