// Package app runs obfuscation passes: it wires configuration, the model
// codec and the run store around the engine stages.
package app

import (
	"log/slog"
	"sync"
	"time"

	"mangle/internal/core/config"
	"mangle/internal/core/ports"
	"mangle/internal/data/modelio"
	"mangle/internal/engine/model"
	"mangle/internal/shared/observability"
)

type App struct {
	Config *config.Config
	codec  ports.ModelCodec
	store  ports.RunStore
	now    func() time.Time

	mu      sync.Mutex
	lastRun string
	lastErr error
	lastAt  time.Time
}

type Option func(*App)

// WithStore records every completed file run when history is enabled.
func WithStore(store ports.RunStore) Option {
	return func(a *App) { a.store = store }
}

func WithCodec(codec ports.ModelCodec) Option {
	return func(a *App) { a.codec = codec }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func New(cfg *config.Config, opts ...Option) *App {
	a := &App{
		Config: cfg,
		codec:  jsonCodec{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Health reports the outcome of the most recent run for the watch-mode
// health endpoint.
func (a *App) Health() observability.HealthStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	status := observability.HealthStatus{Status: "up", LastRun: a.lastRun, Updated: a.lastAt}
	if a.lastErr != nil {
		status.Status = "failing"
	}
	return status
}

func (a *App) record(runID string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastRun, a.lastErr, a.lastAt = runID, err, a.now()
	if err != nil {
		slog.Debug("run recorded as failed", "run", runID, "error", err)
	}
}

type jsonCodec struct{}

func (jsonCodec) ReadFile(path string) (*model.Archive, error) { return modelio.ReadFile(path) }

func (jsonCodec) WriteFile(path string, archive *model.Archive) error {
	return modelio.WriteFile(path, archive)
}
