package app

import (
	"context"
	"log/slog"

	"mangle/internal/core/errors"
	"mangle/internal/data/history"
	"mangle/internal/shared/observability"
)

// RunFiles reads the configured input, obfuscates it and writes the output.
// The output is only written once every stage has succeeded.
func (a *App) RunFiles(ctx context.Context) (Result, error) {
	cfg := a.Config
	archive, err := a.codec.ReadFile(cfg.Input)
	if err != nil {
		a.record("", err)
		return Result{}, err
	}

	res, err := a.Obfuscate(ctx, archive)
	if err != nil {
		a.record(res.RunID, err)
		return Result{}, err
	}
	res.Input, res.Output = cfg.Input, cfg.Output

	if err := a.codec.WriteFile(cfg.Output, archive); err != nil {
		a.record(res.RunID, err)
		return Result{}, err
	}

	if a.store != nil && cfg.History.Enabled {
		if err := a.store.SaveRun(res.HistoryRun()); err != nil {
			slog.Warn("failed to record run history", "run", res.RunID, "error", err)
		}
	}
	if cfg.Telemetry.MetricsFile != "" {
		if err := observability.WriteMetricsFile(cfg.Telemetry.MetricsFile); err != nil {
			slog.Warn("failed to write metrics file", "path", cfg.Telemetry.MetricsFile, "error", err)
		}
	}

	a.record(res.RunID, nil)
	return res, nil
}

// Mappings returns the stored run id, or the latest run when id is empty.
func (a *App) Mappings(id string) (Result, error) {
	if a.store == nil {
		return Result{}, errors.New(errors.CodeConfig, "run history is not available")
	}
	var (
		run history.Run
		err error
	)
	if id == "" {
		run, err = a.store.LatestRun()
	} else {
		run, err = a.store.LoadRun(id)
	}
	if err != nil {
		return Result{}, err
	}
	return fromHistory(run), nil
}

// Runs lists stored run headers, newest first.
func (a *App) Runs(limit int) ([]history.Run, error) {
	if a.store == nil {
		return nil, errors.New(errors.CodeConfig, "run history is not available")
	}
	return a.store.ListRuns(limit)
}
