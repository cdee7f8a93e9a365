package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mangle/internal/core/app"
	"mangle/internal/core/config"
	"mangle/internal/data/history"
	"mangle/internal/shared/observability"
	"mangle/internal/ui/report"

	"github.com/spf13/cobra"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		flags       runFlags
		watch       bool
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Obfuscate the input model and write the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.changed = cmd.Flags().Changed
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(root.configPath, flags)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), report.Failure(err))
				return err
			}

			shutdown, err := observability.SetupTracing(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
			if err != nil {
				slog.Warn("tracing disabled", "error", err)
			} else {
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = shutdown(sctx)
				}()
			}

			var opts []app.Option
			if cfg.History.Enabled {
				store, err := history.Open(cfg.History.Path, cfg.History.BusyTimeout)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), report.Failure(err))
					return err
				}
				defer store.Close()
				opts = append(opts, app.WithStore(store))
			}
			a := app.New(cfg, opts...)

			printResult := func(res app.Result, err error) {
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), report.Failure(err))
					return
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.Summary(res))
			}

			if !watch {
				res, err := a.RunFiles(ctx)
				printResult(res, err)
				return err
			}

			if metricsAddr != "" {
				server := observability.NewServer(metricsAddr, a.Health)
				if err := server.Start(); err != nil {
					return err
				}
				defer server.Stop(context.Background())
			}
			return a.Watch(ctx, app.WatchOptions{
				Paths:       watchPaths(root.configPath, cfg),
				Debounce:    cfg.Watch.Debounce,
				MinInterval: cfg.Watch.MinInterval,
				Reload: func() (*config.Config, error) {
					return loadConfig(root.configPath, flags)
				},
			}, printResult)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.input, "input", "i", "", "Input model (JSON)")
	f.StringVarP(&flags.output, "output", "o", "", "Output model (JSON)")
	f.Uint64Var(&flags.seed, "seed", 0, "Random seed; 0 derives one from the clock")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after each run")
	f.BoolVar(&flags.history, "history", false, "Record the run and its mapping in the history database")
	f.BoolVarP(&watch, "watch", "w", false, "Re-run whenever the config or input changes")
	f.StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address in watch mode")
	return cmd
}
