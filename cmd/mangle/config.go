package main

import (
	"os"
	"path/filepath"

	"mangle/internal/core/config"
)

const defaultConfigPath = "mangle.toml"

// runFlags are the command-line settings that override the config file.
type runFlags struct {
	input       string
	output      string
	seed        uint64
	metricsFile string
	history     bool
	changed     func(name string) bool
}

// readConfig loads path with every file setting made absolute against the
// config directory. A missing default config file yields the defaults.
func readConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	base, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			base = filepath.Dir(abs)
		}
	}
	if err := config.ResolvePaths(cfg, base); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfig merges changed flags over the config file and validates the
// result. Flag paths are relative to the working directory.
func loadConfig(path string, flags runFlags) (*config.Config, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	changed := flags.changed
	if changed == nil {
		changed = func(string) bool { return false }
	}
	if changed("input") {
		cfg.Input = config.ResolveRelative(cwd, flags.input)
	}
	if changed("output") {
		cfg.Output = config.ResolveRelative(cwd, flags.output)
	}
	if changed("seed") {
		cfg.Seed = flags.seed
	}
	if changed("metrics-file") {
		cfg.Telemetry.MetricsFile = config.ResolveRelative(cwd, flags.metricsFile)
	}
	if changed("history") {
		cfg.History.Enabled = flags.history
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// watchPaths lists the files a watch run follows: the config file, when one
// exists, and the input model.
func watchPaths(configPath string, cfg *config.Config) []string {
	paths := []string{cfg.Input}
	if _, err := os.Stat(configPath); err == nil {
		if abs, err := filepath.Abs(configPath); err == nil {
			paths = append(paths, abs)
		}
	}
	return paths
}
