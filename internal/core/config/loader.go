package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mangle/internal/core/errors"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads path on top of Default, then applies .env files and MANGLE_*
// overrides. An empty path yields the defaults. Required settings are checked
// by Validate once command-line flags are merged.
func Load(path string) (*Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfig, "read config"), errors.CtxPath, path)
		}
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfig, "decode config"), errors.CtxPath, path)
		}
	}

	loadDotEnv(path)
	ApplyEnvOverrides(cfg)
	applyDefaults(cfg)
	normalize(cfg)

	if err := joinErrors(validateSections(cfg)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads .env next to the config file and in the working directory.
// Variables already set in the environment win.
func loadDotEnv(configPath string) {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(configPath), ".env")}, candidates...)
	}
	seen := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			slog.Warn("failed to load env file", "path", abs, "error", err)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Renamer.Names.Strategy) == "" {
		cfg.Renamer.Names.Strategy = "random"
	}
	if cfg.Renamer.Names.MinLength <= 0 {
		cfg.Renamer.Names.MinLength = 1
	}
	if cfg.Renamer.Names.MaxLength == 0 {
		cfg.Renamer.Names.MaxLength = cfg.Renamer.Names.MinLength
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "mangle-history.db"
	}
	if cfg.History.BusyTimeout <= 0 {
		cfg.History.BusyTimeout = defaultBusyTimeout
	}
	if strings.TrimSpace(cfg.Telemetry.ServiceName) == "" {
		cfg.Telemetry.ServiceName = "mangle"
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = defaultDebounce
	}
}

func normalize(cfg *Config) {
	cfg.Input = strings.TrimSpace(cfg.Input)
	cfg.Output = strings.TrimSpace(cfg.Output)
	cfg.Renamer.Names.Strategy = strings.ToLower(strings.TrimSpace(cfg.Renamer.Names.Strategy))
	cfg.Shuffler.Targets = trimAll(cfg.Shuffler.Targets)
	cfg.Shuffler.TrustedLibraries = trimAll(cfg.Shuffler.TrustedLibraries)
	cfg.Exclusion.ReservedPrefixes = trimAll(cfg.Exclusion.ReservedPrefixes)
	cfg.History.Path = strings.TrimSpace(cfg.History.Path)
	cfg.Telemetry.OTLPEndpoint = strings.TrimSpace(cfg.Telemetry.OTLPEndpoint)
	cfg.Telemetry.MetricsFile = strings.TrimSpace(cfg.Telemetry.MetricsFile)
}

// trimAll drops blank entries. Exclusion patterns are left alone so that
// malformed entries reach validation.
func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
