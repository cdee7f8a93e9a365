package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolvePaths makes every file setting absolute. Relative values are taken
// from base, normally the directory holding the config file.
func ResolvePaths(cfg *Config, base string) error {
	if strings.TrimSpace(base) == "" {
		return fmt.Errorf("base directory must not be empty")
	}
	for _, p := range []*string{&cfg.Input, &cfg.Output, &cfg.History.Path, &cfg.Telemetry.MetricsFile} {
		if strings.TrimSpace(*p) != "" {
			*p = ResolveRelative(base, *p)
		}
	}
	return nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
