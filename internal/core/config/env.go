package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: MANGLE_[SECTION]_[KEY] (e.g., MANGLE_RENAMER_CLASSES).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Input, "MANGLE_INPUT")
	setEnvString(&cfg.Output, "MANGLE_OUTPUT")
	setEnvUint64(&cfg.Seed, "MANGLE_SEED")

	// Exclusion
	setEnvList(&cfg.Exclusion.Patterns, "MANGLE_EXCLUSION_PATTERNS")

	// Renamer
	setEnvBool(&cfg.Renamer.Classes, "MANGLE_RENAMER_CLASSES")
	setEnvBool(&cfg.Renamer.Fields, "MANGLE_RENAMER_FIELDS")
	setEnvBool(&cfg.Renamer.Methods, "MANGLE_RENAMER_METHODS")
	setEnvString(&cfg.Renamer.Names.Strategy, "MANGLE_RENAMER_NAMES_STRATEGY")
	setEnvInt(&cfg.Renamer.Names.MinLength, "MANGLE_RENAMER_NAMES_MIN_LENGTH")
	setEnvInt(&cfg.Renamer.Names.MaxLength, "MANGLE_RENAMER_NAMES_MAX_LENGTH")

	// Shuffler
	setEnvBool(&cfg.Shuffler.Fields, "MANGLE_SHUFFLER_FIELDS")
	setEnvBool(&cfg.Shuffler.Methods, "MANGLE_SHUFFLER_METHODS")
	setEnvBool(&cfg.Shuffler.CrossClassFields, "MANGLE_SHUFFLER_CROSS_CLASS_FIELDS")
	setEnvBool(&cfg.Shuffler.CrossClassMethods, "MANGLE_SHUFFLER_CROSS_CLASS_METHODS")
	setEnvList(&cfg.Shuffler.Targets, "MANGLE_SHUFFLER_TARGETS")

	// History
	setEnvBool(&cfg.History.Enabled, "MANGLE_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "MANGLE_HISTORY_PATH")
	setEnvDuration(&cfg.History.BusyTimeout, "MANGLE_HISTORY_BUSY_TIMEOUT")

	// Telemetry
	setEnvString(&cfg.Telemetry.ServiceName, "MANGLE_TELEMETRY_SERVICE_NAME")
	setEnvString(&cfg.Telemetry.OTLPEndpoint, "MANGLE_TELEMETRY_OTLP_ENDPOINT")
	setEnvString(&cfg.Telemetry.MetricsFile, "MANGLE_TELEMETRY_METRICS_FILE")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "MANGLE_WATCH_DEBOUNCE")
	setEnvDuration(&cfg.Watch.MinInterval, "MANGLE_WATCH_MIN_INTERVAL")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

// setEnvList splits a comma-separated value.
func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = strings.Split(val, ",")
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvUint64(target *uint64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if u, err := strconv.ParseUint(val, 10, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = u
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
