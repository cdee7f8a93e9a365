package config

import (
	"time"

	"mangle/internal/engine/exclusion"
	"mangle/internal/engine/names"
	"mangle/internal/engine/relocate"
)

const (
	defaultBusyTimeout = 5 * time.Second
	defaultDebounce    = 500 * time.Millisecond
)

type Config struct {
	Version   int       `toml:"version"`
	Input     string    `toml:"input"`
	Output    string    `toml:"output"`
	Seed      uint64    `toml:"seed"`
	Exclusion Exclusion `toml:"exclusion"`
	Renamer   Renamer   `toml:"renamer"`
	Shuffler  Shuffler  `toml:"shuffler"`
	History   History   `toml:"history"`
	Telemetry Telemetry `toml:"telemetry"`
	Watch     Watch     `toml:"watch"`
}

// Exclusion patterns are "pkg/Class", "pkg/Class.member" or
// "pkg/Class.member.descriptor".
type Exclusion struct {
	Patterns         []string `toml:"patterns"`
	ReservedPrefixes []string `toml:"reserved_prefixes"`
}

type Renamer struct {
	Classes bool        `toml:"classes"`
	Fields  bool        `toml:"fields"`
	Methods bool        `toml:"methods"`
	Names   NameOptions `toml:"names"`
}

type NameOptions struct {
	Strategy  string `toml:"strategy"`
	MinLength int    `toml:"min_length"`
	MaxLength int    `toml:"max_length"`
}

type Shuffler struct {
	Fields            bool     `toml:"fields"`
	Methods           bool     `toml:"methods"`
	CrossClassFields  bool     `toml:"cross_class_fields"`
	CrossClassMethods bool     `toml:"cross_class_methods"`
	Targets           []string `toml:"targets"`
	TrustedLibraries  []string `toml:"trusted_libraries"`
}

type History struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Telemetry struct {
	ServiceName  string `toml:"service_name"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	MetricsFile  string `toml:"metrics_file"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	// MinInterval spaces consecutive reruns; zero means no limit.
	MinInterval time.Duration `toml:"min_interval"`
}

// Default is the configuration used when no file is given; a file is decoded
// on top of it, so absent keys keep these values.
func Default() *Config {
	return &Config{
		Version: 1,
		Exclusion: Exclusion{
			ReservedPrefixes: append([]string(nil), exclusion.DefaultReservedPrefixes...),
		},
		Renamer: Renamer{
			Classes: true,
			Fields:  true,
			Methods: true,
			Names: NameOptions{
				Strategy:  string(names.StrategyRandom),
				MinLength: 4,
				MaxLength: 8,
			},
		},
		Shuffler: Shuffler{
			Fields:           true,
			Methods:          true,
			TrustedLibraries: append([]string(nil), relocate.DefaultTrustedLibraries...),
		},
		History: History{
			Path:        "mangle-history.db",
			BusyTimeout: defaultBusyTimeout,
		},
		Telemetry: Telemetry{
			ServiceName: "mangle",
		},
		Watch: Watch{
			Debounce: defaultDebounce,
		},
	}
}

// NameOptions converts the renamer settings for the name supplier.
func (n NameOptions) Supplier(lowerCase bool) names.Options {
	return names.Options{
		Strategy:  names.Strategy(n.Strategy),
		MinLength: n.MinLength,
		MaxLength: n.MaxLength,
		LowerCase: lowerCase,
	}
}
