package config

import (
	stderrors "errors"
	"fmt"
	"strings"

	"mangle/internal/core/errors"
	"mangle/internal/engine/model"
	"mangle/internal/engine/names"
	"mangle/internal/engine/relocate"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateRequired(cfg *Config) error {
	var missing []string
	if cfg.Input == "" {
		missing = append(missing, "input")
	}
	if cfg.Output == "" {
		missing = append(missing, "output")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required setting: %s", strings.Join(missing, ", "))
	}
	return nil
}

func validateExclusion(cfg *Config) error {
	for i, pattern := range cfg.Exclusion.Patterns {
		if err := ValidateExclusionPattern(pattern); err != nil {
			return fmt.Errorf("exclusion.patterns[%d]: %w", i, err)
		}
	}
	for i, prefix := range cfg.Exclusion.ReservedPrefixes {
		if strings.Contains(prefix, ".") {
			return fmt.Errorf("exclusion.reserved_prefixes[%d] %q must be an internal name prefix like \"kotlin/\"", i, prefix)
		}
	}
	return nil
}

// ValidateExclusionPattern accepts "pkg/Class", "pkg/Class.member" and
// "pkg/Class.member.descriptor".
func ValidateExclusionPattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("pattern must not be empty")
	}
	if strings.TrimSpace(pattern) != pattern || strings.ContainsAny(pattern, " \t\r\n") {
		return fmt.Errorf("pattern %q must not contain whitespace", pattern)
	}
	parts := strings.SplitN(pattern, ".", 3)
	for _, part := range parts {
		if part == "" {
			return fmt.Errorf("pattern %q has an empty segment", pattern)
		}
	}
	if strings.HasPrefix(parts[0], "/") || strings.HasSuffix(parts[0], "/") || strings.Contains(parts[0], "//") {
		return fmt.Errorf("pattern %q has a malformed class name", pattern)
	}
	if len(parts) == 3 {
		desc := parts[2]
		var err error
		if strings.HasPrefix(desc, "(") {
			_, _, err = model.ParseMethodDescriptor(desc)
		} else {
			_, err = model.ParseType(desc)
		}
		if err != nil {
			return fmt.Errorf("pattern %q has a malformed descriptor: %w", pattern, err)
		}
	}
	return nil
}

func validateRenamer(cfg *Config) error {
	n := cfg.Renamer.Names
	switch names.Strategy(n.Strategy) {
	case names.StrategyRandom, names.StrategyAlphabetic:
	default:
		return fmt.Errorf("renamer.names.strategy must be one of: random, alphabetic; got %q", n.Strategy)
	}
	if n.MinLength < 1 {
		return fmt.Errorf("renamer.names.min_length must be >= 1, got %d", n.MinLength)
	}
	if n.MaxLength < n.MinLength {
		return fmt.Errorf("renamer.names.max_length (%d) must be >= min_length (%d)", n.MaxLength, n.MinLength)
	}
	return nil
}

func validateShuffler(cfg *Config) error {
	if _, err := relocate.CompilePatterns(cfg.Shuffler.Targets); err != nil {
		return fmt.Errorf("shuffler.targets: %w", err)
	}
	if _, err := relocate.CompilePatterns(cfg.Shuffler.TrustedLibraries); err != nil {
		return fmt.Errorf("shuffler.trusted_libraries: %w", err)
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && cfg.History.Path == "" {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.MinInterval < 0 {
		return fmt.Errorf("watch.min_interval must not be negative")
	}
	return nil
}

func validatePaths(cfg *Config) error {
	if cfg.Input != "" && cfg.Input == cfg.Output {
		return fmt.Errorf("output conflict: input and output share the same path %q", cfg.Input)
	}
	return nil
}

func validateSections(cfg *Config) []error {
	var errs []error
	for _, validate := range []func(*Config) error{
		validateVersion,
		validateExclusion,
		validateRenamer,
		validateShuffler,
		validateHistory,
		validateWatch,
		validatePaths,
	} {
		if err := validate(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Validate checks the complete configuration, including the settings a run
// cannot start without. Call it after command-line flags are merged.
func Validate(cfg *Config) error {
	errs := validateSections(cfg)
	if err := validateRequired(cfg); err != nil {
		errs = append([]error{err}, errs...)
	}
	return joinErrors(errs)
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Wrap(stderrors.Join(errs...), errors.CodeConfig, "invalid configuration")
}
