package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mangle/internal/core/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mangle.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
input = "in.json"
output = "out.json"
seed = 42

[exclusion]
patterns = ["app/Secret", "app/Main.main.([Ljava/lang/String;)V"]

[renamer]
classes = false

[renamer.names]
strategy = "alphabetic"

[shuffler]
cross_class_fields = true
targets = ["app/**"]

[watch]
debounce = "1s"
min_interval = "2s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Input != "in.json" || cfg.Output != "out.json" {
		t.Errorf("unexpected paths: %q %q", cfg.Input, cfg.Output)
	}
	if cfg.Seed != 42 {
		t.Errorf("expected seed 42, got %d", cfg.Seed)
	}
	if len(cfg.Exclusion.Patterns) != 2 {
		t.Errorf("expected 2 exclusion patterns, got %d", len(cfg.Exclusion.Patterns))
	}
	if cfg.Renamer.Classes {
		t.Error("expected class renaming disabled")
	}
	if !cfg.Renamer.Fields || !cfg.Renamer.Methods {
		t.Error("expected member renaming to keep its default")
	}
	if cfg.Renamer.Names.Strategy != "alphabetic" {
		t.Errorf("unexpected strategy %q", cfg.Renamer.Names.Strategy)
	}
	if !cfg.Shuffler.CrossClassFields || cfg.Shuffler.CrossClassMethods {
		t.Error("unexpected cross-class flags")
	}
	if !cfg.Shuffler.Fields {
		t.Error("expected intra-class field shuffling by default")
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected 1s debounce, got %v", cfg.Watch.Debounce)
	}
	if cfg.Watch.MinInterval != 2*time.Second {
		t.Errorf("expected 2s min interval, got %v", cfg.Watch.MinInterval)
	}
	if len(cfg.Exclusion.ReservedPrefixes) != 1 || cfg.Exclusion.ReservedPrefixes[0] != "kotlin/" {
		t.Errorf("unexpected reserved prefixes %v", cfg.Exclusion.ReservedPrefixes)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Renamer.Names.MinLength != 4 || cfg.Renamer.Names.MaxLength != 8 {
		t.Errorf("unexpected name lengths %d..%d", cfg.Renamer.Names.MinLength, cfg.Renamer.Names.MaxLength)
	}
	if err := Validate(cfg); err == nil {
		t.Error("expected missing input/output to fail validation")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "input = ")
	_, err := Load(path)
	if !errors.IsCode(err, errors.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if !errors.IsCode(err, errors.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoad_RejectsMalformedExclusion(t *testing.T) {
	path := writeConfig(t, `
[exclusion]
patterns = ["app/A."]
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "exclusion.patterns[0]") {
		t.Fatalf("expected exclusion error, got %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MANGLE_INPUT", "env-in.json")
	t.Setenv("MANGLE_SEED", "7")
	t.Setenv("MANGLE_RENAMER_METHODS", "false")
	t.Setenv("MANGLE_EXCLUSION_PATTERNS", "app/A,app/B.x")
	t.Setenv("MANGLE_HISTORY_BUSY_TIMEOUT", "2s")
	t.Setenv("MANGLE_RENAMER_NAMES_MIN_LENGTH", "not-a-number")

	cfg := Default()
	ApplyEnvOverrides(cfg)

	if cfg.Input != "env-in.json" {
		t.Errorf("unexpected input %q", cfg.Input)
	}
	if cfg.Seed != 7 {
		t.Errorf("unexpected seed %d", cfg.Seed)
	}
	if cfg.Renamer.Methods {
		t.Error("expected methods disabled")
	}
	if len(cfg.Exclusion.Patterns) != 2 || cfg.Exclusion.Patterns[1] != "app/B.x" {
		t.Errorf("unexpected patterns %v", cfg.Exclusion.Patterns)
	}
	if cfg.History.BusyTimeout != 2*time.Second {
		t.Errorf("unexpected busy timeout %v", cfg.History.BusyTimeout)
	}
	if cfg.Renamer.Names.MinLength != 4 {
		t.Errorf("invalid override must be ignored, got %d", cfg.Renamer.Names.MinLength)
	}
}

func TestLoad_DotEnvNextToConfig(t *testing.T) {
	path := writeConfig(t, "")
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte("MANGLE_OUTPUT=from-dotenv.json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("MANGLE_OUTPUT") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Output != "from-dotenv.json" {
		t.Errorf("expected output from .env, got %q", cfg.Output)
	}
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(base, "elsewhere", "out.json")
	cfg := Default()
	cfg.Input = "models/in.json"
	cfg.Output = abs

	if err := ResolvePaths(cfg, base); err != nil {
		t.Fatal(err)
	}
	if cfg.Input != filepath.Join(base, "models", "in.json") {
		t.Errorf("unexpected input %q", cfg.Input)
	}
	if cfg.Output != abs {
		t.Errorf("absolute path must be kept, got %q", cfg.Output)
	}
	if cfg.History.Path != filepath.Join(base, "mangle-history.db") {
		t.Errorf("unexpected history path %q", cfg.History.Path)
	}
	if cfg.Telemetry.MetricsFile != "" {
		t.Errorf("empty paths stay empty, got %q", cfg.Telemetry.MetricsFile)
	}
	if err := ResolvePaths(cfg, " "); err == nil {
		t.Error("expected error for empty base")
	}
}
