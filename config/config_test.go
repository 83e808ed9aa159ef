package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harness.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
matcher: exact
memory_limit_pages: 16
interpreter: true
stop_on_error: true
verbose: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Matcher != "exact" {
		t.Errorf("Matcher = %q", cfg.Matcher)
	}
	if cfg.MemoryLimitPages != 16 {
		t.Errorf("MemoryLimitPages = %d", cfg.MemoryLimitPages)
	}
	if !cfg.Interpreter || !cfg.StopOnError || !cfg.Verbose {
		t.Errorf("flags not set: %+v", cfg)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := writeFile(t, "interpreter: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Matcher != "substring" {
		t.Errorf("Matcher = %q, want substring default", cfg.Matcher)
	}
	if !cfg.Interpreter {
		t.Error("Interpreter not set")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "matchre: exact\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for misspelled key")
	}
}

func TestLoadRejectsUnknownMatcher(t *testing.T) {
	path := writeFile(t, "matcher: fuzzy\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown matcher")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRunnerOptions(t *testing.T) {
	cfg := Config{Matcher: "prefix", MemoryLimitPages: 4, Interpreter: true, StopOnError: true}
	opts, err := cfg.RunnerOptions()
	if err != nil {
		t.Fatalf("RunnerOptions: %v", err)
	}
	if opts.Engine.MemoryLimitPages != 4 || !opts.Engine.ForceInterpreter {
		t.Errorf("engine config = %+v", opts.Engine)
	}
	if !opts.StopOnError {
		t.Error("StopOnError not carried")
	}
	if opts.Matcher == nil || !opts.Matcher("int", "integer") {
		t.Error("prefix matcher not wired")
	}
}
