// Package config loads the harness YAML configuration.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/wast-harness/engine"
	"github.com/wippyai/wast-harness/runner"
)

// Config is the harness configuration, loadable from a YAML file. Zero
// values defer to Default.
type Config struct {
	// Matcher names the failure-message policy: substring, exact or prefix.
	Matcher string `yaml:"matcher"`

	// MemoryLimitPages caps every module instance's linear memory, in
	// 64KiB pages. 0 leaves the engine default in place.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`

	// Interpreter forces the interpreter even on platforms with a
	// compiler backend, trading speed for determinism.
	Interpreter bool `yaml:"interpreter"`

	// StopOnError aborts a run at the first harness error. Assertion
	// failures never abort.
	StopOnError bool `yaml:"stop_on_error"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

func Default() Config {
	return Config{Matcher: "substring"}
}

// Load reads a YAML config file. Unknown keys are rejected so typos fail
// loudly instead of silently falling back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if _, err := runner.MatcherFor(cfg.Matcher); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// RunnerOptions translates the config into runner options.
func (c Config) RunnerOptions() (runner.Options, error) {
	match, err := runner.MatcherFor(c.Matcher)
	if err != nil {
		return runner.Options{}, err
	}
	return runner.Options{
		Engine: &engine.Config{
			MemoryLimitPages: c.MemoryLimitPages,
			ForceInterpreter: c.Interpreter,
		},
		Matcher:     match,
		StopOnError: c.StopOnError,
	}, nil
}
