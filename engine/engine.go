package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
)

// Config holds configuration for engine creation.
type Config struct {
	// MemoryLimitPages caps memory per instance in 64KiB pages.
	// 0 means the runtime default.
	MemoryLimitPages uint32

	// ForceInterpreter selects the interpreter even on platforms where
	// the compiler backend is available.
	ForceInterpreter bool
}

// Engine owns the wazero runtime that compiles, validates, links and
// executes modules.
type Engine struct {
	runtime wazero.Runtime
}

func New(ctx context.Context) *Engine {
	return NewWithConfig(ctx, nil)
}

func NewWithConfig(ctx context.Context, cfg *Config) *Engine {
	var runtimeCfg wazero.RuntimeConfig
	if cfg != nil && cfg.ForceInterpreter {
		runtimeCfg = wazero.NewRuntimeConfigInterpreter()
	} else {
		runtimeCfg = wazero.NewRuntimeConfig()
	}
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &Engine{runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg)}
}

func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
