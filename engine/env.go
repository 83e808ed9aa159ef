package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wast-harness/errors"
	"github.com/wippyai/wast-harness/script"
	"github.com/wippyai/wast-harness/wat"
)

// Environment tracks the modules a script has instantiated: a map of
// $name bindings plus the current-module slot, which every unnamed
// definition replaces.
type Environment struct {
	eng     *Engine
	byName  map[string]*moduleEntry
	current *moduleEntry
	anonSeq int
}

type moduleEntry struct {
	compiled wazero.CompiledModule
	instance api.Module // nil until first use; see ensure
	name     string
}

// NewEnvironment creates an environment with its own runtime and the
// spectest module pre-registered, as the reference suite expects.
func NewEnvironment(ctx context.Context, cfg *Config) (*Environment, error) {
	env := &Environment{
		eng:    NewWithConfig(ctx, cfg),
		byName: make(map[string]*moduleEntry),
	}
	if err := env.defineSpectest(ctx); err != nil {
		env.eng.Close(ctx)
		return nil, err
	}
	return env, nil
}

func (env *Environment) Close(ctx context.Context) error {
	return env.eng.Close(ctx)
}

// Compile turns a module source into validated binary form without
// instantiating it. Text parse failures classify as malformed; engine
// rejections as invalid, except for binary sources, whose decode
// failures are malformed too.
func (env *Environment) Compile(ctx context.Context, source script.ModuleSource) (wazero.CompiledModule, error) {
	bin := source.Binary
	if !source.IsBinary() {
		var err error
		bin, err = wat.Compile(source.Text)
		if err != nil {
			return nil, errors.Malformed(err)
		}
	}
	compiled, err := env.eng.runtime.CompileModule(ctx, bin)
	if err != nil {
		if source.IsBinary() {
			return nil, errors.Malformed(err)
		}
		return nil, errors.Invalid(err)
	}
	return compiled, nil
}

// Define compiles a module, makes it current, and binds name if given.
// Instantiation is deferred until the module's import-visible name is
// settled: a register directive that follows picks the name later imports
// resolve against, and instantiating early would force a second,
// state-destroying instantiation at register time.
func (env *Environment) Define(ctx context.Context, name string, source script.ModuleSource) error {
	compiled, err := env.Compile(ctx, source)
	if err != nil {
		return err
	}
	entry := &moduleEntry{compiled: compiled, name: name}
	env.current = entry
	if name != "" {
		env.byName[name] = entry
	}
	Logger().Debug("module defined", zap.String("name", name))
	return nil
}

// ensure instantiates a defined module on first use. The instance then
// lives for the rest of the session; no command replaces it.
func (env *Environment) ensure(ctx context.Context, entry *moduleEntry) error {
	if entry.instance != nil {
		return nil
	}
	name := entry.name
	if name == "" {
		env.anonSeq++
		name = fmt.Sprintf("unnamed-%d", env.anonSeq)
	}
	instance, err := env.instantiate(ctx, entry.compiled, name)
	if err != nil {
		return err
	}
	entry.instance = instance
	entry.name = name
	return nil
}

// Instantiate compiles and instantiates without touching the environment
// state. assert_uninstantiable and assert_unlinkable go through here.
func (env *Environment) Instantiate(ctx context.Context, source script.ModuleSource) error {
	compiled, err := env.Compile(ctx, source)
	if err != nil {
		return err
	}
	env.anonSeq++
	_, err = env.instantiate(ctx, compiled, fmt.Sprintf("probe-%d", env.anonSeq))
	return err
}

func (env *Environment) instantiate(ctx context.Context, compiled wazero.CompiledModule, name string) (api.Module, error) {
	// The runtime refuses a second instance under a live name; rebinding
	// replaces the old instance.
	if old := env.eng.runtime.Module(name); old != nil {
		if err := old.Close(ctx); err != nil {
			return nil, errors.Unlinkable(err)
		}
	}
	cfg := wazero.NewModuleConfig().WithName(name).WithStartFunctions()
	instance, err := env.eng.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		// A trap raised by the start function is uninstantiable; anything
		// else at this stage is a link failure.
		if strings.Contains(err.Error(), "wasm error:") {
			return nil, errors.Uninstantiable(err)
		}
		return nil, errors.Unlinkable(err)
	}
	return instance, nil
}

// Register binds a module under the name later imports will use. A module
// not yet live instantiates under that name directly; a module an earlier
// action already forced live keeps its instance, and with it every bit of
// mutated state, with the new name aliased to it.
func (env *Environment) Register(ctx context.Context, ref, as string) error {
	entry, err := env.Lookup(ref)
	if err != nil {
		return err
	}
	if entry.instance == nil {
		instance, err := env.instantiate(ctx, entry.compiled, as)
		if err != nil {
			return err
		}
		entry.instance = instance
		entry.name = as
	}
	env.byName[as] = entry
	Logger().Debug("module registered", zap.String("as", as))
	return nil
}

// Lookup resolves a module reference: a bound name, or the current module
// when ref is empty.
func (env *Environment) Lookup(ref string) (*moduleEntry, error) {
	if ref == "" {
		if env.current == nil {
			return nil, errors.NotFound(errors.PhaseResolve, "module", "<current>")
		}
		return env.current, nil
	}
	entry, ok := env.byName[ref]
	if !ok {
		return nil, errors.NotFound(errors.PhaseResolve, "module", ref)
	}
	return entry, nil
}
