package engine

import (
	"context"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wast-harness/errors"
	"github.com/wippyai/wast-harness/script"
)

// Status is the outcome class of one execution.
type Status int

const (
	StatusOK Status = iota
	StatusTrap
	StatusExhaustion
)

// Result is what one invocation or global read produced. Traps and
// exhaustion are results, not errors: assertions match on them.
type Result struct {
	Values  []script.Value
	Message string
	Status  Status
}

// Invoke calls an exported function. A reference to a missing module or
// export, or an argument list that does not fit the export's signature,
// is a harness error rather than a result.
func (env *Environment) Invoke(ctx context.Context, ref, field string, args []script.Value) (Result, error) {
	entry, err := env.Lookup(ref)
	if err != nil {
		return Result{}, err
	}
	if err := env.ensure(ctx, entry); err != nil {
		return Result{}, err
	}
	fn := entry.instance.ExportedFunction(field)
	if fn == nil {
		return Result{}, errors.NotFound(errors.PhaseRun, "exported function", field)
	}

	def := fn.Definition()
	params := def.ParamTypes()
	if len(args) != len(params) {
		return Result{}, errors.ArgMismatch("%q takes %d arguments, got %d", field, len(params), len(args))
	}
	raw := make([]uint64, len(args))
	for i, arg := range args {
		if kindOf(params[i]) != arg.Kind {
			return Result{}, errors.ArgMismatch("%q argument %d is %s, got %s",
				field, i, kindOf(params[i]), arg.Kind)
		}
		raw[i] = arg.Bits
	}

	Logger().Debug("invoke", zap.String("module", entry.name), zap.String("field", field))
	stack, err := fn.Call(ctx, raw...)
	if err != nil {
		return classify(err), nil
	}

	results := def.ResultTypes()
	values := make([]script.Value, len(results))
	for i, rt := range results {
		values[i] = script.Value{Bits: stack[i], Kind: kindOf(rt)}
	}
	return Result{Values: values}, nil
}

// Get reads an exported global.
func (env *Environment) Get(ctx context.Context, ref, field string) (Result, error) {
	entry, err := env.Lookup(ref)
	if err != nil {
		return Result{}, err
	}
	if err := env.ensure(ctx, entry); err != nil {
		return Result{}, err
	}
	g := entry.instance.ExportedGlobal(field)
	if g == nil {
		return Result{}, errors.NotFound(errors.PhaseRun, "exported global", field)
	}
	v := script.Value{Bits: g.Get(), Kind: kindOf(g.Type())}
	return Result{Values: []script.Value{v}}, nil
}

func kindOf(vt api.ValueType) script.Kind {
	switch vt {
	case api.ValueTypeI32:
		return script.KindI32
	case api.ValueTypeI64:
		return script.KindI64
	case api.ValueTypeF32:
		return script.KindF32
	case api.ValueTypeF64:
		return script.KindF64
	}
	return script.KindI32
}

// classify sorts an engine call error into trap or exhaustion. The
// runtime reports call-stack exhaustion as a wasm error whose first line
// says "stack overflow"; everything else is an ordinary trap.
func classify(err error) Result {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	msg = strings.TrimPrefix(msg, "wasm error: ")
	msg = strings.TrimSuffix(msg, " (recovered by wazero)")
	if strings.Contains(msg, "stack overflow") {
		return Result{Status: StatusExhaustion, Message: msg}
	}
	return Result{Status: StatusTrap, Message: msg}
}
