package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/wippyai/wast-harness/errors"
	"github.com/wippyai/wast-harness/script"
)

func newEnv(t *testing.T) (*Environment, context.Context) {
	t.Helper()
	ctx := context.Background()
	env, err := NewEnvironment(ctx, nil)
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	t.Cleanup(func() { env.Close(ctx) })
	return env, ctx
}

func define(t *testing.T, env *Environment, ctx context.Context, name, src string) {
	t.Helper()
	if err := env.Define(ctx, name, script.ModuleSource{Text: src}); err != nil {
		t.Fatalf("Define: %v", err)
	}
}

func TestDefineAndInvoke(t *testing.T) {
	env, ctx := newEnv(t)
	define(t, env, ctx, "", `(module
  (func (export "add") (param i32 i32) (result i32)
    local.get 0
    local.get 1
    i32.add))`)

	res, err := env.Invoke(ctx, "", "add", []script.Value{script.I32(2), script.I32(2)})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res.Status != StatusOK {
		t.Fatalf("status = %v, message %q", res.Status, res.Message)
	}
	if len(res.Values) != 1 || !res.Values[0].Equal(script.I32(4)) {
		t.Errorf("result = %v", res.Values)
	}
}

func TestInvokeTrap(t *testing.T) {
	env, ctx := newEnv(t)
	define(t, env, ctx, "", `(module
  (func (export "div") (param i32 i32) (result i32)
    local.get 0
    local.get 1
    i32.div_s))`)

	res, err := env.Invoke(ctx, "", "div", []script.Value{script.I32(1), script.I32(0)})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res.Status != StatusTrap {
		t.Fatalf("status = %v, want trap", res.Status)
	}
	if !strings.Contains(res.Message, "integer divide by zero") {
		t.Errorf("trap message = %q", res.Message)
	}
}

func TestInvokeExhaustion(t *testing.T) {
	env, ctx := newEnv(t)
	define(t, env, ctx, "", `(module
  (func $spin (export "spin") call $spin))`)

	res, err := env.Invoke(ctx, "", "spin", nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res.Status != StatusExhaustion {
		t.Fatalf("status = %v, message %q", res.Status, res.Message)
	}
}

func TestGetGlobal(t *testing.T) {
	env, ctx := newEnv(t)
	define(t, env, ctx, "$m", `(module
  (global (export "answer") i64 (i64.const 42)))`)

	res, err := env.Get(ctx, "$m", "answer")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(res.Values) != 1 || !res.Values[0].Equal(script.I64(42)) {
		t.Errorf("result = %v", res.Values)
	}
}

func TestCurrentModuleTracking(t *testing.T) {
	env, ctx := newEnv(t)
	define(t, env, ctx, "$a", `(module (func (export "id") (result i32) i32.const 1))`)
	define(t, env, ctx, "", `(module (func (export "id") (result i32) i32.const 2))`)

	// empty ref means the newest definition
	res, err := env.Invoke(ctx, "", "id", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Values[0].Equal(script.I32(2)) {
		t.Errorf("current module id = %v", res.Values[0])
	}

	// the $name still reaches the older module
	res, err = env.Invoke(ctx, "$a", "id", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Values[0].Equal(script.I32(1)) {
		t.Errorf("$a id = %v", res.Values[0])
	}
}

func TestRegisterLinksImports(t *testing.T) {
	env, ctx := newEnv(t)
	define(t, env, ctx, "$lib", `(module
  (func (export "inc") (param i32) (result i32)
    local.get 0
    i32.const 1
    i32.add))`)
	if err := env.Register(ctx, "$lib", "lib"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	define(t, env, ctx, "", `(module
  (import "lib" "inc" (func $inc (param i32) (result i32)))
  (func (export "inc2") (param i32) (result i32)
    local.get 0
    call $inc
    call $inc))`)

	res, err := env.Invoke(ctx, "", "inc2", []script.Value{script.I32(5)})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Values[0].Equal(script.I32(7)) {
		t.Errorf("inc2(5) = %v", res.Values[0])
	}
}

func TestRegisterKeepsInstanceState(t *testing.T) {
	env, ctx := newEnv(t)
	define(t, env, ctx, "$m", `(module
  (global $n (mut i32) (i32.const 0))
  (func (export "bump") (result i32)
    global.get $n
    i32.const 1
    i32.add
    global.set $n
    global.get $n))`)

	res, err := env.Invoke(ctx, "", "bump", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Values[0].Equal(script.I32(1)) {
		t.Fatalf("first bump = %v", res.Values[0])
	}

	// Registering must not reset the live instance.
	if err := env.Register(ctx, "$m", "m"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	res, err = env.Invoke(ctx, "m", "bump", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Values[0].Equal(script.I32(2)) {
		t.Errorf("bump after register = %v, want 2", res.Values[0])
	}

	// All three references reach the one instance.
	res, err = env.Invoke(ctx, "$m", "bump", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Values[0].Equal(script.I32(3)) {
		t.Errorf("bump via $m = %v, want 3", res.Values[0])
	}
}

func TestSpectestModule(t *testing.T) {
	env, ctx := newEnv(t)
	define(t, env, ctx, "", `(module
  (import "spectest" "global_i32" (global i32))
  (import "spectest" "print_i32" (func $print (param i32)))
  (func (export "report") (result i32)
    global.get 0
    call $print
    global.get 0))`)

	res, err := env.Invoke(ctx, "", "report", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Values[0].Equal(script.I32(666)) {
		t.Errorf("spectest global_i32 = %v", res.Values[0])
	}
}

func TestArgumentMismatch(t *testing.T) {
	env, ctx := newEnv(t)
	define(t, env, ctx, "", `(module
  (func (export "f") (param i32) (result i32) local.get 0))`)

	if _, err := env.Invoke(ctx, "", "f", nil); !errors.IsKind(err, errors.KindArgMismatch) {
		t.Errorf("arity mismatch error = %v", err)
	}
	if _, err := env.Invoke(ctx, "", "f", []script.Value{script.I64(0)}); !errors.IsKind(err, errors.KindArgMismatch) {
		t.Errorf("kind mismatch error = %v", err)
	}
}

func TestLookupFailures(t *testing.T) {
	env, ctx := newEnv(t)
	if _, err := env.Invoke(ctx, "$ghost", "f", nil); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("unknown module error = %v", err)
	}
	define(t, env, ctx, "", `(module (func (export "f")))`)
	if _, err := env.Invoke(ctx, "", "g", nil); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("unknown export error = %v", err)
	}
}

func TestCompileClassification(t *testing.T) {
	env, ctx := newEnv(t)

	// text that does not parse
	err := env.Define(ctx, "", script.ModuleSource{Text: `(module (func`})
	if !errors.IsKind(err, errors.KindMalformed) {
		t.Errorf("unparsable text error = %v", err)
	}

	// well-formed text that fails validation
	err = env.Define(ctx, "", script.ModuleSource{Text: `(module (func (result i32)))`})
	if !errors.IsKind(err, errors.KindInvalid) {
		t.Errorf("invalid module error = %v", err)
	}

	// binary with a bad magic number
	err = env.Define(ctx, "", script.ModuleSource{Binary: []byte{0x01, 0x61, 0x73, 0x6D}})
	if !errors.IsKind(err, errors.KindMalformed) {
		t.Errorf("bad binary error = %v", err)
	}
}

func TestInstantiateClassification(t *testing.T) {
	env, ctx := newEnv(t)

	err := env.Instantiate(ctx, script.ModuleSource{Text: `(module
  (import "nowhere" "nothing" (func)))`})
	if !errors.IsKind(err, errors.KindUnlinkable) {
		t.Errorf("unresolved import error = %v", err)
	}

	err = env.Instantiate(ctx, script.ModuleSource{Text: `(module
  (func $boom unreachable)
  (start $boom))`})
	if !errors.IsKind(err, errors.KindUninstantiable) {
		t.Errorf("trapping start error = %v", err)
	}
}
