package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wast-harness/script"
)

func runScript(t *testing.T, source string) []Verdict {
	t.Helper()
	ctx := context.Background()
	r, err := New(ctx, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(ctx) })

	seq, err := r.Run(ctx, source)
	require.NoError(t, err)

	var verdicts []Verdict
	for _, v := range seq {
		verdicts = append(verdicts, v)
	}
	return verdicts
}

func requireOutcomes(t *testing.T, verdicts []Verdict, want ...Outcome) {
	t.Helper()
	require.Len(t, verdicts, len(want))
	for i, o := range want {
		require.Equalf(t, o, verdicts[i].Outcome,
			"command %d: %s", i, verdicts[i].Detail)
	}
}

func TestRunAddScript(t *testing.T) {
	verdicts := runScript(t, `
(module
  (func (export "add") (param i32 i32) (result i32)
    local.get 0
    local.get 1
    i32.add))
(assert_return (invoke "add" (i32.const 2) (i32.const 2)) (i32.const 4))
(assert_return (invoke "add" (i32.const 2) (i32.const 2)) (i32.const 5))`)

	requireOutcomes(t, verdicts, Passed, Passed, Failed)
	require.Contains(t, verdicts[2].Detail, "result 0")
}

func TestRunAssertTrap(t *testing.T) {
	verdicts := runScript(t, `
(module
  (func (export "div") (param i32 i32) (result i32)
    local.get 0
    local.get 1
    i32.div_s))
(assert_trap (invoke "div" (i32.const 1) (i32.const 0)) "integer divide by zero")
(assert_trap (invoke "div" (i32.const 6) (i32.const 3)) "integer divide by zero")`)

	requireOutcomes(t, verdicts, Passed, Passed, Failed)
}

func TestRunAssertReturnReportsOutcome(t *testing.T) {
	verdicts := runScript(t, `
(module
  (func $spin (export "spin") (result i32) (call $spin))
  (func (export "crash") (result i32) unreachable))
(assert_return (invoke "spin") (i32.const 0))
(assert_return (invoke "crash") (i32.const 0))`)

	requireOutcomes(t, verdicts, Passed, Failed, Failed)
	require.Contains(t, verdicts[1].Detail, "exhaustion")
	require.Contains(t, verdicts[2].Detail, "trap")
}

func TestRunCompileAssertions(t *testing.T) {
	verdicts := runScript(t, `
(assert_malformed (module binary "\00asm") "unexpected end")
(assert_malformed (module quote "(func") "unexpected")
(assert_invalid (module (func (result i32))) "type mismatch")`)

	requireOutcomes(t, verdicts, Passed, Passed, Passed)
}

func TestRunNaNAssertions(t *testing.T) {
	verdicts := runScript(t, `
(module
  (func (export "canon") (result f32) (f32.const nan))
  (func (export "arith") (result f32) (f32.const nan:0x600000))
  (func (export "one") (result f32) (f32.const 1)))
(assert_return (invoke "canon") (f32.const nan:canonical))
(assert_return (invoke "canon") (f32.const nan:arithmetic))
(assert_return (invoke "arith") (f32.const nan:canonical))
(assert_return (invoke "arith") (f32.const nan:arithmetic))
(assert_return (invoke "one") (f32.const nan:arithmetic))
(assert_return (invoke "one") (f32.const 1))`)

	requireOutcomes(t, verdicts,
		Passed, // module
		Passed, // canonical NaN is canonical
		Passed, // and arithmetic
		Failed, // payload NaN is not canonical
		Passed, // but is arithmetic
		Failed, // 1.0 is no NaN at all
		Passed)
}

func TestRunNegativeZeroDistinct(t *testing.T) {
	verdicts := runScript(t, `
(module (func (export "negz") (result f64) (f64.const -0x0p+0)))
(assert_return (invoke "negz") (f64.const -0x0p+0))
(assert_return (invoke "negz") (f64.const 0x0p+0))`)

	requireOutcomes(t, verdicts, Passed, Passed, Failed)
}

func TestRunRegisterAndImport(t *testing.T) {
	verdicts := runScript(t, `
(module $lib
  (func (export "inc") (param i32) (result i32)
    local.get 0
    i32.const 1
    i32.add))
(register "lib" $lib)
(module
  (import "lib" "inc" (func $inc (param i32) (result i32)))
  (func (export "inc2") (param i32) (result i32)
    local.get 0
    call $inc
    call $inc))
(assert_return (invoke "inc2" (i32.const 1)) (i32.const 3))
(assert_return (invoke $lib "inc" (i32.const 1)) (i32.const 2))`)

	requireOutcomes(t, verdicts, Passed, Passed, Passed, Passed, Passed)
}

func TestRunRegisterPreservesState(t *testing.T) {
	verdicts := runScript(t, `
(module $m
  (global $n (mut i32) (i32.const 0))
  (func (export "bump") (result i32)
    global.get $n
    i32.const 1
    i32.add
    global.set $n
    global.get $n))
(assert_return (invoke "bump") (i32.const 1))
(register "m" $m)
(assert_return (invoke "bump") (i32.const 2))
(assert_return (invoke $m "bump") (i32.const 3))`)

	requireOutcomes(t, verdicts, Passed, Passed, Passed, Passed, Passed)
}

func TestRunCurrentModuleIsNewest(t *testing.T) {
	verdicts := runScript(t, `
(module $a (func (export "which") (result i32) (i32.const 1)))
(module (func (export "which") (result i32) (i32.const 2)))
(assert_return (invoke "which") (i32.const 2))
(assert_return (invoke $a "which") (i32.const 1))`)

	requireOutcomes(t, verdicts, Passed, Passed, Passed, Passed)
}

func TestRunIndirectCalls(t *testing.T) {
	verdicts := runScript(t, `
(module
  (table 3 funcref)
  (elem (i32.const 0) $f0 $f1 $f2)
  (func $f0 (result i32) (i32.const 10))
  (func $f1 (result i32) (i32.const 11))
  (func $f2 (result i32) (i32.const 12))
  (func (export "dispatch") (param i32) (result i32)
    (call_indirect (result i32) (local.get 0))))
(assert_return (invoke "dispatch" (i32.const 0)) (i32.const 10))
(assert_return (invoke "dispatch" (i32.const 2)) (i32.const 12))
(assert_trap (invoke "dispatch" (i32.const 9)) "")`)

	requireOutcomes(t, verdicts, Passed, Passed, Passed, Passed)
}

func TestRunBrTable(t *testing.T) {
	verdicts := runScript(t, `
(module
  (func (export "classify") (param i32) (result i32)
    (block $big
      (block $two
        (block $one
          (block $zero
            (local.get 0)
            (br_table $zero $one $two $big))
          (return (i32.const 100)))
        (return (i32.const 101)))
      (return (i32.const 102)))
    (i32.const 103)))
(assert_return (invoke "classify" (i32.const 0)) (i32.const 100))
(assert_return (invoke "classify" (i32.const 1)) (i32.const 101))
(assert_return (invoke "classify" (i32.const 2)) (i32.const 102))
(assert_return (invoke "classify" (i32.const 50)) (i32.const 103))`)

	requireOutcomes(t, verdicts, Passed, Passed, Passed, Passed, Passed)
}

func TestRunGetGlobal(t *testing.T) {
	verdicts := runScript(t, `
(module (global (export "answer") i64 (i64.const 42)))
(assert_return (get "answer") (i64.const 42))
(assert_return (get "answer") (i64.const 41))`)

	requireOutcomes(t, verdicts, Passed, Passed, Failed)
}

func TestRunSpectestImports(t *testing.T) {
	verdicts := runScript(t, `
(module
  (import "spectest" "print_i32" (func $p (param i32)))
  (import "spectest" "global_i32" (global $g i32))
  (func (export "peek") (result i32)
    (call $p (i32.const 7))
    global.get $g))
(assert_return (invoke "peek") (i32.const 666))`)

	requireOutcomes(t, verdicts, Passed, Passed)
}

func TestRunStopOnError(t *testing.T) {
	ctx := context.Background()
	r, err := New(ctx, Options{StopOnError: true})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(ctx) })

	seq, err := r.Run(ctx, `
(assert_return (invoke $missing "f") (i32.const 0))
(module (func (export "f") (result i32) (i32.const 0)))`)
	require.NoError(t, err)

	var verdicts []Verdict
	for _, v := range seq {
		verdicts = append(verdicts, v)
	}
	requireOutcomes(t, verdicts, Errored)
}

func TestRunEarlyBreak(t *testing.T) {
	ctx := context.Background()
	r, err := New(ctx, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(ctx) })

	seq, err := r.Run(ctx, `
(module)
(module)
(module)`)
	require.NoError(t, err)

	seen := 0
	for range seq {
		seen++
		if seen == 2 {
			break
		}
	}
	require.Equal(t, 2, seen)
}

func TestRunParseErrorUpFront(t *testing.T) {
	ctx := context.Background()
	r, err := New(ctx, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(ctx) })

	_, err = r.Run(ctx, `(frobnicate)`)
	require.Error(t, err)
}

func TestSummary(t *testing.T) {
	var s Summary
	s.Add(Verdict{Outcome: Passed})
	s.Add(Verdict{Outcome: Passed})
	s.Add(Verdict{Outcome: Failed})
	s.Add(Verdict{Outcome: Errored})

	require.Equal(t, 4, s.Total())
	require.False(t, s.Clean())

	s = Summary{Passed: 3}
	require.True(t, s.Clean())
}

func TestEvaluatorVerdictPerCommand(t *testing.T) {
	ctx := context.Background()
	r, err := New(ctx, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(ctx) })

	cmds, err := script.Parse(`
(module (func (export "id") (param i32) (result i32) local.get 0))
(assert_return (invoke "id" (i32.const 9)) (i32.const 9))`)
	require.NoError(t, err)
	require.Len(t, cmds, 2)

	for _, cmd := range cmds {
		v := r.ev.Evaluate(ctx, cmd)
		require.True(t, v.Ok(), v.Detail)
	}
	// Re-running the assertion against the same state gives the same verdict.
	v := r.ev.Evaluate(ctx, cmds[1])
	require.True(t, v.Ok(), v.Detail)
}
