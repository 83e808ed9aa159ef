package wastharness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wast-harness/runner"
)

func TestRunScript(t *testing.T) {
	results, summary, err := RunScript(context.Background(), `
(module
  (func (export "sq") (param i32) (result i32)
    local.get 0
    local.get 0
    i32.mul))
(assert_return (invoke "sq" (i32.const 5)) (i32.const 25))
(assert_return (invoke "sq" (i32.const 5)) (i32.const 24))
(assert_trap (invoke "missing") "")`, runner.Options{})
	require.NoError(t, err)

	require.Len(t, results, 4)
	require.Equal(t, runner.Summary{Passed: 2, Failed: 1, Errored: 1}, summary)
	require.False(t, summary.Clean())

	require.Equal(t, runner.Passed, results[1].Verdict.Outcome)
	require.Equal(t, runner.Failed, results[2].Verdict.Outcome)
	require.Equal(t, 8, results[2].Command.Pos().Line)
}

func TestRunScriptParseError(t *testing.T) {
	_, _, err := RunScript(context.Background(), `(bogus)`, runner.Options{})
	require.Error(t, err)
}
