package wastharness

import (
	"context"

	"github.com/wippyai/wast-harness/runner"
	"github.com/wippyai/wast-harness/script"
)

// CommandResult pairs a script command with its verdict.
type CommandResult struct {
	Command script.Command
	Verdict runner.Verdict
}

// RunScript parses and executes a whole script in a fresh environment,
// returning the per-command results and their summary. A non-nil error
// means the run could not start or finish, not that an assertion failed;
// assertion outcomes live in the results.
func RunScript(ctx context.Context, source string, opts runner.Options) ([]CommandResult, runner.Summary, error) {
	r, err := runner.New(ctx, opts)
	if err != nil {
		return nil, runner.Summary{}, err
	}
	defer r.Close(ctx)

	seq, err := r.Run(ctx, source)
	if err != nil {
		return nil, runner.Summary{}, err
	}

	var (
		results []CommandResult
		summary runner.Summary
	)
	for cmd, v := range seq {
		results = append(results, CommandResult{Command: cmd, Verdict: v})
		summary.Add(v)
	}
	return results, summary, nil
}
