package runner

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/wippyai/wast-harness/engine"
	"github.com/wippyai/wast-harness/script"
)

// Options configures a script run.
type Options struct {
	// Engine is passed through to the runtime; nil means defaults.
	Engine *engine.Config

	// Matcher checks expected failure messages; nil means substring.
	Matcher Matcher

	// StopOnError aborts the rest of a run after an Error verdict.
	// Failed assertions never stop a run.
	StopOnError bool
}

// Runner drives a script: one environment, commands evaluated in order.
type Runner struct {
	env  *engine.Environment
	ev   *Evaluator
	stop bool
}

func New(ctx context.Context, opts Options) (*Runner, error) {
	env, err := engine.NewEnvironment(ctx, opts.Engine)
	if err != nil {
		return nil, err
	}
	return &Runner{
		env:  env,
		ev:   NewEvaluator(env, opts.Matcher),
		stop: opts.StopOnError,
	}, nil
}

func (r *Runner) Close(ctx context.Context) error {
	return r.env.Close(ctx)
}

// Run parses the script and returns a lazy (command, verdict) sequence.
// Commands execute one at a time as the sequence is consumed, so state
// effects land in order and a consumer can stop early.
func (r *Runner) Run(ctx context.Context, source string) (iter.Seq2[script.Command, Verdict], error) {
	cmds, err := script.Parse(source)
	if err != nil {
		return nil, err
	}
	log := engine.Logger()
	return func(yield func(script.Command, Verdict) bool) {
		for _, cmd := range cmds {
			v := r.ev.Evaluate(ctx, cmd)
			log.Debug("command evaluated",
				zap.Int("line", cmd.Pos().Line),
				zap.String("verdict", v.Outcome.String()))
			if !yield(cmd, v) {
				return
			}
			if r.stop && v.Outcome == Errored {
				return
			}
		}
	}, nil
}

// Summary tallies a finished run.
type Summary struct {
	Passed  int
	Failed  int
	Errored int
}

func (s *Summary) Add(v Verdict) {
	switch v.Outcome {
	case Passed:
		s.Passed++
	case Failed:
		s.Failed++
	case Errored:
		s.Errored++
	}
}

func (s Summary) Total() int { return s.Passed + s.Failed + s.Errored }

func (s Summary) Clean() bool { return s.Failed == 0 && s.Errored == 0 }
