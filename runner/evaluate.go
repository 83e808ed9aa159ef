package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/wippyai/wast-harness/engine"
	"github.com/wippyai/wast-harness/errors"
	"github.com/wippyai/wast-harness/script"
)

// Evaluator judges commands against an environment. Evaluation is a pure
// function of the command and the outcome the environment produced:
// every command yields exactly one verdict.
type Evaluator struct {
	env   *engine.Environment
	match Matcher
}

func NewEvaluator(env *engine.Environment, match Matcher) *Evaluator {
	if match == nil {
		match = Substring
	}
	return &Evaluator{env: env, match: match}
}

func (ev *Evaluator) Evaluate(ctx context.Context, cmd script.Command) Verdict {
	switch c := cmd.(type) {
	case *script.ModuleCommand:
		if err := ev.env.Define(ctx, c.Name, c.Source); err != nil {
			return errored(err)
		}
		return pass()

	case *script.RegisterCommand:
		if err := ev.env.Register(ctx, c.Name, c.As); err != nil {
			return errored(err)
		}
		return pass()

	case *script.ActionCommand:
		res, err := ev.perform(ctx, c.Action)
		if err != nil {
			return errored(err)
		}
		if res.Status != engine.StatusOK {
			return fail("action %s: %s", c.Action.Field, res.Message)
		}
		return pass()

	case *script.AssertReturnCommand:
		res, err := ev.perform(ctx, c.Action)
		if err != nil {
			return errored(err)
		}
		if res.Status != engine.StatusOK {
			return fail("%s did not return: %s", c.Action.Field, describe(res))
		}
		return compareReturns(c.Expected, res.Values)

	case *script.AssertTrapCommand:
		res, err := ev.perform(ctx, c.Action)
		if err != nil {
			return errored(err)
		}
		if res.Status != engine.StatusTrap {
			return fail("expected trap %q, got %s", c.Message, describe(res))
		}
		if !ev.match(c.Message, res.Message) {
			return fail("trap message %q does not match %q", res.Message, c.Message)
		}
		return pass()

	case *script.AssertExhaustionCommand:
		res, err := ev.perform(ctx, c.Action)
		if err != nil {
			return errored(err)
		}
		// The expected message wording is engine-specific; the status is
		// the assertion.
		if res.Status != engine.StatusExhaustion {
			return fail("expected exhaustion, got %s", describe(res))
		}
		return pass()

	case *script.AssertMalformedCommand:
		return ev.expectCompileFailure(ctx, c.Source, "malformed")

	case *script.AssertInvalidCommand:
		return ev.expectCompileFailure(ctx, c.Source, "invalid")

	case *script.AssertUnlinkableCommand:
		return ev.expectInstantiateFailure(ctx, c.Source, errors.KindUnlinkable)

	case *script.AssertUninstantiableCommand:
		return ev.expectInstantiateFailure(ctx, c.Source, errors.KindUninstantiable)
	}

	return errored(errors.InvalidInput("unhandled command %T", cmd))
}

func (ev *Evaluator) perform(ctx context.Context, act script.Action) (engine.Result, error) {
	if act.Kind == script.ActionGet {
		return ev.env.Get(ctx, act.Module, act.Field)
	}
	return ev.env.Invoke(ctx, act.Module, act.Field, act.Args)
}

// expectCompileFailure accepts any compile-stage rejection for both the
// malformed and invalid assertions; the borderline differs per engine.
func (ev *Evaluator) expectCompileFailure(ctx context.Context, src script.ModuleSource, want string) Verdict {
	_, err := ev.env.Compile(ctx, src)
	if err == nil {
		return fail("expected %s module, but it compiled", want)
	}
	if errors.InPhase(err, errors.PhaseCompile) {
		return pass()
	}
	return errored(err)
}

func (ev *Evaluator) expectInstantiateFailure(ctx context.Context, src script.ModuleSource, want errors.Kind) Verdict {
	err := ev.env.Instantiate(ctx, src)
	if err == nil {
		return fail("expected %s module, but it instantiated", want)
	}
	if errors.IsKind(err, want) {
		return pass()
	}
	if errors.InPhase(err, errors.PhaseCompile) {
		return errored(err)
	}
	return fail("expected %s module, got: %v", want, err)
}

func compareReturns(expected []script.Expected, got []script.Value) Verdict {
	if len(expected) != len(got) {
		return fail("returned %d values, want %d", len(got), len(expected))
	}
	var mismatches []string
	for i, e := range expected {
		if !e.Matches(got[i]) {
			mismatches = append(mismatches,
				fmt.Sprintf("result %d = %s, want %s", i, got[i], e))
		}
	}
	if len(mismatches) > 0 {
		return fail("%s", strings.Join(mismatches, "; "))
	}
	return pass()
}

func describe(res engine.Result) string {
	switch res.Status {
	case engine.StatusTrap:
		return "trap: " + res.Message
	case engine.StatusExhaustion:
		return "exhaustion: " + res.Message
	}
	vals := make([]string, len(res.Values))
	for i, v := range res.Values {
		vals[i] = v.String()
	}
	return "[" + strings.Join(vals, " ") + "]"
}
