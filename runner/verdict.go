package runner

import "fmt"

// Outcome is the judgement for one command.
type Outcome int

const (
	// Passed: the command did what the script asserts.
	Passed Outcome = iota
	// Failed: the command ran but its assertion did not hold.
	Failed
	// Errored: the harness could not carry the command out at all.
	Errored
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "PASS"
	case Failed:
		return "FAIL"
	case Errored:
		return "ERROR"
	}
	return "unknown"
}

// Verdict is the evaluation of one command. A Fail carries the assertion
// mismatch; an Error carries the harness failure.
type Verdict struct {
	Detail  string
	Outcome Outcome
}

func (v Verdict) Ok() bool { return v.Outcome == Passed }

func (v Verdict) String() string {
	if v.Detail == "" {
		return v.Outcome.String()
	}
	return v.Outcome.String() + ": " + v.Detail
}

func pass() Verdict { return Verdict{Outcome: Passed} }

func fail(format string, args ...any) Verdict {
	return Verdict{Outcome: Failed, Detail: fmt.Sprintf(format, args...)}
}

func errored(err error) Verdict {
	return Verdict{Outcome: Errored, Detail: err.Error()}
}
