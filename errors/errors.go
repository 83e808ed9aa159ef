package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in command processing the error occurred
type Phase string

const (
	PhaseParse   Phase = "parse"   // script directive parsing
	PhaseResolve Phase = "resolve" // symbolic name resolution
	PhaseCompile Phase = "compile" // module decode/validation
	PhaseLink    Phase = "link"    // import resolution, instantiation
	PhaseRun     Phase = "run"     // export invocation
)

// Kind categorizes the error
type Kind string

const (
	KindSyntax         Kind = "syntax"         // malformed script text
	KindUnknownName    Kind = "unknown_name"   // undeclared identifier reference
	KindMalformed      Kind = "malformed"      // module fails to parse/decode
	KindInvalid        Kind = "invalid"        // module fails validation
	KindUnlinkable     Kind = "unlinkable"     // unresolved or incompatible import
	KindUninstantiable Kind = "uninstantiable" // start function trapped
	KindTrap           Kind = "trap"           // runtime fault during execution
	KindExhaustion     Kind = "exhaustion"     // engine resource limit hit
	KindArgMismatch    Kind = "arg_mismatch"   // caller arity/kind mismatch
	KindNotFound       Kind = "not_found"      // unbound module name or export
	KindInvalidInput   Kind = "invalid_input"  // bad harness input
)

// Error is the structured error type used throughout the harness
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Line   int
	Col    int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Line > 0 {
		if e.Col > 0 {
			fmt.Fprintf(&b, " at %d:%d", e.Line, e.Col)
		} else {
			fmt.Fprintf(&b, " at line %d", e.Line)
		}
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by phase and kind
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// At sets the source position
func (b *Builder) At(line, col int) *Builder {
	b.err.Line = line
	b.err.Col = col
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Syntax creates a script syntax error with a source position
func Syntax(line, col int, detail string, args ...any) *Error {
	return New(PhaseParse, KindSyntax).At(line, col).Detail(detail, args...).Build()
}

// UnknownName creates a resolution error for an undeclared identifier
func UnknownName(line int, space, name string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnknownName,
		Line:   line,
		Detail: fmt.Sprintf("unknown %s %s", space, name),
	}
}

// Malformed creates a compile error for a module that fails to parse or decode
func Malformed(cause error) *Error {
	return &Error{Phase: PhaseCompile, Kind: KindMalformed, Detail: "module is malformed", Cause: cause}
}

// Invalid creates a compile error for a module that fails validation
func Invalid(cause error) *Error {
	return &Error{Phase: PhaseCompile, Kind: KindInvalid, Detail: "module is invalid", Cause: cause}
}

// Unlinkable creates a link error for a module whose imports cannot be satisfied
func Unlinkable(cause error) *Error {
	return &Error{Phase: PhaseLink, Kind: KindUnlinkable, Detail: "module is unlinkable", Cause: cause}
}

// Uninstantiable creates a link error for a module whose start function trapped
func Uninstantiable(cause error) *Error {
	return &Error{Phase: PhaseLink, Kind: KindUninstantiable, Detail: "module is uninstantiable", Cause: cause}
}

// Trap creates a runtime trap error carrying the engine message
func Trap(message string) *Error {
	return &Error{Phase: PhaseRun, Kind: KindTrap, Detail: message}
}

// Exhaustion creates a resource exhaustion error
func Exhaustion(message string) *Error {
	return &Error{Phase: PhaseRun, Kind: KindExhaustion, Detail: message}
}

// ArgMismatch creates an argument arity/kind mismatch error
func ArgMismatch(detail string, args ...any) *Error {
	return New(PhaseRun, KindArgMismatch).Detail(detail, args...).Build()
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(detail string, args ...any) *Error {
	return New(PhaseRun, KindInvalidInput).Detail(detail, args...).Build()
}

// IsKind reports whether err is a harness error of the given kind
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// InPhase reports whether err is a harness error from the given phase
func InPhase(err error, phase Phase) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Phase == phase {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
