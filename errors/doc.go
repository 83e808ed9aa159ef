// Package errors provides structured error types for the wast harness.
//
// Every error carries a Phase (where in command processing it happened) and
// a Kind (what went wrong). The assertion evaluator routes on these rather
// than on message text: a compile-phase error satisfies assert_malformed and
// assert_invalid, a link-phase error satisfies assert_unlinkable, and
// run-phase trap/exhaustion errors satisfy assert_trap/assert_exhaustion.
package errors
