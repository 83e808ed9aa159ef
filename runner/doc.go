// Package runner drives test scripts end to end: commands from the
// script package, execution through the engine package, and a verdict
// per command from the assertion evaluator.
//
// Numeric comparison follows wasm equality: bit-exact for every concrete
// value, so +0.0 and -0.0 differ, with NaN class sentinels (canonical,
// arithmetic) as the only non-exact expectations.
package runner
