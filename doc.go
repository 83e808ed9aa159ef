// Package wastharness runs WebAssembly test scripts: the wast directive
// format the reference test suite is written in, with modules, actions
// and assertions evaluated in order against a shared module environment.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	wastharness/         Root package with the one-shot RunScript entry point
//	├── script/          Script parsing into commands, values and expectations
//	├── wat/             WAT text format to WASM binary compiler
//	├── engine/          wazero-backed module environment and action execution
//	├── runner/          Command-by-command driver and assertion evaluator
//	├── config/          YAML configuration
//	└── errors/          Structured error types with phase and kind
//
// # Quick Start
//
// Run a script:
//
//	results, summary, err := wastharness.RunScript(ctx, source, runner.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range results {
//	    fmt.Printf("line %d: %s\n", r.Command.Pos().Line, r.Verdict)
//	}
//	fmt.Printf("%d passed, %d failed\n", summary.Passed, summary.Failed)
//
// For incremental consumption, or to keep module state alive across
// several scripts, use runner.Runner directly.
//
// # Numeric Semantics
//
// Assertion comparison is bit-exact: +0.0 and -0.0 are distinct, and NaN
// payloads are preserved end to end. The only non-exact expectations are
// the nan:canonical and nan:arithmetic sentinels, which accept a class
// of NaN bit patterns rather than one value.
//
// # Thread Safety
//
// A Runner and its environment serve one script at a time; commands
// mutate shared state (the current module, name bindings) and must be
// evaluated from a single goroutine.
package wastharness
