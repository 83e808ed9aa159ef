// Package script models wast test scripts: the typed value and expectation
// domain, the closed command set, and the parser that turns script source
// into a command sequence.
//
// Values carry raw bit patterns rather than host floats so that NaN
// payloads and signed zeros survive parsing, execution and comparison
// exactly. Module definitions inside a script are captured as source spans
// or decoded binary bytes; compiling them is the engine layer's job.
package script
