package wat

import (
	"github.com/wippyai/wast-harness/internal/sexp"
	"github.com/wippyai/wast-harness/wat/internal/encoder"
	"github.com/wippyai/wast-harness/wat/internal/parser"
)

// Compile translates a text module into wasm binary form. Name resolution
// completes before encoding; the binary carries only numeric indices.
func Compile(source string) ([]byte, error) {
	toks, err := sexp.Tokenize(source)
	if err != nil {
		return nil, err
	}
	mod, err := parser.Parse(toks)
	if err != nil {
		return nil, err
	}
	return encoder.Encode(mod), nil
}
