// Package wat compiles WebAssembly text modules to binary.
//
// The grammar covered is the part the test scripts exercise: types,
// imports, functions with folded or flat bodies, globals, memories,
// tables, exports, start and active data segments. Validation is not done
// here; the engine validates the binary on compilation.
package wat
