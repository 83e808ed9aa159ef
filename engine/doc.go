// Package engine executes script actions against wazero.
//
// Environment owns the runtime and the mapping from script module
// references to live instances; Invoke and Get run exported functions
// and read exported globals, classifying engine faults into trap and
// exhaustion results. Compilation of text modules delegates to the wat
// package; validation and linking are the runtime's.
package engine
