package engine

import (
	"context"

	"github.com/wippyai/wast-harness/script"
)

// spectestModule provides the host interface the reference test suite
// imports. The print functions are deliberately inert, and the globals
// carry the values the suite asserts against.
const spectestModule = `(module
  (func (export "print"))
  (func (export "print_i32") (param i32))
  (func (export "print_i64") (param i64))
  (func (export "print_f32") (param f32))
  (func (export "print_f64") (param f64))
  (func (export "print_i32_f32") (param i32 f32))
  (func (export "print_f64_f64") (param f64 f64))
  (global (export "global_i32") i32 (i32.const 666))
  (global (export "global_i64") i64 (i64.const 666))
  (global (export "global_f32") f32 (f32.const 666.6))
  (global (export "global_f64") f64 (f64.const 666.6))
  (table (export "table") 10 20 funcref)
  (memory (export "memory") 1 2))`

func (env *Environment) defineSpectest(ctx context.Context) error {
	compiled, err := env.Compile(ctx, script.ModuleSource{Text: spectestModule})
	if err != nil {
		return err
	}
	_, err = env.instantiate(ctx, compiled, "spectest")
	return err
}
