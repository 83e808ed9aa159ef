package script

import (
	"strings"
	"testing"
)

const sampleScript = `
(module $arith
  (func (export "add") (param i32 i32) (result i32)
    local.get 0
    local.get 1
    i32.add))

(assert_return (invoke "add" (i32.const 2) (i32.const 2)) (i32.const 4))
(register "arith" $arith)
(invoke "add" (i32.const 1) (i32.const 1))
(assert_trap (invoke "div" (i32.const 1) (i32.const 0)) "integer divide by zero")
(assert_malformed (module quote "(func") "unexpected end")
`

func TestParseCommandOrder(t *testing.T) {
	cmds, err := Parse(sampleScript)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"module", "assert_return", "register", "action", "assert_trap", "assert_malformed"}
	if len(cmds) != len(want) {
		t.Fatalf("got %d commands, want %d", len(cmds), len(want))
	}
	for i, cmd := range cmds {
		var kind string
		switch cmd.(type) {
		case *ModuleCommand:
			kind = "module"
		case *RegisterCommand:
			kind = "register"
		case *ActionCommand:
			kind = "action"
		case *AssertReturnCommand:
			kind = "assert_return"
		case *AssertTrapCommand:
			kind = "assert_trap"
		case *AssertMalformedCommand:
			kind = "assert_malformed"
		}
		if kind != want[i] {
			t.Errorf("command %d: got %s, want %s", i, kind, want[i])
		}
	}
}

func TestParseModuleSpan(t *testing.T) {
	cmds, err := Parse(sampleScript)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	mod := cmds[0].(*ModuleCommand)
	if mod.Name != "$arith" {
		t.Errorf("module name = %q, want $arith", mod.Name)
	}
	if !strings.HasPrefix(mod.Source.Text, "(module $arith") {
		t.Errorf("module span starts with %q", mod.Source.Text[:20])
	}
	if !strings.HasSuffix(mod.Source.Text, "i32.add))") {
		t.Errorf("module span ends with %q", mod.Source.Text[len(mod.Source.Text)-12:])
	}
	if mod.Pos().Line != 2 {
		t.Errorf("module line = %d, want 2", mod.Pos().Line)
	}
}

func TestParseAssertReturn(t *testing.T) {
	cmds, err := Parse(`(assert_return (invoke $m "f" (i64.const -1) (f32.const -0)) (f64.const nan:canonical))`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ar := cmds[0].(*AssertReturnCommand)
	if ar.Action.Module != "$m" || ar.Action.Field != "f" {
		t.Fatalf("action = %+v", ar.Action)
	}
	if len(ar.Action.Args) != 2 {
		t.Fatalf("got %d args", len(ar.Action.Args))
	}
	if !ar.Action.Args[0].Equal(I64(0xffffffffffffffff)) {
		t.Errorf("arg 0 = %v", ar.Action.Args[0])
	}
	if !ar.Action.Args[1].Equal(F32Bits(0x80000000)) {
		t.Errorf("arg 1 = %v, want f32 -0.0", ar.Action.Args[1])
	}
	if len(ar.Expected) != 1 || ar.Expected[0].NaN != NaNCanonical || ar.Expected[0].Value.Kind != KindF64 {
		t.Errorf("expected = %+v", ar.Expected)
	}
}

func TestParseLegacyNaNForms(t *testing.T) {
	cmds, err := Parse(`
(assert_return_canonical_nan (invoke "f"))
(assert_return_arithmetic_nan (invoke "g" (f64.const 0x1p-1)))
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c := cmds[0].(*AssertReturnCommand)
	if len(c.Expected) != 1 || c.Expected[0].NaN != NaNCanonical || !c.Expected[0].AnyWidth {
		t.Errorf("canonical form expected = %+v", c.Expected)
	}
	a := cmds[1].(*AssertReturnCommand)
	if a.Expected[0].NaN != NaNArithmetic || !a.Expected[0].AnyWidth {
		t.Errorf("arithmetic form expected = %+v", a.Expected)
	}
}

func TestParseBinaryModule(t *testing.T) {
	cmds, err := Parse(`(module binary "\00asm" "\01\00\00\00")`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	mod := cmds[0].(*ModuleCommand)
	if !mod.Source.IsBinary() {
		t.Fatal("source is not binary")
	}
	want := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}
	if string(mod.Source.Binary) != string(want) {
		t.Errorf("binary = % x, want % x", mod.Source.Binary, want)
	}
}

func TestParseQuoteModule(t *testing.T) {
	cmds, err := Parse(`(assert_malformed (module quote "(func" " unbalanced") "unexpected end")`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	am := cmds[0].(*AssertMalformedCommand)
	if am.Source.IsBinary() {
		t.Fatal("quote module is binary")
	}
	if !strings.Contains(am.Source.Text, "(func unbalanced") {
		t.Errorf("quote text = %q", am.Source.Text)
	}
	if am.Message != "unexpected end" {
		t.Errorf("message = %q", am.Message)
	}
}

func TestParseRegister(t *testing.T) {
	cmds, err := Parse(`(register "env")`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	reg := cmds[0].(*RegisterCommand)
	if reg.As != "env" || reg.Name != "" {
		t.Errorf("register = %+v", reg)
	}
}

func TestParseGetAction(t *testing.T) {
	cmds, err := Parse(`(assert_return (get $m "g") (i32.const 666))`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ar := cmds[0].(*AssertReturnCommand)
	if ar.Action.Kind != ActionGet || ar.Action.Module != "$m" || ar.Action.Field != "g" {
		t.Errorf("action = %+v", ar.Action)
	}
	if len(ar.Action.Args) != 0 {
		t.Errorf("get action carries args: %v", ar.Action.Args)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown directive", `(frobnicate)`},
		{"sentinel as argument", `(invoke "f" (f32.const nan:canonical))`},
		{"unclosed form", `(module (func`},
		{"missing message", `(assert_trap (invoke "f"))`},
		{"stray token", `module`},
		{"bad literal", `(invoke "f" (i32.const zebra))`},
	}
	for _, tt := range tests {
		if _, err := Parse(tt.src); err == nil {
			t.Errorf("%s: expected parse error", tt.name)
		}
	}
}

func TestParsePositions(t *testing.T) {
	cmds, err := Parse("(invoke \"a\")\n  (invoke \"b\")")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p := cmds[0].Pos(); p.Line != 1 || p.Col != 1 {
		t.Errorf("first command at %d:%d", p.Line, p.Col)
	}
	if p := cmds[1].Pos(); p.Line != 2 || p.Col != 3 {
		t.Errorf("second command at %d:%d", p.Line, p.Col)
	}
}
