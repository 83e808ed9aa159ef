package sexp_test

import (
	"bytes"
	"testing"

	"github.com/wippyai/wast-harness/internal/sexp"
)

func lex(t *testing.T, src string) []sexp.Token {
	t.Helper()
	toks, err := sexp.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	return toks
}

func TestTokenizeBasics(t *testing.T) {
	toks := lex(t, `(module $m (func))`)
	want := []struct {
		typ sexp.Type
		val string
	}{
		{sexp.LParen, "("},
		{sexp.Ident, "module"},
		{sexp.Ident, "$m"},
		{sexp.LParen, "("},
		{sexp.Ident, "func"},
		{sexp.RParen, ")"},
		{sexp.RParen, ")"},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w.typ || toks[i].Value != w.val {
			t.Errorf("token %d: got (%v, %q), want (%v, %q)", i, toks[i].Type, toks[i].Value, w.typ, w.val)
		}
	}
}

func TestTokenizeLineAndColumn(t *testing.T) {
	toks := lex(t, "(module\n  (func))")
	if toks[0].Line != 1 || toks[0].Col != 1 {
		t.Errorf("first paren at %d:%d, want 1:1", toks[0].Line, toks[0].Col)
	}
	if toks[2].Line != 2 || toks[2].Col != 3 {
		t.Errorf("second paren at %d:%d, want 2:3", toks[2].Line, toks[2].Col)
	}
}

func TestTokenizeMultiLineString(t *testing.T) {
	toks := lex(t, "(a\n\"x\ny\" b)")
	if toks[2].Type != sexp.String || toks[2].Value != "x\ny" {
		t.Fatalf("unexpected string token: %+v", toks[2])
	}
	// The string reports the line of its opening quote; tokens after it
	// continue on the line where it ended.
	if toks[2].Line != 2 {
		t.Errorf("string at line %d, want 2", toks[2].Line)
	}
	if toks[3].Line != 3 {
		t.Errorf("ident after string at line %d, want 3", toks[3].Line)
	}
}

func TestTokenizeComments(t *testing.T) {
	toks := lex(t, ";; a comment\n(nop (; inline (; nested ;) ;) drop)")
	var vals []string
	for _, tok := range toks {
		vals = append(vals, tok.Value)
	}
	want := []string{"(", "nop", "drop", ")"}
	if len(vals) != len(want) {
		t.Fatalf("got %v, want %v", vals, want)
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("token %d: got %q, want %q", i, vals[i], want[i])
		}
	}
}

func TestTokenizeNumbers(t *testing.T) {
	for _, src := range []string{"42", "-7", "0x2a", "-0x80000000", "1_000", "1.5e3", "0x1.8p3", "nan:0x200000", "-nan", "+inf"} {
		toks := lex(t, src)
		if len(toks) != 1 {
			t.Fatalf("%q: got %d tokens", src, len(toks))
		}
		if toks[0].Value != src {
			t.Errorf("%q: got value %q", src, toks[0].Value)
		}
	}
}

func TestTokenizeStringKeepsRawEscapes(t *testing.T) {
	toks := lex(t, `"\00asm"`)
	if len(toks) != 1 || toks[0].Type != sexp.String {
		t.Fatalf("unexpected tokens: %+v", toks)
	}
	if toks[0].Value != `\00asm` {
		t.Errorf("got %q", toks[0].Value)
	}
}

func TestTokenizeOffsetsSliceSource(t *testing.T) {
	src := `(assert_return (invoke "f"))`
	toks := lex(t, src)
	first := toks[0]
	last := toks[len(toks)-1]
	if src[first.Off:last.End] != src {
		t.Errorf("span slicing broken: %q", src[first.Off:last.End])
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	if _, err := sexp.Tokenize(`"abc`); err == nil {
		t.Error("expected error for unterminated string")
	}
}

func TestUnescape(t *testing.T) {
	got, err := sexp.Unescape(`\00asm\01\00\00\00`)
	if err != nil {
		t.Fatalf("Unescape: %v", err)
	}
	want := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestUnescapeNamed(t *testing.T) {
	got, err := sexp.Unescape(`a\tb\n\"c\\`)
	if err != nil {
		t.Fatalf("Unescape: %v", err)
	}
	if string(got) != "a\tb\n\"c\\" {
		t.Errorf("got %q", got)
	}
}

func TestUnescapeUnicode(t *testing.T) {
	got, err := sexp.Unescape(`\u{263a}`)
	if err != nil {
		t.Fatalf("Unescape: %v", err)
	}
	if string(got) != "☺" {
		t.Errorf("got %q", got)
	}
}

func TestUnescapeBad(t *testing.T) {
	for _, raw := range []string{`\q`, `\u{`, `\`} {
		if _, err := sexp.Unescape(raw); err == nil {
			t.Errorf("%q: expected error", raw)
		}
	}
}
