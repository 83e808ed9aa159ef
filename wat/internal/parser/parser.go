package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/wast-harness/internal/sexp"
	"github.com/wippyai/wast-harness/wat/internal/ast"
	"github.com/wippyai/wast-harness/wat/internal/names"
)

type Parser struct {
	mod     *ast.Module
	types   *names.Space
	funcs   *names.Space
	globals *names.Space
	mems    *names.Space
	tables  *names.Space
	locals  *names.Space
	toks    []sexp.Token
	labels  names.ScopeStack
	pos     int
}

// Parse turns a tokenized text module into its decoded form. Parsing is
// two-phase: a declaration scan assigns every index first, then bodies are
// parsed with all symbolic references resolvable.
func Parse(toks []sexp.Token) (*ast.Module, error) {
	p := &Parser{
		mod:     &ast.Module{},
		toks:    toks,
		types:   names.NewSpace("type"),
		funcs:   names.NewSpace("function"),
		globals: names.NewSpace("global"),
		mems:    names.NewSpace("memory"),
		tables:  names.NewSpace("table"),
	}
	return p.parseModule()
}

func (p *Parser) done() bool { return p.pos >= len(p.toks) }

func (p *Parser) peek() sexp.Token {
	if p.done() {
		if len(p.toks) == 0 {
			return sexp.Token{Type: sexp.RParen, Line: 1, Col: 1}
		}
		last := p.toks[len(p.toks)-1]
		return sexp.Token{Type: sexp.RParen, Line: last.Line, Col: last.Col}
	}
	return p.toks[p.pos]
}

func (p *Parser) next() sexp.Token {
	t := p.peek()
	p.pos++
	return t
}

func (p *Parser) expect(typ sexp.Type) (sexp.Token, error) {
	t := p.peek()
	if p.done() {
		return t, fmt.Errorf("unexpected end of module text")
	}
	if t.Type != typ {
		return t, fmt.Errorf("line %d: expected %s, got %q", t.Line, typ, t.Value)
	}
	p.pos++
	return t, nil
}

func (p *Parser) expectKeyword(kw string) error {
	t, err := p.expect(sexp.Ident)
	if err != nil {
		return err
	}
	if t.Value != kw {
		return fmt.Errorf("line %d: expected %q, got %q", t.Line, kw, t.Value)
	}
	return nil
}

// optionalName consumes a $identifier if one is next.
func (p *Parser) optionalName() string {
	if t := p.peek(); !p.done() && t.Type == sexp.Ident && strings.HasPrefix(t.Value, "$") {
		p.pos++
		return t.Value
	}
	return ""
}

// formIs reports whether the next form opens with the given keyword.
func (p *Parser) formIs(kw string) bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	return p.toks[p.pos].Type == sexp.LParen &&
		p.toks[p.pos+1].Type == sexp.Ident && p.toks[p.pos+1].Value == kw
}

// skipForm consumes one complete form, left paren through matching right.
func (p *Parser) skipForm() error {
	open, err := p.expect(sexp.LParen)
	if err != nil {
		return err
	}
	depth := 1
	for !p.done() {
		switch p.next().Type {
		case sexp.LParen:
			depth++
		case sexp.RParen:
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
	return fmt.Errorf("line %d: unclosed form", open.Line)
}

func (p *Parser) stringLit() (string, error) {
	t, err := p.expect(sexp.String)
	if err != nil {
		return "", err
	}
	b, err := sexp.Unescape(t.Value)
	if err != nil {
		return "", fmt.Errorf("line %d: %v", t.Line, err)
	}
	return string(b), nil
}

func (p *Parser) parseValType() (ast.ValType, error) {
	t, err := p.expect(sexp.Ident)
	if err != nil {
		return 0, err
	}
	switch t.Value {
	case "i32":
		return ast.ValTypeI32, nil
	case "i64":
		return ast.ValTypeI64, nil
	case "f32":
		return ast.ValTypeF32, nil
	case "f64":
		return ast.ValTypeF64, nil
	case "funcref":
		return ast.ValTypeFuncref, nil
	}
	return 0, fmt.Errorf("line %d: unknown value type %q", t.Line, t.Value)
}

func parseUintLit(s string) (uint64, error) {
	s = strings.ReplaceAll(s, "_", "")
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

func (p *Parser) parseU32() (uint32, error) {
	t, err := p.expect(sexp.Number)
	if err != nil {
		return 0, err
	}
	v, perr := parseUintLit(t.Value)
	if perr != nil || v > 0xFFFFFFFF {
		return 0, fmt.Errorf("line %d: bad index %q", t.Line, t.Value)
	}
	return uint32(v), nil
}

// parseIdx resolves a $name through the given space, or reads a numeric
// index.
func (p *Parser) parseIdx(space *names.Space) (uint32, error) {
	t := p.peek()
	if !p.done() && t.Type == sexp.Ident && strings.HasPrefix(t.Value, "$") {
		p.pos++
		idx, err := space.Resolve(t.Value)
		if err != nil {
			return 0, fmt.Errorf("line %d: %v", t.Line, err)
		}
		return idx, nil
	}
	return p.parseU32()
}

func (p *Parser) findOrAddType(ft ast.FuncType) uint32 {
	for i, t := range p.mod.Types {
		if t.Equal(ft) {
			return uint32(i)
		}
	}
	idx := uint32(len(p.mod.Types))
	p.mod.Types = append(p.mod.Types, ft)
	return idx
}
