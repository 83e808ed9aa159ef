package script

import (
	"strings"

	"github.com/wippyai/wast-harness/errors"
	"github.com/wippyai/wast-harness/internal/sexp"
)

// Parse turns a wast script into its command sequence. Any syntax error in
// the directive layer aborts the whole parse; module bodies are captured as
// source spans and left to the module compiler.
func Parse(source string) ([]Command, error) {
	toks, err := sexp.Tokenize(source)
	if err != nil {
		return nil, errors.New(errors.PhaseParse, errors.KindSyntax).Cause(err).Detail("script lex failed").Build()
	}
	p := &parser{src: source, toks: toks}
	var cmds []Command
	for !p.done() {
		cmd, err := p.command()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

type parser struct {
	src  string
	toks []sexp.Token
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() sexp.Token {
	if p.done() {
		last := p.toks[len(p.toks)-1]
		return sexp.Token{Type: sexp.RParen, Line: last.Line, Col: last.Col, Off: last.End, End: last.End}
	}
	return p.toks[p.pos]
}

func (p *parser) next() sexp.Token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) expect(typ sexp.Type) (sexp.Token, error) {
	t := p.peek()
	if p.done() || t.Type != typ {
		return t, errors.Syntax(t.Line, t.Col, "expected %s, got %q", typ, t.Value)
	}
	p.pos++
	return t, nil
}

// skipForm consumes one complete form starting at the current token, which
// must be its left paren, and returns the matching right paren.
func (p *parser) skipForm() (sexp.Token, error) {
	open, err := p.expect(sexp.LParen)
	if err != nil {
		return open, err
	}
	depth := 1
	for !p.done() {
		t := p.next()
		switch t.Type {
		case sexp.LParen:
			depth++
		case sexp.RParen:
			depth--
			if depth == 0 {
				return t, nil
			}
		}
	}
	return open, errors.Syntax(open.Line, open.Col, "unclosed form")
}

func (p *parser) command() (Command, error) {
	open, err := p.expect(sexp.LParen)
	if err != nil {
		return nil, err
	}
	kw, err := p.expect(sexp.Ident)
	if err != nil {
		return nil, err
	}
	at := Position{Line: open.Line, Col: open.Col}

	switch kw.Value {
	case "module":
		p.pos -= 2
		name, src, err := p.module()
		if err != nil {
			return nil, err
		}
		return &ModuleCommand{Position: at, Name: name, Source: src}, nil

	case "register":
		return p.register(at)

	case "invoke", "get":
		p.pos -= 2
		act, err := p.action()
		if err != nil {
			return nil, err
		}
		return &ActionCommand{Position: at, Action: act}, nil

	case "assert_return":
		return p.assertReturn(at)

	case "assert_return_canonical_nan":
		return p.assertLegacyNaN(at, NaNCanonical)

	case "assert_return_arithmetic_nan":
		return p.assertLegacyNaN(at, NaNArithmetic)

	case "assert_trap":
		act, msg, err := p.actionWithMessage()
		if err != nil {
			return nil, err
		}
		return &AssertTrapCommand{Position: at, Action: act, Message: msg}, nil

	case "assert_exhaustion":
		act, msg, err := p.actionWithMessage()
		if err != nil {
			return nil, err
		}
		return &AssertExhaustionCommand{Position: at, Action: act, Message: msg}, nil

	case "assert_malformed":
		src, msg, err := p.moduleWithMessage()
		if err != nil {
			return nil, err
		}
		return &AssertMalformedCommand{Position: at, Source: src, Message: msg}, nil

	case "assert_invalid":
		src, msg, err := p.moduleWithMessage()
		if err != nil {
			return nil, err
		}
		return &AssertInvalidCommand{Position: at, Source: src, Message: msg}, nil

	case "assert_unlinkable":
		src, msg, err := p.moduleWithMessage()
		if err != nil {
			return nil, err
		}
		return &AssertUnlinkableCommand{Position: at, Source: src, Message: msg}, nil

	case "assert_uninstantiable":
		src, msg, err := p.moduleWithMessage()
		if err != nil {
			return nil, err
		}
		return &AssertUninstantiableCommand{Position: at, Source: src, Message: msg}, nil
	}

	return nil, errors.Syntax(kw.Line, kw.Col, "unknown directive %q", kw.Value)
}

// module parses a (module ...) form. The positions before the call must be
// at its left paren. Text modules come back as the exact source span so the
// module compiler sees the original text, positions included.
func (p *parser) module() (name string, src ModuleSource, err error) {
	start := p.pos
	open, err := p.expect(sexp.LParen)
	if err != nil {
		return "", src, err
	}
	if _, err = p.expect(sexp.Ident); err != nil { // "module"
		return "", src, err
	}

	if t := p.peek(); t.Type == sexp.Ident && strings.HasPrefix(t.Value, "$") {
		name = t.Value
		p.pos++
	}

	switch t := p.peek(); {
	case t.Type == sexp.Ident && t.Value == "binary":
		p.pos++
		data, err := p.stringBlob()
		if err != nil {
			return "", src, err
		}
		if _, err := p.expect(sexp.RParen); err != nil {
			return "", src, err
		}
		return name, ModuleSource{Binary: data}, nil

	case t.Type == sexp.Ident && t.Value == "quote":
		p.pos++
		data, err := p.stringBlob()
		if err != nil {
			return "", src, err
		}
		if _, err := p.expect(sexp.RParen); err != nil {
			return "", src, err
		}
		head := "(module"
		if name != "" {
			head += " " + name
		}
		return name, ModuleSource{Text: head + " " + string(data) + ")"}, nil
	}

	p.pos = start
	close, err := p.skipForm()
	if err != nil {
		return "", src, err
	}
	return name, ModuleSource{Text: p.src[open.Off:close.End]}, nil
}

// stringBlob reads one or more adjacent string tokens and concatenates
// their unescaped bytes.
func (p *parser) stringBlob() ([]byte, error) {
	var out []byte
	seen := false
	for p.peek().Type == sexp.String {
		t := p.next()
		b, err := sexp.Unescape(t.Value)
		if err != nil {
			return nil, errors.Syntax(t.Line, t.Col, "bad string literal: %v", err)
		}
		out = append(out, b...)
		seen = true
	}
	if !seen {
		t := p.peek()
		return nil, errors.Syntax(t.Line, t.Col, "expected string literal")
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

func (p *parser) register(at Position) (Command, error) {
	t, err := p.expect(sexp.String)
	if err != nil {
		return nil, err
	}
	as, err := sexp.Unescape(t.Value)
	if err != nil {
		return nil, errors.Syntax(t.Line, t.Col, "bad string literal: %v", err)
	}
	var name string
	if n := p.peek(); n.Type == sexp.Ident && strings.HasPrefix(n.Value, "$") {
		name = n.Value
		p.pos++
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return nil, err
	}
	return &RegisterCommand{Position: at, Name: name, As: string(as)}, nil
}

// action parses an (invoke ...) or (get ...) form, position at its left
// paren.
func (p *parser) action() (Action, error) {
	var act Action
	if _, err := p.expect(sexp.LParen); err != nil {
		return act, err
	}
	kw, err := p.expect(sexp.Ident)
	if err != nil {
		return act, err
	}
	switch kw.Value {
	case "invoke":
		act.Kind = ActionInvoke
	case "get":
		act.Kind = ActionGet
	default:
		return act, errors.Syntax(kw.Line, kw.Col, "expected invoke or get, got %q", kw.Value)
	}

	if t := p.peek(); t.Type == sexp.Ident && strings.HasPrefix(t.Value, "$") {
		act.Module = t.Value
		p.pos++
	}
	f, err := p.expect(sexp.String)
	if err != nil {
		return act, err
	}
	field, err := sexp.Unescape(f.Value)
	if err != nil {
		return act, errors.Syntax(f.Line, f.Col, "bad string literal: %v", err)
	}
	act.Field = string(field)

	for p.peek().Type == sexp.LParen {
		v, err := p.constValue()
		if err != nil {
			return act, err
		}
		act.Args = append(act.Args, v)
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return act, err
	}
	return act, nil
}

// constValue parses a (t.const literal) argument. NaN sentinels are not
// values and are rejected here.
func (p *parser) constValue() (Value, error) {
	at := p.peek()
	e, err := p.expected()
	if err != nil {
		return Value{}, err
	}
	if e.NaN != NaNNone {
		return Value{}, errors.Syntax(at.Line, at.Col, "NaN class sentinel is not a value")
	}
	return e.Value, nil
}

// expected parses a (t.const literal) form in result position, where
// nan:canonical and nan:arithmetic are additionally legal for floats.
func (p *parser) expected() (Expected, error) {
	var e Expected
	if _, err := p.expect(sexp.LParen); err != nil {
		return e, err
	}
	op, err := p.expect(sexp.Ident)
	if err != nil {
		return e, err
	}
	lit := p.peek()
	if lit.Type != sexp.Number && lit.Type != sexp.Ident {
		return e, errors.Syntax(lit.Line, lit.Col, "expected literal, got %q", lit.Value)
	}
	p.pos++

	switch op.Value {
	case "i32.const":
		bits, err := ParseI32(lit.Value)
		if err != nil {
			return e, errors.Syntax(lit.Line, lit.Col, "%v", err)
		}
		e.Value = I32(bits)
	case "i64.const":
		bits, err := ParseI64(lit.Value)
		if err != nil {
			return e, errors.Syntax(lit.Line, lit.Col, "%v", err)
		}
		e.Value = I64(bits)
	case "f32.const":
		switch lit.Value {
		case "nan:canonical":
			e = Expected{Value: Value{Kind: KindF32}, NaN: NaNCanonical}
		case "nan:arithmetic":
			e = Expected{Value: Value{Kind: KindF32}, NaN: NaNArithmetic}
		default:
			bits, err := ParseF32(lit.Value)
			if err != nil {
				return e, errors.Syntax(lit.Line, lit.Col, "%v", err)
			}
			e.Value = F32Bits(bits)
		}
	case "f64.const":
		switch lit.Value {
		case "nan:canonical":
			e = Expected{Value: Value{Kind: KindF64}, NaN: NaNCanonical}
		case "nan:arithmetic":
			e = Expected{Value: Value{Kind: KindF64}, NaN: NaNArithmetic}
		default:
			bits, err := ParseF64(lit.Value)
			if err != nil {
				return e, errors.Syntax(lit.Line, lit.Col, "%v", err)
			}
			e.Value = F64Bits(bits)
		}
	default:
		return e, errors.Syntax(op.Line, op.Col, "expected const operator, got %q", op.Value)
	}

	if _, err := p.expect(sexp.RParen); err != nil {
		return e, err
	}
	return e, nil
}

func (p *parser) assertReturn(at Position) (Command, error) {
	act, err := p.action()
	if err != nil {
		return nil, err
	}
	var exp []Expected
	for p.peek().Type == sexp.LParen {
		e, err := p.expected()
		if err != nil {
			return nil, err
		}
		exp = append(exp, e)
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return nil, err
	}
	return &AssertReturnCommand{Position: at, Action: act, Expected: exp}, nil
}

// assertLegacyNaN handles the pre-sentinel assertion forms, which expect
// one NaN of whatever float width the action produces.
func (p *parser) assertLegacyNaN(at Position, class NaNClass) (Command, error) {
	act, err := p.action()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return nil, err
	}
	return &AssertReturnCommand{
		Position: at,
		Action:   act,
		Expected: []Expected{{NaN: class, AnyWidth: true}},
	}, nil
}

func (p *parser) actionWithMessage() (Action, string, error) {
	act, err := p.action()
	if err != nil {
		return act, "", err
	}
	msg, err := p.message()
	return act, msg, err
}

func (p *parser) moduleWithMessage() (ModuleSource, string, error) {
	_, src, err := p.module()
	if err != nil {
		return src, "", err
	}
	msg, err := p.message()
	return src, msg, err
}

func (p *parser) message() (string, error) {
	t, err := p.expect(sexp.String)
	if err != nil {
		return "", err
	}
	b, err := sexp.Unescape(t.Value)
	if err != nil {
		return "", errors.Syntax(t.Line, t.Col, "bad string literal: %v", err)
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return "", err
	}
	return string(b), nil
}
