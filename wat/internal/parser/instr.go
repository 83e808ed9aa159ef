package parser

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/wippyai/wast-harness/internal/sexp"
	"github.com/wippyai/wast-harness/script"
	"github.com/wippyai/wast-harness/wat/internal/ast"
	"github.com/wippyai/wast-harness/wat/internal/opcode"
)

// parseInstrSeq parses instructions until the enclosing form closes or a
// flat block terminator ("end", "else") is next. Neither is consumed.
func (p *Parser) parseInstrSeq(out *[]ast.Instr) error {
	for {
		if p.done() {
			return fmt.Errorf("unexpected end of instruction sequence")
		}
		t := p.peek()
		if t.Type == sexp.RParen {
			return nil
		}
		if t.Type == sexp.Ident && (t.Value == "end" || t.Value == "else") {
			return nil
		}
		if err := p.parseInstr(out); err != nil {
			return err
		}
	}
}

// parseInstr parses exactly one instruction, flat or folded.
func (p *Parser) parseInstr(out *[]ast.Instr) error {
	if p.peek().Type == sexp.LParen {
		return p.parseFolded(out)
	}
	op, err := p.expect(sexp.Ident)
	if err != nil {
		return err
	}
	switch op.Value {
	case "block":
		return p.parseFlatBlock(out, ast.OpBlock)
	case "loop":
		return p.parseFlatBlock(out, ast.OpLoop)
	case "if":
		return p.parseFlatIf(out)
	}
	ins, err := p.parseOp(op)
	if err != nil {
		return err
	}
	*out = append(*out, ins)
	return nil
}

func (p *Parser) parseFlatBlock(out *[]ast.Instr, op byte) error {
	label := p.optionalName()
	bt, err := p.parseBlockType()
	if err != nil {
		return err
	}
	*out = append(*out, ast.Instr{Opcode: op, Imm: bt})
	p.labels.Push(label)
	if err := p.parseInstrSeq(out); err != nil {
		return err
	}
	if err := p.expectKeyword("end"); err != nil {
		return err
	}
	p.optionalName()
	p.labels.Pop()
	*out = append(*out, ast.Instr{Opcode: ast.OpEnd})
	return nil
}

func (p *Parser) parseFlatIf(out *[]ast.Instr) error {
	label := p.optionalName()
	bt, err := p.parseBlockType()
	if err != nil {
		return err
	}
	*out = append(*out, ast.Instr{Opcode: ast.OpIf, Imm: bt})
	p.labels.Push(label)
	if err := p.parseInstrSeq(out); err != nil {
		return err
	}
	if t := p.peek(); t.Type == sexp.Ident && t.Value == "else" {
		p.pos++
		p.optionalName()
		*out = append(*out, ast.Instr{Opcode: ast.OpElse})
		if err := p.parseInstrSeq(out); err != nil {
			return err
		}
	}
	if err := p.expectKeyword("end"); err != nil {
		return err
	}
	p.optionalName()
	p.labels.Pop()
	*out = append(*out, ast.Instr{Opcode: ast.OpEnd})
	return nil
}

// parseFolded parses one parenthesized expression. Plain operators emit
// their operand expressions first, then the operator itself.
func (p *Parser) parseFolded(out *[]ast.Instr) error {
	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	op, err := p.expect(sexp.Ident)
	if err != nil {
		return err
	}

	switch op.Value {
	case "block", "loop":
		code := ast.OpBlock
		if op.Value == "loop" {
			code = ast.OpLoop
		}
		label := p.optionalName()
		bt, err := p.parseBlockType()
		if err != nil {
			return err
		}
		*out = append(*out, ast.Instr{Opcode: code, Imm: bt})
		p.labels.Push(label)
		if err := p.parseInstrSeq(out); err != nil {
			return err
		}
		p.labels.Pop()
		if _, err := p.expect(sexp.RParen); err != nil {
			return err
		}
		*out = append(*out, ast.Instr{Opcode: ast.OpEnd})
		return nil

	case "if":
		return p.parseFoldedIf(out)
	}

	ins, err := p.parseOp(op)
	if err != nil {
		return err
	}
	for p.peek().Type == sexp.LParen {
		if err := p.parseFolded(out); err != nil {
			return err
		}
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	*out = append(*out, ins)
	return nil
}

// parseFoldedIf handles (if label? bt cond* (then ...) (else ...)?). The
// condition folds outside the block scope; then/else bodies fold inside.
func (p *Parser) parseFoldedIf(out *[]ast.Instr) error {
	label := p.optionalName()
	bt, err := p.parseBlockType()
	if err != nil {
		return err
	}
	for p.peek().Type == sexp.LParen && !p.formIs("then") {
		if err := p.parseFolded(out); err != nil {
			return err
		}
	}
	*out = append(*out, ast.Instr{Opcode: ast.OpIf, Imm: bt})
	p.labels.Push(label)

	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	if err := p.expectKeyword("then"); err != nil {
		return err
	}
	if err := p.parseInstrSeq(out); err != nil {
		return err
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}

	if p.formIs("else") {
		if _, err := p.expect(sexp.LParen); err != nil {
			return err
		}
		if err := p.expectKeyword("else"); err != nil {
			return err
		}
		*out = append(*out, ast.Instr{Opcode: ast.OpElse})
		if err := p.parseInstrSeq(out); err != nil {
			return err
		}
		if _, err := p.expect(sexp.RParen); err != nil {
			return err
		}
	}

	p.labels.Pop()
	*out = append(*out, ast.Instr{Opcode: ast.OpEnd})
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	return nil
}

// parseOp reads a plain operator's immediates and builds its instruction.
func (p *Parser) parseOp(op sexp.Token) (ast.Instr, error) {
	info, ok := opcode.Lookup(op.Value)
	if !ok {
		return ast.Instr{}, fmt.Errorf("line %d: unknown instruction %q", op.Line, op.Value)
	}
	ins := ast.Instr{Opcode: info.Code}

	switch info.Imm {
	case opcode.None:

	case opcode.Label:
		depth, err := p.parseLabelIdx()
		if err != nil {
			return ins, err
		}
		ins.Imm = depth

	case opcode.BrTable:
		var labels []uint32
		for p.labelIdxNext() {
			depth, err := p.parseLabelIdx()
			if err != nil {
				return ins, err
			}
			labels = append(labels, depth)
		}
		if len(labels) == 0 {
			return ins, fmt.Errorf("line %d: br_table needs at least a default label", op.Line)
		}
		ins.Imm = ast.BrTableImm{Labels: labels[:len(labels)-1], Default: labels[len(labels)-1]}

	case opcode.Func:
		idx, err := p.parseIdx(p.funcs)
		if err != nil {
			return ins, err
		}
		ins.Imm = idx

	case opcode.CallIndirect:
		imm := ast.CallIndirectImm{}
		if p.labelIdxNext() {
			at := p.peek()
			idx, err := p.parseIdx(p.tables)
			if err != nil {
				return ins, err
			}
			if idx != 0 {
				return ins, fmt.Errorf("line %d: only table 0 is supported", at.Line)
			}
			imm.Table = idx
		}
		typeIdx, err := p.parseTypeUse(false)
		if err != nil {
			return ins, err
		}
		imm.Type = typeIdx
		ins.Imm = imm

	case opcode.Local:
		idx, err := p.parseIdx(p.locals)
		if err != nil {
			return ins, err
		}
		ins.Imm = idx

	case opcode.Global:
		idx, err := p.parseIdx(p.globals)
		if err != nil {
			return ins, err
		}
		ins.Imm = idx

	case opcode.I32:
		lit, err := p.literal()
		if err != nil {
			return ins, err
		}
		v, perr := script.ParseI32(lit.Value)
		if perr != nil {
			return ins, fmt.Errorf("line %d: %v", lit.Line, perr)
		}
		ins.Imm = int32(v)

	case opcode.I64:
		lit, err := p.literal()
		if err != nil {
			return ins, err
		}
		v, perr := script.ParseI64(lit.Value)
		if perr != nil {
			return ins, fmt.Errorf("line %d: %v", lit.Line, perr)
		}
		ins.Imm = int64(v)

	case opcode.F32:
		lit, err := p.literal()
		if err != nil {
			return ins, err
		}
		v, perr := script.ParseF32(lit.Value)
		if perr != nil {
			return ins, fmt.Errorf("line %d: %v", lit.Line, perr)
		}
		ins.Imm = ast.F32Imm(v)

	case opcode.F64:
		lit, err := p.literal()
		if err != nil {
			return ins, err
		}
		v, perr := script.ParseF64(lit.Value)
		if perr != nil {
			return ins, fmt.Errorf("line %d: %v", lit.Line, perr)
		}
		ins.Imm = ast.F64Imm(v)

	case opcode.Memarg:
		ma, err := p.parseMemarg(info.Align)
		if err != nil {
			return ins, err
		}
		ins.Imm = ma

	case opcode.MemIdx:
		ins.Imm = byte(0)
	}
	return ins, nil
}

func (p *Parser) literal() (sexp.Token, error) {
	t := p.peek()
	if p.done() || (t.Type != sexp.Number && t.Type != sexp.Ident) {
		return t, fmt.Errorf("line %d: expected literal, got %q", t.Line, t.Value)
	}
	p.pos++
	return t, nil
}

// labelIdxNext reports whether the next token can start an index: a
// number or a $name, as opposed to the next instruction or a close paren.
func (p *Parser) labelIdxNext() bool {
	t := p.peek()
	if p.done() {
		return false
	}
	return t.Type == sexp.Number ||
		(t.Type == sexp.Ident && strings.HasPrefix(t.Value, "$"))
}

func (p *Parser) parseLabelIdx() (uint32, error) {
	t := p.peek()
	if !p.done() && t.Type == sexp.Ident && strings.HasPrefix(t.Value, "$") {
		p.pos++
		depth, ok := p.labels.Resolve(t.Value)
		if !ok {
			return 0, fmt.Errorf("line %d: unknown label %s", t.Line, t.Value)
		}
		return depth, nil
	}
	return p.parseU32()
}

func (p *Parser) parseMemarg(naturalAlign uint32) (ast.Memarg, error) {
	ma := ast.Memarg{Align: naturalAlign}
	if t := p.peek(); !p.done() && t.Type == sexp.Ident && strings.HasPrefix(t.Value, "offset=") {
		p.pos++
		v, err := parseUintLit(t.Value[len("offset="):])
		if err != nil || v > 0xFFFFFFFF {
			return ma, fmt.Errorf("line %d: bad offset %q", t.Line, t.Value)
		}
		ma.Offset = uint32(v)
	}
	if t := p.peek(); !p.done() && t.Type == sexp.Ident && strings.HasPrefix(t.Value, "align=") {
		p.pos++
		v, err := parseUintLit(t.Value[len("align="):])
		if err != nil || v == 0 || v&(v-1) != 0 {
			return ma, fmt.Errorf("line %d: alignment must be a power of two", t.Line)
		}
		ma.Align = uint32(bits.TrailingZeros64(v))
	}
	return ma, nil
}

// parseBlockType reads optional (param ...) / (result ...) forms. Zero
// params with at most one result uses the shorthand encoding; anything
// else becomes a type section reference.
func (p *Parser) parseBlockType() (ast.BlockType, error) {
	ft, err := p.parseParamsResults(false)
	if err != nil {
		return ast.BlockType{}, err
	}
	if len(ft.Params) == 0 {
		switch len(ft.Results) {
		case 0:
			return ast.BlockType{TypeIdx: -1, Simple: ast.BlockTypeEmpty}, nil
		case 1:
			return ast.BlockType{TypeIdx: -1, Simple: byte(ft.Results[0])}, nil
		}
	}
	return ast.BlockType{TypeIdx: int32(p.findOrAddType(ft))}, nil
}
