package parser

import (
	"fmt"

	"github.com/wippyai/wast-harness/internal/sexp"
	"github.com/wippyai/wast-harness/wat/internal/ast"
	"github.com/wippyai/wast-harness/wat/internal/names"
)

// field is one top-level module form, located during the declaration scan
// and parsed fully in the second phase.
type field struct {
	kw         string
	name       string
	importKind string
	start      int
	idx        uint32
	imported   bool
}

func (p *Parser) parseModule() (*ast.Module, error) {
	if _, err := p.expect(sexp.LParen); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("module"); err != nil {
		return nil, err
	}
	p.optionalName()

	var fields []*field
	for !p.done() && p.peek().Type != sexp.RParen {
		f, err := p.scanField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return nil, err
	}
	if !p.done() {
		t := p.peek()
		return nil, fmt.Errorf("line %d: unexpected %q after module", t.Line, t.Value)
	}

	if err := p.declareFields(fields); err != nil {
		return nil, err
	}

	// Explicit type definitions fill the leading type indices before any
	// use-site type inference appends to the table.
	for _, f := range fields {
		if f.kw != "type" {
			continue
		}
		p.pos = f.start
		if err := p.parseTypeField(); err != nil {
			return nil, err
		}
	}

	for _, f := range fields {
		if f.kw == "type" {
			continue
		}
		p.pos = f.start
		var err error
		switch f.kw {
		case "import":
			err = p.parseImportField(f)
		case "func":
			err = p.parseFuncField(f)
		case "global":
			err = p.parseGlobalField(f)
		case "memory":
			err = p.parseMemoryField(f)
		case "table":
			err = p.parseTableField(f)
		case "export":
			err = p.parseExportField()
		case "start":
			err = p.parseStartField()
		case "elem":
			err = p.parseElemField()
		case "data":
			err = p.parseDataField()
		}
		if err != nil {
			return nil, err
		}
	}

	return p.mod, nil
}

// scanField records a field's keyword, name and import-ness without
// parsing its body, then skips past it.
func (p *Parser) scanField() (*field, error) {
	f := &field{start: p.pos}
	if _, err := p.expect(sexp.LParen); err != nil {
		return nil, err
	}
	kw, err := p.expect(sexp.Ident)
	if err != nil {
		return nil, err
	}
	f.kw = kw.Value

	switch f.kw {
	case "type", "func", "global", "memory", "table", "import", "export", "start", "elem", "data":
	default:
		return nil, fmt.Errorf("line %d: unknown module field %q", kw.Line, kw.Value)
	}

	if f.kw == "import" {
		f.imported = true
		if _, err := p.expect(sexp.String); err != nil {
			return nil, err
		}
		if _, err := p.expect(sexp.String); err != nil {
			return nil, err
		}
		if _, err := p.expect(sexp.LParen); err != nil {
			return nil, err
		}
		inner, err := p.expect(sexp.Ident)
		if err != nil {
			return nil, err
		}
		f.importKind = inner.Value
		f.name = p.optionalName()
	} else {
		f.name = p.optionalName()
		switch f.kw {
		case "func", "global", "memory", "table":
			probe := p.pos
			for p.formIs("export") {
				if err := p.skipForm(); err != nil {
					return nil, err
				}
			}
			f.imported = p.formIs("import")
			p.pos = probe
		}
	}

	p.pos = f.start
	if err := p.skipForm(); err != nil {
		return nil, err
	}
	return f, nil
}

// declareFields assigns every index. Imports occupy the leading indices of
// each space, in textual order, ahead of all local definitions.
func (p *Parser) declareFields(fields []*field) error {
	declare := func(f *field, kind string) error {
		sp := p.spaceFor(kind)
		if sp == nil {
			return fmt.Errorf("cannot import %q", kind)
		}
		idx, err := sp.Declare(f.name)
		if err != nil {
			return err
		}
		f.idx = idx
		return nil
	}

	for _, f := range fields {
		if !f.imported {
			continue
		}
		kind := f.kw
		if f.kw == "import" {
			kind = f.importKind
		}
		if err := declare(f, kind); err != nil {
			return err
		}
	}
	for _, f := range fields {
		if f.imported {
			continue
		}
		switch f.kw {
		case "func", "global", "memory", "table":
			if err := declare(f, f.kw); err != nil {
				return err
			}
		case "type":
			if _, err := p.types.Declare(f.name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Parser) spaceFor(kind string) *names.Space {
	switch kind {
	case "func":
		return p.funcs
	case "global":
		return p.globals
	case "memory":
		return p.mems
	case "table":
		return p.tables
	}
	return nil
}

func exportKind(kind string) (byte, bool) {
	switch kind {
	case "func":
		return ast.KindFunc, true
	case "table":
		return ast.KindTable, true
	case "memory":
		return ast.KindMemory, true
	case "global":
		return ast.KindGlobal, true
	}
	return 0, false
}

func (p *Parser) parseTypeField() error {
	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	if err := p.expectKeyword("type"); err != nil {
		return err
	}
	p.optionalName()
	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	if err := p.expectKeyword("func"); err != nil {
		return err
	}
	ft, err := p.parseParamsResults(false)
	if err != nil {
		return err
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	p.mod.Types = append(p.mod.Types, ft)
	return nil
}

func (p *Parser) parseImportField(f *field) error {
	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	if err := p.expectKeyword("import"); err != nil {
		return err
	}
	modName, err := p.stringLit()
	if err != nil {
		return err
	}
	name, err := p.stringLit()
	if err != nil {
		return err
	}
	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	inner, err := p.expect(sexp.Ident)
	if err != nil {
		return err
	}
	p.optionalName()

	imp := ast.Import{Module: modName, Name: name}
	switch inner.Value {
	case "func":
		typeIdx, err := p.parseTypeUse(false)
		if err != nil {
			return err
		}
		imp.Kind = ast.KindFunc
		imp.Func = typeIdx
	case "global":
		gt, err := p.parseGlobalType()
		if err != nil {
			return err
		}
		imp.Kind = ast.KindGlobal
		imp.Global = &gt
	case "memory":
		lim, err := p.parseLimits()
		if err != nil {
			return err
		}
		imp.Kind = ast.KindMemory
		imp.Mem = &lim
	case "table":
		tbl, err := p.parseTableType()
		if err != nil {
			return err
		}
		imp.Kind = ast.KindTable
		imp.Table = &tbl
	default:
		return fmt.Errorf("line %d: cannot import %q", inner.Line, inner.Value)
	}

	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	p.mod.Imports = append(p.mod.Imports, imp)
	return nil
}

// parseInlineExports consumes (export "name") forms and records exports of
// the given kind at the field's own index.
func (p *Parser) parseInlineExports(kind byte, idx uint32) error {
	for p.formIs("export") {
		if _, err := p.expect(sexp.LParen); err != nil {
			return err
		}
		if err := p.expectKeyword("export"); err != nil {
			return err
		}
		name, err := p.stringLit()
		if err != nil {
			return err
		}
		if _, err := p.expect(sexp.RParen); err != nil {
			return err
		}
		p.mod.Exports = append(p.mod.Exports, ast.Export{Name: name, Kind: kind, Idx: idx})
	}
	return nil
}

// parseInlineImport consumes an (import "m" "n") form if present and
// returns its module and field names.
func (p *Parser) parseInlineImport() (modName, name string, ok bool, err error) {
	if !p.formIs("import") {
		return "", "", false, nil
	}
	if _, err := p.expect(sexp.LParen); err != nil {
		return "", "", false, err
	}
	if err := p.expectKeyword("import"); err != nil {
		return "", "", false, err
	}
	if modName, err = p.stringLit(); err != nil {
		return "", "", false, err
	}
	if name, err = p.stringLit(); err != nil {
		return "", "", false, err
	}
	if _, err = p.expect(sexp.RParen); err != nil {
		return "", "", false, err
	}
	return modName, name, true, nil
}

func (p *Parser) parseGlobalType() (ast.GlobalType, error) {
	if p.formIs("mut") {
		if _, err := p.expect(sexp.LParen); err != nil {
			return ast.GlobalType{}, err
		}
		if err := p.expectKeyword("mut"); err != nil {
			return ast.GlobalType{}, err
		}
		vt, err := p.parseValType()
		if err != nil {
			return ast.GlobalType{}, err
		}
		if _, err := p.expect(sexp.RParen); err != nil {
			return ast.GlobalType{}, err
		}
		return ast.GlobalType{ValType: vt, Mutable: true}, nil
	}
	vt, err := p.parseValType()
	if err != nil {
		return ast.GlobalType{}, err
	}
	return ast.GlobalType{ValType: vt}, nil
}

func (p *Parser) parseLimits() (ast.Limits, error) {
	min, err := p.parseU32()
	if err != nil {
		return ast.Limits{}, err
	}
	lim := ast.Limits{Min: min}
	if p.peek().Type == sexp.Number {
		max, err := p.parseU32()
		if err != nil {
			return ast.Limits{}, err
		}
		lim.Max = &max
	}
	return lim, nil
}

func (p *Parser) parseTableType() (ast.Table, error) {
	lim, err := p.parseLimits()
	if err != nil {
		return ast.Table{}, err
	}
	if err := p.expectKeyword("funcref"); err != nil {
		return ast.Table{}, err
	}
	return ast.Table{Limits: lim, RefType: byte(ast.ValTypeFuncref)}, nil
}

func (p *Parser) parseGlobalField(f *field) error {
	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	if err := p.expectKeyword("global"); err != nil {
		return err
	}
	p.optionalName()
	if err := p.parseInlineExports(ast.KindGlobal, f.idx); err != nil {
		return err
	}

	modName, name, imported, err := p.parseInlineImport()
	if err != nil {
		return err
	}
	gt, err := p.parseGlobalType()
	if err != nil {
		return err
	}
	if imported {
		if _, err := p.expect(sexp.RParen); err != nil {
			return err
		}
		p.mod.Imports = append(p.mod.Imports, ast.Import{
			Module: modName, Name: name, Kind: ast.KindGlobal, Global: &gt,
		})
		return nil
	}

	p.locals = names.NewSpace("local")
	p.labels = names.ScopeStack{}
	var init []ast.Instr
	if err := p.parseInstrSeq(&init); err != nil {
		return err
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	init = append(init, ast.Instr{Opcode: ast.OpEnd})
	p.mod.Globals = append(p.mod.Globals, ast.Global{Init: init, Type: gt})
	return nil
}

func (p *Parser) parseMemoryField(f *field) error {
	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	if err := p.expectKeyword("memory"); err != nil {
		return err
	}
	p.optionalName()
	if err := p.parseInlineExports(ast.KindMemory, f.idx); err != nil {
		return err
	}

	modName, name, imported, err := p.parseInlineImport()
	if err != nil {
		return err
	}
	lim, err := p.parseLimits()
	if err != nil {
		return err
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	if imported {
		p.mod.Imports = append(p.mod.Imports, ast.Import{
			Module: modName, Name: name, Kind: ast.KindMemory, Mem: &lim,
		})
		return nil
	}
	p.mod.Memories = append(p.mod.Memories, lim)
	return nil
}

func (p *Parser) parseTableField(f *field) error {
	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	if err := p.expectKeyword("table"); err != nil {
		return err
	}
	p.optionalName()
	if err := p.parseInlineExports(ast.KindTable, f.idx); err != nil {
		return err
	}

	modName, name, imported, err := p.parseInlineImport()
	if err != nil {
		return err
	}
	tbl, err := p.parseTableType()
	if err != nil {
		return err
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	if imported {
		p.mod.Imports = append(p.mod.Imports, ast.Import{
			Module: modName, Name: name, Kind: ast.KindTable, Table: &tbl,
		})
		return nil
	}
	p.mod.Tables = append(p.mod.Tables, tbl)
	return nil
}

func (p *Parser) parseExportField() error {
	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	if err := p.expectKeyword("export"); err != nil {
		return err
	}
	name, err := p.stringLit()
	if err != nil {
		return err
	}
	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	kw, err := p.expect(sexp.Ident)
	if err != nil {
		return err
	}
	kind, ok := exportKind(kw.Value)
	if !ok {
		return fmt.Errorf("line %d: cannot export %q", kw.Line, kw.Value)
	}
	idx, err := p.parseIdx(p.spaceFor(kw.Value))
	if err != nil {
		return err
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	p.mod.Exports = append(p.mod.Exports, ast.Export{Name: name, Kind: kind, Idx: idx})
	return nil
}

func (p *Parser) parseStartField() error {
	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	if err := p.expectKeyword("start"); err != nil {
		return err
	}
	idx, err := p.parseIdx(p.funcs)
	if err != nil {
		return err
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	p.mod.Start = &idx
	return nil
}

// parseElemField handles an active element segment: an optional table
// index (only 0 exists pre-reference-types), an offset expression, then
// function indices, with or without the func keyword.
func (p *Parser) parseElemField() error {
	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	if err := p.expectKeyword("elem"); err != nil {
		return err
	}
	p.optionalName()

	if p.labelIdxNext() {
		at := p.peek()
		idx, err := p.parseIdx(p.tables)
		if err != nil {
			return err
		}
		if idx != 0 {
			return fmt.Errorf("line %d: only table 0 is supported", at.Line)
		}
	}

	p.locals = names.NewSpace("local")
	p.labels = names.ScopeStack{}
	var offset []ast.Instr
	if p.formIs("offset") {
		if _, err := p.expect(sexp.LParen); err != nil {
			return err
		}
		if err := p.expectKeyword("offset"); err != nil {
			return err
		}
		if err := p.parseInstrSeq(&offset); err != nil {
			return err
		}
		if _, err := p.expect(sexp.RParen); err != nil {
			return err
		}
	} else {
		if err := p.parseInstr(&offset); err != nil {
			return err
		}
	}
	offset = append(offset, ast.Instr{Opcode: ast.OpEnd})

	if t := p.peek(); !p.done() && t.Type == sexp.Ident && t.Value == "func" {
		p.pos++
	}
	var funcs []uint32
	for p.peek().Type != sexp.RParen {
		idx, err := p.parseIdx(p.funcs)
		if err != nil {
			return err
		}
		funcs = append(funcs, idx)
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	p.mod.Elems = append(p.mod.Elems, ast.ElemSegment{Offset: offset, Funcs: funcs})
	return nil
}

func (p *Parser) parseDataField() error {
	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	if err := p.expectKeyword("data"); err != nil {
		return err
	}

	p.locals = names.NewSpace("local")
	p.labels = names.ScopeStack{}
	var offset []ast.Instr
	if p.formIs("offset") {
		if _, err := p.expect(sexp.LParen); err != nil {
			return err
		}
		if err := p.expectKeyword("offset"); err != nil {
			return err
		}
		if err := p.parseInstrSeq(&offset); err != nil {
			return err
		}
		if _, err := p.expect(sexp.RParen); err != nil {
			return err
		}
	} else {
		if err := p.parseInstr(&offset); err != nil {
			return err
		}
	}
	offset = append(offset, ast.Instr{Opcode: ast.OpEnd})

	var init []byte
	for p.peek().Type == sexp.String {
		s, err := p.stringLit()
		if err != nil {
			return err
		}
		init = append(init, s...)
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	p.mod.Data = append(p.mod.Data, ast.DataSegment{Offset: offset, Init: init})
	return nil
}
