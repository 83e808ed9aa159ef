package parser

import (
	"fmt"
	"strings"

	"github.com/wippyai/wast-harness/internal/sexp"
	"github.com/wippyai/wast-harness/wat/internal/ast"
	"github.com/wippyai/wast-harness/wat/internal/names"
)

func (p *Parser) parseFuncField(f *field) error {
	if _, err := p.expect(sexp.LParen); err != nil {
		return err
	}
	if err := p.expectKeyword("func"); err != nil {
		return err
	}
	p.optionalName()
	if err := p.parseInlineExports(ast.KindFunc, f.idx); err != nil {
		return err
	}

	modName, name, imported, err := p.parseInlineImport()
	if err != nil {
		return err
	}
	if imported {
		typeIdx, err := p.parseTypeUse(false)
		if err != nil {
			return err
		}
		if _, err := p.expect(sexp.RParen); err != nil {
			return err
		}
		p.mod.Imports = append(p.mod.Imports, ast.Import{
			Module: modName, Name: name, Kind: ast.KindFunc, Func: typeIdx,
		})
		return nil
	}

	p.locals = names.NewSpace("local")
	p.labels = names.ScopeStack{}

	typeIdx, err := p.parseTypeUse(true)
	if err != nil {
		return err
	}

	var locals []ast.ValType
	for p.formIs("local") {
		if _, err := p.expect(sexp.LParen); err != nil {
			return err
		}
		if err := p.expectKeyword("local"); err != nil {
			return err
		}
		if t := p.peek(); t.Type == sexp.Ident && strings.HasPrefix(t.Value, "$") {
			p.pos++
			vt, err := p.parseValType()
			if err != nil {
				return err
			}
			if _, err := p.locals.Declare(t.Value); err != nil {
				return fmt.Errorf("line %d: %v", t.Line, err)
			}
			locals = append(locals, vt)
		} else {
			for p.peek().Type != sexp.RParen {
				vt, err := p.parseValType()
				if err != nil {
					return err
				}
				if _, err := p.locals.Declare(""); err != nil {
					return err
				}
				locals = append(locals, vt)
			}
		}
		if _, err := p.expect(sexp.RParen); err != nil {
			return err
		}
	}

	var body []ast.Instr
	if err := p.parseInstrSeq(&body); err != nil {
		return err
	}
	if _, err := p.expect(sexp.RParen); err != nil {
		return err
	}
	body = append(body, ast.Instr{Opcode: ast.OpEnd})

	p.mod.Funcs = append(p.mod.Funcs, typeIdx)
	p.mod.Code = append(p.mod.Code, ast.FuncBody{Locals: locals, Code: body})
	return nil
}

// parseTypeUse reads an optional (type idx) reference plus inline
// (param ...) / (result ...) forms, and returns the resulting type index.
// With declareParams set, parameter names enter the local index space.
func (p *Parser) parseTypeUse(declareParams bool) (uint32, error) {
	explicit := int32(-1)
	if p.formIs("type") {
		if _, err := p.expect(sexp.LParen); err != nil {
			return 0, err
		}
		if err := p.expectKeyword("type"); err != nil {
			return 0, err
		}
		at := p.peek()
		idx, err := p.parseIdx(p.types)
		if err != nil {
			return 0, err
		}
		if _, err := p.expect(sexp.RParen); err != nil {
			return 0, err
		}
		if int(idx) >= len(p.mod.Types) {
			return 0, fmt.Errorf("line %d: type index %d out of range", at.Line, idx)
		}
		explicit = int32(idx)
	}

	ft, err := p.parseParamsResults(declareParams)
	if err != nil {
		return 0, err
	}

	if explicit >= 0 {
		declared := p.mod.Types[explicit]
		if len(ft.Params) == 0 && len(ft.Results) == 0 {
			if declareParams {
				for range declared.Params {
					if _, err := p.locals.Declare(""); err != nil {
						return 0, err
					}
				}
			}
		} else if !declared.Equal(ft) {
			return 0, fmt.Errorf("inline signature does not match type %d", explicit)
		}
		return uint32(explicit), nil
	}
	return p.findOrAddType(ft), nil
}

// parseParamsResults reads consecutive (param ...) then (result ...)
// forms. A named parameter form declares exactly one value.
func (p *Parser) parseParamsResults(declareParams bool) (ast.FuncType, error) {
	var ft ast.FuncType
	for p.formIs("param") {
		if _, err := p.expect(sexp.LParen); err != nil {
			return ft, err
		}
		if err := p.expectKeyword("param"); err != nil {
			return ft, err
		}
		if t := p.peek(); t.Type == sexp.Ident && strings.HasPrefix(t.Value, "$") {
			p.pos++
			vt, err := p.parseValType()
			if err != nil {
				return ft, err
			}
			if declareParams {
				if _, err := p.locals.Declare(t.Value); err != nil {
					return ft, fmt.Errorf("line %d: %v", t.Line, err)
				}
			}
			ft.Params = append(ft.Params, vt)
		} else {
			for p.peek().Type != sexp.RParen {
				vt, err := p.parseValType()
				if err != nil {
					return ft, err
				}
				if declareParams {
					if _, err := p.locals.Declare(""); err != nil {
						return ft, err
					}
				}
				ft.Params = append(ft.Params, vt)
			}
		}
		if _, err := p.expect(sexp.RParen); err != nil {
			return ft, err
		}
	}
	for p.formIs("result") {
		if _, err := p.expect(sexp.LParen); err != nil {
			return ft, err
		}
		if err := p.expectKeyword("result"); err != nil {
			return ft, err
		}
		for p.peek().Type != sexp.RParen {
			vt, err := p.parseValType()
			if err != nil {
				return ft, err
			}
			ft.Results = append(ft.Results, vt)
		}
		if _, err := p.expect(sexp.RParen); err != nil {
			return ft, err
		}
	}
	return ft, nil
}
