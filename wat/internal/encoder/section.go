package encoder

import (
	"github.com/wippyai/wast-harness/wat/internal/ast"
)

func writeSection(buf *Buffer, id byte, content *Buffer) {
	buf.AppendByte(id)
	buf.WriteU32(uint32(len(content.Bytes)))
	buf.WriteBytes(content.Bytes)
}

func writeFuncType(sec *Buffer, ft ast.FuncType) {
	sec.AppendByte(ast.FuncTypeMarker)
	sec.WriteU32(uint32(len(ft.Params)))
	for _, p := range ft.Params {
		sec.AppendByte(byte(p))
	}
	sec.WriteU32(uint32(len(ft.Results)))
	for _, r := range ft.Results {
		sec.AppendByte(byte(r))
	}
}

func writeGlobalType(sec *Buffer, gt ast.GlobalType) {
	sec.AppendByte(byte(gt.ValType))
	if gt.Mutable {
		sec.AppendByte(0x01)
	} else {
		sec.AppendByte(0x00)
	}
}

func encodeTypeSection(buf *Buffer, m *ast.Module) {
	sec := &Buffer{}
	sec.WriteU32(uint32(len(m.Types)))
	for _, ft := range m.Types {
		writeFuncType(sec, ft)
	}
	writeSection(buf, ast.SectionType, sec)
}

func encodeImportSection(buf *Buffer, m *ast.Module) {
	sec := &Buffer{}
	sec.WriteU32(uint32(len(m.Imports)))
	for _, imp := range m.Imports {
		sec.WriteString(imp.Module)
		sec.WriteString(imp.Name)
		sec.AppendByte(imp.Kind)
		switch imp.Kind {
		case ast.KindFunc:
			sec.WriteU32(imp.Func)
		case ast.KindTable:
			sec.AppendByte(imp.Table.RefType)
			sec.WriteLimits(imp.Table.Limits.Min, imp.Table.Limits.Max)
		case ast.KindMemory:
			sec.WriteLimits(imp.Mem.Min, imp.Mem.Max)
		case ast.KindGlobal:
			writeGlobalType(sec, *imp.Global)
		}
	}
	writeSection(buf, ast.SectionImport, sec)
}

func encodeFuncSection(buf *Buffer, m *ast.Module) {
	sec := &Buffer{}
	sec.WriteU32(uint32(len(m.Funcs)))
	for _, typeIdx := range m.Funcs {
		sec.WriteU32(typeIdx)
	}
	writeSection(buf, ast.SectionFunc, sec)
}

func encodeTableSection(buf *Buffer, m *ast.Module) {
	sec := &Buffer{}
	sec.WriteU32(uint32(len(m.Tables)))
	for _, t := range m.Tables {
		sec.AppendByte(t.RefType)
		sec.WriteLimits(t.Limits.Min, t.Limits.Max)
	}
	writeSection(buf, ast.SectionTable, sec)
}

func encodeMemorySection(buf *Buffer, m *ast.Module) {
	sec := &Buffer{}
	sec.WriteU32(uint32(len(m.Memories)))
	for _, lim := range m.Memories {
		sec.WriteLimits(lim.Min, lim.Max)
	}
	writeSection(buf, ast.SectionMemory, sec)
}

func encodeGlobalSection(buf *Buffer, m *ast.Module) {
	sec := &Buffer{}
	sec.WriteU32(uint32(len(m.Globals)))
	for _, g := range m.Globals {
		writeGlobalType(sec, g.Type)
		for _, instr := range g.Init {
			EncodeInstr(sec, instr)
		}
	}
	writeSection(buf, ast.SectionGlobal, sec)
}

func encodeExportSection(buf *Buffer, m *ast.Module) {
	sec := &Buffer{}
	sec.WriteU32(uint32(len(m.Exports)))
	for _, e := range m.Exports {
		sec.WriteString(e.Name)
		sec.AppendByte(e.Kind)
		sec.WriteU32(e.Idx)
	}
	writeSection(buf, ast.SectionExport, sec)
}

func encodeStartSection(buf *Buffer, m *ast.Module) {
	sec := &Buffer{}
	sec.WriteU32(*m.Start)
	writeSection(buf, ast.SectionStart, sec)
}

func encodeElemSection(buf *Buffer, m *ast.Module) {
	sec := &Buffer{}
	sec.WriteU32(uint32(len(m.Elems)))
	for _, e := range m.Elems {
		sec.AppendByte(0x00) // active, table 0
		for _, instr := range e.Offset {
			EncodeInstr(sec, instr)
		}
		sec.WriteU32(uint32(len(e.Funcs)))
		for _, f := range e.Funcs {
			sec.WriteU32(f)
		}
	}
	writeSection(buf, ast.SectionElem, sec)
}

func encodeCodeSection(buf *Buffer, m *ast.Module) {
	sec := &Buffer{}
	sec.WriteU32(uint32(len(m.Code)))
	for _, c := range m.Code {
		body := &Buffer{}

		// Consecutive locals of one type collapse into a single group
		type localGroup struct {
			count uint32
			vt    ast.ValType
		}
		var groups []localGroup
		for _, l := range c.Locals {
			if len(groups) > 0 && groups[len(groups)-1].vt == l {
				groups[len(groups)-1].count++
			} else {
				groups = append(groups, localGroup{1, l})
			}
		}

		body.WriteU32(uint32(len(groups)))
		for _, g := range groups {
			body.WriteU32(g.count)
			body.AppendByte(byte(g.vt))
		}

		for _, instr := range c.Code {
			EncodeInstr(body, instr)
		}

		sec.WriteU32(uint32(len(body.Bytes)))
		sec.WriteBytes(body.Bytes)
	}
	writeSection(buf, ast.SectionCode, sec)
}

func encodeDataSection(buf *Buffer, m *ast.Module) {
	sec := &Buffer{}
	sec.WriteU32(uint32(len(m.Data)))
	for _, d := range m.Data {
		sec.AppendByte(0x00) // active, memory 0
		for _, instr := range d.Offset {
			EncodeInstr(sec, instr)
		}
		sec.WriteU32(uint32(len(d.Init)))
		sec.WriteBytes(d.Init)
	}
	writeSection(buf, ast.SectionData, sec)
}
