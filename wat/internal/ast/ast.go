package ast

// Module is the decoded form of one text module, ready for binary
// encoding. Index spaces are already numeric: name resolution happens
// during parsing, never here.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // type index per defined function
	Tables   []Table
	Memories []Limits
	Globals  []Global
	Exports  []Export
	Start    *uint32
	Elems    []ElemSegment
	Code     []FuncBody
	Data     []DataSegment
}

type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (ft FuncType) Equal(other FuncType) bool {
	if len(ft.Params) != len(other.Params) || len(ft.Results) != len(other.Results) {
		return false
	}
	for i, p := range ft.Params {
		if p != other.Params[i] {
			return false
		}
	}
	for i, r := range ft.Results {
		if r != other.Results[i] {
			return false
		}
	}
	return true
}

type Import struct {
	Module string
	Name   string
	Kind   byte
	Func   uint32 // type index, KindFunc only
	Table  *Table
	Mem    *Limits
	Global *GlobalType
}

type Table struct {
	Limits  Limits
	RefType byte
}

type Limits struct {
	Max *uint32
	Min uint32
}

type Global struct {
	Init []Instr
	Type GlobalType
}

type GlobalType struct {
	ValType ValType
	Mutable bool
}

type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

type FuncBody struct {
	Locals []ValType
	Code   []Instr
}

type DataSegment struct {
	Offset []Instr
	Init   []byte
}

// ElemSegment is an active element segment populating table 0.
type ElemSegment struct {
	Offset []Instr
	Funcs  []uint32
}

// Instr pairs an opcode with its immediate. The immediate's Go type
// selects the binary encoding: uint32 index, int32/int64 signed LEB,
// F32Imm/F64Imm raw little-endian bits, Memarg, BlockType, or byte.
// Float immediates are bit patterns so NaN payloads encode exactly.
type Instr struct {
	Imm    any
	Opcode byte
}

type F32Imm uint32
type F64Imm uint64

type Memarg struct {
	Align  uint32
	Offset uint32
}

// BrTableImm is the br_table immediate: the branch target vector plus the
// default label, all already resolved to relative depths.
type BrTableImm struct {
	Labels  []uint32
	Default uint32
}

// CallIndirectImm is the call_indirect immediate: the callee signature and
// the table dispatched through.
type CallIndirectImm struct {
	Type  uint32
	Table uint32
}

// BlockType is either a shorthand (empty or one result, in Simple) or a
// reference into the type section (TypeIdx >= 0).
type BlockType struct {
	TypeIdx int32
	Simple  byte
}
