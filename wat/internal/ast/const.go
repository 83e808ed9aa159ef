package ast

type ValType byte

const (
	ValTypeI32     ValType = 0x7F
	ValTypeI64     ValType = 0x7E
	ValTypeF32     ValType = 0x7D
	ValTypeF64     ValType = 0x7C
	ValTypeFuncref ValType = 0x70
)

const BlockTypeEmpty byte = 0x40

const (
	KindFunc   byte = 0
	KindTable  byte = 1
	KindMemory byte = 2
	KindGlobal byte = 3
)

const (
	SectionType   byte = 1
	SectionImport byte = 2
	SectionFunc   byte = 3
	SectionTable  byte = 4
	SectionMemory byte = 5
	SectionGlobal byte = 6
	SectionExport byte = 7
	SectionStart  byte = 8
	SectionElem   byte = 9
	SectionCode   byte = 10
	SectionData   byte = 11
)

const FuncTypeMarker byte = 0x60

const (
	OpBlock    byte = 0x02
	OpLoop     byte = 0x03
	OpIf       byte = 0x04
	OpElse     byte = 0x05
	OpEnd      byte = 0x0B
	OpI32Const byte = 0x41
)
