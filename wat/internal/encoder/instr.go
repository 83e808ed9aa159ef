package encoder

import (
	"github.com/wippyai/wast-harness/wat/internal/ast"
)

// EncodeInstr writes one instruction. The immediate's Go type selects its
// encoding; the parser guarantees the pairing is right for the opcode.
func EncodeInstr(buf *Buffer, ins ast.Instr) {
	buf.AppendByte(ins.Opcode)

	switch imm := ins.Imm.(type) {
	case nil:

	case uint32: // index immediates: labels, funcs, locals, globals
		buf.WriteU32(imm)

	case ast.BrTableImm:
		buf.WriteU32(uint32(len(imm.Labels)))
		for _, l := range imm.Labels {
			buf.WriteU32(l)
		}
		buf.WriteU32(imm.Default)

	case ast.CallIndirectImm:
		buf.WriteU32(imm.Type)
		buf.WriteU32(imm.Table)

	case int32: // i32.const
		buf.WriteI32(imm)

	case int64: // i64.const
		buf.WriteI64(imm)

	case ast.F32Imm:
		buf.WriteF32Bits(uint32(imm))

	case ast.F64Imm:
		buf.WriteF64Bits(uint64(imm))

	case ast.Memarg:
		buf.WriteU32(imm.Align)
		buf.WriteU32(imm.Offset)

	case ast.BlockType:
		if imm.TypeIdx >= 0 {
			buf.WriteI64(int64(imm.TypeIdx))
		} else {
			buf.AppendByte(imm.Simple)
		}

	case byte: // memory.size / memory.grow memory index
		buf.AppendByte(imm)
	}
}
