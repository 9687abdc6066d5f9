package wazeroir

import (
	"fmt"

	"github.com/oss-fun/chiwawa/internal/wasm"
)

// decodeSimple handles every operator that carries no branch target and so
// needs no deferred resolution: it is a straight transcription of the
// decoded wasm.Operator into a ProcessedInstr, selecting which Operand
// field is meaningful by opcode family.
func decodeSimple(module *wasm.Module, op wasm.Operator) (ProcessedInstr, error) {
	hid := opHandlerID(op.Op)

	switch op.Op {
	case wasm.OpUnreachable, wasm.OpNop, wasm.OpReturn, wasm.OpDrop, wasm.OpSelect,
		wasm.OpMemorySize, wasm.OpMemoryGrow,
		wasm.OpI32Eqz, wasm.OpI32Eq, wasm.OpI32Ne, wasm.OpI32LtS, wasm.OpI32LtU, wasm.OpI32GtS, wasm.OpI32GtU,
		wasm.OpI32LeS, wasm.OpI32LeU, wasm.OpI32GeS, wasm.OpI32GeU,
		wasm.OpI64Eqz, wasm.OpI64Eq, wasm.OpI64Ne, wasm.OpI64LtS, wasm.OpI64LtU, wasm.OpI64GtS, wasm.OpI64GtU,
		wasm.OpI64LeS, wasm.OpI64LeU, wasm.OpI64GeS, wasm.OpI64GeU,
		wasm.OpF32Eq, wasm.OpF32Ne, wasm.OpF32Lt, wasm.OpF32Gt, wasm.OpF32Le, wasm.OpF32Ge,
		wasm.OpF64Eq, wasm.OpF64Ne, wasm.OpF64Lt, wasm.OpF64Gt, wasm.OpF64Le, wasm.OpF64Ge,
		wasm.OpI32Clz, wasm.OpI32Ctz, wasm.OpI32Popcnt, wasm.OpI32Add, wasm.OpI32Sub, wasm.OpI32Mul,
		wasm.OpI32DivS, wasm.OpI32DivU, wasm.OpI32RemS, wasm.OpI32RemU,
		wasm.OpI32And, wasm.OpI32Or, wasm.OpI32Xor, wasm.OpI32Shl, wasm.OpI32ShrS, wasm.OpI32ShrU, wasm.OpI32Rotl, wasm.OpI32Rotr,
		wasm.OpI64Clz, wasm.OpI64Ctz, wasm.OpI64Popcnt, wasm.OpI64Add, wasm.OpI64Sub, wasm.OpI64Mul,
		wasm.OpI64DivS, wasm.OpI64DivU, wasm.OpI64RemS, wasm.OpI64RemU,
		wasm.OpI64And, wasm.OpI64Or, wasm.OpI64Xor, wasm.OpI64Shl, wasm.OpI64ShrS, wasm.OpI64ShrU, wasm.OpI64Rotl, wasm.OpI64Rotr,
		wasm.OpF32Abs, wasm.OpF32Neg, wasm.OpF32Ceil, wasm.OpF32Floor, wasm.OpF32Trunc, wasm.OpF32Nearest, wasm.OpF32Sqrt,
		wasm.OpF32Add, wasm.OpF32Sub, wasm.OpF32Mul, wasm.OpF32Div, wasm.OpF32Min, wasm.OpF32Max, wasm.OpF32Copysign,
		wasm.OpF64Abs, wasm.OpF64Neg, wasm.OpF64Ceil, wasm.OpF64Floor, wasm.OpF64Trunc, wasm.OpF64Nearest, wasm.OpF64Sqrt,
		wasm.OpF64Add, wasm.OpF64Sub, wasm.OpF64Mul, wasm.OpF64Div, wasm.OpF64Min, wasm.OpF64Max, wasm.OpF64Copysign,
		wasm.OpI32WrapI64,
		wasm.OpI32TruncF32S, wasm.OpI32TruncF32U, wasm.OpI32TruncF64S, wasm.OpI32TruncF64U,
		wasm.OpI64ExtendI32S, wasm.OpI64ExtendI32U,
		wasm.OpI64TruncF32S, wasm.OpI64TruncF32U, wasm.OpI64TruncF64S, wasm.OpI64TruncF64U,
		wasm.OpF32ConvertI32S, wasm.OpF32ConvertI32U, wasm.OpF32ConvertI64S, wasm.OpF32ConvertI64U, wasm.OpF32DemoteF64,
		wasm.OpF64ConvertI32S, wasm.OpF64ConvertI32U, wasm.OpF64ConvertI64S, wasm.OpF64ConvertI64U, wasm.OpF64PromoteF32,
		wasm.OpI32ReinterpretF32, wasm.OpI64ReinterpretF64, wasm.OpF32ReinterpretI32, wasm.OpF64ReinterpretI64,
		wasm.OpI32Extend8S, wasm.OpI32Extend16S, wasm.OpI64Extend8S, wasm.OpI64Extend16S, wasm.OpI64Extend32S,
		wasm.OpI32TruncSatF32S, wasm.OpI32TruncSatF32U, wasm.OpI32TruncSatF64S, wasm.OpI32TruncSatF64U,
		wasm.OpI64TruncSatF32S, wasm.OpI64TruncSatF32U, wasm.OpI64TruncSatF64S, wasm.OpI64TruncSatF64U,
		wasm.OpRefIsNull:
		return ProcessedInstr{HandlerID: hid}, nil

	case wasm.OpLocalGet, wasm.OpLocalSet, wasm.OpLocalTee:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandLocalIdx, Index: op.Index}}, nil

	case wasm.OpGlobalGet, wasm.OpGlobalSet:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandGlobalIdx, Index: op.Index}}, nil

	case wasm.OpCall:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandFuncIdx, Index: op.Index}}, nil

	case wasm.OpCallIndirect:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandCallIndirect, Call: CallIndirectArgs{TypeIdx: op.Index, TableIdx: op.Index2}}}, nil

	case wasm.OpI32Load, wasm.OpI64Load, wasm.OpF32Load, wasm.OpF64Load,
		wasm.OpI32Load8S, wasm.OpI32Load8U, wasm.OpI32Load16S, wasm.OpI32Load16U,
		wasm.OpI64Load8S, wasm.OpI64Load8U, wasm.OpI64Load16S, wasm.OpI64Load16U, wasm.OpI64Load32S, wasm.OpI64Load32U,
		wasm.OpI32Store, wasm.OpI64Store, wasm.OpF32Store, wasm.OpF64Store,
		wasm.OpI32Store8, wasm.OpI32Store16, wasm.OpI64Store8, wasm.OpI64Store16, wasm.OpI64Store32:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandMemArg, Mem: MemArg{Offset: op.Mem.Offset, Align: op.Mem.Align}}}, nil

	case wasm.OpMemoryCopy, wasm.OpTableCopy:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandMemoryCopyArgs, CopyIdx: MemoryCopyArgs{DstIndex: op.Index, SrcIndex: op.Index2}}}, nil

	case wasm.OpMemoryInit:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandDataIdx, Index: op.Index}}, nil
	case wasm.OpDataDrop:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandDataIdx, Index: op.Index}}, nil

	case wasm.OpTableInit:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandMemoryCopyArgs, CopyIdx: MemoryCopyArgs{DstIndex: op.Index2, SrcIndex: op.Index}}}, nil
	case wasm.OpElemDrop:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandElemIdx, Index: op.Index}}, nil

	case wasm.OpTableGet, wasm.OpTableSet, wasm.OpTableSize, wasm.OpTableGrow, wasm.OpTableFill:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandTableIdx, Index: op.Index}}, nil

	case wasm.OpRefNull:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandRefType, RefType: op.RefType}}, nil
	case wasm.OpRefFunc:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandFuncIdx, Index: op.Index}}, nil

	case wasm.OpI32Const:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandImmI32, ImmI32: op.I32}}, nil
	case wasm.OpI64Const:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandImmI64, ImmI64: op.I64}}, nil
	case wasm.OpF32Const:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandImmF32, ImmF32: op.F32}}, nil
	case wasm.OpF64Const:
		return ProcessedInstr{HandlerID: hid, Operand: Operand{Kind: OperandImmF64, ImmF64: op.F64}}, nil

	case wasm.OpMemoryFill:
		return ProcessedInstr{HandlerID: hid}, nil
	}

	return ProcessedInstr{}, fmt.Errorf("unhandled opcode %d", op.Op)
}
