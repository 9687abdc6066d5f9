package interpreter

import (
	"github.com/oss-fun/chiwawa/internal/wasm"
	"github.com/oss-fun/chiwawa/internal/wazeroir"
)

// handlerTable is the dense array runFrame dispatches through: index i holds
// the handler for wasm.Opcode(i) below wazeroir.HandlerIDCount()'s opcode
// range, or one of the folded/synthetic ids at and above wasm.OpcodeCount
// (spec.md §4.2 "Handler Table"). Every slot is populated at init time;
// unused slots default to hNotImplemented so an unrecognized HandlerID
// traps instead of panicking on a nil function value.
var handlerTable = buildHandlerTable()

func buildHandlerTable() []Handler {
	t := make([]Handler, wazeroir.HandlerIDCount())
	for i := range t {
		t[i] = hNotImplemented
	}

	set := func(op wasm.Opcode, h Handler) { t[op] = h }

	set(wasm.OpUnreachable, hUnreachable)
	set(wasm.OpNop, hNop)
	set(wasm.OpBlock, hBlock)
	set(wasm.OpLoop, hLoop)
	set(wasm.OpIf, hIf)
	set(wasm.OpElse, hElse)
	set(wasm.OpEnd, hEnd)
	set(wasm.OpBr, hBr)
	set(wasm.OpBrIf, hBrIf)
	set(wasm.OpBrTable, hBrTable)
	set(wasm.OpReturn, hReturn)
	set(wasm.OpCall, hCall)
	set(wasm.OpCallIndirect, hCallIndirect)
	set(wasm.OpDrop, hDrop)
	set(wasm.OpSelect, hSelect)

	set(wasm.OpLocalGet, hLocalGet)
	set(wasm.OpLocalSet, hLocalSet)
	set(wasm.OpLocalTee, hLocalTee)
	set(wasm.OpGlobalGet, hGlobalGet)
	set(wasm.OpGlobalSet, hGlobalSet)

	set(wasm.OpI32Load, hI32Load)
	set(wasm.OpI64Load, hI64Load)
	set(wasm.OpF32Load, hF32Load)
	set(wasm.OpF64Load, hF64Load)
	set(wasm.OpI32Load8S, hI32Load8S)
	set(wasm.OpI32Load8U, hI32Load8U)
	set(wasm.OpI32Load16S, hI32Load16S)
	set(wasm.OpI32Load16U, hI32Load16U)
	set(wasm.OpI64Load8S, hI64Load8S)
	set(wasm.OpI64Load8U, hI64Load8U)
	set(wasm.OpI64Load16S, hI64Load16S)
	set(wasm.OpI64Load16U, hI64Load16U)
	set(wasm.OpI64Load32S, hI64Load32S)
	set(wasm.OpI64Load32U, hI64Load32U)
	set(wasm.OpI32Store, hI32Store)
	set(wasm.OpI64Store, hI64Store)
	set(wasm.OpF32Store, hF32Store)
	set(wasm.OpF64Store, hF64Store)
	set(wasm.OpI32Store8, hI32Store8)
	set(wasm.OpI32Store16, hI32Store16)
	set(wasm.OpI64Store8, hI64Store8)
	set(wasm.OpI64Store16, hI64Store16)
	set(wasm.OpI64Store32, hI64Store32)
	set(wasm.OpMemorySize, hMemorySize)
	set(wasm.OpMemoryGrow, hMemoryGrow)
	set(wasm.OpMemoryCopy, hMemoryCopy)
	set(wasm.OpMemoryFill, hMemoryFill)
	set(wasm.OpMemoryInit, hMemoryInit)
	set(wasm.OpDataDrop, hDataDrop)

	set(wasm.OpTableGet, hTableGet)
	set(wasm.OpTableSet, hTableSet)
	set(wasm.OpTableSize, hTableSize)
	set(wasm.OpTableGrow, hTableGrow)
	set(wasm.OpTableCopy, hTableCopy)
	set(wasm.OpTableInit, hTableInit)
	set(wasm.OpElemDrop, hElemDrop)
	set(wasm.OpTableFill, hTableFill)
	set(wasm.OpRefNull, hRefNull)
	set(wasm.OpRefIsNull, hRefIsNull)
	set(wasm.OpRefFunc, hRefFunc)

	set(wasm.OpI32Const, hI32Const)
	set(wasm.OpI64Const, hI64Const)
	set(wasm.OpF32Const, hF32Const)
	set(wasm.OpF64Const, hF64Const)

	set(wasm.OpI32Eqz, hI32Eqz)
	set(wasm.OpI32Eq, hI32Eq)
	set(wasm.OpI32Ne, hI32Ne)
	set(wasm.OpI32LtS, hI32LtS)
	set(wasm.OpI32LtU, hI32LtU)
	set(wasm.OpI32GtS, hI32GtS)
	set(wasm.OpI32GtU, hI32GtU)
	set(wasm.OpI32LeS, hI32LeS)
	set(wasm.OpI32LeU, hI32LeU)
	set(wasm.OpI32GeS, hI32GeS)
	set(wasm.OpI32GeU, hI32GeU)
	set(wasm.OpI64Eqz, hI64Eqz)
	set(wasm.OpI64Eq, hI64Eq)
	set(wasm.OpI64Ne, hI64Ne)
	set(wasm.OpI64LtS, hI64LtS)
	set(wasm.OpI64LtU, hI64LtU)
	set(wasm.OpI64GtS, hI64GtS)
	set(wasm.OpI64GtU, hI64GtU)
	set(wasm.OpI64LeS, hI64LeS)
	set(wasm.OpI64LeU, hI64LeU)
	set(wasm.OpI64GeS, hI64GeS)
	set(wasm.OpI64GeU, hI64GeU)
	set(wasm.OpF32Eq, hF32Eq)
	set(wasm.OpF32Ne, hF32Ne)
	set(wasm.OpF32Lt, hF32Lt)
	set(wasm.OpF32Gt, hF32Gt)
	set(wasm.OpF32Le, hF32Le)
	set(wasm.OpF32Ge, hF32Ge)
	set(wasm.OpF64Eq, hF64Eq)
	set(wasm.OpF64Ne, hF64Ne)
	set(wasm.OpF64Lt, hF64Lt)
	set(wasm.OpF64Gt, hF64Gt)
	set(wasm.OpF64Le, hF64Le)
	set(wasm.OpF64Ge, hF64Ge)

	set(wasm.OpI32Clz, hI32Clz)
	set(wasm.OpI32Ctz, hI32Ctz)
	set(wasm.OpI32Popcnt, hI32Popcnt)
	set(wasm.OpI32Add, hI32Add)
	set(wasm.OpI32Sub, hI32Sub)
	set(wasm.OpI32Mul, hI32Mul)
	set(wasm.OpI32DivS, hI32DivS)
	set(wasm.OpI32DivU, hI32DivU)
	set(wasm.OpI32RemS, hI32RemS)
	set(wasm.OpI32RemU, hI32RemU)
	set(wasm.OpI32And, hI32And)
	set(wasm.OpI32Or, hI32Or)
	set(wasm.OpI32Xor, hI32Xor)
	set(wasm.OpI32Shl, hI32Shl)
	set(wasm.OpI32ShrS, hI32ShrS)
	set(wasm.OpI32ShrU, hI32ShrU)
	set(wasm.OpI32Rotl, hI32Rotl)
	set(wasm.OpI32Rotr, hI32Rotr)

	set(wasm.OpI64Clz, hI64Clz)
	set(wasm.OpI64Ctz, hI64Ctz)
	set(wasm.OpI64Popcnt, hI64Popcnt)
	set(wasm.OpI64Add, hI64Add)
	set(wasm.OpI64Sub, hI64Sub)
	set(wasm.OpI64Mul, hI64Mul)
	set(wasm.OpI64DivS, hI64DivS)
	set(wasm.OpI64DivU, hI64DivU)
	set(wasm.OpI64RemS, hI64RemS)
	set(wasm.OpI64RemU, hI64RemU)
	set(wasm.OpI64And, hI64And)
	set(wasm.OpI64Or, hI64Or)
	set(wasm.OpI64Xor, hI64Xor)
	set(wasm.OpI64Shl, hI64Shl)
	set(wasm.OpI64ShrS, hI64ShrS)
	set(wasm.OpI64ShrU, hI64ShrU)
	set(wasm.OpI64Rotl, hI64Rotl)
	set(wasm.OpI64Rotr, hI64Rotr)

	set(wasm.OpF32Abs, hF32Abs)
	set(wasm.OpF32Neg, hF32Neg)
	set(wasm.OpF32Ceil, hF32Ceil)
	set(wasm.OpF32Floor, hF32Floor)
	set(wasm.OpF32Trunc, hF32Trunc)
	set(wasm.OpF32Nearest, hF32Nearest)
	set(wasm.OpF32Sqrt, hF32Sqrt)
	set(wasm.OpF32Add, hF32Add)
	set(wasm.OpF32Sub, hF32Sub)
	set(wasm.OpF32Mul, hF32Mul)
	set(wasm.OpF32Div, hF32Div)
	set(wasm.OpF32Min, hF32Min)
	set(wasm.OpF32Max, hF32Max)
	set(wasm.OpF32Copysign, hF32Copysign)

	set(wasm.OpF64Abs, hF64Abs)
	set(wasm.OpF64Neg, hF64Neg)
	set(wasm.OpF64Ceil, hF64Ceil)
	set(wasm.OpF64Floor, hF64Floor)
	set(wasm.OpF64Trunc, hF64Trunc)
	set(wasm.OpF64Nearest, hF64Nearest)
	set(wasm.OpF64Sqrt, hF64Sqrt)
	set(wasm.OpF64Add, hF64Add)
	set(wasm.OpF64Sub, hF64Sub)
	set(wasm.OpF64Mul, hF64Mul)
	set(wasm.OpF64Div, hF64Div)
	set(wasm.OpF64Min, hF64Min)
	set(wasm.OpF64Max, hF64Max)
	set(wasm.OpF64Copysign, hF64Copysign)

	set(wasm.OpI32WrapI64, hI32WrapI64)
	set(wasm.OpI32TruncF32S, hI32TruncF32S)
	set(wasm.OpI32TruncF32U, hI32TruncF32U)
	set(wasm.OpI32TruncF64S, hI32TruncF64S)
	set(wasm.OpI32TruncF64U, hI32TruncF64U)
	set(wasm.OpI64ExtendI32S, hI64ExtendI32S)
	set(wasm.OpI64ExtendI32U, hI64ExtendI32U)
	set(wasm.OpI64TruncF32S, hI64TruncF32S)
	set(wasm.OpI64TruncF32U, hI64TruncF32U)
	set(wasm.OpI64TruncF64S, hI64TruncF64S)
	set(wasm.OpI64TruncF64U, hI64TruncF64U)
	set(wasm.OpF32ConvertI32S, hF32ConvertI32S)
	set(wasm.OpF32ConvertI32U, hF32ConvertI32U)
	set(wasm.OpF32ConvertI64S, hF32ConvertI64S)
	set(wasm.OpF32ConvertI64U, hF32ConvertI64U)
	set(wasm.OpF32DemoteF64, hF32DemoteF64)
	set(wasm.OpF64ConvertI32S, hF64ConvertI32S)
	set(wasm.OpF64ConvertI32U, hF64ConvertI32U)
	set(wasm.OpF64ConvertI64S, hF64ConvertI64S)
	set(wasm.OpF64ConvertI64U, hF64ConvertI64U)
	set(wasm.OpF64PromoteF32, hF64PromoteF32)
	set(wasm.OpI32ReinterpretF32, hI32ReinterpretF32)
	set(wasm.OpI64ReinterpretF64, hI64ReinterpretF64)
	set(wasm.OpF32ReinterpretI32, hF32ReinterpretI32)
	set(wasm.OpF64ReinterpretI64, hF64ReinterpretI64)
	set(wasm.OpI32Extend8S, hI32Extend8S)
	set(wasm.OpI32Extend16S, hI32Extend16S)
	set(wasm.OpI64Extend8S, hI64Extend8S)
	set(wasm.OpI64Extend16S, hI64Extend16S)
	set(wasm.OpI64Extend32S, hI64Extend32S)
	set(wasm.OpI32TruncSatF32S, hI32TruncSatF32S)
	set(wasm.OpI32TruncSatF32U, hI32TruncSatF32U)
	set(wasm.OpI32TruncSatF64S, hI32TruncSatF64S)
	set(wasm.OpI32TruncSatF64U, hI32TruncSatF64U)
	set(wasm.OpI64TruncSatF32S, hI64TruncSatF32S)
	set(wasm.OpI64TruncSatF32U, hI64TruncSatF32U)
	set(wasm.OpI64TruncSatF64S, hI64TruncSatF64S)
	set(wasm.OpI64TruncSatF64U, hI64TruncSatF64U)

	t[wazeroir.HNopFolded] = hNopFolded
	t[wazeroir.HOptimizedSingle] = hOptimizedSingle
	t[wazeroir.HOptimizedDouble] = hOptimizedDouble
	t[wazeroir.HNotImplemented] = hNotImplemented

	return t
}
