package wazeroir

import (
	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/wasm"
)

// Fold implements spec.md §4.1 Phase 5: it absorbs constant/local/global
// producers into the consumer that immediately follows them, and absorbs a
// trailing local.set/global.set into the consumer that immediately precedes
// it, producing Optimized(Single|Double) superinstructions. Absorbed
// instructions are overwritten with HNopFolded in place, per spec.md §9
// "Folding and NOPs vs. renumbering" — every target_ip computed by
// resolveBranches stays valid.
//
// This is a single linear pass with a strictly-adjacent lookback window (at
// most the 1 or 2 instructions immediately preceding a consumer): the
// compact case spec.md calls out ("const k" / "local.get i" immediately
// feeding a unary or binary op, optionally immediately followed by
// local.set/global.set) is exactly the pattern emitted by straightforward
// compilers and by chiwawa's own test fixtures. A producer consumed this way
// can, by construction, never be folded into more than one consumer, since
// each pc is visited as a producer candidate only by the single instruction
// directly after it.
//
// A folded producer's own pc can legally be a branch target — e.g. a loop
// whose body opens with "i32.const k" immediately feeding the next op — but
// this is still safe without a guard: a producer is always a pure const/
// local.get/global.get read with no side effect beyond its own push, so
// landing directly on its now-HNopFolded slot and falling through to the
// consumer yields the same net stack height and the same value the
// consumer would have read by executing the producer first. The two code
// paths are only ever distinguishable by instruction count, never by
// result.
func Fold(code []ProcessedInstr) {
	for pc := 0; pc < len(code); pc++ {
		instr := &code[pc]

		if src, mem, ok := matchLoadAddressFold(code, pc); ok {
			op := instr.HandlerID
			instr.Operand = Operand{Kind: OperandOptimizedSingle, Opt: Optimized{Op: op, Binary: false, Src1: src, Mem: mem}}
			instr.HandlerID = HOptimizedSingle
			code[pc-1] = ProcessedInstr{HandlerID: HNopFolded}
			foldTrailingStore(code, pc)
			continue
		}
		if src, ok := matchUnaryFold(code, pc); ok {
			op := instr.HandlerID
			instr.Operand = Operand{Kind: OperandOptimizedSingle, Opt: Optimized{Op: op, Binary: false, Src1: src}}
			instr.HandlerID = HOptimizedSingle
			code[pc-1] = ProcessedInstr{HandlerID: HNopFolded}
			foldTrailingStore(code, pc)
			continue
		}
		if src1, src2, ok := matchBinaryFold(code, pc); ok {
			op := instr.HandlerID
			instr.Operand = Operand{Kind: OperandOptimizedDouble, Opt: Optimized{Op: op, Binary: true, Src1: src1, Src2: src2}}
			instr.HandlerID = HOptimizedDouble
			code[pc-2] = ProcessedInstr{HandlerID: HNopFolded}
			code[pc-1] = ProcessedInstr{HandlerID: HNopFolded}
			foldTrailingStore(code, pc)
			continue
		}
	}
}

func isProducer(instr ProcessedInstr) bool {
	switch instr.Operand.Kind {
	case OperandImmI32, OperandImmI64, OperandImmF32, OperandImmF64:
		return true
	case OperandLocalIdx:
		return instr.HandlerID == opHandlerID(wasm.OpLocalGet)
	case OperandGlobalIdx:
		return instr.HandlerID == opHandlerID(wasm.OpGlobalGet)
	}
	return false
}

func toValueSource(instr ProcessedInstr) ValueSource {
	switch instr.Operand.Kind {
	case OperandImmI32:
		return ValueSource{Kind: SourceConst, Const: api.I32(instr.Operand.ImmI32)}
	case OperandImmI64:
		return ValueSource{Kind: SourceConst, Const: api.I64(instr.Operand.ImmI64)}
	case OperandImmF32:
		return ValueSource{Kind: SourceConst, Const: api.F32(instr.Operand.ImmF32)}
	case OperandImmF64:
		return ValueSource{Kind: SourceConst, Const: api.F64(instr.Operand.ImmF64)}
	case OperandLocalIdx:
		return ValueSource{Kind: SourceLocal, Index: instr.Operand.Index}
	case OperandGlobalIdx:
		return ValueSource{Kind: SourceGlobal, Index: instr.Operand.Index}
	}
	return ValueSource{Kind: SourceStack}
}

func isUnaryConsumer(hid HandlerID) bool {
	switch wasm.Opcode(hid) {
	case wasm.OpI32Eqz, wasm.OpI64Eqz,
		wasm.OpI32Clz, wasm.OpI32Ctz, wasm.OpI32Popcnt,
		wasm.OpI64Clz, wasm.OpI64Ctz, wasm.OpI64Popcnt,
		wasm.OpF32Abs, wasm.OpF32Neg, wasm.OpF32Sqrt,
		wasm.OpF64Abs, wasm.OpF64Neg, wasm.OpF64Sqrt,
		wasm.OpI32WrapI64, wasm.OpI64ExtendI32S, wasm.OpI64ExtendI32U:
		return true
	}
	return false
}

func isBinaryConsumer(hid HandlerID) bool {
	switch wasm.Opcode(hid) {
	case wasm.OpI32Add, wasm.OpI32Sub, wasm.OpI32Mul, wasm.OpI32And, wasm.OpI32Or, wasm.OpI32Xor,
		wasm.OpI64Add, wasm.OpI64Sub, wasm.OpI64Mul, wasm.OpI64And, wasm.OpI64Or, wasm.OpI64Xor,
		wasm.OpI32Eq, wasm.OpI32Ne, wasm.OpI32LtS, wasm.OpI32GtS,
		wasm.OpI64Eq, wasm.OpI64Ne, wasm.OpI64LtS, wasm.OpI64GtS,
		wasm.OpF32Add, wasm.OpF32Sub, wasm.OpF32Mul, wasm.OpF32Div,
		wasm.OpF64Add, wasm.OpF64Sub, wasm.OpF64Mul, wasm.OpF64Div:
		return true
	}
	return false
}

func matchUnaryFold(code []ProcessedInstr, pc int) (ValueSource, bool) {
	if pc < 1 || !isUnaryConsumer(code[pc].HandlerID) {
		return ValueSource{}, false
	}
	if !isProducer(code[pc-1]) {
		return ValueSource{}, false
	}
	return toValueSource(code[pc-1]), true
}

func matchBinaryFold(code []ProcessedInstr, pc int) (ValueSource, ValueSource, bool) {
	if pc < 2 || !isBinaryConsumer(code[pc].HandlerID) {
		return ValueSource{}, ValueSource{}, false
	}
	if !isProducer(code[pc-2]) || !isProducer(code[pc-1]) {
		return ValueSource{}, ValueSource{}, false
	}
	return toValueSource(code[pc-2]), toValueSource(code[pc-1]), true
}

// matchLoadAddressFold folds a constant address producer into a *.load's
// MemArg, per spec.md §4.1 "Address folding". Only constant addresses are
// folded (not local/global.get), since the whole point is to make the
// effective address a compile-time value the handler can add to offset
// without any runtime arithmetic beyond the addition itself.
func matchLoadAddressFold(code []ProcessedInstr, pc int) (ValueSource, *MemArg, bool) {
	if pc < 1 || code[pc].Operand.Kind != OperandMemArg || !isLoadHandler(code[pc].HandlerID) {
		return ValueSource{}, nil, false
	}
	prod := code[pc-1]
	if prod.Operand.Kind != OperandImmI32 {
		return ValueSource{}, nil, false
	}
	mem := code[pc].Operand.Mem
	return toValueSource(prod), &mem, true
}

func isLoadHandler(hid HandlerID) bool {
	switch wasm.Opcode(hid) {
	case wasm.OpI32Load, wasm.OpI64Load, wasm.OpF32Load, wasm.OpF64Load,
		wasm.OpI32Load8S, wasm.OpI32Load8U, wasm.OpI32Load16S, wasm.OpI32Load16U,
		wasm.OpI64Load8S, wasm.OpI64Load8U, wasm.OpI64Load16S, wasm.OpI64Load16U,
		wasm.OpI64Load32S, wasm.OpI64Load32U:
		return true
	}
	return false
}

// foldTrailingStore implements spec.md §4.1 "Destination folding": if the
// instruction right after a just-folded consumer at pc is local.set or
// global.set, the consumer's result is written directly to that local/
// global and the setter becomes a NOP.
func foldTrailingStore(code []ProcessedInstr, pc int) {
	next := pc + 1
	if next >= len(code) {
		return
	}
	setter := code[next]
	switch wasm.Opcode(setter.HandlerID) {
	case wasm.OpLocalSet:
		code[pc].Operand.Opt.Store = StoreTarget{Kind: StoreLocal, Index: setter.Operand.Index}
	case wasm.OpGlobalSet:
		code[pc].Operand.Opt.Store = StoreTarget{Kind: StoreGlobal, Index: setter.Operand.Index}
	default:
		return
	}
	code[next] = ProcessedInstr{HandlerID: HNopFolded}
}
