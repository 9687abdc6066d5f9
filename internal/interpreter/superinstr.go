package interpreter

import (
	"math"
	"math/bits"

	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/wasm"
	"github.com/oss-fun/chiwawa/internal/wazeroir"
)

// resolveSource reads one folded operand without touching the value stack
// for const/local/global sources (the whole point of folding); a SourceStack
// source falls back to a pop, which the current folder never actually
// produces (every fold candidate is a producer — spec.md §4.1) but is
// handled here so superinstr.go stays correct if that changes.
func resolveSource(ctx *ExecutionContext, src wazeroir.ValueSource) uint64 {
	switch src.Kind {
	case wazeroir.SourceConst:
		lo, _ := src.Const.Raw()
		return lo
	case wazeroir.SourceLocal:
		return ctx.FS.Frame.Locals[src.Index]
	case wazeroir.SourceGlobal:
		addr := ctx.FS.Frame.Module.Global(src.Index)
		lo, _ := ctx.Store.Globals[addr].Get().Raw()
		return lo
	default:
		return ctx.FS.pop()
	}
}

// storeResult writes a superinstruction's output either to the value stack
// (the common case) or directly to the local/global destination-folding
// absorbed, per spec.md §4.1 "Destination folding".
func storeResult(ctx *ExecutionContext, st wazeroir.StoreTarget, v uint64) {
	switch st.Kind {
	case wazeroir.StoreLocal:
		ctx.FS.Frame.Locals[st.Index] = v
	case wazeroir.StoreGlobal:
		addr := ctx.FS.Frame.Module.Global(st.Index)
		g := ctx.Store.Globals[addr]
		g.Set(api.FromRaw(g.Type.ValType, v, 0))
	default:
		ctx.FS.push(v)
	}
}

func hOptimizedSingle(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	opt := op.Opt
	v := resolveSource(ctx, opt.Src1)

	if opt.Mem != nil {
		// Folded constant-address load: v is the const i32 address.
		return optimizedLoad(ctx, opt, uint32(v))
	}

	result, err := computeUnary(ctx, wasm.Opcode(opt.Op), v)
	if err != nil {
		return HandlerResult{}, err
	}
	storeResult(ctx, opt.Store, result)
	return next(ctx), nil
}

func hOptimizedDouble(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	opt := op.Opt
	a := resolveSource(ctx, opt.Src1)
	b := resolveSource(ctx, opt.Src2)
	result, err := computeBinary(ctx, wasm.Opcode(opt.Op), a, b)
	if err != nil {
		return HandlerResult{}, err
	}
	storeResult(ctx, opt.Store, result)
	return next(ctx), nil
}

func optimizedLoad(ctx *ExecutionContext, opt wazeroir.Optimized, base uint32) (HandlerResult, error) {
	m := memOf(ctx)
	addr := uint64(base) + uint64(opt.Mem.Offset)
	if addr > math.MaxUint32 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	var v uint64
	var ok bool
	switch wasm.Opcode(opt.Op) {
	case wasm.OpI32Load, wasm.OpF32Load:
		var x uint32
		x, ok = m.ReadUint32Le(uint32(addr))
		v = uint64(x)
	case wasm.OpI64Load, wasm.OpF64Load:
		v, ok = m.ReadUint64Le(uint32(addr))
	case wasm.OpI32Load8S:
		var x byte
		x, ok = m.ReadByte(uint32(addr))
		v = uint64(uint32(int32(int8(x))))
	case wasm.OpI32Load8U:
		var x byte
		x, ok = m.ReadByte(uint32(addr))
		v = uint64(x)
	case wasm.OpI32Load16S:
		var x uint16
		x, ok = m.ReadUint16Le(uint32(addr))
		v = uint64(uint32(int32(int16(x))))
	case wasm.OpI32Load16U:
		var x uint16
		x, ok = m.ReadUint16Le(uint32(addr))
		v = uint64(x)
	case wasm.OpI64Load8S:
		var x byte
		x, ok = m.ReadByte(uint32(addr))
		v = uint64(int64(int8(x)))
	case wasm.OpI64Load8U:
		var x byte
		x, ok = m.ReadByte(uint32(addr))
		v = uint64(x)
	case wasm.OpI64Load16S:
		var x uint16
		x, ok = m.ReadUint16Le(uint32(addr))
		v = uint64(int64(int16(x)))
	case wasm.OpI64Load16U:
		var x uint16
		x, ok = m.ReadUint16Le(uint32(addr))
		v = uint64(x)
	case wasm.OpI64Load32S:
		var x uint32
		x, ok = m.ReadUint32Le(uint32(addr))
		v = uint64(int64(int32(x)))
	case wasm.OpI64Load32U:
		var x uint32
		x, ok = m.ReadUint32Le(uint32(addr))
		v = uint64(x)
	}
	if !ok {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	storeResult(ctx, opt.Store, v)
	return next(ctx), nil
}

func computeUnary(ctx *ExecutionContext, op wasm.Opcode, v uint64) (uint64, error) {
	switch op {
	case wasm.OpI32Eqz:
		return b2u(uint32(v) == 0), nil
	case wasm.OpI64Eqz:
		return b2u(v == 0), nil
	case wasm.OpI32Clz:
		return uint64(bits.LeadingZeros32(uint32(v))), nil
	case wasm.OpI32Ctz:
		return uint64(bits.TrailingZeros32(uint32(v))), nil
	case wasm.OpI32Popcnt:
		return uint64(bits.OnesCount32(uint32(v))), nil
	case wasm.OpI64Clz:
		return uint64(bits.LeadingZeros64(v)), nil
	case wasm.OpI64Ctz:
		return uint64(bits.TrailingZeros64(v)), nil
	case wasm.OpI64Popcnt:
		return uint64(bits.OnesCount64(v)), nil
	case wasm.OpF32Abs:
		return uint64(math.Float32bits(float32(math.Abs(float64(math.Float32frombits(uint32(v))))))), nil
	case wasm.OpF32Neg:
		return uint64(uint32(v) ^ (1 << 31)), nil
	case wasm.OpF32Sqrt:
		return uint64(math.Float32bits(float32(math.Sqrt(float64(math.Float32frombits(uint32(v))))))), nil
	case wasm.OpF64Abs:
		return v &^ (uint64(1) << 63), nil
	case wasm.OpF64Neg:
		return v ^ (uint64(1) << 63), nil
	case wasm.OpF64Sqrt:
		return math.Float64bits(math.Sqrt(math.Float64frombits(v))), nil
	case wasm.OpI32WrapI64:
		return uint64(uint32(v)), nil
	case wasm.OpI64ExtendI32S:
		return uint64(int64(int32(v))), nil
	case wasm.OpI64ExtendI32U:
		return uint64(uint32(v)), nil
	}
	return 0, ctx.trap(wasm.TrapCodeUnreachable)
}

func computeBinary(ctx *ExecutionContext, op wasm.Opcode, a, b uint64) (uint64, error) {
	switch op {
	case wasm.OpI32Add:
		return uint64(uint32(a) + uint32(b)), nil
	case wasm.OpI32Sub:
		return uint64(uint32(a) - uint32(b)), nil
	case wasm.OpI32Mul:
		return uint64(uint32(a) * uint32(b)), nil
	case wasm.OpI32And:
		return uint64(uint32(a) & uint32(b)), nil
	case wasm.OpI32Or:
		return uint64(uint32(a) | uint32(b)), nil
	case wasm.OpI32Xor:
		return uint64(uint32(a) ^ uint32(b)), nil
	case wasm.OpI64Add:
		return a + b, nil
	case wasm.OpI64Sub:
		return a - b, nil
	case wasm.OpI64Mul:
		return a * b, nil
	case wasm.OpI64And:
		return a & b, nil
	case wasm.OpI64Or:
		return a | b, nil
	case wasm.OpI64Xor:
		return a ^ b, nil
	case wasm.OpI32Eq:
		return b2u(int32(a) == int32(b)), nil
	case wasm.OpI32Ne:
		return b2u(int32(a) != int32(b)), nil
	case wasm.OpI32LtS:
		return b2u(int32(a) < int32(b)), nil
	case wasm.OpI32GtS:
		return b2u(int32(a) > int32(b)), nil
	case wasm.OpI64Eq:
		return b2u(int64(a) == int64(b)), nil
	case wasm.OpI64Ne:
		return b2u(int64(a) != int64(b)), nil
	case wasm.OpI64LtS:
		return b2u(int64(a) < int64(b)), nil
	case wasm.OpI64GtS:
		return b2u(int64(a) > int64(b)), nil
	case wasm.OpF32Add:
		return uint64(math.Float32bits(math.Float32frombits(uint32(a)) + math.Float32frombits(uint32(b)))), nil
	case wasm.OpF32Sub:
		return uint64(math.Float32bits(math.Float32frombits(uint32(a)) - math.Float32frombits(uint32(b)))), nil
	case wasm.OpF32Mul:
		return uint64(math.Float32bits(math.Float32frombits(uint32(a)) * math.Float32frombits(uint32(b)))), nil
	case wasm.OpF32Div:
		return uint64(math.Float32bits(math.Float32frombits(uint32(a)) / math.Float32frombits(uint32(b)))), nil
	case wasm.OpF64Add:
		return math.Float64bits(math.Float64frombits(a) + math.Float64frombits(b)), nil
	case wasm.OpF64Sub:
		return math.Float64bits(math.Float64frombits(a) - math.Float64frombits(b)), nil
	case wasm.OpF64Mul:
		return math.Float64bits(math.Float64frombits(a) * math.Float64frombits(b)), nil
	case wasm.OpF64Div:
		return math.Float64bits(math.Float64frombits(a) / math.Float64frombits(b)), nil
	}
	return 0, ctx.trap(wasm.TrapCodeUnreachable)
}

func hNopFolded(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return next(ctx), nil
}

func hNotImplemented(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return HandlerResult{}, ctx.trap(wasm.TrapCodeUnreachable)
}
