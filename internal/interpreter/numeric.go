package interpreter

import (
	"math"
	"math/bits"

	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/moremath"
	"github.com/oss-fun/chiwawa/internal/wasm"
)

// next returns the ResultContinue result every numeric handler shares: only
// the value stack changed, ip advances by one.
func next(ctx *ExecutionContext) HandlerResult {
	return HandlerResult{Kind: ResultContinue, NextIP: ctx.FS.IP + 1}
}

func hI32Const(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(uint32(op.ImmI32)))
	return next(ctx), nil
}
func hI64Const(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(op.ImmI64))
	return next(ctx), nil
}
func hF32Const(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(math.Float32bits(op.ImmF32)))
	return next(ctx), nil
}
func hF64Const(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	ctx.FS.push(math.Float64bits(op.ImmF64))
	return next(ctx), nil
}

func hLocalGet(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	ctx.FS.push(ctx.FS.Frame.Locals[op.Index])
	return next(ctx), nil
}
func hLocalSet(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	ctx.FS.Frame.Locals[op.Index] = ctx.FS.pop()
	return next(ctx), nil
}
func hLocalTee(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v := ctx.FS.ValueStack[len(ctx.FS.ValueStack)-1]
	ctx.FS.Frame.Locals[op.Index] = v
	return next(ctx), nil
}

func hGlobalGet(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	addr := ctx.FS.Frame.Module.Global(op.Index)
	g := ctx.Store.Globals[addr]
	lo, _ := g.Get().Raw()
	ctx.FS.push(lo)
	if ctx.FS.AccessedGlobals != nil {
		ctx.FS.AccessedGlobals[op.Index] = struct{}{}
	}
	return next(ctx), nil
}
func hGlobalSet(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	addr := ctx.FS.Frame.Module.Global(op.Index)
	g := ctx.Store.Globals[addr]
	g.Set(api.FromRaw(g.Type.ValType, ctx.FS.pop(), 0))
	return next(ctx), nil
}

// Comparisons and i32/i64 arithmetic below mirror the teacher's big opcode
// switch (internal/engine/interpreter/interpreter.go), one handler per
// case instead of one case per handler, since dispatch now happens through
// handlerTable rather than a switch over op.Kind.

func hI32Eqz(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(b2u(uint32(ctx.FS.pop()) == 0))
	return next(ctx), nil
}
func hI64Eqz(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(b2u(ctx.FS.pop() == 0))
	return next(ctx), nil
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func i32cmp(ctx *ExecutionContext, cmp func(a, b int32) bool) HandlerResult {
	b, a := int32(ctx.FS.pop()), int32(ctx.FS.pop())
	ctx.FS.push(b2u(cmp(a, b)))
	return next(ctx)
}
func u32cmp(ctx *ExecutionContext, cmp func(a, b uint32) bool) HandlerResult {
	b, a := uint32(ctx.FS.pop()), uint32(ctx.FS.pop())
	ctx.FS.push(b2u(cmp(a, b)))
	return next(ctx)
}
func i64cmp(ctx *ExecutionContext, cmp func(a, b int64) bool) HandlerResult {
	b, a := int64(ctx.FS.pop()), int64(ctx.FS.pop())
	ctx.FS.push(b2u(cmp(a, b)))
	return next(ctx)
}
func u64cmp(ctx *ExecutionContext, cmp func(a, b uint64) bool) HandlerResult {
	b, a := ctx.FS.pop(), ctx.FS.pop()
	ctx.FS.push(b2u(cmp(a, b)))
	return next(ctx)
}
func f32cmp(ctx *ExecutionContext, cmp func(a, b float32) bool) HandlerResult {
	b := math.Float32frombits(uint32(ctx.FS.pop()))
	a := math.Float32frombits(uint32(ctx.FS.pop()))
	ctx.FS.push(b2u(cmp(a, b)))
	return next(ctx)
}
func f64cmp(ctx *ExecutionContext, cmp func(a, b float64) bool) HandlerResult {
	b := math.Float64frombits(ctx.FS.pop())
	a := math.Float64frombits(ctx.FS.pop())
	ctx.FS.push(b2u(cmp(a, b)))
	return next(ctx)
}

func hI32Eq(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return i32cmp(c, func(a, b int32) bool { return a == b }), nil }
func hI32Ne(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return i32cmp(c, func(a, b int32) bool { return a != b }), nil }
func hI32LtS(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return i32cmp(c, func(a, b int32) bool { return a < b }), nil }
func hI32LtU(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u32cmp(c, func(a, b uint32) bool { return a < b }), nil }
func hI32GtS(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return i32cmp(c, func(a, b int32) bool { return a > b }), nil }
func hI32GtU(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u32cmp(c, func(a, b uint32) bool { return a > b }), nil }
func hI32LeS(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return i32cmp(c, func(a, b int32) bool { return a <= b }), nil }
func hI32LeU(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u32cmp(c, func(a, b uint32) bool { return a <= b }), nil }
func hI32GeS(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return i32cmp(c, func(a, b int32) bool { return a >= b }), nil }
func hI32GeU(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u32cmp(c, func(a, b uint32) bool { return a >= b }), nil }

func hI64Eq(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return i64cmp(c, func(a, b int64) bool { return a == b }), nil }
func hI64Ne(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return i64cmp(c, func(a, b int64) bool { return a != b }), nil }
func hI64LtS(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return i64cmp(c, func(a, b int64) bool { return a < b }), nil }
func hI64LtU(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u64cmp(c, func(a, b uint64) bool { return a < b }), nil }
func hI64GtS(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return i64cmp(c, func(a, b int64) bool { return a > b }), nil }
func hI64GtU(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u64cmp(c, func(a, b uint64) bool { return a > b }), nil }
func hI64LeS(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return i64cmp(c, func(a, b int64) bool { return a <= b }), nil }
func hI64LeU(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u64cmp(c, func(a, b uint64) bool { return a <= b }), nil }
func hI64GeS(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return i64cmp(c, func(a, b int64) bool { return a >= b }), nil }
func hI64GeU(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u64cmp(c, func(a, b uint64) bool { return a >= b }), nil }

func hF32Eq(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f32cmp(c, func(a, b float32) bool { return a == b }), nil }
func hF32Ne(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f32cmp(c, func(a, b float32) bool { return a != b }), nil }
func hF32Lt(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f32cmp(c, func(a, b float32) bool { return a < b }), nil }
func hF32Gt(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f32cmp(c, func(a, b float32) bool { return a > b }), nil }
func hF32Le(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f32cmp(c, func(a, b float32) bool { return a <= b }), nil }
func hF32Ge(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f32cmp(c, func(a, b float32) bool { return a >= b }), nil }

func hF64Eq(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64cmp(c, func(a, b float64) bool { return a == b }), nil }
func hF64Ne(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64cmp(c, func(a, b float64) bool { return a != b }), nil }
func hF64Lt(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64cmp(c, func(a, b float64) bool { return a < b }), nil }
func hF64Gt(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64cmp(c, func(a, b float64) bool { return a > b }), nil }
func hF64Le(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64cmp(c, func(a, b float64) bool { return a <= b }), nil }
func hF64Ge(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64cmp(c, func(a, b float64) bool { return a >= b }), nil }

func hI32Clz(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	c.FS.push(uint64(bits.LeadingZeros32(uint32(c.FS.pop()))))
	return next(c), nil
}
func hI32Ctz(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	c.FS.push(uint64(bits.TrailingZeros32(uint32(c.FS.pop()))))
	return next(c), nil
}
func hI32Popcnt(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	c.FS.push(uint64(bits.OnesCount32(uint32(c.FS.pop()))))
	return next(c), nil
}
func hI64Clz(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	c.FS.push(uint64(bits.LeadingZeros64(c.FS.pop())))
	return next(c), nil
}
func hI64Ctz(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	c.FS.push(uint64(bits.TrailingZeros64(c.FS.pop())))
	return next(c), nil
}
func hI64Popcnt(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	c.FS.push(uint64(bits.OnesCount64(c.FS.pop())))
	return next(c), nil
}

func i32bin(ctx *ExecutionContext, f func(a, b int32) int32) HandlerResult {
	b, a := int32(ctx.FS.pop()), int32(ctx.FS.pop())
	ctx.FS.push(uint64(uint32(f(a, b))))
	return next(ctx)
}
func u32bin(ctx *ExecutionContext, f func(a, b uint32) uint32) HandlerResult {
	b, a := uint32(ctx.FS.pop()), uint32(ctx.FS.pop())
	ctx.FS.push(uint64(f(a, b)))
	return next(ctx)
}
func i64bin(ctx *ExecutionContext, f func(a, b int64) int64) HandlerResult {
	b, a := int64(ctx.FS.pop()), int64(ctx.FS.pop())
	ctx.FS.push(uint64(f(a, b)))
	return next(ctx)
}
func u64bin(ctx *ExecutionContext, f func(a, b uint64) uint64) HandlerResult {
	b, a := ctx.FS.pop(), ctx.FS.pop()
	ctx.FS.push(f(a, b))
	return next(ctx)
}

func hI32Add(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u32bin(c, func(a, b uint32) uint32 { return a + b }), nil }
func hI32Sub(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u32bin(c, func(a, b uint32) uint32 { return a - b }), nil }
func hI32Mul(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u32bin(c, func(a, b uint32) uint32 { return a * b }), nil }
func hI32And(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u32bin(c, func(a, b uint32) uint32 { return a & b }), nil }
func hI32Or(c *ExecutionContext, _ *Operand) (HandlerResult, error)  { return u32bin(c, func(a, b uint32) uint32 { return a | b }), nil }
func hI32Xor(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u32bin(c, func(a, b uint32) uint32 { return a ^ b }), nil }
func hI32Shl(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return u32bin(c, func(a, b uint32) uint32 { return a << (b % 32) }), nil
}
func hI32ShrS(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return i32bin(c, func(a, b int32) int32 { return a >> (uint32(b) % 32) }), nil
}
func hI32ShrU(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return u32bin(c, func(a, b uint32) uint32 { return a >> (b % 32) }), nil
}
func hI32Rotl(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return u32bin(c, func(a, b uint32) uint32 { return bits.RotateLeft32(a, int(b)) }), nil
}
func hI32Rotr(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return u32bin(c, func(a, b uint32) uint32 { return bits.RotateLeft32(a, -int(b)) }), nil
}

func hI64Add(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u64bin(c, func(a, b uint64) uint64 { return a + b }), nil }
func hI64Sub(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u64bin(c, func(a, b uint64) uint64 { return a - b }), nil }
func hI64Mul(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u64bin(c, func(a, b uint64) uint64 { return a * b }), nil }
func hI64And(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u64bin(c, func(a, b uint64) uint64 { return a & b }), nil }
func hI64Or(c *ExecutionContext, _ *Operand) (HandlerResult, error)  { return u64bin(c, func(a, b uint64) uint64 { return a | b }), nil }
func hI64Xor(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return u64bin(c, func(a, b uint64) uint64 { return a ^ b }), nil }
func hI64Shl(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return u64bin(c, func(a, b uint64) uint64 { return a << (b % 64) }), nil
}
func hI64ShrS(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return i64bin(c, func(a, b int64) int64 { return a >> (uint64(b) % 64) }), nil
}
func hI64ShrU(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return u64bin(c, func(a, b uint64) uint64 { return a >> (b % 64) }), nil
}
func hI64Rotl(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return u64bin(c, func(a, b uint64) uint64 { return bits.RotateLeft64(a, int(b)) }), nil
}
func hI64Rotr(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return u64bin(c, func(a, b uint64) uint64 { return bits.RotateLeft64(a, -int(b)) }), nil
}

func hI32DivS(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	d, n := int32(ctx.FS.pop()), int32(ctx.FS.pop())
	if d == 0 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIntegerDivideByZero)
	}
	if n == math.MinInt32 && d == -1 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIntegerOverflow)
	}
	ctx.FS.push(uint64(uint32(n / d)))
	return next(ctx), nil
}
func hI32DivU(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	d, n := uint32(ctx.FS.pop()), uint32(ctx.FS.pop())
	if d == 0 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIntegerDivideByZero)
	}
	ctx.FS.push(uint64(n / d))
	return next(ctx), nil
}
func hI32RemS(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	d, n := int32(ctx.FS.pop()), int32(ctx.FS.pop())
	if d == 0 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIntegerDivideByZero)
	}
	if n == math.MinInt32 && d == -1 {
		ctx.FS.push(0)
		return next(ctx), nil
	}
	ctx.FS.push(uint64(uint32(n % d)))
	return next(ctx), nil
}
func hI32RemU(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	d, n := uint32(ctx.FS.pop()), uint32(ctx.FS.pop())
	if d == 0 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIntegerDivideByZero)
	}
	ctx.FS.push(uint64(n % d))
	return next(ctx), nil
}

func hI64DivS(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	d, n := int64(ctx.FS.pop()), int64(ctx.FS.pop())
	if d == 0 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIntegerDivideByZero)
	}
	if n == math.MinInt64 && d == -1 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIntegerOverflow)
	}
	ctx.FS.push(uint64(n / d))
	return next(ctx), nil
}
func hI64DivU(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	d, n := ctx.FS.pop(), ctx.FS.pop()
	if d == 0 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIntegerDivideByZero)
	}
	ctx.FS.push(n / d)
	return next(ctx), nil
}
func hI64RemS(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	d, n := int64(ctx.FS.pop()), int64(ctx.FS.pop())
	if d == 0 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIntegerDivideByZero)
	}
	if n == math.MinInt64 && d == -1 {
		ctx.FS.push(0)
		return next(ctx), nil
	}
	ctx.FS.push(uint64(n % d))
	return next(ctx), nil
}
func hI64RemU(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	d, n := ctx.FS.pop(), ctx.FS.pop()
	if d == 0 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIntegerDivideByZero)
	}
	ctx.FS.push(n % d)
	return next(ctx), nil
}

func f32bin(ctx *ExecutionContext, f func(a, b float32) float32) HandlerResult {
	b := math.Float32frombits(uint32(ctx.FS.pop()))
	a := math.Float32frombits(uint32(ctx.FS.pop()))
	ctx.FS.push(uint64(math.Float32bits(f(a, b))))
	return next(ctx)
}
func f64bin(ctx *ExecutionContext, f func(a, b float64) float64) HandlerResult {
	b := math.Float64frombits(ctx.FS.pop())
	a := math.Float64frombits(ctx.FS.pop())
	ctx.FS.push(math.Float64bits(f(a, b)))
	return next(ctx)
}
func f32un(ctx *ExecutionContext, f func(a float32) float32) HandlerResult {
	a := math.Float32frombits(uint32(ctx.FS.pop()))
	ctx.FS.push(uint64(math.Float32bits(f(a))))
	return next(ctx)
}
func f64un(ctx *ExecutionContext, f func(a float64) float64) HandlerResult {
	a := math.Float64frombits(ctx.FS.pop())
	ctx.FS.push(math.Float64bits(f(a)))
	return next(ctx)
}

func hF32Abs(c *ExecutionContext, _ *Operand) (HandlerResult, error)  { return f32un(c, func(a float32) float32 { return float32(math.Abs(float64(a))) }), nil }
func hF32Neg(c *ExecutionContext, _ *Operand) (HandlerResult, error)  { return f32un(c, func(a float32) float32 { return -a }), nil }
func hF32Ceil(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f32un(c, func(a float32) float32 { return float32(math.Ceil(float64(a))) }), nil }
func hF32Floor(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return f32un(c, func(a float32) float32 { return float32(math.Floor(float64(a))) }), nil
}
func hF32Trunc(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return f32un(c, func(a float32) float32 { return float32(math.Trunc(float64(a))) }), nil
}
func hF32Nearest(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f32un(c, moremath.WasmCompatNearestF32), nil }
func hF32Sqrt(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return f32un(c, func(a float32) float32 { return float32(math.Sqrt(float64(a))) }), nil
}
func hF32Add(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f32bin(c, func(a, b float32) float32 { return a + b }), nil }
func hF32Sub(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f32bin(c, func(a, b float32) float32 { return a - b }), nil }
func hF32Mul(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f32bin(c, func(a, b float32) float32 { return a * b }), nil }
func hF32Div(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f32bin(c, func(a, b float32) float32 { return a / b }), nil }
func hF32Min(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return f32bin(c, func(a, b float32) float32 { return float32(moremath.WasmCompatMin(float64(a), float64(b))) }), nil
}
func hF32Max(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return f32bin(c, func(a, b float32) float32 { return float32(moremath.WasmCompatMax(float64(a), float64(b))) }), nil
}
func hF32Copysign(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	b, a := uint32(ctx.FS.pop()), uint32(ctx.FS.pop())
	const sign = uint32(1) << 31
	ctx.FS.push(uint64(a&^sign | b&sign))
	return next(ctx), nil
}

func hF64Abs(c *ExecutionContext, _ *Operand) (HandlerResult, error)   { return f64un(c, math.Abs), nil }
func hF64Neg(c *ExecutionContext, _ *Operand) (HandlerResult, error)   { return f64un(c, func(a float64) float64 { return -a }), nil }
func hF64Ceil(c *ExecutionContext, _ *Operand) (HandlerResult, error)  { return f64un(c, math.Ceil), nil }
func hF64Floor(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64un(c, math.Floor), nil }
func hF64Trunc(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64un(c, math.Trunc), nil }
func hF64Nearest(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return f64un(c, moremath.WasmCompatNearestF64), nil
}
func hF64Sqrt(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64un(c, math.Sqrt), nil }
func hF64Add(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64bin(c, func(a, b float64) float64 { return a + b }), nil }
func hF64Sub(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64bin(c, func(a, b float64) float64 { return a - b }), nil }
func hF64Mul(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64bin(c, func(a, b float64) float64 { return a * b }), nil }
func hF64Div(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64bin(c, func(a, b float64) float64 { return a / b }), nil }
func hF64Min(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64bin(c, moremath.WasmCompatMin), nil }
func hF64Max(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return f64bin(c, moremath.WasmCompatMax), nil }
func hF64Copysign(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	b, a := ctx.FS.pop(), ctx.FS.pop()
	const sign = uint64(1) << 63
	ctx.FS.push(a&^sign | b&sign)
	return next(ctx), nil
}

func hI32WrapI64(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(uint32(ctx.FS.pop())))
	return next(ctx), nil
}
func hI64ExtendI32S(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(int64(int32(ctx.FS.pop()))))
	return next(ctx), nil
}
func hI64ExtendI32U(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(uint32(ctx.FS.pop())))
	return next(ctx), nil
}

func hI32Extend8S(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(uint32(int32(int8(ctx.FS.pop())))))
	return next(ctx), nil
}
func hI32Extend16S(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(uint32(int32(int16(ctx.FS.pop())))))
	return next(ctx), nil
}
func hI64Extend8S(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(int64(int8(ctx.FS.pop()))))
	return next(ctx), nil
}
func hI64Extend16S(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(int64(int16(ctx.FS.pop()))))
	return next(ctx), nil
}
func hI64Extend32S(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(int64(int32(ctx.FS.pop()))))
	return next(ctx), nil
}

func hI32ReinterpretF32(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) { return next(ctx), nil } // bit pattern already matches
func hI64ReinterpretF64(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) { return next(ctx), nil }
func hF32ReinterpretI32(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) { return next(ctx), nil }
func hF64ReinterpretI64(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) { return next(ctx), nil }

func hF32ConvertI32S(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(math.Float32bits(float32(int32(ctx.FS.pop())))))
	return next(ctx), nil
}
func hF32ConvertI32U(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(math.Float32bits(float32(uint32(ctx.FS.pop())))))
	return next(ctx), nil
}
func hF32ConvertI64S(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(math.Float32bits(float32(int64(ctx.FS.pop())))))
	return next(ctx), nil
}
func hF32ConvertI64U(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(math.Float32bits(float32(ctx.FS.pop()))))
	return next(ctx), nil
}
func hF32DemoteF64(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(math.Float32bits(float32(math.Float64frombits(ctx.FS.pop())))))
	return next(ctx), nil
}
func hF64ConvertI32S(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(math.Float64bits(float64(int32(ctx.FS.pop()))))
	return next(ctx), nil
}
func hF64ConvertI32U(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(math.Float64bits(float64(uint32(ctx.FS.pop()))))
	return next(ctx), nil
}
func hF64ConvertI64S(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(math.Float64bits(float64(int64(ctx.FS.pop()))))
	return next(ctx), nil
}
func hF64ConvertI64U(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(math.Float64bits(float64(ctx.FS.pop())))
	return next(ctx), nil
}
func hF64PromoteF32(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(math.Float64bits(float64(math.Float32frombits(uint32(ctx.FS.pop())))))
	return next(ctx), nil
}

// truncTo32S/truncTo32U/truncTo64S/truncTo64U implement the trapping integer
// truncation conversions (spec.md §4.2 "numeric semantics"): NaN and
// out-of-range sources trap, matching the teacher's ITruncFromF case with
// its non-saturating (op.b3 == false) branch.
func truncTo32S(ctx *ExecutionContext, v float64) (HandlerResult, error) {
	t := math.Trunc(v)
	if math.IsNaN(t) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeInvalidConversionToInteger)
	}
	if t < math.MinInt32 || t > math.MaxInt32 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIntegerOverflow)
	}
	ctx.FS.push(uint64(uint32(int32(t))))
	return next(ctx), nil
}
func truncTo32U(ctx *ExecutionContext, v float64) (HandlerResult, error) {
	t := math.Trunc(v)
	if math.IsNaN(t) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeInvalidConversionToInteger)
	}
	if t < 0 || t > math.MaxUint32 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIntegerOverflow)
	}
	ctx.FS.push(uint64(uint32(t)))
	return next(ctx), nil
}
func truncTo64S(ctx *ExecutionContext, v float64) (HandlerResult, error) {
	t := math.Trunc(v)
	if math.IsNaN(t) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeInvalidConversionToInteger)
	}
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIntegerOverflow)
	}
	ctx.FS.push(uint64(int64(t)))
	return next(ctx), nil
}
func truncTo64U(ctx *ExecutionContext, v float64) (HandlerResult, error) {
	t := math.Trunc(v)
	if math.IsNaN(t) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeInvalidConversionToInteger)
	}
	if t < 0 || t >= math.MaxUint64 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIntegerOverflow)
	}
	ctx.FS.push(uint64(t))
	return next(ctx), nil
}

func hI32TruncF32S(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return truncTo32S(c, float64(math.Float32frombits(uint32(c.FS.pop())))) }
func hI32TruncF32U(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return truncTo32U(c, float64(math.Float32frombits(uint32(c.FS.pop())))) }
func hI32TruncF64S(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return truncTo32S(c, math.Float64frombits(c.FS.pop())) }
func hI32TruncF64U(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return truncTo32U(c, math.Float64frombits(c.FS.pop())) }
func hI64TruncF32S(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return truncTo64S(c, float64(math.Float32frombits(uint32(c.FS.pop())))) }
func hI64TruncF32U(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return truncTo64U(c, float64(math.Float32frombits(uint32(c.FS.pop())))) }
func hI64TruncF64S(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return truncTo64S(c, math.Float64frombits(c.FS.pop())) }
func hI64TruncF64U(c *ExecutionContext, _ *Operand) (HandlerResult, error) { return truncTo64U(c, math.Float64frombits(c.FS.pop())) }

// truncSat32S/.../truncSat64U never trap: NaN becomes 0, overflow saturates
// to the representable min/max (spec.md's trunc_sat family).
func truncSat32S(v float64) uint64 {
	t := math.Trunc(v)
	if math.IsNaN(t) {
		return 0
	}
	if t < math.MinInt32 {
		return uint64(uint32(math.MinInt32))
	}
	if t > math.MaxInt32 {
		return uint64(uint32(math.MaxInt32))
	}
	return uint64(uint32(int32(t)))
}
func truncSat32U(v float64) uint64 {
	t := math.Trunc(v)
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if t > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint64(uint32(t))
}
func truncSat64S(v float64) uint64 {
	t := math.Trunc(v)
	if math.IsNaN(t) {
		return 0
	}
	if t < math.MinInt64 {
		return uint64(math.MinInt64)
	}
	if t >= math.MaxInt64 {
		return uint64(math.MaxInt64)
	}
	return uint64(int64(t))
}
func truncSat64U(v float64) uint64 {
	t := math.Trunc(v)
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if t >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(t)
}

func hI32TruncSatF32S(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	c.FS.push(truncSat32S(float64(math.Float32frombits(uint32(c.FS.pop())))))
	return next(c), nil
}
func hI32TruncSatF32U(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	c.FS.push(truncSat32U(float64(math.Float32frombits(uint32(c.FS.pop())))))
	return next(c), nil
}
func hI32TruncSatF64S(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	c.FS.push(truncSat32S(math.Float64frombits(c.FS.pop())))
	return next(c), nil
}
func hI32TruncSatF64U(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	c.FS.push(truncSat32U(math.Float64frombits(c.FS.pop())))
	return next(c), nil
}
func hI64TruncSatF32S(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	c.FS.push(truncSat64S(float64(math.Float32frombits(uint32(c.FS.pop())))))
	return next(c), nil
}
func hI64TruncSatF32U(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	c.FS.push(truncSat64U(float64(math.Float32frombits(uint32(c.FS.pop())))))
	return next(c), nil
}
func hI64TruncSatF64S(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	c.FS.push(truncSat64S(math.Float64frombits(c.FS.pop())))
	return next(c), nil
}
func hI64TruncSatF64U(c *ExecutionContext, _ *Operand) (HandlerResult, error) {
	c.FS.push(truncSat64U(math.Float64frombits(c.FS.pop())))
	return next(c), nil
}
