package interpreter

import (
	"math"

	"github.com/oss-fun/chiwawa/internal/wasm"
	"github.com/oss-fun/chiwawa/internal/wazeroir"
)

func memOf(ctx *ExecutionContext) *wasm.MemoryInstance {
	addr := ctx.FS.Frame.Module.Memory(0)
	return ctx.Store.Mems[addr]
}

func effAddr(base uint32, mem wazeroir.MemArg) uint64 {
	return uint64(base) + uint64(mem.Offset)
}

func hI32Load(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	v, ok := m.ReadUint32Le(uint32(addr))
	if !ok || addr > math.MaxUint32 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	ctx.FS.push(uint64(v))
	return next(ctx), nil
}
func hI64Load(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	v, ok := m.ReadUint64Le(uint32(addr))
	if !ok || addr > math.MaxUint32 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	ctx.FS.push(v)
	return next(ctx), nil
}
func hF32Load(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	v, ok := m.ReadUint32Le(uint32(addr))
	if !ok || addr > math.MaxUint32 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	ctx.FS.push(uint64(v))
	return next(ctx), nil
}
func hF64Load(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	v, ok := m.ReadUint64Le(uint32(addr))
	if !ok || addr > math.MaxUint32 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	ctx.FS.push(v)
	return next(ctx), nil
}

func load8(ctx *ExecutionContext, op *Operand) (byte, bool, error) {
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	v, ok := m.ReadByte(uint32(addr))
	if !ok || addr > math.MaxUint32 {
		return 0, false, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return v, true, nil
}
func load16(ctx *ExecutionContext, op *Operand) (uint16, bool, error) {
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	v, ok := m.ReadUint16Le(uint32(addr))
	if !ok || addr > math.MaxUint32 {
		return 0, false, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return v, true, nil
}
func load32(ctx *ExecutionContext, op *Operand) (uint32, bool, error) {
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	v, ok := m.ReadUint32Le(uint32(addr))
	if !ok || addr > math.MaxUint32 {
		return 0, false, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return v, true, nil
}

func hI32Load8S(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v, ok, err := load8(ctx, op)
	if !ok {
		return HandlerResult{}, err
	}
	ctx.FS.push(uint64(uint32(int32(int8(v)))))
	return next(ctx), nil
}
func hI32Load8U(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v, ok, err := load8(ctx, op)
	if !ok {
		return HandlerResult{}, err
	}
	ctx.FS.push(uint64(v))
	return next(ctx), nil
}
func hI32Load16S(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v, ok, err := load16(ctx, op)
	if !ok {
		return HandlerResult{}, err
	}
	ctx.FS.push(uint64(uint32(int32(int16(v)))))
	return next(ctx), nil
}
func hI32Load16U(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v, ok, err := load16(ctx, op)
	if !ok {
		return HandlerResult{}, err
	}
	ctx.FS.push(uint64(v))
	return next(ctx), nil
}
func hI64Load8S(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v, ok, err := load8(ctx, op)
	if !ok {
		return HandlerResult{}, err
	}
	ctx.FS.push(uint64(int64(int8(v))))
	return next(ctx), nil
}
func hI64Load8U(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v, ok, err := load8(ctx, op)
	if !ok {
		return HandlerResult{}, err
	}
	ctx.FS.push(uint64(v))
	return next(ctx), nil
}
func hI64Load16S(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v, ok, err := load16(ctx, op)
	if !ok {
		return HandlerResult{}, err
	}
	ctx.FS.push(uint64(int64(int16(v))))
	return next(ctx), nil
}
func hI64Load16U(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v, ok, err := load16(ctx, op)
	if !ok {
		return HandlerResult{}, err
	}
	ctx.FS.push(uint64(v))
	return next(ctx), nil
}
func hI64Load32S(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v, ok, err := load32(ctx, op)
	if !ok {
		return HandlerResult{}, err
	}
	ctx.FS.push(uint64(int64(int32(v))))
	return next(ctx), nil
}
func hI64Load32U(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v, ok, err := load32(ctx, op)
	if !ok {
		return HandlerResult{}, err
	}
	ctx.FS.push(uint64(v))
	return next(ctx), nil
}

func hI32Store(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v := uint32(ctx.FS.pop())
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	if addr > math.MaxUint32 || !m.WriteUint32Le(uint32(addr), v) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return next(ctx), nil
}
func hI64Store(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v := ctx.FS.pop()
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	if addr > math.MaxUint32 || !m.WriteUint64Le(uint32(addr), v) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return next(ctx), nil
}
func hF32Store(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v := uint32(ctx.FS.pop())
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	if addr > math.MaxUint32 || !m.WriteUint32Le(uint32(addr), v) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return next(ctx), nil
}
func hF64Store(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v := ctx.FS.pop()
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	if addr > math.MaxUint32 || !m.WriteUint64Le(uint32(addr), v) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return next(ctx), nil
}
func hI32Store8(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v := byte(ctx.FS.pop())
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	if addr > math.MaxUint32 || !m.WriteByte(uint32(addr), v) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return next(ctx), nil
}
func hI32Store16(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v := uint16(ctx.FS.pop())
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	if addr > math.MaxUint32 || !m.WriteUint16Le(uint32(addr), v) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return next(ctx), nil
}
func hI64Store8(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v := byte(ctx.FS.pop())
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	if addr > math.MaxUint32 || !m.WriteByte(uint32(addr), v) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return next(ctx), nil
}
func hI64Store16(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v := uint16(ctx.FS.pop())
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	if addr > math.MaxUint32 || !m.WriteUint16Le(uint32(addr), v) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return next(ctx), nil
}
func hI64Store32(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	v := uint32(ctx.FS.pop())
	m := memOf(ctx)
	addr := effAddr(uint32(ctx.FS.pop()), op.Mem)
	if addr > math.MaxUint32 || !m.WriteUint32Le(uint32(addr), v) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return next(ctx), nil
}

func hMemorySize(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(memOf(ctx).PageSize()))
	return next(ctx), nil
}
func hMemoryGrow(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	delta := uint32(ctx.FS.pop())
	prev, ok := memOf(ctx).Grow(delta)
	if !ok {
		ctx.FS.push(uint64(uint32(0xFFFFFFFF)))
		return next(ctx), nil
	}
	ctx.FS.push(uint64(prev))
	return next(ctx), nil
}
func hMemoryFill(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	n := uint32(ctx.FS.pop())
	v := byte(ctx.FS.pop())
	offset := uint32(ctx.FS.pop())
	if !memOf(ctx).Fill(offset, v, n) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return next(ctx), nil
}
func hMemoryCopy(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	n := uint32(ctx.FS.pop())
	src := uint32(ctx.FS.pop())
	dst := uint32(ctx.FS.pop())
	if !memOf(ctx).Copy(dst, src, n) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return next(ctx), nil
}
func hMemoryInit(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	n := uint32(ctx.FS.pop())
	src := uint32(ctx.FS.pop())
	dst := uint32(ctx.FS.pop())
	dataAddr := ctx.FS.Frame.Module.DataAddrs[op.Index]
	d := ctx.Store.Datas[dataAddr]
	if d.Dropped {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeDroppedSegmentAccess)
	}
	if !memOf(ctx).Init(d.Bytes, dst, src, n) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeOutOfBoundsMemoryAccess)
	}
	return next(ctx), nil
}
func hDataDrop(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	dataAddr := ctx.FS.Frame.Module.DataAddrs[op.Index]
	ctx.Store.Datas[dataAddr].Dropped = true
	return next(ctx), nil
}
