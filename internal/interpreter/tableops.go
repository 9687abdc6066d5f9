package interpreter

import "github.com/oss-fun/chiwawa/internal/wasm"

func tableOf(ctx *ExecutionContext, idx uint32) *wasm.TableInstance {
	addr := ctx.FS.Frame.Module.Table(idx)
	return ctx.Store.Tables[addr]
}

func hTableGet(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	t := tableOf(ctx, op.Index)
	i := uint32(ctx.FS.pop())
	v, ok := t.Get(i)
	if !ok {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeInvalidTableAccess)
	}
	ctx.FS.push(v)
	return next(ctx), nil
}
func hTableSet(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	t := tableOf(ctx, op.Index)
	v := ctx.FS.pop()
	i := uint32(ctx.FS.pop())
	if !t.Set(i, v) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeInvalidTableAccess)
	}
	return next(ctx), nil
}
func hTableSize(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	ctx.FS.push(uint64(tableOf(ctx, op.Index).Size()))
	return next(ctx), nil
}
func hTableGrow(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	t := tableOf(ctx, op.Index)
	delta := uint32(ctx.FS.pop())
	init := ctx.FS.pop()
	prev, ok := t.Grow(delta, init)
	if !ok {
		ctx.FS.push(uint64(uint32(0xFFFFFFFF)))
		return next(ctx), nil
	}
	ctx.FS.push(uint64(prev))
	return next(ctx), nil
}
func hTableFill(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	t := tableOf(ctx, op.Index)
	n := uint32(ctx.FS.pop())
	v := ctx.FS.pop()
	offset := uint32(ctx.FS.pop())
	if !t.Fill(offset, v, n) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeInvalidTableAccess)
	}
	return next(ctx), nil
}
func hTableCopy(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	dstTable := tableOf(ctx, op.CopyIdx.DstIndex)
	srcTable := ctx.Store.Tables[ctx.FS.Frame.Module.Table(op.CopyIdx.SrcIndex)]
	n := uint32(ctx.FS.pop())
	src := uint32(ctx.FS.pop())
	dst := uint32(ctx.FS.pop())
	if dstTable == srcTable {
		if !dstTable.Copy(dst, src, n) {
			return HandlerResult{}, ctx.trap(wasm.TrapCodeInvalidTableAccess)
		}
		return next(ctx), nil
	}
	for i := uint32(0); i < n; i++ {
		v, ok := srcTable.Get(src + i)
		if !ok || !dstTable.Set(dst+i, v) {
			return HandlerResult{}, ctx.trap(wasm.TrapCodeInvalidTableAccess)
		}
	}
	return next(ctx), nil
}
func hTableInit(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	t := tableOf(ctx, op.CopyIdx.DstIndex)
	elemAddr := ctx.FS.Frame.Module.ElemAddrs[op.CopyIdx.SrcIndex]
	e := ctx.Store.Elems[elemAddr]
	n := uint32(ctx.FS.pop())
	src := uint32(ctx.FS.pop())
	dst := uint32(ctx.FS.pop())
	if e.Dropped {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeDroppedSegmentAccess)
	}
	if !t.Init(e.Refs, dst, src, n) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeInvalidTableAccess)
	}
	return next(ctx), nil
}
func hElemDrop(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	elemAddr := ctx.FS.Frame.Module.ElemAddrs[op.Index]
	ctx.Store.Elems[elemAddr].Dropped = true
	return next(ctx), nil
}

func hRefNull(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	ctx.FS.push(0) // null encoding is 0 regardless of funcref/externref (spec.md §3 "Table instance")
	return next(ctx), nil
}
func hRefIsNull(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.push(b2u(ctx.FS.pop() == 0))
	return next(ctx), nil
}
func hRefFunc(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	addr := ctx.FS.Frame.Module.Function(op.Index)
	ctx.FS.push(uint64(addr) + 1)
	return next(ctx), nil
}
