package interpreter

import (
	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/wasm"
)

func hBlock(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	b := op.Block
	return HandlerResult{
		Kind: ResultPushLabel, LabelKind: LabelBlock, LabelArity: b.Arity, ParamCount: b.ParamCount,
		ContinuationIP: b.EndIP, IsLoop: false, NextIP: ctx.FS.IP + 1,
	}, nil
}

func hLoop(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	b := op.Block
	return HandlerResult{
		Kind: ResultPushLabel, LabelKind: LabelLoop, LabelArity: b.Arity, ParamCount: b.ParamCount,
		ContinuationIP: b.StartIP, IsLoop: true, NextIP: ctx.FS.IP + 1,
	}, nil
}

// hIf pops the condition and pushes the if's label whenever one of its
// bodies runs (spec.md §4.2 "if/else/end"): both the then-body and the
// else-body execute inside the same structured label scope, so a br inside
// either targets this same label depth. A false condition with no else skips
// the whole construct, its end included, so no label is pushed then.
func hIf(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	b := op.Block
	cond := ctx.FS.pop()
	next := ctx.FS.IP + 1
	if cond == 0 {
		if op.Label.TargetIP == b.EndIP { // if_else_map: no else, ip after the end
			return HandlerResult{Kind: ResultContinue, NextIP: b.EndIP}, nil
		}
		next = op.Label.TargetIP + 1 // if_else_map: the else itself; its body starts after it
	}
	return HandlerResult{
		Kind: ResultPushLabel, LabelKind: LabelIf, LabelArity: b.Arity, ParamCount: b.ParamCount,
		ContinuationIP: b.EndIP, IsLoop: false, NextIP: next,
	}, nil
}

// hElse is reached only by falling through the end of a then-body (a false
// condition resumes after the else, see hIf); it pops the if's label pushed
// by hIf and jumps to the ip after the matching end, which is therefore not
// executed on this path.
func hElse(_ *ExecutionContext, op *Operand) (HandlerResult, error) {
	return HandlerResult{Kind: ResultPopLabel, NextIP: op.Label.TargetIP}, nil
}

func hEnd(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return HandlerResult{Kind: ResultPopLabel, NextIP: ctx.FS.IP + 1}, nil
}

func hBr(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	l := op.Label
	return HandlerResult{Kind: ResultBranch, BranchArity: l.Arity, BranchDepth: l.OriginalWasmDepth, BranchTargetIP: l.TargetIP, BranchIsLoop: l.IsLoop}, nil
}

func hBrIf(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	cond := ctx.FS.pop()
	if cond == 0 {
		return HandlerResult{Kind: ResultContinue, NextIP: ctx.FS.IP + 1}, nil
	}
	l := op.Label
	return HandlerResult{Kind: ResultBranch, BranchArity: l.Arity, BranchDepth: l.OriginalWasmDepth, BranchTargetIP: l.TargetIP, BranchIsLoop: l.IsLoop}, nil
}

func hBrTable(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	idx := uint32(ctx.FS.pop())
	l := op.BrTbl.Default
	if int(idx) < len(op.BrTbl.Targets) {
		l = op.BrTbl.Targets[idx]
	}
	return HandlerResult{Kind: ResultBranch, BranchArity: l.Arity, BranchDepth: l.OriginalWasmDepth, BranchTargetIP: l.TargetIP, BranchIsLoop: l.IsLoop}, nil
}

func hReturn(_ *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return HandlerResult{Kind: ResultReturn}, nil
}

func hUnreachable(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return HandlerResult{}, ctx.trap(wasm.TrapCodeUnreachable)
}

func hNop(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	return HandlerResult{Kind: ResultContinue, NextIP: ctx.FS.IP + 1}, nil
}

func hDrop(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	ctx.FS.pop()
	return HandlerResult{Kind: ResultContinue, NextIP: ctx.FS.IP + 1}, nil
}

func hSelect(ctx *ExecutionContext, _ *Operand) (HandlerResult, error) {
	cond := ctx.FS.pop()
	b := ctx.FS.pop()
	a := ctx.FS.pop()
	if cond != 0 {
		ctx.FS.push(a)
	} else {
		ctx.FS.push(b)
	}
	return HandlerResult{Kind: ResultContinue, NextIP: ctx.FS.IP + 1}, nil
}

func hCall(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	addr := ctx.FS.Frame.Module.Function(op.Index)
	callee := ctx.Store.Funcs[addr]
	return HandlerResult{Kind: ResultInvoke, InvokeAddr: addr, InvokeArity: len(callee.Type.Params)}, nil
}

func hCallIndirect(ctx *ExecutionContext, op *Operand) (HandlerResult, error) {
	tableAddr := ctx.FS.Frame.Module.Table(op.Call.TableIdx)
	table := ctx.Store.Tables[tableAddr]
	i := uint32(ctx.FS.pop())

	ref, ok := table.Get(i)
	if !ok {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeInvalidTableAccess)
	}
	if ref == 0 {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeUninitializedElement)
	}
	addr := wasm.FunctionAddr(ref - 1)
	callee := ctx.Store.Funcs[addr]

	declared := &ctx.FS.Frame.Module.Types[op.Call.TypeIdx]
	if !api.EqualFunctionType(declared, callee.Type) {
		return HandlerResult{}, ctx.trap(wasm.TrapCodeIndirectCallTypeMismatch)
	}
	return HandlerResult{Kind: ResultInvoke, InvokeAddr: addr, InvokeArity: len(callee.Type.Params)}, nil
}
