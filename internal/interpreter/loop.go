package interpreter

import "github.com/oss-fun/chiwawa/internal/wazeroir"

// runFrame drives one activation's dispatch loop (spec.md §4.2 "Inner
// loop") until a handler returns ResultInvoke or ResultReturn, at which
// point control bubbles up to Engine.Run to cross an activation boundary.
// No switch on opcode appears here — every decision is handler-table
// dispatch by instr.HandlerID, per spec.md §4.2's explicit requirement.
func (e *Engine) runFrame(stacks *Stacks, fs *FrameStack, code []wazeroir.ProcessedInstr) (HandlerResult, error) {
	ctx := &ExecutionContext{FS: fs, Store: e.Store, Engine: e}
	for {
		if fs.IP >= uint32(len(code)) {
			return HandlerResult{Kind: ResultReturn}, nil
		}
		instr := &code[fs.IP]
		handler := handlerTable[instr.HandlerID]

		res, err := handler(ctx, &instr.Operand)
		if err != nil {
			return HandlerResult{}, err
		}
		fs.InstructionCount++

		switch res.Kind {
		case ResultContinue:
			fs.IP = res.NextIP
		case ResultPushLabel:
			arity := res.LabelArity
			if res.IsLoop {
				arity = res.ParamCount
			}
			fs.Labels = append(fs.Labels, Label{
				Kind:                    res.LabelKind,
				Arity:                   arity,
				ContinuationIP:          res.ContinuationIP,
				ValueStackHeightAtEntry: len(fs.ValueStack) - res.ParamCount,
				IsLoop:                  res.IsLoop,
			})
			fs.IP = res.NextIP
		case ResultPopLabel:
			fs.Labels = fs.Labels[:len(fs.Labels)-1]
			fs.IP = res.NextIP
		case ResultBranch:
			fs.IP = doBranch(fs, res.BranchArity, res.BranchDepth, res.BranchTargetIP)
		case ResultInvoke, ResultReturn:
			return res, nil
		}
	}
}

// doBranch implements spec.md §4.2 "Branch semantics" steps 1-5: pop the
// branch's arity values, unwind depth+1 labels truncating the value stack
// to the target's recorded entry height, re-push the label if it is a loop
// (a branch to a loop is a re-entry, not an exit), then push the saved
// values back. Returns the ip to resume at — for a loop this is always the
// loop's body (wazeroir.Preprocess resolves a loop branch target to
// startPC+1, never the loop marker's own pc), so runFrame never
// re-dispatches hLoop on a back-edge; if it did, hLoop would push a second
// copy of the label this function just re-pushed.
func doBranch(fs *FrameStack, arity int, depth uint32, targetIP uint32) uint32 {
	values := fs.popN(arity)

	var target Label
	for i := uint32(0); i <= depth; i++ {
		target = fs.Labels[len(fs.Labels)-1]
		fs.Labels = fs.Labels[:len(fs.Labels)-1]
	}
	fs.truncateTo(target.ValueStackHeightAtEntry)
	if target.IsLoop {
		fs.Labels = append(fs.Labels, target)
	}
	fs.pushN(values)
	return targetIP
}
