package interpreter

import "github.com/oss-fun/chiwawa/internal/wasm"

// ResultKind discriminates HandlerResult (spec.md §4.2 "HandlerResult
// variants").
type ResultKind int

const (
	ResultContinue ResultKind = iota
	ResultBranch
	ResultInvoke
	ResultReturn
	ResultPushLabel
	ResultPopLabel
)

// HandlerResult is what every handler returns to the inner loop; the loop
// — not the handler — performs the stack pop/unwind/push steps spec.md
// §4.2 "Branch semantics" describes, since those steps are identical for
// every branch-shaped instruction.
type HandlerResult struct {
	Kind ResultKind

	// ResultContinue
	NextIP uint32

	// ResultBranch
	BranchArity     int
	BranchDepth     uint32 // original_wasm_depth
	BranchTargetIP  uint32
	BranchIsLoop    bool

	// ResultInvoke
	InvokeAddr  wasm.FunctionAddr
	InvokeArity int // argument count to pop from the caller's value stack

	// ResultPushLabel
	LabelKind      LabelKind
	LabelArity     int
	ParamCount     int
	ContinuationIP uint32
	IsLoop         bool

	// ResultPopLabel
	PopArity int
}

// Handler implements one instruction's semantics (spec.md §4.2 "Handler
// signature"). Traps are ordinary Go errors (*wasm.Trap), not panics — the
// steady-state propagation path is a return value, matching SPEC_FULL.md §7.
type Handler func(ctx *ExecutionContext, operand *Operand) (HandlerResult, error)

// ExecutionContext is the state one handler invocation may touch (spec.md
// §4.2 "ExecutionContext"): the current activation, the Store it reads
// memory/table/global instances through, and the Engine for invoking other
// functions' compiled code.
type ExecutionContext struct {
	FS     *FrameStack
	Store  *wasm.Store
	Engine *Engine
}

func (c *ExecutionContext) trap(code wasm.TrapCode) error {
	return &wasm.Trap{Code: code, Function: c.FS.Frame.DebugName, IP: int(c.FS.IP)}
}
