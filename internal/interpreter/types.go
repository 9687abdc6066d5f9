// Package interpreter is chiwawa's execution core: a dense handler table
// indexed by wazeroir.HandlerID, dispatched from a single inner loop with no
// opcode switch, operating on a frame stack of activations per spec.md
// §4.2. Its overall shape — a flat handler-id dispatch table and a
// frame/value-stack pair per activation — is grounded on the teacher's
// internal/engine/interpreter/interpreter.go. Traps travel as returned
// errors; no panic is recovered anywhere in the package.
package interpreter

import (
	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/wasm"
	"github.com/oss-fun/chiwawa/internal/wazeroir"
)

// LabelKind discriminates a Label's structured control-flow shape.
type LabelKind int

const (
	LabelBlock LabelKind = iota
	LabelLoop
	LabelIf
)

// Label is one entry of an activation's control stack (spec.md §3
// "LabelStack"): block/loop/if markers, pushed on entry and popped on `end`
// or unwound by a branch.
type Label struct {
	Kind                    LabelKind
	Arity                   int
	ContinuationIP          uint32
	ValueStackHeightAtEntry int
	IsLoop                  bool
}

// Frame is one function activation's locals plus its static arity (spec.md
// §3 "Frame"). Locals are stored in chiwawa's flat raw-uint64 encoding
// (params then declared locals, zero-initialized), matching the teacher's
// unboxed value-stack convention — the type each slot holds is implicit in
// the function's signature and never re-derived at runtime, exactly as
// validated Wasm bytecode guarantees.
type Frame struct {
	Locals        []uint64
	LocalTypes    []api.ValueType
	FuncTypeArity int // result count
	Module        *wasm.ModuleInstance
	FuncAddr      wasm.FunctionAddr
	DebugName     string
}

// FrameStack is one activation's full execution state: its Frame, current
// ip, control-flow label stack, and a value stack private to this
// activation (spec.md §3 "FrameStack"). Chiwawa gives each activation its
// own value stack slice rather than one shared stack sliced by per-label
// bases — Label.ValueStackHeightAtEntry still records the truncation point
// an unwind restores to, so every invariant in spec.md §3 holds; only the
// storage is activation-local instead of globally shared, which has no
// observable effect since a FrameStack's value stack is never read by any
// other activation.
type FrameStack struct {
	Frame            Frame
	IP               uint32
	Labels           []Label
	ValueStack       []uint64
	Void             bool
	InstructionCount uint64
	AccessedGlobals  map[uint32]struct{}
	AccessedLocals   map[uint32]struct{}
}

// Stacks is the root of all guest-mutable state for one running instance
// (spec.md §3), along with the Store it was instantiated into.
type Stacks struct {
	Activation []*FrameStack
}

func (s *Stacks) Current() *FrameStack {
	if len(s.Activation) == 0 {
		return nil
	}
	return s.Activation[len(s.Activation)-1]
}

func (s *Stacks) Push(fs *FrameStack) { s.Activation = append(s.Activation, fs) }

func (s *Stacks) Pop() *FrameStack {
	n := len(s.Activation)
	fs := s.Activation[n-1]
	s.Activation = s.Activation[:n-1]
	return fs
}

// push/pop are the value-stack primitives every handler uses. Raw uint64
// encoding: float bits via math.Float{32,64}bits, references via
// api.Val.Raw(), matching internal/wasm's boxed/unboxed split.
func (fs *FrameStack) push(v uint64) {
	fs.ValueStack = append(fs.ValueStack, v)
}

func (fs *FrameStack) pop() uint64 {
	n := len(fs.ValueStack)
	v := fs.ValueStack[n-1]
	fs.ValueStack = fs.ValueStack[:n-1]
	return v
}

func (fs *FrameStack) popN(n int) []uint64 {
	l := len(fs.ValueStack)
	vs := make([]uint64, n)
	copy(vs, fs.ValueStack[l-n:])
	fs.ValueStack = fs.ValueStack[:l-n]
	return vs
}

func (fs *FrameStack) pushN(vs []uint64) {
	fs.ValueStack = append(fs.ValueStack, vs...)
}

func (fs *FrameStack) truncateTo(height int) {
	fs.ValueStack = fs.ValueStack[:height]
}

// Operand is a re-export so handler files don't import wazeroir directly
// under a different name in every file.
type Operand = wazeroir.Operand
