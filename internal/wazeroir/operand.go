// Package wazeroir implements chiwawa's preprocessor: it turns a function's
// raw, decoded Wasm operators into a flat Vec<ProcessedInstr> with every
// branch already resolved to an absolute program counter, per spec.md §4.1.
// The name echoes the teacher's own intermediate representation package
// (internal/wazeroir in tetratelabs/wazero), whose decode/fixup pipeline
// this preprocessor generalizes into a handler-table-ready encoding.
package wazeroir

import "github.com/oss-fun/chiwawa/api"

// HandlerID is declared in handlers.go, alongside the dispatch ids folding
// assigns beyond the wasm.Opcode space.

// sentinelIP marks an unresolved (or intentionally absent) instruction
// pointer. Every LabelIdx reachable from execution must have
// TargetIP != sentinelIP once Preprocess returns (spec.md §8 universal
// invariant, §3 invariant 3).
const sentinelIP = ^uint32(0)

// OperandKind discriminates the Operand tagged union (spec.md §3
// "ProcessedInstr").
type OperandKind byte

const (
	OperandNone OperandKind = iota
	OperandImmI32
	OperandImmI64
	OperandImmF32
	OperandImmF64
	OperandLocalIdx
	OperandGlobalIdx
	OperandFuncIdx
	OperandTableIdx
	OperandTypeIdx
	OperandRefType
	OperandMemArg
	OperandBlock
	OperandIfBlock // like OperandBlock, but .Label also carries the resolved false-jump target
	OperandLabelIdx
	OperandBrTable
	OperandCallIndirect
	OperandOptimizedSingle
	OperandOptimizedDouble
	OperandDataIdx
	OperandElemIdx
	OperandMemoryCopyArgs // table.copy/memory.copy: two indices (dst table/mem only ever 0 in MVP, kept for future multi-memory)
)

// MemArg is the offset/align pair carried by every memory load/store.
type MemArg struct {
	Offset uint32
	Align  uint32
}

// Block describes a structured control-flow marker's static shape, filled
// in during Phase 1 decode and consulted (never mutated) during Phase 2
// branch resolution.
type Block struct {
	Arity      int // len(Results) for block/if; unused directly by loop branches
	ParamCount int
	Results    []api.ValueType
	Params     []api.ValueType
	IsLoop     bool
	StartIP    uint32
	EndIP      uint32 // populated once the matching `end` is seen
}

// LabelIdx is a fully resolved branch target: TargetIP points into the same
// ProcessedInstr vector the branch itself lives in.
type LabelIdx struct {
	TargetIP         uint32
	Arity            int
	OriginalWasmDepth uint32
	IsLoop           bool
}

// Valid reports whether the target was actually resolved (spec.md §8:
// "target_ip ≠ sentinel" for every reachable LabelIdx).
func (l LabelIdx) Valid() bool { return l.TargetIP != sentinelIP }

// BrTable is br_table's fully resolved operand: one LabelIdx per table
// entry plus the default.
type BrTable struct {
	Targets []LabelIdx
	Default LabelIdx
}

// CallIndirectArgs carries the statically declared type and table to check
// against at runtime.
type CallIndirectArgs struct {
	TypeIdx  uint32
	TableIdx uint32
}

// ValueSourceKind discriminates where a folded superinstruction reads one of
// its operands from.
type ValueSourceKind byte

const (
	SourceStack ValueSourceKind = iota
	SourceConst
	SourceLocal
	SourceGlobal
)

// ValueSource is one operand of a folded Optimized(Single|Double)
// instruction (spec.md §3).
type ValueSource struct {
	Kind  ValueSourceKind
	Const api.Val
	Index uint32 // meaningful when Kind is SourceLocal or SourceGlobal
}

// StoreTargetKind discriminates where a folded superinstruction's result is
// written, bypassing the value stack push/pop pair.
type StoreTargetKind byte

const (
	StoreNone StoreTargetKind = iota
	StoreLocal
	StoreGlobal
)

type StoreTarget struct {
	Kind  StoreTargetKind
	Index uint32
}

// Optimized is the fused form the folder (Phase 5) produces: a consumer
// instruction whose 1 or 2 operand producers, and optionally its result
// consumer, have been absorbed so the superinstruction handler can skip the
// value stack entirely.
type Optimized struct {
	Op     HandlerID // the original consumer's handler id (e.g. wasm.OpI32Add), preserved since HOptimizedSingle/Double overwrite ProcessedInstr.HandlerID
	Binary bool // false => Single (one source), true => Double (two sources)
	Src1   ValueSource
	Src2   ValueSource // only meaningful when Binary
	Mem    *MemArg      // set for folded constant-address computation on loads (stores are never folded)
	Store  StoreTarget
}

// MemoryCopyArgs names a src/dst pair for memory.copy/table.copy/
// memory.init/table.init: the non-constant operands (dst/src/len) travel on
// the value stack as usual; this operand only carries the static segment or
// memory/table index operands decided at preprocessing time.
type MemoryCopyArgs struct {
	DstIndex uint32
	SrcIndex uint32
}

// Operand is the tagged union carried by every ProcessedInstr. Exactly the
// fields implied by Kind are meaningful; the rest are zero.
type Operand struct {
	Kind OperandKind

	ImmI32  int32
	ImmI64  int64
	ImmF32  float32
	ImmF64  float64
	Index   uint32 // LocalIdx | GlobalIdx | FuncIdx | TableIdx | TypeIdx | DataIdx | ElemIdx
	RefType api.ValueType
	Mem     MemArg
	Block   Block
	Label   LabelIdx
	BrTbl   BrTable
	Call    CallIndirectArgs
	Opt     Optimized
	CopyIdx MemoryCopyArgs
}

// ProcessedInstr is the unit the execution core dispatches: a handler id
// plus its operand (spec.md §3).
type ProcessedInstr struct {
	HandlerID HandlerID
	Operand   Operand
}

// Result is what Preprocess returns for one function body: the flat
// instruction vector plus the descriptor the execution core uses to
// pre-size its stacks (spec.md §4.1 contract).
type Result struct {
	Code               []ProcessedInstr
	MaxValueStackDepth int
	FrameLocalCount    int // params + declared locals
}
