package wazeroir

import "github.com/oss-fun/chiwawa/internal/wasm"

// HandlerID indexes the interpreter's dense handler table (spec.md §4.2
// "Handler Table"). Pre-folding, HandlerID(instr) == HandlerID(wasm.Opcode
// of the operator it was decoded from) — the opcode set is already dense
// and closed (spec.md §4.1 Phase 1), so reusing it directly as the
// dispatch key avoids a redundant parallel enumeration. Folding (Phase 5)
// additionally assigns the ids below, which have no wasm.Opcode
// counterpart.
type HandlerID uint16

const (
	// HNopFolded is what an absorbed producer/consumer is overwritten
	// with: per spec.md §4.1 Phase 5 and §9 "Folding and NOPs vs.
	// renumbering", this preserves every already-resolved target_ip at the
	// cost of one extra dispatch per absorbed instruction.
	HNopFolded HandlerID = HandlerID(wasm.OpcodeCount) + iota

	// HOptimizedSingle/HOptimizedDouble dispatch Optimized(Single|Double)
	// superinstructions (spec.md §4.2 "Superinstruction handlers").
	HOptimizedSingle
	HOptimizedDouble

	// HNotImplemented is every unused slot's handler: it always traps,
	// per spec.md §4.2 "Unused slots point to a 'not implemented' handler
	// that always traps."
	HNotImplemented

	handlerIDCount
)

func opHandlerID(op wasm.Opcode) HandlerID { return HandlerID(op) }

// HandlerIDCount is the size the execution core's dense handler table must
// be allocated at: every HandlerID ever assigned, opcode or folded, is
// strictly less than this.
func HandlerIDCount() int { return int(handlerIDCount) }
