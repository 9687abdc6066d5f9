package wazeroir

import (
	"fmt"

	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/wasm"
)

// controlFrame tracks one open block/loop/if while Phase 1 walks the
// operator stream, and is replayed identically during branch resolution so
// a fixup can ask "what frame is N levels up from here" (spec.md §4.1
// Phase 2).
type controlFrame struct {
	startPC    uint32
	isIf       bool
	isLoop     bool
	arity      int // block/if: result count; loop: param count (what a branch re-supplies)
	resultArity int // always the result count, needed for the frame's own fallthrough
}

type fixup struct {
	pc            uint32
	relativeDepth uint32
}

type brTableFixup struct {
	pc     uint32
	depths []uint32 // last entry is the default
}

// virtualOuterStartPC keys the function body's own implicit outer frame
// (see Preprocess's "outer" controlFrame below) in blockEndMap. Reuses
// sentinelIP's value: both mean "not a real instruction pc", and a real
// pc is always in [0, len(body)). Without this, a real block/loop/if that
// happens to open at pc 0 collides with the outer frame's own startPC of 0
// and has its end overwritten by the function's terminating end.
const virtualOuterStartPC = sentinelIP

// resolveBlockType expands a RawBlockType against the module's type section
// (or the enclosing function's own signature, which a func body never
// references directly, but kept symmetric for callers that reuse this for
// top-level preprocessing).
func resolveBlockType(module *wasm.Module, raw wasm.RawBlockType) api.BlockType {
	if raw.Empty {
		return api.BlockType{}
	}
	if raw.TypeIndex >= 0 {
		ft := module.Types[raw.TypeIndex]
		return api.BlockType{Params: ft.Params, Results: ft.Results}
	}
	return api.BlockType{Results: []api.ValueType{raw.ValType}}
}

// Preprocess implements spec.md §4.1: it converts a function's raw decoded
// operators into a flat ProcessedInstr vector with every branch resolved to
// an absolute program counter. fold enables Phase 5 operand/superinstruction
// folding (the --superinstructions CLI flag, spec.md §6).
func Preprocess(module *wasm.Module, funcIdx uint32, funcType *api.FunctionType, code *wasm.Code, fold bool) (*Result, error) {
	body := code.Body
	processed := make([]ProcessedInstr, len(body))

	blockEndMap := map[uint32]uint32{}
	ifElseMap := map[uint32]uint32{}

	// The virtual outer frame represents the function body's own implicit
	// block: br targeting it behaves like return (spec.md §9 implicitly,
	// by treating the function as depth-0's enclosing construct).
	outer := controlFrame{
		startPC:     virtualOuterStartPC,
		arity:       len(funcType.Results),
		resultArity: len(funcType.Results),
		isLoop:      false,
	}
	controlStack := []controlFrame{outer}

	var fixups []fixup
	var brTableFixups []brTableFixup

	for pc32 := range body {
		pc := uint32(pc32)
		op := body[pc]

		switch op.Op {
		case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
			bt := resolveBlockType(module, op.Block)
			frame := controlFrame{
				startPC:     pc,
				isIf:        op.Op == wasm.OpIf,
				isLoop:      op.Op == wasm.OpLoop,
				arity:       len(bt.Results),
				resultArity: len(bt.Results),
			}
			if frame.isLoop {
				frame.arity = len(bt.Params) // a branch into a loop re-supplies its params
			}
			controlStack = append(controlStack, frame)

			blk := Block{
				Arity:      len(bt.Results),
				ParamCount: len(bt.Params),
				Results:    bt.Results,
				Params:     bt.Params,
				IsLoop:     frame.isLoop,
				StartIP:    pc,
				EndIP:      sentinelIP,
			}
			kind := OperandBlock
			if frame.isIf {
				kind = OperandIfBlock
			}
			processed[pc] = ProcessedInstr{
				HandlerID: opHandlerID(op.Op),
				Operand:   Operand{Kind: kind, Block: blk, Label: LabelIdx{TargetIP: sentinelIP}},
			}

		case wasm.OpElse:
			if len(controlStack) < 2 {
				return nil, &wasm.PreprocessingError{FuncIdx: funcIdx, Reason: "else without matching if"}
			}
			top := &controlStack[len(controlStack)-1]
			if !top.isIf {
				return nil, &wasm.PreprocessingError{FuncIdx: funcIdx, Reason: "else without matching if"}
			}
			processed[pc] = ProcessedInstr{
				HandlerID: opHandlerID(op.Op),
				Operand:   Operand{Kind: OperandLabelIdx, Label: LabelIdx{TargetIP: sentinelIP}},
			}
			// else's target (block_end_map[matching if's start]) is only
			// known once that if's `end` is processed below; resolved there.

		case wasm.OpEnd:
			if len(controlStack) == 0 {
				return nil, &wasm.PreprocessingError{FuncIdx: funcIdx, Reason: "unmatched end"}
			}
			frame := controlStack[len(controlStack)-1]
			controlStack = controlStack[:len(controlStack)-1]
			endAfter := pc + 1
			blockEndMap[frame.startPC] = endAfter

			if frame.isIf {
				elsePC := findElse(body, processed, frame.startPC, pc)
				if elsePC != sentinelIP {
					ifElseMap[frame.startPC] = elsePC
					processed[elsePC].Operand.Label = LabelIdx{TargetIP: endAfter}
				} else {
					ifElseMap[frame.startPC] = endAfter
				}
				processed[frame.startPC].Operand.Label = LabelIdx{TargetIP: ifElseMap[frame.startPC]}
			}
			if frame.startPC < uint32(len(processed)) {
				if startInstr := &processed[frame.startPC]; startInstr.Operand.Kind == OperandBlock || startInstr.Operand.Kind == OperandIfBlock {
					startInstr.Operand.Block.EndIP = endAfter
				}
			}
			processed[pc] = ProcessedInstr{HandlerID: opHandlerID(op.Op)}

		case wasm.OpBr, wasm.OpBrIf:
			processed[pc] = ProcessedInstr{
				HandlerID: opHandlerID(op.Op),
				Operand:   Operand{Kind: OperandLabelIdx, Label: LabelIdx{TargetIP: sentinelIP, OriginalWasmDepth: op.Index}},
			}
			fixups = append(fixups, fixup{pc: pc, relativeDepth: op.Index})

		case wasm.OpBrTable:
			n := len(op.BrTargets)
			processed[pc] = ProcessedInstr{
				HandlerID: opHandlerID(op.Op),
				Operand: Operand{
					Kind: OperandBrTable,
					BrTbl: BrTable{
						Targets: make([]LabelIdx, n-1),
						Default: LabelIdx{TargetIP: sentinelIP},
					},
				},
			}
			brTableFixups = append(brTableFixups, brTableFixup{pc: pc, depths: op.BrTargets})

		default:
			instr, err := decodeSimple(module, op)
			if err != nil {
				return nil, &wasm.PreprocessingError{FuncIdx: funcIdx, Reason: "decode", Err: err}
			}
			processed[pc] = instr
		}
	}

	if len(controlStack) != 0 {
		return nil, &wasm.PreprocessingError{FuncIdx: funcIdx, Reason: "unclosed block/loop/if at function end"}
	}

	if err := resolveBranches(processed, fixups, brTableFixups, funcType, blockEndMap); err != nil {
		return nil, &wasm.PreprocessingError{FuncIdx: funcIdx, Reason: "branch resolution", Err: err}
	}

	if err := sanityCheck(processed); err != nil {
		return nil, &wasm.PreprocessingError{FuncIdx: funcIdx, Reason: "sanity check", Err: err}
	}

	if fold {
		Fold(processed)
	}

	return &Result{
		Code:               processed,
		MaxValueStackDepth: estimateMaxDepth(processed),
		FrameLocalCount:    len(funcType.Params) + len(code.LocalTypes),
	}, nil
}

// findElse scans pc range (start, end) for the matching `else` at this
// if's own nesting level (depth-0 relative to start), since an already
// fully-decoded else inside a *nested* if must not be mistaken for this
// frame's own else. Phase 1 has already closed every nested frame by the
// time we reach `end`, so we can identify "our" else purely by scanning for
// an HElse-handled instruction whose HandlerID we placed at decode time
// while depth-tracking the same block/loop/if/end nesting.
func findElse(body []wasm.Operator, processed []ProcessedInstr, start, end uint32) uint32 {
	depth := 0
	for pc := start + 1; pc < end; pc++ {
		switch body[pc].Op {
		case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
			depth++
		case wasm.OpEnd:
			depth--
		case wasm.OpElse:
			if depth == 0 {
				return pc
			}
		}
	}
	return sentinelIP
}

// resolveBranches is spec.md §4.1 Phases 2 and 3 combined into a single
// streaming replay of the control stack (functionally identical to
// re-streaming processed[0..=pc] independently per fixup, but O(n) instead
// of O(n·fixups): the control stack at each pc only depends on everything
// strictly before it, so one left-to-right pass suffices for every fixup in
// program order).
func resolveBranches(processed []ProcessedInstr, fixups []fixup, brTableFixups []brTableFixup, funcType *api.FunctionType, blockEndMap map[uint32]uint32) error {
	fixupsByPC := map[uint32]fixup{}
	for _, f := range fixups {
		fixupsByPC[f.pc] = f
	}
	brTableByPC := map[uint32]brTableFixup{}
	for _, f := range brTableFixups {
		brTableByPC[f.pc] = f
	}

	outer := controlFrame{startPC: virtualOuterStartPC, arity: len(funcType.Results), resultArity: len(funcType.Results)}
	stack := []controlFrame{outer}

	resolve := func(depth uint32) (LabelIdx, error) {
		idx := len(stack) - 1 - int(depth)
		if idx < 0 {
			return LabelIdx{}, fmt.Errorf("relative depth %d exceeds control stack", depth)
		}
		frame := stack[idx]
		var targetIP uint32
		if frame.isLoop {
			// Target the loop's body (startPC+1), not the loop marker
			// itself: doBranch already re-pushes the popped loop label
			// for us (spec.md §4.2 "a branch to a loop is a re-entry, not
			// an exit"), so landing back on the marker would make
			// runFrame re-execute hLoop and push a second copy of the
			// same label — every back-edge would then leak one label,
			// corrupting every relative-depth resolution after it.
			targetIP = frame.startPC + 1
		} else {
			targetIP = blockEndMap[frame.startPC]
		}
		return LabelIdx{TargetIP: targetIP, Arity: frame.arity, OriginalWasmDepth: depth, IsLoop: frame.isLoop}, nil
	}

	for pc := range processed {
		instr := &processed[pc]

		if f, ok := fixupsByPC[uint32(pc)]; ok {
			li, err := resolve(f.relativeDepth)
			if err != nil {
				return err
			}
			instr.Operand.Label = li
		}
		if f, ok := brTableByPC[uint32(pc)]; ok {
			for i, depth := range f.depths {
				li, err := resolve(depth)
				if err != nil {
					return err
				}
				if i == len(f.depths)-1 {
					instr.Operand.BrTbl.Default = li
				} else {
					instr.Operand.BrTbl.Targets[i] = li
				}
			}
		}

		switch instr.Operand.Kind {
		case OperandBlock, OperandIfBlock:
			frame := controlFrame{
				startPC:     uint32(pc),
				isIf:        instr.Operand.Kind == OperandIfBlock,
				isLoop:      instr.Operand.Block.IsLoop,
				arity:       instr.Operand.Block.Arity,
				resultArity: instr.Operand.Block.Arity,
			}
			if frame.isLoop {
				frame.arity = instr.Operand.Block.ParamCount
			}
			stack = append(stack, frame)
		}
		if instr.HandlerID == opHandlerID(wasm.OpEnd) {
			if len(stack) > 1 { // never pop the virtual outer frame here; it closes with the loop below implicitly
				stack = stack[:len(stack)-1]
			}
		}
	}
	return nil
}

// sanityCheck implements spec.md §4.1 Phase 4: every LabelIdx/BrTable
// operand reachable from a resolved instruction must have a real target.
func sanityCheck(processed []ProcessedInstr) error {
	for pc, instr := range processed {
		switch instr.Operand.Kind {
		case OperandLabelIdx:
			if !instr.Operand.Label.Valid() {
				return fmt.Errorf("unresolved branch target at ip %d", pc)
			}
		case OperandIfBlock:
			if !instr.Operand.Label.Valid() {
				return fmt.Errorf("unresolved if-false-jump target at ip %d", pc)
			}
		case OperandBrTable:
			if !instr.Operand.BrTbl.Default.Valid() {
				return fmt.Errorf("unresolved br_table default at ip %d", pc)
			}
			for i, t := range instr.Operand.BrTbl.Targets {
				if !t.Valid() {
					return fmt.Errorf("unresolved br_table target %d at ip %d", i, pc)
				}
			}
		}
	}
	return nil
}

// estimateMaxDepth walks the processed code's static structure conservatively:
// it is only used to pre-size the value stack, so overestimating is safe
// and cheap. We count every instruction as pushing at most one value before
// ever popping, which bounds the stack at len(processed); a fixed slack of 8
// is added on top.
func estimateMaxDepth(processed []ProcessedInstr) int {
	return len(processed) + 8
}
