package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/clog"
	"github.com/oss-fun/chiwawa/internal/interpreter"
	"github.com/oss-fun/chiwawa/internal/wasm"
)

// Checkpoint captures stacks and store into a SerializableState and
// atomically writes it to path (spec.md §4.3 "Checkpoint procedure"): the
// body is written to a sibling temp file first, then renamed onto path, so a
// reader never observes a partially-written blob.
func Checkpoint(stacks *interpreter.Stacks, store *wasm.Store, mi *wasm.ModuleInstance, path string) error {
	st, err := snapshot(stacks, store, mi)
	if err != nil {
		return fmt.Errorf("building checkpoint snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".chiwawa-checkpoint-*")
	if err != nil {
		return fmt.Errorf("creating checkpoint temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if err := st.encode(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing checkpoint temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming checkpoint into place: %w", err)
	}
	clog.Infof("checkpoint written to %s (%d frames)", path, len(st.Stacks))
	return nil
}

// snapshot assembles a SerializableState from the live execution state. It
// must only be called at a safe point (engine.Run returning
// ErrCheckpointRequested guarantees this).
func snapshot(stacks *interpreter.Stacks, store *wasm.Store, mi *wasm.ModuleInstance) (*SerializableState, error) {
	st := &SerializableState{ModuleID: mi.ID}

	st.Stacks = make([]Frame, len(stacks.Activation))
	for i, fs := range stacks.Activation {
		st.Stacks[i] = Frame{
			FuncAddr:         uint32(fs.Frame.FuncAddr),
			Locals:           append([]uint64(nil), fs.Frame.Locals...),
			IP:               fs.IP,
			Labels:           toSerializedLabels(fs.Labels),
			ValueStack:       append([]uint64(nil), fs.ValueStack...),
			Void:             fs.Void,
			InstructionCount: fs.InstructionCount,
		}
	}

	st.MemoryData = make([][]byte, len(store.Mems))
	for i, mem := range store.Mems {
		st.MemoryData[i] = append([]byte(nil), mem.Buffer...)
	}

	st.Globals = make([]Global, len(store.Globals))
	for i, g := range store.Globals {
		st.Globals[i] = Global{Lo: g.Val, Hi: g.ValHi}
	}

	funcIdx := funcAddrIndex(mi)
	st.TablesData = make([][]TableSlot, len(store.Tables))
	for i, tbl := range store.Tables {
		slots := make([]TableSlot, len(tbl.References))
		for j, raw := range tbl.References {
			if raw == 0 {
				slots[j] = TableSlot{Null: true}
				continue
			}
			addr := wasm.FunctionAddr(raw - 1)
			idx, ok := funcIdx[addr]
			if !ok {
				// A live externref or a funcref into a module this
				// checkpoint doesn't own: spec.md §4.3 point 4 only
				// specifies the funcref-in-owning-module case, so
				// anything else is stored as null rather than guessed at.
				slots[j] = TableSlot{Null: true}
				continue
			}
			slots[j] = TableSlot{Index: idx}
		}
		st.TablesData[i] = slots
	}

	return st, nil
}

// Restore reads path and rebuilds an interpreter.Stacks against an already
// freshly instantiated store/mi (spec.md §4.3 "Restore procedure": the
// module is instantiated normally first, so every memory/table/global
// already exists at the right size; this only replaces their contents and
// rebuilds the frame stack on top).
func Restore(store *wasm.Store, mi *wasm.ModuleInstance, path string) (*interpreter.Stacks, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint %s: %w", path, err)
	}
	defer f.Close()

	st, err := decodeState(f)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", path, err)
	}
	if st.ModuleID != mi.ID {
		clog.Warnf("checkpoint module id %s does not match freshly instantiated module id %s; restoring by position anyway", st.ModuleID, mi.ID)
	}

	if len(st.MemoryData) != len(store.Mems) {
		return nil, fmt.Errorf("checkpoint has %d memories, store has %d", len(st.MemoryData), len(store.Mems))
	}
	for i, data := range st.MemoryData {
		mem := store.Mems[i]
		if len(data) != len(mem.Buffer) {
			return nil, fmt.Errorf("memory %d: checkpoint has %d bytes, instantiated memory has %d", i, len(data), len(mem.Buffer))
		}
		copy(mem.Buffer, data)
	}

	if len(st.Globals) != len(store.Globals) {
		return nil, fmt.Errorf("checkpoint has %d globals, store has %d", len(st.Globals), len(store.Globals))
	}
	for i, g := range st.Globals {
		store.Globals[i].Val = g.Lo
		store.Globals[i].ValHi = g.Hi
	}

	if len(st.TablesData) != len(store.Tables) {
		return nil, fmt.Errorf("checkpoint has %d tables, store has %d", len(st.TablesData), len(store.Tables))
	}
	for i, slots := range st.TablesData {
		tbl := store.Tables[i]
		if len(slots) != len(tbl.References) {
			return nil, fmt.Errorf("table %d: checkpoint has %d slots, instantiated table has %d", i, len(slots), len(tbl.References))
		}
		for j, slot := range slots {
			if slot.Null {
				tbl.References[j] = 0
				continue
			}
			if int(slot.Index) >= len(mi.FuncAddrs) {
				return nil, fmt.Errorf("table %d slot %d: out-of-range function index %d", i, j, slot.Index)
			}
			tbl.References[j] = uint64(mi.FuncAddrs[slot.Index]) + 1
		}
	}

	stacks := &interpreter.Stacks{Activation: make([]*interpreter.FrameStack, len(st.Stacks))}
	for i, sf := range st.Stacks {
		addr := wasm.FunctionAddr(sf.FuncAddr)
		if int(addr) >= len(store.Funcs) {
			return nil, fmt.Errorf("frame %d: out-of-range function address %d", i, addr)
		}
		fn := store.Funcs[addr]
		stacks.Activation[i] = rebuildFrameStack(sf, fn, addr)
	}

	return stacks, nil
}

// rebuildFrameStack re-derives everything a live interpreter.FrameStack
// needs beyond what SerializableState carries (spec.md §4.3 point 1: the
// weak module back-pointer is omitted and rebuilt here from the freshly
// instantiated store instead).
func rebuildFrameStack(sf Frame, fn *wasm.FunctionInstance, addr wasm.FunctionAddr) *interpreter.FrameStack {
	fs := &interpreter.FrameStack{
		Frame: interpreter.Frame{
			Locals:        append([]uint64(nil), sf.Locals...),
			LocalTypes:    localTypesOf(fn),
			FuncTypeArity: len(fn.Type.Results),
			Module:        fn.Module,
			FuncAddr:      addr,
			DebugName:     fn.DebugName,
		},
		IP:               sf.IP,
		Labels:           fromSerializedLabels(sf.Labels),
		ValueStack:       append([]uint64(nil), sf.ValueStack...),
		Void:             sf.Void,
		InstructionCount: sf.InstructionCount,
	}
	return fs
}

// localTypesOf rebuilds a frame's full local-slot type vector (params then
// declared locals), matching Engine.newActivation's construction for a
// freshly started activation.
func localTypesOf(fn *wasm.FunctionInstance) []api.ValueType {
	lt := make([]api.ValueType, len(fn.Type.Params)+len(fn.Code.LocalTypes))
	copy(lt, fn.Type.Params)
	copy(lt[len(fn.Type.Params):], fn.Code.LocalTypes)
	return lt
}
