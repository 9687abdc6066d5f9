package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/interpreter"
	"github.com/oss-fun/chiwawa/internal/wasm"
)

// buildInstance instantiates a bare module with one memory, one mutable i32
// global, and one exported function of type ()->i32 whose body never runs
// in this test (only its Store-side allocations are exercised).
func buildInstance(t *testing.T) (*wasm.Store, *wasm.ModuleInstance) {
	t.Helper()

	mod := &wasm.Module{
		Types:               []api.FunctionType{{Results: []api.ValueType{api.ValueTypeI32}}},
		FunctionTypeIndices: []uint32{0},
		Code:                []wasm.Code{{Body: []wasm.Operator{{Op: wasm.OpEnd}}}},
		Mems:                []wasm.MemoryType{{Min: 1}},
		Globals: []wasm.GlobalDecl{
			{Type: wasm.GlobalType{ValType: api.ValueTypeI32, Mutable: true}, Init: wasm.ConstExpr{Value: api.I32(7)}},
		},
		Tables: []wasm.TableType{{ElemType: api.ValueTypeFuncref, Min: 2}},
		Exports: []wasm.Export{
			{Name: "get", Type: api.ExternTypeFunc, Index: 0},
		},
	}

	store := wasm.NewStore()
	mi, err := store.Instantiate("m", mod, nil, nil)
	require.NoError(t, err)
	return store, mi
}

func TestCheckpointRestoreRoundTrip(t *testing.T) {
	store, mi := buildInstance(t)

	// Mutate guest-visible state the way a running activation would.
	store.Mems[0].Buffer[0] = 0xAB
	store.Globals[0].Val = 99
	store.Tables[0].References[1] = uint64(mi.FuncAddrs[0]) + 1

	stacks := &interpreter.Stacks{
		Activation: []*interpreter.FrameStack{
			{
				Frame: interpreter.Frame{
					FuncAddr:      mi.FuncAddrs[0],
					Locals:        []uint64{1, 2},
					LocalTypes:    []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
					FuncTypeArity: 1,
					Module:        mi,
					DebugName:     "get",
				},
				IP:         1,
				ValueStack: []uint64{42},
				Labels: []interpreter.Label{
					{Kind: interpreter.LabelBlock, Arity: 1, ContinuationIP: 1},
				},
				InstructionCount: 5,
			},
		},
	}

	path := filepath.Join(t.TempDir(), "checkpoint.bin")
	require.NoError(t, Checkpoint(stacks, store, mi, path))

	// Restore against a freshly instantiated store/module, as the real CLI
	// path does (spec.md §4.3's restore procedure).
	store2, mi2 := buildInstance(t)
	restored, err := Restore(store2, mi2, path)
	require.NoError(t, err)

	require.Equal(t, byte(0xAB), store2.Mems[0].Buffer[0])
	require.Equal(t, uint64(99), store2.Globals[0].Val)
	require.Equal(t, uint64(mi2.FuncAddrs[0])+1, store2.Tables[0].References[1])
	require.Equal(t, uint64(0), store2.Tables[0].References[0])

	require.Len(t, restored.Activation, 1)
	fs := restored.Activation[0]
	require.Equal(t, mi2.FuncAddrs[0], fs.Frame.FuncAddr)
	require.Equal(t, []uint64{1, 2}, fs.Frame.Locals)
	require.Equal(t, uint32(1), fs.IP)
	require.Equal(t, []uint64{42}, fs.ValueStack)
	require.Equal(t, uint64(5), fs.InstructionCount)
	require.Len(t, fs.Labels, 1)
	require.Equal(t, interpreter.LabelBlock, fs.Labels[0].Kind)
}

func TestRestoreRejectsMemoryCountMismatch(t *testing.T) {
	store, mi := buildInstance(t)
	path := filepath.Join(t.TempDir(), "checkpoint.bin")
	require.NoError(t, Checkpoint(&interpreter.Stacks{}, store, mi, path))

	mod := &wasm.Module{} // no memories at all
	store2 := wasm.NewStore()
	mi2, err := store2.Instantiate("m2", mod, nil, nil)
	require.NoError(t, err)

	_, err = Restore(store2, mi2, path)
	require.Error(t, err)
}
