package wazeroir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/interpreter"
	"github.com/oss-fun/chiwawa/internal/wasm"
)

// foldableModule returns (3+4)*2 via a body shaped to exercise three of the
// folder's fold kinds: a const/const binary fold, a trailing local.set
// destination fold, and a local/const binary fold. The unary and
// load-address folds are not exercised here.
func foldableModule() *wasm.Module {
	return &wasm.Module{
		Types:               []api.FunctionType{{Results: []api.ValueType{api.ValueTypeI32}}},
		FunctionTypeIndices: []uint32{0},
		Code: []wasm.Code{{
			LocalTypes: []api.ValueType{api.ValueTypeI32},
			Body: []wasm.Operator{
				{Op: wasm.OpI32Const, I32: 3},
				{Op: wasm.OpI32Const, I32: 4},
				{Op: wasm.OpI32Add},
				{Op: wasm.OpLocalSet, Index: 0},
				{Op: wasm.OpLocalGet, Index: 0},
				{Op: wasm.OpI32Const, I32: 2},
				{Op: wasm.OpI32Mul},
				{Op: wasm.OpEnd},
			},
		}},
		Exports: []wasm.Export{{Name: "run", Type: api.ExternTypeFunc, Index: 0}},
	}
}

// TestFoldingEquivalence runs the same function compiled with folding on
// and off and checks they produce the same observable result — the actual
// guarantee spec.md §8 makes about folding, as opposed to merely matching
// static shape (see TestFoldingPreservesStaticShape in compiler_test.go).
func TestFoldingEquivalence(t *testing.T) {
	mod := foldableModule()

	unfoldedStore := wasm.NewStore()
	unfoldedMI, err := unfoldedStore.Instantiate("m", mod, nil, nil)
	require.NoError(t, err)
	unfoldedEngine := interpreter.NewEngine(unfoldedStore, false, nil)
	unfoldedResults, err := unfoldedEngine.Invoke(unfoldedMI, "run", nil, nil)
	require.NoError(t, err)

	foldedStore := wasm.NewStore()
	foldedMI, err := foldedStore.Instantiate("m", mod, nil, nil)
	require.NoError(t, err)
	foldedEngine := interpreter.NewEngine(foldedStore, true, nil)
	foldedResults, err := foldedEngine.Invoke(foldedMI, "run", nil, nil)
	require.NoError(t, err)

	require.Equal(t, int32(14), unfoldedResults[0].I32())
	require.Equal(t, unfoldedResults[0].I32(), foldedResults[0].I32())
}
