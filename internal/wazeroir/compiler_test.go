package wazeroir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/wasm"
)

func addOneAndTwoBody() *wasm.Code {
	return &wasm.Code{
		Body: []wasm.Operator{
			{Op: wasm.OpI32Const, I32: 1},
			{Op: wasm.OpI32Const, I32: 2},
			{Op: wasm.OpI32Add},
			{Op: wasm.OpEnd},
		},
	}
}

func TestPreprocessFlattensBodyOneToOne(t *testing.T) {
	fnType := &api.FunctionType{Results: []api.ValueType{api.ValueTypeI32}}
	result, err := Preprocess(&wasm.Module{}, 0, fnType, addOneAndTwoBody(), false)
	require.NoError(t, err)
	require.Len(t, result.Code, 4)
	require.Equal(t, HandlerID(wasm.OpI32Const), result.Code[0].HandlerID)
	require.Equal(t, HandlerID(wasm.OpI32Add), result.Code[2].HandlerID)
}

func TestFoldingCollapsesConstConstBinaryIntoOneOptimizedOp(t *testing.T) {
	fnType := &api.FunctionType{Results: []api.ValueType{api.ValueTypeI32}}
	folded, err := Preprocess(&wasm.Module{}, 0, fnType, addOneAndTwoBody(), true)
	require.NoError(t, err)
	require.Len(t, folded.Code, 4, "folding rewrites in place; it never renumbers or shrinks Code")

	require.Equal(t, HNopFolded, folded.Code[0].HandlerID)
	require.Equal(t, HNopFolded, folded.Code[1].HandlerID)
	require.Equal(t, HOptimizedDouble, folded.Code[2].HandlerID)
	require.Equal(t, HandlerID(wasm.OpI32Add), folded.Code[2].Operand.Opt.Op)
	require.True(t, folded.Code[2].Operand.Opt.Binary)
}

func TestFoldingPreservesStaticShape(t *testing.T) {
	fnType := &api.FunctionType{Results: []api.ValueType{api.ValueTypeI32}}

	unfolded, err := Preprocess(&wasm.Module{}, 0, fnType, addOneAndTwoBody(), false)
	require.NoError(t, err)
	folded, err := Preprocess(&wasm.Module{}, 0, fnType, addOneAndTwoBody(), true)
	require.NoError(t, err)

	// Folding must never change the function's static shape: same
	// instruction count and the same resource budget the execution core
	// pre-sizes its stacks from (spec.md §4.1 Phase 5 is an in-place
	// rewrite, never a renumbering). This is necessary but not sufficient —
	// TestFoldingEquivalence in compiler_equivalence_test.go actually runs
	// both versions and compares their results.
	require.Equal(t, len(unfolded.Code), len(folded.Code))
	require.Equal(t, unfolded.MaxValueStackDepth, folded.MaxValueStackDepth)
	require.Equal(t, unfolded.FrameLocalCount, folded.FrameLocalCount)
}
