package interpreter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/wasm"
)

func instantiate(t *testing.T, mod *wasm.Module) (*wasm.Store, *wasm.ModuleInstance) {
	t.Helper()
	s := wasm.NewStore()
	mi, err := s.Instantiate("m", mod, nil, nil)
	require.NoError(t, err)
	return s, mi
}

// TestBrNestedDepths exercises a br that unwinds three nested blocks in one
// jump: the result must come from the branch's own value, not from any
// instruction the branch skipped over.
func TestBrNestedDepths(t *testing.T) {
	mod := &wasm.Module{
		Types:               []api.FunctionType{{Results: []api.ValueType{api.ValueTypeI32}}},
		FunctionTypeIndices: []uint32{0},
		Code: []wasm.Code{{Body: []wasm.Operator{
			{Op: wasm.OpBlock, Block: wasm.RawBlockType{TypeIndex: -1, ValType: api.ValueTypeI32}},
			{Op: wasm.OpBlock, Block: wasm.RawBlockType{TypeIndex: -1, ValType: api.ValueTypeI32}},
			{Op: wasm.OpBlock, Block: wasm.RawBlockType{TypeIndex: -1, ValType: api.ValueTypeI32}},
			{Op: wasm.OpI32Const, I32: 0x1F},
			{Op: wasm.OpBr, Index: 2},
			{Op: wasm.OpEnd},
			{Op: wasm.OpEnd},
			{Op: wasm.OpEnd},
			{Op: wasm.OpEnd},
		}}},
		Exports: []wasm.Export{{Name: "run", Type: api.ExternTypeFunc, Index: 0}},
	}
	_, mi := instantiate(t, mod)
	eng := NewEngine(mi.Store, false, nil)

	results, err := eng.Invoke(mi, "run", nil, nil)
	require.NoError(t, err)
	require.Equal(t, int32(0x1F), results[0].I32())
}

// TestBlockAtPCZeroIsNotTheFunctionsOuterFrame is the reviewer's exact
// repro for the virtual-outer-frame/blockEndMap collision: a block opening
// at pc 0 must keep its own end distinct from the function body's own
// implicit terminating end.
func TestBlockAtPCZeroIsNotTheFunctionsOuterFrame(t *testing.T) {
	mod := &wasm.Module{
		Types:               []api.FunctionType{{Results: []api.ValueType{api.ValueTypeI32}}},
		FunctionTypeIndices: []uint32{0},
		Code: []wasm.Code{{Body: []wasm.Operator{
			{Op: wasm.OpBlock, Block: wasm.RawBlockType{Empty: true}},
			{Op: wasm.OpBr, Index: 0},
			{Op: wasm.OpEnd},
			{Op: wasm.OpI32Const, I32: 42},
			{Op: wasm.OpEnd},
		}}},
		Exports: []wasm.Export{{Name: "run", Type: api.ExternTypeFunc, Index: 0}},
	}
	_, mi := instantiate(t, mod)
	eng := NewEngine(mi.Store, false, nil)

	results, err := eng.Invoke(mi, "run", nil, nil)
	require.NoError(t, err)
	require.Equal(t, int32(42), results[0].I32())
}

// TestLoopBackEdgeDoesNotLeakLabels regresses the double-push bug: a br_if
// back into an enclosing loop, taken repeatedly, must never grow the label
// stack, or the br that finally exits the loop (a different relative depth)
// resolves against the wrong frame.
func TestLoopBackEdgeDoesNotLeakLabels(t *testing.T) {
	mod := &wasm.Module{
		Types:               []api.FunctionType{{Results: []api.ValueType{api.ValueTypeI32}}},
		FunctionTypeIndices: []uint32{0},
		Code: []wasm.Code{{
			LocalTypes: []api.ValueType{api.ValueTypeI32},
			Body: []wasm.Operator{
				{Op: wasm.OpBlock, Block: wasm.RawBlockType{TypeIndex: -1, ValType: api.ValueTypeI32}},
				{Op: wasm.OpLoop, Block: wasm.RawBlockType{Empty: true}},
				{Op: wasm.OpLocalGet, Index: 0},
				{Op: wasm.OpI32Const, I32: 1},
				{Op: wasm.OpI32Add},
				{Op: wasm.OpLocalSet, Index: 0},
				{Op: wasm.OpLocalGet, Index: 0},
				{Op: wasm.OpI32Const, I32: 5},
				{Op: wasm.OpI32LtS},
				{Op: wasm.OpBrIf, Index: 0},
				{Op: wasm.OpLocalGet, Index: 0},
				{Op: wasm.OpBr, Index: 1},
				{Op: wasm.OpEnd},
				{Op: wasm.OpEnd},
				{Op: wasm.OpEnd},
			},
		}},
		Exports: []wasm.Export{{Name: "run", Type: api.ExternTypeFunc, Index: 0}},
	}
	_, mi := instantiate(t, mod)
	eng := NewEngine(mi.Store, false, nil)

	results, err := eng.Invoke(mi, "run", nil, nil)
	require.NoError(t, err)
	require.Equal(t, int32(5), results[0].I32())
}

// TestCallIndirectTypeMismatch builds a three-slot table of two compatibly
// typed functions and one differently typed function, and checks
// call_indirect against all three slots.
func TestCallIndirectTypeMismatch(t *testing.T) {
	t0 := api.FunctionType{Results: []api.ValueType{api.ValueTypeI32}}
	t1 := api.FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}

	mod := &wasm.Module{
		Types:               []api.FunctionType{t0, t1},
		FunctionTypeIndices: []uint32{0, 0, 1, 1},
		Code: []wasm.Code{
			{Body: []wasm.Operator{{Op: wasm.OpI32Const, I32: 42}, {Op: wasm.OpEnd}}},
			{Body: []wasm.Operator{{Op: wasm.OpI32Const, I32: 82}, {Op: wasm.OpEnd}}},
			{Body: []wasm.Operator{{Op: wasm.OpLocalGet, Index: 0}, {Op: wasm.OpEnd}}},
			{Body: []wasm.Operator{
				{Op: wasm.OpLocalGet, Index: 0},
				{Op: wasm.OpCallIndirect, Index: 0, Index2: 0},
				{Op: wasm.OpEnd},
			}},
		},
		Tables:  []wasm.TableType{{ElemType: api.ValueTypeFuncref, Min: 3, Max: 3, HasMax: true}},
		Exports: []wasm.Export{{Name: "run", Type: api.ExternTypeFunc, Index: 3}},
	}
	s, mi := instantiate(t, mod)

	tbl := s.Tables[mi.TableAddrs[0]]
	require.True(t, tbl.Set(0, api.FuncRef(uint32(mi.FuncAddrs[0])).U64()))
	require.True(t, tbl.Set(1, api.FuncRef(uint32(mi.FuncAddrs[1])).U64()))
	require.True(t, tbl.Set(2, api.FuncRef(uint32(mi.FuncAddrs[2])).U64()))

	eng := NewEngine(s, false, nil)

	results, err := eng.Invoke(mi, "run", []api.Val{api.I32(0)}, nil)
	require.NoError(t, err)
	require.Equal(t, int32(42), results[0].I32())

	results, err = eng.Invoke(mi, "run", []api.Val{api.I32(1)}, nil)
	require.NoError(t, err)
	require.Equal(t, int32(82), results[0].I32())

	_, err = eng.Invoke(mi, "run", []api.Val{api.I32(2)}, nil)
	require.Error(t, err)
	var trap *wasm.Trap
	require.ErrorAs(t, err, &trap)
	require.Equal(t, wasm.TrapCodeIndirectCallTypeMismatch, trap.Code)
}

// TestMemoryCopyOverlap checks memory.copy's overlap case where dst lands
// inside the source range: every destination byte must come from the
// source's value before the copy began, matching memmove rather than a
// naive byte-by-byte forward copy.
func TestMemoryCopyOverlap(t *testing.T) {
	mod := &wasm.Module{
		Types:               []api.FunctionType{{}},
		FunctionTypeIndices: []uint32{0},
		Code: []wasm.Code{{Body: []wasm.Operator{
			{Op: wasm.OpI32Const, I32: 2}, // dst
			{Op: wasm.OpI32Const, I32: 0}, // src
			{Op: wasm.OpI32Const, I32: 5}, // n
			{Op: wasm.OpMemoryCopy, Index: 0, Index2: 0},
			{Op: wasm.OpEnd},
		}}},
		Mems:    []wasm.MemoryType{{Min: 1}},
		Exports: []wasm.Export{{Name: "run", Type: api.ExternTypeFunc, Index: 0}},
	}
	s, mi := instantiate(t, mod)

	mem := s.Mems[mi.MemAddrs[0]]
	for i := range mem.Buffer[:10] {
		mem.Buffer[i] = byte(i)
	}

	eng := NewEngine(s, false, nil)
	_, err := eng.Invoke(mi, "run", nil, nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 1, 0, 1, 2, 3, 4, 7, 8, 9}, mem.Buffer[:10])
}

// TestTrapUnwindNoPartialWrites runs a trap two activations deep: the
// callee writes once, traps before its second write, and the caller must
// see exactly the pre-trap write — nothing from after the unreachable, and
// the trap itself must propagate out through both frames.
func TestTrapUnwindNoPartialWrites(t *testing.T) {
	mod := &wasm.Module{
		Types:               []api.FunctionType{{}},
		FunctionTypeIndices: []uint32{0, 0},
		Code: []wasm.Code{
			{Body: []wasm.Operator{
				{Op: wasm.OpI32Const, I32: 0},
				{Op: wasm.OpI32Const, I32: 0xAA},
				{Op: wasm.OpI32Store8},
				{Op: wasm.OpUnreachable},
				{Op: wasm.OpI32Const, I32: 4},
				{Op: wasm.OpI32Const, I32: 0xBB},
				{Op: wasm.OpI32Store8},
				{Op: wasm.OpEnd},
			}},
			{Body: []wasm.Operator{
				{Op: wasm.OpCall, Index: 0},
				{Op: wasm.OpEnd},
			}},
		},
		Mems:    []wasm.MemoryType{{Min: 1}},
		Exports: []wasm.Export{{Name: "run", Type: api.ExternTypeFunc, Index: 1}},
	}
	s, mi := instantiate(t, mod)

	eng := NewEngine(s, false, nil)
	_, err := eng.Invoke(mi, "run", nil, nil)
	require.Error(t, err)
	var trap *wasm.Trap
	require.ErrorAs(t, err, &trap)
	require.Equal(t, wasm.TrapCodeUnreachable, trap.Code)

	mem := s.Mems[mi.MemAddrs[0]]
	require.Equal(t, byte(0xAA), mem.Buffer[0])
	require.Equal(t, byte(0), mem.Buffer[4])
}
