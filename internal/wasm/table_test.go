package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-fun/chiwawa/api"
)

func TestTableGrowRespectsMax(t *testing.T) {
	tbl := NewTableInstance(api.ValueTypeFuncref, 1, 2, true)

	prev, ok := tbl.Grow(1, api.FuncRef(3).U64())
	require.True(t, ok)
	require.Equal(t, uint32(1), prev)
	require.Equal(t, uint32(2), tbl.Size())

	_, ok = tbl.Grow(1, 0)
	require.False(t, ok)
	require.Equal(t, uint32(2), tbl.Size())
}

func TestTableCopyOverlapping(t *testing.T) {
	tbl := NewTableInstance(api.ValueTypeFuncref, 4, 4, true)
	for i := range tbl.References {
		tbl.References[i] = uint64(i) + 1
	}

	require.True(t, tbl.Copy(0, 1, 3)) // dst/src ranges overlap
	require.Equal(t, []uint64{2, 3, 4, 4}, tbl.References)
}

func TestTableInitFromElems(t *testing.T) {
	tbl := NewTableInstance(api.ValueTypeFuncref, 3, 3, true)
	elems := []uint64{10, 20, 30}

	require.True(t, tbl.Init(elems, 0, 1, 2))
	require.Equal(t, []uint64{20, 30, 0}, tbl.References)

	require.False(t, tbl.Init(elems, 2, 0, 2), "dst+n beyond table size must fail")
	require.False(t, tbl.Init(elems, 0, 2, 2), "src+n beyond elems length must fail")
}

func TestTableFill(t *testing.T) {
	tbl := NewTableInstance(api.ValueTypeFuncref, 4, 4, true)
	require.True(t, tbl.Fill(1, 99, 2))
	require.Equal(t, []uint64{0, 99, 99, 0}, tbl.References)

	require.False(t, tbl.Fill(3, 1, 2), "offset+n beyond table size must fail")
}

func TestTableGetSetBounds(t *testing.T) {
	tbl := NewTableInstance(api.ValueTypeFuncref, 2, 2, true)
	require.True(t, tbl.Set(1, 7))
	v, ok := tbl.Get(1)
	require.True(t, ok)
	require.Equal(t, uint64(7), v)

	_, ok = tbl.Get(2)
	require.False(t, ok)
	require.False(t, tbl.Set(2, 1))
}
