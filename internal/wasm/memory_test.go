package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryGrowRespectsMax(t *testing.T) {
	m := NewMemoryInstance(1, 2, true)
	require.Equal(t, uint32(1), m.PageSize())

	prev, ok := m.Grow(1)
	require.True(t, ok)
	require.Equal(t, uint32(1), prev)
	require.Equal(t, uint32(2), m.PageSize())

	_, ok = m.Grow(1)
	require.False(t, ok, "growing past Max must fail and leave the memory unchanged")
	require.Equal(t, uint32(2), m.PageSize())
}

func TestMemoryGrowUnboundedStillCapsAtImplementationLimit(t *testing.T) {
	m := NewMemoryInstance(0, 0, false)
	_, ok := m.Grow(65537)
	require.False(t, ok)
}

func TestMemoryReadWriteRoundTrip(t *testing.T) {
	m := NewMemoryInstance(1, 0, false)

	require.True(t, m.WriteUint16Le(10, 0xBEEF))
	v, ok := m.ReadUint16Le(10)
	require.True(t, ok)
	require.Equal(t, uint16(0xBEEF), v)

	require.True(t, m.WriteByte(0, 0x42))
	b, ok := m.ReadByte(0)
	require.True(t, ok)
	require.Equal(t, byte(0x42), b)
}

func TestMemoryOutOfBoundsAccessFails(t *testing.T) {
	m := NewMemoryInstance(1, 0, false)
	last := uint32(len(m.Buffer))

	_, ok := m.ReadByte(last)
	require.False(t, ok)
	require.False(t, m.WriteByte(last, 1))

	// An offset+size computation that would wrap around uint64 must also
	// be rejected rather than wrapping into an in-bounds-looking range.
	require.False(t, m.inBounds(^uint64(0), 2))
}
