package wasm

import "encoding/binary"

// MemoryPageSize is the number of bytes in one Wasm linear memory page.
const MemoryPageSize = 65536

// MemoryInstance is the runtime representation of a linear memory: a
// contiguous byte buffer that grows monotonically, page at a time, up to an
// optional maximum. See spec.md §3 "Memory instance".
type MemoryInstance struct {
	Buffer   []byte
	Min      uint32 // pages
	Max      uint32 // pages; 0 means "unbounded" only when HasMax is false
	HasMax   bool
}

// NewMemoryInstance allocates a zeroed memory of min pages.
func NewMemoryInstance(min, max uint32, hasMax bool) *MemoryInstance {
	return &MemoryInstance{
		Buffer: make([]byte, uint64(min)*MemoryPageSize),
		Min:    min,
		Max:    max,
		HasMax: hasMax,
	}
}

// PageSize returns the current size of the memory in pages.
func (m *MemoryInstance) PageSize() uint32 {
	return uint32(len(m.Buffer) / MemoryPageSize)
}

// Grow attempts to grow the memory by delta pages, returning the previous
// size in pages. Grow is monotonic: on failure (would exceed Max, or would
// overflow the implementation limit) the memory is left unchanged and ok is
// false, which callers surface to the guest as memory.grow returning -1.
func (m *MemoryInstance) Grow(delta uint32) (previousPages uint32, ok bool) {
	cur := m.PageSize()
	next := uint64(cur) + uint64(delta)
	if m.HasMax && next > uint64(m.Max) {
		return 0, false
	}
	// wasm limits total memory to 2^32 bytes, i.e. 65536 pages.
	if next > 65536 {
		return 0, false
	}
	m.Buffer = append(m.Buffer, make([]byte, uint64(delta)*MemoryPageSize)...)
	return cur, true
}

func (m *MemoryInstance) inBounds(offset uint64, size uint64) bool {
	return offset+size <= uint64(len(m.Buffer)) && offset+size >= offset
}

func (m *MemoryInstance) ReadByte(offset uint32) (byte, bool) {
	if !m.inBounds(uint64(offset), 1) {
		return 0, false
	}
	return m.Buffer[offset], true
}

func (m *MemoryInstance) WriteByte(offset uint32, v byte) bool {
	if !m.inBounds(uint64(offset), 1) {
		return false
	}
	m.Buffer[offset] = v
	return true
}

func (m *MemoryInstance) ReadUint16Le(offset uint32) (uint16, bool) {
	if !m.inBounds(uint64(offset), 2) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(m.Buffer[offset:]), true
}

func (m *MemoryInstance) WriteUint16Le(offset uint32, v uint16) bool {
	if !m.inBounds(uint64(offset), 2) {
		return false
	}
	binary.LittleEndian.PutUint16(m.Buffer[offset:], v)
	return true
}

func (m *MemoryInstance) ReadUint32Le(offset uint32) (uint32, bool) {
	if !m.inBounds(uint64(offset), 4) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(m.Buffer[offset:]), true
}

func (m *MemoryInstance) WriteUint32Le(offset uint32, v uint32) bool {
	if !m.inBounds(uint64(offset), 4) {
		return false
	}
	binary.LittleEndian.PutUint32(m.Buffer[offset:], v)
	return true
}

func (m *MemoryInstance) ReadUint64Le(offset uint32) (uint64, bool) {
	if !m.inBounds(uint64(offset), 8) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(m.Buffer[offset:]), true
}

func (m *MemoryInstance) WriteUint64Le(offset uint32, v uint64) bool {
	if !m.inBounds(uint64(offset), 8) {
		return false
	}
	binary.LittleEndian.PutUint64(m.Buffer[offset:], v)
	return true
}

// Copy implements memory.copy dst<-src for n bytes, honoring overlap in the
// direction required when src < dst (copy backwards) as specced by the
// "src-after-dst direction" scenario in spec.md §8 scenario 3.
func (m *MemoryInstance) Copy(dst, src, n uint32) bool {
	if !m.inBounds(uint64(dst), uint64(n)) || !m.inBounds(uint64(src), uint64(n)) {
		return false
	}
	copy(m.Buffer[dst:dst+n], m.Buffer[src:src+n])
	return true
}

// Fill implements memory.fill: writes n copies of v starting at offset.
func (m *MemoryInstance) Fill(offset uint32, v byte, n uint32) bool {
	if !m.inBounds(uint64(offset), uint64(n)) {
		return false
	}
	buf := m.Buffer[offset : offset+n]
	for i := range buf {
		buf[i] = v
	}
	return true
}

// Init implements memory.init: copies n bytes from a (non-dropped) data
// segment's bytes starting at src into memory at dst.
func (m *MemoryInstance) Init(data []byte, dst, src, n uint32) bool {
	if uint64(src)+uint64(n) > uint64(len(data)) {
		return false
	}
	if !m.inBounds(uint64(dst), uint64(n)) {
		return false
	}
	copy(m.Buffer[dst:dst+n], data[src:src+n])
	return true
}
