package wasm

import "github.com/oss-fun/chiwawa/api"

// TableInstance is an ordered sequence of opaque reference slots. A slot
// holds the raw encoding produced by api.FuncRef/api.ExternRef (0 = null);
// see spec.md §3 "Table instance".
type TableInstance struct {
	References []uint64
	Type       api.ValueType // api.ValueTypeFuncref or api.ValueTypeExternref
	Min        uint32
	Max        uint32
	HasMax     bool
}

func NewTableInstance(elemType api.ValueType, min, max uint32, hasMax bool) *TableInstance {
	return &TableInstance{
		References: make([]uint64, min),
		Type:       elemType,
		Min:        min,
		Max:        max,
		HasMax:     hasMax,
	}
}

func (t *TableInstance) Size() uint32 { return uint32(len(t.References)) }

// Grow grows the table by delta slots filled with init, returning the
// previous size. Monotonic, like MemoryInstance.Grow.
func (t *TableInstance) Grow(delta uint32, init uint64) (previous uint32, ok bool) {
	cur := t.Size()
	next := uint64(cur) + uint64(delta)
	if t.HasMax && next > uint64(t.Max) {
		return 0, false
	}
	if next > 1<<32-1 {
		return 0, false
	}
	grown := make([]uint64, delta)
	for i := range grown {
		grown[i] = init
	}
	t.References = append(t.References, grown...)
	return cur, true
}

func (t *TableInstance) Get(i uint32) (uint64, bool) {
	if i >= t.Size() {
		return 0, false
	}
	return t.References[i], true
}

func (t *TableInstance) Set(i uint32, v uint64) bool {
	if i >= t.Size() {
		return false
	}
	t.References[i] = v
	return true
}

// Copy implements table.copy, honoring overlap the same way MemoryInstance.Copy does.
func (t *TableInstance) Copy(dst, src, n uint32) bool {
	if uint64(dst)+uint64(n) > uint64(t.Size()) || uint64(src)+uint64(n) > uint64(t.Size()) {
		return false
	}
	copy(t.References[dst:dst+n], t.References[src:src+n])
	return true
}

// Init implements table.init from a (non-dropped) element segment's refs.
func (t *TableInstance) Init(elems []uint64, dst, src, n uint32) bool {
	if uint64(src)+uint64(n) > uint64(len(elems)) {
		return false
	}
	if uint64(dst)+uint64(n) > uint64(t.Size()) {
		return false
	}
	copy(t.References[dst:dst+n], elems[src:src+n])
	return true
}

// Fill implements table.fill.
func (t *TableInstance) Fill(offset uint32, v uint64, n uint32) bool {
	if uint64(offset)+uint64(n) > uint64(t.Size()) {
		return false
	}
	s := t.References[offset : offset+n]
	for i := range s {
		s[i] = v
	}
	return true
}
