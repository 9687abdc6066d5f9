package wasm

// Addresses are indices into the parallel vectors held by a Store. They are
// stable for the lifetime of the Store, per spec.md §3 "Store".
type (
	FunctionAddr uint32
	MemoryAddr   uint32
	TableAddr    uint32
	GlobalAddr   uint32
	ElemAddr     uint32
	DataAddr     uint32
)

// Index is a position within a module-local index space (imports first),
// as opposed to an Addr which is a position in the Store.
type Index = uint32
