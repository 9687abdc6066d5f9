package wasm

import "github.com/oss-fun/chiwawa/api"

// FunctionKind distinguishes a guest (Wasm-bodied) function from a host
// function reached through the call bridge.
type FunctionKind byte

const (
	FunctionKindGuest FunctionKind = iota
	FunctionKindHost
)

// FunctionInstance is either guest (code body + locals descriptor + owning
// module + lazily-populated preprocessed code) or host (opaque bridge
// handle), per spec.md §3 "Function instance".
//
// The preprocessed instruction vector itself is NOT a field here: following
// the frame/module back-reference pattern of spec.md §9 ("frames hold a
// non-owning back-reference to their module by handle + lookup"), compiled
// code is owned by the interpreter engine and looked up by FunctionAddr, so
// that internal/wasm never needs to import internal/wazeroir or
// internal/interpreter. See DESIGN.md.
type FunctionInstance struct {
	Kind FunctionKind
	Type *api.FunctionType

	// Guest-only.
	Code *Code

	// Host-only: opaque name used by the host-call bridge to dispatch.
	HostImportModule string
	HostImportName   string

	// Module is the owning module instance. Set by the Store during
	// instantiation; guest functions resolve local/global/memory/table
	// addresses through it.
	Module *ModuleInstance

	// DebugName is used in trap diagnostics and logging fields.
	DebugName string

	// Idx is this function's position in the module-wide function index
	// space (imports first).
	Idx Index
}
