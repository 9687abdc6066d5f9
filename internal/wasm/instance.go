package wasm

import (
	"fmt"

	"github.com/oss-fun/chiwawa/api"
)

// ExportInstance is a named, typed handle into the owning ModuleInstance's
// address vectors.
type ExportInstance struct {
	Type  api.ExternType
	Index uint32 // index into the relevant *Addrs vector below
}

// ModuleInstance bundles the index vectors a running module needs: imported
// plus defined func/mem/table/global addresses, an export map, and an
// optional host-bridge handle, per spec.md §3 "Module instance".
//
// ModuleInstance holds a back-pointer to its Store so address lookups (used
// constantly by the execution core) are O(1) slice indexing rather than a
// map lookup. The Store is logically a singleton per process (spec.md §9:
// "the Store is owned by exactly one module instance per process"), so this
// does not introduce the kind of ownership cycle checkpoint/restore needs to
// break — only the per-call Frame→Module link is "weak" in that sense (see
// internal/interpreter).
type ModuleInstance struct {
	Name string

	Store *Store

	FuncAddrs   []FunctionAddr
	MemAddrs    []MemoryAddr
	TableAddrs  []TableAddr
	GlobalAddrs []GlobalAddr
	ElemAddrs   []ElemAddr
	DataAddrs   []DataAddr

	Types []api.FunctionType

	// SourceModule is the decoded module this instance was built from. The
	// interpreter engine consults it (type-section lookups for block types)
	// when lazily preprocessing a guest function's body the first time it
	// is invoked.
	SourceModule *Module

	Exports map[string]ExportInstance

	// BridgeHandle is the optional host-call bridge used to satisfy host
	// function imports (spec.md §6 "Host call bridge"). Nil if the module
	// imports no host functions.
	BridgeHandle interface{}

	// ID is a stable identifier surfaced in checkpoints (spec.md §4.3
	// "Module identity"). There is one root module per process, so this is
	// purely informational at restore time.
	ID string

	// pendingStart is the module-local index of the start function, if the
	// module declared one; set by Store.Instantiate and consumed once by
	// the embedder via PendingStart.
	pendingStart *uint32
}

// PendingStart returns the module-local function index of the declared
// start function and clears it, or ok=false if there is none or it was
// already consumed.
func (mi *ModuleInstance) PendingStart() (idx uint32, ok bool) {
	if mi.pendingStart == nil {
		return 0, false
	}
	idx = *mi.pendingStart
	mi.pendingStart = nil
	return idx, true
}

// LookupExport resolves a named export of the expected type.
func (mi *ModuleInstance) LookupExport(name string, t api.ExternType) (ExportInstance, error) {
	exp, ok := mi.Exports[name]
	if !ok {
		return ExportInstance{}, fmt.Errorf("%q is not exported in module %q", name, mi.Name)
	}
	if exp.Type != t {
		return ExportInstance{}, fmt.Errorf("export %q in module %q is a %s, not a %s",
			name, mi.Name, api.ExternTypeName(exp.Type), api.ExternTypeName(t))
	}
	return exp, nil
}

// Function resolves the FunctionAddr of the idx-th function in this
// module's function index space.
func (mi *ModuleInstance) Function(idx uint32) FunctionAddr { return mi.FuncAddrs[idx] }
func (mi *ModuleInstance) Memory(idx uint32) MemoryAddr      { return mi.MemAddrs[idx] }
func (mi *ModuleInstance) Table(idx uint32) TableAddr        { return mi.TableAddrs[idx] }
func (mi *ModuleInstance) Global(idx uint32) GlobalAddr      { return mi.GlobalAddrs[idx] }
