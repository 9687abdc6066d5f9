package wasm

import "github.com/oss-fun/chiwawa/api"

// Code is one function's decoded-but-unprocessed body: its declared local
// types (params are carried on FunctionType, not here) and the flat operator
// sequence the preprocessor walks in spec.md §4.1 Phase 1.
type Code struct {
	LocalTypes []api.ValueType
	Body       []Operator
}

// Import describes a single import declaration prior to resolution.
type Import struct {
	Module, Name string
	Type         api.ExternType
	FuncTypeIdx  uint32 // meaningful when Type == ExternTypeFunc
	Mem          MemoryType
	Table        TableType
	Global       GlobalType
}

type MemoryType struct {
	Min, Max uint32
	HasMax   bool
}

type TableType struct {
	ElemType api.ValueType
	Min, Max uint32
	HasMax   bool
}

// Export maps a name to an index in the corresponding module-local index
// space (imports first).
type Export struct {
	Name  string
	Type  api.ExternType
	Index uint32
}

// ElementMode distinguishes how an element segment is applied.
type ElementMode byte

const (
	ElementModeActive ElementMode = iota
	ElementModePassive
	ElementModeDeclarative
)

// ElementSegment is a table initializer. Init holds raw reference encodings
// (see api.FuncRef), resolved from `ref.func`/`ref.null` const expressions
// at module-build time.
type ElementSegment struct {
	Mode       ElementMode
	TableIndex uint32
	Offset     ConstExpr
	Type       api.ValueType
	Init       []uint64
}

// DataMode mirrors ElementMode for data segments (no declarative variant).
type DataMode byte

const (
	DataModeActive DataMode = iota
	DataModePassive
)

type DataSegment struct {
	Mode       DataMode
	MemIndex   uint32
	Offset     ConstExpr
	Init       []byte
}

// ConstExpr is a resolved constant initializer: either an immediate value or
// a reference to an imported global (global.get in a const expr may only
// reference an import, per the Wasm spec).
type ConstExpr struct {
	IsGlobalGet bool
	GlobalIndex uint32
	Value       api.Val
}

// Module is the statically decoded, not-yet-instantiated representation of a
// Wasm binary: the input to Store.Instantiate. Full validation is presumed
// done upstream (spec.md §1); Module only needs to be internally consistent
// enough for preprocessing to run.
type Module struct {
	Types   []api.FunctionType
	Imports []Import

	// FunctionTypeIndices[i] is the type-section index of the i-th
	// module-defined (non-imported) function; Code[i] is its body.
	FunctionTypeIndices []uint32
	Code                []Code

	Tables  []TableType
	Mems    []MemoryType
	Globals []GlobalDecl

	Exports []Export

	StartFunc    uint32
	HasStartFunc bool

	Elements []ElementSegment
	Datas    []DataSegment
}

// GlobalDecl is a module-defined (non-imported) global's declaration.
type GlobalDecl struct {
	Type GlobalType
	Init ConstExpr
}

// NumImportedFuncs reports how many entries at the front of the function
// index space are imports.
func (m *Module) NumImportedFuncs() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Type == api.ExternTypeFunc {
			n++
		}
	}
	return n
}

func (m *Module) NumImportedGlobals() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Type == api.ExternTypeGlobal {
			n++
		}
	}
	return n
}

func (m *Module) NumImportedTables() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Type == api.ExternTypeTable {
			n++
		}
	}
	return n
}

func (m *Module) NumImportedMems() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Type == api.ExternTypeMemory {
			n++
		}
	}
	return n
}

// TypeOfFunc resolves the api.FunctionType for a function in the module-wide
// function index space (imports first).
func (m *Module) TypeOfFunc(idx uint32) *api.FunctionType {
	nImported := m.NumImportedFuncs()
	if int(idx) < nImported {
		i := 0
		for _, imp := range m.Imports {
			if imp.Type != api.ExternTypeFunc {
				continue
			}
			if i == int(idx) {
				return &m.Types[imp.FuncTypeIdx]
			}
			i++
		}
		panic("unreachable: import index accounting bug")
	}
	return &m.Types[m.FunctionTypeIndices[int(idx)-nImported]]
}
