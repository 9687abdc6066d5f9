package wasm

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/oss-fun/chiwawa/api"
)

// ElementInstance is a Store-owned element segment: a vector of reference
// encodings that can be dropped (elem.drop), after which table.init using it
// traps (spec.md §3 "Store").
type ElementInstance struct {
	Type    api.ValueType
	Refs    []uint64
	Dropped bool
}

// DataInstance is the Store-owned analogue for passive data segments.
type DataInstance struct {
	Bytes   []byte
	Dropped bool
}

// Store is the authoritative collection of function, memory, table, global,
// element, and data instances, addressed by index (spec.md §3 "Store",
// glossary "Store"). Store is not safe for concurrent use; chiwawa's
// execution model is single-threaded guest execution (spec.md §5), so no
// internal locking is needed — unlike the teacher's wazero.Store, which
// guards multi-module, multi-goroutine instantiation with a mutex.
type Store struct {
	Funcs   []*FunctionInstance
	Mems    []*MemoryInstance
	Tables  []*TableInstance
	Globals []*GlobalInstance
	Elems   []*ElementInstance
	Datas   []*DataInstance

	// Modules holds every instantiated module, keyed by name. Spec.md's
	// design notes describe a single root module; Store nonetheless
	// supports multiple named instances the way a host-call bridge module
	// would need (e.g. instantiating the same code twice under different
	// names), matching the teacher's Store.modules map.
	Modules map[string]*ModuleInstance
}

func NewStore() *Store {
	return &Store{Modules: map[string]*ModuleInstance{}}
}

// HostImport is a single pre-registered host function import, supplied by
// the embedder through internal/hostbridge before Instantiate runs.
type HostImport struct {
	Module, Name string
	Type         api.FunctionType
}

// Instantiate builds a ModuleInstance from a decoded Module: it appends
// function/memory/table/global instances to the Store's parallel vectors,
// resolves imports against already-instantiated modules or supplied host
// imports, applies active element/data segments, and records the start
// function, if present, for the embedder to run via PendingStart (it is not
// run here). Preprocessing of guest function bodies into
// ProcessedInstr is deliberately NOT done here — it is triggered lazily by
// the interpreter engine on first Invoke, or eagerly by a caller that wants
// preprocessing errors surfaced before any call (spec.md §4.1 contract).
func (s *Store) Instantiate(name string, m *Module, hostImports []HostImport, bridgeHandle interface{}) (*ModuleInstance, error) {
	if _, exists := s.Modules[name]; exists {
		return nil, fmt.Errorf("module %q already instantiated", name)
	}

	mi := &ModuleInstance{
		Name:         name,
		Store:        s,
		Types:        m.Types,
		SourceModule: m,
		Exports:      map[string]ExportInstance{},
		BridgeHandle: bridgeHandle,
		ID:           uuid.NewString(),
	}

	if err := s.resolveImports(mi, m, hostImports); err != nil {
		return nil, err
	}
	s.instantiateDefinedFuncs(mi, m)
	s.instantiateDefinedMems(mi, m)
	s.instantiateDefinedTables(mi, m)
	if err := s.instantiateDefinedGlobals(mi, m); err != nil {
		return nil, err
	}
	if err := s.instantiateElemsAndDatas(mi, m); err != nil {
		return nil, err
	}
	s.buildExports(mi, m)

	s.Modules[name] = mi

	if m.HasStartFunc {
		// The start function's invocation is the embedder's job (it needs
		// the execution core); Store only records that one is pending.
		mi.pendingStart = &m.StartFunc
	}
	return mi, nil
}

func (s *Store) resolveImports(mi *ModuleInstance, m *Module, hostImports []HostImport) error {
	hostByKey := make(map[string]HostImport, len(hostImports))
	for _, hi := range hostImports {
		hostByKey[hi.Module+"."+hi.Name] = hi
	}
	for _, imp := range m.Imports {
		switch imp.Type {
		case api.ExternTypeFunc:
			key := imp.Module + "." + imp.Name
			if src, ok := s.Modules[imp.Module]; ok {
				exp, err := src.LookupExport(imp.Name, api.ExternTypeFunc)
				if err != nil {
					return fmt.Errorf("resolving import %s: %w", key, err)
				}
				mi.FuncAddrs = append(mi.FuncAddrs, src.FuncAddrs[exp.Index])
				continue
			}
			hi, ok := hostByKey[key]
			if !ok {
				return fmt.Errorf("unresolved host import %q: instantiation fails", key)
			}
			addr := FunctionAddr(len(s.Funcs))
			typ := hi.Type
			s.Funcs = append(s.Funcs, &FunctionInstance{
				Kind:             FunctionKindHost,
				Type:             &typ,
				HostImportModule: imp.Module,
				HostImportName:   imp.Name,
				Module:           mi,
				DebugName:        key,
				Idx:              uint32(len(mi.FuncAddrs)),
			})
			mi.FuncAddrs = append(mi.FuncAddrs, addr)
		case api.ExternTypeMemory:
			src, ok := s.Modules[imp.Module]
			if !ok {
				return fmt.Errorf("unresolved memory import %s.%s", imp.Module, imp.Name)
			}
			exp, err := src.LookupExport(imp.Name, api.ExternTypeMemory)
			if err != nil {
				return err
			}
			mi.MemAddrs = append(mi.MemAddrs, src.MemAddrs[exp.Index])
		case api.ExternTypeTable:
			src, ok := s.Modules[imp.Module]
			if !ok {
				return fmt.Errorf("unresolved table import %s.%s", imp.Module, imp.Name)
			}
			exp, err := src.LookupExport(imp.Name, api.ExternTypeTable)
			if err != nil {
				return err
			}
			mi.TableAddrs = append(mi.TableAddrs, src.TableAddrs[exp.Index])
		case api.ExternTypeGlobal:
			src, ok := s.Modules[imp.Module]
			if !ok {
				return fmt.Errorf("unresolved global import %s.%s", imp.Module, imp.Name)
			}
			exp, err := src.LookupExport(imp.Name, api.ExternTypeGlobal)
			if err != nil {
				return err
			}
			mi.GlobalAddrs = append(mi.GlobalAddrs, src.GlobalAddrs[exp.Index])
		}
	}
	return nil
}

func (s *Store) instantiateDefinedFuncs(mi *ModuleInstance, m *Module) {
	base := len(mi.FuncAddrs)
	for i := range m.Code {
		addr := FunctionAddr(len(s.Funcs))
		typ := m.Types[m.FunctionTypeIndices[i]]
		fn := &FunctionInstance{
			Kind:   FunctionKindGuest,
			Type:   &typ,
			Code:   &m.Code[i],
			Module: mi,
			Idx:    uint32(base + i),
		}
		fn.DebugName = fmt.Sprintf("%s.$%d", mi.Name, fn.Idx)
		s.Funcs = append(s.Funcs, fn)
		mi.FuncAddrs = append(mi.FuncAddrs, addr)
	}
}

func (s *Store) instantiateDefinedMems(mi *ModuleInstance, m *Module) {
	for _, mt := range m.Mems {
		addr := MemoryAddr(len(s.Mems))
		s.Mems = append(s.Mems, NewMemoryInstance(mt.Min, mt.Max, mt.HasMax))
		mi.MemAddrs = append(mi.MemAddrs, addr)
	}
}

func (s *Store) instantiateDefinedTables(mi *ModuleInstance, m *Module) {
	for _, tt := range m.Tables {
		addr := TableAddr(len(s.Tables))
		s.Tables = append(s.Tables, NewTableInstance(tt.ElemType, tt.Min, tt.Max, tt.HasMax))
		mi.TableAddrs = append(mi.TableAddrs, addr)
	}
}

func (s *Store) instantiateDefinedGlobals(mi *ModuleInstance, m *Module) error {
	for _, gd := range m.Globals {
		v, err := s.evalConstExpr(mi, gd.Init)
		if err != nil {
			return err
		}
		addr := GlobalAddr(len(s.Globals))
		gt := gd.Type
		lo, hi := v.Raw()
		s.Globals = append(s.Globals, &GlobalInstance{Type: &gt, Val: lo, ValHi: hi})
		mi.GlobalAddrs = append(mi.GlobalAddrs, addr)
	}
	return nil
}

// evalConstExpr evaluates a module-initialization constant expression. Per
// the Wasm spec, global.get in a const expr may only name an import, which
// is always already resolved by this point.
func (s *Store) evalConstExpr(mi *ModuleInstance, c ConstExpr) (api.Val, error) {
	if c.IsGlobalGet {
		if int(c.GlobalIndex) >= len(mi.GlobalAddrs) {
			return api.Val{}, fmt.Errorf("const expr references out-of-range global %d", c.GlobalIndex)
		}
		g := s.Globals[mi.GlobalAddrs[c.GlobalIndex]]
		return g.Get(), nil
	}
	return c.Value, nil
}

func (s *Store) instantiateElemsAndDatas(mi *ModuleInstance, m *Module) error {
	for _, es := range m.Elements {
		// es.Init holds raw ref encodings keyed by *module-local* function
		// index (moduleFuncIdx+1, or 0 for ref.null) per module.go's
		// ElementSegment doc; lift to Store addresses now that mi.FuncAddrs
		// is fully populated (imports + defined funcs both precede this
		// call — see Instantiate's call order).
		refs := make([]uint64, len(es.Init))
		for i, raw := range es.Init {
			if raw == 0 {
				continue
			}
			refs[i] = uint64(mi.FuncAddrs[raw-1]) + 1
		}
		addr := ElemAddr(len(s.Elems))
		s.Elems = append(s.Elems, &ElementInstance{Type: es.Type, Refs: refs})
		mi.ElemAddrs = append(mi.ElemAddrs, addr)

		if es.Mode == ElementModeActive {
			off, err := s.evalConstExpr(mi, es.Offset)
			if err != nil {
				return err
			}
			table := s.Tables[mi.TableAddrs[es.TableIndex]]
			if !table.Init(refs, uint32(off.I32()), 0, uint32(len(refs))) {
				return fmt.Errorf("active element segment out of table bounds")
			}
		}
	}
	for _, ds := range m.Datas {
		data := make([]byte, len(ds.Init))
		copy(data, ds.Init)
		addr := DataAddr(len(s.Datas))
		s.Datas = append(s.Datas, &DataInstance{Bytes: data})
		mi.DataAddrs = append(mi.DataAddrs, addr)

		if ds.Mode == DataModeActive {
			off, err := s.evalConstExpr(mi, ds.Offset)
			if err != nil {
				return err
			}
			mem := s.Mems[mi.MemAddrs[ds.MemIndex]]
			if !mem.Init(data, uint32(off.I32()), 0, uint32(len(data))) {
				return fmt.Errorf("active data segment out of memory bounds")
			}
		}
	}
	return nil
}

func (s *Store) buildExports(mi *ModuleInstance, m *Module) {
	for _, exp := range m.Exports {
		mi.Exports[exp.Name] = ExportInstance{Type: exp.Type, Index: exp.Index}
	}
}
