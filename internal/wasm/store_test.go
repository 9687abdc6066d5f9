package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-fun/chiwawa/api"
)

func voidFuncModule() *Module {
	return &Module{
		Types:               []api.FunctionType{{}},
		FunctionTypeIndices: []uint32{0},
		Code:                []Code{{Body: []Operator{{Op: OpEnd}}}},
		Exports: []Export{
			{Name: "run", Type: api.ExternTypeFunc, Index: 0},
		},
	}
}

func TestInstantiateRejectsDuplicateModuleName(t *testing.T) {
	s := NewStore()
	_, err := s.Instantiate("m", voidFuncModule(), nil, nil)
	require.NoError(t, err)

	_, err = s.Instantiate("m", voidFuncModule(), nil, nil)
	require.Error(t, err)
}

func TestInstantiateResolvesExportedFunction(t *testing.T) {
	s := NewStore()
	mi, err := s.Instantiate("m", voidFuncModule(), nil, nil)
	require.NoError(t, err)

	exp, err := mi.LookupExport("run", api.ExternTypeFunc)
	require.NoError(t, err)
	require.Equal(t, uint32(0), exp.Index)

	_, err = mi.LookupExport("missing", api.ExternTypeFunc)
	require.Error(t, err)
}

func TestInstantiateRejectsUnresolvedHostImport(t *testing.T) {
	mod := &Module{
		Imports: []Import{
			{Module: "env", Name: "missing", Type: api.ExternTypeFunc, FuncTypeIdx: 0},
		},
		Types: []api.FunctionType{{}},
	}
	_, err := NewStore().Instantiate("m", mod, nil, nil)
	require.Error(t, err)
}

func TestInstantiateResolvesHostImportFromRegistry(t *testing.T) {
	mod := &Module{
		Imports: []Import{
			{Module: "env", Name: "log", Type: api.ExternTypeFunc, FuncTypeIdx: 0},
		},
		Types: []api.FunctionType{{Params: []api.ValueType{api.ValueTypeI32}}},
	}
	hostImports := []HostImport{
		{Module: "env", Name: "log", Type: api.FunctionType{Params: []api.ValueType{api.ValueTypeI32}}},
	}

	s := NewStore()
	mi, err := s.Instantiate("m", mod, hostImports, nil)
	require.NoError(t, err)
	require.Len(t, mi.FuncAddrs, 1)
	require.Equal(t, FunctionKindHost, s.Funcs[mi.FuncAddrs[0]].Kind)
}

func TestPendingStartIsRecordedNotInvoked(t *testing.T) {
	mod := voidFuncModule()
	mod.HasStartFunc = true
	mod.StartFunc = 0

	mi, err := NewStore().Instantiate("m", mod, nil, nil)
	require.NoError(t, err)

	idx, ok := mi.PendingStart()
	require.True(t, ok)
	require.Equal(t, uint32(0), idx)
}

func TestModuleIDIsPopulatedAndUnique(t *testing.T) {
	s := NewStore()
	a, err := s.Instantiate("a", voidFuncModule(), nil, nil)
	require.NoError(t, err)
	b, err := s.Instantiate("b", voidFuncModule(), nil, nil)
	require.NoError(t, err)

	require.NotEmpty(t, a.ID)
	require.NotEmpty(t, b.ID)
	require.NotEqual(t, a.ID, b.ID)
}
