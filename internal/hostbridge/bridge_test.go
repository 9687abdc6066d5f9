package hostbridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-fun/chiwawa/api"
)

func TestRegistryBridgeCallUnknownImport(t *testing.T) {
	b := &RegistryBridge{entries: map[string]entry{}}
	_, _, err := b.Call("env", "mystery", nil)
	require.Error(t, err)

	var unsupported *ErrUnsupportedImport
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, "env", unsupported.Module)
	require.Equal(t, "mystery", unsupported.Name)
}

func TestRegistryBridgeCallDispatches(t *testing.T) {
	b := &RegistryBridge{entries: map[string]entry{
		"env.double": {
			typ: api.FunctionType{
				Params:  []api.ValueType{api.ValueTypeI32},
				Results: []api.ValueType{api.ValueTypeI32},
			},
			handler: func(args []api.Val) ([]api.Val, int32, error) {
				return []api.Val{api.I32(args[0].I32() * 2)}, 0, nil
			},
		},
	}}

	results, errno, err := b.Call("env", "double", []api.Val{api.I32(21)})
	require.NoError(t, err)
	require.Equal(t, int32(0), errno)
	require.Equal(t, int32(42), results[0].I32())
}

func TestRegistryBridgeImportsRoundTrip(t *testing.T) {
	b := NewWASIPreview1Bridge()
	imports := b.Imports()
	require.NotEmpty(t, imports)

	found := false
	for _, imp := range imports {
		if imp.Module == "wasi_snapshot_preview1" && imp.Name == "proc_exit" {
			found = true
			require.Equal(t, []api.ValueType{api.ValueTypeI32}, imp.Type.Params)
			require.Empty(t, imp.Type.Results)
		}
	}
	require.True(t, found, "expected proc_exit in the registry")
}

func TestSplitKeyLastDot(t *testing.T) {
	mod, name := splitKey("wasi_snapshot_preview1.fd_write")
	require.Equal(t, "wasi_snapshot_preview1", mod)
	require.Equal(t, "fd_write", name)
}
