package hostbridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-fun/chiwawa/api"
)

func TestProcExitNeverReturnsAResultVector(t *testing.T) {
	b := NewWASIPreview1Bridge()
	results, errno, err := b.Call("wasi_snapshot_preview1", "proc_exit", []api.Val{api.I32(17)})
	require.Nil(t, results)
	require.Equal(t, int32(0), errno)

	var exit *ErrProcExit
	require.True(t, errors.As(err, &exit))
	require.Equal(t, int32(17), exit.Code)
}

func TestFdWriteStubSucceeds(t *testing.T) {
	b := NewWASIPreview1Bridge()
	results, errno, err := b.Call("wasi_snapshot_preview1", "fd_write",
		[]api.Val{api.I32(1), api.I32(0), api.I32(0), api.I32(0)})
	require.NoError(t, err)
	require.Equal(t, errnoSuccess, errno)
	require.Len(t, results, 1)
	require.Equal(t, int32(0), results[0].I32())
}

func TestRandomGetStubSucceeds(t *testing.T) {
	b := NewWASIPreview1Bridge()
	_, errno, err := b.Call("wasi_snapshot_preview1", "random_get", []api.Val{api.I32(0), api.I32(8)})
	require.NoError(t, err)
	require.Equal(t, errnoSuccess, errno)
}
