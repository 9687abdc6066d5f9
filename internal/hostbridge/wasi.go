package hostbridge

import (
	"fmt"

	"github.com/oss-fun/chiwawa/api"
)

// ErrProcExit is returned by proc_exit: per wasi_snapshot_preview1 this call
// never returns to the guest, so it is modeled as an error the host-call
// handler propagates straight out of Engine.Run, rather than as an errno
// pushed back onto the guest's value stack.
type ErrProcExit struct {
	Code int32
}

func (e *ErrProcExit) Error() string { return fmt.Sprintf("wasi proc_exit(%d)", e.Code) }

// errnoSuccess is wasi_snapshot_preview1's ERRNO_SUCCESS (0).
const errnoSuccess int32 = 0

// NewWASIPreview1Bridge builds the fixed wasi_snapshot_preview1 subset a
// guest is most likely to import. Every handler here matches the real
// function's signature but performs no actual host I/O (spec.md
// §1 scopes the OS passthrough itself out as an external collaborator) —
// none checks its arguments or writes to guest memory; proc_exit returns
// ErrProcExit and every other handler reports success with a zero result,
// which is enough for
// guest code that probes for WASI support or writes to a buffer it never
// reads back from in these tests.
func NewWASIPreview1Bridge() *RegistryBridge {
	i32 := api.ValueTypeI32
	i64 := api.ValueTypeI64
	fn := func(params, results []api.ValueType) api.FunctionType {
		return api.FunctionType{Params: params, Results: results}
	}

	b := &RegistryBridge{entries: map[string]entry{}}
	mod := "wasi_snapshot_preview1"

	b.entries[mod+".proc_exit"] = entry{
		typ: fn([]api.ValueType{i32}, nil),
		handler: func(args []api.Val) ([]api.Val, int32, error) {
			return nil, 0, &ErrProcExit{Code: args[0].I32()}
		},
	}
	b.entries[mod+".fd_write"] = entry{
		typ: fn([]api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32}),
		handler: func(args []api.Val) ([]api.Val, int32, error) {
			return []api.Val{api.I32(0)}, errnoSuccess, nil
		},
	}
	b.entries[mod+".fd_read"] = entry{
		typ: fn([]api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32}),
		handler: func(args []api.Val) ([]api.Val, int32, error) {
			return []api.Val{api.I32(0)}, errnoSuccess, nil
		},
	}
	b.entries[mod+".fd_close"] = entry{
		typ: fn([]api.ValueType{i32}, []api.ValueType{i32}),
		handler: func(args []api.Val) ([]api.Val, int32, error) {
			return []api.Val{api.I32(errnoSuccess)}, errnoSuccess, nil
		},
	}
	b.entries[mod+".fd_seek"] = entry{
		typ: fn([]api.ValueType{i32, i64, i32, i32}, []api.ValueType{i32}),
		handler: func(args []api.Val) ([]api.Val, int32, error) {
			return []api.Val{api.I32(errnoSuccess)}, errnoSuccess, nil
		},
	}
	b.entries[mod+".environ_sizes_get"] = entry{
		typ: fn([]api.ValueType{i32, i32}, []api.ValueType{i32}),
		handler: func(args []api.Val) ([]api.Val, int32, error) {
			return []api.Val{api.I32(errnoSuccess)}, errnoSuccess, nil
		},
	}
	b.entries[mod+".environ_get"] = entry{
		typ: fn([]api.ValueType{i32, i32}, []api.ValueType{i32}),
		handler: func(args []api.Val) ([]api.Val, int32, error) {
			return []api.Val{api.I32(errnoSuccess)}, errnoSuccess, nil
		},
	}
	b.entries[mod+".args_sizes_get"] = entry{
		typ: fn([]api.ValueType{i32, i32}, []api.ValueType{i32}),
		handler: func(args []api.Val) ([]api.Val, int32, error) {
			return []api.Val{api.I32(errnoSuccess)}, errnoSuccess, nil
		},
	}
	b.entries[mod+".args_get"] = entry{
		typ: fn([]api.ValueType{i32, i32}, []api.ValueType{i32}),
		handler: func(args []api.Val) ([]api.Val, int32, error) {
			return []api.Val{api.I32(errnoSuccess)}, errnoSuccess, nil
		},
	}
	b.entries[mod+".clock_time_get"] = entry{
		typ: fn([]api.ValueType{i32, i64, i32}, []api.ValueType{i32}),
		handler: func(args []api.Val) ([]api.Val, int32, error) {
			return []api.Val{api.I32(errnoSuccess)}, errnoSuccess, nil
		},
	}
	b.entries[mod+".random_get"] = entry{
		typ: fn([]api.ValueType{i32, i32}, []api.ValueType{i32}),
		handler: func(args []api.Val) ([]api.Val, int32, error) {
			return []api.Val{api.I32(errnoSuccess)}, errnoSuccess, nil
		},
	}

	return b
}
