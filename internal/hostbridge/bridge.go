// Package hostbridge is chiwawa's host-call bridge (spec.md §6 "Host call
// bridge"): a uniform adapter the interpreter's call/call_indirect handlers
// invoke for every host-imported function — typed argument slice in, typed
// result vector out, integer errno out, never unwinding frames on error.
// Real WASI syscalls are explicitly out of scope (spec.md §1 lists "the
// host-OS passthrough bridge that delegates WASI calls to the host's libc"
// as an external collaborator); NewWASIPreview1Bridge is a signature-only
// adapter over the wasi_snapshot_preview1 subset a guest is most likely to
// import, matching each function's real argument/result shape without
// performing the underlying syscall.
package hostbridge

import (
	"fmt"

	"github.com/oss-fun/chiwawa/api"
)

// Bridge is the exact shape interpreter.HostBridge expects; hostbridge
// implements it directly rather than importing interpreter, mirroring
// interpreter/engine.go's own note that the two packages share this
// interface structurally to avoid a cycle.
type Bridge interface {
	Call(module, name string, args []api.Val) (results []api.Val, errno int32, err error)
}

// ErrUnsupportedImport is returned by RegistryBridge.Call for a host
// function outside the fixed registry. An import missing from the HostImport
// list a Bridge's Imports method supplies already fails instantiation in
// internal/wasm.Store.resolveImports, with that function's own plain error
// rather than this type.
type ErrUnsupportedImport struct {
	Module, Name string
}

func (e *ErrUnsupportedImport) Error() string {
	return fmt.Sprintf("unsupported host import %s.%s", e.Module, e.Name)
}

// handler is one registered host function's call-time behavior.
type handler func(args []api.Val) (results []api.Val, errno int32, err error)

// entry pairs a handler with the function type Store.Instantiate's import
// resolution needs to build the matching HostImport.
type entry struct {
	typ     api.FunctionType
	handler handler
}

// RegistryBridge is a fixed, build-time-closed set of host functions keyed
// by "module.name", exactly spec.md §6's "fixed at build time" requirement.
type RegistryBridge struct {
	entries map[string]entry
}

func (b *RegistryBridge) Call(module, name string, args []api.Val) ([]api.Val, int32, error) {
	e, ok := b.entries[module+"."+name]
	if !ok {
		return nil, 0, &ErrUnsupportedImport{Module: module, Name: name}
	}
	return e.handler(args)
}

// Imports returns the fixed registry as a wasm.HostImport-shaped list (via
// the Type/Module/Name triple Store.resolveImports consumes); it is
// deliberately decoupled from internal/wasm's concrete type to avoid
// hostbridge importing wasm for a 3-field struct literal the caller already
// knows how to build.
type ImportDescriptor struct {
	Module, Name string
	Type         api.FunctionType
}

func (b *RegistryBridge) Imports() []ImportDescriptor {
	out := make([]ImportDescriptor, 0, len(b.entries))
	for key, e := range b.entries {
		mod, name := splitKey(key)
		out = append(out, ImportDescriptor{Module: mod, Name: name, Type: e.typ})
	}
	return out
}

func splitKey(key string) (module, name string) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
