package wasm

import "github.com/oss-fun/chiwawa/api"

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	ValType api.ValueType
	Mutable bool
}

// GlobalInstance is a single value plus a mutability bit. global.set on an
// immutable global is rejected by validation and must never reach
// GlobalInstance.Set at runtime (spec.md §3 "Global instance").
type GlobalInstance struct {
	Type *GlobalType
	// Val/ValHi hold the raw bit encoding, ValHi only meaningful for v128,
	// mirroring the untyped value-stack slot encoding used by the core.
	Val   uint64
	ValHi uint64
}

func (g *GlobalInstance) Get() api.Val {
	return api.FromRaw(g.Type.ValType, g.Val, g.ValHi)
}

// Set writes v. Callers (the global.set handler) must have already checked
// Type.Mutable during preprocessing/validation; Set itself does not
// re-check, matching invariant 2 of spec.md §3.
func (g *GlobalInstance) Set(v api.Val) {
	g.Val, g.ValHi = v.Raw()
}
