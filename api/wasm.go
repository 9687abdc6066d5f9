// Package api includes the value and type surface shared by chiwawa's core
// packages and anyone embedding the interpreter.
package api

import (
	"fmt"
	"math"
)

// ValueType classifies a WebAssembly value. It is a type alias (not a
// defined type) so it interops directly with the raw byte encoding used on
// the wire.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-valtype
type ValueType = byte

const (
	ValueTypeI32       ValueType = 0x7f
	ValueTypeI64       ValueType = 0x7e
	ValueTypeF32       ValueType = 0x7d
	ValueTypeF64       ValueType = 0x7c
	ValueTypeV128      ValueType = 0x7b
	ValueTypeFuncref   ValueType = 0x70
	ValueTypeExternref ValueType = 0x6f
)

// ValueTypeName returns the WebAssembly text format name of t, or "unknown".
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	}
	return "unknown"
}

// IsReferenceType reports whether t is funcref or externref.
func IsReferenceType(t ValueType) bool {
	return t == ValueTypeFuncref || t == ValueTypeExternref
}

// ExternType classifies an import/export.
type ExternType = byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
)

// nullRef is the raw encoding of a null funcref/externref. A non-null
// reference to function index 0 is stored as index+1 so the zero value of
// the raw stack slot always means "null", distinct from "index 0".
const nullRef uint64 = 0

// Val is a boxed, typed WebAssembly value. The value stack inside the
// execution core stores the same bits unboxed as a raw uint64 (two for
// v128); Val is the typed view used at ABI boundaries: Invoke arguments and
// results, the host-call bridge, and checkpoint encode/decode.
type Val struct {
	Type ValueType
	lo   uint64
	hi   uint64 // only meaningful for V128
}

func I32(v int32) Val  { return Val{Type: ValueTypeI32, lo: uint64(uint32(v))} }
func U32(v uint32) Val { return Val{Type: ValueTypeI32, lo: uint64(v)} }
func I64(v int64) Val  { return Val{Type: ValueTypeI64, lo: uint64(v)} }
func U64(v uint64) Val { return Val{Type: ValueTypeI64, lo: v} }

func F32(v float32) Val { return Val{Type: ValueTypeF32, lo: uint64(math.Float32bits(v))} }
func F64(v float64) Val { return Val{Type: ValueTypeF64, lo: math.Float64bits(v)} }

// V128 builds a 128-bit opaque vector value from its raw lo/hi halves. No
// lane interpretation is performed by the core; the bits travel unchanged.
func V128(lo, hi uint64) Val { return Val{Type: ValueTypeV128, lo: lo, hi: hi} }

// NullFuncRef is the distinguished null function reference.
func NullFuncRef() Val { return Val{Type: ValueTypeFuncref, lo: nullRef} }

// FuncRef builds a non-null reference to the function at the given address
// in the Store's function vector.
func FuncRef(addr uint32) Val { return Val{Type: ValueTypeFuncref, lo: uint64(addr) + 1} }

// NullExternRef is the distinguished null external reference.
func NullExternRef() Val { return Val{Type: ValueTypeExternref, lo: nullRef} }

// ExternRef builds a non-null opaque external reference handle.
func ExternRef(handle uint64) Val { return Val{Type: ValueTypeExternref, lo: handle + 1} }

func (v Val) I32() int32      { return int32(uint32(v.lo)) }
func (v Val) U32() uint32     { return uint32(v.lo) }
func (v Val) I64() int64      { return int64(v.lo) }
func (v Val) U64() uint64     { return v.lo }
func (v Val) F32() float32    { return math.Float32frombits(uint32(v.lo)) }
func (v Val) F64() float64    { return math.Float64frombits(v.lo) }
func (v Val) V128() (lo, hi uint64) { return v.lo, v.hi }

// IsNullRef reports whether a funcref/externref value is the null reference.
// Calling this on a non-reference Val is a programming error and panics.
func (v Val) IsNullRef() bool {
	if !IsReferenceType(v.Type) {
		panic(fmt.Sprintf("IsNullRef on non-reference type %s", ValueTypeName(v.Type)))
	}
	return v.lo == nullRef
}

// RefIndex returns the Store address a non-null funcref/externref points to.
// Calling this on a null reference is a programming error and panics.
func (v Val) RefIndex() uint32 {
	if v.lo == nullRef {
		panic("RefIndex on null reference")
	}
	return uint32(v.lo - 1)
}

// Raw returns the bit-exact raw stack encoding of v, lo then hi.
func (v Val) Raw() (lo, hi uint64) { return v.lo, v.hi }

// FromRaw reconstructs a Val of the given type from its raw stack encoding.
// Used when popping typed values off the untyped execution value stack.
func FromRaw(t ValueType, lo, hi uint64) Val { return Val{Type: t, lo: lo, hi: hi} }

func (v Val) String() string {
	switch v.Type {
	case ValueTypeI32:
		return fmt.Sprintf("i32:%d", v.I32())
	case ValueTypeI64:
		return fmt.Sprintf("i64:%d", v.I64())
	case ValueTypeF32:
		return fmt.Sprintf("f32:%v", v.F32())
	case ValueTypeF64:
		return fmt.Sprintf("f64:%v", v.F64())
	case ValueTypeV128:
		return fmt.Sprintf("v128:%016x%016x", v.hi, v.lo)
	case ValueTypeFuncref:
		if v.IsNullRef() {
			return "funcref:null"
		}
		return fmt.Sprintf("funcref:%d", v.RefIndex())
	case ValueTypeExternref:
		if v.IsNullRef() {
			return "externref:null"
		}
		return fmt.Sprintf("externref:%d", v.RefIndex())
	}
	return "invalid"
}

// FunctionType is a function signature: an ordered list of parameter and
// result value types.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

func (t *FunctionType) String() string {
	return fmt.Sprintf("(%s) -> (%s)", valueTypesString(t.Params), valueTypesString(t.Results))
}

func valueTypesString(types []ValueType) string {
	s := ""
	for i, t := range types {
		if i > 0 {
			s += ", "
		}
		s += ValueTypeName(t)
	}
	return s
}

// EqualFunctionType reports whether two function types have identical
// parameter and result type sequences. Used by call_indirect's dynamic type
// check.
func EqualFunctionType(a, b *FunctionType) bool {
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			return false
		}
	}
	return true
}

// BlockType describes the parameter and result arity of a structured
// control-flow block (block/loop/if), resolved from the raw block type
// encoding (empty, a single value type, or a type-section index) during
// preprocessing.
type BlockType struct {
	Params  []ValueType
	Results []ValueType
}
