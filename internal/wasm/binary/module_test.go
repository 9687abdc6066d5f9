package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/wasm"
)

// section builds a length-prefixed section: id, varuint32 size, payload.
func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb128(uint32(len(payload)))...)
	return append(out, payload...)
}

func uleb128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

// minimalModule encodes: one type `() -> i32`, one function of that type
// whose body is `i32.const 42, end`, exported as "answer".
func minimalModule(t *testing.T) []byte {
	t.Helper()

	typeSec := section(sectionType, append([]byte{0x01}, // 1 type
		append([]byte{0x60, 0x00}, // func, 0 params
			0x01, byte(api.ValueTypeI32))...)) // 1 result, i32

	funcSec := section(sectionFunction, []byte{0x01, 0x00}) // 1 func, type index 0

	body := []byte{0x41, 42, 0x0B} // i32.const 42; end
	codeEntry := append(uleb128(uint32(len(body)+1)), 0x00) // body size, 0 local decls
	codeEntry = append(codeEntry, body...)
	codeSec := section(sectionCode, append([]byte{0x01}, codeEntry...))

	nameBytes := []byte("answer")
	exportSec := section(sectionExport, append(
		append([]byte{0x01}, append(uleb128(uint32(len(nameBytes))), nameBytes...)...),
		0x00, 0x00, // kind=func, index=0
	))

	buf := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00} // magic + version
	buf = append(buf, typeSec...)
	buf = append(buf, funcSec...)
	buf = append(buf, codeSec...)
	buf = append(buf, exportSec...)
	return buf
}

func TestDecodeModuleMinimal(t *testing.T) {
	mod, err := DecodeModule(minimalModule(t))
	require.NoError(t, err)

	require.Len(t, mod.Types, 1)
	require.Empty(t, mod.Types[0].Params)
	require.Equal(t, []api.ValueType{api.ValueTypeI32}, mod.Types[0].Results)

	require.Len(t, mod.FunctionTypeIndices, 1)
	require.Equal(t, uint32(0), mod.FunctionTypeIndices[0])

	require.Len(t, mod.Code, 1)
	require.Len(t, mod.Code[0].Body, 2)
	require.Equal(t, wasm.OpI32Const, mod.Code[0].Body[0].Op)
	require.Equal(t, wasm.OpEnd, mod.Code[0].Body[1].Op)

	require.Len(t, mod.Exports, 1)
	require.Equal(t, "answer", mod.Exports[0].Name)
	require.Equal(t, api.ExternTypeFunc, mod.Exports[0].Type)
}

func TestDecodeModuleRejectsBadMagic(t *testing.T) {
	_, err := DecodeModule([]byte{0x00, 0x61, 0x73, 0x62, 0x01, 0x00, 0x00, 0x00})
	require.Error(t, err)
}

func TestDecodeModuleRejectsUnsupportedVersion(t *testing.T) {
	_, err := DecodeModule([]byte{0x00, 0x61, 0x73, 0x6d, 0x02, 0x00, 0x00, 0x00})
	require.Error(t, err)
}

func TestDecodeModuleRejectsOutOfOrderSections(t *testing.T) {
	buf := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	buf = append(buf, section(sectionCode, []byte{0x00})...)
	buf = append(buf, section(sectionType, []byte{0x00})...)
	_, err := DecodeModule(buf)
	require.Error(t, err)
}

func TestReadVaruintRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 300, 1 << 20, 0xffffffff} {
		r := newReader(uleb128(v))
		got, err := r.readVarUint32()
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestReadVarintNegative(t *testing.T) {
	// -1 as a signed LEB128 i32 is a single 0x7f byte.
	r := newReader([]byte{0x7f})
	got, err := r.readVarInt32()
	require.NoError(t, err)
	require.Equal(t, int32(-1), got)
}
