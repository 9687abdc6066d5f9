package checkpoint

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleState() *SerializableState {
	return &SerializableState{
		ModuleID: "11111111-1111-1111-1111-111111111111",
		Stacks: []Frame{
			{
				FuncAddr: 3,
				Locals:   []uint64{1, 2},
				IP:       7,
				Labels: []Label{
					{Kind: 0, Arity: 1, ContinuationIP: 42, ValueStackHeightAtEntry: 0},
				},
				ValueStack:       []uint64{9},
				Void:             false,
				InstructionCount: 100,
			},
		},
		MemoryData: [][]byte{{0x01, 0x02, 0x03}},
		Globals:    []Global{{Lo: 5, Hi: 0}},
		TablesData: [][]TableSlot{
			{{Index: 0}, {Null: true}},
		},
	}
}

func TestStateEncodeDecodeRoundTrip(t *testing.T) {
	st := sampleState()
	var buf bytes.Buffer
	require.NoError(t, st.encode(&buf))

	got, err := decodeState(&buf)
	require.NoError(t, err)
	require.Equal(t, st, got)
}

func TestDecodeStateRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleState().encode(&buf))
	corrupt := buf.Bytes()
	corrupt[0] ^= 0xff
	_, err := decodeState(bytes.NewReader(corrupt))
	require.Error(t, err)
}

func TestDecodeStateRejectsFutureVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleState().encode(&buf))
	corrupt := buf.Bytes()
	corrupt[4]++ // bump the version byte past what this build understands
	_, err := decodeState(bytes.NewReader(corrupt))
	require.Error(t, err)
}

func TestDecodeStateRejectsTruncatedHeader(t *testing.T) {
	_, err := decodeState(bytes.NewReader([]byte{0x01, 0x02}))
	require.Error(t, err)
}
