package binary

import (
	"fmt"
	"math"
)

// reader is a cursor over an in-memory Wasm binary. Every decode* function in
// this package reads through one, so section boundaries (each section
// carries its own byte length) can be enforced by slicing rather than by
// tracking a running byte budget by hand.
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader { return &reader{buf: buf} }

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("unexpected end of input")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("unexpected end of input: need %d bytes, have %d", n, len(r.buf)-r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) readName() (string, error) {
	n, err := r.readVarUint32()
	if err != nil {
		return "", fmt.Errorf("name length: %w", err)
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return "", fmt.Errorf("name bytes: %w", err)
	}
	return string(b), nil
}

func (r *reader) readF32() (float32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits), nil
}

func (r *reader) readF64() (float64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	var bits uint64
	for i := 0; i < 8; i++ {
		bits |= uint64(b[i]) << (8 * i)
	}
	return math.Float64frombits(bits), nil
}
