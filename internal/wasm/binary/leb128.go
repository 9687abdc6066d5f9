package binary

import "fmt"

// LEB128 varint decoding, grounded on the shape of the teacher's
// internal/leb128 package (LoadUint32/LoadUint64/LoadInt32/LoadInt64: decode
// from a byte slice, return the value, the number of bytes consumed, and an
// error on overflow or a truncated stream). chiwawa reads from a cursor over
// an in-memory byte slice rather than the teacher's raw []byte argument,
// since every other decode* function here already carries a *reader.

func readVaruint(r *reader, maxBits int) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, fmt.Errorf("varuint: %w", err)
		}
		if shift >= 64 || (shift == 63 && b > 1) {
			return 0, fmt.Errorf("varuint: overflows 64 bits")
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if shift+7 < uint(maxBits) {
				// fine, fewer significant bits than maxBits
			} else if bitsOf(b) > maxBits-int(shift) {
				return 0, fmt.Errorf("varuint: unused bits must be zero")
			}
			return result, nil
		}
		shift += 7
	}
}

func bitsOf(b byte) int {
	n := 0
	for b != 0 {
		n++
		b >>= 1
	}
	return n
}

func readVarint(r *reader, maxBits int) (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.readByte()
		if err != nil {
			return 0, fmt.Errorf("varint: %w", err)
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 64 {
			return 0, fmt.Errorf("varint: overflows 64 bits")
		}
	}
	if shift < uint(maxBits) && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

func (r *reader) readVarUint32() (uint32, error) {
	v, err := readVaruint(r, 32)
	return uint32(v), err
}

func (r *reader) readVarUint64() (uint64, error) {
	return readVaruint(r, 64)
}

func (r *reader) readVarInt32() (int32, error) {
	v, err := readVarint(r, 32)
	return int32(v), err
}

func (r *reader) readVarInt64() (int64, error) {
	return readVarint(r, 64)
}
