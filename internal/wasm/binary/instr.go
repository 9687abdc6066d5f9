package binary

import (
	"fmt"

	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/wasm"
)

// readBlockType decodes a block/loop/if's type per the Wasm binary format: a
// signed LEB128 s33 value that is either -0x40 (empty), one of the six
// negative single-byte valtype encodings, or a non-negative type-section
// index. The single-byte forms coincide exactly with the raw valtype byte
// sign-extended as a one-byte LEB128, so one varint read handles every case.
func (r *reader) readBlockType() (wasm.RawBlockType, error) {
	v, err := readVarint(r, 33)
	if err != nil {
		return wasm.RawBlockType{}, fmt.Errorf("block type: %w", err)
	}
	switch v {
	case -0x40:
		return wasm.RawBlockType{Empty: true, TypeIndex: -1}, nil
	case -1:
		return wasm.RawBlockType{ValType: api.ValueTypeI32, TypeIndex: -1}, nil
	case -2:
		return wasm.RawBlockType{ValType: api.ValueTypeI64, TypeIndex: -1}, nil
	case -3:
		return wasm.RawBlockType{ValType: api.ValueTypeF32, TypeIndex: -1}, nil
	case -4:
		return wasm.RawBlockType{ValType: api.ValueTypeF64, TypeIndex: -1}, nil
	case -5:
		return wasm.RawBlockType{ValType: api.ValueTypeV128, TypeIndex: -1}, nil
	case -16:
		return wasm.RawBlockType{ValType: api.ValueTypeFuncref, TypeIndex: -1}, nil
	case -17:
		return wasm.RawBlockType{ValType: api.ValueTypeExternref, TypeIndex: -1}, nil
	}
	if v < 0 {
		return wasm.RawBlockType{}, fmt.Errorf("block type: unrecognized single-byte form %d", v)
	}
	return wasm.RawBlockType{TypeIndex: int32(v)}, nil
}

func (r *reader) readMemArg() (wasm.MemArg, error) {
	align, err := r.readVarUint32()
	if err != nil {
		return wasm.MemArg{}, fmt.Errorf("memarg align: %w", err)
	}
	offset, err := r.readVarUint32()
	if err != nil {
		return wasm.MemArg{}, fmt.Errorf("memarg offset: %w", err)
	}
	return wasm.MemArg{Offset: offset, Align: align}, nil
}

// readFunctionBody decodes one code-section entry's instruction stream into
// a flat wasm.Operator vector, matching the wire format's implicit nesting:
// block/loop/if increase a depth counter, end decreases it, and the function
// body's own closing 0x0B is kept as the final operator (its End op is what
// internal/wazeroir.Preprocess's virtual outer control frame pops at
// runtime — see internal/interpreter.Engine.newActivation's root label).
func (r *reader) readFunctionBody() ([]wasm.Operator, error) {
	var ops []wasm.Operator
	depth := 1
	for depth > 0 {
		op, err := r.readOperator()
		if err != nil {
			return nil, err
		}
		switch op.Op {
		case wasm.OpBlock, wasm.OpLoop, wasm.OpIf:
			depth++
		case wasm.OpEnd:
			depth--
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// readOperator decodes a single instruction, including its trailing
// immediates. The byte values below are the Wasm core-spec opcode
// assignments (MVP + sign-extension + reference-types + bulk-memory, the
// "0xFC"-prefixed family); wasm.Opcode is chiwawa's own dense renumbering of
// this same closed set (internal/wasm/operator.go), so every case just maps
// one to the other plus whatever immediate(s) that opcode carries.
func (r *reader) readOperator() (wasm.Operator, error) {
	b, err := r.readByte()
	if err != nil {
		return wasm.Operator{}, err
	}
	switch b {
	case 0x00:
		return wasm.Operator{Op: wasm.OpUnreachable}, nil
	case 0x01:
		return wasm.Operator{Op: wasm.OpNop}, nil
	case 0x02:
		bt, err := r.readBlockType()
		return wasm.Operator{Op: wasm.OpBlock, Block: bt}, err
	case 0x03:
		bt, err := r.readBlockType()
		return wasm.Operator{Op: wasm.OpLoop, Block: bt}, err
	case 0x04:
		bt, err := r.readBlockType()
		return wasm.Operator{Op: wasm.OpIf, Block: bt}, err
	case 0x05:
		return wasm.Operator{Op: wasm.OpElse}, nil
	case 0x0B:
		return wasm.Operator{Op: wasm.OpEnd}, nil
	case 0x0C:
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpBr, Index: idx}, err
	case 0x0D:
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpBrIf, Index: idx}, err
	case 0x0E:
		return r.readBrTable()
	case 0x0F:
		return wasm.Operator{Op: wasm.OpReturn}, nil
	case 0x10:
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpCall, Index: idx}, err
	case 0x11:
		typeIdx, err := r.readVarUint32()
		if err != nil {
			return wasm.Operator{}, err
		}
		tableIdx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpCallIndirect, Index: typeIdx, Index2: tableIdx}, err
	case 0x1A:
		return wasm.Operator{Op: wasm.OpDrop}, nil
	case 0x1B:
		return wasm.Operator{Op: wasm.OpSelect}, nil
	case 0x20:
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpLocalGet, Index: idx}, err
	case 0x21:
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpLocalSet, Index: idx}, err
	case 0x22:
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpLocalTee, Index: idx}, err
	case 0x23:
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpGlobalGet, Index: idx}, err
	case 0x24:
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpGlobalSet, Index: idx}, err
	case 0x25:
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpTableGet, Index: idx}, err
	case 0x26:
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpTableSet, Index: idx}, err
	case 0x28, 0x29, 0x2A, 0x2B, 0x2C, 0x2D, 0x2E, 0x2F,
		0x30, 0x31, 0x32, 0x33, 0x34, 0x35,
		0x36, 0x37, 0x38, 0x39, 0x3A, 0x3B, 0x3C, 0x3D, 0x3E:
		mem, err := r.readMemArg()
		if err != nil {
			return wasm.Operator{}, err
		}
		return wasm.Operator{Op: loadStoreOp(b), Mem: mem}, nil
	case 0x3F:
		if _, err := r.readByte(); err != nil { // reserved memidx byte, always 0x00 for a single memory
			return wasm.Operator{}, err
		}
		return wasm.Operator{Op: wasm.OpMemorySize}, nil
	case 0x40:
		if _, err := r.readByte(); err != nil {
			return wasm.Operator{}, err
		}
		return wasm.Operator{Op: wasm.OpMemoryGrow}, nil
	case 0x41:
		v, err := r.readVarInt32()
		return wasm.Operator{Op: wasm.OpI32Const, I32: v}, err
	case 0x42:
		v, err := r.readVarInt64()
		return wasm.Operator{Op: wasm.OpI64Const, I64: v}, err
	case 0x43:
		v, err := r.readF32()
		return wasm.Operator{Op: wasm.OpF32Const, F32: v}, err
	case 0x44:
		v, err := r.readF64()
		return wasm.Operator{Op: wasm.OpF64Const, F64: v}, err
	case 0xD0:
		t, err := r.readByte()
		return wasm.Operator{Op: wasm.OpRefNull, RefType: api.ValueType(t)}, err
	case 0xD1:
		return wasm.Operator{Op: wasm.OpRefIsNull}, nil
	case 0xD2:
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpRefFunc, Index: idx}, err
	case 0xFC:
		return r.readMiscOperator()
	}
	if op, ok := simpleOpcodes[b]; ok {
		return wasm.Operator{Op: op}, nil
	}
	return wasm.Operator{}, fmt.Errorf("unrecognized opcode 0x%02x", b)
}

func (r *reader) readBrTable() (wasm.Operator, error) {
	n, err := r.readVarUint32()
	if err != nil {
		return wasm.Operator{}, fmt.Errorf("br_table count: %w", err)
	}
	targets := make([]uint32, n+1)
	for i := range targets {
		targets[i], err = r.readVarUint32()
		if err != nil {
			return wasm.Operator{}, fmt.Errorf("br_table target %d: %w", i, err)
		}
	}
	return wasm.Operator{Op: wasm.OpBrTable, BrTargets: targets}, nil
}

// readMiscOperator decodes the 0xFC-prefixed family: saturating truncation
// plus the bulk-memory/reference-types table and memory operators.
func (r *reader) readMiscOperator() (wasm.Operator, error) {
	sub, err := r.readVarUint32()
	if err != nil {
		return wasm.Operator{}, fmt.Errorf("0xFC subopcode: %w", err)
	}
	switch sub {
	case 0:
		return wasm.Operator{Op: wasm.OpI32TruncSatF32S}, nil
	case 1:
		return wasm.Operator{Op: wasm.OpI32TruncSatF32U}, nil
	case 2:
		return wasm.Operator{Op: wasm.OpI32TruncSatF64S}, nil
	case 3:
		return wasm.Operator{Op: wasm.OpI32TruncSatF64U}, nil
	case 4:
		return wasm.Operator{Op: wasm.OpI64TruncSatF32S}, nil
	case 5:
		return wasm.Operator{Op: wasm.OpI64TruncSatF32U}, nil
	case 6:
		return wasm.Operator{Op: wasm.OpI64TruncSatF64S}, nil
	case 7:
		return wasm.Operator{Op: wasm.OpI64TruncSatF64U}, nil
	case 8: // memory.init dataidx memidx
		dataIdx, err := r.readVarUint32()
		if err != nil {
			return wasm.Operator{}, err
		}
		if _, err := r.readByte(); err != nil {
			return wasm.Operator{}, err
		}
		return wasm.Operator{Op: wasm.OpMemoryInit, Index: dataIdx}, nil
	case 9: // data.drop dataidx
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpDataDrop, Index: idx}, err
	case 10: // memory.copy dstmem srcmem
		if _, err := r.readByte(); err != nil {
			return wasm.Operator{}, err
		}
		if _, err := r.readByte(); err != nil {
			return wasm.Operator{}, err
		}
		return wasm.Operator{Op: wasm.OpMemoryCopy}, nil
	case 11: // memory.fill memidx
		if _, err := r.readByte(); err != nil {
			return wasm.Operator{}, err
		}
		return wasm.Operator{Op: wasm.OpMemoryFill}, nil
	case 12: // table.init elemidx tableidx
		elemIdx, err := r.readVarUint32()
		if err != nil {
			return wasm.Operator{}, err
		}
		tableIdx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpTableInit, Index: elemIdx, Index2: tableIdx}, err
	case 13: // elem.drop elemidx
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpElemDrop, Index: idx}, err
	case 14: // table.copy dsttable srctable
		dst, err := r.readVarUint32()
		if err != nil {
			return wasm.Operator{}, err
		}
		src, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpTableCopy, Index: dst, Index2: src}, err
	case 15: // table.grow tableidx
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpTableGrow, Index: idx}, err
	case 16: // table.size tableidx
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpTableSize, Index: idx}, err
	case 17: // table.fill tableidx
		idx, err := r.readVarUint32()
		return wasm.Operator{Op: wasm.OpTableFill, Index: idx}, err
	}
	return wasm.Operator{}, fmt.Errorf("unrecognized 0xFC subopcode %d", sub)
}

func loadStoreOp(b byte) wasm.Opcode {
	return map[byte]wasm.Opcode{
		0x28: wasm.OpI32Load, 0x29: wasm.OpI64Load, 0x2A: wasm.OpF32Load, 0x2B: wasm.OpF64Load,
		0x2C: wasm.OpI32Load8S, 0x2D: wasm.OpI32Load8U, 0x2E: wasm.OpI32Load16S, 0x2F: wasm.OpI32Load16U,
		0x30: wasm.OpI64Load8S, 0x31: wasm.OpI64Load8U, 0x32: wasm.OpI64Load16S, 0x33: wasm.OpI64Load16U,
		0x34: wasm.OpI64Load32S, 0x35: wasm.OpI64Load32U,
		0x36: wasm.OpI32Store, 0x37: wasm.OpI64Store, 0x38: wasm.OpF32Store, 0x39: wasm.OpF64Store,
		0x3A: wasm.OpI32Store8, 0x3B: wasm.OpI32Store16, 0x3C: wasm.OpI64Store8, 0x3D: wasm.OpI64Store16, 0x3E: wasm.OpI64Store32,
	}[b]
}

// simpleOpcodes covers every opcode that carries no immediate: comparisons,
// arithmetic, conversions, reinterprets, and the sign-extension ops.
var simpleOpcodes = map[byte]wasm.Opcode{
	0x45: wasm.OpI32Eqz, 0x46: wasm.OpI32Eq, 0x47: wasm.OpI32Ne, 0x48: wasm.OpI32LtS, 0x49: wasm.OpI32LtU,
	0x4A: wasm.OpI32GtS, 0x4B: wasm.OpI32GtU, 0x4C: wasm.OpI32LeS, 0x4D: wasm.OpI32LeU, 0x4E: wasm.OpI32GeS, 0x4F: wasm.OpI32GeU,
	0x50: wasm.OpI64Eqz, 0x51: wasm.OpI64Eq, 0x52: wasm.OpI64Ne, 0x53: wasm.OpI64LtS, 0x54: wasm.OpI64LtU,
	0x55: wasm.OpI64GtS, 0x56: wasm.OpI64GtU, 0x57: wasm.OpI64LeS, 0x58: wasm.OpI64LeU, 0x59: wasm.OpI64GeS, 0x5A: wasm.OpI64GeU,
	0x5B: wasm.OpF32Eq, 0x5C: wasm.OpF32Ne, 0x5D: wasm.OpF32Lt, 0x5E: wasm.OpF32Gt, 0x5F: wasm.OpF32Le, 0x60: wasm.OpF32Ge,
	0x61: wasm.OpF64Eq, 0x62: wasm.OpF64Ne, 0x63: wasm.OpF64Lt, 0x64: wasm.OpF64Gt, 0x65: wasm.OpF64Le, 0x66: wasm.OpF64Ge,
	0x67: wasm.OpI32Clz, 0x68: wasm.OpI32Ctz, 0x69: wasm.OpI32Popcnt,
	0x6A: wasm.OpI32Add, 0x6B: wasm.OpI32Sub, 0x6C: wasm.OpI32Mul, 0x6D: wasm.OpI32DivS, 0x6E: wasm.OpI32DivU,
	0x6F: wasm.OpI32RemS, 0x70: wasm.OpI32RemU, 0x71: wasm.OpI32And, 0x72: wasm.OpI32Or, 0x73: wasm.OpI32Xor,
	0x74: wasm.OpI32Shl, 0x75: wasm.OpI32ShrS, 0x76: wasm.OpI32ShrU, 0x77: wasm.OpI32Rotl, 0x78: wasm.OpI32Rotr,
	0x79: wasm.OpI64Clz, 0x7A: wasm.OpI64Ctz, 0x7B: wasm.OpI64Popcnt,
	0x7C: wasm.OpI64Add, 0x7D: wasm.OpI64Sub, 0x7E: wasm.OpI64Mul, 0x7F: wasm.OpI64DivS, 0x80: wasm.OpI64DivU,
	0x81: wasm.OpI64RemS, 0x82: wasm.OpI64RemU, 0x83: wasm.OpI64And, 0x84: wasm.OpI64Or, 0x85: wasm.OpI64Xor,
	0x86: wasm.OpI64Shl, 0x87: wasm.OpI64ShrS, 0x88: wasm.OpI64ShrU, 0x89: wasm.OpI64Rotl, 0x8A: wasm.OpI64Rotr,
	0x8B: wasm.OpF32Abs, 0x8C: wasm.OpF32Neg, 0x8D: wasm.OpF32Ceil, 0x8E: wasm.OpF32Floor, 0x8F: wasm.OpF32Trunc,
	0x90: wasm.OpF32Nearest, 0x91: wasm.OpF32Sqrt, 0x92: wasm.OpF32Add, 0x93: wasm.OpF32Sub, 0x94: wasm.OpF32Mul,
	0x95: wasm.OpF32Div, 0x96: wasm.OpF32Min, 0x97: wasm.OpF32Max, 0x98: wasm.OpF32Copysign,
	0x99: wasm.OpF64Abs, 0x9A: wasm.OpF64Neg, 0x9B: wasm.OpF64Ceil, 0x9C: wasm.OpF64Floor, 0x9D: wasm.OpF64Trunc,
	0x9E: wasm.OpF64Nearest, 0x9F: wasm.OpF64Sqrt, 0xA0: wasm.OpF64Add, 0xA1: wasm.OpF64Sub, 0xA2: wasm.OpF64Mul,
	0xA3: wasm.OpF64Div, 0xA4: wasm.OpF64Min, 0xA5: wasm.OpF64Max, 0xA6: wasm.OpF64Copysign,
	0xA7: wasm.OpI32WrapI64,
	0xA8: wasm.OpI32TruncF32S, 0xA9: wasm.OpI32TruncF32U, 0xAA: wasm.OpI32TruncF64S, 0xAB: wasm.OpI32TruncF64U,
	0xAC: wasm.OpI64ExtendI32S, 0xAD: wasm.OpI64ExtendI32U,
	0xAE: wasm.OpI64TruncF32S, 0xAF: wasm.OpI64TruncF32U, 0xB0: wasm.OpI64TruncF64S, 0xB1: wasm.OpI64TruncF64U,
	0xB2: wasm.OpF32ConvertI32S, 0xB3: wasm.OpF32ConvertI32U, 0xB4: wasm.OpF32ConvertI64S, 0xB5: wasm.OpF32ConvertI64U,
	0xB6: wasm.OpF32DemoteF64,
	0xB7: wasm.OpF64ConvertI32S, 0xB8: wasm.OpF64ConvertI32U, 0xB9: wasm.OpF64ConvertI64S, 0xBA: wasm.OpF64ConvertI64U,
	0xBB: wasm.OpF64PromoteF32,
	0xBC: wasm.OpI32ReinterpretF32, 0xBD: wasm.OpI64ReinterpretF64, 0xBE: wasm.OpF32ReinterpretI32, 0xBF: wasm.OpF64ReinterpretI64,
	0xC0: wasm.OpI32Extend8S, 0xC1: wasm.OpI32Extend16S, 0xC2: wasm.OpI64Extend8S, 0xC3: wasm.OpI64Extend16S, 0xC4: wasm.OpI64Extend32S,
}
