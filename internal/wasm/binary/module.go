// Package binary decodes a Wasm binary module into internal/wasm.Module.
// Full validation is explicitly out of scope (spec.md §1: "presumed done by
// the host verifier or a library"); this package only rejects malformed
// encodings it cannot make sense of structurally (bad LEB128, truncated
// sections, unknown section ids), matching a Wasm engine's split between
// "decode" and "validate" passes. No third-party Wasm parsing library
// appears anywhere in the retrieved corpus, so this is deliberately a
// hand-rolled stdlib-only decoder — see DESIGN.md's standard-library
// justification entry for this package.
package binary

import (
	"fmt"

	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/wasm"
)

const (
	wasmMagic   = 0x6d736100 // "\0asm"
	wasmVersion = 1
)

const (
	sectionCustom = iota
	sectionType
	sectionImport
	sectionFunction
	sectionTable
	sectionMemory
	sectionGlobal
	sectionExport
	sectionStart
	sectionElement
	sectionCode
	sectionData
	sectionDataCount
)

// DecodeModule parses a complete Wasm binary into a Module ready for
// Store.Instantiate.
func DecodeModule(buf []byte) (*wasm.Module, error) {
	r := newReader(buf)

	magic, err := r.readBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if uint32(magic[0])|uint32(magic[1])<<8|uint32(magic[2])<<16|uint32(magic[3])<<24 != wasmMagic {
		return nil, fmt.Errorf("not a wasm module: bad magic")
	}
	version, err := r.readBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if uint32(version[0])|uint32(version[1])<<8|uint32(version[2])<<16|uint32(version[3])<<24 != wasmVersion {
		return nil, fmt.Errorf("unsupported wasm version")
	}

	m := &wasm.Module{}
	d := &decoder{m: m}

	var lastSection = -1
	for r.remaining() > 0 {
		id, err := r.readByte()
		if err != nil {
			return nil, fmt.Errorf("reading section id: %w", err)
		}
		size, err := r.readVarUint32()
		if err != nil {
			return nil, fmt.Errorf("reading section %d size: %w", id, err)
		}
		payload, err := r.readBytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("reading section %d payload: %w", id, err)
		}
		if id != sectionCustom {
			if int(id) <= lastSection {
				return nil, fmt.Errorf("section %d out of order", id)
			}
			lastSection = int(id)
		}
		sr := newReader(payload)
		if err := d.decodeSection(id, sr); err != nil {
			return nil, fmt.Errorf("section %d: %w", id, err)
		}
	}
	return m, nil
}

type decoder struct {
	m *wasm.Module
}

func (d *decoder) decodeSection(id byte, r *reader) error {
	switch id {
	case sectionCustom:
		return nil // name section etc. are not consulted by the core
	case sectionType:
		return d.decodeTypeSection(r)
	case sectionImport:
		return d.decodeImportSection(r)
	case sectionFunction:
		return d.decodeFunctionSection(r)
	case sectionTable:
		return d.decodeTableSection(r)
	case sectionMemory:
		return d.decodeMemorySection(r)
	case sectionGlobal:
		return d.decodeGlobalSection(r)
	case sectionExport:
		return d.decodeExportSection(r)
	case sectionStart:
		return d.decodeStartSection(r)
	case sectionElement:
		return d.decodeElementSection(r)
	case sectionCode:
		return d.decodeCodeSection(r)
	case sectionData:
		return d.decodeDataSection(r)
	case sectionDataCount:
		_, err := r.readVarUint32()
		return err
	}
	return fmt.Errorf("unknown section id %d", id)
}

func readVec(r *reader) (uint32, error) { return r.readVarUint32() }

func (d *decoder) decodeTypeSection(r *reader) error {
	n, err := readVec(r)
	if err != nil {
		return err
	}
	d.m.Types = make([]api.FunctionType, n)
	for i := range d.m.Types {
		form, err := r.readByte()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return fmt.Errorf("type %d: expected func form 0x60, got 0x%02x", i, form)
		}
		params, err := readValTypeVec(r)
		if err != nil {
			return fmt.Errorf("type %d params: %w", i, err)
		}
		results, err := readValTypeVec(r)
		if err != nil {
			return fmt.Errorf("type %d results: %w", i, err)
		}
		d.m.Types[i] = api.FunctionType{Params: params, Results: results}
	}
	return nil
}

func readValTypeVec(r *reader) ([]api.ValueType, error) {
	n, err := readVec(r)
	if err != nil {
		return nil, err
	}
	vt := make([]api.ValueType, n)
	for i := range vt {
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		vt[i] = api.ValueType(b)
	}
	return vt, nil
}

func readLimits(r *reader) (min, max uint32, hasMax bool, err error) {
	flag, err := r.readByte()
	if err != nil {
		return 0, 0, false, err
	}
	min, err = r.readVarUint32()
	if err != nil {
		return 0, 0, false, err
	}
	if flag == 1 {
		max, err = r.readVarUint32()
		if err != nil {
			return 0, 0, false, err
		}
		hasMax = true
	}
	return min, max, hasMax, nil
}

func (d *decoder) decodeImportSection(r *reader) error {
	n, err := readVec(r)
	if err != nil {
		return err
	}
	d.m.Imports = make([]wasm.Import, n)
	for i := range d.m.Imports {
		mod, err := r.readName()
		if err != nil {
			return err
		}
		name, err := r.readName()
		if err != nil {
			return err
		}
		kind, err := r.readByte()
		if err != nil {
			return err
		}
		imp := wasm.Import{Module: mod, Name: name}
		switch kind {
		case 0x00:
			imp.Type = api.ExternTypeFunc
			imp.FuncTypeIdx, err = r.readVarUint32()
		case 0x01:
			imp.Type = api.ExternTypeTable
			var elemType byte
			elemType, err = r.readByte()
			if err != nil {
				return err
			}
			var min, max uint32
			var hasMax bool
			min, max, hasMax, err = readLimits(r)
			imp.Table = wasm.TableType{ElemType: api.ValueType(elemType), Min: min, Max: max, HasMax: hasMax}
		case 0x02:
			imp.Type = api.ExternTypeMemory
			var min, max uint32
			var hasMax bool
			min, max, hasMax, err = readLimits(r)
			imp.Mem = wasm.MemoryType{Min: min, Max: max, HasMax: hasMax}
		case 0x03:
			imp.Type = api.ExternTypeGlobal
			var vt byte
			vt, err = r.readByte()
			if err != nil {
				return err
			}
			var mut byte
			mut, err = r.readByte()
			imp.Global = wasm.GlobalType{ValType: api.ValueType(vt), Mutable: mut == 1}
		default:
			return fmt.Errorf("import %d: unknown kind %d", i, kind)
		}
		if err != nil {
			return fmt.Errorf("import %d: %w", i, err)
		}
		d.m.Imports[i] = imp
	}
	return nil
}

func (d *decoder) decodeFunctionSection(r *reader) error {
	n, err := readVec(r)
	if err != nil {
		return err
	}
	d.m.FunctionTypeIndices = make([]uint32, n)
	for i := range d.m.FunctionTypeIndices {
		d.m.FunctionTypeIndices[i], err = r.readVarUint32()
		if err != nil {
			return fmt.Errorf("function %d: %w", i, err)
		}
	}
	return nil
}

func (d *decoder) decodeTableSection(r *reader) error {
	n, err := readVec(r)
	if err != nil {
		return err
	}
	d.m.Tables = make([]wasm.TableType, n)
	for i := range d.m.Tables {
		elemType, err := r.readByte()
		if err != nil {
			return err
		}
		min, max, hasMax, err := readLimits(r)
		if err != nil {
			return fmt.Errorf("table %d: %w", i, err)
		}
		d.m.Tables[i] = wasm.TableType{ElemType: api.ValueType(elemType), Min: min, Max: max, HasMax: hasMax}
	}
	return nil
}

func (d *decoder) decodeMemorySection(r *reader) error {
	n, err := readVec(r)
	if err != nil {
		return err
	}
	d.m.Mems = make([]wasm.MemoryType, n)
	for i := range d.m.Mems {
		min, max, hasMax, err := readLimits(r)
		if err != nil {
			return fmt.Errorf("memory %d: %w", i, err)
		}
		d.m.Mems[i] = wasm.MemoryType{Min: min, Max: max, HasMax: hasMax}
	}
	return nil
}

func (d *decoder) decodeGlobalSection(r *reader) error {
	n, err := readVec(r)
	if err != nil {
		return err
	}
	d.m.Globals = make([]wasm.GlobalDecl, n)
	for i := range d.m.Globals {
		vt, err := r.readByte()
		if err != nil {
			return err
		}
		mut, err := r.readByte()
		if err != nil {
			return err
		}
		init, err := readConstExpr(r)
		if err != nil {
			return fmt.Errorf("global %d init: %w", i, err)
		}
		d.m.Globals[i] = wasm.GlobalDecl{
			Type: wasm.GlobalType{ValType: api.ValueType(vt), Mutable: mut == 1},
			Init: init,
		}
	}
	return nil
}

func (d *decoder) decodeExportSection(r *reader) error {
	n, err := readVec(r)
	if err != nil {
		return err
	}
	d.m.Exports = make([]wasm.Export, n)
	for i := range d.m.Exports {
		name, err := r.readName()
		if err != nil {
			return err
		}
		kind, err := r.readByte()
		if err != nil {
			return err
		}
		idx, err := r.readVarUint32()
		if err != nil {
			return err
		}
		var t api.ExternType
		switch kind {
		case 0x00:
			t = api.ExternTypeFunc
		case 0x01:
			t = api.ExternTypeTable
		case 0x02:
			t = api.ExternTypeMemory
		case 0x03:
			t = api.ExternTypeGlobal
		default:
			return fmt.Errorf("export %d: unknown kind %d", i, kind)
		}
		d.m.Exports[i] = wasm.Export{Name: name, Type: t, Index: idx}
	}
	return nil
}

func (d *decoder) decodeStartSection(r *reader) error {
	idx, err := r.readVarUint32()
	if err != nil {
		return err
	}
	d.m.StartFunc = idx
	d.m.HasStartFunc = true
	return nil
}

// decodeElementSection handles the eight element-segment flag encodings
// introduced by the bulk-memory/reference-types proposal. Funcidx-vector
// variants (flags 0-3) store each entry as funcidx+1; expr-vector variants
// (flags 4-7) evaluate each initializer as a const expr and take its raw ref
// encoding — both forms land in ElementSegment.Init as module-local-index-
// based raw encodings, matching the doc comment on that field in module.go.
func (d *decoder) decodeElementSection(r *reader) error {
	n, err := readVec(r)
	if err != nil {
		return err
	}
	d.m.Elements = make([]wasm.ElementSegment, n)
	for i := range d.m.Elements {
		flag, err := r.readVarUint32()
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		seg := wasm.ElementSegment{Type: api.ValueTypeFuncref}

		useExprs := flag == 4 || flag == 5 || flag == 6 || flag == 7

		switch flag {
		case 0, 4:
			seg.Mode = wasm.ElementModeActive
			seg.Offset, err = readConstExpr(r)
		case 1, 5:
			seg.Mode = wasm.ElementModePassive
		case 2, 6:
			seg.Mode = wasm.ElementModeActive
			seg.TableIndex, err = r.readVarUint32()
			if err != nil {
				return fmt.Errorf("element %d tableidx: %w", i, err)
			}
			seg.Offset, err = readConstExpr(r)
		case 3, 7:
			seg.Mode = wasm.ElementModeDeclarative
		default:
			return fmt.Errorf("element %d: unknown flag %d", i, flag)
		}
		if err != nil {
			return fmt.Errorf("element %d offset: %w", i, err)
		}

		if flag != 0 {
			if useExprs {
				vt, err := r.readByte()
				if err != nil {
					return fmt.Errorf("element %d reftype: %w", i, err)
				}
				seg.Type = api.ValueType(vt)
			} else {
				kind, err := r.readByte()
				if err != nil {
					return fmt.Errorf("element %d elemkind: %w", i, err)
				}
				if kind != 0x00 {
					return fmt.Errorf("element %d: unknown elemkind %d", i, kind)
				}
			}
		}

		count, err := readVec(r)
		if err != nil {
			return fmt.Errorf("element %d init length: %w", i, err)
		}
		seg.Init = make([]uint64, count)
		for j := range seg.Init {
			if useExprs {
				ce, err := readConstExpr(r)
				if err != nil {
					return fmt.Errorf("element %d init %d: %w", i, j, err)
				}
				if ce.IsGlobalGet {
					return fmt.Errorf("element %d init %d: global.get not supported in element init", i, j)
				}
				seg.Init[j] = ce.Value.U64()
			} else {
				idx, err := r.readVarUint32()
				if err != nil {
					return fmt.Errorf("element %d init %d: %w", i, j, err)
				}
				seg.Init[j] = uint64(idx) + 1
			}
		}
		d.m.Elements[i] = seg
	}
	return nil
}

func (d *decoder) decodeCodeSection(r *reader) error {
	n, err := readVec(r)
	if err != nil {
		return err
	}
	d.m.Code = make([]wasm.Code, n)
	for i := range d.m.Code {
		bodySize, err := r.readVarUint32()
		if err != nil {
			return fmt.Errorf("code %d: %w", i, err)
		}
		raw, err := r.readBytes(int(bodySize))
		if err != nil {
			return fmt.Errorf("code %d body: %w", i, err)
		}
		br := newReader(raw)
		locals, err := readLocalsDecl(br)
		if err != nil {
			return fmt.Errorf("code %d locals: %w", i, err)
		}
		body, err := br.readFunctionBody()
		if err != nil {
			return fmt.Errorf("code %d instructions: %w", i, err)
		}
		d.m.Code[i] = wasm.Code{LocalTypes: locals, Body: body}
	}
	return nil
}

// readLocalsDecl expands the code entry's run-length-encoded local
// declarations ((count, valtype) pairs) into one entry per local slot,
// matching internal/wasm.Code.LocalTypes' flat layout.
func readLocalsDecl(r *reader) ([]api.ValueType, error) {
	n, err := readVec(r)
	if err != nil {
		return nil, err
	}
	var locals []api.ValueType
	for i := uint32(0); i < n; i++ {
		count, err := r.readVarUint32()
		if err != nil {
			return nil, err
		}
		vt, err := r.readByte()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < count; j++ {
			locals = append(locals, api.ValueType(vt))
		}
	}
	return locals, nil
}

func (d *decoder) decodeDataSection(r *reader) error {
	n, err := readVec(r)
	if err != nil {
		return err
	}
	d.m.Datas = make([]wasm.DataSegment, n)
	for i := range d.m.Datas {
		flag, err := r.readVarUint32()
		if err != nil {
			return fmt.Errorf("data %d: %w", i, err)
		}
		seg := wasm.DataSegment{}
		switch flag {
		case 0:
			seg.Mode = wasm.DataModeActive
			seg.Offset, err = readConstExpr(r)
		case 1:
			seg.Mode = wasm.DataModePassive
		case 2:
			seg.Mode = wasm.DataModeActive
			seg.MemIndex, err = r.readVarUint32()
			if err != nil {
				return fmt.Errorf("data %d memidx: %w", i, err)
			}
			seg.Offset, err = readConstExpr(r)
		default:
			return fmt.Errorf("data %d: unknown flag %d", i, flag)
		}
		if err != nil {
			return fmt.Errorf("data %d offset: %w", i, err)
		}
		n, err := readVec(r)
		if err != nil {
			return fmt.Errorf("data %d length: %w", i, err)
		}
		bytes, err := r.readBytes(int(n))
		if err != nil {
			return fmt.Errorf("data %d bytes: %w", i, err)
		}
		seg.Init = append([]byte(nil), bytes...)
		d.m.Datas[i] = seg
	}
	return nil
}

// readConstExpr evaluates the narrow const-expr grammar Wasm allows in
// global/element/data initializers: exactly one of i32.const, i64.const,
// f32.const, f64.const, or global.get, followed by `end` (0x0B).
func readConstExpr(r *reader) (wasm.ConstExpr, error) {
	op, err := r.readByte()
	if err != nil {
		return wasm.ConstExpr{}, err
	}
	var ce wasm.ConstExpr
	switch op {
	case 0x41:
		v, err := r.readVarInt32()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.Value = api.I32(v)
	case 0x42:
		v, err := r.readVarInt64()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.Value = api.I64(v)
	case 0x43:
		v, err := r.readF32()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.Value = api.F32(v)
	case 0x44:
		v, err := r.readF64()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.Value = api.F64(v)
	case 0x23:
		idx, err := r.readVarUint32()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.IsGlobalGet = true
		ce.GlobalIndex = idx
	case 0xD0: // ref.null
		if _, err := r.readByte(); err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.Value = api.NullFuncRef()
	case 0xD2: // ref.func
		idx, err := r.readVarUint32()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.Value = api.FuncRef(idx) // module-local index; lifted to a Store address at instantiation
	default:
		return wasm.ConstExpr{}, fmt.Errorf("unsupported const expr opcode 0x%02x", op)
	}
	end, err := r.readByte()
	if err != nil {
		return wasm.ConstExpr{}, err
	}
	if end != 0x0B {
		return wasm.ConstExpr{}, fmt.Errorf("const expr: expected end, got 0x%02x", end)
	}
	return ce, nil
}
