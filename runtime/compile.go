package runtime

import (
	"bytes"
	"fmt"

	"github.com/wippyai/wasm-engine/engine"
	"github.com/wippyai/wasm-engine/wasm"
)

// buildValidationInfo converts a decoded wasm.Module (plus its per-
// function side tables, built via wasm.BuildSideTable) into the
// engine's external ValidationInfo contract. This is the bridge
// between the decoder/validator (package wasm) and the execution core
// (package engine); neither of those packages depends on the other.
func buildValidationInfo(m *wasm.Module) (*engine.ValidationInfo, error) {
	vi := &engine.ValidationInfo{}

	vi.Types = make([]engine.FuncType, len(m.Types))
	for i, ft := range m.Types {
		vi.Types[i] = convertFuncType(ft)
	}

	blockArity := func(typeIdx uint32) (int, int) {
		ft := vi.Types[typeIdx]
		return len(ft.Params), len(ft.Results)
	}

	numImportedFuncs := m.NumImportedFuncs()
	funcTypeIdx := make([]uint32, 0, numImportedFuncs+len(m.Funcs))
	for _, imp := range m.Imports {
		if imp.Desc.Kind == wasm.KindFunc {
			funcTypeIdx = append(funcTypeIdx, imp.Desc.TypeIdx)
		}
	}
	funcTypeIdx = append(funcTypeIdx, m.Funcs...)
	callArity := func(funcIdx uint32) (int, int) {
		if int(funcIdx) >= len(funcTypeIdx) {
			return 0, 0
		}
		return blockArity(funcTypeIdx[funcIdx])
	}

	for _, imp := range m.Imports {
		decl := engine.ImportDecl{Module: imp.Module, Name: imp.Name}
		switch imp.Desc.Kind {
		case wasm.KindFunc:
			decl.Kind = engine.ExternFunc
			decl.TypeIdx = imp.Desc.TypeIdx
		case wasm.KindTable:
			decl.Kind = engine.ExternTable
			decl.Table = convertTableType(*imp.Desc.Table)
		case wasm.KindMemory:
			decl.Kind = engine.ExternMem
			decl.Memory = convertMemoryType(*imp.Desc.Memory)
		case wasm.KindGlobal:
			decl.Kind = engine.ExternGlobal
			decl.Global = convertGlobalType(*imp.Desc.Global)
		default:
			continue // tags: outside this engine's scope
		}
		vi.Imports = append(vi.Imports, decl)
	}

	if len(m.Funcs) != len(m.Code) {
		return nil, fmt.Errorf("function section declares %d functions but code section has %d bodies", len(m.Funcs), len(m.Code))
	}

	var sideTable []wasm.SideTableEntry
	for i, typeIdx := range m.Funcs {
		body := m.Code[i]
		locals := expandLocals(m.Types[typeIdx].Params, body.Locals)

		stpStart, updated, err := wasm.BuildSideTable(body.Code, len(vi.Types[typeIdx].Results), blockArity, callArity, sideTable)
		if err != nil {
			return nil, fmt.Errorf("function %d: building side table: %w", i, err)
		}
		sideTable = updated

		vi.Funcs = append(vi.Funcs, engine.FuncDecl{
			TypeIdx:  typeIdx,
			Locals:   locals,
			Code:     body.Code,
			StpStart: stpStart,
		})
	}
	vi.SideTable = toEngineSideTable(sideTable)

	for _, t := range m.Tables {
		vi.Tables = append(vi.Tables, convertTableType(t))
	}
	for _, mt := range m.Memories {
		vi.Memories = append(vi.Memories, convertMemoryType(mt))
	}
	for _, g := range m.Globals {
		ce, err := parseConstExpr(g.Init)
		if err != nil {
			return nil, fmt.Errorf("global initializer: %w", err)
		}
		vi.Globals = append(vi.Globals, engine.GlobalDecl{Type: convertGlobalType(g.Type), Init: ce})
	}

	for i, e := range m.Elements {
		seg, err := convertElement(e)
		if err != nil {
			return nil, fmt.Errorf("element segment %d: %w", i, err)
		}
		vi.Elements = append(vi.Elements, seg)
	}

	for i, d := range m.Data {
		seg, err := convertData(d)
		if err != nil {
			return nil, fmt.Errorf("data segment %d: %w", i, err)
		}
		vi.Data = append(vi.Data, seg)
	}

	for _, e := range m.Exports {
		decl := engine.ExportDecl{Name: e.Name, Idx: e.Idx}
		switch e.Kind {
		case wasm.KindFunc:
			decl.Kind = engine.ExternFunc
		case wasm.KindTable:
			decl.Kind = engine.ExternTable
		case wasm.KindMemory:
			decl.Kind = engine.ExternMem
		case wasm.KindGlobal:
			decl.Kind = engine.ExternGlobal
		default:
			continue
		}
		vi.Exports = append(vi.Exports, decl)
	}

	if m.Start != nil {
		vi.HasStart = true
		vi.Start = *m.Start
	}

	return vi, nil
}

func expandLocals(params []wasm.ValType, locals []wasm.LocalEntry) []engine.ValType {
	out := make([]engine.ValType, 0, len(params)+len(locals))
	for _, p := range params {
		out = append(out, convertValType(p))
	}
	for _, le := range locals {
		for i := uint32(0); i < le.Count; i++ {
			out = append(out, convertValType(le.ValType))
		}
	}
	return out
}

func convertFuncType(ft wasm.FuncType) engine.FuncType {
	out := engine.FuncType{}
	for _, p := range ft.Params {
		out.Params = append(out.Params, convertValType(p))
	}
	for _, r := range ft.Results {
		out.Results = append(out.Results, convertValType(r))
	}
	return out
}

func convertValType(v wasm.ValType) engine.ValType {
	switch v {
	case wasm.ValI32:
		return engine.TypeI32
	case wasm.ValI64:
		return engine.TypeI64
	case wasm.ValF32:
		return engine.TypeF32
	case wasm.ValF64:
		return engine.TypeF64
	case wasm.ValV128:
		return engine.TypeV128
	case wasm.ValExtern:
		return engine.TypeExternRef
	default:
		return engine.TypeFuncRef
	}
}

func convertTableType(t wasm.TableType) engine.TableType {
	out := engine.TableType{RefKind: engine.RefKindFunc, Min: uint32(t.Limits.Min)}
	if t.RefElemType != nil && t.RefElemType.HeapType == -17 {
		out.RefKind = engine.RefKindExtern
	} else if t.ElemType == byte(wasm.ValExtern) {
		out.RefKind = engine.RefKindExtern
	}
	if t.Limits.Max != nil {
		out.HasMax = true
		out.Max = uint32(*t.Limits.Max)
	}
	return out
}

func convertMemoryType(mt wasm.MemoryType) engine.MemoryType {
	out := engine.MemoryType{Min: uint32(mt.Limits.Min)}
	if mt.Limits.Max != nil {
		out.HasMax = true
		out.Max = uint32(*mt.Limits.Max)
	}
	return out
}

func convertGlobalType(gt wasm.GlobalType) engine.GlobalType {
	return engine.GlobalType{ValType: convertValType(gt.ValType), Mutable: gt.Mutable}
}

// parseConstExpr decodes a single-instruction initializer (plus its
// trailing end opcode) into an engine.ConstExpr: one of i32/i64/f32/f64/
// v128 const, global.get, ref.func, or ref.null, per the Wasm 1.0+
// grammar for constant expressions.
func parseConstExpr(code []byte) (engine.ConstExpr, error) {
	r := bytes.NewReader(code)
	op, err := r.ReadByte()
	if err != nil {
		return engine.ConstExpr{}, err
	}
	switch op {
	case wasm.OpI32Const:
		v, err := wasm.ReadLEB128s(r)
		if err != nil {
			return engine.ConstExpr{}, err
		}
		return engine.ConstExpr{Op: engine.ConstI32, I32: v}, nil
	case wasm.OpI64Const:
		v, err := wasm.ReadLEB128s64(r)
		if err != nil {
			return engine.ConstExpr{}, err
		}
		return engine.ConstExpr{Op: engine.ConstI64, I64: v}, nil
	case wasm.OpF32Const:
		v, err := wasm.ReadFloat32(r)
		if err != nil {
			return engine.ConstExpr{}, err
		}
		return engine.ConstExpr{Op: engine.ConstF32, F32: v}, nil
	case wasm.OpF64Const:
		v, err := wasm.ReadFloat64(r)
		if err != nil {
			return engine.ConstExpr{}, err
		}
		return engine.ConstExpr{Op: engine.ConstF64, F64: v}, nil
	case wasm.OpPrefixSIMD:
		sub, err := wasm.ReadLEB128u(r)
		if err != nil {
			return engine.ConstExpr{}, err
		}
		if sub != wasm.SimdV128Const {
			return engine.ConstExpr{}, fmt.Errorf("const expr: unsupported v128 sub-opcode %#x", sub)
		}
		var b [16]byte
		if _, err := r.Read(b[:]); err != nil {
			return engine.ConstExpr{}, err
		}
		return engine.ConstExpr{Op: engine.ConstV128, V128: b}, nil
	case wasm.OpGlobalGet:
		idx, err := wasm.ReadLEB128u(r)
		if err != nil {
			return engine.ConstExpr{}, err
		}
		return engine.ConstExpr{Op: engine.ConstGlobalGet, Idx: idx}, nil
	case wasm.OpRefFunc:
		idx, err := wasm.ReadLEB128u(r)
		if err != nil {
			return engine.ConstExpr{}, err
		}
		return engine.ConstExpr{Op: engine.ConstRefFunc, Idx: idx}, nil
	case wasm.OpRefNull:
		ht, err := wasm.ReadLEB128s64(r)
		if err != nil {
			return engine.ConstExpr{}, err
		}
		kind := engine.RefKindFunc
		if ht == -17 {
			kind = engine.RefKindExtern
		}
		return engine.ConstExpr{Op: engine.ConstRefNull, RefKind: kind}, nil
	default:
		return engine.ConstExpr{}, fmt.Errorf("const expr: unsupported opcode %#x", op)
	}
}

func convertElement(e wasm.Element) (engine.ElementSegment, error) {
	seg := engine.ElementSegment{RefKind: engine.RefKindFunc, TableIdx: e.TableIdx}

	usesExprs := e.Flags&0x04 != 0
	if usesExprs && e.RefType != nil && e.RefType.HeapType == -17 {
		seg.RefKind = engine.RefKindExtern
	} else if e.Type == wasm.ValExtern {
		seg.RefKind = engine.RefKindExtern
	}

	switch e.Flags & 0x03 {
	case 0, 2:
		seg.Mode = engine.SegActive
	case 1:
		seg.Mode = engine.SegPassive
	case 3:
		seg.Mode = engine.SegDeclarative
	}

	if seg.Mode == engine.SegActive {
		ce, err := parseConstExpr(e.Offset)
		if err != nil {
			return engine.ElementSegment{}, fmt.Errorf("offset: %w", err)
		}
		seg.Offset = ce
	}

	if usesExprs {
		for i, exprBytes := range e.Exprs {
			ce, err := parseConstExpr(exprBytes)
			if err != nil {
				return engine.ElementSegment{}, fmt.Errorf("init %d: %w", i, err)
			}
			seg.Inits = append(seg.Inits, ce)
		}
	} else {
		for _, idx := range e.FuncIdxs {
			seg.Inits = append(seg.Inits, engine.ConstExpr{Op: engine.ConstRefFunc, Idx: idx})
		}
	}

	return seg, nil
}

func convertData(d wasm.DataSegment) (engine.DataSegment, error) {
	seg := engine.DataSegment{MemIdx: d.MemIdx, Bytes: d.Init}
	if d.Flags == 1 {
		seg.Mode = engine.SegPassive
		return seg, nil
	}
	seg.Mode = engine.SegActive
	ce, err := parseConstExpr(d.Offset)
	if err != nil {
		return engine.DataSegment{}, fmt.Errorf("offset: %w", err)
	}
	seg.Offset = ce
	return seg, nil
}

func toEngineSideTable(in []wasm.SideTableEntry) []engine.SideTableEntry {
	out := make([]engine.SideTableEntry, len(in))
	for i, e := range in {
		out[i] = engine.SideTableEntry{DeltaPC: e.DeltaPC, DeltaSTP: e.DeltaSTP, PopCnt: e.PopCnt, ValCnt: e.ValCnt}
	}
	return out
}
