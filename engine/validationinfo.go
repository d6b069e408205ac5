package engine

// ValidationInfo is the read-only contract produced by an external
// decoder/validator (package wasm) and consumed by Instantiate. The core
// never decodes or validates a binary itself.
type ValidationInfo struct {
	Types []FuncType

	Imports []ImportDecl

	Funcs   []FuncDecl // one per locally-defined function (imports excluded)
	Tables  []TableType
	Memories []MemoryType
	Globals []GlobalDecl

	Elements []ElementSegment
	Data     []DataSegment

	Exports []ExportDecl

	HasStart bool
	Start    uint32 // function index, imports-then-locals numbering

	// SideTable is a single flat array shared by every function body in
	// the module; FuncDecl.StpStart is each function's entry offset
	// into it.
	SideTable []SideTableEntry
}

// FuncType is a function signature: parameter and result value types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (ft FuncType) Equal(other FuncType) bool {
	if len(ft.Params) != len(other.Params) || len(ft.Results) != len(other.Results) {
		return false
	}
	for i := range ft.Params {
		if ft.Params[i] != other.Params[i] {
			return false
		}
	}
	for i := range ft.Results {
		if ft.Results[i] != other.Results[i] {
			return false
		}
	}
	return true
}

// ImportKind discriminates ImportDecl's payload, mirroring ExternKind.
type ImportKind = ExternKind

// ImportDecl describes one entry of the import section.
type ImportDecl struct {
	Module string
	Name   string
	Kind   ImportKind
	TypeIdx uint32     // func imports: index into ValidationInfo.Types
	Table   TableType  // table imports
	Memory  MemoryType // memory imports
	Global  GlobalType // global imports
}

// FuncDecl describes one locally-defined (non-imported) function.
type FuncDecl struct {
	TypeIdx uint32
	Locals  []ValType // full expanded list: params, then declared locals
	Code    []byte    // instruction bytes only, pc-indexed from 0
	StpStart int      // this function's starting offset into ValidationInfo.SideTable
}

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	ValType ValType
	Mutable bool
}

// GlobalDecl is a locally-defined global and its initializer.
type GlobalDecl struct {
	Type GlobalType
	Init ConstExpr
}

// ConstExprOp enumerates the const-expr forms legal in Wasm 1.0+ (plus
// reftype extensions): typed constants, global.get of an imported
// global, ref.func, and ref.null.
type ConstExprOp byte

const (
	ConstI32 ConstExprOp = iota
	ConstI64
	ConstF32
	ConstF64
	ConstV128
	ConstGlobalGet
	ConstRefFunc
	ConstRefNull
)

// ConstExpr is a single evaluated-at-instantiation-time initializer.
type ConstExpr struct {
	Op      ConstExprOp
	I32     int32
	I64     int64
	F32     float32
	F64     float64
	V128    [16]byte
	Idx     uint32 // global index (ConstGlobalGet) or func index (ConstRefFunc)
	RefKind RefKind
}

// SegmentMode is shared by element and data segments.
type SegmentMode byte

const (
	SegActive SegmentMode = iota
	SegPassive
	SegDeclarative // element segments only
)

// ElementSegment describes one element segment's mode, target table, and
// initializer list.
type ElementSegment struct {
	Mode     SegmentMode
	RefKind  RefKind
	TableIdx uint32    // active only
	Offset   ConstExpr // active only
	Inits    []ConstExpr
}

// DataSegment describes one data segment's mode, target memory, and bytes.
type DataSegment struct {
	Mode   SegmentMode
	MemIdx uint32 // active only
	Offset ConstExpr
	Bytes  []byte
}

// ExportDecl maps an export name to the index of the item it names,
// within the kind's own (imports-then-locals) index space.
type ExportDecl struct {
	Name string
	Kind ExternKind
	Idx  uint32
}
