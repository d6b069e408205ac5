package engine

// InstantiationOutcome is the result of a successful Instantiate call.
type InstantiationOutcome struct {
	ModuleAddr    ModuleAddr
	FuelRemaining Fuel
}

// Instantiate wires a ValidationInfo to fresh store addresses: it checks
// the supplied imports, allocates functions/tables/memories/globals/
// element and data segments, runs active element/data initializers, and
// (if declared) invokes the start function.
func Instantiate(store *Store, vi *ValidationInfo, imports []ExternVal, fuel Fuel) (InstantiationOutcome, *Error) {
	if len(imports) != len(vi.Imports) {
		return InstantiationOutcome{}, Instantiation(KindExternValsLenMismatch, "expected %d imports, got %d", len(vi.Imports), len(imports))
	}
	for i, decl := range vi.Imports {
		if err := checkImportSubtype(store, vi, decl, imports[i]); err != nil {
			return InstantiationOutcome{}, err
		}
	}
	if len(vi.Memories) > 0 {
		imported := 0
		for _, d := range vi.Imports {
			if d.Kind == ExternMem {
				imported++
			}
		}
		if imported+len(vi.Memories) > 1 {
			return InstantiationOutcome{}, Instantiation(KindMoreThanOneMemory, "module declares more than one memory")
		}
	}

	mi := &ModuleInst{Types: vi.Types, Exports: map[string]ExternVal{}, SideTable: vi.SideTable}
	moduleAddr := store.moduleAlloc(mi)

	// Step 3: function addresses (imports first, then locally defined).
	for i, decl := range vi.Imports {
		if decl.Kind == ExternFunc {
			mi.FuncAddrs = append(mi.FuncAddrs, imports[i].Func)
		}
	}
	for _, fd := range vi.Funcs {
		ft := vi.Types[fd.TypeIdx]
		addr := store.funcAllocWasm(moduleAddr, ft, fd.Locals, fd.Code, fd.StpStart)
		mi.FuncAddrs = append(mi.FuncAddrs, addr)
	}

	// Table/memory addresses (imports first); globals need two passes
	// since local globals' initializers may only reference imported
	// globals, so the imported prefix of GlobalAddrs must exist first.
	for i, decl := range vi.Imports {
		switch decl.Kind {
		case ExternTable:
			mi.TableAddrs = append(mi.TableAddrs, imports[i].Table)
		case ExternMem:
			mi.MemAddrs = append(mi.MemAddrs, imports[i].Mem)
		case ExternGlobal:
			mi.GlobalAddrs = append(mi.GlobalAddrs, imports[i].Global)
		}
	}

	// Step 4: evaluate and allocate local globals.
	for _, gd := range vi.Globals {
		v := evalConstExpr(store, mi, gd.Init)
		addr := store.GlobalAlloc(gd.Type, v)
		mi.GlobalAddrs = append(mi.GlobalAddrs, addr)
	}

	// Step 6: allocate tables and memories.
	for _, tt := range vi.Tables {
		mi.TableAddrs = append(mi.TableAddrs, store.TableAlloc(tt))
	}
	for _, mt := range vi.Memories {
		mi.MemAddrs = append(mi.MemAddrs, store.MemAlloc(mt))
	}

	// Step 5/6: evaluate element segments and allocate them.
	for _, es := range vi.Elements {
		refs := make([]Ref, len(es.Inits))
		for i, ce := range es.Inits {
			refs[i] = evalConstExpr(store, mi, ce).Ref
		}
		addr := store.ElemAlloc(&ElemInst{RefKind: es.RefKind, References: refs})
		mi.ElemAddrs = append(mi.ElemAddrs, addr)
	}
	for _, ds := range vi.Data {
		addr := store.DataAlloc(&DataInst{Bytes: append([]byte{}, ds.Bytes...)})
		mi.DataAddrs = append(mi.DataAddrs, addr)
	}

	// Step 7: exports.
	for _, ed := range vi.Exports {
		var ev ExternVal
		switch ed.Kind {
		case ExternFunc:
			ev = ExternVal{Kind: ExternFunc, Func: mi.FuncAddrs[ed.Idx]}
		case ExternTable:
			ev = ExternVal{Kind: ExternTable, Table: mi.TableAddrs[ed.Idx]}
		case ExternMem:
			ev = ExternVal{Kind: ExternMem, Mem: mi.MemAddrs[ed.Idx]}
		case ExternGlobal:
			ev = ExternVal{Kind: ExternGlobal, Global: mi.GlobalAddrs[ed.Idx]}
		}
		mi.Exports[ed.Name] = ev
	}

	// Step 8: active/declarative element segments, active data segments.
	for i, es := range vi.Elements {
		elemAddr := mi.ElemAddrs[i]
		switch es.Mode {
		case SegActive:
			offset := evalConstExpr(store, mi, es.Offset).I32()
			tab := store.Table(mi.TableAddrs[es.TableIdx])
			elem := store.Elem(elemAddr)
			if err := tab.Init(uint32(offset), elem, 0, uint32(len(elem.References))); err != nil {
				return InstantiationOutcome{}, err
			}
			elem.Drop()
		case SegDeclarative:
			store.Elem(elemAddr).Drop()
		}
	}
	for i, ds := range vi.Data {
		if ds.Mode != SegActive {
			continue
		}
		dataAddr := mi.DataAddrs[i]
		offset := evalConstExpr(store, mi, ds.Offset).I32()
		mem := store.Mem(mi.MemAddrs[ds.MemIdx])
		data := store.Data(dataAddr)
		if err := mem.Init(uint32(offset), data.Bytes, 0, uint32(len(data.Bytes))); err != nil {
			return InstantiationOutcome{}, err
		}
		data.Drop()
	}

	remaining := fuel
	if vi.HasStart {
		rs, err := store.Invoke(mi.FuncAddrs[vi.Start], nil, fuel)
		if err != nil {
			return InstantiationOutcome{}, err
		}
		fin, ok := rs.(Finished)
		if !ok {
			return InstantiationOutcome{}, Instantiation(KindExternValsLenMismatch, "start function suspended instead of completing")
		}
		remaining = fin.FuelRemaining
	}

	return InstantiationOutcome{ModuleAddr: moduleAddr, FuelRemaining: remaining}, nil
}

func checkImportSubtype(store *Store, vi *ValidationInfo, decl ImportDecl, supplied ExternVal) *Error {
	if decl.Kind != supplied.Kind {
		return Instantiation(KindInvalidImportType, "import %s.%s: kind mismatch", decl.Module, decl.Name)
	}
	switch decl.Kind {
	case ExternFunc:
		want := vi.Types[decl.TypeIdx]
		got := store.FuncType(supplied.Func)
		if !want.Equal(got) {
			return Instantiation(KindInvalidImportType, "import %s.%s: function type mismatch", decl.Module, decl.Name)
		}
	case ExternTable:
		got := store.Table(supplied.Table).Type
		if got.RefKind != decl.Table.RefKind || got.Min < decl.Table.Min || (decl.Table.HasMax && (!got.HasMax || got.Max > decl.Table.Max)) {
			return Instantiation(KindTableTypeMismatch, "import %s.%s: table type mismatch", decl.Module, decl.Name)
		}
	case ExternMem:
		got := store.Mem(supplied.Mem).Type
		if got.Min < decl.Memory.Min || (decl.Memory.HasMax && (!got.HasMax || got.Max > decl.Memory.Max)) {
			return Instantiation(KindInvalidImportType, "import %s.%s: memory type mismatch", decl.Module, decl.Name)
		}
	case ExternGlobal:
		got := store.globals[supplied.Global].Type
		if got.ValType != decl.Global.ValType || got.Mutable != decl.Global.Mutable {
			return Instantiation(KindGlobalTypeMismatch, "import %s.%s: global type mismatch", decl.Module, decl.Name)
		}
	}
	return nil
}

func evalConstExpr(store *Store, mi *ModuleInst, ce ConstExpr) Value {
	switch ce.Op {
	case ConstI32:
		return I32(ce.I32)
	case ConstI64:
		return I64(ce.I64)
	case ConstF32:
		return F32(ce.F32)
	case ConstF64:
		return F64(ce.F64)
	case ConstV128:
		return V128(ce.V128)
	case ConstGlobalGet:
		return store.GlobalRead(mi.GlobalAddrs[ce.Idx])
	case ConstRefFunc:
		return RefVal(FuncRef(mi.FuncAddrs[ce.Idx]))
	case ConstRefNull:
		return RefVal(NullRef(ce.RefKind))
	default:
		return Value{}
	}
}
