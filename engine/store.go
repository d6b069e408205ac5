package engine

import "go.uber.org/zap"

// HostFunc is the shape of a host-provided function: it receives the
// store's user data and the popped parameter values, and returns result
// values or an error. Any non-nil error is treated as a halt of
// execution (errors.KindHostFunctionHaltedExecution at the call site).
type HostFunc func(userData any, params []Value) ([]Value, error)

// FuncInst is a sum of WasmFunc and HostFunc, selected by IsHost.
type FuncInst struct {
	Type   FuncType
	IsHost bool

	Host HostFunc

	// Wasm-only fields.
	ModuleAddr ModuleAddr
	Locals     []ValType // params + declared locals, fully expanded
	Code       []byte
	StpStart   int
}

// GlobalInst holds a global's type and current value.
type GlobalInst struct {
	Type  GlobalType
	Value Value
}

// ModuleInst is the fully-wired instance produced by Instantiate.
type ModuleInst struct {
	Types       []FuncType
	FuncAddrs   []FuncAddr
	TableAddrs  []TableAddr
	MemAddrs    []MemAddr
	GlobalAddrs []GlobalAddr
	ElemAddrs   []ElemAddr
	DataAddrs   []DataAddr
	Exports     map[string]ExternVal
	SideTable   []SideTableEntry
}

// Store owns every address space: functions, tables, memories, globals,
// element segments, data segments, and module instances. It is not safe
// for concurrent use.
type Store struct {
	id       StoreId
	UserData any

	funcs   []*FuncInst
	tables  []*TableInst
	mems    []*MemInst
	globals []*GlobalInst
	elems   []*ElemInst
	datas   []*DataInst
	modules []*ModuleInst

	dormitory *Dormitory
}

// NewStore creates a fresh, empty store.
func NewStore(userData any) *Store {
	return &Store{
		id:        newStoreId(),
		UserData:  userData,
		dormitory: newDormitory(),
	}
}

func (s *Store) ID() StoreId { return s.id }

// --- function address space ---

// FuncAlloc registers a host function and returns its address.
func (s *Store) FuncAlloc(ft FuncType, host HostFunc) FuncAddr {
	s.funcs = append(s.funcs, &FuncInst{Type: ft, IsHost: true, Host: host})
	return FuncAddr(len(s.funcs) - 1)
}

func (s *Store) funcAllocWasm(moduleAddr ModuleAddr, ft FuncType, locals []ValType, code []byte, stpStart int) FuncAddr {
	s.funcs = append(s.funcs, &FuncInst{
		Type:       ft,
		ModuleAddr: moduleAddr,
		Locals:     locals,
		Code:       code,
		StpStart:   stpStart,
	})
	return FuncAddr(len(s.funcs) - 1)
}

func (s *Store) Func(addr FuncAddr) *FuncInst { return s.funcs[addr] }

func (s *Store) FuncType(addr FuncAddr) FuncType { return s.funcs[addr].Type }

// --- table address space ---

func (s *Store) TableAlloc(t TableType) TableAddr {
	s.tables = append(s.tables, NewTableInst(t))
	return TableAddr(len(s.tables) - 1)
}

func (s *Store) Table(addr TableAddr) *TableInst { return s.tables[addr] }

func (s *Store) TableSize(addr TableAddr) uint32 { return s.tables[addr].Size() }

func (s *Store) TableGrow(addr TableAddr, n uint32, init Ref) uint32 {
	return s.tables[addr].Grow(n, init)
}

// --- memory address space ---

func (s *Store) MemAlloc(t MemoryType) MemAddr {
	s.mems = append(s.mems, NewMemInst(t))
	return MemAddr(len(s.mems) - 1)
}

func (s *Store) Mem(addr MemAddr) *MemInst { return s.mems[addr] }

func (s *Store) MemSize(addr MemAddr) uint32 { return s.mems[addr].SizePages() }

func (s *Store) MemGrow(addr MemAddr, n uint32) uint32 { return s.mems[addr].Grow(n) }

// --- global address space ---

func (s *Store) GlobalAlloc(t GlobalType, v Value) GlobalAddr {
	s.globals = append(s.globals, &GlobalInst{Type: t, Value: v})
	return GlobalAddr(len(s.globals) - 1)
}

func (s *Store) GlobalRead(addr GlobalAddr) Value { return s.globals[addr].Value }

// GlobalWrite writes v, trapping (embedder-side) on an immutable global.
func (s *Store) GlobalWrite(addr GlobalAddr, v Value) *Error {
	g := s.globals[addr]
	if !g.Type.Mutable {
		return Embedder(KindWriteOnImmutableGlobal, "write to immutable global")
	}
	g.Value = v
	return nil
}

// --- element/data address spaces ---

func (s *Store) ElemAlloc(e *ElemInst) ElemAddr {
	s.elems = append(s.elems, e)
	return ElemAddr(len(s.elems) - 1)
}

func (s *Store) Elem(addr ElemAddr) *ElemInst { return s.elems[addr] }

func (s *Store) DataAlloc(d *DataInst) DataAddr {
	s.datas = append(s.datas, d)
	return DataAddr(len(s.datas) - 1)
}

func (s *Store) Data(addr DataAddr) *DataInst { return s.datas[addr] }

// --- module address space ---

func (s *Store) Module(addr ModuleAddr) *ModuleInst { return s.modules[addr] }

func (s *Store) moduleAlloc(m *ModuleInst) ModuleAddr {
	s.modules = append(s.modules, m)
	return ModuleAddr(len(s.modules) - 1)
}

// InstanceExport resolves an export by name.
func (s *Store) InstanceExport(addr ModuleAddr, name string) (ExternVal, *Error) {
	ev, ok := s.modules[addr].Exports[name]
	if !ok {
		return ExternVal{}, Embedder(KindUnknownExport, "export %q not found", name)
	}
	return ev, nil
}

// --- invocation ---

// Invoke type-checks params against the target function's declared
// parameter types and begins a Fresh resumable's execution.
func (s *Store) Invoke(funcAddr FuncAddr, params []Value, fuel Fuel) (RunState, *Error) {
	fn := s.funcs[funcAddr]
	if err := checkParamTypes(fn.Type, params); err != nil {
		return nil, err
	}
	return s.resume(freshRef(funcAddr, params, fuel))
}

func checkParamTypes(ft FuncType, params []Value) *Error {
	if len(params) != len(ft.Params) {
		return Embedder(KindFunctionInvocationSignatureMismatch, "expected %d params, got %d", len(ft.Params), len(params))
	}
	for i, p := range params {
		if p.Ty != ft.Params[i] {
			return Embedder(KindFunctionInvocationSignatureMismatch, "param %d: expected %s, got %s", i, ft.Params[i], p.Ty)
		}
	}
	return nil
}

// Resume drives a previously suspended resumable.
func (s *Store) Resume(ref ResumableRef) (RunState, *Error) {
	return s.resume(ref)
}

// AccessFuelMut mutates the fuel field of a Fresh or Invoked ref.
func (s *Store) AccessFuelMut(ref *ResumableRef, fn func(*Fuel)) *Error {
	if ref.fresh {
		fn(&ref.freshFuel)
		return nil
	}
	if ref.dormitory != s.dormitory {
		return Embedder(KindResumableNotFound, "resumable belongs to a different store")
	}
	r, ok := ref.dormitory.peek(ref.key)
	if !ok {
		return Embedder(KindResumableNotFound, "resumable %d not found", ref.key)
	}
	fn(&r.Fuel)
	return nil
}

func (s *Store) resume(ref ResumableRef) (RunState, *Error) {
	var resumable *Resumable

	if ref.fresh {
		fn := s.funcs[ref.funcAddr]
		if fn.IsHost {
			results, err := fn.Host(s.UserData, ref.params)
			if err != nil {
				return nil, Host(KindHostFunctionHaltedExecution, "%v", err)
			}
			if err := checkReturnTypes(fn.Type, results); err != nil {
				return nil, err
			}
			return Finished{Values: results, FuelRemaining: ref.freshFuel}, nil
		}

		stack := NewStackWithValues(ref.params)
		stack.PushSentinelFrame(len(fn.Locals), len(fn.Type.Results))
		for i := len(ref.params); i < len(fn.Locals); i++ {
			stack.SetLocal(i, ZeroOf(fn.Locals[i]))
		}
		resumable = &Resumable{
			CurrentFuncAddr:   ref.funcAddr,
			CurrentModuleAddr: fn.ModuleAddr,
			Stack:             stack,
			PC:                0,
			STP:               fn.StpStart,
			Fuel:              ref.freshFuel,
		}
	} else {
		if ref.dormitory != s.dormitory {
			return nil, Embedder(KindResumableNotFound, "resumable belongs to a different store")
		}
		r, ok := ref.dormitory.take(ref.key)
		if !ok {
			return nil, Embedder(KindResumableNotFound, "resumable %d not found", ref.key)
		}
		resumable = r
	}

	required, err := runInterpreter(s, resumable)
	if err != nil {
		return nil, err
	}
	if required != nil {
		key := s.dormitory.insert(resumable)
		Logger().Debug("suspended resumable", zap.Uint64("key", uint64(key)), zap.Uint32("required_fuel", *required))
		return Suspended{Ref: invokedRef(s.dormitory, key), RequiredFuel: *required}, nil
	}

	values := resumable.Stack.values
	return Finished{Values: values, FuelRemaining: resumable.Fuel}, nil
}

func checkReturnTypes(ft FuncType, results []Value) *Error {
	if len(results) != len(ft.Results) {
		return Host(KindHostFunctionSignatureMismatch, "expected %d results, got %d", len(ft.Results), len(results))
	}
	for i, r := range results {
		if r.Ty != ft.Results[i] {
			return Host(KindHostFunctionSignatureMismatch, "result %d: expected %s, got %s", i, ft.Results[i], r.Ty)
		}
	}
	return nil
}
