package engine

import (
	"bytes"
	"math"

	"github.com/wippyai/wasm-engine/wasm"
)

// runInterpreter drives resumable's stack-machine loop until it either
// finishes (return nil, nil, with the return values left on the stack),
// traps (return nil, err), or exhausts its fuel (return a non-nil
// required-fuel pointer, per spec.md 4.7 step 2: one more unit needed).
func runInterpreter(s *Store, resumable *Resumable) (*uint32, *Error) {
	for {
		if resumable.Fuel.Metered {
			if resumable.Fuel.N == 0 {
				need := uint32(1)
				return &need, nil
			}
			resumable.Fuel.N--
		}

		fn := s.Func(resumable.CurrentFuncAddr)
		code := fn.Code

		if resumable.PC >= len(code) {
			callerFunc, callerMod, callerPC, callerSTP := resumable.Stack.PopCallFrame()
			if callerFunc == InvalidFuncAddr {
				return nil, nil
			}
			resumable.CurrentFuncAddr = callerFunc
			resumable.CurrentModuleAddr = callerMod
			resumable.PC = callerPC
			resumable.STP = callerSTP
			continue
		}

		pcAtInstr := resumable.PC
		opcode := code[resumable.PC]
		r := bytes.NewReader(code[resumable.PC+1:])
		advance := func() { resumable.PC = pcAtInstr + 1 + (len(code[resumable.PC+1:]) - r.Len()) }

		transfer := func(fromPC int) *Error {
			resumable.PC = fromPC
			return doSidetableControlTransfer(resumable.Stack, &resumable.PC, &resumable.STP, fn.sideTable(s))
		}

		stack := resumable.Stack

		switch opcode {
		case wasm.OpUnreachable:
			return nil, Trap(KindReachedUnreachable, "unreachable instruction executed")

		case wasm.OpNop:
			advance()

		case wasm.OpBlock, wasm.OpLoop:
			wasm.ReadLEB128s(r)
			advance()

		case wasm.OpIf:
			wasm.ReadLEB128s(r)
			advance()
			cond := stack.Pop().I32()
			if cond != 0 {
				resumable.STP++
			} else {
				if err := transfer(pcAtInstr); err != nil {
					return nil, err
				}
			}

		case wasm.OpElse:
			if err := transfer(pcAtInstr); err != nil {
				return nil, err
			}

		case wasm.OpEnd:
			advance()

		case wasm.OpBr:
			if err := transfer(pcAtInstr); err != nil {
				return nil, err
			}

		case wasm.OpBrIf:
			cond := stack.Pop().I32()
			if cond != 0 {
				if err := transfer(pcAtInstr); err != nil {
					return nil, err
				}
			} else {
				wasm.ReadLEB128u(r)
				advance()
				resumable.STP++
			}

		case wasm.OpBrTable:
			count, _ := wasm.ReadLEB128u(r)
			labels := make([]uint32, count)
			for i := range labels {
				labels[i], _ = wasm.ReadLEB128u(r)
			}
			wasm.ReadLEB128u(r) // default
			idx := stack.Pop().U32()
			ordinal := int(count)
			if idx < count {
				ordinal = int(idx)
			}
			resumable.STP += ordinal
			if err := transfer(pcAtInstr); err != nil {
				return nil, err
			}

		case wasm.OpReturn:
			if err := transfer(pcAtInstr); err != nil {
				return nil, err
			}

		case wasm.OpCall:
			funcIdx, _ := wasm.ReadLEB128u(r)
			advance()
			mi := s.Module(resumable.CurrentModuleAddr)
			callee := mi.FuncAddrs[funcIdx]
			if err := doCall(s, resumable, callee); err != nil {
				return nil, err
			}

		case wasm.OpCallIndirect:
			typeIdx, _ := wasm.ReadLEB128u(r)
			tableIdx, _ := wasm.ReadLEB128u(r)
			advance()
			mi := s.Module(resumable.CurrentModuleAddr)
			elemIdx := stack.Pop().U32()
			tab := s.Table(mi.TableAddrs[tableIdx])
			ref, touched, err := tab.GetForCallIndirect(elemIdx)
			if err != nil {
				return nil, err
			}
			if ref.IsNull {
				if !touched {
					return nil, Trap(KindUninitializedElement, "call_indirect through an element never set by an active segment")
				}
				return nil, Trap(KindIndirectCallNullFuncRef, "call_indirect through null funcref")
			}
			want := mi.Types[typeIdx]
			got := s.FuncType(ref.Func)
			if !want.Equal(got) {
				return nil, Trap(KindSignatureMismatch, "call_indirect signature mismatch")
			}
			if err := doCall(s, resumable, ref.Func); err != nil {
				return nil, err
			}

		case wasm.OpDrop:
			advance()
			stack.Pop()

		case wasm.OpSelect:
			advance()
			c := stack.Pop().I32()
			b := stack.Pop()
			a := stack.Pop()
			if c != 0 {
				stack.Push(a)
			} else {
				stack.Push(b)
			}

		case wasm.OpSelectType:
			n, _ := wasm.ReadLEB128u(r)
			for i := uint32(0); i < n; i++ {
				r.ReadByte()
			}
			advance()
			c := stack.Pop().I32()
			b := stack.Pop()
			a := stack.Pop()
			if c != 0 {
				stack.Push(a)
			} else {
				stack.Push(b)
			}

		case wasm.OpLocalGet:
			idx, _ := wasm.ReadLEB128u(r)
			advance()
			stack.Push(stack.GetLocal(int(idx)))

		case wasm.OpLocalSet:
			idx, _ := wasm.ReadLEB128u(r)
			advance()
			stack.SetLocal(int(idx), stack.Pop())

		case wasm.OpLocalTee:
			idx, _ := wasm.ReadLEB128u(r)
			advance()
			stack.SetLocal(int(idx), stack.Peek())

		case wasm.OpGlobalGet:
			idx, _ := wasm.ReadLEB128u(r)
			advance()
			mi := s.Module(resumable.CurrentModuleAddr)
			stack.Push(s.GlobalRead(mi.GlobalAddrs[idx]))

		case wasm.OpGlobalSet:
			idx, _ := wasm.ReadLEB128u(r)
			advance()
			mi := s.Module(resumable.CurrentModuleAddr)
			if err := s.GlobalWrite(mi.GlobalAddrs[idx], stack.Pop()); err != nil {
				return nil, err
			}

		case wasm.OpTableGet:
			idx, _ := wasm.ReadLEB128u(r)
			advance()
			mi := s.Module(resumable.CurrentModuleAddr)
			tab := s.Table(mi.TableAddrs[idx])
			ref, err := tab.Get(stack.Pop().U32())
			if err != nil {
				return nil, err
			}
			stack.Push(RefVal(ref))

		case wasm.OpTableSet:
			idx, _ := wasm.ReadLEB128u(r)
			advance()
			mi := s.Module(resumable.CurrentModuleAddr)
			tab := s.Table(mi.TableAddrs[idx])
			v := stack.Pop().Ref
			i := stack.Pop().U32()
			if err := tab.Set(i, v); err != nil {
				return nil, err
			}

		case wasm.OpRefNull:
			ht, _ := wasm.ReadLEB128s64(r)
			advance()
			kind := RefKindFunc
			if ht == -17 {
				kind = RefKindExtern
			}
			stack.Push(RefVal(NullRef(kind)))

		case wasm.OpRefIsNull:
			advance()
			v := stack.Pop()
			if v.Ref.IsNull {
				stack.Push(I32(1))
			} else {
				stack.Push(I32(0))
			}

		case wasm.OpRefFunc:
			idx, _ := wasm.ReadLEB128u(r)
			advance()
			mi := s.Module(resumable.CurrentModuleAddr)
			stack.Push(RefVal(FuncRef(mi.FuncAddrs[idx])))

		case wasm.OpI32Const:
			v, _ := wasm.ReadLEB128s(r)
			advance()
			stack.Push(I32(v))

		case wasm.OpI64Const:
			v, _ := wasm.ReadLEB128s64(r)
			advance()
			stack.Push(I64(v))

		case wasm.OpF32Const:
			v, _ := wasm.ReadFloat32(r)
			advance()
			stack.Push(F32(v))

		case wasm.OpF64Const:
			v, _ := wasm.ReadFloat64(r)
			advance()
			stack.Push(F64(v))

		case wasm.OpMemorySize:
			wasm.ReadLEB128u(r)
			advance()
			mi := s.Module(resumable.CurrentModuleAddr)
			stack.Push(I32(int32(s.MemSize(mi.MemAddrs[0]))))

		case wasm.OpMemoryGrow:
			wasm.ReadLEB128u(r)
			advance()
			mi := s.Module(resumable.CurrentModuleAddr)
			n := stack.Pop().U32()
			stack.Push(I32(int32(s.MemGrow(mi.MemAddrs[0], n))))

		case wasm.OpPrefixMisc:
			if err := execMisc(s, resumable, r); err != nil {
				return nil, err
			}
			advance()

		case wasm.OpPrefixSIMD:
			if err := execSIMD(s, resumable, r); err != nil {
				return nil, err
			}
			advance()

		default:
			if isMemLoadStoreOpcode(opcode) {
				if err := execMemOp(s, resumable, opcode, r); err != nil {
					return nil, err
				}
				advance()
			} else {
				if err := execNumeric(resumable, opcode); err != nil {
					return nil, err
				}
				advance()
			}
		}
	}
}

func isMemLoadStoreOpcode(op byte) bool {
	return op >= wasm.OpI32Load && op <= wasm.OpI64Store32
}

// doCall pushes a new call frame (wasm callee) or dispatches directly
// (host callee) and, for wasm callees, redirects resumable to execute
// the callee next.
func doCall(s *Store, resumable *Resumable, addr FuncAddr) *Error {
	fn := s.Func(addr)
	if fn.IsHost {
		params := make([]Value, len(fn.Type.Params))
		for i := len(params) - 1; i >= 0; i-- {
			params[i] = resumable.Stack.Pop()
		}
		results, err := fn.Host(s.UserData, params)
		if err != nil {
			return Host(KindHostFunctionHaltedExecution, "%v", err)
		}
		if err := checkReturnTypes(fn.Type, results); err != nil {
			return err
		}
		for _, v := range results {
			resumable.Stack.Push(v)
		}
		return nil
	}

	returnArity := len(fn.Type.Results)
	numParams := len(fn.Type.Params)
	zeros := make([]Value, 0, len(fn.Locals)-numParams)
	for i := numParams; i < len(fn.Locals); i++ {
		zeros = append(zeros, ZeroOf(fn.Locals[i]))
	}
	resumable.Stack.PushCallFrame(numParams, len(fn.Locals), zeros, returnArity, resumable.CurrentFuncAddr, resumable.CurrentModuleAddr, resumable.PC, resumable.STP)
	resumable.CurrentFuncAddr = addr
	resumable.CurrentModuleAddr = fn.ModuleAddr
	resumable.PC = 0
	resumable.STP = fn.StpStart
	return nil
}

// fn.sideTable indirects to the owning module's shared side-table (or,
// for a host function, nil).
func (f *FuncInst) sideTable(s *Store) []SideTableEntry {
	if f.IsHost {
		return nil
	}
	return s.Module(f.ModuleAddr).SideTable
}

func execMemOp(s *Store, resumable *Resumable, op byte, r *bytes.Reader) *Error {
	align, _ := wasm.ReadLEB128u(r)
	_ = align
	offset, _ := wasm.ReadLEB128u(r)
	stack := resumable.Stack
	mi := s.Module(resumable.CurrentModuleAddr)
	mem := s.Mem(mi.MemAddrs[0])

	isStore := op >= wasm.OpI32Store && op <= wasm.OpI64Store32
	if isStore {
		var data []byte
		v := stack.Pop()
		switch op {
		case wasm.OpI32Store:
			data = le32(uint32(v.I64))
		case wasm.OpI64Store:
			data = le64(uint64(v.I64))
		case wasm.OpF32Store:
			data = le32(math.Float32bits(v.F32Val()))
		case wasm.OpF64Store:
			data = le64(math.Float64bits(v.F64Val()))
		case wasm.OpI32Store8:
			data = []byte{byte(v.I64)}
		case wasm.OpI32Store16:
			data = le16(uint16(v.I64))
		case wasm.OpI64Store8:
			data = []byte{byte(v.I64)}
		case wasm.OpI64Store16:
			data = le16(uint16(v.I64))
		case wasm.OpI64Store32:
			data = le32(uint32(v.I64))
		}
		dyn := stack.Pop().U32()
		return mem.Store(uint64(offset), dyn, data)
	}

	dyn := stack.Pop().U32()
	switch op {
	case wasm.OpI32Load:
		b, err := mem.Load(uint64(offset), dyn, 4)
		if err != nil {
			return err
		}
		stack.Push(I32(int32(leGet32(b))))
	case wasm.OpI64Load:
		b, err := mem.Load(uint64(offset), dyn, 8)
		if err != nil {
			return err
		}
		stack.Push(I64(int64(leGet64(b))))
	case wasm.OpF32Load:
		b, err := mem.Load(uint64(offset), dyn, 4)
		if err != nil {
			return err
		}
		stack.Push(F32(math.Float32frombits(leGet32(b))))
	case wasm.OpF64Load:
		b, err := mem.Load(uint64(offset), dyn, 8)
		if err != nil {
			return err
		}
		stack.Push(F64(math.Float64frombits(leGet64(b))))
	case wasm.OpI32Load8S:
		b, err := mem.Load(uint64(offset), dyn, 1)
		if err != nil {
			return err
		}
		stack.Push(I32(int32(int8(b[0]))))
	case wasm.OpI32Load8U:
		b, err := mem.Load(uint64(offset), dyn, 1)
		if err != nil {
			return err
		}
		stack.Push(I32(int32(b[0])))
	case wasm.OpI32Load16S:
		b, err := mem.Load(uint64(offset), dyn, 2)
		if err != nil {
			return err
		}
		stack.Push(I32(int32(int16(leGet16(b)))))
	case wasm.OpI32Load16U:
		b, err := mem.Load(uint64(offset), dyn, 2)
		if err != nil {
			return err
		}
		stack.Push(I32(int32(leGet16(b))))
	case wasm.OpI64Load8S:
		b, err := mem.Load(uint64(offset), dyn, 1)
		if err != nil {
			return err
		}
		stack.Push(I64(int64(int8(b[0]))))
	case wasm.OpI64Load8U:
		b, err := mem.Load(uint64(offset), dyn, 1)
		if err != nil {
			return err
		}
		stack.Push(I64(int64(b[0])))
	case wasm.OpI64Load16S:
		b, err := mem.Load(uint64(offset), dyn, 2)
		if err != nil {
			return err
		}
		stack.Push(I64(int64(int16(leGet16(b)))))
	case wasm.OpI64Load16U:
		b, err := mem.Load(uint64(offset), dyn, 2)
		if err != nil {
			return err
		}
		stack.Push(I64(int64(leGet16(b))))
	case wasm.OpI64Load32S:
		b, err := mem.Load(uint64(offset), dyn, 4)
		if err != nil {
			return err
		}
		stack.Push(I64(int64(int32(leGet32(b)))))
	case wasm.OpI64Load32U:
		b, err := mem.Load(uint64(offset), dyn, 4)
		if err != nil {
			return err
		}
		stack.Push(I64(int64(leGet32(b))))
	}
	return nil
}

func le16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func le32(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }
func le64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
func leGet16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func leGet32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func leGet64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func execMisc(s *Store, resumable *Resumable, r *bytes.Reader) *Error {
	sub, _ := wasm.ReadLEB128u(r)
	stack := resumable.Stack
	mi := s.Module(resumable.CurrentModuleAddr)

	switch sub {
	case wasm.MiscI32TruncSatF32S:
		stack.Push(I32(TruncSatToI32S(float64(stack.Pop().F32Val()))))
	case wasm.MiscI32TruncSatF32U:
		stack.Push(I32(int32(TruncSatToI32U(float64(stack.Pop().F32Val())))))
	case wasm.MiscI32TruncSatF64S:
		stack.Push(I32(TruncSatToI32S(stack.Pop().F64Val())))
	case wasm.MiscI32TruncSatF64U:
		stack.Push(I32(int32(TruncSatToI32U(stack.Pop().F64Val()))))
	case wasm.MiscI64TruncSatF32S:
		stack.Push(I64(TruncSatToI64S(float64(stack.Pop().F32Val()))))
	case wasm.MiscI64TruncSatF32U:
		stack.Push(I64(int64(TruncSatToI64U(float64(stack.Pop().F32Val())))))
	case wasm.MiscI64TruncSatF64S:
		stack.Push(I64(TruncSatToI64S(stack.Pop().F64Val())))
	case wasm.MiscI64TruncSatF64U:
		stack.Push(I64(int64(TruncSatToI64U(stack.Pop().F64Val()))))

	case wasm.MiscMemoryInit:
		dataIdx, _ := wasm.ReadLEB128u(r)
		wasm.ReadLEB128u(r) // memidx
		n := stack.Pop().U32()
		src := stack.Pop().U32()
		dst := stack.Pop().U32()
		mem := s.Mem(mi.MemAddrs[0])
		data := s.Data(mi.DataAddrs[dataIdx])
		return mem.Init(dst, data.Bytes, src, n)

	case wasm.MiscDataDrop:
		dataIdx, _ := wasm.ReadLEB128u(r)
		s.Data(mi.DataAddrs[dataIdx]).Drop()

	case wasm.MiscMemoryCopy:
		wasm.ReadLEB128u(r)
		wasm.ReadLEB128u(r)
		n := stack.Pop().U32()
		src := stack.Pop().U32()
		dst := stack.Pop().U32()
		return s.Mem(mi.MemAddrs[0]).Copy(dst, src, n)

	case wasm.MiscMemoryFill:
		wasm.ReadLEB128u(r)
		n := stack.Pop().U32()
		val := stack.Pop().U32()
		dst := stack.Pop().U32()
		return s.Mem(mi.MemAddrs[0]).Fill(dst, byte(val), n)

	case wasm.MiscTableInit:
		elemIdx, _ := wasm.ReadLEB128u(r)
		tableIdx, _ := wasm.ReadLEB128u(r)
		n := stack.Pop().U32()
		src := stack.Pop().U32()
		dst := stack.Pop().U32()
		tab := s.Table(mi.TableAddrs[tableIdx])
		elem := s.Elem(mi.ElemAddrs[elemIdx])
		return tab.Init(dst, elem, src, n)

	case wasm.MiscElemDrop:
		elemIdx, _ := wasm.ReadLEB128u(r)
		s.Elem(mi.ElemAddrs[elemIdx]).Drop()

	case wasm.MiscTableCopy:
		dstIdx, _ := wasm.ReadLEB128u(r)
		srcIdx, _ := wasm.ReadLEB128u(r)
		n := stack.Pop().U32()
		src := stack.Pop().U32()
		dst := stack.Pop().U32()
		return TableCopy(s.Table(mi.TableAddrs[dstIdx]), s.Table(mi.TableAddrs[srcIdx]), dst, src, n)

	case wasm.MiscTableGrow:
		tableIdx, _ := wasm.ReadLEB128u(r)
		n := stack.Pop().U32()
		init := stack.Pop().Ref
		stack.Push(I32(int32(s.TableGrow(mi.TableAddrs[tableIdx], n, init))))

	case wasm.MiscTableSize:
		tableIdx, _ := wasm.ReadLEB128u(r)
		stack.Push(I32(int32(s.TableSize(mi.TableAddrs[tableIdx]))))

	case wasm.MiscTableFill:
		tableIdx, _ := wasm.ReadLEB128u(r)
		n := stack.Pop().U32()
		v := stack.Pop().Ref
		dst := stack.Pop().U32()
		return s.Table(mi.TableAddrs[tableIdx]).Fill(dst, v, n)
	}
	return nil
}

// execNumeric dispatches every plain i32/i64/f32/f64 comparison,
// arithmetic, conversion, and sign-extension opcode (those with no
// immediate bytes) to the engine/value.go primitives.
func execNumeric(resumable *Resumable, op byte) *Error {
	stack := resumable.Stack
	pop1 := func() Value { return stack.Pop() }
	pop2 := func() (Value, Value) { b := stack.Pop(); a := stack.Pop(); return a, b }
	boolVal := func(b bool) Value {
		if b {
			return I32(1)
		}
		return I32(0)
	}

	switch op {
	case wasm.OpI32Eqz:
		stack.Push(boolVal(pop1().I32() == 0))
	case wasm.OpI32Eq:
		a, b := pop2()
		stack.Push(boolVal(a.I32() == b.I32()))
	case wasm.OpI32Ne:
		a, b := pop2()
		stack.Push(boolVal(a.I32() != b.I32()))
	case wasm.OpI32LtS:
		a, b := pop2()
		stack.Push(boolVal(a.I32() < b.I32()))
	case wasm.OpI32LtU:
		a, b := pop2()
		stack.Push(boolVal(a.U32() < b.U32()))
	case wasm.OpI32GtS:
		a, b := pop2()
		stack.Push(boolVal(a.I32() > b.I32()))
	case wasm.OpI32GtU:
		a, b := pop2()
		stack.Push(boolVal(a.U32() > b.U32()))
	case wasm.OpI32LeS:
		a, b := pop2()
		stack.Push(boolVal(a.I32() <= b.I32()))
	case wasm.OpI32LeU:
		a, b := pop2()
		stack.Push(boolVal(a.U32() <= b.U32()))
	case wasm.OpI32GeS:
		a, b := pop2()
		stack.Push(boolVal(a.I32() >= b.I32()))
	case wasm.OpI32GeU:
		a, b := pop2()
		stack.Push(boolVal(a.U32() >= b.U32()))

	case wasm.OpI64Eqz:
		stack.Push(boolVal(pop1().I64Val() == 0))
	case wasm.OpI64Eq:
		a, b := pop2()
		stack.Push(boolVal(a.I64Val() == b.I64Val()))
	case wasm.OpI64Ne:
		a, b := pop2()
		stack.Push(boolVal(a.I64Val() != b.I64Val()))
	case wasm.OpI64LtS:
		a, b := pop2()
		stack.Push(boolVal(a.I64Val() < b.I64Val()))
	case wasm.OpI64LtU:
		a, b := pop2()
		stack.Push(boolVal(a.U64() < b.U64()))
	case wasm.OpI64GtS:
		a, b := pop2()
		stack.Push(boolVal(a.I64Val() > b.I64Val()))
	case wasm.OpI64GtU:
		a, b := pop2()
		stack.Push(boolVal(a.U64() > b.U64()))
	case wasm.OpI64LeS:
		a, b := pop2()
		stack.Push(boolVal(a.I64Val() <= b.I64Val()))
	case wasm.OpI64LeU:
		a, b := pop2()
		stack.Push(boolVal(a.U64() <= b.U64()))
	case wasm.OpI64GeS:
		a, b := pop2()
		stack.Push(boolVal(a.I64Val() >= b.I64Val()))
	case wasm.OpI64GeU:
		a, b := pop2()
		stack.Push(boolVal(a.U64() >= b.U64()))

	case wasm.OpF32Eq:
		a, b := pop2()
		stack.Push(boolVal(a.F32Val() == b.F32Val()))
	case wasm.OpF32Ne:
		a, b := pop2()
		stack.Push(boolVal(a.F32Val() != b.F32Val()))
	case wasm.OpF32Lt:
		a, b := pop2()
		stack.Push(boolVal(a.F32Val() < b.F32Val()))
	case wasm.OpF32Gt:
		a, b := pop2()
		stack.Push(boolVal(a.F32Val() > b.F32Val()))
	case wasm.OpF32Le:
		a, b := pop2()
		stack.Push(boolVal(a.F32Val() <= b.F32Val()))
	case wasm.OpF32Ge:
		a, b := pop2()
		stack.Push(boolVal(a.F32Val() >= b.F32Val()))

	case wasm.OpF64Eq:
		a, b := pop2()
		stack.Push(boolVal(a.F64Val() == b.F64Val()))
	case wasm.OpF64Ne:
		a, b := pop2()
		stack.Push(boolVal(a.F64Val() != b.F64Val()))
	case wasm.OpF64Lt:
		a, b := pop2()
		stack.Push(boolVal(a.F64Val() < b.F64Val()))
	case wasm.OpF64Gt:
		a, b := pop2()
		stack.Push(boolVal(a.F64Val() > b.F64Val()))
	case wasm.OpF64Le:
		a, b := pop2()
		stack.Push(boolVal(a.F64Val() <= b.F64Val()))
	case wasm.OpF64Ge:
		a, b := pop2()
		stack.Push(boolVal(a.F64Val() >= b.F64Val()))

	case wasm.OpI32Clz:
		stack.Push(I32(I32Clz(pop1().U32())))
	case wasm.OpI32Ctz:
		stack.Push(I32(I32Ctz(pop1().U32())))
	case wasm.OpI32Popcnt:
		stack.Push(I32(I32Popcnt(pop1().U32())))
	case wasm.OpI32Add:
		a, b := pop2()
		stack.Push(I32(I32Add(a.I32(), b.I32())))
	case wasm.OpI32Sub:
		a, b := pop2()
		stack.Push(I32(I32Sub(a.I32(), b.I32())))
	case wasm.OpI32Mul:
		a, b := pop2()
		stack.Push(I32(I32Mul(a.I32(), b.I32())))
	case wasm.OpI32DivS:
		a, b := pop2()
		v, err := I32DivS(a.I32(), b.I32())
		if err != nil {
			return err
		}
		stack.Push(I32(v))
	case wasm.OpI32DivU:
		a, b := pop2()
		v, err := I32DivU(a.U32(), b.U32())
		if err != nil {
			return err
		}
		stack.Push(I32(int32(v)))
	case wasm.OpI32RemS:
		a, b := pop2()
		v, err := I32RemS(a.I32(), b.I32())
		if err != nil {
			return err
		}
		stack.Push(I32(v))
	case wasm.OpI32RemU:
		a, b := pop2()
		v, err := I32RemU(a.U32(), b.U32())
		if err != nil {
			return err
		}
		stack.Push(I32(int32(v)))
	case wasm.OpI32And:
		a, b := pop2()
		stack.Push(I32(int32(a.U32() & b.U32())))
	case wasm.OpI32Or:
		a, b := pop2()
		stack.Push(I32(int32(a.U32() | b.U32())))
	case wasm.OpI32Xor:
		a, b := pop2()
		stack.Push(I32(int32(a.U32() ^ b.U32())))
	case wasm.OpI32Shl:
		a, b := pop2()
		stack.Push(I32(I32Shl(a.I32(), b.I32())))
	case wasm.OpI32ShrS:
		a, b := pop2()
		stack.Push(I32(I32ShrS(a.I32(), b.I32())))
	case wasm.OpI32ShrU:
		a, b := pop2()
		stack.Push(I32(int32(I32ShrU(a.U32(), b.I32()))))
	case wasm.OpI32Rotl:
		a, b := pop2()
		stack.Push(I32(int32(I32Rotl(a.U32(), b.U32()))))
	case wasm.OpI32Rotr:
		a, b := pop2()
		stack.Push(I32(int32(I32Rotr(a.U32(), b.U32()))))

	case wasm.OpI64Clz:
		stack.Push(I64(I64Clz(pop1().U64())))
	case wasm.OpI64Ctz:
		stack.Push(I64(I64Ctz(pop1().U64())))
	case wasm.OpI64Popcnt:
		stack.Push(I64(I64Popcnt(pop1().U64())))
	case wasm.OpI64Add:
		a, b := pop2()
		stack.Push(I64(I64Add(a.I64Val(), b.I64Val())))
	case wasm.OpI64Sub:
		a, b := pop2()
		stack.Push(I64(I64Sub(a.I64Val(), b.I64Val())))
	case wasm.OpI64Mul:
		a, b := pop2()
		stack.Push(I64(I64Mul(a.I64Val(), b.I64Val())))
	case wasm.OpI64DivS:
		a, b := pop2()
		v, err := I64DivS(a.I64Val(), b.I64Val())
		if err != nil {
			return err
		}
		stack.Push(I64(v))
	case wasm.OpI64DivU:
		a, b := pop2()
		v, err := I64DivU(a.U64(), b.U64())
		if err != nil {
			return err
		}
		stack.Push(I64(int64(v)))
	case wasm.OpI64RemS:
		a, b := pop2()
		v, err := I64RemS(a.I64Val(), b.I64Val())
		if err != nil {
			return err
		}
		stack.Push(I64(v))
	case wasm.OpI64RemU:
		a, b := pop2()
		v, err := I64RemU(a.U64(), b.U64())
		if err != nil {
			return err
		}
		stack.Push(I64(int64(v)))
	case wasm.OpI64And:
		a, b := pop2()
		stack.Push(I64(int64(a.U64() & b.U64())))
	case wasm.OpI64Or:
		a, b := pop2()
		stack.Push(I64(int64(a.U64() | b.U64())))
	case wasm.OpI64Xor:
		a, b := pop2()
		stack.Push(I64(int64(a.U64() ^ b.U64())))
	case wasm.OpI64Shl:
		a, b := pop2()
		stack.Push(I64(I64Shl(a.I64Val(), b.I64Val())))
	case wasm.OpI64ShrS:
		a, b := pop2()
		stack.Push(I64(I64ShrS(a.I64Val(), b.I64Val())))
	case wasm.OpI64ShrU:
		a, b := pop2()
		stack.Push(I64(int64(I64ShrU(a.U64(), b.I64Val()))))
	case wasm.OpI64Rotl:
		a, b := pop2()
		stack.Push(I64(int64(I64Rotl(a.U64(), b.U64()))))
	case wasm.OpI64Rotr:
		a, b := pop2()
		stack.Push(I64(int64(I64Rotr(a.U64(), b.U64()))))

	case wasm.OpF32Abs:
		stack.Push(F32(float32(math.Abs(float64(pop1().F32Val())))))
	case wasm.OpF32Neg:
		stack.Push(F32(-pop1().F32Val()))
	case wasm.OpF32Ceil:
		stack.Push(F32(float32(math.Ceil(float64(pop1().F32Val())))))
	case wasm.OpF32Floor:
		stack.Push(F32(float32(math.Floor(float64(pop1().F32Val())))))
	case wasm.OpF32Trunc:
		stack.Push(F32(float32(math.Trunc(float64(pop1().F32Val())))))
	case wasm.OpF32Nearest:
		stack.Push(F32(F32Nearest(pop1().F32Val())))
	case wasm.OpF32Sqrt:
		stack.Push(F32(float32(math.Sqrt(float64(pop1().F32Val())))))
	case wasm.OpF32Add:
		a, b := pop2()
		stack.Push(F32(a.F32Val() + b.F32Val()))
	case wasm.OpF32Sub:
		a, b := pop2()
		stack.Push(F32(a.F32Val() - b.F32Val()))
	case wasm.OpF32Mul:
		a, b := pop2()
		stack.Push(F32(a.F32Val() * b.F32Val()))
	case wasm.OpF32Div:
		a, b := pop2()
		stack.Push(F32(a.F32Val() / b.F32Val()))
	case wasm.OpF32Min:
		a, b := pop2()
		stack.Push(F32(F32Min(a.F32Val(), b.F32Val())))
	case wasm.OpF32Max:
		a, b := pop2()
		stack.Push(F32(F32Max(a.F32Val(), b.F32Val())))
	case wasm.OpF32Copysign:
		a, b := pop2()
		stack.Push(F32(F32Copysign(a.F32Val(), b.F32Val())))

	case wasm.OpF64Abs:
		stack.Push(F64(math.Abs(pop1().F64Val())))
	case wasm.OpF64Neg:
		stack.Push(F64(-pop1().F64Val()))
	case wasm.OpF64Ceil:
		stack.Push(F64(math.Ceil(pop1().F64Val())))
	case wasm.OpF64Floor:
		stack.Push(F64(math.Floor(pop1().F64Val())))
	case wasm.OpF64Trunc:
		stack.Push(F64(math.Trunc(pop1().F64Val())))
	case wasm.OpF64Nearest:
		stack.Push(F64(F64Nearest(pop1().F64Val())))
	case wasm.OpF64Sqrt:
		stack.Push(F64(math.Sqrt(pop1().F64Val())))
	case wasm.OpF64Add:
		a, b := pop2()
		stack.Push(F64(a.F64Val() + b.F64Val()))
	case wasm.OpF64Sub:
		a, b := pop2()
		stack.Push(F64(a.F64Val() - b.F64Val()))
	case wasm.OpF64Mul:
		a, b := pop2()
		stack.Push(F64(a.F64Val() * b.F64Val()))
	case wasm.OpF64Div:
		a, b := pop2()
		stack.Push(F64(a.F64Val() / b.F64Val()))
	case wasm.OpF64Min:
		a, b := pop2()
		stack.Push(F64(F64Min(a.F64Val(), b.F64Val())))
	case wasm.OpF64Max:
		a, b := pop2()
		stack.Push(F64(F64Max(a.F64Val(), b.F64Val())))
	case wasm.OpF64Copysign:
		a, b := pop2()
		stack.Push(F64(F64Copysign(a.F64Val(), b.F64Val())))

	case wasm.OpI32WrapI64:
		stack.Push(I32(int32(pop1().I64Val())))
	case wasm.OpI32TruncF32S:
		v, err := TruncToI32S(float64(pop1().F32Val()))
		if err != nil {
			return err
		}
		stack.Push(I32(v))
	case wasm.OpI32TruncF32U:
		v, err := TruncToI32U(float64(pop1().F32Val()))
		if err != nil {
			return err
		}
		stack.Push(I32(int32(v)))
	case wasm.OpI32TruncF64S:
		v, err := TruncToI32S(pop1().F64Val())
		if err != nil {
			return err
		}
		stack.Push(I32(v))
	case wasm.OpI32TruncF64U:
		v, err := TruncToI32U(pop1().F64Val())
		if err != nil {
			return err
		}
		stack.Push(I32(int32(v)))
	case wasm.OpI64ExtendI32S:
		stack.Push(I64(int64(pop1().I32())))
	case wasm.OpI64ExtendI32U:
		stack.Push(I64(int64(pop1().U32())))
	case wasm.OpI64TruncF32S:
		v, err := TruncToI64S(float64(pop1().F32Val()))
		if err != nil {
			return err
		}
		stack.Push(I64(v))
	case wasm.OpI64TruncF32U:
		v, err := TruncToI64U(float64(pop1().F32Val()))
		if err != nil {
			return err
		}
		stack.Push(I64(int64(v)))
	case wasm.OpI64TruncF64S:
		v, err := TruncToI64S(pop1().F64Val())
		if err != nil {
			return err
		}
		stack.Push(I64(v))
	case wasm.OpI64TruncF64U:
		v, err := TruncToI64U(pop1().F64Val())
		if err != nil {
			return err
		}
		stack.Push(I64(int64(v)))
	case wasm.OpF32ConvertI32S:
		stack.Push(F32(float32(pop1().I32())))
	case wasm.OpF32ConvertI32U:
		stack.Push(F32(float32(pop1().U32())))
	case wasm.OpF32ConvertI64S:
		stack.Push(F32(float32(pop1().I64Val())))
	case wasm.OpF32ConvertI64U:
		stack.Push(F32(float32(pop1().U64())))
	case wasm.OpF32DemoteF64:
		stack.Push(F32(float32(pop1().F64Val())))
	case wasm.OpF64ConvertI32S:
		stack.Push(F64(float64(pop1().I32())))
	case wasm.OpF64ConvertI32U:
		stack.Push(F64(float64(pop1().U32())))
	case wasm.OpF64ConvertI64S:
		stack.Push(F64(float64(pop1().I64Val())))
	case wasm.OpF64ConvertI64U:
		stack.Push(F64(float64(pop1().U64())))
	case wasm.OpF64PromoteF32:
		stack.Push(F64(float64(pop1().F32Val())))
	case wasm.OpI32ReinterpretF32:
		stack.Push(I32(I32ReinterpretF32(pop1().F32Val())))
	case wasm.OpI64ReinterpretF64:
		stack.Push(I64(I64ReinterpretF64(pop1().F64Val())))
	case wasm.OpF32ReinterpretI32:
		stack.Push(F32(F32ReinterpretI32(pop1().I32())))
	case wasm.OpF64ReinterpretI64:
		stack.Push(F64(F64ReinterpretI64(pop1().I64Val())))

	case wasm.OpI32Extend8S:
		stack.Push(I32(int32(int8(pop1().I32()))))
	case wasm.OpI32Extend16S:
		stack.Push(I32(int32(int16(pop1().I32()))))
	case wasm.OpI64Extend8S:
		stack.Push(I64(int64(int8(pop1().I64Val()))))
	case wasm.OpI64Extend16S:
		stack.Push(I64(int64(int16(pop1().I64Val()))))
	case wasm.OpI64Extend32S:
		stack.Push(I64(int64(int32(pop1().I64Val()))))
	}
	return nil
}
