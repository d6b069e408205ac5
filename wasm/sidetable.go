package wasm

import "bytes"

// SideTableEntry mirrors engine.SideTableEntry; kept as a distinct type in
// this package (decoder/validator side of the ValidationInfo contract) and
// converted 1:1 when runtime's buildValidationInfo hands it to the engine.
type SideTableEntry struct {
	DeltaPC  int32
	DeltaSTP int32
	PopCnt   uint32
	ValCnt   uint32
}

// arityFunc reports a type index's (paramCount, resultCount): used both
// for non-void block types and for call/call_indirect's callee type.
type arityFunc func(typeIdx uint32) (params, results int)

// funcArityFunc reports a function index's (paramCount, resultCount), for
// call's stack-height bookkeeping (imports-then-locals numbering).
type funcArityFunc func(funcIdx uint32) (params, results int)

type ctrlFrame struct {
	opcode        byte // OpBlock, OpLoop, OpIf (0 for the function-level pseudo-frame)
	height        int  // operand height below this frame's own params
	paramsRaw     int  // this block/loop/if's param count (loop branch targets need it)
	numResults    int
	loopTargetPC  int
	loopTargetSTP int
	pendingExits  []int // stp indices whose origin pc is stashed in DeltaPC, patched at this frame's `end`
	ifEntry       int   // stp index of this if-frame's own reserved (false-branch) entry; -1 once resolved
}

// BuildSideTable scans one function body's raw bytecode (locals already
// stripped; code starts at the first opcode and ends with the function's
// own trailing 0x0B) and appends its control-transfer entries to table,
// returning the function's StpStart (its entry offset into table).
//
// Entries are produced in strict program order, one per br/br_if/
// br_table-arm/if/else/return occurrence, per the side-table design: a
// taken branch retains the top ValCnt operand slots, discards the next
// PopCnt slots below them, and advances pc/stp by the signed deltas.
func BuildSideTable(code []byte, numResults int, blockArity arityFunc, callArity funcArityFunc, table []SideTableEntry) (stpStart int, out []SideTableEntry, err error) {
	stpStart = len(table)

	height := 0
	frames := []ctrlFrame{{opcode: 0, height: 0, numResults: numResults, ifEntry: -1}}

	r := bytes.NewReader(code)
	pos := func() int { return len(code) - r.Len() }

	reserve := func(originPC int, popcnt, valcnt int) int {
		table = append(table, SideTableEntry{DeltaPC: int32(originPC), PopCnt: uint32(popcnt), ValCnt: uint32(valcnt)})
		return len(table) - 1
	}
	patchFromOrigin := func(idx int, here int, hereSTP int) {
		origin := int(table[idx].DeltaPC)
		table[idx].DeltaPC = int32(here - origin)
		table[idx].DeltaSTP = int32(hereSTP - idx)
	}

	branchValcnt := func(f *ctrlFrame) int {
		if f.opcode == OpLoop {
			return f.numParams()
		}
		return f.numResults
	}

	for {
		startPC := pos()
		if startPC >= len(code) {
			break
		}
		op, rerr := r.ReadByte()
		if rerr != nil {
			return stpStart, table, rerr
		}

		switch op {
		case OpUnreachable, OpNop:

		case OpBlock, OpLoop, OpIf:
			bt, e := ReadLEB128s(r)
			if e != nil {
				return stpStart, table, e
			}
			np, nr := blockTypeArity(bt, blockArity)
			if op == OpIf {
				height-- // pops the condition
			}
			frame := ctrlFrame{opcode: op, height: height - np, numResults: nr, paramsRaw: np, ifEntry: -1}
			if op == OpLoop {
				frame.loopTargetPC = pos()
				frame.loopTargetSTP = len(table)
			}
			if op == OpIf {
				frame.ifEntry = reserve(startPC, 0, np)
			}
			frames = append(frames, frame)

		case OpElse:
			f := &frames[len(frames)-1]
			elseEntry := reserve(startPC, 0, f.numResults)
			patchFromOrigin(f.ifEntry, pos(), elseEntry+1)
			f.ifEntry = -1
			f.pendingExits = append(f.pendingExits, elseEntry)
			height = f.height + f.paramsRaw

		case OpEnd:
			f := frames[len(frames)-1]
			frames = frames[:len(frames)-1]
			here := pos()
			hereSTP := len(table)
			if f.ifEntry != -1 {
				patchFromOrigin(f.ifEntry, here, hereSTP)
			}
			for _, idx := range f.pendingExits {
				patchFromOrigin(idx, here, hereSTP)
			}
			height = f.height + f.numResults

		case OpBr, OpBrIf:
			labelIdx, e := ReadLEB128u(r)
			if e != nil {
				return stpStart, table, e
			}
			if op == OpBrIf {
				height--
			}
			f := &frames[len(frames)-1-int(labelIdx)]
			valcnt := branchValcnt(f)
			popcnt := height - valcnt - f.height
			if popcnt < 0 {
				popcnt = 0
			}
			idx := reserve(startPC, popcnt, valcnt)
			if f.opcode == OpLoop {
				table[idx].DeltaPC = int32(f.loopTargetPC - startPC)
				table[idx].DeltaSTP = int32(f.loopTargetSTP - idx)
			} else {
				f.pendingExits = append(f.pendingExits, idx)
			}

		case OpBrTable:
			count, e := ReadLEB128u(r)
			if e != nil {
				return stpStart, table, e
			}
			labels := make([]uint32, count)
			for i := range labels {
				if labels[i], e = ReadLEB128u(r); e != nil {
					return stpStart, table, e
				}
			}
			def, e := ReadLEB128u(r)
			if e != nil {
				return stpStart, table, e
			}
			height--
			all := append(append([]uint32{}, labels...), def)
			for _, lbl := range all {
				f := &frames[len(frames)-1-int(lbl)]
				valcnt := branchValcnt(f)
				popcnt := height - valcnt - f.height
				if popcnt < 0 {
					popcnt = 0
				}
				idx := reserve(startPC, popcnt, valcnt)
				if f.opcode == OpLoop {
					table[idx].DeltaPC = int32(f.loopTargetPC - startPC)
					table[idx].DeltaSTP = int32(f.loopTargetSTP - idx)
				} else {
					f.pendingExits = append(f.pendingExits, idx)
				}
			}

		case OpReturn:
			fn := &frames[0]
			valcnt := fn.numResults
			popcnt := height - valcnt - fn.height
			if popcnt < 0 {
				popcnt = 0
			}
			idx := reserve(startPC, popcnt, valcnt)
			table[idx].DeltaPC = int32(len(code) - startPC)
			table[idx].DeltaSTP = int32(len(table) - idx)

		case OpCall:
			idx, e := ReadLEB128u(r)
			if e != nil {
				return stpStart, table, e
			}
			p, rs := callArity(idx)
			height += rs - p

		case OpCallIndirect:
			typeIdx, e := ReadLEB128u(r)
			if e != nil {
				return stpStart, table, e
			}
			if _, e2 := ReadLEB128u(r); e2 != nil {
				return stpStart, table, e2
			}
			p, rs := blockArity(typeIdx)
			height += rs - p - 1

		case OpDrop:
			height--

		case OpSelect:
			height -= 2

		case OpSelectType:
			n, e := ReadLEB128u(r)
			if e != nil {
				return stpStart, table, e
			}
			for i := uint32(0); i < n; i++ {
				if _, e2 := r.ReadByte(); e2 != nil {
					return stpStart, table, e2
				}
			}
			height -= 2

		case OpLocalGet, OpGlobalGet:
			if _, e := ReadLEB128u(r); e != nil {
				return stpStart, table, e
			}
			height++

		case OpLocalSet, OpGlobalSet:
			if _, e := ReadLEB128u(r); e != nil {
				return stpStart, table, e
			}
			height--

		case OpLocalTee:
			if _, e := ReadLEB128u(r); e != nil {
				return stpStart, table, e
			}

		case OpTableGet:
			if _, e := ReadLEB128u(r); e != nil {
				return stpStart, table, e
			}

		case OpTableSet:
			if _, e := ReadLEB128u(r); e != nil {
				return stpStart, table, e
			}
			height -= 2

		case OpRefNull:
			if _, e := ReadLEB128s64(r); e != nil {
				return stpStart, table, e
			}
			height++

		case OpRefIsNull:

		case OpRefFunc:
			if _, e := ReadLEB128u(r); e != nil {
				return stpStart, table, e
			}
			height++

		case OpI32Const:
			if _, e := ReadLEB128s(r); e != nil {
				return stpStart, table, e
			}
			height++
		case OpI64Const:
			if _, e := ReadLEB128s64(r); e != nil {
				return stpStart, table, e
			}
			height++
		case OpF32Const:
			var b [4]byte
			if _, e := r.Read(b[:]); e != nil {
				return stpStart, table, e
			}
			height++
		case OpF64Const:
			var b [8]byte
			if _, e := r.Read(b[:]); e != nil {
				return stpStart, table, e
			}
			height++

		case OpMemorySize:
			if _, e := ReadLEB128u(r); e != nil {
				return stpStart, table, e
			}
			height++
		case OpMemoryGrow:
			if _, e := ReadLEB128u(r); e != nil {
				return stpStart, table, e
			}

		case OpPrefixMisc:
			if e := bulkMemoryStackEffect(r, &height); e != nil {
				return stpStart, table, e
			}

		case OpPrefixSIMD:
			if e := skipSIMDImmediate(r); e != nil {
				return stpStart, table, e
			}

		default:
			if isMemAccessOpcode(op) {
				if _, e := ReadLEB128u(r); e != nil {
					return stpStart, table, e
				}
				if _, e := ReadLEB128u(r); e != nil {
					return stpStart, table, e
				}
				if isStoreOpcode(op) {
					height -= 2
				}
			} else if pop, push, ok := fixedArity(op); ok {
				height += push - pop
			}
		}
	}

	return stpStart, table, nil
}

// numParams reads back the params count stashed by paramsRaw (loop
// branch targets need it; block/if branch targets use numResults).
func (f *ctrlFrame) numParams() int { return f.paramsRaw }

func blockTypeArity(bt int32, blockArity arityFunc) (params, results int) {
	if bt == -64 {
		return 0, 0
	}
	if bt >= 0 {
		return blockArity(uint32(bt))
	}
	return 0, 1
}

func bulkMemoryStackEffect(r *bytes.Reader, height *int) error {
	sub, err := ReadLEB128u(r)
	if err != nil {
		return err
	}
	switch sub {
	case MiscI32TruncSatF32S, MiscI32TruncSatF32U, MiscI32TruncSatF64S, MiscI32TruncSatF64U,
		MiscI64TruncSatF32S, MiscI64TruncSatF32U, MiscI64TruncSatF64S, MiscI64TruncSatF64U:
	case MiscMemoryInit:
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
		*height -= 3
	case MiscDataDrop:
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
	case MiscMemoryCopy:
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
		*height -= 3
	case MiscMemoryFill:
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
		*height -= 3
	case MiscTableInit:
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
		*height -= 3
	case MiscElemDrop:
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
	case MiscTableCopy:
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
		*height -= 3
	case MiscTableGrow:
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
		*height--
	case MiscTableSize:
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
		*height++
	case MiscTableFill:
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
		*height -= 3
	}
	return nil
}

func isMemAccessOpcode(op byte) bool { return op >= OpI32Load && op <= OpI64Store32 }
func isStoreOpcode(op byte) bool     { return op >= OpI32Store && op <= OpI64Store32 }

// fixedArity reports the (pop, push) for every "plain" numeric opcode
// (comparisons, arithmetic, conversions, sign-extension) that carries no
// immediate and isn't already special-cased above.
func fixedArity(op byte) (pop, push int, ok bool) {
	switch {
	case op == OpI32Eqz || op == OpI64Eqz:
		return 1, 1, true
	case op >= OpI32Eq && op <= OpI32GeU:
		return 2, 1, true
	case op >= OpI64Eq && op <= OpI64GeU:
		return 2, 1, true
	case op >= OpF32Eq && op <= OpF32Ge:
		return 2, 1, true
	case op >= OpF64Eq && op <= OpF64Ge:
		return 2, 1, true
	case op == OpI32Clz || op == OpI32Ctz || op == OpI32Popcnt:
		return 1, 1, true
	case op >= OpI32Add && op <= OpI32Rotr:
		return 2, 1, true
	case op == OpI64Clz || op == OpI64Ctz || op == OpI64Popcnt:
		return 1, 1, true
	case op >= OpI64Add && op <= OpI64Rotr:
		return 2, 1, true
	case op >= OpF32Abs && op <= OpF32Sqrt:
		return 1, 1, true
	case op >= OpF32Add && op <= OpF32Copysign:
		return 2, 1, true
	case op >= OpF64Abs && op <= OpF64Sqrt:
		return 1, 1, true
	case op >= OpF64Add && op <= OpF64Copysign:
		return 2, 1, true
	case op >= OpI32WrapI64 && op <= OpF64ReinterpretI64:
		return 1, 1, true
	case op >= OpI32Extend8S && op <= OpI64Extend32S:
		return 1, 1, true
	default:
		return 0, 0, false
	}
}

// skipSIMDImmediate advances past a v128 opcode's immediate (if any),
// covering every SIMD opcode this engine executes (see engine/simd.go):
// v128.load/store (memarg), v128.const (16 bytes), and the lane
// extract/replace family (one lane-index byte). Splat, arithmetic,
// comparison, and bitwise opcodes carry no immediate.
func skipSIMDImmediate(r *bytes.Reader) error {
	sub, err := ReadLEB128u(r)
	if err != nil {
		return err
	}
	switch {
	case sub <= 0x0B: // v128.load* (0x00-0x0A) and v128.store (0x0B)
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
		if _, e := ReadLEB128u(r); e != nil {
			return e
		}
	case sub == 0x0C: // v128.const
		var b [16]byte
		if _, e := r.Read(b[:]); e != nil {
			return e
		}
	case sub == 0x0D: // i8x16.shuffle
		var b [16]byte
		if _, e := r.Read(b[:]); e != nil {
			return e
		}
	case sub >= 0x15 && sub <= 0x22: // extract_lane/replace_lane family
		if _, e := r.ReadByte(); e != nil {
			return e
		}
	}
	return nil
}
