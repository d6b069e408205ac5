package engine

// DebugView is a read-only snapshot of a suspended Resumable, for
// embedders building a stepping debugger (cmd/run's -i mode walks a
// ResumableRef one fuel unit at a time and renders one of these per
// step: the current frame's operand stack, call-frame depth, pc/stp,
// and next opcode). Operands excludes the frame's locals.
type DebugView struct {
	CurrentFuncAddr   FuncAddr
	CurrentModuleAddr ModuleAddr
	PC                int
	STP               int
	CallDepth         int
	Operands          []Value
	NextOpcode        byte
	AtEnd             bool // PC has reached the end of the current function's code
}

// Inspect returns a DebugView of a suspended ref without consuming it,
// so the caller can render state and decide whether to step again.
func (s *Store) Inspect(ref ResumableRef) (DebugView, *Error) {
	if ref.fresh {
		return DebugView{}, Embedder(KindResumableNotFound, "resumable has not started executing yet")
	}
	if ref.dormitory != s.dormitory {
		return DebugView{}, Embedder(KindResumableNotFound, "resumable belongs to a different store")
	}
	r, ok := ref.dormitory.peek(ref.key)
	if !ok {
		return DebugView{}, Embedder(KindResumableNotFound, "resumable %d not found", ref.key)
	}

	vals := r.Stack.Values()
	if f := r.Stack.currentFrame(); f != nil {
		vals = vals[f.operandBase:]
	}
	dv := DebugView{
		CurrentFuncAddr:   r.CurrentFuncAddr,
		CurrentModuleAddr: r.CurrentModuleAddr,
		PC:                r.PC,
		STP:               r.STP,
		CallDepth:         r.Stack.CallFrameCount(),
		Operands:          append([]Value{}, vals...),
	}
	code := s.Func(r.CurrentFuncAddr).Code
	if r.PC >= len(code) {
		dv.AtEnd = true
	} else {
		dv.NextOpcode = code[r.PC]
	}
	return dv, nil
}
