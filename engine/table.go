package engine

// TableType describes a table's reference kind and element-count limits.
type TableType struct {
	RefKind RefKind
	Min     uint32
	Max     uint32
	HasMax  bool
}

// TableInst is a vector of references. touched tracks, per slot,
// whether anything (table.set/fill/init, or an active element segment
// at instantiation) has ever written to it; table.copy carries the
// source slots' flags over to the destination. A slot that holds
// a null ref because it was explicitly set that way is a different
// failure mode for call_indirect than one nothing has ever written.
type TableInst struct {
	Type     TableType
	Elements []Ref
	touched  []bool
}

// NewTableInst allocates a table filled with the null reference of its
// kind; every slot starts untouched.
func NewTableInst(t TableType) *TableInst {
	elems := make([]Ref, t.Min)
	for i := range elems {
		elems[i] = NullRef(t.RefKind)
	}
	return &TableInst{Type: t, Elements: elems, touched: make([]bool, t.Min)}
}

func (t *TableInst) Size() uint32 { return uint32(len(t.Elements)) }

// Grow extends the table by n elements filled with init. Returns the
// previous size, or 2^32-1 on failure (limit exceeded). Grown slots
// start untouched, same as NewTableInst.
func (t *TableInst) Grow(n uint32, init Ref) uint32 {
	old := t.Size()
	newSize := uint64(old) + uint64(n)
	if t.Type.HasMax && newSize > uint64(t.Type.Max) {
		return 0xFFFFFFFF
	}
	if newSize > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	grown := make([]Ref, newSize)
	copy(grown, t.Elements)
	touched := make([]bool, newSize)
	copy(touched, t.touched)
	for i := old; uint64(i) < newSize; i++ {
		grown[i] = init
	}
	t.Elements = grown
	t.touched = touched
	return old
}

// Get returns the element at i, trapping TableOrElementAccessOutOfBounds
// if i is out of range (used by table.get/table.set, distinct from
// call_indirect's own out-of-bounds kind).
func (t *TableInst) Get(i uint32) (Ref, *Error) {
	if i >= t.Size() {
		return Ref{}, Trap(KindTableOrElementAccessOutOfBounds, "table.get index %d out of bounds (size %d)", i, t.Size())
	}
	return t.Elements[i], nil
}

func (t *TableInst) Set(i uint32, v Ref) *Error {
	if i >= t.Size() {
		return Trap(KindTableOrElementAccessOutOfBounds, "table.set index %d out of bounds (size %d)", i, t.Size())
	}
	t.Elements[i] = v
	t.touched[i] = true
	return nil
}

// GetForCallIndirect returns the element at i, using call_indirect's own
// distinct out-of-bounds trap kind per spec.md 4.3. If the slot holds a
// null ref, touched reports whether it was ever explicitly written (by an
// active element segment or table.set/fill/init, or copied by table.copy
// from a slot that was) as opposed to still
// holding NewTableInst's default fill — the two cases trap with
// different Kinds in the caller.
func (t *TableInst) GetForCallIndirect(i uint32) (ref Ref, touched bool, err *Error) {
	if i >= t.Size() {
		return Ref{}, false, Trap(KindTableAccessOutOfBounds, "call_indirect index %d out of bounds (size %d)", i, t.Size())
	}
	return t.Elements[i], t.touched[i], nil
}

func (t *TableInst) Fill(dst uint32, v Ref, n uint32) *Error {
	if uint64(dst)+uint64(n) > uint64(t.Size()) {
		return Trap(KindTableOrElementAccessOutOfBounds, "table.fill range out of bounds")
	}
	for i := uint32(0); i < n; i++ {
		t.Elements[dst+i] = v
		t.touched[dst+i] = true
	}
	return nil
}

// TableCopy moves n elements, and their touched flags, from src to dst
// within the same or another table.
func TableCopy(dstT, srcT *TableInst, dst, src, n uint32) *Error {
	if uint64(dst)+uint64(n) > uint64(dstT.Size()) || uint64(src)+uint64(n) > uint64(srcT.Size()) {
		return Trap(KindTableOrElementAccessOutOfBounds, "table.copy range out of bounds")
	}
	if dstT == srcT {
		copy(dstT.Elements[dst:uint64(dst)+uint64(n)], srcT.Elements[src:uint64(src)+uint64(n)])
		copy(dstT.touched[dst:uint64(dst)+uint64(n)], srcT.touched[src:uint64(src)+uint64(n)])
		return nil
	}
	tmp := make([]Ref, n)
	copy(tmp, srcT.Elements[src:uint64(src)+uint64(n)])
	tmpTouched := make([]bool, n)
	copy(tmpTouched, srcT.touched[src:uint64(src)+uint64(n)])
	copy(dstT.Elements[dst:uint64(dst)+uint64(n)], tmp)
	copy(dstT.touched[dst:uint64(dst)+uint64(n)], tmpTouched)
	return nil
}

// Init copies n references from elem[src:] into the table at dst. This
// is also how an active element segment wires up a table at
// instantiation time, so it is the primary way a slot transitions out
// of "uninitialized".
func (t *TableInst) Init(dst uint32, elem *ElemInst, src, n uint32) *Error {
	if uint64(src)+uint64(n) > uint64(len(elem.References)) {
		return Trap(KindTableOrElementAccessOutOfBounds, "table.init source range out of bounds")
	}
	if uint64(dst)+uint64(n) > uint64(t.Size()) {
		return Trap(KindTableOrElementAccessOutOfBounds, "table.init destination range out of bounds")
	}
	copy(t.Elements[dst:uint64(dst)+uint64(n)], elem.References[src:uint64(src)+uint64(n)])
	for i := uint32(0); i < n; i++ {
		t.touched[dst+i] = true
	}
	return nil
}

// ElemInst holds an element segment's references; Drop clears it.
type ElemInst struct {
	RefKind    RefKind
	References []Ref
}

func (e *ElemInst) Drop() { e.References = nil }
