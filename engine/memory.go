package engine

// PageSize is the granularity of linear memory growth, in bytes.
const PageSize = 65536

// MemoryType describes a memory's page-count limits.
type MemoryType struct {
	Min uint32
	Max uint32 // 0 means "unbounded" when HasMax is false
	HasMax bool
}

// MemInst is a page-granular byte store.
type MemInst struct {
	Type  MemoryType
	Bytes []byte
}

// NewMemInst allocates a memory zeroed to Type.Min pages.
func NewMemInst(t MemoryType) *MemInst {
	return &MemInst{Type: t, Bytes: make([]byte, uint64(t.Min)*PageSize)}
}

// SizePages returns the current length in pages.
func (m *MemInst) SizePages() uint32 {
	return uint32(len(m.Bytes) / PageSize)
}

// Grow attempts to extend the memory by n pages. On success it returns
// the previous size in pages; on failure it returns 2^32-1 and leaves
// the memory unchanged. Growth always succeeds if capacity remains (see
// DESIGN.md's Open Question decision on grow non-determinism).
func (m *MemInst) Grow(n uint32) uint32 {
	old := m.SizePages()
	newSize := uint64(old) + uint64(n)
	if m.Type.HasMax && newSize > uint64(m.Type.Max) {
		return 0xFFFFFFFF
	}
	if newSize > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	grown := make([]byte, newSize*PageSize)
	copy(grown, m.Bytes)
	m.Bytes = grown
	return old
}

// calculateAddress computes the effective byte address for a memory
// access: offset + dynamicOperand, computed in at least 33 bits so a
// u32-range overflow traps rather than wrapping.
func calculateAddress(offset uint64, dynamicOperand uint32) (uint64, *Error) {
	eff := offset + uint64(dynamicOperand)
	if eff > 0xFFFFFFFF {
		return 0, Trap(KindMemoryOrDataAccessOutOfBounds, "effective address overflows 32 bits")
	}
	return eff, nil
}

func (m *MemInst) checkRange(addr uint64, width uint64) *Error {
	if addr+width > uint64(len(m.Bytes)) {
		return Trap(KindMemoryOrDataAccessOutOfBounds, "access [%d,%d) exceeds memory length %d", addr, addr+width, len(m.Bytes))
	}
	return nil
}

// Load reads width bytes starting at offset+dynamicOperand.
func (m *MemInst) Load(offset uint64, dynamicOperand uint32, width int) ([]byte, *Error) {
	addr, err := calculateAddress(offset, dynamicOperand)
	if err != nil {
		return nil, err
	}
	if err := m.checkRange(addr, uint64(width)); err != nil {
		return nil, err
	}
	return m.Bytes[addr : addr+uint64(width)], nil
}

// Store writes data at offset+dynamicOperand.
func (m *MemInst) Store(offset uint64, dynamicOperand uint32, data []byte) *Error {
	addr, err := calculateAddress(offset, dynamicOperand)
	if err != nil {
		return err
	}
	if err := m.checkRange(addr, uint64(len(data))); err != nil {
		return err
	}
	copy(m.Bytes[addr:], data)
	return nil
}

// Fill writes n bytes of val&0xFF starting at dst.
func (m *MemInst) Fill(dst uint32, val byte, n uint32) *Error {
	if uint64(dst)+uint64(n) > uint64(len(m.Bytes)) {
		return Trap(KindMemoryOrDataAccessOutOfBounds, "memory.fill range [%d,%d) out of bounds", dst, uint64(dst)+uint64(n))
	}
	for i := uint32(0); i < n; i++ {
		m.Bytes[dst+i] = val
	}
	return nil
}

// Copy moves n bytes from src to dst, handling overlap like memmove.
func (m *MemInst) Copy(dst, src, n uint32) *Error {
	if uint64(dst)+uint64(n) > uint64(len(m.Bytes)) || uint64(src)+uint64(n) > uint64(len(m.Bytes)) {
		return Trap(KindMemoryOrDataAccessOutOfBounds, "memory.copy range out of bounds")
	}
	copy(m.Bytes[dst:uint64(dst)+uint64(n)], m.Bytes[src:uint64(src)+uint64(n)])
	return nil
}

// Init copies n bytes from data[src:] into m[dst:].
func (m *MemInst) Init(dst uint32, data []byte, src, n uint32) *Error {
	if uint64(src)+uint64(n) > uint64(len(data)) {
		return Trap(KindMemoryOrDataAccessOutOfBounds, "memory.init source range out of bounds")
	}
	if uint64(dst)+uint64(n) > uint64(len(m.Bytes)) {
		return Trap(KindMemoryOrDataAccessOutOfBounds, "memory.init destination range out of bounds")
	}
	copy(m.Bytes[dst:uint64(dst)+uint64(n)], data[src:uint64(src)+uint64(n)])
	return nil
}

// DataInst holds a data segment's bytes; Drop clears it in place.
type DataInst struct {
	Bytes []byte
}

func (d *DataInst) Drop() { d.Bytes = nil }
