package engine

import (
	"bytes"
	"math"

	"github.com/wippyai/wasm-engine/wasm"
)

// execSIMD dispatches v128 sub-opcodes: the plain, extending and splat
// loads and v128.store (with a memarg), v128.const/i8x16.shuffle (16
// raw bytes), i8x16.swizzle, the splats, lane extract/replace (one
// lane-index byte), v128 not/and/andnot/or/xor/bitselect/any_true,
// i8x16 add/sub/neg/abs/all_true/shl/shr_s/shr_u, and f32x4/f64x2
// abs/neg/sqrt/ceil/floor/trunc/nearest. Any other sub-opcode (lane
// loads/stores, load32/64_zero, saturating, narrowing, extend_low/high,
// pairwise, comparison, bitmask and the other lane arithmetic of
// i16x8/i32x4/i64x2/f32x4/f64x2) has no case here: it is not executed,
// nothing is popped or pushed, and none of its immediates are read.
func execSIMD(s *Store, resumable *Resumable, r *bytes.Reader) *Error {
	sub, _ := wasm.ReadLEB128u(r)
	stack := resumable.Stack

	switch {
	case sub <= wasm.SimdV128Load64Splat || sub == wasm.SimdV128Store:
		return execSIMDMemOp(s, resumable, sub, r)

	case sub == wasm.SimdV128Const:
		var b [16]byte
		for i := range b {
			c, _ := r.ReadByte()
			b[i] = c
		}
		stack.Push(V128(b))
		return nil

	case sub == wasm.SimdI8x16Shuffle:
		var idx [16]byte
		for i := range idx {
			c, _ := r.ReadByte()
			idx[i] = c
		}
		b := stack.Pop().V
		a := stack.Pop().V
		var out [16]byte
		for i, li := range idx {
			if li < 16 {
				out[i] = a[li]
			} else {
				out[i] = b[li-16]
			}
		}
		stack.Push(V128(out))
		return nil

	case sub == wasm.SimdI8x16Swizzle:
		idxV := stack.Pop().V
		a := stack.Pop().V
		var out [16]byte
		for i := range out {
			if idxV[i] < 16 {
				out[i] = a[idxV[i]]
			}
		}
		stack.Push(V128(out))
		return nil

	case sub == wasm.SimdI8x16Splat:
		v := stack.Pop().I32()
		var out [16]byte
		for i := range out {
			out[i] = byte(v)
		}
		stack.Push(V128(out))
		return nil

	case sub == wasm.SimdI16x8Splat:
		v := uint16(stack.Pop().I32())
		lanes := [8]uint16{v, v, v, v, v, v, v, v}
		stack.Push(V128(fromLanes16(lanes)))
		return nil

	case sub == wasm.SimdI32x4Splat:
		v := uint32(stack.Pop().I32())
		lanes := [4]uint32{v, v, v, v}
		stack.Push(V128(fromLanes32(lanes)))
		return nil

	case sub == wasm.SimdI64x2Splat:
		v := uint64(stack.Pop().I64Val())
		lanes := [2]uint64{v, v}
		stack.Push(V128(fromLanes64(lanes)))
		return nil

	case sub == wasm.SimdF32x4Splat:
		v := stack.Pop().F32Val()
		bits := math.Float32bits(v)
		lanes := [4]uint32{bits, bits, bits, bits}
		stack.Push(V128(fromLanes32(lanes)))
		return nil

	case sub == wasm.SimdF64x2Splat:
		v := stack.Pop().F64Val()
		bits := math.Float64bits(v)
		lanes := [2]uint64{bits, bits}
		stack.Push(V128(fromLanes64(lanes)))
		return nil

	case sub >= wasm.SimdI8x16ExtractLaneS && sub <= wasm.SimdF64x2ReplaceLane:
		laneIdx, _ := r.ReadByte()
		return execSIMDLane(stack, sub, laneIdx)

	case sub == wasm.SimdV128Not:
		a := stack.Pop().V
		var out [16]byte
		for i := range out {
			out[i] = ^a[i]
		}
		stack.Push(V128(out))
	case sub == wasm.SimdV128And:
		b, a := stack.Pop().V, stack.Pop().V
		var out [16]byte
		for i := range out {
			out[i] = a[i] & b[i]
		}
		stack.Push(V128(out))
	case sub == wasm.SimdV128AndNot:
		b, a := stack.Pop().V, stack.Pop().V
		var out [16]byte
		for i := range out {
			out[i] = a[i] &^ b[i]
		}
		stack.Push(V128(out))
	case sub == wasm.SimdV128Or:
		b, a := stack.Pop().V, stack.Pop().V
		var out [16]byte
		for i := range out {
			out[i] = a[i] | b[i]
		}
		stack.Push(V128(out))
	case sub == wasm.SimdV128Xor:
		b, a := stack.Pop().V, stack.Pop().V
		var out [16]byte
		for i := range out {
			out[i] = a[i] ^ b[i]
		}
		stack.Push(V128(out))
	case sub == wasm.SimdV128Bitselect:
		c, b, a := stack.Pop().V, stack.Pop().V, stack.Pop().V
		var out [16]byte
		for i := range out {
			out[i] = (a[i] & c[i]) | (b[i] &^ c[i])
		}
		stack.Push(V128(out))
	case sub == wasm.SimdV128AnyTrue:
		a := stack.Pop().V
		any := byte(0)
		for _, b := range a {
			if b != 0 {
				any = 1
				break
			}
		}
		stack.Push(I32(int32(any)))

	case sub == wasm.SimdI8x16Add, sub == wasm.SimdI8x16Sub:
		b, a := stack.Pop().V, stack.Pop().V
		var out [16]byte
		for i := range out {
			if sub == wasm.SimdI8x16Add {
				out[i] = a[i] + b[i]
			} else {
				out[i] = a[i] - b[i]
			}
		}
		stack.Push(V128(out))
	case sub == wasm.SimdI8x16Neg:
		a := stack.Pop().V
		var out [16]byte
		for i := range out {
			out[i] = byte(-int8(a[i]))
		}
		stack.Push(V128(out))
	case sub == wasm.SimdI8x16Abs:
		a := stack.Pop().V
		var out [16]byte
		for i := range out {
			v := int8(a[i])
			if v < 0 {
				v = -v
			}
			out[i] = byte(v)
		}
		stack.Push(V128(out))
	case sub == wasm.SimdI8x16AllTrue:
		a := stack.Pop().V
		all := byte(1)
		for _, b := range a {
			if b == 0 {
				all = 0
				break
			}
		}
		stack.Push(I32(int32(all)))
	case sub == wasm.SimdI8x16Shl:
		n := uint32(stack.Pop().I32()) % 8
		a := stack.Pop().V
		var out [16]byte
		for i := range out {
			out[i] = a[i] << n
		}
		stack.Push(V128(out))
	case sub == wasm.SimdI8x16ShrS:
		n := uint32(stack.Pop().I32()) % 8
		a := stack.Pop().V
		var out [16]byte
		for i := range out {
			out[i] = byte(int8(a[i]) >> n)
		}
		stack.Push(V128(out))
	case sub == wasm.SimdI8x16ShrU:
		n := uint32(stack.Pop().I32()) % 8
		a := stack.Pop().V
		var out [16]byte
		for i := range out {
			out[i] = a[i] >> n
		}
		stack.Push(V128(out))

	case sub == wasm.SimdF32x4Abs, sub == wasm.SimdF32x4Neg, sub == wasm.SimdF32x4Sqrt,
		sub == wasm.SimdF32x4Ceil, sub == wasm.SimdF32x4Floor, sub == wasm.SimdF32x4Trunc, sub == wasm.SimdF32x4Nearest:
		a := toLanesF32(stack.Pop().V)
		var out [4]float32
		for i, v := range a {
			out[i] = applyF32Unary(sub, v)
		}
		stack.Push(V128(fromLanesF32(out)))

	case sub == wasm.SimdF64x2Abs, sub == wasm.SimdF64x2Neg, sub == wasm.SimdF64x2Sqrt,
		sub == wasm.SimdF64x2Ceil, sub == wasm.SimdF64x2Floor, sub == wasm.SimdF64x2Trunc, sub == wasm.SimdF64x2Nearest:
		a := toLanesF64(stack.Pop().V)
		var out [2]float64
		for i, v := range a {
			out[i] = applyF64Unary(sub, v)
		}
		stack.Push(V128(fromLanesF64(out)))
	}
	return nil
}

func applyF32Unary(sub uint32, v float32) float32 {
	switch sub {
	case wasm.SimdF32x4Abs:
		return float32(math.Abs(float64(v)))
	case wasm.SimdF32x4Neg:
		return -v
	case wasm.SimdF32x4Sqrt:
		return float32(math.Sqrt(float64(v)))
	case wasm.SimdF32x4Ceil:
		return float32(math.Ceil(float64(v)))
	case wasm.SimdF32x4Floor:
		return float32(math.Floor(float64(v)))
	case wasm.SimdF32x4Trunc:
		return float32(math.Trunc(float64(v)))
	case wasm.SimdF32x4Nearest:
		return F32Nearest(v)
	}
	return v
}

func applyF64Unary(sub uint32, v float64) float64 {
	switch sub {
	case wasm.SimdF64x2Abs:
		return math.Abs(v)
	case wasm.SimdF64x2Neg:
		return -v
	case wasm.SimdF64x2Sqrt:
		return math.Sqrt(v)
	case wasm.SimdF64x2Ceil:
		return math.Ceil(v)
	case wasm.SimdF64x2Floor:
		return math.Floor(v)
	case wasm.SimdF64x2Trunc:
		return math.Trunc(v)
	case wasm.SimdF64x2Nearest:
		return F64Nearest(v)
	}
	return v
}

func execSIMDMemOp(s *Store, resumable *Resumable, sub uint32, r *bytes.Reader) *Error {
	wasm.ReadLEB128u(r) // align
	offset, _ := wasm.ReadLEB128u(r)
	stack := resumable.Stack
	mi := s.Module(resumable.CurrentModuleAddr)
	mem := s.Mem(mi.MemAddrs[0])

	if sub == wasm.SimdV128Store {
		v := stack.Pop().V
		dyn := stack.Pop().U32()
		return mem.Store(uint64(offset), dyn, v[:])
	}

	dyn := stack.Pop().U32()
	switch sub {
	case wasm.SimdV128Load:
		b, err := mem.Load(uint64(offset), dyn, 16)
		if err != nil {
			return err
		}
		var out [16]byte
		copy(out[:], b)
		stack.Push(V128(out))
	case wasm.SimdV128Load8Splat:
		b, err := mem.Load(uint64(offset), dyn, 1)
		if err != nil {
			return err
		}
		var out [16]byte
		for i := range out {
			out[i] = b[0]
		}
		stack.Push(V128(out))
	case wasm.SimdV128Load16Splat:
		b, err := mem.Load(uint64(offset), dyn, 2)
		if err != nil {
			return err
		}
		v := leGet16(b)
		stack.Push(V128(fromLanes16([8]uint16{v, v, v, v, v, v, v, v})))
	case wasm.SimdV128Load32Splat:
		b, err := mem.Load(uint64(offset), dyn, 4)
		if err != nil {
			return err
		}
		v := leGet32(b)
		stack.Push(V128(fromLanes32([4]uint32{v, v, v, v})))
	case wasm.SimdV128Load64Splat:
		b, err := mem.Load(uint64(offset), dyn, 8)
		if err != nil {
			return err
		}
		v := leGet64(b)
		stack.Push(V128(fromLanes64([2]uint64{v, v})))
	default: // load8x8/16x4/32x2 _s/_u: 8 bytes, each lane widened to twice its width
		b, err := mem.Load(uint64(offset), dyn, 8)
		if err != nil {
			return err
		}
		w := 1 << ((sub - 1) / 2) // source lane width in bytes: 1, 2 or 4
		var out [16]byte
		for i := range out {
			lane, j := i/(2*w), i%(2*w)
			if j < w {
				out[i] = b[lane*w+j]
			} else if sub%2 == 1 && b[lane*w+w-1]&0x80 != 0 {
				out[i] = 0xFF
			}
		}
		stack.Push(V128(out))
	}
	return nil
}

func execSIMDLane(stack *Stack, sub uint32, laneIdx byte) *Error {
	switch sub {
	case wasm.SimdI8x16ExtractLaneS:
		a := stack.Pop().V
		stack.Push(I32(int32(int8(a[laneIdx]))))
	case wasm.SimdI8x16ExtractLaneU:
		a := stack.Pop().V
		stack.Push(I32(int32(a[laneIdx])))
	case wasm.SimdI8x16ReplaceLane:
		v := byte(stack.Pop().I32())
		a := stack.Pop().V
		a[laneIdx] = v
		stack.Push(V128(a))
	case wasm.SimdI16x8ExtractLaneS:
		lanes := toLanes16(stack.Pop().V)
		stack.Push(I32(int32(int16(lanes[laneIdx]))))
	case wasm.SimdI16x8ExtractLaneU:
		lanes := toLanes16(stack.Pop().V)
		stack.Push(I32(int32(lanes[laneIdx])))
	case wasm.SimdI16x8ReplaceLane:
		v := uint16(stack.Pop().I32())
		lanes := toLanes16(stack.Pop().V)
		lanes[laneIdx] = v
		stack.Push(V128(fromLanes16(lanes)))
	case wasm.SimdI32x4ExtractLane:
		lanes := toLanes32(stack.Pop().V)
		stack.Push(I32(int32(lanes[laneIdx])))
	case wasm.SimdI32x4ReplaceLane:
		v := uint32(stack.Pop().I32())
		lanes := toLanes32(stack.Pop().V)
		lanes[laneIdx] = v
		stack.Push(V128(fromLanes32(lanes)))
	case wasm.SimdI64x2ExtractLane:
		lanes := toLanes64(stack.Pop().V)
		stack.Push(I64(int64(lanes[laneIdx])))
	case wasm.SimdI64x2ReplaceLane:
		v := uint64(stack.Pop().I64Val())
		lanes := toLanes64(stack.Pop().V)
		lanes[laneIdx] = v
		stack.Push(V128(fromLanes64(lanes)))
	case wasm.SimdF32x4ExtractLane:
		lanes := toLanesF32(stack.Pop().V)
		stack.Push(F32(lanes[laneIdx]))
	case wasm.SimdF32x4ReplaceLane:
		v := stack.Pop().F32Val()
		lanes := toLanesF32(stack.Pop().V)
		lanes[laneIdx] = v
		stack.Push(V128(fromLanesF32(lanes)))
	case wasm.SimdF64x2ExtractLane:
		lanes := toLanesF64(stack.Pop().V)
		stack.Push(F64(lanes[laneIdx]))
	case wasm.SimdF64x2ReplaceLane:
		v := stack.Pop().F64Val()
		lanes := toLanesF64(stack.Pop().V)
		lanes[laneIdx] = v
		stack.Push(V128(fromLanesF64(lanes)))
	}
	return nil
}

// --- lane (un)packing helpers: v128 bytes are little-endian lane order ---

func toLanes16(b [16]byte) [8]uint16 {
	var out [8]uint16
	for i := range out {
		out[i] = leGet16(b[i*2 : i*2+2])
	}
	return out
}
func fromLanes16(lanes [8]uint16) [16]byte {
	var out [16]byte
	for i, v := range lanes {
		copy(out[i*2:i*2+2], le16(v))
	}
	return out
}
func toLanes32(b [16]byte) [4]uint32 {
	var out [4]uint32
	for i := range out {
		out[i] = leGet32(b[i*4 : i*4+4])
	}
	return out
}
func fromLanes32(lanes [4]uint32) [16]byte {
	var out [16]byte
	for i, v := range lanes {
		copy(out[i*4:i*4+4], le32(v))
	}
	return out
}
func toLanes64(b [16]byte) [2]uint64 {
	var out [2]uint64
	for i := range out {
		out[i] = leGet64(b[i*8 : i*8+8])
	}
	return out
}
func fromLanes64(lanes [2]uint64) [16]byte {
	var out [16]byte
	for i, v := range lanes {
		copy(out[i*8:i*8+8], le64(v))
	}
	return out
}
func toLanesF32(b [16]byte) [4]float32 {
	raw := toLanes32(b)
	var out [4]float32
	for i, v := range raw {
		out[i] = math.Float32frombits(v)
	}
	return out
}
func fromLanesF32(lanes [4]float32) [16]byte {
	var raw [4]uint32
	for i, v := range lanes {
		raw[i] = math.Float32bits(v)
	}
	return fromLanes32(raw)
}
func toLanesF64(b [16]byte) [2]float64 {
	raw := toLanes64(b)
	var out [2]float64
	for i, v := range raw {
		out[i] = math.Float64frombits(v)
	}
	return out
}
func fromLanesF64(lanes [2]float64) [16]byte {
	var raw [2]uint64
	for i, v := range lanes {
		raw[i] = math.Float64bits(v)
	}
	return fromLanes64(raw)
}
