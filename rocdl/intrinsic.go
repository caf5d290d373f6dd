package rocdl

import (
	"fmt"

	"github.com/gogpu/amdgpu/ir"
)

// Intrinsic identifies the raw buffer intrinsic a lowering emits.
type Intrinsic uint8

const (
	IntrinsicLoad Intrinsic = iota
	IntrinsicStore
	IntrinsicAtomicFAdd
)

// String returns the intrinsic name.
func (i Intrinsic) String() string {
	switch i {
	case IntrinsicLoad:
		return "raw.buffer.load"
	case IntrinsicStore:
		return "raw.buffer.store"
	case IntrinsicAtomicFAdd:
		return "raw.buffer.atomic.fadd"
	default:
		panic("rocdl: unhandled intrinsic")
	}
}

// Execution-time out-of-bounds behavior is a hardware contract the
// lowering preserves, never something it computes or emulates:
//
//   - a load fully out of bounds returns all-zero bits of the result
//     type
//   - a store or atomic add fully out of bounds is dropped
//   - a vector access straddling the num-records boundary behaves
//     differently across chipsets and is deliberately left unspecified
//     at this level
//
// PartialOOBContract restates the last point for hosts that surface it
// in diagnostics.
const PartialOOBContract = "a vector access straddling the num-records boundary is chipset-dependent; the lowering does not normalize it"

// RawInstruction is one lowered raw buffer intrinsic call with its
// positional arguments resolved to byte units.
type RawInstruction struct {
	Intrinsic Intrinsic

	// Value is the stored or added operand. Nil for loads.
	Value *ir.TypedValue

	// ResultType is the loaded element type. Nil for stores and
	// atomics.
	ResultType *ir.ElemType

	Resource BufferResource

	// VectorIndexBytes is the per-lane offset the hardware bounds
	// checks.
	VectorIndexBytes int32

	// ScalarOffsetBytes is added after the bounds check.
	ScalarOffsetBytes int32

	// CachePolicy is the aux operand carrying the glc/slc bits.
	CachePolicy uint32
}

// String renders the call with the descriptor words spelled out.
// Example:
//
//	raw.buffer.load(rsrc = [0x00000000, 0x00000000, 0x00000020, 0x30027000], voffset = 28, soffset = 0, aux = 0) -> f32
func (i RawInstruction) String() string {
	w := i.Resource.Words()
	args := fmt.Sprintf("rsrc = [0x%08x, 0x%08x, 0x%08x, 0x%08x], voffset = %d, soffset = %d, aux = %d",
		w[0], w[1], w[2], w[3], i.VectorIndexBytes, i.ScalarOffsetBytes, i.CachePolicy)
	if i.Value != nil {
		args = fmt.Sprintf("%%%s : %s, %s", i.Value.Name, i.Value.Type, args)
	}
	if i.ResultType != nil {
		return fmt.Sprintf("%s(%s) -> %s", i.Intrinsic, args, i.ResultType)
	}
	return fmt.Sprintf("%s(%s)", i.Intrinsic, args)
}
