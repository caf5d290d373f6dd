// Package rocdl lowers verified raw buffer operations to ROCDL raw
// buffer intrinsics: a packed buffer resource descriptor plus one
// intrinsic call with byte offsets.
package rocdl

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/gogpu/amdgpu/chipset"
	"github.com/gogpu/amdgpu/ir"
)

// OOBSelect is the descriptor field selecting the hardware's
// out-of-bounds policy. Raw mode only uses the checked and unchecked
// values; the structured modes 0 and 1 are not modeled.
type OOBSelect uint8

const (
	// OOBChecksDisabled turns hardware bounds checking off.
	OOBChecksDisabled OOBSelect = 2

	// OOBChecksEnabled makes the hardware test every offset against
	// NumRecords.
	OOBChecksEnabled OOBSelect = 3
)

// Word 3 layout. The num-format and data-format fields are ignored by
// the raw intrinsics but must be nonzero.
const (
	word3NumFormatFloat  = 7 << 12
	word3DataFormat32bit = 4 << 15
	word3ThreadIDAdd     = 1 << 23
	word3ResourceLevel   = 1 << 24
	word3OOBShift        = 28

	word1BaseHiMask  = 0xffff
	word1StrideShift = 16
)

// maxNumRecords is the descriptor size-field domain.
const maxNumRecords = math.MaxUint32

// BufferResource is a buffer descriptor in raw mode: four 32-bit words
// describing base, extent, and access policy. It is a value type,
// built fresh per lowering; its meaning is exactly its bit pattern.
type BufferResource struct {
	// BaseAddress is the 48-bit base of the referenced memory,
	// already advanced past the memref's base offset.
	BaseAddress uint64

	// Stride is the structured-mode record stride. Raw mode fixes it
	// to 0.
	Stride uint16

	// NumRecords is the addressable extent in bytes. Offsets at or
	// past it are out of bounds when checks are enabled.
	NumRecords uint32

	// OffsetEnable and IndexEnable select the addressing mode of the
	// consuming instruction. Raw mode addresses by offset only.
	OffsetEnable bool
	IndexEnable  bool

	// ThreadIDAdd folds the lane id into the index. Unused in raw
	// mode.
	ThreadIDAdd bool

	// ResourceLevel is the word 3 bit 24 marker RDNA descriptors
	// carry.
	ResourceLevel bool

	// OOBSelect is the out-of-bounds policy, word 3 bits 28-29.
	OOBSelect OOBSelect

	// CacheCoherency holds the cache policy bits the lowerer mirrors
	// into the instruction's aux operand. Always 0 here.
	CacheCoherency uint32
}

// MemRefDescriptor is the run-time view of a memref operand: where the
// data lives and the values of any dynamic sizes, strides, or offset,
// in dimension order. Static types need only Base.
type MemRefDescriptor struct {
	Base    uint64
	Offset  int64
	Sizes   []int64
	Strides []int64
}

// DescriptorOverflowError reports a memory reference whose byte extent
// does not fit the descriptor's num-records field.
type DescriptorOverflowError struct {
	Extent uint64
}

// Error implements the error interface.
func (e DescriptorOverflowError) Error() string {
	return fmt.Sprintf("buffer extent %d bytes overflows the descriptor num-records field (max %d)", e.Extent, uint64(maxNumRecords))
}

// NewBufferResource builds the raw-mode descriptor for a memory
// reference. The OOB-select rule: checks are disabled only when the
// operation asked for boundsCheck=false and the target generation can
// elide them; every other combination enables them. Fails with
// DescriptorOverflowError when the byte extent exceeds the num-records
// domain; extents are never truncated.
func NewBufferResource(t ir.MemRefType, rt MemRefDescriptor, boundsCheck bool, gen chipset.Generation) (BufferResource, error) {
	extent, err := t.ByteExtentWith(rt.Sizes, rt.Strides)
	if err != nil {
		return BufferResource{}, errors.Wrap(err, "computing buffer extent")
	}
	if extent > maxNumRecords {
		return BufferResource{}, DescriptorOverflowError{Extent: extent}
	}

	offset := t.Offset
	if offset == ir.DynamicSize {
		offset = rt.Offset
		if offset < 0 {
			return BufferResource{}, errors.Errorf("run-time memref offset is negative (%d)", offset)
		}
	}
	base := rt.Base + uint64(offset)*uint64(t.Elem.ByteSize())

	oob := OOBChecksEnabled
	if !boundsCheck && gen.BoundsCheckElidable() {
		oob = OOBChecksDisabled
	}

	return BufferResource{
		BaseAddress:   base,
		Stride:        0,
		NumRecords:    uint32(extent),
		OffsetEnable:  true,
		IndexEnable:   false,
		ThreadIDAdd:   false,
		ResourceLevel: gen == chipset.GenRDNA,
		OOBSelect:     oob,
	}, nil
}

// Words packs the descriptor into its four-word hardware layout:
// word 0 is the low base, word 1 the high base plus stride, word 2 the
// num-records extent, word 3 the format and policy flags.
func (r BufferResource) Words() [4]uint32 {
	var w [4]uint32
	w[0] = uint32(r.BaseAddress)
	w[1] = uint32(r.BaseAddress>>32)&word1BaseHiMask | uint32(r.Stride&0x3fff)<<word1StrideShift
	w[2] = r.NumRecords
	w[3] = word3NumFormatFloat | word3DataFormat32bit
	if r.ThreadIDAdd {
		w[3] |= word3ThreadIDAdd
	}
	if r.ResourceLevel {
		w[3] |= word3ResourceLevel
	}
	w[3] |= uint32(r.OOBSelect) << word3OOBShift
	return w
}

// Bytes returns the descriptor in memory order, little-endian words.
func (r BufferResource) Bytes() []byte {
	words := r.Words()
	buf := make([]byte, 16)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}
