// Package ir defines the operation-level representation for raw buffer
// accesses on AMDGPU targets.
//
// The representation is deliberately small: a typed, strided memory
// reference, the three raw buffer operation variants that address it,
// and a verifier that gates lowering. Descriptor construction and
// intrinsic emission live in the rocdl package.
package ir

import "fmt"

// ScalarKind represents scalar element kinds.
type ScalarKind uint8

const (
	ScalarSint   ScalarKind = iota // Signed integer
	ScalarFloat                    // IEEE floating point
	ScalarBFloat                   // Brain floating point
)

// ElemType represents a buffer element type: a scalar lane type plus a
// lane count. Lanes is 1 for scalars. ElemType is comparable; two types
// match exactly when they compare equal.
type ElemType struct {
	Kind  ScalarKind
	Width uint8 // bytes per lane
	Lanes uint8 // 1 for scalars
}

// Common element types.
var (
	I8   = ElemType{Kind: ScalarSint, Width: 1, Lanes: 1}
	I32  = ElemType{Kind: ScalarSint, Width: 4, Lanes: 1}
	F16  = ElemType{Kind: ScalarFloat, Width: 2, Lanes: 1}
	F32  = ElemType{Kind: ScalarFloat, Width: 4, Lanes: 1}
	BF16 = ElemType{Kind: ScalarBFloat, Width: 2, Lanes: 1}
)

// Vector returns the vector type with the given lane count over a scalar
// element type. Panics if scalar is itself a vector.
func Vector(lanes uint8, scalar ElemType) ElemType {
	if scalar.Lanes != 1 {
		panic("ir: vector of vector element type")
	}
	return ElemType{Kind: scalar.Kind, Width: scalar.Width, Lanes: lanes}
}

// IsScalar reports whether the type has a single lane.
func (t ElemType) IsScalar() bool { return t.Lanes == 1 }

// Scalar returns the lane type.
func (t ElemType) Scalar() ElemType {
	return ElemType{Kind: t.Kind, Width: t.Width, Lanes: 1}
}

// ByteSize returns the total size of one element in bytes.
func (t ElemType) ByteSize() uint32 {
	return uint32(t.Width) * uint32(t.Lanes)
}

// String returns the canonical spelling, e.g. "f32" or "vector<4xf32>".
func (t ElemType) String() string {
	if t.Lanes != 1 {
		return fmt.Sprintf("vector<%dx%s>", t.Lanes, t.Scalar())
	}
	bits := uint32(t.Width) * 8
	switch t.Kind {
	case ScalarSint:
		return fmt.Sprintf("i%d", bits)
	case ScalarFloat:
		return fmt.Sprintf("f%d", bits)
	case ScalarBFloat:
		return fmt.Sprintf("bf%d", bits)
	default:
		panic("ir: unhandled scalar kind")
	}
}

// DynamicSize marks a dimension size, stride, or offset that is only
// known at run time.
const DynamicSize int64 = -1

// MemRefType describes a shaped, strided memory reference. Sizes and
// strides are in element units; Offset is the base offset from the
// underlying allocation, also in elements. Entries equal to DynamicSize
// are resolved at lowering time.
type MemRefType struct {
	Elem    ElemType
	Shape   []int64
	Strides []int64
	Offset  int64
}

// NewMemRefType builds a MemRefType, checking that shape and strides
// have equal rank and that every entry is non-negative or DynamicSize.
func NewMemRefType(elem ElemType, shape, strides []int64, offset int64) (MemRefType, error) {
	if len(shape) != len(strides) {
		return MemRefType{}, fmt.Errorf("memref shape rank %d does not match strides rank %d", len(shape), len(strides))
	}
	for i, s := range shape {
		if s < 0 && s != DynamicSize {
			return MemRefType{}, fmt.Errorf("memref dimension %d has negative size %d", i, s)
		}
	}
	for i, s := range strides {
		if s < 0 && s != DynamicSize {
			return MemRefType{}, fmt.Errorf("memref dimension %d has negative stride %d", i, s)
		}
	}
	if offset < 0 && offset != DynamicSize {
		return MemRefType{}, fmt.Errorf("memref has negative offset %d", offset)
	}
	return MemRefType{Elem: elem, Shape: shape, Strides: strides, Offset: offset}, nil
}

// ContiguousMemRef builds a memref with row-major strides and zero
// offset. A dynamic inner size makes every outer stride dynamic.
func ContiguousMemRef(elem ElemType, shape ...int64) MemRefType {
	strides := contiguousStrides(shape)
	return MemRefType{Elem: elem, Shape: shape, Strides: strides}
}

func contiguousStrides(shape []int64) []int64 {
	strides := make([]int64, len(shape))
	stride := int64(1)
	for d := len(shape) - 1; d >= 0; d-- {
		strides[d] = stride
		if stride == DynamicSize || shape[d] == DynamicSize {
			stride = DynamicSize
		} else {
			stride *= shape[d]
		}
	}
	return strides
}

// Rank returns the number of dimensions.
func (m MemRefType) Rank() int { return len(m.Shape) }

// IsDynamic reports whether any size, stride, or the offset needs a
// run-time value.
func (m MemRefType) IsDynamic() bool {
	if m.Offset == DynamicSize {
		return true
	}
	for _, s := range m.Shape {
		if s == DynamicSize {
			return true
		}
	}
	for _, s := range m.Strides {
		if s == DynamicSize {
			return true
		}
	}
	return false
}

// ByteExtent returns the total addressable extent in bytes: the maximum
// over dimensions of size*stride, times the element byte size. A rank-0
// reference spans one element. Fails if the type has dynamic entries;
// use ByteExtentWith to supply run-time values.
func (m MemRefType) ByteExtent() (uint64, error) {
	if m.IsDynamic() {
		return 0, fmt.Errorf("memref %s has dynamic entries, extent needs run-time values", m)
	}
	return m.ByteExtentWith(nil, nil)
}

// ByteExtentWith computes the byte extent, substituting the given values
// for dynamic sizes and strides in dimension order. Static types pass
// nil for both.
func (m MemRefType) ByteExtentWith(sizes, strides []int64) (uint64, error) {
	shape, err := substitute("size", m.Shape, sizes)
	if err != nil {
		return 0, err
	}
	str, err := substitute("stride", m.Strides, strides)
	if err != nil {
		return 0, err
	}

	elemBytes := uint64(m.Elem.ByteSize())
	if len(shape) == 0 {
		return elemBytes, nil
	}
	var maxElems uint64
	for d := range shape {
		n := uint64(shape[d]) * uint64(str[d])
		if shape[d] != 0 && n/uint64(shape[d]) != uint64(str[d]) {
			return 0, fmt.Errorf("memref extent overflows in dimension %d (%d x %d)", d, shape[d], str[d])
		}
		if n > maxElems {
			maxElems = n
		}
	}
	total := maxElems * elemBytes
	if maxElems != 0 && total/maxElems != elemBytes {
		return 0, fmt.Errorf("memref byte extent overflows (%d elements x %d bytes)", maxElems, elemBytes)
	}
	return total, nil
}

// ResolvedStrides returns the strides with dynamic entries replaced by
// the given run-time values, consumed in dimension order.
func (m MemRefType) ResolvedStrides(values []int64) ([]int64, error) {
	return substitute("stride", m.Strides, values)
}

// substitute replaces DynamicSize entries with values, consuming them in
// order. The value count must equal the dynamic entry count.
func substitute(what string, entries, values []int64) ([]int64, error) {
	dynamic := 0
	for _, e := range entries {
		if e == DynamicSize {
			dynamic++
		}
	}
	if dynamic != len(values) {
		return nil, fmt.Errorf("memref has %d dynamic %ss, got %d values", dynamic, what, len(values))
	}
	if dynamic == 0 {
		return entries, nil
	}
	out := make([]int64, len(entries))
	next := 0
	for i, e := range entries {
		if e == DynamicSize {
			v := values[next]
			next++
			if v < 0 {
				return nil, fmt.Errorf("run-time %s %d is negative (%d)", what, i, v)
			}
			out[i] = v
		} else {
			out[i] = e
		}
	}
	return out, nil
}

// isContiguous reports whether the layout is the row-major default with
// zero offset, in which case String omits the strided form.
func (m MemRefType) isContiguous() bool {
	if m.Offset != 0 {
		return false
	}
	def := contiguousStrides(m.Shape)
	for d := range def {
		if def[d] != m.Strides[d] || m.Strides[d] == DynamicSize {
			return false
		}
	}
	return true
}

// String returns the canonical spelling, e.g. "memref<8x16xf32>" or
// "memref<?xf32, strided<[1], offset: ?>>". Dynamic entries print "?".
func (m MemRefType) String() string {
	dims := ""
	for _, s := range m.Shape {
		dims += dimString(s) + "x"
	}
	if m.isContiguous() {
		return fmt.Sprintf("memref<%s%s>", dims, m.Elem)
	}
	strides := "["
	for d, s := range m.Strides {
		if d > 0 {
			strides += ", "
		}
		strides += dimString(s)
	}
	strides += "]"
	if m.Offset == 0 {
		return fmt.Sprintf("memref<%s%s, strided<%s>>", dims, m.Elem, strides)
	}
	return fmt.Sprintf("memref<%s%s, strided<%s, offset: %s>>", dims, m.Elem, strides, dimString(m.Offset))
}

func dimString(s int64) string {
	if s == DynamicSize {
		return "?"
	}
	return fmt.Sprintf("%d", s)
}
