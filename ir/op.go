package ir

// MemRefValue names the memory reference operand of an operation.
// Names are stored without the leading % sigil.
type MemRefValue struct {
	Name string
	Type MemRefType
}

// TypedValue names a value operand and its element type.
type TypedValue struct {
	Name string
	Type ElemType
}

// Access holds the operands and attributes every raw buffer operation
// shares: the memory reference, the logical indices into it, and the
// offset attributes.
type Access struct {
	MemRef  MemRefValue
	Indices []int32

	// BoundsCheck requests hardware bounds checking. It is advisory:
	// only chipsets that can elide the check act on false.
	BoundsCheck bool

	// IndexOffset is added to the linearized index before the bounds
	// check. In element units; nil means 0.
	IndexOffset *int32

	// SGPROffset is a uniform offset the hardware applies after the
	// bounds check, so it is never itself bounds checked. In element
	// units; nil means absent.
	SGPROffset *int32
}

// Operation is the closed set of raw buffer operations: LoadOp,
// StoreOp, and AtomicFAddOp.
type Operation interface {
	operation()

	// OpName returns the operation mnemonic.
	OpName() string
}

// LoadOp reads from the buffer. A vector ResultType over the memref's
// element type moves that many consecutive elements in one access. A
// fully out-of-bounds read returns all-zero bits on every supported
// chipset.
type LoadOp struct {
	Access
	ResultType ElemType
}

func (LoadOp) operation()     {}
func (LoadOp) OpName() string { return "raw_buffer_load" }

// StoreOp writes to the buffer. Like LoadOp, a vector value moves
// consecutive elements. A fully out-of-bounds write is dropped.
type StoreOp struct {
	Value TypedValue
	Access
}

func (StoreOp) operation()     {}
func (StoreOp) OpName() string { return "raw_buffer_store" }

// AtomicFAddOp atomically adds a scalar f32 to a buffer element. A
// fully out-of-bounds add is dropped.
type AtomicFAddOp struct {
	Value TypedValue
	Access
}

func (AtomicFAddOp) operation()     {}
func (AtomicFAddOp) OpName() string { return "raw_buffer_atomic_fadd" }

// AccessOf returns the shared operand set of any variant.
func AccessOf(op Operation) Access {
	switch op := op.(type) {
	case LoadOp:
		return op.Access
	case StoreOp:
		return op.Access
	case AtomicFAddOp:
		return op.Access
	default:
		panic("ir: unhandled operation variant")
	}
}
