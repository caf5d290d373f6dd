package rocdl

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/gogpu/amdgpu/chipset"
	"github.com/gogpu/amdgpu/ir"
)

// State tracks a Lowerer through its phases.
type State uint8

const (
	// StateUnverified is the initial state.
	StateUnverified State = iota

	// StateVerified means the operand rules passed.
	StateVerified

	// StateResolved means the byte offsets were computed.
	StateResolved

	// StateLowered means the raw instruction was emitted. Terminal.
	StateLowered

	// StateRejected means the verifier failed the operation. Terminal.
	StateRejected

	// StateFailed means descriptor construction failed, e.g. on
	// extent overflow. Terminal.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUnverified:
		return "unverified"
	case StateVerified:
		return "verified"
	case StateResolved:
		return "resolved"
	case StateLowered:
		return "lowered"
	case StateRejected:
		return "rejected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// LowerInput is the per-operation context the host pipeline supplies:
// the target chipset and the run-time view of the memref operand.
type LowerInput struct {
	Chipset chipset.Chipset
	MemRef  MemRefDescriptor
}

// Lowerer lowers one operation to a raw intrinsic call. A Lowerer is
// transient: build one per operation, run it once, observe State for
// diagnostics, discard. Lowering is pure; nothing outside the Lowerer
// is touched.
type Lowerer struct {
	op    ir.Operation
	input LowerInput
	state State

	voffsetBytes int32
	soffsetBytes int32
	resource     BufferResource
}

// NewLowerer creates a lowerer for one operation.
func NewLowerer(op ir.Operation, input LowerInput) *Lowerer {
	return &Lowerer{op: op, input: input, state: StateUnverified}
}

// State returns the phase the lowerer stopped in.
func (l *Lowerer) State() State { return l.state }

// Lower runs verify, resolve, and descriptor construction, then emits
// the raw instruction. It runs once; the error identifies the phase
// that stopped it.
func (l *Lowerer) Lower() (*RawInstruction, error) {
	if l.state != StateUnverified {
		return nil, errors.Errorf("lowerer already ran (state %s)", l.state)
	}

	if err := ir.Verify(l.op); err != nil {
		l.state = StateRejected
		return nil, err
	}
	l.state = StateVerified

	if err := l.resolveOffsets(); err != nil {
		l.state = StateFailed
		return nil, errors.Wrapf(err, "resolving offsets for %s", l.op.OpName())
	}
	l.state = StateResolved

	a := ir.AccessOf(l.op)
	resource, err := NewBufferResource(a.MemRef.Type, l.input.MemRef, a.BoundsCheck, l.input.Chipset.Generation())
	if err != nil {
		l.state = StateFailed
		return nil, errors.Wrapf(err, "building descriptor for %s %%%s", l.op.OpName(), a.MemRef.Name)
	}
	l.resource = resource

	instr := l.emit()
	l.state = StateLowered
	return instr, nil
}

// resolveOffsets linearizes the indices against the strides and scales
// to bytes. All arithmetic is 32-bit, matching the index operand
// domain; overflow wraps.
func (l *Lowerer) resolveOffsets() error {
	a := ir.AccessOf(l.op)
	strides, err := a.MemRef.Type.ResolvedStrides(l.input.MemRef.Strides)
	if err != nil {
		return err
	}

	elemBytes := int32(a.MemRef.Type.Elem.ByteSize())
	off := int32(0)
	for d, idx := range a.Indices {
		off += idx * int32(strides[d])
	}
	if a.IndexOffset != nil {
		off += *a.IndexOffset
	}
	l.voffsetBytes = off * elemBytes

	if a.SGPROffset != nil {
		l.soffsetBytes = *a.SGPROffset * elemBytes
	}
	return nil
}

// emit builds the intrinsic call for the operation variant.
func (l *Lowerer) emit() *RawInstruction {
	instr := &RawInstruction{
		Resource:          l.resource,
		VectorIndexBytes:  l.voffsetBytes,
		ScalarOffsetBytes: l.soffsetBytes,
		CachePolicy:       l.resource.CacheCoherency,
	}
	switch op := l.op.(type) {
	case ir.LoadOp:
		instr.Intrinsic = IntrinsicLoad
		rt := op.ResultType
		instr.ResultType = &rt
	case ir.StoreOp:
		instr.Intrinsic = IntrinsicStore
		v := op.Value
		instr.Value = &v
	case ir.AtomicFAddOp:
		instr.Intrinsic = IntrinsicAtomicFAdd
		v := op.Value
		instr.Value = &v
	default:
		panic("rocdl: unhandled operation variant")
	}
	return instr
}

// Lower verifies and lowers op in one call.
func Lower(op ir.Operation, input LowerInput) (*RawInstruction, error) {
	return NewLowerer(op, input).Lower()
}
