package ir

import "fmt"

// VerificationError reports one violated operation rule.
type VerificationError struct {
	Op      string // operation mnemonic
	Operand string // operand name the rule points at, when one does
	Rule    string
	Detail  string // specifics, e.g. the mismatched types
}

// Error implements the error interface.
func (e VerificationError) Error() string {
	msg := e.Rule
	if e.Detail != "" {
		msg = e.Rule + ": " + e.Detail
	}
	if e.Operand != "" {
		return fmt.Sprintf("%s %%%s: %s", e.Op, e.Operand, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// laneCounts maps a scalar lane type to the lane counts load and store
// can transfer in one access.
var laneCounts = map[ElemType][]uint8{
	F32:  {1, 2, 4},
	I32:  {1, 2, 4},
	F16:  {1, 2, 4, 8},
	BF16: {1, 2, 4, 8},
	I8:   {1, 2, 4, 8, 16},
}

// Verifier checks raw buffer operations against the operand rules.
type Verifier struct {
	errors []VerificationError
}

// Verify checks the operation and returns the first violated rule, or
// nil when the operation is well formed. Lowering gates on it.
func Verify(op Operation) error {
	if op == nil {
		return fmt.Errorf("operation is nil")
	}
	if errs := VerifyAll(op); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// VerifyAll returns every violated rule, in checking order.
func VerifyAll(op Operation) []VerificationError {
	if op == nil {
		return nil
	}
	v := &Verifier{}
	v.verifyOperation(op)
	return v.errors
}

func (v *Verifier) verifyOperation(op Operation) {
	a := AccessOf(op)
	v.verifyMemRef(op, a)
	v.verifyIndices(op, a)

	// The match rule compares lane types: a vector value over the
	// memref's element type is a wide access, not a mismatch.
	switch op := op.(type) {
	case LoadOp:
		if op.ResultType.Scalar() != a.MemRef.Type.Elem {
			v.addError(op, "", "result element type must match memref element type",
				fmt.Sprintf("result is %s, memref holds %s", op.ResultType, a.MemRef.Type.Elem))
		}
		v.verifyTransferType(op, op.ResultType)

	case StoreOp:
		if op.Value.Type.Scalar() != a.MemRef.Type.Elem {
			v.addError(op, op.Value.Name, "value element type must match memref element type",
				fmt.Sprintf("value is %s, memref holds %s", op.Value.Type, a.MemRef.Type.Elem))
		}
		v.verifyTransferType(op, op.Value.Type)

	case AtomicFAddOp:
		if op.Value.Type.Scalar() != a.MemRef.Type.Elem {
			v.addError(op, op.Value.Name, "value element type must match memref element type",
				fmt.Sprintf("value is %s, memref holds %s", op.Value.Type, a.MemRef.Type.Elem))
		}
		if op.Value.Type != F32 {
			v.addError(op, op.Value.Name, "atomic add value must be a scalar f32",
				fmt.Sprintf("got %s", op.Value.Type))
		}
	}
}

// verifyMemRef checks the shape/strides arity invariant. Extent and
// overflow are lowering concerns, not operand rules.
func (v *Verifier) verifyMemRef(op Operation, a Access) {
	t := a.MemRef.Type
	if len(t.Shape) != len(t.Strides) {
		v.addError(op, a.MemRef.Name, "memref shape and strides must have equal rank",
			fmt.Sprintf("%d sizes, %d strides", len(t.Shape), len(t.Strides)))
	}
}

// verifyIndices checks the index count. Fewer indices than rank is
// permitted: trailing dimensions go unindexed.
func (v *Verifier) verifyIndices(op Operation, a Access) {
	if len(a.Indices) > a.MemRef.Type.Rank() {
		v.addError(op, a.MemRef.Name, "index count must not exceed memref rank",
			fmt.Sprintf("%d indices, rank %d", len(a.Indices), a.MemRef.Type.Rank()))
	}
}

// verifyTransferType checks the element type against the closed set the
// buffer instructions can move.
func (v *Verifier) verifyTransferType(op Operation, t ElemType) {
	counts, ok := laneCounts[t.Scalar()]
	if !ok {
		v.addError(op, "", "element type is not supported for buffer access",
			fmt.Sprintf("got %s", t))
		return
	}
	for _, n := range counts {
		if t.Lanes == n {
			return
		}
	}
	v.addError(op, "", "element type is not supported for buffer access",
		fmt.Sprintf("%s lane count must be one of %v, got %d", t.Scalar(), counts, t.Lanes))
}

func (v *Verifier) addError(op Operation, operand, rule, detail string) {
	v.errors = append(v.errors, VerificationError{
		Op:      op.OpName(),
		Operand: operand,
		Rule:    rule,
		Detail:  detail,
	})
}
