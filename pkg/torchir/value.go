package torchir

import (
	"slices"

	"github.com/pkg/errors"
)

// Value represents an SSA value in a Torch program: either the result of an operation or
// an argument of a block (function arguments are the arguments of the function's entry block).
//
// Values track their uses, so they can be replaced everywhere with ReplaceAllUsesWith.
type Value struct {
	typ Type

	// op is the operation that created this value. It is nil for block arguments.
	op *Operation

	// index is the index of this value in op.results, or in block.args for block arguments.
	index int

	// block that owns this value as an argument. Only set for block arguments.
	block *Block

	uses []Use
}

// Use is one use of a Value: the operand Index of Op.
type Use struct {
	Op    *Operation
	Index int
}

// Type returns the type of the value.
func (v *Value) Type() Type {
	return v.typ
}

// DefiningOp returns the operation that created the value, or nil for block arguments.
func (v *Value) DefiningOp() *Operation {
	return v.op
}

// ResultIndex returns the position of the value in the results of its defining operation,
// or in the arguments of its block.
func (v *Value) ResultIndex() int {
	return v.index
}

// OwnerBlock returns the block for block arguments, and nil for operation results.
func (v *Value) OwnerBlock() *Block {
	return v.block
}

// ParentBlock returns the block where the value becomes available: the block of the defining
// operation for results, or the owner block for block arguments.
func (v *Value) ParentBlock() *Block {
	if v.op != nil {
		return v.op.block
	}
	return v.block
}

// Uses returns a copy of the list of uses of the value.
func (v *Value) Uses() []Use {
	return slices.Clone(v.uses)
}

// HasUses returns whether the value is used by any operation.
func (v *Value) HasUses() bool {
	return len(v.uses) > 0
}

func (v *Value) addUse(op *Operation, index int) {
	v.uses = append(v.uses, Use{Op: op, Index: index})
}

func (v *Value) removeUse(op *Operation, index int) {
	for i, use := range v.uses {
		if use.Op == op && use.Index == index {
			v.uses = slices.Delete(v.uses, i, i+1)
			return
		}
	}
}

// ReplaceAllUsesWith makes every operation that uses v use replacement instead.
// The types must be equal.
func (v *Value) ReplaceAllUsesWith(replacement *Value) error {
	if v == replacement {
		return nil
	}
	if !TypesEqual(v.typ, replacement.typ) {
		return errors.Errorf("cannot replace uses of value of type %s with value of type %s", v.typ, replacement.typ)
	}
	for _, use := range v.uses {
		use.Op.operands[use.Index] = replacement
		replacement.addUse(use.Op, use.Index)
	}
	v.uses = nil
	return nil
}

// String implements fmt.Stringer. Values don't have names until they are printed
// with their function, so this is only meant for debugging.
func (v *Value) String() string {
	if v.op != nil {
		return v.op.Name + "#" + itoa(v.index) + ":" + v.typ.String()
	}
	return "^arg" + itoa(v.index) + ":" + v.typ.String()
}
