package torchir

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Operation is a node of the program: it has a name (e.g. "torch.aten.add.Tensor"), typed
// operands and results, named attributes and optionally nested regions.
//
// Operations are owned by the Block that contains them. They are created with a Builder.
type Operation struct {
	Name       string
	Attributes map[string]Attribute

	operands []*Value
	results  []*Value
	regions  []*Region

	// block that contains the operation, nil if detached.
	block *Block
}

// newOperation creates a detached operation.
func newOperation(name string, resultTypes []Type, operands []*Value, attrs map[string]Attribute, numRegions int) *Operation {
	op := &Operation{
		Name:       name,
		Attributes: maps.Clone(attrs),
		operands:   slices.Clone(operands),
		results:    make([]*Value, len(resultTypes)),
	}
	if op.Attributes == nil {
		op.Attributes = make(map[string]Attribute)
	}
	for i, operand := range op.operands {
		operand.addUse(op, i)
	}
	for i, t := range resultTypes {
		op.results[i] = &Value{typ: t, op: op, index: i}
	}
	for range numRegions {
		op.regions = append(op.regions, &Region{parentOp: op})
	}
	return op
}

// NumOperands returns the number of operands.
func (op *Operation) NumOperands() int { return len(op.operands) }

// Operand returns the i-th operand.
func (op *Operation) Operand(i int) *Value { return op.operands[i] }

// Operands returns a copy of the operands.
func (op *Operation) Operands() []*Value { return slices.Clone(op.operands) }

// OperandTypes returns the types of the operands.
func (op *Operation) OperandTypes() []Type { return valueTypes(op.operands) }

// SetOperand replaces the i-th operand, updating the uses accordingly.
func (op *Operation) SetOperand(i int, value *Value) {
	op.operands[i].removeUse(op, i)
	op.operands[i] = value
	value.addUse(op, i)
}

// NumResults returns the number of results.
func (op *Operation) NumResults() int { return len(op.results) }

// Result returns the i-th result.
func (op *Operation) Result(i int) *Value { return op.results[i] }

// Results returns a copy of the results.
func (op *Operation) Results() []*Value { return slices.Clone(op.results) }

// ResultTypes returns the types of the results.
func (op *Operation) ResultTypes() []Type { return valueTypes(op.results) }

// NumRegions returns the number of nested regions.
func (op *Operation) NumRegions() int { return len(op.regions) }

// Region returns the i-th nested region.
func (op *Operation) Region(i int) *Region { return op.regions[i] }

// Block returns the block containing the operation, or nil if it is detached.
func (op *Operation) Block() *Block { return op.block }

// ParentOp returns the operation whose region contains this operation, or nil if this operation
// is at the top level of a function body (or detached).
func (op *Operation) ParentOp() *Operation {
	if op.block == nil || op.block.region == nil {
		return nil
	}
	return op.block.region.parentOp
}

// Function returns the function containing the operation, at any nesting depth, or nil.
func (op *Operation) Function() *Function {
	for cur := op; cur != nil; cur = cur.ParentOp() {
		if cur.block == nil || cur.block.region == nil {
			return nil
		}
		if fn := cur.block.region.parentFn; fn != nil {
			return fn
		}
	}
	return nil
}

// Dialect returns the prefix of the operation name up to the first dot, e.g. "torch".
func (op *Operation) Dialect() string {
	dialect, _, _ := strings.Cut(op.Name, ".")
	return dialect
}

// NameWithoutDialect returns the operation name with the dialect prefix stripped, e.g. "aten.add.Tensor".
func (op *Operation) NameWithoutDialect() string {
	if _, rest, found := strings.Cut(op.Name, "."); found {
		return rest
	}
	return op.Name
}

// Callee returns the function name referenced by the "callee" attribute (for `func.call`).
func (op *Operation) Callee() (string, bool) {
	ref, ok := op.Attributes[AttrCallee].(SymbolRef)
	return string(ref), ok
}

// StringAttribute returns the named attribute if it is a string.
func (op *Operation) StringAttribute(name string) (string, bool) {
	s, ok := op.Attributes[name].(string)
	return s, ok
}

// IntAttribute returns the named attribute if it is an integer.
func (op *Operation) IntAttribute(name string) (int64, bool) {
	switch v := op.Attributes[name].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// detach removes the operation from its block, without touching uses.
func (op *Operation) detach() {
	if op.block == nil {
		return
	}
	op.block.ops = slices.Delete(op.block.ops, op.index(), op.index()+1)
	op.block = nil
}

func (op *Operation) index() int {
	return slices.Index(op.block.ops, op)
}

// MoveBefore moves the operation (from wherever it is) to just before other.
func (op *Operation) MoveBefore(other *Operation) {
	op.detach()
	block := other.block
	block.insert(other.index(), op)
}

// MoveAfter moves the operation (from wherever it is) to just after other.
func (op *Operation) MoveAfter(other *Operation) {
	op.detach()
	block := other.block
	block.insert(other.index()+1, op)
}

// MoveToEnd moves the operation (from wherever it is) to the end of the given block.
func (op *Operation) MoveToEnd(block *Block) {
	op.detach()
	block.insert(len(block.ops), op)
}

// Erase removes the operation from its block and releases its operands.
// It fails if any of its results is still used.
func (op *Operation) Erase() error {
	for _, result := range op.results {
		if result.HasUses() {
			return errors.Errorf("cannot erase %q: result #%d still has %d uses", op.Name, result.index, len(result.uses))
		}
	}
	for _, region := range op.regions {
		for _, block := range region.blocks {
			for _, inner := range slices.Backward(block.Operations()) {
				if err := inner.Erase(); err != nil {
					return err
				}
			}
		}
	}
	for i, operand := range op.operands {
		operand.removeUse(op, i)
	}
	op.detach()
	return nil
}

// IsBeforeInBlock returns whether op comes before other in their common block.
func (op *Operation) IsBeforeInBlock(other *Operation) bool {
	return op.block == other.block && op.index() < other.index()
}

func valueTypes(values []*Value) []Type {
	types := make([]Type, len(values))
	for i, v := range values {
		types[i] = v.typ
	}
	return types
}

func itoa(i int) string { return strconv.Itoa(i) }
