package torchir

import (
	"github.com/pkg/errors"
)

// Verify checks the structural consistency of the module:
//
//   - values are defined before they are used, in the same or an enclosing block;
//   - use lists are consistent with operands;
//   - function bodies end with a `func.return` matching the declared result types;
//   - `func.call` operations reference existing functions with matching argument and result types;
//   - regions of `torch.dtype.calculate`, `torch.shape.calculate`, `torch.prim.If` and
//     `torch.prim.Loop` are terminated by the corresponding yield operations.
//
// It returns the first problem found.
func (m *Module) Verify() error {
	for _, fn := range m.functions {
		if err := fn.Verify(); err != nil {
			return err
		}
	}
	return nil
}

// Verify checks the function, see Module.Verify.
func (fn *Function) Verify() error {
	if fn.body.NumBlocks() == 0 {
		return errors.Errorf("function %q has no body", fn.Name)
	}
	for _, block := range fn.body.blocks {
		term := block.Terminator()
		if term == nil || term.Name != OpReturn {
			return errors.Errorf("function %q: block is not terminated by %q", fn.Name, OpReturn)
		}
		if err := checkTypes(term.OperandTypes(), fn.ResultTypes); err != nil {
			return errors.WithMessagef(err, "function %q: %q does not match the declared result types", fn.Name, OpReturn)
		}
	}
	var err error
	fn.Walk(func(op *Operation) WalkResult {
		if err = verifyOperation(fn, op); err != nil {
			err = errors.WithMessagef(err, "function %q", fn.Name)
			return WalkInterrupt
		}
		return WalkAdvance
	})
	return err
}

func checkTypes(got, want []Type) error {
	if len(got) != len(want) {
		return errors.Errorf("got %d values, wanted %d", len(got), len(want))
	}
	for i := range got {
		if !TypesEqual(got[i], want[i]) {
			return errors.Errorf("value #%d has type %s, wanted %s", i, got[i], want[i])
		}
	}
	return nil
}

// isVisible returns whether v can be used by op: it must be defined in op's block (before op),
// or in one of the blocks enclosing it.
func isVisible(v *Value, op *Operation) bool {
	defBlock := v.ParentBlock()
	if defBlock == nil {
		return false
	}
	for user := op; user != nil; user = user.ParentOp() {
		if user.block == defBlock {
			if v.op == nil {
				return true
			}
			return v.op.IsBeforeInBlock(user)
		}
	}
	return false
}

func hasUse(v *Value, op *Operation, index int) bool {
	for _, use := range v.uses {
		if use.Op == op && use.Index == index {
			return true
		}
	}
	return false
}

func verifyOperation(fn *Function, op *Operation) error {
	for i, operand := range op.operands {
		if !isVisible(operand, op) {
			return errors.Errorf("%q: operand #%d (%s) is not defined before its use", op.Name, i, operand.typ)
		}
		if !hasUse(operand, op, i) {
			return errors.Errorf("%q: operand #%d is missing from its value's use list", op.Name, i)
		}
	}
	for _, result := range op.results {
		for _, use := range result.uses {
			if use.Index >= len(use.Op.operands) || use.Op.operands[use.Index] != result {
				return errors.Errorf("%q: result #%d has a stale use", op.Name, result.index)
			}
		}
	}

	switch op.Name {
	case OpCall:
		return verifyCall(fn, op)
	case OpDtypeCalculate:
		return verifyCalculate(op, OpDtypeCalculateYield, OpDtypeCalculateYieldDtypes)
	case OpShapeCalculate:
		return verifyCalculate(op, OpShapeCalculateYield, OpShapeCalculateYieldShapes)
	case OpPrimIf:
		if len(op.regions) != 2 {
			return errors.Errorf("%q must have 2 regions, got %d", op.Name, len(op.regions))
		}
		for _, region := range op.regions {
			term, err := singleBlockTerminator(op, region, OpPrimIfYield)
			if err != nil {
				return err
			}
			if err := checkTypes(term.OperandTypes(), op.ResultTypes()); err != nil {
				return errors.WithMessagef(err, "%q: yielded values", op.Name)
			}
		}
	case OpPrimLoop:
		if len(op.regions) != 1 {
			return errors.Errorf("%q must have 1 region, got %d", op.Name, len(op.regions))
		}
		if _, err := singleBlockTerminator(op, op.regions[0], OpPrimLoopCondition); err != nil {
			return err
		}
	}
	return nil
}

func verifyCall(fn *Function, op *Operation) error {
	name, ok := op.Callee()
	if !ok {
		return errors.Errorf("%q without a %q attribute", op.Name, AttrCallee)
	}
	if fn.module == nil {
		return nil
	}
	callee := fn.module.LookupFunction(name)
	if callee == nil {
		return errors.Errorf("%q references undefined function @%s", op.Name, name)
	}
	if err := checkTypes(op.OperandTypes(), callee.ArgumentTypes()); err != nil {
		return errors.WithMessagef(err, "%q to @%s: arguments", op.Name, name)
	}
	if err := checkTypes(op.ResultTypes(), callee.ResultTypes); err != nil {
		return errors.WithMessagef(err, "%q to @%s: results", op.Name, name)
	}
	return nil
}

func verifyCalculate(op *Operation, bodyYield, calculationYield string) error {
	if len(op.regions) != 2 {
		return errors.Errorf("%q must have 2 regions, got %d", op.Name, len(op.regions))
	}
	term, err := singleBlockTerminator(op, op.regions[0], bodyYield)
	if err != nil {
		return err
	}
	if err := checkTypes(term.OperandTypes(), op.ResultTypes()); err != nil {
		return errors.WithMessagef(err, "%q: body yields", op.Name)
	}
	term, err = singleBlockTerminator(op, op.regions[1], calculationYield)
	if err != nil {
		return err
	}
	if term.NumOperands() != op.NumResults() {
		return errors.Errorf("%q: calculation yields %d values for %d results", op.Name, term.NumOperands(), op.NumResults())
	}
	return nil
}

func singleBlockTerminator(op *Operation, region *Region, terminator string) (*Operation, error) {
	if region.NumBlocks() != 1 {
		return nil, errors.Errorf("%q: region must have exactly one block, got %d", op.Name, region.NumBlocks())
	}
	term := region.Front().Terminator()
	if term == nil || term.Name != terminator {
		return nil, errors.Errorf("%q: region must be terminated by %q", op.Name, terminator)
	}
	return term, nil
}
