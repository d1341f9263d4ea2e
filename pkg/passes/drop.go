package passes

import (
	"github.com/gomlx/go-torchir/internal/utils"
	"github.com/gomlx/go-torchir/pkg/torchir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DropAbstractInterpCalculations replaces every `torch.dtype.calculate` and `torch.shape.calculate`
// construct by the operations in its body, discarding the calculations.
//
// Private functions no longer called from anywhere, like the library functions imported by the
// reify passes, are removed.
func DropAbstractInterpCalculations(module *torchir.Module) error {
	var calculates []*torchir.Operation
	module.Walk(func(op *torchir.Operation) torchir.WalkResult {
		if op.Name == torchir.OpDtypeCalculate || op.Name == torchir.OpShapeCalculate {
			calculates = append(calculates, op)
		}
		return torchir.WalkAdvance
	})
	for _, calculate := range calculates {
		if err := dropCalculation(calculate); err != nil {
			return err
		}
	}
	klog.V(1).Infof("dropped %d calculations", len(calculates))
	removeUnusedPrivateFunctions(module)
	return nil
}

func dropCalculation(calculate *torchir.Operation) error {
	body := calculate.Region(0).Front()
	yield := body.Terminator()
	if yield == nil || yield.NumOperands() != calculate.NumResults() {
		return errors.Errorf("%q: malformed body, it must end yielding its %d results", calculate.Name, calculate.NumResults())
	}
	for _, op := range body.Operations() {
		if op != yield {
			op.MoveBefore(calculate)
		}
	}
	for i, result := range calculate.Results() {
		if err := result.ReplaceAllUsesWith(yield.Operand(i)); err != nil {
			return errors.WithMessagef(err, "dropping %q", calculate.Name)
		}
	}
	return calculate.Erase()
}

// removeUnusedPrivateFunctions removes private functions that are not called, repeatedly, since
// removing a function may leave its callees unused.
func removeUnusedPrivateFunctions(module *torchir.Module) {
	for {
		called := utils.MakeSet[string]()
		module.Walk(func(op *torchir.Operation) torchir.WalkResult {
			if callee, ok := op.Callee(); ok && op.Name == torchir.OpCall {
				called.Insert(callee)
			}
			return torchir.WalkAdvance
		})
		removed := 0
		for _, fn := range module.Functions() {
			if fn.Private && !called.Has(fn.Name) {
				module.RemoveFunction(fn.Name)
				removed++
			}
		}
		if removed == 0 {
			return
		}
	}
}
