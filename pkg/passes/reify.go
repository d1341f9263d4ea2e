package passes

import (
	"github.com/gomlx/go-torchir/pkg/library"
	"github.com/gomlx/go-torchir/pkg/torchir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// reifyCalculations wraps each operation of module with a library function of the given kind, and
// then imports the library functions used.
//
// Operations already wrapped by a construct of this kind, and library functions previously
// imported into module, are not visited: running it again on its own output is a no-op.
//
// If wrapping an operation fails, the walk stops and the error is returned. Operations wrapped
// before the failure stay wrapped, and no library function is imported.
func reifyCalculations(module *torchir.Module, lib *library.Library, kind library.Kind, argsBuilder library.ArgsBuilder) error {
	needed := library.NewNeededFunctions()
	var err error
	numWrapped := 0
	visit := func(op *torchir.Operation) torchir.WalkResult {
		if op.Name == kind.CalculateOpName() || inCalculationRegion(op) {
			return torchir.WalkSkip
		}
		var wrapped bool
		wrapped, err = library.WrapWithCalculateOpIfLibraryFunctionAvailable(op, lib, kind, needed, argsBuilder)
		if err != nil {
			return torchir.WalkInterrupt
		}
		if wrapped {
			numWrapped++
		}
		return torchir.WalkAdvance
	}
	for _, fn := range module.Functions() {
		if fn.Private && lib.Function(fn.Name) != nil {
			continue
		}
		if fn.Walk(visit) == torchir.WalkInterrupt {
			return errors.WithMessagef(err, "reifying %s calculations in @%s", kind, fn.Name)
		}
	}
	klog.V(1).Infof("reified %s calculations: %d operations wrapped, %d library functions needed", kind, numWrapped, needed.Len())
	return library.ImportLibraryFunctions(module, lib, needed)
}

// inCalculationRegion returns whether op is part of the calculation (second) region of a
// `torch.dtype.calculate` or `torch.shape.calculate` construct.
func inCalculationRegion(op *torchir.Operation) bool {
	parent := op.ParentOp()
	if parent == nil || (parent.Name != torchir.OpDtypeCalculate && parent.Name != torchir.OpShapeCalculate) {
		return false
	}
	return op.Block().Region() == parent.Region(1)
}
