package passes

import (
	"github.com/gomlx/go-torchir/pkg/library"
	"github.com/gomlx/go-torchir/pkg/torchir"
	"github.com/pkg/errors"
)

// ReifyShapeCalculations wraps every operation of module that has a shape function in lib into a
// `torch.shape.calculate` construct that calls it, and imports into module the shape functions used.
//
// Shape functions take one parameter per operand, tensors are passed as their sizes
// (a `!torch.list<int>`).
func ReifyShapeCalculations(module *torchir.Module, lib *library.Library) error {
	return reifyCalculations(module, lib, library.ShapeFunction, ShapeFunctionArgsBuilder)
}

// ShapeFunctionArgsBuilder implements library.ArgsBuilder for shape functions.
func ShapeFunctionArgsBuilder(b *torchir.Builder, operands []*torchir.Value, fn *torchir.Function) ([]*torchir.Value, error) {
	desiredTypes := fn.ArgumentTypes()
	if len(desiredTypes) != len(operands) {
		return nil, errors.Wrapf(library.ErrSignatureMismatch,
			"@%s has %d parameters for %d operands", fn.Name, len(desiredTypes), len(operands))
	}
	args := make([]*torchir.Value, len(operands))
	for i, operand := range operands {
		var err error
		args[i], err = library.AdjustFunctionArg(b, operand, desiredTypes[i], shapeArgAdjuster)
		if err != nil {
			return nil, errors.WithMessagef(err, "operand #%d", i)
		}
	}
	return args, nil
}

func shapeArgAdjuster(b *torchir.Builder, operand *torchir.Value, desiredType torchir.Type) *torchir.Value {
	if _, ok := desiredType.(torchir.ListType); ok && torchir.IsTensor(operand.Type()) {
		return b.Size(operand)
	}
	return operand
}
