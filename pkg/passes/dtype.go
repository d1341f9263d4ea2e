package passes

import (
	"github.com/gomlx/go-torchir/pkg/library"
	"github.com/gomlx/go-torchir/pkg/torchir"
	"github.com/pkg/errors"
)

// ReifyDtypeCalculations wraps every operation of module that has a dtype function in lib into a
// `torch.dtype.calculate` construct that calls it, and imports into module the dtype functions used.
//
// Dtype functions take two ints for each operand holding tensors (its rank and its dtype, as
// built by DtypeFunctionArgsBuilder), and the other operands as they are.
//
// It is not transactional: if it fails, operations wrapped before the failure remain wrapped,
// but no library function is imported.
func ReifyDtypeCalculations(module *torchir.Module, lib *library.Library) error {
	return reifyCalculations(module, lib, library.DtypeFunction, DtypeFunctionArgsBuilder)
}

// DtypeFunctionArgsBuilder builds the arguments of a call to the dtype function fn from the
// operands of an operation, and it implements library.ArgsBuilder.
//
// Each operand holding tensors (see IsTensorOrWrappedTensorType) takes two parameters, the
// first one receives its rank and the second one its dtype. Other operands take one parameter
// each. All operands are then adjusted to the parameter types with library.AdjustFunctionArg.
//
// It fails with library.ErrSignatureMismatch if the parameters of fn don't match the operands
// exactly, and with library.ErrCoercionFailure if an operand can't be adjusted to its parameter.
func DtypeFunctionArgsBuilder(b *torchir.Builder, operands []*torchir.Value, fn *torchir.Function) ([]*torchir.Value, error) {
	desiredTypes := fn.ArgumentTypes()
	args := make([]*torchir.Value, 0, len(desiredTypes))
	for i, operand := range operands {
		if len(desiredTypes) == 0 {
			return nil, errors.Wrapf(library.ErrSignatureMismatch,
				"@%s has %d parameters, no parameter left for operand #%d (%s)", fn.Name, fn.NumArguments(), i, operand.Type())
		}
		if !IsTensorOrWrappedTensorType(operand.Type()) {
			arg, err := library.AdjustFunctionArg(b, operand, desiredTypes[0], nil)
			if err != nil {
				return nil, errors.WithMessagef(err, "operand #%d", i)
			}
			args = append(args, arg)
			desiredTypes = desiredTypes[1:]
			continue
		}

		if len(desiredTypes) < 2 {
			return nil, errors.Wrapf(library.ErrSignatureMismatch,
				"@%s has %d parameters, no (rank, dtype) parameters left for operand #%d (%s)", fn.Name, fn.NumArguments(), i, operand.Type())
		}
		rank, err := library.AdjustFunctionArg(b, operand, desiredTypes[0], rankArgAdjuster)
		if err != nil {
			return nil, errors.WithMessagef(err, "rank of operand #%d", i)
		}
		dtype, err := library.AdjustFunctionArg(b, operand, desiredTypes[1], dtypeArgAdjuster)
		if err != nil {
			return nil, errors.WithMessagef(err, "dtype of operand #%d", i)
		}
		args = append(args, rank, dtype)
		desiredTypes = desiredTypes[2:]
	}
	if len(desiredTypes) > 0 {
		return nil, errors.Wrapf(library.ErrSignatureMismatch,
			"@%s has %d parameters, %d of them left unused by %d operands", fn.Name, fn.NumArguments(), len(desiredTypes), len(operands))
	}
	return args, nil
}

// rankArgAdjuster passes a tensor as its rank, `len(size(tensor))`.
func rankArgAdjuster(b *torchir.Builder, operand *torchir.Value, desiredType torchir.Type) *torchir.Value {
	if _, ok := desiredType.(torchir.IntType); ok && torchir.IsTensor(operand.Type()) {
		return b.LenT(b.Size(operand), desiredType)
	}
	return operand
}

// dtypeArgAdjuster passes a tensor as its dtype, `prim.dtype(tensor)`.
func dtypeArgAdjuster(b *torchir.Builder, operand *torchir.Value, desiredType torchir.Type) *torchir.Value {
	if _, ok := desiredType.(torchir.IntType); ok && torchir.IsTensor(operand.Type()) {
		return b.PrimDtype(operand, desiredType)
	}
	return operand
}
