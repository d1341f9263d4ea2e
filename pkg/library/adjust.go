package library

import (
	"github.com/gomlx/go-torchir/pkg/torchir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ArgAdjuster is a transformation tried on an operand before it is generically adjusted to the
// type of a library function parameter. It returns the operand itself when it doesn't apply.
//
// It is also applied to the elements of lists and to the contents of optionals, so for instance
// an adjuster that turns a tensor into its rank also turns a `!torch.list<vtensor>` into a
// `!torch.list<int>` of ranks.
type ArgAdjuster func(b *torchir.Builder, operand *torchir.Value, desiredType torchir.Type) *torchir.Value

// AdjustFunctionArg emits, at the insertion point of b, the operations that convert operand to
// desiredType, and returns the converted value.
//
// It only does conversions that are valid for any value of the operand: derefinement into a wider
// type (`torch.derefine`), numeric widening (`torch.aten.Float.Scalar`), changes of the static
// information of tensors (`torch.tensor_static_info_cast`), and element-wise
// conversion of optionals and lists. The one exception is an optional passed where a
// non-optional is expected, which is cast with `torch.prim.unchecked_cast`: the library function
// declares that the value is present.
//
// It returns an error wrapping ErrCoercionFailure if there is no such conversion.
func AdjustFunctionArg(b *torchir.Builder, operand *torchir.Value, desiredType torchir.Type, base ArgAdjuster) (*torchir.Value, error) {
	if base != nil {
		operand = base(b, operand, desiredType)
	}
	operandType := operand.Type()
	if torchir.TypesEqual(operandType, desiredType) {
		return operand, nil
	}
	klog.V(2).Infof("adjusting %s to %s", operandType, desiredType)

	switch desired := desiredType.(type) {
	case torchir.AnyType:
		return b.Derefine(operand, desiredType), nil
	case torchir.NumberType:
		if isIntOrFloat(operandType) {
			return b.Derefine(operand, desiredType), nil
		}
	case torchir.UnionType:
		if isScalarUnion(desired) && containsType(desired, operandType) {
			return b.Derefine(operand, desiredType), nil
		}
	}

	// None is a valid value of any optional or union.
	if torchir.IsNone(operandType) {
		return b.Derefine(operand, desiredType), nil
	}

	if _, ok := operandType.(torchir.NumberType); ok {
		if _, ok := desiredType.(torchir.FloatType); ok {
			return b.FloatScalar(operand), nil
		}
	}

	if provided, ok := operandType.(torchir.OptionalType); ok {
		if desired, ok := desiredType.(torchir.OptionalType); ok {
			return adjustOptional(b, operand, provided, desired, base)
		}
	}

	if desired, ok := desiredType.(torchir.OptionalType); ok {
		adjusted, err := AdjustFunctionArg(b, operand, desired.Elem, base)
		if err != nil {
			return nil, err
		}
		return b.Derefine(adjusted, desiredType), nil
	}

	if provided, ok := operandType.(torchir.OptionalType); ok {
		return AdjustFunctionArg(b, b.UncheckedCast(operand, provided.Elem), desiredType, base)
	}

	if desired, ok := desiredType.(torchir.ListType); ok {
		provided, ok := operandType.(torchir.ListType)
		if !ok {
			return nil, errors.Wrapf(ErrCoercionFailure, "cannot pass %s as %s", operandType, desiredType)
		}
		return adjustList(b, operand, provided, desired, base)
	}

	if _, ok := desiredType.(torchir.FloatType); ok {
		if _, ok := operandType.(torchir.IntType); ok {
			return b.FloatScalar(operand), nil
		}
	}

	if _, ok := operandType.(torchir.TensorType); ok {
		if desired, ok := desiredType.(torchir.TensorType); ok {
			return b.TensorStaticInfoCast(operand, desired), nil
		}
	}
	return nil, errors.Wrapf(ErrCoercionFailure, "cannot pass %s as %s", operandType, desiredType)
}

// adjustOptional emits a `torch.prim.If` that yields None if the operand is None, and otherwise
// the adjusted contents of the operand.
func adjustOptional(b *torchir.Builder, operand *torchir.Value, provided, desired torchir.OptionalType, base ArgAdjuster) (*torchir.Value, error) {
	none := b.ConstantNone()
	isNone := b.Is(operand, none)
	primIf := b.PrimIf(isNone, desired)

	thenBuilder := torchir.NewBuilderAtEnd(primIf.Region(0).Front())
	thenBuilder.Create(torchir.OpPrimIfYield, nil, []*torchir.Value{thenBuilder.Derefine(none, desired)}, nil, 0)

	elseBuilder := torchir.NewBuilderAtEnd(primIf.Region(1).Front())
	present := elseBuilder.UncheckedCast(operand, provided.Elem)
	adjusted, err := AdjustFunctionArg(elseBuilder, present, desired, base)
	if err != nil {
		return nil, err
	}
	elseBuilder.Create(torchir.OpPrimIfYield, nil, []*torchir.Value{adjusted}, nil, 0)
	return primIf.Result(0), nil
}

// adjustList emits a `torch.prim.Loop` that appends each adjusted element of the operand to a
// new list.
func adjustList(b *torchir.Builder, operand *torchir.Value, provided, desired torchir.ListType, base ArgAdjuster) (*torchir.Value, error) {
	adjustedList := b.ListConstruct(desired)
	length := b.LenT(operand, torchir.IntType{})
	ctrue := b.ConstantBool(true)
	loop := b.PrimLoop(length, ctrue)

	body := loop.Region(0).Front()
	bodyBuilder := torchir.NewBuilderAtEnd(body)
	element := bodyBuilder.GetItemT(operand, body.Argument(0), provided.Elem)
	adjusted, err := AdjustFunctionArg(bodyBuilder, element, desired.Elem, base)
	if err != nil {
		return nil, errors.WithMessage(err, "list element")
	}
	bodyBuilder.AppendT(adjustedList, adjusted)
	bodyBuilder.Create(torchir.OpPrimLoopCondition, nil, []*torchir.Value{ctrue}, nil, 0)
	return adjustedList, nil
}

func isIntOrFloat(t torchir.Type) bool {
	switch t.(type) {
	case torchir.IntType, torchir.FloatType:
		return true
	}
	return false
}

// isScalarUnion returns whether the union only holds ints, floats and None.
func isScalarUnion(u torchir.UnionType) bool {
	for _, elem := range u.Elems {
		if !isIntOrFloat(elem) && !torchir.IsNone(elem) {
			return false
		}
	}
	return true
}

func containsType(u torchir.UnionType, t torchir.Type) bool {
	for _, elem := range u.Elems {
		if torchir.TypesEqual(elem, t) {
			return true
		}
	}
	return false
}
