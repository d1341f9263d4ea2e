package library

import (
	"github.com/gomlx/go-torchir/pkg/torchir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ArgsBuilder builds the arguments of the call to the library function fn, from the operands of
// the operation being wrapped. New operations must be created with b, which is positioned in the
// calculation region of the wrapping construct.
type ArgsBuilder func(b *torchir.Builder, operands []*torchir.Value, fn *torchir.Function) ([]*torchir.Value, error)

// WrapWithCalculateOpIfLibraryFunctionAvailable wraps op in a `torch.dtype.calculate` (or
// `torch.shape.calculate` for ShapeFunction) construct, if the library has a function of the
// given kind for it. It returns whether op was wrapped.
//
// The construct takes the place of op: it has the same result types and all uses of op's
// results are redirected to it. Its first region holds op itself, followed by a yield of op's
// results. Its second region calls the library function with the arguments built by argsBuilder,
// and yields the dtypes (or shapes) it returns, unpacking them if they come as a tuple.
//
// If argsBuilder fails, op is left untouched and the error is returned. On success, the name of
// the library function is added to needed.
func WrapWithCalculateOpIfLibraryFunctionAvailable(op *torchir.Operation, lib *Library, kind Kind,
	needed *NeededFunctions, argsBuilder ArgsBuilder) (bool, error) {
	name := OperationFunctionName(kind, op)
	fn := lib.Function(name)
	if fn == nil {
		return false, nil
	}
	if len(fn.ResultTypes) != 1 {
		return false, errors.Wrapf(ErrBrokenLibrary, "@%s returns %d values, it must return exactly one", name, len(fn.ResultTypes))
	}

	calculate := torchir.NewBuilderBefore(op).Create(kind.CalculateOpName(), op.ResultTypes(), nil, nil, 2)
	if err := buildCalculation(calculate, op, fn, kind, argsBuilder); err != nil {
		if eraseErr := calculate.Erase(); eraseErr != nil {
			klog.Warningf("failed to clean up %q after error: %v", calculate.Name, eraseErr)
		}
		return false, errors.WithMessagef(err, "calling @%s for %q", name, op.Name)
	}

	for i, result := range op.Results() {
		if err := result.ReplaceAllUsesWith(calculate.Result(i)); err != nil {
			return false, err
		}
	}
	body := calculate.Region(0).AddBlock()
	op.MoveToEnd(body)
	torchir.NewBuilderAtEnd(body).Create(kind.yieldOpName(), nil, op.Results(), nil, 0)

	needed.Add(name)
	klog.V(1).Infof("wrapped %q in %q calling @%s", op.Name, calculate.Name, name)
	return true, nil
}

// buildCalculation fills the calculation region (the second one) of calculate.
func buildCalculation(calculate, op *torchir.Operation, fn *torchir.Function, kind Kind, argsBuilder ArgsBuilder) error {
	b := torchir.NewBuilderAtEnd(calculate.Region(1).AddBlock())
	args, err := argsBuilder(b, op.Operands(), fn)
	if err != nil {
		return err
	}
	if len(args) != fn.NumArguments() {
		return errors.Wrapf(ErrSignatureMismatch, "built %d arguments for %d parameters", len(args), fn.NumArguments())
	}
	for i, arg := range args {
		if want := fn.EntryBlock().Argument(i).Type(); !torchir.TypesEqual(arg.Type(), want) {
			return errors.Wrapf(ErrSignatureMismatch, "argument #%d has type %s, parameter is %s", i, arg.Type(), want)
		}
	}

	result := b.Call(fn, args...).Result(0)
	results := []*torchir.Value{result}
	if _, ok := result.Type().(torchir.TupleType); ok {
		results = b.TupleUnpack(result)
	}
	if len(results) != op.NumResults() {
		return errors.Wrapf(ErrBrokenLibrary, "@%s computes %d %ss for %d results", fn.Name, len(results), kind, op.NumResults())
	}
	b.Create(kind.yieldResultsOpName(), nil, results, nil, 0)
	return nil
}
