package library

import (
	"testing"

	"github.com/gomlx/go-torchir/pkg/torchir"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLibrary = `
func.func @__torch_mlir_dtype_fn.aten.tanh(%arg0: !torch.vtensor) -> !torch.int {
  %0 = "torch.prim.dtype"(%arg0) : (!torch.vtensor) -> !torch.int
  "func.return"(%0) : (!torch.int) -> ()
}

func.func @__torch_mlir_dtype_fn.aten.topk(%arg0: !torch.vtensor, %arg1: !torch.int) -> !torch.tuple<int, int> {
  %0 = "torch.prim.dtype"(%arg0) : (!torch.vtensor) -> !torch.int
  %1 = "torch.prim.TupleConstruct"(%0, %arg1) : (!torch.int, !torch.int) -> !torch.tuple<int, int>
  "func.return"(%1) : (!torch.tuple<int, int>) -> ()
}
`

const testProgram = `func.func @forward(%arg0: !torch.vtensor<[2],f32>) -> !torch.vtensor<[2],f32> {
  %0 = "torch.aten.tanh"(%arg0) : (!torch.vtensor<[2],f32>) -> !torch.vtensor<[2],f32>
  %1 = "torch.aten.neg"(%0) : (!torch.vtensor<[2],f32>) -> !torch.vtensor<[2],f32>
  "func.return"(%1) : (!torch.vtensor<[2],f32>) -> ()
}
`

// adjustInOrder passes each operand to the parameter in the same position.
func adjustInOrder(b *torchir.Builder, operands []*torchir.Value, fn *torchir.Function) ([]*torchir.Value, error) {
	params := fn.ArgumentTypes()
	if len(params) != len(operands) {
		return nil, errors.Wrapf(ErrSignatureMismatch, "%d operands for %d parameters", len(operands), len(params))
	}
	args := make([]*torchir.Value, len(operands))
	for i, operand := range operands {
		var err error
		if args[i], err = AdjustFunctionArg(b, operand, params[i], nil); err != nil {
			return nil, err
		}
	}
	return args, nil
}

func findOp(module *torchir.Module, name string) *torchir.Operation {
	var found *torchir.Operation
	module.Walk(func(op *torchir.Operation) torchir.WalkResult {
		if op.Name == name {
			found = op
			return torchir.WalkInterrupt
		}
		return torchir.WalkAdvance
	})
	return found
}

func TestWrapWithCalculateOp(t *testing.T) {
	lib := must.M1(Parse(testLibrary))

	t.Run("wrapped", func(t *testing.T) {
		module := must.M1(torchir.Parse(testProgram))
		needed := NewNeededFunctions()
		tanh := findOp(module, "torch.aten.tanh")
		wrapped, err := WrapWithCalculateOpIfLibraryFunctionAvailable(tanh, lib, DtypeFunction, needed, adjustInOrder)
		require.NoError(t, err)
		require.True(t, wrapped)
		assert.Equal(t, []string{"__torch_mlir_dtype_fn.aten.tanh"}, needed.Names())

		want := `func.func @forward(%arg0: !torch.vtensor<[2],f32>) -> !torch.vtensor<[2],f32> {
  %0 = "torch.dtype.calculate"() ({
    %1 = "torch.aten.tanh"(%arg0) : (!torch.vtensor<[2],f32>) -> !torch.vtensor<[2],f32>
    "torch.dtype.calculate.yield"(%1) : (!torch.vtensor<[2],f32>) -> ()
  }, {
    %2 = "torch.tensor_static_info_cast"(%arg0) : (!torch.vtensor<[2],f32>) -> !torch.vtensor
    %3 = "func.call"(%2) {callee = @__torch_mlir_dtype_fn.aten.tanh} : (!torch.vtensor) -> !torch.int
    "torch.dtype.calculate.yield.dtypes"(%3) : (!torch.int) -> ()
  }) : () -> !torch.vtensor<[2],f32>
  %4 = "torch.aten.neg"(%0) : (!torch.vtensor<[2],f32>) -> !torch.vtensor<[2],f32>
  "func.return"(%4) : (!torch.vtensor<[2],f32>) -> ()
}
`
		assert.Equal(t, want, module.String())

		// The module only verifies once the library function is imported.
		require.Error(t, module.Verify())
		require.NoError(t, ImportLibraryFunctions(module, lib, needed))
		require.NoError(t, module.Verify())
	})

	t.Run("no library function", func(t *testing.T) {
		module := must.M1(torchir.Parse(testProgram))
		needed := NewNeededFunctions()
		wrapped, err := WrapWithCalculateOpIfLibraryFunctionAvailable(findOp(module, "torch.aten.neg"), lib, DtypeFunction, needed, adjustInOrder)
		require.NoError(t, err)
		assert.False(t, wrapped)
		assert.Equal(t, 0, needed.Len())
		assert.Equal(t, testProgram, module.String())

		// There are no shape functions in the library.
		wrapped, err = WrapWithCalculateOpIfLibraryFunctionAvailable(findOp(module, "torch.aten.tanh"), lib, ShapeFunction, needed, adjustInOrder)
		require.NoError(t, err)
		assert.False(t, wrapped)
	})

	t.Run("failure leaves the operation untouched", func(t *testing.T) {
		module := must.M1(torchir.Parse(testProgram))
		needed := NewNeededFunctions()
		failing := func(b *torchir.Builder, operands []*torchir.Value, fn *torchir.Function) ([]*torchir.Value, error) {
			b.ConstantInt(1)
			return nil, errors.Wrap(ErrCoercionFailure, "test")
		}
		wrapped, err := WrapWithCalculateOpIfLibraryFunctionAvailable(findOp(module, "torch.aten.tanh"), lib, DtypeFunction, needed, failing)
		require.Error(t, err)
		assert.False(t, wrapped)
		assert.True(t, errors.Is(err, ErrCoercionFailure))
		assert.Equal(t, 0, needed.Len())
		assert.Equal(t, testProgram, module.String())
		require.NoError(t, module.Verify())
	})

	t.Run("wrong number of arguments", func(t *testing.T) {
		module := must.M1(torchir.Parse(testProgram))
		tooMany := func(b *torchir.Builder, operands []*torchir.Value, fn *torchir.Function) ([]*torchir.Value, error) {
			return []*torchir.Value{operands[0], operands[0]}, nil
		}
		_, err := WrapWithCalculateOpIfLibraryFunctionAvailable(findOp(module, "torch.aten.tanh"), lib, DtypeFunction, NewNeededFunctions(), tooMany)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSignatureMismatch))
		assert.Equal(t, testProgram, module.String())
	})

	t.Run("tuple results", func(t *testing.T) {
		module := must.M1(torchir.Parse(`func.func @forward(%arg0: !torch.vtensor, %arg1: !torch.int) -> !torch.vtensor {
  %0:2 = "torch.aten.topk"(%arg0, %arg1) : (!torch.vtensor, !torch.int) -> (!torch.vtensor, !torch.vtensor)
  "func.return"(%0#1) : (!torch.vtensor) -> ()
}
`))
		needed := NewNeededFunctions()
		topk := findOp(module, "torch.aten.topk")
		wrapped, err := WrapWithCalculateOpIfLibraryFunctionAvailable(topk, lib, DtypeFunction, needed, adjustInOrder)
		require.NoError(t, err)
		require.True(t, wrapped)
		calculate := topk.ParentOp()
		require.Equal(t, torchir.OpDtypeCalculate, calculate.Name)
		assert.Equal(t, 2, calculate.NumResults())
		assert.Equal(t, []string{torchir.OpCall, torchir.OpPrimTupleUnpack, torchir.OpDtypeCalculateYieldDtypes},
			opNames(calculate.Region(1).Front()))
		assert.Equal(t, 2, calculate.Region(1).Front().Terminator().NumOperands())
		require.NoError(t, ImportLibraryFunctions(module, lib, needed))
		require.NoError(t, module.Verify())
	})
}
