package passes

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/go-torchir/pkg/library"
	"github.com/gomlx/go-torchir/pkg/torchir"
	"github.com/gomlx/go-torchir/pkg/types/dtypes"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
}

const scenariosLibrary = `
func.func @__torch_mlir_dtype_fn.test.f(%arg0: !torch.int, %arg1: !torch.int, %arg2: !torch.int) -> !torch.int {
  "func.return"(%arg1) : (!torch.int) -> ()
}

func.func @__torch_mlir_dtype_fn.test.g(%arg0: !torch.int, %arg1: !torch.int) -> !torch.int {
  "func.return"(%arg1) : (!torch.int) -> ()
}

func.func @__torch_mlir_dtype_fn.test.h(%arg0: !torch.int) -> !torch.int {
  "func.return"(%arg0) : (!torch.int) -> ()
}

func.func @__torch_mlir_dtype_fn.test.tuple(%arg0: !torch.int) -> !torch.int {
  "func.return"(%arg0) : (!torch.int) -> ()
}
`

func opNames(block *torchir.Block) []string {
	var names []string
	for _, op := range block.Operations() {
		names = append(names, op.Name)
	}
	return names
}

func countOps(module *torchir.Module, name string) int {
	count := 0
	module.Walk(func(op *torchir.Operation) torchir.WalkResult {
		if op.Name == name {
			count++
		}
		return torchir.WalkAdvance
	})
	return count
}

func functionNames(module *torchir.Module) []string {
	var names []string
	for _, fn := range module.Functions() {
		names = append(names, fn.Name)
	}
	return names
}

func TestIsTensorOrWrappedTensorType(t *testing.T) {
	tensor := torchir.VTensor(dtypes.F32, 2)
	for _, tc := range []struct {
		t    torchir.Type
		want bool
	}{
		{tensor, true},
		{torchir.UnknownVTensor(), true},
		{torchir.Optional(tensor), true},
		{torchir.List(torchir.Optional(tensor)), true},
		{torchir.IntType{}, false},
		{torchir.Optional(torchir.IntType{}), false},
		{torchir.List(torchir.FloatType{}), false},
		{torchir.Union(tensor, torchir.IntType{}), false},
	} {
		assert.Equal(t, tc.want, IsTensorOrWrappedTensorType(tc.t), "IsTensorOrWrappedTensorType(%s)", tc.t)
	}

	assert.NotNil(t, exceptions.Try(func() { IsTensorOrWrappedTensorType(torchir.Tuple(tensor, tensor)) }))
	assert.NotNil(t, exceptions.Try(func() { IsTensorOrWrappedTensorType(torchir.Optional(torchir.Tuple(tensor))) }))
	assert.NotNil(t, exceptions.Try(func() { IsTensorOrWrappedTensorType(torchir.Tuple()) }))
}

func TestScenarios(t *testing.T) {
	lib := must.M1(library.Parse(scenariosLibrary))

	t.Run("tensor and int", func(t *testing.T) {
		module := must.M1(torchir.Parse(`func.func @forward(%arg0: !torch.vtensor<[2,3],f32>, %arg1: !torch.int) -> !torch.vtensor<[2,3],f32> {
  %0 = "torch.test.f"(%arg0, %arg1) : (!torch.vtensor<[2,3],f32>, !torch.int) -> !torch.vtensor<[2,3],f32>
  "func.return"(%0) : (!torch.vtensor<[2,3],f32>) -> ()
}
`))
		require.NoError(t, ReifyDtypeCalculations(module, lib))
		want := `func.func private @__torch_mlir_dtype_fn.test.f(%arg0: !torch.int, %arg1: !torch.int, %arg2: !torch.int) -> !torch.int {
  "func.return"(%arg1) : (!torch.int) -> ()
}

func.func @forward(%arg0: !torch.vtensor<[2,3],f32>, %arg1: !torch.int) -> !torch.vtensor<[2,3],f32> {
  %0 = "torch.dtype.calculate"() ({
    %1 = "torch.test.f"(%arg0, %arg1) : (!torch.vtensor<[2,3],f32>, !torch.int) -> !torch.vtensor<[2,3],f32>
    "torch.dtype.calculate.yield"(%1) : (!torch.vtensor<[2,3],f32>) -> ()
  }, {
    %2 = "torch.aten.size"(%arg0) : (!torch.vtensor<[2,3],f32>) -> !torch.list<int>
    %3 = "torch.aten.len.t"(%2) : (!torch.list<int>) -> !torch.int
    %4 = "torch.prim.dtype"(%arg0) : (!torch.vtensor<[2,3],f32>) -> !torch.int
    %5 = "func.call"(%3, %4, %arg1) {callee = @__torch_mlir_dtype_fn.test.f} : (!torch.int, !torch.int, !torch.int) -> !torch.int
    "torch.dtype.calculate.yield.dtypes"(%5) : (!torch.int) -> ()
  }) : () -> !torch.vtensor<[2,3],f32>
  "func.return"(%0) : (!torch.vtensor<[2,3],f32>) -> ()
}
`
		assert.Equal(t, want, module.String())
		require.NoError(t, module.Verify())
	})

	t.Run("optional tensor", func(t *testing.T) {
		module := must.M1(torchir.Parse(`func.func @forward(%arg0: !torch.optional<vtensor>) -> !torch.vtensor {
  %0 = "torch.test.g"(%arg0) : (!torch.optional<vtensor>) -> !torch.vtensor
  "func.return"(%0) : (!torch.vtensor) -> ()
}
`))
		require.NoError(t, ReifyDtypeCalculations(module, lib))
		require.NoError(t, module.Verify())
		forward := module.LookupFunction("forward")
		calculate := forward.EntryBlock().Operations()[0]
		require.Equal(t, torchir.OpDtypeCalculate, calculate.Name)
		calculation := calculate.Region(1).Front()
		assert.Equal(t, []string{
			torchir.OpPrimUncheckedCast, torchir.OpSize, torchir.OpLenT,
			torchir.OpPrimUncheckedCast, torchir.OpPrimDtype,
			torchir.OpCall, torchir.OpDtypeCalculateYieldDtypes,
		}, opNames(calculation))
		call := calculation.Operations()[5]
		require.Equal(t, 2, call.NumOperands())
		assert.Equal(t, torchir.OpLenT, call.Operand(0).DefiningOp().Name)
		assert.Equal(t, torchir.OpPrimDtype, call.Operand(1).DefiningOp().Name)
	})

	t.Run("no library function", func(t *testing.T) {
		program := `func.func @forward(%arg0: !torch.vtensor, %arg1: !torch.int) -> !torch.vtensor {
  %0 = "torch.test.unknown"(%arg0, %arg1) : (!torch.vtensor, !torch.int) -> !torch.vtensor
  "func.return"(%0) : (!torch.vtensor) -> ()
}
`
		module := must.M1(torchir.Parse(program))
		require.NoError(t, ReifyDtypeCalculations(module, lib))
		assert.Equal(t, program, module.String())
		assert.Equal(t, []string{"forward"}, functionNames(module))
	})

	t.Run("too few parameters", func(t *testing.T) {
		module := must.M1(torchir.Parse(`func.func @forward(%arg0: !torch.vtensor, %arg1: !torch.int) -> !torch.vtensor {
  %0 = "torch.test.f"(%arg0, %arg1) : (!torch.vtensor, !torch.int) -> !torch.vtensor
  %1 = "torch.test.h"(%0) : (!torch.vtensor) -> !torch.vtensor
  "func.return"(%1) : (!torch.vtensor) -> ()
}
`))
		err := ReifyDtypeCalculations(module, lib)
		require.Error(t, err)
		assert.True(t, errors.Is(err, library.ErrSignatureMismatch), "unexpected error: %v", err)
		assert.Equal(t, []string{"forward"}, functionNames(module), "no library function should be imported")
		// No rollback: the first operation remains wrapped, the failing one is untouched.
		assert.Equal(t, 1, countOps(module, torchir.OpDtypeCalculate))
		assert.Equal(t, []string{torchir.OpDtypeCalculate, "torch.test.h", torchir.OpReturn},
			opNames(module.LookupFunction("forward").EntryBlock()))
	})

	t.Run("too many parameters", func(t *testing.T) {
		module := must.M1(torchir.Parse(`func.func @forward(%arg0: !torch.vtensor) -> !torch.vtensor {
  %0 = "torch.test.f"(%arg0) : (!torch.vtensor) -> !torch.vtensor
  "func.return"(%0) : (!torch.vtensor) -> ()
}
`))
		err := ReifyDtypeCalculations(module, lib)
		require.Error(t, err)
		assert.True(t, errors.Is(err, library.ErrSignatureMismatch), "unexpected error: %v", err)
	})

	t.Run("coercion failure", func(t *testing.T) {
		module := must.M1(torchir.Parse(`func.func @forward(%arg0: !torch.str) -> !torch.vtensor {
  %0 = "torch.test.h"(%arg0) : (!torch.str) -> !torch.vtensor
  "func.return"(%0) : (!torch.vtensor) -> ()
}
`))
		err := ReifyDtypeCalculations(module, lib)
		require.Error(t, err)
		assert.True(t, errors.Is(err, library.ErrCoercionFailure), "unexpected error: %v", err)
	})

	t.Run("tuple operand", func(t *testing.T) {
		module := must.M1(torchir.Parse(`func.func @forward(%arg0: !torch.tuple<vtensor, vtensor>) -> !torch.vtensor {
  %0 = "torch.test.tuple"(%arg0) : (!torch.tuple<vtensor, vtensor>) -> !torch.vtensor
  "func.return"(%0) : (!torch.vtensor) -> ()
}
`))
		assert.NotNil(t, exceptions.Try(func() { _ = ReifyDtypeCalculations(module, lib) }))
	})
}

// program uses most of the operations of the default library.
const program = `func.func @forward(%arg0: !torch.vtensor<[2,3],f32>, %arg1: !torch.vtensor<[3,4],f32>, %arg2: !torch.vtensor<[2,3],si64>) -> !torch.vtensor<[4],f32> {
  %0 = "torch.constant.int"() {value = 1} : () -> !torch.int
  %1 = "torch.aten.tanh"(%arg0) : (!torch.vtensor<[2,3],f32>) -> !torch.vtensor<[2,3],f32>
  %2 = "torch.aten.add.Tensor"(%1, %arg2, %0) : (!torch.vtensor<[2,3],f32>, !torch.vtensor<[2,3],si64>, !torch.int) -> !torch.vtensor<[2,3],f32>
  %3 = "torch.aten.mm"(%2, %arg1) : (!torch.vtensor<[2,3],f32>, !torch.vtensor<[3,4],f32>) -> !torch.vtensor<[2,4],f32>
  %4 = "torch.constant.none"() : () -> !torch.none
  %5 = "torch.aten.sum"(%3, %4) : (!torch.vtensor<[2,4],f32>, !torch.none) -> !torch.vtensor
  %6 = "torch.prim.ListConstruct"(%1, %2) : (!torch.vtensor<[2,3],f32>, !torch.vtensor<[2,3],f32>) -> !torch.list<vtensor>
  %7 = "torch.aten.cat"(%6, %0) : (!torch.list<vtensor>, !torch.int) -> !torch.vtensor<[4,3],f32>
  %8 = "torch.constant.bool"() {value = false} : () -> !torch.bool
  %9:2 = "torch.aten.max.dim"(%7, %0, %8) : (!torch.vtensor<[4,3],f32>, !torch.int, !torch.bool) -> (!torch.vtensor<[4],f32>, !torch.vtensor<[4],si64>)
  "func.return"(%9#0) : (!torch.vtensor<[4],f32>) -> ()
}
`

func TestReifyDtypeCalculations(t *testing.T) {
	module := must.M1(torchir.Parse(program))
	original := module.String()
	lib := library.Default()

	require.NoError(t, ReifyDtypeCalculations(module, lib))
	require.NoError(t, module.Verify())
	assert.Equal(t, 6, countOps(module, torchir.OpDtypeCalculate))
	assert.Equal(t, []string{
		"__torch_mlir_dtype_fn.aten.tanh",
		"__torch_mlir_dtype_fn.aten.add.Tensor",
		"__torch_mlir_dtype_fn.aten.mm",
		"__torch_mlir_dtype_fn.aten.sum",
		"__torch_mlir_dtype_fn.aten.cat",
		"__torch_mlir_dtype_fn.aten.max.dim",
		"__torch_mlir_dtype_helper.promote_int_to_float",
		"__torch_mlir_dtype_helper.promote_dtypes",
		"__torch_mlir_dtype_helper.is_integer_dtype",
		"forward",
	}, functionNames(module))

	// Lists of tensors are passed as lists of ranks and lists of dtypes.
	assert.Equal(t, 2, countOps(module, torchir.OpPrimLoop))
	// Tuple results of dtype functions are unpacked.
	assert.Equal(t, 1, countOps(module, torchir.OpPrimTupleUnpack))

	// A second run doesn't change anything.
	reified := module.String()
	require.NoError(t, ReifyDtypeCalculations(module, lib))
	assert.Equal(t, reified, module.String())

	// Shape calculations are added inside the dtype calculations.
	require.NoError(t, ReifyShapeCalculations(module, lib))
	require.NoError(t, module.Verify())
	assert.Equal(t, 4, countOps(module, torchir.OpShapeCalculate))
	assert.Equal(t, 6, countOps(module, torchir.OpDtypeCalculate))

	require.NoError(t, DropAbstractInterpCalculations(module))
	require.NoError(t, module.Verify())
	assert.Equal(t, original, module.String())
}

func TestReifyShapeCalculations(t *testing.T) {
	module := must.M1(torchir.Parse(`func.func @forward(%arg0: !torch.vtensor<[2,3],f32>, %arg1: !torch.int) -> !torch.vtensor {
  %0 = "torch.aten.tanh"(%arg0) : (!torch.vtensor<[2,3],f32>) -> !torch.vtensor<[2,3],f32>
  %1 = "torch.aten.add.Tensor"(%0, %0, %arg1) : (!torch.vtensor<[2,3],f32>, !torch.vtensor<[2,3],f32>, !torch.int) -> !torch.vtensor
  "func.return"(%1) : (!torch.vtensor) -> ()
}
`))
	require.NoError(t, ReifyShapeCalculations(module, library.Default()))
	require.NoError(t, module.Verify())
	assert.Equal(t, []string{
		"__torch_mlir_shape_fn.aten.tanh",
		"__torch_mlir_shape_fn.aten.add.Tensor",
		"__torch_mlir_shape_helper.broadcast",
		"forward",
	}, functionNames(module))

	forward := module.LookupFunction("forward")
	ops := forward.EntryBlock().Operations()
	require.Len(t, ops, 3)
	assert.Equal(t, []string{torchir.OpSize, torchir.OpCall, torchir.OpShapeCalculateYieldShapes},
		opNames(ops[0].Region(1).Front()))
	// The int alpha is passed to a float parameter.
	assert.Equal(t, []string{torchir.OpSize, torchir.OpSize, torchir.OpFloatScalar, torchir.OpCall, torchir.OpShapeCalculateYieldShapes},
		opNames(ops[1].Region(1).Front()))
}

func TestDropAbstractInterpCalculations(t *testing.T) {
	module := must.M1(torchir.Parse(program))
	original := module.String()
	require.NoError(t, DropAbstractInterpCalculations(module))
	assert.Equal(t, original, module.String())

	require.NoError(t, ReifyShapeCalculations(module, library.Default()))
	assert.NotEqual(t, original, module.String())
	require.NoError(t, DropAbstractInterpCalculations(module))
	assert.Equal(t, original, module.String())
	assert.Equal(t, []string{"forward"}, functionNames(module))
}

func TestPipeline(t *testing.T) {
	assert.Equal(t, []string{
		DropAbstractInterpCalculationsName,
		ReifyDtypeCalculationsName,
		ReifyShapeCalculationsName,
	}, Names())

	pipeline, err := ParsePipeline(" torch-reify-dtype-calculations,torch-reify-shape-calculations,,torch-drop-abstract-interp-calculations", Config{})
	require.NoError(t, err)
	pipeline.Verify = true
	assert.Equal(t, []string{ReifyDtypeCalculationsName, ReifyShapeCalculationsName, DropAbstractInterpCalculationsName}, pipeline.Names())

	module := must.M1(torchir.Parse(program))
	original := module.String()
	require.NoError(t, pipeline.Run(module))
	assert.Equal(t, original, module.String())

	_, err = ParsePipeline("torch-reify-dtype-calculations,canonicalize", Config{})
	require.ErrorContains(t, err, `unknown pass "canonicalize"`)
	_, err = ParsePipeline(" , ", Config{})
	require.Error(t, err)

	// Failures stop the pipeline and name the pass.
	lib := must.M1(library.Parse(scenariosLibrary))
	pipeline = must.M1(ParsePipeline(ReifyDtypeCalculationsName, Config{Library: lib}))
	module = must.M1(torchir.Parse(`func.func @forward(%arg0: !torch.vtensor) -> !torch.vtensor {
  %0 = "torch.test.h"(%arg0) : (!torch.vtensor) -> !torch.vtensor
  "func.return"(%0) : (!torch.vtensor) -> ()
}
`))
	err = pipeline.Run(module)
	require.ErrorContains(t, err, "pass "+ReifyDtypeCalculationsName)
	assert.True(t, errors.Is(err, library.ErrSignatureMismatch))
}

func TestReifyToDtype(t *testing.T) {
	module := torchir.NewModule()
	result := torchir.VTensor(dtypes.F16, 2)
	fn := must.M1(module.NewFunction("forward", []torchir.Type{torchir.VTensor(dtypes.F32, 2)}, []torchir.Type{result}))
	b := torchir.NewBuilderAtEnd(fn.EntryBlock())
	dtype := b.ConstantDType(dtypes.F16)
	cfalse := b.ConstantBool(false)
	none := b.ConstantNone()
	to := b.Create("torch.aten.to.dtype", []torchir.Type{result},
		[]*torchir.Value{fn.Arguments()[0], dtype, cfalse, cfalse, none}, nil, 0)
	fn.Return(to.Result(0))

	require.NoError(t, ReifyDtypeCalculations(module, library.Default()))
	require.NoError(t, module.Verify())
	assert.Equal(t, int64(5), dtype.DefiningOp().Attributes[torchir.AttrValue])
	calculate := to.ParentOp()
	require.Equal(t, torchir.OpDtypeCalculate, calculate.Name)
	// The memory format (None) is passed as a !torch.any.
	assert.Equal(t, []string{
		torchir.OpSize, torchir.OpLenT, torchir.OpPrimDtype, torchir.OpDerefine,
		torchir.OpCall, torchir.OpDtypeCalculateYieldDtypes,
	}, opNames(calculate.Region(1).Front()))
}
