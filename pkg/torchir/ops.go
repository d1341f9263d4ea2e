package torchir

import "github.com/gomlx/go-torchir/pkg/types/dtypes"

// Names of the operations created by this package and by the passes.
const (
	OpCall   = "func.call"
	OpReturn = "func.return"

	OpOperator      = "torch.operator"
	OpDerefine      = "torch.derefine"
	OpConstantNone  = "torch.constant.none"
	OpConstantInt   = "torch.constant.int"
	OpConstantFloat = "torch.constant.float"
	OpConstantBool  = "torch.constant.bool"
	OpConstantStr   = "torch.constant.str"
	OpTensorLiteral = "torch.vtensor.literal"

	OpTensorStaticInfoCast = "torch.tensor_static_info_cast"

	OpSize        = "torch.aten.size"
	OpLenT        = "torch.aten.len.t"
	OpFloatScalar = "torch.aten.Float.Scalar"
	OpIs          = "torch.aten.__is__"
	OpGetItemT    = "torch.aten.__getitem__.t"
	OpAppendT     = "torch.aten.append.t"

	OpPrimDtype          = "torch.prim.dtype"
	OpPrimIf             = "torch.prim.If"
	OpPrimIfYield        = "torch.prim.If.yield"
	OpPrimUncheckedCast  = "torch.prim.unchecked_cast"
	OpPrimListConstruct  = "torch.prim.ListConstruct"
	OpPrimLoop           = "torch.prim.Loop"
	OpPrimLoopCondition  = "torch.prim.Loop.condition"
	OpPrimTupleUnpack    = "torch.prim.TupleUnpack"
	OpPrimTupleConstruct = "torch.prim.TupleConstruct"

	OpDtypeCalculate            = "torch.dtype.calculate"
	OpDtypeCalculateYield       = "torch.dtype.calculate.yield"
	OpDtypeCalculateYieldDtypes = "torch.dtype.calculate.yield.dtypes"
	OpShapeCalculate            = "torch.shape.calculate"
	OpShapeCalculateYield       = "torch.shape.calculate.yield"
	OpShapeCalculateYieldShapes = "torch.shape.calculate.yield.shapes"
)

// Attribute names.
const (
	AttrCallee = "callee"
	AttrValue  = "value"
	AttrName   = "name"
)

// ConstantNone creates a `torch.constant.none`.
func (b *Builder) ConstantNone() *Value {
	return b.Create(OpConstantNone, []Type{NoneType{}}, nil, nil, 0).Result(0)
}

// ConstantInt creates a `torch.constant.int`.
func (b *Builder) ConstantInt(value int64) *Value {
	return b.Create(OpConstantInt, []Type{IntType{}}, nil, map[string]Attribute{AttrValue: value}, 0).Result(0)
}

// ConstantDType creates a `torch.constant.int` holding the PyTorch ScalarType code of dtype,
// which is how dtypes are passed to operations like `torch.aten.to.dtype`.
func (b *Builder) ConstantDType(dtype dtypes.DType) *Value {
	return b.ConstantInt(dtype.ScalarTypeCode())
}

// ConstantFloat creates a `torch.constant.float`.
func (b *Builder) ConstantFloat(value float64) *Value {
	return b.Create(OpConstantFloat, []Type{FloatType{}}, nil, map[string]Attribute{AttrValue: value}, 0).Result(0)
}

// ConstantBool creates a `torch.constant.bool`.
func (b *Builder) ConstantBool(value bool) *Value {
	return b.Create(OpConstantBool, []Type{BoolType{}}, nil, map[string]Attribute{AttrValue: value}, 0).Result(0)
}

// ConstantStr creates a `torch.constant.str`.
func (b *Builder) ConstantStr(value string) *Value {
	return b.Create(OpConstantStr, []Type{StringType{}}, nil, map[string]Attribute{AttrValue: value}, 0).Result(0)
}

// TensorLiteral creates a `torch.vtensor.literal` holding the given elements.
func (b *Builder) TensorLiteral(elements DenseElements) *Value {
	t := VTensor(elements.DType, elements.Dimensions...)
	return b.Create(OpTensorLiteral, []Type{t}, nil, map[string]Attribute{AttrValue: elements}, 0).Result(0)
}

// Size creates `torch.aten.size`: the list of the sizes of a tensor.
func (b *Builder) Size(tensor *Value) *Value {
	return b.Create(OpSize, []Type{List(IntType{})}, []*Value{tensor}, nil, 0).Result(0)
}

// LenT creates `torch.aten.len.t`: the length of a list, of the given result type.
func (b *Builder) LenT(list *Value, resultType Type) *Value {
	return b.Create(OpLenT, []Type{resultType}, []*Value{list}, nil, 0).Result(0)
}

// PrimDtype creates `torch.prim.dtype`: the ScalarType code of a tensor, of the given result type.
func (b *Builder) PrimDtype(tensor *Value, resultType Type) *Value {
	return b.Create(OpPrimDtype, []Type{resultType}, []*Value{tensor}, nil, 0).Result(0)
}

// Derefine creates `torch.derefine`, which casts a value to a less refined type
// (e.g. `!torch.int` to `!torch.optional<int>`).
func (b *Builder) Derefine(value *Value, to Type) *Value {
	return b.Create(OpDerefine, []Type{to}, []*Value{value}, nil, 0).Result(0)
}

// TensorStaticInfoCast creates `torch.tensor_static_info_cast`, which changes the static
// information (shape and dtype) known about a tensor, not its contents.
func (b *Builder) TensorStaticInfoCast(tensor *Value, to TensorType) *Value {
	return b.Create(OpTensorStaticInfoCast, []Type{to}, []*Value{tensor}, nil, 0).Result(0)
}

// FloatScalar creates `torch.aten.Float.Scalar`.
func (b *Builder) FloatScalar(value *Value) *Value {
	return b.Create(OpFloatScalar, []Type{FloatType{}}, []*Value{value}, nil, 0).Result(0)
}

// Is creates `torch.aten.__is__`.
func (b *Builder) Is(lhs, rhs *Value) *Value {
	return b.Create(OpIs, []Type{BoolType{}}, []*Value{lhs, rhs}, nil, 0).Result(0)
}

// UncheckedCast creates `torch.prim.unchecked_cast`, which refines a value to the given type.
func (b *Builder) UncheckedCast(value *Value, to Type) *Value {
	return b.Create(OpPrimUncheckedCast, []Type{to}, []*Value{value}, nil, 0).Result(0)
}

// ListConstruct creates `torch.prim.ListConstruct`.
func (b *Builder) ListConstruct(listType ListType, elements ...*Value) *Value {
	return b.Create(OpPrimListConstruct, []Type{listType}, elements, nil, 0).Result(0)
}

// GetItemT creates `torch.aten.__getitem__.t`.
func (b *Builder) GetItemT(list, index *Value, elemType Type) *Value {
	return b.Create(OpGetItemT, []Type{elemType}, []*Value{list, index}, nil, 0).Result(0)
}

// AppendT creates `torch.aten.append.t`.
func (b *Builder) AppendT(list, element *Value) *Value {
	return b.Create(OpAppendT, []Type{list.Type()}, []*Value{list, element}, nil, 0).Result(0)
}

// Call creates a `func.call` to fn.
func (b *Builder) Call(fn *Function, args ...*Value) *Operation {
	return b.Create(OpCall, fn.ResultTypes, args, map[string]Attribute{AttrCallee: SymbolRef(fn.Name)}, 0)
}

// TupleUnpack creates `torch.prim.TupleUnpack`.
func (b *Builder) TupleUnpack(tuple *Value) []*Value {
	tt := tuple.Type().(TupleType)
	return b.Create(OpPrimTupleUnpack, tt.Elems, []*Value{tuple}, nil, 0).Results()
}

// TupleConstruct creates `torch.prim.TupleConstruct`.
func (b *Builder) TupleConstruct(elements ...*Value) *Value {
	return b.Create(OpPrimTupleConstruct, []Type{Tuple(valueTypes(elements)...)}, elements, nil, 0).Result(0)
}

// PrimIf creates a `torch.prim.If` with empty then (region 0) and else (region 1) regions,
// each with one empty block. Each block must be terminated with `torch.prim.If.yield`.
func (b *Builder) PrimIf(condition *Value, resultTypes ...Type) *Operation {
	op := b.Create(OpPrimIf, resultTypes, []*Value{condition}, nil, 2)
	op.Region(0).AddBlock()
	op.Region(1).AddBlock()
	return op
}

// PrimLoop creates a for-like `torch.prim.Loop` with no loop-carried values, whose body has
// one block with the iteration number as argument. The body must be terminated with
// `torch.prim.Loop.condition`.
func (b *Builder) PrimLoop(maxTripCount, initialCondition *Value) *Operation {
	op := b.Create(OpPrimLoop, nil, []*Value{maxTripCount, initialCondition}, nil, 1)
	op.Region(0).AddBlock(IntType{})
	return op
}
