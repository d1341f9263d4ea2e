package torchir

import (
	"slices"
	"strings"

	"github.com/gomlx/go-torchir/pkg/types/dtypes"
	"github.com/gomlx/go-torchir/pkg/types/shapes"
)

// Type is the type of a Value. It is a closed set: the implementations are the *Type
// structs defined in this file.
//
// Types are compared structurally with TypesEqual.
type Type interface {
	// String returns the full textual form, e.g. "!torch.list<int>".
	String() string

	// body returns the textual form without the "!torch." prefix, as used for
	// types nested in other types.
	body() string
}

// TensorType is a Torch tensor. ValueSemantics distinguishes `!torch.vtensor` (immutable
// value) from `!torch.tensor`.
type TensorType struct {
	Shape          shapes.Shape
	ValueSemantics bool
}

// OptionalType is `!torch.optional<T>`: either None or a value of type Elem.
type OptionalType struct{ Elem Type }

// ListType is `!torch.list<T>`.
type ListType struct{ Elem Type }

// TupleType is `!torch.tuple<T0, T1, ...>`.
type TupleType struct{ Elems []Type }

// UnionType is `!torch.union<T0, T1, ...>`.
type UnionType struct{ Elems []Type }

// Scalar and opaque types.
type (
	IntType    struct{}
	FloatType  struct{}
	BoolType   struct{}
	NumberType struct{}
	NoneType   struct{}
	StringType struct{}
	DeviceType struct{}
	AnyType    struct{}
)

// VTensor returns a value-semantics tensor type with the given dtype and dimensions.
func VTensor(dtype dtypes.DType, dimensions ...int) TensorType {
	return TensorType{Shape: shapes.Make(dtype, dimensions...), ValueSemantics: true}
}

// UnknownVTensor returns a value-semantics tensor type with unknown sizes and dtype.
func UnknownVTensor() TensorType {
	return TensorType{ValueSemantics: true}
}

// Optional returns `!torch.optional<elem>`.
func Optional(elem Type) OptionalType { return OptionalType{Elem: elem} }

// List returns `!torch.list<elem>`.
func List(elem Type) ListType { return ListType{Elem: elem} }

// Tuple returns `!torch.tuple<elems...>`.
func Tuple(elems ...Type) TupleType { return TupleType{Elems: slices.Clone(elems)} }

// Union returns `!torch.union<elems...>`.
func Union(elems ...Type) UnionType { return UnionType{Elems: slices.Clone(elems)} }

// TypesEqual returns whether the two types are structurally the same.
func TypesEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.body() == b.body()
}

func typeString(t Type) string { return "!torch." + t.body() }

func joinBodies(name string, elems []Type) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = e.body()
	}
	return name + "<" + strings.Join(parts, ", ") + ">"
}

func (t TensorType) body() string {
	name := "tensor"
	if t.ValueSemantics {
		name = "vtensor"
	}
	if params := t.Shape.ToTorch(); params != "" {
		return name + "<" + params + ">"
	}
	return name
}

func (t OptionalType) body() string { return "optional<" + t.Elem.body() + ">" }
func (t ListType) body() string     { return "list<" + t.Elem.body() + ">" }
func (t TupleType) body() string    { return joinBodies("tuple", t.Elems) }
func (t UnionType) body() string    { return joinBodies("union", t.Elems) }
func (IntType) body() string        { return "int" }
func (FloatType) body() string      { return "float" }
func (BoolType) body() string       { return "bool" }
func (NumberType) body() string     { return "number" }
func (NoneType) body() string       { return "none" }
func (StringType) body() string     { return "str" }
func (DeviceType) body() string     { return "Device" }
func (AnyType) body() string        { return "any" }

func (t TensorType) String() string   { return typeString(t) }
func (t OptionalType) String() string { return typeString(t) }
func (t ListType) String() string     { return typeString(t) }
func (t TupleType) String() string    { return typeString(t) }
func (t UnionType) String() string    { return typeString(t) }
func (t IntType) String() string      { return typeString(t) }
func (t FloatType) String() string    { return typeString(t) }
func (t BoolType) String() string     { return typeString(t) }
func (t NumberType) String() string   { return typeString(t) }
func (t NoneType) String() string     { return typeString(t) }
func (t StringType) String() string   { return typeString(t) }
func (t DeviceType) String() string   { return typeString(t) }
func (t AnyType) String() string      { return typeString(t) }

// IsTensor returns whether t is a tensor type (with or without value semantics).
func IsTensor(t Type) bool {
	_, ok := t.(TensorType)
	return ok
}

// IsNone returns whether t is `!torch.none`.
func IsNone(t Type) bool {
	_, ok := t.(NoneType)
	return ok
}
