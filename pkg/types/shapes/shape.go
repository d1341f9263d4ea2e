// Package shapes describes the sizes and element type a tensor type knows about.
//
// Torch tensor types are refined progressively: a tensor may know nothing about its
// sizes (unranked), know its rank but not all of its dimensions (DimUnknown), or be
// fully static. The same holds for its element type (dtypes.InvalidDType when unknown).
package shapes

import (
	"slices"
	"strings"

	"github.com/gomlx/go-torchir/pkg/types/dtypes"
)

// DimUnknown marks a dimension whose size is not known statically. It is printed as "?".
const DimUnknown = -1

// Shape holds the static knowledge about a tensor: element type and sizes.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int

	// Ranked is false when the rank itself is unknown, in which case Dimensions is ignored.
	Ranked bool
}

// Make returns a ranked shape with the given dtype and dimensions.
// Use DimUnknown for dimensions not known statically.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	return Shape{DType: dtype, Dimensions: slices.Clone(dimensions), Ranked: true}
}

// MakeUnranked returns a shape whose rank is not known.
func MakeUnranked(dtype dtypes.DType) Shape {
	return Shape{DType: dtype}
}

// Rank returns the number of dimensions, or -1 if the shape is unranked.
func (s Shape) Rank() int {
	if !s.Ranked {
		return -1
	}
	return len(s.Dimensions)
}

// IsScalar returns whether the shape is ranked with rank 0.
func (s Shape) IsScalar() bool {
	return s.Ranked && len(s.Dimensions) == 0
}

// HasDType returns whether the element type is known.
func (s Shape) HasDType() bool {
	return s.DType != dtypes.InvalidDType
}

// IsStatic returns whether the rank and all dimensions are known.
func (s Shape) IsStatic() bool {
	if !s.Ranked {
		return false
	}
	return !slices.Contains(s.Dimensions, DimUnknown)
}

// IsUnknown returns whether nothing is known about the shape: neither sizes nor dtype.
func (s Shape) IsUnknown() bool {
	return !s.Ranked && !s.HasDType()
}

// Size returns the number of elements, or -1 if it is not statically known.
func (s Shape) Size() int {
	if !s.IsStatic() {
		return -1
	}
	size := 1
	for _, dim := range s.Dimensions {
		size *= dim
	}
	return size
}

// Equal compares two shapes. Two unranked shapes are equal if their dtypes are.
func (s Shape) Equal(other Shape) bool {
	if s.DType != other.DType || s.Ranked != other.Ranked {
		return false
	}
	if !s.Ranked {
		return true
	}
	return slices.Equal(s.Dimensions, other.Dimensions)
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	s.Dimensions = slices.Clone(s.Dimensions)
	return s
}

// String implements fmt.Stringer, using the same format as ToTorch.
func (s Shape) String() string {
	var sb strings.Builder
	_ = s.WriteTorch(&sb)
	return sb.String()
}
