package passes

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/go-torchir/pkg/torchir"
)

// IsTensorOrWrappedTensorType returns whether values of type t hold tensors: tensors themselves,
// and optionals or lists of tensor-holding types.
//
// Tuples are not supported by the dtype function calling convention, and it panics if given one.
func IsTensorOrWrappedTensorType(t torchir.Type) bool {
	switch tt := t.(type) {
	case torchir.TensorType:
		return true
	case torchir.OptionalType:
		return IsTensorOrWrappedTensorType(tt.Elem)
	case torchir.ListType:
		return IsTensorOrWrappedTensorType(tt.Elem)
	case torchir.TupleType:
		exceptions.Panicf("IsTensorOrWrappedTensorType(%s): tuples are not supported by dtype functions", t)
	}
	return false
}
