package dtypes

import "github.com/pkg/errors"

// ScalarTypeCode returns the PyTorch `ScalarType` enum value for the dtype: this is the integer
// returned by `prim.dtype` and the "dtype-code" consumed and produced by dtype functions.
//
// It returns -1 for InvalidDType.
func (dtype DType) ScalarTypeCode() int64 {
	switch dtype {
	case Uint8:
		return 0
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32:
		return 3
	case Int64:
		return 4
	case Float16:
		return 5
	case Float32:
		return 6
	case Float64:
		return 7
	case Complex64:
		return 9
	case Complex128:
		return 10
	case Bool:
		return 11
	case BFloat16:
		return 15
	default:
		return -1
	}
}

// FromScalarTypeCode is the inverse of DType.ScalarTypeCode.
func FromScalarTypeCode(code int64) (DType, error) {
	for dtype := range dtypeNames {
		if dtype != InvalidDType && dtype.ScalarTypeCode() == code {
			return dtype, nil
		}
	}
	return InvalidDType, errors.Errorf("ScalarType code %d has no corresponding dtype", code)
}
