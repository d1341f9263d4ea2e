package dtypes

import (
	"fmt"

	"github.com/pkg/errors"
)

// ToTorch returns the representation of the DType used in Torch-dialect tensor types,
// e.g. "f32" in `!torch.vtensor<[2,3],f32>`.
func (dtype DType) ToTorch() string {
	switch dtype {
	case Float64:
		return "f64"
	case Float32:
		return "f32"
	case Float16:
		return "f16"
	case BFloat16:
		return "bf16"
	case Int64:
		return "si64"
	case Int32:
		return "si32"
	case Int16:
		return "si16"
	case Int8:
		return "si8"
	case Uint8:
		return "ui8"
	case Bool:
		return "i1"
	case Complex64:
		return "complex<f32>"
	case Complex128:
		return "complex<f64>"
	case InvalidDType:
		return "unk"
	default:
		return fmt.Sprintf("unknown_dtype<%s>", dtype.String())
	}
}

var torchNameToDType = func() map[string]DType {
	m := make(map[string]DType, len(dtypeNames))
	for dtype := range dtypeNames {
		m[dtype.ToTorch()] = dtype
	}
	return m
}()

// FromTorch parses the Torch-dialect name of an element type (the inverse of ToTorch).
func FromTorch(name string) (DType, error) {
	dtype, ok := torchNameToDType[name]
	if !ok {
		return InvalidDType, errors.Errorf("unknown Torch element type %q", name)
	}
	return dtype, nil
}
