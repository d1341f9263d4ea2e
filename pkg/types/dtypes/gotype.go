package dtypes

import (
	"reflect"

	"github.com/x448/float16"
)

var (
	float16Type = reflect.TypeOf(float16.Float16(0))

	goTypes = map[DType]reflect.Type{
		Bool:       reflect.TypeOf(false),
		Int8:       reflect.TypeOf(int8(0)),
		Int16:      reflect.TypeOf(int16(0)),
		Int32:      reflect.TypeOf(int32(0)),
		Int64:      reflect.TypeOf(int64(0)),
		Uint8:      reflect.TypeOf(uint8(0)),
		Float16:    float16Type,
		Float32:    reflect.TypeOf(float32(0)),
		Float64:    reflect.TypeOf(float64(0)),
		Complex64:  reflect.TypeOf(complex64(0)),
		Complex128: reflect.TypeOf(complex128(0)),
	}
)

// GoType returns the Go type used to hold one element of dtype, or nil if there is none
// (BFloat16 and InvalidDType).
func (dtype DType) GoType() reflect.Type {
	return goTypes[dtype]
}

// FromGoType returns the DType for the given Go type, or InvalidDType if it is not supported.
// `int` maps to Int64, since Torch integers are 64 bits.
func FromGoType(t reflect.Type) DType {
	if t == float16Type {
		return Float16
	}
	switch t.Kind() {
	case reflect.Int:
		return Int64
	default:
	}
	for dtype, goType := range goTypes {
		if goType == t {
			return dtype
		}
	}
	return InvalidDType
}

// FromAny returns the DType of the Go scalar value, or InvalidDType if it is not supported.
func FromAny(value any) DType {
	if value == nil {
		return InvalidDType
	}
	return FromGoType(reflect.TypeOf(value))
}
