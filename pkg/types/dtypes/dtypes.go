// Package dtypes defines the element types of tensors in a Torch-dialect program.
//
// Each DType knows its textual form in the IR (see ToTorch) and its PyTorch
// ScalarType code (see ScalarTypeCode), which is the integer that `prim.dtype`
// produces at runtime and that dtype functions compute with.
package dtypes

import "fmt"

// DType is the element type of a tensor.
type DType int

const (
	// InvalidDType is used for tensors whose element type is not known.
	InvalidDType DType = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Float16
	BFloat16
	Float32
	Float64
	Complex64
	Complex128
)

// Aliases.
const (
	F16 = Float16
	F32 = Float32
	F64 = Float64
	I8  = Int8
	I16 = Int16
	I32 = Int32
	I64 = Int64
	U8  = Uint8
)

var dtypeNames = map[DType]string{
	InvalidDType: "InvalidDType",
	Bool:         "Bool",
	Int8:         "Int8",
	Int16:        "Int16",
	Int32:        "Int32",
	Int64:        "Int64",
	Uint8:        "Uint8",
	Float16:      "Float16",
	BFloat16:     "BFloat16",
	Float32:      "Float32",
	Float64:      "Float64",
	Complex64:    "Complex64",
	Complex128:   "Complex128",
}

// String implements fmt.Stringer.
func (dtype DType) String() string {
	if name, ok := dtypeNames[dtype]; ok {
		return name
	}
	return fmt.Sprintf("DType(%d)", int(dtype))
}

// IsValid returns whether the dtype is one of the known element types.
func (dtype DType) IsValid() bool {
	_, ok := dtypeNames[dtype]
	return ok && dtype != InvalidDType
}

// IsFloat returns whether dtype is a floating point type.
func (dtype DType) IsFloat() bool {
	return dtype == Float16 || dtype == BFloat16 || dtype == Float32 || dtype == Float64
}

// IsInt returns whether dtype is a signed or unsigned integer (Bool excluded).
func (dtype DType) IsInt() bool {
	return dtype == Int8 || dtype == Int16 || dtype == Int32 || dtype == Int64 || dtype == Uint8
}

// IsComplex returns whether dtype is a complex number.
func (dtype DType) IsComplex() bool {
	return dtype == Complex64 || dtype == Complex128
}
