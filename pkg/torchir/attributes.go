package torchir

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/go-torchir/pkg/types/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Attribute is a constant attached to an operation by name. The supported Go types are:
// int64, float64, bool, string, SymbolRef, []int64 and DenseElements.
type Attribute any

// SymbolRef references a function by name, e.g. the callee of a `func.call`. It is written as `@name`.
type SymbolRef string

// DenseElements is the constant content of a tensor literal.
// Values are stored as float64 in row-major order, regardless of DType.
type DenseElements struct {
	DType      dtypes.DType
	Dimensions []int
	Values     []float64
}

// NewDenseElements creates a DenseElements from a flat slice of Go values: the dtype is taken
// from the Go type. float16.Float16 values are supported.
func NewDenseElements[T interface {
	float16.Float16 | float32 | float64 | int | int8 | int16 | int32 | int64 | uint8 | bool
}](flat []T, dimensions ...int) (DenseElements, error) {
	var zero T
	dtype := dtypes.FromAny(zero)
	if dtype == dtypes.InvalidDType {
		return DenseElements{}, errors.Errorf("unsupported Go type %T for dense elements", zero)
	}
	size := 1
	for _, dim := range dimensions {
		if dim < 0 {
			return DenseElements{}, errors.Errorf("dense elements require static dimensions, got %v", dimensions)
		}
		size *= dim
	}
	if size != len(flat) {
		return DenseElements{}, errors.Errorf("dense elements with dimensions %v require %d values, got %d",
			dimensions, size, len(flat))
	}
	values := make([]float64, len(flat))
	for i, v := range flat {
		values[i] = toFloat64(v)
	}
	return DenseElements{DType: dtype, Dimensions: slices.Clone(dimensions), Values: values}, nil
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case float16.Float16:
		return float64(x.Float32())
	case bool:
		if x {
			return 1
		}
		return 0
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return float64(rv.Int())
	case rv.CanUint():
		return float64(rv.Uint())
	case rv.CanFloat():
		return rv.Float()
	}
	return math.NaN()
}

// formatFloat always includes a '.', an exponent or a special name, so floats can be
// told apart from integers when parsed back.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eE") {
		return s
	}
	return s + ".0"
}

// formatAttribute returns the textual form of an attribute value.
func formatAttribute(attr Attribute) string {
	switch v := attr.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return formatFloat(v)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return strconv.Quote(v)
	case SymbolRef:
		return formatSymbol(string(v))
	case []int64:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = strconv.FormatInt(x, 10)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case DenseElements:
		dims := make([]string, len(v.Dimensions))
		for i, d := range v.Dimensions {
			dims[i] = strconv.Itoa(d)
		}
		values := make([]string, len(v.Values))
		for i, x := range v.Values {
			if v.DType.IsFloat() || v.DType.IsComplex() {
				values[i] = formatFloat(x)
			} else {
				values[i] = strconv.FormatInt(int64(x), 10)
			}
		}
		return fmt.Sprintf("dense<%s, [%s], [%s]>", v.DType.ToTorch(),
			strings.Join(dims, ", "), strings.Join(values, ", "))
	default:
		return fmt.Sprintf("<unsupported attribute %T>", attr)
	}
}

// formatSymbol writes a symbol reference, quoting it if it has characters the lexer
// would not accept in a bare identifier.
func formatSymbol(name string) string {
	for _, r := range name {
		if !isIdentRune(r) {
			return "@" + strconv.Quote(name)
		}
	}
	return "@" + name
}
