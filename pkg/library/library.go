// Package library holds the abstract interpretation library: Torch functions that compute the
// result dtypes (or shapes) of an operation from a description of its operands.
//
// The functions are looked up by a naming convention: the dtype function of `torch.aten.tanh`
// is `@__torch_mlir_dtype_fn.aten.tanh`, and its shape function is `@__torch_mlir_shape_fn.aten.tanh`.
//
// It also provides the utilities shared by the passes that make these calculations explicit
// in a program: AdjustFunctionArg, WrapWithCalculateOpIfLibraryFunctionAvailable and
// ImportLibraryFunctions.
package library

import (
	_ "embed"
	"slices"
	"strings"
	"sync"

	"github.com/gomlx/go-torchir/pkg/torchir"
	"github.com/pkg/errors"
)

var (
	// ErrSignatureMismatch is returned when the operands of an operation don't line up with the
	// parameters of its library function.
	ErrSignatureMismatch = errors.New("library function signature mismatch")

	// ErrCoercionFailure is returned when an operand can't be adjusted to the type of the
	// library function parameter it is passed to.
	ErrCoercionFailure = errors.New("cannot coerce operand to library function parameter type")

	// ErrBrokenLibrary is returned when the library is not self-contained, e.g.: a library
	// function calls a function that doesn't exist.
	ErrBrokenLibrary = errors.New("broken abstract interpretation library")
)

// Kind of library function.
type Kind int

const (
	// DtypeFunction computes the dtypes of the results of an operation.
	DtypeFunction Kind = iota

	// ShapeFunction computes the shapes of the results of an operation.
	ShapeFunction
)

// Prefix of the names of the library functions of this kind.
func (k Kind) Prefix() string {
	if k == ShapeFunction {
		return "__torch_mlir_shape_fn."
	}
	return "__torch_mlir_dtype_fn."
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == ShapeFunction {
		return "shape"
	}
	return "dtype"
}

// CalculateOpName is the name of the construct that wraps operations for this kind.
func (k Kind) CalculateOpName() string {
	if k == ShapeFunction {
		return torchir.OpShapeCalculate
	}
	return torchir.OpDtypeCalculate
}

func (k Kind) yieldOpName() string {
	if k == ShapeFunction {
		return torchir.OpShapeCalculateYield
	}
	return torchir.OpDtypeCalculateYield
}

func (k Kind) yieldResultsOpName() string {
	if k == ShapeFunction {
		return torchir.OpShapeCalculateYieldShapes
	}
	return torchir.OpDtypeCalculateYieldDtypes
}

// Library of abstract interpretation functions. It is read-only once created and can be
// shared: functions are cloned when imported into a program.
type Library struct {
	module *torchir.Module
}

// Parse parses the textual form of a library and verifies it.
func Parse(source string) (*Library, error) {
	module, err := torchir.Parse(source)
	if err != nil {
		return nil, errors.WithMessage(err, "parsing library")
	}
	return New(module)
}

// New creates a library from the functions of module, which must not be modified afterwards.
func New(module *torchir.Module) (*Library, error) {
	if err := module.Verify(); err != nil {
		return nil, errors.Wrapf(ErrBrokenLibrary, "%v", err)
	}
	return &Library{module: module}, nil
}

//go:embed default_library.mlir
var defaultLibrarySource string

var (
	defaultLibraryOnce sync.Once
	defaultLibrary     *Library
)

// Default returns a library with the dtype and shape functions of a small set of ATen operations.
// It panics if the embedded source is broken.
func Default() *Library {
	defaultLibraryOnce.Do(func() {
		var err error
		defaultLibrary, err = Parse(defaultLibrarySource)
		if err != nil {
			panic(errors.WithMessage(err, "embedded default library"))
		}
	})
	return defaultLibrary
}

// Function returns the library function with the given name, or nil.
func (l *Library) Function(name string) *torchir.Function {
	return l.module.LookupFunction(name)
}

// Lookup returns the library function of the given kind for an operation named opName
// (e.g. "torch.aten.tanh"), or nil if there isn't one.
func (l *Library) Lookup(kind Kind, opName string) *torchir.Function {
	return l.Function(FunctionName(kind, opName))
}

// Names returns the names of the library functions of the given kind, sorted.
func (l *Library) Names(kind Kind) []string {
	var names []string
	for _, fn := range l.module.Functions() {
		if strings.HasPrefix(fn.Name, kind.Prefix()) {
			names = append(names, fn.Name)
		}
	}
	slices.Sort(names)
	return names
}

// Len returns the number of functions in the library, helpers included.
func (l *Library) Len() int {
	return len(l.module.Functions())
}

// FunctionName returns the name of the library function of the given kind for an operation
// named opName: the dialect prefix "torch." and a leading "valsem." are dropped.
func FunctionName(kind Kind, opName string) string {
	name := strings.TrimPrefix(opName, "torch.")
	name = strings.TrimPrefix(name, "valsem.")
	return kind.Prefix() + name
}

// OperationFunctionName returns the name of the library function for op. Unregistered
// operations (`torch.operator`) are identified by their "name" attribute.
func OperationFunctionName(kind Kind, op *torchir.Operation) string {
	if op.Name == torchir.OpOperator {
		if name, ok := op.StringAttribute(torchir.AttrName); ok {
			return FunctionName(kind, name)
		}
	}
	return FunctionName(kind, op.Name)
}
