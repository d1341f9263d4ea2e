package torchir

import (
	"slices"
)

// Function is a `func.func` definition. Its arguments are the arguments of the entry block of
// its body.
type Function struct {
	Name string

	// Private functions are only visible within the module. Library functions imported into a
	// program are made private.
	Private bool

	ResultTypes []Type

	body   *Region
	module *Module
}

// NewFunction creates a detached function with an entry block holding one argument per argType.
// Use Module.AddFunction to add it to a module.
func NewFunction(name string, argTypes, resultTypes []Type) *Function {
	fn := &Function{
		Name:        name,
		ResultTypes: slices.Clone(resultTypes),
	}
	fn.body = &Region{parentFn: fn}
	fn.body.AddBlock(argTypes...)
	return fn
}

// Body returns the body region of the function.
func (fn *Function) Body() *Region { return fn.body }

// EntryBlock returns the first block of the body.
func (fn *Function) EntryBlock() *Block { return fn.body.Front() }

// Arguments returns the function arguments.
func (fn *Function) Arguments() []*Value { return fn.EntryBlock().Arguments() }

// ArgumentTypes returns the declared types of the function parameters.
func (fn *Function) ArgumentTypes() []Type { return valueTypes(fn.EntryBlock().args) }

// NumArguments returns the arity of the function.
func (fn *Function) NumArguments() int { return fn.EntryBlock().NumArguments() }

// Module returns the module containing the function, or nil.
func (fn *Function) Module() *Module { return fn.module }

// Return appends the `func.return` terminator.
func (fn *Function) Return(values ...*Value) *Operation {
	return NewBuilderAtEnd(fn.EntryBlock()).Create(OpReturn, nil, values, nil, 0)
}

// Walk visits every operation of the function in pre-order. See Module.Walk.
func (fn *Function) Walk(visit func(op *Operation) WalkResult) WalkResult {
	return walkRegion(fn.body, visit)
}
