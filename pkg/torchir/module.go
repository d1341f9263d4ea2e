package torchir

import (
	"slices"

	"github.com/pkg/errors"
)

// Module is a Torch program: an ordered list of functions, looked up by name.
type Module struct {
	functions []*Function
	symbols   map[string]*Function
}

// NewModule creates an empty module.
func NewModule() *Module {
	return &Module{symbols: make(map[string]*Function)}
}

// Functions returns a copy of the functions in declaration order.
func (m *Module) Functions() []*Function { return slices.Clone(m.functions) }

// LookupFunction returns the function with the given name, or nil.
func (m *Module) LookupFunction(name string) *Function {
	return m.symbols[name]
}

// AddFunction appends fn to the module. Names must be unique.
func (m *Module) AddFunction(fn *Function) error {
	return m.insertFunction(len(m.functions), fn)
}

// PrependFunction inserts fn at the front of the module. Names must be unique.
func (m *Module) PrependFunction(fn *Function) error {
	return m.insertFunction(0, fn)
}

// InsertFunction inserts fn at the given position in the module. Names must be unique.
func (m *Module) InsertFunction(index int, fn *Function) error {
	if index < 0 || index > len(m.functions) {
		return errors.Errorf("cannot insert function %q at position %d of a module with %d functions",
			fn.Name, index, len(m.functions))
	}
	return m.insertFunction(index, fn)
}

// RemoveFunction removes the named function from the module and returns it, or nil if
// there is no such function. Calls to it are not checked.
func (m *Module) RemoveFunction(name string) *Function {
	fn, found := m.symbols[name]
	if !found {
		return nil
	}
	m.functions = slices.DeleteFunc(m.functions, func(f *Function) bool { return f == fn })
	delete(m.symbols, name)
	fn.module = nil
	return fn
}

func (m *Module) insertFunction(index int, fn *Function) error {
	if fn.module != nil {
		return errors.Errorf("function %q already belongs to a module", fn.Name)
	}
	if _, found := m.symbols[fn.Name]; found {
		return errors.Errorf("module already has a function named %q", fn.Name)
	}
	m.functions = slices.Insert(m.functions, index, fn)
	m.symbols[fn.Name] = fn
	fn.module = m
	return nil
}

// NewFunction creates a function and appends it to the module.
func (m *Module) NewFunction(name string, argTypes, resultTypes []Type) (*Function, error) {
	fn := NewFunction(name, argTypes, resultTypes)
	if err := m.AddFunction(fn); err != nil {
		return nil, err
	}
	return fn, nil
}

// Walk visits all operations of all functions in pre-order, see WalkResult.
//
// The list of operations of each block is snapshot before it is visited: operations
// inserted into a block while it is being walked are not visited, and an operation
// moved into a newly created region is still visited once (with its own regions).
func (m *Module) Walk(visit func(op *Operation) WalkResult) WalkResult {
	for _, fn := range m.Functions() {
		if fn.Walk(visit) == WalkInterrupt {
			return WalkInterrupt
		}
	}
	return WalkAdvance
}
