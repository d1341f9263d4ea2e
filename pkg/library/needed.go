package library

import (
	"slices"

	"github.com/gomlx/go-torchir/internal/utils"
)

// NeededFunctions is the set of names of library functions referenced by a program.
// It keeps the order in which the names were first added, and ignores duplicates.
type NeededFunctions struct {
	names []string
	set   utils.Set[string]
}

// NewNeededFunctions returns an empty set.
func NewNeededFunctions() *NeededFunctions {
	return &NeededFunctions{set: utils.MakeSet[string]()}
}

// Add name to the set. It returns false if it was already present.
func (n *NeededFunctions) Add(name string) bool {
	if n.set.Has(name) {
		return false
	}
	n.set.Insert(name)
	n.names = append(n.names, name)
	return true
}

// Has returns whether name is in the set.
func (n *NeededFunctions) Has(name string) bool { return n.set.Has(name) }

// Len returns the number of names in the set.
func (n *NeededFunctions) Len() int { return len(n.names) }

// Names returns the names in insertion order.
func (n *NeededFunctions) Names() []string { return slices.Clone(n.names) }
