package library

import (
	"github.com/gomlx/go-torchir/internal/utils"
	"github.com/gomlx/go-torchir/pkg/torchir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ImportLibraryFunctions copies into module the library functions named in needed, and the library
// functions they call, transitively. They are inserted at the front of the module, in the order
// they are discovered, and are made private.
//
// Functions already defined in module are not imported again, so it can be called multiple times.
func ImportLibraryFunctions(module *torchir.Module, lib *Library, needed *NeededFunctions) error {
	worklist := needed.Names()
	seen := utils.SetWith(worklist...)
	position := 0
	for len(worklist) > 0 {
		name := worklist[0]
		worklist = worklist[1:]
		if module.LookupFunction(name) != nil {
			continue
		}
		fn := lib.Function(name)
		if fn == nil {
			return errors.Wrapf(ErrBrokenLibrary, "function @%s not found", name)
		}

		imported := fn.Clone()
		imported.Private = true
		if err := module.InsertFunction(position, imported); err != nil {
			return err
		}
		position++
		klog.V(1).Infof("imported library function @%s", name)

		imported.Walk(func(op *torchir.Operation) torchir.WalkResult {
			if callee, ok := op.Callee(); ok && op.Name == torchir.OpCall && !seen.Has(callee) {
				seen.Insert(callee)
				worklist = append(worklist, callee)
			}
			return torchir.WalkAdvance
		})
	}
	return nil
}
