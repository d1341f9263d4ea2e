// Package passes implements the transformations of Torch programs that make the dtype and shape
// calculations of operations explicit, and the pipeline to run them.
//
// ReifyDtypeCalculations wraps every operation that has a dtype function in the library into a
// `torch.dtype.calculate` construct, whose second region computes the dtypes of its results
// by calling the dtype function. A later refinement pass can then fold those calculations into
// static types. ReifyShapeCalculations does the same for shape functions, and
// DropAbstractInterpCalculations undoes both.
//
// Example:
//
//	module, err := torchir.Parse(source)
//	if err != nil { ... }
//	if err := passes.ReifyDtypeCalculations(module, library.Default()); err != nil { ... }
//	fmt.Println(module)
package passes
