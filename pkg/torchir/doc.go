// Package torchir is an in-memory representation of Torch-dialect programs, with a textual
// form that can be written (Module.Write) and parsed back (Parse).
//
// A Module holds Functions; a Function's body is a Region of Blocks, each holding a list of
// Operations. Operations consume and produce typed Values (see Type) and may own nested
// Regions, e.g. the two branches of a `torch.prim.If`.
//
// Operations are created with a Builder, positioned at an insertion point:
//
//	m := torchir.NewModule()
//	fn, _ := m.NewFunction("main", []torchir.Type{torchir.VTensor(dtypes.F32, 2, 3)}, []torchir.Type{torchir.IntType{}})
//	b := torchir.NewBuilderAtEnd(fn.EntryBlock())
//	rank := b.LenT(b.Size(fn.Arguments()[0]), torchir.IntType{})
//	fn.Return(rank)
//	fmt.Println(m)
//
// Programs are rewritten in place by the passes in package passes.
package torchir
