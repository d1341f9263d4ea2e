package torchir

import (
	"maps"
	"slices"
)

// Clone returns a detached deep copy of the function, with the same name and visibility.
func (fn *Function) Clone() *Function {
	clone := &Function{
		Name:        fn.Name,
		Private:     fn.Private,
		ResultTypes: slices.Clone(fn.ResultTypes),
	}
	clone.body = &Region{parentFn: clone}
	cloneRegionInto(fn.body, clone.body, make(map[*Value]*Value))
	return clone
}

// Clone returns a detached deep copy of the operation, including its regions.
//
// Operands found in mapping are replaced by their mapped values; other operands are kept.
// The results of the clone (and of every nested operation) are added to mapping.
func (op *Operation) Clone(mapping map[*Value]*Value) *Operation {
	operands := make([]*Value, len(op.operands))
	for i, operand := range op.operands {
		if mapped, found := mapping[operand]; found {
			operands[i] = mapped
		} else {
			operands[i] = operand
		}
	}
	clone := newOperation(op.Name, op.ResultTypes(), operands, cloneAttributes(op.Attributes), len(op.regions))
	for i, result := range op.results {
		mapping[result] = clone.results[i]
	}
	for i, region := range op.regions {
		cloneRegionInto(region, clone.regions[i], mapping)
	}
	return clone
}

func cloneRegionInto(from, to *Region, mapping map[*Value]*Value) {
	for _, block := range from.blocks {
		newBlock := to.AddBlock(valueTypes(block.args)...)
		for i, arg := range block.args {
			mapping[arg] = newBlock.args[i]
		}
	}
	for i, block := range from.blocks {
		newBlock := to.blocks[i]
		for _, op := range block.ops {
			newBlock.insert(len(newBlock.ops), op.Clone(mapping))
		}
	}
}

func cloneAttributes(attrs map[string]Attribute) map[string]Attribute {
	clone := maps.Clone(attrs)
	for key, attr := range clone {
		switch v := attr.(type) {
		case []int64:
			clone[key] = slices.Clone(v)
		case DenseElements:
			v.Dimensions = slices.Clone(v.Dimensions)
			v.Values = slices.Clone(v.Values)
			clone[key] = v
		}
	}
	return clone
}
