package torchir

import (
	"slices"
)

// Region is an ordered list of blocks nested in an operation or forming the body of a function.
type Region struct {
	blocks []*Block

	// Exactly one of parentOp and parentFn is set.
	parentOp *Operation
	parentFn *Function
}

// Blocks returns a copy of the list of blocks.
func (r *Region) Blocks() []*Block { return slices.Clone(r.blocks) }

// NumBlocks returns the number of blocks in the region.
func (r *Region) NumBlocks() int { return len(r.blocks) }

// Front returns the entry block, or nil if the region is empty.
func (r *Region) Front() *Block {
	if len(r.blocks) == 0 {
		return nil
	}
	return r.blocks[0]
}

// AddBlock appends a new block with the given argument types.
func (r *Region) AddBlock(argTypes ...Type) *Block {
	b := &Block{region: r}
	for _, t := range argTypes {
		b.AddArgument(t)
	}
	r.blocks = append(r.blocks, b)
	return b
}

// ParentOp returns the operation owning the region, or nil for function bodies.
func (r *Region) ParentOp() *Operation { return r.parentOp }

// Block is a list of operations with typed arguments.
type Block struct {
	args   []*Value
	ops    []*Operation
	region *Region
}

// AddArgument appends a new argument to the block and returns it.
func (b *Block) AddArgument(t Type) *Value {
	v := &Value{typ: t, index: len(b.args), block: b}
	b.args = append(b.args, v)
	return v
}

// Arguments returns a copy of the block arguments.
func (b *Block) Arguments() []*Value { return slices.Clone(b.args) }

// Argument returns the i-th block argument.
func (b *Block) Argument(i int) *Value { return b.args[i] }

// NumArguments returns the number of block arguments.
func (b *Block) NumArguments() int { return len(b.args) }

// Operations returns a copy (a snapshot) of the operations in the block.
func (b *Block) Operations() []*Operation { return slices.Clone(b.ops) }

// NumOperations returns the number of operations in the block.
func (b *Block) NumOperations() int { return len(b.ops) }

// Terminator returns the last operation of the block, or nil if it is empty.
func (b *Block) Terminator() *Operation {
	if len(b.ops) == 0 {
		return nil
	}
	return b.ops[len(b.ops)-1]
}

// Region returns the region containing the block.
func (b *Block) Region() *Region { return b.region }

func (b *Block) insert(index int, op *Operation) {
	b.ops = slices.Insert(b.ops, index, op)
	op.block = b
}
