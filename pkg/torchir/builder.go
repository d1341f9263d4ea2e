package torchir

// Builder creates operations at an insertion point: a position in a block.
// Each created operation is inserted at the insertion point, which then moves past it,
// so consecutive calls create operations in program order.
type Builder struct {
	block *Block

	// before is the operation before which new operations are inserted. If nil, they are
	// appended at the end of block.
	before *Operation
}

// NewBuilderAtEnd returns a builder that appends operations to block.
func NewBuilderAtEnd(block *Block) *Builder {
	return &Builder{block: block}
}

// NewBuilderBefore returns a builder that inserts operations just before op.
func NewBuilderBefore(op *Operation) *Builder {
	return &Builder{block: op.block, before: op}
}

// SetInsertionPointToEnd moves the insertion point to the end of block.
func (b *Builder) SetInsertionPointToEnd(block *Block) {
	b.block = block
	b.before = nil
}

// SetInsertionPointBefore moves the insertion point to just before op.
func (b *Builder) SetInsertionPointBefore(op *Operation) {
	b.block = op.block
	b.before = op
}

// SetInsertionPointAfter moves the insertion point to just after op.
func (b *Builder) SetInsertionPointAfter(op *Operation) {
	b.block = op.block
	b.before = nil
	idx := op.index()
	if idx+1 < len(b.block.ops) {
		b.before = b.block.ops[idx+1]
	}
}

// InsertionBlock returns the block where operations are being created.
func (b *Builder) InsertionBlock() *Block { return b.block }

// Create creates an operation at the insertion point.
//
// numRegions empty regions are created, to be populated with Region.AddBlock.
func (b *Builder) Create(name string, resultTypes []Type, operands []*Value, attrs map[string]Attribute, numRegions int) *Operation {
	op := newOperation(name, resultTypes, operands, attrs, numRegions)
	b.Insert(op)
	return op
}

// Insert inserts a detached operation at the insertion point.
func (b *Builder) Insert(op *Operation) {
	if b.before == nil {
		b.block.insert(len(b.block.ops), op)
		return
	}
	b.block.insert(b.before.index(), op)
}
