package ir

// Builder creates operations and inserts them at a movable insertion point.
// Dialect builders wrap it to expose one constructor per operation kind.
type Builder struct {
	// block is the block operations are inserted into.
	block *Block

	// before is the operation new operations are inserted in front of.  If it
	// is nil, operations are appended to the end of block.
	before *Operation

	// Loc is the location given to every created operation.
	Loc Location

	// Listener is called on every operation inserted by the builder.
	Listener func(op *Operation)
}

// InsertionPoint is a saved builder position.
type InsertionPoint struct {
	block  *Block
	before *Operation
}

// NewBuilder creates a builder without an insertion point.
func NewBuilder() *Builder {
	return &Builder{Loc: UnknownLoc{}}
}

// SetInsertionPointBefore makes the builder insert right before op.
func (b *Builder) SetInsertionPointBefore(op *Operation) {
	b.block = op.block
	b.before = op
}

// SetInsertionPointAfter makes the builder insert right after op.
func (b *Builder) SetInsertionPointAfter(op *Operation) {
	b.block = op.block
	b.before = nil

	if i := op.block.indexOf(op); i >= 0 && i+1 < len(op.block.ops) {
		b.before = op.block.ops[i+1]
	}
}

// SetInsertionPointToEnd makes the builder append to blk.
func (b *Builder) SetInsertionPointToEnd(blk *Block) {
	b.block = blk
	b.before = nil
}

// SetInsertionPointToStart makes the builder insert at the start of blk.
func (b *Builder) SetInsertionPointToStart(blk *Block) {
	b.block = blk
	b.before = nil

	if len(blk.ops) > 0 {
		b.before = blk.ops[0]
	}
}

// InsertionBlock returns the block the builder currently inserts into.
func (b *Builder) InsertionBlock() *Block {
	return b.block
}

// SaveInsertionPoint returns the current insertion point.
func (b *Builder) SaveInsertionPoint() InsertionPoint {
	return InsertionPoint{block: b.block, before: b.before}
}

// RestoreInsertionPoint moves the builder back to a saved insertion point.
func (b *Builder) RestoreInsertionPoint(ip InsertionPoint) {
	b.block = ip.block
	b.before = ip.before
}

// -----------------------------------------------------------------------------

// Insert places a detached operation at the insertion point.
func (b *Builder) Insert(op *Operation) *Operation {
	if b.block == nil {
		panic("ir: builder has no insertion point")
	}

	b.block.insertBefore(op, b.before)

	if b.Listener != nil {
		b.Listener(op)
	}

	return op
}

// Create builds a new operation and inserts it at the insertion point.
func (b *Builder) Create(name string, operands []*Value, resultTypes []Type, attrs map[string]interface{}) *Operation {
	return b.Insert(NewOperation(name, b.Loc, operands, resultTypes, attrs))
}

// CreateBlock appends a new block to r and moves the insertion point to its
// end.
func (b *Builder) CreateBlock(r *Region, argTypes ...Type) *Block {
	blk := r.AddBlock(NewBlock(argTypes...))
	b.SetInsertionPointToEnd(blk)
	return blk
}
