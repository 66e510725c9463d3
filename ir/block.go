package ir

// Block is a basic block: a list of arguments followed by an ordered list of
// operations, the last of which is the terminator.
type Block struct {
	// Args is the list of block arguments.
	Args []*Value

	// ops is the ordered list of operations in the block.
	ops []*Operation

	// region is the region containing the block.
	region *Region

	// module is set on the top-level body block of a module.
	module *Module
}

// NewBlock creates a detached block with arguments of the given types.
func NewBlock(argTypes ...Type) *Block {
	b := &Block{}
	for _, t := range argTypes {
		b.AddArgument(t)
	}

	return b
}

// AddArgument appends a new argument to the block.
func (b *Block) AddArgument(typ Type) *Value {
	v := &Value{typ: typ, block: b, index: len(b.Args)}
	b.Args = append(b.Args, v)
	return v
}

// ReplaceArgument installs a fresh argument of type typ at position i and
// returns the detached previous argument.  The old value keeps its type and
// its uses: callers are responsible for remapping them.
func (b *Block) ReplaceArgument(i int, typ Type) (old, fresh *Value) {
	old = b.Args[i]
	fresh = &Value{typ: typ, block: b, index: i}
	b.Args[i] = fresh
	return
}

// Ops returns the operations of the block.  The slice must not be mutated.
func (b *Block) Ops() []*Operation {
	return b.ops
}

// Terminator returns the last operation in the block or nil.
func (b *Block) Terminator() *Operation {
	if len(b.ops) == 0 {
		return nil
	}

	return b.ops[len(b.ops)-1]
}

// Region returns the region containing the block.
func (b *Block) Region() *Region {
	return b.region
}

// ParentOp returns the operation owning the region containing b.
func (b *Block) ParentOp() *Operation {
	if b.region == nil {
		return nil
	}

	return b.region.parent
}

// IsEntry returns whether b is the entry block of its region.
func (b *Block) IsEntry() bool {
	return b.region != nil && len(b.region.Blocks) > 0 && b.region.Blocks[0] == b
}

// Successors returns the successors of the block's terminator.
func (b *Block) Successors() []*Block {
	if term := b.Terminator(); term != nil {
		return term.Successors
	}

	return nil
}

// Predecessors returns the blocks of the same region whose terminator lists b
// as a successor.  A block appears once per edge.
func (b *Block) Predecessors() []*Block {
	if b.region == nil {
		return nil
	}

	var preds []*Block
	for _, other := range b.region.Blocks {
		for _, succ := range other.Successors() {
			if succ == b {
				preds = append(preds, other)
			}
		}
	}

	return preds
}

// Append adds op at the end of the block.
func (b *Block) Append(op *Operation) {
	op.block = b
	b.ops = append(b.ops, op)
}

// -----------------------------------------------------------------------------

func (b *Block) indexOf(op *Operation) int {
	for i, o := range b.ops {
		if o == op {
			return i
		}
	}

	return -1
}

func (b *Block) insertBefore(op, anchor *Operation) {
	if anchor == nil {
		b.Append(op)
		return
	}

	i := b.indexOf(anchor)
	if i < 0 {
		b.Append(op)
		return
	}

	op.block = b
	b.ops = append(b.ops, nil)
	copy(b.ops[i+1:], b.ops[i:])
	b.ops[i] = op
}

func (b *Block) remove(op *Operation) {
	if i := b.indexOf(op); i >= 0 {
		b.ops = append(b.ops[:i], b.ops[i+1:]...)
	}

	op.block = nil
}

// -----------------------------------------------------------------------------

// Region is an ordered list of blocks owned by an operation.  The first block
// is the entry block.
type Region struct {
	// Blocks is the list of blocks in the region.
	Blocks []*Block

	// parent is the operation owning the region.
	parent *Operation
}

// ParentOp returns the operation owning the region.
func (r *Region) ParentOp() *Operation {
	return r.parent
}

// Entry returns the entry block of the region or nil if it is empty.
func (r *Region) Entry() *Block {
	if len(r.Blocks) == 0 {
		return nil
	}

	return r.Blocks[0]
}

// Empty returns whether the region contains no blocks.
func (r *Region) Empty() bool {
	return len(r.Blocks) == 0
}

// AddBlock appends b to the region.
func (r *Region) AddBlock(b *Block) *Block {
	b.region = r
	r.Blocks = append(r.Blocks, b)
	return b
}

// TakeBody moves every block of other into r, leaving other empty.
func (r *Region) TakeBody(other *Region) {
	for _, b := range other.Blocks {
		r.AddBlock(b)
	}

	other.Blocks = nil
}

// Walk calls fn on every operation in the region in pre-order.
func (r *Region) Walk(fn func(*Operation)) {
	for _, b := range r.Blocks {
		// copy so that fn may erase the visited operation
		ops := append([]*Operation(nil), b.ops...)
		for _, op := range ops {
			op.Walk(fn)
		}
	}
}
