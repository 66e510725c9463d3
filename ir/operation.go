package ir

import "strings"

// Operation is a node of the IR graph.  It is identified by a dialect
// qualified name (eg. `cir.binop`) and carries operands, typed results, named
// attributes, nested regions and, for terminators, successor blocks with the
// operands forwarded to their arguments.
type Operation struct {
	// Name is the dialect qualified name of the operation.
	Name string

	// Operands is the list of values consumed by the operation.  It must only
	// be mutated through SetOperand and SetOperands so that uses stay in sync.
	Operands []*Value

	// Results is the list of values produced by the operation.
	Results []*Value

	// Attrs stores the named attributes of the operation.
	Attrs map[string]interface{}

	// Regions is the list of nested regions.
	Regions []*Region

	// Successors is the list of blocks a terminator may transfer control to.
	Successors []*Block

	// SuccOperands stores the operands forwarded to each successor.
	SuccOperands [][]*Value

	// Loc is the source location of the operation.
	Loc Location

	// block is the block containing the operation.
	block *Block

	// erased is set once the operation has been removed from the graph.
	erased bool
}

// NewOperation creates a new detached operation.
func NewOperation(name string, loc Location, operands []*Value, resultTypes []Type, attrs map[string]interface{}) *Operation {
	if loc == nil {
		loc = UnknownLoc{}
	}

	if attrs == nil {
		attrs = make(map[string]interface{})
	}

	op := &Operation{
		Name:  name,
		Attrs: attrs,
		Loc:   loc,
	}

	op.SetOperands(operands)

	for i, rt := range resultTypes {
		op.Results = append(op.Results, &Value{typ: rt, def: op, index: i})
	}

	return op
}

// Dialect returns the dialect prefix of the operation name.
func (op *Operation) Dialect() string {
	if i := strings.IndexByte(op.Name, '.'); i >= 0 {
		return op.Name[:i]
	}

	return op.Name
}

// Result returns the i'th result of the operation.
func (op *Operation) Result(i int) *Value {
	return op.Results[i]
}

// Erased returns whether the operation has been erased.
func (op *Operation) Erased() bool {
	return op.erased
}

// -----------------------------------------------------------------------------

// Attr returns the attribute named name or nil.
func (op *Operation) Attr(name string) interface{} {
	return op.Attrs[name]
}

// HasAttr returns whether the operation carries an attribute named name.
func (op *Operation) HasAttr(name string) bool {
	_, ok := op.Attrs[name]
	return ok
}

// SetAttr sets the attribute named name.
func (op *Operation) SetAttr(name string, val interface{}) {
	op.Attrs[name] = val
}

// RemoveAttr deletes the attribute named name.
func (op *Operation) RemoveAttr(name string) {
	delete(op.Attrs, name)
}

// StringAttr returns a string attribute or the empty string.
func (op *Operation) StringAttr(name string) string {
	s, _ := op.Attrs[name].(string)
	return s
}

// BoolAttr returns a boolean attribute or false.
func (op *Operation) BoolAttr(name string) bool {
	b, _ := op.Attrs[name].(bool)
	return b
}

// -----------------------------------------------------------------------------

// SetOperand replaces the i'th operand.
func (op *Operation) SetOperand(i int, v *Value) {
	if old := op.Operands[i]; old != nil {
		old.dropUse(op)
	}

	op.Operands[i] = v
	if v != nil {
		v.addUse(op)
	}
}

// SetOperands replaces the full operand list.
func (op *Operation) SetOperands(vals []*Value) {
	for _, v := range op.Operands {
		if v != nil {
			v.dropUse(op)
		}
	}

	op.Operands = make([]*Value, len(vals))
	for i, v := range vals {
		op.Operands[i] = v
		if v != nil {
			v.addUse(op)
		}
	}
}

// AddSuccessor appends a successor block along with the operands forwarded to
// its arguments.
func (op *Operation) AddSuccessor(blk *Block, operands []*Value) {
	op.Successors = append(op.Successors, blk)

	forwarded := make([]*Value, len(operands))
	for i, v := range operands {
		forwarded[i] = v
		v.addUse(op)
	}

	op.SuccOperands = append(op.SuccOperands, forwarded)
}

// SetSuccessorOperand replaces the i'th operand forwarded to successor s.
func (op *Operation) SetSuccessorOperand(s, i int, v *Value) {
	if old := op.SuccOperands[s][i]; old != nil {
		old.dropUse(op)
	}

	op.SuccOperands[s][i] = v
	v.addUse(op)
}

// AddRegion appends a new empty region to the operation.
func (op *Operation) AddRegion() *Region {
	r := &Region{parent: op}
	op.Regions = append(op.Regions, r)
	return r
}

// -----------------------------------------------------------------------------

// Block returns the block containing the operation.
func (op *Operation) Block() *Block {
	return op.block
}

// ParentOp returns the operation owning the region that contains op.
func (op *Operation) ParentOp() *Operation {
	if op.block == nil || op.block.region == nil {
		return nil
	}

	return op.block.region.parent
}

// Module returns the module containing op, if any.
func (op *Operation) Module() *Module {
	for cur := op; cur != nil; cur = cur.ParentOp() {
		if cur.block != nil && cur.block.module != nil {
			return cur.block.module
		}
	}

	return nil
}

// MoveBefore detaches op and reinserts it right before other.
func (op *Operation) MoveBefore(other *Operation) {
	if op.block != nil {
		op.block.remove(op)
	}

	other.block.insertBefore(op, other)
}

// Erase removes op from its block and releases the uses of its operands and of
// the operands of every nested operation.
func (op *Operation) Erase() {
	if op.erased {
		return
	}

	if op.block != nil {
		op.block.remove(op)
	}

	op.dropAllUses()
}

func (op *Operation) dropAllUses() {
	op.erased = true

	for _, v := range op.Operands {
		if v != nil {
			v.dropUse(op)
		}
	}

	for _, succOps := range op.SuccOperands {
		for _, v := range succOps {
			v.dropUse(op)
		}
	}

	for _, r := range op.Regions {
		for _, b := range r.Blocks {
			for _, nested := range b.ops {
				nested.dropAllUses()
			}
		}
	}
}

// Walk calls fn on op and every operation nested within it in pre-order.
func (op *Operation) Walk(fn func(*Operation)) {
	fn(op)

	for _, r := range op.Regions {
		r.Walk(fn)
	}
}
