package ir

// Value is an SSA value: either the result of an operation or an argument of a
// block.  Values keep track of the operations using them so that rewrites can
// check whether a value is still live.
type Value struct {
	// typ is the type of the value.
	typ Type

	// def is the operation defining the value.  It is nil for block arguments.
	def *Operation

	// block is the block owning the value if it is a block argument.
	block *Block

	// index is the result number or the argument number of the value.
	index int

	// uses counts the operand slots referencing this value per user.
	uses map[*Operation]int
}

// Type returns the type of the value.
func (v *Value) Type() Type {
	return v.typ
}

// SetType changes the type of the value in place.
func (v *Value) SetType(typ Type) {
	v.typ = typ
}

// DefiningOp returns the operation producing v or nil for block arguments.
func (v *Value) DefiningOp() *Operation {
	return v.def
}

// OwnerBlock returns the block declaring v as an argument.
func (v *Value) OwnerBlock() *Block {
	return v.block
}

// Index returns the result or argument number of v.
func (v *Value) Index() int {
	return v.index
}

// IsBlockArg returns whether v is a block argument.
func (v *Value) IsBlockArg() bool {
	return v.block != nil
}

// HasUses returns whether any live operation uses v.
func (v *Value) HasUses() bool {
	return len(v.uses) > 0
}

// Users returns the distinct operations using v.  The order is unspecified.
func (v *Value) Users() []*Operation {
	users := make([]*Operation, 0, len(v.uses))
	for op := range v.uses {
		users = append(users, op)
	}

	return users
}

// UsedOnlyBy returns whether every use of v belongs to op.
func (v *Value) UsedOnlyBy(op *Operation) bool {
	for user := range v.uses {
		if user != op {
			return false
		}
	}

	return true
}

func (v *Value) addUse(op *Operation) {
	if v.uses == nil {
		v.uses = make(map[*Operation]int)
	}

	v.uses[op]++
}

func (v *Value) dropUse(op *Operation) {
	if n, ok := v.uses[op]; ok {
		if n <= 1 {
			delete(v.uses, op)
		} else {
			v.uses[op] = n - 1
		}
	}
}
