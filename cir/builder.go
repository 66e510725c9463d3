package cir

import (
	"cirlower/ir"
)

// Builder constructs source operations at the insertion point of an IR
// builder.  It is used by the module decoder and by tests.
type Builder struct {
	*ir.Builder
}

// NewBuilder creates a builder without an insertion point.
func NewBuilder() *Builder {
	return &Builder{Builder: ir.NewBuilder()}
}

func (b *Builder) create(name string, operands []*ir.Value, resultType ir.Type, attrs map[string]interface{}) *ir.Operation {
	var results []ir.Type
	if resultType != nil {
		results = []ir.Type{resultType}
	}

	return b.Create(name, operands, results, attrs)
}

func (b *Builder) value(name string, operands []*ir.Value, resultType ir.Type, attrs map[string]interface{}) *ir.Value {
	return b.create(name, operands, resultType, attrs).Result(0)
}

// -----------------------------------------------------------------------------

// FuncOpts are the optional properties of a function.
type FuncOpts struct {
	Linkage    Linkage
	Visibility Visibility
	DSOLocal   bool

	// Extra holds additional attributes carried verbatim.
	Extra map[string]interface{}
}

// NewFunc appends a function definition to m.  Its body region holds an entry
// block whose arguments match the parameters of ft.
func NewFunc(m *ir.Module, name string, ft *FuncType, opts FuncOpts) *ir.Operation {
	op := DeclareFunc(m, name, ft, opts)
	op.Regions[0].AddBlock(ir.NewBlock(ft.Params...))
	return op
}

// DeclareFunc appends a function declaration without a body to m.
func DeclareFunc(m *ir.Module, name string, ft *FuncType, opts FuncOpts) *ir.Operation {
	attrs := map[string]interface{}{
		AttrSymName:      name,
		AttrFunctionType: ft,
		AttrLinkage:      opts.Linkage,
		AttrVisibility:   opts.Visibility,
	}

	if opts.DSOLocal {
		attrs[AttrDSOLocal] = true
	}

	for k, v := range opts.Extra {
		attrs[k] = v
	}

	op := ir.NewOperation(OpFunc, nil, nil, nil, attrs)
	op.AddRegion()
	m.Body.Append(op)
	return op
}

// FuncEntry returns the entry block of a function definition.
func FuncEntry(fn *ir.Operation) *ir.Block {
	return fn.Regions[0].Entry()
}

// GlobalOpts are the optional properties of a global variable.
type GlobalOpts struct {
	Linkage    Linkage
	Visibility Visibility
	DSOLocal   bool
	Constant   bool
	Comdat     bool
	Alignment  uint64
}

// NewGlobal appends a global variable to m.  init may be nil for external
// declarations.
func NewGlobal(m *ir.Module, name string, typ ir.Type, init Attr, opts GlobalOpts) *ir.Operation {
	attrs := map[string]interface{}{
		AttrSymName:    name,
		AttrGlobalType: typ,
		AttrLinkage:    opts.Linkage,
		AttrVisibility: opts.Visibility,
	}

	if init != nil {
		attrs[AttrInitialValue] = init
	}

	if opts.DSOLocal {
		attrs[AttrDSOLocal] = true
	}

	if opts.Constant {
		attrs[AttrConstant] = true
	}

	if opts.Comdat {
		attrs[AttrComdat] = true
	}

	if opts.Alignment != 0 {
		attrs[AttrAlignment] = opts.Alignment
	}

	op := ir.NewOperation(OpGlobal, nil, nil, nil, attrs)
	m.Body.Append(op)
	return op
}

// -----------------------------------------------------------------------------

// GetGlobal returns the address of the global or function named sym.
func (b *Builder) GetGlobal(sym string, ptrType *PointerType) *ir.Value {
	return b.value(OpGetGlobal, nil, ptrType, map[string]interface{}{AttrName: sym})
}

// Call emits a direct call to the function named callee.
func (b *Builder) Call(callee string, ret ir.Type, args []*ir.Value, effect SideEffect) *ir.Operation {
	return b.callOp(args, ret, map[string]interface{}{AttrCallee: callee, AttrSideEffect: effect})
}

// CallIndirect emits a call through a function pointer.
func (b *Builder) CallIndirect(fnPtr *ir.Value, ret ir.Type, args []*ir.Value, effect SideEffect) *ir.Operation {
	return b.callOp(append([]*ir.Value{fnPtr}, args...), ret, map[string]interface{}{AttrSideEffect: effect})
}

func (b *Builder) callOp(operands []*ir.Value, ret ir.Type, attrs map[string]interface{}) *ir.Operation {
	if _, ok := ret.(*VoidType); ok || ret == nil {
		return b.create(OpCall, operands, nil, attrs)
	}

	return b.create(OpCall, operands, ret, attrs)
}

// Return terminates the block.
func (b *Builder) Return(vals ...*ir.Value) *ir.Operation {
	return b.create(OpReturn, vals, nil, nil)
}

// Br branches to dest forwarding args.
func (b *Builder) Br(dest *ir.Block, args ...*ir.Value) *ir.Operation {
	op := b.create(OpBr, nil, nil, nil)
	op.AddSuccessor(dest, args)
	return op
}

// BrCond branches to ifTrue or ifFalse depending on cond.
func (b *Builder) BrCond(cond *ir.Value, ifTrue *ir.Block, trueArgs []*ir.Value, ifFalse *ir.Block, falseArgs []*ir.Value) *ir.Operation {
	op := b.create(OpBrCond, []*ir.Value{cond}, nil, nil)
	op.AddSuccessor(ifTrue, trueArgs)
	op.AddSuccessor(ifFalse, falseArgs)
	return op
}

// SwitchCase is one case of a flat switch.
type SwitchCase struct {
	Value int64
	Dest  *ir.Block
	Args  []*ir.Value
}

// SwitchFlat emits a multi-way branch.  The default destination is stored as
// the first successor, followed by one successor per case.
func (b *Builder) SwitchFlat(cond *ir.Value, def *ir.Block, defArgs []*ir.Value, cases ...SwitchCase) *ir.Operation {
	values := make([]int64, len(cases))
	for i, c := range cases {
		values[i] = c.Value
	}

	op := b.create(OpSwitchFlat, []*ir.Value{cond}, nil, map[string]interface{}{AttrCaseValues: values})
	op.AddSuccessor(def, defArgs)
	for _, c := range cases {
		op.AddSuccessor(c.Dest, c.Args)
	}

	return op
}

// Trap emits an abnormal termination.
func (b *Builder) Trap() *ir.Operation {
	return b.create(OpTrap, nil, nil, nil)
}

// Unreachable marks the end of the block as unreachable.
func (b *Builder) Unreachable() *ir.Operation {
	return b.create(OpUnreachable, nil, nil, nil)
}

// -----------------------------------------------------------------------------

// Const materializes a constant attribute.
func (b *Builder) Const(attr Attr) *ir.Value {
	return b.value(OpConst, nil, attr.Type(), map[string]interface{}{AttrValue: attr})
}

// ConstInt is shorthand for an integer constant.
func (b *Builder) ConstInt(typ *IntType, v int64) *ir.Value {
	return b.Const(NewInt(typ, v))
}

// ConstBool is shorthand for a boolean constant.
func (b *Builder) ConstBool(v bool) *ir.Value {
	return b.Const(&BoolAttr{Value: v})
}

// Cast converts src to typ according to kind.
func (b *Builder) Cast(kind CastKind, src *ir.Value, typ ir.Type) *ir.Value {
	return b.value(OpCast, []*ir.Value{src}, typ, map[string]interface{}{AttrKind: kind})
}

// BinOp applies a binary operator.  flags are attribute names among
// AttrNoUnsignedWrap, AttrNoSignedWrap and AttrSaturated.
func (b *Builder) BinOp(kind BinOpKind, lhs, rhs *ir.Value, flags ...string) *ir.Value {
	attrs := map[string]interface{}{AttrKind: kind}
	for _, f := range flags {
		attrs[f] = true
	}

	return b.value(OpBinOp, []*ir.Value{lhs, rhs}, lhs.Type(), attrs)
}

// Unary applies a unary operator.  The only accepted flag is AttrNoSignedWrap.
func (b *Builder) Unary(kind UnaryOpKind, x *ir.Value, flags ...string) *ir.Value {
	attrs := map[string]interface{}{AttrKind: kind}
	for _, f := range flags {
		attrs[f] = true
	}

	return b.value(OpUnary, []*ir.Value{x}, x.Type(), attrs)
}

// Cmp compares two scalars.
func (b *Builder) Cmp(kind CmpOpKind, lhs, rhs *ir.Value) *ir.Value {
	return b.value(OpCmp, []*ir.Value{lhs, rhs}, Bool, map[string]interface{}{AttrKind: kind})
}

// Shift shifts x left or right by amount.
func (b *Builder) Shift(left bool, x, amount *ir.Value) *ir.Value {
	return b.value(OpShift, []*ir.Value{x, amount}, x.Type(), map[string]interface{}{AttrIsShiftLeft: left})
}

// Select chooses between ifTrue and ifFalse.
func (b *Builder) Select(cond, ifTrue, ifFalse *ir.Value) *ir.Value {
	return b.value(OpSelect, []*ir.Value{cond, ifTrue, ifFalse}, ifTrue.Type(), nil)
}

// -----------------------------------------------------------------------------

// Alloca reserves a stack slot of type typ.  An alignment of zero selects the
// ABI alignment.
func (b *Builder) Alloca(typ ir.Type, align uint64) *ir.Value {
	attrs := map[string]interface{}{AttrAllocaType: typ}
	if align != 0 {
		attrs[AttrAlignment] = align
	}

	return b.value(OpAlloca, nil, Ptr(typ), attrs)
}

// Load reads the value pointed to by addr.
func (b *Builder) Load(addr *ir.Value) *ir.Value {
	return b.value(OpLoad, []*ir.Value{addr}, addr.Type().(*PointerType).Pointee, nil)
}

// Store writes v to addr.
func (b *Builder) Store(v, addr *ir.Value) *ir.Operation {
	return b.create(OpStore, []*ir.Value{v, addr}, nil, nil)
}

// PtrStride offsets base by stride elements.
func (b *Builder) PtrStride(base, stride *ir.Value) *ir.Value {
	return b.value(OpPtrStride, []*ir.Value{base, stride}, base.Type(), nil)
}

// BaseClassAddr adjusts a derived class pointer to one of its bases.
func (b *Builder) BaseClassAddr(derived *ir.Value, base *PointerType, offset uint64, assumeNotNull bool) *ir.Value {
	attrs := map[string]interface{}{AttrOffset: offset}
	if assumeNotNull {
		attrs[AttrAssumeNotNull] = true
	}

	return b.value(OpBaseClass, []*ir.Value{derived}, base, attrs)
}

// GetMember returns the address of member index of the record pointed to by
// addr.
func (b *Builder) GetMember(addr *ir.Value, index int, name string) *ir.Value {
	rec := addr.Type().(*PointerType).Pointee.(*RecordType)
	return b.value(OpGetMember, []*ir.Value{addr}, Ptr(rec.Members[index]),
		map[string]interface{}{AttrIndex: index, AttrName: name})
}

// SetBitfield stores src in the bitfield described by info.  The result is the
// value actually stored, as read back from the field.
func (b *Builder) SetBitfield(addr, src *ir.Value, info *BitfieldInfo) *ir.Value {
	return b.value(OpSetBitfield, []*ir.Value{addr, src}, src.Type(), map[string]interface{}{AttrBitfieldInfo: info})
}

// GetBitfield loads the bitfield described by info as a value of type typ.
func (b *Builder) GetBitfield(addr *ir.Value, info *BitfieldInfo, typ ir.Type) *ir.Value {
	return b.value(OpGetBitfield, []*ir.Value{addr}, typ, map[string]interface{}{AttrBitfieldInfo: info})
}

// -----------------------------------------------------------------------------

// VecCreate builds a vector from its elements.
func (b *Builder) VecCreate(typ *VectorType, elems ...*ir.Value) *ir.Value {
	return b.value(OpVecCreate, elems, typ, nil)
}

// VecExtract reads one lane of vec.
func (b *Builder) VecExtract(vec, index *ir.Value) *ir.Value {
	return b.value(OpVecExtract, []*ir.Value{vec, index}, vec.Type().(*VectorType).Elem, nil)
}

// VecInsert replaces one lane of vec.
func (b *Builder) VecInsert(vec, x, index *ir.Value) *ir.Value {
	return b.value(OpVecInsert, []*ir.Value{vec, x, index}, vec.Type(), nil)
}

// VecCmp compares two vectors lane by lane producing an integer vector.
func (b *Builder) VecCmp(kind CmpOpKind, lhs, rhs *ir.Value, typ *VectorType) *ir.Value {
	return b.value(OpVecCmp, []*ir.Value{lhs, rhs}, typ, map[string]interface{}{AttrKind: kind})
}

// VecSplat broadcasts x into every lane.
func (b *Builder) VecSplat(typ *VectorType, x *ir.Value) *ir.Value {
	return b.value(OpVecSplat, []*ir.Value{x}, typ, nil)
}

// VecShuffle builds a vector picking lanes of the concatenation of a and b.
func (b *Builder) VecShuffle(a, c *ir.Value, indices []int64, typ *VectorType) *ir.Value {
	return b.value(OpVecShuffle, []*ir.Value{a, c}, typ, map[string]interface{}{AttrIndices: indices})
}

// VecShuffleDynamic picks lanes of vec using a vector of indices.
func (b *Builder) VecShuffleDynamic(vec, indices *ir.Value) *ir.Value {
	return b.value(OpVecShuffleDy, []*ir.Value{vec, indices}, vec.Type(), nil)
}

// VecTernary selects lanes of lhs or rhs according to an integer vector.
func (b *Builder) VecTernary(cond, lhs, rhs *ir.Value) *ir.Value {
	return b.value(OpVecTernary, []*ir.Value{cond, lhs, rhs}, lhs.Type(), nil)
}

// -----------------------------------------------------------------------------

// ComplexCreate builds a complex value.
func (b *Builder) ComplexCreate(typ *ComplexType, re, im *ir.Value) *ir.Value {
	return b.value(OpComplexNew, []*ir.Value{re, im}, typ, nil)
}

// ComplexReal extracts the real part.
func (b *Builder) ComplexReal(x *ir.Value) *ir.Value {
	return b.value(OpComplexReal, []*ir.Value{x}, x.Type().(*ComplexType).Elem, nil)
}

// ComplexImag extracts the imaginary part.
func (b *Builder) ComplexImag(x *ir.Value) *ir.Value {
	return b.value(OpComplexImag, []*ir.Value{x}, x.Type().(*ComplexType).Elem, nil)
}

// ComplexRealPtr returns the address of the real part.
func (b *Builder) ComplexRealPtr(p *ir.Value) *ir.Value {
	ct := p.Type().(*PointerType).Pointee.(*ComplexType)
	return b.value(OpComplexRPtr, []*ir.Value{p}, Ptr(ct.Elem), nil)
}

// ComplexImagPtr returns the address of the imaginary part.
func (b *Builder) ComplexImagPtr(p *ir.Value) *ir.Value {
	ct := p.Type().(*PointerType).Pointee.(*ComplexType)
	return b.value(OpComplexIPtr, []*ir.Value{p}, Ptr(ct.Elem), nil)
}

// ComplexAdd adds two complex values.
func (b *Builder) ComplexAdd(lhs, rhs *ir.Value) *ir.Value {
	return b.value(OpComplexAdd, []*ir.Value{lhs, rhs}, lhs.Type(), nil)
}

// ComplexSub subtracts two complex values.
func (b *Builder) ComplexSub(lhs, rhs *ir.Value) *ir.Value {
	return b.value(OpComplexSub, []*ir.Value{lhs, rhs}, lhs.Type(), nil)
}

// -----------------------------------------------------------------------------

// BitOp applies one of the bit counting operations.  poisonZero is only
// meaningful for clz and ctz.
func (b *Builder) BitOp(name string, x *ir.Value, poisonZero bool) *ir.Value {
	var attrs map[string]interface{}
	if poisonZero {
		attrs = map[string]interface{}{AttrPoisonZero: true}
	}

	return b.value(name, []*ir.Value{x}, x.Type(), attrs)
}

// Assume tells the optimizer cond holds.
func (b *Builder) Assume(cond *ir.Value) *ir.Operation {
	return b.create(OpAssume, []*ir.Value{cond}, nil, nil)
}

// Expect annotates the expected value of x.  A negative prob means no
// probability is attached.
func (b *Builder) Expect(x, expected *ir.Value, prob float64) *ir.Value {
	var attrs map[string]interface{}
	if prob >= 0 {
		attrs = map[string]interface{}{AttrProb: prob}
	}

	return b.value(OpExpect, []*ir.Value{x, expected}, x.Type(), attrs)
}

// StackSave returns the current stack pointer.
func (b *Builder) StackSave(typ *PointerType) *ir.Value {
	return b.value(OpStackSave, nil, typ, nil)
}

// StackRestore restores a saved stack pointer.
func (b *Builder) StackRestore(p *ir.Value) *ir.Operation {
	return b.create(OpStackRestore, []*ir.Value{p}, nil, nil)
}
