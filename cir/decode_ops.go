package cir

import (
	"math"
	"strings"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"cirlower/ir"
)

// op decodes one operation at the insertion point of the builder.
func (d *decoder) op(od *opDoc) error {
	loc, err := location(od.Loc)
	if err != nil {
		return err
	}

	d.b.Loc = loc

	res, op, err := d.build(od)
	if err != nil {
		return err
	}

	if op == nil && res != nil {
		op = res.DefiningOp()
	}

	for _, f := range od.Flags {
		attr, ok := opFlags[f]
		if !ok {
			return errors.New("unknown flag %q", f)
		}

		op.SetAttr(attr, true)
	}

	if od.Result != "" {
		if res == nil {
			return errors.New("operation produces no value to name %s", od.Result)
		}

		return d.define(od.Result, res)
	}

	return nil
}

// build dispatches on the operation name.  It returns the result of value
// producing operations and the operation itself otherwise.
func (d *decoder) build(od *opDoc) (*ir.Value, *ir.Operation, error) {
	name := "cir." + strings.TrimPrefix(od.Op, "cir.")

	switch name {
	case OpGetGlobal:
		pt, err := d.resultType(od)
		if err != nil {
			return nil, nil, err
		}

		ptr, ok := pt.(*PointerType)
		if !ok {
			return nil, nil, errors.New("address of %s must be a pointer", od.Symbol)
		}

		return d.b.GetGlobal(od.Symbol, ptr), nil, nil
	case OpCall:
		return d.call(od)
	case OpReturn:
		args, err := d.valueList(od.Operands)
		if err != nil {
			return nil, nil, err
		}

		return nil, d.b.Return(args...), nil
	case OpBr:
		dest, args, err := d.target(od.Dest)
		if err != nil {
			return nil, nil, err
		}

		return nil, d.b.Br(dest, args...), nil
	case OpBrCond:
		ops, err := d.operands(od, 1)
		if err != nil {
			return nil, nil, err
		}

		thenBlk, thenArgs, err := d.target(od.Then)
		if err != nil {
			return nil, nil, err
		}

		elseBlk, elseArgs, err := d.target(od.Else)
		if err != nil {
			return nil, nil, err
		}

		return nil, d.b.BrCond(ops[0], thenBlk, thenArgs, elseBlk, elseArgs), nil
	case OpSwitchFlat:
		return d.switchFlat(od)
	case OpTrap:
		return nil, d.b.Trap(), nil
	case OpUnreachable:
		return nil, d.b.Unreachable(), nil
	case OpConst:
		t, err := d.resultType(od)
		if err != nil {
			return nil, nil, err
		}

		if od.Value.Kind == 0 {
			return nil, nil, errors.New("constant without a value")
		}

		attr, err := decodeAttr(&od.Value, t)
		if err != nil {
			return nil, nil, err
		}

		return d.b.Const(attr), nil, nil
	case OpStackSave:
		t, err := d.resultType(od)
		if err != nil {
			return nil, nil, err
		}

		pt, ok := t.(*PointerType)
		if !ok {
			return nil, nil, errors.New("stack pointer must be a pointer")
		}

		return d.b.StackSave(pt), nil, nil
	}

	if bitOps[name] {
		ops, err := d.operands(od, 1)
		if err != nil {
			return nil, nil, err
		}

		return d.b.BitOp(name, ops[0], od.PoisonZero), nil, nil
	}

	switch name {
	case OpCast, OpBinOp, OpUnary, OpCmp, OpShift, OpSelect:
		return d.arith(name, od)
	case OpAlloca, OpLoad, OpStore, OpPtrStride, OpBaseClass, OpGetMember, OpSetBitfield, OpGetBitfield,
		OpStackRestore, OpAssume, OpExpect:
		return d.memory(name, od)
	case OpVecCreate, OpVecExtract, OpVecInsert, OpVecCmp, OpVecSplat, OpVecShuffle, OpVecShuffleDy, OpVecTernary:
		return d.vector(name, od)
	case OpComplexNew, OpComplexReal, OpComplexImag, OpComplexRPtr, OpComplexIPtr, OpComplexAdd, OpComplexSub:
		return d.complex(name, od)
	}

	return nil, nil, errors.New("unknown operation")
}

var bitOps = map[string]bool{
	OpBitClrsb:    true,
	OpBitClz:      true,
	OpBitCtz:      true,
	OpBitFfs:      true,
	OpBitParity:   true,
	OpBitPopcount: true,
	OpBitReverse:  true,
	OpByteSwap:    true,
}

// -----------------------------------------------------------------------------

func (d *decoder) call(od *opDoc) (*ir.Value, *ir.Operation, error) {
	ret := ir.Type(Void)
	if od.Type != "" {
		var err error
		if ret, err = d.typ(od.Type); err != nil {
			return nil, nil, err
		}
	}

	effect := SideEffectAll
	if od.Effect != "" {
		var err error
		if effect, err = ParseSideEffect(od.Effect); err != nil {
			return nil, nil, err
		}
	}

	args, err := d.valueList(od.Operands)
	if err != nil {
		return nil, nil, err
	}

	var op *ir.Operation
	if od.Callee != "" {
		op = d.b.Call(od.Callee, ret, args, effect)
	} else {
		if len(args) == 0 {
			return nil, nil, errors.New("indirect call without a callee operand")
		}

		op = d.b.CallIndirect(args[0], ret, args[1:], effect)
	}

	if len(op.Results) == 0 {
		return nil, op, nil
	}

	return op.Result(0), op, nil
}

func (d *decoder) switchFlat(od *opDoc) (*ir.Value, *ir.Operation, error) {
	ops, err := d.operands(od, 1)
	if err != nil {
		return nil, nil, err
	}

	def, defArgs, err := d.target(od.Default)
	if err != nil {
		return nil, nil, err
	}

	cases := make([]SwitchCase, len(od.Cases))
	for i := range od.Cases {
		c := &od.Cases[i]

		dest, args, err := d.target(&c.targetDoc)
		if err != nil {
			return nil, nil, err
		}

		cases[i] = SwitchCase{Value: c.Value, Dest: dest, Args: args}
	}

	return nil, d.b.SwitchFlat(ops[0], def, defArgs, cases...), nil
}

func (d *decoder) arith(name string, od *opDoc) (*ir.Value, *ir.Operation, error) {
	switch name {
	case OpCast:
		kind, err := ParseCastKind(od.Kind)
		if err != nil {
			return nil, nil, err
		}

		t, err := d.resultType(od)
		if err != nil {
			return nil, nil, err
		}

		ops, err := d.operands(od, 1)
		if err != nil {
			return nil, nil, err
		}

		return d.b.Cast(kind, ops[0], t), nil, nil
	case OpBinOp:
		kind, err := ParseBinOpKind(od.Kind)
		if err != nil {
			return nil, nil, err
		}

		ops, err := d.operands(od, 2)
		if err != nil {
			return nil, nil, err
		}

		return d.b.BinOp(kind, ops[0], ops[1]), nil, nil
	case OpUnary:
		kind, err := ParseUnaryOpKind(od.Kind)
		if err != nil {
			return nil, nil, err
		}

		ops, err := d.operands(od, 1)
		if err != nil {
			return nil, nil, err
		}

		return d.b.Unary(kind, ops[0]), nil, nil
	case OpCmp:
		kind, err := ParseCmpOpKind(od.Kind)
		if err != nil {
			return nil, nil, err
		}

		ops, err := d.operands(od, 2)
		if err != nil {
			return nil, nil, err
		}

		return d.b.Cmp(kind, ops[0], ops[1]), nil, nil
	case OpShift:
		if od.Kind != "left" && od.Kind != "right" {
			return nil, nil, errors.New("shift direction must be left or right, not %q", od.Kind)
		}

		ops, err := d.operands(od, 2)
		if err != nil {
			return nil, nil, err
		}

		return d.b.Shift(od.Kind == "left", ops[0], ops[1]), nil, nil
	default: // OpSelect
		ops, err := d.operands(od, 3)
		if err != nil {
			return nil, nil, err
		}

		return d.b.Select(ops[0], ops[1], ops[2]), nil, nil
	}
}

func (d *decoder) memory(name string, od *opDoc) (*ir.Value, *ir.Operation, error) {
	switch name {
	case OpAlloca:
		t, err := d.resultType(od)
		if err != nil {
			return nil, nil, err
		}

		return d.b.Alloca(t, od.Align), nil, nil
	case OpLoad:
		ops, err := d.operands(od, 1)
		if err != nil {
			return nil, nil, err
		}

		if _, err := typeOf[*PointerType](ops[0], "address"); err != nil {
			return nil, nil, err
		}

		v := d.b.Load(ops[0])
		d.setAlign(v.DefiningOp(), od.Align)
		return v, nil, nil
	case OpStore:
		ops, err := d.operands(od, 2)
		if err != nil {
			return nil, nil, err
		}

		op := d.b.Store(ops[0], ops[1])
		d.setAlign(op, od.Align)
		return nil, op, nil
	case OpPtrStride:
		ops, err := d.operands(od, 2)
		if err != nil {
			return nil, nil, err
		}

		return d.b.PtrStride(ops[0], ops[1]), nil, nil
	case OpBaseClass:
		t, err := d.resultType(od)
		if err != nil {
			return nil, nil, err
		}

		pt, ok := t.(*PointerType)
		if !ok {
			return nil, nil, errors.New("base class address must be a pointer")
		}

		ops, err := d.operands(od, 1)
		if err != nil {
			return nil, nil, err
		}

		return d.b.BaseClassAddr(ops[0], pt, od.Offset, od.NotNull), nil, nil
	case OpGetMember:
		ops, err := d.operands(od, 1)
		if err != nil {
			return nil, nil, err
		}

		pt, err := typeOf[*PointerType](ops[0], "record address")
		if err != nil {
			return nil, nil, err
		}

		rt, ok := pt.Pointee.(*RecordType)
		if !ok {
			return nil, nil, errors.New("member of non-record %s", pt.Pointee.Repr())
		}

		if od.Index < 0 || od.Index >= len(rt.Members) {
			return nil, nil, errors.New("member %d out of range", od.Index)
		}

		return d.b.GetMember(ops[0], od.Index, od.Field), nil, nil
	case OpSetBitfield:
		info, err := d.bitfield(od)
		if err != nil {
			return nil, nil, err
		}

		ops, err := d.operands(od, 2)
		if err != nil {
			return nil, nil, err
		}

		return d.b.SetBitfield(ops[0], ops[1], info), nil, nil
	case OpGetBitfield:
		info, err := d.bitfield(od)
		if err != nil {
			return nil, nil, err
		}

		t, err := d.resultType(od)
		if err != nil {
			return nil, nil, err
		}

		ops, err := d.operands(od, 1)
		if err != nil {
			return nil, nil, err
		}

		return d.b.GetBitfield(ops[0], info, t), nil, nil
	case OpStackRestore:
		ops, err := d.operands(od, 1)
		if err != nil {
			return nil, nil, err
		}

		return nil, d.b.StackRestore(ops[0]), nil
	case OpAssume:
		ops, err := d.operands(od, 1)
		if err != nil {
			return nil, nil, err
		}

		return nil, d.b.Assume(ops[0]), nil
	default: // OpExpect
		ops, err := d.operands(od, 2)
		if err != nil {
			return nil, nil, err
		}

		prob := -1.0
		if od.Prob != nil {
			prob = *od.Prob
		}

		return d.b.Expect(ops[0], ops[1], prob), nil, nil
	}
}

func (d *decoder) vector(name string, od *opDoc) (*ir.Value, *ir.Operation, error) {
	var vt *VectorType
	switch name {
	case OpVecCreate, OpVecCmp, OpVecSplat, OpVecShuffle:
		t, err := d.resultType(od)
		if err != nil {
			return nil, nil, err
		}

		var ok bool
		if vt, ok = t.(*VectorType); !ok {
			return nil, nil, errors.New("%s is not a vector type", od.Type)
		}
	}

	switch name {
	case OpVecCreate:
		elems, err := d.valueList(od.Operands)
		if err != nil {
			return nil, nil, err
		}

		if uint64(len(elems)) != vt.Size {
			return nil, nil, errors.New("%d elements for a vector of %d", len(elems), vt.Size)
		}

		return d.b.VecCreate(vt, elems...), nil, nil
	case OpVecExtract:
		ops, err := d.operands(od, 2)
		if err != nil {
			return nil, nil, err
		}

		if _, err := typeOf[*VectorType](ops[0], "vector"); err != nil {
			return nil, nil, err
		}

		return d.b.VecExtract(ops[0], ops[1]), nil, nil
	case OpVecInsert:
		ops, err := d.operands(od, 3)
		if err != nil {
			return nil, nil, err
		}

		return d.b.VecInsert(ops[0], ops[1], ops[2]), nil, nil
	case OpVecCmp:
		kind, err := ParseCmpOpKind(od.Kind)
		if err != nil {
			return nil, nil, err
		}

		ops, err := d.operands(od, 2)
		if err != nil {
			return nil, nil, err
		}

		return d.b.VecCmp(kind, ops[0], ops[1], vt), nil, nil
	case OpVecSplat:
		ops, err := d.operands(od, 1)
		if err != nil {
			return nil, nil, err
		}

		return d.b.VecSplat(vt, ops[0]), nil, nil
	case OpVecShuffle:
		ops, err := d.operands(od, 2)
		if err != nil {
			return nil, nil, err
		}

		return d.b.VecShuffle(ops[0], ops[1], od.Indices, vt), nil, nil
	case OpVecShuffleDy:
		ops, err := d.operands(od, 2)
		if err != nil {
			return nil, nil, err
		}

		return d.b.VecShuffleDynamic(ops[0], ops[1]), nil, nil
	default: // OpVecTernary
		ops, err := d.operands(od, 3)
		if err != nil {
			return nil, nil, err
		}

		return d.b.VecTernary(ops[0], ops[1], ops[2]), nil, nil
	}
}

func (d *decoder) complex(name string, od *opDoc) (*ir.Value, *ir.Operation, error) {
	switch name {
	case OpComplexNew:
		t, err := d.resultType(od)
		if err != nil {
			return nil, nil, err
		}

		ct, ok := t.(*ComplexType)
		if !ok {
			return nil, nil, errors.New("%s is not a complex type", od.Type)
		}

		ops, err := d.operands(od, 2)
		if err != nil {
			return nil, nil, err
		}

		return d.b.ComplexCreate(ct, ops[0], ops[1]), nil, nil
	case OpComplexAdd, OpComplexSub:
		ops, err := d.operands(od, 2)
		if err != nil {
			return nil, nil, err
		}

		if name == OpComplexAdd {
			return d.b.ComplexAdd(ops[0], ops[1]), nil, nil
		}

		return d.b.ComplexSub(ops[0], ops[1]), nil, nil
	}

	ops, err := d.operands(od, 1)
	if err != nil {
		return nil, nil, err
	}

	switch name {
	case OpComplexReal, OpComplexImag:
		if _, err := typeOf[*ComplexType](ops[0], "complex"); err != nil {
			return nil, nil, err
		}

		if name == OpComplexReal {
			return d.b.ComplexReal(ops[0]), nil, nil
		}

		return d.b.ComplexImag(ops[0]), nil, nil
	}

	pt, err := typeOf[*PointerType](ops[0], "complex address")
	if err != nil {
		return nil, nil, err
	}

	if _, ok := pt.Pointee.(*ComplexType); !ok {
		return nil, nil, errors.New("%s does not point to a complex", pt.Repr())
	}

	if name == OpComplexRPtr {
		return d.b.ComplexRealPtr(ops[0]), nil, nil
	}

	return d.b.ComplexImagPtr(ops[0]), nil, nil
}

// -----------------------------------------------------------------------------

func (d *decoder) resultType(od *opDoc) (ir.Type, error) {
	if od.Type == "" {
		return nil, errors.New("missing result type")
	}

	return d.typ(od.Type)
}

// operands resolves the operands of od, of which there must be exactly n.
func (d *decoder) operands(od *opDoc, n int) ([]*ir.Value, error) {
	if len(od.Operands) != n {
		return nil, errors.New("expected %d operands, got %d", n, len(od.Operands))
	}

	return d.valueList(od.Operands)
}

func (d *decoder) setAlign(op *ir.Operation, align uint64) {
	if align != 0 {
		op.SetAttr(AttrAlignment, align)
	}
}

func (d *decoder) bitfield(od *opDoc) (*BitfieldInfo, error) {
	bd := od.Bitfield
	if bd == nil {
		return nil, errors.New("missing bitfield description")
	}

	storage, err := d.typ(bd.Storage)
	if err != nil {
		return nil, err
	}

	return &BitfieldInfo{Name: bd.Name, StorageType: storage, Size: bd.Size, Offset: bd.Offset, Signed: bd.Signed}, nil
}

func typeOf[T ir.Type](v *ir.Value, what string) (T, error) {
	t, ok := v.Type().(T)
	if !ok {
		return t, errors.New("%s operand has type %s", what, v.Type().Repr())
	}

	return t, nil
}

// -----------------------------------------------------------------------------

// decodeAttr reads a literal of type typ.  The tags !zero, !undef and !poison
// select the special literals of any type.
func decodeAttr(node *yaml.Node, typ ir.Type) (Attr, error) {
	switch node.Tag {
	case "!zero":
		return &ZeroAttr{Typ: typ}, nil
	case "!undef":
		return &UndefAttr{Typ: typ}, nil
	case "!poison":
		return &PoisonAttr{Typ: typ}, nil
	}

	switch t := typ.(type) {
	case *IntType:
		var v int64
		if err := node.Decode(&v); err != nil {
			var u uint64
			if node.Decode(&u) != nil {
				return nil, attrError(node, typ)
			}

			v = int64(u)
		}

		return NewInt(t, v), nil
	case *BoolType:
		var v bool
		if err := node.Decode(&v); err != nil {
			return nil, attrError(node, typ)
		}

		return &BoolAttr{Value: v}, nil
	case *FloatType, *LongDoubleType:
		v, err := decodeFloat(node)
		if err != nil {
			return nil, attrError(node, typ)
		}

		return &FPAttr{Typ: typ, Value: v}, nil
	case *PointerType:
		if node.ShortTag() == "!!null" {
			return &PtrAttr{Typ: t}, nil
		}

		var v int64
		if err := node.Decode(&v); err != nil {
			return nil, attrError(node, typ)
		}

		return &PtrAttr{Typ: t, Value: v}, nil
	case *ComplexType:
		if node.Kind != yaml.SequenceNode || len(node.Content) != 2 {
			return nil, attrError(node, typ)
		}

		re, err := decodeAttr(node.Content[0], t.Elem)
		if err != nil {
			return nil, err
		}

		im, err := decodeAttr(node.Content[1], t.Elem)
		if err != nil {
			return nil, err
		}

		return &ComplexAttr{Typ: t, Real: re, Imag: im}, nil
	case *ArrayType:
		if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!str" {
			if uint64(len(node.Value)) > t.Size {
				return nil, errors.New("line %d: string of %d bytes in %s", node.Line, len(node.Value), typ.Repr())
			}

			return NewString(t, node.Value), nil
		}

		elts, err := decodeElems(node, t.Elem)
		if err != nil {
			return nil, err
		}

		if uint64(len(elts)) > t.Size {
			return nil, errors.New("line %d: %d elements in %s", node.Line, len(elts), typ.Repr())
		}

		return NewConstArray(t, elts...), nil
	case *VectorType:
		elts, err := decodeElems(node, t.Elem)
		if err != nil {
			return nil, err
		}

		if uint64(len(elts)) != t.Size {
			return nil, errors.New("line %d: %d elements in %s", node.Line, len(elts), typ.Repr())
		}

		return &ConstVectorAttr{Typ: t, Elts: elts}, nil
	}

	return nil, errors.New("line %d: no literal syntax for %s", node.Line, typ.Repr())
}

func decodeElems(node *yaml.Node, elem ir.Type) ([]Attr, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, errors.New("line %d: expected a list of elements", node.Line)
	}

	elts := make([]Attr, len(node.Content))
	for i, n := range node.Content {
		e, err := decodeAttr(n, elem)
		if err != nil {
			return nil, err
		}

		elts[i] = e
	}

	return elts, nil
}

// decodeFloat accepts the YAML spellings of infinities and NaN besides plain
// numbers.
func decodeFloat(node *yaml.Node) (float64, error) {
	switch strings.ToLower(node.Value) {
	case "nan", ".nan":
		return math.NaN(), nil
	case "inf", ".inf", "+inf", "+.inf":
		return math.Inf(1), nil
	case "-inf", "-.inf":
		return math.Inf(-1), nil
	}

	var v float64
	err := node.Decode(&v)
	return v, err
}

func attrError(node *yaml.Node, typ ir.Type) error {
	return errors.New("line %d: %q is not a literal of %s", node.Line, node.Value, typ.Repr())
}
