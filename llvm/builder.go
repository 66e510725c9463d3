package llvm

import (
	"fmt"
	"math/big"

	"cirlower/ir"
)

// IRBuilder builds target operations at the insertion point of an IR builder.
// Every Build* method emits exactly one operation.
type IRBuilder struct {
	*ir.Builder
}

// NewIRBuilder wraps an IR builder.
func NewIRBuilder(b *ir.Builder) *IRBuilder {
	return &IRBuilder{Builder: b}
}

func (b *IRBuilder) build(name string, operands []*ir.Value, result ir.Type, attrs map[string]interface{}) *ir.Value {
	var results []ir.Type
	if result != nil {
		results = []ir.Type{result}
	}

	op := b.Create(name, operands, results, attrs)
	if result == nil {
		return nil
	}

	return op.Result(0)
}

// -----------------------------------------------------------------------------

// BuildConstant materializes a literal attribute.
func (b *IRBuilder) BuildConstant(c Constant) *ir.Value {
	return b.build(OpConstant, nil, c.Type(), map[string]interface{}{AttrValue: c})
}

// BuildIntConst materializes an integer literal.  If typ is a vector, the
// literal is splatted into every lane.
func (b *IRBuilder) BuildIntConst(typ ir.Type, v int64) *ir.Value {
	if vt, ok := typ.(*VectorType); ok {
		return b.BuildConstant(Splat(vt, NewInt(vt.Elem, v)))
	}

	return b.BuildConstant(NewInt(typ, v))
}

// BuildBigIntConst materializes an integer literal of any width.
func (b *IRBuilder) BuildBigIntConst(typ ir.Type, v *big.Int) *ir.Value {
	if vt, ok := typ.(*VectorType); ok {
		return b.BuildConstant(Splat(vt, NewBigInt(vt.Elem, v)))
	}

	return b.BuildConstant(NewBigInt(typ, v))
}

// BuildFloatConst materializes a float literal.  If typ is a vector, the
// literal is splatted into every lane.
func (b *IRBuilder) BuildFloatConst(typ ir.Type, v float64) *ir.Value {
	if vt, ok := typ.(*VectorType); ok {
		return b.BuildConstant(Splat(vt, NewFloat(vt.Elem, v)))
	}

	return b.BuildConstant(NewFloat(typ, v))
}

// BuildZero materializes the all-zero value of typ.
func (b *IRBuilder) BuildZero(typ ir.Type) *ir.Value {
	return b.build(OpZero, nil, typ, nil)
}

// BuildUndef materializes an undefined value of typ.
func (b *IRBuilder) BuildUndef(typ ir.Type) *ir.Value {
	return b.build(OpUndef, nil, typ, nil)
}

// BuildPoison materializes a poison value of typ.
func (b *IRBuilder) BuildPoison(typ ir.Type) *ir.Value {
	return b.build(OpPoison, nil, typ, nil)
}

// BuildAddressOf returns the address of the global or function named sym.
func (b *IRBuilder) BuildAddressOf(sym string, typ *PointerType) *ir.Value {
	return b.build(OpAddressOf, nil, typ, map[string]interface{}{AttrGlobalName: sym})
}

// -----------------------------------------------------------------------------

// BuildBinOp emits a binary operation whose result has the type of lhs.
func (b *IRBuilder) BuildBinOp(name string, lhs, rhs *ir.Value) *ir.Value {
	return b.build(name, []*ir.Value{lhs, rhs}, lhs.Type(), nil)
}

// BuildArith emits an integer add, sub, mul or shl carrying overflow flags.
func (b *IRBuilder) BuildArith(name string, lhs, rhs *ir.Value, flags OverflowFlags) *ir.Value {
	v := b.BuildBinOp(name, lhs, rhs)
	if flags != OverflowNone {
		v.DefiningOp().SetAttr(AttrOverflow, flags)
	}

	return v
}

// BuildAdd emits an integer addition.
func (b *IRBuilder) BuildAdd(lhs, rhs *ir.Value, flags OverflowFlags) *ir.Value {
	return b.BuildArith(OpAdd, lhs, rhs, flags)
}

// BuildSub emits an integer subtraction.
func (b *IRBuilder) BuildSub(lhs, rhs *ir.Value, flags OverflowFlags) *ir.Value {
	return b.BuildArith(OpSub, lhs, rhs, flags)
}

// BuildMul emits an integer multiplication.
func (b *IRBuilder) BuildMul(lhs, rhs *ir.Value, flags OverflowFlags) *ir.Value {
	return b.BuildArith(OpMul, lhs, rhs, flags)
}

// BuildAnd emits a bitwise and.
func (b *IRBuilder) BuildAnd(lhs, rhs *ir.Value) *ir.Value {
	return b.BuildBinOp(OpAnd, lhs, rhs)
}

// BuildOr emits a bitwise or.
func (b *IRBuilder) BuildOr(lhs, rhs *ir.Value) *ir.Value {
	return b.BuildBinOp(OpOr, lhs, rhs)
}

// BuildXor emits a bitwise exclusive or.
func (b *IRBuilder) BuildXor(lhs, rhs *ir.Value) *ir.Value {
	return b.BuildBinOp(OpXor, lhs, rhs)
}

// BuildShl emits a left shift.
func (b *IRBuilder) BuildShl(lhs, rhs *ir.Value) *ir.Value {
	return b.BuildBinOp(OpShl, lhs, rhs)
}

// BuildLShr emits a logical right shift.
func (b *IRBuilder) BuildLShr(lhs, rhs *ir.Value) *ir.Value {
	return b.BuildBinOp(OpLShr, lhs, rhs)
}

// BuildAShr emits an arithmetic right shift.
func (b *IRBuilder) BuildAShr(lhs, rhs *ir.Value) *ir.Value {
	return b.BuildBinOp(OpAShr, lhs, rhs)
}

// BuildFNeg emits a float negation.
func (b *IRBuilder) BuildFNeg(x *ir.Value) *ir.Value {
	return b.build(OpFNeg, []*ir.Value{x}, x.Type(), nil)
}

// BuildICmp emits an integer or pointer comparison.  Vector operands produce
// a vector of i1.
func (b *IRBuilder) BuildICmp(pred IntPredicate, lhs, rhs *ir.Value) *ir.Value {
	return b.build(OpICmp, []*ir.Value{lhs, rhs}, maskType(lhs.Type()), map[string]interface{}{AttrPredicate: pred})
}

// BuildFCmp emits a floating point comparison.
func (b *IRBuilder) BuildFCmp(pred RealPredicate, lhs, rhs *ir.Value) *ir.Value {
	return b.build(OpFCmp, []*ir.Value{lhs, rhs}, maskType(lhs.Type()), map[string]interface{}{AttrPredicate: pred})
}

func maskType(t ir.Type) ir.Type {
	if vt, ok := t.(*VectorType); ok {
		return &VectorType{Elem: I1, Len: vt.Len, Scalable: vt.Scalable}
	}

	return I1
}

// BuildSelect chooses between ifTrue and ifFalse.
func (b *IRBuilder) BuildSelect(cond, ifTrue, ifFalse *ir.Value) *ir.Value {
	return b.build(OpSelect, []*ir.Value{cond, ifTrue, ifFalse}, ifTrue.Type(), nil)
}

// BuildCast emits one of the conversion operations.
func (b *IRBuilder) BuildCast(name string, x *ir.Value, typ ir.Type) *ir.Value {
	return b.build(name, []*ir.Value{x}, typ, nil)
}

// BuildTrunc truncates an integer.
func (b *IRBuilder) BuildTrunc(x *ir.Value, typ ir.Type) *ir.Value {
	return b.BuildCast(OpTrunc, x, typ)
}

// BuildZExt zero-extends an integer.
func (b *IRBuilder) BuildZExt(x *ir.Value, typ ir.Type) *ir.Value {
	return b.BuildCast(OpZExt, x, typ)
}

// BuildSExt sign-extends an integer.
func (b *IRBuilder) BuildSExt(x *ir.Value, typ ir.Type) *ir.Value {
	return b.BuildCast(OpSExt, x, typ)
}

// BuildBitcast reinterprets the bits of x.
func (b *IRBuilder) BuildBitcast(x *ir.Value, typ ir.Type) *ir.Value {
	return b.BuildCast(OpBitcast, x, typ)
}

// -----------------------------------------------------------------------------

// BuildAlloca reserves size elements of type elem on the stack.
func (b *IRBuilder) BuildAlloca(elem ir.Type, size *ir.Value, align uint64, ptrType *PointerType) *ir.Value {
	attrs := map[string]interface{}{AttrElemType: elem}
	if align != 0 {
		attrs[AttrAlignment] = align
	}

	return b.build(OpAlloca, []*ir.Value{size}, ptrType, attrs)
}

// BuildLoad reads a value of type typ from addr.
func (b *IRBuilder) BuildLoad(typ ir.Type, addr *ir.Value, align uint64, volatile bool) *ir.Value {
	attrs := map[string]interface{}{}
	if align != 0 {
		attrs[AttrAlignment] = align
	}

	if volatile {
		attrs[AttrVolatile] = true
	}

	return b.build(OpLoad, []*ir.Value{addr}, typ, attrs)
}

// BuildStore writes v to addr.
func (b *IRBuilder) BuildStore(v, addr *ir.Value, align uint64, volatile bool) *ir.Operation {
	attrs := map[string]interface{}{}
	if align != 0 {
		attrs[AttrAlignment] = align
	}

	if volatile {
		attrs[AttrVolatile] = true
	}

	return b.Create(OpStore, []*ir.Value{v, addr}, nil, attrs)
}

// GEPIndex is one index of a pointer computation: either a constant or a
// dynamic value.
type GEPIndex struct {
	Const int32
	Value *ir.Value
}

// ConstIndex returns a constant GEP index.
func ConstIndex(i int32) GEPIndex {
	return GEPIndex{Const: i}
}

// DynIndex returns a dynamic GEP index.
func DynIndex(v *ir.Value) GEPIndex {
	return GEPIndex{Const: DynamicIndex, Value: v}
}

// BuildGEP computes the address of an element of elem starting at base.
func (b *IRBuilder) BuildGEP(ptrType ir.Type, elem ir.Type, base *ir.Value, indices []GEPIndex, inbounds bool) *ir.Value {
	raw := make([]int32, len(indices))
	operands := []*ir.Value{base}
	for i, idx := range indices {
		raw[i] = idx.Const
		if idx.Value != nil {
			raw[i] = DynamicIndex
			operands = append(operands, idx.Value)
		}
	}

	attrs := map[string]interface{}{AttrElemType: elem, AttrRawIndices: raw}
	if inbounds {
		attrs[AttrInBounds] = true
	}

	return b.build(OpGEP, operands, ptrType, attrs)
}

// -----------------------------------------------------------------------------

// BuildExtractValue reads a member of an aggregate.
func (b *IRBuilder) BuildExtractValue(agg *ir.Value, pos ...int64) *ir.Value {
	return b.build(OpExtractValue, []*ir.Value{agg}, MemberType(agg.Type(), pos...),
		map[string]interface{}{AttrPosition: pos})
}

// BuildInsertValue replaces a member of an aggregate.
func (b *IRBuilder) BuildInsertValue(agg, v *ir.Value, pos ...int64) *ir.Value {
	return b.build(OpInsertValue, []*ir.Value{agg, v}, agg.Type(), map[string]interface{}{AttrPosition: pos})
}

// MemberType returns the type reached by following pos through aggregate t.
func MemberType(t ir.Type, pos ...int64) ir.Type {
	for _, p := range pos {
		switch v := t.(type) {
		case *StructType:
			t = v.Fields[p]
		case *ArrayType:
			t = v.Elem
		default:
			panic(fmt.Sprintf("llvm: %s is not an aggregate", t.Repr()))
		}
	}

	return t
}

// BuildExtractElement reads one lane of a vector.
func (b *IRBuilder) BuildExtractElement(vec, idx *ir.Value) *ir.Value {
	return b.build(OpExtractElement, []*ir.Value{vec, idx}, vec.Type().(*VectorType).Elem, nil)
}

// BuildInsertElement replaces one lane of a vector.
func (b *IRBuilder) BuildInsertElement(vec, v, idx *ir.Value) *ir.Value {
	return b.build(OpInsertElement, []*ir.Value{vec, v, idx}, vec.Type(), nil)
}

// BuildShuffleVector picks lanes of the concatenation of v1 and v2.  A mask
// entry of -1 yields an undefined lane.
func (b *IRBuilder) BuildShuffleVector(v1, v2 *ir.Value, mask []int32) *ir.Value {
	vt := v1.Type().(*VectorType)
	result := &VectorType{Elem: vt.Elem, Len: uint64(len(mask)), Scalable: vt.Scalable}
	return b.build(OpShuffleVector, []*ir.Value{v1, v2}, result, map[string]interface{}{AttrMask: mask})
}

// -----------------------------------------------------------------------------

// BuildCall emits a direct call to the function named callee.
func (b *IRBuilder) BuildCall(callee string, ft *FuncType, args []*ir.Value) *ir.Operation {
	return b.Create(OpCall, args, callResults(ft), map[string]interface{}{
		AttrCallee:     callee,
		AttrCalleeType: ft,
	})
}

// BuildIndirectCall emits a call through the function pointer fn.
func (b *IRBuilder) BuildIndirectCall(ft *FuncType, fn *ir.Value, args []*ir.Value) *ir.Operation {
	return b.Create(OpCall, append([]*ir.Value{fn}, args...), callResults(ft), map[string]interface{}{
		AttrCalleeType: ft,
	})
}

func callResults(ft *FuncType) []ir.Type {
	if _, ok := ft.Ret.(*VoidType); ok {
		return nil
	}

	return []ir.Type{ft.Ret}
}

// BuildIntrinsic calls the intrinsic named name.  The result is nil when ret
// is void.
func (b *IRBuilder) BuildIntrinsic(name string, ret ir.Type, args ...*ir.Value) *ir.Value {
	if _, ok := ret.(*VoidType); ok || ret == nil {
		return b.build(OpCallIntrinsic, args, nil, map[string]interface{}{AttrIntrinsic: name})
	}

	return b.build(OpCallIntrinsic, args, ret, map[string]interface{}{AttrIntrinsic: name})
}

// -----------------------------------------------------------------------------

// BuildReturn returns from the enclosing function.
func (b *IRBuilder) BuildReturn(vals ...*ir.Value) *ir.Operation {
	return b.Create(OpReturn, vals, nil, nil)
}

// BuildBr branches to dest.
func (b *IRBuilder) BuildBr(dest *ir.Block, args []*ir.Value) *ir.Operation {
	op := b.Create(OpBr, nil, nil, nil)
	op.AddSuccessor(dest, args)
	return op
}

// BuildCondBr branches on cond.
func (b *IRBuilder) BuildCondBr(cond *ir.Value, ifTrue *ir.Block, trueArgs []*ir.Value, ifFalse *ir.Block, falseArgs []*ir.Value) *ir.Operation {
	op := b.Create(OpCondBr, []*ir.Value{cond}, nil, nil)
	op.AddSuccessor(ifTrue, trueArgs)
	op.AddSuccessor(ifFalse, falseArgs)
	return op
}

// BuildSwitch emits a multi-way branch.  The default destination is the first
// successor, followed by one successor per case value.
func (b *IRBuilder) BuildSwitch(x *ir.Value, def *ir.Block, defArgs []*ir.Value, values []int64, dests []*ir.Block, destArgs [][]*ir.Value) *ir.Operation {
	op := b.Create(OpSwitch, []*ir.Value{x}, nil, map[string]interface{}{AttrCaseValues: values})
	op.AddSuccessor(def, defArgs)
	for i, d := range dests {
		op.AddSuccessor(d, destArgs[i])
	}

	return op
}

// BuildUnreachable terminates a block that is never reached.
func (b *IRBuilder) BuildUnreachable() *ir.Operation {
	return b.Create(OpUnreachable, nil, nil, nil)
}
