package lower

import (
	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/rewrite"
)

// lowerAlloca reserves a single element of the memory type of the allocated
// type.
func (l *Lowerer) lowerAlloca(op *ir.Operation, r *rewrite.Rewriter) error {
	allocaType, ok := op.Attr(cir.AttrAllocaType).(ir.Type)
	if !ok {
		return invariant(op, "alloca without an allocated type")
	}

	elem, err := l.convertMem(op, allocaType)
	if err != nil {
		return err
	}

	resTy, err := l.convertMem(op, op.Result(0).Type())
	if err != nil {
		return err
	}

	size := r.BuildIntConst(l.dl.IndexType(), 1)

	// the source always records an alignment, but an implicit one is the ABI
	// alignment of the element
	align := l.alignment(op, elem)

	r.ReplaceOp(op, r.BuildAlloca(elem, size, align, resTy.(*llvm.PointerType)))
	return nil
}

// lowerLoad reads the memory representation of the loaded type and brings
// booleans back to a single bit.
func (l *Lowerer) lowerLoad(op *ir.Operation, r *rewrite.Rewriter) error {
	memTy, err := l.convertMem(op, op.Result(0).Type())
	if err != nil {
		return err
	}

	loaded := r.BuildLoad(memTy, r.Operand(op, 0), l.alignment(op, memTy), op.BoolAttr(cir.AttrIsVolatile))

	if _, ok := op.Result(0).Type().(*cir.BoolType); ok {
		loaded = intCast(r, loaded, llvm.I1, false)
	}

	r.ReplaceOp(op, loaded)
	return nil
}

// lowerStore widens booleans to their memory representation before writing
// them.
func (l *Lowerer) lowerStore(op *ir.Operation, r *rewrite.Rewriter) error {
	srcType := op.Operands[0].Type()

	memTy, err := l.convertMem(op, srcType)
	if err != nil {
		return err
	}

	val := r.Operand(op, 0)
	if _, ok := srcType.(*cir.BoolType); ok {
		val = intCast(r, val, memTy, false)
	}

	r.BuildStore(val, r.Operand(op, 1), l.alignment(op, memTy), op.BoolAttr(cir.AttrIsVolatile))
	r.EraseOp(op)
	return nil
}

// -----------------------------------------------------------------------------

// lowerPtrStride offsets a pointer by a number of elements of its pointee.
// The stride is brought to the index width of the target: when it is the
// negation of a narrower integer, the extension is applied to the operand of
// the negation so that the sign of the stride survives.
func (l *Lowerer) lowerPtrStride(op *ir.Operation, r *rewrite.Rewriter) error {
	pt, err := pointerType(op, op.Operands[0])
	if err != nil {
		return err
	}

	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	elem, err := l.convertMem(op, pt.Pointee)
	if err != nil {
		return err
	}

	// void and functions have no layout: step over bytes instead
	switch elem.(type) {
	case *llvm.VoidType, *llvm.FuncType:
		elem = llvm.I8
	}

	index := r.Operand(op, 1)
	indexType := l.dl.IndexType()

	if llvm.BitWidth(index.Type()) != indexType.Width {
		sub := index.DefiningOp()
		srcUnary := op.Operands[1].DefiningOp()

		rewriteSub := sub != nil && sub.Name == llvm.OpSub &&
			srcUnary != nil && srcUnary.Name == cir.OpUnary &&
			srcUnary.Attr(cir.AttrKind) == cir.UnaryMinus

		if rewriteSub {
			index = sub.Operands[1]
		}

		index = intCast(r, index, indexType, cir.IsSigned(op.Operands[1].Type()))

		if rewriteSub {
			index = r.BuildSub(r.BuildIntConst(indexType, 0), index, llvm.OverflowNone)
			if r.IsUnused(sub, op) {
				r.EraseOp(sub)
			}
		}
	}

	r.ReplaceOp(op, r.BuildGEP(resTy, elem, r.Operand(op, 0), []llvm.GEPIndex{llvm.DynIndex(index)}, false))
	return nil
}

// lowerBaseClassAddr adjusts a derived pointer by a constant byte offset.
// Unless the pointer is known not to be null, a null input stays null.
func (l *Lowerer) lowerBaseClassAddr(op *ir.Operation, r *rewrite.Rewriter) error {
	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	derived := r.Operand(op, 0)
	offset, _ := op.Attr(cir.AttrOffset).(uint64)

	if offset == 0 {
		r.ReplaceOp(op, r.BuildBitcast(derived, resTy))
		return nil
	}

	adjusted := r.BuildGEP(resTy, llvm.I8, derived, []llvm.GEPIndex{llvm.ConstIndex(int32(offset))}, false)
	if op.BoolAttr(cir.AttrAssumeNotNull) {
		r.ReplaceOp(op, adjusted)
		return nil
	}

	isNull := r.BuildICmp(llvm.IntEQ, derived, r.BuildZero(derived.Type()))
	r.ReplaceOp(op, r.BuildSelect(isNull, derived, adjusted))
	return nil
}

// lowerGetMember computes the address of a record member.  Every member of a
// union lives at the start of the union.
func (l *Lowerer) lowerGetMember(op *ir.Operation, r *rewrite.Rewriter) error {
	pt, err := pointerType(op, op.Operands[0])
	if err != nil {
		return err
	}

	rec, ok := pt.Pointee.(*cir.RecordType)
	if !ok {
		return invariant(op, "get_member on a pointer to %s", pt.Pointee.Repr())
	}

	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	addr := r.Operand(op, 0)
	if rec.IsUnion() {
		r.ReplaceOp(op, r.BuildBitcast(addr, resTy))
		return nil
	}

	index, ok := op.Attr(cir.AttrIndex).(int)
	if !ok || index < 0 || index >= len(rec.Members) {
		return invariant(op, "member index out of range for %s", rec.Repr())
	}

	recTy, err := l.convert(op, rec)
	if err != nil {
		return err
	}

	r.ReplaceOp(op, r.BuildGEP(resTy, recTy, addr, []llvm.GEPIndex{llvm.ConstIndex(0), llvm.ConstIndex(int32(index))}, false))
	return nil
}
