package lower

import (
	"math/bits"

	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/rewrite"
)

// laneIndex materializes the i64 lane index used by element accesses.
func laneIndex(r *rewrite.Rewriter, i uint64) *ir.Value {
	return r.BuildIntConst(llvm.I64, int64(i))
}

func (l *Lowerer) lowerVecCreate(op *ir.Operation, r *rewrite.Rewriter) error {
	vt, ok := op.Result(0).Type().(*cir.VectorType)
	if !ok {
		return invariant(op, "vec.create must produce a vector")
	}

	if uint64(len(op.Operands)) != vt.Size {
		return invariant(op, "vec.create has %d elements for a vector of %d", len(op.Operands), vt.Size)
	}

	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	result := r.BuildPoison(resTy)
	for i := range op.Operands {
		result = r.BuildInsertElement(result, r.Operand(op, i), laneIndex(r, uint64(i)))
	}

	r.ReplaceOp(op, result)
	return nil
}

func (l *Lowerer) lowerVecExtract(op *ir.Operation, r *rewrite.Rewriter) error {
	r.ReplaceOp(op, r.BuildExtractElement(r.Operand(op, 0), r.Operand(op, 1)))
	return nil
}

func (l *Lowerer) lowerVecInsert(op *ir.Operation, r *rewrite.Rewriter) error {
	r.ReplaceOp(op, r.BuildInsertElement(r.Operand(op, 0), r.Operand(op, 1), r.Operand(op, 2)))
	return nil
}

// lowerVecCmp compares lane by lane and sign-extends the i1 lanes so that a
// true lane has every bit set.
func (l *Lowerer) lowerVecCmp(op *ir.Operation, r *rewrite.Rewriter) error {
	kind, err := kindAttr[cir.CmpOpKind](op)
	if err != nil {
		return err
	}

	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	lhs, rhs := r.Operand(op, 0), r.Operand(op, 1)

	var mask *ir.Value
	switch et := cir.ElementType(op.Operands[0].Type()).(type) {
	case *cir.IntType:
		mask = r.BuildICmp(intPredicate(kind, et.Signed), lhs, rhs)
	case *cir.FloatType, *cir.LongDoubleType:
		mask = r.BuildFCmp(realPredicate(kind), lhs, rhs)
	default:
		return unsupported(op, "unsupported type for vec.cmp: %s", et.Repr())
	}

	r.ReplaceOp(op, r.BuildSExt(mask, resTy))
	return nil
}

// lowerVecSplat broadcasts a scalar.  Poison and literal scalars fold into a
// poison or dense vector; anything else is inserted in lane zero and shuffled
// into every lane.
func (l *Lowerer) lowerVecSplat(op *ir.Operation, r *rewrite.Rewriter) error {
	vt, ok := op.Result(0).Type().(*cir.VectorType)
	if !ok {
		return invariant(op, "vec.splat must produce a vector")
	}

	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	elem := r.Operand(op, 0)
	if def := elem.DefiningOp(); def != nil {
		switch def.Name {
		case llvm.OpPoison:
			r.ReplaceOp(op, r.BuildPoison(resTy))
			return nil
		case llvm.OpConstant:
			switch c := def.Attr(llvm.AttrValue).(type) {
			case *llvm.IntAttr:
				r.ReplaceOp(op, r.BuildIntConst(resTy, c.Value))
				return nil
			case *llvm.FloatAttr:
				r.ReplaceOp(op, r.BuildFloatConst(resTy, c.Value))
				return nil
			}
		}
	}

	poison := r.BuildPoison(resTy)
	one := r.BuildInsertElement(poison, elem, laneIndex(r, 0))
	r.ReplaceOp(op, r.BuildShuffleVector(one, poison, make([]int32, vt.Size)))
	return nil
}

func (l *Lowerer) lowerVecShuffle(op *ir.Operation, r *rewrite.Rewriter) error {
	indices, ok := op.Attr(cir.AttrIndices).([]int64)
	if !ok {
		return invariant(op, "vec.shuffle without indices")
	}

	mask := make([]int32, len(indices))
	for i, idx := range indices {
		mask[i] = int32(idx)
	}

	r.ReplaceOp(op, r.BuildShuffleVector(r.Operand(op, 0), r.Operand(op, 1), mask))
	return nil
}

// lowerVecShuffleDynamic has no single target instruction: the indices are
// masked to the smallest power of two range covering the lanes, then every
// lane is extracted and inserted in turn.
func (l *Lowerer) lowerVecShuffleDynamic(op *ir.Operation, r *rewrite.Rewriter) error {
	vt, ok := op.Operands[0].Type().(*cir.VectorType)
	if !ok {
		return invariant(op, "vec.shuffle.dynamic on a non-vector")
	}

	indexVecTy, err := l.convert(op, op.Operands[1].Type())
	if err != nil {
		return err
	}

	vecTy, err := l.convert(op, vt)
	if err != nil {
		return err
	}

	n := vt.Size
	maskBits := nextPowerOf2(n-1) - 1
	maskValue := r.BuildIntConst(llvm.ElementType(indexVecTy), int64(maskBits))

	maskVector := r.BuildUndef(indexVecTy)
	for i := uint64(0); i < n; i++ {
		maskVector = r.BuildInsertElement(maskVector, maskValue, laneIndex(r, i))
	}

	input := r.Operand(op, 0)
	masked := r.BuildAnd(r.Operand(op, 1), maskVector)

	result := r.BuildUndef(vecTy)
	for i := uint64(0); i < n; i++ {
		lane := laneIndex(r, i)
		idx := r.BuildExtractElement(masked, lane)
		result = r.BuildInsertElement(result, r.BuildExtractElement(input, idx), lane)
	}

	r.ReplaceOp(op, result)
	return nil
}

// nextPowerOf2 returns the smallest power of two strictly greater than x.
func nextPowerOf2(x uint64) uint64 {
	return 1 << bits.Len64(x)
}

// lowerVecTernary selects lanes where the integer condition is non-zero.
func (l *Lowerer) lowerVecTernary(op *ir.Operation, r *rewrite.Rewriter) error {
	cond := r.Operand(op, 0)
	bitVec := r.BuildICmp(llvm.IntNE, cond, r.BuildZero(cond.Type()))
	r.ReplaceOp(op, r.BuildSelect(bitVec, r.Operand(op, 1), r.Operand(op, 2)))
	return nil
}
