package lower

import (
	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/rewrite"
)

// Complex values are two member structs: the real part then the imaginary
// part.

func (l *Lowerer) lowerComplexCreate(op *ir.Operation, r *rewrite.Rewriter) error {
	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	result := r.BuildUndef(resTy)
	result = r.BuildInsertValue(result, r.Operand(op, 0), 0)
	r.ReplaceOp(op, r.BuildInsertValue(result, r.Operand(op, 1), 1))
	return nil
}

func (l *Lowerer) lowerComplexReal(op *ir.Operation, r *rewrite.Rewriter) error {
	r.ReplaceOp(op, r.BuildExtractValue(r.Operand(op, 0), 0))
	return nil
}

func (l *Lowerer) lowerComplexImag(op *ir.Operation, r *rewrite.Rewriter) error {
	r.ReplaceOp(op, r.BuildExtractValue(r.Operand(op, 0), 1))
	return nil
}

func (l *Lowerer) lowerComplexRealPtr(op *ir.Operation, r *rewrite.Rewriter) error {
	return l.complexPartPtr(op, r, 0)
}

func (l *Lowerer) lowerComplexImagPtr(op *ir.Operation, r *rewrite.Rewriter) error {
	return l.complexPartPtr(op, r, 1)
}

// complexPartPtr addresses one part of the complex value pointed to by the
// operand of op.
func (l *Lowerer) complexPartPtr(op *ir.Operation, r *rewrite.Rewriter, part int32) error {
	pt, err := pointerType(op, op.Operands[0])
	if err != nil {
		return err
	}

	if _, ok := pt.Pointee.(*cir.ComplexType); !ok {
		return invariant(op, "expected a pointer to a complex value, got %s", pt.Repr())
	}

	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	complexTy, err := l.convert(op, pt.Pointee)
	if err != nil {
		return err
	}

	gep := r.BuildGEP(resTy, complexTy, r.Operand(op, 0), []llvm.GEPIndex{llvm.ConstIndex(0), llvm.ConstIndex(part)}, true)
	gep.DefiningOp().SetAttr(llvm.AttrNUW, true)

	r.ReplaceOp(op, gep)
	return nil
}

func (l *Lowerer) lowerComplexAdd(op *ir.Operation, r *rewrite.Rewriter) error {
	return l.complexArith(op, r, llvm.OpAdd, llvm.OpFAdd)
}

func (l *Lowerer) lowerComplexSub(op *ir.Operation, r *rewrite.Rewriter) error {
	return l.complexArith(op, r, llvm.OpSub, llvm.OpFSub)
}

// complexArith applies a component-wise operation: intOp for integer parts
// and floatOp for floating point parts.
func (l *Lowerer) complexArith(op *ir.Operation, r *rewrite.Rewriter, intOp, floatOp string) error {
	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	lhs, rhs := r.Operand(op, 0), r.Operand(op, 1)

	lhsReal := r.BuildExtractValue(lhs, 0)
	lhsImag := r.BuildExtractValue(lhs, 1)
	rhsReal := r.BuildExtractValue(rhs, 0)
	rhsImag := r.BuildExtractValue(rhs, 1)

	name := floatOp
	if llvm.IsInt(lhsReal.Type()) {
		name = intOp
	}

	newReal := r.BuildBinOp(name, lhsReal, rhsReal)
	newImag := r.BuildBinOp(name, lhsImag, rhsImag)

	result := r.BuildPoison(resTy)
	result = r.BuildInsertValue(result, newReal, 0)
	r.ReplaceOp(op, r.BuildInsertValue(result, newImag, 1))
	return nil
}
