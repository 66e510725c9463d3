package lower

import (
	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/rewrite"
)

// overflowFlags returns the wrap flags of a source binary operation.  The
// no-unsigned-wrap flag takes precedence.
func overflowFlags(op *ir.Operation) llvm.OverflowFlags {
	if op.BoolAttr(cir.AttrNoUnsignedWrap) {
		return llvm.OverflowNUW
	}

	if op.BoolAttr(cir.AttrNoSignedWrap) {
		return llvm.OverflowNSW
	}

	return llvm.OverflowNone
}

func (l *Lowerer) lowerBinOp(op *ir.Operation, r *rewrite.Rewriter) error {
	kind, err := kindAttr[cir.BinOpKind](op)
	if err != nil {
		return err
	}

	lhs, rhs := r.Operand(op, 0), r.Operand(op, 1)
	if !llvm.Equal(lhs.Type(), rhs.Type()) {
		return unsupported(op, "inconsistent operands' types not supported yet")
	}

	srcType := op.Operands[1].Type()
	switch srcType.(type) {
	case *cir.IntType, *cir.BoolType, *cir.FloatType, *cir.LongDoubleType, *cir.VectorType:
	default:
		return unsupported(op, "operand type %s not supported yet", srcType.Repr())
	}

	ty, err := l.resultType(op)
	if err != nil {
		return err
	}

	isInt := llvm.IsInt(ty)
	unsigned := cir.IsUnsigned(cir.ElementType(srcType))
	saturated := op.BoolAttr(cir.AttrSaturated)

	var result *ir.Value
	switch kind {
	case cir.BinOpAdd:
		switch {
		case !isInt:
			result = r.BuildBinOp(llvm.OpFAdd, lhs, rhs)
		case saturated && unsigned:
			result = r.BuildIntrinsic(llvm.IntrUAddSat, ty, lhs, rhs)
		case saturated:
			result = r.BuildIntrinsic(llvm.IntrSAddSat, ty, lhs, rhs)
		default:
			result = r.BuildAdd(lhs, rhs, overflowFlags(op))
		}
	case cir.BinOpSub:
		switch {
		case !isInt:
			result = r.BuildBinOp(llvm.OpFSub, lhs, rhs)
		case saturated && unsigned:
			result = r.BuildIntrinsic(llvm.IntrUSubSat, ty, lhs, rhs)
		case saturated:
			result = r.BuildIntrinsic(llvm.IntrSSubSat, ty, lhs, rhs)
		default:
			result = r.BuildSub(lhs, rhs, overflowFlags(op))
		}
	case cir.BinOpMul:
		switch {
		case !isInt:
			result = r.BuildBinOp(llvm.OpFMul, lhs, rhs)
		case saturated:
			// fixed point multiplication with a zero scale is a plain
			// saturating multiplication
			scale := r.BuildIntConst(llvm.I32, 0)
			if unsigned {
				result = r.BuildIntrinsic(llvm.IntrUMulFixSat, ty, lhs, rhs, scale)
			} else {
				result = r.BuildIntrinsic(llvm.IntrSMulFixSat, ty, lhs, rhs, scale)
			}
		default:
			result = r.BuildMul(lhs, rhs, overflowFlags(op))
		}
	case cir.BinOpDiv:
		switch {
		case !isInt:
			result = r.BuildBinOp(llvm.OpFDiv, lhs, rhs)
		case unsigned:
			result = r.BuildBinOp(llvm.OpUDiv, lhs, rhs)
		default:
			result = r.BuildBinOp(llvm.OpSDiv, lhs, rhs)
		}
	case cir.BinOpRem:
		switch {
		case !isInt:
			result = r.BuildBinOp(llvm.OpFRem, lhs, rhs)
		case unsigned:
			result = r.BuildBinOp(llvm.OpURem, lhs, rhs)
		default:
			result = r.BuildBinOp(llvm.OpSRem, lhs, rhs)
		}
	case cir.BinOpAnd:
		result = r.BuildAnd(lhs, rhs)
	case cir.BinOpOr:
		result = r.BuildOr(lhs, rhs)
	case cir.BinOpXor:
		result = r.BuildXor(lhs, rhs)
	case cir.BinOpMax:
		switch {
		case !isInt:
			result = r.BuildIntrinsic(llvm.IntrMaxNum, ty, lhs, rhs)
		case unsigned:
			result = r.BuildIntrinsic(llvm.IntrUMax, ty, lhs, rhs)
		default:
			result = r.BuildIntrinsic(llvm.IntrSMax, ty, lhs, rhs)
		}
	default:
		return unsupported(op, "unhandled binary operator: %s", kind)
	}

	r.ReplaceOp(op, result)
	return nil
}

// -----------------------------------------------------------------------------

func (l *Lowerer) lowerUnary(op *ir.Operation, r *rewrite.Rewriter) error {
	kind, err := kindAttr[cir.UnaryOpKind](op)
	if err != nil {
		return err
	}

	srcType := op.Result(0).Type()
	elemType := cir.ElementType(srcType)
	_, isVector := srcType.(*cir.VectorType)

	ty, err := l.resultType(op)
	if err != nil {
		return err
	}

	x := r.Operand(op, 0)

	var result *ir.Value
	switch elemType.(type) {
	case *cir.IntType:
		flags := llvm.OverflowNone
		if op.BoolAttr(cir.AttrNoSignedWrap) {
			flags = llvm.OverflowNSW
		}

		switch kind {
		case cir.UnaryInc, cir.UnaryDec:
			if isVector {
				return unsupported(op, "%s is not allowed on vector types", kind)
			}

			one := r.BuildIntConst(ty, 1)
			if kind == cir.UnaryInc {
				result = r.BuildAdd(x, one, flags)
			} else {
				result = r.BuildSub(x, one, flags)
			}
		case cir.UnaryPlus:
			result = x
		case cir.UnaryMinus:
			var zero *ir.Value
			if isVector {
				zero = r.BuildZero(ty)
			} else {
				zero = r.BuildIntConst(ty, 0)
			}

			result = r.BuildSub(zero, x, flags)
		case cir.UnaryNot:
			// all ones, splatted for vectors
			result = r.BuildXor(x, r.BuildIntConst(ty, -1))
		}
	case *cir.FloatType, *cir.LongDoubleType:
		switch kind {
		case cir.UnaryInc, cir.UnaryDec:
			if isVector {
				return unsupported(op, "%s is not allowed on vector types", kind)
			}

			step := 1.0
			if kind == cir.UnaryDec {
				step = -1.0
			}

			result = r.BuildBinOp(llvm.OpFAdd, r.BuildFloatConst(ty, step), x)
		case cir.UnaryPlus:
			result = x
		case cir.UnaryMinus:
			result = r.BuildFNeg(x)
		case cir.UnaryNot:
			return unsupported(op, "unary not is invalid for floating-point types")
		}
	case *cir.BoolType:
		if kind != cir.UnaryNot {
			return unsupported(op, "unsupported unary operation %s on boolean type", kind)
		}

		if isVector {
			return unsupported(op, "logical not on vector masks is not yet implemented")
		}

		result = r.BuildXor(x, r.BuildIntConst(ty, 1))
	case *cir.PointerType:
		return unsupported(op, "unary operation on pointer types is not yet implemented")
	default:
		return unsupported(op, "unary operation has unsupported type: %s", elemType.Repr())
	}

	if result == nil {
		return unsupported(op, "unhandled unary operator: %s", kind)
	}

	r.ReplaceOp(op, result)
	return nil
}

// -----------------------------------------------------------------------------

// intPredicate maps a comparison onto an integer predicate.
func intPredicate(kind cir.CmpOpKind, signed bool) llvm.IntPredicate {
	switch kind {
	case cir.CmpEQ:
		return llvm.IntEQ
	case cir.CmpNE:
		return llvm.IntNE
	case cir.CmpLT:
		if signed {
			return llvm.IntSLT
		}
		return llvm.IntULT
	case cir.CmpLE:
		if signed {
			return llvm.IntSLE
		}
		return llvm.IntULE
	case cir.CmpGT:
		if signed {
			return llvm.IntSGT
		}
		return llvm.IntUGT
	default: // cir.CmpGE
		if signed {
			return llvm.IntSGE
		}
		return llvm.IntUGE
	}
}

// realPredicate maps a comparison onto a float predicate: inequality is
// unordered, every other comparison is ordered.
func realPredicate(kind cir.CmpOpKind) llvm.RealPredicate {
	switch kind {
	case cir.CmpEQ:
		return llvm.RealOEQ
	case cir.CmpNE:
		return llvm.RealUNE
	case cir.CmpLT:
		return llvm.RealOLT
	case cir.CmpLE:
		return llvm.RealOLE
	case cir.CmpGT:
		return llvm.RealOGT
	default: // cir.CmpGE
		return llvm.RealOGE
	}
}

func (l *Lowerer) lowerCmp(op *ir.Operation, r *rewrite.Rewriter) error {
	kind, err := kindAttr[cir.CmpOpKind](op)
	if err != nil {
		return err
	}

	lhs, rhs := r.Operand(op, 0), r.Operand(op, 1)

	var result *ir.Value
	switch t := op.Operands[0].Type().(type) {
	case *cir.IntType:
		result = r.BuildICmp(intPredicate(kind, t.Signed), lhs, rhs)
	case *cir.BoolType:
		result = r.BuildICmp(intPredicate(kind, false), lhs, rhs)
	case *cir.PointerType:
		result = r.BuildICmp(intPredicate(kind, false), lhs, rhs)
	case *cir.FloatType, *cir.LongDoubleType:
		result = r.BuildFCmp(realPredicate(kind), lhs, rhs)
	case *cir.ComplexType:
		if kind != cir.CmpEQ && kind != cir.CmpNE {
			return unsupported(op, "complex numbers only support equality comparisons")
		}

		lhsReal, lhsImag := r.BuildExtractValue(lhs, 0), r.BuildExtractValue(lhs, 1)
		rhsReal, rhsImag := r.BuildExtractValue(rhs, 0), r.BuildExtractValue(rhs, 1)

		var realCmp, imagCmp *ir.Value
		if llvm.IsInt(lhsReal.Type()) {
			pred := intPredicate(kind, false)
			realCmp = r.BuildICmp(pred, lhsReal, rhsReal)
			imagCmp = r.BuildICmp(pred, lhsImag, rhsImag)
		} else {
			pred := realPredicate(kind)
			realCmp = r.BuildFCmp(pred, lhsReal, rhsReal)
			imagCmp = r.BuildFCmp(pred, lhsImag, rhsImag)
		}

		if kind == cir.CmpEQ {
			result = r.BuildAnd(realCmp, imagCmp)
		} else {
			result = r.BuildOr(realCmp, imagCmp)
		}
	default:
		return unsupported(op, "unsupported type for comparison: %s", t.Repr())
	}

	r.ReplaceOp(op, result)
	return nil
}

// -----------------------------------------------------------------------------

// lowerShift lowers `cir.shift`.  A scalar amount is first brought to the
// width of the shifted value; vector amounts already match.
func (l *Lowerer) lowerShift(op *ir.Operation, r *rewrite.Rewriter) error {
	ty, err := l.resultType(op)
	if err != nil {
		return err
	}

	x, amount := r.Operand(op, 0), r.Operand(op, 1)

	valType, ok := cir.ElementType(op.Operands[0].Type()).(*cir.IntType)
	if !ok {
		return unsupported(op, "shift of non-integer type %s", op.Operands[0].Type().Repr())
	}

	if amtType, ok := op.Operands[1].Type().(*cir.IntType); ok {
		amount = intCast(r, amount, ty, amtType.Signed)
	}

	var result *ir.Value
	switch {
	case op.BoolAttr(cir.AttrIsShiftLeft):
		result = r.BuildShl(x, amount)
	case valType.Signed:
		result = r.BuildAShr(x, amount)
	default:
		result = r.BuildLShr(x, amount)
	}

	r.ReplaceOp(op, result)
	return nil
}

// lowerSelect lowers `cir.select`.  Boolean selects against a literal false
// value or a literal true value become a logical and/or.
func (l *Lowerer) lowerSelect(op *ir.Operation, r *rewrite.Rewriter) error {
	cond := r.Operand(op, 0)
	ifTrue, ifFalse := r.Operand(op, 1), r.Operand(op, 2)

	var result *ir.Value
	if _, ok := op.Operands[1].Type().(*cir.BoolType); ok {
		switch {
		case isBoolConst(op.Operands[2], false):
			result = r.BuildAnd(cond, ifTrue)
		case isBoolConst(op.Operands[1], true):
			result = r.BuildOr(cond, ifFalse)
		}
	}

	if result == nil {
		result = r.BuildSelect(cond, ifTrue, ifFalse)
	}

	r.ReplaceOp(op, result)
	return nil
}
