package lower

import (
	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/rewrite"
)

// lowerCast lowers `cir.cast`.  The same target instruction converts scalars
// and whole vectors, so the vector forms need no special casing apart from
// reading the lane types.
func (l *Lowerer) lowerCast(op *ir.Operation, r *rewrite.Rewriter) error {
	kind, err := kindAttr[cir.CastKind](op)
	if err != nil {
		return err
	}

	src := r.Operand(op, 0)
	srcType := cir.ElementType(op.Operands[0].Type())
	dstType := cir.ElementType(op.Result(0).Type())

	dst, err := l.resultType(op)
	if err != nil {
		return err
	}

	var result *ir.Value
	switch kind {
	case cir.CastArrayToPtrDecay:
		pt, err := pointerType(op, op.Result(0))
		if err != nil {
			return err
		}

		elem, err := l.convertMem(op, pt.Pointee)
		if err != nil {
			return err
		}

		result = r.BuildGEP(dst, elem, src, []llvm.GEPIndex{llvm.ConstIndex(0)}, false)
	case cir.CastIntToBool:
		result = r.BuildICmp(llvm.IntNE, src, r.BuildIntConst(src.Type(), 0))
	case cir.CastIntegral:
		srcInt, ok1 := srcType.(*cir.IntType)
		_, ok2 := dstType.(*cir.IntType)
		if !ok1 || !ok2 {
			return unsupported(op, "integral cast from %s to %s", srcType.Repr(), dstType.Repr())
		}

		result = intCast(r, src, dst, srcInt.Signed)
	case cir.CastFloating:
		if !cir.IsAnyFloat(srcType) || !cir.IsAnyFloat(dstType) {
			return unsupported(op, "NYI cast from %s to %s", srcType.Repr(), dstType.Repr())
		}

		if llvm.BitWidth(llvm.ElementType(src.Type())) > llvm.BitWidth(llvm.ElementType(dst)) {
			result = r.BuildCast(llvm.OpFPTrunc, src, dst)
		} else {
			result = r.BuildCast(llvm.OpFPExt, src, dst)
		}
	case cir.CastIntToPtr:
		result = r.BuildCast(llvm.OpIntToPtr, src, dst)
	case cir.CastPtrToInt:
		result = r.BuildCast(llvm.OpPtrToInt, src, dst)
	case cir.CastFloatToBool:
		result = r.BuildFCmp(llvm.RealUNE, src, r.BuildFloatConst(src.Type(), 0))
	case cir.CastBoolToInt:
		if llvm.BitWidth(src.Type()) == llvm.BitWidth(dst) {
			result = r.BuildBitcast(src, dst)
		} else {
			result = r.BuildZExt(src, dst)
		}
	case cir.CastBoolToFloat:
		result = r.BuildCast(llvm.OpUIToFP, src, dst)
	case cir.CastIntToFloat:
		if cir.IsSigned(srcType) {
			result = r.BuildCast(llvm.OpSIToFP, src, dst)
		} else {
			result = r.BuildCast(llvm.OpUIToFP, src, dst)
		}
	case cir.CastFloatToInt:
		if cir.IsSigned(dstType) {
			result = r.BuildCast(llvm.OpFPToSI, src, dst)
		} else {
			result = r.BuildCast(llvm.OpFPToUI, src, dst)
		}
	case cir.CastBitcast:
		result = r.BuildBitcast(src, dst)
	case cir.CastPtrToBool:
		result = r.BuildICmp(llvm.IntNE, src, r.BuildZero(src.Type()))
	case cir.CastAddressSpace:
		result = r.BuildCast(llvm.OpAddrSpaceCast, src, dst)
	case cir.CastMemberPtrToBool:
		return unsupported(op, "member pointer casts are not yet implemented")
	default:
		return unsupported(op, "unhandled cast kind: %s", kind)
	}

	r.ReplaceOp(op, result)
	return nil
}
