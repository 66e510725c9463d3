package lower

import (
	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/rewrite"
)

// bitCount emits a counting intrinsic over the input of op and brings the
// count to the result type of op.  Counts are never negative so a widening is
// a zero extension.
func (l *Lowerer) bitCount(op *ir.Operation, r *rewrite.Rewriter, build func(x *ir.Value) *ir.Value) error {
	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	count := build(r.Operand(op, 0))
	r.ReplaceOp(op, intCast(r, count, resTy, false))
	return nil
}

// poisonFlag materializes the is-zero-poison operand of ctlz and cttz.
func poisonFlag(r *rewrite.Rewriter, poison bool) *ir.Value {
	return r.BuildIntConst(llvm.I1, boolToInt(poison))
}

// lowerBitClrsb counts the leading redundant sign bits:
// ctlz(x < 0 ? ~x : x) - 1.
func (l *Lowerer) lowerBitClrsb(op *ir.Operation, r *rewrite.Rewriter) error {
	return l.bitCount(op, r, func(x *ir.Value) *ir.Value {
		isNeg := r.BuildICmp(llvm.IntSLT, x, r.BuildIntConst(x.Type(), 0))
		flipped := r.BuildXor(x, r.BuildIntConst(x.Type(), -1))
		sel := r.BuildSelect(isNeg, flipped, x)

		clz := r.BuildIntrinsic(llvm.IntrCtlz, x.Type(), sel, poisonFlag(r, false))
		return r.BuildSub(clz, r.BuildIntConst(x.Type(), 1), llvm.OverflowNone)
	})
}

func (l *Lowerer) lowerBitClz(op *ir.Operation, r *rewrite.Rewriter) error {
	return l.bitCount(op, r, func(x *ir.Value) *ir.Value {
		return r.BuildIntrinsic(llvm.IntrCtlz, x.Type(), x, poisonFlag(r, op.BoolAttr(cir.AttrPoisonZero)))
	})
}

func (l *Lowerer) lowerBitCtz(op *ir.Operation, r *rewrite.Rewriter) error {
	return l.bitCount(op, r, func(x *ir.Value) *ir.Value {
		return r.BuildIntrinsic(llvm.IntrCttz, x.Type(), x, poisonFlag(r, op.BoolAttr(cir.AttrPoisonZero)))
	})
}

// lowerBitFfs returns one plus the index of the least significant set bit, or
// zero if the input is zero.
func (l *Lowerer) lowerBitFfs(op *ir.Operation, r *rewrite.Rewriter) error {
	return l.bitCount(op, r, func(x *ir.Value) *ir.Value {
		zero := r.BuildIntConst(x.Type(), 0)

		ctz := r.BuildIntrinsic(llvm.IntrCttz, x.Type(), x, poisonFlag(r, true))
		ctzPlusOne := r.BuildAdd(ctz, r.BuildIntConst(x.Type(), 1), llvm.OverflowNone)

		isZero := r.BuildICmp(llvm.IntEQ, x, zero)
		return r.BuildSelect(isZero, zero, ctzPlusOne)
	})
}

func (l *Lowerer) lowerBitParity(op *ir.Operation, r *rewrite.Rewriter) error {
	return l.bitCount(op, r, func(x *ir.Value) *ir.Value {
		popcnt := r.BuildIntrinsic(llvm.IntrCtpop, x.Type(), x)
		return r.BuildAnd(popcnt, r.BuildIntConst(x.Type(), 1))
	})
}

func (l *Lowerer) lowerBitPopcount(op *ir.Operation, r *rewrite.Rewriter) error {
	return l.bitCount(op, r, func(x *ir.Value) *ir.Value {
		return r.BuildIntrinsic(llvm.IntrCtpop, x.Type(), x)
	})
}

func (l *Lowerer) lowerBitReverse(op *ir.Operation, r *rewrite.Rewriter) error {
	x := r.Operand(op, 0)
	r.ReplaceOp(op, r.BuildIntrinsic(llvm.IntrBitReverse, x.Type(), x))
	return nil
}

func (l *Lowerer) lowerByteSwap(op *ir.Operation, r *rewrite.Rewriter) error {
	x := r.Operand(op, 0)
	r.ReplaceOp(op, r.BuildIntrinsic(llvm.IntrBSwap, x.Type(), x))
	return nil
}
