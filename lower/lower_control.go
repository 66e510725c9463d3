package lower

import (
	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/rewrite"
)

func (l *Lowerer) lowerReturn(op *ir.Operation, r *rewrite.Rewriter) error {
	r.BuildReturn(r.LookupAll(op.Operands)...)
	r.EraseOp(op)
	return nil
}

func (l *Lowerer) lowerBr(op *ir.Operation, r *rewrite.Rewriter) error {
	if len(op.Successors) != 1 {
		return invariant(op, "br must have exactly one successor")
	}

	r.BuildBr(op.Successors[0], r.LookupAll(op.SuccOperands[0]))
	r.EraseOp(op)
	return nil
}

func (l *Lowerer) lowerBrCond(op *ir.Operation, r *rewrite.Rewriter) error {
	if len(op.Successors) != 2 {
		return invariant(op, "brcond must have exactly two successors")
	}

	r.BuildCondBr(r.Operand(op, 0),
		op.Successors[0], r.LookupAll(op.SuccOperands[0]),
		op.Successors[1], r.LookupAll(op.SuccOperands[1]))
	r.EraseOp(op)
	return nil
}

// lowerSwitchFlat keeps the default destination first and pairs every case
// value with the successor at the same position.
func (l *Lowerer) lowerSwitchFlat(op *ir.Operation, r *rewrite.Rewriter) error {
	values, _ := op.Attr(cir.AttrCaseValues).([]int64)
	if len(op.Successors) != len(values)+1 {
		return invariant(op, "switch has %d case values for %d case destinations", len(values), len(op.Successors)-1)
	}

	dests := op.Successors[1:]
	destArgs := make([][]*ir.Value, len(dests))
	for i := range dests {
		destArgs[i] = r.LookupAll(op.SuccOperands[i+1])
	}

	r.BuildSwitch(r.Operand(op, 0), op.Successors[0], r.LookupAll(op.SuccOperands[0]), values, dests, destArgs)
	r.EraseOp(op)
	return nil
}

// lowerTrap calls the trap intrinsic.  The call does not end the block on the
// target, so it is followed by an explicit unreachable.
func (l *Lowerer) lowerTrap(op *ir.Operation, r *rewrite.Rewriter) error {
	r.BuildIntrinsic(llvm.IntrTrap, llvm.Void)
	r.BuildUnreachable()
	r.EraseOp(op)
	return nil
}

func (l *Lowerer) lowerUnreachable(op *ir.Operation, r *rewrite.Rewriter) error {
	r.BuildUnreachable()
	r.EraseOp(op)
	return nil
}

// -----------------------------------------------------------------------------

func (l *Lowerer) lowerAssume(op *ir.Operation, r *rewrite.Rewriter) error {
	r.BuildIntrinsic(llvm.IntrAssume, llvm.Void, r.Operand(op, 0))
	r.EraseOp(op)
	return nil
}

// lowerExpect emits llvm.expect, or llvm.expect.with.probability when the
// source carries a probability.
func (l *Lowerer) lowerExpect(op *ir.Operation, r *rewrite.Rewriter) error {
	val, expected := r.Operand(op, 0), r.Operand(op, 1)

	if prob, ok := op.Attr(cir.AttrProb).(float64); ok {
		r.ReplaceOp(op, r.BuildIntrinsic(llvm.IntrExpectProb, val.Type(), val, expected, r.BuildFloatConst(llvm.F64, prob)))
	} else {
		r.ReplaceOp(op, r.BuildIntrinsic(llvm.IntrExpect, val.Type(), val, expected))
	}

	return nil
}

func (l *Lowerer) lowerStackSave(op *ir.Operation, r *rewrite.Rewriter) error {
	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	r.ReplaceOp(op, r.BuildIntrinsic(llvm.IntrStackSave, resTy))
	return nil
}

func (l *Lowerer) lowerStackRestore(op *ir.Operation, r *rewrite.Rewriter) error {
	r.BuildIntrinsic(llvm.IntrStackRestore, llvm.Void, r.Operand(op, 0))
	r.EraseOp(op)
	return nil
}
