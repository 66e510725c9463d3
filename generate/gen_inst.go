package generate

import (
	lir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"tlog.app/go/errors"

	"cirlower/ir"
	"cirlower/llvm"
)

// genOp generates the instruction of one operation.
func (fg *funcGen) genOp(op *ir.Operation) error {
	args, err := fg.operands(op)
	if err != nil {
		return err
	}

	var t types.Type
	if len(op.Results) == 1 {
		if t, err = fg.convType(op.Results[0].Type()); err != nil {
			return err
		}
	}

	var result value.Value
	blk := fg.block

	switch op.Name {
	case llvm.OpConstant, llvm.OpZero, llvm.OpUndef, llvm.OpPoison, llvm.OpAddressOf:
		// operand-free, so these fold to constants inside functions too
		result, err = fg.foldOp(op, nil)

	case llvm.OpAdd, llvm.OpSub, llvm.OpMul, llvm.OpShl:
		result = fg.genArith(op, args)
	case llvm.OpUDiv:
		result = blk.NewUDiv(args[0], args[1])
	case llvm.OpSDiv:
		result = blk.NewSDiv(args[0], args[1])
	case llvm.OpURem:
		result = blk.NewURem(args[0], args[1])
	case llvm.OpSRem:
		result = blk.NewSRem(args[0], args[1])
	case llvm.OpAnd:
		result = blk.NewAnd(args[0], args[1])
	case llvm.OpOr:
		result = blk.NewOr(args[0], args[1])
	case llvm.OpXor:
		result = blk.NewXor(args[0], args[1])
	case llvm.OpLShr:
		result = blk.NewLShr(args[0], args[1])
	case llvm.OpAShr:
		result = blk.NewAShr(args[0], args[1])
	case llvm.OpFAdd:
		result = blk.NewFAdd(args[0], args[1])
	case llvm.OpFSub:
		result = blk.NewFSub(args[0], args[1])
	case llvm.OpFMul:
		result = blk.NewFMul(args[0], args[1])
	case llvm.OpFDiv:
		result = blk.NewFDiv(args[0], args[1])
	case llvm.OpFRem:
		result = blk.NewFRem(args[0], args[1])
	case llvm.OpFNeg:
		result = blk.NewFNeg(args[0])

	case llvm.OpICmp:
		pred, _ := op.Attr(llvm.AttrPredicate).(llvm.IntPredicate)
		result = blk.NewICmp(intPreds[pred], args[0], args[1])
	case llvm.OpFCmp:
		pred, _ := op.Attr(llvm.AttrPredicate).(llvm.RealPredicate)
		result = blk.NewFCmp(realPreds[pred], args[0], args[1])
	case llvm.OpSelect:
		result = blk.NewSelect(args[0], args[1], args[2])

	case llvm.OpTrunc:
		result = blk.NewTrunc(args[0], t)
	case llvm.OpZExt:
		result = blk.NewZExt(args[0], t)
	case llvm.OpSExt:
		result = blk.NewSExt(args[0], t)
	case llvm.OpFPTrunc:
		result = blk.NewFPTrunc(args[0], t)
	case llvm.OpFPExt:
		result = blk.NewFPExt(args[0], t)
	case llvm.OpSIToFP:
		result = blk.NewSIToFP(args[0], t)
	case llvm.OpUIToFP:
		result = blk.NewUIToFP(args[0], t)
	case llvm.OpFPToSI:
		result = blk.NewFPToSI(args[0], t)
	case llvm.OpFPToUI:
		result = blk.NewFPToUI(args[0], t)
	case llvm.OpPtrToInt:
		result = blk.NewPtrToInt(args[0], t)
	case llvm.OpIntToPtr:
		result = blk.NewIntToPtr(args[0], t)
	case llvm.OpBitcast:
		result = blk.NewBitCast(args[0], t)
	case llvm.OpAddrSpaceCast:
		result = blk.NewAddrSpaceCast(args[0], t)

	case llvm.OpAlloca, llvm.OpLoad, llvm.OpStore, llvm.OpGEP:
		result, err = fg.genMemory(op, args, t)

	case llvm.OpExtractValue:
		result = blk.NewExtractValue(args[0], positions(op)...)
	case llvm.OpInsertValue:
		result = blk.NewInsertValue(args[0], args[1], positions(op)...)
	case llvm.OpExtractElement:
		result = blk.NewExtractElement(args[0], args[1])
	case llvm.OpInsertElement:
		result = blk.NewInsertElement(args[0], args[1], args[2])
	case llvm.OpShuffleVector:
		result = blk.NewShuffleVector(args[0], args[1], shuffleMask(op))

	case llvm.OpCall:
		result, err = fg.genCall(op, args)
	case llvm.OpCallIntrinsic:
		result, err = fg.genIntrinsic(op, args)

	case llvm.OpReturn, llvm.OpBr, llvm.OpCondBr, llvm.OpSwitch, llvm.OpUnreachable:
		return fg.genTerminator(op, args)

	default:
		return errors.New("operation cannot be exported")
	}

	if err != nil {
		return err
	}

	if len(op.Results) == 1 {
		if result == nil {
			return errors.New("operation produced no value")
		}

		fg.values[op.Results[0]] = result
	}

	return nil
}

// genArith generates the integer operations carrying wrap flags.
func (fg *funcGen) genArith(op *ir.Operation, args []value.Value) value.Value {
	flags, _ := op.Attr(llvm.AttrOverflow).(llvm.OverflowFlags)

	var of []enum.OverflowFlag
	if flags&llvm.OverflowNUW != 0 {
		of = append(of, enum.OverflowFlagNUW)
	}

	if flags&llvm.OverflowNSW != 0 {
		of = append(of, enum.OverflowFlagNSW)
	}

	switch op.Name {
	case llvm.OpAdd:
		inst := fg.block.NewAdd(args[0], args[1])
		inst.OverflowFlags = of
		return inst
	case llvm.OpSub:
		inst := fg.block.NewSub(args[0], args[1])
		inst.OverflowFlags = of
		return inst
	case llvm.OpMul:
		inst := fg.block.NewMul(args[0], args[1])
		inst.OverflowFlags = of
		return inst
	default: // llvm.OpShl
		inst := fg.block.NewShl(args[0], args[1])
		inst.OverflowFlags = of
		return inst
	}
}

func positions(op *ir.Operation) []uint64 {
	pos, _ := op.Attr(llvm.AttrPosition).([]int64)

	indices := make([]uint64, len(pos))
	for i, p := range pos {
		indices[i] = uint64(p)
	}

	return indices
}

// shuffleMask builds the constant mask vector of a shuffle.  Negative
// entries select an undefined lane.
func shuffleMask(op *ir.Operation) constant.Constant {
	mask, _ := op.Attr(llvm.AttrMask).([]int32)

	elems := make([]constant.Constant, len(mask))
	for i, m := range mask {
		if m < 0 {
			elems[i] = constant.NewUndef(types.I32)
		} else {
			elems[i] = constant.NewInt(types.I32, int64(m))
		}
	}

	return constant.NewVector(types.NewVector(uint64(len(mask)), types.I32), elems...)
}

// -----------------------------------------------------------------------------

// castPtr converts a pointer to the pointer type to.
func (fg *funcGen) castPtr(v value.Value, to *types.PointerType) value.Value {
	from, ok := v.Type().(*types.PointerType)
	if ok && from.Equal(to) {
		return v
	}

	if ok && from.AddrSpace != to.AddrSpace {
		return fg.block.NewAddrSpaceCast(v, to)
	}

	return fg.block.NewBitCast(v, to)
}

func (fg *funcGen) genMemory(op *ir.Operation, args []value.Value, t types.Type) (value.Value, error) {
	align, _ := op.Attr(llvm.AttrAlignment).(uint64)
	blk := fg.block

	switch op.Name {
	case llvm.OpAlloca:
		elem, err := fg.gepElem(op)
		if err != nil {
			return nil, err
		}

		inst := blk.NewAlloca(elem)
		inst.NElems = args[0]
		inst.Align = lir.Align(align)
		return fg.castPtr(inst, t.(*types.PointerType)), nil
	case llvm.OpLoad:
		inst := blk.NewLoad(t, fg.castPtr(args[0], typedPtr(t, args[0].Type())))
		inst.Align = lir.Align(align)
		inst.Volatile = op.BoolAttr(llvm.AttrVolatile)
		return inst, nil
	case llvm.OpStore:
		inst := blk.NewStore(args[0], fg.castPtr(args[1], typedPtr(args[0].Type(), args[1].Type())))
		inst.Align = lir.Align(align)
		inst.Volatile = op.BoolAttr(llvm.AttrVolatile)
		return nil, nil
	}

	// llvm.OpGEP
	elem, err := fg.gepElem(op)
	if err != nil {
		return nil, err
	}

	raw, _ := op.Attr(llvm.AttrRawIndices).([]int32)

	var indices []value.Value
	dyn := args[1:]
	for _, r := range raw {
		if r != llvm.DynamicIndex {
			indices = append(indices, constant.NewInt(types.I32, int64(r)))
			continue
		}

		if len(dyn) == 0 {
			return nil, errors.New("missing dynamic index")
		}

		indices = append(indices, dyn[0])
		dyn = dyn[1:]
	}

	inst := blk.NewGetElementPtr(elem, fg.castPtr(args[0], typedPtr(elem, args[0].Type())), indices...)
	inst.InBounds = op.BoolAttr(llvm.AttrInBounds)
	return fg.castPtr(inst, t.(*types.PointerType)), nil
}

// -----------------------------------------------------------------------------

// genCall generates a direct or indirect call and its function attributes.
func (fg *funcGen) genCall(op *ir.Operation, args []value.Value) (value.Value, error) {
	var callee value.Value
	if name := op.StringAttr(llvm.AttrCallee); name != "" {
		fn, ok := fg.funcs[name]
		if !ok {
			return nil, errors.New("call to undeclared function %s", name)
		}

		callee = fn
	} else {
		ft, ok := op.Attr(llvm.AttrCalleeType).(*llvm.FuncType)
		if !ok {
			return nil, errors.New("indirect call without a callee type")
		}

		sig, err := fg.convFuncType(ft)
		if err != nil {
			return nil, err
		}

		callee = fg.castPtr(args[0], typedPtr(sig, args[0].Type()))
		args = args[1:]
	}

	inst := fg.block.NewCall(callee, args...)

	if me, ok := op.Attr(llvm.AttrMemory).(*llvm.MemoryEffects); ok {
		switch {
		case me.ReadNone():
			inst.FuncAttrs = append(inst.FuncAttrs, enum.FuncAttrReadNone)
		case me.ReadOnly():
			inst.FuncAttrs = append(inst.FuncAttrs, enum.FuncAttrReadOnly)
		}
	}

	if op.BoolAttr(llvm.AttrNoUnwind) {
		inst.FuncAttrs = append(inst.FuncAttrs, enum.FuncAttrNoUnwind)
	}

	if op.BoolAttr(llvm.AttrWillReturn) {
		inst.FuncAttrs = append(inst.FuncAttrs, enum.FuncAttrWillReturn)
	}

	if len(op.Results) == 0 {
		return nil, nil
	}

	return inst, nil
}

// genIntrinsic calls an intrinsic declared with the types of the call site.
func (fg *funcGen) genIntrinsic(op *ir.Operation, args []value.Value) (value.Value, error) {
	var ret ir.Type = llvm.Void
	if len(op.Results) == 1 {
		ret = op.Results[0].Type()
	}

	argTypes := make([]ir.Type, len(op.Operands))
	for i, o := range op.Operands {
		argTypes[i] = o.Type()
	}

	fn, err := fg.intrinsic(op.StringAttr(llvm.AttrIntrinsic), ret, argTypes)
	if err != nil {
		return nil, err
	}

	inst := fg.block.NewCall(fn, args...)
	if len(op.Results) == 0 {
		return nil, nil
	}

	return inst, nil
}

// -----------------------------------------------------------------------------

func (fg *funcGen) genTerminator(op *ir.Operation, args []value.Value) error {
	if err := fg.addIncoming(op); err != nil {
		return err
	}

	blk := fg.block

	switch op.Name {
	case llvm.OpReturn:
		if len(args) == 0 {
			blk.NewRet(nil)
		} else {
			blk.NewRet(args[0])
		}
	case llvm.OpBr:
		blk.NewBr(fg.blocks[op.Successors[0]])
	case llvm.OpCondBr:
		blk.NewCondBr(args[0], fg.blocks[op.Successors[0]], fg.blocks[op.Successors[1]])
	case llvm.OpSwitch:
		it, ok := args[0].Type().(*types.IntType)
		if !ok {
			return errors.New("switch on a non integer value")
		}

		values, _ := op.Attr(llvm.AttrCaseValues).([]int64)
		if len(values) != len(op.Successors)-1 {
			return errors.New("switch has %d case values for %d destinations", len(values), len(op.Successors)-1)
		}

		cases := make([]*lir.Case, len(values))
		for i, v := range values {
			cases[i] = lir.NewCase(constant.NewInt(it, v), fg.blocks[op.Successors[i+1]])
		}

		blk.NewSwitch(args[0], fg.blocks[op.Successors[0]], cases...)
	default: // llvm.OpUnreachable
		blk.NewUnreachable()
	}

	return nil
}
