package eval

import (
	"math"

	"tlog.app/go/errors"

	"cirlower/ir"
	"cirlower/llvm"
)

// exec executes a non-terminator operation and binds its results.
func (m *Machine) exec(fr *frame, op *ir.Operation) error {
	args, err := fr.operands(op)
	if err != nil {
		return err
	}

	var result Value
	switch op.Name {
	case llvm.OpConstant:
		c, ok := op.Attr(llvm.AttrValue).(llvm.Constant)
		if !ok {
			return errors.New("constant without a value")
		}

		result, err = Constant(c)
	case llvm.OpZero, llvm.OpUndef, llvm.OpPoison:
		result, err = Zero(op.Results[0].Type())
	case llvm.OpAddressOf:
		result, err = m.addressOf(op.StringAttr(llvm.AttrGlobalName))

	case llvm.OpAdd, llvm.OpSub, llvm.OpMul, llvm.OpUDiv, llvm.OpSDiv, llvm.OpURem, llvm.OpSRem,
		llvm.OpAnd, llvm.OpOr, llvm.OpXor, llvm.OpShl, llvm.OpLShr, llvm.OpAShr:
		result, err = lanewise2(args[0], args[1], func(x, y Value) (Value, error) {
			if xw, ok := x.(Wide); ok {
				return wideBinOp(op.Name, xw, y.(Wide))
			}

			return intBinOp(op.Name, x.(Int), y.(Int))
		})
	case llvm.OpFAdd, llvm.OpFSub, llvm.OpFMul, llvm.OpFDiv, llvm.OpFRem:
		result, err = lanewise2(args[0], args[1], func(x, y Value) (Value, error) {
			return floatBinOp(op.Name, x.(Float), y.(Float)), nil
		})
	case llvm.OpFNeg:
		result, err = lanewise1(args[0], func(x Value) (Value, error) {
			f := x.(Float)
			return MakeFloat(f.Width, -f.Value), nil
		})
	case llvm.OpICmp:
		pred, _ := op.Attr(llvm.AttrPredicate).(llvm.IntPredicate)
		result, err = lanewise2(args[0], args[1], func(x, y Value) (Value, error) {
			return intCompare(pred, x, y)
		})
	case llvm.OpFCmp:
		pred, _ := op.Attr(llvm.AttrPredicate).(llvm.RealPredicate)
		result, err = lanewise2(args[0], args[1], func(x, y Value) (Value, error) {
			return Bool(realCompare(pred, x.(Float).Value, y.(Float).Value)), nil
		})
	case llvm.OpSelect:
		result, err = selectValue(args[0], args[1], args[2])

	case llvm.OpTrunc, llvm.OpZExt, llvm.OpSExt, llvm.OpFPTrunc, llvm.OpFPExt, llvm.OpSIToFP,
		llvm.OpUIToFP, llvm.OpFPToSI, llvm.OpFPToUI, llvm.OpPtrToInt, llvm.OpIntToPtr:
		result, err = lanewiseCast(op.Name, args[0], op.Results[0].Type())
	case llvm.OpBitcast:
		result, err = m.bitcast(args[0], op.Operands[0].Type(), op.Results[0].Type())
	case llvm.OpAddrSpaceCast:
		result = args[0]

	case llvm.OpAlloca:
		result, err = m.alloca(op, args[0].(Int))
	case llvm.OpLoad:
		result, err = m.Mem.Load(op.Results[0].Type(), args[0].(Ptr).Addr)
	case llvm.OpStore:
		err = m.Mem.Store(op.Operands[0].Type(), args[0], args[1].(Ptr).Addr)
	case llvm.OpGEP:
		result, err = m.gep(op, args)

	case llvm.OpExtractValue:
		pos, _ := op.Attr(llvm.AttrPosition).([]int64)
		result, err = extractValue(args[0], pos)
	case llvm.OpInsertValue:
		pos, _ := op.Attr(llvm.AttrPosition).([]int64)
		result, err = insertValue(args[0], args[1], pos)
	case llvm.OpExtractElement:
		vec := args[0].(Agg)
		idx, err := lane(vec, args[1])
		if err != nil {
			return err
		}

		result = vec.Elems[idx]
	case llvm.OpInsertElement:
		vec := args[0].(Agg)
		idx, err := lane(vec, args[2])
		if err != nil {
			return err
		}

		result = vec.with(idx, args[1])
	case llvm.OpShuffleVector:
		mask, _ := op.Attr(llvm.AttrMask).([]int32)
		result, err = shuffle(args[0].(Agg), args[1].(Agg), mask, op.Results[0].Type())

	case llvm.OpCall:
		result, err = m.call(op, args)
	case llvm.OpCallIntrinsic:
		result, err = m.intrinsic(op, args)

	case llvm.OpComdat, llvm.OpComdatSelector:
		// no runtime behavior
	default:
		return errors.New("cannot execute operation")
	}

	if err != nil {
		return err
	}

	if len(op.Results) > 0 {
		if result == nil {
			return errors.New("operation produced no value")
		}

		fr.env[op.Results[0]] = result
	}

	return nil
}

// -----------------------------------------------------------------------------

// lanewise1 applies fn to a scalar or to every lane of a vector.
func lanewise1(x Value, fn func(x Value) (Value, error)) (Value, error) {
	agg, ok := x.(Agg)
	if !ok {
		return fn(x)
	}

	elems := make([]Value, len(agg.Elems))
	for i, e := range agg.Elems {
		v, err := fn(e)
		if err != nil {
			return nil, err
		}

		elems[i] = v
	}

	return Agg{Elems: elems}, nil
}

// lanewise2 applies fn to a pair of scalars or to every pair of lanes.
func lanewise2(x, y Value, fn func(x, y Value) (Value, error)) (Value, error) {
	xa, ok := x.(Agg)
	if !ok {
		return fn(x, y)
	}

	ya, ok := y.(Agg)
	if !ok || len(xa.Elems) != len(ya.Elems) {
		return nil, errors.New("mismatched vector operands")
	}

	elems := make([]Value, len(xa.Elems))
	for i := range xa.Elems {
		v, err := fn(xa.Elems[i], ya.Elems[i])
		if err != nil {
			return nil, err
		}

		elems[i] = v
	}

	return Agg{Elems: elems}, nil
}

func intBinOp(name string, x, y Int) (Value, error) {
	w := x.Width
	switch name {
	case llvm.OpAdd:
		return Int{Width: w, Bits: truncate(x.Bits+y.Bits, w)}, nil
	case llvm.OpSub:
		return Int{Width: w, Bits: truncate(x.Bits-y.Bits, w)}, nil
	case llvm.OpMul:
		return Int{Width: w, Bits: truncate(x.Bits*y.Bits, w)}, nil
	case llvm.OpUDiv, llvm.OpSDiv, llvm.OpURem, llvm.OpSRem:
		if y.Bits == 0 {
			return nil, errors.New("division by zero")
		}

		switch name {
		case llvm.OpUDiv:
			return Int{Width: w, Bits: x.Bits / y.Bits}, nil
		case llvm.OpURem:
			return Int{Width: w, Bits: x.Bits % y.Bits}, nil
		case llvm.OpSDiv:
			return MakeInt(w, x.Signed()/y.Signed()), nil
		default:
			return MakeInt(w, x.Signed()%y.Signed()), nil
		}
	case llvm.OpAnd:
		return Int{Width: w, Bits: x.Bits & y.Bits}, nil
	case llvm.OpOr:
		return Int{Width: w, Bits: x.Bits | y.Bits}, nil
	case llvm.OpXor:
		return Int{Width: w, Bits: x.Bits ^ y.Bits}, nil
	}

	// shifts by the width or more produce poison
	if y.Bits >= uint64(w) {
		return Int{Width: w}, nil
	}

	switch name {
	case llvm.OpShl:
		return Int{Width: w, Bits: truncate(x.Bits<<y.Bits, w)}, nil
	case llvm.OpLShr:
		return Int{Width: w, Bits: x.Bits >> y.Bits}, nil
	default: // llvm.OpAShr
		return MakeInt(w, x.Signed()>>y.Bits), nil
	}
}

func floatBinOp(name string, x, y Float) Value {
	var r float64
	switch name {
	case llvm.OpFAdd:
		r = x.Value + y.Value
	case llvm.OpFSub:
		r = x.Value - y.Value
	case llvm.OpFMul:
		r = x.Value * y.Value
	case llvm.OpFDiv:
		r = x.Value / y.Value
	default: // llvm.OpFRem
		r = math.Mod(x.Value, y.Value)
	}

	return MakeFloat(x.Width, r)
}

func intCompare(pred llvm.IntPredicate, x, y Value) (Value, error) {
	var a, b Int
	switch xv := x.(type) {
	case Int:
		a, b = xv, y.(Int)
	case Ptr:
		a, b = Int{Width: 64, Bits: xv.Addr}, Int{Width: 64, Bits: y.(Ptr).Addr}
	case Wide:
		return wideCompare(pred, xv, y.(Wide)), nil
	default:
		return nil, errors.New("cannot compare %s", x)
	}

	switch pred {
	case llvm.IntEQ:
		return Bool(a.Bits == b.Bits), nil
	case llvm.IntNE:
		return Bool(a.Bits != b.Bits), nil
	case llvm.IntUGT:
		return Bool(a.Bits > b.Bits), nil
	case llvm.IntUGE:
		return Bool(a.Bits >= b.Bits), nil
	case llvm.IntULT:
		return Bool(a.Bits < b.Bits), nil
	case llvm.IntULE:
		return Bool(a.Bits <= b.Bits), nil
	case llvm.IntSGT:
		return Bool(a.Signed() > b.Signed()), nil
	case llvm.IntSGE:
		return Bool(a.Signed() >= b.Signed()), nil
	case llvm.IntSLT:
		return Bool(a.Signed() < b.Signed()), nil
	default: // llvm.IntSLE
		return Bool(a.Signed() <= b.Signed()), nil
	}
}

func realCompare(pred llvm.RealPredicate, a, b float64) bool {
	unordered := math.IsNaN(a) || math.IsNaN(b)

	switch pred {
	case llvm.RealFalse:
		return false
	case llvm.RealTrue:
		return true
	case llvm.RealORD:
		return !unordered
	case llvm.RealUNO:
		return unordered
	}

	var holds bool
	switch pred {
	case llvm.RealOEQ, llvm.RealUEQ:
		holds = a == b
	case llvm.RealOGT, llvm.RealUGT:
		holds = a > b
	case llvm.RealOGE, llvm.RealUGE:
		holds = a >= b
	case llvm.RealOLT, llvm.RealULT:
		holds = a < b
	case llvm.RealOLE, llvm.RealULE:
		holds = a <= b
	default: // llvm.RealONE, llvm.RealUNE
		holds = a != b
	}

	if pred >= llvm.RealUEQ {
		return unordered || holds
	}

	return !unordered && holds
}

// selectValue picks between a and b with a scalar condition or lane by lane
// with a vector condition.
func selectValue(cond, a, b Value) (Value, error) {
	if c, ok := cond.(Int); ok {
		if c.Bits != 0 {
			return a, nil
		}

		return b, nil
	}

	ca := cond.(Agg)
	aa, ba := a.(Agg), b.(Agg)

	elems := make([]Value, len(ca.Elems))
	for i, c := range ca.Elems {
		if c.(Int).Bits != 0 {
			elems[i] = aa.Elems[i]
		} else {
			elems[i] = ba.Elems[i]
		}
	}

	return Agg{Elems: elems}, nil
}

// -----------------------------------------------------------------------------

func lanewiseCast(name string, x Value, typ ir.Type) (Value, error) {
	if vt, ok := typ.(*llvm.VectorType); ok {
		return lanewise1(x, func(e Value) (Value, error) {
			return cast(name, e, vt.Elem)
		})
	}

	return cast(name, x, typ)
}

func cast(name string, x Value, typ ir.Type) (Value, error) {
	switch name {
	case llvm.OpTrunc, llvm.OpZExt, llvm.OpSExt:
		return resize(name, x, intWidth(typ)), nil
	case llvm.OpFPTrunc, llvm.OpFPExt:
		return MakeFloat(typ.(*llvm.FloatType).Width(), x.(Float).Value), nil
	case llvm.OpSIToFP:
		return MakeFloat(typ.(*llvm.FloatType).Width(), float64(x.(Int).Signed())), nil
	case llvm.OpUIToFP:
		return MakeFloat(typ.(*llvm.FloatType).Width(), float64(x.(Int).Bits)), nil
	case llvm.OpFPToSI:
		return MakeInt(intWidth(typ), int64(x.(Float).Value)), nil
	case llvm.OpFPToUI:
		return Int{Width: intWidth(typ), Bits: truncate(uint64(x.(Float).Value), intWidth(typ))}, nil
	case llvm.OpPtrToInt:
		return Int{Width: intWidth(typ), Bits: truncate(x.(Ptr).Addr, intWidth(typ))}, nil
	default: // llvm.OpIntToPtr
		return Ptr{Addr: x.(Int).Bits}, nil
	}
}

func intWidth(typ ir.Type) uint {
	return typ.(*llvm.IntType).Width
}

// bitcast reinterprets x through its in-memory form.
func (m *Machine) bitcast(x Value, from, to ir.Type) (Value, error) {
	if llvm.Equal(from, to) {
		return x, nil
	}

	if _, ok := to.(*llvm.PointerType); ok {
		if p, ok := x.(Ptr); ok {
			return p, nil
		}
	}

	size := m.dl.TypeSize(from)
	if other := m.dl.TypeSize(to); other > size {
		size = other
	}

	buf := make([]byte, size)
	if err := m.Mem.encode(from, x, buf); err != nil {
		return nil, err
	}

	return m.Mem.decode(to, buf)
}

// -----------------------------------------------------------------------------

func (m *Machine) alloca(op *ir.Operation, count Int) (Value, error) {
	elem, ok := op.Attr(llvm.AttrElemType).(ir.Type)
	if !ok {
		return nil, errors.New("alloca without an element type")
	}

	align, _ := op.Attr(llvm.AttrAlignment).(uint64)
	if align == 0 {
		align = m.dl.ABIAlign(elem)
	}

	return Ptr{Addr: m.Mem.Alloc(count.Bits*m.dl.TypeSize(elem), align)}, nil
}

// gep computes an address: the first index steps over whole elements, the
// following ones select members of the element type.
func (m *Machine) gep(op *ir.Operation, args []Value) (Value, error) {
	elem, ok := op.Attr(llvm.AttrElemType).(ir.Type)
	if !ok {
		return nil, errors.New("pointer computation without an element type")
	}

	raw, _ := op.Attr(llvm.AttrRawIndices).([]int32)

	addr := int64(args[0].(Ptr).Addr)
	dyn := args[1:]

	cur := elem
	for i, r := range raw {
		idx := int64(r)
		if r == llvm.DynamicIndex {
			if len(dyn) == 0 {
				return nil, errors.New("missing dynamic index")
			}

			idx = dyn[0].(Int).Signed()
			dyn = dyn[1:]
		}

		if i == 0 {
			addr += idx * int64(m.dl.TypeSize(cur))
			continue
		}

		switch t := cur.(type) {
		case *llvm.StructType:
			if idx < 0 || idx >= int64(len(t.Fields)) {
				return nil, errors.New("member index %d out of range", idx)
			}

			addr += int64(m.dl.FieldOffset(t, int(idx)))
			cur = t.Fields[idx]
		case *llvm.ArrayType:
			addr += idx * int64(m.dl.TypeSize(t.Elem))
			cur = t.Elem
		case *llvm.VectorType:
			addr += idx * int64(m.dl.TypeSize(t.Elem))
			cur = t.Elem
		default:
			return nil, errors.New("cannot index into %s", cur.Repr())
		}
	}

	return Ptr{Addr: uint64(addr)}, nil
}

// -----------------------------------------------------------------------------

func extractValue(agg Value, pos []int64) (Value, error) {
	for _, p := range pos {
		a, ok := agg.(Agg)
		if !ok || p < 0 || p >= int64(len(a.Elems)) {
			return nil, errors.New("invalid member position %d", p)
		}

		agg = a.Elems[p]
	}

	return agg, nil
}

func insertValue(agg, v Value, pos []int64) (Value, error) {
	if len(pos) == 0 {
		return v, nil
	}

	a, ok := agg.(Agg)
	if !ok || pos[0] < 0 || pos[0] >= int64(len(a.Elems)) {
		return nil, errors.New("invalid member position %d", pos[0])
	}

	inner, err := insertValue(a.Elems[pos[0]], v, pos[1:])
	if err != nil {
		return nil, err
	}

	return a.with(int(pos[0]), inner), nil
}

func lane(vec Agg, idx Value) (int, error) {
	i := idx.(Int).Bits
	if i >= uint64(len(vec.Elems)) {
		return 0, errors.New("lane %d out of range", i)
	}

	return int(i), nil
}

func shuffle(v1, v2 Agg, mask []int32, typ ir.Type) (Value, error) {
	elemType := typ.(*llvm.VectorType).Elem
	all := append(append([]Value(nil), v1.Elems...), v2.Elems...)

	elems := make([]Value, len(mask))
	for i, mi := range mask {
		if mi < 0 {
			z, err := Zero(elemType)
			if err != nil {
				return nil, err
			}

			elems[i] = z
			continue
		}

		if int(mi) >= len(all) {
			return nil, errors.New("shuffle index %d out of range", mi)
		}

		elems[i] = all[mi]
	}

	return Agg{Elems: elems}, nil
}

// -----------------------------------------------------------------------------

func (m *Machine) call(op *ir.Operation, args []Value) (Value, error) {
	callee := op.StringAttr(llvm.AttrCallee)
	if callee == "" {
		fn := args[0].(Ptr)

		name, ok := m.funcAddrs[fn.Addr]
		if !ok {
			return nil, errors.New("indirect call to %s which is not a function", fn)
		}

		callee, args = name, args[1:]
	}

	result, err := m.Call(callee, args...)
	if err != nil {
		return nil, err
	}

	if len(op.Results) > 0 && result == nil {
		return nil, errors.New("%s returned no value", callee)
	}

	return result, nil
}
