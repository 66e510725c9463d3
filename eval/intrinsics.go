package eval

import (
	"math"
	"math/bits"

	"tlog.app/go/errors"

	"cirlower/ir"
	"cirlower/llvm"
)

// intrinsic executes a call to one of the intrinsics the lowering emits.
func (m *Machine) intrinsic(op *ir.Operation, args []Value) (Value, error) {
	name := op.StringAttr(llvm.AttrIntrinsic)

	switch name {
	case llvm.IntrTrap:
		return nil, errors.New("trap")
	case llvm.IntrAssume:
		if args[0].(Int).Bits == 0 {
			return nil, errors.New("assumption does not hold")
		}

		return nil, nil
	case llvm.IntrExpect, llvm.IntrExpectProb:
		return args[0], nil
	case llvm.IntrStackSave:
		return Ptr{Addr: uint64(len(m.Mem.data))}, nil
	case llvm.IntrStackRestore:
		return nil, nil

	case llvm.IntrCtlz, llvm.IntrCttz, llvm.IntrCtpop, llvm.IntrBitReverse, llvm.IntrBSwap:
		// the poison-on-zero flag is ignored: zero counts the full width
		return lanewise1(args[0], func(x Value) (Value, error) {
			return bitIntrinsic(name, x.(Int))
		})

	case llvm.IntrSMax, llvm.IntrUMax, llvm.IntrSAddSat, llvm.IntrUAddSat, llvm.IntrSSubSat,
		llvm.IntrUSubSat, llvm.IntrSMulFixSat, llvm.IntrUMulFixSat:
		return lanewise2(args[0], args[1], func(x, y Value) (Value, error) {
			return intIntrinsic(name, x.(Int), y.(Int))
		})
	case llvm.IntrMaxNum:
		return lanewise2(args[0], args[1], func(x, y Value) (Value, error) {
			a, b := x.(Float), y.(Float)
			switch {
			case math.IsNaN(a.Value):
				return b, nil
			case math.IsNaN(b.Value):
				return a, nil
			}

			return MakeFloat(a.Width, math.Max(a.Value, b.Value)), nil
		})
	}

	return nil, errors.New("unknown intrinsic %s", name)
}

func bitIntrinsic(name string, x Int) (Value, error) {
	w := x.Width
	shift := 64 - w

	switch name {
	case llvm.IntrCtlz:
		return Int{Width: w, Bits: uint64(bits.LeadingZeros64(x.Bits) - int(shift))}, nil
	case llvm.IntrCttz:
		n := bits.TrailingZeros64(x.Bits)
		if n > int(w) {
			n = int(w)
		}

		return Int{Width: w, Bits: uint64(n)}, nil
	case llvm.IntrCtpop:
		return Int{Width: w, Bits: uint64(bits.OnesCount64(x.Bits))}, nil
	case llvm.IntrBitReverse:
		return Int{Width: w, Bits: bits.Reverse64(x.Bits) >> shift}, nil
	default: // llvm.IntrBSwap
		if w%16 != 0 {
			return nil, errors.New("bswap of i%d", w)
		}

		return Int{Width: w, Bits: bits.ReverseBytes64(x.Bits) >> shift}, nil
	}
}

func intIntrinsic(name string, x, y Int) (Value, error) {
	w := x.Width
	smin, smax := -int64(1)<<(w-1), int64(1)<<(w-1)-1
	umax := truncate(math.MaxUint64, w)

	clampSigned := func(r int64, overflow bool) Value {
		switch {
		case overflow && r < 0, r > smax:
			return MakeInt(w, smax)
		case overflow, r < smin:
			return MakeInt(w, smin)
		}

		return MakeInt(w, r)
	}

	switch name {
	case llvm.IntrSMax:
		if x.Signed() >= y.Signed() {
			return x, nil
		}

		return y, nil
	case llvm.IntrUMax:
		if x.Bits >= y.Bits {
			return x, nil
		}

		return y, nil
	case llvm.IntrSAddSat:
		r := x.Signed() + y.Signed()
		return clampSigned(r, w == 64 && (x.Signed() >= 0) == (y.Signed() >= 0) && (r >= 0) != (x.Signed() >= 0)), nil
	case llvm.IntrSSubSat:
		r := x.Signed() - y.Signed()
		return clampSigned(r, w == 64 && (x.Signed() >= 0) != (y.Signed() >= 0) && (r >= 0) != (x.Signed() >= 0)), nil
	case llvm.IntrUAddSat:
		sum, carry := bits.Add64(x.Bits, y.Bits, 0)
		if carry != 0 || sum > umax {
			return Int{Width: w, Bits: umax}, nil
		}

		return Int{Width: w, Bits: sum}, nil
	case llvm.IntrUSubSat:
		if y.Bits > x.Bits {
			return Int{Width: w}, nil
		}

		return Int{Width: w, Bits: x.Bits - y.Bits}, nil
	case llvm.IntrUMulFixSat:
		hi, lo := bits.Mul64(x.Bits, y.Bits)
		if hi != 0 || lo > umax {
			return Int{Width: w, Bits: umax}, nil
		}

		return Int{Width: w, Bits: lo}, nil
	default: // llvm.IntrSMulFixSat
		a, b := x.Signed(), y.Signed()
		r := a * b
		overflow := a != 0 && (r/a != b || (a == -1 && b == math.MinInt64))
		if overflow {
			if (a < 0) != (b < 0) {
				return MakeInt(w, smin), nil
			}

			return MakeInt(w, smax), nil
		}

		return clampSigned(r, false), nil
	}
}
