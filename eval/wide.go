package eval

import (
	"math/big"

	"tlog.app/go/errors"

	"cirlower/llvm"
)

func wideBinOp(name string, x, y Wide) (Value, error) {
	r := new(big.Int)

	switch name {
	case llvm.OpAdd:
		r.Add(x.X, y.X)
	case llvm.OpSub:
		r.Sub(x.X, y.X)
	case llvm.OpMul:
		r.Mul(x.X, y.X)
	case llvm.OpUDiv, llvm.OpSDiv, llvm.OpURem, llvm.OpSRem:
		if y.X.Sign() == 0 {
			return nil, errors.New("division by zero")
		}

		switch name {
		case llvm.OpUDiv:
			r.Quo(x.X, y.X)
		case llvm.OpURem:
			r.Rem(x.X, y.X)
		case llvm.OpSDiv:
			r.Quo(x.Signed(), y.Signed())
		default:
			r.Rem(x.Signed(), y.Signed())
		}
	case llvm.OpAnd:
		r.And(x.X, y.X)
	case llvm.OpOr:
		r.Or(x.X, y.X)
	case llvm.OpXor:
		r.Xor(x.X, y.X)
	default:
		// shifts by the width or more produce poison
		if !y.X.IsUint64() || y.X.Uint64() >= uint64(x.Width) {
			return Wide{Width: x.Width, X: new(big.Int)}, nil
		}

		n := uint(y.X.Uint64())
		switch name {
		case llvm.OpShl:
			r.Lsh(x.X, n)
		case llvm.OpLShr:
			r.Rsh(x.X, n)
		default: // llvm.OpAShr
			r.Rsh(x.Signed(), n)
		}
	}

	return MakeWide(x.Width, r), nil
}

func wideCompare(pred llvm.IntPredicate, x, y Wide) Value {
	switch pred {
	case llvm.IntEQ:
		return Bool(x.X.Cmp(y.X) == 0)
	case llvm.IntNE:
		return Bool(x.X.Cmp(y.X) != 0)
	case llvm.IntUGT:
		return Bool(x.X.Cmp(y.X) > 0)
	case llvm.IntUGE:
		return Bool(x.X.Cmp(y.X) >= 0)
	case llvm.IntULT:
		return Bool(x.X.Cmp(y.X) < 0)
	case llvm.IntULE:
		return Bool(x.X.Cmp(y.X) <= 0)
	}

	c := x.Signed().Cmp(y.Signed())
	switch pred {
	case llvm.IntSGT:
		return Bool(c > 0)
	case llvm.IntSGE:
		return Bool(c >= 0)
	case llvm.IntSLT:
		return Bool(c < 0)
	default: // llvm.IntSLE
		return Bool(c <= 0)
	}
}

// resize truncates or extends an integer of any width to width bits.
func resize(name string, x Value, width uint) Value {
	if xi, ok := x.(Int); ok && width <= 64 {
		if name == llvm.OpSExt {
			return MakeInt(width, xi.Signed())
		}

		return Int{Width: width, Bits: truncate(xi.Bits, width)}
	}

	var v *big.Int
	switch xv := x.(type) {
	case Int:
		if name == llvm.OpSExt {
			v = big.NewInt(xv.Signed())
		} else {
			v = new(big.Int).SetUint64(xv.Bits)
		}
	case Wide:
		if name == llvm.OpSExt {
			v = xv.Signed()
		} else {
			v = xv.X
		}
	}

	if width > 64 {
		return MakeWide(width, v)
	}

	return Int{Width: width, Bits: truncateBig(v, width).Uint64()}
}
