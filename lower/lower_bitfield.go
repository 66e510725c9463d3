package lower

import (
	"math/big"

	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/rewrite"
)

// bitfield is a bitfield access resolved against its storage unit.
type bitfield struct {
	*cir.BitfieldInfo

	// storageSize is the width of the storage unit in bits.
	storageSize uint

	// intType is the integer type the storage unit is accessed as.
	intType *llvm.IntType
}

// resolveBitfield reads the bitfield info of op.  Byte array storage units are
// accessed as one integer of the same width.
func resolveBitfield(op *ir.Operation) (*bitfield, error) {
	info, ok := op.Attr(cir.AttrBitfieldInfo).(*cir.BitfieldInfo)
	if !ok {
		return nil, invariant(op, "missing bitfield info")
	}

	var storageSize uint
	switch st := info.StorageType.(type) {
	case *cir.ArrayType:
		storageSize = uint(st.Size) * 8
	case *cir.IntType:
		storageSize = st.Width
	default:
		return nil, invariant(op, "bitfield storage type %s is neither an integer nor an array", info.StorageType.Repr())
	}

	if info.Offset+info.Size > storageSize {
		return nil, invariant(op, "bitfield %s (offset %d, size %d) overflows its %d bit storage",
			info.Name, info.Offset, info.Size, storageSize)
	}

	return &bitfield{
		BitfieldInfo: info,
		storageSize:  storageSize,
		intType:      llvm.Int(storageSize),
	}, nil
}

// lowBits returns the mask of the low n bits.
func lowBits(n uint) *big.Int {
	return bitsSet(0, n)
}

// bitsSet returns the mask of bits [lo, hi).  Storage units may be wider than
// 64 bits, so masks are built at arbitrary precision.
func bitsSet(lo, hi uint) *big.Int {
	mask := new(big.Int).Lsh(big.NewInt(1), hi-lo)
	mask.Sub(mask, big.NewInt(1))
	return mask.Lsh(mask, lo)
}

// notBits returns the complement of mask within width bits.
func notBits(width uint, mask *big.Int) *big.Int {
	return new(big.Int).Xor(lowBits(width), mask)
}

func shl(r *rewrite.Rewriter, x *ir.Value, n uint) *ir.Value {
	if n == 0 {
		return x
	}

	return r.BuildShl(x, r.BuildIntConst(x.Type(), int64(n)))
}

func ashr(r *rewrite.Rewriter, x *ir.Value, n uint) *ir.Value {
	if n == 0 {
		return x
	}

	return r.BuildAShr(x, r.BuildIntConst(x.Type(), int64(n)))
}

func lshr(r *rewrite.Rewriter, x *ir.Value, n uint) *ir.Value {
	if n == 0 {
		return x
	}

	return r.BuildLShr(x, r.BuildIntConst(x.Type(), int64(n)))
}

// -----------------------------------------------------------------------------

// lowerSetBitfield merges the source value into its storage unit.  The result
// is the value the field reads back after the store: the truncated source,
// sign-extended for signed fields.
func (l *Lowerer) lowerSetBitfield(op *ir.Operation, r *rewrite.Rewriter) error {
	bf, err := resolveBitfield(op)
	if err != nil {
		return err
	}

	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	addr := r.Operand(op, 0)
	volatile := op.BoolAttr(cir.AttrIsVolatile)

	srcVal := intCast(r, r.Operand(op, 1), bf.intType, false)
	resultVal := srcVal

	if bf.storageSize != bf.Size {
		val := r.BuildLoad(bf.intType, addr, 0, volatile)

		srcVal = r.BuildAnd(srcVal, r.BuildBigIntConst(bf.intType, lowBits(bf.Size)))
		resultVal = srcVal
		srcVal = shl(r, srcVal, bf.Offset)

		// clear the field in the current contents
		cleared := notBits(bf.storageSize, bitsSet(bf.Offset, bf.Offset+bf.Size))
		val = r.BuildAnd(val, r.BuildBigIntConst(bf.intType, cleared))

		srcVal = r.BuildOr(val, srcVal)
	}

	r.BuildStore(srcVal, addr, 0, volatile)

	if bf.Signed {
		highBits := bf.storageSize - bf.Size
		resultVal = ashr(r, shl(r, resultVal, highBits), highBits)
	}

	r.ReplaceOp(op, intCast(r, resultVal, resTy, bf.Signed))
	return nil
}

// lowerGetBitfield loads the storage unit and isolates the field, moving its
// sign bit to the top of the unit first for signed fields.
func (l *Lowerer) lowerGetBitfield(op *ir.Operation, r *rewrite.Rewriter) error {
	bf, err := resolveBitfield(op)
	if err != nil {
		return err
	}

	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	val := r.BuildLoad(bf.intType, r.Operand(op, 0), 0, op.BoolAttr(cir.AttrIsVolatile))

	if bf.Signed {
		highBits := bf.storageSize - bf.Offset - bf.Size
		val = shl(r, val, highBits)
		val = ashr(r, val, bf.Offset+highBits)
	} else {
		val = lshr(r, val, bf.Offset)
		if bf.Offset+bf.Size < bf.storageSize {
			val = r.BuildAnd(val, r.BuildBigIntConst(bf.intType, lowBits(bf.Size)))
		}
	}

	r.ReplaceOp(op, intCast(r, val, resTy, bf.Signed))
	return nil
}
