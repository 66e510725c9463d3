package llvm

import (
	"fmt"

	"cirlower/ir"
)

// DataLayout computes the sizes and ABI alignments of target types.  It models
// a little-endian target with natural alignment for scalars.
type DataLayout struct {
	// PointerWidth is the size of a pointer in bits.
	PointerWidth uint

	// IndexWidth is the width of the integers used to index pointers.
	IndexWidth uint

	// BoolWidth is the width of a boolean in memory.
	BoolWidth uint
}

// DefaultLayout returns the layout of a typical 64-bit target.
func DefaultLayout() *DataLayout {
	return &DataLayout{PointerWidth: 64, IndexWidth: 64, BoolWidth: 8}
}

// IndexType returns the integer type used for pointer indexing.
func (dl *DataLayout) IndexType() *IntType {
	return Int(dl.IndexWidth)
}

// TypeSize returns the allocation size of t in bytes, including tail padding.
func (dl *DataLayout) TypeSize(t ir.Type) uint64 {
	return alignTo(dl.StoreSize(t), dl.ABIAlign(t))
}

// StoreSize returns the number of bytes written when storing t.
func (dl *DataLayout) StoreSize(t ir.Type) uint64 {
	switch v := t.(type) {
	case *IntType:
		return (uint64(v.Width) + 7) / 8
	case *FloatType:
		if v.Kind == X86FP80Kind {
			return 10
		}

		return uint64(v.Width()) / 8
	case *PointerType:
		return uint64(dl.PointerWidth) / 8
	case *ArrayType:
		return v.Len * dl.TypeSize(v.Elem)
	case *VectorType:
		return (v.Len*uint64(BitWidth(v.Elem)) + 7) / 8
	case *StructType:
		size, _ := dl.structLayout(v)
		return size
	}

	panic(fmt.Sprintf("llvm: type %s has no size", t.Repr()))
}

// ABIAlign returns the ABI alignment of t in bytes.
func (dl *DataLayout) ABIAlign(t ir.Type) uint64 {
	switch v := t.(type) {
	case *IntType:
		return clampAlign(nextPow2((uint64(v.Width)+7)/8), 8)
	case *FloatType:
		switch v.Kind {
		case X86FP80Kind, FP128Kind:
			return 16
		default:
			return uint64(v.Width()) / 8
		}
	case *PointerType:
		return uint64(dl.PointerWidth) / 8
	case *ArrayType:
		return dl.ABIAlign(v.Elem)
	case *VectorType:
		return nextPow2(dl.StoreSize(v))
	case *StructType:
		if v.Packed {
			return 1
		}

		align := uint64(1)
		for _, f := range v.Fields {
			if a := dl.ABIAlign(f); a > align {
				align = a
			}
		}

		return align
	}

	panic(fmt.Sprintf("llvm: type %s has no alignment", t.Repr()))
}

// FieldOffset returns the byte offset of field i of st.
func (dl *DataLayout) FieldOffset(st *StructType, i int) uint64 {
	_, offsets := dl.structLayout(st)
	return offsets[i]
}

func (dl *DataLayout) structLayout(st *StructType) (uint64, []uint64) {
	var offset uint64
	offsets := make([]uint64, len(st.Fields))
	for i, f := range st.Fields {
		if !st.Packed {
			offset = alignTo(offset, dl.ABIAlign(f))
		}

		offsets[i] = offset
		offset += dl.TypeSize(f)
	}

	if !st.Packed {
		offset = alignTo(offset, dl.ABIAlign(st))
	}

	return offset, offsets
}

// -----------------------------------------------------------------------------

func alignTo(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}

	return (n + align - 1) / align * align
}

func nextPow2(n uint64) uint64 {
	p := uint64(1)
	for p < n {
		p <<= 1
	}

	return p
}

func clampAlign(a, max uint64) uint64 {
	if a > max {
		return max
	}

	return a
}
