package lower

import (
	"cirlower/cir"
	"cirlower/llvm"
	"cirlower/rewrite"
)

// Lowerer holds the state shared by every lowering rule: the type converter,
// the data layout it was built for and the COMDAT side table.  Rules are
// methods of the lowerer registered by operation name.
type Lowerer struct {
	tc *TypeConverter
	dl *llvm.DataLayout

	// comdats maps each module onto its lazily created COMDAT container.
	comdats *llvm.ComdatTable
}

// NewLowerer creates a new lowerer for the given data layout.
func NewLowerer(dl *llvm.DataLayout) *Lowerer {
	return &Lowerer{
		tc:      NewTypeConverter(dl),
		dl:      dl,
		comdats: llvm.NewComdatTable(),
	}
}

// TypeConverter returns the type converter used by the rules.
func (l *Lowerer) TypeConverter() *TypeConverter {
	return l.tc
}

// Patterns returns the full lowering rule catalog.
func (l *Lowerer) Patterns() *rewrite.PatternSet {
	ps := rewrite.NewPatternSet()

	// definitions
	ps.AddFunc(cir.OpFunc, l.lowerFunc)
	ps.AddFunc(cir.OpGlobal, l.lowerGlobal)
	ps.AddFunc(cir.OpGetGlobal, l.lowerGetGlobal)
	ps.AddFunc(cir.OpConst, l.lowerConst)
	ps.AddFunc(cir.OpCall, l.lowerCall)

	// control flow
	ps.AddFunc(cir.OpReturn, l.lowerReturn)
	ps.AddFunc(cir.OpBr, l.lowerBr)
	ps.AddFunc(cir.OpBrCond, l.lowerBrCond)
	ps.AddFunc(cir.OpSwitchFlat, l.lowerSwitchFlat)
	ps.AddFunc(cir.OpTrap, l.lowerTrap)
	ps.AddFunc(cir.OpUnreachable, l.lowerUnreachable)
	ps.AddFunc(cir.OpAssume, l.lowerAssume)
	ps.AddFunc(cir.OpExpect, l.lowerExpect)
	ps.AddFunc(cir.OpStackSave, l.lowerStackSave)
	ps.AddFunc(cir.OpStackRestore, l.lowerStackRestore)

	// arithmetic
	ps.AddFunc(cir.OpCast, l.lowerCast)
	ps.AddFunc(cir.OpBinOp, l.lowerBinOp)
	ps.AddFunc(cir.OpUnary, l.lowerUnary)
	ps.AddFunc(cir.OpCmp, l.lowerCmp)
	ps.AddFunc(cir.OpShift, l.lowerShift)
	ps.AddFunc(cir.OpSelect, l.lowerSelect)

	// bit manipulation
	ps.AddFunc(cir.OpBitClrsb, l.lowerBitClrsb)
	ps.AddFunc(cir.OpBitClz, l.lowerBitClz)
	ps.AddFunc(cir.OpBitCtz, l.lowerBitCtz)
	ps.AddFunc(cir.OpBitFfs, l.lowerBitFfs)
	ps.AddFunc(cir.OpBitParity, l.lowerBitParity)
	ps.AddFunc(cir.OpBitPopcount, l.lowerBitPopcount)
	ps.AddFunc(cir.OpBitReverse, l.lowerBitReverse)
	ps.AddFunc(cir.OpByteSwap, l.lowerByteSwap)

	// memory
	ps.AddFunc(cir.OpAlloca, l.lowerAlloca)
	ps.AddFunc(cir.OpLoad, l.lowerLoad)
	ps.AddFunc(cir.OpStore, l.lowerStore)
	ps.AddFunc(cir.OpPtrStride, l.lowerPtrStride)
	ps.AddFunc(cir.OpBaseClass, l.lowerBaseClassAddr)
	ps.AddFunc(cir.OpGetMember, l.lowerGetMember)
	ps.AddFunc(cir.OpSetBitfield, l.lowerSetBitfield)
	ps.AddFunc(cir.OpGetBitfield, l.lowerGetBitfield)

	// vectors
	ps.AddFunc(cir.OpVecCreate, l.lowerVecCreate)
	ps.AddFunc(cir.OpVecExtract, l.lowerVecExtract)
	ps.AddFunc(cir.OpVecInsert, l.lowerVecInsert)
	ps.AddFunc(cir.OpVecCmp, l.lowerVecCmp)
	ps.AddFunc(cir.OpVecSplat, l.lowerVecSplat)
	ps.AddFunc(cir.OpVecShuffle, l.lowerVecShuffle)
	ps.AddFunc(cir.OpVecShuffleDy, l.lowerVecShuffleDynamic)
	ps.AddFunc(cir.OpVecTernary, l.lowerVecTernary)

	// complex numbers
	ps.AddFunc(cir.OpComplexNew, l.lowerComplexCreate)
	ps.AddFunc(cir.OpComplexReal, l.lowerComplexReal)
	ps.AddFunc(cir.OpComplexImag, l.lowerComplexImag)
	ps.AddFunc(cir.OpComplexRPtr, l.lowerComplexRealPtr)
	ps.AddFunc(cir.OpComplexIPtr, l.lowerComplexImagPtr)
	ps.AddFunc(cir.OpComplexAdd, l.lowerComplexAdd)
	ps.AddFunc(cir.OpComplexSub, l.lowerComplexSub)

	return ps
}
