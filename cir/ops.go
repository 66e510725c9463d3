package cir

// Names of the source operations.
const (
	OpFunc         = "cir.func"
	OpGlobal       = "cir.global"
	OpGetGlobal    = "cir.get_global"
	OpCall         = "cir.call"
	OpReturn       = "cir.return"
	OpBr           = "cir.br"
	OpBrCond       = "cir.brcond"
	OpSwitchFlat   = "cir.switch.flat"
	OpTrap         = "cir.trap"
	OpUnreachable  = "cir.unreachable"
	OpConst        = "cir.const"
	OpCast         = "cir.cast"
	OpBinOp        = "cir.binop"
	OpUnary        = "cir.unary"
	OpCmp          = "cir.cmp"
	OpShift        = "cir.shift"
	OpSelect       = "cir.select"
	OpAlloca       = "cir.alloca"
	OpLoad         = "cir.load"
	OpStore        = "cir.store"
	OpPtrStride    = "cir.ptr_stride"
	OpBaseClass    = "cir.base_class_addr"
	OpGetMember    = "cir.get_member"
	OpSetBitfield  = "cir.set_bitfield"
	OpGetBitfield  = "cir.get_bitfield"
	OpVecCreate    = "cir.vec.create"
	OpVecExtract   = "cir.vec.extract"
	OpVecInsert    = "cir.vec.insert"
	OpVecCmp       = "cir.vec.cmp"
	OpVecSplat     = "cir.vec.splat"
	OpVecShuffle   = "cir.vec.shuffle"
	OpVecShuffleDy = "cir.vec.shuffle.dynamic"
	OpVecTernary   = "cir.vec.ternary"
	OpComplexNew   = "cir.complex.create"
	OpComplexReal  = "cir.complex.real"
	OpComplexImag  = "cir.complex.imag"
	OpComplexRPtr  = "cir.complex.real_ptr"
	OpComplexIPtr  = "cir.complex.imag_ptr"
	OpComplexAdd   = "cir.complex.add"
	OpComplexSub   = "cir.complex.sub"
	OpBitClrsb     = "cir.bit.clrsb"
	OpBitClz       = "cir.bit.clz"
	OpBitCtz       = "cir.bit.ctz"
	OpBitFfs       = "cir.bit.ffs"
	OpBitParity    = "cir.bit.parity"
	OpBitPopcount  = "cir.bit.popcount"
	OpBitReverse   = "cir.bitreverse"
	OpByteSwap     = "cir.byte_swap"
	OpAssume       = "cir.assume"
	OpExpect       = "cir.expect"
	OpStackSave    = "cir.stack_save"
	OpStackRestore = "cir.stack_restore"
)

// Names of the attributes read by the lowering.
const (
	AttrSymName        = "sym_name"
	AttrFunctionType   = "function_type"
	AttrLinkage        = "linkage"
	AttrVisibility     = "global_visibility"
	AttrDSOLocal       = "dso_local"
	AttrArgAttrs       = "arg_attrs"
	AttrResAttrs       = "res_attrs"
	AttrGlobalType     = "sym_type"
	AttrInitialValue   = "initial_value"
	AttrConstant       = "constant"
	AttrAlignment      = "alignment"
	AttrComdat         = "comdat"
	AttrName           = "name"
	AttrCallee         = "callee"
	AttrSideEffect     = "side_effect"
	AttrNoThrow        = "nothrow"
	AttrCaseValues     = "case_values"
	AttrValue          = "value"
	AttrKind           = "kind"
	AttrNoUnsignedWrap = "no_unsigned_wrap"
	AttrNoSignedWrap   = "no_signed_wrap"
	AttrSaturated      = "saturated"
	AttrIsShiftLeft    = "is_shift_left"
	AttrAllocaType     = "alloca_type"
	AttrIsVolatile     = "is_volatile"
	AttrOffset         = "offset"
	AttrAssumeNotNull  = "assume_not_null"
	AttrIndex          = "index"
	AttrBitfieldInfo   = "bitfield_info"
	AttrIndices        = "indices"
	AttrPoisonZero     = "poison_zero"
	AttrProb           = "prob"
)

// IsTerminator returns whether name is a source block terminator.
func IsTerminator(name string) bool {
	switch name {
	case OpReturn, OpBr, OpBrCond, OpSwitchFlat, OpUnreachable, OpTrap:
		return true
	}

	return false
}

// Names of the module level attributes.
const (
	ModAttrTriple = "cir.triple"
)
