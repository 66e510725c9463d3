package llvm

// Names of the target operations.
const (
	OpFunc           = "llvm.func"
	OpReturn         = "llvm.return"
	OpGlobal         = "llvm.mlir.global"
	OpAddressOf      = "llvm.mlir.addressof"
	OpConstant       = "llvm.mlir.constant"
	OpZero           = "llvm.mlir.zero"
	OpUndef          = "llvm.mlir.undef"
	OpPoison         = "llvm.mlir.poison"
	OpComdat         = "llvm.comdat"
	OpComdatSelector = "llvm.comdat_selector"

	OpAdd  = "llvm.add"
	OpSub  = "llvm.sub"
	OpMul  = "llvm.mul"
	OpUDiv = "llvm.udiv"
	OpSDiv = "llvm.sdiv"
	OpURem = "llvm.urem"
	OpSRem = "llvm.srem"
	OpFAdd = "llvm.fadd"
	OpFSub = "llvm.fsub"
	OpFMul = "llvm.fmul"
	OpFDiv = "llvm.fdiv"
	OpFRem = "llvm.frem"
	OpFNeg = "llvm.fneg"
	OpAnd  = "llvm.and"
	OpOr   = "llvm.or"
	OpXor  = "llvm.xor"
	OpShl  = "llvm.shl"
	OpLShr = "llvm.lshr"
	OpAShr = "llvm.ashr"
	OpICmp = "llvm.icmp"
	OpFCmp = "llvm.fcmp"

	OpSelect = "llvm.select"

	OpTrunc         = "llvm.trunc"
	OpZExt          = "llvm.zext"
	OpSExt          = "llvm.sext"
	OpFPTrunc       = "llvm.fptrunc"
	OpFPExt         = "llvm.fpext"
	OpSIToFP        = "llvm.sitofp"
	OpUIToFP        = "llvm.uitofp"
	OpFPToSI        = "llvm.fptosi"
	OpFPToUI        = "llvm.fptoui"
	OpPtrToInt      = "llvm.ptrtoint"
	OpIntToPtr      = "llvm.inttoptr"
	OpBitcast       = "llvm.bitcast"
	OpAddrSpaceCast = "llvm.addrspacecast"

	OpAlloca = "llvm.alloca"
	OpLoad   = "llvm.load"
	OpStore  = "llvm.store"
	OpGEP    = "llvm.getelementptr"

	OpExtractValue   = "llvm.extractvalue"
	OpInsertValue    = "llvm.insertvalue"
	OpExtractElement = "llvm.extractelement"
	OpInsertElement  = "llvm.insertelement"
	OpShuffleVector  = "llvm.shufflevector"

	OpCall          = "llvm.call"
	OpCallIntrinsic = "llvm.call_intrinsic"

	OpBr          = "llvm.br"
	OpCondBr      = "llvm.cond_br"
	OpSwitch      = "llvm.switch"
	OpUnreachable = "llvm.unreachable"
)

// Names of the attributes of target operations.
const (
	AttrSymName      = "sym_name"
	AttrFunctionType = "function_type"
	AttrGlobalType   = "global_type"
	AttrLinkage      = "linkage"
	AttrVisibility   = "visibility_"
	AttrDSOLocal     = "dso_local"
	AttrConstant     = "constant"
	AttrAddrSpace    = "addr_space"
	AttrAlignment    = "alignment"
	AttrComdat       = "comdat"
	AttrValue        = "value"
	AttrGlobalName   = "global_name"
	AttrOverflow     = "overflowFlags"
	AttrPredicate    = "predicate"
	AttrElemType     = "elem_type"
	AttrRawIndices   = "rawConstantIndices"
	AttrInBounds     = "inbounds"
	AttrNUW          = "nuw"
	AttrPosition     = "position"
	AttrMask         = "mask"
	AttrCallee       = "callee"
	AttrCalleeType   = "var_callee_type"
	AttrIntrinsic    = "intrin"
	AttrMemory       = "memory_effects"
	AttrNoUnwind     = "no_unwind"
	AttrWillReturn   = "will_return"
	AttrCaseValues   = "case_values"
	AttrSelection    = "comdat_kind"
	AttrVolatile     = "volatile_"
)

// DynamicIndex marks a GEP index supplied as an operand rather than as a
// constant in AttrRawIndices.
const DynamicIndex int32 = -1 << 31

// IsTerminator returns whether name is a target block terminator.
func IsTerminator(name string) bool {
	switch name {
	case OpReturn, OpBr, OpCondBr, OpSwitch, OpUnreachable:
		return true
	}

	return false
}

// Names of the module level attributes.
const (
	ModAttrTargetTriple = "llvm.target_triple"
)
