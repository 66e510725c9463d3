package llvm

import (
	"fmt"

	"cirlower/ir"
)

// Names of the intrinsics emitted by the lowering.
const (
	IntrCtlz         = "llvm.ctlz"
	IntrCttz         = "llvm.cttz"
	IntrCtpop        = "llvm.ctpop"
	IntrBitReverse   = "llvm.bitreverse"
	IntrBSwap        = "llvm.bswap"
	IntrSMax         = "llvm.smax"
	IntrUMax         = "llvm.umax"
	IntrMaxNum       = "llvm.maxnum"
	IntrSAddSat      = "llvm.sadd.sat"
	IntrUAddSat      = "llvm.uadd.sat"
	IntrSSubSat      = "llvm.ssub.sat"
	IntrUSubSat      = "llvm.usub.sat"
	IntrSMulFixSat   = "llvm.smul.fix.sat"
	IntrUMulFixSat   = "llvm.umul.fix.sat"
	IntrExpect       = "llvm.expect"
	IntrExpectProb   = "llvm.expect.with.probability"
	IntrAssume       = "llvm.assume"
	IntrTrap         = "llvm.trap"
	IntrStackSave    = "llvm.stacksave"
	IntrStackRestore = "llvm.stackrestore"
)

// MangledName returns the full name of an overloaded intrinsic given the
// types at the call site.
func MangledName(name string, ret ir.Type, args []ir.Type) string {
	switch name {
	case IntrAssume, IntrTrap:
		return name
	case IntrStackSave:
		return name + "." + MangleType(ret)
	case IntrStackRestore:
		return name + "." + MangleType(args[0])
	default:
		return name + "." + MangleType(ret)
	}
}

// MangleType returns the suffix encoding t in an intrinsic name.
func MangleType(t ir.Type) string {
	switch v := t.(type) {
	case *IntType:
		return fmt.Sprintf("i%d", v.Width)
	case *FloatType:
		return v.Repr()
	case *PointerType:
		return fmt.Sprintf("p%d", v.AddrSpace)
	case *VectorType:
		if v.Scalable {
			return fmt.Sprintf("nxv%d%s", v.Len, MangleType(v.Elem))
		}

		return fmt.Sprintf("v%d%s", v.Len, MangleType(v.Elem))
	}

	panic(fmt.Sprintf("llvm: cannot mangle %s", t.Repr()))
}
