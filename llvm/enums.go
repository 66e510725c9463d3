package llvm

import (
	"fmt"
	"strings"
)

// IntPredicate is the predicate of an integer comparison.
type IntPredicate int

// Enumeration of integer predicates
const (
	IntEQ IntPredicate = iota
	IntNE
	IntUGT
	IntUGE
	IntULT
	IntULE
	IntSGT
	IntSGE
	IntSLT
	IntSLE
)

var intPredNames = []string{"eq", "ne", "ugt", "uge", "ult", "ule", "sgt", "sge", "slt", "sle"}

func (ip IntPredicate) String() string {
	return intPredNames[ip]
}

// RealPredicate is the predicate of a floating point comparison.
type RealPredicate int

// Enumeration of real predicates
const (
	RealFalse RealPredicate = iota
	RealOEQ
	RealOGT
	RealOGE
	RealOLT
	RealOLE
	RealONE
	RealORD
	RealUNO
	RealUEQ
	RealUGT
	RealUGE
	RealULT
	RealULE
	RealUNE
	RealTrue
)

var realPredNames = []string{
	"_false", "oeq", "ogt", "oge", "olt", "ole", "one", "ord",
	"uno", "ueq", "ugt", "uge", "ult", "ule", "une", "_true",
}

func (rp RealPredicate) String() string {
	return realPredNames[rp]
}

// -----------------------------------------------------------------------------

// OverflowFlags are the wrap flags of integer arithmetic.
type OverflowFlags int

// Enumeration of overflow flags
const (
	OverflowNone OverflowFlags = 0
	OverflowNSW  OverflowFlags = 1 << iota
	OverflowNUW
)

func (of OverflowFlags) String() string {
	var flags []string
	if of&OverflowNSW != 0 {
		flags = append(flags, "nsw")
	}

	if of&OverflowNUW != 0 {
		flags = append(flags, "nuw")
	}

	if len(flags) == 0 {
		return "none"
	}

	return strings.Join(flags, ", ")
}

// ModRef describes how a call may access a location kind.
type ModRef int

// Enumeration of mod-ref kinds
const (
	NoModRef ModRef = iota
	Ref
	Mod
	ModRefAll
)

var modRefNames = []string{"none", "read", "write", "readwrite"}

func (mr ModRef) String() string {
	return modRefNames[mr]
}

// MemoryEffects is the memory annotation of a call.
type MemoryEffects struct {
	Other, ArgMem, InaccessibleMem ModRef
}

func (me *MemoryEffects) Repr() string {
	return fmt.Sprintf("#llvm.memory_effects<other = %s, argMem = %s, inaccessibleMem = %s>",
		me.Other, me.ArgMem, me.InaccessibleMem)
}

// ReadOnly returns whether the call never writes memory.
func (me *MemoryEffects) ReadOnly() bool {
	return me.Other <= Ref && me.ArgMem <= Ref && me.InaccessibleMem <= Ref
}

// ReadNone returns whether the call never accesses memory.
func (me *MemoryEffects) ReadNone() bool {
	return me.Other == NoModRef && me.ArgMem == NoModRef && me.InaccessibleMem == NoModRef
}

// -----------------------------------------------------------------------------

// Linkage is the linkage of a target symbol.
type Linkage int

// Enumeration of linkages
const (
	ExternalLinkage Linkage = iota
	AvailableExternallyLinkage
	LinkOnceAnyLinkage
	LinkOnceODRLinkage
	WeakAnyLinkage
	WeakODRLinkage
	InternalLinkage
	PrivateLinkage
	ExternalWeakLinkage
	CommonLinkage
)

var linkageNames = []string{
	"external", "available_externally", "linkonce", "linkonce_odr", "weak",
	"weak_odr", "internal", "private", "extern_weak", "common",
}

func (l Linkage) String() string {
	return linkageNames[l]
}

// Visibility is the visibility of a target symbol.
type Visibility int

// Enumeration of visibilities
const (
	DefaultVisibility Visibility = iota
	HiddenVisibility
	ProtectedVisibility
)

var visibilityNames = []string{"default", "hidden", "protected"}

func (v Visibility) String() string {
	return visibilityNames[v]
}

// ComdatSelection is the selection kind of a COMDAT selector.
type ComdatSelection int

// Enumeration of comdat selection kinds
const (
	ComdatAny ComdatSelection = iota
	ComdatExactMatch
	ComdatLargest
	ComdatNoDeduplicate
	ComdatSameSize
)

var comdatNames = []string{"any", "exactmatch", "largest", "nodeduplicate", "samesize"}

func (cs ComdatSelection) String() string {
	return comdatNames[cs]
}
