package cir

import (
	"fmt"

	"cirlower/ir"

	"tlog.app/go/errors"
)

// CastKind enumerates the conversions performed by `cir.cast`.
type CastKind int

// Enumeration of cast kinds
const (
	CastIntToBool CastKind = iota
	CastArrayToPtrDecay
	CastIntegral
	CastBitcast
	CastFloating
	CastIntToFloat
	CastFloatToInt
	CastBoolToInt
	CastFloatToBool
	CastBoolToFloat
	CastPtrToInt
	CastIntToPtr
	CastPtrToBool
	CastAddressSpace
	CastMemberPtrToBool
)

var castKindNames = []string{
	"int_to_bool",
	"array_to_ptrdecay",
	"integral",
	"bitcast",
	"floating",
	"int_to_float",
	"float_to_int",
	"bool_to_int",
	"float_to_bool",
	"bool_to_float",
	"ptr_to_int",
	"int_to_ptr",
	"ptr_to_bool",
	"address_space",
	"member_ptr_to_bool",
}

func (ck CastKind) String() string {
	return enumName(castKindNames, int(ck))
}

// ParseCastKind returns the cast kind named name.
func ParseCastKind(name string) (CastKind, error) {
	i, err := parseEnum("cast kind", castKindNames, name)
	return CastKind(i), err
}

// -----------------------------------------------------------------------------

// BinOpKind enumerates the operators of `cir.binop`.
type BinOpKind int

// Enumeration of binary operators
const (
	BinOpMul BinOpKind = iota
	BinOpDiv
	BinOpRem
	BinOpAdd
	BinOpSub
	BinOpAnd
	BinOpXor
	BinOpOr
	BinOpMax
)

var binOpNames = []string{"mul", "div", "rem", "add", "sub", "and", "xor", "or", "max"}

func (bk BinOpKind) String() string {
	return enumName(binOpNames, int(bk))
}

// ParseBinOpKind returns the binary operator named name.
func ParseBinOpKind(name string) (BinOpKind, error) {
	i, err := parseEnum("binary operator", binOpNames, name)
	return BinOpKind(i), err
}

// UnaryOpKind enumerates the operators of `cir.unary`.
type UnaryOpKind int

// Enumeration of unary operators
const (
	UnaryInc UnaryOpKind = iota
	UnaryDec
	UnaryPlus
	UnaryMinus
	UnaryNot
)

var unaryOpNames = []string{"inc", "dec", "plus", "minus", "not"}

func (uk UnaryOpKind) String() string {
	return enumName(unaryOpNames, int(uk))
}

// ParseUnaryOpKind returns the unary operator named name.
func ParseUnaryOpKind(name string) (UnaryOpKind, error) {
	i, err := parseEnum("unary operator", unaryOpNames, name)
	return UnaryOpKind(i), err
}

// CmpOpKind enumerates the comparison operators.
type CmpOpKind int

// Enumeration of comparison operators
const (
	CmpLT CmpOpKind = iota
	CmpLE
	CmpGT
	CmpGE
	CmpEQ
	CmpNE
)

var cmpOpNames = []string{"lt", "le", "gt", "ge", "eq", "ne"}

func (ck CmpOpKind) String() string {
	return enumName(cmpOpNames, int(ck))
}

// ParseCmpOpKind returns the comparison operator named name.
func ParseCmpOpKind(name string) (CmpOpKind, error) {
	i, err := parseEnum("comparison operator", cmpOpNames, name)
	return CmpOpKind(i), err
}

// -----------------------------------------------------------------------------

// SideEffect classifies the memory behavior of a call.
type SideEffect int

// Enumeration of side effects
const (
	SideEffectAll SideEffect = iota
	SideEffectPure
	SideEffectConst
)

var sideEffectNames = []string{"all", "pure", "const"}

func (se SideEffect) String() string {
	return enumName(sideEffectNames, int(se))
}

// ParseSideEffect returns the side effect named name.
func ParseSideEffect(name string) (SideEffect, error) {
	i, err := parseEnum("side effect", sideEffectNames, name)
	return SideEffect(i), err
}

// Linkage is the linkage of a global symbol.
type Linkage int

// Enumeration of linkages
const (
	LinkageExternal Linkage = iota
	LinkageAvailableExternally
	LinkageLinkOnceAny
	LinkageLinkOnceODR
	LinkageWeakAny
	LinkageWeakODR
	LinkageInternal
	LinkagePrivate
	LinkageExternWeak
	LinkageCommon
)

var linkageNames = []string{
	"external",
	"available_externally",
	"linkonce",
	"linkonce_odr",
	"weak",
	"weak_odr",
	"internal",
	"private",
	"extern_weak",
	"common",
}

func (l Linkage) String() string {
	return enumName(linkageNames, int(l))
}

// ParseLinkage returns the linkage named name.
func ParseLinkage(name string) (Linkage, error) {
	i, err := parseEnum("linkage", linkageNames, name)
	return Linkage(i), err
}

// Visibility is the visibility of a global symbol.
type Visibility int

// Enumeration of visibilities
const (
	VisibilityDefault Visibility = iota
	VisibilityHidden
	VisibilityProtected
)

var visibilityNames = []string{"default", "hidden", "protected"}

func (v Visibility) String() string {
	return enumName(visibilityNames, int(v))
}

// ParseVisibility returns the visibility named name.
func ParseVisibility(name string) (Visibility, error) {
	i, err := parseEnum("visibility", visibilityNames, name)
	return Visibility(i), err
}

// -----------------------------------------------------------------------------

// BitfieldInfo describes a bitfield packed in a storage unit.
type BitfieldInfo struct {
	// Name is the name of the field.
	Name string

	// StorageType is the type of the storage unit: an integer or an array of
	// bytes.
	StorageType ir.Type

	// Size is the width of the field in bits.
	Size uint

	// Offset is the bit offset of the field within the storage unit.
	Offset uint

	// Signed indicates whether the field is sign-extended when read.
	Signed bool
}

func (bi *BitfieldInfo) Repr() string {
	return fmt.Sprintf("#cir.bitfield_info<name = %q, storage_type = %s, size = %d, offset = %d, is_signed = %t>",
		bi.Name, bi.StorageType.Repr(), bi.Size, bi.Offset, bi.Signed)
}

// -----------------------------------------------------------------------------

func enumName(names []string, i int) string {
	if 0 <= i && i < len(names) {
		return names[i]
	}

	return fmt.Sprintf("<%d>", i)
}

func parseEnum(what string, names []string, name string) (int, error) {
	for i, n := range names {
		if n == name {
			return i, nil
		}
	}

	return 0, errors.New("unknown %s: %q", what, name)
}
