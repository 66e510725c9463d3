package cir

import (
	"fmt"
	"strings"

	"cirlower/ir"
)

// VoidType is the type of functions returning nothing.
type VoidType struct{}

func (*VoidType) Repr() string {
	return "!cir.void"
}

// BoolType is the source boolean type.
type BoolType struct{}

func (*BoolType) Repr() string {
	return "!cir.bool"
}

// IntType is a fixed-width integer with explicit signedness.
type IntType struct {
	Width  uint
	Signed bool
}

func (it *IntType) Repr() string {
	if it.Signed {
		return fmt.Sprintf("!s%di", it.Width)
	}

	return fmt.Sprintf("!u%di", it.Width)
}

// -----------------------------------------------------------------------------

// FloatKind enumerates the IEEE-like floating point formats.
type FloatKind int

// Enumeration of float kinds
const (
	FloatHalf FloatKind = iota
	FloatBF16
	FloatSingle
	FloatDouble
	FloatFP80
	FloatFP128
)

// FloatType is a floating point type of one of the enumerated kinds.
type FloatType struct {
	Kind FloatKind
}

func (ft *FloatType) Repr() string {
	switch ft.Kind {
	case FloatHalf:
		return "!cir.f16"
	case FloatBF16:
		return "!cir.bf16"
	case FloatSingle:
		return "!cir.float"
	case FloatDouble:
		return "!cir.double"
	case FloatFP80:
		return "!cir.f80"
	default: // FloatFP128
		return "!cir.f128"
	}
}

// Width returns the bit width of the float format.
func (ft *FloatType) Width() uint {
	switch ft.Kind {
	case FloatHalf, FloatBF16:
		return 16
	case FloatSingle:
		return 32
	case FloatDouble:
		return 64
	case FloatFP80:
		return 80
	default: // FloatFP128
		return 128
	}
}

// LongDoubleType wraps the platform format used for `long double`.
type LongDoubleType struct {
	Underlying *FloatType
}

func (ld *LongDoubleType) Repr() string {
	return "!cir.long_double<" + ld.Underlying.Repr() + ">"
}

// -----------------------------------------------------------------------------

// PointerType is a typed pointer.  The pointee is only known to the source
// dialect: target pointers are opaque.
type PointerType struct {
	Pointee   ir.Type
	AddrSpace uint
}

func (pt *PointerType) Repr() string {
	if pt.AddrSpace != 0 {
		return fmt.Sprintf("!cir.ptr<%s, addrspace(%d)>", pt.Pointee.Repr(), pt.AddrSpace)
	}

	return "!cir.ptr<" + pt.Pointee.Repr() + ">"
}

// ArrayType is a fixed-length array.
type ArrayType struct {
	Elem ir.Type
	Size uint64
}

func (at *ArrayType) Repr() string {
	return fmt.Sprintf("!cir.array<%s x %d>", at.Elem.Repr(), at.Size)
}

// VectorType is a fixed-length or scalable vector.
type VectorType struct {
	Elem     ir.Type
	Size     uint64
	Scalable bool
}

func (vt *VectorType) Repr() string {
	if vt.Scalable {
		return fmt.Sprintf("!cir.vector<[%d] x %s>", vt.Size, vt.Elem.Repr())
	}

	return fmt.Sprintf("!cir.vector<%s x %d>", vt.Elem.Repr(), vt.Size)
}

// ComplexType is a real and imaginary pair of an integer or float type.
type ComplexType struct {
	Elem ir.Type
}

func (ct *ComplexType) Repr() string {
	return "!cir.complex<" + ct.Elem.Repr() + ">"
}

// FuncType is the type of a function.
type FuncType struct {
	Ret      ir.Type
	Params   []ir.Type
	Variadic bool
}

func (ft *FuncType) Repr() string {
	params := make([]string, 0, len(ft.Params)+1)
	for _, p := range ft.Params {
		params = append(params, p.Repr())
	}

	if ft.Variadic {
		params = append(params, "...")
	}

	return fmt.Sprintf("!cir.func<(%s) -> %s>", strings.Join(params, ", "), ft.ReturnType().Repr())
}

// ReturnType returns the declared return type, defaulting to void.
func (ft *FuncType) ReturnType() ir.Type {
	if ft.Ret == nil {
		return Void
	}

	return ft.Ret
}

// HasVoidReturn returns whether the function returns nothing.
func (ft *FuncType) HasVoidReturn() bool {
	_, ok := ft.ReturnType().(*VoidType)
	return ok
}

// -----------------------------------------------------------------------------

// RecordKind enumerates the kinds of records.
type RecordKind int

// Enumeration of record kinds
const (
	RecordStruct RecordKind = iota
	RecordClass
	RecordUnion
)

func (rk RecordKind) String() string {
	switch rk {
	case RecordStruct:
		return "struct"
	case RecordClass:
		return "class"
	default: // RecordUnion
		return "union"
	}
}

// RecordType is a struct, class or union.  Named records are compared by
// identity and may be referenced recursively through pointers.
type RecordType struct {
	Kind    RecordKind
	Name    string
	Members []ir.Type

	// Packed records have no padding between members.
	Packed bool

	// Padded unions carry a trailing padding member as their last member.
	Padded bool
}

func (rt *RecordType) Repr() string {
	if rt.Name != "" {
		return "!rec_" + rt.Name
	}

	members := make([]string, len(rt.Members))
	for i, m := range rt.Members {
		members[i] = m.Repr()
	}

	packed := ""
	if rt.Packed {
		packed = "packed "
	}

	return fmt.Sprintf("!cir.record<%s %s{%s}>", rt.Kind, packed, strings.Join(members, ", "))
}

// PrefixedName returns the record name qualified by its kind, as used for the
// target named aggregate.
func (rt *RecordType) PrefixedName() string {
	return rt.Kind.String() + "." + rt.Name
}

// IsUnion returns whether the record is a union.
func (rt *RecordType) IsUnion() bool {
	return rt.Kind == RecordUnion
}

// -----------------------------------------------------------------------------

// Commonly used types.
var (
	Void   = &VoidType{}
	Bool   = &BoolType{}
	S8     = &IntType{Width: 8, Signed: true}
	S16    = &IntType{Width: 16, Signed: true}
	S32    = &IntType{Width: 32, Signed: true}
	S64    = &IntType{Width: 64, Signed: true}
	U8     = &IntType{Width: 8}
	U16    = &IntType{Width: 16}
	U32    = &IntType{Width: 32}
	U64    = &IntType{Width: 64}
	Half   = &FloatType{Kind: FloatHalf}
	BF16   = &FloatType{Kind: FloatBF16}
	Single = &FloatType{Kind: FloatSingle}
	Double = &FloatType{Kind: FloatDouble}
	FP80   = &FloatType{Kind: FloatFP80}
	FP128  = &FloatType{Kind: FloatFP128}
)

// Int returns an integer type of the given width and signedness.
func Int(width uint, signed bool) *IntType {
	return &IntType{Width: width, Signed: signed}
}

// Ptr returns a pointer to pointee in the default address space.
func Ptr(pointee ir.Type) *PointerType {
	return &PointerType{Pointee: pointee}
}

// Array returns an array type.
func Array(elem ir.Type, size uint64) *ArrayType {
	return &ArrayType{Elem: elem, Size: size}
}

// Vector returns a fixed-length vector type.
func Vector(elem ir.Type, size uint64) *VectorType {
	return &VectorType{Elem: elem, Size: size}
}

// Complex returns a complex type over elem.
func Complex(elem ir.Type) *ComplexType {
	return &ComplexType{Elem: elem}
}

// Func returns a non-variadic function type.
func Func(ret ir.Type, params ...ir.Type) *FuncType {
	return &FuncType{Ret: ret, Params: params}
}

// -----------------------------------------------------------------------------

// IsSigned returns whether t is a signed integer.
func IsSigned(t ir.Type) bool {
	it, ok := t.(*IntType)
	return ok && it.Signed
}

// IsUnsigned returns whether t is an unsigned integer.
func IsUnsigned(t ir.Type) bool {
	it, ok := t.(*IntType)
	return ok && !it.Signed
}

// ElementType returns the element type of a vector or t itself.
func ElementType(t ir.Type) ir.Type {
	if vt, ok := t.(*VectorType); ok {
		return vt.Elem
	}

	return t
}

// IsAnyFloat returns whether t is a float or long double type.
func IsAnyFloat(t ir.Type) bool {
	switch t.(type) {
	case *FloatType, *LongDoubleType:
		return true
	}

	return false
}

// IsType returns whether t belongs to the source dialect.
func IsType(t ir.Type) bool {
	switch t.(type) {
	case *VoidType, *BoolType, *IntType, *FloatType, *LongDoubleType, *PointerType,
		*ArrayType, *VectorType, *ComplexType, *FuncType, *RecordType:
		return true
	}

	return false
}
