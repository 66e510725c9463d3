package llvm

import (
	"fmt"
	"strings"

	"cirlower/ir"
)

// VoidType is the target void type.
type VoidType struct{}

func (*VoidType) Repr() string {
	return "void"
}

// IntType is a signless integer of a given width.
type IntType struct {
	Width uint
}

func (it *IntType) Repr() string {
	return fmt.Sprintf("i%d", it.Width)
}

// FloatKind identifies a target floating point format.
type FloatKind int

// Enumeration of target float kinds
const (
	HalfKind FloatKind = iota
	BFloatKind
	FloatKindSingle
	DoubleKind
	X86FP80Kind
	FP128Kind
)

// FloatType is a target floating point type.
type FloatType struct {
	Kind FloatKind
}

func (ft *FloatType) Repr() string {
	switch ft.Kind {
	case HalfKind:
		return "f16"
	case BFloatKind:
		return "bf16"
	case FloatKindSingle:
		return "f32"
	case DoubleKind:
		return "f64"
	case X86FP80Kind:
		return "f80"
	default: // FP128Kind
		return "f128"
	}
}

// Width returns the bit width of the format.
func (ft *FloatType) Width() uint {
	switch ft.Kind {
	case HalfKind, BFloatKind:
		return 16
	case FloatKindSingle:
		return 32
	case DoubleKind:
		return 64
	case X86FP80Kind:
		return 80
	default: // FP128Kind
		return 128
	}
}

// PointerType is an opaque pointer in an address space.
type PointerType struct {
	AddrSpace uint
}

func (pt *PointerType) Repr() string {
	if pt.AddrSpace != 0 {
		return fmt.Sprintf("!llvm.ptr<%d>", pt.AddrSpace)
	}

	return "!llvm.ptr"
}

// ArrayType is a fixed-length target array.
type ArrayType struct {
	Elem ir.Type
	Len  uint64
}

func (at *ArrayType) Repr() string {
	return fmt.Sprintf("!llvm.array<%d x %s>", at.Len, at.Elem.Repr())
}

// VectorType is a fixed-length or scalable target vector.
type VectorType struct {
	Elem     ir.Type
	Len      uint64
	Scalable bool
}

func (vt *VectorType) Repr() string {
	if vt.Scalable {
		return fmt.Sprintf("vector<[%d]x%s>", vt.Len, vt.Elem.Repr())
	}

	return fmt.Sprintf("vector<%dx%s>", vt.Len, vt.Elem.Repr())
}

// StructType is a target aggregate.  A struct with a name is identified: two
// identified structs are equal only if their names are.
type StructType struct {
	Name   string
	Fields []ir.Type
	Packed bool
}

func (st *StructType) Repr() string {
	fields := make([]string, len(st.Fields))
	for i, f := range st.Fields {
		fields[i] = f.Repr()
	}

	packed := ""
	if st.Packed {
		packed = "packed "
	}

	if st.Name != "" {
		return fmt.Sprintf("!llvm.struct<%q, %s(%s)>", st.Name, packed, strings.Join(fields, ", "))
	}

	return fmt.Sprintf("!llvm.struct<%s(%s)>", packed, strings.Join(fields, ", "))
}

// FuncType is a target function type.
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

	return fmt.Sprintf("!llvm.func<%s (%s)>", ft.Ret.Repr(), strings.Join(params, ", "))
}

// -----------------------------------------------------------------------------

// Commonly used target types.
var (
	Void = &VoidType{}
	I1   = &IntType{Width: 1}
	I8   = &IntType{Width: 8}
	I16  = &IntType{Width: 16}
	I32  = &IntType{Width: 32}
	I64  = &IntType{Width: 64}
	F32  = &FloatType{Kind: FloatKindSingle}
	F64  = &FloatType{Kind: DoubleKind}
	Ptr  = &PointerType{}
)

var intTypes = map[uint]*IntType{1: I1, 8: I8, 16: I16, 32: I32, 64: I64}

// Int returns the integer type of the given width.
func Int(width uint) *IntType {
	if it, ok := intTypes[width]; ok {
		return it
	}

	return &IntType{Width: width}
}

// IsType returns whether t belongs to the target type universe.
func IsType(t ir.Type) bool {
	switch v := t.(type) {
	case *VoidType, *IntType, *FloatType, *PointerType:
		return true
	case *ArrayType:
		return IsType(v.Elem)
	case *VectorType:
		return IsType(v.Elem)
	case *StructType:
		for _, f := range v.Fields {
			if !IsType(f) {
				return false
			}
		}
		return true
	case *FuncType:
		if !IsType(v.Ret) {
			return false
		}
		for _, p := range v.Params {
			if !IsType(p) {
				return false
			}
		}
		return true
	}

	return false
}

// Equal returns whether two target types are the same.
func Equal(a, b ir.Type) bool {
	if a == b {
		return true
	}

	switch x := a.(type) {
	case *VoidType:
		_, ok := b.(*VoidType)
		return ok
	case *IntType:
		y, ok := b.(*IntType)
		return ok && x.Width == y.Width
	case *FloatType:
		y, ok := b.(*FloatType)
		return ok && x.Kind == y.Kind
	case *PointerType:
		y, ok := b.(*PointerType)
		return ok && x.AddrSpace == y.AddrSpace
	case *ArrayType:
		y, ok := b.(*ArrayType)
		return ok && x.Len == y.Len && Equal(x.Elem, y.Elem)
	case *VectorType:
		y, ok := b.(*VectorType)
		return ok && x.Len == y.Len && x.Scalable == y.Scalable && Equal(x.Elem, y.Elem)
	case *StructType:
		y, ok := b.(*StructType)
		if !ok || x.Name != y.Name {
			return false
		}

		if x.Name != "" {
			return true
		}

		return x.Packed == y.Packed && equalTypes(x.Fields, y.Fields)
	case *FuncType:
		y, ok := b.(*FuncType)
		return ok && x.Variadic == y.Variadic && Equal(x.Ret, y.Ret) && equalTypes(x.Params, y.Params)
	}

	return false
}

func equalTypes(a, b []ir.Type) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}

	return true
}

// ElementType returns the lane type of a vector or t itself.
func ElementType(t ir.Type) ir.Type {
	if vt, ok := t.(*VectorType); ok {
		return vt.Elem
	}

	return t
}

// IsInt returns whether t is an integer or a vector of integers.
func IsInt(t ir.Type) bool {
	_, ok := ElementType(t).(*IntType)
	return ok
}

// IsFloat returns whether t is a float or a vector of floats.
func IsFloat(t ir.Type) bool {
	_, ok := ElementType(t).(*FloatType)
	return ok
}

// BitWidth returns the bit width of a scalar integer or float type, or zero.
func BitWidth(t ir.Type) uint {
	switch v := t.(type) {
	case *IntType:
		return v.Width
	case *FloatType:
		return v.Width()
	}

	return 0
}
