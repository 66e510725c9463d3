package cir

import (
	"fmt"
	"strings"

	"cirlower/ir"
)

// Attr is a constant attribute: a typed literal used by constants and global
// initializers.
type Attr interface {
	// Type returns the declared type of the literal.
	Type() ir.Type

	Repr() string
}

// IntAttr is an integer literal.  Value holds the two's complement bit
// pattern truncated to the width of the type.
type IntAttr struct {
	Typ   *IntType
	Value int64
}

func (ia *IntAttr) Type() ir.Type { return ia.Typ }

func (ia *IntAttr) Repr() string {
	return fmt.Sprintf("#cir.int<%d> : %s", ia.Value, ia.Typ.Repr())
}

// BoolAttr is a boolean literal.
type BoolAttr struct {
	Value bool
}

func (*BoolAttr) Type() ir.Type { return Bool }

func (ba *BoolAttr) Repr() string {
	return fmt.Sprintf("#cir.bool<%t>", ba.Value)
}

// FPAttr is a floating point literal.
type FPAttr struct {
	Typ   ir.Type
	Value float64
}

func (fa *FPAttr) Type() ir.Type { return fa.Typ }

func (fa *FPAttr) Repr() string {
	return fmt.Sprintf("#cir.fp<%g> : %s", fa.Value, fa.Typ.Repr())
}

// ComplexAttr is a complex literal made of two int or fp literals.
type ComplexAttr struct {
	Typ        *ComplexType
	Real, Imag Attr
}

func (ca *ComplexAttr) Type() ir.Type { return ca.Typ }

func (ca *ComplexAttr) Repr() string {
	return fmt.Sprintf("#cir.complex<%s, %s>", ca.Real.Repr(), ca.Imag.Repr())
}

// PtrAttr is a pointer literal holding an absolute address.  A zero address is
// the null pointer.
type PtrAttr struct {
	Typ   *PointerType
	Value int64
}

func (pa *PtrAttr) Type() ir.Type { return pa.Typ }

func (pa *PtrAttr) Repr() string {
	if pa.IsNull() {
		return "#cir.ptr<null> : " + pa.Typ.Repr()
	}

	return fmt.Sprintf("#cir.ptr<%d> : %s", pa.Value, pa.Typ.Repr())
}

// IsNull returns whether the literal is the null pointer.
func (pa *PtrAttr) IsNull() bool {
	return pa.Value == 0
}

// ConstArrayAttr is an array literal.  Either Elts lists explicit elements or
// Str holds the bytes of a string literal.  TrailingZeros counts the implicit
// zero elements following the explicit ones.
type ConstArrayAttr struct {
	Typ           *ArrayType
	Elts          []Attr
	Str           string
	IsString      bool
	TrailingZeros uint64
}

func (caa *ConstArrayAttr) Type() ir.Type { return caa.Typ }

func (caa *ConstArrayAttr) Repr() string {
	var body string
	if caa.IsString {
		body = fmt.Sprintf("%q", caa.Str)
	} else {
		elts := make([]string, len(caa.Elts))
		for i, e := range caa.Elts {
			elts[i] = e.Repr()
		}

		body = "[" + strings.Join(elts, ", ") + "]"
	}

	if caa.TrailingZeros > 0 {
		return fmt.Sprintf("#cir.const_array<%s, trailing_zeros> : %s", body, caa.Typ.Repr())
	}

	return fmt.Sprintf("#cir.const_array<%s> : %s", body, caa.Typ.Repr())
}

// HasTrailingZeros returns whether the literal declares a trailing zero run.
func (caa *ConstArrayAttr) HasTrailingZeros() bool {
	return caa.TrailingZeros != 0
}

// ConstVectorAttr is a vector literal listing every element.
type ConstVectorAttr struct {
	Typ  *VectorType
	Elts []Attr
}

func (cva *ConstVectorAttr) Type() ir.Type { return cva.Typ }

func (cva *ConstVectorAttr) Repr() string {
	elts := make([]string, len(cva.Elts))
	for i, e := range cva.Elts {
		elts[i] = e.Repr()
	}

	return fmt.Sprintf("#cir.const_vector<[%s]> : %s", strings.Join(elts, ", "), cva.Typ.Repr())
}

// ZeroAttr is the all-zero value of its type.
type ZeroAttr struct {
	Typ ir.Type
}

func (za *ZeroAttr) Type() ir.Type { return za.Typ }

func (za *ZeroAttr) Repr() string {
	return "#cir.zero : " + za.Typ.Repr()
}

// UndefAttr is an undefined value of its type.
type UndefAttr struct {
	Typ ir.Type
}

func (ua *UndefAttr) Type() ir.Type { return ua.Typ }

func (ua *UndefAttr) Repr() string {
	return "#cir.undef : " + ua.Typ.Repr()
}

// PoisonAttr is a poison value of its type.
type PoisonAttr struct {
	Typ ir.Type
}

func (pa *PoisonAttr) Type() ir.Type { return pa.Typ }

func (pa *PoisonAttr) Repr() string {
	return "#cir.poison : " + pa.Typ.Repr()
}

// -----------------------------------------------------------------------------

// NewInt creates an integer literal, truncating v to the width of typ.
func NewInt(typ *IntType, v int64) *IntAttr {
	return &IntAttr{Typ: typ, Value: TruncInt(v, typ.Width, typ.Signed)}
}

// NewConstArray creates an array literal whose missing trailing elements are
// implicit zeros.
func NewConstArray(typ *ArrayType, elts ...Attr) *ConstArrayAttr {
	return &ConstArrayAttr{
		Typ:           typ,
		Elts:          elts,
		TrailingZeros: typ.Size - uint64(len(elts)),
	}
}

// NewString creates a string literal padded with implicit zeros up to the
// length of typ.
func NewString(typ *ArrayType, s string) *ConstArrayAttr {
	return &ConstArrayAttr{
		Typ:           typ,
		Str:           s,
		IsString:      true,
		TrailingZeros: typ.Size - uint64(len(s)),
	}
}

// TruncInt truncates v to width bits and re-extends it according to signed.
func TruncInt(v int64, width uint, signed bool) int64 {
	if width >= 64 {
		return v
	}

	mask := uint64(1)<<width - 1
	u := uint64(v) & mask
	if signed && u&(uint64(1)<<(width-1)) != 0 {
		u |= ^mask
	}

	return int64(u)
}
