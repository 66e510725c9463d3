package eval

import (
	"fmt"
	"math/big"
	"strings"

	"tlog.app/go/errors"

	"cirlower/ir"
	"cirlower/llvm"
)

// Value is a runtime value of the target dialect.  Undefined and poison values
// are represented by the zero value of their type.
type Value interface {
	String() string
}

// Int is an integer of a given width.  Bits holds the value truncated to the
// width.
type Int struct {
	Width uint
	Bits  uint64
}

// MakeInt creates an integer of width bits holding the low bits of v.
func MakeInt(width uint, v int64) Int {
	return Int{Width: width, Bits: truncate(uint64(v), width)}
}

// Bool creates a 1-bit integer.
func Bool(b bool) Int {
	if b {
		return Int{Width: 1, Bits: 1}
	}

	return Int{Width: 1}
}

// Signed returns the value interpreted as a two's complement integer.
func (i Int) Signed() int64 {
	if i.Width >= 64 || i.Width == 0 {
		return int64(i.Bits)
	}

	shift := 64 - i.Width
	return int64(i.Bits<<shift) >> shift
}

func (i Int) String() string {
	return fmt.Sprintf("i%d %d", i.Width, i.Signed())
}

func truncate(x uint64, width uint) uint64 {
	if width >= 64 {
		return x
	}

	return x & (1<<width - 1)
}

// Wide is an integer wider than 64 bits.  X holds the value truncated to the
// width, as a non-negative number.
type Wide struct {
	Width uint
	X     *big.Int
}

// MakeWide creates an integer of width bits holding the low bits of v.
func MakeWide(width uint, v *big.Int) Wide {
	return Wide{Width: width, X: truncateBig(v, width)}
}

// Signed returns the value interpreted as a two's complement integer.
func (w Wide) Signed() *big.Int {
	if w.X.Bit(int(w.Width)-1) == 0 {
		return new(big.Int).Set(w.X)
	}

	return new(big.Int).Sub(w.X, new(big.Int).Lsh(big.NewInt(1), w.Width))
}

func (w Wide) String() string {
	return fmt.Sprintf("i%d %s", w.Width, w.Signed())
}

func truncateBig(x *big.Int, width uint) *big.Int {
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), width), big.NewInt(1))
	return mask.And(mask, x)
}

// Float is a floating point value.  Single precision values are rounded on
// creation.
type Float struct {
	Width uint
	Value float64
}

// MakeFloat creates a float of the given width.
func MakeFloat(width uint, v float64) Float {
	if width == 32 {
		v = float64(float32(v))
	}

	return Float{Width: width, Value: v}
}

func (f Float) String() string {
	return fmt.Sprintf("f%d %g", f.Width, f.Value)
}

// Ptr is an address in the memory of a machine.  The null pointer is zero.
type Ptr struct {
	Addr uint64
}

func (p Ptr) String() string {
	return fmt.Sprintf("ptr %#x", p.Addr)
}

// Agg is a struct, array or vector value.
type Agg struct {
	Elems []Value
}

func (a Agg) String() string {
	elems := make([]string, len(a.Elems))
	for i, e := range a.Elems {
		elems[i] = e.String()
	}

	return "{" + strings.Join(elems, ", ") + "}"
}

// with returns a copy of a whose element i is v.
func (a Agg) with(i int, v Value) Agg {
	elems := append([]Value(nil), a.Elems...)
	elems[i] = v
	return Agg{Elems: elems}
}

// -----------------------------------------------------------------------------

// Zero returns the all-zero value of typ.
func Zero(typ ir.Type) (Value, error) {
	switch v := typ.(type) {
	case *llvm.IntType:
		if v.Width > 64 {
			return Wide{Width: v.Width, X: new(big.Int)}, nil
		}

		return Int{Width: v.Width}, nil
	case *llvm.FloatType:
		return Float{Width: v.Width()}, nil
	case *llvm.PointerType:
		return Ptr{}, nil
	case *llvm.ArrayType:
		return zeroAgg(v.Elem, v.Len)
	case *llvm.VectorType:
		if v.Scalable {
			break
		}

		return zeroAgg(v.Elem, v.Len)
	case *llvm.StructType:
		elems := make([]Value, len(v.Fields))
		for i, f := range v.Fields {
			z, err := Zero(f)
			if err != nil {
				return nil, err
			}

			elems[i] = z
		}

		return Agg{Elems: elems}, nil
	}

	return nil, errors.New("no runtime representation for %s", typ.Repr())
}

func zeroAgg(elem ir.Type, n uint64) (Value, error) {
	elems := make([]Value, n)
	for i := range elems {
		z, err := Zero(elem)
		if err != nil {
			return nil, err
		}

		elems[i] = z
	}

	return Agg{Elems: elems}, nil
}

// Constant converts a target literal into a value.
func Constant(c llvm.Constant) (Value, error) {
	switch v := c.(type) {
	case *llvm.IntAttr:
		it, ok := v.Typ.(*llvm.IntType)
		if !ok {
			break
		}

		if it.Width > 64 {
			return MakeWide(it.Width, v.BigValue()), nil
		}

		return MakeInt(it.Width, v.Value), nil
	case *llvm.FloatAttr:
		ft, ok := v.Typ.(*llvm.FloatType)
		if !ok {
			break
		}

		return MakeFloat(ft.Width(), v.Value), nil
	case *llvm.DenseAttr:
		elems := make([]Value, len(v.Elems))
		for i, e := range v.Elems {
			ev, err := Constant(e)
			if err != nil {
				return nil, err
			}

			elems[i] = ev
		}

		return Agg{Elems: elems}, nil
	}

	return nil, errors.New("unsupported literal %s", c.Repr())
}
