package llvm

import (
	"fmt"
	"math/big"
	"strings"

	"cirlower/ir"
)

// Constant is the value attribute of `llvm.mlir.constant` and of literal
// global initializers.
type Constant interface {
	Type() ir.Type
	Repr() string
}

// IntAttr is an integer literal.  Value holds the bit pattern.  Literals that
// do not fit 64 bits also carry their full value in Wide.
type IntAttr struct {
	Typ   ir.Type
	Value int64
	Wide  *big.Int
}

func (ia *IntAttr) Type() ir.Type { return ia.Typ }

func (ia *IntAttr) Repr() string {
	return fmt.Sprintf("%s : %s", ia.BigValue(), ia.Typ.Repr())
}

// BigValue returns the value of the literal as a big integer.
func (ia *IntAttr) BigValue() *big.Int {
	if ia.Wide != nil {
		return new(big.Int).Set(ia.Wide)
	}

	return big.NewInt(ia.Value)
}

// FloatAttr is a floating point literal.
type FloatAttr struct {
	Typ   ir.Type
	Value float64
}

func (fa *FloatAttr) Type() ir.Type { return fa.Typ }

func (fa *FloatAttr) Repr() string {
	return fmt.Sprintf("%g : %s", fa.Value, fa.Typ.Repr())
}

// DenseAttr is a literal array or vector listing every element.  Elements of
// nested arrays are themselves dense attributes.
type DenseAttr struct {
	Typ   ir.Type
	Elems []Constant
}

func (da *DenseAttr) Type() ir.Type { return da.Typ }

func (da *DenseAttr) Repr() string {
	elems := make([]string, len(da.Elems))
	for i, e := range da.Elems {
		if inner, ok := e.(*DenseAttr); ok {
			elems[i] = inner.body()
		} else {
			elems[i] = strings.SplitN(e.Repr(), " ", 2)[0]
		}
	}

	return fmt.Sprintf("dense<[%s]> : %s", strings.Join(elems, ", "), da.Typ.Repr())
}

func (da *DenseAttr) body() string {
	return strings.SplitN(strings.TrimPrefix(da.Repr(), "dense<"), "> : ", 2)[0]
}

// NewInt creates an integer literal of type typ.
func NewInt(typ ir.Type, v int64) *IntAttr {
	return &IntAttr{Typ: typ, Value: v}
}

// NewBigInt creates an integer literal of type typ from a value of any size.
// Values that fit 64 bits are stored as their bit pattern only.
func NewBigInt(typ ir.Type, v *big.Int) *IntAttr {
	if v.IsInt64() {
		return NewInt(typ, v.Int64())
	}

	if it, ok := typ.(*IntType); ok && it.Width <= 64 && v.IsUint64() {
		return NewInt(typ, int64(v.Uint64()))
	}

	low := new(big.Int).And(v, new(big.Int).SetUint64(^uint64(0)))
	return &IntAttr{Typ: typ, Value: int64(low.Uint64()), Wide: new(big.Int).Set(v)}
}

// NewFloat creates a float literal of type typ.
func NewFloat(typ ir.Type, v float64) *FloatAttr {
	return &FloatAttr{Typ: typ, Value: v}
}

// Splat creates a dense vector with every lane set to elem.
func Splat(typ *VectorType, elem Constant) *DenseAttr {
	elems := make([]Constant, typ.Len)
	for i := range elems {
		elems[i] = elem
	}

	return &DenseAttr{Typ: typ, Elems: elems}
}
