package lower

import (
	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/report"
)

// Materializer emits the target instructions constructing a constant
// attribute at the insertion point of its builder.
type Materializer struct {
	tc *TypeConverter
	b  *llvm.IRBuilder
}

// NewMaterializer creates a materializer emitting through b.
func NewMaterializer(tc *TypeConverter, b *llvm.IRBuilder) *Materializer {
	return &Materializer{tc: tc, b: b}
}

// Materialize returns a value holding attr in its value representation.
func (mz *Materializer) Materialize(attr cir.Attr) (*ir.Value, error) {
	return mz.visit(attr, false)
}

// MaterializeForMemory returns a value holding attr in its memory
// representation: boolean literals become memory-sized integers.
func (mz *Materializer) MaterializeForMemory(attr cir.Attr) (*ir.Value, error) {
	return mz.visit(attr, true)
}

func (mz *Materializer) convert(t ir.Type, memory bool) (ir.Type, error) {
	if memory {
		return mz.tc.ConvertForMemory(t)
	}

	return mz.tc.Convert(t)
}

func (mz *Materializer) visit(attr cir.Attr, memory bool) (*ir.Value, error) {
	switch v := attr.(type) {
	case *cir.IntAttr:
		t, err := mz.convert(v.Typ, memory)
		if err != nil {
			return nil, err
		}

		return mz.b.BuildIntConst(t, v.Value), nil
	case *cir.BoolAttr:
		t, err := mz.convert(cir.Bool, memory)
		if err != nil {
			return nil, err
		}

		return mz.b.BuildIntConst(t, boolToInt(v.Value)), nil
	case *cir.FPAttr:
		t, err := mz.convert(v.Typ, memory)
		if err != nil {
			return nil, err
		}

		return mz.b.BuildFloatConst(t, v.Value), nil
	case *cir.PtrAttr:
		return mz.visitPtr(v)
	case *cir.ComplexAttr:
		return mz.visitComplex(v)
	case *cir.ConstArrayAttr:
		return mz.visitArray(v)
	case *cir.ConstVectorAttr:
		return mz.visitVector(v)
	case *cir.ZeroAttr:
		t, err := mz.convert(v.Typ, memory)
		if err != nil {
			return nil, err
		}

		return mz.b.BuildZero(t), nil
	case *cir.UndefAttr:
		t, err := mz.convert(v.Typ, memory)
		if err != nil {
			return nil, err
		}

		return mz.b.BuildUndef(t), nil
	case *cir.PoisonAttr:
		t, err := mz.convert(v.Typ, memory)
		if err != nil {
			return nil, err
		}

		return mz.b.BuildPoison(t), nil
	}

	return nil, unhandledAttr(attr)
}

// visitPtr special cases null pointers to a zero value.  Other addresses are
// built as a pointer-sized integer reinterpreted as a pointer.
func (mz *Materializer) visitPtr(pa *cir.PtrAttr) (*ir.Value, error) {
	t, err := mz.tc.Convert(pa.Typ)
	if err != nil {
		return nil, err
	}

	if pa.IsNull() {
		return mz.b.BuildZero(t), nil
	}

	addr := mz.b.BuildIntConst(llvm.Int(mz.tc.dl.PointerWidth), pa.Value)
	return mz.b.BuildCast(llvm.OpIntToPtr, addr, t), nil
}

func (mz *Materializer) visitComplex(ca *cir.ComplexAttr) (*ir.Value, error) {
	t, err := mz.tc.Convert(ca.Typ)
	if err != nil {
		return nil, err
	}

	re, err := mz.visit(ca.Real, false)
	if err != nil {
		return nil, err
	}

	im, err := mz.visit(ca.Imag, false)
	if err != nil {
		return nil, err
	}

	result := mz.b.BuildUndef(t)
	result = mz.b.BuildInsertValue(result, re, 0)
	return mz.b.BuildInsertValue(result, im, 1), nil
}

// visitArray seeds the aggregate with zeros when the literal declares a
// trailing zero run or is a string, so that only explicit elements need to be
// inserted.
func (mz *Materializer) visitArray(caa *cir.ConstArrayAttr) (*ir.Value, error) {
	t, err := mz.tc.Convert(caa.Typ)
	if err != nil {
		return nil, err
	}

	var result *ir.Value
	if caa.HasTrailingZeros() || caa.IsString {
		result = mz.b.BuildZero(t)
	} else {
		result = mz.b.BuildUndef(t)
	}

	if caa.IsString {
		elemType := t.(*llvm.ArrayType).Elem
		for i := 0; i < len(caa.Str); i++ {
			c := mz.b.BuildIntConst(elemType, int64(caa.Str[i]))
			result = mz.b.BuildInsertValue(result, c, int64(i))
		}

		return result, nil
	}

	for i, elt := range caa.Elts {
		// arrays hold their elements in memory representation
		init, err := mz.visit(elt, true)
		if err != nil {
			return nil, err
		}

		result = mz.b.BuildInsertValue(result, init, int64(i))
	}

	return result, nil
}

// visitVector emits a single dense constant.
func (mz *Materializer) visitVector(cva *cir.ConstVectorAttr) (*ir.Value, error) {
	t, err := mz.tc.Convert(cva.Typ)
	if err != nil {
		return nil, err
	}

	dense, err := denseVector(t.(*llvm.VectorType), cva.Elts)
	if err != nil {
		return nil, err
	}

	return mz.b.BuildConstant(dense), nil
}

// -----------------------------------------------------------------------------

// denseVector builds the dense literal of a vector whose elements are int or
// float literals.
func denseVector(vt *llvm.VectorType, elts []cir.Attr) (*llvm.DenseAttr, error) {
	elems := make([]llvm.Constant, len(elts))
	for i, e := range elts {
		c, err := scalarConstant(vt.Elem, e)
		if err != nil {
			return nil, err
		}

		elems[i] = c
	}

	return &llvm.DenseAttr{Typ: vt, Elems: elems}, nil
}

// scalarConstant converts a scalar literal into a target literal of type t.
func scalarConstant(t ir.Type, attr cir.Attr) (llvm.Constant, error) {
	switch v := attr.(type) {
	case *cir.IntAttr:
		return llvm.NewInt(t, v.Value), nil
	case *cir.BoolAttr:
		return llvm.NewInt(t, boolToInt(v.Value)), nil
	case *cir.FPAttr:
		return llvm.NewFloat(t, v.Value), nil
	}

	return nil, report.Raise(report.UnsupportedConstant, nil,
		"constant element %s is neither an integer nor a float", attr.Repr())
}

func unhandledAttr(attr cir.Attr) error {
	if attr == nil {
		return report.Raise(report.UnsupportedConstant, nil, "missing constant attribute")
	}

	return report.Raise(report.UnsupportedConstant, nil, "unhandled attribute type %s", attr.Repr())
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}
