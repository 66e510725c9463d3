package lower

import (
	"sync"

	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/report"
)

// TypeConverter maps source types onto target types.  Conversion is pure
// apart from the cache of converted records, which makes recursive and
// repeated named records map onto the same identified target struct.
type TypeConverter struct {
	dl *llvm.DataLayout

	m       sync.Mutex
	records map[*cir.RecordType]*llvm.StructType
}

// NewTypeConverter creates a type converter for the given data layout.
func NewTypeConverter(dl *llvm.DataLayout) *TypeConverter {
	return &TypeConverter{
		dl:      dl,
		records: make(map[*cir.RecordType]*llvm.StructType),
	}
}

// Layout returns the data layout of the converter.
func (tc *TypeConverter) Layout() *llvm.DataLayout {
	return tc.dl
}

// Convert returns the value representation of t.
func (tc *TypeConverter) Convert(t ir.Type) (ir.Type, error) {
	switch v := t.(type) {
	case *cir.VoidType:
		return llvm.Void, nil
	case *cir.BoolType:
		return llvm.I1, nil
	case *cir.IntType:
		if v.Width == 0 {
			break
		}

		return llvm.Int(v.Width), nil
	case *cir.FloatType:
		return convertFloat(v), nil
	case *cir.LongDoubleType:
		if v.Underlying == nil {
			break
		}

		return tc.Convert(v.Underlying)
	case *cir.PointerType:
		// pointee information is not kept by the target
		return &llvm.PointerType{AddrSpace: v.AddrSpace}, nil
	case *cir.ArrayType:
		elem, err := tc.ConvertForMemory(v.Elem)
		if err != nil {
			return nil, err
		}

		return &llvm.ArrayType{Elem: elem, Len: v.Size}, nil
	case *cir.VectorType:
		elem, err := tc.Convert(v.Elem)
		if err != nil {
			return nil, err
		}

		return &llvm.VectorType{Elem: elem, Len: v.Size, Scalable: v.Scalable}, nil
	case *cir.ComplexType:
		elem, err := tc.Convert(v.Elem)
		if err != nil {
			return nil, err
		}

		return &llvm.StructType{Fields: []ir.Type{elem, elem}}, nil
	case *cir.FuncType:
		return tc.ConvertFunc(v)
	case *cir.RecordType:
		return tc.convertRecord(v)
	default:
		// already converted types are passed through unchanged
		if llvm.IsType(t) {
			return t, nil
		}
	}

	return nil, unsupportedType(t)
}

// ConvertForMemory returns the memory representation of t: booleans occupy a
// full memory cell rather than a single bit.
func (tc *TypeConverter) ConvertForMemory(t ir.Type) (ir.Type, error) {
	if _, ok := t.(*cir.BoolType); ok {
		return llvm.Int(tc.dl.BoolWidth), nil
	}

	return tc.Convert(t)
}

// ConvertFunc converts a function type.  It fails if any parameter or the
// return type has no mapping.
func (tc *TypeConverter) ConvertFunc(ft *cir.FuncType) (*llvm.FuncType, error) {
	ret, err := tc.Convert(ft.ReturnType())
	if err != nil {
		return nil, err
	}

	params := make([]ir.Type, len(ft.Params))
	for i, p := range ft.Params {
		if params[i], err = tc.Convert(p); err != nil {
			return nil, err
		}
	}

	return &llvm.FuncType{Ret: ret, Params: params, Variadic: ft.Variadic}, nil
}

// ConvertAll converts a list of types.
func (tc *TypeConverter) ConvertAll(ts []ir.Type) ([]ir.Type, error) {
	converted := make([]ir.Type, len(ts))
	for i, t := range ts {
		ct, err := tc.Convert(t)
		if err != nil {
			return nil, err
		}

		converted[i] = ct
	}

	return converted, nil
}

// -----------------------------------------------------------------------------

// convertRecord converts a record.  Named records become identified structs
// registered in the cache before their members are converted, and are evicted
// again if a member fails to convert.
func (tc *TypeConverter) convertRecord(rt *cir.RecordType) (ir.Type, error) {
	tc.m.Lock()
	if st, ok := tc.records[rt]; ok {
		tc.m.Unlock()
		return st, nil
	}

	st := &llvm.StructType{Packed: rt.Packed}
	if rt.Name != "" {
		st.Name = rt.PrefixedName()
		tc.records[rt] = st
	}
	tc.m.Unlock()

	members, err := tc.recordMembers(rt)
	if err != nil {
		if rt.Name != "" {
			tc.m.Lock()
			delete(tc.records, rt)
			tc.m.Unlock()
		}

		return nil, err
	}

	st.Fields = members
	return st, nil
}

func (tc *TypeConverter) recordMembers(rt *cir.RecordType) ([]ir.Type, error) {
	if len(rt.Members) == 0 {
		return nil, nil
	}

	if !rt.IsUnion() {
		members := make([]ir.Type, len(rt.Members))
		for i, m := range rt.Members {
			mt, err := tc.ConvertForMemory(m)
			if err != nil {
				return nil, err
			}

			members[i] = mt
		}

		return members, nil
	}

	dominant, err := tc.dominantMember(rt)
	if err != nil {
		return nil, err
	}

	members := []ir.Type{dominant}
	if rt.Padded {
		pad, err := tc.ConvertForMemory(rt.Members[len(rt.Members)-1])
		if err != nil {
			return nil, err
		}

		members = append(members, pad)
	}

	return members, nil
}

// dominantMember returns the memory type of the union member that represents
// the union: the largest one, then the most aligned one, then the first one
// declared.  A trailing padding member never dominates.
func (tc *TypeConverter) dominantMember(rt *cir.RecordType) (ir.Type, error) {
	candidates := rt.Members
	if rt.Padded && len(candidates) > 1 {
		candidates = candidates[:len(candidates)-1]
	}

	var (
		best                ir.Type
		bestSize, bestAlign uint64
	)

	for _, m := range candidates {
		mt, err := tc.ConvertForMemory(m)
		if err != nil {
			return nil, err
		}

		size, align := tc.dl.TypeSize(mt), tc.dl.ABIAlign(mt)
		if best == nil || size > bestSize || (size == bestSize && align > bestAlign) {
			best, bestSize, bestAlign = mt, size, align
		}
	}

	return best, nil
}

func convertFloat(ft *cir.FloatType) *llvm.FloatType {
	switch ft.Kind {
	case cir.FloatHalf:
		return &llvm.FloatType{Kind: llvm.HalfKind}
	case cir.FloatBF16:
		return &llvm.FloatType{Kind: llvm.BFloatKind}
	case cir.FloatSingle:
		return llvm.F32
	case cir.FloatDouble:
		return llvm.F64
	case cir.FloatFP80:
		return &llvm.FloatType{Kind: llvm.X86FP80Kind}
	default: // cir.FloatFP128
		return &llvm.FloatType{Kind: llvm.FP128Kind}
	}
}

// unsupportedType is the diagnostic of a type without mapping.  Rules attach
// the operation they were lowering with onOp.
func unsupportedType(t ir.Type) error {
	name := "<nil>"
	if t != nil {
		name = t.Repr()
	}

	return report.Raise(report.UnsupportedType, nil, "type %s has no target mapping", name)
}

// onOp attaches op to a diagnostic raised without one.
func onOp(err error, op *ir.Operation) error {
	if d, ok := err.(*report.Diagnostic); ok && d.Op == nil {
		d.Op = op
	}

	return err
}
