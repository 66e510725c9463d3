package generate

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"tlog.app/go/errors"

	"cirlower/ir"
	"cirlower/llvm"
)

// convType converts a target dialect type to its LLVM type.  Opaque pointers
// are exported as `i8*` in their address space and are cast to a typed
// pointer wherever an instruction needs one.
func (g *Generator) convType(typ ir.Type) (types.Type, error) {
	switch v := typ.(type) {
	case *llvm.VoidType:
		return types.Void, nil
	case *llvm.IntType:
		return types.NewInt(uint64(v.Width)), nil
	case *llvm.FloatType:
		switch v.Kind {
		case llvm.HalfKind:
			return types.Half, nil
		case llvm.FloatKindSingle:
			return types.Float, nil
		case llvm.DoubleKind:
			return types.Double, nil
		case llvm.X86FP80Kind:
			return types.X86_FP80, nil
		case llvm.FP128Kind:
			return types.FP128, nil
		}
	case *llvm.PointerType:
		return opaquePtr(v.AddrSpace), nil
	case *llvm.ArrayType:
		elem, err := g.convType(v.Elem)
		if err != nil {
			return nil, err
		}

		return types.NewArray(v.Len, elem), nil
	case *llvm.VectorType:
		elem, err := g.convType(v.Elem)
		if err != nil {
			return nil, err
		}

		vt := types.NewVector(v.Len, elem)
		vt.Scalable = v.Scalable
		return vt, nil
	case *llvm.StructType:
		return g.convStructType(v)
	case *llvm.FuncType:
		return g.convFuncType(v)
	}

	return nil, errors.New("type %s cannot be exported", typ.Repr())
}

// convStructType converts a struct.  Identified structs become named type
// definitions of the module, created once.
func (g *Generator) convStructType(st *llvm.StructType) (types.Type, error) {
	if st.Name != "" {
		if t, ok := g.structs[st.Name]; ok {
			return t, nil
		}
	}

	fields := make([]types.Type, len(st.Fields))
	for i, f := range st.Fields {
		t, err := g.convType(f)
		if err != nil {
			return nil, err
		}

		fields[i] = t
	}

	t := types.NewStruct(fields...)
	t.Packed = st.Packed

	if st.Name != "" {
		g.mod.NewTypeDef(st.Name, t)
		g.structs[st.Name] = t
	}

	return t, nil
}

func (g *Generator) convFuncType(ft *llvm.FuncType) (*types.FuncType, error) {
	ret, err := g.convType(ft.Ret)
	if err != nil {
		return nil, err
	}

	params := make([]types.Type, len(ft.Params))
	for i, p := range ft.Params {
		t, err := g.convType(p)
		if err != nil {
			return nil, err
		}

		params[i] = t
	}

	sig := types.NewFunc(ret, params...)
	sig.Variadic = ft.Variadic
	return sig, nil
}

// -----------------------------------------------------------------------------

// opaquePtr returns the LLVM type standing for an opaque pointer.
func opaquePtr(addrSpace uint) *types.PointerType {
	pt := types.NewPointer(types.I8)
	pt.AddrSpace = types.AddrSpace(addrSpace)
	return pt
}

// typedPtr returns a pointer to elem in the address space of p.
func typedPtr(elem types.Type, p types.Type) *types.PointerType {
	pt := types.NewPointer(elem)
	if from, ok := p.(*types.PointerType); ok {
		pt.AddrSpace = from.AddrSpace
	}

	return pt
}

// zeroOf returns the zero constant of t.
func zeroOf(t types.Type) constant.Constant {
	switch v := t.(type) {
	case *types.IntType:
		return constant.NewInt(v, 0)
	case *types.FloatType:
		return constant.NewFloat(v, 0)
	case *types.PointerType:
		return constant.NewNull(v)
	}

	return constant.NewZeroInitializer(t)
}

// -----------------------------------------------------------------------------

// convLinkage maps a linkage onto LLVM.  External linkage is implied for
// definitions and spelled out for declarations.
func convLinkage(lk llvm.Linkage, isDef bool) enum.Linkage {
	switch lk {
	case llvm.AvailableExternallyLinkage:
		return enum.LinkageAvailableExternally
	case llvm.LinkOnceAnyLinkage:
		return enum.LinkageLinkOnce
	case llvm.LinkOnceODRLinkage:
		return enum.LinkageLinkOnceODR
	case llvm.WeakAnyLinkage:
		return enum.LinkageWeak
	case llvm.WeakODRLinkage:
		return enum.LinkageWeakODR
	case llvm.InternalLinkage:
		return enum.LinkageInternal
	case llvm.PrivateLinkage:
		return enum.LinkagePrivate
	case llvm.ExternalWeakLinkage:
		return enum.LinkageExternWeak
	case llvm.CommonLinkage:
		return enum.LinkageCommon
	}

	if isDef {
		return enum.LinkageNone
	}

	return enum.LinkageExternal
}

func convVisibility(vis llvm.Visibility) enum.Visibility {
	switch vis {
	case llvm.HiddenVisibility:
		return enum.VisibilityHidden
	case llvm.ProtectedVisibility:
		return enum.VisibilityProtected
	default:
		return enum.VisibilityNone
	}
}

func convSelection(sel llvm.ComdatSelection) enum.SelectionKind {
	switch sel {
	case llvm.ComdatExactMatch:
		return enum.SelectionKindExactMatch
	case llvm.ComdatLargest:
		return enum.SelectionKindLargest
	case llvm.ComdatNoDeduplicate:
		return enum.SelectionKindNoDuplicates
	case llvm.ComdatSameSize:
		return enum.SelectionKindSameSize
	default:
		return enum.SelectionKindAny
	}
}

var intPreds = map[llvm.IntPredicate]enum.IPred{
	llvm.IntEQ:  enum.IPredEQ,
	llvm.IntNE:  enum.IPredNE,
	llvm.IntUGT: enum.IPredUGT,
	llvm.IntUGE: enum.IPredUGE,
	llvm.IntULT: enum.IPredULT,
	llvm.IntULE: enum.IPredULE,
	llvm.IntSGT: enum.IPredSGT,
	llvm.IntSGE: enum.IPredSGE,
	llvm.IntSLT: enum.IPredSLT,
	llvm.IntSLE: enum.IPredSLE,
}

var realPreds = map[llvm.RealPredicate]enum.FPred{
	llvm.RealFalse: enum.FPredFalse,
	llvm.RealOEQ:   enum.FPredOEQ,
	llvm.RealOGT:   enum.FPredOGT,
	llvm.RealOGE:   enum.FPredOGE,
	llvm.RealOLT:   enum.FPredOLT,
	llvm.RealOLE:   enum.FPredOLE,
	llvm.RealONE:   enum.FPredONE,
	llvm.RealORD:   enum.FPredORD,
	llvm.RealUNO:   enum.FPredUNO,
	llvm.RealUEQ:   enum.FPredUEQ,
	llvm.RealUGT:   enum.FPredUGT,
	llvm.RealUGE:   enum.FPredUGE,
	llvm.RealULT:   enum.FPredULT,
	llvm.RealULE:   enum.FPredULE,
	llvm.RealUNE:   enum.FPredUNE,
	llvm.RealTrue:  enum.FPredTrue,
}
