package lower

import (
	"reflect"

	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/rewrite"
)

// funcAttrsRebuilt lists the attributes of a source function that the target
// function constructor derives on its own.
var funcAttrsRebuilt = map[string]bool{
	cir.AttrSymName:      true,
	cir.AttrFunctionType: true,
	cir.AttrLinkage:      true,
	cir.AttrVisibility:   true,
	cir.AttrDSOLocal:     true,
}

// lowerFunc creates the target function, moves the body into it and converts
// the types of every block argument.
func (l *Lowerer) lowerFunc(op *ir.Operation, r *rewrite.Rewriter) error {
	ft, ok := op.Attr(cir.AttrFunctionType).(*cir.FuncType)
	if !ok {
		return invariant(op, "function without a function type")
	}

	llvmFt, err := l.tc.ConvertFunc(ft)
	if err != nil {
		return onOp(err, op)
	}

	attrs := make(map[string]interface{})
	for name, val := range op.Attrs {
		if funcAttrsRebuilt[name] {
			continue
		}

		// per-argument and per-result entries are positional
		switch name {
		case cir.AttrArgAttrs:
			if !hasArity(val, len(llvmFt.Params)) {
				continue
			}
		case cir.AttrResAttrs:
			if !hasArity(val, resultCount(llvmFt)) {
				continue
			}
		}

		attrs[name] = val
	}

	lk, _ := op.Attr(cir.AttrLinkage).(cir.Linkage)
	vis, _ := op.Attr(cir.AttrVisibility).(cir.Visibility)

	// target functions carry a single location
	if fl, ok := op.Loc.(ir.FusedLoc); ok && len(fl.Locs) > 0 {
		r.Loc = fl.Locs[0]
	}

	fn := r.BuildFunc(op.StringAttr(cir.AttrSymName), llvmFt, llvm.FuncOpts{
		Linkage:    convertLinkage(lk),
		Visibility: convertVisibility(vis),
		DSOLocal:   op.BoolAttr(cir.AttrDSOLocal),
		Attrs:      attrs,
	})

	if len(op.Regions) > 0 {
		r.InlineRegion(op.Regions[0], fn.Regions[0])

		if err := r.ConvertRegionTypes(fn.Regions[0], l.tc.Convert); err != nil {
			return onOp(err, op)
		}
	}

	r.EraseOp(op)
	return nil
}

// hasArity returns whether the attribute array val has n entries.
func hasArity(val interface{}, n int) bool {
	rv := reflect.ValueOf(val)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}

	return rv.Len() == n
}

func resultCount(ft *llvm.FuncType) int {
	if _, ok := ft.Ret.(*llvm.VoidType); ok {
		return 0
	}

	return 1
}

// -----------------------------------------------------------------------------

// lowerGlobal creates the target global.  Scalar initializers become literal
// values; composite ones are built by an initializer region returning the
// materialized value.
func (l *Lowerer) lowerGlobal(op *ir.Operation, r *rewrite.Rewriter) error {
	symType, ok := op.Attr(cir.AttrGlobalType).(ir.Type)
	if !ok {
		return invariant(op, "global without a symbol type")
	}

	llvmType, err := l.convertMem(op, symType)
	if err != nil {
		return err
	}

	lk, _ := op.Attr(cir.AttrLinkage).(cir.Linkage)
	vis, _ := op.Attr(cir.AttrVisibility).(cir.Visibility)
	align, _ := op.Attr(cir.AttrAlignment).(uint64)
	sym := op.StringAttr(cir.AttrSymName)

	opts := llvm.GlobalOpts{
		Name:       sym,
		Type:       llvmType,
		Constant:   op.BoolAttr(cir.AttrConstant),
		Linkage:    convertLinkage(lk),
		Visibility: convertVisibility(vis),
		DSOLocal:   op.BoolAttr(cir.AttrDSOLocal),
		Alignment:  align,
	}

	var (
		init    func(b *llvm.IRBuilder) *ir.Value
		initErr error
	)

	if op.HasAttr(cir.AttrInitialValue) {
		switch v := op.Attr(cir.AttrInitialValue).(type) {
		case *cir.IntAttr:
			opts.Value = llvm.NewInt(llvmType, v.Value)
		case *cir.BoolAttr:
			opts.Value = llvm.NewInt(llvmType, boolToInt(v.Value))
		case *cir.FPAttr:
			opts.Value = llvm.NewFloat(llvmType, v.Value)
		case *cir.ConstArrayAttr, *cir.ConstVectorAttr, *cir.PtrAttr, *cir.ComplexAttr, *cir.ZeroAttr:
			init = func(b *llvm.IRBuilder) *ir.Value {
				var val *ir.Value
				val, initErr = NewMaterializer(l.tc, b).MaterializeForMemory(v.(cir.Attr))
				return val
			}
		default:
			return unsupported(op, "unsupported initializer '%v'", op.Attr(cir.AttrInitialValue))
		}
	}

	global := r.BuildGlobal(opts, init)
	if initErr != nil {
		return onOp(initErr, op)
	}

	if op.BoolAttr(cir.AttrComdat) {
		global.SetAttr(llvm.AttrComdat, l.comdats.AddSelector(r.Module, sym, llvm.ComdatAny))
	}

	r.EraseOp(op)
	return nil
}

// lowerGetGlobal takes the address of a symbol.  Unused address computations
// are dropped rather than lowered.
func (l *Lowerer) lowerGetGlobal(op *ir.Operation, r *rewrite.Rewriter) error {
	if r.IsUnused(op, nil) {
		r.EraseOp(op)
		return nil
	}

	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	pt, ok := resTy.(*llvm.PointerType)
	if !ok {
		return invariant(op, "get_global must produce a pointer")
	}

	r.ReplaceOp(op, r.BuildAddressOf(op.StringAttr(cir.AttrName), pt))
	return nil
}

// -----------------------------------------------------------------------------

// lowerConst folds scalar and dense literals into a single target constant and
// falls back on the constant materializer for everything else.
func (l *Lowerer) lowerConst(op *ir.Operation, r *rewrite.Rewriter) error {
	attr, ok := op.Attr(cir.AttrValue).(cir.Attr)
	if !ok {
		return onOp(unhandledAttr(nil), op)
	}

	resTy, err := l.resultType(op)
	if err != nil {
		return err
	}

	materialize := func() error {
		val, err := NewMaterializer(l.tc, r.IRBuilder).Materialize(attr)
		if err != nil {
			return onOp(err, op)
		}

		r.ReplaceOp(op, val)
		return nil
	}

	switch t := op.Result(0).Type().(type) {
	case *cir.BoolType:
		ba, ok := attr.(*cir.BoolAttr)
		if !ok {
			return materialize()
		}

		r.ReplaceOp(op, r.BuildIntConst(resTy, boolToInt(ba.Value)))
	case *cir.IntType:
		ia, ok := attr.(*cir.IntAttr)
		if !ok {
			return materialize()
		}

		r.ReplaceOp(op, r.BuildIntConst(resTy, ia.Value))
	case *cir.FloatType, *cir.LongDoubleType:
		fa, ok := attr.(*cir.FPAttr)
		if !ok {
			return materialize()
		}

		r.ReplaceOp(op, r.BuildFloatConst(resTy, fa.Value))
	case *cir.PointerType:
		if pa, ok := attr.(*cir.PtrAttr); ok && pa.IsNull() {
			r.ReplaceOp(op, r.BuildZero(resTy))
			return nil
		}

		return materialize()
	case *cir.ArrayType:
		caa, isArray := attr.(*cir.ConstArrayAttr)
		switch {
		case !isArray:
			switch attr.(type) {
			case *cir.ZeroAttr, *cir.UndefAttr:
				return materialize()
			}

			return unsupported(op, "array does not have a constant initializer")
		case hasTrailingZeros(caa):
			return materialize()
		}

		if dense, ok := denseArray(resTy.(*llvm.ArrayType), caa); ok {
			r.ReplaceOp(op, r.BuildConstant(dense))
			return nil
		}

		return materialize()
	case *cir.VectorType:
		return materialize()
	case *cir.ComplexType:
		st := resTy.(*llvm.StructType)

		switch v := attr.(type) {
		case *cir.ZeroAttr:
			r.ReplaceOp(op, r.BuildZero(st))
		case *cir.ComplexAttr:
			re, err := scalarConstant(st.Fields[0], v.Real)
			if err != nil {
				return onOp(err, op)
			}

			im, err := scalarConstant(st.Fields[1], v.Imag)
			if err != nil {
				return onOp(err, op)
			}

			r.ReplaceOp(op, r.BuildConstant(&llvm.DenseAttr{Typ: st, Elems: []llvm.Constant{re, im}}))
		default:
			return materialize()
		}
	default:
		return unsupported(op, "unsupported constant type %s", t.Repr())
	}

	return nil
}

// hasTrailingZeros returns whether caa or any array nested in it declares a
// trailing zero run.
func hasTrailingZeros(caa *cir.ConstArrayAttr) bool {
	if caa.HasTrailingZeros() {
		return true
	}

	for _, e := range caa.Elts {
		if inner, ok := e.(*cir.ConstArrayAttr); ok && hasTrailingZeros(inner) {
			return true
		}
	}

	return false
}

// denseArray builds the dense literal of an array whose leaves are all int or
// float literals.  It reports false if some element cannot be folded.
func denseArray(at *llvm.ArrayType, caa *cir.ConstArrayAttr) (*llvm.DenseAttr, bool) {
	var elems []llvm.Constant

	if caa.IsString {
		for i := 0; i < len(caa.Str); i++ {
			elems = append(elems, llvm.NewInt(at.Elem, int64(caa.Str[i])))
		}

		return &llvm.DenseAttr{Typ: at, Elems: elems}, true
	}

	for _, e := range caa.Elts {
		if inner, ok := e.(*cir.ConstArrayAttr); ok {
			innerType, ok := at.Elem.(*llvm.ArrayType)
			if !ok {
				return nil, false
			}

			dense, ok := denseArray(innerType, inner)
			if !ok {
				return nil, false
			}

			elems = append(elems, dense)
			continue
		}

		c, err := scalarConstant(at.Elem, e)
		if err != nil {
			return nil, false
		}

		elems = append(elems, c)
	}

	return &llvm.DenseAttr{Typ: at, Elems: elems}, true
}

// -----------------------------------------------------------------------------

// lowerCall emits a direct or indirect call annotated with the memory effects
// derived from the side effect class of the source call.
func (l *Lowerer) lowerCall(op *ir.Operation, r *rewrite.Rewriter) error {
	var (
		call *ir.Operation
		args = r.LookupAll(op.Operands)
	)

	if callee := op.StringAttr(cir.AttrCallee); callee != "" {
		ft, err := l.calleeType(op, r.Module, callee)
		if err != nil {
			return err
		}

		call = r.BuildCall(callee, ft, args)
	} else {
		if len(op.Operands) == 0 {
			return invariant(op, "indirect call without a callee operand")
		}

		pt, err := pointerType(op, op.Operands[0])
		if err != nil {
			return err
		}

		cft, ok := pt.Pointee.(*cir.FuncType)
		if !ok {
			return invariant(op, "indirect call through %s", pt.Repr())
		}

		ft, err := l.tc.ConvertFunc(cft)
		if err != nil {
			return onOp(err, op)
		}

		call = r.BuildIndirectCall(ft, args[0], args[1:])
	}

	effect, _ := op.Attr(cir.AttrSideEffect).(cir.SideEffect)
	memory, noUnwind, willReturn := callEffects(effect, op.BoolAttr(cir.AttrNoThrow))

	if memory != nil {
		call.SetAttr(llvm.AttrMemory, memory)
	}

	if noUnwind {
		call.SetAttr(llvm.AttrNoUnwind, true)
	}

	if willReturn {
		call.SetAttr(llvm.AttrWillReturn, true)
	}

	r.ReplaceOpWith(op, call)
	return nil
}

// calleeType resolves the target type of the function named callee, whether
// or not it has been lowered already.
func (l *Lowerer) calleeType(op *ir.Operation, mod *ir.Module, callee string) (*llvm.FuncType, error) {
	fn := mod.Lookup(callee)
	if fn == nil {
		return nil, invariant(op, "did not find function %s for call", callee)
	}

	switch ft := fn.Attr(cir.AttrFunctionType).(type) {
	case *llvm.FuncType:
		return ft, nil
	case *cir.FuncType:
		lft, err := l.tc.ConvertFunc(ft)
		return lft, onOp(err, op)
	}

	return nil, invariant(op, "symbol %s is not a function", callee)
}

// callEffects maps a side effect class onto call attributes.  Calls with
// arbitrary side effects carry no memory annotation.
func callEffects(effect cir.SideEffect, nothrow bool) (memory *llvm.MemoryEffects, noUnwind, willReturn bool) {
	switch effect {
	case cir.SideEffectPure:
		return &llvm.MemoryEffects{Other: llvm.Ref, ArgMem: llvm.Ref, InaccessibleMem: llvm.Ref}, true, true
	case cir.SideEffectConst:
		return &llvm.MemoryEffects{}, true, true
	default: // cir.SideEffectAll
		return nil, nothrow, false
	}
}
