package lower

import (
	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/report"
	"cirlower/rewrite"
)

// convert converts t, attributing a failure to op.
func (l *Lowerer) convert(op *ir.Operation, t ir.Type) (ir.Type, error) {
	ct, err := l.tc.Convert(t)
	return ct, onOp(err, op)
}

// convertMem converts t to its memory representation, attributing a failure to
// op.
func (l *Lowerer) convertMem(op *ir.Operation, t ir.Type) (ir.Type, error) {
	ct, err := l.tc.ConvertForMemory(t)
	return ct, onOp(err, op)
}

// resultType converts the type of the single result of op.
func (l *Lowerer) resultType(op *ir.Operation) (ir.Type, error) {
	return l.convert(op, op.Result(0).Type())
}

// alignment returns the explicit alignment of op or the ABI alignment of t.
func (l *Lowerer) alignment(op *ir.Operation, t ir.Type) uint64 {
	if align, ok := op.Attr(cir.AttrAlignment).(uint64); ok && align != 0 {
		return align
	}

	return l.dl.ABIAlign(t)
}

// -----------------------------------------------------------------------------

// intCast converts the integer (or integer vector) v to dst.  Widening
// sign-extends when signed is set and zero-extends otherwise; narrowing
// truncates; equal widths leave v unchanged.
func intCast(r *rewrite.Rewriter, v *ir.Value, dst ir.Type, signed bool) *ir.Value {
	srcWidth := llvm.BitWidth(llvm.ElementType(v.Type()))
	dstWidth := llvm.BitWidth(llvm.ElementType(dst))

	switch {
	case srcWidth == dstWidth:
		return v
	case srcWidth < dstWidth && signed:
		return r.BuildSExt(v, dst)
	case srcWidth < dstWidth:
		return r.BuildZExt(v, dst)
	default:
		return r.BuildTrunc(v, dst)
	}
}

// constAttr returns the literal of the constant producing v in the source
// module, or nil if v is not a source constant.  Producers that were already
// rewritten keep their attributes, so the literal stays readable.
func constAttr(v *ir.Value) cir.Attr {
	def := v.DefiningOp()
	if def == nil || def.Name != cir.OpConst {
		return nil
	}

	attr, _ := def.Attr(cir.AttrValue).(cir.Attr)
	return attr
}

// isBoolConst returns whether v is the source boolean literal want.
func isBoolConst(v *ir.Value, want bool) bool {
	ba, ok := constAttr(v).(*cir.BoolAttr)
	return ok && ba.Value == want
}

// -----------------------------------------------------------------------------

func unsupported(op *ir.Operation, msg string, args ...interface{}) error {
	return report.Raise(report.UnsupportedOperation, op, msg, args...)
}

func invariant(op *ir.Operation, msg string, args ...interface{}) error {
	return report.Raise(report.InvariantViolation, op, msg, args...)
}

// kindAttr reads the enumerated `kind` attribute of op.
func kindAttr[K any](op *ir.Operation) (K, error) {
	k, ok := op.Attr(cir.AttrKind).(K)
	if !ok {
		return k, invariant(op, "missing or malformed kind attribute")
	}

	return k, nil
}

// pointerType returns the source pointer type of v.
func pointerType(op *ir.Operation, v *ir.Value) (*cir.PointerType, error) {
	pt, ok := v.Type().(*cir.PointerType)
	if !ok {
		return nil, invariant(op, "expected a pointer operand, got %s", v.Type().Repr())
	}

	return pt, nil
}

// -----------------------------------------------------------------------------

func convertLinkage(lk cir.Linkage) llvm.Linkage {
	switch lk {
	case cir.LinkageAvailableExternally:
		return llvm.AvailableExternallyLinkage
	case cir.LinkageLinkOnceAny:
		return llvm.LinkOnceAnyLinkage
	case cir.LinkageLinkOnceODR:
		return llvm.LinkOnceODRLinkage
	case cir.LinkageWeakAny:
		return llvm.WeakAnyLinkage
	case cir.LinkageWeakODR:
		return llvm.WeakODRLinkage
	case cir.LinkageInternal:
		return llvm.InternalLinkage
	case cir.LinkagePrivate:
		return llvm.PrivateLinkage
	case cir.LinkageExternWeak:
		return llvm.ExternalWeakLinkage
	case cir.LinkageCommon:
		return llvm.CommonLinkage
	default: // cir.LinkageExternal
		return llvm.ExternalLinkage
	}
}

func convertVisibility(vis cir.Visibility) llvm.Visibility {
	switch vis {
	case cir.VisibilityHidden:
		return llvm.HiddenVisibility
	case cir.VisibilityProtected:
		return llvm.ProtectedVisibility
	default: // cir.VisibilityDefault
		return llvm.DefaultVisibility
	}
}
