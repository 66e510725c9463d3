package lower

import (
	"context"

	"tlog.app/go/tlog"

	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/rewrite"
)

// Options configures a run of the lowering pass.
type Options struct {
	// Layout is the data layout of the target.  The default layout is used
	// when it is nil.
	Layout *llvm.DataLayout

	// DefaultTriple is the target triple set on modules that do not carry
	// one.  It is ignored when empty.
	DefaultTriple string
}

// Result is the outcome of a successful run.
type Result struct {
	// Module is the lowered module.
	Module *ir.Module

	// Stats are the statistics of the conversion.
	Stats *rewrite.Stats
}

// Run lowers every source operation of mod to the target dialect.  The module
// is rewritten in place and returned in the Result.
//
// On failure Run returns the first diagnostic and a nil Result.  mod has then
// been partially rewritten: module attributes are projected and some operations
// may already be lowered.  Callers must discard it rather than retry or export
// it.
func Run(ctx context.Context, mod *ir.Module, opts Options) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower: module", "module", mod.Name)
	defer tr.Finish("err", &err)

	if tr.If("dump_before") {
		tr.Printw("module before lowering", "ir", mod.Repr())
	}

	dl := opts.Layout
	if dl == nil {
		dl = llvm.DefaultLayout()
	}

	ProjectModuleAttrs(mod)
	if _, ok := mod.Attrs[llvm.ModAttrTargetTriple]; !ok && opts.DefaultTriple != "" {
		mod.Attrs[llvm.ModAttrTargetTriple] = opts.DefaultTriple
	}

	l := NewLowerer(dl)

	extra := CollectModuleUnreachable(mod)
	tr.V("reachability").Printw("collected unreachable operations", "count", len(extra))

	stats, err := rewrite.ApplyPartialConversion(ctx, mod, extra, NewTarget(), l.Patterns())
	if err != nil {
		return nil, err
	}

	if tr.If("dump_after") {
		tr.Printw("module after lowering", "ir", mod.Repr())
	}

	return &Result{Module: mod, Stats: stats}, nil
}

// NewTarget returns the legality predicate of the pass: the target dialect is
// legal and the source dialect is not.  Only target types may remain.
func NewTarget() *rewrite.ConversionTarget {
	ct := rewrite.NewConversionTarget()
	ct.AddLegalDialect("llvm")
	ct.AddIllegalDialect("cir", "builtin", "func")
	ct.SetLegalType(llvm.IsType)

	return ct
}
