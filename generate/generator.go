package generate

import (
	"context"
	"io"

	lir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"cirlower/ir"
	"cirlower/llvm"
)

// Generator converts a module of the target dialect into an LLVM module.
type Generator struct {
	// mod is the LLVM module being generated.
	mod *lir.Module

	// funcs and globals store the LLVM definitions of the symbols of src.
	funcs   map[string]*lir.Func
	globals map[string]*lir.Global

	// structs caches the LLVM types of identified structs by name.
	structs map[string]*types.StructType

	// intrinsics caches intrinsic declarations by mangled name.
	intrinsics map[string]*lir.Func

	// comdats stores the COMDAT definitions by selector name.
	comdats map[string]*lir.ComdatDef
}

// Generate exports mod.  Every symbol is declared before any body is
// generated so that definitions may refer to each other in any order.
func Generate(ctx context.Context, mod *ir.Module) (lm *lir.Module, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "generate: module", "module", mod.Name)
	defer tr.Finish("err", &err)

	g := &Generator{
		mod:        lir.NewModule(),
		funcs:      make(map[string]*lir.Func),
		globals:    make(map[string]*lir.Global),
		structs:    make(map[string]*types.StructType),
		intrinsics: make(map[string]*lir.Func),
		comdats:    make(map[string]*lir.ComdatDef),
	}

	if triple, ok := mod.Attrs[llvm.ModAttrTargetTriple].(string); ok {
		g.mod.TargetTriple = triple
	}

	var funcs, globals []*ir.Operation
	for _, op := range mod.Body.Ops() {
		switch op.Name {
		case llvm.OpComdat:
			g.genComdat(op)
		case llvm.OpFunc:
			if err := g.declareFunc(op); err != nil {
				return nil, err
			}

			funcs = append(funcs, op)
		case llvm.OpGlobal:
			if err := g.declareGlobal(op); err != nil {
				return nil, err
			}

			globals = append(globals, op)
		default:
			return nil, errors.New("unexpected top level operation %s", op.Name)
		}
	}

	for _, op := range globals {
		if err := g.genGlobalInit(op); err != nil {
			return nil, errors.Wrap(err, "global %s", op.StringAttr(llvm.AttrSymName))
		}
	}

	for _, op := range funcs {
		if err := g.genFuncBody(op); err != nil {
			return nil, errors.Wrap(err, "function %s", op.StringAttr(llvm.AttrSymName))
		}
	}

	tr.Printw("generated module", "funcs", len(funcs), "globals", len(globals), "intrinsics", len(g.intrinsics))

	return g.mod, nil
}

// Emit exports mod and writes it as LLVM assembly to w.
func Emit(ctx context.Context, mod *ir.Module, w io.Writer) error {
	lm, err := Generate(ctx, mod)
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, lm.String())
	return err
}

// -----------------------------------------------------------------------------

// genComdat turns the selectors of the COMDAT container into module level
// COMDAT definitions.
func (g *Generator) genComdat(op *ir.Operation) {
	for _, blk := range op.Regions[0].Blocks {
		for _, sel := range blk.Ops() {
			kind, _ := sel.Attr(llvm.AttrSelection).(llvm.ComdatSelection)

			def := &lir.ComdatDef{Name: sel.StringAttr(llvm.AttrSymName), Kind: convSelection(kind)}
			g.comdats[def.Name] = def
			g.mod.ComdatDefs = append(g.mod.ComdatDefs, def)
		}
	}
}

func (g *Generator) declareFunc(op *ir.Operation) error {
	ft, ok := op.Attr(llvm.AttrFunctionType).(*llvm.FuncType)
	if !ok {
		return errors.New("function %s has no function type", op.StringAttr(llvm.AttrSymName))
	}

	sig, err := g.convFuncType(ft)
	if err != nil {
		return err
	}

	params := make([]*lir.Param, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = lir.NewParam("", p)
	}

	name := op.StringAttr(llvm.AttrSymName)
	fn := g.mod.NewFunc(name, sig.RetType, params...)
	fn.Sig.Variadic = sig.Variadic

	lk, _ := op.Attr(llvm.AttrLinkage).(llvm.Linkage)
	vis, _ := op.Attr(llvm.AttrVisibility).(llvm.Visibility)
	// declarations are external without spelling it out
	fn.Linkage = convLinkage(lk, true)
	fn.Visibility = convVisibility(vis)
	if op.BoolAttr(llvm.AttrDSOLocal) {
		fn.Preemption = enum.PreemptionDSOLocal
	}

	g.funcs[name] = fn
	return nil
}

// declareGlobal creates the global with a placeholder initializer of its
// content type: the real one may refer to globals not declared yet.
func (g *Generator) declareGlobal(op *ir.Operation) error {
	name := op.StringAttr(llvm.AttrSymName)

	typ, ok := op.Attr(llvm.AttrGlobalType).(ir.Type)
	if !ok {
		return errors.New("global %s has no type", name)
	}

	ct, err := g.convType(typ)
	if err != nil {
		return err
	}

	hasInit := llvm.GlobalInitializer(op) != nil || op.HasAttr(llvm.AttrValue)

	var gv *lir.Global
	if hasInit {
		gv = g.mod.NewGlobalDef(name, zeroOf(ct))
	} else {
		gv = g.mod.NewGlobal(name, ct)
	}

	as, _ := op.Attr(llvm.AttrAddrSpace).(uint)
	gv.Typ.AddrSpace = types.AddrSpace(as)

	lk, _ := op.Attr(llvm.AttrLinkage).(llvm.Linkage)
	vis, _ := op.Attr(llvm.AttrVisibility).(llvm.Visibility)
	gv.Linkage = convLinkage(lk, hasInit)
	gv.Visibility = convVisibility(vis)
	gv.Immutable = op.BoolAttr(llvm.AttrConstant)

	if op.BoolAttr(llvm.AttrDSOLocal) {
		gv.Preemption = enum.PreemptionDSOLocal
	}

	if align, ok := op.Attr(llvm.AttrAlignment).(uint64); ok && align != 0 {
		gv.Align = lir.Align(align)
	}

	if ref, ok := op.Attr(llvm.AttrComdat).(*llvm.ComdatRef); ok {
		def, ok := g.comdats[ref.Selector]
		if !ok {
			return errors.New("global %s refers to unknown comdat %s", name, ref.Selector)
		}

		gv.Comdat = def
	}

	g.globals[name] = gv
	return nil
}

// genGlobalInit folds the initializer of a global into an LLVM constant.
func (g *Generator) genGlobalInit(op *ir.Operation) error {
	gv := g.globals[op.StringAttr(llvm.AttrSymName)]

	if region := llvm.GlobalInitializer(op); region != nil {
		init, err := g.foldRegion(region)
		if err != nil {
			return err
		}

		gv.Init = charArray(init)
		return nil
	}

	if c, ok := op.Attr(llvm.AttrValue).(llvm.Constant); ok {
		init, err := g.convConstant(c)
		if err != nil {
			return err
		}

		gv.Init = init
	}

	return nil
}

// -----------------------------------------------------------------------------

// intrinsic returns the declaration of an intrinsic overloaded on the given
// types, declaring it on first use.
func (g *Generator) intrinsic(name string, ret ir.Type, args []ir.Type) (*lir.Func, error) {
	mangled := llvm.MangledName(name, ret, args)
	if fn, ok := g.intrinsics[mangled]; ok {
		return fn, nil
	}

	retType, err := g.convType(ret)
	if err != nil {
		return nil, err
	}

	params := make([]*lir.Param, len(args))
	for i, a := range args {
		t, err := g.convType(a)
		if err != nil {
			return nil, err
		}

		params[i] = lir.NewParam("", t)
	}

	fn := g.mod.NewFunc(mangled, retType, params...)
	g.intrinsics[mangled] = fn
	return fn, nil
}
