package generate

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/lower"
)

type testModule struct {
	mod *ir.Module
	b   *llvm.IRBuilder
}

func newTestModule() *testModule {
	mod := ir.NewModule("gen")

	b := llvm.NewIRBuilder(ir.NewBuilder())
	b.SetInsertionPointToEnd(mod.Body)

	return &testModule{mod: mod, b: b}
}

func (tm *testModule) function(name string, ret ir.Type, params ...ir.Type) (*ir.Region, *ir.Block) {
	tm.b.SetInsertionPointToEnd(tm.mod.Body)
	fn := tm.b.BuildFunc(name, &llvm.FuncType{Ret: ret, Params: params}, llvm.FuncOpts{})

	body := fn.Regions[0]
	return body, tm.b.CreateBlock(body, params...)
}

func emit(t *testing.T, mod *ir.Module) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, Emit(context.Background(), mod, &buf))
	return buf.String()
}

// -----------------------------------------------------------------------------

func TestBlockArgumentsBecomePhis(t *testing.T) {
	tm := newTestModule()
	b := tm.b

	body, entry := tm.function("sum", llvm.I32, llvm.I32)
	loop := body.AddBlock(ir.NewBlock(llvm.I32, llvm.I32))
	exit := body.AddBlock(ir.NewBlock(llvm.I32))

	b.SetInsertionPointToEnd(entry)
	b.BuildBr(loop, []*ir.Value{entry.Args[0], b.BuildIntConst(llvm.I32, 0)})

	b.SetInsertionPointToEnd(loop)
	i, acc := loop.Args[0], loop.Args[1]
	done := b.BuildICmp(llvm.IntEQ, i, b.BuildIntConst(llvm.I32, 0))
	next := b.BuildSub(i, b.BuildIntConst(llvm.I32, 1), llvm.OverflowNSW)
	sum := b.BuildAdd(acc, i, llvm.OverflowNone)
	b.BuildCondBr(done, exit, []*ir.Value{acc}, loop, []*ir.Value{next, sum})

	b.SetInsertionPointToEnd(exit)
	b.BuildReturn(exit.Args[0])

	out := emit(t, tm.mod)

	assert.Contains(t, out, "define i32 @sum(i32")
	assert.Contains(t, out, "phi i32")
	assert.Contains(t, out, "icmp eq i32")
	assert.Contains(t, out, "sub nsw i32")
	assert.Contains(t, out, "br i1")
	assert.Contains(t, out, "ret i32")
}

func TestGlobalsAreFolded(t *testing.T) {
	tm := newTestModule()
	b := tm.b

	st := &llvm.StructType{Name: "pair", Fields: []ir.Type{llvm.I32, llvm.Ptr}}
	str := &llvm.ArrayType{Elem: llvm.I8, Len: 3}

	b.BuildGlobal(llvm.GlobalOpts{Name: "counter", Type: llvm.I32, Value: llvm.NewInt(llvm.I32, 41)}, nil)
	b.BuildGlobal(llvm.GlobalOpts{Name: "greeting", Type: str, Constant: true, Linkage: llvm.PrivateLinkage},
		func(b *llvm.IRBuilder) *ir.Value {
			v := b.BuildZero(str)
			v = b.BuildInsertValue(v, b.BuildIntConst(llvm.I8, 'h'), 0)
			return b.BuildInsertValue(v, b.BuildIntConst(llvm.I8, 'i'), 1)
		})
	b.BuildGlobal(llvm.GlobalOpts{Name: "p", Type: st}, func(b *llvm.IRBuilder) *ir.Value {
		v := b.BuildUndef(st)
		v = b.BuildInsertValue(v, b.BuildIntConst(llvm.I32, 7), 0)
		return b.BuildInsertValue(v, b.BuildAddressOf("counter", llvm.Ptr), 1)
	})
	b.BuildGlobal(llvm.GlobalOpts{Name: "ext", Type: llvm.I64}, nil)

	out := emit(t, tm.mod)

	assert.Contains(t, out, "%pair = type { i32, i8* }")
	assert.Contains(t, out, "@counter = global i32 41")
	assert.Contains(t, out, `c"hi\00"`)
	assert.Contains(t, out, "@greeting = private constant")
	assert.Contains(t, out, "i32 7")
	assert.Contains(t, out, "bitcast (i32* @counter to i8*)")
	assert.Contains(t, out, "@ext = external global i64")
}

func TestGlobalInitializerFoldsElementAddress(t *testing.T) {
	tm := newTestModule()
	b := tm.b

	table := &llvm.ArrayType{Elem: llvm.I32, Len: 4}
	cursor := &llvm.StructType{Fields: []ir.Type{llvm.Ptr, llvm.I32}}

	b.BuildGlobal(llvm.GlobalOpts{Name: "table", Type: table}, func(b *llvm.IRBuilder) *ir.Value {
		return b.BuildInsertValue(b.BuildZero(table), b.BuildIntConst(llvm.I32, 9), 1)
	})
	b.BuildGlobal(llvm.GlobalOpts{Name: "cursor", Type: cursor}, func(b *llvm.IRBuilder) *ir.Value {
		base := b.BuildAddressOf("table", llvm.Ptr)
		elem := b.BuildGEP(llvm.Ptr, table, base, []llvm.GEPIndex{llvm.ConstIndex(0), llvm.ConstIndex(1)}, true)

		v := b.BuildInsertValue(b.BuildPoison(cursor), elem, 0)
		return b.BuildInsertValue(v, b.BuildIntConst(llvm.I32, 1), 1)
	})

	_, entry := tm.function("stale", llvm.I32)
	b.SetInsertionPointToEnd(entry)
	b.BuildReturn(b.BuildPoison(llvm.I32))

	_, entry = tm.function("seven", llvm.I32)
	b.SetInsertionPointToEnd(entry)
	b.BuildReturn(b.BuildIntConst(llvm.I32, 7))

	out := emit(t, tm.mod)

	assert.Contains(t, out, "@table = global [4 x i32] [i32 0, i32 9, i32 0, i32 0]")
	assert.Contains(t, out, "@cursor = global { i8*, i32 }")
	assert.Contains(t, out, "getelementptr inbounds ([4 x i32], [4 x i32]*")
	assert.Contains(t, out, "i32 0, i32 1)")
	assert.Contains(t, out, "ret i32 poison")
	assert.Contains(t, out, "ret i32 7")
}

func TestWideIntegerLiterals(t *testing.T) {
	tm := newTestModule()
	b := tm.b

	i80 := llvm.Int(80)
	high := new(big.Int).Lsh(big.NewInt(0xfffff), 60)

	_, entry := tm.function("mask", i80, i80)
	b.SetInsertionPointToEnd(entry)
	v := b.BuildAnd(entry.Args[0], b.BuildBigIntConst(i80, high))
	b.BuildReturn(b.BuildOr(v, b.BuildBigIntConst(i80, big.NewInt(5))))

	out := emit(t, tm.mod)

	assert.Contains(t, out, "and i80")
	assert.Contains(t, out, ", -1152921504606846976")
	assert.Contains(t, out, "or i80")
	assert.Contains(t, out, ", 5")
}

func TestComdatsAndTriple(t *testing.T) {
	tm := newTestModule()
	tm.mod.Attrs[llvm.ModAttrTargetTriple] = "x86_64-unknown-linux-gnu"

	comdats := llvm.NewComdatTable()
	ref := comdats.AddSelector(tm.mod, "inline_var", llvm.ComdatAny)

	tm.b.SetInsertionPointToEnd(tm.mod.Body)
	g := tm.b.BuildGlobal(llvm.GlobalOpts{
		Name:    "inline_var",
		Type:    llvm.I32,
		Linkage: llvm.LinkOnceODRLinkage,
		Value:   llvm.NewInt(llvm.I32, 3),
	}, nil)
	g.SetAttr(llvm.AttrComdat, ref)

	out := emit(t, tm.mod)

	assert.Contains(t, out, `target triple = "x86_64-unknown-linux-gnu"`)
	assert.Contains(t, out, "$inline_var = comdat any")
	assert.Contains(t, out, "@inline_var = linkonce_odr global i32 3")
	assert.Contains(t, out, "comdat")
}

func TestMemoryCastsTypedPointers(t *testing.T) {
	tm := newTestModule()
	b := tm.b

	st := &llvm.StructType{Fields: []ir.Type{llvm.I8, llvm.I32}}

	_, entry := tm.function("second", llvm.I32, llvm.Ptr)
	b.SetInsertionPointToEnd(entry)

	field := b.BuildGEP(llvm.Ptr, st, entry.Args[0], []llvm.GEPIndex{llvm.ConstIndex(0), llvm.ConstIndex(1)}, true)
	v := b.BuildLoad(llvm.I32, field, 4, false)

	slot := b.BuildAlloca(llvm.I32, b.BuildIntConst(llvm.I64, 1), 4, llvm.Ptr)
	b.BuildStore(v, slot, 4, true)
	b.BuildReturn(b.BuildLoad(llvm.I32, slot, 4, false))

	out := emit(t, tm.mod)

	assert.Contains(t, out, "getelementptr inbounds { i8, i32 }")
	assert.Contains(t, out, "alloca i32")
	assert.Contains(t, out, "store volatile i32")
	assert.Contains(t, out, "load i32, i32*")
}

func TestCallsAndIntrinsics(t *testing.T) {
	tm := newTestModule()
	b := tm.b

	ft := &llvm.FuncType{Ret: llvm.I64, Params: []ir.Type{llvm.I64}}
	tm.b.BuildFunc("ext", ft, llvm.FuncOpts{})

	_, entry := tm.function("twice", llvm.I64, llvm.I64)
	b.SetInsertionPointToEnd(entry)

	fn := b.BuildAddressOf("ext", llvm.Ptr)
	once := b.BuildIndirectCall(ft, fn, []*ir.Value{entry.Args[0]}).Result(0)

	call := b.BuildCall("ext", ft, []*ir.Value{once})
	call.SetAttr(llvm.AttrMemory, &llvm.MemoryEffects{Other: llvm.Ref, ArgMem: llvm.Ref, InaccessibleMem: llvm.Ref})
	call.SetAttr(llvm.AttrNoUnwind, true)

	lz := b.BuildIntrinsic(llvm.IntrCtlz, llvm.I64, call.Result(0), b.BuildIntConst(llvm.I1, 0))
	b.BuildIntrinsic(llvm.IntrTrap, llvm.Void)
	b.BuildReturn(lz)

	out := emit(t, tm.mod)

	assert.Contains(t, out, "declare i64 @ext(i64")
	assert.Contains(t, out, "to i64 (i64)*")
	assert.Contains(t, out, "readonly")
	assert.Contains(t, out, "nounwind")
	assert.Contains(t, out, "declare i64 @llvm.ctlz.i64(")
	assert.Contains(t, out, "call i64 @llvm.ctlz.i64(i64")
	assert.Contains(t, out, "call void @llvm.trap()")
}

func TestSwitchCases(t *testing.T) {
	tm := newTestModule()
	b := tm.b

	body, entry := tm.function("pick", llvm.I32, llvm.I32)
	one := body.AddBlock(ir.NewBlock())
	def := body.AddBlock(ir.NewBlock())

	b.SetInsertionPointToEnd(entry)
	b.BuildSwitch(entry.Args[0], def, nil, []int64{5}, []*ir.Block{one}, [][]*ir.Value{nil})

	b.SetInsertionPointToEnd(one)
	b.BuildReturn(b.BuildIntConst(llvm.I32, 1))

	b.SetInsertionPointToEnd(def)
	b.BuildUnreachable()

	out := emit(t, tm.mod)

	assert.Contains(t, out, "switch i32")
	assert.Contains(t, out, "i32 5, label")
	assert.Contains(t, out, "unreachable")
}

func TestUnexportableTypesFail(t *testing.T) {
	tm := newTestModule()
	bf16 := &llvm.FloatType{Kind: llvm.BFloatKind}
	tm.b.BuildGlobal(llvm.GlobalOpts{Name: "h", Type: bf16, Value: llvm.NewFloat(bf16, 1)}, nil)

	_, err := Generate(context.Background(), tm.mod)
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestLoweredModuleExports(t *testing.T) {
	mod := ir.NewModule("lowered")
	mod.Attrs[cir.ModAttrTriple] = "aarch64-linux-gnu"

	cir.NewGlobal(mod, "msg", cir.Array(cir.S8, 4), cir.NewString(cir.Array(cir.S8, 4), "ok"), cir.GlobalOpts{Constant: true})

	fn := cir.NewFunc(mod, "clamp", cir.Func(cir.S32, cir.S32, cir.S32), cir.FuncOpts{})
	entry := cir.FuncEntry(fn)

	b := cir.NewBuilder()
	b.SetInsertionPointToEnd(entry)
	b.Return(b.BinOp(cir.BinOpMax, entry.Args[0], entry.Args[1]))

	res, err := lower.Run(context.Background(), mod, lower.Options{})
	require.NoError(t, err)

	out := emit(t, res.Module)

	assert.Contains(t, out, `target triple = "aarch64-linux-gnu"`)
	assert.Contains(t, out, `c"ok\00\00"`)
	assert.Contains(t, out, "@llvm.smax.i32")
}
