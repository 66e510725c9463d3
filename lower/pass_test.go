package lower

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cirlower/cir"
	"cirlower/eval"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/report"
)

func lowerModule(t *testing.T, mod *ir.Module) *Result {
	t.Helper()

	res, err := Run(context.Background(), mod, Options{})
	require.NoError(t, err)
	require.NotNil(t, res)

	return res
}

// newFunc appends a function definition to mod and returns a builder
// positioned at the end of its entry block.
func newFunc(mod *ir.Module, name string, ft *cir.FuncType) (*cir.Builder, *ir.Block) {
	fn := cir.NewFunc(mod, name, ft, cir.FuncOpts{})
	entry := cir.FuncEntry(fn)

	b := cir.NewBuilder()
	b.SetInsertionPointToEnd(entry)
	return b, entry
}

func machine(t *testing.T, mod *ir.Module) *eval.Machine {
	t.Helper()

	m, err := eval.New(context.Background(), mod, llvm.DefaultLayout())
	require.NoError(t, err)
	return m
}

func call(t *testing.T, m *eval.Machine, name string, args ...eval.Value) eval.Value {
	t.Helper()

	v, err := m.Call(name, args...)
	require.NoError(t, err)
	return v
}

func countOps(mod *ir.Module, name string) int {
	n := 0
	mod.Walk(func(op *ir.Operation) {
		if op.Name == name {
			n++
		}
	})

	return n
}

func findOps(mod *ir.Module, name string) []*ir.Operation {
	var ops []*ir.Operation
	mod.Walk(func(op *ir.Operation) {
		if op.Name == name {
			ops = append(ops, op)
		}
	})

	return ops
}

func assertNoSourceOps(t *testing.T, mod *ir.Module) {
	t.Helper()

	mod.Walk(func(op *ir.Operation) {
		assert.Equal(t, "llvm", op.Dialect(), "operation %s left in the module", op.Name)
	})
}

// -----------------------------------------------------------------------------

func TestBoolGlobalUsesMemoryWidth(t *testing.T) {
	mod := ir.NewModule("globals")
	cir.NewGlobal(mod, "flag", cir.Bool, &cir.BoolAttr{Value: true}, cir.GlobalOpts{})

	res := lowerModule(t, mod)

	g := res.Module.Lookup("flag")
	require.NotNil(t, g)
	assert.Equal(t, llvm.OpGlobal, g.Name)
	assert.True(t, llvm.Equal(llvm.I8, g.Attr(llvm.AttrGlobalType).(ir.Type)))

	val, ok := g.Attr(llvm.AttrValue).(*llvm.IntAttr)
	require.True(t, ok)
	assert.Equal(t, int64(1), val.Value)
	assert.True(t, llvm.Equal(llvm.I8, val.Typ))

	v, err := machine(t, res.Module).LoadGlobal("flag")
	require.NoError(t, err)
	assert.Equal(t, eval.MakeInt(8, 1), v)
}

func TestIntToBoolComparesWithZero(t *testing.T) {
	mod := ir.NewModule("casts")
	b, entry := newFunc(mod, "nonzero", cir.Func(cir.Bool, cir.S32))
	b.Return(b.Cast(cir.CastIntToBool, entry.Args[0], cir.Bool))

	res := lowerModule(t, mod)
	assertNoSourceOps(t, res.Module)

	cmps := findOps(res.Module, llvm.OpICmp)
	require.Len(t, cmps, 1)
	assert.Equal(t, llvm.IntNE, cmps[0].Attr(llvm.AttrPredicate))

	zero := cmps[0].Operands[1].DefiningOp()
	require.NotNil(t, zero)
	require.Equal(t, llvm.OpConstant, zero.Name)
	assert.Equal(t, int64(0), zero.Attr(llvm.AttrValue).(*llvm.IntAttr).Value)

	m := machine(t, res.Module)
	assert.Equal(t, eval.Bool(true), call(t, m, "nonzero", eval.MakeInt(32, 5)))
	assert.Equal(t, eval.Bool(true), call(t, m, "nonzero", eval.MakeInt(32, -1)))
	assert.Equal(t, eval.Bool(false), call(t, m, "nonzero", eval.MakeInt(32, 0)))
}

func TestBoolMemoryRoundTrip(t *testing.T) {
	mod := ir.NewModule("memory")
	b, entry := newFunc(mod, "roundtrip", cir.Func(cir.Bool, cir.Bool))

	slot := b.Alloca(cir.Bool, 0)
	b.Store(entry.Args[0], slot)
	b.Return(b.Load(slot))

	res := lowerModule(t, mod)
	assertNoSourceOps(t, res.Module)

	allocas := findOps(res.Module, llvm.OpAlloca)
	require.Len(t, allocas, 1)
	assert.True(t, llvm.Equal(llvm.I8, allocas[0].Attr(llvm.AttrElemType).(ir.Type)))

	m := machine(t, res.Module)
	for _, v := range []bool{false, true} {
		assert.Equal(t, eval.Bool(v), call(t, m, "roundtrip", eval.Bool(v)))
	}
}

func TestSignedBitfieldReadsBackNegative(t *testing.T) {
	mod := ir.NewModule("bitfields")
	b, _ := newFunc(mod, "field", cir.Func(cir.S32))

	info := &cir.BitfieldInfo{Name: "f", StorageType: cir.U8, Size: 3, Offset: 4, Signed: true}

	slot := b.Alloca(cir.U8, 0)
	b.Store(b.ConstInt(cir.U8, 0), slot)
	b.SetBitfield(slot, b.ConstInt(cir.S32, -1), info)
	b.Return(b.GetBitfield(slot, info, cir.S32))

	res := lowerModule(t, mod)
	assertNoSourceOps(t, res.Module)

	m := machine(t, res.Module)
	assert.Equal(t, eval.MakeInt(32, -1), call(t, m, "field"))
}

func TestBitfieldRoundTrip(t *testing.T) {
	storages := []*cir.IntType{cir.U8, cir.U16, cir.U32, cir.U64}
	values := []int64{0, 1, -1, 5, -6, 0x5a5a, -0x1234567}

	for _, storage := range storages {
		for _, signed := range []bool{false, true} {
			for _, field := range [][2]uint{{0, 1}, {0, 3}, {2, 5}, {1, storage.Width - 1}, {0, storage.Width}} {
				offset, size := field[0], field[1]
				info := &cir.BitfieldInfo{
					Name: "f", StorageType: storage, Size: size, Offset: offset, Signed: signed,
				}

				mod := ir.NewModule("bitfields")
				b, entry := newFunc(mod, "roundtrip", cir.Func(cir.S64, cir.S64))

				slot := b.Alloca(storage, 0)
				b.Store(b.ConstInt(storage, 0x3c), slot)
				set := b.SetBitfield(slot, entry.Args[0], info)
				get := b.GetBitfield(slot, info, cir.S64)
				b.Return(b.BinOp(cir.BinOpXor, set, get))

				res := lowerModule(t, mod)
				m := machine(t, res.Module)

				// set and get agree, so their xor is always zero
				for _, v := range values {
					assert.Equal(t, eval.MakeInt(64, 0), call(t, m, "roundtrip", eval.MakeInt(64, v)),
						"storage %d offset %d size %d signed %t value %d", storage.Width, offset, size, signed, v)
				}

				mod = ir.NewModule("bitfields")
				b, entry = newFunc(mod, "get", cir.Func(cir.S64, cir.S64))

				slot = b.Alloca(storage, 0)
				b.SetBitfield(slot, entry.Args[0], info)
				b.Return(b.GetBitfield(slot, info, cir.S64))

				m = machine(t, lowerModule(t, mod).Module)
				for _, v := range values {
					assert.Equal(t, eval.MakeInt(64, cir.TruncInt(v, size, signed)), call(t, m, "get", eval.MakeInt(64, v)),
						"storage %d offset %d size %d signed %t value %d", storage.Width, offset, size, signed, v)
				}
			}
		}
	}
}

func TestBitfieldKeepsNeighbours(t *testing.T) {
	mod := ir.NewModule("bitfields")
	b, _ := newFunc(mod, "neighbours", cir.Func(cir.U16))

	info := &cir.BitfieldInfo{Name: "mid", StorageType: cir.U16, Size: 4, Offset: 6}

	slot := b.Alloca(cir.U16, 0)
	b.Store(b.ConstInt(cir.U16, -1), slot)
	b.SetBitfield(slot, b.ConstInt(cir.U16, 0), info)
	b.Return(b.Load(slot))

	m := machine(t, lowerModule(t, mod).Module)
	assert.Equal(t, eval.MakeInt(16, 0xfc3f), call(t, m, "neighbours"))
}

func TestPtrStrideExtendsBeforeNegation(t *testing.T) {
	mod := ir.NewModule("strides")
	b, entry := newFunc(mod, "back", cir.Func(cir.Ptr(cir.S32), cir.Ptr(cir.S32), cir.U32))

	neg := b.Unary(cir.UnaryMinus, entry.Args[1])
	b.Return(b.PtrStride(entry.Args[0], neg))

	res := lowerModule(t, mod)
	assertNoSourceOps(t, res.Module)

	// the extension applies to the argument itself
	exts := findOps(res.Module, llvm.OpZExt)
	require.Len(t, exts, 1)
	assert.True(t, exts[0].Operands[0].IsBlockArg())

	subs := findOps(res.Module, llvm.OpSub)
	require.Len(t, subs, 1)
	assert.Equal(t, exts[0].Result(0), subs[0].Operands[1])

	m := machine(t, res.Module)
	got := call(t, m, "back", eval.Ptr{Addr: 0x1000}, eval.MakeInt(32, 3))
	assert.Equal(t, eval.Ptr{Addr: 0x1000 - 12}, got)
}

func TestPtrStrideSignExtendsSignedIndex(t *testing.T) {
	mod := ir.NewModule("strides")
	b, entry := newFunc(mod, "step", cir.Func(cir.Ptr(cir.S64), cir.Ptr(cir.S64), cir.S32))
	b.Return(b.PtrStride(entry.Args[0], entry.Args[1]))

	res := lowerModule(t, mod)
	assert.Equal(t, 1, countOps(res.Module, llvm.OpSExt))

	m := machine(t, res.Module)
	assert.Equal(t, eval.Ptr{Addr: 0x1000 - 16}, call(t, m, "step", eval.Ptr{Addr: 0x1000}, eval.MakeInt(32, -2)))
}

func TestDynamicShuffleMasksIndices(t *testing.T) {
	vt := cir.Vector(cir.S32, 8)

	mod := ir.NewModule("vectors")
	b, entry := newFunc(mod, "gather", cir.Func(vt, vt, vt))
	b.Return(b.VecShuffleDynamic(entry.Args[0], entry.Args[1]))

	res := lowerModule(t, mod)
	assertNoSourceOps(t, res.Module)

	ands := findOps(res.Module, llvm.OpAnd)
	require.Len(t, ands, 1)

	var masks []int64
	for _, c := range findOps(res.Module, llvm.OpConstant) {
		if ia, ok := c.Attr(llvm.AttrValue).(*llvm.IntAttr); ok && llvm.Equal(ia.Typ, llvm.I32) {
			masks = append(masks, ia.Value)
		}
	}

	assert.Equal(t, []int64{7}, masks)

	lanes := func(vals ...int64) eval.Value {
		elems := make([]eval.Value, len(vals))
		for i, v := range vals {
			elems[i] = eval.MakeInt(32, v)
		}

		return eval.Agg{Elems: elems}
	}

	m := machine(t, res.Module)
	got := call(t, m, "gather", lanes(10, 11, 12, 13, 14, 15, 16, 17), lanes(15, 0, 9, 2, 3, 4, 5, 6))
	assert.Equal(t, lanes(17, 10, 11, 12, 13, 14, 15, 16), got)
}

func TestSwitchKeepsCasePairing(t *testing.T) {
	mod := ir.NewModule("switches")
	fn := cir.NewFunc(mod, "pick", cir.Func(cir.S32, cir.S32), cir.FuncOpts{})
	region := fn.Regions[0]
	entry := region.Entry()

	b := cir.NewBuilder()
	blocks := make([]*ir.Block, 4)
	for i := range blocks {
		blocks[i] = b.CreateBlock(region)
		b.Return(b.ConstInt(cir.S32, int64(100+i)))
	}

	def, cases := blocks[0], blocks[1:]

	b.SetInsertionPointToEnd(entry)
	b.SwitchFlat(entry.Args[0], def, nil,
		cir.SwitchCase{Value: 1, Dest: cases[0]},
		cir.SwitchCase{Value: 2, Dest: cases[1]},
		cir.SwitchCase{Value: 3, Dest: cases[2]},
	)

	res := lowerModule(t, mod)
	assertNoSourceOps(t, res.Module)

	switches := findOps(res.Module, llvm.OpSwitch)
	require.Len(t, switches, 1)

	sw := switches[0]
	assert.Equal(t, []int64{1, 2, 3}, sw.Attr(llvm.AttrCaseValues))
	assert.Equal(t, []*ir.Block{def, cases[0], cases[1], cases[2]}, sw.Successors)

	m := machine(t, res.Module)
	for x, want := range map[int64]int64{1: 101, 2: 102, 3: 103, 0: 100, 4: 100} {
		assert.Equal(t, eval.MakeInt(32, want), call(t, m, "pick", eval.MakeInt(32, x)))
	}
}

// -----------------------------------------------------------------------------

func TestShiftAmountNormalization(t *testing.T) {
	mod := ir.NewModule("shifts")

	b, entry := newFunc(mod, "sar", cir.Func(cir.S32, cir.S32, cir.U8))
	b.Return(b.Shift(false, entry.Args[0], entry.Args[1]))

	b, entry = newFunc(mod, "shr", cir.Func(cir.U32, cir.U32, cir.S64))
	b.Return(b.Shift(false, entry.Args[0], entry.Args[1]))

	b, entry = newFunc(mod, "shl", cir.Func(cir.S16, cir.S16, cir.S32))
	b.Return(b.Shift(true, entry.Args[0], entry.Args[1]))

	vt := cir.Vector(cir.S32, 4)
	b, entry = newFunc(mod, "vsar", cir.Func(vt, vt, vt))
	b.Return(b.Shift(false, entry.Args[0], entry.Args[1]))

	res := lowerModule(t, mod)
	assertNoSourceOps(t, res.Module)

	// every shift sees operands of the same width
	for _, name := range []string{llvm.OpShl, llvm.OpLShr, llvm.OpAShr} {
		for _, op := range findOps(res.Module, name) {
			assert.True(t, llvm.Equal(op.Operands[0].Type(), op.Operands[1].Type()), "%s", op.Repr())
		}
	}

	assert.Equal(t, 2, countOps(res.Module, llvm.OpAShr))
	assert.Equal(t, 1, countOps(res.Module, llvm.OpLShr))

	m := machine(t, res.Module)
	assert.Equal(t, eval.MakeInt(32, -4), call(t, m, "sar", eval.MakeInt(32, -16), eval.MakeInt(8, 2)))
	assert.Equal(t, eval.MakeInt(32, 0x3ffffffc), call(t, m, "shr", eval.MakeInt(32, -16), eval.MakeInt(64, 2)))
	assert.Equal(t, eval.MakeInt(16, 0x50), call(t, m, "shl", eval.MakeInt(16, 5), eval.MakeInt(32, 4)))

	vec := func(vals ...int64) eval.Value {
		elems := make([]eval.Value, len(vals))
		for i, v := range vals {
			elems[i] = eval.MakeInt(32, v)
		}

		return eval.Agg{Elems: elems}
	}

	assert.Equal(t, vec(-1, -2, 4, 1), call(t, m, "vsar", vec(-2, -8, 16, 8), vec(1, 2, 2, 3)))
}

func TestTrailingZeroArraysMatchExplicitArrays(t *testing.T) {
	at := cir.Array(cir.S32, 4)
	elts := func(vals ...int64) []cir.Attr {
		attrs := make([]cir.Attr, len(vals))
		for i, v := range vals {
			attrs[i] = cir.NewInt(cir.S32, v)
		}

		return attrs
	}

	for _, explicit := range [][]int64{{1, 2, 3, 4}, {1, 2, 3}, {7}} {
		full := append(append([]int64(nil), explicit...), make([]int64, 4-len(explicit))...)

		mod := ir.NewModule("arrays")
		cir.NewGlobal(mod, "implicit", at, cir.NewConstArray(at, elts(explicit...)...), cir.GlobalOpts{})
		cir.NewGlobal(mod, "explicit", at, &cir.ConstArrayAttr{Typ: at, Elts: elts(full...)}, cir.GlobalOpts{})

		m := machine(t, lowerModule(t, mod).Module)

		implicit, err := m.LoadGlobal("implicit")
		require.NoError(t, err)

		want, err := m.LoadGlobal("explicit")
		require.NoError(t, err)

		assert.Equal(t, want, implicit, "explicit elements %v", explicit)
	}
}

func TestStringGlobal(t *testing.T) {
	at := cir.Array(cir.S8, 6)

	mod := ir.NewModule("strings")
	cir.NewGlobal(mod, "hello", at, cir.NewString(at, "hi"), cir.GlobalOpts{Constant: true})

	res := lowerModule(t, mod)

	g := res.Module.Lookup("hello")
	require.NotNil(t, llvm.GlobalInitializer(g))
	assert.True(t, g.BoolAttr(llvm.AttrConstant))

	v, err := machine(t, res.Module).LoadGlobal("hello")
	require.NoError(t, err)

	want := []eval.Value{
		eval.MakeInt(8, 'h'), eval.MakeInt(8, 'i'),
		eval.MakeInt(8, 0), eval.MakeInt(8, 0), eval.MakeInt(8, 0), eval.MakeInt(8, 0),
	}
	assert.Equal(t, eval.Agg{Elems: want}, v)
}

func TestComdatContainerIsShared(t *testing.T) {
	mod := ir.NewModule("comdats")
	cir.NewGlobal(mod, "a", cir.S32, cir.NewInt(cir.S32, 1), cir.GlobalOpts{Comdat: true, Linkage: cir.LinkageLinkOnceODR})
	cir.NewGlobal(mod, "b", cir.S32, cir.NewInt(cir.S32, 2), cir.GlobalOpts{Comdat: true, Linkage: cir.LinkageLinkOnceODR})

	res := lowerModule(t, mod)

	assert.Equal(t, 1, countOps(res.Module, llvm.OpComdat))
	assert.Equal(t, 2, countOps(res.Module, llvm.OpComdatSelector))

	for _, sym := range []string{"a", "b"} {
		g := res.Module.Lookup(sym)
		ref, ok := g.Attr(llvm.AttrComdat).(*llvm.ComdatRef)
		require.True(t, ok)
		assert.Equal(t, llvm.ComdatContainerName, ref.Container)
		assert.Equal(t, sym, ref.Selector)
		assert.Equal(t, llvm.LinkOnceODRLinkage, g.Attr(llvm.AttrLinkage))
	}
}

// -----------------------------------------------------------------------------

func TestComplexArithmetic(t *testing.T) {
	ct := cir.Complex(cir.S32)

	mod := ir.NewModule("complex")
	b, entry := newFunc(mod, "sum", cir.Func(cir.S32, cir.S32, cir.S32))

	x := b.ComplexCreate(ct, entry.Args[0], entry.Args[1])
	y := b.ComplexCreate(ct, entry.Args[1], entry.Args[0])
	d := b.ComplexSub(b.ComplexAdd(x, y), y)
	b.Return(b.BinOp(cir.BinOpMul, b.ComplexReal(d), b.ComplexImag(d)))

	res := lowerModule(t, mod)
	assertNoSourceOps(t, res.Module)

	m := machine(t, res.Module)
	assert.Equal(t, eval.MakeInt(32, 42), call(t, m, "sum", eval.MakeInt(32, 6), eval.MakeInt(32, 7)))
}

func TestCallsCarryEffects(t *testing.T) {
	mod := ir.NewModule("calls")

	sq, entry := newFunc(mod, "square", cir.Func(cir.S32, cir.S32))
	sq.Return(sq.BinOp(cir.BinOpMul, entry.Args[0], entry.Args[0]))

	b, entry := newFunc(mod, "twice", cir.Func(cir.S32, cir.S32))
	first := b.Call("square", cir.S32, []*ir.Value{entry.Args[0]}, cir.SideEffectConst)
	second := b.Call("square", cir.S32, []*ir.Value{first.Result(0)}, cir.SideEffectPure)
	b.Return(second.Result(0))

	res := lowerModule(t, mod)
	assertNoSourceOps(t, res.Module)

	calls := findOps(res.Module, llvm.OpCall)
	require.Len(t, calls, 2)

	for _, c := range calls {
		me, ok := c.Attr(llvm.AttrMemory).(*llvm.MemoryEffects)
		require.True(t, ok)
		assert.True(t, me.ReadOnly())
		assert.True(t, c.BoolAttr(llvm.AttrNoUnwind))
		assert.True(t, c.BoolAttr(llvm.AttrWillReturn))
	}

	m := machine(t, res.Module)
	assert.Equal(t, eval.MakeInt(32, 81), call(t, m, "twice", eval.MakeInt(32, 3)))
}

func TestSignatureAttrsFollowConvertedArity(t *testing.T) {
	mod := ir.NewModule("attrs")

	argAttrs := []interface{}{map[string]interface{}{"llvm.noundef": true}}
	resAttrs := []interface{}{map[string]interface{}{"llvm.signext": true}}

	extra := func() map[string]interface{} {
		return map[string]interface{}{cir.AttrArgAttrs: argAttrs, cir.AttrResAttrs: resAttrs}
	}

	void := cir.NewFunc(mod, "sink", cir.Func(cir.Void, cir.S32), cir.FuncOpts{Extra: extra()})
	b := cir.NewBuilder()
	b.SetInsertionPointToEnd(cir.FuncEntry(void))
	b.Return()

	cir.DeclareFunc(mod, "source", cir.Func(cir.S8, cir.S32), cir.FuncOpts{Extra: extra()})
	cir.DeclareFunc(mod, "none", cir.Func(cir.S8), cir.FuncOpts{Extra: extra()})

	res := lowerModule(t, mod)

	sink := res.Module.Lookup("sink")
	assert.Equal(t, argAttrs, sink.Attr(cir.AttrArgAttrs))
	assert.Nil(t, sink.Attr(cir.AttrResAttrs))

	source := res.Module.Lookup("source")
	assert.Equal(t, argAttrs, source.Attr(cir.AttrArgAttrs))
	assert.Equal(t, resAttrs, source.Attr(cir.AttrResAttrs))

	none := res.Module.Lookup("none")
	assert.Nil(t, none.Attr(cir.AttrArgAttrs))
	assert.Equal(t, resAttrs, none.Attr(cir.AttrResAttrs))
}

func TestFloatMaxUsesMaxNum(t *testing.T) {
	mod := ir.NewModule("max")
	b, entry := newFunc(mod, "fmax", cir.Func(cir.Double, cir.Double, cir.Double))
	b.Return(b.BinOp(cir.BinOpMax, entry.Args[0], entry.Args[1]))

	res := lowerModule(t, mod)

	intrs := findOps(res.Module, llvm.OpCallIntrinsic)
	require.Len(t, intrs, 1)
	assert.Equal(t, llvm.IntrMaxNum, intrs[0].StringAttr(llvm.AttrIntrinsic))

	m := machine(t, res.Module)
	assert.Equal(t, eval.MakeFloat(64, 2.5), call(t, m, "fmax", eval.MakeFloat(64, 2.5), eval.MakeFloat(64, -1)))
}

func TestTrapEndsWithUnreachable(t *testing.T) {
	mod := ir.NewModule("trap")
	b, _ := newFunc(mod, "boom", cir.Func(cir.Void))
	b.Trap()

	res := lowerModule(t, mod)

	body := res.Module.Lookup("boom").Regions[0].Entry().Ops()
	require.Len(t, body, 2)
	assert.Equal(t, llvm.OpCallIntrinsic, body[0].Name)
	assert.Equal(t, llvm.IntrTrap, body[0].StringAttr(llvm.AttrIntrinsic))
	assert.Equal(t, llvm.OpUnreachable, body[1].Name)

	_, err := machine(t, res.Module).Call("boom")
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestModuleAttrsAreProjected(t *testing.T) {
	mod := ir.NewModule("attrs")
	mod.Attrs[cir.ModAttrTriple] = "x86_64-unknown-linux-gnu"

	res := lowerModule(t, mod)
	assert.Equal(t, "x86_64-unknown-linux-gnu", res.Module.Attrs[llvm.ModAttrTargetTriple])

	mod = ir.NewModule("defaults")
	res, err := Run(context.Background(), mod, Options{DefaultTriple: "aarch64-unknown-linux-gnu"})
	require.NoError(t, err)
	assert.Equal(t, "aarch64-unknown-linux-gnu", res.Module.Attrs[llvm.ModAttrTargetTriple])
}

func TestPointerUnaryIsRejected(t *testing.T) {
	mod := ir.NewModule("errors")
	b, entry := newFunc(mod, "plus", cir.Func(cir.Ptr(cir.S32), cir.Ptr(cir.S32)))
	b.Return(b.Unary(cir.UnaryPlus, entry.Args[0]))

	res, err := Run(context.Background(), mod, Options{})
	require.Error(t, err)
	assert.Nil(t, res)

	d, ok := err.(*report.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, report.UnsupportedOperation, d.Kind)
	assert.Equal(t, cir.OpUnary, d.Op.Name)
}

func TestWideBitfieldStorageRoundTrip(t *testing.T) {
	storage := cir.Array(cir.U8, 10)
	field := &cir.BitfieldInfo{Name: "wide", StorageType: storage, Size: 20, Offset: 60, Signed: true}
	low := &cir.BitfieldInfo{Name: "low", StorageType: storage, Size: 60}

	mod := ir.NewModule("bitfields")

	b, entry := newFunc(mod, "wide", cir.Func(cir.S64, cir.S64))
	slot := b.Alloca(storage, 0)
	set := b.SetBitfield(slot, entry.Args[0], field)
	get := b.GetBitfield(slot, field, cir.S64)
	b.Return(b.BinOp(cir.BinOpAdd, b.BinOp(cir.BinOpMul, set, b.ConstInt(cir.S64, 1<<21)), get))

	b, entry = newFunc(mod, "neighbour", cir.Func(cir.U64, cir.S64))
	slot = b.Alloca(storage, 0)
	b.SetBitfield(slot, b.ConstInt(cir.U64, -1), low)
	b.SetBitfield(slot, entry.Args[0], field)
	b.Return(b.GetBitfield(slot, low, cir.U64))

	res := lowerModule(t, mod)
	assertNoSourceOps(t, res.Module)

	for _, op := range findOps(res.Module, llvm.OpLoad) {
		assert.True(t, llvm.Equal(llvm.Int(80), op.Results[0].Type()))
	}

	m := machine(t, res.Module)
	for _, v := range []int64{0, 1, -1, 0x7ffff, -0x80000, 0x12345, 0x1abcde, -0x3fedcba} {
		want := cir.TruncInt(v, 20, true)
		assert.Equal(t, eval.MakeInt(64, want<<21+want), call(t, m, "wide", eval.MakeInt(64, v)), "value %#x", v)
		assert.Equal(t, eval.MakeInt(64, 1<<60-1), call(t, m, "neighbour", eval.MakeInt(64, v)), "value %#x", v)
	}
}

func TestFailedRunLeavesModulePartiallyRewritten(t *testing.T) {
	mod := ir.NewModule("errors")
	mod.Attrs[cir.ModAttrTriple] = "x86_64-unknown-linux-gnu"

	b, entry := newFunc(mod, "plus", cir.Func(cir.Ptr(cir.S32), cir.Ptr(cir.S32)))
	b.Return(b.Unary(cir.UnaryPlus, entry.Args[0]))

	res, err := Run(context.Background(), mod, Options{})
	require.Error(t, err)
	assert.Nil(t, res)

	// the caller's module was mutated before the failure
	assert.Equal(t, "x86_64-unknown-linux-gnu", mod.Attrs[llvm.ModAttrTargetTriple])
	assert.Equal(t, 1, countOps(mod, cir.OpUnary))
}

func TestOverflowingBitfieldIsAnInvariantViolation(t *testing.T) {
	info := &cir.BitfieldInfo{Name: "over", StorageType: cir.U8, Size: 6, Offset: 4}

	mod := ir.NewModule("errors")
	b, _ := newFunc(mod, "over", cir.Func(cir.U32))
	slot := b.Alloca(cir.U8, 0)
	b.Return(b.GetBitfield(slot, info, cir.U32))

	_, err := Run(context.Background(), mod, Options{})
	require.Error(t, err)

	d, ok := err.(*report.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, report.InvariantViolation, d.Kind)
}
