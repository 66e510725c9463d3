package eval

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cirlower/ir"
	"cirlower/llvm"
)

type testModule struct {
	mod *ir.Module
	b   *llvm.IRBuilder
}

func newTestModule() *testModule {
	mod := ir.NewModule("eval")

	b := llvm.NewIRBuilder(ir.NewBuilder())
	b.SetInsertionPointToEnd(mod.Body)

	return &testModule{mod: mod, b: b}
}

// function creates a function and positions the builder in its entry block.
func (tm *testModule) function(name string, ret ir.Type, params ...ir.Type) (*ir.Region, *ir.Block) {
	tm.b.SetInsertionPointToEnd(tm.mod.Body)
	fn := tm.b.BuildFunc(name, &llvm.FuncType{Ret: ret, Params: params}, llvm.FuncOpts{})

	body := fn.Regions[0]
	return body, tm.b.CreateBlock(body, params...)
}

func (tm *testModule) machine(t *testing.T) *Machine {
	t.Helper()

	m, err := New(context.Background(), tm.mod, llvm.DefaultLayout())
	require.NoError(t, err)
	return m
}

// -----------------------------------------------------------------------------

func TestLoopWithBlockArguments(t *testing.T) {
	tm := newTestModule()
	b := tm.b

	// sum(n) = n + (n-1) + ... + 1
	body, entry := tm.function("sum", llvm.I32, llvm.I32)
	loop := ir.NewBlock(llvm.I32, llvm.I32)
	exit := ir.NewBlock(llvm.I32)
	body.AddBlock(loop)
	body.AddBlock(exit)

	b.SetInsertionPointToEnd(entry)
	b.BuildBr(loop, []*ir.Value{entry.Args[0], b.BuildIntConst(llvm.I32, 0)})

	b.SetInsertionPointToEnd(loop)
	i, acc := loop.Args[0], loop.Args[1]
	done := b.BuildICmp(llvm.IntEQ, i, b.BuildIntConst(llvm.I32, 0))
	next := b.BuildSub(i, b.BuildIntConst(llvm.I32, 1), llvm.OverflowNone)
	sum := b.BuildAdd(acc, i, llvm.OverflowNone)
	b.BuildCondBr(done, exit, []*ir.Value{acc}, loop, []*ir.Value{next, sum})

	b.SetInsertionPointToEnd(exit)
	b.BuildReturn(exit.Args[0])

	m := tm.machine(t)

	v, err := m.Call("sum", MakeInt(32, 10))
	require.NoError(t, err)
	assert.Equal(t, MakeInt(32, 55), v)

	m.MaxSteps = 20
	_, err = m.Call("sum", MakeInt(32, 1000))
	assert.Error(t, err)
}

func TestGlobalsAndMemory(t *testing.T) {
	tm := newTestModule()
	b := tm.b

	st := &llvm.StructType{Fields: []ir.Type{llvm.I8, llvm.I32, llvm.Ptr}}

	b.BuildGlobal(llvm.GlobalOpts{Name: "counter", Type: llvm.I32, Value: llvm.NewInt(llvm.I32, 41)}, nil)
	b.BuildGlobal(llvm.GlobalOpts{Name: "record", Type: st}, func(b *llvm.IRBuilder) *ir.Value {
		rec := b.BuildUndef(st)
		rec = b.BuildInsertValue(rec, b.BuildIntConst(llvm.I8, -1), 0)
		rec = b.BuildInsertValue(rec, b.BuildIntConst(llvm.I32, 7), 1)
		return b.BuildInsertValue(rec, b.BuildAddressOf("counter", llvm.Ptr), 2)
	})

	// bump() increments the counter reached through record.2
	_, entry := tm.function("bump", llvm.I32)
	b.SetInsertionPointToEnd(entry)

	rec := b.BuildAddressOf("record", llvm.Ptr)
	field := b.BuildGEP(llvm.Ptr, st, rec, []llvm.GEPIndex{llvm.ConstIndex(0), llvm.ConstIndex(2)}, true)
	counter := b.BuildLoad(llvm.Ptr, field, 0, false)
	old := b.BuildLoad(llvm.I32, counter, 0, false)
	b.BuildStore(b.BuildAdd(old, b.BuildIntConst(llvm.I32, 1), llvm.OverflowNone), counter, 0, false)
	b.BuildReturn(b.BuildLoad(llvm.I32, counter, 0, false))

	m := tm.machine(t)

	v, err := m.LoadGlobal("record")
	require.NoError(t, err)

	addr, ok := m.GlobalAddr("counter")
	require.True(t, ok)
	assert.Equal(t, Agg{Elems: []Value{MakeInt(8, -1), MakeInt(32, 7), Ptr{Addr: addr}}}, v)

	v, err = m.Call("bump")
	require.NoError(t, err)
	assert.Equal(t, MakeInt(32, 42), v)

	v, err = m.LoadGlobal("counter")
	require.NoError(t, err)
	assert.Equal(t, MakeInt(32, 42), v)
}

func TestNullAccessFails(t *testing.T) {
	tm := newTestModule()
	b := tm.b

	_, entry := tm.function("deref", llvm.I32)
	b.SetInsertionPointToEnd(entry)
	b.BuildReturn(b.BuildLoad(llvm.I32, b.BuildZero(llvm.Ptr), 0, false))

	_, err := tm.machine(t).Call("deref")
	assert.Error(t, err)
}

func TestIndirectCallsAndExterns(t *testing.T) {
	tm := newTestModule()
	b := tm.b

	ft := &llvm.FuncType{Ret: llvm.I64, Params: []ir.Type{llvm.I64}}

	tm.b.BuildFunc("ext", ft, llvm.FuncOpts{})

	_, entry := tm.function("twice", llvm.I64, llvm.I64)
	b.SetInsertionPointToEnd(entry)
	fn := b.BuildAddressOf("ext", llvm.Ptr)
	once := b.BuildIndirectCall(ft, fn, []*ir.Value{entry.Args[0]}).Result(0)
	b.BuildReturn(b.BuildCall("ext", ft, []*ir.Value{once}).Result(0))

	m := tm.machine(t)
	m.Extern["ext"] = func(args []Value) (Value, error) {
		x := args[0].(Int)
		return MakeInt(64, x.Signed()*3), nil
	}

	v, err := m.Call("twice", MakeInt(64, 5))
	require.NoError(t, err)
	assert.Equal(t, MakeInt(64, 45), v)
}

func TestIntrinsics(t *testing.T) {
	cases := []struct {
		name string
		args []Value
		want Value
	}{
		{llvm.IntrCtlz, []Value{MakeInt(32, 1), Bool(false)}, MakeInt(32, 31)},
		{llvm.IntrCtlz, []Value{MakeInt(8, 0), Bool(false)}, MakeInt(8, 8)},
		{llvm.IntrCttz, []Value{MakeInt(16, 8), Bool(false)}, MakeInt(16, 3)},
		{llvm.IntrCtpop, []Value{MakeInt(32, 0xf0f0)}, MakeInt(32, 8)},
		{llvm.IntrBitReverse, []Value{MakeInt(8, 1)}, MakeInt(8, 0x80)},
		{llvm.IntrBSwap, []Value{MakeInt(16, 0x1234)}, MakeInt(16, 0x3412)},
		{llvm.IntrSMax, []Value{MakeInt(32, -3), MakeInt(32, 2)}, MakeInt(32, 2)},
		{llvm.IntrUMax, []Value{MakeInt(32, -3), MakeInt(32, 2)}, MakeInt(32, -3)},
		{llvm.IntrSAddSat, []Value{MakeInt(8, 100), MakeInt(8, 100)}, MakeInt(8, 127)},
		{llvm.IntrSSubSat, []Value{MakeInt(8, -100), MakeInt(8, 100)}, MakeInt(8, -128)},
		{llvm.IntrUAddSat, []Value{MakeInt(8, 200), MakeInt(8, 100)}, MakeInt(8, 255)},
		{llvm.IntrUSubSat, []Value{MakeInt(8, 5), MakeInt(8, 6)}, MakeInt(8, 0)},
		{llvm.IntrSMulFixSat, []Value{MakeInt(16, 300), MakeInt(16, -300), MakeInt(32, 0)}, MakeInt(16, -32768)},
		{llvm.IntrUMulFixSat, []Value{MakeInt(16, 300), MakeInt(16, 300), MakeInt(32, 0)}, MakeInt(16, 0xffff)},
		{llvm.IntrExpect, []Value{MakeInt(64, 9), MakeInt(64, 1)}, MakeInt(64, 9)},
	}

	m := &Machine{}
	for _, c := range cases {
		op := ir.NewOperation(llvm.OpCallIntrinsic, nil, nil, nil, map[string]interface{}{llvm.AttrIntrinsic: c.name})

		got, err := m.intrinsic(op, c.args)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.want, got, c.name)
	}
}

func TestRealPredicates(t *testing.T) {
	nan := math.NaN()

	assert.True(t, realCompare(llvm.RealOLT, 1, 2))
	assert.False(t, realCompare(llvm.RealOLT, nan, 2))
	assert.True(t, realCompare(llvm.RealULT, nan, 2))
	assert.True(t, realCompare(llvm.RealUNE, nan, nan))
	assert.False(t, realCompare(llvm.RealONE, nan, 1))
	assert.True(t, realCompare(llvm.RealUNO, nan, 1))
	assert.True(t, realCompare(llvm.RealORD, 0, 1))
}
