package llvm

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cirlower/ir"
)

func TestDataLayout(t *testing.T) {
	dl := DefaultLayout()

	st := &StructType{Fields: []ir.Type{I8, I32, Ptr}}
	packed := &StructType{Fields: []ir.Type{I8, I32}, Packed: true}
	fp80 := &FloatType{Kind: X86FP80Kind}

	cases := []struct {
		typ         ir.Type
		size, align uint64
	}{
		{I1, 1, 1},
		{I64, 8, 8},
		{Int(24), 4, 4},
		{F64, 8, 8},
		{fp80, 16, 16},
		{Ptr, 8, 8},
		{&ArrayType{Elem: I16, Len: 3}, 6, 2},
		{&VectorType{Elem: I32, Len: 4}, 16, 16},
		{st, 16, 8},
		{packed, 5, 1},
	}

	for _, c := range cases {
		assert.Equal(t, c.size, dl.TypeSize(c.typ), c.typ.Repr())
		assert.Equal(t, c.align, dl.ABIAlign(c.typ), c.typ.Repr())
	}

	assert.Equal(t, uint64(4), dl.FieldOffset(st, 1))
	assert.Equal(t, uint64(8), dl.FieldOffset(st, 2))
	assert.Equal(t, uint64(1), dl.FieldOffset(packed, 1))

	assert.Equal(t, uint64(10), dl.StoreSize(Int(80)))
	assert.Equal(t, uint64(16), dl.TypeSize(Int(80)))

	small := &DataLayout{PointerWidth: 32, IndexWidth: 32, BoolWidth: 8}
	assert.Equal(t, uint64(4), small.TypeSize(Ptr))
	assert.Equal(t, uint64(12), small.TypeSize(st))
	assert.Same(t, I32, small.IndexType())
}

func TestMangledNames(t *testing.T) {
	v4 := &VectorType{Elem: I32, Len: 4}

	assert.Equal(t, "llvm.ctlz.i64", MangledName(IntrCtlz, I64, []ir.Type{I64, I1}))
	assert.Equal(t, "llvm.smax.v4i32", MangledName(IntrSMax, v4, []ir.Type{v4, v4}))
	assert.Equal(t, "llvm.maxnum.f64", MangledName(IntrMaxNum, F64, []ir.Type{F64, F64}))
	assert.Equal(t, "llvm.assume", MangledName(IntrAssume, Void, []ir.Type{I1}))
	assert.Equal(t, "llvm.trap", MangledName(IntrTrap, Void, nil))
	assert.Equal(t, "llvm.stacksave.p0", MangledName(IntrStackSave, Ptr, nil))
	assert.Equal(t, "llvm.stackrestore.p5", MangledName(IntrStackRestore, Void, []ir.Type{&PointerType{AddrSpace: 5}}))
	assert.Equal(t, "nxv2i8", MangleType(&VectorType{Elem: I8, Len: 2, Scalable: true}))
}

func TestTypeEquality(t *testing.T) {
	assert.True(t, Equal(Int(32), I32))
	assert.False(t, Equal(I32, I64))
	assert.True(t, Equal(&PointerType{AddrSpace: 1}, &PointerType{AddrSpace: 1}))
	assert.False(t, Equal(Ptr, &PointerType{AddrSpace: 1}))

	a := &StructType{Name: "a", Fields: []ir.Type{I8}}
	assert.True(t, Equal(a, &StructType{Name: "a"}))
	assert.False(t, Equal(a, &StructType{Fields: []ir.Type{I8}}))
	assert.True(t, Equal(&StructType{Fields: []ir.Type{I8}}, &StructType{Fields: []ir.Type{I8}}))

	f := &FuncType{Ret: I32, Params: []ir.Type{Ptr}}
	assert.False(t, Equal(f, &FuncType{Ret: I32, Params: []ir.Type{Ptr}, Variadic: true}))
	assert.True(t, Equal(f, &FuncType{Ret: I32, Params: []ir.Type{Ptr}}))
}

func TestBuilderConstantsAndGlobals(t *testing.T) {
	mod := ir.NewModule("m")
	b := NewIRBuilder(ir.NewBuilder())
	b.SetInsertionPointToEnd(mod.Body)

	lit := b.BuildGlobal(GlobalOpts{Name: "lit", Type: I32, Value: NewInt(I32, 3)}, nil)
	assert.Nil(t, GlobalInitializer(lit))
	assert.Equal(t, NewInt(I32, 3), lit.Attr(AttrValue))

	v4 := &VectorType{Elem: I32, Len: 4}
	var splat *ir.Value
	region := b.BuildGlobal(GlobalOpts{Name: "vec", Type: v4}, func(b *IRBuilder) *ir.Value {
		splat = b.BuildIntConst(v4, 7)
		return splat
	})

	init := GlobalInitializer(region)
	require.NotNil(t, init)
	assert.Equal(t, OpReturn, init.Entry().Terminator().Name)

	dense, ok := splat.DefiningOp().Attr(AttrValue).(*DenseAttr)
	require.True(t, ok)
	assert.Len(t, dense.Elems, 4)
	assert.Equal(t, "dense<[7, 7, 7, 7]> : vector<4xi32>", dense.Repr())

	// the builder is back at the end of the module
	b.BuildFunc("f", &FuncType{Ret: Void}, FuncOpts{})
	assert.Equal(t, []string{OpGlobal, OpGlobal, OpFunc}, []string{
		mod.Body.Ops()[0].Name, mod.Body.Ops()[1].Name, mod.Body.Ops()[2].Name,
	})
}

func TestBigIntLiterals(t *testing.T) {
	ones := new(big.Int).SetUint64(^uint64(0))

	narrow := NewBigInt(I64, ones)
	assert.Nil(t, narrow.Wide)
	assert.Equal(t, int64(-1), narrow.Value)

	wide := NewBigInt(Int(80), new(big.Int).Lsh(ones, 4))
	require.NotNil(t, wide.Wide)
	assert.Equal(t, int64(-16), wide.Value)
	assert.Equal(t, "295147905179352825840 : i80", wide.Repr())
	assert.Equal(t, 0, wide.BigValue().Cmp(wide.Wide))
}

func TestComdatTable(t *testing.T) {
	mod := ir.NewModule("m")
	ct := NewComdatTable()

	var wg sync.WaitGroup
	for _, sym := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			ct.AddSelector(mod, sym, ComdatAny)
		}(sym)
	}
	wg.Wait()

	container := ct.GetOrInsert(mod)
	assert.Same(t, container, mod.Body.Ops()[0])
	assert.Len(t, mod.Body.Ops(), 1)
	assert.Len(t, container.Regions[0].Entry().Ops(), 4)

	ref := ct.AddSelector(mod, "e", ComdatLargest)
	assert.Equal(t, "@"+ComdatContainerName+"::@e", ref.Repr())
}
