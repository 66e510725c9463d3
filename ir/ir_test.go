package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testType string

func (tt testType) Repr() string { return string(tt) }

const i32 = testType("i32")

func names(ops []*Operation) []string {
	ns := make([]string, len(ops))
	for i, op := range ops {
		ns[i] = op.Name
	}

	return ns
}

// -----------------------------------------------------------------------------

func TestBuilderInsertionPoints(t *testing.T) {
	blk := NewBlock()
	b := NewBuilder()

	b.SetInsertionPointToEnd(blk)
	a := b.Create("t.a", nil, nil, nil)
	c := b.Create("t.c", nil, nil, nil)

	b.SetInsertionPointBefore(c)
	b.Create("t.b", nil, nil, nil)

	b.SetInsertionPointToStart(blk)
	b.Create("t.first", nil, nil, nil)

	b.SetInsertionPointAfter(c)
	b.Create("t.last", nil, nil, nil)

	assert.Equal(t, []string{"t.first", "t.a", "t.b", "t.c", "t.last"}, names(blk.Ops()))

	ip := b.SaveInsertionPoint()
	b.SetInsertionPointAfter(a)
	b.Create("t.a2", nil, nil, nil)
	b.RestoreInsertionPoint(ip)
	b.Create("t.end", nil, nil, nil)

	assert.Equal(t, []string{"t.first", "t.a", "t.a2", "t.b", "t.c", "t.last", "t.end"}, names(blk.Ops()))
	assert.Same(t, blk, a.Block())
}

func TestBuilderListener(t *testing.T) {
	var seen []string

	b := NewBuilder()
	b.Listener = func(op *Operation) { seen = append(seen, op.Name) }
	b.Loc = FileLoc{File: "x.c", Line: 1, Col: 2}

	b.SetInsertionPointToEnd(NewBlock())
	op := b.Create("t.op", nil, nil, nil)

	assert.Equal(t, []string{"t.op"}, seen)
	assert.Equal(t, `loc("x.c":1:2)`, op.Loc.Repr())
}

func TestUsesFollowErasure(t *testing.T) {
	blk := NewBlock(i32)
	b := NewBuilder()
	b.SetInsertionPointToEnd(blk)

	def := b.Create("t.def", nil, []Type{i32}, nil)
	v := def.Result(0)
	user := b.Create("t.use", []*Value{v, v, blk.Args[0]}, nil, nil)

	require.True(t, v.HasUses())
	assert.True(t, v.UsedOnlyBy(user))
	assert.Equal(t, []*Operation{user}, v.Users())
	assert.Same(t, def, v.DefiningOp())
	assert.True(t, blk.Args[0].IsBlockArg())

	user.SetOperand(0, blk.Args[0])
	assert.True(t, v.HasUses())

	user.Erase()
	assert.True(t, user.Erased())
	assert.False(t, v.HasUses())
	assert.False(t, blk.Args[0].HasUses())
	assert.Equal(t, []string{"t.def"}, names(blk.Ops()))
}

func TestBlockGraph(t *testing.T) {
	fn := NewOperation("t.func", nil, nil, nil, nil)
	r := fn.AddRegion()

	entry := r.AddBlock(NewBlock(i32))
	left := r.AddBlock(NewBlock())
	join := r.AddBlock(NewBlock(i32))

	b := NewBuilder()
	b.SetInsertionPointToEnd(entry)
	br := b.Create("t.condbr", nil, nil, nil)
	br.AddSuccessor(left, nil)
	br.AddSuccessor(join, []*Value{entry.Args[0]})

	b.SetInsertionPointToEnd(left)
	b.Create("t.br", nil, nil, nil).AddSuccessor(join, []*Value{entry.Args[0]})

	assert.True(t, entry.IsEntry())
	assert.False(t, join.IsEntry())
	assert.Same(t, entry, r.Entry())
	assert.Same(t, fn, join.ParentOp())
	assert.Equal(t, []*Block{left, join}, entry.Successors())
	assert.Equal(t, []*Block{entry, left}, join.Predecessors())
	assert.Empty(t, entry.Predecessors())
	assert.False(t, entry.Args[0].UsedOnlyBy(br))

	var walked []string
	fn.Walk(func(op *Operation) { walked = append(walked, op.Name) })
	assert.Equal(t, []string{"t.func", "t.condbr", "t.br"}, walked)
}

func TestModuleLookupAndRepr(t *testing.T) {
	m := NewModule("m")
	m.Attrs["t.triple"] = "x86_64"

	b := NewBuilder()
	b.SetInsertionPointToEnd(m.Body)
	g := b.Create("t.global", nil, nil, map[string]interface{}{"sym_name": "g", "idx": []int64{1, 2}})
	fn := b.Create("t.func", nil, nil, map[string]interface{}{"sym_name": "f"})

	body := fn.AddRegion()
	inner := b.CreateBlock(body, i32)
	v := b.Create("t.id", []*Value{inner.Args[0]}, []Type{i32}, nil).Result(0)
	b.Create("t.ret", []*Value{v}, nil, nil)

	assert.Same(t, g, m.Lookup("g"))
	assert.Same(t, fn, m.Lookup("f"))
	assert.Nil(t, m.Lookup("h"))
	assert.Same(t, m, v.DefiningOp().Module())
	assert.Equal(t, "t", fn.Dialect())

	out := m.Repr()
	assert.Contains(t, out, `module @m attributes {t.triple = "x86_64"}`)
	assert.Contains(t, out, `idx = array<i64: 1, 2>`)
	assert.Contains(t, out, `"t.id"(%arg0) : (i32) -> (i32)`)
	assert.Contains(t, out, `"t.ret"(%1)`)
}
