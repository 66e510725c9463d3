package rewrite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
	"cirlower/report"
)

func toyTarget() *ConversionTarget {
	target := NewConversionTarget()
	target.AddLegalDialect("llvm")
	target.AddIllegalDialect("toy")
	target.SetLegalType(llvm.IsType)
	return target
}

func toyPatterns() *PatternSet {
	ps := NewPatternSet()

	ps.AddFunc("toy.const", func(op *ir.Operation, r *Rewriter) error {
		v := r.BuildIntConst(llvm.I32, op.Attr("value").(int64))
		r.ReplaceOp(op, v)
		return nil
	})

	ps.AddFunc("toy.neg", func(op *ir.Operation, r *Rewriter) error {
		x := r.Operand(op, 0)
		r.ReplaceOp(op, r.BuildSub(r.BuildIntConst(x.Type(), 0), x, llvm.OverflowNone))
		return nil
	})

	ps.AddFunc("toy.use", func(op *ir.Operation, r *Rewriter) error {
		r.Create("llvm.use", r.LookupAll(op.Operands), nil, nil)
		r.EraseOp(op)
		return nil
	})

	return ps
}

type toyFunc struct {
	mod  *ir.Module
	body *ir.Region
	b    *ir.Builder
}

func newToyFunc() *toyFunc {
	mod := ir.NewModule("toy")
	fn := ir.NewOperation("other.func", nil, nil, nil, nil)
	mod.Body.Append(fn)

	b := ir.NewBuilder()
	body := fn.AddRegion()
	b.CreateBlock(body)

	return &toyFunc{mod: mod, body: body, b: b}
}

func (tf *toyFunc) constant(v int64) *ir.Value {
	return tf.b.Create("toy.const", nil, []ir.Type{cir.S32}, map[string]interface{}{"value": v}).Result(0)
}

func (tf *toyFunc) neg(x *ir.Value) *ir.Operation {
	return tf.b.Create("toy.neg", []*ir.Value{x}, []ir.Type{cir.S32}, nil)
}

func (tf *toyFunc) use(x *ir.Value) *ir.Operation {
	return tf.b.Create("toy.use", []*ir.Value{x}, nil, nil)
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

func requireKind(t *testing.T, err error, kind report.Kind) *report.Diagnostic {
	t.Helper()

	var d *report.Diagnostic
	require.ErrorAs(t, err, &d)
	assert.Equal(t, kind, d.Kind)
	return d
}

// -----------------------------------------------------------------------------

func TestConversionRewritesChain(t *testing.T) {
	tf := newToyFunc()
	c := tf.constant(5)
	n := tf.neg(c)
	tf.use(n.Result(0))

	stats, err := ApplyPartialConversion(context.Background(), tf.mod, nil, toyTarget(), toyPatterns())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Rewritten["toy.const"])
	assert.Equal(t, 1, stats.Rewritten["toy.neg"])
	assert.Equal(t, 1, stats.Rounds)
	assert.Zero(t, countOps(tf.mod, "toy.const")+countOps(tf.mod, "toy.neg")+countOps(tf.mod, "toy.use"))

	// the use now consumes the subtraction
	var use *ir.Operation
	tf.mod.Walk(func(op *ir.Operation) {
		if op.Name == "llvm.use" {
			use = op
		}
	})

	require.NotNil(t, use)
	assert.Equal(t, llvm.OpSub, use.Operands[0].DefiningOp().Name)
	assert.Equal(t, llvm.I32, use.Operands[0].Type())
}

func TestConversionDefersUntilOperandsAreLegal(t *testing.T) {
	tf := newToyFunc()
	c := tf.constant(1)
	n := tf.neg(c)

	// place the consumer before its producer so that the first round must
	// defer it
	n.MoveBefore(c.DefiningOp())

	stats, err := ApplyPartialConversion(context.Background(), tf.mod, nil, toyTarget(), toyPatterns())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rounds)
	assert.Zero(t, countOps(tf.mod, "toy.neg"))
}

func TestConversionFailsWithoutPattern(t *testing.T) {
	tf := newToyFunc()
	tf.b.Create("toy.mystery", nil, nil, nil)

	_, err := ApplyPartialConversion(context.Background(), tf.mod, nil, toyTarget(), toyPatterns())
	d := requireKind(t, err, report.DriverFailure)
	assert.Equal(t, "toy.mystery", d.Op.Name)
}

func TestConversionFailsWithoutProgress(t *testing.T) {
	tf := newToyFunc()

	// produced by an operation that is never converted
	opaque := tf.b.Create("other.opaque", nil, []ir.Type{cir.S32}, nil).Result(0)
	tf.neg(opaque)

	_, err := ApplyPartialConversion(context.Background(), tf.mod, nil, toyTarget(), toyPatterns())
	d := requireKind(t, err, report.DriverFailure)
	assert.Equal(t, "toy.neg", d.Op.Name)
}

func TestConversionTriesNextPatternOnNoMatch(t *testing.T) {
	tf := newToyFunc()
	tf.constant(3)

	ps := NewPatternSet()
	ps.AddFunc("toy.const", func(op *ir.Operation, r *Rewriter) error {
		// created operations of a failed match are discarded
		r.BuildIntConst(llvm.I64, 99)
		return ErrNoMatch
	})
	ps.Add(toyPatterns().For("toy.const")...)

	_, err := ApplyPartialConversion(context.Background(), tf.mod, nil, toyTarget(), ps)
	require.NoError(t, err)

	consts := 0
	tf.mod.Walk(func(op *ir.Operation) {
		if op.Name == llvm.OpConstant {
			consts++
			assert.Equal(t, llvm.I32, op.Result(0).Type())
		}
	})

	assert.Equal(t, 1, consts)
}

func TestConversionOnlyReachesLiveBlocks(t *testing.T) {
	tf := newToyFunc()
	tf.b.Create("other.return", nil, nil, nil)

	// a block without predecessors
	tf.b.CreateBlock(tf.body)
	tf.constant(7)

	_, err := ApplyPartialConversion(context.Background(), tf.mod, nil, toyTarget(), toyPatterns())
	requireKind(t, err, report.DriverFailure)

	// supplying the dead operations lets the conversion complete
	tf = newToyFunc()
	tf.b.Create("other.return", nil, nil, nil)
	dead := tf.b.CreateBlock(tf.body)
	deadConst := tf.constant(7)
	require.Len(t, dead.Ops(), 1)

	stats, err := ApplyPartialConversion(context.Background(), tf.mod, []*ir.Operation{deadConst.DefiningOp()}, toyTarget(), toyPatterns())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Extra)
	assert.Equal(t, llvm.OpConstant, dead.Ops()[0].Name)
}

func TestReachableBlocks(t *testing.T) {
	tf := newToyFunc()
	entry := tf.body.Entry()

	b1 := ir.NewBlock()
	b2 := ir.NewBlock()
	b3 := ir.NewBlock()
	tf.body.AddBlock(b1)
	tf.body.AddBlock(b2)
	tf.body.AddBlock(b3)

	br := tf.b.Create("other.br", nil, nil, nil)
	br.AddSuccessor(b2, nil)

	tf.b.SetInsertionPointToEnd(b2)
	loop := tf.b.Create("other.br", nil, nil, nil)
	loop.AddSuccessor(entry, nil)

	tf.b.SetInsertionPointToEnd(b3)
	tf.b.Create("other.br", nil, nil, nil).AddSuccessor(b1, nil)

	assert.Equal(t, []*ir.Block{entry, b2}, ReachableBlocks(tf.body))
	assert.Empty(t, ReachableBlocks(&ir.Region{}))
}

func TestTargetLegality(t *testing.T) {
	target := toyTarget()
	target.AddLegalOp("toy.keep")
	target.AddIllegalOp("other.bad")

	legal := func(name string) bool {
		return target.IsLegal(ir.NewOperation(name, nil, nil, nil, nil))
	}

	assert.True(t, legal("llvm.add"))
	assert.True(t, legal("toy.keep"))
	assert.True(t, legal("other.thing"))
	assert.False(t, legal("toy.neg"))
	assert.False(t, legal("other.bad"))

	assert.True(t, target.IsLegalType(llvm.I32))
	assert.False(t, target.IsLegalType(cir.S32))
}
