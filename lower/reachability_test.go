package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cirlower/cir"
	"cirlower/eval"
	"cirlower/ir"
)

// orphanChain builds a function whose entry block returns its argument,
// followed by two blocks B1 -> B2 that no entry block reaches.
func orphanChain() (*ir.Module, *ir.Operation, []*ir.Block) {
	mod := ir.NewModule("orphans")
	b, entry := newFunc(mod, "id", cir.Func(cir.S32, cir.S32))
	b.Return(entry.Args[0])

	fn := entry.ParentOp()
	b1 := fn.Regions[0].AddBlock(ir.NewBlock())
	b2 := fn.Regions[0].AddBlock(ir.NewBlock(cir.S32))

	b.SetInsertionPointToEnd(b1)
	b.Br(b2, b.ConstInt(cir.S32, 7))

	b.SetInsertionPointToEnd(b2)
	b.Return(b2.Args[0])

	return mod, fn, []*ir.Block{b1, b2}
}

func TestCollectUnreachableFollowsSuccessors(t *testing.T) {
	_, fn, orphans := orphanChain()

	ops := CollectUnreachable(fn.Regions[0])

	var want []*ir.Operation
	for _, blk := range orphans {
		want = append(want, blk.Ops()...)
	}

	assert.ElementsMatch(t, want, ops)
}

func TestCollectUnreachableIgnoresReachableBlocks(t *testing.T) {
	mod := ir.NewModule("reachable")
	b, entry := newFunc(mod, "jump", cir.Func(cir.S32, cir.S32))

	exit := entry.ParentOp().Regions[0].AddBlock(ir.NewBlock(cir.S32))
	b.Br(exit, entry.Args[0])

	b.SetInsertionPointToEnd(exit)
	b.Return(exit.Args[0])

	assert.Empty(t, CollectModuleUnreachable(mod))
}

func TestUnreachableBlocksAreLoweredOnce(t *testing.T) {
	mod, _, _ := orphanChain()

	res := lowerModule(t, mod)
	assertNoSourceOps(t, res.Module)

	assert.Equal(t, 3, res.Stats.Extra)
	assert.Equal(t, 2, res.Stats.Rewritten[cir.OpReturn])
	assert.Equal(t, 1, res.Stats.Rewritten[cir.OpBr])
	assert.Equal(t, 1, res.Stats.Rewritten[cir.OpConst])

	v := call(t, machine(t, res.Module), "id", eval.MakeInt(32, 5))
	require.NotNil(t, v)
	assert.Equal(t, eval.MakeInt(32, 5), v)
}
