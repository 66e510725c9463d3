package generate

import (
	lir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"
	"tlog.app/go/errors"

	"cirlower/ir"
	"cirlower/llvm"
)

// funcGen is the state of the generation of one function body.
type funcGen struct {
	*Generator

	fn *lir.Func

	// blocks maps the blocks of the body onto their LLVM blocks.
	blocks map[*ir.Block]*lir.Block

	// phis stores the phi nodes standing for the arguments of every block
	// but the entry.
	phis map[*ir.Block][]*lir.InstPhi

	// values maps SSA values onto their LLVM values.
	values map[*ir.Value]value.Value

	// block is the LLVM block being generated.
	block *lir.Block
}

// genFuncBody generates the blocks of a function definition.  Blocks keep
// their order but are filled in reverse post-order so that every value is
// generated before its uses.
func (g *Generator) genFuncBody(op *ir.Operation) error {
	body := op.Regions[0]
	if body.Empty() {
		return nil
	}

	fg := &funcGen{
		Generator: g,
		fn:        g.funcs[op.StringAttr(llvm.AttrSymName)],
		blocks:    make(map[*ir.Block]*lir.Block),
		phis:      make(map[*ir.Block][]*lir.InstPhi),
		values:    make(map[*ir.Value]value.Value),
	}

	entry := body.Entry()
	for i, arg := range entry.Args {
		fg.values[arg] = fg.fn.Params[i]
	}

	for _, blk := range body.Blocks {
		lb := fg.fn.NewBlock("")
		fg.blocks[blk] = lb

		if blk == entry {
			continue
		}

		// blocks nothing branches to cannot carry phis
		orphan := len(blk.Predecessors()) == 0
		for _, arg := range blk.Args {
			t, err := g.convType(arg.Type())
			if err != nil {
				return err
			}

			if orphan {
				fg.values[arg] = constant.NewUndef(t)
				continue
			}

			phi := &lir.InstPhi{Typ: t}
			lb.Insts = append(lb.Insts, phi)
			fg.phis[blk] = append(fg.phis[blk], phi)
			fg.values[arg] = phi
		}
	}

	for _, blk := range blockOrder(body) {
		fg.block = fg.blocks[blk]

		for _, inst := range blk.Ops() {
			if err := fg.genOp(inst); err != nil {
				return errors.Wrap(err, "%s", inst.Name)
			}
		}

		if fg.block.Term == nil {
			return errors.New("block has no terminator")
		}
	}

	return nil
}

// blockOrder returns the blocks of r in reverse post-order from the entry,
// followed by the blocks the entry does not reach in their region order.
func blockOrder(r *ir.Region) []*ir.Block {
	visited := make(map[*ir.Block]bool)
	var post []*ir.Block

	var visit func(b *ir.Block)
	visit = func(b *ir.Block) {
		visited[b] = true
		for _, s := range b.Successors() {
			if !visited[s] {
				visit(s)
			}
		}

		post = append(post, b)
	}

	visit(r.Entry())

	order := make([]*ir.Block, 0, len(r.Blocks))
	for i := len(post) - 1; i >= 0; i-- {
		order = append(order, post[i])
	}

	for _, b := range r.Blocks {
		if !visited[b] {
			order = append(order, b)
		}
	}

	return order
}

// -----------------------------------------------------------------------------

func (fg *funcGen) value(v *ir.Value) (value.Value, error) {
	lv, ok := fg.values[v]
	if !ok {
		return nil, errors.New("use of a value before its definition")
	}

	return lv, nil
}

func (fg *funcGen) operands(op *ir.Operation) ([]value.Value, error) {
	return fg.valueList(op.Operands)
}

func (fg *funcGen) valueList(vs []*ir.Value) ([]value.Value, error) {
	lvs := make([]value.Value, len(vs))
	for i, v := range vs {
		lv, err := fg.value(v)
		if err != nil {
			return nil, err
		}

		lvs[i] = lv
	}

	return lvs, nil
}

// addIncoming records the successor operands of a branch as incoming values
// of the phis of its successors.
func (fg *funcGen) addIncoming(op *ir.Operation) error {
	for i, succ := range op.Successors {
		args, err := fg.valueList(op.SuccOperands[i])
		if err != nil {
			return err
		}

		phis := fg.phis[succ]
		if len(args) != len(phis) {
			return errors.New("branch passes %d arguments to a block expecting %d", len(args), len(phis))
		}

		for j, phi := range phis {
			phi.Incs = append(phi.Incs, lir.NewIncoming(args[j], fg.block))
		}
	}

	return nil
}
