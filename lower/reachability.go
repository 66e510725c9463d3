package lower

import "cirlower/ir"

// CollectUnreachable returns the operations of every block of r, and of the
// regions nested in them, that cannot be reached from an entry block: blocks
// without predecessors that are not an entry block, and everything reachable
// from them through successor edges.  Each block is visited at most once.
func CollectUnreachable(r *ir.Region) []*ir.Operation {
	var roots []*ir.Block
	collectOrphans(r, &roots)

	return collectFrom(roots)
}

// CollectModuleUnreachable is CollectUnreachable over every region of mod.
func CollectModuleUnreachable(mod *ir.Module) []*ir.Operation {
	var roots []*ir.Block
	for _, op := range mod.Body.Ops() {
		for _, r := range op.Regions {
			collectOrphans(r, &roots)
		}
	}

	return collectFrom(roots)
}

// collectOrphans appends the orphan blocks of r and of all the regions nested
// in it to roots.
func collectOrphans(r *ir.Region, roots *[]*ir.Block) {
	for _, blk := range r.Blocks {
		if !blk.IsEntry() && len(blk.Predecessors()) == 0 {
			*roots = append(*roots, blk)
		}

		for _, op := range blk.Ops() {
			for _, nested := range op.Regions {
				collectOrphans(nested, roots)
			}
		}
	}
}

// collectFrom walks the successor graph from every root with an explicit
// stack and gathers the operations of the visited blocks in order.
func collectFrom(roots []*ir.Block) []*ir.Operation {
	var ops []*ir.Operation
	visited := make(map[*ir.Block]bool)
	seen := make(map[*ir.Operation]bool)

	for _, root := range roots {
		stack := []*ir.Block{root}

		for len(stack) > 0 {
			blk := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if visited[blk] {
				continue
			}

			visited[blk] = true

			for _, op := range blk.Ops() {
				op.Walk(func(nested *ir.Operation) {
					// orphans nested in an orphan block are also roots
					if !seen[nested] {
						seen[nested] = true
						ops = append(ops, nested)
					}
				})
			}

			for _, succ := range blk.Successors() {
				if !visited[succ] {
					stack = append(stack, succ)
				}
			}
		}
	}

	return ops
}
