package rewrite

import (
	"context"

	"tlog.app/go/tlog"

	"cirlower/ir"
	"cirlower/report"
)

// Stats summarizes a conversion.
type Stats struct {
	// Rewritten counts the operations rewritten per operation name.
	Rewritten map[string]int

	// Extra is the number of additional operations that were not reached by
	// walking the module.
	Extra int

	// Rounds is the number of passes over the worklist.
	Rounds int
}

// Driver applies a pattern set to a module until every illegal operation has
// been rewritten or no more progress can be made.
type Driver struct {
	target   *ConversionTarget
	patterns *PatternSet

	// rw is the rewriter shared by every pattern application.
	rw *Rewriter

	// queued marks the operations currently in the worklist.
	queued map[*ir.Operation]bool

	stats *Stats
}

// ApplyPartialConversion converts every illegal operation of mod reached from
// the entry blocks of its regions, plus the operations in extra, using
// patterns.  Operations that are legal or belong to unknown dialects are left
// untouched.  Operations whose operands are not yet of a legal type are
// deferred until their producers have been rewritten.
func ApplyPartialConversion(ctx context.Context, mod *ir.Module, extra []*ir.Operation, target *ConversionTarget, patterns *PatternSet) (stats *Stats, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "rewrite: conversion", "module", mod.Name, "patterns", patterns.Len())
	defer tr.Finish("err", &err)

	d := &Driver{
		target:   target,
		patterns: patterns,
		rw:       NewRewriter(mod),
		queued:   make(map[*ir.Operation]bool),
		stats:    &Stats{Rewritten: make(map[string]int)},
	}

	worklist := d.collect(mod)
	for _, op := range extra {
		if d.enqueue(op) {
			worklist = append(worklist, op)
			d.stats.Extra++
		}
	}

	tr.Printw("collected operations", "count", len(worklist), "extra", d.stats.Extra)

	if err = d.run(tr, worklist); err != nil {
		return nil, err
	}

	d.finalize(mod)

	if err = d.verify(mod); err != nil {
		return nil, err
	}

	return d.stats, nil
}

// -----------------------------------------------------------------------------

// collect gathers the illegal operations of mod in pre-order, descending only
// into the blocks reachable from the entry block of each region.
func (d *Driver) collect(mod *ir.Module) []*ir.Operation {
	var worklist []*ir.Operation

	var visitOp func(op *ir.Operation)
	visitOp = func(op *ir.Operation) {
		if !d.target.IsLegal(op) && d.enqueue(op) {
			worklist = append(worklist, op)
		}

		for _, r := range op.Regions {
			for _, blk := range ReachableBlocks(r) {
				for _, nested := range blk.Ops() {
					visitOp(nested)
				}
			}
		}
	}

	for _, op := range mod.Body.Ops() {
		visitOp(op)
	}

	return worklist
}

// ReachableBlocks returns the blocks of r reachable from its entry block in
// depth-first pre-order.
func ReachableBlocks(r *ir.Region) []*ir.Block {
	if r.Empty() {
		return nil
	}

	var order []*ir.Block
	visited := make(map[*ir.Block]bool)

	stack := []*ir.Block{r.Entry()}
	for len(stack) > 0 {
		blk := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[blk] {
			continue
		}

		visited[blk] = true
		order = append(order, blk)

		succs := blk.Successors()
		for i := len(succs) - 1; i >= 0; i-- {
			if !visited[succs[i]] {
				stack = append(stack, succs[i])
			}
		}
	}

	return order
}

func (d *Driver) enqueue(op *ir.Operation) bool {
	if d.queued[op] {
		return false
	}

	d.queued[op] = true
	return true
}

// -----------------------------------------------------------------------------

// run rewrites the worklist round after round.  A round that rewrites nothing
// while operations remain pending is a failure.
func (d *Driver) run(tr tlog.Span, worklist []*ir.Operation) error {
	for len(worklist) > 0 {
		d.stats.Rounds++

		var (
			pending  []*ir.Operation
			progress bool
		)

		for _, op := range worklist {
			if op.Erased() || d.target.IsLegal(op) {
				continue
			}

			if !d.ready(op) {
				pending = append(pending, op)
				continue
			}

			if err := d.apply(tr, op); err != nil {
				return err
			}

			progress = true

			// newly created operations that are themselves illegal are
			// rewritten in the next round
			for _, created := range d.rw.takeCreated() {
				created.Walk(func(nested *ir.Operation) {
					if !d.target.IsLegal(nested) && d.enqueue(nested) {
						pending = append(pending, nested)
					}
				})
			}
		}

		if len(pending) > 0 && !progress {
			return report.Raise(report.DriverFailure, pending[0],
				"failed to legalize operation: %d operation(s) still depend on unconverted values", len(pending))
		}

		worklist = pending
	}

	return nil
}

// ready returns whether every operand of op, after remapping, has a legal type.
func (d *Driver) ready(op *ir.Operation) bool {
	for _, v := range op.Operands {
		if !d.target.IsLegalType(d.rw.Lookup(v).Type()) {
			return false
		}
	}

	for _, succOps := range op.SuccOperands {
		for _, v := range succOps {
			if !d.target.IsLegalType(d.rw.Lookup(v).Type()) {
				return false
			}
		}
	}

	return true
}

// apply tries every pattern registered for op until one succeeds.
func (d *Driver) apply(tr tlog.Span, op *ir.Operation) error {
	patterns := d.patterns.For(op.Name)
	if len(patterns) == 0 {
		return report.Raise(report.DriverFailure, op, "failed to legalize operation: no lowering rule registered")
	}

	for _, p := range patterns {
		d.rw.Loc = op.Loc
		d.rw.SetInsertionPointBefore(op)

		err := p.MatchAndRewrite(op, d.rw)
		if err == ErrNoMatch {
			// discard anything a failed match may have created
			for _, created := range d.rw.takeCreated() {
				created.Erase()
			}

			continue
		} else if err != nil {
			return err
		}

		if !op.Erased() {
			return report.Raise(report.DriverFailure, op, "lowering rule neither replaced nor erased the operation")
		}

		d.stats.Rewritten[op.Name]++
		tr.V("rewrite").Printw("rewrote operation", "op", op.Name)
		return nil
	}

	return report.Raise(report.DriverFailure, op, "failed to legalize operation: no lowering rule applies")
}

// -----------------------------------------------------------------------------

// finalize redirects every remaining use of a replaced value to its
// replacement.
func (d *Driver) finalize(mod *ir.Module) {
	mod.Walk(func(op *ir.Operation) {
		for i, v := range op.Operands {
			if mapped := d.rw.Lookup(v); mapped != v {
				op.SetOperand(i, mapped)
			}
		}

		for s, succOps := range op.SuccOperands {
			for i, v := range succOps {
				if mapped := d.rw.Lookup(v); mapped != v {
					op.SetSuccessorOperand(s, i, mapped)
				}
			}
		}
	})
}

// verify checks that no illegal operation and no reference to an erased
// operation remains.
func (d *Driver) verify(mod *ir.Module) error {
	var err error

	check := func(op *ir.Operation, v *ir.Value) {
		if err != nil {
			return
		}

		if def := v.DefiningOp(); def != nil && def.Erased() {
			err = report.Raise(report.DriverFailure, op, "operand refers to a value whose producer was erased")
		}
	}

	mod.Walk(func(op *ir.Operation) {
		if err != nil {
			return
		}

		if !d.target.IsLegal(op) {
			err = report.Raise(report.DriverFailure, op, "failed to legalize operation")
			return
		}

		for _, v := range op.Operands {
			check(op, v)
		}

		for _, succOps := range op.SuccOperands {
			for _, v := range succOps {
				check(op, v)
			}
		}
	})

	return err
}
