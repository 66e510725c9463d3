package rewrite

import (
	"cirlower/ir"
	"cirlower/llvm"
)

// Rewriter is handed to patterns.  It builds target operations right before
// the operation being rewritten and records the mapping from replaced values
// to their replacements: operations that are not converted yet keep referring
// to the original values, so patterns can still inspect the source types of
// their operands and read the converted operands through Lookup.
type Rewriter struct {
	*llvm.IRBuilder

	// Module is the module being converted.
	Module *ir.Module

	// mapping redirects replaced values to their replacements.
	mapping map[*ir.Value]*ir.Value

	// created collects the operations inserted since the last reset.
	created []*ir.Operation
}

// NewRewriter creates a rewriter for mod.
func NewRewriter(mod *ir.Module) *Rewriter {
	r := &Rewriter{
		Module:  mod,
		mapping: make(map[*ir.Value]*ir.Value),
	}

	b := ir.NewBuilder()
	b.Listener = func(op *ir.Operation) {
		r.created = append(r.created, op)
	}

	r.IRBuilder = llvm.NewIRBuilder(b)
	return r
}

// Lookup returns the latest replacement of v, or v itself if it was never
// replaced.
func (r *Rewriter) Lookup(v *ir.Value) *ir.Value {
	for {
		next, ok := r.mapping[v]
		if !ok {
			return v
		}

		v = next
	}
}

// LookupAll maps Lookup over vals.
func (r *Rewriter) LookupAll(vals []*ir.Value) []*ir.Value {
	mapped := make([]*ir.Value, len(vals))
	for i, v := range vals {
		mapped[i] = r.Lookup(v)
	}

	return mapped
}

// Operand returns the converted i'th operand of op.
func (r *Rewriter) Operand(op *ir.Operation, i int) *ir.Value {
	return r.Lookup(op.Operands[i])
}

// MapValue records that from is replaced by to.
func (r *Rewriter) MapValue(from, to *ir.Value) {
	if from != to {
		r.mapping[from] = to
	}
}

// ReplaceOp replaces the results of op with vals and erases op.
func (r *Rewriter) ReplaceOp(op *ir.Operation, vals ...*ir.Value) {
	if len(vals) != len(op.Results) {
		panic("rewrite: replacement count does not match result count of " + op.Name)
	}

	for i, res := range op.Results {
		r.MapValue(res, vals[i])
	}

	op.Erase()
}

// ReplaceOpWith replaces op by the results of newOp.
func (r *Rewriter) ReplaceOpWith(op, newOp *ir.Operation) {
	r.ReplaceOp(op, newOp.Results...)
}

// EraseOp erases an operation whose results are unused.
func (r *Rewriter) EraseOp(op *ir.Operation) {
	op.Erase()
}

// IsUnused returns whether no live operation uses any result of op, either
// directly or through a replaced value.  except is ignored as a user.
func (r *Rewriter) IsUnused(op *ir.Operation, except *ir.Operation) bool {
	for _, res := range op.Results {
		if !res.UsedOnlyBy(except) {
			return false
		}

		for from, to := range r.mapping {
			if to == res && !from.UsedOnlyBy(except) {
				return false
			}
		}
	}

	return true
}

// -----------------------------------------------------------------------------

// ConvertRegionTypes rewrites the argument types of every block of region
// with conv.  Fresh arguments replace the original ones, which stay mapped to
// them so that unconverted users keep seeing the source types.
func (r *Rewriter) ConvertRegionTypes(region *ir.Region, conv func(ir.Type) (ir.Type, error)) error {
	for _, blk := range region.Blocks {
		for i, arg := range blk.Args {
			t, err := conv(arg.Type())
			if err != nil {
				return err
			}

			old, fresh := blk.ReplaceArgument(i, t)
			r.MapValue(old, fresh)
		}
	}

	return nil
}

// InlineRegion moves every block of src at the end of dst.
func (r *Rewriter) InlineRegion(src, dst *ir.Region) {
	dst.TakeBody(src)
}

func (r *Rewriter) takeCreated() []*ir.Operation {
	created := r.created
	r.created = nil
	return created
}
