package llvm

import (
	"sync"

	"cirlower/ir"
)

// FuncOpts are the properties of a target function.
type FuncOpts struct {
	Linkage    Linkage
	Visibility Visibility
	DSOLocal   bool

	// Attrs are carried over verbatim from the source function.
	Attrs map[string]interface{}
}

// BuildFunc creates a target function with an empty body region.  Callers
// either move an existing body into the region or leave it empty for
// declarations.
func (b *IRBuilder) BuildFunc(name string, ft *FuncType, opts FuncOpts) *ir.Operation {
	attrs := make(map[string]interface{}, len(opts.Attrs)+4)
	for k, v := range opts.Attrs {
		attrs[k] = v
	}

	attrs[AttrSymName] = name
	attrs[AttrFunctionType] = ft
	attrs[AttrLinkage] = opts.Linkage
	attrs[AttrVisibility] = opts.Visibility
	if opts.DSOLocal {
		attrs[AttrDSOLocal] = true
	}

	op := b.Create(OpFunc, nil, nil, attrs)
	op.AddRegion()
	return op
}

// -----------------------------------------------------------------------------

// GlobalOpts are the properties of a target global variable.
type GlobalOpts struct {
	Name       string
	Type       ir.Type
	Constant   bool
	Linkage    Linkage
	Visibility Visibility
	DSOLocal   bool
	AddrSpace  uint
	Alignment  uint64

	// Value is a literal initializer.  It is ignored when an initializer
	// callback is given.
	Value Constant
}

// BuildGlobal creates a target global variable.  If init is not nil, it is
// called once with a builder positioned in the single block of the global's
// initializer region and must return the initial value, which the region then
// returns.
func (b *IRBuilder) BuildGlobal(opts GlobalOpts, init func(b *IRBuilder) *ir.Value) *ir.Operation {
	attrs := map[string]interface{}{
		AttrSymName:    opts.Name,
		AttrGlobalType: opts.Type,
		AttrLinkage:    opts.Linkage,
		AttrVisibility: opts.Visibility,
		AttrAddrSpace:  opts.AddrSpace,
	}

	if opts.Constant {
		attrs[AttrConstant] = true
	}

	if opts.DSOLocal {
		attrs[AttrDSOLocal] = true
	}

	if opts.Alignment != 0 {
		attrs[AttrAlignment] = opts.Alignment
	}

	if opts.Value != nil && init == nil {
		attrs[AttrValue] = opts.Value
	}

	op := b.Create(OpGlobal, nil, nil, attrs)
	region := op.AddRegion()

	if init != nil {
		ip := b.SaveInsertionPoint()
		defer b.RestoreInsertionPoint(ip)

		b.CreateBlock(region)
		b.BuildReturn(init(b))
	}

	return op
}

// GlobalInitializer returns the initializer region of a global or nil if the
// global has a literal initializer or none at all.
func GlobalInitializer(op *ir.Operation) *ir.Region {
	if len(op.Regions) == 0 || op.Regions[0].Empty() {
		return nil
	}

	return op.Regions[0]
}

// -----------------------------------------------------------------------------

// ComdatContainerName is the name of the module level COMDAT container.
const ComdatContainerName = "__llvm_comdat_globals"

// ComdatRef is the COMDAT attribute of a global: a selector inside a
// container.
type ComdatRef struct {
	Container, Selector string
}

func (cr *ComdatRef) Repr() string {
	return "@" + cr.Container + "::@" + cr.Selector
}

// ComdatTable lazily creates one COMDAT container per module.  It is safe for
// concurrent use.
type ComdatTable struct {
	m          sync.Mutex
	containers map[*ir.Module]*ir.Operation
}

// NewComdatTable creates an empty side table.
func NewComdatTable() *ComdatTable {
	return &ComdatTable{containers: make(map[*ir.Module]*ir.Operation)}
}

// GetOrInsert returns the COMDAT container of mod, creating it at the start of
// the module body on first use.
func (ct *ComdatTable) GetOrInsert(mod *ir.Module) *ir.Operation {
	ct.m.Lock()
	defer ct.m.Unlock()

	return ct.getOrInsert(mod)
}

func (ct *ComdatTable) getOrInsert(mod *ir.Module) *ir.Operation {
	if op, ok := ct.containers[mod]; ok {
		return op
	}

	b := ir.NewBuilder()
	b.SetInsertionPointToStart(mod.Body)
	op := b.Create(OpComdat, nil, nil, map[string]interface{}{AttrSymName: ComdatContainerName})
	op.AddRegion().AddBlock(ir.NewBlock())

	ct.containers[mod] = op
	return op
}

// AddSelector declares a selector for sym in the container of mod and returns
// the reference to attach to the global.
func (ct *ComdatTable) AddSelector(mod *ir.Module, sym string, sel ComdatSelection) *ComdatRef {
	ct.m.Lock()
	defer ct.m.Unlock()

	container := ct.getOrInsert(mod)

	b := ir.NewBuilder()
	b.SetInsertionPointToEnd(container.Regions[0].Entry())
	b.Create(OpComdatSelector, nil, nil, map[string]interface{}{
		AttrSymName:   sym,
		AttrSelection: sel,
	})

	return &ComdatRef{Container: ComdatContainerName, Selector: sym}
}
