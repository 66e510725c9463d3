package ir

// Module is the root of the IR graph: a named list of top-level operations
// (functions, globals, etc.) plus module level attributes.
type Module struct {
	// Name is the name of the module.
	Name string

	// Attrs stores the module level attributes (eg. the target triple).
	Attrs map[string]interface{}

	// Body is the block holding the top-level operations.
	Body *Block
}

// NewModule creates a new empty module.
func NewModule(name string) *Module {
	m := &Module{
		Name:  name,
		Attrs: make(map[string]interface{}),
		Body:  &Block{},
	}

	m.Body.module = m
	return m
}

// Lookup returns the top-level operation whose `sym_name` attribute equals
// sym or nil if there is none.
func (m *Module) Lookup(sym string) *Operation {
	for _, op := range m.Body.ops {
		if op.StringAttr("sym_name") == sym {
			return op
		}
	}

	return nil
}

// Walk calls fn on every operation of the module in pre-order.
func (m *Module) Walk(fn func(*Operation)) {
	ops := append([]*Operation(nil), m.Body.ops...)
	for _, op := range ops {
		op.Walk(fn)
	}
}
