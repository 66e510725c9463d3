package rewrite

import "cirlower/ir"

// ConversionTarget declares which operations and types are legal after the
// conversion.  Operations of unknown dialects are left untouched.
type ConversionTarget struct {
	legalOps        map[string]bool
	illegalOps      map[string]bool
	legalDialects   map[string]bool
	illegalDialects map[string]bool

	legalType func(ir.Type) bool
}

// NewConversionTarget creates a target on which every type is legal.
func NewConversionTarget() *ConversionTarget {
	return &ConversionTarget{
		legalOps:        make(map[string]bool),
		illegalOps:      make(map[string]bool),
		legalDialects:   make(map[string]bool),
		illegalDialects: make(map[string]bool),
		legalType:       func(ir.Type) bool { return true },
	}
}

// AddLegalOp marks the named operations legal.
func (ct *ConversionTarget) AddLegalOp(names ...string) {
	for _, n := range names {
		ct.legalOps[n] = true
	}
}

// AddIllegalOp marks the named operations illegal.
func (ct *ConversionTarget) AddIllegalOp(names ...string) {
	for _, n := range names {
		ct.illegalOps[n] = true
	}
}

// AddLegalDialect marks every operation of the named dialects legal.
func (ct *ConversionTarget) AddLegalDialect(dialects ...string) {
	for _, d := range dialects {
		ct.legalDialects[d] = true
	}
}

// AddIllegalDialect marks every operation of the named dialects illegal.
func (ct *ConversionTarget) AddIllegalDialect(dialects ...string) {
	for _, d := range dialects {
		ct.illegalDialects[d] = true
	}
}

// SetLegalType installs the predicate deciding which value types are final.
func (ct *ConversionTarget) SetLegalType(fn func(ir.Type) bool) {
	ct.legalType = fn
}

// IsLegal returns whether op may remain in the converted module.  Operation
// rules take precedence over dialect rules.
func (ct *ConversionTarget) IsLegal(op *ir.Operation) bool {
	if ct.legalOps[op.Name] {
		return true
	}

	if ct.illegalOps[op.Name] {
		return false
	}

	d := op.Dialect()
	if ct.legalDialects[d] {
		return true
	}

	return !ct.illegalDialects[d]
}

// IsLegalType returns whether values of type t are in their final form.
func (ct *ConversionTarget) IsLegalType(t ir.Type) bool {
	return ct.legalType(t)
}
