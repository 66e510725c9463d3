package rewrite

import (
	"cirlower/ir"

	"tlog.app/go/errors"
)

// ErrNoMatch is returned by a pattern that does not apply to an operation.
// The driver then tries the next pattern registered for the same operation.
var ErrNoMatch = errors.New("pattern does not match")

// Pattern rewrites one kind of operation.
type Pattern interface {
	// OpName returns the name of the operations the pattern applies to.
	OpName() string

	// MatchAndRewrite replaces or erases op using r.  It returns ErrNoMatch
	// if it does not apply, or any other error to abort the conversion.
	MatchAndRewrite(op *ir.Operation, r *Rewriter) error
}

// PatternFunc adapts a function to the Pattern interface.
type PatternFunc struct {
	Name string
	Fn   func(op *ir.Operation, r *Rewriter) error
}

func (pf PatternFunc) OpName() string {
	return pf.Name
}

func (pf PatternFunc) MatchAndRewrite(op *ir.Operation, r *Rewriter) error {
	return pf.Fn(op, r)
}

// -----------------------------------------------------------------------------

// PatternSet is a registry of patterns keyed by operation name.  Patterns for
// the same operation are tried in registration order.
type PatternSet struct {
	patterns map[string][]Pattern
	count    int
}

// NewPatternSet creates an empty pattern set.
func NewPatternSet() *PatternSet {
	return &PatternSet{patterns: make(map[string][]Pattern)}
}

// Add registers patterns.
func (ps *PatternSet) Add(patterns ...Pattern) {
	for _, p := range patterns {
		ps.patterns[p.OpName()] = append(ps.patterns[p.OpName()], p)
		ps.count++
	}
}

// AddFunc registers a pattern function for the named operation.
func (ps *PatternSet) AddFunc(name string, fn func(op *ir.Operation, r *Rewriter) error) {
	ps.Add(PatternFunc{Name: name, Fn: fn})
}

// For returns the patterns registered for the named operation.
func (ps *PatternSet) For(name string) []Pattern {
	return ps.patterns[name]
}

// Len returns the number of registered patterns.
func (ps *PatternSet) Len() int {
	return ps.count
}
