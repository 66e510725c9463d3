package report

import (
	"fmt"

	"cirlower/ir"
)

// Kind classifies a lowering diagnostic.
type Kind int

// Enumeration of diagnostic kinds
const (
	// A source type has no target mapping.
	UnsupportedType Kind = iota

	// A constant attribute has no materialization.
	UnsupportedConstant

	// An operand/type combination is not covered by any rule.
	UnsupportedOperation

	// Malformed input detected by a rule (eg. an oversized bitfield).
	InvariantViolation

	// The rewrite driver could not legalize the module.
	DriverFailure
)

var kindNames = map[Kind]string{
	UnsupportedType:      "unsupported type",
	UnsupportedConstant:  "unsupported constant",
	UnsupportedOperation: "unsupported operation",
	InvariantViolation:   "invariant violation",
	DriverFailure:        "legalization failure",
}

func (k Kind) String() string {
	return kindNames[k]
}

// -----------------------------------------------------------------------------

// Diagnostic is the error produced by every failing lowering rule.  It names
// the offending operation and the unsupported combination.
type Diagnostic struct {
	// Kind is the class of the failure.
	Kind Kind

	// Op is the operation the failure was detected on.  It may be nil for
	// failures not tied to an operation.
	Op *ir.Operation

	// Message describes the failure.
	Message string
}

func (d *Diagnostic) Error() string {
	if d.Op == nil {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}

	return fmt.Sprintf("%s: '%s' op %s", d.Op.Loc.Repr(), d.Op.Name, d.Message)
}

// Raise creates a new diagnostic of the given kind on op.
func Raise(kind Kind, op *ir.Operation, msg string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: kind, Op: op, Message: fmt.Sprintf(msg, args...)}
}
