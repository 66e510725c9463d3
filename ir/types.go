package ir

import (
	"fmt"
	"strings"
)

// Type represents a type that can be attached to a value in the IR graph. Both
// the source dialect and the target dialect define their own type universes:
// the graph itself only needs to be able to print them.
type Type interface {
	// Repr returns the string representation of the type.
	Repr() string
}

// -----------------------------------------------------------------------------

// Location is the source location attached to an operation.
type Location interface {
	Repr() string
}

// UnknownLoc is used when no location information is available.
type UnknownLoc struct{}

func (UnknownLoc) Repr() string {
	return "loc(unknown)"
}

// FileLoc is a position in a source file.  Line and column are one-indexed.
type FileLoc struct {
	File      string
	Line, Col int
}

func (fl FileLoc) Repr() string {
	return fmt.Sprintf("loc(%q:%d:%d)", fl.File, fl.Line, fl.Col)
}

// FusedLoc is a location made of several other locations: eg. a definition
// that spans multiple source ranges.
type FusedLoc struct {
	Locs []Location
}

func (fl FusedLoc) Repr() string {
	sb := strings.Builder{}
	sb.WriteString("loc(fused[")
	for i, l := range fl.Locs {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(l.Repr())
	}
	sb.WriteString("])")
	return sb.String()
}
