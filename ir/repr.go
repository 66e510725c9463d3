package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Reprer is implemented by attribute values that have a custom textual form.
type Reprer interface {
	Repr() string
}

// printer renders the generic textual form of the IR graph.
type printer struct {
	sb     strings.Builder
	names  map[*Value]string
	blocks map[*Block]string
	nextID int
}

// Repr returns the generic textual form of the module.
func (m *Module) Repr() string {
	p := newPrinter()

	p.sb.WriteString("module @" + m.Name)
	if len(m.Attrs) > 0 {
		p.sb.WriteString(" attributes ")
		p.printAttrs(m.Attrs)
	}
	p.sb.WriteString(" {\n")

	for _, op := range m.Body.ops {
		p.printOp(op, 1)
	}

	p.sb.WriteString("}\n")
	return p.sb.String()
}

// Repr returns the generic textual form of a single operation.
func (op *Operation) Repr() string {
	p := newPrinter()
	p.printOp(op, 0)
	return strings.TrimRight(p.sb.String(), "\n")
}

func newPrinter() *printer {
	return &printer{
		names:  make(map[*Value]string),
		blocks: make(map[*Block]string),
	}
}

// -----------------------------------------------------------------------------

func (p *printer) valueName(v *Value) string {
	if v == nil {
		return "<<null>>"
	}

	if name, ok := p.names[v]; ok {
		return name
	}

	var name string
	if v.IsBlockArg() {
		name = fmt.Sprintf("%%arg%d", p.nextID)
	} else {
		name = fmt.Sprintf("%%%d", p.nextID)
	}

	p.nextID++
	p.names[v] = name
	return name
}

func (p *printer) blockName(b *Block) string {
	if name, ok := p.blocks[b]; ok {
		return name
	}

	name := fmt.Sprintf("^bb%d", len(p.blocks))
	p.blocks[b] = name
	return name
}

func (p *printer) printOp(op *Operation, depth int) {
	indent := strings.Repeat("  ", depth)
	p.sb.WriteString(indent)

	if len(op.Results) > 0 {
		for i, r := range op.Results {
			if i > 0 {
				p.sb.WriteString(", ")
			}

			p.sb.WriteString(p.valueName(r))
		}

		p.sb.WriteString(" = ")
	}

	p.sb.WriteString("\"" + op.Name + "\"(")
	for i, v := range op.Operands {
		if i > 0 {
			p.sb.WriteString(", ")
		}

		p.sb.WriteString(p.valueName(v))
	}
	p.sb.WriteString(")")

	if len(op.Successors) > 0 {
		p.sb.WriteString("[")
		for i, succ := range op.Successors {
			if i > 0 {
				p.sb.WriteString(", ")
			}

			p.sb.WriteString(p.blockName(succ))
			if fwd := op.SuccOperands[i]; len(fwd) > 0 {
				p.sb.WriteString("(")
				for j, v := range fwd {
					if j > 0 {
						p.sb.WriteString(", ")
					}

					p.sb.WriteString(p.valueName(v) + " : " + reprType(v.Type()))
				}
				p.sb.WriteString(")")
			}
		}
		p.sb.WriteString("]")
	}

	if len(op.Regions) > 0 {
		p.sb.WriteString(" (")
		for i, r := range op.Regions {
			if i > 0 {
				p.sb.WriteString(", ")
			}

			p.printRegion(r, depth)
		}
		p.sb.WriteString(")")
	}

	if len(op.Attrs) > 0 {
		p.sb.WriteString(" ")
		p.printAttrs(op.Attrs)
	}

	p.sb.WriteString(" : (")
	for i, v := range op.Operands {
		if i > 0 {
			p.sb.WriteString(", ")
		}

		p.sb.WriteString(reprType(v.Type()))
	}
	p.sb.WriteString(") -> (")
	for i, r := range op.Results {
		if i > 0 {
			p.sb.WriteString(", ")
		}

		p.sb.WriteString(reprType(r.Type()))
	}
	p.sb.WriteString(")\n")
}

func (p *printer) printRegion(r *Region, depth int) {
	p.sb.WriteString("{\n")

	for _, b := range r.Blocks {
		p.sb.WriteString(strings.Repeat("  ", depth) + p.blockName(b))
		if len(b.Args) > 0 {
			p.sb.WriteString("(")
			for i, a := range b.Args {
				if i > 0 {
					p.sb.WriteString(", ")
				}

				p.sb.WriteString(p.valueName(a) + ": " + reprType(a.Type()))
			}
			p.sb.WriteString(")")
		}
		p.sb.WriteString(":\n")

		for _, op := range b.ops {
			p.printOp(op, depth+1)
		}
	}

	p.sb.WriteString(strings.Repeat("  ", depth) + "}")
}

func (p *printer) printAttrs(attrs map[string]interface{}) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p.sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			p.sb.WriteString(", ")
		}

		p.sb.WriteString(k + " = " + ReprAttr(attrs[k]))
	}
	p.sb.WriteString("}")
}

// ReprAttr returns the textual form of an attribute value.
func ReprAttr(val interface{}) string {
	switch v := val.(type) {
	case Reprer:
		return v.Repr()
	case string:
		return fmt.Sprintf("%q", v)
	case []int64:
		return fmt.Sprintf("array<i64: %s>", joinInts(v))
	case []int32:
		ints := make([]int64, len(v))
		for i, x := range v {
			ints[i] = int64(x)
		}
		return fmt.Sprintf("array<i32: %s>", joinInts(ints))
	default:
		return fmt.Sprintf("%v", v)
	}
}

func joinInts(ints []int64) string {
	strs := make([]string, len(ints))
	for i, x := range ints {
		strs[i] = fmt.Sprint(x)
	}

	return strings.Join(strs, ", ")
}

func reprType(t Type) string {
	if t == nil {
		return "<<null>>"
	}

	return t.Repr()
}
