package cir

import (
	"strconv"
	"strings"
	"unicode"

	"tlog.app/go/errors"

	"cirlower/ir"
)

// typeParser reads the textual form of source types:
//
//	void bool s32 u8 half bf16 float double fp80 fp128
//	long_double<fp80> ptr<T> ptr<T, 3> array<T x 4> vector<T x 4>
//	complex<T> func<(T, T, ...) -> T> !name
//
// Named records are looked up in records.
type typeParser struct {
	src     string
	pos     int
	records map[string]*RecordType
}

// ParseType parses the textual form of a source type.  Named records are
// resolved against records, which may be nil.
func ParseType(src string, records map[string]*RecordType) (ir.Type, error) {
	p := &typeParser{src: src, records: records}

	t, err := p.parseType()
	if err != nil {
		return nil, errors.Wrap(err, "type %q", src)
	}

	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, errors.New("type %q: unexpected %q", src, p.src[p.pos:])
	}

	return t, nil
}

func (p *typeParser) parseType() (ir.Type, error) {
	p.skipSpace()

	if p.accept("!") {
		name := p.ident()
		rt, ok := p.records[name]
		if !ok {
			return nil, errors.New("unknown record %q", name)
		}

		return rt, nil
	}

	name := p.ident()
	switch name {
	case "void":
		return Void, nil
	case "bool":
		return Bool, nil
	case "half":
		return Half, nil
	case "bf16":
		return BF16, nil
	case "float":
		return Single, nil
	case "double":
		return Double, nil
	case "fp80":
		return FP80, nil
	case "fp128":
		return FP128, nil
	case "long_double":
		return p.parseLongDouble()
	case "ptr":
		return p.parsePointer()
	case "array", "vector":
		return p.parseSequence(name)
	case "complex":
		if err := p.expect("<"); err != nil {
			return nil, err
		}

		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}

		return Complex(elem), p.expect(">")
	case "func":
		return p.parseFunc()
	case "":
		return nil, errors.New("expected a type at offset %d", p.pos)
	}

	if name[0] == 's' || name[0] == 'u' {
		if width, err := strconv.ParseUint(name[1:], 10, 16); err == nil && width > 0 {
			return Int(uint(width), name[0] == 's'), nil
		}
	}

	return nil, errors.New("unknown type %q", name)
}

func (p *typeParser) parseLongDouble() (ir.Type, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}

	t, err := p.parseType()
	if err != nil {
		return nil, err
	}

	ft, ok := t.(*FloatType)
	if !ok {
		return nil, errors.New("long double over %s", t.Repr())
	}

	return &LongDoubleType{Underlying: ft}, p.expect(">")
}

func (p *typeParser) parsePointer() (ir.Type, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}

	pointee, err := p.parseType()
	if err != nil {
		return nil, err
	}

	pt := Ptr(pointee)
	if p.accept(",") {
		as, err := p.number()
		if err != nil {
			return nil, err
		}

		pt.AddrSpace = uint(as)
	}

	return pt, p.expect(">")
}

func (p *typeParser) parseSequence(kind string) (ir.Type, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}

	elem, err := p.parseType()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if p.ident() != "x" {
		return nil, errors.New("expected 'x' in %s type", kind)
	}

	n, err := p.number()
	if err != nil {
		return nil, err
	}

	if err := p.expect(">"); err != nil {
		return nil, err
	}

	if kind == "array" {
		return Array(elem, n), nil
	}

	return Vector(elem, n), nil
}

func (p *typeParser) parseFunc() (ir.Type, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}

	if err := p.expect("("); err != nil {
		return nil, err
	}

	ft := &FuncType{}
	if !p.accept(")") {
		for {
			if p.accept("...") {
				ft.Variadic = true
			} else {
				param, err := p.parseType()
				if err != nil {
					return nil, err
				}

				ft.Params = append(ft.Params, param)
			}

			if p.accept(")") {
				break
			}

			if ft.Variadic {
				return nil, errors.New("variadic marker must come last")
			}

			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}

	if err := p.expect("->"); err != nil {
		return nil, err
	}

	ret, err := p.parseType()
	if err != nil {
		return nil, err
	}

	ft.Ret = ret
	return ft, p.expect(">")
}

// -----------------------------------------------------------------------------

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) accept(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}

	return false
}

func (p *typeParser) expect(tok string) error {
	if !p.accept(tok) {
		return errors.New("expected %q at offset %d", tok, p.pos)
	}

	return nil
}

func (p *typeParser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			break
		}

		p.pos++
	}

	return p.src[start:p.pos]
}

func (p *typeParser) number() (uint64, error) {
	p.skipSpace()

	digits := p.ident()
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, errors.New("expected a number at offset %d", p.pos-len(digits))
	}

	return n, nil
}
