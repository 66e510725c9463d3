package cir

import (
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"cirlower/ir"
)

// The YAML form of a source module.  Types use the syntax of ParseType and
// operations refer to values and blocks by name.  A value must be defined
// before it is used in document order; blocks may be referred to anywhere in
// their function.
type (
	moduleDoc struct {
		Name      string      `yaml:"name"`
		Triple    string      `yaml:"triple,omitempty"`
		Records   []recordDoc `yaml:"records,omitempty"`
		Globals   []globalDoc `yaml:"globals,omitempty"`
		Functions []funcDoc   `yaml:"functions,omitempty"`
	}

	recordDoc struct {
		Name    string   `yaml:"name"`
		Kind    string   `yaml:"kind,omitempty"`
		Members []string `yaml:"members"`
		Packed  bool     `yaml:"packed,omitempty"`
		Padded  bool     `yaml:"padded,omitempty"`
	}

	symbolDoc struct {
		Linkage    string `yaml:"linkage,omitempty"`
		Visibility string `yaml:"visibility,omitempty"`
		DSOLocal   bool   `yaml:"dso_local,omitempty"`
	}

	globalDoc struct {
		symbolDoc `yaml:",inline"`

		Name      string     `yaml:"name"`
		Type      string     `yaml:"type"`
		Init      yaml.Node  `yaml:"init,omitempty"`
		Constant  bool       `yaml:"constant,omitempty"`
		Comdat    bool       `yaml:"comdat,omitempty"`
		Alignment uint64     `yaml:"alignment,omitempty"`
	}

	funcDoc struct {
		symbolDoc `yaml:",inline"`

		Name   string     `yaml:"name"`
		Type   string     `yaml:"type"`
		Blocks []blockDoc `yaml:"blocks,omitempty"`
	}

	blockDoc struct {
		Label string   `yaml:"label"`
		Args  []argDoc `yaml:"args,omitempty"`
		Ops   []opDoc  `yaml:"ops"`
	}

	argDoc struct {
		Name string `yaml:"name"`
		Type string `yaml:"type,omitempty"`
	}

	targetDoc struct {
		Block string   `yaml:"block"`
		Args  []string `yaml:"args,omitempty"`
	}

	caseDoc struct {
		Value     int64 `yaml:"value"`
		targetDoc `yaml:",inline"`
	}

	bitfieldDoc struct {
		Name    string `yaml:"name"`
		Storage string `yaml:"storage"`
		Size    uint   `yaml:"size"`
		Offset  uint   `yaml:"offset"`
		Signed  bool   `yaml:"signed,omitempty"`
	}

	opDoc struct {
		Result   string   `yaml:"result,omitempty"`
		Op       string   `yaml:"op"`
		Type     string   `yaml:"type,omitempty"`
		Operands []string `yaml:"operands,omitempty"`
		Loc      string   `yaml:"loc,omitempty"`

		Kind   string    `yaml:"kind,omitempty"`
		Value  yaml.Node `yaml:"value,omitempty"`
		Flags  []string  `yaml:"flags,omitempty"`
		Callee string    `yaml:"callee,omitempty"`
		Effect string    `yaml:"effect,omitempty"`
		Symbol string    `yaml:"symbol,omitempty"`

		Align      uint64       `yaml:"align,omitempty"`
		Offset     uint64       `yaml:"offset,omitempty"`
		NotNull    bool         `yaml:"not_null,omitempty"`
		Index      int          `yaml:"index,omitempty"`
		Field      string       `yaml:"field,omitempty"`
		Indices    []int64      `yaml:"indices,omitempty"`
		Bitfield   *bitfieldDoc `yaml:"bitfield,omitempty"`
		PoisonZero bool         `yaml:"poison_zero,omitempty"`
		Prob       *float64     `yaml:"prob,omitempty"`

		Dest    *targetDoc `yaml:"dest,omitempty"`
		Then    *targetDoc `yaml:"then,omitempty"`
		Else    *targetDoc `yaml:"else,omitempty"`
		Default *targetDoc `yaml:"default,omitempty"`
		Cases   []caseDoc  `yaml:"cases,omitempty"`
	}
)

// opFlags maps the flag spellings accepted on operations onto the unit
// attributes they set.
var opFlags = map[string]string{
	"nuw":      AttrNoUnsignedWrap,
	"nsw":      AttrNoSignedWrap,
	"sat":      AttrSaturated,
	"nothrow":  AttrNoThrow,
	"volatile": AttrIsVolatile,
}

// Decode reads a source module from its YAML form.
func Decode(r io.Reader) (*ir.Module, error) {
	var doc moduleDoc

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode module")
	}

	d := &decoder{
		mod:     ir.NewModule(doc.Name),
		records: make(map[string]*RecordType),
		b:       NewBuilder(),
	}

	if err := d.module(&doc); err != nil {
		return nil, err
	}

	return d.mod, nil
}

// DecodeFile reads the source module stored at path.
func DecodeFile(path string) (*ir.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open module")
	}
	defer f.Close()

	mod, err := Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, "%s", path)
	}

	return mod, nil
}

// -----------------------------------------------------------------------------

type decoder struct {
	mod     *ir.Module
	records map[string]*RecordType
	b       *Builder

	// values and blocks are the named values and blocks of the function being
	// decoded.
	values map[string]*ir.Value
	blocks map[string]*ir.Block
}

func (d *decoder) module(doc *moduleDoc) error {
	if doc.Triple != "" {
		d.mod.Attrs[ModAttrTriple] = doc.Triple
	}

	// records are created before their members are parsed so that they may
	// refer to each other
	for _, rd := range doc.Records {
		if _, ok := d.records[rd.Name]; ok {
			return errors.New("record %s defined multiple times", rd.Name)
		}

		d.records[rd.Name] = &RecordType{Name: rd.Name, Packed: rd.Packed, Padded: rd.Padded}
	}

	for _, rd := range doc.Records {
		if err := d.record(&rd); err != nil {
			return errors.Wrap(err, "record %s", rd.Name)
		}
	}

	for _, gd := range doc.Globals {
		if err := d.global(&gd); err != nil {
			return errors.Wrap(err, "global %s", gd.Name)
		}
	}

	for _, fd := range doc.Functions {
		if err := d.function(&fd); err != nil {
			return errors.Wrap(err, "function %s", fd.Name)
		}
	}

	return nil
}

func (d *decoder) record(rd *recordDoc) error {
	rt := d.records[rd.Name]

	switch rd.Kind {
	case "", "struct":
		rt.Kind = RecordStruct
	case "class":
		rt.Kind = RecordClass
	case "union":
		rt.Kind = RecordUnion
	default:
		return errors.New("unknown record kind %q", rd.Kind)
	}

	for _, m := range rd.Members {
		t, err := d.typ(m)
		if err != nil {
			return err
		}

		rt.Members = append(rt.Members, t)
	}

	return nil
}

func (d *decoder) symbol(sd *symbolDoc) (lk Linkage, vis Visibility, err error) {
	if sd.Linkage != "" {
		if lk, err = ParseLinkage(sd.Linkage); err != nil {
			return
		}
	}

	if sd.Visibility != "" {
		vis, err = ParseVisibility(sd.Visibility)
	}

	return
}

func (d *decoder) global(gd *globalDoc) error {
	typ, err := d.typ(gd.Type)
	if err != nil {
		return err
	}

	lk, vis, err := d.symbol(&gd.symbolDoc)
	if err != nil {
		return err
	}

	var init Attr
	if gd.Init.Kind != 0 {
		if init, err = decodeAttr(&gd.Init, typ); err != nil {
			return err
		}
	}

	NewGlobal(d.mod, gd.Name, typ, init, GlobalOpts{
		Linkage:    lk,
		Visibility: vis,
		DSOLocal:   gd.DSOLocal,
		Constant:   gd.Constant,
		Comdat:     gd.Comdat,
		Alignment:  gd.Alignment,
	})

	return nil
}

func (d *decoder) function(fd *funcDoc) error {
	t, err := d.typ(fd.Type)
	if err != nil {
		return err
	}

	ft, ok := t.(*FuncType)
	if !ok {
		return errors.New("%s is not a function type", fd.Type)
	}

	lk, vis, err := d.symbol(&fd.symbolDoc)
	if err != nil {
		return err
	}

	opts := FuncOpts{Linkage: lk, Visibility: vis, DSOLocal: fd.DSOLocal}
	if len(fd.Blocks) == 0 {
		DeclareFunc(d.mod, fd.Name, ft, opts)
		return nil
	}

	fn := NewFunc(d.mod, fd.Name, ft, opts)
	body := fn.Regions[0]

	d.values = make(map[string]*ir.Value)
	d.blocks = make(map[string]*ir.Block)

	blks := make([]*ir.Block, len(fd.Blocks))
	for i, bd := range fd.Blocks {
		if _, ok := d.blocks[bd.Label]; ok {
			return errors.New("block %s defined multiple times", bd.Label)
		}

		if i == 0 {
			blks[i] = body.Entry()
			if len(bd.Args) != len(ft.Params) {
				return errors.New("entry block has %d arguments for %d parameters", len(bd.Args), len(ft.Params))
			}
		} else {
			types := make([]ir.Type, len(bd.Args))
			for j, a := range bd.Args {
				if types[j], err = d.typ(a.Type); err != nil {
					return errors.Wrap(err, "block %s", bd.Label)
				}
			}

			blks[i] = body.AddBlock(ir.NewBlock(types...))
		}

		d.blocks[bd.Label] = blks[i]
		for j, a := range bd.Args {
			if err := d.define(a.Name, blks[i].Args[j]); err != nil {
				return err
			}
		}
	}

	for i, bd := range fd.Blocks {
		d.b.SetInsertionPointToEnd(blks[i])

		for j := range bd.Ops {
			od := &bd.Ops[j]
			if err := d.op(od); err != nil {
				return errors.Wrap(err, "block %s: %s", bd.Label, od.Op)
			}
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *decoder) typ(src string) (ir.Type, error) {
	return ParseType(src, d.records)
}

func (d *decoder) define(name string, v *ir.Value) error {
	if name == "" {
		return nil
	}

	if _, ok := d.values[name]; ok {
		return errors.New("value %s defined multiple times", name)
	}

	d.values[name] = v
	return nil
}

func (d *decoder) value(name string) (*ir.Value, error) {
	v, ok := d.values[name]
	if !ok {
		return nil, errors.New("undefined value %s", name)
	}

	return v, nil
}

func (d *decoder) valueList(names []string) ([]*ir.Value, error) {
	vals := make([]*ir.Value, len(names))
	for i, n := range names {
		v, err := d.value(n)
		if err != nil {
			return nil, err
		}

		vals[i] = v
	}

	return vals, nil
}

func (d *decoder) target(td *targetDoc) (*ir.Block, []*ir.Value, error) {
	if td == nil {
		return nil, nil, errors.New("missing branch target")
	}

	blk, ok := d.blocks[td.Block]
	if !ok {
		return nil, nil, errors.New("undefined block %s", td.Block)
	}

	args, err := d.valueList(td.Args)
	return blk, args, err
}

// location parses a location of the form file:line:col.
func location(s string) (ir.Location, error) {
	if s == "" {
		return ir.UnknownLoc{}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		return nil, errors.New("malformed location %q", s)
	}

	n := len(parts)
	line, err1 := strconv.Atoi(parts[n-2])
	col, err2 := strconv.Atoi(parts[n-1])
	if err1 != nil || err2 != nil {
		return nil, errors.New("malformed location %q", s)
	}

	return ir.FileLoc{File: strings.Join(parts[:n-2], ":"), Line: line, Col: col}, nil
}
