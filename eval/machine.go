package eval

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"cirlower/ir"
	"cirlower/llvm"
)

// ExternFunc implements a function the module only declares.
type ExternFunc func(args []Value) (Value, error)

// Machine executes the functions of a lowered module.  It is the reference
// semantics used to check that lowering preserves the meaning of a program.
type Machine struct {
	mod *ir.Module
	dl  *llvm.DataLayout

	// Mem is the memory holding the globals and every stack allocation.
	Mem *Memory

	// globals maps global symbols onto their address.
	globals map[string]uint64

	// funcs maps function symbols onto their definition.
	funcs map[string]*ir.Operation

	// funcAddrs maps the addresses handed out for functions onto their
	// symbol.
	funcAddrs map[uint64]string

	// Extern stores the implementations of declared functions.
	Extern map[string]ExternFunc

	// MaxSteps bounds the number of operations executed by a single call.
	MaxSteps int
}

// funcBase is the first address handed out for functions.  It lies above
// every address the memory will reach in practice.
const funcBase = 1 << 48

// DefaultMaxSteps is the default step bound of a call.
const DefaultMaxSteps = 1 << 20

// New creates a machine for mod: every global is allocated and initialized.
func New(ctx context.Context, mod *ir.Module, dl *llvm.DataLayout) (m *Machine, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "eval: load module", "module", mod.Name)
	defer tr.Finish("err", &err)

	m = &Machine{
		mod:       mod,
		dl:        dl,
		Mem:       NewMemory(dl),
		globals:   make(map[string]uint64),
		funcs:     make(map[string]*ir.Operation),
		funcAddrs: make(map[uint64]string),
		Extern:    make(map[string]ExternFunc),
		MaxSteps:  DefaultMaxSteps,
	}

	var globals []*ir.Operation
	for _, op := range mod.Body.Ops() {
		switch op.Name {
		case llvm.OpFunc:
			name := op.StringAttr(llvm.AttrSymName)
			m.funcs[name] = op
			m.funcAddrs[funcBase+uint64(len(m.funcAddrs))*16] = name
		case llvm.OpGlobal:
			typ, ok := op.Attr(llvm.AttrGlobalType).(ir.Type)
			if !ok {
				return nil, errors.New("global without a type")
			}

			align, _ := op.Attr(llvm.AttrAlignment).(uint64)
			if align == 0 {
				align = dl.ABIAlign(typ)
			}

			m.globals[op.StringAttr(llvm.AttrSymName)] = m.Mem.Alloc(dl.TypeSize(typ), align)
			globals = append(globals, op)
		}
	}

	// initializers may take the address of any global
	for _, op := range globals {
		if err := m.initGlobal(op); err != nil {
			return nil, errors.Wrap(err, "global %s", op.StringAttr(llvm.AttrSymName))
		}
	}

	tr.Printw("loaded module", "globals", len(globals), "funcs", len(m.funcs))

	return m, nil
}

func (m *Machine) initGlobal(op *ir.Operation) error {
	typ := op.Attr(llvm.AttrGlobalType).(ir.Type)
	addr := m.globals[op.StringAttr(llvm.AttrSymName)]

	if region := llvm.GlobalInitializer(op); region != nil {
		vals, err := m.execRegion(region, nil)
		if err != nil {
			return err
		}

		if len(vals) != 1 {
			return errors.New("initializer returned %d values", len(vals))
		}

		return m.Mem.Store(typ, vals[0], addr)
	}

	if c, ok := op.Attr(llvm.AttrValue).(llvm.Constant); ok {
		v, err := Constant(c)
		if err != nil {
			return err
		}

		return m.Mem.Store(typ, v, addr)
	}

	// globals without an initializer stay zeroed
	return nil
}

// GlobalAddr returns the address of the global named sym.
func (m *Machine) GlobalAddr(sym string) (uint64, bool) {
	addr, ok := m.globals[sym]
	return addr, ok
}

// LoadGlobal reads the current value of the global named sym.
func (m *Machine) LoadGlobal(sym string) (Value, error) {
	addr, ok := m.globals[sym]
	if !ok {
		return nil, errors.New("no global named %s", sym)
	}

	op := m.mod.Lookup(sym)
	return m.Mem.Load(op.Attr(llvm.AttrGlobalType).(ir.Type), addr)
}

// addressOf resolves a symbol to the address of a global or function.
func (m *Machine) addressOf(sym string) (Ptr, error) {
	if addr, ok := m.globals[sym]; ok {
		return Ptr{Addr: addr}, nil
	}

	for addr, name := range m.funcAddrs {
		if name == sym {
			return Ptr{Addr: addr}, nil
		}
	}

	return Ptr{}, errors.New("no symbol named %s", sym)
}

// -----------------------------------------------------------------------------

// Call executes the function named name.  The result is nil for functions
// returning void.
func (m *Machine) Call(name string, args ...Value) (Value, error) {
	fn, ok := m.funcs[name]
	if !ok || fn.Regions[0].Empty() {
		if ext, ok := m.Extern[name]; ok {
			return ext(args)
		}

		return nil, errors.New("call to undefined function %s", name)
	}

	vals, err := m.execRegion(fn.Regions[0], args)
	if err != nil {
		return nil, errors.Wrap(err, "%s", name)
	}

	if len(vals) == 0 {
		return nil, nil
	}

	return vals[0], nil
}

// frame is the state of one region execution.
type frame struct {
	env   map[*ir.Value]Value
	steps int
}

func (fr *frame) get(v *ir.Value) (Value, error) {
	val, ok := fr.env[v]
	if !ok {
		return nil, errors.New("use of a value before its definition")
	}

	return val, nil
}

func (fr *frame) operands(op *ir.Operation) ([]Value, error) {
	return fr.values(op.Operands)
}

func (fr *frame) values(vs []*ir.Value) ([]Value, error) {
	vals := make([]Value, len(vs))
	for i, v := range vs {
		val, err := fr.get(v)
		if err != nil {
			return nil, err
		}

		vals[i] = val
	}

	return vals, nil
}

// execRegion runs a region from its entry block until a return.
func (m *Machine) execRegion(r *ir.Region, args []Value) ([]Value, error) {
	fr := &frame{env: make(map[*ir.Value]Value)}

	blk := r.Entry()
	for {
		if len(args) != len(blk.Args) {
			return nil, errors.New("block expects %d arguments, got %d", len(blk.Args), len(args))
		}

		for i, a := range blk.Args {
			fr.env[a] = args[i]
		}

		next, nextArgs, ret, err := m.execBlock(fr, blk)
		if err != nil {
			return nil, err
		}

		if next == nil {
			return ret, nil
		}

		blk, args = next, nextArgs
	}
}

// execBlock runs the operations of blk.  It returns either the successor to
// continue with and its arguments or the returned values.
func (m *Machine) execBlock(fr *frame, blk *ir.Block) (*ir.Block, []Value, []Value, error) {
	for _, op := range blk.Ops() {
		fr.steps++
		if fr.steps > m.MaxSteps {
			return nil, nil, nil, errors.New("step limit of %d exceeded", m.MaxSteps)
		}

		switch op.Name {
		case llvm.OpReturn:
			vals, err := fr.operands(op)
			return nil, nil, vals, err
		case llvm.OpBr, llvm.OpCondBr, llvm.OpSwitch:
			succ, err := m.branch(fr, op)
			if err != nil {
				return nil, nil, nil, err
			}

			args, err := fr.values(op.SuccOperands[succ])
			return op.Successors[succ], args, nil, err
		case llvm.OpUnreachable:
			return nil, nil, nil, errors.New("reached unreachable code")
		}

		if err := m.exec(fr, op); err != nil {
			return nil, nil, nil, errors.Wrap(err, "%s", op.Name)
		}
	}

	return nil, nil, nil, errors.New("block has no terminator")
}

// branch returns the index of the successor taken by a branch.
func (m *Machine) branch(fr *frame, op *ir.Operation) (int, error) {
	switch op.Name {
	case llvm.OpBr:
		return 0, nil
	case llvm.OpCondBr:
		cond, err := fr.get(op.Operands[0])
		if err != nil {
			return 0, err
		}

		if cond.(Int).Bits != 0 {
			return 0, nil
		}

		return 1, nil
	}

	x, err := fr.get(op.Operands[0])
	if err != nil {
		return 0, err
	}

	xi := x.(Int)
	values, _ := op.Attr(llvm.AttrCaseValues).([]int64)
	for i, v := range values {
		if MakeInt(xi.Width, v).Bits == xi.Bits {
			return i + 1, nil
		}
	}

	return 0, nil
}
