package generate

import (
	"math/big"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"tlog.app/go/errors"

	"cirlower/ir"
	"cirlower/llvm"
)

// convConstant converts a literal attribute.
func (g *Generator) convConstant(c llvm.Constant) (constant.Constant, error) {
	t, err := g.convType(c.Type())
	if err != nil {
		return nil, err
	}

	switch v := c.(type) {
	case *llvm.IntAttr:
		it, ok := t.(*types.IntType)
		if !ok {
			return nil, errors.New("integer literal of type %s", c.Type().Repr())
		}

		if v.Wide != nil {
			return &constant.Int{Typ: it, X: signedBig(v.Wide, it.BitSize)}, nil
		}

		return constant.NewInt(it, v.Value), nil
	case *llvm.FloatAttr:
		ft, ok := t.(*types.FloatType)
		if !ok {
			return nil, errors.New("float literal of type %s", c.Type().Repr())
		}

		return constant.NewFloat(ft, v.Value), nil
	case *llvm.DenseAttr:
		elems := make([]constant.Constant, len(v.Elems))
		for i, e := range v.Elems {
			ec, err := g.convConstant(e)
			if err != nil {
				return nil, err
			}

			elems[i] = ec
		}

		return aggregate(t, elems)
	}

	return nil, errors.New("literal %s cannot be exported", c.Repr())
}

// signedBig returns the two's complement reading of the low width bits of x.
func signedBig(x *big.Int, width uint64) *big.Int {
	one := big.NewInt(1)
	mod := new(big.Int).Lsh(one, uint(width))

	v := new(big.Int).And(x, new(big.Int).Sub(mod, one))
	if v.Bit(int(width)-1) == 1 {
		v.Sub(v, mod)
	}

	return v
}

// aggregate builds the constant of aggregate type t from its members.
func aggregate(t types.Type, elems []constant.Constant) (constant.Constant, error) {
	switch v := t.(type) {
	case *types.StructType:
		return constant.NewStruct(v, elems...), nil
	case *types.ArrayType:
		return constant.NewArray(v, elems...), nil
	case *types.VectorType:
		return constant.NewVector(v, elems...), nil
	}

	return nil, errors.New("%s is not an aggregate type", t)
}

// members returns the members of an aggregate constant, expanding the
// zero and undefined aggregates member by member.
func members(c constant.Constant) ([]constant.Constant, error) {
	switch v := c.(type) {
	case *constant.Struct:
		return append([]constant.Constant(nil), v.Fields...), nil
	case *constant.Array:
		return append([]constant.Constant(nil), v.Elems...), nil
	case *constant.Vector:
		return append([]constant.Constant(nil), v.Elems...), nil
	case *constant.CharArray:
		elems := make([]constant.Constant, len(v.X))
		for i, b := range v.X {
			elems[i] = constant.NewInt(types.I8, int64(b))
		}

		return elems, nil
	case *constant.ZeroInitializer:
		return expand(c.Type(), zeroOf)
	case *constant.Undef:
		return expand(c.Type(), func(t types.Type) constant.Constant {
			return constant.NewUndef(t)
		})
	case *constant.Poison:
		return expand(c.Type(), func(t types.Type) constant.Constant {
			return constant.NewPoison(t)
		})
	}

	return nil, errors.New("%s is not an aggregate constant", c.Ident())
}

func expand(t types.Type, fill func(types.Type) constant.Constant) ([]constant.Constant, error) {
	switch v := t.(type) {
	case *types.StructType:
		elems := make([]constant.Constant, len(v.Fields))
		for i, f := range v.Fields {
			elems[i] = fill(f)
		}

		return elems, nil
	case *types.ArrayType:
		return repeat(fill(v.ElemType), v.Len), nil
	case *types.VectorType:
		return repeat(fill(v.ElemType), v.Len), nil
	}

	return nil, errors.New("%s is not an aggregate type", t)
}

func repeat(c constant.Constant, n uint64) []constant.Constant {
	elems := make([]constant.Constant, n)
	for i := range elems {
		elems[i] = c
	}

	return elems
}

// insertConst replaces the member of agg at pos with v.
func insertConst(agg, v constant.Constant, pos []int64) (constant.Constant, error) {
	if len(pos) == 0 {
		return v, nil
	}

	elems, err := members(agg)
	if err != nil {
		return nil, err
	}

	if pos[0] < 0 || pos[0] >= int64(len(elems)) {
		return nil, errors.New("member %d out of range", pos[0])
	}

	elems[pos[0]], err = insertConst(elems[pos[0]], v, pos[1:])
	if err != nil {
		return nil, err
	}

	return aggregate(agg.Type(), elems)
}

// charArray rewrites arrays of i8 literals, at any depth, as character
// arrays.
func charArray(c constant.Constant) constant.Constant {
	switch v := c.(type) {
	case *constant.Array:
		if at, ok := v.Typ.ElemType.(*types.IntType); ok && at.BitSize == 8 {
			buf := make([]byte, 0, len(v.Elems))
			for _, e := range v.Elems {
				ci, ok := e.(*constant.Int)
				if !ok {
					return c
				}

				buf = append(buf, byte(ci.X.Int64()))
			}

			return constant.NewCharArray(buf)
		}

		for i, e := range v.Elems {
			v.Elems[i] = charArray(e)
		}
	case *constant.Struct:
		for i, f := range v.Fields {
			v.Fields[i] = charArray(f)
		}
	}

	return c
}

// -----------------------------------------------------------------------------

// foldRegion evaluates a global initializer region into a single constant.
// Only the operations that have a constant expression counterpart may
// appear in it.
func (g *Generator) foldRegion(r *ir.Region) (constant.Constant, error) {
	if len(r.Blocks) != 1 {
		return nil, errors.New("initializer has %d blocks", len(r.Blocks))
	}

	env := make(map[*ir.Value]constant.Constant)
	get := func(v *ir.Value) (constant.Constant, error) {
		c, ok := env[v]
		if !ok {
			return nil, errors.New("initializer uses a value it does not define")
		}

		return c, nil
	}

	for _, op := range r.Blocks[0].Ops() {
		if op.Name == llvm.OpReturn {
			if len(op.Operands) != 1 {
				return nil, errors.New("initializer returns %d values", len(op.Operands))
			}

			return get(op.Operands[0])
		}

		args := make([]constant.Constant, len(op.Operands))
		for i, o := range op.Operands {
			c, err := get(o)
			if err != nil {
				return nil, err
			}

			args[i] = c
		}

		c, err := g.foldOp(op, args)
		if err != nil {
			return nil, errors.Wrap(err, "%s", op.Name)
		}

		env[op.Results[0]] = c
	}

	return nil, errors.New("initializer does not return")
}

func (g *Generator) foldOp(op *ir.Operation, args []constant.Constant) (constant.Constant, error) {
	var t types.Type
	if len(op.Results) == 1 {
		var err error
		if t, err = g.convType(op.Results[0].Type()); err != nil {
			return nil, err
		}
	}

	switch op.Name {
	case llvm.OpConstant:
		c, ok := op.Attr(llvm.AttrValue).(llvm.Constant)
		if !ok {
			return nil, errors.New("constant without a value")
		}

		return g.convConstant(c)
	case llvm.OpZero:
		return zeroOf(t), nil
	case llvm.OpUndef:
		return constant.NewUndef(t), nil
	case llvm.OpPoison:
		return constant.NewPoison(t), nil
	case llvm.OpAddressOf:
		return g.addressOf(op.StringAttr(llvm.AttrGlobalName), t)
	case llvm.OpInsertValue:
		pos, _ := op.Attr(llvm.AttrPosition).([]int64)
		return insertConst(args[0], args[1], pos)
	case llvm.OpIntToPtr:
		return constant.NewIntToPtr(args[0], t), nil
	case llvm.OpPtrToInt:
		return constant.NewPtrToInt(args[0], t), nil
	case llvm.OpBitcast:
		return constant.NewBitCast(args[0], t), nil
	case llvm.OpAddrSpaceCast:
		return constant.NewAddrSpaceCast(args[0], t), nil
	case llvm.OpGEP:
		elem, err := g.gepElem(op)
		if err != nil {
			return nil, err
		}

		raw, _ := op.Attr(llvm.AttrRawIndices).([]int32)

		var indices []constant.Constant
		dyn := args[1:]
		for _, r := range raw {
			if r == llvm.DynamicIndex {
				indices = append(indices, dyn[0])
				dyn = dyn[1:]
			} else {
				indices = append(indices, constant.NewInt(types.I32, int64(r)))
			}
		}

		base := constant.NewBitCast(args[0], typedPtr(elem, args[0].Type()))
		gep := constant.NewGetElementPtr(elem, base, indices...)
		gep.InBounds = op.BoolAttr(llvm.AttrInBounds)
		return constant.NewBitCast(gep, t), nil
	}

	return nil, errors.New("operation cannot appear in a global initializer")
}

// addressOf returns the address of a symbol as a constant of type t.
func (g *Generator) addressOf(sym string, t types.Type) (constant.Constant, error) {
	var c constant.Constant
	if gv, ok := g.globals[sym]; ok {
		c = gv
	} else if fn, ok := g.funcs[sym]; ok {
		c = fn
	} else {
		return nil, errors.New("no symbol named %s", sym)
	}

	if c.Type().Equal(t) {
		return c, nil
	}

	if pt, ok := t.(*types.PointerType); ok && pt.AddrSpace != c.Type().(*types.PointerType).AddrSpace {
		return constant.NewAddrSpaceCast(c, t), nil
	}

	return constant.NewBitCast(c, t), nil
}

func (g *Generator) gepElem(op *ir.Operation) (types.Type, error) {
	elem, ok := op.Attr(llvm.AttrElemType).(ir.Type)
	if !ok {
		return nil, errors.New("pointer computation without an element type")
	}

	return g.convType(elem)
}
