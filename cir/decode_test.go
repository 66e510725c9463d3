package cir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cirlower/ir"
)

const sumModule = `
name: demo
triple: x86_64-unknown-linux-gnu
records:
  - name: node
    members: [s32, "ptr<!node>"]
globals:
  - name: msg
    type: array<s8 x 8>
    init: hi
    constant: true
    linkage: private
  - name: head
    type: "!node"
    init: !zero
  - name: ext
    type: s64
    visibility: hidden
functions:
  - name: puts
    type: func<(ptr<s8>, ...) -> s32>
  - name: sum
    type: func<(s32) -> s32>
    linkage: internal
    blocks:
      - label: entry
        args: [{name: n}]
        ops:
          - {result: zero, op: const, type: s32, value: 0}
          - {op: br, dest: {block: loop, args: [n, zero]}}
      - label: loop
        args: [{name: i, type: s32}, {name: acc, type: s32}]
        ops:
          - {result: done, op: cmp, kind: eq, operands: [i, zero]}
          - {op: brcond, operands: [done], then: {block: exit, args: [acc]}, else: {block: body}}
      - label: body
        ops:
          - {result: one, op: const, type: s32, value: 1}
          - {result: next, op: binop, kind: sub, operands: [i, one], flags: [nsw]}
          - {result: total, op: binop, kind: add, operands: [acc, i]}
          - {op: br, dest: {block: loop, args: [next, total]}}
      - label: exit
        args: [{name: r, type: s32}]
        ops:
          - {op: cir.return, operands: [r], loc: "sum.c:3:5"}
`

func decode(t *testing.T, src string) *ir.Module {
	t.Helper()

	mod, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	return mod
}

func TestDecodeModule(t *testing.T) {
	mod := decode(t, sumModule)

	assert.Equal(t, "demo", mod.Name)
	assert.Equal(t, "x86_64-unknown-linux-gnu", mod.Attrs[ModAttrTriple])

	msg := mod.Lookup("msg")
	require.NotNil(t, msg)
	assert.True(t, msg.BoolAttr(AttrConstant))
	assert.Equal(t, LinkagePrivate, msg.Attr(AttrLinkage))

	str, ok := msg.Attr(AttrInitialValue).(*ConstArrayAttr)
	require.True(t, ok)
	assert.True(t, str.IsString)
	assert.Equal(t, "hi", str.Str)
	assert.Equal(t, uint64(6), str.TrailingZeros)

	head := mod.Lookup("head")
	require.NotNil(t, head)
	rec, ok := head.Attr(AttrGlobalType).(*RecordType)
	require.True(t, ok)
	assert.Same(t, rec, rec.Members[1].(*PointerType).Pointee)
	assert.IsType(t, &ZeroAttr{}, head.Attr(AttrInitialValue))

	ext := mod.Lookup("ext")
	require.NotNil(t, ext)
	assert.False(t, ext.HasAttr(AttrInitialValue))
	assert.Equal(t, VisibilityHidden, ext.Attr(AttrVisibility))

	puts := mod.Lookup("puts")
	require.NotNil(t, puts)
	assert.True(t, puts.Regions[0].Empty())
	assert.True(t, puts.Attr(AttrFunctionType).(*FuncType).Variadic)
}

func TestDecodeFunctionBody(t *testing.T) {
	mod := decode(t, sumModule)

	sum := mod.Lookup("sum")
	require.NotNil(t, sum)
	assert.Equal(t, LinkageInternal, sum.Attr(AttrLinkage))

	blocks := sum.Regions[0].Blocks
	require.Len(t, blocks, 4)
	entry, loop, body, exit := blocks[0], blocks[1], blocks[2], blocks[3]

	assert.Len(t, loop.Args, 2)
	assert.ElementsMatch(t, []*ir.Block{entry, body}, loop.Predecessors())
	assert.Equal(t, []*ir.Block{exit, body}, loop.Successors())

	next := body.Ops()[1]
	assert.Equal(t, OpBinOp, next.Name)
	assert.Equal(t, BinOpSub, next.Attr(AttrKind))
	assert.True(t, next.BoolAttr(AttrNoSignedWrap))
	assert.Same(t, loop.Args[0], next.Operands[0])

	ret := exit.Terminator()
	assert.Equal(t, OpReturn, ret.Name)
	assert.Equal(t, ir.FileLoc{File: "sum.c", Line: 3, Col: 5}, ret.Loc)
	assert.Same(t, exit.Args[0], ret.Operands[0])
}

func TestDecodeConstants(t *testing.T) {
	mod := decode(t, `
name: consts
functions:
  - name: f
    type: func<() -> void>
    blocks:
      - label: entry
        ops:
          - {result: a, op: const, type: "vector<s32 x 2>", value: [1, -1]}
          - {result: b, op: const, type: "complex<double>", value: [1.5, .inf]}
          - {result: c, op: const, type: "ptr<s8>", value: null}
          - {result: d, op: const, type: "array<u8 x 4>", value: [255, 7]}
          - {result: e, op: const, type: u8, value: 300}
          - {result: f, op: const, type: bool, value: true}
          - {result: g, op: const, type: "long_double<fp80>", value: !undef }
          - {op: return}
`)

	ops := mod.Lookup("f").Regions[0].Entry().Ops()
	attr := func(i int) Attr { return ops[i].Attr(AttrValue).(Attr) }

	vec := attr(0).(*ConstVectorAttr)
	assert.Equal(t, int64(-1), vec.Elts[1].(*IntAttr).Value)

	cplx := attr(1).(*ComplexAttr)
	assert.Equal(t, 1.5, cplx.Real.(*FPAttr).Value)
	assert.True(t, cplx.Imag.(*FPAttr).Value > 1e308)

	assert.True(t, attr(2).(*PtrAttr).IsNull())

	arr := attr(3).(*ConstArrayAttr)
	assert.Len(t, arr.Elts, 2)
	assert.Equal(t, uint64(2), arr.TrailingZeros)

	assert.Equal(t, int64(44), attr(4).(*IntAttr).Value)
	assert.True(t, attr(5).(*BoolAttr).Value)
	assert.IsType(t, &UndefAttr{}, attr(6))
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"unknown field": `
name: m
bogus: 1
`,
		"unknown type": `
name: m
globals:
  - {name: g, type: s0}
`,
		"unknown linkage": `
name: m
globals:
  - {name: g, type: s32, linkage: sometimes}
`,
		"use before definition": `
name: m
functions:
  - name: f
    type: func<() -> s32>
    blocks:
      - label: entry
        ops:
          - {op: return, operands: [x]}
`,
		"unknown block": `
name: m
functions:
  - name: f
    type: func<() -> void>
    blocks:
      - label: entry
        ops:
          - {op: br, dest: {block: nowhere}}
`,
		"string too long": `
name: m
globals:
  - {name: g, type: "array<s8 x 2>", init: "abc"}
`,
		"entry arity": `
name: m
functions:
  - name: f
    type: func<(s32) -> void>
    blocks:
      - label: entry
        ops:
          - {op: return}
`,
		"unknown flag": `
name: m
functions:
  - name: f
    type: func<(s32) -> s32>
    blocks:
      - label: entry
        args: [{name: x}]
        ops:
          - {result: y, op: unary, kind: minus, operands: [x], flags: [fast]}
          - {op: return, operands: [y]}
`,
		"naming a void result": `
name: m
functions:
  - name: f
    type: func<() -> void>
    blocks:
      - label: entry
        ops:
          - {result: r, op: trap}
`,
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(src))
			assert.Error(t, err)
		})
	}
}
