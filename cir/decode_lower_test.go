package cir_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cirlower/cir"
	"cirlower/eval"
	"cirlower/llvm"
	"cirlower/lower"
)

const counterModule = `
name: counter
records:
  - name: flags
    members: [u8, s32]
globals:
  - name: hits
    type: s32
    init: 0
    linkage: internal
functions:
  - name: bump
    type: func<(s32) -> s32>
    blocks:
      - label: entry
        args: [{name: by}]
        ops:
          - {result: p, op: get_global, symbol: hits, type: "ptr<s32>"}
          - {result: old, op: load, operands: [p], flags: [volatile]}
          - {result: new, op: binop, kind: add, operands: [old, by], flags: [nsw]}
          - {op: store, operands: [new, p]}
          - {result: neg, op: cmp, kind: lt, operands: [new, by]}
          - {op: brcond, operands: [neg], then: {block: wrapped}, else: {block: done, args: [new]}}
      - label: wrapped
        ops:
          - {result: zero, op: const, type: s32, value: 0}
          - {op: br, dest: {block: done, args: [zero]}}
      - label: done
        args: [{name: r, type: s32}]
        ops:
          - {op: return, operands: [r]}
  - name: second
    type: func<() -> s32>
    blocks:
      - label: entry
        ops:
          - {result: slot, op: alloca, type: "!flags", align: 4}
          - {result: f, op: get_member, operands: [slot], index: 1, field: count}
          - {result: v, op: const, type: s32, value: 9}
          - {op: store, operands: [v, f]}
          - {result: back, op: load, operands: [f]}
          - {op: return, operands: [back]}
`

func TestDecodedModuleLowersAndRuns(t *testing.T) {
	mod, err := cir.Decode(strings.NewReader(counterModule))
	require.NoError(t, err)

	res, err := lower.Run(context.Background(), mod, lower.Options{})
	require.NoError(t, err)

	m, err := eval.New(context.Background(), res.Module, llvm.DefaultLayout())
	require.NoError(t, err)

	v, err := m.Call("bump", eval.MakeInt(32, 5))
	require.NoError(t, err)
	assert.Equal(t, eval.MakeInt(32, 5), v)

	v, err = m.Call("bump", eval.MakeInt(32, 2))
	require.NoError(t, err)
	assert.Equal(t, eval.MakeInt(32, 7), v)

	v, err = m.LoadGlobal("hits")
	require.NoError(t, err)
	assert.Equal(t, eval.MakeInt(32, 7), v)

	v, err = m.Call("second")
	require.NoError(t, err)
	assert.Equal(t, eval.MakeInt(32, 9), v)
}
