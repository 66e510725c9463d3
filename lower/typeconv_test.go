package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
)

func TestFailedRecordIsNotCached(t *testing.T) {
	tc := NewTypeConverter(llvm.DefaultLayout())
	bad := &cir.RecordType{Kind: cir.RecordStruct, Name: "bad", Members: []ir.Type{cir.S32, &cir.IntType{}}}

	_, err := tc.Convert(bad)
	require.Error(t, err)

	// a second conversion fails again instead of yielding an empty struct
	st, err := tc.Convert(bad)
	assert.Error(t, err)
	assert.Nil(t, st)

	holder := &cir.RecordType{Kind: cir.RecordStruct, Name: "holder", Members: []ir.Type{bad}}
	_, err = tc.Convert(holder)
	assert.Error(t, err)
}

func TestRecursiveRecordIsShared(t *testing.T) {
	tc := NewTypeConverter(llvm.DefaultLayout())

	node := &cir.RecordType{Kind: cir.RecordStruct, Name: "node"}
	node.Members = []ir.Type{cir.S32, cir.Ptr(node)}

	first, err := tc.Convert(node)
	require.NoError(t, err)

	st, ok := first.(*llvm.StructType)
	require.True(t, ok)
	assert.Len(t, st.Fields, 2)

	second, err := tc.Convert(node)
	require.NoError(t, err)
	assert.Same(t, st, second)
}
