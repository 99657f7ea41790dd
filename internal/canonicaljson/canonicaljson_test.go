package canonicaljson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalize_SortsObjectKeys(t *testing.T) {
	out, err := Canonicalize([]byte(`{"b":1,"a":2}`))
	require.NoError(t, err)
	require.Equal(t, `{"a":2,"b":1}`, string(out))
}

func TestCanonicalize_PreservesArrayOrder(t *testing.T) {
	out, err := Canonicalize([]byte(`{"a":[3,1,2]}`))
	require.NoError(t, err)
	require.Equal(t, `{"a":[3,1,2]}`, string(out))
}

func TestCanonicalize_NestedObjectsSorted(t *testing.T) {
	out, err := Canonicalize([]byte(`{"z":{"y":1,"x":2},"a":1}`))
	require.NoError(t, err)
	require.Equal(t, `{"a":1,"z":{"x":2,"y":1}}`, string(out))
}

func TestCanonicalize_RejectsFloatingPoint(t *testing.T) {
	_, err := Canonicalize([]byte(`{"root":1.5}`))
	require.ErrorIs(t, err, ErrFloatingPoint)
}

func TestCanonicalize_AllowsLargeIntegers(t *testing.T) {
	out, err := Canonicalize([]byte(`{"root":123456789012345678}`))
	require.NoError(t, err)
	require.Equal(t, `{"root":123456789012345678}`, string(out))
}

func TestMarshal_SortsStructFieldsViaJSONTags(t *testing.T) {
	type doc struct {
		B int `json:"b"`
		A int `json:"a"`
	}
	out, err := Marshal(doc{B: 1, A: 2})
	require.NoError(t, err)
	require.Equal(t, `{"a":2,"b":1}`, string(out))
}
