package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemStore_GetSetRoundTrip(t *testing.T) {
	s := NewMemStore()

	v, err := s.Get([]byte("missing"))
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, s.Set([]byte("a"), []byte("1")))
	v, err = s.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	has, err := s.Has([]byte("a"))
	require.NoError(t, err)
	require.True(t, has)
}

func TestMemStore_IteratorOrdersKeys(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Set([]byte("b"), []byte("2")))
	require.NoError(t, s.Set([]byte("a"), []byte("1")))
	require.NoError(t, s.Set([]byte("c"), []byte("3")))

	it, err := s.Iterator(nil, nil)
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestMemStore_IteratorRespectsRange(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Set([]byte("a"), []byte("1")))
	require.NoError(t, s.Set([]byte("b"), []byte("2")))
	require.NoError(t, s.Set([]byte("c"), []byte("3")))

	it, err := s.Iterator([]byte("b"), nil)
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.Equal(t, []string{"b", "c"}, keys)
}
