package field

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPair_Deterministic(t *testing.T) {
	a := FromUint64(1)
	b := FromUint64(2)

	h1 := HashPair(a, b)
	h2 := HashPair(a, b)

	require.True(t, Equal(h1, h2), "hash_pair must be deterministic for identical inputs")
}

func TestHashPair_NonCommutative(t *testing.T) {
	pairs := [][2]uint64{{1, 2}, {3, 7}, {42, 9001}, {0, 1}}
	for _, p := range pairs {
		a := FromUint64(p[0])
		b := FromUint64(p[1])

		forward := HashPair(a, b)
		reverse := HashPair(b, a)

		require.False(t, Equal(forward, reverse),
			"hash_pair(%d, %d) must differ from hash_pair(%d, %d)", p[0], p[1], p[1], p[0])
	}
}

func TestHashSingle_EmptyStringContract(t *testing.T) {
	empty := HashBytes(nil)
	zeroHash := HashSingle(Zero())

	require.True(t, Equal(empty, zeroHash), "empty byte stream must hash to hash_single(0)")
}

func TestHashBytes_Deterministic(t *testing.T) {
	data := []byte("US-06-CD-01")

	h1 := HashBytes(data)
	h2 := HashBytes(data)

	require.True(t, Equal(h1, h2))
}

func TestHashBytes_DistinctForDistinctInputs(t *testing.T) {
	h1 := HashBytes([]byte("US-06-CD-01"))
	h2 := HashBytes([]byte("US-06-CD-02"))

	require.False(t, Equal(h1, h2))
}

func TestHashBytes_MultiChunk(t *testing.T) {
	// 65 bytes forces three 31-byte chunks (31 + 31 + 3).
	data := make([]byte, 65)
	for i := range data {
		data[i] = byte(i)
	}

	h1 := HashBytes(data)
	h2 := HashBytes(data)
	require.True(t, Equal(h1, h2))

	truncated := HashBytes(data[:64])
	require.False(t, Equal(h1, truncated), "differing length must change the hash")
}

func TestHexString_ZeroPadded(t *testing.T) {
	s := HexString(FromUint64(1))
	require.Len(t, s, 64)
	require.Equal(t, byte('1'), s[63])
	for i := 0; i < 63; i++ {
		require.Equal(t, byte('0'), s[i])
	}
}
