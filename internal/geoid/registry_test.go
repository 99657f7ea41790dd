package geoid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shadowatlas/core/internal/boundary"
)

func TestRegistry_UnknownReturnsNotOK(t *testing.T) {
	reg := New()

	_, ok := reg.ExpectedCount(boundary.TypeCongressional, "56")
	require.False(t, ok)

	_, ok = reg.ExpectedIDs(boundary.TypeCongressional, "56")
	require.False(t, ok)

	allowed, ok := reg.IsAllowedHere(boundary.TypeCongressional, "56")
	require.False(t, ok)
	require.True(t, allowed, "unknown restriction must be permissive")
}

func TestRegistry_LiteralIDsRoundTrip(t *testing.T) {
	reg := New()
	ids := []string{"56001", "56002", "56031"} // non-sequential on purpose
	reg.LoadEntry(boundary.TypeStateUpper, "56", ids, true)

	count, ok := reg.ExpectedCount(boundary.TypeStateUpper, "56")
	require.True(t, ok)
	require.Equal(t, 3, count)

	set, ok := reg.ExpectedIDs(boundary.TypeStateUpper, "56")
	require.True(t, ok)
	require.Len(t, set, 3)
	_, present := set["56031"]
	require.True(t, present)
	_, present = set["56099"]
	require.False(t, present)
}

func TestRegistry_GeographicRestriction(t *testing.T) {
	reg := New()
	reg.LoadEntry(boundary.TypeParliamentary, "US", nil, false)

	allowed, ok := reg.IsAllowedHere(boundary.TypeParliamentary, "US")
	require.True(t, ok)
	require.False(t, allowed)
}
