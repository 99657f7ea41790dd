package leaf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shadowatlas/core/internal/boundary"
)

func sampleBoundary() boundary.NormalizedBoundary {
	return boundary.NormalizedBoundary{
		ID:           "US-56-CD-AL",
		BoundaryType: boundary.TypeCongressional,
		Geometry:     boundary.Geometry{Polygons: []boundary.Polygon{{Outer: square()}}},
		Authority:    boundary.AuthorityFederalMandate,
		Provenance: boundary.Provenance{
			SourceURL:            "https://example.gov/boundaries/US-56-CD-AL",
			ChecksumOfRawPayload: "deadbeef",
			RetrievedAt:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestHash_Deterministic(t *testing.T) {
	b := sampleBoundary()
	h1, err := Hash(b)
	require.NoError(t, err)
	h2, err := Hash(b)
	require.NoError(t, err)
	require.True(t, h1.Equal(&h2))
}

func TestHash_ChangesWithID(t *testing.T) {
	a := sampleBoundary()
	b := sampleBoundary()
	b.ID = "US-56-CD-02"

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	require.False(t, ha.Equal(&hb))
}

func TestHash_ChangesWithAuthority(t *testing.T) {
	a := sampleBoundary()
	b := sampleBoundary()
	b.Authority = boundary.AuthorityStateOfficial

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	require.False(t, ha.Equal(&hb))
}

func TestHash_ChangesWithProvenance(t *testing.T) {
	a := sampleBoundary()
	b := sampleBoundary()
	b.Provenance.ChecksumOfRawPayload = "cafef00d"

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	require.False(t, ha.Equal(&hb))
}

func TestProvenanceHash_BindsSourceAndChecksum(t *testing.T) {
	p1 := boundary.Provenance{SourceURL: "https://a.example", ChecksumOfRawPayload: "abc", RetrievedAt: time.Unix(1000, 0)}
	p2 := boundary.Provenance{SourceURL: "https://b.example", ChecksumOfRawPayload: "abc", RetrievedAt: time.Unix(1000, 0)}

	h1 := ProvenanceHash(p1)
	h2 := ProvenanceHash(p2)
	require.False(t, h1.Equal(&h2))
}
