package payload

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/field"
	"github.com/shadowatlas/core/internal/merkletree"
)

func square() boundary.Ring {
	return boundary.Ring{
		{Lon: 0, Lat: 0},
		{Lon: 1, Lat: 0},
		{Lon: 1, Lat: 1},
		{Lon: 0, Lat: 1},
		{Lon: 0, Lat: 0},
	}
}

func makeRecord(id, country, region string) boundary.NormalizedBoundary {
	return boundary.NormalizedBoundary{
		ID:           id,
		CountryCode:  country,
		RegionCode:   region,
		BoundaryType: boundary.TypeCounty,
		Geometry:     boundary.Geometry{Polygons: []boundary.Polygon{{Outer: square()}}},
		Authority:    boundary.AuthorityStateOfficial,
		Provenance: boundary.Provenance{
			SourceURL:            "https://example.gov/" + id,
			ChecksumOfRawPayload: "checksum-" + id,
			RetrievedAt:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestBuild_ProducesGlobalRootAndHierarchy(t *testing.T) {
	records := []boundary.NormalizedBoundary{
		makeRecord("US-56-001", "US", "56"),
		makeRecord("FR-75-001", "FR", "75"),
	}
	tree, _, err := merkletree.Build(records)
	require.NoError(t, err)

	doc, err := Build(tree)
	require.NoError(t, err)

	require.Equal(t, FormatVersion, doc.FormatVersion)
	require.Equal(t, field.HexString(tree.GlobalRoot), doc.GlobalRoot)
	require.Len(t, doc.Continents, 2, "US and FR fall in different continents")

	var leafIDs []string
	for _, c := range doc.Continents {
		for _, country := range c.Countries {
			for _, region := range country.Regions {
				for _, l := range region.Leaves {
					leafIDs = append(leafIDs, l.ID)
					require.NotEmpty(t, l.GeometryHash)
					require.NotEmpty(t, l.ProvenanceHash)
					require.NotEmpty(t, l.Geometry.Polygons)
				}
			}
		}
	}
	require.ElementsMatch(t, []string{"US-56-001", "FR-75-001"}, leafIDs)
}

func TestMarshalCanonical_ProducesSortedDeterministicJSON(t *testing.T) {
	records := []boundary.NormalizedBoundary{makeRecord("US-56-001", "US", "56")}
	tree, _, err := merkletree.Build(records)
	require.NoError(t, err)

	doc, err := Build(tree)
	require.NoError(t, err)

	out1, err := MarshalCanonical(doc)
	require.NoError(t, err)
	out2, err := MarshalCanonical(doc)
	require.NoError(t, err)
	require.Equal(t, out1, out2)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out1, &decoded))
	require.Equal(t, float64(FormatVersion), decoded["format_version"])
}

func TestVerify_AcceptsUnmodifiedDocument(t *testing.T) {
	records := []boundary.NormalizedBoundary{
		makeRecord("US-56-001", "US", "56"),
		makeRecord("FR-75-001", "FR", "75"),
	}
	tree, _, err := merkletree.Build(records)
	require.NoError(t, err)

	doc, err := Build(tree)
	require.NoError(t, err)

	ok, err := Verify(doc)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerify_RejectsTamperedGeometry(t *testing.T) {
	records := []boundary.NormalizedBoundary{makeRecord("US-56-001", "US", "56")}
	tree, _, err := merkletree.Build(records)
	require.NoError(t, err)

	doc, err := Build(tree)
	require.NoError(t, err)

	doc.Continents[0].Countries[0].Regions[0].Leaves[0].Geometry.Polygons[0].Outer[0].Lon += 1000

	_, err = Verify(doc)
	require.ErrorIs(t, err, ErrRootMismatch)
}
