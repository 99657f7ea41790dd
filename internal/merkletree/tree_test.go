package merkletree

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/field"
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

func sampleSet() []boundary.NormalizedBoundary {
	return []boundary.NormalizedBoundary{
		makeRecord("US-56-001", "US", "56"),
		makeRecord("US-56-002", "US", "56"),
		makeRecord("US-56-003", "US", "56"),
		makeRecord("US-08-001", "US", "08"),
		makeRecord("FR-75-001", "FR", "75"),
		makeRecord("JP-13-001", "JP", "13"),
	}
}

func TestBuild_OrderIndependentGlobalRoot(t *testing.T) {
	records := sampleSet()

	treeA, _, err := Build(records)
	require.NoError(t, err)

	shuffled := make([]boundary.NormalizedBoundary, len(records))
	// reverse order, a cheap stand-in for "any source order"
	for i, r := range records {
		shuffled[len(records)-1-i] = r
	}
	treeB, _, err := Build(shuffled)
	require.NoError(t, err)

	require.True(t, treeA.GlobalRoot.Equal(&treeB.GlobalRoot))
}

func TestBuild_DuplicateIDRejected(t *testing.T) {
	records := []boundary.NormalizedBoundary{
		makeRecord("US-56-001", "US", "56"),
		makeRecord("US-56-001", "US", "56"),
	}
	_, _, err := Build(records)
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestBuild_UnmappedCountryErrors(t *testing.T) {
	records := []boundary.NormalizedBoundary{
		makeRecord("ZZ-01-001", "ZZ", "01"),
	}
	_, _, err := Build(records)
	require.Error(t, err)
}

func TestBuild_DistrictProofVerifies(t *testing.T) {
	records := sampleSet()
	tree, idx, err := Build(records)
	require.NoError(t, err)

	for _, r := range records {
		path, countryRoot, err := idx.DistrictProof(r.ID)
		require.NoError(t, err)

		var leafHash = leafHashOf(t, tree, r.ID)
		require.True(t, VerifyDistrictProof(leafHash, path, countryRoot))
	}
}

func TestBuild_CountryProofVerifies(t *testing.T) {
	records := sampleSet()
	tree, idx, err := Build(records)
	require.NoError(t, err)

	for _, cc := range []string{"US", "FR", "JP"} {
		var countryRoot = countryRootOf(t, tree, cc)
		path, globalRoot, err := idx.CountryProof(cc)
		require.NoError(t, err)
		require.True(t, VerifyCountryProof(countryRoot, path, globalRoot))
		require.True(t, globalRoot.Equal(&tree.GlobalRoot))
	}
}

func TestBuild_TamperedSiblingInvalidatesProof(t *testing.T) {
	records := sampleSet()
	tree, idx, err := Build(records)
	require.NoError(t, err)

	path, countryRoot, err := idx.DistrictProof("US-56-001")
	require.NoError(t, err)
	require.NotEmpty(t, path)

	leafHash := leafHashOf(t, tree, "US-56-001")

	tampered := make([]Step, len(path))
	copy(tampered, path)
	// Flip the IsRight bit without swapping the sibling: this must break
	// verification, per the determinism requirement in spec §4.6.
	tampered[0].IsRight = !tampered[0].IsRight

	require.False(t, VerifyDistrictProof(leafHash, tampered, countryRoot))
}

func TestBuild_EmptyInputErrors(t *testing.T) {
	_, _, err := Build(nil)
	require.ErrorIs(t, err, ErrEmptyInput)
}

// --- test helpers ---

func leafHashOf(t *testing.T, tree *Tree, id string) (h field.Element) {
	t.Helper()
	for _, cn := range tree.Continents {
		for _, country := range cn.Countries {
			for _, region := range country.Regions {
				for _, l := range region.Leaves {
					if l.Record.ID == id {
						return l.Hash
					}
				}
			}
		}
	}
	t.Fatalf("leaf %s not found in tree", id)
	return
}

func countryRootOf(t *testing.T, tree *Tree, countryCode string) (h field.Element) {
	t.Helper()
	for _, cn := range tree.Continents {
		for _, country := range cn.Countries {
			if country.CountryCode == countryCode {
				return country.Root
			}
		}
	}
	t.Fatalf("country %s not found in tree", countryCode)
	return
}
