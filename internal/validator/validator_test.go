package validator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/geoid"
)

func squareRing(x, y float64) boundary.Ring {
	return boundary.Ring{
		{Lon: x, Lat: y},
		{Lon: x + 1, Lat: y},
		{Lon: x + 1, Lat: y + 1},
		{Lon: x, Lat: y + 1},
		{Lon: x, Lat: y},
	}
}

func sampleRecord(id string, authority boundary.Authority) boundary.NormalizedBoundary {
	return boundary.NormalizedBoundary{
		ID:           id,
		CountryCode:  "US",
		RegionCode:   "56",
		BoundaryType: boundary.TypeCongressional,
		Geometry:     boundary.Geometry{Polygons: []boundary.Polygon{{Outer: squareRing(0, 0)}}},
		Authority:    authority,
		Provenance: boundary.Provenance{
			SourceURL:            "https://example.gov/boundaries/" + id,
			SourceName:           "Example Gov",
			RetrievedAt:          time.Now(),
			ChecksumOfRawPayload: "abc123",
			VintageYear:          2026,
		},
	}
}

func TestValidate_StructuralHaltOnUnknownType(t *testing.T) {
	reg := geoid.New()
	v, err := New(reg, DefaultConfig())
	require.NoError(t, err)

	rec := sampleRecord("US-56-CD-AL", boundary.AuthorityFederalMandate)
	rec.BoundaryType = "not-a-real-type"

	_, err = v.Validate(context.Background(), boundary.TypeCongressional, "56", []boundary.NormalizedBoundary{rec})
	require.Error(t, err)
	var halt *HaltError
	require.ErrorAs(t, err, &halt)
	require.Equal(t, HaltStructural, halt.Kind)
}

func TestValidate_StructuralHaltOnZeroAuthority(t *testing.T) {
	reg := geoid.New()
	v, err := New(reg, DefaultConfig())
	require.NoError(t, err)

	rec := sampleRecord("US-56-CD-AL", 0)

	_, err = v.Validate(context.Background(), boundary.TypeCongressional, "56", []boundary.NormalizedBoundary{rec})
	require.Error(t, err)
}

func TestValidate_CardinalityHalt(t *testing.T) {
	reg := geoid.New()
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = "WY-CD-0" + string(rune('1'+i))
	}
	reg.LoadEntry(boundary.TypeCongressional, "56", ids, true)

	v, err := New(reg, DefaultConfig())
	require.NoError(t, err)

	records := make([]boundary.NormalizedBoundary, 6)
	for i := range records {
		records[i] = sampleRecord(ids[i], boundary.AuthorityFederalMandate)
	}

	_, err = v.Validate(context.Background(), boundary.TypeCongressional, "56", records)
	require.Error(t, err)
	var halt *HaltError
	require.ErrorAs(t, err, &halt)
	require.Equal(t, HaltCardinality, halt.Kind)
	require.Equal(t, 8, halt.Expected)
	require.Equal(t, 6, halt.Actual)
}

func TestValidate_IdentityHaltReportsMissingSet(t *testing.T) {
	reg := geoid.New()
	expected := []string{"56001", "56002", "56003", "56004", "56005",
		"56006", "56007", "56008", "56009", "56010",
		"56011", "56012", "56013", "56014", "56015",
		"56016", "56017", "56018", "56019", "56020",
		"56021", "56022", "56023", "56024", "56025",
		"56026", "56027", "56028", "56029", "56030", "56031"}
	reg.LoadEntry(boundary.TypeStateUpper, "56", expected, true)

	v, err := New(reg, DefaultConfig())
	require.NoError(t, err)

	records := make([]boundary.NormalizedBoundary, 0, 30)
	for _, id := range expected[:30] { // omit 56031
		rec := sampleRecord(id, boundary.AuthorityStateOfficial)
		rec.BoundaryType = boundary.TypeStateUpper
		records = append(records, rec)
	}

	_, err = v.Validate(context.Background(), boundary.TypeStateUpper, "56", records)
	require.Error(t, err)
	var halt *HaltError
	require.ErrorAs(t, err, &halt)
	require.Equal(t, HaltIdentity, halt.Kind)
	_, missing := halt.Missing["56031"]
	require.True(t, missing)
	require.Len(t, halt.Missing, 1)
}

func TestValidate_GeographicRestrictionHalt(t *testing.T) {
	reg := geoid.New()
	reg.LoadEntry(boundary.TypeParliamentary, "US", nil, false)

	v, err := New(reg, DefaultConfig())
	require.NoError(t, err)

	rec := sampleRecord("US-PARL-01", boundary.AuthorityFederalMandate)
	rec.BoundaryType = boundary.TypeParliamentary

	_, err = v.Validate(context.Background(), boundary.TypeParliamentary, "US", []boundary.NormalizedBoundary{rec})
	require.Error(t, err)
	var halt *HaltError
	require.ErrorAs(t, err, &halt)
	require.Equal(t, HaltGeographic, halt.Kind)
}

func TestValidate_TopologyHaltOnUnclosedRing(t *testing.T) {
	reg := geoid.New()
	v, err := New(reg, DefaultConfig())
	require.NoError(t, err)

	rec := sampleRecord("US-56-CD-AL", boundary.AuthorityFederalMandate)
	rec.Geometry.Polygons[0].Outer = rec.Geometry.Polygons[0].Outer[:len(rec.Geometry.Polygons[0].Outer)-1]

	_, err = v.Validate(context.Background(), boundary.TypeCongressional, "56", []boundary.NormalizedBoundary{rec})
	require.Error(t, err)
	var halt *HaltError
	require.ErrorAs(t, err, &halt)
	require.Equal(t, HaltTopology, halt.Kind)
}

func TestValidate_SingleCountrySingleLayerSucceeds(t *testing.T) {
	reg := geoid.New()
	reg.LoadEntry(boundary.TypeCongressional, "56", []string{"US-56-CD-AL"}, true)

	v, err := New(reg, DefaultConfig())
	require.NoError(t, err)

	rec := sampleRecord("US-56-CD-AL", boundary.AuthorityFederalMandate)

	result, err := v.Validate(context.Background(), boundary.TypeCongressional, "56", []boundary.NormalizedBoundary{rec})
	require.NoError(t, err)
	require.Empty(t, result.Warnings)
	require.Len(t, result.Records, 1)
}

type stubCrossSource struct {
	score float64
	ok    bool
}

func (s stubCrossSource) QualityScore(_ context.Context, _ boundary.Type, _ string, _ []boundary.NormalizedBoundary) (float64, bool) {
	return s.score, s.ok
}

func TestValidate_CrossSourceDegradesWhenUnavailable(t *testing.T) {
	reg := geoid.New()
	v, err := New(reg, DefaultConfig(), WithCrossSourceChecker(stubCrossSource{ok: false}))
	require.NoError(t, err)

	rec := sampleRecord("US-56-CD-AL", boundary.AuthorityFederalMandate)
	result, err := v.Validate(context.Background(), boundary.TypeCongressional, "56", []boundary.NormalizedBoundary{rec})
	require.NoError(t, err)
	require.Empty(t, result.Warnings)
}

func TestValidate_CrossSourceWarnsBelowThreshold(t *testing.T) {
	reg := geoid.New()
	cfg := DefaultConfig()
	cfg.CrossSourceHaltOnBreach = false
	v, err := New(reg, cfg, WithCrossSourceChecker(stubCrossSource{score: 0.4, ok: true}))
	require.NoError(t, err)

	rec := sampleRecord("US-56-CD-AL", boundary.AuthorityFederalMandate)
	result, err := v.Validate(context.Background(), boundary.TypeCongressional, "56", []boundary.NormalizedBoundary{rec})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
}

func TestValidate_CrossSourceHaltsWhenConfigured(t *testing.T) {
	reg := geoid.New()
	cfg := DefaultConfig()
	cfg.CrossSourceHaltOnBreach = true
	v, err := New(reg, cfg, WithCrossSourceChecker(stubCrossSource{score: 0.4, ok: true}))
	require.NoError(t, err)

	rec := sampleRecord("US-56-CD-AL", boundary.AuthorityFederalMandate)
	_, err = v.Validate(context.Background(), boundary.TypeCongressional, "56", []boundary.NormalizedBoundary{rec})
	require.Error(t, err)
}

func TestValidate_IdentityExceptionDowngradesToWarning(t *testing.T) {
	reg := geoid.New()
	reg.LoadEntry(boundary.TypeSchoolUnified, "US/IL", []string{"IL-SD-01", "IL-SD-02"}, true)

	cfg := DefaultConfig()
	cfg.Exceptions = []JurisdictionException{{Layer: boundary.TypeSchoolUnified, Jurisdiction: "US/IL", Reason: "dual overlapping metro school systems"}}
	// 1 of 2 expected records is a 0.5 ratio; widen the cardinality tolerance
	// so the cardinality step passes and the identity step is exercised.
	cfg.CardinalityEpsilon = 0.6

	v, err := New(reg, cfg)
	require.NoError(t, err)

	rec := sampleRecord("IL-SD-01", boundary.AuthorityMunicipalOfficial)
	rec.BoundaryType = boundary.TypeSchoolUnified

	result, err := v.Validate(context.Background(), boundary.TypeSchoolUnified, "US/IL", []boundary.NormalizedBoundary{rec})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
}
