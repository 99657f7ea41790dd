package leaf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shadowatlas/core/internal/boundary"
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

func rotatedSquare(k int) boundary.Ring {
	open := square()[:4]
	rotated := make(boundary.Ring, 0, 5)
	for i := 0; i < 4; i++ {
		rotated = append(rotated, open[(i+k)%4])
	}
	rotated = append(rotated, rotated[0])
	return rotated
}

func TestCanonicalizeRing_RotationInvariant(t *testing.T) {
	base, err := canonicalizeRing(square(), false)
	require.NoError(t, err)

	for k := 1; k < 4; k++ {
		rotated, err := canonicalizeRing(rotatedSquare(k), false)
		require.NoError(t, err)
		require.Equal(t, base, rotated)
	}
}

func TestCanonicalizeRing_EnforcesRequestedWinding(t *testing.T) {
	// square() is CCW; request CW and expect a reversal, i.e. a different
	// (but still rotation-canonical) point sequence than the CCW result.
	ccw, err := canonicalizeRing(square(), false)
	require.NoError(t, err)
	cw, err := canonicalizeRing(square(), true)
	require.NoError(t, err)
	require.NotEqual(t, ccw, cw)
}

func TestGeometryHash_Deterministic(t *testing.T) {
	geom := boundary.Geometry{Polygons: []boundary.Polygon{{Outer: square()}}}
	h1, err := GeometryHash(geom)
	require.NoError(t, err)
	h2, err := GeometryHash(geom)
	require.NoError(t, err)
	require.True(t, h1.Equal(&h2))
}

func TestGeometryHash_RotationInvariant(t *testing.T) {
	geomA := boundary.Geometry{Polygons: []boundary.Polygon{{Outer: square()}}}
	geomB := boundary.Geometry{Polygons: []boundary.Polygon{{Outer: rotatedSquare(2)}}}

	hA, err := GeometryHash(geomA)
	require.NoError(t, err)
	hB, err := GeometryHash(geomB)
	require.NoError(t, err)
	require.True(t, hA.Equal(&hB))
}

func TestGeometryHash_DistinctForDistinctGeometry(t *testing.T) {
	a := boundary.Geometry{Polygons: []boundary.Polygon{{Outer: square()}}}
	other := boundary.Ring{
		{Lon: 10, Lat: 10},
		{Lon: 11, Lat: 10},
		{Lon: 11, Lat: 11},
		{Lon: 10, Lat: 11},
		{Lon: 10, Lat: 10},
	}
	b := boundary.Geometry{Polygons: []boundary.Polygon{{Outer: other}}}

	hA, err := GeometryHash(a)
	require.NoError(t, err)
	hB, err := GeometryHash(b)
	require.NoError(t, err)
	require.False(t, hA.Equal(&hB))
}

func TestCanonicalizeGeometry_MultiPolygonOrderIndependent(t *testing.T) {
	polyA := boundary.Polygon{Outer: square()}
	other := boundary.Ring{
		{Lon: 10, Lat: 10},
		{Lon: 11, Lat: 10},
		{Lon: 11, Lat: 11},
		{Lon: 10, Lat: 11},
		{Lon: 10, Lat: 10},
	}
	polyB := boundary.Polygon{Outer: other}

	geomAB := boundary.Geometry{Polygons: []boundary.Polygon{polyA, polyB}}
	geomBA := boundary.Geometry{Polygons: []boundary.Polygon{polyB, polyA}}

	hAB, err := GeometryHash(geomAB)
	require.NoError(t, err)
	hBA, err := GeometryHash(geomBA)
	require.NoError(t, err)
	require.True(t, hAB.Equal(&hBA))
}

func TestCanonicalizeRing_RejectsTooFewPoints(t *testing.T) {
	_, err := canonicalizeRing(boundary.Ring{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}}, false)
	require.ErrorIs(t, err, ErrEmptyRing)
}
