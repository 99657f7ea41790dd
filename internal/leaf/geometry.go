// Copyright 2025 Shadow Atlas Contributors
//
// Package leaf canonicalizes NormalizedBoundary geometry and derives the
// field-element leaf hash committed into the Merkle tree (spec.md §4.5).

package leaf

import (
	"encoding/binary"
	"errors"
	"sort"

	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/field"
)

// quantizationScale fixes coordinate precision at 7 decimal places, roughly
// 1cm at the equator, to absorb floating-point drift without discarding
// meaningful precision.
const quantizationScale = 1e7

// ErrEmptyRing is returned when a ring has fewer than four points (three
// vertices plus the duplicated closing vertex), including an empty ring.
var ErrEmptyRing = errors.New("leaf: ring has no points")

// QuantizedPoint is a WGS84 coordinate pair fixed to integer units of 1e-7
// degree (quantizationScale), eliminating floating-point representation drift
// from the hash input.
type QuantizedPoint struct {
	Lon int64 `json:"lon"`
	Lat int64 `json:"lat"`
}

// quantize rounds a float64 degree value to the nearest integer at
// quantizationScale.
func quantize(v float64) int64 {
	scaled := v * quantizationScale
	if scaled >= 0 {
		return int64(scaled + 0.5)
	}
	return int64(scaled - 0.5)
}

// CanonicalRing is an open (no duplicated closing vertex) quantized ring,
// rotated so its lexicographically smallest point is first, with winding
// order enforced by the caller.
type CanonicalRing []QuantizedPoint

// CanonicalPolygon is a canonicalized outer ring plus canonicalized holes.
type CanonicalPolygon struct {
	Outer CanonicalRing   `json:"outer"`
	Holes []CanonicalRing `json:"holes"`
}

// CanonicalGeometry is a canonicalized, hash-ready multi-polygon.
type CanonicalGeometry struct {
	Polygons []CanonicalPolygon `json:"polygons"`
}

// canonicalizeRing quantizes ring, drops its duplicated closing vertex,
// rotates it so the lexicographically smallest vertex is first, and
// enforces the requested winding order (clockwise == true for holes,
// false for outer rings).
func canonicalizeRing(ring boundary.Ring, clockwise bool) (CanonicalRing, error) {
	if len(ring) < 4 {
		return nil, ErrEmptyRing
	}
	// Drop the duplicated closing vertex; the ring is implicitly closed.
	open := ring[:len(ring)-1]

	quantized := make(CanonicalRing, len(open))
	for i, p := range open {
		quantized[i] = QuantizedPoint{Lon: quantize(p.Lon), Lat: quantize(p.Lat)}
	}

	if signedArea(quantized) < 0 != clockwise {
		reverse(quantized)
	}

	rotated := rotateToSmallest(quantized)
	return rotated, nil
}

// signedArea computes twice the shoelace signed area of an open ring.
// Positive indicates counter-clockwise winding under a standard
// (lon, lat) right-handed orientation.
func signedArea(ring CanonicalRing) int64 {
	var sum int64
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].Lon*ring[j].Lat - ring[j].Lon*ring[i].Lat
	}
	return sum
}

func reverse(ring CanonicalRing) {
	for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
		ring[i], ring[j] = ring[j], ring[i]
	}
}

// rotateToSmallest cyclically shifts ring so the lexicographically smallest
// (Lon, then Lat) point comes first, making the canonical form independent
// of the ring's original starting vertex.
func rotateToSmallest(ring CanonicalRing) CanonicalRing {
	if len(ring) == 0 {
		return ring
	}
	minIdx := 0
	for i := 1; i < len(ring); i++ {
		if less(ring[i], ring[minIdx]) {
			minIdx = i
		}
	}
	if minIdx == 0 {
		return ring
	}
	out := make(CanonicalRing, len(ring))
	copy(out, ring[minIdx:])
	copy(out[len(ring)-minIdx:], ring[:minIdx])
	return out
}

func less(a, b QuantizedPoint) bool {
	if a.Lon != b.Lon {
		return a.Lon < b.Lon
	}
	return a.Lat < b.Lat
}

// CanonicalizePolygon enforces outer-CCW / holes-CW winding, canonicalizes
// each ring, and sorts holes by their first vertex for determinism.
func CanonicalizePolygon(poly boundary.Polygon) (CanonicalPolygon, error) {
	outer, err := canonicalizeRing(poly.Outer, false)
	if err != nil {
		return CanonicalPolygon{}, err
	}
	holes := make([]CanonicalRing, len(poly.Holes))
	for i, h := range poly.Holes {
		ch, err := canonicalizeRing(h, true)
		if err != nil {
			return CanonicalPolygon{}, err
		}
		holes[i] = ch
	}
	sort.Slice(holes, func(i, j int) bool {
		return ringLess(holes[i], holes[j])
	})
	return CanonicalPolygon{Outer: outer, Holes: holes}, nil
}

func ringLess(a, b CanonicalRing) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) < len(b)
	}
	return less(a[0], b[0])
}

// CanonicalizeGeometry canonicalizes every polygon and sorts the resulting
// multi-polygon by each polygon's first canonicalized outer vertex, so that
// the serialized form does not depend on provider-supplied polygon order.
func CanonicalizeGeometry(geom boundary.Geometry) (CanonicalGeometry, error) {
	polys := make([]CanonicalPolygon, len(geom.Polygons))
	for i, p := range geom.Polygons {
		cp, err := CanonicalizePolygon(p)
		if err != nil {
			return CanonicalGeometry{}, err
		}
		polys[i] = cp
	}
	sort.Slice(polys, func(i, j int) bool {
		return ringLess(polys[i].Outer, polys[j].Outer)
	})
	return CanonicalGeometry{Polygons: polys}, nil
}

// Serialize renders g as a length-prefixed flat stream of quantized
// integers: polygon count, then per polygon the outer ring length and its
// points, the hole count, then per hole its length and points. Every count
// and coordinate is written as an 8-byte big-endian word so the stream has
// no ambiguous boundaries.
func Serialize(g CanonicalGeometry) []byte {
	buf := make([]byte, 0, 256)
	buf = appendUint64(buf, uint64(len(g.Polygons)))
	for _, poly := range g.Polygons {
		buf = appendRing(buf, poly.Outer)
		buf = appendUint64(buf, uint64(len(poly.Holes)))
		for _, h := range poly.Holes {
			buf = appendRing(buf, h)
		}
	}
	return buf
}

func appendRing(buf []byte, ring CanonicalRing) []byte {
	buf = appendUint64(buf, uint64(len(ring)))
	for _, p := range ring {
		buf = appendInt64(buf, p.Lon)
		buf = appendInt64(buf, p.Lat)
	}
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendInt64(buf []byte, v int64) []byte {
	return appendUint64(buf, uint64(v))
}

// GeometryHash canonicalizes geom and returns the Poseidon hash of its
// serialized form (spec §4.5).
func GeometryHash(geom boundary.Geometry) (field.Element, error) {
	canonical, err := CanonicalizeGeometry(geom)
	if err != nil {
		return field.Element{}, err
	}
	return field.HashBytes(Serialize(canonical)), nil
}
