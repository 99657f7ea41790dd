// Copyright 2025 Shadow Atlas Contributors
//
// Package payload builds the committed payload format from spec.md §6: an
// ordered, canonical JSON document carrying the global root and the full
// continent/country/region/leaf hierarchy, bit-exact and versioned by
// format_version.

package payload

import (
	"errors"
	"fmt"
	"time"

	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/canonicaljson"
	"github.com/shadowatlas/core/internal/field"
	"github.com/shadowatlas/core/internal/leaf"
	"github.com/shadowatlas/core/internal/merkletree"
)

// ErrRootMismatch is returned by Verify when the recomputed global root
// does not match the document's recorded global_root.
var ErrRootMismatch = errors.New("payload: recomputed global root does not match document")

// FormatVersion is the current committed payload schema version.
const FormatVersion = 1

// Document is the top-level committed payload (spec §6).
type Document struct {
	FormatVersion int                `json:"format_version"`
	GlobalRoot    string             `json:"global_root"`
	Continents    []ContinentPayload `json:"continents"`
}

// ContinentPayload is one continent subtree.
type ContinentPayload struct {
	Key       string           `json:"key"`
	Root      string           `json:"root"`
	Countries []CountryPayload `json:"countries"`
}

// CountryPayload is one country subtree.
type CountryPayload struct {
	CountryCode string          `json:"country_code"`
	Root        string          `json:"root"`
	Regions     []RegionPayload `json:"regions"`
}

// RegionPayload is one region subtree.
type RegionPayload struct {
	RegionCode string        `json:"region_code"`
	Root       string        `json:"root"`
	Leaves     []LeafPayload `json:"leaves"`
}

// LeafPayload is one committed district, including its full canonicalized
// geometry so an offline verifier can recompute the leaf hash from scratch.
type LeafPayload struct {
	ID             string                 `json:"id"`
	BoundaryType   string                 `json:"boundary_type"`
	Authority      int                    `json:"authority"`
	GeometryHash   string                 `json:"geometry_hash"`
	ProvenanceHash string                 `json:"provenance_hash"`
	Geometry       leaf.CanonicalGeometry `json:"geometry"`
	Provenance     ProvenancePayload      `json:"provenance"`
}

// ProvenancePayload carries the raw provenance fields alongside the
// derived ProvenanceHash, so an offline verifier can recompute
// provenance_hash (and, from it, leaf_hash) without trusting the cache.
type ProvenancePayload struct {
	SourceURL            string `json:"source_url"`
	ChecksumOfRawPayload string `json:"checksum_of_raw_payload"`
	RetrievedAtUnix      int64  `json:"retrieved_at_unix"`
}

// Build walks tree and renders the committed payload document. It
// recomputes each leaf's geometry hash and canonicalized geometry directly
// from the source record rather than trusting cached state, so the
// resulting document is self-verifying.
func Build(tree *merkletree.Tree) (*Document, error) {
	doc := &Document{
		FormatVersion: FormatVersion,
		GlobalRoot:    field.HexString(tree.GlobalRoot),
	}

	for _, continent := range tree.Continents {
		cp := ContinentPayload{
			Key:  string(continent.Key),
			Root: field.HexString(continent.Root),
		}
		for _, country := range continent.Countries {
			countryP := CountryPayload{
				CountryCode: country.CountryCode,
				Root:        field.HexString(country.Root),
			}
			for _, region := range country.Regions {
				regionP := RegionPayload{
					RegionCode: region.RegionCode,
					Root:       field.HexString(region.Root),
				}
				for _, entry := range region.Leaves {
					leafP, err := buildLeaf(entry)
					if err != nil {
						return nil, fmt.Errorf("payload: leaf %s: %w", entry.Record.ID, err)
					}
					regionP.Leaves = append(regionP.Leaves, leafP)
				}
				countryP.Regions = append(countryP.Regions, regionP)
			}
			cp.Countries = append(cp.Countries, countryP)
		}
		doc.Continents = append(doc.Continents, cp)
	}
	return doc, nil
}

func buildLeaf(entry merkletree.LeafEntry) (LeafPayload, error) {
	geometry, err := leaf.CanonicalizeGeometry(entry.Record.Geometry)
	if err != nil {
		return LeafPayload{}, err
	}
	geometryHash := field.HashBytes(leaf.Serialize(geometry))
	provenanceHash := leaf.ProvenanceHash(entry.Record.Provenance)

	return LeafPayload{
		ID:             entry.Record.ID,
		BoundaryType:   string(entry.Record.BoundaryType),
		Authority:      int(entry.Record.Authority),
		GeometryHash:   field.HexString(geometryHash),
		ProvenanceHash: field.HexString(provenanceHash),
		Geometry:       geometry,
		Provenance: ProvenancePayload{
			SourceURL:            entry.Record.Provenance.SourceURL,
			ChecksumOfRawPayload: entry.Record.Provenance.ChecksumOfRawPayload,
			RetrievedAtUnix:      entry.Record.Provenance.RetrievedAt.Unix(),
		},
	}, nil
}

// Verify rebuilds the hierarchical tree from doc's own leaves and checks
// that the recomputed global root matches doc.GlobalRoot. It trusts
// nothing cached in the document except the geometry and raw provenance
// fields that leaf_hash is actually derived from, making it a genuine
// offline check of the published payload rather than a replay of its
// claimed hashes.
func Verify(doc *Document) (bool, error) {
	var records []boundary.NormalizedBoundary
	for _, continent := range doc.Continents {
		for _, country := range continent.Countries {
			for _, region := range country.Regions {
				for _, l := range region.Leaves {
					rec, err := toNormalizedBoundary(l, country.CountryCode, region.RegionCode)
					if err != nil {
						return false, fmt.Errorf("payload: leaf %s: %w", l.ID, err)
					}
					records = append(records, rec)
				}
			}
		}
	}
	if len(records) == 0 {
		return false, merkletree.ErrEmptyInput
	}

	tree, _, err := merkletree.Build(records)
	if err != nil {
		return false, fmt.Errorf("payload: rebuilding tree: %w", err)
	}

	if field.HexString(tree.GlobalRoot) != doc.GlobalRoot {
		return false, ErrRootMismatch
	}
	return true, nil
}

func toNormalizedBoundary(l LeafPayload, countryCode, regionCode string) (boundary.NormalizedBoundary, error) {
	geom, err := uncanonicalize(l.Geometry)
	if err != nil {
		return boundary.NormalizedBoundary{}, err
	}
	return boundary.NormalizedBoundary{
		ID:           l.ID,
		CountryCode:  countryCode,
		RegionCode:   regionCode,
		BoundaryType: boundary.Type(l.BoundaryType),
		Geometry:     geom,
		Authority:    boundary.Authority(l.Authority),
		Provenance: boundary.Provenance{
			SourceURL:            l.Provenance.SourceURL,
			ChecksumOfRawPayload: l.Provenance.ChecksumOfRawPayload,
			RetrievedAt:          time.Unix(l.Provenance.RetrievedAtUnix, 0).UTC(),
		},
	}, nil
}

// uncanonicalize converts a CanonicalGeometry's quantized integer
// coordinates back to the float64 degrees boundary.Geometry expects, so
// leaf.Hash (via GeometryHash) can re-derive the same canonical form and
// the same hash from it.
func uncanonicalize(g leaf.CanonicalGeometry) (boundary.Geometry, error) {
	out := boundary.Geometry{Polygons: make([]boundary.Polygon, len(g.Polygons))}
	for i, poly := range g.Polygons {
		out.Polygons[i] = boundary.Polygon{
			Outer: uncanonicalizeRing(poly.Outer),
			Holes: make([]boundary.Ring, len(poly.Holes)),
		}
		for j, hole := range poly.Holes {
			out.Polygons[i].Holes[j] = uncanonicalizeRing(hole)
		}
	}
	return out, nil
}

// uncanonicalizeRing converts a CanonicalRing back to boundary.Ring and
// re-closes it by duplicating the first point as the last, since
// canonicalizeRing unconditionally expects (and strips) a closed input
// ring with a duplicated closing vertex.
func uncanonicalizeRing(r leaf.CanonicalRing) boundary.Ring {
	out := make(boundary.Ring, len(r)+1)
	for i, pt := range r {
		out[i] = boundary.Point{
			Lon: float64(pt.Lon) / 1e7,
			Lat: float64(pt.Lat) / 1e7,
		}
	}
	out[len(r)] = out[0]
	return out
}

// MarshalCanonical renders doc as the bit-exact canonical JSON document
// required by spec §6: sorted keys, no trailing whitespace, integers only.
func MarshalCanonical(doc *Document) ([]byte, error) {
	return canonicaljson.Marshal(doc)
}
