// Copyright 2025 Shadow Atlas Contributors
//
// Package boundary defines the data model produced by external boundary
// providers and consumed by the validation/resolution/commitment pipeline.
// Nothing in this package performs network I/O; providers are modeled as
// the Provider interface in provider.go and implemented elsewhere.

package boundary

import "time"

// Type is a tagged boundary-type variant. The set is finite and versioned;
// an unrecognized Type string is a halting validation error (§4.3).
type Type string

const (
	// Legislative
	TypeCongressional  Type = "congressional"
	TypeStateUpper     Type = "state-upper"
	TypeStateLower     Type = "state-lower"
	TypeParliamentary  Type = "parliamentary"

	// Administrative
	TypeCounty            Type = "county"
	TypeMunicipality       Type = "municipality"
	TypeSchoolUnified      Type = "school-unified"
	TypeSchoolElementary   Type = "school-elementary"
	TypeSchoolSecondary    Type = "school-secondary"

	// Electoral
	TypeVotingPrecinct Type = "voting-precinct"
	TypeWard           Type = "ward"
	TypeCouncil        Type = "council"
)

// KnownTypes is the finite, versioned set of recognized boundary types. A
// NormalizedBoundary with any other Type fails structural validation.
var KnownTypes = map[Type]struct{}{
	TypeCongressional:    {},
	TypeStateUpper:       {},
	TypeStateLower:       {},
	TypeParliamentary:    {},
	TypeCounty:           {},
	TypeMunicipality:     {},
	TypeSchoolUnified:    {},
	TypeSchoolElementary: {},
	TypeSchoolSecondary:  {},
	TypeVotingPrecinct:   {},
	TypeWard:             {},
	TypeCouncil:          {},
}

// IsKnown reports whether t belongs to the finite recognized type set.
func IsKnown(t Type) bool {
	_, ok := KnownTypes[t]
	return ok
}

// Authority is an ordinal trust weight, 1 (unverified) through 5 (federal
// mandate). A record with Authority == 0 is rejected by the validator.
type Authority int

const (
	AuthorityUnverified       Authority = 1
	AuthorityCommunityVerified Authority = 2
	AuthorityMunicipalOfficial Authority = 3
	AuthorityStateOfficial     Authority = 4
	AuthorityFederalMandate    Authority = 5
)

// Provenance binds a boundary record to the source that published it. The
// provenance is part of the cryptographic commitment (§3): forging a leaf
// requires also forging the source URL + checksum combination.
type Provenance struct {
	SourceURL           string    `json:"source_url"`
	SourceName          string    `json:"source_name"`
	RetrievedAt         time.Time `json:"retrieved_at"`
	ChecksumOfRawPayload string   `json:"checksum_of_raw_payload"`
	VintageYear         int       `json:"vintage_year"`
	License             string    `json:"license"`
}

// Point is a WGS84 longitude/latitude pair in floating-point degrees, as
// received from a provider before canonicalization/quantization.
type Point struct {
	Lon float64
	Lat float64
}

// Ring is a closed sequence of points; the first and last point are
// expected to coincide (or are made to by the provider's normalization).
type Ring []Point

// Polygon is an outer ring plus zero or more hole rings.
type Polygon struct {
	Outer Ring
	Holes []Ring
}

// Geometry is a WGS84 polygon or multi-polygon, as received from a
// provider. It must be closed and non-self-intersecting before it reaches
// the leaf hasher; canonicalization (quantization, winding, rotation) is
// performed by internal/leaf, not here.
type Geometry struct {
	Polygons []Polygon
}

// NormalizedBoundary is the record shape emitted by a Provider (§3). Its id
// is expected to be globally unique and stable across vintages.
type NormalizedBoundary struct {
	ID          string
	DisplayName string
	CountryCode string // ISO 3166-1 alpha-2
	RegionCode  string // country-internal region key
	BoundaryType Type
	Geometry    Geometry
	Authority   Authority
	Provenance  Provenance
	ValidFrom   time.Time
	ValidUntil  *time.Time
}

// Identity is the (id, boundary_type) pair the Authority Resolver groups
// candidate records by (§4.4).
type Identity struct {
	ID   string
	Type Type
}

func (b NormalizedBoundary) Identity() Identity {
	return Identity{ID: b.ID, Type: b.BoundaryType}
}

// Tuple identifies one ingestion unit: a layer within a jurisdiction. It is
// the unit the Orchestrator schedules, checkpoints, and retries (§4.7) and
// the key the Change Detector's checksum cache is keyed by, together with a
// vintage year (§4.9, §6).
type Tuple struct {
	Layer       Type
	Jurisdiction string // country code, or "country/region" for sub-national layers
	Vintage     int
}
