// Copyright 2025 Shadow Atlas Contributors

package validator

import (
	"context"
	"fmt"
	"log"

	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/geoid"
)

// Warning is a non-halting finding recorded alongside Ok results.
type Warning struct {
	Kind    HaltKind
	Message string
}

// Result is the outcome of validating one (layer, jurisdiction) group.
type Result struct {
	Records  []boundary.NormalizedBoundary
	Warnings []Warning
}

// CrossSourceChecker is the optional secondary-provider comparison of
// step 6 (§4.3). It degrades gracefully: if unavailable, the validator
// treats the step as skipped rather than failing the batch.
type CrossSourceChecker interface {
	// QualityScore compares records against a secondary source for
	// (layer, jurisdiction) and returns a score in [0, 1]. ok == false
	// means the secondary source was unavailable.
	QualityScore(ctx context.Context, layer boundary.Type, jurisdiction string, records []boundary.NormalizedBoundary) (score float64, ok bool)
}

// JurisdictionException records a documented exception for one (layer,
// jurisdiction) pair (e.g. dual school-district systems legitimately
// overlapping in certain metropolitan areas). The identity check consults it
// and reports missing ids as a warning instead of a halt (§4.3
// step 7). The exception table is configuration-driven per the Open
// Questions in spec §9, never hard-coded.
type JurisdictionException struct {
	Layer        boundary.Type
	Jurisdiction string
	Reason       string
}

// Config holds the tunables the validator needs; all are configuration
// artifacts, never baked-in constants (spec §9 Open Questions).
type Config struct {
	CardinalityEpsilon      float64 // default 0.05
	CrossSourceMinQuality   float64 // seed default ~0.7
	CrossSourceHaltOnBreach bool    // false => warn, true => halt
	Exceptions              []JurisdictionException
}

// DefaultConfig returns the seed defaults called out in spec §9; operators
// are expected to override these from configuration, not rely on them.
func DefaultConfig() Config {
	return Config{
		CardinalityEpsilon:      0.05,
		CrossSourceMinQuality:   0.7,
		CrossSourceHaltOnBreach: false,
	}
}

// Validator runs the ordered check pipeline of spec §4.3.
type Validator struct {
	registry    *geoid.Registry
	cfg         Config
	crossSource CrossSourceChecker
	logger      *log.Logger
}

// Option configures a Validator at construction time.
type Option func(*Validator)

// WithCrossSourceChecker attaches the optional secondary-provider
// comparison of step 6.
func WithCrossSourceChecker(c CrossSourceChecker) Option {
	return func(v *Validator) { v.crossSource = c }
}

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New constructs a Validator backed by registry, applying cfg and any
// options.
func New(registry *geoid.Registry, cfg Config, opts ...Option) (*Validator, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	v := &Validator{
		registry: registry,
		cfg:      cfg,
		logger:   log.New(log.Writer(), "[Validator] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Validate runs the full ordered pipeline against one (layer, jurisdiction)
// group. Steps run in the exact order of spec §4.3; the first halting
// condition returns immediately with a *HaltError via err.
func (v *Validator) Validate(ctx context.Context, layer boundary.Type, jurisdiction string, records []boundary.NormalizedBoundary) (*Result, error) {
	if len(records) == 0 {
		return nil, ErrEmptyBatch
	}

	result := &Result{Records: records}

	// 1. Structural
	for _, r := range records {
		if err := v.structuralCheck(r); err != nil {
			return nil, err
		}
	}

	// 2. Geographic restriction
	if allowed, ok := v.registry.IsAllowedHere(layer, jurisdiction); ok && !allowed {
		return nil, &HaltError{Kind: HaltGeographic, Layer: string(layer), Jurisdiction: jurisdiction}
	}

	// 3. Topology
	for _, r := range records {
		if err := v.topologyCheck(r); err != nil {
			return nil, err
		}
	}

	// 4. Cardinality
	if expected, ok := v.registry.ExpectedCount(layer, jurisdiction); ok {
		warn, err := v.cardinalityCheck(len(records), expected)
		if err != nil {
			return nil, err
		}
		if warn != nil {
			result.Warnings = append(result.Warnings, *warn)
		}
	}

	// 5. Identity coverage
	if expectedIDs, ok := v.registry.ExpectedIDs(layer, jurisdiction); ok {
		warns, err := v.identityCheck(records, expectedIDs, layer, jurisdiction)
		if err != nil {
			return nil, err
		}
		result.Warnings = append(result.Warnings, warns...)
	}

	// 6. Cross-source (optional, degrades gracefully)
	if v.crossSource != nil {
		warn, err := v.crossSourceCheck(ctx, layer, jurisdiction, records)
		if err != nil {
			return nil, err
		}
		if warn != nil {
			result.Warnings = append(result.Warnings, *warn)
		}
	}

	// 7. Jurisdiction-specific overrides are consulted only inside the
	// identity check (step 5) via v.isExcepted. No step of this validator
	// detects overlaps between records, so no overlap halt is raised.

	return result, nil
}

func (v *Validator) structuralCheck(r boundary.NormalizedBoundary) error {
	if r.ID == "" {
		return &HaltError{Kind: HaltStructural, Field: "id"}
	}
	if !boundary.IsKnown(r.BoundaryType) {
		return &HaltError{Kind: HaltStructural, Field: fmt.Sprintf("boundary_type=%q", r.BoundaryType)}
	}
	if r.Authority < 1 {
		return &HaltError{Kind: HaltStructural, Field: "authority"}
	}
	if r.Provenance.SourceURL == "" {
		return &HaltError{Kind: HaltStructural, Field: "provenance.source_url"}
	}
	if r.Provenance.ChecksumOfRawPayload == "" {
		return &HaltError{Kind: HaltStructural, Field: "provenance.checksum_of_raw_payload"}
	}
	return nil
}

func (v *Validator) topologyCheck(r boundary.NormalizedBoundary) error {
	if len(r.Geometry.Polygons) == 0 {
		return &HaltError{Kind: HaltTopology, IntersectionAt: fmt.Sprintf("%s: empty geometry", r.ID)}
	}
	for _, poly := range r.Geometry.Polygons {
		if err := checkRingClosedSimple(poly.Outer); err != nil {
			return &HaltError{Kind: HaltTopology, IntersectionAt: fmt.Sprintf("%s: outer ring: %v", r.ID, err)}
		}
		for _, hole := range poly.Holes {
			if err := checkRingClosedSimple(hole); err != nil {
				return &HaltError{Kind: HaltTopology, IntersectionAt: fmt.Sprintf("%s: hole ring: %v", r.ID, err)}
			}
		}
	}
	return nil
}

// checkRingClosedSimple enforces closure and rejects duplicate consecutive
// vertices and self-intersection. Self-intersection detection uses a
// segment-pair sweep adequate for the small per-ring vertex counts typical
// of administrative boundaries; it is not a production-grade GIS library,
// which is intentionally out of scope (spec §1 treats geometry ingestion as
// an external concern).
func checkRingClosedSimple(ring boundary.Ring) error {
	if len(ring) < 4 {
		return fmt.Errorf("ring has fewer than 4 points (needs closure)")
	}
	first, last := ring[0], ring[len(ring)-1]
	if first.Lon != last.Lon || first.Lat != last.Lat {
		return fmt.Errorf("ring is not closed")
	}
	for i := 1; i < len(ring); i++ {
		if ring[i].Lon == ring[i-1].Lon && ring[i].Lat == ring[i-1].Lat {
			return fmt.Errorf("duplicate consecutive vertex at index %d", i)
		}
	}
	if selfIntersects(ring) {
		return fmt.Errorf("self-intersecting ring")
	}
	return nil
}

func selfIntersects(ring boundary.Ring) bool {
	n := len(ring) - 1 // last point duplicates first
	for i := 0; i < n; i++ {
		a1, a2 := ring[i], ring[i+1]
		for j := i + 1; j < n; j++ {
			if j == i || (i == 0 && j == n-1) {
				continue // adjacent segments share an endpoint by construction
			}
			b1, b2 := ring[j], ring[j+1]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, p3, p4 boundary.Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(a, b, c boundary.Point) float64 {
	return (b.Lon-a.Lon)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lon-a.Lon)
}

func (v *Validator) cardinalityCheck(actual, expected int) (*Warning, error) {
	if expected == 0 {
		return nil, nil
	}
	ratio := float64(actual) / float64(expected)
	lower := 1 - v.cfg.CardinalityEpsilon
	upper := 1 + v.cfg.CardinalityEpsilon
	if ratio < lower {
		return nil, &HaltError{Kind: HaltCardinality, Expected: expected, Actual: actual}
	}
	if ratio > upper {
		return &Warning{Kind: HaltCardinality, Message: fmt.Sprintf("excess records: expected %d, got %d", expected, actual)}, nil
	}
	return nil, nil
}

func (v *Validator) identityCheck(records []boundary.NormalizedBoundary, expected map[string]struct{}, layer boundary.Type, jurisdiction string) ([]Warning, error) {
	present := make(map[string]struct{}, len(records))
	for _, r := range records {
		present[r.ID] = struct{}{}
	}

	missing := make(map[string]struct{})
	for id := range expected {
		if _, ok := present[id]; !ok {
			missing[id] = struct{}{}
		}
	}

	if len(missing) > 0 {
		if v.isExcepted(layer, jurisdiction) {
			return []Warning{{Kind: HaltIdentity, Message: fmt.Sprintf("%d missing ids excused by documented jurisdiction exception", len(missing))}}, nil
		}
		return nil, &HaltError{Kind: HaltIdentity, Layer: string(layer), Jurisdiction: jurisdiction, Missing: missing}
	}

	var warnings []Warning
	for id := range present {
		if _, ok := expected[id]; !ok {
			warnings = append(warnings, Warning{Kind: HaltIdentity, Message: fmt.Sprintf("extra id not in canonical set: %s", id)})
		}
	}
	return warnings, nil
}

func (v *Validator) crossSourceCheck(ctx context.Context, layer boundary.Type, jurisdiction string, records []boundary.NormalizedBoundary) (*Warning, error) {
	score, ok := v.crossSource.QualityScore(ctx, layer, jurisdiction, records)
	if !ok {
		v.logger.Printf("cross-source check unavailable for %s/%s, degrading to skip", layer, jurisdiction)
		return nil, nil
	}
	if score >= v.cfg.CrossSourceMinQuality {
		return nil, nil
	}
	if v.cfg.CrossSourceHaltOnBreach {
		return nil, &HaltError{Kind: HaltCrossSource, Detail: fmt.Sprintf("quality score %.3f below minimum %.3f", score, v.cfg.CrossSourceMinQuality)}
	}
	return &Warning{Kind: HaltCrossSource, Message: fmt.Sprintf("quality score %.3f below minimum %.3f", score, v.cfg.CrossSourceMinQuality)}, nil
}

// isExcepted consults the configured jurisdiction exception table (§4.3
// step 7, §9 Open Questions) before raising an identity halt.
func (v *Validator) isExcepted(layer boundary.Type, jurisdiction string) bool {
	for _, e := range v.cfg.Exceptions {
		if e.Layer == layer && e.Jurisdiction == jurisdiction {
			return true
		}
	}
	return false
}
