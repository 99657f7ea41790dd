// Copyright 2025 Shadow Atlas Contributors
//
// Package validator runs the structural, topological, completeness,
// cross-source, and geographic-restriction checks of spec.md §4.3 against a
// stream of boundary.NormalizedBoundary records grouped by (layer,
// jurisdiction).

package validator

import "errors"

// HaltKind classifies why a validation run halted.
type HaltKind string

const (
	HaltStructural  HaltKind = "structural"
	HaltGeographic  HaltKind = "geographic"
	HaltTopology    HaltKind = "topology"
	HaltCardinality HaltKind = "cardinality"
	HaltIdentity    HaltKind = "identity"
	HaltCrossSource HaltKind = "cross_source"
)

// Sentinel errors for malformed validator configuration.
var (
	ErrNilRegistry = errors.New("validator: registry cannot be nil")
	ErrEmptyBatch  = errors.New("validator: record batch is empty")
)

// HaltError is returned when a validation run must halt the affected tuple
// (spec §4.3, §7). It carries a typed kind and a diagnostic payload so the
// Orchestrator and the operator surface can report specifics rather than a
// bare error string.
type HaltError struct {
	Kind HaltKind

	// Payload fields; only the ones relevant to Kind are populated.
	Field          string            // Structural: which required field was missing/invalid
	Layer          string            // Geographic: the restricted layer
	Jurisdiction   string            // Geographic/Cardinality/Identity: the jurisdiction in question
	IntersectionAt string            // Topology: a human-readable locus of the self-intersection
	Expected       int               // Cardinality: expected count
	Actual         int               // Cardinality: actual count
	Missing        map[string]struct{} // Identity: missing required ids
	Detail         string            // CrossSource and catch-all free text
}

func (e *HaltError) Error() string {
	switch e.Kind {
	case HaltStructural:
		return "validator: structural halt: " + e.Field
	case HaltGeographic:
		return "validator: geographic restriction halt: " + e.Layer + "/" + e.Jurisdiction
	case HaltTopology:
		return "validator: topology halt: " + e.IntersectionAt
	case HaltCardinality:
		return "validator: cardinality halt"
	case HaltIdentity:
		return "validator: identity halt: missing required ids"
	case HaltCrossSource:
		return "validator: cross-source halt: " + e.Detail
	default:
		return "validator: halt"
	}
}
