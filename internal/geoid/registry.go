// Copyright 2025 Shadow Atlas Contributors
//
// Package geoid holds the canonical GEOID registry: per-layer,
// per-jurisdiction expected identifier sets and cardinalities, loaded from
// a data file rather than generated algorithmically. Real-world districts
// are non-sequential (letter suffixes, skipped numbers, historical
// residue), so expected-id sets are always literal extracted lists, never
// ranges.

package geoid

import (
	"fmt"

	"github.com/shadowatlas/core/internal/boundary"
)

// Key identifies one (layer, jurisdiction) pair in the registry.
type Key struct {
	Layer        boundary.Type
	Jurisdiction string
}

// Entry holds the canonical identifier set and geographic restriction for
// one (layer, jurisdiction).
type Entry struct {
	ExpectedIDs map[string]struct{}
	AllowedHere bool
}

// Registry answers the three required queries of §4.2. An unknown
// (layer, jurisdiction) returns ok == false from every method, and callers
// (the Validator) downgrade from a cardinality/identity check to a
// format-only check in that case.
type Registry struct {
	entries map[Key]Entry
}

// New builds an empty registry. Entries are added via LoadFile or LoadEntry;
// there is no algorithmic generation path by design.
func New() *Registry {
	return &Registry{entries: make(map[Key]Entry)}
}

// LoadEntry registers the literal expected-id set for one (layer,
// jurisdiction). ids must be the exact extracted identifiers, not a
// generated range.
func (r *Registry) LoadEntry(layer boundary.Type, jurisdiction string, ids []string, allowedHere bool) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	r.entries[Key{Layer: layer, Jurisdiction: jurisdiction}] = Entry{
		ExpectedIDs: set,
		AllowedHere: allowedHere,
	}
}

// ExpectedCount returns the expected cardinality for (layer, jurisdiction),
// or ok == false if the registry has no entry for it.
func (r *Registry) ExpectedCount(layer boundary.Type, jurisdiction string) (count int, ok bool) {
	e, found := r.entries[Key{Layer: layer, Jurisdiction: jurisdiction}]
	if !found {
		return 0, false
	}
	return len(e.ExpectedIDs), true
}

// ExpectedIDs returns the expected identifier set for (layer,
// jurisdiction), or ok == false if unknown.
func (r *Registry) ExpectedIDs(layer boundary.Type, jurisdiction string) (ids map[string]struct{}, ok bool) {
	e, found := r.entries[Key{Layer: layer, Jurisdiction: jurisdiction}]
	if !found {
		return nil, false
	}
	return e.ExpectedIDs, true
}

// IsAllowedHere reports whether layer is permitted to exist in
// jurisdiction at all, for geographically restricted layers (e.g. certain
// legislative layers exist only in a documented subset of jurisdictions).
// Unknown (layer, jurisdiction) pairs are permissive: ok == false signals
// "no restriction is known", not "forbidden".
func (r *Registry) IsAllowedHere(layer boundary.Type, jurisdiction string) (allowed bool, ok bool) {
	e, found := r.entries[Key{Layer: layer, Jurisdiction: jurisdiction}]
	if !found {
		return true, false
	}
	return e.AllowedHere, true
}

// String renders a Key for diagnostics and halt payloads.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Layer, k.Jurisdiction)
}
