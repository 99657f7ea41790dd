// Copyright 2025 Shadow Atlas Contributors
//
// Package snapshot assigns monotonic versions to completed builds and keeps
// the append-only historical record described by spec.md §4.8: a snapshot
// freezes a global root and its audit metadata; intermediate trees are
// discarded once the snapshot is written.

package snapshot

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/field"
)

// Record is one immutable, versioned build outcome. Every field except
// ContentID and ProofTemplates is fixed at creation time. ContentID is
// attached at most once, after the fact, by AttachContentID; proof templates
// are stored after the fact by AttachProofTemplates, and a repeat call with
// the same key overwrites the earlier template.
type Record struct {
	ID      uuid.UUID
	Version int64

	GlobalRoot field.Element

	// LayerCounts is the number of committed leaves per boundary type.
	LayerCounts map[boundary.Type]int

	// SourceChecksums maps a tuple key ("layer/jurisdiction/vintage") to the
	// provider checksum that contributed it, forming the audit trail a
	// consumer can use to verify which upstream payload produced this root.
	SourceChecksums map[string]string

	// Discarded records every candidate the authority resolver dropped
	// while building this snapshot (spec §4.4's audit trail requirement).
	Discarded []DiscardedEntry

	BuildDuration time.Duration
	StartedAt     time.Time
	FinishedAt    time.Time

	// CreatedAt is set once, when the snapshot is committed, and never
	// modified afterward. It is the basis for spec §8's monotonicity
	// property: snapshot(n+1).CreatedAt >= snapshot(n).CreatedAt.
	CreatedAt time.Time

	// ContentID is nil until the distributor successfully publishes this
	// snapshot's payload (spec §4.10). It is attached at most once.
	ContentID *string

	// ProofTemplates, when present, holds precomputed per-district proof
	// material keyed the same way as SourceChecksums entries. Optional:
	// most deployments regenerate proofs on demand instead of storing them.
	ProofTemplates map[string][]byte
}

// DiscardedEntry is the audit-trail shape for one authority-resolution
// loser, flattened for storage independent of the in-memory resolver type.
type DiscardedEntry struct {
	IdentityID   string
	IdentityType boundary.Type
	SourceURL    string
	SourceName   string
	Reason       string
}

// TupleKey formats the canonical SourceChecksums / ProofTemplates map key
// for one ingestion tuple.
func TupleKey(t boundary.Tuple) string {
	return string(t.Layer) + "/" + t.Jurisdiction + "/" + strconv.Itoa(t.Vintage)
}
