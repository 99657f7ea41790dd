// Copyright 2025 Shadow Atlas Contributors

package snapshot

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Storage lookups for an unknown version.
var ErrNotFound = errors.New("snapshot: version not found")

// ErrConcurrentBuild is returned by Manager.Commit when another Commit is
// already in flight on the same Manager (spec §5: "concurrent builds targeting the same
// storage are forbidden and must be rejected at start").
var ErrConcurrentBuild = errors.New("snapshot: concurrent build targeting the same storage")

// Storage is the dual-mode persistence adapter described in spec.md §6.
// Both the relational (internal/snapshotstore/relational) and file-backed
// (internal/snapshotstore/filestore) implementations are semantically
// equivalent; a process picks exactly one at startup.
type Storage interface {
	// LatestVersion returns the highest persisted version, or 0 if none
	// exists yet, so the Manager can assign the next version monotonically.
	LatestVersion(ctx context.Context) (int64, error)

	// Create persists a brand-new, immutable snapshot record. Implementations
	// must reject a duplicate version.
	Create(ctx context.Context, rec *Record) error

	// Get retrieves a previously persisted snapshot by version.
	Get(ctx context.Context, version int64) (*Record, error)

	// List returns every persisted version in ascending order.
	List(ctx context.Context) ([]int64, error)

	// SetContentID idempotently attaches a content id to an existing
	// snapshot. Calling it again with the same id is a no-op; calling it
	// with a different id than what's already stored is an error, since
	// spec §4.8 mandates "attach content_id exactly once".
	SetContentID(ctx context.Context, version int64, contentID string) error

	// StoreProofTemplates persists optional precomputed proof material for
	// a snapshot, keyed by snapshot.TupleKey.
	StoreProofTemplates(ctx context.Context, version int64, templates map[string][]byte) error
}
