// Copyright 2025 Shadow Atlas Contributors
//
// Package cas defines the ContentAddressedStore contract the Distributor
// publishes committed snapshot payloads through (spec.md §4.10, §6):
// put is idempotent and content-addressed, head probes replication.

package cas

import "context"

// Store is the external content-addressed object store the Distributor
// publishes through. Implementations (internal/cas/azblob, or an in-memory
// double for tests) must make Put idempotent: publishing the same payload
// bytes twice returns the same content id both times.
type Store interface {
	// Put publishes payload and returns its content id. Calling Put again
	// with byte-identical payload must return the same id without error.
	Put(ctx context.Context, payload []byte) (string, error)

	// Head reports whether contentID is present, for replication-check
	// probes (spec §6).
	Head(ctx context.Context, contentID string) (bool, error)
}
