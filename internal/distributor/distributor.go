// Copyright 2025 Shadow Atlas Contributors
//
// Package distributor publishes a committed snapshot payload through a
// content-addressed store and records the returned identifier on the
// snapshot, per spec.md §4.10. A failed publication leaves the snapshot
// intact without a content_id; retrying is always safe since Put is
// idempotent.

package distributor

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/shadowatlas/core/internal/cas"
	"github.com/shadowatlas/core/internal/snapshot"
)

// Distributor ties a cas.Store to a snapshot.Manager.
type Distributor struct {
	store   cas.Store
	manager *snapshot.Manager
	logger  *log.Logger
}

// Option configures a Distributor at construction time.
type Option func(*Distributor)

// WithLogger sets a custom logger.
func WithLogger(logger *log.Logger) Option {
	return func(d *Distributor) { d.logger = logger }
}

// New constructs a Distributor.
func New(store cas.Store, manager *snapshot.Manager, opts ...Option) *Distributor {
	d := &Distributor{
		store:   store,
		manager: manager,
		logger:  log.New(os.Stderr, "[Distributor] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish publishes an already-serialized committed snapshot payload. On
// success, it attaches the resulting content id to the snapshot exactly
// once. On failure, the snapshot is left untouched and the caller may
// retry without rebuilding.
func (d *Distributor) Publish(ctx context.Context, version int64, payload []byte) (string, error) {
	contentID, err := d.store.Put(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("distributor: publish failed, snapshot %d unmodified: %w", version, err)
	}

	if err := d.manager.AttachContentID(ctx, version, contentID); err != nil {
		return "", fmt.Errorf("distributor: publish succeeded but attaching content_id failed: %w", err)
	}

	d.logger.Printf("published snapshot version=%d content_id=%s", version, contentID)
	return contentID, nil
}

// Verify checks whether a previously published content id is still present
// in the content-addressed store, for replication-check probes (spec §6).
func (d *Distributor) Verify(ctx context.Context, contentID string) (bool, error) {
	return d.store.Head(ctx, contentID)
}
