// Copyright 2025 Shadow Atlas Contributors
//
// Package changedetector consults the checksum cache before a build and
// decides which (layer, jurisdiction, vintage) tuples can skip re-fetching,
// per spec.md §4.9 and the cache TTL policy of §4.10.

package changedetector

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/kv"
)

// Entry is the checksum cache record for one tuple. LastChecksum extends
// the bare (etag, last_modified, observed_at) shape in spec §3: a skip
// decision needs to know which checksum the unchanged metadata corresponds
// to so it can be checked against prior snapshot contributions (§4.9); that
// checksum is exactly what was last observed under this etag/last_modified
// pair, so caching it here avoids a second provider round-trip just to
// learn it again.
type Entry struct {
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	LastChecksum string    `json:"last_checksum,omitempty"`
	ObservedAt   time.Time `json:"observed_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func cacheKey(t boundary.Tuple) []byte {
	return []byte(fmt.Sprintf("freshness/%s/%s/%d", t.Layer, t.Jurisdiction, t.Vintage))
}

// Cache wraps a kv.Store with the checksum-cache access pattern.
type Cache struct {
	store kv.Store
}

// NewCache wraps store.
func NewCache(store kv.Store) *Cache {
	return &Cache{store: store}
}

// Get returns the cached entry for tuple, if any.
func (c *Cache) Get(tuple boundary.Tuple) (Entry, bool, error) {
	raw, err := c.store.Get(cacheKey(tuple))
	if err != nil {
		return Entry{}, false, err
	}
	if raw == nil {
		return Entry{}, false, nil
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// Put overwrites the cached entry for tuple. Per spec §4.9, "successful
// fetches update the cache entry" unconditionally.
func (c *Cache) Put(tuple boundary.Tuple, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.store.Set(cacheKey(tuple), raw)
}
