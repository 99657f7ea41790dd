// Copyright 2025 Shadow Atlas Contributors

package changedetector

import (
	"time"

	"github.com/shadowatlas/core/internal/boundary"
)

// PriorContribution reports whether some prior snapshot already ingested
// tuple at exactly checksum. The change detector consults this before
// honoring an unchanged-metadata skip, since unchanged (etag, last_modified)
// is only advisory — the decisive signal is that the data behind it was
// already committed (spec §4.9).
type PriorContribution func(tuple boundary.Tuple, checksum string) bool

// TTLPolicy computes how long a cache entry for tuple remains valid before
// it is forced to re-fetch regardless of ETag (spec §4.10: "each (layer,
// vintage) carries an expiration derived from the source's published
// release schedule plus a configurable grace period").
type TTLPolicy func(tuple boundary.Tuple) time.Duration

// Detector decides, per tuple, whether a build can skip re-fetching.
type Detector struct {
	cache   *Cache
	ttl     TTLPolicy
	priorFn PriorContribution
}

// Option configures a Detector at construction time.
type Option func(*Detector)

// WithPriorContribution attaches the snapshot-history lookup used to
// validate a skip decision. Without one, no skip is ever granted: an
// unknown ingestion history must not be silently assumed clean.
func WithPriorContribution(fn PriorContribution) Option {
	return func(d *Detector) { d.priorFn = fn }
}

// WithTTLPolicy overrides the default TTL policy (a fixed 365-day fallback
// when layer-specific schedules are not configured).
func WithTTLPolicy(fn TTLPolicy) Option {
	return func(d *Detector) { d.ttl = fn }
}

// New constructs a Detector backed by cache.
func New(cache *Cache, opts ...Option) *Detector {
	d := &Detector{
		cache: cache,
		ttl:   func(boundary.Tuple) time.Duration { return 365 * 24 * time.Hour },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decision is the outcome of evaluating one tuple against the cache.
type Decision struct {
	Skip bool
	// CachedChecksum is the checksum the skip decision was validated
	// against, populated only when Skip is true.
	CachedChecksum string
	Reason         string
}

// Evaluate performs a freshness probe comparison for tuple. probe is the
// result of the provider's freshness_probe hook; asOf anchors the TTL
// check for deterministic, reproducible decisions.
func (d *Detector) Evaluate(tuple boundary.Tuple, probe boundary.FreshnessProbe, asOf time.Time) (Decision, error) {
	entry, ok, err := d.cache.Get(tuple)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return Decision{Skip: false, Reason: "never ingested"}, nil
	}

	if !entry.ExpiresAt.IsZero() && !asOf.Before(entry.ExpiresAt) {
		return Decision{Skip: false, Reason: "cache entry expired"}, nil
	}

	if entry.ETag != probe.ETag || entry.LastModified != probe.LastModified {
		return Decision{Skip: false, Reason: "freshness metadata changed"}, nil
	}

	if entry.LastChecksum == "" {
		return Decision{Skip: false, Reason: "no prior checksum recorded"}, nil
	}

	if d.priorFn == nil || !d.priorFn(tuple, entry.LastChecksum) {
		return Decision{Skip: false, Reason: "no prior snapshot contributed this checksum"}, nil
	}

	return Decision{Skip: true, CachedChecksum: entry.LastChecksum, Reason: "unchanged metadata, already committed"}, nil
}

// RecordFetch updates the cache entry after a successful fetch, per spec
// §4.9: "successful fetches update the cache entry" unconditionally.
func (d *Detector) RecordFetch(tuple boundary.Tuple, probe boundary.FreshnessProbe, checksum string, observedAt time.Time) error {
	entry := Entry{
		ETag:         probe.ETag,
		LastModified: probe.LastModified,
		LastChecksum: checksum,
		ObservedAt:   observedAt,
		ExpiresAt:    observedAt.Add(d.ttl(tuple)),
	}
	return d.cache.Put(tuple, entry)
}
