// Copyright 2025 Shadow Atlas Contributors

package snapshot

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/field"
)

// BuildInput is everything the Hierarchical Builder and upstream pipeline
// stages produced for one completed build, ready to be frozen into a
// Record.
type BuildInput struct {
	GlobalRoot      field.Element
	LayerCounts     map[boundary.Type]int
	SourceChecksums map[string]string
	Discarded       []DiscardedEntry
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Manager assigns monotonic versions and persists snapshots through a
// Storage adapter. It enforces the single-writer-per-build-target rule from
// spec.md §5: only one Commit may be in flight against a given Manager at a
// time.
type Manager struct {
	storage Storage
	logger  *log.Logger

	mu       sync.Mutex
	building bool
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// New constructs a Manager backed by storage.
func New(storage Storage, opts ...Option) *Manager {
	m := &Manager{
		storage: storage,
		logger:  log.New(os.Stderr, "[Snapshot] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Commit assigns the next monotonic version, freezes input into a Record,
// and persists it atomically through storage. Per spec §4.8, snapshots are
// the only historical record — the caller's in-memory tree is discarded
// after this call returns.
func (m *Manager) Commit(ctx context.Context, input BuildInput) (*Record, error) {
	m.mu.Lock()
	if m.building {
		m.mu.Unlock()
		return nil, ErrConcurrentBuild
	}
	m.building = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.building = false
		m.mu.Unlock()
	}()

	latest, err := m.storage.LatestVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: resolving latest version: %w", err)
	}

	rec := &Record{
		ID:              uuid.New(),
		Version:         latest + 1,
		GlobalRoot:      input.GlobalRoot,
		LayerCounts:     input.LayerCounts,
		SourceChecksums: input.SourceChecksums,
		Discarded:       input.Discarded,
		BuildDuration:   input.FinishedAt.Sub(input.StartedAt),
		StartedAt:       input.StartedAt,
		FinishedAt:      input.FinishedAt,
		CreatedAt:       time.Now().UTC(),
	}

	// Snapshot commit is not cancellable (spec §5): once the global root has
	// been computed, the record is either fully persisted or the process
	// crashes. We intentionally do not honor ctx cancellation past this
	// point other than passing it through for deadline/tracing purposes.
	if err := m.storage.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("snapshot: write failed, build aborted: %w", err)
	}

	m.logger.Printf("committed snapshot version=%d root=%s", rec.Version, field.HexString(rec.GlobalRoot))
	return rec, nil
}

// AttachContentID records the distributor's published content id against an
// existing snapshot. Idempotent: a repeat call with the identical id
// succeeds silently, since publication itself is idempotent (spec §4.10).
func (m *Manager) AttachContentID(ctx context.Context, version int64, contentID string) error {
	return m.storage.SetContentID(ctx, version, contentID)
}

// AttachProofTemplates persists optional precomputed proof material.
func (m *Manager) AttachProofTemplates(ctx context.Context, version int64, templates map[string][]byte) error {
	return m.storage.StoreProofTemplates(ctx, version, templates)
}

// Diff is the result of comparing two committed snapshots, per spec §4.8.
type Diff struct {
	LayersAdded          []boundary.Type
	LayersRemoved        []boundary.Type
	JurisdictionsAdded   []string
	JurisdictionsRemoved []string
	RootEqual            bool
}

// Diff compares snapshot versions vA and vB (vA is the baseline, vB the
// candidate) and reports what changed between them.
func (m *Manager) Diff(ctx context.Context, vA, vB int64) (*Diff, error) {
	a, err := m.storage.Get(ctx, vA)
	if err != nil {
		return nil, fmt.Errorf("snapshot: loading version %d: %w", vA, err)
	}
	b, err := m.storage.Get(ctx, vB)
	if err != nil {
		return nil, fmt.Errorf("snapshot: loading version %d: %w", vB, err)
	}

	d := &Diff{RootEqual: field.Equal(a.GlobalRoot, b.GlobalRoot)}
	d.LayersAdded, d.LayersRemoved = diffLayerSets(a.LayerCounts, b.LayerCounts)
	d.JurisdictionsAdded, d.JurisdictionsRemoved = diffJurisdictions(a.SourceChecksums, b.SourceChecksums)
	return d, nil
}

func diffLayerSets(a, b map[boundary.Type]int) (added, removed []boundary.Type) {
	for t := range b {
		if _, ok := a[t]; !ok {
			added = append(added, t)
		}
	}
	for t := range a {
		if _, ok := b[t]; !ok {
			removed = append(removed, t)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return added, removed
}

func diffJurisdictions(a, b map[string]string) (added, removed []string) {
	aj := jurisdictionSet(a)
	bj := jurisdictionSet(b)
	for j := range bj {
		if _, ok := aj[j]; !ok {
			added = append(added, j)
		}
	}
	for j := range aj {
		if _, ok := bj[j]; !ok {
			removed = append(removed, j)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// jurisdictionSet extracts the jurisdiction segment from each
// "layer/jurisdiction/vintage" tuple key.
func jurisdictionSet(checksums map[string]string) map[string]struct{} {
	out := make(map[string]struct{}, len(checksums))
	for key := range checksums {
		// The jurisdiction may itself contain "/" (e.g. "US/56"), so it is
		// everything between the first and the last separator.
		first := strings.Index(key, "/")
		last := strings.LastIndex(key, "/")
		if first >= 0 && last > first {
			out[key[first+1:last]] = struct{}{}
		}
	}
	return out
}
