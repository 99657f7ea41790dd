// Copyright 2025 Shadow Atlas Contributors
//
// Package filestore implements the file-backed mode of the SnapshotStorage
// adapter described in spec.md §6: one JSON file per snapshot, named
// "snapshot-v{version}-{uuid}.json", logically identical to the relational
// mode in internal/snapshotstore/relational.

package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/field"
	"github.com/shadowatlas/core/internal/snapshot"
)

// Store is the file-backed SnapshotStorage adapter, satisfying
// snapshot.Storage. Every method that touches the directory holds mu, since
// spec §5 requires the snapshot store to be single-writer per build but
// reads (List, Get) may interleave safely.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open returns a Store rooted at dir, creating it if necessary.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: creating %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// fileRecord is the on-disk JSON shape; it mirrors snapshot.Record but uses
// hex/string encodings for the types json can't marshal directly.
type fileRecord struct {
	ID              string                    `json:"id"`
	Version         int64                     `json:"version"`
	GlobalRoot      string                    `json:"global_root"`
	LayerCounts     map[boundary.Type]int     `json:"layer_counts"`
	SourceChecksums map[string]string         `json:"source_checksums"`
	Discarded       []snapshot.DiscardedEntry `json:"discarded"`
	BuildDurationNS int64                     `json:"build_duration_ns"`
	StartedAt       string                    `json:"started_at"`
	FinishedAt      string                    `json:"finished_at"`
	CreatedAt       string                    `json:"created_at"`
	ContentID       *string                   `json:"content_id,omitempty"`
}

func toFileRecord(rec *snapshot.Record) fileRecord {
	return fileRecord{
		ID:              rec.ID.String(),
		Version:         rec.Version,
		GlobalRoot:      field.HexString(rec.GlobalRoot),
		LayerCounts:     rec.LayerCounts,
		SourceChecksums: rec.SourceChecksums,
		Discarded:       rec.Discarded,
		BuildDurationNS: rec.BuildDuration.Nanoseconds(),
		StartedAt:       rec.StartedAt.Format(timeLayout),
		FinishedAt:      rec.FinishedAt.Format(timeLayout),
		CreatedAt:       rec.CreatedAt.Format(timeLayout),
		ContentID:       rec.ContentID,
	}
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (f fileRecord) toRecord() (*snapshot.Record, error) {
	root, err := field.FromHex(f.GlobalRoot)
	if err != nil {
		return nil, fmt.Errorf("filestore: parsing global_root: %w", err)
	}
	id, err := uuid.Parse(f.ID)
	if err != nil {
		return nil, fmt.Errorf("filestore: parsing id: %w", err)
	}
	startedAt, err := time.Parse(timeLayout, f.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("filestore: parsing started_at: %w", err)
	}
	finishedAt, err := time.Parse(timeLayout, f.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("filestore: parsing finished_at: %w", err)
	}
	createdAt, err := time.Parse(timeLayout, f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("filestore: parsing created_at: %w", err)
	}
	return &snapshot.Record{
		ID:              id,
		Version:         f.Version,
		GlobalRoot:      root,
		LayerCounts:     f.LayerCounts,
		SourceChecksums: f.SourceChecksums,
		Discarded:       f.Discarded,
		BuildDuration:   time.Duration(f.BuildDurationNS),
		StartedAt:       startedAt,
		FinishedAt:      finishedAt,
		CreatedAt:       createdAt,
		ContentID:       f.ContentID,
	}, nil
}

func (s *Store) pathForVersion(version int64) (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, fmt.Sprintf("snapshot-v%d-*.json", version)))
	if err != nil {
		return "", fmt.Errorf("filestore: glob version %d: %w", version, err)
	}
	if len(matches) == 0 {
		return "", snapshot.ErrNotFound
	}
	return matches[0], nil
}

// LatestVersion implements snapshot.Storage.
func (s *Store) LatestVersion(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("filestore: reading dir: %w", err)
	}
	var max int64
	for _, e := range entries {
		v, ok := parseVersionFromName(e.Name())
		if ok && v > max {
			max = v
		}
	}
	return max, nil
}

// Create implements snapshot.Storage.
func (s *Store) Create(_ context.Context, rec *snapshot.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, _ := s.pathForVersion(rec.Version); existing != "" {
		return fmt.Errorf("filestore: version %d already exists", rec.Version)
	}

	name := fmt.Sprintf("snapshot-v%d-%s.json", rec.Version, rec.ID.String())
	raw, err := json.MarshalIndent(toFileRecord(rec), "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: marshal snapshot %d: %w", rec.Version, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("filestore: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("filestore: rename %s: %w", tmp, err)
	}
	return nil
}

// Get implements snapshot.Storage.
func (s *Store) Get(_ context.Context, version int64) (*snapshot.Record, error) {
	s.mu.Lock()
	path, err := s.pathForVersion(version)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", path, err)
	}
	var fr fileRecord
	if err := json.Unmarshal(raw, &fr); err != nil {
		return nil, fmt.Errorf("filestore: unmarshal %s: %w", path, err)
	}
	return fr.toRecord()
}

// List implements snapshot.Storage.
func (s *Store) List(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("filestore: reading dir: %w", err)
	}
	var out []int64
	for _, e := range entries {
		if v, ok := parseVersionFromName(e.Name()); ok {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// SetContentID implements snapshot.Storage: idempotent, and errors if a
// different content_id is already attached (spec §4.8's "exactly once").
func (s *Store) SetContentID(ctx context.Context, version int64, contentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.pathForVersion(version)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("filestore: read %s: %w", path, err)
	}
	var fr fileRecord
	if err := json.Unmarshal(raw, &fr); err != nil {
		return fmt.Errorf("filestore: unmarshal %s: %w", path, err)
	}
	if fr.ContentID != nil {
		if *fr.ContentID == contentID {
			return nil
		}
		return fmt.Errorf("filestore: snapshot %d already has content_id %q", version, *fr.ContentID)
	}
	fr.ContentID = &contentID

	updated, err := json.MarshalIndent(fr, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: marshal %s: %w", path, err)
	}
	return os.WriteFile(path, updated, 0o644)
}

// StoreProofTemplates implements snapshot.Storage, writing proof blobs
// alongside the snapshot file in a "v{version}-proofs/" sibling directory.
func (s *Store) StoreProofTemplates(_ context.Context, version int64, templates map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.pathForVersion(version); err != nil {
		return err
	}

	dir := filepath.Join(s.dir, fmt.Sprintf("v%d-proofs", version))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("filestore: creating proof dir: %w", err)
	}
	for key, blob := range templates {
		name := strings.ReplaceAll(key, "/", "_") + ".bin"
		if err := os.WriteFile(filepath.Join(dir, name), blob, 0o644); err != nil {
			return fmt.Errorf("filestore: writing proof template %q: %w", key, err)
		}
	}
	return nil
}

func parseVersionFromName(name string) (int64, bool) {
	if !strings.HasPrefix(name, "snapshot-v") || !strings.HasSuffix(name, ".json") {
		return 0, false
	}
	rest := strings.TrimPrefix(name, "snapshot-v")
	dash := strings.Index(rest, "-")
	if dash < 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(rest[:dash], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
