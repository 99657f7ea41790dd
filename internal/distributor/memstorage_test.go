package distributor

import (
	"context"
	"fmt"
	"sync"

	"github.com/shadowatlas/core/internal/snapshot"
)

// inMemSnapshotStorage is a minimal snapshot.Storage test double, local to
// this package's tests (internal/snapshot's own double is unexported).
type inMemSnapshotStorage struct {
	mu      sync.Mutex
	records map[int64]*snapshot.Record
}

func newInMemSnapshotStorage() *inMemSnapshotStorage {
	return &inMemSnapshotStorage{records: map[int64]*snapshot.Record{}}
}

func (s *inMemSnapshotStorage) LatestVersion(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max int64
	for v := range s.records {
		if v > max {
			max = v
		}
	}
	return max, nil
}

func (s *inMemSnapshotStorage) Create(_ context.Context, rec *snapshot.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.Version]; ok {
		return fmt.Errorf("duplicate version %d", rec.Version)
	}
	cp := *rec
	s.records[rec.Version] = &cp
	return nil
}

func (s *inMemSnapshotStorage) Get(_ context.Context, version int64) (*snapshot.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[version]
	if !ok {
		return nil, snapshot.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *inMemSnapshotStorage) List(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int64
	for v := range s.records {
		out = append(out, v)
	}
	return out, nil
}

func (s *inMemSnapshotStorage) SetContentID(_ context.Context, version int64, contentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[version]
	if !ok {
		return snapshot.ErrNotFound
	}
	if rec.ContentID != nil && *rec.ContentID != contentID {
		return fmt.Errorf("content id already set to %q", *rec.ContentID)
	}
	id := contentID
	rec.ContentID = &id
	return nil
}

func (s *inMemSnapshotStorage) StoreProofTemplates(context.Context, int64, map[string][]byte) error {
	return nil
}
