package distributor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/cas"
	"github.com/shadowatlas/core/internal/field"
	"github.com/shadowatlas/core/internal/snapshot"
)

type failingStore struct{ err error }

func (f *failingStore) Put(context.Context, []byte) (string, error) { return "", f.err }
func (f *failingStore) Head(context.Context, string) (bool, error)  { return false, nil }

func commitOne(t *testing.T, manager *snapshot.Manager) int64 {
	t.Helper()
	now := time.Now()
	rec, err := manager.Commit(context.Background(), snapshot.BuildInput{
		GlobalRoot:      field.FromUint64(1),
		LayerCounts:     map[boundary.Type]int{boundary.TypeCounty: 1},
		SourceChecksums: map[string]string{"county/US/56/2026": "chk"},
		StartedAt:       now,
		FinishedAt:      now.Add(time.Second),
	})
	require.NoError(t, err)
	return rec.Version
}

func TestDistributor_PublishAttachesContentIDExactlyOnce(t *testing.T) {
	store := newMemManager(t)
	version := commitOne(t, store.manager)

	d := New(store.cas, store.manager)
	id1, err := d.Publish(context.Background(), version, []byte("payload"))
	require.NoError(t, err)

	id2, err := d.Publish(context.Background(), version, []byte("payload"))
	require.NoError(t, err)
	require.Equal(t, id1, id2, "re-publishing identical bytes must be idempotent")

	rec, err := store.storage.Get(context.Background(), version)
	require.NoError(t, err)
	require.NotNil(t, rec.ContentID)
	require.Equal(t, id1, *rec.ContentID)
}

func TestDistributor_FailedPublishLeavesSnapshotUnmodified(t *testing.T) {
	store := newMemManager(t)
	version := commitOne(t, store.manager)

	d := New(&failingStore{err: errors.New("network down")}, store.manager)
	_, err := d.Publish(context.Background(), version, []byte("payload"))
	require.Error(t, err)

	rec, err := store.storage.Get(context.Background(), version)
	require.NoError(t, err)
	require.Nil(t, rec.ContentID)
}

func TestDistributor_VerifyDelegatesToHead(t *testing.T) {
	store := newMemManager(t)
	version := commitOne(t, store.manager)

	d := New(store.cas, store.manager)
	id, err := d.Publish(context.Background(), version, []byte("payload"))
	require.NoError(t, err)

	ok, err := d.Verify(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = d.Verify(context.Background(), "sha256:nope")
	require.NoError(t, err)
	require.False(t, ok)
}

type testManagerBundle struct {
	manager *snapshot.Manager
	storage snapshot.Storage
	cas     cas.Store
}

func newMemManager(t *testing.T) testManagerBundle {
	t.Helper()
	storage := newInMemSnapshotStorage()
	return testManagerBundle{
		manager: snapshot.New(storage),
		storage: storage,
		cas:     cas.NewMemStore(),
	}
}
