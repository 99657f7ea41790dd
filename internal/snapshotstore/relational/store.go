// Copyright 2025 Shadow Atlas Contributors
//
// Package relational implements the relational mode of the SnapshotStorage
// adapter described in spec.md §6: a `snapshots` table keyed by version,
// with JSON blobs for layer counts and source checksums and an idempotent
// content_id attachment.

package relational

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/shadowatlas/core/internal/field"
	"github.com/shadowatlas/core/internal/snapshot"
)

// Store is the relational SnapshotStorage adapter, satisfying
// snapshot.Storage.
type Store struct {
	db *sql.DB
}

// Open opens a PostgreSQL connection pool at dsn and returns a Store. The
// caller is responsible for running Migrate once before first use.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("relational: open: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already-configured *sql.DB (e.g. shared with other
// repositories in the same process).
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS snapshots (
	version           BIGINT PRIMARY KEY,
	id                 UUID NOT NULL,
	global_root        TEXT NOT NULL,
	layer_counts       JSONB NOT NULL,
	source_checksums   JSONB NOT NULL,
	discarded          JSONB NOT NULL,
	build_duration_ns  BIGINT NOT NULL,
	started_at         TIMESTAMPTZ NOT NULL,
	finished_at        TIMESTAMPTZ NOT NULL,
	content_id         TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS snapshot_proofs (
	version    BIGINT NOT NULL REFERENCES snapshots(version),
	tuple_key  TEXT NOT NULL,
	template   BYTEA NOT NULL,
	PRIMARY KEY (version, tuple_key)
);
`

// Migrate creates the snapshots/snapshot_proofs tables if they do not
// already exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaDDL)
	if err != nil {
		return fmt.Errorf("relational: migrate: %w", err)
	}
	return nil
}

// LatestVersion implements snapshot.Storage.
func (s *Store) LatestVersion(ctx context.Context) (int64, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM snapshots`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("relational: latest version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return version.Int64, nil
}

// Create implements snapshot.Storage.
func (s *Store) Create(ctx context.Context, rec *snapshot.Record) error {
	layerCounts, err := json.Marshal(rec.LayerCounts)
	if err != nil {
		return fmt.Errorf("relational: marshal layer counts: %w", err)
	}
	sourceChecksums, err := json.Marshal(rec.SourceChecksums)
	if err != nil {
		return fmt.Errorf("relational: marshal source checksums: %w", err)
	}
	discarded, err := json.Marshal(rec.Discarded)
	if err != nil {
		return fmt.Errorf("relational: marshal discarded: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (
			version, id, global_root, layer_counts, source_checksums,
			discarded, build_duration_ns, started_at, finished_at, content_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.Version, rec.ID, field.HexString(rec.GlobalRoot), layerCounts, sourceChecksums,
		discarded, rec.BuildDuration.Nanoseconds(), rec.StartedAt, rec.FinishedAt, rec.ContentID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("relational: create snapshot %d: %w", rec.Version, err)
	}
	return nil
}

// Get implements snapshot.Storage.
func (s *Store) Get(ctx context.Context, version int64) (*snapshot.Record, error) {
	var (
		rec             snapshot.Record
		globalRootHex   string
		layerCounts     []byte
		sourceChecksums []byte
		discarded       []byte
		durationNS      int64
		contentID       sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT version, id, global_root, layer_counts, source_checksums,
			discarded, build_duration_ns, started_at, finished_at, content_id, created_at
		FROM snapshots WHERE version = $1`, version,
	).Scan(
		&rec.Version, &rec.ID, &globalRootHex, &layerCounts, &sourceChecksums,
		&discarded, &durationNS, &rec.StartedAt, &rec.FinishedAt, &contentID, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, snapshot.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("relational: get snapshot %d: %w", version, err)
	}

	rec.GlobalRoot, err = field.FromHex(globalRootHex)
	if err != nil {
		return nil, fmt.Errorf("relational: parsing global_root: %w", err)
	}
	rec.BuildDuration = time.Duration(durationNS)
	if err := json.Unmarshal(layerCounts, &rec.LayerCounts); err != nil {
		return nil, fmt.Errorf("relational: unmarshal layer counts: %w", err)
	}
	if err := json.Unmarshal(sourceChecksums, &rec.SourceChecksums); err != nil {
		return nil, fmt.Errorf("relational: unmarshal source checksums: %w", err)
	}
	if err := json.Unmarshal(discarded, &rec.Discarded); err != nil {
		return nil, fmt.Errorf("relational: unmarshal discarded: %w", err)
	}
	if contentID.Valid {
		id := contentID.String
		rec.ContentID = &id
	}
	return &rec, nil
}

// List implements snapshot.Storage.
func (s *Store) List(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM snapshots ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("relational: list: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("relational: scan version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SetContentID implements snapshot.Storage, idempotently: a second call
// with an identical id succeeds; a call with a different id fails, since
// spec §4.8 mandates attaching content_id exactly once.
func (s *Store) SetContentID(ctx context.Context, version int64, contentID string) error {
	var existing sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT content_id FROM snapshots WHERE version = $1`, version).Scan(&existing)
	if err == sql.ErrNoRows {
		return snapshot.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("relational: read content_id for %d: %w", version, err)
	}
	if existing.Valid {
		if existing.String == contentID {
			return nil
		}
		return fmt.Errorf("relational: snapshot %d already has content_id %q", version, existing.String)
	}

	_, err = s.db.ExecContext(ctx, `UPDATE snapshots SET content_id = $2 WHERE version = $1`, version, contentID)
	if err != nil {
		return fmt.Errorf("relational: set content_id for %d: %w", version, err)
	}
	return nil
}

// StoreProofTemplates implements snapshot.Storage.
func (s *Store) StoreProofTemplates(ctx context.Context, version int64, templates map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("relational: begin tx: %w", err)
	}
	defer tx.Rollback()

	for key, blob := range templates {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_proofs (version, tuple_key, template)
			VALUES ($1, $2, $3)
			ON CONFLICT (version, tuple_key) DO UPDATE SET template = EXCLUDED.template`,
			version, key, blob,
		)
		if err != nil {
			return fmt.Errorf("relational: store proof template %q: %w", key, err)
		}
	}
	return tx.Commit()
}
