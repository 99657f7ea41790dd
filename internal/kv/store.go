// Copyright 2025 Shadow Atlas Contributors
//
// Package kv wraps a cometbft-db key-value database behind a small,
// serializable interface used by both the change detector's checksum cache
// and the orchestrator's checkpoint log (spec §4.7, §4.9, §5). Per spec §5,
// the checksum cache and checkpoint log are each single-writer: every
// mutating call here goes through SetSync so a crash between calls never
// leaves a torn write.

package kv

import (
	dbm "github.com/cometbft/cometbft-db"
)

// Store is the minimal persistent key-value contract the pipeline needs.
type Store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Has(key []byte) (bool, error)
	Iterator(start, end []byte) (dbm.Iterator, error)
	Close() error
}

// Adapter wraps a cometbft-db dbm.DB and implements Store.
type Adapter struct {
	db dbm.DB
}

// NewAdapter wraps db. db must not be nil.
func NewAdapter(db dbm.DB) *Adapter {
	return &Adapter{db: db}
}

// Open opens a named cometbft-db database of the given backend type rooted
// at dir (e.g. dbm.GoLevelDBBackend, dbm.BadgerDBBackend), matching the
// backend choices cometbft-db ships with.
func Open(name, dir string, backend dbm.BackendType) (*Adapter, error) {
	db, err := dbm.NewDB(name, backend, dir)
	if err != nil {
		return nil, err
	}
	return &Adapter{db: db}, nil
}

// Get returns the value for key, or nil if absent.
func (a *Adapter) Get(key []byte) ([]byte, error) {
	return a.db.Get(key)
}

// Set durably writes key/value. Writes are synchronous: the checksum cache
// and checkpoint log must survive a crash immediately after Set returns.
func (a *Adapter) Set(key, value []byte) error {
	return a.db.SetSync(key, value)
}

// Has reports whether key is present.
func (a *Adapter) Has(key []byte) (bool, error) {
	return a.db.Has(key)
}

// Iterator returns a range iterator over [start, end).
func (a *Adapter) Iterator(start, end []byte) (dbm.Iterator, error) {
	return a.db.Iterator(start, end)
}

// Close releases the underlying database handle.
func (a *Adapter) Close() error {
	return a.db.Close()
}
