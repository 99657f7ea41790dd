// Copyright 2025 Shadow Atlas Contributors

package kv

import (
	"bytes"
	"sort"
	"sync"

	dbm "github.com/cometbft/cometbft-db"
)

// MemStore is an in-memory Store, used in tests where a full cometbft-db
// instance is unnecessary.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore constructs an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemStore) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[string(key)] = stored
	return nil
}

func (m *MemStore) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *MemStore) Iterator(start, end []byte) (dbm.Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.data {
		kb := []byte(k)
		if start != nil && bytes.Compare(kb, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(kb, end) >= 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]memItem, len(keys))
	for i, k := range keys {
		items[i] = memItem{key: []byte(k), value: m.data[k]}
	}
	return &memIterator{items: items, pos: 0}, nil
}

func (m *MemStore) Close() error { return nil }

type memItem struct {
	key   []byte
	value []byte
}

// memIterator implements dbm.Iterator over a pre-sorted snapshot of items.
type memIterator struct {
	items []memItem
	pos   int
}

func (it *memIterator) Domain() (start, end []byte) { return nil, nil }
func (it *memIterator) Valid() bool                  { return it.pos < len(it.items) }
func (it *memIterator) Next() {
	if it.pos < len(it.items) {
		it.pos++
	}
}
func (it *memIterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.items[it.pos].key
}
func (it *memIterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.items[it.pos].value
}
func (it *memIterator) Error() error { return nil }
func (it *memIterator) Close() error { return nil }

var _ dbm.Iterator = (*memIterator)(nil)
