// Copyright 2025 Shadow Atlas Contributors

package orchestrator

import (
	"context"
	"sync"
)

// providerSemaphore bounds concurrency per provider key, falling back to
// Config.Concurrency for any key without an explicit override
// (spec §4.7: "configurable per-provider concurrency ceiling").
type providerSemaphore struct {
	cfg  Config
	mu   sync.Mutex
	pool map[string]chan struct{}
}

func newProviderSemaphore(cfg Config) *providerSemaphore {
	return &providerSemaphore{cfg: cfg, pool: make(map[string]chan struct{})}
}

// acquire blocks until a slot is free for key (or ctx is cancelled) and
// returns a release function. Lazily created per-key channels mean the set
// of provider keys need not be known up front.
func (s *providerSemaphore) acquire(ctx context.Context, key string) func() {
	s.mu.Lock()
	ch, ok := s.pool[key]
	if !ok {
		limit := s.cfg.Concurrency
		if override, ok := s.cfg.ProviderConcurrency[key]; ok {
			limit = override
		}
		if limit <= 0 {
			limit = 1
		}
		ch = make(chan struct{}, limit)
		s.pool[key] = ch
	}
	s.mu.Unlock()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return func() {}
	}
	return func() {
		select {
		case <-ch:
		default:
		}
	}
}
