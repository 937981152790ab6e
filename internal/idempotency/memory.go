package idempotency

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	id      int64
	pending bool
	expires time.Time
}

// MemoryStore is the single-process fallback used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memEntry),
	}
}

func (s *MemoryStore) Reserve(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		if e.pending {
			return 0, false, ErrInProgress
		}
		return e.id, false, nil
	}

	s.entries[key] = memEntry{pending: true, expires: now.Add(s.ttl)}
	s.gc(now)
	return 0, true, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memEntry{id: id, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// gc drops expired entries; caller holds mu.
func (s *MemoryStore) gc(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
}
