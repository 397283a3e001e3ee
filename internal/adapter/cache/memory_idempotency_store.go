package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
)

// MemoryIdempotencyStore is the single-process fallback when Redis is not
// configured. Entries expire after ttl; expired entries are swept lazily.
type MemoryIdempotencyStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	locks map[string]time.Time
	vals  map[string]memEntry
}

type memEntry struct {
	value   string
	expires time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryIdempotencyStore{
		ttl:   ttl,
		now:   time.Now,
		locks: map[string]time.Time{},
		vals:  map[string]memEntry{},
	}
}

func (s *MemoryIdempotencyStore) TryLock(_ context.Context, scope, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	k := scope + ":" + key
	if _, held := s.locks[k]; held {
		return false, nil
	}
	s.locks[k] = s.now().Add(s.ttl)
	return true, nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, scope+":"+key)
	return nil
}

func (s *MemoryIdempotencyStore) Remember(_ context.Context, scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[scope+":"+key] = memEntry{value: value, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Recall(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	e, ok := s.vals[scope+":"+key]
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryIdempotencyStore) sweepLocked() {
	now := s.now()
	for k, exp := range s.locks {
		if !now.Before(exp) {
			delete(s.locks, k)
		}
	}
	for k, e := range s.vals {
		if !now.Before(e.expires) {
			delete(s.vals, k)
		}
	}
}

var _ usecase.IdempotencyStore = (*MemoryIdempotencyStore)(nil)
