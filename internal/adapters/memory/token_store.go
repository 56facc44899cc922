package memory

import (
	"context"
	"sync"
	"time"

	"gitlab.com/timkado/api/paramem-service/internal/domain"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// TokenStore is an in-process domain.TokenStore. Expired entries are dropped
// lazily on access.
type TokenStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewTokenStore creates an empty in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *TokenStore) WithClock(now func() time.Time) *TokenStore {
	s.now = now
	return s
}

func (s *TokenStore) lookup(key string) (entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return entry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, still := s.entries[key]; still && cur == e {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return entry{}, false
	}
	return e, true
}

func (s *TokenStore) Has(_ context.Context, key string) (bool, error) {
	_, ok := s.lookup(key)
	return ok, nil
}

func (s *TokenStore) Get(_ context.Context, key string) (string, error) {
	e, ok := s.lookup(key)
	if !ok {
		return "", domain.ErrCacheMiss
	}
	return e.value, nil
}

func (s *TokenStore) Put(_ context.Context, key string, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ttl <= 0 {
		delete(s.entries, key)
		return nil
	}
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *TokenStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// TTL returns the remaining lifetime of key, or zero when it is absent or expired.
func (s *TokenStore) TTL(key string) time.Duration {
	e, ok := s.lookup(key)
	if !ok {
		return 0
	}
	return e.expiresAt.Sub(s.now())
}
