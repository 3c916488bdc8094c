package events

import (
	"context"
	"sync"
)

// FlagStore persists the pending-refresh flag. Take must read and clear the
// key atomically.
type FlagStore interface {
	Set(ctx context.Context, key, value string) error
	Take(ctx context.Context, key string) (bool, error)
	Close() error
}

// MemoryStore keeps flags for the life of the process.
type MemoryStore struct {
	mu    sync.Mutex
	flags map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{flags: make(map[string]string)}
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[key] = value
	return nil
}

func (s *MemoryStore) Take(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.flags[key]
	delete(s.flags, key)
	return ok, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
