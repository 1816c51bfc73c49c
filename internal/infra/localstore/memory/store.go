// Package memory implements an in-memory local Store for tests.
package memory

import (
	"context"
	"sync"

	"foodie/internal/localstore/core"
)

// Store implements core.Store backed by process memory.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// New returns an empty in-memory store.
func New() *Store { return &Store{values: make(map[string]string)} }

// Driver returns the store driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Get returns the value stored under key.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", core.ErrNotFound
	}
	return v, nil
}

// Put creates or overwrites key.
func (s *Store) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes key returning true if it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	if ok {
		delete(s.values, key)
	}
	return ok, nil
}
