// Package store persists the registry's role state: exactly one owner and a
// set of manager accounts. The owner is not implicitly a manager.
package store

import (
	"context"
	"sync"

	id "bindery/pkg/domain"
	"bindery/pkg/platform/sentinel"
)

// InMemory holds role state behind a mutex.
type InMemory struct {
	mu       sync.RWMutex
	owner    id.AccountID
	managers map[id.AccountID]struct{}
}

// NewInMemory seeds the store with the initial owner.
func NewInMemory(owner id.AccountID) *InMemory {
	return &InMemory{
		owner:    owner,
		managers: make(map[id.AccountID]struct{}),
	}
}

func (s *InMemory) Owner(context.Context) (id.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.owner.IsZero() {
		return "", sentinel.ErrNotFound
	}
	return s.owner, nil
}

func (s *InMemory) SetOwner(_ context.Context, owner id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
	return nil
}

// AddManager is idempotent.
func (s *InMemory) AddManager(_ context.Context, manager id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.managers[manager] = struct{}{}
	return nil
}

// RemoveManager reports whether the manager was present. Absence is an
// outcome, not an error.
func (s *InMemory) RemoveManager(_ context.Context, manager id.AccountID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, present := s.managers[manager]
	delete(s.managers, manager)
	return present, nil
}

func (s *InMemory) IsManager(_ context.Context, accountID id.AccountID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.managers[accountID]
	return ok, nil
}
