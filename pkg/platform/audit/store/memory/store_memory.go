package memory

import (
	"context"
	"sync"

	id "bindery/pkg/domain"
	audit "bindery/pkg/platform/audit"
)

// InMemoryStore keeps emitted events in memory, ordered by emission.
// Used by tests and as the default sink when no external sink is configured.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByAccount(_ context.Context, accountID id.AccountID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, event := range s.events {
		if event.AccountID == accountID || event.ManagerID == accountID ||
			event.NewOwner == accountID || event.OldOwner == accountID {
			out = append(out, event)
		}
	}
	return out, nil
}

// All returns every stored event in emission order. Test helper.
func (s *InMemoryStore) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event(nil), s.events...)
}
