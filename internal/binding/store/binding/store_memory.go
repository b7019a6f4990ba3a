package binding

import (
	"context"
	"sort"
	"sync"

	"bindery/internal/binding/models"
	id "bindery/pkg/domain"
	"bindery/pkg/platform/sentinel"
)

// InMemory keeps the forward and reverse binding views behind one mutex so
// they can never be observed disagreeing. The reverse view is a flat map on
// a composite (platform, handle) key; no per-platform sub-maps.
type InMemory struct {
	mu      sync.RWMutex
	forward map[id.AccountID]map[models.Platform]string
	reverse map[string]id.AccountID
}

func NewInMemory() *InMemory {
	return &InMemory{
		forward: make(map[id.AccountID]map[models.Platform]string),
		reverse: make(map[string]id.AccountID),
	}
}

func (s *InMemory) GetHandle(_ context.Context, accountID id.AccountID, platform models.Platform) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	handle, ok := s.forward[accountID][platform]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return handle, nil
}

func (s *InMemory) LookupAccount(_ context.Context, platform models.Platform, handle string) (id.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accountID, ok := s.reverse[models.Key(platform, handle)]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return accountID, nil
}

// Create inserts both views of a binding. Fails with ErrAlreadyUsed if the
// account already holds a handle on the platform or the handle is claimed,
// leaving both views untouched.
func (s *InMemory) Create(_ context.Context, b models.Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, bound := s.forward[b.AccountID][b.Platform]; bound {
		return sentinel.ErrAlreadyUsed
	}
	key := models.Key(b.Platform, b.Handle)
	if _, claimed := s.reverse[key]; claimed {
		return sentinel.ErrAlreadyUsed
	}

	byPlatform, ok := s.forward[b.AccountID]
	if !ok {
		byPlatform = make(map[models.Platform]string)
		s.forward[b.AccountID] = byPlatform
	}
	byPlatform[b.Platform] = b.Handle
	s.reverse[key] = b.AccountID
	return nil
}

func (s *InMemory) ListByAccount(_ context.Context, accountID id.AccountID) ([]models.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byPlatform := s.forward[accountID]
	out := make([]models.Binding, 0, len(byPlatform))
	for platform, handle := range byPlatform {
		out = append(out, models.Binding{AccountID: accountID, Platform: platform, Handle: handle})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

func (s *InMemory) CountAccounts(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.forward)), nil
}

// ListAccounts pages through bound accounts in lexicographic order. Each
// call is internally consistent; pagination across calls is only stable
// while no mutation lands in between.
func (s *InMemory) ListAccounts(_ context.Context, from, limit int64) ([]id.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]id.AccountID, 0, len(s.forward))
	for accountID := range s.forward {
		accounts = append(accounts, accountID)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })

	if from >= int64(len(accounts)) || limit <= 0 {
		return nil, nil
	}
	end := from + limit
	if end > int64(len(accounts)) {
		end = int64(len(accounts))
	}
	return accounts[from:end], nil
}
