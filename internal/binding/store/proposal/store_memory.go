package proposal

import (
	"context"
	"sort"
	"sync"

	"bindery/internal/binding/models"
	id "bindery/pkg/domain"
	"bindery/pkg/platform/sentinel"
)

// InMemory keeps pending proposals keyed by (account, platform). At most one
// proposal per pair; Put overwrites.
type InMemory struct {
	mu        sync.RWMutex
	proposals map[id.AccountID]map[models.Platform]models.Proposal
}

func NewInMemory() *InMemory {
	return &InMemory{
		proposals: make(map[id.AccountID]map[models.Platform]models.Proposal),
	}
}

func (s *InMemory) Get(_ context.Context, accountID id.AccountID, platform models.Platform) (*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.proposals[accountID][platform]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *InMemory) Put(_ context.Context, p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byPlatform, ok := s.proposals[p.AccountID]
	if !ok {
		byPlatform = make(map[models.Platform]models.Proposal)
		s.proposals[p.AccountID] = byPlatform
	}
	byPlatform[p.Platform] = *p
	return nil
}

func (s *InMemory) Remove(_ context.Context, accountID id.AccountID, platform models.Platform) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byPlatform, ok := s.proposals[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	p, ok := byPlatform[platform]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	delete(byPlatform, platform)
	if len(byPlatform) == 0 {
		delete(s.proposals, accountID)
	}
	return &p, nil
}

func (s *InMemory) ListByAccount(_ context.Context, accountID id.AccountID) ([]models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byPlatform := s.proposals[accountID]
	out := make([]models.Proposal, 0, len(byPlatform))
	for _, p := range byPlatform {
		out = append(out, p)
	}
	// platform order matches the postgres store's ORDER BY
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}
