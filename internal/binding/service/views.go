package service

import (
	"context"
	"errors"

	"bindery/internal/binding/models"
	id "bindery/pkg/domain"
	dErrors "bindery/pkg/domain-errors"
	"bindery/pkg/platform/sentinel"
)

// Listing is capped so one call cannot walk the whole table.
const maxListLimit = 100

// GetProposal returns the pending proposal for (account, platform), or nil
// when none is pending.
func (s *BindingService) GetProposal(ctx context.Context, accountID id.AccountID, platform models.Platform) (*models.Proposal, error) {
	p, err := s.proposals.Get(ctx, accountID, platform)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proposal")
	}
	return p, nil
}

// GetHandle returns the accepted handle for (account, platform), or "" when
// the account holds no binding there.
func (s *BindingService) GetHandle(ctx context.Context, accountID id.AccountID, platform models.Platform) (string, error) {
	handle, err := s.bindings.GetHandle(ctx, accountID, platform)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load binding")
	}
	return handle, nil
}

// LookupAccount resolves a handle back to the account that claimed it, or ""
// when unclaimed. Served from the cache when one is wired.
func (s *BindingService) LookupAccount(ctx context.Context, platform models.Platform, handle string) (id.AccountID, error) {
	if s.cache != nil {
		if accountID, ok := s.cache.GetAccount(ctx, platform, handle); ok {
			return accountID, nil
		}
	}

	accountID, err := s.bindings.LookupAccount(ctx, platform, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up handle")
	}
	if s.cache != nil {
		s.cache.SetAccount(ctx, platform, handle, accountID)
	}
	return accountID, nil
}

// GetAccount assembles everything the registry knows about one account.
func (s *BindingService) GetAccount(ctx context.Context, accountID id.AccountID) (*models.AccountView, error) {
	proposals, err := s.proposals.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list proposals")
	}
	bindings, err := s.bindings.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list bindings")
	}

	view := &models.AccountView{
		AccountID: accountID,
		Proposals: make(map[models.Platform]models.Proposal, len(proposals)),
		Bindings:  make(map[models.Platform]string, len(bindings)),
	}
	for _, p := range proposals {
		view.Proposals[p.Platform] = p
	}
	for _, b := range bindings {
		view.Bindings[b.Platform] = b.Handle
	}
	return view, nil
}

// NumberOfAccounts counts accounts holding at least one accepted binding.
func (s *BindingService) NumberOfAccounts(ctx context.Context) (int64, error) {
	count, err := s.bindings.CountAccounts(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count accounts")
	}
	return count, nil
}

// ListAccounts pages account views in lexicographic account order. Each
// call is internally consistent; stability across pages is only guaranteed
// while no mutation lands in between.
func (s *BindingService) ListAccounts(ctx context.Context, from, limit int64) ([]models.AccountView, error) {
	if from < 0 || limit < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "from and limit must be non-negative")
	}
	if limit == 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	accountIDs, err := s.bindings.ListAccounts(ctx, from, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list accounts")
	}

	views := make([]models.AccountView, 0, len(accountIDs))
	for _, accountID := range accountIDs {
		view, err := s.GetAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}
