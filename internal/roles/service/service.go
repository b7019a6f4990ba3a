// Package service implements the admin gate: owner-only mutation of the
// role store, and the authorization checks consumed by the binding protocol.
package service

import (
	"context"
	"errors"

	id "bindery/pkg/domain"
	dErrors "bindery/pkg/domain-errors"
	audit "bindery/pkg/platform/audit"
	"bindery/pkg/platform/sentinel"
	"bindery/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AuditPublisher

// Store is the role state the gate mutates and consults.
type Store interface {
	Owner(ctx context.Context) (id.AccountID, error)
	SetOwner(ctx context.Context, owner id.AccountID) error
	AddManager(ctx context.Context, manager id.AccountID) error
	RemoveManager(ctx context.Context, manager id.AccountID) (bool, error)
	IsManager(ctx context.Context, accountID id.AccountID) (bool, error)
}

// AuditPublisher receives a record of each successful role change.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// AdminService guards the role store. All mutations are owner-only; the
// checks themselves have no side effects.
type AdminService struct {
	roles Store
	audit AuditPublisher
}

func NewAdminService(roles Store, audit AuditPublisher) *AdminService {
	return &AdminService{roles: roles, audit: audit}
}

// RequireOwner fails with an unauthorized error unless caller is the owner.
func (s *AdminService) RequireOwner(ctx context.Context, caller id.AccountID) error {
	owner, err := s.roles.Owner(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load owner")
	}
	if caller != owner {
		return dErrors.New(dErrors.CodeUnauthorized, "only owner can perform this action")
	}
	return nil
}

// RequireManager fails with an unauthorized error unless caller is in the
// manager set. The owner is not implicitly a manager.
func (s *AdminService) RequireManager(ctx context.Context, caller id.AccountID) error {
	ok, err := s.roles.IsManager(ctx, caller)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load managers")
	}
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "only manager can perform this action")
	}
	return nil
}

// TransferOwner replaces the owner account. Owner-only.
func (s *AdminService) TransferOwner(ctx context.Context, caller, newOwner id.AccountID) error {
	if err := s.RequireOwner(ctx, caller); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "new owner account is required")
	}

	oldOwner, err := s.roles.Owner(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load owner")
	}
	if err := s.roles.SetOwner(ctx, newOwner); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer ownership")
	}

	return s.audit.Emit(ctx, audit.Event{
		Name:      audit.EventOwnerChanged,
		OldOwner:  oldOwner,
		NewOwner:  newOwner,
		RequestID: requestcontext.RequestID(ctx),
	})
}

// AddManager inserts a manager account. Owner-only, idempotent.
func (s *AdminService) AddManager(ctx context.Context, caller, manager id.AccountID) error {
	if err := s.RequireOwner(ctx, caller); err != nil {
		return err
	}
	if manager.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "manager account is required")
	}

	if err := s.roles.AddManager(ctx, manager); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add manager")
	}

	return s.audit.Emit(ctx, audit.Event{
		Name:      audit.EventManagerAdded,
		ManagerID: manager,
		RequestID: requestcontext.RequestID(ctx),
	})
}

// RemoveManager deletes a manager account. Owner-only. Returns whether a
// manager was actually present; "already absent" is an outcome, not an error.
func (s *AdminService) RemoveManager(ctx context.Context, caller, manager id.AccountID) (bool, error) {
	if err := s.RequireOwner(ctx, caller); err != nil {
		return false, err
	}

	present, err := s.roles.RemoveManager(ctx, manager)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove manager")
	}

	if err := s.audit.Emit(ctx, audit.Event{
		Name:      audit.EventManagerRemoved,
		ManagerID: manager,
		RequestID: requestcontext.RequestID(ctx),
	}); err != nil {
		return present, err
	}
	return present, nil
}

// Owner returns the current owner account.
func (s *AdminService) Owner(ctx context.Context) (id.AccountID, error) {
	owner, err := s.roles.Owner(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeInternal, "registry has no owner")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load owner")
	}
	return owner, nil
}

// IsManager reports manager membership.
func (s *AdminService) IsManager(ctx context.Context, accountID id.AccountID) (bool, error) {
	ok, err := s.roles.IsManager(ctx, accountID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load managers")
	}
	return ok, nil
}
