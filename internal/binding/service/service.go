// Package service implements the binding protocol: the propose → accept or
// cancel state machine over the proposal and binding tables.
//
// Mutating operations are strictly serialized by a service-level mutex and
// run their multi-table effects inside a store transaction, so every call
// either applies completely or not at all. All precondition checks happen
// before any write; a rejected accept leaves the losing proposal intact.
package service

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	bindingmetrics "bindery/internal/binding/metrics"
	"bindery/internal/binding/models"
	id "bindery/pkg/domain"
	dErrors "bindery/pkg/domain-errors"
	audit "bindery/pkg/platform/audit"
	"bindery/pkg/platform/sentinel"
	"bindery/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ProposalStore,BindingStore,RoleGate,AuditPublisher

var tracer = otel.Tracer("bindery/internal/binding/service")

// ProposalStore is the pending-proposal table: one row per (account,
// platform), Put overwrites.
type ProposalStore interface {
	Get(ctx context.Context, accountID id.AccountID, platform models.Platform) (*models.Proposal, error)
	Put(ctx context.Context, p *models.Proposal) error
	Remove(ctx context.Context, accountID id.AccountID, platform models.Platform) (*models.Proposal, error)
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]models.Proposal, error)
}

// BindingStore is the accepted-binding table, holding the forward and
// reverse views together so they cannot drift apart.
type BindingStore interface {
	GetHandle(ctx context.Context, accountID id.AccountID, platform models.Platform) (string, error)
	LookupAccount(ctx context.Context, platform models.Platform, handle string) (id.AccountID, error)
	Create(ctx context.Context, b models.Binding) error
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]models.Binding, error)
	CountAccounts(ctx context.Context) (int64, error)
	ListAccounts(ctx context.Context, from, limit int64) ([]id.AccountID, error)
}

// RoleGate is the slice of the admin service the protocol consults.
type RoleGate interface {
	RequireManager(ctx context.Context, caller id.AccountID) error
}

// AuditPublisher receives a record of each successful state transition.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// StoreTx runs a function with all store writes inside one transaction.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// LookupCache fronts reverse lookups. Best effort: misses and failures fall
// through to the binding store.
type LookupCache interface {
	GetAccount(ctx context.Context, platform models.Platform, handle string) (id.AccountID, bool)
	SetAccount(ctx context.Context, platform models.Platform, handle string, accountID id.AccountID)
}

// BindingService orchestrates the three tables and enforces the protocol's
// invariants.
type BindingService struct {
	// mu serializes mutating operations, mirroring the strictly serialized
	// call model of the original execution environment. Reads bypass it.
	mu sync.Mutex

	proposals ProposalStore
	bindings  BindingStore
	gate      RoleGate
	audit     AuditPublisher
	tx        StoreTx
	cache     LookupCache
	metrics   *bindingmetrics.Metrics

	// proposalFee is the minimum attached deposit per proposal, in deposit
	// units; zero disables fee policy.
	proposalFee int64
}

type Option func(*serviceConfig)

type serviceConfig struct {
	audit       AuditPublisher
	tx          StoreTx
	cache       LookupCache
	metrics     *bindingmetrics.Metrics
	proposalFee int64
}

// WithAuditPublisher wires the event emitter.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(c *serviceConfig) { c.audit = p }
}

// WithTx wires a transaction runner; defaults to a pass-through for
// in-memory stores.
func WithTx(tx StoreTx) Option {
	return func(c *serviceConfig) { c.tx = tx }
}

// WithLookupCache wires a reverse-lookup cache.
func WithLookupCache(cache LookupCache) Option {
	return func(c *serviceConfig) { c.cache = cache }
}

// WithMetrics wires prometheus counters; nil metrics are skipped.
func WithMetrics(m *bindingmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

// WithProposalFee enables fee policy with the given minimum deposit.
func WithProposalFee(fee int64) Option {
	return func(c *serviceConfig) { c.proposalFee = fee }
}

func NewBindingService(proposals ProposalStore, bindings BindingStore, gate RoleGate, opts ...Option) *BindingService {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	tx := cfg.tx
	if tx == nil {
		tx = newInMemoryStoreTx()
	}
	aud := cfg.audit
	if aud == nil {
		aud = noopPublisher{}
	}
	return &BindingService{
		proposals:   proposals,
		bindings:    bindings,
		gate:        gate,
		audit:       aud,
		tx:          tx,
		cache:       cfg.cache,
		metrics:     cfg.metrics,
		proposalFee: cfg.proposalFee,
	}
}

type noopPublisher struct{}

func (noopPublisher) Emit(context.Context, audit.Event) error { return nil }

// Propose records the caller's intent to bind a handle on a platform. Any
// prior proposal for the same (caller, platform) pair is silently replaced;
// the new created_at is the request time in unix ms.
func (s *BindingService) Propose(ctx context.Context, caller id.AccountID, platform models.Platform, handle string, deposit int64) (*models.Proposal, error) {
	ctx, span := tracer.Start(ctx, "binding.propose", trace.WithAttributes(
		attribute.String("platform", platform.String()),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not authenticated")
	}
	if s.proposalFee > 0 && deposit < s.proposalFee {
		return nil, dErrors.Newf(dErrors.CodeInsufficientFee,
			"a fee of %d is required for each binding proposal", s.proposalFee)
	}
	if !platform.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported platform %q", string(platform))
	}
	if err := models.ValidateHandle(handle); err != nil {
		return nil, err
	}

	// Defensive pre-checks against both binding views. Uniqueness is
	// ultimately enforced at accept time; failing here saves the proposer a
	// doomed round trip.
	if existing, err := s.bindings.GetHandle(ctx, caller, platform); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"account %s is already bound to handle %s on %s", caller, existing, platform)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing binding")
	}
	if holder, err := s.bindings.LookupAccount(ctx, platform, handle); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"handle %s on %s is already bound to account %s", handle, platform, holder)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check handle availability")
	}

	proposal := &models.Proposal{
		AccountID: caller,
		Platform:  platform,
		Handle:    handle,
		CreatedAt: requestcontext.Now(ctx).UnixMilli(),
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.proposals.Put(txCtx, proposal)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store proposal")
	}

	if err := s.audit.Emit(ctx, audit.Event{
		Name:      audit.EventBindingProposed,
		AccountID: proposal.AccountID,
		Platform:  proposal.Platform.String(),
		Handle:    proposal.Handle,
		CreatedAt: proposal.CreatedAt,
		RequestID: requestcontext.RequestID(ctx),
	}); err != nil {
		return nil, err
	}
	s.metrics.IncProposalsCreated()
	return proposal, nil
}

// Cancel removes the caller's pending proposal for a platform.
func (s *BindingService) Cancel(ctx context.Context, caller id.AccountID, platform models.Platform) error {
	ctx, span := tracer.Start(ctx, "binding.cancel", trace.WithAttributes(
		attribute.String("platform", platform.String()),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not authenticated")
	}

	var removed *models.Proposal
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.proposals.Remove(txCtx, caller, platform)
		if err != nil {
			return err
		}
		removed = p
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound,
				"account %s has no proposal for %s", caller, platform)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel proposal")
	}

	if err := s.audit.Emit(ctx, audit.Event{
		Name:      audit.EventBindingProposalCancelled,
		AccountID: removed.AccountID,
		Platform:  removed.Platform.String(),
		Handle:    removed.Handle,
		CreatedAt: removed.CreatedAt,
		RequestID: requestcontext.RequestID(ctx),
	}); err != nil {
		return err
	}
	s.metrics.IncProposalsCancelled()
	return nil
}

// Accept confirms a pending proposal and materializes the binding in both
// views. Manager-only. proposalCreatedAt must echo the exact created_at the
// manager verified off-service; anything else is rejected as stale so a
// silently replaced proposal can never ride an old authorization.
func (s *BindingService) Accept(ctx context.Context, caller, accountID id.AccountID, platform models.Platform, proposalCreatedAt int64) (*models.Binding, error) {
	ctx, span := tracer.Start(ctx, "binding.accept", trace.WithAttributes(
		attribute.String("platform", platform.String()),
		attribute.String("account_id", accountID.String()),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate.RequireManager(ctx, caller); err != nil {
		s.rejected(rejectUnauthorized)
		return nil, err
	}

	now := requestcontext.Now(ctx).UnixMilli()
	if proposalCreatedAt >= now {
		s.rejected(rejectInvalidTimestamp)
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			"proposal creation time must be in the past")
	}

	proposal, err := s.proposals.Get(ctx, accountID, platform)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.rejected(rejectNoProposal)
			return nil, dErrors.Newf(dErrors.CodeNotFound,
				"account %s has no proposal for %s", accountID, platform)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proposal")
	}
	if proposal.CreatedAt != proposalCreatedAt {
		s.rejected(rejectStale)
		return nil, dErrors.Newf(dErrors.CodeStale,
			"proposal for %s on %s is not the verified one: created at %d, verification was for %d",
			accountID, platform, proposal.CreatedAt, proposalCreatedAt)
	}

	if existing, err := s.bindings.GetHandle(ctx, accountID, platform); err == nil {
		s.rejected(rejectAlreadyBound)
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"account %s is already bound to handle %s on %s", accountID, existing, platform)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing binding")
	}
	if holder, err := s.bindings.LookupAccount(ctx, platform, proposal.Handle); err == nil {
		s.rejected(rejectHandleTaken)
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"handle %s on %s is already bound to account %s", proposal.Handle, platform, holder)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check handle availability")
	}

	binding := &models.Binding{
		AccountID: accountID,
		Platform:  platform,
		Handle:    proposal.Handle,
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.proposals.Remove(txCtx, accountID, platform); err != nil {
			return err
		}
		return s.bindings.Create(txCtx, *binding)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.rejected(rejectHandleTaken)
			return nil, dErrors.Newf(dErrors.CodeConflict,
				"handle %s on %s is already bound", binding.Handle, platform)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store binding")
	}

	if s.cache != nil {
		s.cache.SetAccount(ctx, platform, binding.Handle, accountID)
	}
	if err := s.audit.Emit(ctx, audit.Event{
		Name:      audit.EventBindingAccepted,
		AccountID: binding.AccountID,
		Platform:  binding.Platform.String(),
		Handle:    binding.Handle,
		RequestID: requestcontext.RequestID(ctx),
	}); err != nil {
		return nil, err
	}
	s.metrics.IncBindingsAccepted()
	return binding, nil
}

// reject reason labels for the accept rejection counter.
const (
	rejectUnauthorized     = "unauthorized"
	rejectInvalidTimestamp = "invalid_timestamp"
	rejectNoProposal       = "no_proposal"
	rejectStale            = "stale_proposal"
	rejectAlreadyBound     = "already_bound"
	rejectHandleTaken      = "handle_taken"
)

func (s *BindingService) rejected(reason string) {
	s.metrics.IncAcceptRejected(reason)
}
