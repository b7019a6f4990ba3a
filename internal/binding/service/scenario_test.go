package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bindery/internal/binding/models"
	bindingstore "bindery/internal/binding/store/binding"
	"bindery/internal/binding/store/proposal"
	rolesservice "bindery/internal/roles/service"
	rolesstore "bindery/internal/roles/store"
	id "bindery/pkg/domain"
	dErrors "bindery/pkg/domain-errors"
	"bindery/pkg/platform/audit/publisher"
	auditmemory "bindery/pkg/platform/audit/store/memory"
	"bindery/pkg/testutil"
)

// Full lifecycle walkthrough: propose, fail a stale accept, cancel,
// re-propose and bind.
func TestBindingLifecycle(t *testing.T) {
	alice := id.MustAccountID("alice")
	owner := id.MustAccountID("dao.owner")
	manager := id.MustAccountID("manny")

	pub := publisher.NewPublisher(auditmemory.NewInMemoryStore())
	admin := rolesservice.NewAdminService(rolesstore.NewInMemory(owner), pub)
	require.NoError(t, admin.AddManager(context.Background(), owner, manager))

	svc := NewBindingService(
		proposal.NewInMemory(),
		bindingstore.NewInMemory(),
		admin,
		WithAuditPublisher(pub),
	)

	proposedAt := time.UnixMilli(1_600_000_000_000)

	testutil.Given(t, "alice proposed a twitter handle", func(t *testing.T) {
		ctx := testutil.CallerContextAt(alice, proposedAt)
		p, err := svc.Propose(ctx, alice, models.PlatformTwitter, "alice001", 0)
		require.NoError(t, err)
		require.Equal(t, proposedAt.UnixMilli(), p.CreatedAt)
	})

	testutil.When(t, "the manager verifies a timestamp that no longer matches", func(t *testing.T) {
		ctx := testutil.CallerContextAt(manager, proposedAt.Add(time.Hour))
		_, err := svc.Accept(ctx, manager, alice, models.PlatformTwitter, proposedAt.UnixMilli()+1)
		require.Error(t, err)
		require.True(t, dErrors.HasCode(err, dErrors.CodeStale))
	})

	testutil.When(t, "alice cancels and proposes a different handle", func(t *testing.T) {
		require.NoError(t, svc.Cancel(testutil.CallerContext(alice), alice, models.PlatformTwitter))

		ctx := testutil.CallerContextAt(alice, proposedAt.Add(2*time.Hour))
		_, err := svc.Propose(ctx, alice, models.PlatformTwitter, "the_real_alice", 0)
		require.NoError(t, err)
	})

	testutil.Then(t, "the manager binds the fresh proposal and the views agree", func(t *testing.T) {
		createdAt := proposedAt.Add(2 * time.Hour).UnixMilli()
		ctx := testutil.CallerContextAt(manager, proposedAt.Add(3*time.Hour))
		b, err := svc.Accept(ctx, manager, alice, models.PlatformTwitter, createdAt)
		require.NoError(t, err)
		require.Equal(t, "the_real_alice", b.Handle)

		handle, err := svc.GetHandle(context.Background(), alice, models.PlatformTwitter)
		require.NoError(t, err)
		require.Equal(t, "the_real_alice", handle)

		holder, err := svc.LookupAccount(context.Background(), models.PlatformTwitter, "the_real_alice")
		require.NoError(t, err)
		require.Equal(t, alice, holder)
	})
}
