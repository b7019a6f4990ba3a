//go:build integration

package binding_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"bindery/internal/binding/models"
	"bindery/internal/binding/store/binding"
	id "bindery/pkg/domain"
	"bindery/pkg/platform/sentinel"
	"bindery/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *binding.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = binding.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "bindings"))
}

func (s *PostgresStoreSuite) TestCreateEnforcesBothSlots() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, models.Binding{
		AccountID: id.MustAccountID("alice"), Platform: models.PlatformTwitter, Handle: "alice001",
	}))

	// forward slot occupied
	err := s.store.Create(ctx, models.Binding{
		AccountID: id.MustAccountID("alice"), Platform: models.PlatformTwitter, Handle: "other",
	})
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	// reverse slot occupied
	err = s.store.Create(ctx, models.Binding{
		AccountID: id.MustAccountID("bob"), Platform: models.PlatformTwitter, Handle: "alice001",
	})
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	// same handle on a different platform is a distinct slot
	s.Require().NoError(s.store.Create(ctx, models.Binding{
		AccountID: id.MustAccountID("bob"), Platform: models.PlatformGitHub, Handle: "alice001",
	}))
}

func (s *PostgresStoreSuite) TestViewsAgree() {
	ctx := context.Background()
	b := models.Binding{
		AccountID: id.MustAccountID("carol"), Platform: models.PlatformReddit, Handle: "c-red",
	}
	s.Require().NoError(s.store.Create(ctx, b))

	handle, err := s.store.GetHandle(ctx, b.AccountID, b.Platform)
	s.Require().NoError(err)
	s.Equal(b.Handle, handle)

	account, err := s.store.LookupAccount(ctx, b.Platform, b.Handle)
	s.Require().NoError(err)
	s.Equal(b.AccountID, account)
}

func (s *PostgresStoreSuite) TestPagination() {
	ctx := context.Background()
	for _, account := range []string{"carol", "alice", "bob"} {
		s.Require().NoError(s.store.Create(ctx, models.Binding{
			AccountID: id.MustAccountID(account), Platform: models.PlatformTwitter, Handle: account + "-h",
		}))
	}

	count, err := s.store.CountAccounts(ctx)
	s.Require().NoError(err)
	s.Equal(int64(3), count)

	page, err := s.store.ListAccounts(ctx, 1, 10)
	s.Require().NoError(err)
	s.Equal([]id.AccountID{"bob", "carol"}, page)
}
