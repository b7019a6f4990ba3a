//go:build integration

package proposal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"bindery/internal/binding/models"
	"bindery/internal/binding/store/proposal"
	id "bindery/pkg/domain"
	"bindery/pkg/platform/sentinel"
	"bindery/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *proposal.Postgres
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
	s.store = proposal.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "binding_proposals"))
}

func (s *PostgresStoreSuite) TestPutGetRemoveRoundTrip() {
	ctx := context.Background()
	p := &models.Proposal{
		AccountID: id.MustAccountID("alice"),
		Platform:  models.PlatformTwitter,
		Handle:    "alice001",
		CreatedAt: 1_600_000_000_000,
	}
	s.Require().NoError(s.store.Put(ctx, p))

	found, err := s.store.Get(ctx, p.AccountID, p.Platform)
	s.Require().NoError(err)
	s.Equal(*p, *found)

	removed, err := s.store.Remove(ctx, p.AccountID, p.Platform)
	s.Require().NoError(err)
	s.Equal(*p, *removed)

	_, err = s.store.Get(ctx, p.AccountID, p.Platform)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestPutOverwrites() {
	ctx := context.Background()
	alice := id.MustAccountID("alice")
	s.Require().NoError(s.store.Put(ctx, &models.Proposal{
		AccountID: alice, Platform: models.PlatformTwitter, Handle: "one", CreatedAt: 1,
	}))
	s.Require().NoError(s.store.Put(ctx, &models.Proposal{
		AccountID: alice, Platform: models.PlatformTwitter, Handle: "two", CreatedAt: 2,
	}))

	found, err := s.store.Get(ctx, alice, models.PlatformTwitter)
	s.Require().NoError(err)
	s.Equal("two", found.Handle)
	s.Equal(int64(2), found.CreatedAt)
}

func (s *PostgresStoreSuite) TestRemoveMissing() {
	_, err := s.store.Remove(context.Background(), id.MustAccountID("ghost"), models.PlatformReddit)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
