//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"bindery/internal/roles/store"
	id "bindery/pkg/domain"
	"bindery/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
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
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "registry_owner", "registry_managers"))
	s.Require().NoError(s.store.EnsureSchema(ctx, id.MustAccountID("dao.owner")))
}

func (s *PostgresStoreSuite) TestOwnerSeedAndTransfer() {
	ctx := context.Background()

	owner, err := s.store.Owner(ctx)
	s.Require().NoError(err)
	s.Equal(id.MustAccountID("dao.owner"), owner)

	// re-ensuring must not clobber a transferred owner
	s.Require().NoError(s.store.SetOwner(ctx, id.MustAccountID("new.owner")))
	s.Require().NoError(s.store.EnsureSchema(ctx, id.MustAccountID("dao.owner")))

	owner, err = s.store.Owner(ctx)
	s.Require().NoError(err)
	s.Equal(id.MustAccountID("new.owner"), owner)
}

func (s *PostgresStoreSuite) TestManagerLifecycle() {
	ctx := context.Background()
	manny := id.MustAccountID("manny")

	s.Require().NoError(s.store.AddManager(ctx, manny))
	s.Require().NoError(s.store.AddManager(ctx, manny))

	ok, err := s.store.IsManager(ctx, manny)
	s.Require().NoError(err)
	s.True(ok)

	present, err := s.store.RemoveManager(ctx, manny)
	s.Require().NoError(err)
	s.True(present)

	present, err = s.store.RemoveManager(ctx, manny)
	s.Require().NoError(err)
	s.False(present)
}
