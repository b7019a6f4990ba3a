package proposal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"bindery/internal/binding/models"
	id "bindery/pkg/domain"
	"bindery/pkg/platform/sentinel"
)

type ProposalStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *ProposalStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestProposalStoreSuite(t *testing.T) {
	suite.Run(t, new(ProposalStoreSuite))
}

func (s *ProposalStoreSuite) newProposal(account string, platform models.Platform, handle string, createdAt int64) *models.Proposal {
	return &models.Proposal{
		AccountID: id.MustAccountID(account),
		Platform:  platform,
		Handle:    handle,
		CreatedAt: createdAt,
	}
}

func (s *ProposalStoreSuite) TestPutAndGet() {
	s.Run("stores and retrieves a proposal", func() {
		p := s.newProposal("alice", models.PlatformTwitter, "alice001", 1_600_000_000_000)
		s.Require().NoError(s.store.Put(s.ctx, p))

		found, err := s.store.Get(s.ctx, p.AccountID, models.PlatformTwitter)
		s.Require().NoError(err)
		s.Equal(*p, *found)
	})

	s.Run("returns ErrNotFound for missing pair", func() {
		_, err := s.store.Get(s.ctx, id.MustAccountID("alice"), models.PlatformReddit)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("overwrites the prior proposal for the same pair", func() {
		first := s.newProposal("bob", models.PlatformGitHub, "bob-one", 1)
		second := s.newProposal("bob", models.PlatformGitHub, "bob-two", 2)
		s.Require().NoError(s.store.Put(s.ctx, first))
		s.Require().NoError(s.store.Put(s.ctx, second))

		found, err := s.store.Get(s.ctx, first.AccountID, models.PlatformGitHub)
		s.Require().NoError(err)
		s.Equal("bob-two", found.Handle)
		s.Equal(int64(2), found.CreatedAt)
	})

	s.Run("pairs are independent across platforms", func() {
		s.Require().NoError(s.store.Put(s.ctx, s.newProposal("carol", models.PlatformTwitter, "c1", 1)))
		s.Require().NoError(s.store.Put(s.ctx, s.newProposal("carol", models.PlatformReddit, "c2", 2)))

		list, err := s.store.ListByAccount(s.ctx, id.MustAccountID("carol"))
		s.Require().NoError(err)
		s.Len(list, 2)
	})
}

func (s *ProposalStoreSuite) TestRemove() {
	s.Run("removes and returns the proposal", func() {
		p := s.newProposal("alice", models.PlatformTwitter, "alice001", 42)
		s.Require().NoError(s.store.Put(s.ctx, p))

		removed, err := s.store.Remove(s.ctx, p.AccountID, models.PlatformTwitter)
		s.Require().NoError(err)
		s.Equal(*p, *removed)

		_, err = s.store.Get(s.ctx, p.AccountID, models.PlatformTwitter)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns ErrNotFound when nothing is pending", func() {
		_, err := s.store.Remove(s.ctx, id.MustAccountID("nobody"), models.PlatformTwitter)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ProposalStoreSuite) TestListByAccountOrder() {
	// insertion order deliberately scrambled; listing follows platform order
	s.Require().NoError(s.store.Put(s.ctx, s.newProposal("dave", models.PlatformSteem, "d3", 3)))
	s.Require().NoError(s.store.Put(s.ctx, s.newProposal("dave", models.PlatformTwitter, "d1", 1)))
	s.Require().NoError(s.store.Put(s.ctx, s.newProposal("dave", models.PlatformGitHub, "d2", 2)))

	list, err := s.store.ListByAccount(s.ctx, id.MustAccountID("dave"))
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal(models.PlatformGitHub, list[0].Platform)
	s.Equal(models.PlatformSteem, list[1].Platform)
	s.Equal(models.PlatformTwitter, list[2].Platform)
}
