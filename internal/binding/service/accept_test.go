package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"bindery/internal/binding/models"
	id "bindery/pkg/domain"
	dErrors "bindery/pkg/domain-errors"
	audit "bindery/pkg/platform/audit"
)

type AcceptSuite struct {
	BindingServiceSuite
}

func TestAcceptSuite(t *testing.T) {
	suite.Run(t, new(AcceptSuite))
}

func (s *AcceptSuite) TestAccept() {
	s.propose(s.alice, models.PlatformTwitter, "alice001", t0)

	s.Run("rejects non-managers", func() {
		_, err := s.service.Accept(s.ctxAt(t0+10), s.alice, s.alice, models.PlatformTwitter, t0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects a creation time not strictly in the past", func() {
		err := s.accept(s.alice, models.PlatformTwitter, t0, t0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects when no proposal is pending", func() {
		err := s.accept(s.bob, models.PlatformTwitter, t0, t0+10)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects a mismatched creation time as stale", func() {
		err := s.accept(s.alice, models.PlatformTwitter, t0-1, t0+10)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeStale))

		// the rejected accept must leave the proposal untouched
		p, gerr := s.service.GetProposal(context.Background(), s.alice, models.PlatformTwitter)
		s.Require().NoError(gerr)
		s.Require().NotNil(p)
		s.Equal(t0, p.CreatedAt)
	})

	s.Run("binds both views and consumes the proposal", func() {
		b, err := s.service.Accept(s.ctxAt(t0+10), s.manager, s.alice, models.PlatformTwitter, t0)
		s.Require().NoError(err)
		s.Equal("alice001", b.Handle)

		handle, err := s.service.GetHandle(context.Background(), s.alice, models.PlatformTwitter)
		s.Require().NoError(err)
		s.Equal("alice001", handle)

		holder, err := s.service.LookupAccount(context.Background(), models.PlatformTwitter, "alice001")
		s.Require().NoError(err)
		s.Equal(s.alice, holder)

		p, err := s.service.GetProposal(context.Background(), s.alice, models.PlatformTwitter)
		s.Require().NoError(err)
		s.Nil(p)
	})

	s.Run("bindings are terminal", func() {
		// no re-propose on a bound platform and no second accept
		_, err := s.service.Propose(s.ctxAt(t0+20), s.alice, models.PlatformTwitter, "alice002", 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(dErrors.MessageOf(err), "alice001")
	})

	s.Run("emits an acceptance event", func() {
		events, err := s.events.ListByAccount(context.Background(), s.alice)
		s.Require().NoError(err)
		s.Require().NotEmpty(events)
		last := events[len(events)-1]
		s.Equal(audit.EventBindingAccepted, last.Name)
		s.Equal("alice001", last.Handle)
	})
}

func (s *AcceptSuite) TestHandleUniquenessUnderContention() {
	// bob proposes first and wins the accept race; the loser's proposal
	// must survive so it can be re-pointed at a free handle
	s.propose(s.bob, models.PlatformGitHub, "popular", t0)
	s.propose(s.alice, models.PlatformGitHub, "popular", t0+1)

	s.Require().NoError(s.accept(s.bob, models.PlatformGitHub, t0, t0+10))

	err := s.accept(s.alice, models.PlatformGitHub, t0+1, t0+10)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Contains(dErrors.MessageOf(err), "bob")

	p, gerr := s.service.GetProposal(context.Background(), s.alice, models.PlatformGitHub)
	s.Require().NoError(gerr)
	s.Require().NotNil(p)
	s.Equal("popular", p.Handle)

	holder, err := s.service.LookupAccount(context.Background(), models.PlatformGitHub, "popular")
	s.Require().NoError(err)
	s.Equal(s.bob, holder)
}

func (s *AcceptSuite) TestReplayDefense() {
	// the manager verified the handle proposed at t0; alice silently
	// re-proposes a different handle before the accept lands
	s.propose(s.alice, models.PlatformReddit, "verified", t0)
	s.propose(s.alice, models.PlatformReddit, "impostor", t0+5)

	err := s.accept(s.alice, models.PlatformReddit, t0, t0+10)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeStale))

	// nothing bound, swapped proposal intact
	handle, gerr := s.service.GetHandle(context.Background(), s.alice, models.PlatformReddit)
	s.Require().NoError(gerr)
	s.Empty(handle)

	p, perr := s.service.GetProposal(context.Background(), s.alice, models.PlatformReddit)
	s.Require().NoError(perr)
	s.Equal("impostor", p.Handle)
}

func (s *AcceptSuite) TestSamePlatformDifferentAccounts() {
	// handles are unique per platform, not globally
	s.propose(s.alice, models.PlatformTwitter, "shared", t0)
	s.propose(s.bob, models.PlatformGitHub, "shared", t0)

	s.Require().NoError(s.accept(s.alice, models.PlatformTwitter, t0, t0+10))
	s.Require().NoError(s.accept(s.bob, models.PlatformGitHub, t0, t0+10))
}

func (s *AcceptSuite) TestForwardReverseAgreement() {
	accounts := []id.AccountID{s.alice, s.bob}
	for i, account := range accounts {
		handle := fmt.Sprintf("user%03d", i)
		s.propose(account, models.PlatformTelegram, handle, t0)
		s.Require().NoError(s.accept(account, models.PlatformTelegram, t0, t0+10))
	}

	for i, account := range accounts {
		handle, err := s.service.GetHandle(context.Background(), account, models.PlatformTelegram)
		s.Require().NoError(err)
		s.Equal(fmt.Sprintf("user%03d", i), handle)

		holder, err := s.service.LookupAccount(context.Background(), models.PlatformTelegram, handle)
		s.Require().NoError(err)
		s.Equal(account, holder)
	}
}

func (s *AcceptSuite) TestAccountViews() {
	s.propose(s.alice, models.PlatformTwitter, "alice001", t0)
	s.propose(s.alice, models.PlatformGitHub, "alice-dev", t0)
	s.Require().NoError(s.accept(s.alice, models.PlatformTwitter, t0, t0+10))

	view, err := s.service.GetAccount(context.Background(), s.alice)
	s.Require().NoError(err)
	s.Equal(map[models.Platform]string{models.PlatformTwitter: "alice001"}, view.Bindings)
	s.Require().Len(view.Proposals, 1)
	s.Equal("alice-dev", view.Proposals[models.PlatformGitHub].Handle)

	n, err := s.service.NumberOfAccounts(context.Background())
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	views, err := s.service.ListAccounts(context.Background(), 0, 10)
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal(s.alice, views[0].AccountID)
}
