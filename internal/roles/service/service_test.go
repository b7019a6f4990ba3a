package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"bindery/internal/roles/store"
	id "bindery/pkg/domain"
	dErrors "bindery/pkg/domain-errors"
	audit "bindery/pkg/platform/audit"
	"bindery/pkg/platform/audit/publisher"
	"bindery/pkg/platform/audit/store/memory"
)

type AdminServiceSuite struct {
	suite.Suite
	service *AdminService
	events  *memory.InMemoryStore
	ctx     context.Context

	owner    id.AccountID
	stranger id.AccountID
}

func (s *AdminServiceSuite) SetupTest() {
	s.owner = id.MustAccountID("dao.owner")
	s.stranger = id.MustAccountID("mallory")
	s.events = memory.NewInMemoryStore()
	s.service = NewAdminService(store.NewInMemory(s.owner), publisher.NewPublisher(s.events))
	s.ctx = context.Background()
}

func TestAdminServiceSuite(t *testing.T) {
	suite.Run(t, new(AdminServiceSuite))
}

func (s *AdminServiceSuite) TestOwnerGate() {
	manny := id.MustAccountID("manny")

	s.Run("non-owner cannot add manager and the set is unchanged", func() {
		err := s.service.AddManager(s.ctx, s.stranger, manny)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		ok, err := s.service.IsManager(s.ctx, manny)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("non-owner cannot transfer ownership", func() {
		err := s.service.TransferOwner(s.ctx, s.stranger, s.stranger)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		owner, err := s.service.Owner(s.ctx)
		s.Require().NoError(err)
		s.Equal(s.owner, owner)
	})

	s.Run("non-owner cannot remove manager", func() {
		_, err := s.service.RemoveManager(s.ctx, s.stranger, manny)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *AdminServiceSuite) TestManagerLifecycle() {
	manny := id.MustAccountID("manny")

	s.Run("owner adds a manager idempotently", func() {
		s.Require().NoError(s.service.AddManager(s.ctx, s.owner, manny))
		s.Require().NoError(s.service.AddManager(s.ctx, s.owner, manny))

		ok, err := s.service.IsManager(s.ctx, manny)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("owner removes the manager and learns it was present", func() {
		present, err := s.service.RemoveManager(s.ctx, s.owner, manny)
		s.Require().NoError(err)
		s.True(present)

		present, err = s.service.RemoveManager(s.ctx, s.owner, manny)
		s.Require().NoError(err)
		s.False(present)
	})

	s.Run("role changes are audited", func() {
		events, err := s.events.ListByAccount(s.ctx, manny)
		s.Require().NoError(err)
		s.Require().NotEmpty(events)
		s.Equal(audit.EventManagerAdded, events[0].Name)
	})
}

func (s *AdminServiceSuite) TestTransferOwner() {
	newOwner := id.MustAccountID("successor")

	s.Require().NoError(s.service.TransferOwner(s.ctx, s.owner, newOwner))

	owner, err := s.service.Owner(s.ctx)
	s.Require().NoError(err)
	s.Equal(newOwner, owner)

	s.Run("old owner loses the gate", func() {
		err := s.service.AddManager(s.ctx, s.owner, id.MustAccountID("manny"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("transfer is audited with old and new owner", func() {
		events, err := s.events.ListByAccount(s.ctx, newOwner)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(audit.EventOwnerChanged, events[0].Name)
		s.Equal(s.owner, events[0].OldOwner)
		s.Equal(newOwner, events[0].NewOwner)
	})

	s.Run("rejects empty new owner", func() {
		err := s.service.TransferOwner(s.ctx, newOwner, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
