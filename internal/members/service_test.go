package members

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	dErrors "certgate/pkg/domain-errors"
	"certgate/pkg/platform/audit"
	"certgate/pkg/platform/audit/publisher"
	auditmemory "certgate/pkg/platform/audit/store/memory"

	"certgate/internal/directory/mocks"
	dirmodels "certgate/internal/directory/models"
	dirmemory "certgate/internal/directory/store/memory"
	"certgate/internal/platform/config"
)

type MembersSuite struct {
	suite.Suite
	ctx    context.Context
	dir    *dirmemory.InMemory
	events *auditmemory.InMemoryStore
}

func (s *MembersSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = dirmemory.NewInMemory()
	s.events = auditmemory.NewInMemoryStore()

	for _, uid := range []string{"alice", "bob", "carol"} {
		s.Require().NoError(s.dir.CreateUser(s.ctx, &dirmodels.User{ID: uid}))
	}
	for _, name := range []string{"Administrators", "Auditors", "Trusted Managers"} {
		s.Require().NoError(s.dir.CreateGroup(s.ctx, &dirmodels.Group{Name: name}))
	}
}

func TestMembersSuite(t *testing.T) {
	suite.Run(t, new(MembersSuite))
}

func (s *MembersSuite) newService(properties map[string]string) *Service {
	return NewService(s.dir, config.NewEngine(properties),
		WithAuditPublisher(publisher.NewPublisher(s.events)),
	)
}

func (s *MembersSuite) TestAddAndGetMember() {
	svc := s.newService(nil)

	member, err := svc.AddMember(s.ctx, "Administrators", "alice")
	s.Require().NoError(err)
	s.Equal("alice", member.UserID)
	s.Equal("Administrators", member.GroupID)

	got, err := svc.GetMember(s.ctx, "Administrators", "ALICE")
	s.Require().NoError(err, "member lookup is case-insensitive")
	s.Equal("alice", got.UserID)

	_, err = svc.GetMember(s.ctx, "Administrators", "bob")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *MembersSuite) TestMultiRoleAllowsSecondGroup() {
	svc := s.newService(nil)

	_, err := svc.AddMember(s.ctx, "Administrators", "alice")
	s.Require().NoError(err)
	_, err = svc.AddMember(s.ctx, "Auditors", "alice")
	s.Require().NoError(err, "multi-role is on by default")

	events := s.events.Events()
	s.Require().Len(events, 2)
	for _, event := range events {
		s.Equal(audit.ActionAdd, event.Action)
		s.Equal(audit.StatusSuccess, event.Status)
	}
}

// TestSingleRoleConflict verifies that with multi-role off, a second enforced
// role is rejected, audited as a failure, and the first role is untouched.
func (s *MembersSuite) TestSingleRoleConflict() {
	svc := s.newService(map[string]string{PropMultiRoleEnable: "false"})

	_, err := svc.AddMember(s.ctx, "Administrators", "alice")
	s.Require().NoError(err)

	_, err = svc.AddMember(s.ctx, "Auditors", "alice")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	member, err := s.dir.IsMemberOf(s.ctx, "alice", "Auditors")
	s.Require().NoError(err)
	s.False(member)

	failures := s.events.ByGroup("Auditors")
	s.Require().Len(failures, 1)
	s.Equal(audit.StatusFailure, failures[0].Status)
	s.Equal("alice", failures[0].Params["member"])
}

func (s *MembersSuite) TestSingleRoleReAddIsIdempotent() {
	svc := s.newService(map[string]string{PropMultiRoleEnable: "false"})

	_, err := svc.AddMember(s.ctx, "Administrators", "alice")
	s.Require().NoError(err)
	_, err = svc.AddMember(s.ctx, "Administrators", "alice")
	s.Require().NoError(err, "re-adding an existing membership is not a conflict")
}

// TestEnforceListScopesConflicts verifies groups outside the configured list
// are exempt from single-role enforcement on both sides of the check.
func (s *MembersSuite) TestEnforceListScopesConflicts() {
	svc := s.newService(map[string]string{
		PropMultiRoleEnable:  "false",
		PropEnforceGroupList: "Administrators, Auditors",
	})

	_, err := svc.AddMember(s.ctx, "Administrators", "alice")
	s.Require().NoError(err)

	_, err = svc.AddMember(s.ctx, "Trusted Managers", "alice")
	s.Require().NoError(err, "unlisted groups never conflict")

	_, err = svc.AddMember(s.ctx, "Trusted Managers", "bob")
	s.Require().NoError(err)
	_, err = svc.AddMember(s.ctx, "Auditors", "bob")
	s.Require().NoError(err, "membership in an unlisted group does not block a listed one")

	_, err = svc.AddMember(s.ctx, "Administrators", "bob")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *MembersSuite) TestListMembersFilterAndPaging() {
	svc := s.newService(nil)
	for _, uid := range []string{"alice", "bob", "carol"} {
		_, err := svc.AddMember(s.ctx, "Auditors", uid)
		s.Require().NoError(err)
	}

	page, err := svc.ListMembers(s.ctx, "Auditors", "ali", 0, 0)
	s.Require().NoError(err)
	s.Equal(1, page.Total)
	s.Require().Len(page.Members, 1)
	s.Equal("alice", page.Members[0].UserID)

	page, err = svc.ListMembers(s.ctx, "Auditors", "", 1, 1)
	s.Require().NoError(err)
	s.Equal(3, page.Total, "total counts all matches, not the window")
	s.Require().Len(page.Members, 1)
	s.Equal("bob", page.Members[0].UserID)

	page, err = svc.ListMembers(s.ctx, "Auditors", "", 10, 5)
	s.Require().NoError(err)
	s.Equal(3, page.Total)
	s.Empty(page.Members)
}

func (s *MembersSuite) TestRemoveMember() {
	svc := s.newService(nil)
	_, err := svc.AddMember(s.ctx, "Administrators", "alice")
	s.Require().NoError(err)

	s.Require().NoError(svc.RemoveMember(s.ctx, "Administrators", "alice"))
	member, err := s.dir.IsMemberOf(s.ctx, "alice", "Administrators")
	s.Require().NoError(err)
	s.False(member)

	s.Require().NoError(svc.RemoveMember(s.ctx, "Administrators", "alice"),
		"removing an absent membership is a no-op")

	removals := 0
	for _, event := range s.events.ByGroup("Administrators") {
		if event.Action == audit.ActionDelete {
			removals++
			s.Equal(audit.StatusSuccess, event.Status)
		}
	}
	s.Equal(2, removals, "the no-op removal is still audited")
}

func (s *MembersSuite) TestUnknownGroup() {
	svc := s.newService(nil)

	_, err := svc.AddMember(s.ctx, "Bogus", "alice")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	// Unknown-group rejection is past validation, so it is audited like any
	// other failed add.
	failures := s.events.ByGroup("Bogus")
	s.Require().Len(failures, 1)
	s.Equal(audit.ActionAdd, failures[0].Action)
	s.Equal(audit.StatusFailure, failures[0].Status)

	_, err = svc.ListMembers(s.ctx, "Bogus", "", 0, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *MembersSuite) TestValidation() {
	svc := s.newService(nil)

	_, err := svc.AddMember(s.ctx, "Administrators", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.AddMember(s.ctx, "", "alice")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.ListMembers(s.ctx, "", "", 0, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	err = svc.RemoveMember(s.ctx, "Administrators", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// TestDirectoryFailureAuditedAndReturned verifies a failed add is audited as
// a failure and the error still reaches the caller.
func (s *MembersSuite) TestDirectoryFailureAuditedAndReturned() {
	ctrl := gomock.NewController(s.T())
	dir := mocks.NewMockDirectory(ctrl)
	dir.EXPECT().GetGroup(gomock.Any(), "Administrators").
		Return(&dirmodels.Group{Name: "Administrators"}, nil)
	dir.EXPECT().AddUserToGroup(gomock.Any(), "Administrators", "alice").
		Return(errors.New("directory unavailable"))

	svc := NewService(dir, config.NewEngine(nil),
		WithAuditPublisher(publisher.NewPublisher(s.events)),
	)

	_, err := svc.AddMember(s.ctx, "Administrators", "alice")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	events := s.events.ByGroup("Administrators")
	s.Require().Len(events, 1)
	s.Equal(audit.StatusFailure, events[0].Status)
}

// TestDuplicateCheckFailureAuditedAndReturned verifies a directory outage
// inside the single-role check is audited as a failed add before the error
// reaches the caller.
func (s *MembersSuite) TestDuplicateCheckFailureAuditedAndReturned() {
	ctrl := gomock.NewController(s.T())
	dir := mocks.NewMockDirectory(ctrl)
	dir.EXPECT().GetGroup(gomock.Any(), "Administrators").
		Return(&dirmodels.Group{Name: "Administrators"}, nil)
	dir.EXPECT().IsMemberOf(gomock.Any(), "alice", "Administrators").
		Return(false, errors.New("directory unavailable"))

	svc := NewService(dir, config.NewEngine(map[string]string{PropMultiRoleEnable: "false"}),
		WithAuditPublisher(publisher.NewPublisher(s.events)),
	)

	_, err := svc.AddMember(s.ctx, "Administrators", "alice")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	events := s.events.ByGroup("Administrators")
	s.Require().Len(events, 1)
	s.Equal(audit.ActionAdd, events[0].Action)
	s.Equal(audit.StatusFailure, events[0].Status)
	s.Equal("alice", events[0].Params["member"])
}
