// Package members manages group membership: listing, lookup, and the
// add/remove operations with single-role enforcement and audit.
package members

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	dErrors "certgate/pkg/domain-errors"
	"certgate/pkg/platform/audit"
	"certgate/pkg/platform/audit/publisher"
	"certgate/pkg/platform/sentinel"
	"certgate/pkg/requestcontext"

	"certgate/internal/directory"
	"certgate/internal/members/metrics"
	"certgate/internal/members/models"
	"certgate/internal/platform/config"
)

const (
	// PropMultiRoleEnable toggles whether a user may hold several enforced
	// roles at once. Absent means enabled.
	PropMultiRoleEnable = "multiroles.enable"
	// PropEnforceGroupList names the groups subject to single-role
	// enforcement when multi-role is off. Empty means all groups.
	PropEnforceGroupList = "multiroles.false.groupEnforceList"

	// DefaultPageSize bounds member listings when the caller gives no size.
	DefaultPageSize = 20
)

// Service implements group membership management on top of a directory.
type Service struct {
	dir         directory.Directory
	cfg         *config.Engine
	enforcement *enforcementList
	auditor     *publisher.Publisher
	logger      *slog.Logger
	m           *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(auditor *publisher.Publisher) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.m = m
	}
}

func NewService(dir directory.Directory, cfg *config.Engine, opts ...Option) *Service {
	s := &Service{
		dir:         dir,
		cfg:         cfg,
		enforcement: newEnforcementList(cfg),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListMembers returns one page of a group's members, optionally narrowed by a
// substring filter. Total counts every match, not just the returned window.
func (s *Service) ListMembers(ctx context.Context, groupID, filter string, start, size int) (*models.Page, error) {
	if groupID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "group id must not be empty")
	}
	names, err := s.memberNames(ctx, groupID)
	if err != nil {
		return nil, err
	}

	matched := make([]string, 0, len(names))
	for _, name := range names {
		if filter == "" || strings.Contains(name, filter) {
			matched = append(matched, name)
		}
	}

	if size <= 0 {
		size = DefaultPageSize
	}
	if start < 0 {
		start = 0
	}
	page := &models.Page{Total: len(matched)}
	if start < len(matched) {
		end := min(start+size, len(matched))
		for _, name := range matched[start:end] {
			page.Members = append(page.Members, models.Member{UserID: name, GroupID: groupID})
		}
	}
	return page, nil
}

// GetMember looks up one member of a group. The match is case-insensitive,
// matching how the directory treats user identifiers.
func (s *Service) GetMember(ctx context.Context, groupID, userID string) (*models.Member, error) {
	if groupID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "group id must not be empty")
	}
	names, err := s.memberNames(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if strings.EqualFold(name, userID) {
			return &models.Member{UserID: name, GroupID: groupID}, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound,
		fmt.Sprintf("user %s is not a member of group %s", userID, groupID))
}

// AddMember adds a user to a group. With multi-role disabled, a user already
// holding a different enforced role is rejected; re-adding an existing
// membership stays idempotent. The outcome is audited either way, and on
// failure the error is still returned to the caller.
func (s *Service) AddMember(ctx context.Context, groupID, userID string) (*models.Member, error) {
	if groupID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "group id must not be empty")
	}
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "member id must not be empty")
	}
	if _, err := s.dir.GetGroup(ctx, groupID); err != nil {
		s.audit(ctx, audit.ActionAdd, groupID, userID, audit.StatusFailure)
		return nil, s.translate(err, "group "+groupID+" not found", "resolve group")
	}

	multiRole := s.cfg.GetBoolean(PropMultiRoleEnable, true)
	if !multiRole {
		duplicate, err := s.holdsAnotherRole(ctx, groupID, userID)
		if err != nil {
			s.audit(ctx, audit.ActionAdd, groupID, userID, audit.StatusFailure)
			return nil, err
		}
		if duplicate {
			if s.m != nil {
				s.m.IncrementRoleConflicts()
			}
			s.audit(ctx, audit.ActionAdd, groupID, userID, audit.StatusFailure)
			return nil, dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("user %s already holds an enforced role", userID))
		}
	}

	if err := s.dir.AddUserToGroup(ctx, groupID, userID); err != nil {
		s.audit(ctx, audit.ActionAdd, groupID, userID, audit.StatusFailure)
		return nil, s.translate(err, "group "+groupID+" not found", "add member")
	}

	s.audit(ctx, audit.ActionAdd, groupID, userID, audit.StatusSuccess)
	if s.m != nil {
		s.m.IncrementAdditions()
	}
	s.logger.InfoContext(ctx, "added group member", "group", groupID, "uid", userID)

	// Re-read so the caller gets the membership as the directory recorded
	// it, canonical casing included.
	return s.GetMember(ctx, groupID, userID)
}

// RemoveMember removes a user from a group. Removing an absent membership is
// a no-op, but it is still audited.
func (s *Service) RemoveMember(ctx context.Context, groupID, userID string) error {
	if groupID == "" {
		return dErrors.New(dErrors.CodeValidation, "group id must not be empty")
	}
	if userID == "" {
		return dErrors.New(dErrors.CodeValidation, "member id must not be empty")
	}
	if err := s.dir.RemoveUserFromGroup(ctx, groupID, userID); err != nil {
		s.audit(ctx, audit.ActionDelete, groupID, userID, audit.StatusFailure)
		return s.translate(err, "group "+groupID+" not found", "remove member")
	}

	s.audit(ctx, audit.ActionDelete, groupID, userID, audit.StatusSuccess)
	if s.m != nil {
		s.m.IncrementRemovals()
	}
	s.logger.InfoContext(ctx, "removed group member", "group", groupID, "uid", userID)
	return nil
}

// holdsAnotherRole reports whether adding userID to groupID would give the
// user a second enforced role. Membership in the target group itself never
// counts; re-adding is idempotent. Groups outside the enforcement list are
// exempt on both sides.
func (s *Service) holdsAnotherRole(ctx context.Context, groupID, userID string) (bool, error) {
	if !s.enforcement.participates(groupID) {
		return false, nil
	}

	already, err := s.dir.IsMemberOf(ctx, userID, groupID)
	if err != nil {
		return false, s.translate(err, "group "+groupID+" not found", "check membership")
	}
	if already {
		return false, nil
	}

	groups, err := s.dir.ListGroups(ctx)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "list groups")
	}
	for _, group := range groups {
		if group.Name == groupID || !s.enforcement.participates(group.Name) {
			continue
		}
		member, err := s.dir.IsMemberOf(ctx, userID, group.Name)
		if err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "check membership")
		}
		if member {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) memberNames(ctx context.Context, groupID string) ([]string, error) {
	names, err := s.dir.MemberNames(ctx, groupID)
	if err != nil {
		return nil, s.translate(err, "group "+groupID+" not found", "list members")
	}
	return names, nil
}

// audit emits a membership audit event. Audit delivery problems are logged
// and never override the operation's own outcome.
func (s *Service) audit(ctx context.Context, action audit.Action, groupID, userID string, status audit.Status) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		ActorID:     requestcontext.SubjectID(ctx),
		Action:      action,
		TargetGroup: groupID,
		Params:      map[string]string{"member": userID},
		Status:      status,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "unable to emit audit event",
			"action", string(action),
			"group", groupID,
			"error", err,
		)
	}
}

func (s *Service) translate(err error, notFoundMsg, op string) error {
	if dErrors.IsRecognized(err) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, op)
}
