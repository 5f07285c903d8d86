// Package memory provides an in-memory directory for development and tests.
// It intentionally favors clarity over performance.
package memory

import (
	"context"
	"sync"

	"certgate/internal/directory/models"
	"certgate/pkg/platform/sentinel"
)

// InMemory stores users, groups, and membership edges behind a single lock.
type InMemory struct {
	mu      sync.RWMutex
	users   map[string]*models.User
	groups  map[string]*models.Group
	members map[string][]string // group name -> member ids, insertion order
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[string]*models.User),
		groups:  make(map[string]*models.Group),
		members: make(map[string][]string),
	}
}

func (s *InMemory) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return sentinel.ErrConflict
	}
	u := *user
	s.users[user.ID] = &u
	return nil
}

func (s *InMemory) CreateGroup(_ context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[group.Name]; ok {
		return sentinel.ErrConflict
	}
	g := *group
	s.groups[group.Name] = &g
	s.members[group.Name] = nil
	return nil
}

func (s *InMemory) GetUser(_ context.Context, uid string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[uid]; ok {
		u := *user
		return &u, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) GetGroup(_ context.Context, name string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if group, ok := s.groups[name]; ok {
		g := *group
		return &g, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListGroups(_ context.Context) ([]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	groups := make([]*models.Group, 0, len(s.groups))
	for _, group := range s.groups {
		g := *group
		groups = append(groups, &g)
	}
	return groups, nil
}

func (s *InMemory) MemberNames(_ context.Context, group string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.groups[group]; !ok {
		return nil, sentinel.ErrNotFound
	}
	names := make([]string, len(s.members[group]))
	copy(names, s.members[group])
	return names, nil
}

func (s *InMemory) IsMemberOf(_ context.Context, uid, group string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.groups[group]; !ok {
		return false, sentinel.ErrNotFound
	}
	for _, member := range s.members[group] {
		if member == uid {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) AddUserToGroup(_ context.Context, group, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[group]; !ok {
		return sentinel.ErrNotFound
	}
	for _, member := range s.members[group] {
		if member == uid {
			return nil
		}
	}
	s.members[group] = append(s.members[group], uid)
	return nil
}

func (s *InMemory) RemoveUserFromGroup(_ context.Context, group, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[group]; !ok {
		return sentinel.ErrNotFound
	}
	members := s.members[group]
	for i, member := range members {
		if member == uid {
			s.members[group] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return nil
}
