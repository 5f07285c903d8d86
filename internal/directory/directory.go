// Package directory defines the user/group directory contract consumed by the
// membership manager and the access evaluators. Implementations live under
// store/ (in-memory, postgres) and cache/ (redis read-through).
package directory

//go:generate mockgen -source=directory.go -destination=mocks/mocks.go -package=mocks Directory,Admin

import (
	"context"

	"certgate/internal/directory/models"
)

// Directory exposes principals, groups, and membership edges.
//
// Stores return sentinel.ErrNotFound (optionally wrapped) for unknown users
// and groups; services translate that into domain errors at the boundary.
type Directory interface {
	// GetUser resolves a principal by its identifier.
	GetUser(ctx context.Context, uid string) (*models.User, error)

	// GetGroup returns the group with the given name.
	GetGroup(ctx context.Context, name string) (*models.Group, error)

	// ListGroups returns every group known to the directory.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// MemberNames enumerates member identifiers of a group in the
	// directory's native iteration order. Callers must not assume the order
	// is sorted or stable across mutations.
	MemberNames(ctx context.Context, group string) ([]string, error)

	// IsMemberOf reports whether uid is a member of the named group.
	IsMemberOf(ctx context.Context, uid, group string) (bool, error)

	// AddUserToGroup adds a membership edge. Adding an existing edge is a
	// no-op.
	AddUserToGroup(ctx context.Context, group, uid string) error

	// RemoveUserFromGroup removes a membership edge. Removing an absent
	// edge is a no-op.
	RemoveUserFromGroup(ctx context.Context, group, uid string) error
}

// Admin extends Directory with entity lifecycle operations used by seeding
// and tests. Production membership management only needs Directory.
type Admin interface {
	Directory

	CreateUser(ctx context.Context, user *models.User) error
	CreateGroup(ctx context.Context, group *models.Group) error
}
