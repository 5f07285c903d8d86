// Package postgres persists the directory in PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"certgate/internal/directory/models"
	"certgate/pkg/platform/sentinel"
)

// Schema creates the directory tables. Applied by EnsureSchema on startup;
// idempotent so repeated boots are safe.
const Schema = `
CREATE TABLE IF NOT EXISTS directory_users (
	uid           TEXT PRIMARY KEY,
	full_name     TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS directory_groups (
	name        TEXT PRIMARY KEY,
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS directory_group_members (
	group_name TEXT NOT NULL REFERENCES directory_groups(name) ON DELETE CASCADE,
	member_uid TEXT NOT NULL,
	added_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (group_name, member_uid)
);
`

// Store implements directory.Admin on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema applies the directory schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure directory schema: %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO directory_users (uid, full_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.FullName, user.Email, user.PasswordHash)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO directory_groups (name, description)
		VALUES ($1, $2)
	`, group.Name, group.Description)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx, `
		SELECT uid, full_name, email, password_hash, created_at
		FROM directory_users WHERE uid = $1
	`, uid).Scan(&user.ID, &user.FullName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (s *Store) GetGroup(ctx context.Context, name string) (*models.Group, error) {
	var group models.Group
	err := s.pool.QueryRow(ctx, `
		SELECT name, description, created_at
		FROM directory_groups WHERE name = $1
	`, name).Scan(&group.Name, &group.Description, &group.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return &group, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, description, created_at FROM directory_groups
	`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		var group models.Group
		if err := rows.Scan(&group.Name, &group.Description, &group.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, &group)
	}
	return groups, rows.Err()
}

func (s *Store) MemberNames(ctx context.Context, group string) ([]string, error) {
	if err := s.requireGroup(ctx, group); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT member_uid FROM directory_group_members
		WHERE group_name = $1 ORDER BY added_at
	`, group)
	if err != nil {
		return nil, fmt.Errorf("member names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) IsMemberOf(ctx context.Context, uid, group string) (bool, error) {
	if err := s.requireGroup(ctx, group); err != nil {
		return false, err
	}
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM directory_group_members
			WHERE group_name = $1 AND member_uid = $2
		)
	`, group, uid).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("is member of: %w", err)
	}
	return exists, nil
}

func (s *Store) AddUserToGroup(ctx context.Context, group, uid string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO directory_group_members (group_name, member_uid)
		VALUES ($1, $2)
		ON CONFLICT (group_name, member_uid) DO NOTHING
	`, group, uid)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23503: group does not exist (foreign key)
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("add user to group: %w", err)
	}
	return nil
}

func (s *Store) RemoveUserFromGroup(ctx context.Context, group, uid string) error {
	if err := s.requireGroup(ctx, group); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM directory_group_members
		WHERE group_name = $1 AND member_uid = $2
	`, group, uid); err != nil {
		return fmt.Errorf("remove user from group: %w", err)
	}
	return nil
}

func (s *Store) requireGroup(ctx context.Context, group string) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM directory_groups WHERE name = $1)
	`, group).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check group: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
