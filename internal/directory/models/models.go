// Package models defines the directory entities: users (principals) and
// groups. The directory owns group lifecycle; membership edges are mutated
// through directory stores.
package models

import "time"

// User is a resolved principal record.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string `json:"-"` // Never serialize - contains bcrypt hash
	CreatedAt    time.Time
}

// Group is a named set of member identifiers.
type Group struct {
	Name        string
	Description string
	CreatedAt   time.Time
}

// GroupMember is the administrative view of a single membership edge.
type GroupMember struct {
	ID      string
	GroupID string
}
