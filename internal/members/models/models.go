// Package models holds the group membership API shapes.
package models

// Member is one user's membership in a group.
type Member struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id"`
}

// Page is one window of a filtered member listing. Total counts every member
// matching the filter, not just the window returned.
type Page struct {
	Members []Member `json:"members"`
	Total   int      `json:"total"`
}
