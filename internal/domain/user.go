package domain

import "time"

// UserRole enumerates organization member roles.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleAgent UserRole = "agent"
)

// UserStatus represents agent availability.
type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusAway   UserStatus = "away"
)

// User is an organization member: an administrator or a support agent.
type User struct {
	ID             string
	OrganizationID string
	Email          string
	Name           string
	Phone          *string
	PasswordHash   string
	Role           UserRole
	Status         UserStatus
	LastAssignedAt *time.Time
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Assignable reports whether the user may receive new ticket assignments.
func (u *User) Assignable() bool {
	return u.Role == UserRoleAgent && u.IsActive && u.Status == UserStatusActive
}
