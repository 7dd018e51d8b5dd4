package domain

import "time"

// Category groups tickets per organization and carries SLA configuration.
type Category struct {
	ID                   string
	OrganizationID       string
	Name                 string
	Description          string
	Keywords             *string
	IsActive             bool
	AutoAssignEnabled    bool
	ResponseSLAMinutes   int
	ResolutionSLAMinutes int
	// PriorityLevel runs 1 (highest) through 5 (lowest).
	PriorityLevel int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ResponseDeadline computes the response SLA deadline for a ticket created at t.
func (c *Category) ResponseDeadline(t time.Time) time.Time {
	return t.Add(time.Duration(c.ResponseSLAMinutes) * time.Minute)
}

// ResolutionDeadline computes the resolution SLA deadline for a ticket created at t.
func (c *Category) ResolutionDeadline(t time.Time) time.Time {
	return t.Add(time.Duration(c.ResolutionSLAMinutes) * time.Minute)
}

// CategoryAssignment links an agent to a category; its existence implies
// eligibility for tickets of that category.
type CategoryAssignment struct {
	ID         string
	UserID     string
	CategoryID string
	CreatedAt  time.Time
}
