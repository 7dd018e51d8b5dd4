package domain

import "time"

// Plan enumerates subscription tiers.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanStarter    Plan = "starter"
	PlanEnterprise Plan = "enterprise"
)

// Organization is the tenant boundary: every ticket, category, customer
// and user belongs to exactly one organization.
type Organization struct {
	ID                 string
	Name               string
	Sector             *string
	EmployeeCount      *int
	Plan               Plan
	MonthlyTicketLimit int
	AgentLimit         int
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
