package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// ActiveStatuses lists statuses that count against an agent's workload.
var ActiveStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusOpen,
	TicketStatusPending,
	TicketStatusAssigned,
	TicketStatusInProgress,
}

// IsActive reports whether the status counts as unresolved work in progress.
func (s TicketStatus) IsActive() bool {
	for _, candidate := range ActiveStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Criticality is the AI-assessed urgency of a ticket.
type Criticality string

const (
	CriticalityLow  Criticality = "low"
	CriticalityHigh Criticality = "high"
	// CriticalityUnknown marks tickets the classifier could not score;
	// such tickets always route to a human agent.
	CriticalityUnknown Criticality = ""
)

// Channel identifies the intake source of a ticket.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
	ChannelWeb      Channel = "web"
)

// ResolutionType records how a ticket was resolved.
type ResolutionType string

const (
	ResolutionTypeAuto  ResolutionType = "auto"
	ResolutionTypeAgent ResolutionType = "agent"
)

// Ticket is the aggregate for customer support requests.
type Ticket struct {
	ID              string
	OrganizationID  string
	CustomerID      string
	CategoryID      *string
	AssignedAgentID *string
	Subject         string
	Description     string
	Channel         Channel
	Criticality     Criticality
	ConfidenceScore *float64
	Status          TicketStatus
	Resolution      *string
	ResolutionType  *ResolutionType
	EstimatedTime   *int
	AssignedAt      *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Assigned reports whether the ticket already has an agent. Assignment is
// a no-op once this is true.
func (t *Ticket) Assigned() bool {
	return t.AssignedAgentID != nil
}
