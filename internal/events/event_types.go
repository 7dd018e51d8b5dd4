package events

import (
	"time"

	"github.com/deskhive/deskhive/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketClassified   EventType = "ticket_classified"
	EventTicketAssigned     EventType = "ticket_assigned"
	EventTicketUpdated      EventType = "ticket_updated"
	EventTicketAutoResolved EventType = "ticket_auto_resolved"
	EventTicketResolved     EventType = "ticket_resolved"
	EventTicketMessageAdded EventType = "ticket_message_added"
	EventSLABreached        EventType = "sla_breached"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type       domain.SubjectType `json:"type"`
	UserID     *string            `json:"user_id,omitempty"`
	CustomerID *string            `json:"customer_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	OrganizationID string      `json:"organization_id"`
	TicketID       string      `json:"ticket_id"`
	Actor          Actor       `json:"actor"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerID string         `json:"customer_id"`
	Channel    domain.Channel `json:"channel"`
	Subject    string         `json:"subject"`
}

// TicketClassifiedPayload payload.
type TicketClassifiedPayload struct {
	CategoryID  *string            `json:"category_id,omitempty"`
	Criticality domain.Criticality `json:"criticality"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AgentID string `json:"agent_id"`
	Subject string `json:"subject"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	ResolutionType domain.ResolutionType `json:"resolution_type"`
	Resolution     string                `json:"resolution,omitempty"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string            `json:"message_id"`
	SenderType  domain.SenderType `json:"sender_type"`
	SenderID    *string           `json:"sender_id,omitempty"`
	IsInternal  bool              `json:"is_internal"`
	BodyPreview string            `json:"body_preview"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Kind     string    `json:"kind"` // response or resolution
	Deadline time.Time `json:"deadline"`
}
