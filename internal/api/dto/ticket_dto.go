package dto

import (
	"time"

	"github.com/deskhive/deskhive/internal/domain"
)

// CreateTicketRequest is the public intake payload for web tickets.
type CreateTicketRequest struct {
	Subject           string  `json:"subject"`
	Description       string  `json:"description"`
	CustomerEmail     string  `json:"customer_email"`
	CustomerName      *string `json:"customer_name"`
	ChannelIdentifier string  `json:"channel_identifier"`
	Channel           string  `json:"channel"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// ResolveTicketRequest payload.
type ResolveTicketRequest struct {
	Resolution string `json:"resolution"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Body       string `json:"body"`
	IsInternal bool   `json:"is_internal"`
}

// TicketResponse provides full ticket info.
type TicketResponse struct {
	ID              string                 `json:"id"`
	OrganizationID  string                 `json:"organization_id"`
	CustomerID      string                 `json:"customer_id"`
	CategoryID      *string                `json:"category_id"`
	AssignedAgentID *string                `json:"assigned_agent_id"`
	Subject         string                 `json:"subject"`
	Description     string                 `json:"description"`
	Channel         domain.Channel         `json:"channel"`
	Criticality     domain.Criticality     `json:"criticality"`
	ConfidenceScore *float64               `json:"confidence_score,omitempty"`
	Status          domain.TicketStatus    `json:"status"`
	Resolution      *string                `json:"resolution,omitempty"`
	ResolutionType  *domain.ResolutionType `json:"resolution_type,omitempty"`
	EstimatedTime   *int                   `json:"estimated_time,omitempty"`
	AssignedAt      *time.Time             `json:"assigned_at,omitempty"`
	ResolvedAt      *time.Time             `json:"resolved_at,omitempty"`
	ClosedAt        *time.Time             `json:"closed_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              ticket.ID,
		OrganizationID:  ticket.OrganizationID,
		CustomerID:      ticket.CustomerID,
		CategoryID:      ticket.CategoryID,
		AssignedAgentID: ticket.AssignedAgentID,
		Subject:         ticket.Subject,
		Description:     ticket.Description,
		Channel:         ticket.Channel,
		Criticality:     ticket.Criticality,
		ConfidenceScore: ticket.ConfidenceScore,
		Status:          ticket.Status,
		Resolution:      ticket.Resolution,
		ResolutionType:  ticket.ResolutionType,
		EstimatedTime:   ticket.EstimatedTime,
		AssignedAt:      ticket.AssignedAt,
		ResolvedAt:      ticket.ResolvedAt,
		ClosedAt:        ticket.ClosedAt,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// MessageResponse represents a thread message.
type MessageResponse struct {
	ID         string            `json:"id"`
	TicketID   string            `json:"ticket_id"`
	SenderType domain.SenderType `json:"sender_type"`
	SenderID   *string           `json:"sender_id,omitempty"`
	Body       string            `json:"body"`
	IsInternal bool              `json:"is_internal"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewMessageResponse maps a domain message.
func NewMessageResponse(msg *domain.TicketMessage) MessageResponse {
	return MessageResponse{
		ID:         msg.ID,
		TicketID:   msg.TicketID,
		SenderType: msg.SenderType,
		SenderID:   msg.SenderID,
		Body:       msg.Body,
		IsInternal: msg.IsInternal,
		CreatedAt:  msg.CreatedAt,
	}
}
