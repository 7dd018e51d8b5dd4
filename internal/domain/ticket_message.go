package domain

import "time"

// SenderType indicates who authored a ticket message.
type SenderType string

const (
	SenderTypeCustomer SenderType = "customer"
	SenderTypeAgent    SenderType = "agent"
	SenderTypeSystem   SenderType = "system"
)

// TicketMessage captures communications in a ticket thread.
type TicketMessage struct {
	ID         string
	TicketID   string
	SenderType SenderType
	SenderID   *string
	Body       string
	IsInternal bool
	CreatedAt  time.Time
}
