package domain

import "time"

// Customer is an external requester reaching the organization through one
// of the intake channels.
type Customer struct {
	ID             string
	OrganizationID string
	Email          string
	Name           *string
	Phone          *string
	Channel        Channel
	// ChannelIdentifier is the channel-native address of the customer,
	// e.g. a Telegram chat ID or the email address tickets arrive from.
	ChannelIdentifier string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
