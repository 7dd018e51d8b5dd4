package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/config"
	"github.com/deskhive/deskhive/internal/queue"
	"github.com/deskhive/deskhive/internal/repository"
)

// ChannelNotifier delivers resolution replies back to the customer over
// the ticket's intake channel. Email and telegram delivery go through the
// configured webhook relay; web tickets are served by the realtime feed
// and need no outbound call.
type ChannelNotifier struct {
	tickets   repository.TicketRepository
	customers repository.CustomerRepository
	cfg       config.NotificationConfig
	client    *http.Client
	logger    *zap.Logger
}

// NewChannelNotifier builds the notifier.
func NewChannelNotifier(tickets repository.TicketRepository, customers repository.CustomerRepository, cfg config.NotificationConfig, logger *zap.Logger) *ChannelNotifier {
	return &ChannelNotifier{
		tickets:   tickets,
		customers: customers,
		cfg:       cfg,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

type outboundReply struct {
	TicketID          string `json:"ticket_id"`
	Channel           string `json:"channel"`
	ChannelIdentifier string `json:"channel_identifier"`
	CustomerEmail     string `json:"customer_email"`
	Subject           string `json:"subject"`
	Body              string `json:"body"`
	From              string `json:"from,omitempty"`
}

// Deliver sends the ticket's resolution to its customer.
func (n *ChannelNotifier) Deliver(ctx context.Context, task queue.Task) error {
	ticket, err := n.tickets.GetByID(ctx, task.TicketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Ticket vanished; nothing to deliver and nothing to retry.
			return nil
		}
		return err
	}
	if ticket.Resolution == nil {
		return nil
	}
	customer, err := n.customers.GetByID(ctx, ticket.CustomerID)
	if err != nil {
		return err
	}

	reply := outboundReply{
		TicketID:          ticket.ID,
		Channel:           string(ticket.Channel),
		ChannelIdentifier: customer.ChannelIdentifier,
		CustomerEmail:     customer.Email,
		Subject:           "Re: " + ticket.Subject,
		Body:              *ticket.Resolution,
		From:              n.cfg.EmailFrom,
	}

	if n.cfg.WebhookURL == "" {
		n.logger.Info("no delivery relay configured, reply logged only",
			zap.String("ticket_id", ticket.ID),
			zap.String("channel", reply.Channel))
		return nil
	}

	raw, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("delivery relay returned %d", resp.StatusCode)
	}
	n.logger.Info("reply delivered",
		zap.String("ticket_id", ticket.ID),
		zap.String("channel", reply.Channel))
	return nil
}
