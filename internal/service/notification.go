package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/events"
)

// NotificationSink delivers realtime notifications. The websocket hub is
// the production implementation; tests inject a recorder.
type NotificationSink interface {
	NotifyUser(ctx context.Context, userID, event string, payload any)
	BroadcastToOrganization(ctx context.Context, orgID, event string, payload any, excludeUserID string)
}

// NoopSink discards all notifications.
type NoopSink struct{}

func (NoopSink) NotifyUser(context.Context, string, string, any) {}

func (NoopSink) BroadcastToOrganization(context.Context, string, string, any, string) {}

// NotificationService fans domain events out to the realtime sink. All
// delivery is fire-and-forget; a failed notification never fails the
// operation that produced it.
type NotificationService struct {
	dispatcher events.Dispatcher
	sink       NotificationSink
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sink NotificationSink, logger *zap.Logger) *NotificationService {
	if sink == nil {
		sink = NoopSink{}
	}
	return &NotificationService{dispatcher: dispatcher, sink: sink, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleBroadcast)
	n.dispatcher.Subscribe(events.EventTicketClassified, n.handleBroadcast)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleBroadcast)
	n.dispatcher.Subscribe(events.EventTicketAutoResolved, n.handleBroadcast)
	n.dispatcher.Subscribe(events.EventTicketResolved, n.handleBroadcast)
	n.dispatcher.Subscribe(events.EventTicketMessageAdded, n.handleBroadcast)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventSLABreached, n.handleBroadcast)
}

func (n *NotificationService) handleBroadcast(ctx context.Context, event events.Event) error {
	n.logger.Debug("broadcast event",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
	n.sink.BroadcastToOrganization(ctx, event.OrganizationID, string(event.Type), event, "")
	return nil
}

// handleTicketAssigned notifies the assigned agent directly and
// broadcasts to the rest of the organization.
func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return n.handleBroadcast(ctx, event)
	}
	n.logger.Info("ticket assigned",
		zap.String("ticket_id", event.TicketID),
		zap.String("agent_id", payload.AgentID))
	n.sink.NotifyUser(ctx, payload.AgentID, string(events.EventTicketAssigned), event)
	n.sink.BroadcastToOrganization(ctx, event.OrganizationID, string(event.Type), event, payload.AgentID)
	return nil
}

// publishEvent stamps identity and time before dispatch. Dispatch is
// best-effort; a missing dispatcher is a no-op.
func publishEvent(ctx context.Context, d events.Dispatcher, event events.Event) {
	if d == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = d.Publish(ctx, event)
}

func systemActor() events.Actor {
	return events.Actor{Type: domain.SubjectTypeSystem}
}

func memberActor(userID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeMember, UserID: &userID}
}

func customerActor(customerID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeCustomer, CustomerID: &customerID}
}
