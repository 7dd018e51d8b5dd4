package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/events"
)

func TestAssignmentNotifiesAgentAndBroadcasts(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	sink := &recordingSink{}
	NewNotificationService(dispatcher, sink, zap.NewNop()).RegisterHandlers()

	publishEvent(context.Background(), dispatcher, events.Event{
		Type:           events.EventTicketAssigned,
		OrganizationID: "org-1",
		TicketID:       "ticket-1",
		Actor:          systemActor(),
		Payload:        events.TicketAssignedPayload{AgentID: "bob", Subject: "help"},
	})

	require.Len(t, sink.calls, 2)
	assert.Equal(t, sinkCall{Kind: "user", UserID: "bob", Event: "ticket_assigned"}, sink.calls[0])
	// The broadcast skips the agent who already got a direct notification.
	assert.Equal(t, sinkCall{Kind: "org", OrgID: "org-1", Event: "ticket_assigned", Exclude: "bob"}, sink.calls[1])
}

func TestLifecycleEventsBroadcastToOrganization(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	sink := &recordingSink{}
	NewNotificationService(dispatcher, sink, zap.NewNop()).RegisterHandlers()

	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketResolved,
		events.EventSLABreached,
	} {
		publishEvent(context.Background(), dispatcher, events.Event{
			Type:           eventType,
			OrganizationID: "org-1",
			TicketID:       "ticket-1",
			Actor:          systemActor(),
		})
	}

	require.Len(t, sink.calls, 3)
	for _, call := range sink.calls {
		assert.Equal(t, "org", call.Kind)
		assert.Equal(t, "org-1", call.OrgID)
		assert.Empty(t, call.Exclude)
	}
}

func TestNilSinkFallsBackToNoop(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, nil, zap.NewNop()).RegisterHandlers()

	// Must not panic without a sink attached.
	publishEvent(context.Background(), dispatcher, events.Event{
		Type:           events.EventTicketCreated,
		OrganizationID: "org-1",
		Actor:          systemActor(),
	})
}

func TestPublishEventStampsIdentity(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	var got events.Event
	dispatcher.Subscribe(events.EventTicketCreated, func(_ context.Context, event events.Event) error {
		got = event
		return nil
	})

	publishEvent(context.Background(), dispatcher, events.Event{
		Type:           events.EventTicketCreated,
		OrganizationID: "org-1",
	})

	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())
}
