package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/domain"
)

func TestAssignedEventCrossesProcessBoundaryTyped(t *testing.T) {
	d := NewRedisDispatcher(nil, zap.NewNop())

	var received []Event
	d.Subscribe(EventTicketAssigned, func(_ context.Context, event Event) error {
		received = append(received, event)
		return nil
	})

	// The worker-side producer serializes exactly like Publish does.
	raw, err := json.Marshal(Event{
		ID:             "evt-1",
		Type:           EventTicketAssigned,
		OrganizationID: "org-1",
		TicketID:       "ticket-1",
		Actor:          Actor{Type: domain.SubjectTypeSystem},
		Timestamp:      time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Payload:        TicketAssignedPayload{AgentID: "bob", Subject: "printer on fire"},
	})
	require.NoError(t, err)

	d.dispatchRaw(context.Background(), raw)

	require.Len(t, received, 1)
	assert.Equal(t, "ticket-1", received[0].TicketID)
	payload, ok := received[0].Payload.(TicketAssignedPayload)
	require.True(t, ok, "payload must come back as its concrete type")
	assert.Equal(t, "bob", payload.AgentID)
	assert.Equal(t, "printer on fire", payload.Subject)
}

func TestDecodeEventRestoresTypedPayloads(t *testing.T) {
	deadline := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event Event
		check func(t *testing.T, payload any)
	}{
		{
			name: "sla breach",
			event: Event{
				Type:    EventSLABreached,
				Payload: SLABreachedPayload{Kind: "response", Deadline: deadline},
			},
			check: func(t *testing.T, payload any) {
				p, ok := payload.(SLABreachedPayload)
				require.True(t, ok)
				assert.Equal(t, "response", p.Kind)
				assert.True(t, deadline.Equal(p.Deadline))
			},
		},
		{
			name: "auto resolved",
			event: Event{
				Type:    EventTicketAutoResolved,
				Payload: TicketResolvedPayload{ResolutionType: domain.ResolutionTypeAuto, Resolution: "restart it"},
			},
			check: func(t *testing.T, payload any) {
				p, ok := payload.(TicketResolvedPayload)
				require.True(t, ok)
				assert.Equal(t, domain.ResolutionTypeAuto, p.ResolutionType)
			},
		},
		{
			name:  "nil payload",
			event: Event{Type: EventTicketUpdated},
			check: func(t *testing.T, payload any) {
				assert.Nil(t, payload)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.event)
			require.NoError(t, err)

			decoded, err := decodeEvent(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.event.Type, decoded.Type)
			tt.check(t, decoded.Payload)
		})
	}
}

func TestDispatchRawDropsGarbage(t *testing.T) {
	d := NewRedisDispatcher(nil, zap.NewNop())

	called := false
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		called = true
		return nil
	})

	d.dispatchRaw(context.Background(), []byte("not json"))
	assert.False(t, called)
}
