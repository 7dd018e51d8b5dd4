package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const eventsChannel = "deskhive:events"

// RedisDispatcher fans events out through a redis pub/sub channel so
// producers and the realtime delivery process can live in separate
// binaries: the worker publishes assignment and SLA events, the API
// process listens and forwards them to its subscribers. Publish never
// invokes local handlers directly; subscribers fire only in processes
// running Listen, which keeps delivery exactly-once per process even
// when a binary both publishes and listens.
type RedisDispatcher struct {
	client *redis.Client
	local  Dispatcher
	logger *zap.Logger
}

// NewRedisDispatcher creates a dispatcher backed by redis pub/sub.
func NewRedisDispatcher(client *redis.Client, logger *zap.Logger) *RedisDispatcher {
	return &RedisDispatcher{
		client: client,
		local:  NewInMemoryDispatcher(),
		logger: logger,
	}
}

// Publish sends the event to the redis channel.
func (d *RedisDispatcher) Publish(ctx context.Context, event Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return d.client.Publish(ctx, eventsChannel, raw).Err()
}

// Subscribe registers a handler invoked by Listen for received events.
func (d *RedisDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.local.Subscribe(eventType, handler)
}

// Listen consumes the channel until the context is cancelled, dispatching
// each received event to the local subscribers.
func (d *RedisDispatcher) Listen(ctx context.Context) {
	sub := d.client.Subscribe(ctx, eventsChannel)
	defer sub.Close() //nolint:errcheck

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			d.dispatchRaw(ctx, []byte(msg.Payload))
		}
	}
}

func (d *RedisDispatcher) dispatchRaw(ctx context.Context, raw []byte) {
	event, err := decodeEvent(raw)
	if err != nil {
		d.logger.Warn("dropping undecodable event", zap.Error(err))
		return
	}
	_ = d.local.Publish(ctx, event)
}

// wireEvent mirrors Event but defers payload decoding until the event
// type is known.
type wireEvent struct {
	ID             string          `json:"id"`
	Type           EventType       `json:"type"`
	OrganizationID string          `json:"organization_id"`
	TicketID       string          `json:"ticket_id"`
	Actor          Actor           `json:"actor"`
	Timestamp      time.Time       `json:"timestamp"`
	Payload        json.RawMessage `json:"payload"`
}

func decodeEvent(raw []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return Event{}, err
	}
	payload, err := decodePayload(w.Type, w.Payload)
	if err != nil {
		return Event{}, fmt.Errorf("decode %s payload: %w", w.Type, err)
	}
	return Event{
		ID:             w.ID,
		Type:           w.Type,
		OrganizationID: w.OrganizationID,
		TicketID:       w.TicketID,
		Actor:          w.Actor,
		Timestamp:      w.Timestamp,
		Payload:        payload,
	}, nil
}

// decodePayload restores the typed payload a handler expects; handlers
// type-assert on the concrete payload structs.
func decodePayload(eventType EventType, raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch eventType {
	case EventTicketCreated:
		return unmarshalPayload[TicketCreatedPayload](raw)
	case EventTicketClassified:
		return unmarshalPayload[TicketClassifiedPayload](raw)
	case EventTicketAssigned:
		return unmarshalPayload[TicketAssignedPayload](raw)
	case EventTicketUpdated:
		return unmarshalPayload[TicketUpdatedPayload](raw)
	case EventTicketAutoResolved, EventTicketResolved:
		return unmarshalPayload[TicketResolvedPayload](raw)
	case EventTicketMessageAdded:
		return unmarshalPayload[TicketMessageAddedPayload](raw)
	case EventSLABreached:
		return unmarshalPayload[SLABreachedPayload](raw)
	default:
		return unmarshalPayload[map[string]any](raw)
	}
}

func unmarshalPayload[T any](raw json.RawMessage) (T, error) {
	var payload T
	err := json.Unmarshal(raw, &payload)
	return payload, err
}
