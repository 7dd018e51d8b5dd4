package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deskhive/deskhive/internal/domain"
)

const ticketKeyPrefix = "ticket:"

// ErrMiss indicates the key is absent from the cache.
var ErrMiss = errors.New("cache miss")

// TicketCache is a read-through cache for ticket lookups. Writes always
// invalidate; assignment counting never goes through here.
type TicketCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTicketCache builds the cache. A nil client yields a disabled cache
// whose operations are no-ops.
func NewTicketCache(client *redis.Client, ttl time.Duration) *TicketCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &TicketCache{client: client, ttl: ttl}
}

// Get fetches a cached ticket, returning ErrMiss when absent.
func (c *TicketCache) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if c == nil || c.client == nil {
		return nil, ErrMiss
	}
	raw, err := c.client.Get(ctx, ticketKeyPrefix+ticketID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	var ticket domain.Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return nil, ErrMiss
	}
	return &ticket, nil
}

// Set stores a ticket with the configured TTL.
func (c *TicketCache) Set(ctx context.Context, ticket *domain.Ticket) error {
	if c == nil || c.client == nil || ticket == nil {
		return nil
	}
	raw, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, ticketKeyPrefix+ticket.ID, raw, c.ttl).Err()
}

// Invalidate drops the cached ticket.
func (c *TicketCache) Invalidate(ctx context.Context, ticketID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, ticketKeyPrefix+ticketID).Err()
}
