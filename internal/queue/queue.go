package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Queue names used by the routing pipeline.
const (
	QueueClassification = "classification"
	QueueProcessing     = "processing"
	QueueNotifications  = "notifications"
)

// Task actions.
const (
	ActionClassify    = "classify"
	ActionAutoResolve = "auto_resolve"
	ActionAssign      = "assign"
	ActionAnalyze     = "analyze"
	ActionReply       = "reply"
	ActionNotify      = "notify"
)

// Task is the unit of asynchronous work pushed through Redis lists.
type Task struct {
	ID        string            `json:"id"`
	Action    string            `json:"action"`
	TicketID  string            `json:"ticket_id,omitempty"`
	Attempt   int               `json:"attempt"`
	Meta      map[string]string `json:"meta,omitempty"`
	EnqueueAt time.Time         `json:"enqueued_at"`
}

// Publisher enqueues tasks for the worker process.
type Publisher interface {
	Publish(ctx context.Context, queue string, task Task) error
}

type redisPublisher struct {
	client *redis.Client
}

// NewPublisher builds a Redis-list publisher.
func NewPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

func queueKey(queue string) string {
	return "queue:" + queue
}

func (p *redisPublisher) Publish(ctx context.Context, queue string, task Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.EnqueueAt.IsZero() {
		task.EnqueueAt = time.Now()
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.client.LPush(ctx, queueKey(queue), raw).Err()
}

// Backoff computes the delay before re-enqueueing a task on its nth
// retry: base * 2^(attempt-1), capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
