package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/config"
	"github.com/deskhive/deskhive/internal/observability"
)

// Handler processes a single task. A returned error triggers a retry with
// exponential backoff until MaxRetries; the fallback then runs once.
type Handler func(ctx context.Context, task Task) error

// Fallback runs after a task has exhausted its retries. It is the safety
// net that force-routes stuck tickets to a human agent.
type Fallback func(ctx context.Context, task Task)

// Consumer drains Redis list queues in a blocking loop.
type Consumer struct {
	client    *redis.Client
	logger    *zap.Logger
	metrics   *observability.Metrics
	cfg       config.QueueConfig
	handlers  map[string]Handler
	fallbacks map[string]Fallback
}

// NewConsumer builds a consumer for the given queues.
func NewConsumer(client *redis.Client, logger *zap.Logger, metrics *observability.Metrics, cfg config.QueueConfig) *Consumer {
	return &Consumer{
		client:    client,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
		handlers:  make(map[string]Handler),
		fallbacks: make(map[string]Fallback),
	}
}

// Handle registers the handler for a queue.
func (c *Consumer) Handle(queue string, handler Handler) {
	c.handlers[queue] = handler
}

// HandleFallback registers the exhausted-retries hook for a queue.
func (c *Consumer) HandleFallback(queue string, fallback Fallback) {
	c.fallbacks[queue] = fallback
}

// Run consumes all registered queues until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	keys := make([]string, 0, len(c.handlers))
	for queue := range c.handlers {
		keys = append(keys, queueKey(queue))
	}
	if len(keys) == 0 {
		return
	}

	pollTimeout := time.Duration(c.cfg.PollTimeoutSec) * time.Second
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}

	for {
		if ctx.Err() != nil {
			return
		}
		res, err := c.client.BRPop(ctx, pollTimeout, keys...).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			c.logger.Warn("queue poll failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(res) != 2 {
			continue
		}
		queue := res[0][len("queue:"):]
		c.dispatch(ctx, queue, []byte(res[1]))
		c.reportDepth(ctx, queue)
	}
}

func (c *Consumer) dispatch(ctx context.Context, queue string, raw []byte) {
	var task Task
	if err := json.Unmarshal(raw, &task); err != nil {
		c.logger.Error("malformed task discarded", zap.String("queue", queue), zap.Error(err))
		return
	}

	handler, ok := c.handlers[queue]
	if !ok {
		c.logger.Warn("no handler for queue", zap.String("queue", queue))
		return
	}

	if err := handler(ctx, task); err != nil {
		c.retry(ctx, queue, task, err)
	}
}

func (c *Consumer) retry(ctx context.Context, queue string, task Task, cause error) {
	task.Attempt++
	maxRetries := c.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	if task.Attempt > maxRetries {
		c.logger.Error("task exhausted retries",
			zap.String("queue", queue),
			zap.String("action", task.Action),
			zap.String("ticket_id", task.TicketID),
			zap.Error(cause))
		if fallback, ok := c.fallbacks[queue]; ok {
			fallback(ctx, task)
		}
		return
	}

	base := time.Duration(c.cfg.BackoffBaseSec) * time.Second
	max := time.Duration(c.cfg.BackoffMaxSec) * time.Second
	if base <= 0 {
		base = 5 * time.Second
	}
	if max <= 0 {
		max = 5 * time.Minute
	}
	delay := Backoff(task.Attempt, base, max)

	c.logger.Warn("task failed; retrying",
		zap.String("queue", queue),
		zap.String("action", task.Action),
		zap.String("ticket_id", task.TicketID),
		zap.Int("attempt", task.Attempt),
		zap.Duration("delay", delay),
		zap.Error(cause))
	if c.metrics != nil {
		c.metrics.TaskRetries.WithLabelValues(queue).Inc()
	}

	// Delayed re-enqueue without a scheduler: sleep in a goroutine so the
	// consumer loop keeps draining other tasks.
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		raw, err := json.Marshal(task)
		if err != nil {
			return
		}
		if err := c.client.LPush(ctx, queueKey(queue), raw).Err(); err != nil {
			c.logger.Error("re-enqueue failed", zap.String("queue", queue), zap.Error(err))
		}
	}()
}

func (c *Consumer) reportDepth(ctx context.Context, queue string) {
	if c.metrics == nil {
		return
	}
	depth, err := c.client.LLen(ctx, queueKey(queue)).Result()
	if err != nil {
		return
	}
	c.metrics.QueueDepth.WithLabelValues(queue).Set(float64(depth))
}
