package ws

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/observability"
)

// Message is the JSON envelope pushed to connected clients.
type Message struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Hub tracks live connections per user and per organization. It is the
// concrete NotificationSink behind the service layer: send failures are
// logged and never surfaced to callers.
type Hub struct {
	mu      sync.RWMutex
	users   map[string]map[*client]struct{}
	orgs    map[string]map[string]map[*client]struct{}
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		users:   make(map[string]map[*client]struct{}),
		orgs:    make(map[string]map[string]map[*client]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[c.userID] == nil {
		h.users[c.userID] = make(map[*client]struct{})
	}
	h.users[c.userID][c] = struct{}{}

	if h.orgs[c.orgID] == nil {
		h.orgs[c.orgID] = make(map[string]map[*client]struct{})
	}
	if h.orgs[c.orgID][c.userID] == nil {
		h.orgs[c.orgID][c.userID] = make(map[*client]struct{})
	}
	h.orgs[c.orgID][c.userID][c] = struct{}{}

	if h.metrics != nil {
		h.metrics.WebsocketSessions.Inc()
	}
	h.logger.Info("websocket connected",
		zap.String("user_id", c.userID), zap.String("org_id", c.orgID))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.users[c.userID]; ok {
		if _, present := conns[c]; !present {
			return
		}
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.users, c.userID)
		}
	} else {
		return
	}
	if byUser, ok := h.orgs[c.orgID]; ok {
		if conns, ok := byUser[c.userID]; ok {
			delete(conns, c)
			if len(conns) == 0 {
				delete(byUser, c.userID)
			}
		}
		if len(byUser) == 0 {
			delete(h.orgs, c.orgID)
		}
	}
	close(c.send)

	if h.metrics != nil {
		h.metrics.WebsocketSessions.Dec()
	}
	h.logger.Info("websocket disconnected",
		zap.String("user_id", c.userID), zap.String("org_id", c.orgID))
}

// NotifyUser sends an event to every connection of a single user.
func (h *Hub) NotifyUser(ctx context.Context, userID, event string, payload any) {
	msg := Message{Event: event, Timestamp: time.Now(), Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[userID] {
		c.enqueue(msg, h.logger)
	}
}

// BroadcastToOrganization sends an event to every connected member of an
// organization, optionally excluding one user (who already received a
// direct notification).
func (h *Hub) BroadcastToOrganization(ctx context.Context, orgID, event string, payload any, excludeUserID string) {
	msg := Message{Event: event, Timestamp: time.Now(), Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for userID, conns := range h.orgs[orgID] {
		if userID == excludeUserID {
			continue
		}
		for c := range conns {
			c.enqueue(msg, h.logger)
		}
	}
}
