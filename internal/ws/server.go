package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/auth"
	"github.com/deskhive/deskhive/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn   *websocket.Conn
	send   chan Message
	userID string
	orgID  string
}

func (c *client) enqueue(msg Message, logger *zap.Logger) {
	select {
	case c.send <- msg:
	default:
		logger.Warn("websocket send buffer full; dropping message",
			zap.String("user_id", c.userID), zap.String("event", msg.Event))
	}
}

// Server exposes the hub over a dedicated net/http listener. The fiber
// app serves the REST API; websocket upgrades need net/http hijacking,
// so they get their own port.
type Server struct {
	hub    *Hub
	tokens *auth.TokenManager
	logger *zap.Logger
	srv    *http.Server
}

// NewServer builds the websocket server.
func NewServer(addr string, hub *Hub, tokens *auth.TokenManager, logger *zap.Logger) *Server {
	s := &Server{hub: hub, tokens: tokens, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	// Operational endpoints share the internal listener.
	mux.Handle("/metrics", promhttp.Handler())
	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// ListenAndServe blocks serving websocket upgrades.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}
	claims, err := s.tokens.ParseToken(token)
	if err != nil || claims.Subject != domain.SubjectTypeMember {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan Message, sendBufferSize),
		userID: claims.SubjectID,
		orgID:  claims.OrganizationID,
	}
	s.hub.register(c)

	go s.writePump(c)
	s.readPump(c)
}

// readPump drains inbound frames to keep the connection alive; clients
// only listen, so payloads are discarded.
func (s *Server) readPump(c *client) {
	defer func() {
		s.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
