package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mashkov/statusdeck/internal/pkg/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1024
)

// clientMessage is the only client-to-server protocol: joining and
// leaving an organization's channel.
type clientMessage struct {
	Action         string `json:"action"`
	OrganizationID string `json:"organizationId"`
}

// Hub multicasts envelopes to every live connection that has joined the
// target organization's channel. Membership lives in process memory for
// the lifetime of the server; after a restart clients must rejoin.
//
// Delivery is best-effort and at-most-once per connection per publish: no
// acknowledgement, no persistence, no replay. A client that missed events
// re-fetches state through the ordinary read path after reconnecting.
type Hub struct {
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	sendBuffer int

	mu       sync.RWMutex
	channels map[string]map[*client]struct{}
}

// NewHub creates the hub. It is constructed once at startup by the
// composition root and handed to every component that publishes.
func NewHub(logger *slog.Logger, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin browsers are expected: the dashboard and the
			// public page are served from their own origins. CORS policy
			// is enforced at the HTTP layer.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		sendBuffer: sendBuffer,
		channels:   make(map[string]map[*client]struct{}),
	}
}

// Publish delivers the envelope to every connection currently joined to
// the organization's channel. It never blocks on a slow consumer and
// never fails the caller: a full send buffer drops the frame for that
// connection only.
func (h *Hub) Publish(organizationID string, envelope Envelope) {
	frame, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Error("failed to marshal envelope", "event", envelope.Event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.channels[organizationID] {
		select {
		case c.send <- frame:
			metrics.WSEventsPublished.WithLabelValues(string(envelope.Event)).Inc()
		default:
			metrics.WSEventsDropped.Inc()
		}
	}
}

// ServeHTTP upgrades the connection and runs its read/write loops.
// Joining a channel happens through a joinOrg message, independent of any
// request lifecycle.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		orgs: make(map[string]struct{}),
	}

	metrics.WSConnections.Inc()
	go c.writeLoop()
	go c.readLoop()
}

// ConnectionCount reports live connections in the organization's channel.
func (h *Hub) ConnectionCount(organizationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[organizationID])
}

func (h *Hub) join(c *client, organizationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.channels[organizationID]
	if !ok {
		members = make(map[*client]struct{})
		h.channels[organizationID] = members
	}
	members[c] = struct{}{}
	c.orgs[organizationID] = struct{}{}
}

func (h *Hub) leave(c *client, organizationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, organizationID)
	delete(c.orgs, organizationID)
}

// drop removes the client from every channel it joined.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for orgID := range c.orgs {
		h.removeLocked(c, orgID)
	}
	c.orgs = make(map[string]struct{})
}

func (h *Hub) removeLocked(c *client, organizationID string) {
	if members, ok := h.channels[organizationID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.channels, organizationID)
		}
	}
}

// client is one live websocket connection. Writes go through the buffered
// send channel so Publish never blocks on the socket.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// orgs is only touched by hub methods under the hub mutex.
	orgs map[string]struct{}
}

func (c *client) readLoop() {
	defer func() {
		c.hub.drop(c)
		close(c.send)
		metrics.WSConnections.Dec()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.logger.Debug("ignoring malformed client message", "error", err)
			continue
		}

		switch msg.Action {
		case "joinOrg":
			if msg.OrganizationID != "" {
				c.hub.join(c, msg.OrganizationID)
			}
		case "leaveOrg":
			if msg.OrganizationID != "" {
				c.hub.leave(c, msg.OrganizationID)
			}
		default:
			c.hub.logger.Debug("unknown client action", "action", msg.Action)
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
