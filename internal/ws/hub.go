// Package ws pushes notification events to connected dashboards over websockets.
// Events travel through a Broker so every API replica delivers to its own connections.
package ws

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"onboarding-forms-api/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

const (
	channelPrefix = "notifications:"
	// AdminsChannel carries events for every connected admin
	AdminsChannel = channelPrefix + "admins"
	userChannelFmt = channelPrefix + "user:%s"
)

// UserChannel returns the channel of a single user's events
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf(userChannelFmt, userID)
}

// Client is one websocket connection
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	userID  uuid.UUID
	isAdmin bool
}

// Hub tracks connections by user and fans out channel payloads to them
type Hub struct {
	clients   map[uuid.UUID]map[*Client]bool
	clientsMu sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHub creates a hub; Run must be started before clients connect
func NewHub(logger *zap.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
		metrics:    m,
	}
}

// Run processes registrations until ctx is cancelled or Stop is called
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.clientsMu.Lock()
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*Client]bool)
			}
			h.clients[c.userID][c] = true
			h.clientsMu.Unlock()
			h.metrics.AddWebsocketConnections(1)
			h.logger.Debug("Websocket client registered",
				zap.String("user_id", c.userID.String()),
				zap.Bool("admin", c.isAdmin))

		case c := <-h.unregister:
			h.remove(c)

		case <-ctx.Done():
			h.Stop()
			h.closeAll()
			return
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop ends Run and closes every connection
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) remove(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	clients, ok := h.clients[c.userID]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.clients, c.userID)
	}
	h.metrics.AddWebsocketConnections(-1)
	h.logger.Debug("Websocket client unregistered", zap.String("user_id", c.userID.String()))
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for userID, clients := range h.clients {
		for c := range clients {
			close(c.send)
			h.metrics.AddWebsocketConnections(-1)
		}
		delete(h.clients, userID)
	}
}

// Connections returns the number of open connections
func (h *Hub) Connections() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

// Dispatch delivers payload to the connections subscribed to channel.
// Slow clients whose buffer is full miss the event rather than block the hub.
func (h *Hub) Dispatch(channel string, payload []byte) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	deliver := func(c *Client) {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("Dropping event for slow websocket client",
				zap.String("user_id", c.userID.String()),
				zap.String("channel", channel))
		}
	}

	if channel == AdminsChannel {
		for _, clients := range h.clients {
			for c := range clients {
				if c.isAdmin {
					deliver(c)
				}
			}
		}
		return
	}

	rest := strings.TrimPrefix(channel, channelPrefix+"user:")
	if rest == channel {
		return
	}
	userID, err := uuid.Parse(rest)
	if err != nil {
		return
	}
	for c := range h.clients[userID] {
		deliver(c)
	}
}

// Serve registers conn and pumps events to it until it closes
func (h *Hub) Serve(conn *websocket.Conn, userID uuid.UUID, isAdmin bool) {
	c := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		userID:  userID,
		isAdmin: isAdmin,
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	c.readPump()
}

// readPump only consumes pongs and close frames; dashboards do not send events
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("Websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
