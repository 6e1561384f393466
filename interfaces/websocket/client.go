package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// Layout event types sent by the client renderer when a node is dragged
const (
	EventPin   = "PIN"
	EventUnpin = "UNPIN"
)

// LayoutEvent pins a node at a position or releases it
type LayoutEvent struct {
	Type   string   `json:"type"`
	NodeID string   `json:"nodeId"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
}

func (e LayoutEvent) valid() bool {
	switch e.Type {
	case EventPin:
		return e.NodeID != "" && e.X != nil && e.Y != nil
	case EventUnpin:
		return e.NodeID != ""
	}
	return false
}

// Client is one browser subscribed to a session's concept graph
type Client struct {
	id        string
	sessionID string
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	logger    *zap.Logger

	// rendered is set once a snapshot was queued; owned by the hub's Run loop
	rendered bool
}

// NewClient creates a new subscription client
func NewClient(sessionID string, hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		id:        id,
		sessionID: sessionID,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		logger: logger.With(
			zap.String("sessionID", sessionID),
			zap.String("connectionID", id),
		),
	}
}

// Start registers the client with the hub and runs its pumps. Once Start
// returns, every render for the session reaches the client.
func (c *Client) Start() {
	c.hub.registerClient(c)

	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.handleTextMessage(message)
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
				c.logger.Debug("Failed to write message", zap.Error(err))
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

func (c *Client) handleTextMessage(message []byte) {
	var event LayoutEvent
	if err := json.Unmarshal(message, &event); err != nil || !event.valid() {
		c.logger.Debug("Ignoring client message", zap.ByteString("message", message))
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	c.hub.relay(c, payload)
}
