package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"jarvis-backend/application/ports"

	"go.uber.org/zap"
)

// SubscriberGauge tracks the number of open graph subscriptions
type SubscriberGauge interface {
	Inc()
	Dec()
}

// Hub fans graph snapshots out to the browsers watching a session and relays
// layout events between them. It is also the local render surface.
type Hub struct {
	// session connections - one session can be open in several tabs
	sessions map[string]map[*Client]bool // sessionID -> set of clients
	mu       sync.RWMutex

	unregister chan *Client
	broadcast  chan *outbound

	ctx    context.Context
	cancel context.CancelFunc
	gauge  SubscriberGauge
	logger *zap.Logger
	now    func() time.Time
}

type outbound struct {
	sessionID string
	payload   []byte
	except    *Client
	// snapshot frames replace the client's graph; only targets one client
	snapshot bool
	only     *Client
}

var _ ports.RenderSurface = (*Hub)(nil)

// NewHub creates a new hub. gauge may be nil.
func NewHub(gauge SubscriberGauge, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		unregister: make(chan *Client, 100),
		broadcast:  make(chan *outbound, 1000),
		ctx:        ctx,
		cancel:     cancel,
		gauge:      gauge,
		logger:     logger,
		now:        time.Now,
	}
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAll()
			return

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}

// Render broadcasts a full snapshot to every subscriber of its session
func (h *Hub) Render(ctx context.Context, snapshot ports.GraphSnapshot) error {
	payload, err := json.Marshal(ports.NewSnapshotMessage(snapshot, h.now().Unix()))
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return h.enqueue(ctx, &outbound{sessionID: snapshot.SessionID, payload: payload, snapshot: true})
}

// SendInitial queues the first snapshot for a registered client. It travels
// the broadcast queue behind any render already queued, and is dropped when
// the client received a render first.
func (h *Hub) SendInitial(ctx context.Context, client *Client, payload []byte) error {
	return h.enqueue(ctx, &outbound{sessionID: client.sessionID, payload: payload, snapshot: true, only: client})
}

// relay forwards a client's layout event to the other subscribers of its session
func (h *Hub) relay(from *Client, payload []byte) {
	err := h.enqueue(h.ctx, &outbound{sessionID: from.sessionID, payload: payload, except: from})
	if err != nil {
		h.logger.Warn("Dropped layout event",
			zap.String("sessionID", from.sessionID),
			zap.Error(err),
		)
	}
}

func (h *Hub) enqueue(ctx context.Context, message *outbound) error {
	select {
	case h.broadcast <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("broadcast channel full, message dropped")
	}
}

// SubscriberCount returns the number of open subscriptions for a session
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// registerClient adds a client synchronously so renders queued after it
// returns reach the client
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true
	if h.gauge != nil {
		h.gauge.Inc()
	}

	h.logger.Debug("Client registered",
		zap.String("sessionID", client.sessionID),
		zap.String("connectionID", client.id),
		zap.Int("subscribers", len(h.sessions[client.sessionID])),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[client.sessionID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}
	if h.gauge != nil {
		h.gauge.Dec()
	}

	h.logger.Debug("Client unregistered",
		zap.String("sessionID", client.sessionID),
		zap.String("connectionID", client.id),
	)
}

func (h *Hub) deliver(message *outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.sessions[message.sessionID]
	if message.only != nil {
		if clients[message.only] && !message.only.rendered {
			h.push(message.only, message)
		}
		return
	}
	for client := range clients {
		if client == message.except {
			continue
		}
		h.push(client, message)
	}
}

// push runs on the Run goroutine, which owns Client.rendered
func (h *Hub) push(client *Client, message *outbound) {
	select {
	case client.send <- message.payload:
		if message.snapshot {
			client.rendered = true
		}
	default:
		h.logger.Warn("Closing slow client",
			zap.String("sessionID", client.sessionID),
			zap.String("connectionID", client.id),
		)
		go func(c *Client) {
			h.unregister <- c
			c.conn.Close()
		}(client)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sessionID, clients := range h.sessions {
		for client := range clients {
			close(client.send)
			client.conn.Close()
			if h.gauge != nil {
				h.gauge.Dec()
			}
		}
		delete(h.sessions, sessionID)
	}
}
