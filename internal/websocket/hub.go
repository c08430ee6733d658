package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RelayChannel carries session messages between instances sharing a Redis.
const RelayChannel = "docqa_session_events"

type relayPayload struct {
	Origin          string          `json:"origin"`
	TargetSessionID string          `json:"target_session_id"`
	Message         json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients: SessionID -> connections (several tabs may share a session)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance communication, nil when running alone
	rdb *redis.Client

	// Relayed messages from this instance are skipped on the way back in.
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceID: uuid.New().String(),
		logger:     log,
	}
}

// Run owns client registration until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		}
	}
}

// Register attaches a client; it is a no-op once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Info("Hub", "Session has no more clients", map[string]interface{}{"session_id": client.SessionID})
	}
}

// Connected reports how many local clients are attached to the session.
func (h *Hub) Connected(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// PushEvent forwards a session lifecycle event to the session's clients. Store-wide events go to everyone.
func (h *Hub) PushEvent(event events.Event) {
	sessionID := events.SessionID(event)
	data, err := json.Marshal(dto.WsOutboundMessage{
		Type:      "event",
		SessionId: sessionID,
		Event:     event,
	})
	if err != nil {
		h.logger.Warn("Hub", "Failed to marshal event", map[string]interface{}{"error": err.Error()})
		return
	}

	if sessionID == "" {
		h.Broadcast(data)
		return
	}
	h.SendToSession(sessionID, data)
}

// Broadcast sends data to every connected client, here and on other instances.
func (h *Hub) Broadcast(data []byte) {
	h.deliverAll(data)
	h.relay("*", data)
}

// SendToSession sends data to the session's clients, here and on other instances.
func (h *Hub) SendToSession(sessionID string, data []byte) {
	h.deliver(sessionID, data)
	h.relay(sessionID, data)
}

func (h *Hub) deliver(sessionID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range append([]*Client(nil), h.clients[sessionID]...) {
		h.offer(client, data)
	}
}

func (h *Hub) deliverAll(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for _, client := range append([]*Client(nil), clients...) {
			h.offer(client, data)
		}
	}
}

// deliverTo sends data to one client if it is still registered.
func (h *Hub) deliverTo(client *Client, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients[client.SessionID] {
		if c == client {
			h.offer(client, data)
			return
		}
	}
}

// offer must be called with mu held. A client whose buffer is full is dropped.
func (h *Hub) offer(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.logger.Warn("Hub", "Client send buffer full, dropping client", map[string]interface{}{"session_id": client.SessionID})
		h.remove(client)
	}
}

func (h *Hub) relay(target string, data []byte) {
	if h.rdb == nil {
		return
	}
	payload, err := json.Marshal(relayPayload{
		Origin:          h.instanceID,
		TargetSessionID: target,
		Message:         data,
	})
	if err != nil {
		return
	}
	if err := h.rdb.Publish(context.Background(), RelayChannel, payload).Err(); err != nil {
		h.logger.Warn("Hub", "Redis relay failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, RelayChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload relayPayload
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceID {
				continue
			}
			if payload.TargetSessionID == "*" {
				h.deliverAll(payload.Message)
				continue
			}
			h.deliver(payload.TargetSessionID, payload.Message)
		}
	}
}
