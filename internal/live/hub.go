// Package live pushes check-in activity to door-dashboard websocket clients,
// fanned across instances via Redis pub/sub.
package live

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60
)

// Publisher publishes event-room messages to Redis for cross-instance broadcast.
type Publisher interface {
	PublishEventUpdate(eventID, kind string, payload []byte) error
}

// Subscriber subscribes to an event room's Redis channel.
type Subscriber interface {
	SubscribeEvent(eventID string, handler func(kind string, payload []byte)) (cancel func(), err error)
}

// Hub maintains eventID -> set of dashboard connections and broadcasts
// check-in activity. Sends never block: clients with a full buffer miss the
// update and catch up on the next stats push.
type Hub struct {
	events map[string]map[string]*Client
	subs   map[string]func()
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// NewHub creates a dashboard hub.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		events: make(map[string]map[string]*Client),
		subs:   make(map[string]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to an event room, starting the Redis subscription
// when it is the room's first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.events[c.EventID] == nil {
		h.events[c.EventID] = make(map[string]*Client)
		if h.sub != nil {
			cancel, err := h.sub.SubscribeEvent(c.EventID, func(kind string, payload []byte) {
				h.Broadcast(c.EventID, kind, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.EventID] = cancel
			}
		}
	}
	h.events[c.EventID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("dashboard client joined", zap.String("client_id", c.ID), zap.String("event_id", c.EventID))
}

// Unregister removes a client, cancelling the Redis subscription when the
// last client leaves the room.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.events[c.EventID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.events, c.EventID)
			if cancel, ok := h.subs[c.EventID]; ok {
				cancel()
				delete(h.subs, c.EventID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("dashboard client left", zap.String("client_id", c.ID), zap.String("event_id", c.EventID))
}

// Broadcast sends a message to all local clients in an event room.
func (h *Hub) Broadcast(eventID, kind string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Kind: kind, Data: data}

	h.mu.RLock()
	clients := h.events[eventID]
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastAndPublish delivers a message to every instance's clients. With a
// publisher configured the message goes through Redis only, so local clients
// receive it once via the room subscription. Without one it falls back to a
// local broadcast.
func (h *Hub) BroadcastAndPublish(eventID, kind string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.pub != nil {
		if err := h.pub.PublishEventUpdate(eventID, kind, data); err == nil {
			return
		}
	}
	h.Broadcast(eventID, kind, json.RawMessage(data))
}

// Watchers returns the number of connected dashboard clients for an event.
func (h *Hub) Watchers(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events[eventID])
}
