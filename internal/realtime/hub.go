package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60
)

// Event names pushed to feed clients.
const (
	EventCheckIn = "checkin"
	EventViewers = "viewers"
)

// Hub maintains event_id -> set of connections and broadcasts check-in messages.
// Redis pub/sub fans messages out to the feeds connected to other instances.
type Hub struct {
	events   map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per event
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher publishes feed messages for cross-instance delivery.
type RedisPublisher interface {
	PublishEvent(eventID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to an event's channel and invokes handler for incoming messages.
type RedisSubscriber interface {
	SubscribeEvent(eventID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		events:   make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to an event's feed. The first client of an event starts its Redis subscription.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.events[c.EventID] == nil {
		h.events[c.EventID] = make(map[string]*Client)
		if h.redisSub != nil {
			eventID := c.EventID
			cancel, err := h.redisSub.SubscribeEvent(eventID, func(event string, payload []byte) {
				h.Broadcast(eventID, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("redis subscribe failed", zap.String("event_id", eventID.String()), zap.Error(err))
			} else {
				h.subs[eventID] = cancel
			}
		}
	}
	h.events[c.EventID][c.ID] = c
	h.logger.Debug("feed client joined", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// Unregister removes a client. The last client of an event cancels its Redis subscription.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.events[c.EventID]
	if !ok {
		return
	}
	if _, ok := m[c.ID]; !ok {
		return
	}
	delete(m, c.ID)
	close(c.send)
	if len(m) == 0 {
		delete(h.events, c.EventID)
		if cancel, ok := h.subs[c.EventID]; ok {
			cancel()
			delete(h.subs, c.EventID)
		}
	}
	h.logger.Debug("feed client left", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// Broadcast sends a message to the clients of an event connected to this instance.
func (h *Hub) Broadcast(eventID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			h.logger.Warn("marshal feed payload failed", zap.Error(err))
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.events[eventID] {
		select {
		case c.send <- msg:
		default:
			// slow client, drop
		}
	}
}

// Publish delivers a message to every instance's clients of eventID. With Redis it only publishes,
// so the subscription broadcasts once per instance including this one.
func (h *Hub) Publish(eventID uuid.UUID, event string, payload interface{}) {
	if h.redis == nil {
		h.Broadcast(eventID, event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("marshal feed payload failed", zap.Error(err))
		return
	}
	if err := h.redis.PublishEvent(eventID, event, data); err != nil {
		h.logger.Warn("redis publish failed, broadcasting locally", zap.String("event_id", eventID.String()), zap.Error(err))
		h.Broadcast(eventID, event, json.RawMessage(data))
	}
}

// PublishCheckIn pushes a successful check-in to the event's feed.
func (h *Hub) PublishCheckIn(eventID uuid.UUID, payload interface{}) {
	h.Publish(eventID, EventCheckIn, payload)
}

// ViewerCount returns the number of feed clients of an event on this instance.
func (h *Hub) ViewerCount(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events[eventID])
}
