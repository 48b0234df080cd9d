package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60

	// EventAudienceCount carries {"count": n} after a viewer joins or leaves.
	EventAudienceCount = "audience_count"
	// EventSnapshot is sent once on connect with the public webinar view.
	EventSnapshot = "snapshot"
)

// Publisher publishes webinar events to every server instance.
type Publisher interface {
	PublishWebinarEvent(ctx context.Context, webinarID uuid.UUID, event string, payload []byte) error
}

// Subscriber delivers events published for a webinar, from any instance.
type Subscriber interface {
	SubscribeWebinar(webinarID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains webinar_id -> set of viewer connections. Events reach viewers through Redis
// pub/sub when configured, so every instance delivers them exactly once.
type Hub struct {
	webinars map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func()
	pending  map[uuid.UUID]bool
	mu       sync.RWMutex
	logger   *zap.Logger
	pub      Publisher
	sub      Subscriber
}

// NewHub creates a viewer hub. pub and sub may be nil for a single-instance, local-only hub.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		webinars: make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		pending:  make(map[uuid.UUID]bool),
		logger:   logger,
		pub:      pub,
		sub:      sub,
	}
}

// Register adds a client to a webinar room. A room without a live Redis subscription gets one,
// so a failed attempt is retried by the next viewer.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.webinars[c.WebinarID] == nil {
		h.webinars[c.WebinarID] = make(map[string]*Client)
	}
	h.webinars[c.WebinarID][c.ID] = c
	count := len(h.webinars[c.WebinarID])
	subscribe := h.sub != nil && h.subs[c.WebinarID] == nil && !h.pending[c.WebinarID]
	if subscribe {
		h.pending[c.WebinarID] = true
	}
	h.mu.Unlock()

	if subscribe {
		h.subscribe(c.WebinarID)
	}
	h.BroadcastToWebinar(c.WebinarID, EventAudienceCount, map[string]int{"count": count})
	h.logger.Debug("viewer joined", zap.String("client_id", c.ID), zap.String("webinar_id", c.WebinarID.String()))
}

// subscribe runs the Redis round-trip without holding h.mu.
func (h *Hub) subscribe(webinarID uuid.UUID) {
	cancel, err := h.sub.SubscribeWebinar(webinarID, func(event string, payload []byte) {
		h.BroadcastToWebinar(webinarID, event, json.RawMessage(payload))
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, webinarID)
	if err != nil {
		h.logger.Warn("subscribe webinar events", zap.String("webinar_id", webinarID.String()), zap.Error(err))
		return
	}
	if len(h.webinars[webinarID]) == 0 {
		// Every viewer left while subscribing.
		cancel()
		return
	}
	h.subs[webinarID] = cancel
}

// Unregister removes a client and closes its send channel. The last client cancels the subscription.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	m, ok := h.webinars[c.WebinarID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := m[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(m, c.ID)
	close(c.send)
	count := len(m)
	if count == 0 {
		delete(h.webinars, c.WebinarID)
		if cancel, ok := h.subs[c.WebinarID]; ok {
			cancel()
			delete(h.subs, c.WebinarID)
		}
	}
	h.mu.Unlock()

	if count > 0 {
		h.BroadcastToWebinar(c.WebinarID, EventAudienceCount, map[string]int{"count": count})
	}
	h.logger.Debug("viewer left", zap.String("client_id", c.ID), zap.String("webinar_id", c.WebinarID.String()))
}

// BroadcastToWebinar sends a message to the clients of this instance only.
func (h *Hub) BroadcastToWebinar(webinarID uuid.UUID, event string, payload any) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.webinars[webinarID] {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("viewer buffer full, dropping event", zap.String("client_id", c.ID), zap.String("event", event))
		}
	}
}

// PublishWebinarEvent delivers an event to all viewers of a webinar. With Redis configured the
// subscription callback performs the local broadcast, on this and every other instance.
func (h *Hub) PublishWebinarEvent(ctx context.Context, webinarID uuid.UUID, event string, payload []byte) error {
	if h.pub != nil {
		return h.pub.PublishWebinarEvent(ctx, webinarID, event, payload)
	}
	h.BroadcastToWebinar(webinarID, event, payload)
	return nil
}

// AudienceCount returns the number of viewers connected to this instance.
func (h *Hub) AudienceCount(webinarID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.webinars[webinarID])
}

// Close cancels every Redis subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, cancel := range h.subs {
		cancel()
		delete(h.subs, id)
	}
}
