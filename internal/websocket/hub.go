package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Entities carried in Message.Entity.
const (
	EntityChild             = "child"
	EntityChore             = "chore"
	EntityChoreCompletion   = "chore_completion"
	EntitySettings          = "settings"
	EntityRoutine           = "routine"
	EntityRoutineStep       = "routine_step"
	EntityRoutineCompletion = "routine_completion"
	EntityBackup            = "backup"
)

// Message represents a real-time sync notification broadcast to all clients.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// ChildID returns the child_id carried in Extra, if any. Extra values that
// went through JSON arrive as float64.
func (m Message) ChildID() (int64, bool) {
	switch v := m.Extra["child_id"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// Filter selects the messages a subscriber is told about.
type Filter func(Message) bool

// ForEntities matches messages about any of the given entities.
func ForEntities(entities ...string) Filter {
	return func(m Message) bool {
		return slices.Contains(entities, m.Entity)
	}
}

type subscriber struct {
	filter Filter
	fn     func(Message)
}

// Hub maintains the set of active WebSocket clients and in-process
// subscribers, and broadcasts messages to both.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	subs    map[int]subscriber
	nextSub int
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		subs:    make(map[int]subscriber),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Subscribe calls fn for every broadcast message accepted by filter. A nil
// filter accepts everything. fn runs on the broadcasting goroutine after the
// hub lock is released. The returned func removes the subscription.
func (h *Hub) Subscribe(filter Filter, fn func(Message)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = subscriber{filter: filter, fn: fn}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Broadcast sends a message to all connected clients and matching subscribers.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	for c := range h.clients {
		if !c.wants(msg) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop message to avoid blocking
		}
	}
	var notify []func(Message)
	for _, s := range h.subs {
		if s.filter == nil || s.filter(msg) {
			notify = append(notify, s.fn)
		}
	}
	h.mu.RUnlock()

	for _, fn := range notify {
		fn(msg)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of in-process subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
