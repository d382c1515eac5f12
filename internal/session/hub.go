// Package session fans identity changes out to everything bound to a user.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studybase-api/internal/models"
)

// EventKind distinguishes session events.
type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
)

// Event is a change in a user's session.
type Event struct {
	Kind   EventKind       `json:"kind"`
	UserID string          `json:"user_id"`
	Role   models.UserRole `json:"role,omitempty"`
	At     time.Time       `json:"at"`
}

// AllUsers subscribes to every user's events.
const AllUsers = "*"

const subscriberBuffer = 8

type subscriber struct {
	userID string
	ch     chan Event
}

// Hub delivers session events to subscribers. A subscriber that falls behind loses events
// rather than blocking publishers.
type Hub struct {
	logger *zap.Logger

	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{logger: logger, subs: make(map[int]*subscriber)}
}

// Subscribe listens for events of userID, or of everyone with AllUsers.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = &subscriber{userID: userID, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub.ch)
			}
		})
	}
}

// Publish delivers ev to matching subscribers without blocking.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.userID != AllUsers && sub.userID != ev.UserID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.logger.Warn("session event dropped", zap.String("user_id", ev.UserID), zap.String("kind", string(ev.Kind)))
		}
	}
}

// SignedIn publishes a sign-in for user.
func (h *Hub) SignedIn(userID string, role models.UserRole) {
	h.Publish(Event{Kind: EventSignedIn, UserID: userID, Role: role})
}

// SignedOut publishes a sign-out for user.
func (h *Hub) SignedOut(userID string) {
	h.Publish(Event{Kind: EventSignedOut, UserID: userID})
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
