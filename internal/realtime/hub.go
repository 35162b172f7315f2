package realtime

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// subscriberBuffer bounds each member's pending events. A subscriber that
// falls this far behind starts losing events; there is no retry or replay.
const subscriberBuffer = 32

// Subscriber is one connection's membership handle. Events arrive on C until
// the subscriber leaves all rooms or its connection closes.
type Subscriber struct {
	UserID uint
	C      chan Event

	hub   *Hub
	rooms map[uint]struct{}
}

// Hub keeps in-process rooms keyed by order ID.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]map[*Subscriber]struct{})}
}

// NewSubscriber registers a connection-scoped subscriber. Call Close when the
// connection goes away.
func (h *Hub) NewSubscriber(userID uint) *Subscriber {
	return &Subscriber{
		UserID: userID,
		C:      make(chan Event, subscriberBuffer),
		hub:    h,
		rooms:  make(map[uint]struct{}),
	}
}

// Join subscribes s to an order's room.
func (h *Hub) Join(s *Subscriber, orderID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[orderID]
	if !ok {
		room = make(map[*Subscriber]struct{})
		h.rooms[orderID] = room
	}
	room[s] = struct{}{}
	s.rooms[orderID] = struct{}{}
}

// Leave unsubscribes s from an order's room.
func (h *Hub) Leave(s *Subscriber, orderID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(s, orderID)
}

func (h *Hub) leaveLocked(s *Subscriber, orderID uint) {
	if room, ok := h.rooms[orderID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, orderID)
		}
	}
	delete(s.rooms, orderID)
}

// Close removes s from every room it joined.
func (s *Subscriber) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	for orderID := range s.rooms {
		s.hub.leaveLocked(s, orderID)
	}
}

// Publish delivers ev to every member of the event's room. Delivery is
// best-effort: a member whose buffer is full is skipped.
func (h *Hub) Publish(_ context.Context, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[ev.OrderID] {
		if ev.ExcludeUserID != 0 && s.UserID == ev.ExcludeUserID {
			continue
		}
		select {
		case s.C <- ev:
		default:
			logrus.WithFields(logrus.Fields{
				"order": ev.OrderID,
				"user":  s.UserID,
				"event": ev.Name,
			}).Debug("dropping realtime event for slow subscriber")
		}
	}
}

// RoomSize reports the current member count of a room.
func (h *Hub) RoomSize(orderID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[orderID])
}
