package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yaswanth65/houseway-backend/internal/policy"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxFrame   = 4 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is consumed by the platform's own web and mobile clients; origin
	// enforcement happens at the edge.
	CheckOrigin: func(*http.Request) bool { return true },
}

// clientFrame is what a connected client may send.
type clientFrame struct {
	Action   string `json:"action"` // join, leave, typing
	OrderID  uint   `json:"orderId"`
	IsTyping bool   `json:"isTyping"`
}

// ActorResolver extracts the authenticated actor from the request. Supplied by
// the server wiring so this package stays free of auth internals.
type ActorResolver func(r *http.Request) (policy.Actor, bool)

// JoinAuthorizer decides whether an actor may subscribe to an order's room
// (read access on the order).
type JoinAuthorizer func(ctx context.Context, actor policy.Actor, orderID uint) bool

// WSHandler upgrades connections and runs the room protocol: join/leave
// subscriptions plus typing relays. Typing indicators are ephemeral and never
// persisted.
type WSHandler struct {
	Hub         *Hub
	Broadcaster Broadcaster
	Resolve     ActorResolver
	CanJoin     JoinAuthorizer
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Resolve(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Debug("websocket upgrade failed")
		return
	}

	sub := h.Hub.NewSubscriber(actor.ID)
	done := make(chan struct{})
	go h.writePump(conn, sub, done)
	h.readPump(r.Context(), conn, sub, actor)
	close(done)
	sub.Close()
	if err := conn.Close(); err != nil {
		logrus.WithError(err).Debug("close websocket")
	}
}

func (h *WSHandler) readPump(ctx context.Context, conn *websocket.Conn, sub *Subscriber, actor policy.Actor) {
	conn.SetReadLimit(maxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.OrderID == 0 {
			continue
		}
		switch frame.Action {
		case "join":
			if h.CanJoin(ctx, actor, frame.OrderID) {
				h.Hub.Join(sub, frame.OrderID)
			}
		case "leave":
			h.Hub.Leave(sub, frame.OrderID)
		case "typing":
			// Relayed to other room members only, never persisted.
			h.Broadcaster.Publish(ctx, Event{
				Name:    EventUserTyping,
				OrderID: frame.OrderID,
				Data: map[string]any{
					"userId":   actor.ID,
					"isTyping": frame.IsTyping,
				},
				ExcludeUserID: actor.ID,
			})
		}
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, sub *Subscriber, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case ev := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
