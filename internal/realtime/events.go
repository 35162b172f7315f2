// Package realtime carries the per-order broadcast rooms: an in-process hub,
// a websocket endpoint feeding it, and an optional redis bridge for fan-out
// across instances. Broadcasts are fire-and-forget; durable state always wins
// and clients reconcile via the message listing on reconnect.
package realtime

import "context"

// Event names pushed to room subscribers.
const (
	EventNewMessage         = "new-message"
	EventQuotationSubmitted = "quotation-submitted"
	EventQuotationAccepted  = "quotation-accepted"
	EventQuotationRejected  = "quotation-rejected"
	EventOrderUpdated       = "order-updated"
	EventUserTyping         = "user-typing"
)

// Event is the JSON envelope sent to room members.
type Event struct {
	Name    string `json:"event"`
	OrderID uint   `json:"orderId"`
	Data    any    `json:"data,omitempty"`

	// ExcludeUserID suppresses delivery to one room member (the typing user
	// must not receive their own typing relay). Not serialized to clients.
	ExcludeUserID uint `json:"-"`
}

// Broadcaster is the capability services use to notify a room. It is injected
// explicitly; nothing in this codebase reaches for a global broadcaster.
type Broadcaster interface {
	Publish(ctx context.Context, ev Event)
}

// NopBroadcaster discards every event. Used in tests and in tooling that runs
// the services without a realtime layer.
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(context.Context, Event) {}
