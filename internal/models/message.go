package models

import "time"

// Message kinds on the negotiation channel.
const (
	MessageKindText      = "text"
	MessageKindQuotation = "quotation"
	MessageKindInvoice   = "invoice"
	MessageKindSystem    = "system"
	MessageKindDelivery  = "delivery"
)

// Quotation sub-statuses. At most one message per order is ever accepted;
// remaining pendings are marked superseded inside the accept transaction.
const (
	QuotationPending    = "pending"
	QuotationAccepted   = "accepted"
	QuotationRejected   = "rejected"
	QuotationSuperseded = "superseded"
)

// Message belongs to exactly one order's negotiation channel. Messages are
// immutable once created except for the quotation status transition. Total
// per-order ordering is server-assigned: (created_at, id).
type Message struct {
	ID         uint   `gorm:"primaryKey"`
	OrderID    uint   `gorm:"not null;index"`
	SenderID   uint   `gorm:"not null"`
	SenderRole string `gorm:"not null"`
	Kind       string `gorm:"not null"` // text, quotation, invoice, system, delivery
	Body       string

	AttachmentURL string

	// Quotation payload, set only when Kind == quotation.
	Amount          float64
	ValidUntil      *time.Time
	QuotationStatus string        `gorm:"index"` // pending, accepted, rejected, superseded
	Items           []MessageItem `gorm:"foreignKey:MessageID"`

	// Invoice reference, set only when Kind == invoice.
	VendorInvoiceID *uint

	CreatedAt time.Time `gorm:"index"`
}

// MessageItem is a quoted line (name, quantity, unit price) inside a
// quotation message.
type MessageItem struct {
	ID        uint    `gorm:"primaryKey"`
	MessageID uint    `gorm:"not null;index"`
	Name      string  `gorm:"not null"`
	Quantity  float64 `gorm:"not null"`
	Unit      string  `gorm:"not null;default:pcs"`
	UnitPrice float64 `gorm:"not null"`
	Total     float64
}

// ReadReceipt records how far a user has read an order's channel. One row per
// (order, user), upserted by mark-read.
type ReadReceipt struct {
	ID         uint `gorm:"primaryKey"`
	OrderID    uint `gorm:"not null;uniqueIndex:idx_receipt_order_user"`
	UserID     uint `gorm:"not null;uniqueIndex:idx_receipt_order_user"`
	LastReadAt time.Time
}
