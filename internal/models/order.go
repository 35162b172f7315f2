package models

import "time"

// Order statuses. The lifecycle is linear with rejected/cancelled as side
// exits from any non-terminal state; completed and cancelled are terminal.
const (
	OrderStatusDraft              = "draft"
	OrderStatusSent               = "sent"
	OrderStatusAcknowledged       = "acknowledged"
	OrderStatusInNegotiation      = "in_negotiation"
	OrderStatusAccepted           = "accepted"
	OrderStatusInProgress         = "in_progress"
	OrderStatusPartiallyDelivered = "partially_delivered"
	OrderStatusCompleted          = "completed"
	OrderStatusRejected           = "rejected"
	OrderStatusCancelled          = "cancelled"
)

// Discount types on the order roll-up.
const (
	DiscountPercent = "percent"
	DiscountFixed   = "fixed"
)

// Delivery tracking statuses. Only delivered and partially_delivered feed back
// into the order status; the rest update tracking fields alone.
const (
	DeliveryStatusPending            = "pending"
	DeliveryStatusProcessing         = "processing"
	DeliveryStatusShipped            = "shipped"
	DeliveryStatusInTransit          = "in_transit"
	DeliveryStatusDelayed            = "delayed"
	DeliveryStatusPartiallyDelivered = "partially_delivered"
	DeliveryStatusDelivered          = "delivered"
)

// Order is a purchase order tracking a single vendor's fulfillment of a
// material request. One order exists per (material request, vendor) pair.
type Order struct {
	ID                uint   `gorm:"primaryKey"`
	OrderNumber       string `gorm:"uniqueIndex;not null"`
	MaterialRequestID uint   `gorm:"not null;uniqueIndex:idx_order_request_vendor"`
	VendorID          uint   `gorm:"not null;uniqueIndex:idx_order_request_vendor"`
	ProjectID         uint   `gorm:"not null;index"`
	CreatedByID       uint   `gorm:"not null"`
	Status            string `gorm:"not null;default:draft"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`

	// Monetary roll-ups. Invariant:
	//   TotalAmount = SubTotal + TaxAmount - DiscountAmount + DeliveryCharge
	// recomputed by services.ComputeTotals on every item mutation.
	SubTotal       float64
	TaxRate        float64 // fraction, e.g. 0.18
	TaxAmount      float64
	DiscountType   string  `gorm:"default:percent"`
	DiscountValue  float64 // percent fraction or fixed amount per DiscountType
	DiscountAmount float64
	DeliveryCharge float64
	TotalAmount    float64

	// Payment terms.
	PaymentMethod  string
	AdvancePercent float64
	AdvanceAmount  float64
	BalanceAmount  float64

	Negotiation      Negotiation      `gorm:"embedded;embeddedPrefix:negotiation_"`
	DeliveryTracking DeliveryTracking `gorm:"embedded;embeddedPrefix:delivery_"`

	// Version guards concurrent status transitions: every transition runs an
	// UPDATE ... WHERE version = ? and fails with Conflict on a lost race.
	Version uint `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is a negotiated line item with its own delivery state.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey"`
	OrderID   uint    `gorm:"not null;index"`
	Name      string  `gorm:"not null"`
	Quantity  float64 `gorm:"not null"`
	Unit      string  `gorm:"not null;default:pcs"`
	UnitPrice float64 // zero until a quotation is accepted
	Total     float64

	DeliveryStatus string `gorm:"not null;default:pending"`
	DeliveredQty   float64
	DeliveredAt    *time.Time
}

// Negotiation is the per-order negotiation sub-record.
type Negotiation struct {
	AcceptedMessageID *uint
	FinalAmount       float64
	ChatClosed        bool `gorm:"not null;default:false"`
	ChatClosedAt      *time.Time
	LastMessageAt     *time.Time
}

// DeliveryTracking is the per-order physical delivery sub-record.
type DeliveryTracking struct {
	Status         string `gorm:"default:pending"`
	Carrier        string
	TrackingNumber string
	ExpectedDate   *time.Time
	ActualDate     *time.Time
	Notes          string
}

// Terminal reports whether the order can no longer transition.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCancelled ||
		o.Status == OrderStatusRejected
}
