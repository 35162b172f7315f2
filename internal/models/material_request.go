package models

import "time"

// MaterialRequest statuses relevant to order creation. A request must be
// approved before any assigned vendor can accept it into a purchase order.
const (
	MaterialRequestPending  = "pending"
	MaterialRequestApproved = "approved"
	MaterialRequestOrdered  = "ordered"
	MaterialRequestRejected = "rejected"
)

type MaterialRequest struct {
	ID            uint   `gorm:"primaryKey"`
	ProjectID     uint   `gorm:"not null;index"`
	RequestedByID uint   `gorm:"not null"`
	Status        string `gorm:"not null;default:pending"`
	Notes         string
	Items         []MaterialRequestItem   `gorm:"foreignKey:MaterialRequestID"`
	Vendors       []MaterialRequestVendor `gorm:"foreignKey:MaterialRequestID"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MaterialRequestItem is the requested specification. Unit price is absent on
// purpose: price is negotiated, never pre-filled.
type MaterialRequestItem struct {
	ID                uint    `gorm:"primaryKey"`
	MaterialRequestID uint    `gorm:"not null;index"`
	Name              string  `gorm:"not null"`
	Quantity          float64 `gorm:"not null"`
	Unit              string  `gorm:"not null;default:pcs"`
	Notes             string
}

// MaterialRequestVendor is the assigned-vendor set; only these vendors may
// accept the request.
type MaterialRequestVendor struct {
	ID                uint `gorm:"primaryKey"`
	MaterialRequestID uint `gorm:"not null;uniqueIndex:idx_request_vendor"`
	VendorID          uint `gorm:"not null;uniqueIndex:idx_request_vendor"`
	CreatedAt         time.Time
}
