package models

import "time"

// VendorInvoice statuses.
const (
	InvoiceStatusPending   = "pending"
	InvoiceStatusApproved  = "approved"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusRejected  = "rejected"
	InvoiceStatusCancelled = "cancelled"
)

// VendorInvoice is the billing record generated from the accepted quotation at
// the delivery-details step. Created exactly once per order; mutable only via
// payment recording afterwards.
type VendorInvoice struct {
	ID            uint   `gorm:"primaryKey"`
	InvoiceNumber string `gorm:"uniqueIndex;not null"`
	OrderID       uint   `gorm:"uniqueIndex;not null"`
	MessageID     uint   `gorm:"not null"` // the accepted quotation message
	VendorID      uint   `gorm:"not null;index"`
	ProjectID     uint   `gorm:"not null;index"`
	Status        string `gorm:"not null;default:pending"`

	Items []VendorInvoiceItem `gorm:"foreignKey:VendorInvoiceID"`

	SubTotal    float64
	TaxAmount   float64
	TotalAmount float64
	PaidAmount  float64

	Payments []VendorInvoicePayment `gorm:"foreignKey:VendorInvoiceID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VendorInvoiceItem mirrors the accepted quotation's lines.
type VendorInvoiceItem struct {
	ID              uint    `gorm:"primaryKey"`
	VendorInvoiceID uint    `gorm:"not null;index"`
	Name            string  `gorm:"not null"`
	Quantity        float64 `gorm:"not null"`
	Unit            string  `gorm:"not null;default:pcs"`
	UnitPrice       float64 `gorm:"not null"`
	Total           float64
}

// VendorInvoicePayment is one ledger entry against the invoice.
type VendorInvoicePayment struct {
	ID              uint      `gorm:"primaryKey"`
	VendorInvoiceID uint      `gorm:"not null;index"`
	Amount          float64   `gorm:"not null"`
	Method          string    `gorm:"not null"` // e.g. bank_transfer, cheque, cash
	Reference       string
	Notes           string
	PaidAt          time.Time `gorm:"not null"`
	CreatedAt       time.Time
}
