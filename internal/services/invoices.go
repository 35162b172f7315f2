package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yaswanth65/houseway-backend/internal/apperr"
	"github.com/yaswanth65/houseway-backend/internal/models"
	"github.com/yaswanth65/houseway-backend/internal/policy"
)

// InvoiceService reads vendor invoices and records payments against them.
// Invoice creation belongs exclusively to DeliveryService; after creation the
// payment ledger is the only mutable surface.
type InvoiceService struct {
	db *gorm.DB
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db}
}

// Get returns an invoice the actor may read (same visibility as its order).
func (s *InvoiceService) Get(ctx context.Context, actor policy.Actor, invoiceID uint) (*models.VendorInvoice, error) {
	var inv models.VendorInvoice
	err := s.db.WithContext(ctx).Preload("Items").Preload("Payments").First(&inv, invoiceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("invoice %d not found", invoiceID)
	}
	if err != nil {
		return nil, err
	}
	if !policy.CanRead(actor, policy.OrderRef{ProjectID: inv.ProjectID, VendorID: inv.VendorID}) {
		return nil, apperr.AccessDenied("no access to invoice %s", inv.InvoiceNumber)
	}
	return &inv, nil
}

// PaymentInput is one ledger entry to record.
type PaymentInput struct {
	Amount    float64
	Method    string
	Reference string
	Notes     string
	PaidAt    *time.Time
}

// RecordPayment appends a ledger entry and rolls up the paid amount; when the
// ledger covers the invoice total the invoice flips to paid. Owner/employee
// only.
func (s *InvoiceService) RecordPayment(ctx context.Context, actor policy.Actor, invoiceID uint, in PaymentInput) (*models.VendorInvoice, error) {
	if actor.Kind != policy.KindOwner && actor.Kind != policy.KindEmployee {
		return nil, apperr.AccessDenied("payment recording is reserved to owner or staff")
	}
	if in.Amount <= 0 {
		return nil, apperr.Validation(map[string]string{"amount": "must_be_positive"})
	}
	if in.Method == "" {
		return nil, apperr.Validation(map[string]string{"method": "required"})
	}

	var inv *models.VendorInvoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loaded models.VendorInvoice
		err := tx.Preload("Payments").First(&loaded, invoiceID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("invoice %d not found", invoiceID)
		}
		if err != nil {
			return err
		}
		inv = &loaded

		if actor.Kind == policy.KindEmployee &&
			!policy.CanWrite(actor, policy.OrderRef{ProjectID: inv.ProjectID, VendorID: inv.VendorID}) {
			return apperr.AccessDenied("no write access to invoice %s", inv.InvoiceNumber)
		}
		switch inv.Status {
		case models.InvoiceStatusCancelled, models.InvoiceStatusRejected:
			return apperr.InvalidTransition("cannot record payment on a %s invoice", inv.Status)
		case models.InvoiceStatusPaid:
			return apperr.Conflict("invoice %s is already fully paid", inv.InvoiceNumber)
		}

		paidAt := time.Now()
		if in.PaidAt != nil {
			paidAt = *in.PaidAt
		}
		payment := models.VendorInvoicePayment{
			VendorInvoiceID: inv.ID,
			Amount:          round2(in.Amount),
			Method:          in.Method,
			Reference:       in.Reference,
			Notes:           in.Notes,
			PaidAt:          paidAt,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		inv.PaidAmount = round2(inv.PaidAmount + payment.Amount)
		updates := map[string]any{"paid_amount": inv.PaidAmount}
		if inv.PaidAmount >= inv.TotalAmount {
			inv.Status = models.InvoiceStatusPaid
			updates["status"] = inv.Status
		}
		if err := tx.Model(&models.VendorInvoice{}).Where("id = ?", inv.ID).Updates(updates).Error; err != nil {
			return err
		}
		inv.Payments = append(inv.Payments, payment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}
