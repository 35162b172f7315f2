// Package services implements the order negotiation engine: material-request
// acceptance, the negotiation channel, the quotation lifecycle, and delivery
// with invoicing. Handlers stay thin; every state transition lives here, runs
// inside a transaction, and is serialized per order by an optimistic version
// check.
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yaswanth65/houseway-backend/internal/apperr"
	"github.com/yaswanth65/houseway-backend/internal/models"
	"github.com/yaswanth65/houseway-backend/internal/policy"
)

// GeneratePONumber builds a purchase order number. Explicit function rather
// than a persistence hook so numbering is testable and visible at the call
// site.
func GeneratePONumber(t time.Time) string {
	return fmt.Sprintf("PO-%s-%s", t.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

// GenerateInvoiceNumber builds a vendor invoice number.
func GenerateInvoiceNumber(t time.Time) string {
	return fmt.Sprintf("VINV-%s-%s", t.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

// orderRef projects an order onto the slice the access resolver needs.
func orderRef(o *models.Order) policy.OrderRef {
	return policy.OrderRef{ProjectID: o.ProjectID, VendorID: o.VendorID}
}

// loadOrder fetches an order with its items.
func loadOrder(tx *gorm.DB, id uint) (*models.Order, error) {
	var o models.Order
	err := tx.Preload("Items").First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// requireRead returns AccessDenied unless the actor may read the order.
func requireRead(actor policy.Actor, o *models.Order) error {
	if !policy.CanRead(actor, orderRef(o)) {
		return apperr.AccessDenied("no access to order %s", o.OrderNumber)
	}
	return nil
}

// requireWrite returns AccessDenied unless the actor may write the order.
func requireWrite(actor policy.Actor, o *models.Order) error {
	if !policy.CanWrite(actor, orderRef(o)) {
		return apperr.AccessDenied("no write access to order %s", o.OrderNumber)
	}
	return nil
}

// requireOrderVendor restricts an operation to the order's own vendor.
func requireOrderVendor(actor policy.Actor, o *models.Order) error {
	if actor.Kind != policy.KindVendor || actor.ID != o.VendorID {
		return apperr.AccessDenied("operation reserved to the order's vendor")
	}
	return nil
}

// requireStaff restricts an operation to the owner or an assigned employee.
func requireStaff(actor policy.Actor, o *models.Order) error {
	if actor.Kind != policy.KindOwner && actor.Kind != policy.KindEmployee {
		return apperr.AccessDenied("operation reserved to owner or project staff")
	}
	return requireWrite(actor, o)
}

// transitionOrder applies updates to the order iff nobody else transitioned it
// since it was read. Two racing transitions both read the same version; only
// the first UPDATE matches, the loser gets Conflict and must re-fetch.
func transitionOrder(tx *gorm.DB, o *models.Order, updates map[string]any) error {
	updates["version"] = o.Version + 1
	res := tx.Model(&models.Order{}).
		Where("id = ? AND version = ?", o.ID, o.Version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("order %s changed concurrently, re-fetch and retry", o.OrderNumber)
	}
	o.Version++
	return nil
}
