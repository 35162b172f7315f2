package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yaswanth65/houseway-backend/internal/apperr"
	"github.com/yaswanth65/houseway-backend/internal/models"
	"github.com/yaswanth65/houseway-backend/internal/notify"
	"github.com/yaswanth65/houseway-backend/internal/policy"
	"github.com/yaswanth65/houseway-backend/internal/realtime"
)

// DeliveryService concludes a negotiation: it turns the accepted quotation
// into a vendor invoice, closes the chat, and tracks physical delivery to
// completion.
type DeliveryService struct {
	db       *gorm.DB
	rt       realtime.Broadcaster
	notifier notify.Notifier
}

func NewDeliveryService(db *gorm.DB, rt realtime.Broadcaster, n notify.Notifier) *DeliveryService {
	return &DeliveryService{db: db, rt: rt, notifier: n}
}

// DeliveryDetails is the vendor's submission after acceptance.
type DeliveryDetails struct {
	Carrier        string
	TrackingNumber string
	ExpectedDate   *time.Time
	Notes          string
	AttachmentURL  string
}

// TrackingUpdate mutates the delivery tracking sub-record.
type TrackingUpdate struct {
	Status         string
	Carrier        string
	TrackingNumber string
	ExpectedDate   *time.Time
	Notes          string
}

// SubmitDeliveryDetails runs the closing sequence as one transaction: create
// the vendor invoice from the accepted quotation, post the delivery and
// invoice messages, close the chat, and move the order to in_progress. The
// single transactional boundary is what keeps Order, Message and
// VendorInvoice consistent under partial failure.
func (s *DeliveryService) SubmitDeliveryDetails(ctx context.Context, actor policy.Actor, orderID uint, details DeliveryDetails) (*models.VendorInvoice, error) {
	var (
		order       *models.Order
		invoice     *models.VendorInvoice
		deliveryMsg *models.Message
		invoiceMsg  *models.Message
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if order, err = loadOrder(tx, orderID); err != nil {
			return err
		}
		if err := requireOrderVendor(actor, order); err != nil {
			return err
		}
		if order.Status != models.OrderStatusAccepted || order.Negotiation.AcceptedMessageID == nil {
			return apperr.PreconditionFailed(
				"delivery details require an accepted quotation (order %s is %s)",
				order.OrderNumber, order.Status)
		}

		var existing int64
		if err := tx.Model(&models.VendorInvoice{}).Where("order_id = ?", order.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Conflict("vendor invoice already exists for order %s", order.OrderNumber)
		}

		var accepted models.Message
		if err := tx.Preload("Items").First(&accepted, *order.Negotiation.AcceptedMessageID).Error; err != nil {
			return err
		}

		invoice = buildInvoice(order, &accepted)
		if err := tx.Create(invoice).Error; err != nil {
			return err
		}

		// Closing sequence: messages persist first, then the chat closes, all
		// inside this transaction so the close can never orphan the messages.
		deliveryMsg = &models.Message{
			OrderID:       order.ID,
			SenderID:      actor.ID,
			SenderRole:    string(actor.Kind),
			Kind:          models.MessageKindDelivery,
			Body:          summarizeDelivery(details),
			AttachmentURL: details.AttachmentURL,
		}
		if err := appendMessage(tx, order, deliveryMsg); err != nil {
			return err
		}
		invoiceMsg = &models.Message{
			OrderID:         order.ID,
			SenderRole:      "system",
			Kind:            models.MessageKindInvoice,
			Body:            fmt.Sprintf("Invoice %s generated for %.2f.", invoice.InvoiceNumber, invoice.TotalAmount),
			VendorInvoiceID: &invoice.ID,
		}
		if err := appendMessage(tx, order, invoiceMsg); err != nil {
			return err
		}

		now := time.Now()
		if err := transitionOrder(tx, order, map[string]any{
			"status":                     models.OrderStatusInProgress,
			"negotiation_chat_closed":    true,
			"negotiation_chat_closed_at": now,
			"delivery_status":            models.DeliveryStatusProcessing,
			"delivery_carrier":           details.Carrier,
			"delivery_tracking_number":   details.TrackingNumber,
			"delivery_expected_date":     details.ExpectedDate,
			"delivery_notes":             details.Notes,
		}); err != nil {
			return err
		}
		order.Status = models.OrderStatusInProgress
		order.Negotiation.ChatClosed = true
		order.Negotiation.ChatClosedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, msg := range []*models.Message{deliveryMsg, invoiceMsg} {
		s.rt.Publish(ctx, realtime.Event{Name: realtime.EventNewMessage, OrderID: orderID, Data: msg})
	}
	s.rt.Publish(ctx, realtime.Event{Name: realtime.EventOrderUpdated, OrderID: orderID, Data: order})
	s.notifier.Notify(ctx, order.CreatedByID, "delivery-details-submitted", map[string]any{
		"orderId": order.ID, "orderNumber": order.OrderNumber, "invoiceNumber": invoice.InvoiceNumber,
	})
	return invoice, nil
}

// UpdateDeliveryStatus applies a tracking update. delivered completes the
// order and stamps the actual delivery date; partially_delivered mirrors onto
// the order status; other statuses touch tracking fields only.
func (s *DeliveryService) UpdateDeliveryStatus(ctx context.Context, actor policy.Actor, orderID uint, update TrackingUpdate) (*models.Order, error) {
	if !validTrackingStatus(update.Status) {
		return nil, apperr.Validation(map[string]string{"status": "unknown delivery status"})
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if order, err = loadOrder(tx, orderID); err != nil {
			return err
		}
		if err := requireOrderVendor(actor, order); err != nil {
			return err
		}
		if order.Status != models.OrderStatusInProgress && order.Status != models.OrderStatusPartiallyDelivered {
			return apperr.InvalidTransition("cannot update delivery for order in status %s", order.Status)
		}

		updates := map[string]any{"delivery_status": update.Status}
		if update.Carrier != "" {
			updates["delivery_carrier"] = update.Carrier
		}
		if update.TrackingNumber != "" {
			updates["delivery_tracking_number"] = update.TrackingNumber
		}
		if update.ExpectedDate != nil {
			updates["delivery_expected_date"] = update.ExpectedDate
		}
		if update.Notes != "" {
			updates["delivery_notes"] = update.Notes
		}

		status := order.Status
		switch update.Status {
		case models.DeliveryStatusDelivered:
			now := time.Now()
			status = models.OrderStatusCompleted
			updates["status"] = status
			updates["delivery_actual_date"] = now
			order.DeliveryTracking.ActualDate = &now
			if err := tx.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).
				Updates(map[string]any{"delivery_status": models.DeliveryStatusDelivered, "delivered_at": now}).Error; err != nil {
				return err
			}
		case models.DeliveryStatusPartiallyDelivered:
			status = models.OrderStatusPartiallyDelivered
			updates["status"] = status
		}

		if err := transitionOrder(tx, order, updates); err != nil {
			return err
		}
		order.Status = status
		order.DeliveryTracking.Status = update.Status

		body := fmt.Sprintf("Delivery status: %s.", update.Status)
		if update.Notes != "" {
			body = fmt.Sprintf("Delivery status: %s. %s", update.Status, update.Notes)
		}
		// Posted through the internal path: the chat is closed by now, and
		// tracking history must still land in the log.
		return appendMessage(tx, order, &models.Message{
			OrderID:    order.ID,
			SenderID:   actor.ID,
			SenderRole: string(actor.Kind),
			Kind:       models.MessageKindDelivery,
			Body:       body,
		})
	})
	if err != nil {
		return nil, err
	}

	s.rt.Publish(ctx, realtime.Event{Name: realtime.EventOrderUpdated, OrderID: orderID, Data: order})
	s.notifier.Notify(ctx, order.CreatedByID, "delivery-status-updated", map[string]any{
		"orderId": order.ID, "orderNumber": order.OrderNumber, "status": update.Status,
	})
	return order, nil
}

// Tracking returns the order's delivery sub-record.
func (s *DeliveryService) Tracking(ctx context.Context, actor policy.Actor, orderID uint) (*models.DeliveryTracking, error) {
	order, err := loadOrder(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if err := requireRead(actor, order); err != nil {
		return nil, err
	}
	return &order.DeliveryTracking, nil
}

// CheckConsistency scans for orders whose closing sequence predates the
// transactional boundary: an invoice exists but the chat never closed. Such
// documents are only flagged for manual reconciliation, never auto-repaired.
func (s *DeliveryService) CheckConsistency(ctx context.Context) error {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Joins("JOIN vendor_invoices ON vendor_invoices.order_id = orders.id").
		Where("orders.negotiation_chat_closed = ?", false).
		Find(&orders).Error
	if err != nil {
		return err
	}
	for _, o := range orders {
		logrus.WithFields(logrus.Fields{
			"order":  o.OrderNumber,
			"status": o.Status,
		}).Warn("order has a vendor invoice but an open chat; needs manual reconciliation")
	}
	return nil
}

func buildInvoice(order *models.Order, accepted *models.Message) *models.VendorInvoice {
	inv := &models.VendorInvoice{
		InvoiceNumber: GenerateInvoiceNumber(time.Now()),
		OrderID:       order.ID,
		MessageID:     accepted.ID,
		VendorID:      order.VendorID,
		ProjectID:     order.ProjectID,
		Status:        models.InvoiceStatusPending,
		TotalAmount:   order.Negotiation.FinalAmount,
	}
	for _, it := range accepted.Items {
		inv.Items = append(inv.Items, models.VendorInvoiceItem{
			Name:      it.Name,
			Quantity:  it.Quantity,
			Unit:      it.Unit,
			UnitPrice: it.UnitPrice,
			Total:     round2(it.Quantity * it.UnitPrice),
		})
	}
	inv.SubTotal = quotationTotals(accepted.Items)
	if inv.SubTotal == 0 {
		inv.SubTotal = inv.TotalAmount
	}
	if diff := round2(inv.TotalAmount - inv.SubTotal); diff > 0 {
		inv.TaxAmount = diff
	}
	return inv
}

func summarizeDelivery(d DeliveryDetails) string {
	parts := []string{"Delivery details submitted."}
	if d.Carrier != "" {
		parts = append(parts, "Carrier: "+d.Carrier+".")
	}
	if d.TrackingNumber != "" {
		parts = append(parts, "Tracking: "+d.TrackingNumber+".")
	}
	if d.ExpectedDate != nil {
		parts = append(parts, "Expected: "+d.ExpectedDate.Format("2006-01-02")+".")
	}
	if d.Notes != "" {
		parts = append(parts, d.Notes)
	}
	return strings.Join(parts, " ")
}

func validTrackingStatus(s string) bool {
	switch s {
	case models.DeliveryStatusProcessing, models.DeliveryStatusShipped,
		models.DeliveryStatusInTransit, models.DeliveryStatusDelayed,
		models.DeliveryStatusPartiallyDelivered, models.DeliveryStatusDelivered:
		return true
	}
	return false
}
