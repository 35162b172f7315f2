package services

import (
	"context"
	"testing"

	"github.com/yaswanth65/houseway-backend/internal/apperr"
	"github.com/yaswanth65/houseway-backend/internal/models"
)

// acceptedOrder walks an order through acceptance of its 50000 quotation.
func (e *engine) acceptedOrder(t *testing.T, fx fixtures) *models.Order {
	t.Helper()
	ctx := context.Background()
	order, quote := e.negotiatedOrder(t, fx)
	accepted, err := e.orders.AcceptQuotation(ctx, fx.Owner, order.ID, quote.ID)
	if err != nil {
		t.Fatalf("accept quotation: %v", err)
	}
	return accepted
}

func TestSubmitDeliveryDetailsClosingSequence(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order := e.acceptedOrder(t, fx)

	invoice, err := e.delivery.SubmitDeliveryDetails(ctx, fx.Vendor, order.ID, DeliveryDetails{
		Carrier:        "BlueDart",
		TrackingNumber: "BD-4471",
		Notes:          "Dispatch from Pune warehouse",
	})
	if err != nil {
		t.Fatalf("submit delivery: %v", err)
	}

	if !almostEqual(invoice.TotalAmount, 50000) {
		t.Fatalf("invoice total = %v, want 50000", invoice.TotalAmount)
	}
	var count int64
	e.db.Model(&models.VendorInvoice{}).Where("order_id = ?", order.ID).Count(&count)
	if count != 1 {
		t.Fatalf("invoices for order = %d, want exactly 1", count)
	}

	reloaded, err := e.orders.Get(ctx, fx.Owner, order.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.OrderStatusInProgress {
		t.Fatalf("status = %s, want in_progress", reloaded.Status)
	}
	if !reloaded.Negotiation.ChatClosed || reloaded.Negotiation.ChatClosedAt == nil {
		t.Fatal("chat should be closed with a timestamp")
	}
	if reloaded.DeliveryTracking.Status != models.DeliveryStatusProcessing {
		t.Fatalf("delivery status = %s, want processing", reloaded.DeliveryTracking.Status)
	}

	// Delivery message precedes the invoice message in the log.
	msgs, err := e.channel.ListMessages(ctx, fx.Owner, order.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var deliveryIdx, invoiceIdx = -1, -1
	for i, m := range msgs {
		switch m.Kind {
		case models.MessageKindDelivery:
			if deliveryIdx == -1 {
				deliveryIdx = i
			}
		case models.MessageKindInvoice:
			invoiceIdx = i
			if m.VendorInvoiceID == nil || *m.VendorInvoiceID != invoice.ID {
				t.Fatalf("invoice message ref = %v, want %d", m.VendorInvoiceID, invoice.ID)
			}
		}
	}
	if deliveryIdx == -1 || invoiceIdx == -1 || deliveryIdx > invoiceIdx {
		t.Fatalf("message order delivery=%d invoice=%d", deliveryIdx, invoiceIdx)
	}
}

func TestSubmitDeliveryDetailsRequiresAcceptedQuotation(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order, _ := e.negotiatedOrder(t, fx)

	_, err := e.delivery.SubmitDeliveryDetails(ctx, fx.Vendor, order.ID, DeliveryDetails{Carrier: "BlueDart"})
	if apperr.KindOf(err) != apperr.KindPreconditionFailed {
		t.Fatalf("err = %v, want precondition_failed", err)
	}
}

func TestSubmitDeliveryDetailsOnceOnly(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order := e.acceptedOrder(t, fx)

	if _, err := e.delivery.SubmitDeliveryDetails(ctx, fx.Vendor, order.ID, DeliveryDetails{}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := e.delivery.SubmitDeliveryDetails(ctx, fx.Vendor, order.ID, DeliveryDetails{})
	// The order has left accepted, so either guard may fire first.
	if kind := apperr.KindOf(err); kind != apperr.KindConflict && kind != apperr.KindPreconditionFailed {
		t.Fatalf("err = %v, want conflict or precondition_failed", err)
	}
}

func TestSubmitDeliveryDetailsVendorOnly(t *testing.T) {
	e, fx := newEngine(t)
	order := e.acceptedOrder(t, fx)

	_, err := e.delivery.SubmitDeliveryDetails(context.Background(), fx.Employee, order.ID, DeliveryDetails{})
	if apperr.KindOf(err) != apperr.KindAccessDenied {
		t.Fatalf("err = %v, want access_denied", err)
	}
}

func TestUpdateDeliveryStatusDelivered(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order := e.acceptedOrder(t, fx)
	if _, err := e.delivery.SubmitDeliveryDetails(ctx, fx.Vendor, order.ID, DeliveryDetails{}); err != nil {
		t.Fatalf("submit delivery: %v", err)
	}

	updated, err := e.delivery.UpdateDeliveryStatus(ctx, fx.Vendor, order.ID, TrackingUpdate{Status: models.DeliveryStatusDelivered})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != models.OrderStatusCompleted {
		t.Fatalf("status = %s, want completed", updated.Status)
	}

	tracking, err := e.delivery.Tracking(ctx, fx.Owner, order.ID)
	if err != nil {
		t.Fatalf("tracking: %v", err)
	}
	if tracking.Status != models.DeliveryStatusDelivered || tracking.ActualDate == nil {
		t.Fatalf("tracking = %+v, want delivered with actual date", tracking)
	}

	var items []models.OrderItem
	e.db.Where("order_id = ?", order.ID).Find(&items)
	for _, it := range items {
		if it.DeliveryStatus != models.DeliveryStatusDelivered {
			t.Fatalf("item %s delivery status = %s", it.Name, it.DeliveryStatus)
		}
	}
}

func TestUpdateDeliveryStatusPartial(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order := e.acceptedOrder(t, fx)
	if _, err := e.delivery.SubmitDeliveryDetails(ctx, fx.Vendor, order.ID, DeliveryDetails{}); err != nil {
		t.Fatalf("submit delivery: %v", err)
	}

	updated, err := e.delivery.UpdateDeliveryStatus(ctx, fx.Vendor, order.ID, TrackingUpdate{
		Status: models.DeliveryStatusPartiallyDelivered,
		Notes:  "Cement batch pending",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != models.OrderStatusPartiallyDelivered {
		t.Fatalf("status = %s, want partially_delivered", updated.Status)
	}
	tracking, _ := e.delivery.Tracking(ctx, fx.Owner, order.ID)
	if tracking.ActualDate != nil {
		t.Fatal("actual date must stay unset until fully delivered")
	}

	// A later full delivery still completes the order.
	updated, err = e.delivery.UpdateDeliveryStatus(ctx, fx.Vendor, order.ID, TrackingUpdate{Status: models.DeliveryStatusDelivered})
	if err != nil {
		t.Fatalf("final update: %v", err)
	}
	if updated.Status != models.OrderStatusCompleted {
		t.Fatalf("status = %s, want completed", updated.Status)
	}
}

func TestUpdateDeliveryStatusGuards(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order := e.acceptedOrder(t, fx)

	// Before the closing sequence the order is still accepted.
	_, err := e.delivery.UpdateDeliveryStatus(ctx, fx.Vendor, order.ID, TrackingUpdate{Status: models.DeliveryStatusShipped})
	if apperr.KindOf(err) != apperr.KindInvalidTransition {
		t.Fatalf("err = %v, want invalid_transition", err)
	}

	if _, err := e.delivery.SubmitDeliveryDetails(ctx, fx.Vendor, order.ID, DeliveryDetails{}); err != nil {
		t.Fatalf("submit delivery: %v", err)
	}
	_, err = e.delivery.UpdateDeliveryStatus(ctx, fx.Vendor, order.ID, TrackingUpdate{Status: "teleported"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("err = %v, want validation_failed", err)
	}
}

func TestRecordPaymentLedger(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order := e.acceptedOrder(t, fx)
	invoice, err := e.delivery.SubmitDeliveryDetails(ctx, fx.Vendor, order.ID, DeliveryDetails{})
	if err != nil {
		t.Fatalf("submit delivery: %v", err)
	}

	paid, err := e.invoices.RecordPayment(ctx, fx.Owner, invoice.ID, PaymentInput{Amount: 20000, Method: "bank_transfer"})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if !almostEqual(paid.PaidAmount, 20000) || paid.Status == models.InvoiceStatusPaid {
		t.Fatalf("after partial: paid=%v status=%s", paid.PaidAmount, paid.Status)
	}

	paid, err = e.invoices.RecordPayment(ctx, fx.Owner, invoice.ID, PaymentInput{Amount: 30000, Method: "bank_transfer"})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if paid.Status != models.InvoiceStatusPaid {
		t.Fatalf("status = %s, want paid", paid.Status)
	}

	// Vendors cannot record payments against themselves.
	_, err = e.invoices.RecordPayment(ctx, fx.Vendor, invoice.ID, PaymentInput{Amount: 1})
	if apperr.KindOf(err) != apperr.KindAccessDenied {
		t.Fatalf("err = %v, want access_denied", err)
	}
}

func TestCheckConsistencyFlagsOnly(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order := e.acceptedOrder(t, fx)
	if _, err := e.delivery.SubmitDeliveryDetails(ctx, fx.Vendor, order.ID, DeliveryDetails{}); err != nil {
		t.Fatalf("submit delivery: %v", err)
	}

	// Simulate a legacy half-closed order.
	if err := e.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("negotiation_chat_closed", false).Error; err != nil {
		t.Fatalf("seed inconsistency: %v", err)
	}
	if err := e.delivery.CheckConsistency(ctx); err != nil {
		t.Fatalf("check: %v", err)
	}

	var reloaded models.Order
	e.db.First(&reloaded, order.ID)
	if reloaded.Negotiation.ChatClosed {
		t.Fatal("consistency check must not auto-repair")
	}
}
