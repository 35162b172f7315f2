package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/yaswanth65/houseway-backend/internal/apperr"
	"github.com/yaswanth65/houseway-backend/internal/models"
	"github.com/yaswanth65/houseway-backend/internal/policy"
	"github.com/yaswanth65/houseway-backend/internal/realtime"
)

func TestSubmitQuotationMovesOrderIntoNegotiation(t *testing.T) {
	e, fx := newEngine(t)
	order, quote := e.negotiatedOrder(t, fx)

	if quote.Kind != models.MessageKindQuotation {
		t.Fatalf("kind = %s", quote.Kind)
	}
	if quote.QuotationStatus != models.QuotationPending {
		t.Fatalf("quotation status = %s, want pending", quote.QuotationStatus)
	}
	if !almostEqual(quote.Amount, 50000) {
		t.Fatalf("amount = %v, want 50000", quote.Amount)
	}
	if order.Status != models.OrderStatusInNegotiation {
		t.Fatalf("order status = %s, want in_negotiation", order.Status)
	}
}

func TestSubmitQuotationOnlyVendor(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order, err := e.acceptance.AcceptMaterialRequest(ctx, fx.Vendor, fx.Request.ID)
	if err != nil {
		t.Fatalf("accept request: %v", err)
	}

	_, err = e.orders.SubmitQuotation(ctx, fx.Employee, order.ID, QuotationInput{Amount: 100})
	if apperr.KindOf(err) != apperr.KindAccessDenied {
		t.Fatalf("err = %v, want access_denied", err)
	}
}

func TestSubmitQuotationInvalidFromTerminal(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order, err := e.acceptance.AcceptMaterialRequest(ctx, fx.Vendor, fx.Request.ID)
	if err != nil {
		t.Fatalf("accept request: %v", err)
	}

	if _, err := e.orders.Cancel(ctx, fx.Owner, order.ID, "budget cut"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err = e.orders.SubmitQuotation(ctx, fx.Vendor, order.ID, QuotationInput{Amount: 100})
	if apperr.KindOf(err) != apperr.KindInvalidTransition {
		t.Fatalf("err = %v, want invalid_transition", err)
	}
	// Text chat stays open after cancellation.
	if _, err := e.channel.PostText(ctx, fx.Vendor, order.ID, "understood", ""); err != nil {
		t.Fatalf("text after cancel: %v", err)
	}
}

func TestAcceptQuotation(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order, quote := e.negotiatedOrder(t, fx)

	updated, err := e.orders.AcceptQuotation(ctx, fx.Owner, order.ID, quote.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if updated.Status != models.OrderStatusAccepted {
		t.Fatalf("status = %s, want accepted", updated.Status)
	}
	if updated.Negotiation.AcceptedMessageID == nil || *updated.Negotiation.AcceptedMessageID != quote.ID {
		t.Fatalf("acceptedMessageRef = %v, want %d", updated.Negotiation.AcceptedMessageID, quote.ID)
	}
	if !almostEqual(updated.Negotiation.FinalAmount, 50000) {
		t.Fatalf("finalAmount = %v, want 50000", updated.Negotiation.FinalAmount)
	}

	var msg models.Message
	if err := e.db.First(&msg, quote.ID).Error; err != nil {
		t.Fatalf("reload quote: %v", err)
	}
	if msg.QuotationStatus != models.QuotationAccepted {
		t.Fatalf("quotation status = %s, want accepted", msg.QuotationStatus)
	}

	// Order items took the quoted prices and the invariant holds.
	reloaded, _ := e.orders.Get(ctx, fx.Owner, order.ID)
	if len(reloaded.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(reloaded.Items))
	}
	checkInvariant(t, reloaded)
	if !almostEqual(reloaded.SubTotal, 50000) {
		t.Fatalf("subtotal = %v, want 50000", reloaded.SubTotal)
	}

	// A system message announces the acceptance.
	msgs, _ := e.channel.ListMessages(ctx, fx.Owner, order.ID)
	last := msgs[len(msgs)-1]
	if last.Kind != models.MessageKindSystem {
		t.Fatalf("last message kind = %s, want system", last.Kind)
	}

	var seenAccepted bool
	for _, name := range e.broadcasts.names() {
		if name == realtime.EventQuotationAccepted {
			seenAccepted = true
		}
	}
	if !seenAccepted {
		t.Fatal("quotation-accepted event not broadcast")
	}
}

func TestAcceptQuotationSupersedesOtherPendings(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order, first := e.negotiatedOrder(t, fx)

	second, err := e.orders.SubmitQuotation(ctx, fx.Vendor, order.ID, QuotationInput{Amount: 48000})
	if err != nil {
		t.Fatalf("second quotation: %v", err)
	}

	if _, err := e.orders.AcceptQuotation(ctx, fx.Owner, order.ID, second.ID); err != nil {
		t.Fatalf("accept second: %v", err)
	}

	var firstMsg models.Message
	if err := e.db.First(&firstMsg, first.ID).Error; err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if firstMsg.QuotationStatus != models.QuotationSuperseded {
		t.Fatalf("first quotation = %s, want superseded", firstMsg.QuotationStatus)
	}

	// Invariant: at most one accepted quotation per order.
	var accepted int64
	e.db.Model(&models.Message{}).
		Where("order_id = ? AND quotation_status = ?", order.ID, models.QuotationAccepted).
		Count(&accepted)
	if accepted != 1 {
		t.Fatalf("accepted messages = %d, want 1", accepted)
	}
}

func TestAcceptQuotationTwiceFails(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order, quote := e.negotiatedOrder(t, fx)

	if _, err := e.orders.AcceptQuotation(ctx, fx.Owner, order.ID, quote.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	_, err := e.orders.AcceptQuotation(ctx, fx.Owner, order.ID, quote.ID)
	if kind := apperr.KindOf(err); kind != apperr.KindInvalidTransition && kind != apperr.KindAlreadyAccepted {
		t.Fatalf("err = %v, want invalid_transition or already_accepted", err)
	}
}

func TestAcceptQuotationVendorDenied(t *testing.T) {
	e, fx := newEngine(t)
	order, quote := e.negotiatedOrder(t, fx)

	_, err := e.orders.AcceptQuotation(context.Background(), fx.Vendor, order.ID, quote.ID)
	if apperr.KindOf(err) != apperr.KindAccessDenied {
		t.Fatalf("err = %v, want access_denied", err)
	}
}

func TestAcceptQuotationUnknownMessage(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order, _ := e.negotiatedOrder(t, fx)

	// A text message id is not a quotation.
	text, err := e.channel.PostText(ctx, fx.Vendor, order.ID, "just a note", "")
	if err != nil {
		t.Fatalf("post text: %v", err)
	}
	if _, err := e.orders.AcceptQuotation(ctx, fx.Owner, order.ID, text.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("text accept err = %v, want not_found", err)
	}
	if _, err := e.orders.AcceptQuotation(ctx, fx.Owner, order.ID, 999999); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown accept err = %v, want not_found", err)
	}
}

func TestRejectQuotationKeepsNegotiationOpen(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order, quote := e.negotiatedOrder(t, fx)

	updated, err := e.orders.RejectQuotation(ctx, fx.Employee, order.ID, quote.ID, "price too high")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if updated.Status != models.OrderStatusInNegotiation {
		t.Fatalf("status = %s, want in_negotiation", updated.Status)
	}

	var msg models.Message
	e.db.First(&msg, quote.ID)
	if msg.QuotationStatus != models.QuotationRejected {
		t.Fatalf("quotation status = %s, want rejected", msg.QuotationStatus)
	}

	msgs, _ := e.channel.ListMessages(ctx, fx.Owner, order.ID)
	last := msgs[len(msgs)-1]
	if last.Kind != models.MessageKindSystem || last.Body == "" {
		t.Fatalf("rejection system message missing: %+v", last)
	}

	// The vendor may submit a revised quotation.
	if _, err := e.orders.SubmitQuotation(ctx, fx.Vendor, order.ID, QuotationInput{Amount: 47000}); err != nil {
		t.Fatalf("revised quotation: %v", err)
	}
}

func TestConcurrentTransitionLosesWithConflict(t *testing.T) {
	e, fx := newEngine(t)
	order, _ := e.negotiatedOrder(t, fx)

	// Two callers read the same version; the second write must lose.
	stale := *order
	err := e.db.Transaction(func(tx *gorm.DB) error {
		return transitionOrder(tx, order, map[string]any{"status": models.OrderStatusInNegotiation})
	})
	if err != nil {
		t.Fatalf("first transition: %v", err)
	}
	err = e.db.Transaction(func(tx *gorm.DB) error {
		return transitionOrder(tx, &stale, map[string]any{"status": models.OrderStatusCancelled})
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestListOrdersRoleFiltered(t *testing.T) {
	e, fx := newEngine(t)
	ctx := context.Background()
	order, err := e.acceptance.AcceptMaterialRequest(ctx, fx.Vendor, fx.Request.ID)
	if err != nil {
		t.Fatalf("accept request: %v", err)
	}

	for _, tc := range []struct {
		name  string
		actor policy.Actor
		want  int
	}{
		{"owner sees all", fx.Owner, 1},
		{"assigned employee sees project orders", fx.Employee, 1},
		{"vendor sees own orders", fx.Vendor, 1},
		{"client sees project orders", fx.Client, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			orders, total, err := e.orders.List(ctx, tc.actor, 50, 0)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(orders) != tc.want || total != int64(tc.want) {
				t.Fatalf("got %d orders (total %d), want %d", len(orders), total, tc.want)
			}
			if tc.want > 0 && orders[0].ID != order.ID {
				t.Fatalf("unexpected order %d", orders[0].ID)
			}
		})
	}
}
