package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yaswanth65/houseway-backend/internal/apperr"
	"github.com/yaswanth65/houseway-backend/internal/models"
	"github.com/yaswanth65/houseway-backend/internal/notify"
	"github.com/yaswanth65/houseway-backend/internal/policy"
	"github.com/yaswanth65/houseway-backend/internal/realtime"
)

// OrderService drives the quotation lifecycle state machine:
//
//	draft → sent → acknowledged → in_negotiation → accepted
//	      → in_progress → partially_delivered → completed
//
// with rejected/cancelled as side exits. Every transition is transactional and
// version-checked.
type OrderService struct {
	db       *gorm.DB
	rt       realtime.Broadcaster
	notifier notify.Notifier
}

func NewOrderService(db *gorm.DB, rt realtime.Broadcaster, n notify.Notifier) *OrderService {
	return &OrderService{db: db, rt: rt, notifier: n}
}

// List returns the orders visible to the actor, newest first. Owners see all,
// employees and clients their projects' orders, vendors their own.
func (s *OrderService) List(ctx context.Context, actor policy.Actor, limit, offset int) ([]models.Order, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Model(&models.Order{})
	switch actor.Kind {
	case policy.KindOwner:
		// unrestricted
	case policy.KindEmployee, policy.KindClient:
		if len(actor.ProjectIDs) == 0 {
			return []models.Order{}, 0, nil
		}
		q = q.Where("project_id IN ?", actor.ProjectIDs)
	case policy.KindVendor:
		q = q.Where("vendor_id = ?", actor.ID)
	default:
		return nil, 0, apperr.AccessDenied("unknown actor")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []models.Order
	err := q.Preload("Items").Order("id desc").Limit(limit).Offset(offset).Find(&orders).Error
	return orders, total, err
}

// Get returns one order the actor may read.
func (s *OrderService) Get(ctx context.Context, actor policy.Actor, orderID uint) (*models.Order, error) {
	order, err := loadOrder(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if err := requireRead(actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Acknowledge records the vendor's receipt of a sent order (no quotation yet).
func (s *OrderService) Acknowledge(ctx context.Context, actor policy.Actor, orderID uint) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if order, err = loadOrder(tx, orderID); err != nil {
			return err
		}
		if err := requireOrderVendor(actor, order); err != nil {
			return err
		}
		if order.Status != models.OrderStatusSent {
			return apperr.InvalidTransition("cannot acknowledge order in status %s", order.Status)
		}
		if err := transitionOrder(tx, order, map[string]any{"status": models.OrderStatusAcknowledged}); err != nil {
			return err
		}
		order.Status = models.OrderStatusAcknowledged
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.rt.Publish(ctx, realtime.Event{Name: realtime.EventOrderUpdated, OrderID: orderID, Data: order})
	return order, nil
}

// QuotationInput is the vendor's price/terms offer.
type QuotationInput struct {
	Items      []models.MessageItem
	Amount     float64
	ValidUntil *time.Time
	Note       string
}

// SubmitQuotation posts a quotation message and moves the order into
// in_negotiation. Allowed from sent, acknowledged and in_negotiation; blocked
// once the chat is closed or a quotation was already accepted.
func (s *OrderService) SubmitQuotation(ctx context.Context, actor policy.Actor, orderID uint, in QuotationInput) (*models.Message, error) {
	if len(in.Items) == 0 && in.Amount <= 0 {
		return nil, apperr.Validation(map[string]string{"items": "required", "amount": "required"})
	}

	var msg *models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := requireOrderVendor(actor, order); err != nil {
			return err
		}
		if order.Negotiation.ChatClosed {
			return apperr.ChannelClosed("negotiation chat for order %s is closed", order.OrderNumber)
		}
		if order.Negotiation.AcceptedMessageID != nil {
			return apperr.AlreadyAccepted("order %s already has an accepted quotation", order.OrderNumber)
		}
		switch order.Status {
		case models.OrderStatusSent, models.OrderStatusAcknowledged, models.OrderStatusInNegotiation:
		default:
			return apperr.InvalidTransition("cannot submit quotation in status %s", order.Status)
		}

		amount := in.Amount
		if subtotal := quotationTotals(in.Items); amount == 0 {
			amount = subtotal
		}
		msg = &models.Message{
			OrderID:         order.ID,
			SenderID:        actor.ID,
			SenderRole:      string(actor.Kind),
			Kind:            models.MessageKindQuotation,
			Body:            in.Note,
			Amount:          amount,
			ValidUntil:      in.ValidUntil,
			QuotationStatus: models.QuotationPending,
			Items:           in.Items,
		}
		if err := appendMessage(tx, order, msg); err != nil {
			return err
		}
		return transitionOrder(tx, order, map[string]any{"status": models.OrderStatusInNegotiation})
	})
	if err != nil {
		return nil, err
	}

	s.rt.Publish(ctx, realtime.Event{Name: realtime.EventQuotationSubmitted, OrderID: orderID, Data: msg})
	return msg, nil
}

// AcceptQuotation accepts one pending quotation message: the message becomes
// accepted, every other pending quotation on the order becomes superseded, the
// order's items and totals take the quoted lines, and a system message prompts
// the vendor for delivery details.
func (s *OrderService) AcceptQuotation(ctx context.Context, actor policy.Actor, orderID, messageID uint) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if order, err = loadOrder(tx, orderID); err != nil {
			return err
		}
		if err := requireStaff(actor, order); err != nil {
			return err
		}
		if order.Status != models.OrderStatusInNegotiation {
			return apperr.InvalidTransition("cannot accept quotation in status %s", order.Status)
		}
		if order.Negotiation.AcceptedMessageID != nil {
			return apperr.AlreadyAccepted("order %s already has an accepted quotation", order.OrderNumber)
		}

		msg, err := loadPendingQuotation(tx, orderID, messageID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Message{}).Where("id = ?", msg.ID).
			Update("quotation_status", models.QuotationAccepted).Error; err != nil {
			return err
		}
		// Decision: remaining pending quotations are explicitly superseded,
		// never left dangling.
		if err := tx.Model(&models.Message{}).
			Where("order_id = ? AND kind = ? AND quotation_status = ? AND id <> ?",
				orderID, models.MessageKindQuotation, models.QuotationPending, msg.ID).
			Update("quotation_status", models.QuotationSuperseded).Error; err != nil {
			return err
		}

		if err := replaceOrderItems(tx, order, msg.Items); err != nil {
			return err
		}
		if err := transitionOrder(tx, order, map[string]any{
			"status":                          models.OrderStatusAccepted,
			"negotiation_accepted_message_id": msg.ID,
			"negotiation_final_amount":        msg.Amount,
			"sub_total":                       order.SubTotal,
			"tax_amount":                      order.TaxAmount,
			"discount_amount":                 order.DiscountAmount,
			"total_amount":                    order.TotalAmount,
			"advance_amount":                  order.AdvanceAmount,
			"balance_amount":                  order.BalanceAmount,
		}); err != nil {
			return err
		}
		order.Status = models.OrderStatusAccepted
		order.Negotiation.AcceptedMessageID = &msg.ID
		order.Negotiation.FinalAmount = msg.Amount

		sys := systemMessage(orderID, fmt.Sprintf(
			"Quotation of %.2f accepted. Please submit delivery details to generate the invoice.", msg.Amount))
		return appendMessage(tx, order, sys)
	})
	if err != nil {
		return nil, err
	}

	s.rt.Publish(ctx, realtime.Event{Name: realtime.EventQuotationAccepted, OrderID: orderID, Data: order})
	s.rt.Publish(ctx, realtime.Event{Name: realtime.EventOrderUpdated, OrderID: orderID, Data: order})
	s.notifier.Notify(ctx, order.VendorID, "quotation-accepted", map[string]any{
		"orderId": order.ID, "orderNumber": order.OrderNumber, "amount": order.Negotiation.FinalAmount,
	})
	return order, nil
}

// RejectQuotation rejects one pending quotation with a reason; the order stays
// in negotiation and the vendor may submit a revised offer.
func (s *OrderService) RejectQuotation(ctx context.Context, actor policy.Actor, orderID, messageID uint, reason string) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if order, err = loadOrder(tx, orderID); err != nil {
			return err
		}
		if err := requireStaff(actor, order); err != nil {
			return err
		}
		if order.Status != models.OrderStatusInNegotiation {
			return apperr.InvalidTransition("cannot reject quotation in status %s", order.Status)
		}
		msg, err := loadPendingQuotation(tx, orderID, messageID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Message{}).Where("id = ?", msg.ID).
			Update("quotation_status", models.QuotationRejected).Error; err != nil {
			return err
		}
		// Version bump serializes a reject racing an accept of the same
		// quotation; the order's status does not change.
		if err := transitionOrder(tx, order, map[string]any{"status": models.OrderStatusInNegotiation}); err != nil {
			return err
		}

		body := fmt.Sprintf("Quotation of %.2f rejected.", msg.Amount)
		if reason != "" {
			body = fmt.Sprintf("Quotation of %.2f rejected: %s", msg.Amount, reason)
		}
		return appendMessage(tx, order, systemMessage(orderID, body))
	})
	if err != nil {
		return nil, err
	}

	s.rt.Publish(ctx, realtime.Event{Name: realtime.EventQuotationRejected, OrderID: orderID, Data: map[string]any{
		"messageId": messageID, "reason": reason,
	}})
	s.notifier.Notify(ctx, order.VendorID, "quotation-rejected", map[string]any{
		"orderId": order.ID, "orderNumber": order.OrderNumber, "reason": reason,
	})
	return order, nil
}

// Cancel is the owner's manual side exit, valid from any non-terminal state.
// A cancelled order accepts no further quotations; plain text chat stays open
// unless the channel was separately closed.
func (s *OrderService) Cancel(ctx context.Context, actor policy.Actor, orderID uint, reason string) (*models.Order, error) {
	if actor.Kind != policy.KindOwner {
		return nil, apperr.AccessDenied("only the platform owner may cancel an order")
	}
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if order, err = loadOrder(tx, orderID); err != nil {
			return err
		}
		if order.Terminal() {
			return apperr.InvalidTransition("order %s is already %s", order.OrderNumber, order.Status)
		}
		if err := transitionOrder(tx, order, map[string]any{"status": models.OrderStatusCancelled}); err != nil {
			return err
		}
		order.Status = models.OrderStatusCancelled

		body := "Order cancelled."
		if reason != "" {
			body = "Order cancelled: " + reason
		}
		return appendMessage(tx, order, systemMessage(orderID, body))
	})
	if err != nil {
		return nil, err
	}

	s.rt.Publish(ctx, realtime.Event{Name: realtime.EventOrderUpdated, OrderID: orderID, Data: order})
	s.notifier.Notify(ctx, order.VendorID, "order-cancelled", map[string]any{
		"orderId": order.ID, "orderNumber": order.OrderNumber, "reason": reason,
	})
	return order, nil
}

// loadPendingQuotation fetches a message that must be a pending quotation on
// this order. A message that exists but is accepted maps to AlreadyAccepted;
// anything else that is not a pending quotation is NotFound in this scope.
func loadPendingQuotation(tx *gorm.DB, orderID, messageID uint) (*models.Message, error) {
	var msg models.Message
	err := tx.Preload("Items").Where("id = ? AND order_id = ?", messageID, orderID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("message %d not found on this order", messageID)
	}
	if err != nil {
		return nil, err
	}
	if msg.Kind != models.MessageKindQuotation {
		return nil, apperr.NotFound("message %d is not a quotation", messageID)
	}
	switch msg.QuotationStatus {
	case models.QuotationPending:
		return &msg, nil
	case models.QuotationAccepted:
		return nil, apperr.AlreadyAccepted("quotation %d is already accepted", messageID)
	default:
		return nil, apperr.NotFound("quotation %d is no longer pending (%s)", messageID, msg.QuotationStatus)
	}
}

// replaceOrderItems swaps the order's lines for the accepted quotation's lines
// and recomputes every roll-up. Items loaded on the order are refreshed in
// place.
func replaceOrderItems(tx *gorm.DB, order *models.Order, quoted []models.MessageItem) error {
	if len(quoted) == 0 {
		// Lump-sum quotation: keep requested lines, totals come from the
		// negotiated amount alone.
		return nil
	}
	if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	items := make([]models.OrderItem, 0, len(quoted))
	for _, q := range quoted {
		items = append(items, models.OrderItem{
			OrderID:        order.ID,
			Name:           q.Name,
			Quantity:       q.Quantity,
			Unit:           q.Unit,
			UnitPrice:      q.UnitPrice,
			DeliveryStatus: models.DeliveryStatusPending,
		})
	}
	if err := tx.Create(&items).Error; err != nil {
		return err
	}
	order.Items = items
	ComputeTotals(order)
	// Persist per-line totals computed above.
	for i := range order.Items {
		if err := tx.Model(&models.OrderItem{}).Where("id = ?", order.Items[i].ID).
			Update("total", order.Items[i].Total).Error; err != nil {
			return err
		}
	}
	return nil
}
