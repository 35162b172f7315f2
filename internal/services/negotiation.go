package services

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yaswanth65/houseway-backend/internal/apperr"
	"github.com/yaswanth65/houseway-backend/internal/models"
	"github.com/yaswanth65/houseway-backend/internal/policy"
	"github.com/yaswanth65/houseway-backend/internal/realtime"
)

// ChannelService owns the per-order message log: appends, ordered listing and
// read receipts. It is the only writer of messages; the lifecycle and delivery
// services append through it so the closed-channel gate and the
// write-then-broadcast rule live in one place.
type ChannelService struct {
	db *gorm.DB
	rt realtime.Broadcaster
}

func NewChannelService(db *gorm.DB, rt realtime.Broadcaster) *ChannelService {
	return &ChannelService{db: db, rt: rt}
}

// PostText appends a text message from the actor. Fails with ChannelClosed
// once delivery details have closed the chat.
func (s *ChannelService) PostText(ctx context.Context, actor policy.Actor, orderID uint, body, attachmentURL string) (*models.Message, error) {
	if body == "" && attachmentURL == "" {
		return nil, apperr.Validation(map[string]string{"body": "required"})
	}

	var msg *models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := requireWrite(actor, order); err != nil {
			return err
		}
		if order.Negotiation.ChatClosed {
			return apperr.ChannelClosed("negotiation chat for order %s is closed", order.OrderNumber)
		}
		msg = &models.Message{
			OrderID:       order.ID,
			SenderID:      actor.ID,
			SenderRole:    string(actor.Kind),
			Kind:          models.MessageKindText,
			Body:          body,
			AttachmentURL: attachmentURL,
		}
		return appendMessage(tx, order, msg)
	})
	if err != nil {
		return nil, err
	}

	// Broadcast strictly after durable persistence.
	s.rt.Publish(ctx, realtime.Event{Name: realtime.EventNewMessage, OrderID: orderID, Data: msg})
	return msg, nil
}

// ListMessages returns the order's full message log in server-assigned order.
// The result is a finite snapshot; two calls with no intervening writes return
// identical sequences.
func (s *ChannelService) ListMessages(ctx context.Context, actor policy.Actor, orderID uint) ([]models.Message, error) {
	order, err := loadOrder(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if err := requireRead(actor, order); err != nil {
		return nil, err
	}
	var msgs []models.Message
	err = s.db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		Order("created_at asc, id asc").
		Find(&msgs).Error
	return msgs, err
}

// MarkRead stamps the actor's read receipt for the order.
func (s *ChannelService) MarkRead(ctx context.Context, actor policy.Actor, orderID uint) error {
	order, err := loadOrder(s.db.WithContext(ctx), orderID)
	if err != nil {
		return err
	}
	if err := requireRead(actor, order); err != nil {
		return err
	}
	receipt := models.ReadReceipt{OrderID: orderID, UserID: actor.ID, LastReadAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_read_at"}),
	}).Create(&receipt).Error
}

// appendMessage persists msg and maintains lastMessageAt. It deliberately
// skips the ChatClosed gate: the closing sequence itself (system, delivery and
// invoice messages) must be able to post while the channel closes. Public
// entry points check the gate before calling.
func appendMessage(tx *gorm.DB, order *models.Order, msg *models.Message) error {
	if err := tx.Create(msg).Error; err != nil {
		return err
	}
	return tx.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("negotiation_last_message_at", msg.CreatedAt).Error
}

// systemMessage builds a system message on the order.
func systemMessage(orderID uint, body string) *models.Message {
	return &models.Message{
		OrderID:    orderID,
		SenderRole: "system",
		Kind:       models.MessageKindSystem,
		Body:       body,
	}
}
