package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yaswanth65/houseway-backend/internal/apperr"
	"github.com/yaswanth65/houseway-backend/internal/models"
	"github.com/yaswanth65/houseway-backend/internal/notify"
	"github.com/yaswanth65/houseway-backend/internal/policy"
)

// AcceptanceService is the entry point of the engine: an assigned vendor
// accepts an approved material request, which creates the draft purchase order
// and opens its negotiation channel.
type AcceptanceService struct {
	db       *gorm.DB
	notifier notify.Notifier
}

func NewAcceptanceService(db *gorm.DB, n notify.Notifier) *AcceptanceService {
	return &AcceptanceService{db: db, notifier: n}
}

// AcceptMaterialRequest marks the request ordered for this vendor and creates
// one order with status sent. Items are seeded from the request specification
// with no unit price: price is negotiated, never pre-filled.
func (s *AcceptanceService) AcceptMaterialRequest(ctx context.Context, actor policy.Actor, requestID uint) (*models.Order, error) {
	if actor.Kind != policy.KindVendor {
		return nil, apperr.AccessDenied("only vendors accept material requests")
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.MaterialRequest
		err := tx.Preload("Items").Preload("Vendors").First(&req, requestID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("material request %d not found", requestID)
		}
		if err != nil {
			return err
		}

		if req.Status != models.MaterialRequestApproved && req.Status != models.MaterialRequestOrdered {
			return apperr.PreconditionFailed("material request %d is not approved (%s)", req.ID, req.Status)
		}
		assigned := false
		for _, v := range req.Vendors {
			if v.VendorID == actor.ID {
				assigned = true
				break
			}
		}
		if !assigned {
			return apperr.PreconditionFailed("vendor is not assigned to material request %d", req.ID)
		}

		var existing int64
		if err := tx.Model(&models.Order{}).
			Where("material_request_id = ? AND vendor_id = ?", req.ID, actor.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Conflict("an order already exists for this request and vendor")
		}

		order = &models.Order{
			OrderNumber:       GeneratePONumber(time.Now()),
			MaterialRequestID: req.ID,
			VendorID:          actor.ID,
			ProjectID:         req.ProjectID,
			CreatedByID:       req.RequestedByID,
			Status:            models.OrderStatusSent,
		}
		for _, it := range req.Items {
			order.Items = append(order.Items, models.OrderItem{
				Name:           it.Name,
				Quantity:       it.Quantity,
				Unit:           it.Unit,
				DeliveryStatus: models.DeliveryStatusPending,
			})
		}
		ComputeTotals(order)
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		return tx.Model(&models.MaterialRequest{}).
			Where("id = ?", req.ID).
			Update("status", models.MaterialRequestOrdered).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, order.CreatedByID, "material-request-accepted", map[string]any{
		"requestId": order.MaterialRequestID, "orderId": order.ID, "orderNumber": order.OrderNumber,
	})
	return order, nil
}
