package handlers

import (
	"net/http"
	"time"

	"github.com/yaswanth65/houseway-backend/internal/httpx"
	"github.com/yaswanth65/houseway-backend/internal/services"
	"github.com/yaswanth65/houseway-backend/internal/validation"
)

type DeliveryHandler struct {
	delivery *services.DeliveryService
}

func NewDeliveryHandler(delivery *services.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{delivery: delivery}
}

type deliveryDetailsRequest struct {
	Carrier        string
	TrackingNumber string
	ExpectedDate   *time.Time
	Notes          string
	AttachmentURL  string
}

// SubmitDetails handles POST /orders/{id}/delivery. This is the closing
// sequence: it creates the invoice and closes the chat.
func (h *DeliveryHandler) SubmitDetails(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req deliveryDetailsRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	invoice, err := h.delivery.SubmitDeliveryDetails(r.Context(), a, orderID, services.DeliveryDetails{
		Carrier:        req.Carrier,
		TrackingNumber: req.TrackingNumber,
		ExpectedDate:   req.ExpectedDate,
		Notes:          req.Notes,
		AttachmentURL:  req.AttachmentURL,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

type trackingUpdateRequest struct {
	Status         string
	Carrier        string
	TrackingNumber string
	ExpectedDate   *time.Time
	Notes          string
}

// UpdateStatus handles PATCH /orders/{id}/delivery.
func (h *DeliveryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req trackingUpdateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	validation.Required("status", req.Status, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	order, err := h.delivery.UpdateDeliveryStatus(r.Context(), a, orderID, services.TrackingUpdate{
		Status:         req.Status,
		Carrier:        req.Carrier,
		TrackingNumber: req.TrackingNumber,
		ExpectedDate:   req.ExpectedDate,
		Notes:          req.Notes,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// Tracking handles GET /orders/{id}/delivery.
func (h *DeliveryHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tracking, err := h.delivery.Tracking(r.Context(), a, orderID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tracking)
}
