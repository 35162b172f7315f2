package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/yaswanth65/houseway-backend/internal/httpx"
	"github.com/yaswanth65/houseway-backend/internal/models"
	"github.com/yaswanth65/houseway-backend/internal/services"
	"github.com/yaswanth65/houseway-backend/internal/validation"
)

type OrderHandler struct {
	orders *services.OrderService
}

func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List handles GET /orders with limit/offset paging.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, total, err := h.orders.List(r.Context(), a, limit, offset)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"total":  total,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orders.Get(r.Context(), a, orderID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// Acknowledge handles POST /orders/{id}/acknowledge.
func (h *OrderHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orders.Acknowledge(r.Context(), a, orderID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type quotationRequest struct {
	Items []struct {
		Name      string
		Quantity  float64
		Unit      string
		UnitPrice float64
	}
	Amount     float64
	ValidUntil *time.Time
	Note       string
}

// SubmitQuotation handles POST /orders/{id}/quotations.
func (h *OrderHandler) SubmitQuotation(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req quotationRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := make(validation.Violations)
	if len(req.Items) == 0 {
		validation.PositiveFloat("amount", req.Amount, v)
	}
	for _, it := range req.Items {
		validation.Required("items.name", it.Name, v)
		validation.PositiveFloat("items.quantity", it.Quantity, v)
		validation.NonNegativeFloat("items.unitPrice", it.UnitPrice, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	in := services.QuotationInput{Amount: req.Amount, ValidUntil: req.ValidUntil, Note: req.Note}
	for _, it := range req.Items {
		in.Items = append(in.Items, models.MessageItem{
			Name:      it.Name,
			Quantity:  it.Quantity,
			Unit:      it.Unit,
			UnitPrice: it.UnitPrice,
		})
	}

	msg, err := h.orders.SubmitQuotation(r.Context(), a, orderID, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, msg)
}

// AcceptQuotation handles POST /orders/{id}/quotations/{message_id}/accept.
func (h *OrderHandler) AcceptQuotation(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "message_id")
	if !ok {
		return
	}
	order, err := h.orders.AcceptQuotation(r.Context(), a, orderID, messageID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type reasonRequest struct {
	Reason string
}

// RejectQuotation handles POST /orders/{id}/quotations/{message_id}/reject.
func (h *OrderHandler) RejectQuotation(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "message_id")
	if !ok {
		return
	}
	var req reasonRequest
	_ = httpx.Decode(r, &req) // reason is optional

	order, err := h.orders.RejectQuotation(r.Context(), a, orderID, messageID, req.Reason)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// Cancel handles POST /orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	_ = httpx.Decode(r, &req)

	order, err := h.orders.Cancel(r.Context(), a, orderID, req.Reason)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}
