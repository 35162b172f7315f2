package handlers

import (
	"net/http"
	"time"

	"github.com/yaswanth65/houseway-backend/internal/httpx"
	"github.com/yaswanth65/houseway-backend/internal/services"
	"github.com/yaswanth65/houseway-backend/internal/validation"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
}

func NewInvoiceHandler(invoices *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// Get handles GET /invoices/{id}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	invoiceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.invoices.Get(r.Context(), a, invoiceID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

type paymentRequest struct {
	Amount    float64
	Method    string
	Reference string
	Notes     string
	PaidAt    *time.Time
}

// RecordPayment handles POST /invoices/{id}/payments.
func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	invoiceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	validation.PositiveFloat("amount", req.Amount, v)
	validation.Required("method", req.Method, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	inv, err := h.invoices.RecordPayment(r.Context(), a, invoiceID, services.PaymentInput{
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Notes:     req.Notes,
		PaidAt:    req.PaidAt,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}
