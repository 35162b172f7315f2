package handlers

import (
	"net/http"

	"github.com/yaswanth65/houseway-backend/internal/httpx"
	"github.com/yaswanth65/houseway-backend/internal/services"
)

// MaterialRequestHandler covers the vendor-facing entry point into the
// engine: accepting an approved material request, which creates the order.
type MaterialRequestHandler struct {
	acceptance *services.AcceptanceService
}

func NewMaterialRequestHandler(acceptance *services.AcceptanceService) *MaterialRequestHandler {
	return &MaterialRequestHandler{acceptance: acceptance}
}

// Accept handles POST /material-requests/{id}/accept.
func (h *MaterialRequestHandler) Accept(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	requestID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.acceptance.AcceptMaterialRequest(r.Context(), a, requestID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}
