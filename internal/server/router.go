// Package server wires the services, realtime hub, and auth middleware into
// the root http.Handler.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yaswanth65/houseway-backend/internal/auth"
	"github.com/yaswanth65/houseway-backend/internal/handlers"
	"github.com/yaswanth65/houseway-backend/internal/httpx"
	"github.com/yaswanth65/houseway-backend/internal/notify"
	"github.com/yaswanth65/houseway-backend/internal/policy"
	"github.com/yaswanth65/houseway-backend/internal/realtime"
	"github.com/yaswanth65/houseway-backend/internal/services"
	"github.com/yaswanth65/houseway-backend/internal/storage"
)

// Deps carries everything the router needs; main assembles it.
type Deps struct {
	DB          *gorm.DB
	Hub         *realtime.Hub
	Broadcaster realtime.Broadcaster
	Notifier    notify.Notifier
	Attachments storage.AttachmentStore
	JWTSecret   string
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	am := &auth.Middleware{Secret: d.JWTSecret, Resolve: auth.NewDBResolver(d.DB)}

	acceptance := services.NewAcceptanceService(d.DB, d.Notifier)
	channel := services.NewChannelService(d.DB, d.Broadcaster)
	orders := services.NewOrderService(d.DB, d.Broadcaster, d.Notifier)
	delivery := services.NewDeliveryService(d.DB, d.Broadcaster, d.Notifier)
	invoices := services.NewInvoiceService(d.DB)

	// --- Health endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := d.DB.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Material requests ---
	mrh := handlers.NewMaterialRequestHandler(acceptance)
	mux.Handle("POST /material-requests/{id}/accept", am.Require(http.HandlerFunc(mrh.Accept)))

	// --- Orders and the quotation lifecycle ---
	oh := handlers.NewOrderHandler(orders)
	mux.Handle("GET /orders", am.Require(http.HandlerFunc(oh.List)))
	mux.Handle("GET /orders/{id}", am.Require(http.HandlerFunc(oh.Get)))
	mux.Handle("POST /orders/{id}/acknowledge", am.Require(http.HandlerFunc(oh.Acknowledge)))
	mux.Handle("POST /orders/{id}/quotations", am.Require(http.HandlerFunc(oh.SubmitQuotation)))
	mux.Handle("POST /orders/{id}/quotations/{message_id}/accept", am.Require(http.HandlerFunc(oh.AcceptQuotation)))
	mux.Handle("POST /orders/{id}/quotations/{message_id}/reject", am.Require(http.HandlerFunc(oh.RejectQuotation)))
	mux.Handle("POST /orders/{id}/cancel", am.Require(http.HandlerFunc(oh.Cancel)))

	// --- Negotiation channel ---
	mh := handlers.NewMessageHandler(channel, d.Attachments)
	mux.Handle("GET /orders/{id}/messages", am.Require(http.HandlerFunc(mh.List)))
	mux.Handle("POST /orders/{id}/messages", am.Require(http.HandlerFunc(mh.Post)))
	mux.Handle("POST /orders/{id}/read", am.Require(http.HandlerFunc(mh.MarkRead)))
	mux.Handle("POST /attachments", am.Require(http.HandlerFunc(mh.UploadAttachment)))
	mux.Handle("GET /attachments/{name}/url", am.Require(http.HandlerFunc(mh.AttachmentURL)))

	// --- Delivery and invoicing ---
	dh := handlers.NewDeliveryHandler(delivery)
	mux.Handle("POST /orders/{id}/delivery", am.Require(http.HandlerFunc(dh.SubmitDetails)))
	mux.Handle("PATCH /orders/{id}/delivery", am.Require(http.HandlerFunc(dh.UpdateStatus)))
	mux.Handle("GET /orders/{id}/delivery", am.Require(http.HandlerFunc(dh.Tracking)))

	ih := handlers.NewInvoiceHandler(invoices)
	mux.Handle("GET /invoices/{id}", am.Require(http.HandlerFunc(ih.Get)))
	mux.Handle("POST /invoices/{id}/payments", am.Require(http.HandlerFunc(ih.RecordPayment)))

	// --- Realtime rooms ---
	ws := &realtime.WSHandler{
		Hub:         d.Hub,
		Broadcaster: d.Broadcaster,
		Resolve:     am.ResolveRequest,
		CanJoin: func(ctx context.Context, actor policy.Actor, orderID uint) bool {
			order, err := orders.Get(ctx, actor, orderID)
			return err == nil && order != nil
		},
	}
	mux.Handle("GET /ws", ws)

	return withRecovery(withLogging(mux))
}

// withLogging adds request logging middleware.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

// withRecovery turns handler panics into 500s instead of dropped connections.
func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logrus.WithField("panic", rec).Error("handler panic")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
