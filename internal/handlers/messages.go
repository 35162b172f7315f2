package handlers

import (
	"io"
	"net/http"

	"github.com/yaswanth65/houseway-backend/internal/httpx"
	"github.com/yaswanth65/houseway-backend/internal/services"
	"github.com/yaswanth65/houseway-backend/internal/storage"
	"github.com/yaswanth65/houseway-backend/internal/validation"
)

// maxAttachmentBytes caps attachment uploads at 10 MiB.
const maxAttachmentBytes = 10 << 20

type MessageHandler struct {
	channel     *services.ChannelService
	attachments storage.AttachmentStore
}

func NewMessageHandler(channel *services.ChannelService, attachments storage.AttachmentStore) *MessageHandler {
	return &MessageHandler{channel: channel, attachments: attachments}
}

// List handles GET /orders/{id}/messages.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	msgs, err := h.channel.ListMessages(r.Context(), a, orderID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

type postMessageRequest struct {
	Body          string
	AttachmentURL string
}

// Post handles POST /orders/{id}/messages (text messages only; quotations go
// through the orders endpoints).
func (h *MessageHandler) Post(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req postMessageRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	if req.AttachmentURL == "" {
		validation.Required("body", req.Body, v)
	}
	validation.MaxLen("body", req.Body, 8000, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	msg, err := h.channel.PostText(r.Context(), a, orderID, req.Body, req.AttachmentURL)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, msg)
}

// MarkRead handles POST /orders/{id}/read.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.channel.MarkRead(r.Context(), a, orderID); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusNoContent, nil)
}

// UploadAttachment handles POST /attachments (multipart). It returns the
// stored object name for the client to reference in a later message.
func (h *MessageHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"file": "required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentBytes+1))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "read_error", nil)
		return
	}
	if len(data) > maxAttachmentBytes {
		httpx.JSONError(w, http.StatusRequestEntityTooLarge, "file_too_large", nil)
		return
	}

	name, err := h.attachments.Upload(r.Context(), data, header.Filename)
	if err != nil {
		httpx.JSONError(w, http.StatusServiceUnavailable, "storage_unavailable", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"filename": name})
}

// AttachmentURL handles GET /attachments/{name}/url, returning a temporary
// download link.
func (h *MessageHandler) AttachmentURL(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	name := r.PathValue("name")
	if name == "" {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	url, err := h.attachments.PresignedURL(r.Context(), name)
	if err != nil {
		httpx.JSONError(w, http.StatusServiceUnavailable, "storage_unavailable", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"url": url})
}
