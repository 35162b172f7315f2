package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yaswanth65/houseway-backend/internal/apperr"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// statusByKind maps the domain error taxonomy onto HTTP statuses.
var statusByKind = map[apperr.Kind]int{
	apperr.KindAccessDenied:       http.StatusForbidden,
	apperr.KindNotFound:           http.StatusNotFound,
	apperr.KindInvalidTransition:  http.StatusConflict,
	apperr.KindChannelClosed:      http.StatusConflict,
	apperr.KindAlreadyAccepted:    http.StatusConflict,
	apperr.KindPreconditionFailed: http.StatusPreconditionFailed,
	apperr.KindConflict:           http.StatusConflict,
	apperr.KindValidation:         http.StatusBadRequest,
}

// Error writes a service error as JSON. Typed errors carry their own status;
// anything else is an opaque 500.
func Error(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		status, ok := statusByKind[ae.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		JSON(w, status, ErrorResponse{Error: string(ae.Kind), Message: ae.Message, Details: ae.Details})
		return
	}
	JSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
}

// Decode reads a JSON body into dst, rejecting unknown fields.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
