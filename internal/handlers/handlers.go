// Package handlers exposes the negotiation engine over JSON HTTP. Handlers
// parse and validate input, pull the actor from the request context, and
// delegate every decision to the services layer.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/yaswanth65/houseway-backend/internal/auth"
	"github.com/yaswanth65/houseway-backend/internal/httpx"
	"github.com/yaswanth65/houseway-backend/internal/policy"
)

// actor extracts the authenticated actor, writing 401 when absent.
func actor(w http.ResponseWriter, r *http.Request) (policy.Actor, bool) {
	a, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return policy.Actor{}, false
	}
	return a, true
}

// pathID parses the named path segment as an id, writing 400 on garbage.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 32)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", map[string]string{name: "must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}
