package handlers

import (
	"net/http"

	"reelkeep/internal/auth"
)

// MiddlewareRequireAuth rejects requests that carry no verified identity.
// The collections service re-checks on its own; this keeps the rejection at
// the edge for the routes that are mutation-only.
func (h *Handler) MiddlewareRequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserID(r.Context()) == "" {
			writeJSON(w, http.StatusUnauthorized, &errorResponse{Error: "not authenticated"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
