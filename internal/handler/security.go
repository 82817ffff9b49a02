package handler

import (
	"net/http"

	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/auth"
)

const apiKeyHeader = "X-API-Key"

// requireAPIKey guards admin routes. Every rejection is a uniform 401 so
// callers cannot probe for valid key prefixes.
func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.verifier.Verify(r.Context(), r.Header.Get(apiKeyHeader)); err != nil {
			h.writeError(w, r, auth.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
