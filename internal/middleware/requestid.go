// Package middleware provides HTTP middleware for CatalogForge.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Strob0t/CatalogForge/internal/logger"
)

const headerRequestID = "X-Request-ID"

// maxRequestIDLen caps inbound IDs so a junk header cannot bloat every log
// line emitted for the request.
const maxRequestIDLen = 64

// RequestID trusts an inbound X-Request-ID when present, letting feed
// importers correlate their retries across systems, and mints a UUID when
// one is missing or oversized. The ID rides the request context and is
// echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
