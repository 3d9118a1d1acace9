package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/embercart/embercart-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Inbound ids longer than this are treated as junk and regenerated.
const maxRequestIDLen = 64

// RequestID stamps every request with an id so log lines across the
// whole handler chain can be correlated. A well-formed inbound
// X-Request-Id is honored, letting upstream proxies thread their own
// ids through; anything oversized or non-printable is replaced.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := sanitizeRequestID(r.Header.Get(requestIDHeader))
			if reqID == "" {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sanitizeRequestID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > maxRequestIDLen {
		return ""
	}
	for _, c := range id {
		if c <= ' ' || c > '~' {
			return ""
		}
	}
	return id
}
