package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pawmart/pawmart-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID trusts an incoming request id from the gateway or mints one, and
// echoes it on the response so callers can correlate logs.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, requestID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
