package middleware

import (
	"fmt"
	"net/http"

	"github.com/pawmart/pawmart-backend/api/responses"
	pkgerrors "github.com/pawmart/pawmart-backend/pkg/errors"
	"github.com/pawmart/pawmart-backend/pkg/logger"
)

// Recoverer converts a handler panic into a 500 response instead of tearing
// down the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				err := fmt.Errorf("panic: %v", recovered)
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithField(ctx, "panic", fmt.Sprintf("%v", recovered))
					logg.Error(ctx, "panic.recovered", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
