package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/pawmart/pawmart-backend/api/responses"
	"github.com/pawmart/pawmart-backend/pkg/enums"
	pkgerrors "github.com/pawmart/pawmart-backend/pkg/errors"
	"github.com/pawmart/pawmart-backend/pkg/logger"
)

// Identity arrives on gateway headers; the upstream edge is responsible for
// authenticating the caller before these ever reach this service.
const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

type contextKey string

const (
	ctxActorID   contextKey = "actor_id"
	ctxActorRole contextKey = "actor_role"
)

// Actor requires valid identity headers and injects them into the context.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID, err := uuid.Parse(r.Header.Get(actorIDHeader))
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Id header must be a uuid"))
				return
			}
			role, err := enums.ParseActorRole(r.Header.Get(actorRoleHeader))
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Role header must be buyer, seller or admin"))
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, ctxActorID, actorID)
			ctx = context.WithValue(ctx, ctxActorRole, role)
			if logg != nil {
				ctx = logg.WithActor(ctx, actorID.String(), role.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorIDFromContext returns the authenticated actor id, or uuid.Nil.
func ActorIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxActorID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// ActorRoleFromContext returns the authenticated actor role, or "".
func ActorRoleFromContext(ctx context.Context) enums.ActorRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxActorRole).(enums.ActorRole); ok {
		return v
	}
	return ""
}
