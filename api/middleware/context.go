package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

type contextKey string

const ctxActor contextKey = "actor"

// WithActor stores the authenticated caller on the context.
func WithActor(ctx context.Context, actor access.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the caller set by Auth.
func ActorFromContext(ctx context.Context) (access.Actor, bool) {
	if ctx == nil {
		return access.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(access.Actor)
	return actor, ok && actor.UserID != uuid.Nil
}

func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.Role
	}
	return ""
}

const ctxSessionID contextKey = "session_id"

func withSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxSessionID, id)
}

// SessionIDFromContext returns the jti of the access token used for the request.
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxSessionID).(string)
	return v
}
