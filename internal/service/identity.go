package service

import "context"

type ctxKey string

const actorIDKey ctxKey = "actor_id"

// WithActorID attaches the authenticated user's id to the context so audit
// rows can attribute the change. Handlers set it before invoking a service.
func WithActorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, actorIDKey, id)
}

func actorID(ctx context.Context) string {
	if id, ok := ctx.Value(actorIDKey).(string); ok {
		return id
	}
	return ""
}
