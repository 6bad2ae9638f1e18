package grpcserver

import (
	"context"

	"github.com/and161185/cms-auth/internal/model"
)

type ctxKey string

const userKey ctxKey = "cms.user"

// WithUser stores the authenticated user in context.
func WithUser(ctx context.Context, u model.UserProfile) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromCtx fetches the authenticated user from context.
func UserFromCtx(ctx context.Context) (model.UserProfile, bool) {
	u, ok := ctx.Value(userKey).(model.UserProfile)
	return u, ok
}
