package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

// principal is the authenticated caller of a request.
type principal struct {
	userID   string
	role     enums.UserRole
	accessID string
}

type principalKey struct{}

func principalFrom(ctx context.Context) principal {
	if ctx == nil {
		return principal{}
	}
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

func withPrincipal(ctx context.Context, update func(*principal)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	p := principalFrom(ctx)
	update(&p)
	return context.WithValue(ctx, principalKey{}, p)
}

func UserIDFromContext(ctx context.Context) string { return principalFrom(ctx).userID }

func RoleFromContext(ctx context.Context) string { return string(principalFrom(ctx).role) }

// AccessIDFromContext is the jti of the token that authenticated the request.
func AccessIDFromContext(ctx context.Context) string { return principalFrom(ctx).accessID }

// UserUUIDFromContext reports false for anonymous requests.
func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	return id, err == nil
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return withPrincipal(ctx, func(p *principal) { p.userID = userID })
}

func WithRole(ctx context.Context, role enums.UserRole) context.Context {
	return withPrincipal(ctx, func(p *principal) { p.role = role })
}

func WithAccessID(ctx context.Context, accessID string) context.Context {
	return withPrincipal(ctx, func(p *principal) { p.accessID = accessID })
}
