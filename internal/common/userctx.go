package common

import (
	"context"
)

// Role names carried in tokens and user records.
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// UserContext identifies the authenticated operator of a request.
type UserContext struct {
	UserID string
	Role   string
}

type contextKey int

const userContextKey contextKey = iota

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// ResolveUserID returns the UserID from context, or "system" for background and CLI work.
func ResolveUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil && uc.UserID != "" {
		return uc.UserID
	}
	return "system"
}

// IsAdmin reports whether the request runs with admin rights. Calls without a
// user context (CLI, tests, startup) are trusted.
func IsAdmin(ctx context.Context) bool {
	uc := UserContextFromContext(ctx)
	if uc == nil {
		return true
	}
	return uc.Role == RoleAdmin
}
