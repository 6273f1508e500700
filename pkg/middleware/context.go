package middleware

import "context"

type contextKey string

const userIDContextKey contextKey = "user_id"

// WithUserID stores the authenticated user ID in the request context. The
// session guard sets it after validating the session cookie.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext returns the authenticated user ID, or "" when the request
// is anonymous.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDContextKey).(string); ok {
		return v
	}
	return ""
}
