package middleware

import (
	"context"

	"github.com/udara94/interpret-academy-client/internal/domain"
	"github.com/udara94/interpret-academy-client/internal/session"
)

// Session is the per-request authenticated session: the resolved token plus
// the manager that owns it, for handlers that need a forced refresh or update.
type Session struct {
	SID     string
	Token   domain.Token
	Manager *session.Manager
}

type contextKey string

const sessionContextKey contextKey = "session"

// WithSession stores the resolved session in the request context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext returns the resolved session, or nil for anonymous
// requests.
func SessionFromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionContextKey).(*Session); ok {
		return s
	}
	return nil
}
