package http

import (
	"context"

	"github.com/udara94/interpret-academy-client/internal/middleware"
	apperrors "github.com/udara94/interpret-academy-client/pkg/apperrors"
)

// withAuthRetry runs a platform call with the session's access token. When
// the platform rejects a token the client still considered valid, the expiry
// estimate was wrong: force one refresh and retry once. A second rejection
// propagates.
func withAuthRetry[T any](ctx context.Context, sess *middleware.Session, fn func(accessToken string) (T, error)) (T, error) {
	out, err := fn(sess.Token.AccessToken)
	if err == nil || !apperrors.IsAuthenticationRequired(err) {
		return out, err
	}

	tok, rerr := sess.Manager.ForceRefresh(ctx)
	if rerr != nil {
		var zero T
		return zero, rerr
	}
	sess.Token = tok
	return fn(tok.AccessToken)
}
