package gate

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/udara94/interpret-academy-client/internal/membership"
	apperrors "github.com/udara94/interpret-academy-client/pkg/apperrors"
)

var paywallDenialsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "webclient_paywall_denials_total",
		Help: "Total number of content requests denied by the paywall",
	},
)

// Gate is the per-resource content access policy: allowed = resource.isFree OR
// membership.isActive. It must be consulted BEFORE dispatching a protected
// content fetch — paywalled reads cost a platform call and must not be issued
// speculatively.
type Gate struct {
	cache  *membership.Cache
	logger *slog.Logger
}

// New creates a content access gate over the membership cache.
func New(cache *membership.Cache, logger *slog.Logger) *Gate {
	return &Gate{cache: cache, logger: logger}
}

// Allow reports whether the user may access the resource.
func (g *Gate) Allow(ctx context.Context, userID, accessToken string, isFree bool) (bool, error) {
	if isFree {
		return true, nil
	}
	status, err := g.cache.GetStatus(ctx, userID, accessToken, false)
	if err != nil {
		return false, err
	}
	if !status.IsActive {
		paywallDenialsTotal.Inc()
		return false, nil
	}
	return true, nil
}

// Authorize is Allow expressed as an error: a denial is the paywall class,
// surfaced as an upgrade prompt rather than a hard failure.
func (g *Gate) Authorize(ctx context.Context, userID, accessToken string, isFree bool) error {
	allowed, err := g.Allow(ctx, userID, accessToken, isFree)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.MembershipRequired("an active membership is required for this content")
	}
	return nil
}
