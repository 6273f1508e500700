package membership

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/udara94/interpret-academy-client/internal/domain"
)

// Fetcher retrieves the paywall entitlement from the platform.
// *backend.PaymentsClient satisfies this.
type Fetcher interface {
	MembershipStatus(ctx context.Context, accessToken string) (domain.Membership, error)
}

var membershipCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webclient_membership_cache_total",
		Help: "Membership cache lookups by outcome",
	},
	[]string{"outcome"},
)

// fetchCall is the shared in-flight fetch handle; concurrent callers for the
// same user await it instead of issuing duplicate fetches.
type fetchCall struct {
	done   chan struct{}
	status domain.Membership
}

type entry struct {
	status      domain.Membership
	lastChecked time.Time
	inflight    *fetchCall
}

// Cache is the process-wide membership entitlement cache, keyed by user ID.
// Entitlement changes on a different cadence than the session token (payment
// events), so it is cached separately with a short TTL and never forces a
// token rotation.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	delay   time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry

	// Injectable for tests.
	now       func() time.Time
	afterFunc func(d time.Duration, fn func()) *time.Timer
}

// NewCache creates a membership cache. ttl bounds how long a status is served
// without a re-fetch; delay is how long a MarkChanged re-fetch waits for the
// backend payment write to propagate.
func NewCache(fetcher Fetcher, ttl, delay time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		fetcher:   fetcher,
		ttl:       ttl,
		delay:     delay,
		logger:    logger,
		entries:   make(map[string]*entry),
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
}

// GetStatus returns the user's entitlement, served from cache when the entry
// is younger than the TTL and force is not set. Concurrent callers share one
// in-flight fetch. A failed fetch caches the conservative inactive status
// rather than leaving the entry stale: err toward showing paywalls over
// granting false access. The returned error is only ever a context error.
func (c *Cache) GetStatus(ctx context.Context, userID, accessToken string, force bool) (domain.Membership, error) {
	c.mu.Lock()
	e, ok := c.entries[userID]
	if !ok {
		e = &entry{}
		c.entries[userID] = e
	}

	if !force && !e.lastChecked.IsZero() && c.now().Sub(e.lastChecked) < c.ttl {
		status := e.status
		c.mu.Unlock()
		membershipCacheTotal.WithLabelValues("hit").Inc()
		return status, nil
	}

	if call := e.inflight; call != nil {
		c.mu.Unlock()
		membershipCacheTotal.WithLabelValues("joined").Inc()
		select {
		case <-call.done:
			return call.status, nil
		case <-ctx.Done():
			return domain.InactiveMembership(), ctx.Err()
		}
	}

	call := &fetchCall{done: make(chan struct{})}
	e.inflight = call
	c.mu.Unlock()

	status, err := c.fetcher.MembershipStatus(ctx, accessToken)

	c.mu.Lock()
	e.inflight = nil
	if err != nil {
		status = domain.InactiveMembership()
		membershipCacheTotal.WithLabelValues("error").Inc()
		c.logger.WarnContext(ctx, "membership fetch failed, caching inactive",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		membershipCacheTotal.WithLabelValues("miss").Inc()
	}
	e.status = status
	e.lastChecked = c.now()
	c.mu.Unlock()

	call.status = status
	close(call.done)
	return status, nil
}

// MarkChanged signals that the user's entitlement changed externally (a
// payment completed). After the propagation delay it forces a re-fetch without
// waiting for TTL expiry.
func (c *Cache) MarkChanged(userID, accessToken string) {
	c.afterFunc(c.delay, func() {
		if _, err := c.GetStatus(context.Background(), userID, accessToken, true); err != nil {
			c.logger.Warn("post-payment membership re-fetch failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	})
}

// Clear drops the user's cached entitlement (sign-out).
func (c *Cache) Clear(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}
