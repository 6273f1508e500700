package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/udara94/interpret-academy-client/internal/backend"
	"github.com/udara94/interpret-academy-client/internal/domain"
	apperrors "github.com/udara94/interpret-academy-client/pkg/apperrors"
)

// State is the session lifecycle state. It is evaluated lazily on every
// Resolve call, not advanced by a background timer.
type State int

const (
	StateUnauthenticated State = iota
	StateValid
	StateNeedsRefresh
	StateRefreshing
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateValid:
		return "valid"
	case StateNeedsRefresh:
		return "needs_refresh"
	case StateRefreshing:
		return "refreshing"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Refresher exchanges a refresh token for a rotated token pair.
// *backend.AuthClient satisfies this.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (backend.Credentials, error)
}

// Config holds the session lifecycle tuning knobs. The access-token lifetime
// is a client-side assumption, not derived from the credential, so it lives in
// configuration rather than as a literal.
type Config struct {
	// AccessTTL is the assumed access-token lifetime.
	AccessTTL time.Duration

	// RefreshMargin is how long before the estimated expiry a refresh is
	// attempted.
	RefreshMargin time.Duration

	// PollAttempts bounds the ForceUpdate convergence loop.
	PollAttempts int

	// PollDelay is the wait between ForceUpdate attempts.
	PollDelay time.Duration
}

// DefaultConfig returns the stock lifecycle tuning.
func DefaultConfig() Config {
	return Config{
		AccessTTL:     time.Hour,
		RefreshMargin: 5 * time.Minute,
		PollAttempts:  5,
		PollDelay:     300 * time.Millisecond,
	}
}

var sessionRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webclient_session_refresh_total",
		Help: "Total number of session refresh attempts by trigger and outcome",
	},
	[]string{"trigger", "outcome"},
)

// refreshCall is the shared in-flight refresh handle. Concurrent resolvers
// await done and observe the same token and error, so exactly one network
// refresh runs at a time; a rotating-refresh-token backend invalidates the
// pair on duplicate use.
type refreshCall struct {
	done chan struct{}
	tok  domain.Token
	err  error
}

// ResolveOptions controls session resolution.
type ResolveOptions struct {
	// RequireLanguage triggers the consistency-repair refresh when the cached
	// snapshot has no languageId: the selection may have been persisted
	// server-side after the token was issued and the snapshot must catch up.
	RequireLanguage bool
}

// Manager is the session refresh state machine for one browser session. It
// decides on every access whether the held token is usable as-is, must be
// refreshed, or is beyond recovery.
type Manager struct {
	cfg       Config
	store     *Store
	refresher Refresher
	logger    *slog.Logger

	mu       sync.Mutex
	state    State
	inflight *refreshCall

	// Injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewManager creates a session manager with an empty store.
func NewManager(cfg Config, refresher Refresher, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:       cfg,
		store:     NewStore(),
		refresher: refresher,
		logger:    logger,
		state:     StateUnauthenticated,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Establish installs a token bundle obtained from a credential exchange
// (login, signup, OAuth) and computes the client-side expiry estimate.
func (m *Manager) Establish(creds backend.Credentials) domain.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok := domain.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    m.now().Add(m.cfg.AccessTTL),
		User:         creds.User,
	}
	m.store.Set(tok)
	m.state = StateValid
	return tok
}

// Seed installs a previously issued token, preserving its expiry estimate.
// Used when a manager is rebuilt from the session cookie after eviction or a
// process restart.
func (m *Manager) Seed(tok domain.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.Set(tok)
	m.state = StateValid
}

// Clear drops the session. Idempotent: a second call observes the same
// unauthenticated state.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.Clear()
	m.state = StateUnauthenticated
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the held token without lifecycle evaluation.
func (m *Manager) Current() (domain.Token, bool) {
	return m.store.Get()
}

// Resolve returns a usable token, refreshing first when the token is inside
// its refresh margin or, when RequireLanguage is set, when the snapshot has no
// languageId yet (the consistency-repair path). A repair refresh that fails on
// a transient network error falls back to the stale-but-valid token; an
// expiry-driven refresh failure is fatal to the session.
func (m *Manager) Resolve(ctx context.Context, opts ResolveOptions) (domain.Token, error) {
	m.mu.Lock()
	tok, ok := m.store.Get()
	if !ok {
		m.state = StateUnauthenticated
		m.mu.Unlock()
		return domain.Token{}, apperrors.AuthenticationRequired("no active session")
	}

	fresh := tok.FreshAt(m.now(), m.cfg.RefreshMargin)
	if fresh && (!opts.RequireLanguage || tok.User.HasLanguage()) {
		m.state = StateValid
		m.mu.Unlock()
		return tok, nil
	}

	if fresh {
		// Consistency repair: token fresh, snapshot stale.
		return m.refreshLocked(ctx, tok, "repair", true)
	}

	m.state = StateNeedsRefresh
	if tok.RefreshToken == "" {
		m.invalidateLocked()
		m.mu.Unlock()
		return domain.Token{}, apperrors.AuthenticationRequired("refresh token missing, sign in again")
	}
	return m.refreshLocked(ctx, tok, "expiry", false)
}

// ForceRefresh performs an immediate refresh regardless of expiry. Callers use
// it when the platform rejects an otherwise-valid access token with a 401,
// which means the client's expiry estimate was wrong. Failure is fatal to the
// session, as with an expiry-driven refresh.
func (m *Manager) ForceRefresh(ctx context.Context) (domain.Token, error) {
	m.mu.Lock()
	tok, ok := m.store.Get()
	if !ok {
		m.state = StateUnauthenticated
		m.mu.Unlock()
		return domain.Token{}, apperrors.AuthenticationRequired("no active session")
	}
	if tok.RefreshToken == "" {
		m.invalidateLocked()
		m.mu.Unlock()
		return domain.Token{}, apperrors.AuthenticationRequired("refresh token missing, sign in again")
	}
	return m.refreshLocked(ctx, tok, "forced", false)
}

// ForceUpdate polls for the refreshed snapshot to satisfy expect after a
// server-side profile mutation (e.g. language selection). It refreshes up to
// PollAttempts times, PollDelay apart. When the bound is exhausted it gives up
// and returns the latest token with converged=false: the caller proceeds
// optimistically, assuming the backend write succeeded even though the
// client-visible snapshot has not caught up.
func (m *Manager) ForceUpdate(ctx context.Context, expect func(domain.User) bool) (tok domain.Token, converged bool, err error) {
	for attempt := 0; attempt < m.cfg.PollAttempts; attempt++ {
		if attempt > 0 {
			if err := m.sleep(ctx, m.cfg.PollDelay); err != nil {
				return domain.Token{}, false, err
			}
		}

		m.mu.Lock()
		cur, ok := m.store.Get()
		if !ok {
			m.state = StateUnauthenticated
			m.mu.Unlock()
			return domain.Token{}, false, apperrors.AuthenticationRequired("no active session")
		}
		if cur.RefreshToken == "" {
			m.invalidateLocked()
			m.mu.Unlock()
			return domain.Token{}, false, apperrors.AuthenticationRequired("refresh token missing, sign in again")
		}

		tok, err = m.refreshLocked(ctx, cur, "repair", true)
		if err != nil {
			return domain.Token{}, false, err
		}
		if expect(tok.User) {
			return tok, true, nil
		}
	}

	m.logger.Warn("snapshot did not converge, proceeding optimistically",
		slog.Int("attempts", m.cfg.PollAttempts),
	)
	tok, _ = m.store.Get()
	return tok, false, nil
}

// invalidateLocked clears the store and marks the session beyond recovery.
// Caller holds m.mu.
func (m *Manager) invalidateLocked() {
	m.store.Clear()
	m.state = StateInvalid
}

// refreshLocked runs the single-flight refresh. Caller holds m.mu; it is
// released before any blocking wait or network call. When nonFatalNet is set
// (the repair path), a transient network failure resolves to the stale token
// instead of invalidating the session.
func (m *Manager) refreshLocked(ctx context.Context, stale domain.Token, trigger string, nonFatalNet bool) (domain.Token, error) {
	if call := m.inflight; call != nil {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.tok, call.err
		case <-ctx.Done():
			return domain.Token{}, ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	m.inflight = call
	m.state = StateRefreshing
	m.mu.Unlock()

	creds, err := m.refresher.Refresh(ctx, stale.RefreshToken)

	m.mu.Lock()
	m.inflight = nil
	switch {
	case err == nil:
		// Rotate all four fields atomically; partial update is disallowed.
		tok := domain.Token{
			AccessToken:  creds.AccessToken,
			RefreshToken: creds.RefreshToken,
			ExpiresAt:    m.now().Add(m.cfg.AccessTTL),
			User:         creds.User,
		}
		m.store.Set(tok)
		m.state = StateValid
		call.tok = tok
		sessionRefreshTotal.WithLabelValues(trigger, "success").Inc()

	case nonFatalNet && apperrors.IsTransient(err):
		// Fall back to the stale-but-valid token rather than forcing logout.
		m.state = StateValid
		call.tok = stale
		sessionRefreshTotal.WithLabelValues(trigger, "network_error").Inc()
		m.logger.WarnContext(ctx, "repair refresh failed, keeping stale token",
			slog.String("error", err.Error()),
		)

	default:
		m.invalidateLocked()
		call.err = apperrors.AuthenticationRequired("session refresh failed, sign in again")
		sessionRefreshTotal.WithLabelValues(trigger, "failure").Inc()
		m.logger.WarnContext(ctx, "session refresh failed, session invalidated",
			slog.String("trigger", trigger),
			slog.String("error", err.Error()),
		)
	}
	m.mu.Unlock()
	close(call.done)

	return call.tok, call.err
}
