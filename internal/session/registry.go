package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/udara94/interpret-academy-client/internal/domain"
)

// entry tracks a manager per browser session.
type entry struct {
	manager  *Manager
	lastSeen time.Time
}

// Registry manages per-session-ID managers with automatic cleanup of stale
// entries. Routing all requests for the same browser session through one
// Manager gives cross-request single-flight: concurrent tabs share one
// refresh instead of racing the rotating refresh token.
type Registry struct {
	mu        sync.Mutex
	entries   map[string]*entry
	ttl       time.Duration
	cfg       Config
	refresher Refresher
	logger    *slog.Logger
	nowFunc   func() time.Time // injectable clock for testing
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewRegistry creates a registry whose managers share the given lifecycle
// configuration. It starts a background cleanup goroutine that evicts
// sessions not seen within the TTL; an evicted session is rebuilt from the
// cookie on its next request.
func NewRegistry(cfg Config, refresher Refresher, ttl time.Duration, logger *slog.Logger) *Registry {
	r := &Registry{
		entries:   make(map[string]*entry),
		ttl:       ttl,
		cfg:       cfg,
		refresher: refresher,
		logger:    logger,
		nowFunc:   time.Now,
		stop:      make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

// Get returns (or creates) the manager for the given session ID and updates
// lastSeen.
func (r *Registry) Get(sid string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[sid]
	if !exists {
		e = &entry{manager: NewManager(r.cfg, r.refresher, r.logger)}
		r.entries[sid] = e
	}
	e.lastSeen = r.now()
	return e.manager
}

// GetOrSeed returns the manager for the session ID, seeding a newly created
// one with the token carried by the cookie. An existing manager keeps its own
// state: within the process it is more current than the cookie, which is only
// re-issued on rotation.
func (r *Registry) GetOrSeed(sid string, tok domain.Token) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[sid]
	if !exists {
		m := NewManager(r.cfg, r.refresher, r.logger)
		m.Seed(tok)
		e = &entry{manager: m}
		r.entries[sid] = e
	}
	e.lastSeen = r.now()
	return e.manager
}

// Remove drops the session's manager (sign-out).
func (r *Registry) Remove(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sid)
}

// Close stops the cleanup goroutine.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// len returns the number of tracked sessions (used in tests).
func (r *Registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) now() time.Time {
	return r.nowFunc()
}

// cleanupLoop runs a ticker that evicts sessions not seen within the TTL.
func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stop:
			return
		}
	}
}

// cleanup evicts all sessions whose lastSeen is older than the TTL.
func (r *Registry) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for sid, e := range r.entries {
		if now.Sub(e.lastSeen) > r.ttl {
			delete(r.entries, sid)
		}
	}
}
