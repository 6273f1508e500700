package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/udara94/interpret-academy-client/internal/domain"
	"github.com/udara94/interpret-academy-client/internal/session"
	apperrors "github.com/udara94/interpret-academy-client/pkg/apperrors"
	"github.com/udara94/interpret-academy-client/pkg/httputil"
	pkgmw "github.com/udara94/interpret-academy-client/pkg/middleware"
)

// RouteClass is the static authorization classification of a navigation path.
type RouteClass int

const (
	// RoutePublic is reachable with or without a session.
	RoutePublic RouteClass = iota
	// RouteAuthOnly redirects away when a valid session exists (login,
	// register).
	RouteAuthOnly
	// RouteProtected requires a valid session.
	RouteProtected
)

const (
	// LoginPath is where unauthenticated protected-route access lands.
	LoginPath = "/login"
	// DashboardPath is the authenticated home.
	DashboardPath = "/dashboard"
	// SelectLanguagePath hosts first-time language selection.
	SelectLanguagePath = "/select-language"
)

var authOnlyPaths = map[string]struct{}{
	LoginPath:   {},
	"/register": {},
}

var publicPaths = map[string]struct{}{
	"/":                 {},
	"/forgot-password":  {},
	"/reset-password":   {},
	SelectLanguagePath:  {},
	"/auth/callback":    {},
	"/payments/success": {},
	"/payments/error":   {},
}

// Classify returns the authorization class of a navigation path. The table is
// fixed: everything under /dashboard is protected, a handful of paths are
// public or auth-only, and unknown paths default to public.
func Classify(path string) RouteClass {
	if _, ok := authOnlyPaths[path]; ok {
		return RouteAuthOnly
	}
	if _, ok := publicPaths[path]; ok {
		return RoutePublic
	}
	if path == DashboardPath || strings.HasPrefix(path, DashboardPath+"/") {
		return RouteProtected
	}
	if strings.HasPrefix(path, "/health") || path == "/metrics" {
		return RoutePublic
	}
	return RoutePublic
}

// Decision is the guard's verdict for one navigation.
type Decision struct {
	Allow      bool   `json:"allow"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

// Decide evaluates the navigation rules for a path given the current session
// validity. The select-language special rule: a valid session with no language
// may visit the selection page, one with a language is sent onward.
func Decide(path string, authenticated bool, user domain.User) Decision {
	switch Classify(path) {
	case RouteProtected:
		if !authenticated {
			return Decision{RedirectTo: LoginPath}
		}
	case RouteAuthOnly:
		if authenticated {
			return Decision{RedirectTo: PostLoginRedirect(user)}
		}
	}

	if path == SelectLanguagePath && authenticated && user.HasLanguage() {
		return Decision{RedirectTo: DashboardPath}
	}

	return Decision{Allow: true}
}

// PostLoginRedirect returns where a fresh login should land: language
// selection first when the snapshot has no language, the dashboard otherwise.
func PostLoginRedirect(user domain.User) string {
	if !user.HasLanguage() {
		return SelectLanguagePath
	}
	return DashboardPath
}

// Guard resolves the session cookie and enforces route authorization. Session
// resolution goes through the Manager, so passing the guard may itself
// trigger a refresh.
type Guard struct {
	codec    *session.Codec
	registry *session.Registry
	logger   *slog.Logger
}

// NewGuard creates a route authorization guard.
func NewGuard(codec *session.Codec, registry *session.Registry, logger *slog.Logger) *Guard {
	return &Guard{codec: codec, registry: registry, logger: logger}
}

// RequireSession returns middleware that rejects requests without a valid
// session. requireLanguage additionally triggers the consistency-repair
// refresh when the snapshot has no languageId; content routes set it, the
// selection flow itself does not.
func (g *Guard) RequireSession(requireLanguage bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := g.Resolve(w, r, requireLanguage)
			if err != nil {
				httputil.WriteError(w, r, err, g.logger)
				return
			}

			ctx := WithSession(r.Context(), sess)
			ctx = pkgmw.WithUserID(ctx, sess.Token.User.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Resolve validates the session cookie, runs the token through the refresh
// state machine, and re-issues the cookie when the token pair rotated. An
// invalid session clears the cookie and evicts the manager so the next
// request starts clean.
func (g *Guard) Resolve(w http.ResponseWriter, r *http.Request, requireLanguage bool) (*Session, error) {
	sid, cookieTok, err := g.codec.ReadCookie(r)
	if err != nil {
		return nil, err
	}

	mgr := g.registry.GetOrSeed(sid, cookieTok)
	tok, err := mgr.Resolve(r.Context(), session.ResolveOptions{RequireLanguage: requireLanguage})
	if err != nil {
		if apperrors.IsAuthenticationRequired(err) {
			g.codec.ClearCookie(w)
			g.registry.Remove(sid)
		}
		return nil, err
	}

	if tok.AccessToken != cookieTok.AccessToken {
		g.reissueCookie(w, r, sid, tok)
	}

	return &Session{SID: sid, Token: tok, Manager: mgr}, nil
}

// ReissueCookie writes a fresh session cookie for a rotated token.
func (g *Guard) ReissueCookie(w http.ResponseWriter, r *http.Request, sid string, tok domain.Token) {
	g.reissueCookie(w, r, sid, tok)
}

func (g *Guard) reissueCookie(w http.ResponseWriter, r *http.Request, sid string, tok domain.Token) {
	value, err := g.codec.Encode(sid, tok)
	if err != nil {
		// The in-process manager still holds the rotated pair; the stale
		// cookie only matters after eviction or restart.
		g.logger.ErrorContext(r.Context(), "failed to re-issue session cookie",
			slog.String("error", err.Error()),
		)
		return
	}
	g.codec.SetCookie(w, value)
}
