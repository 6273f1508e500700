package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udara94/interpret-academy-client/internal/backend"
	"github.com/udara94/interpret-academy-client/internal/domain"
	"github.com/udara94/interpret-academy-client/internal/session"
	apperrors "github.com/udara94/interpret-academy-client/pkg/apperrors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strptr(s string) *string { return &s }

func TestDecide(t *testing.T) {
	withLang := domain.User{ID: "u1", LanguageID: strptr("L1")}
	noLang := domain.User{ID: "u1"}

	tests := []struct {
		name          string
		path          string
		authenticated bool
		user          domain.User
		want          Decision
	}{
		{"protected unauthenticated redirects to login", "/dashboard", false, domain.User{}, Decision{RedirectTo: LoginPath}},
		{"nested protected unauthenticated redirects to login", "/dashboard/dialogs/d1", false, domain.User{}, Decision{RedirectTo: LoginPath}},
		{"protected authenticated allowed", "/dashboard", true, withLang, Decision{Allow: true}},
		{"login unauthenticated allowed", "/login", false, domain.User{}, Decision{Allow: true}},
		{"login authenticated with language redirects to dashboard", "/login", true, withLang, Decision{RedirectTo: DashboardPath}},
		{"login authenticated without language redirects to selection", "/login", true, noLang, Decision{RedirectTo: SelectLanguagePath}},
		{"register authenticated redirects away", "/register", true, withLang, Decision{RedirectTo: DashboardPath}},
		{"selection allowed while language unset", "/select-language", true, noLang, Decision{Allow: true}},
		{"selection redirects once language set", "/select-language", true, withLang, Decision{RedirectTo: DashboardPath}},
		{"selection allowed unauthenticated", "/select-language", false, domain.User{}, Decision{Allow: true}},
		{"root is public", "/", false, domain.User{}, Decision{Allow: true}},
		{"forgot password is public", "/forgot-password", false, domain.User{}, Decision{Allow: true}},
		{"unknown path defaults to public", "/pricing", false, domain.User{}, Decision{Allow: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.path, tt.authenticated, tt.user)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, RouteProtected, Classify("/dashboard"))
	assert.Equal(t, RouteProtected, Classify("/dashboard/vocabulary"))
	assert.Equal(t, RouteAuthOnly, Classify("/login"))
	assert.Equal(t, RouteAuthOnly, Classify("/register"))
	assert.Equal(t, RoutePublic, Classify("/"))
	assert.Equal(t, RoutePublic, Classify("/select-language"))
	assert.Equal(t, RoutePublic, Classify("/health/live"))
	assert.Equal(t, RoutePublic, Classify("/metrics"))
	// A prefix match must not leak onto sibling paths.
	assert.Equal(t, RoutePublic, Classify("/dashboarding"))
}

type stubRefresher struct {
	creds backend.Credentials
	err   error
	calls int
}

func (s *stubRefresher) Refresh(context.Context, string) (backend.Credentials, error) {
	s.calls++
	return s.creds, s.err
}

func newGuardFixture(t *testing.T, refresher session.Refresher) (*Guard, *session.Codec, *session.Registry) {
	t.Helper()
	codec := session.NewCodec("test-secret-at-least-32-bytes-long!!", 7*24*time.Hour, false)
	registry := session.NewRegistry(session.DefaultConfig(), refresher, time.Hour, newTestLogger())
	t.Cleanup(registry.Close)
	return NewGuard(codec, registry, newTestLogger()), codec, registry
}

func signedCookie(t *testing.T, codec *session.Codec, tok domain.Token) *http.Cookie {
	t.Helper()
	value, err := codec.Encode("sid-1", tok)
	require.NoError(t, err)
	return &http.Cookie{Name: session.CookieName, Value: value}
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireSessionWithoutCookieReturns401(t *testing.T) {
	g, _, _ := newGuardFixture(t, &stubRefresher{})

	var called bool
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/dialogs", nil)
	g.RequireSession(false)(okHandler(&called)).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}

func TestRequireSessionWithFreshTokenPassesAndSetsContext(t *testing.T) {
	ref := &stubRefresher{}
	g, codec, _ := newGuardFixture(t, ref)

	tok := domain.Token{
		AccessToken:  "AT1",
		RefreshToken: "RT1",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         domain.User{ID: "u1", LanguageID: strptr("L1")},
	}

	var gotSess *Session
	handler := g.RequireSession(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSess = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/dialogs", nil)
	r.AddCookie(signedCookie(t, codec, tok))
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotSess)
	assert.Equal(t, "AT1", gotSess.Token.AccessToken)
	assert.Equal(t, 0, ref.calls, "fresh token with language set must not refresh")
	assert.Empty(t, w.Result().Cookies(), "no rotation, no cookie re-issue")
}

func TestRequireSessionReissuesCookieOnRotation(t *testing.T) {
	ref := &stubRefresher{creds: backend.Credentials{
		AccessToken:  "AT2",
		RefreshToken: "RT2",
		User:         domain.User{ID: "u1", LanguageID: strptr("L1")},
	}}
	g, codec, _ := newGuardFixture(t, ref)

	// Token inside the refresh margin forces a rotation on resolve.
	tok := domain.Token{
		AccessToken:  "AT1",
		RefreshToken: "RT1",
		ExpiresAt:    time.Now().Add(time.Minute),
		User:         domain.User{ID: "u1", LanguageID: strptr("L1")},
	}

	var called bool
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/dialogs", nil)
	r.AddCookie(signedCookie(t, codec, tok))
	g.RequireSession(false)(okHandler(&called)).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ref.calls)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1, "rotated token must be re-issued to the browser")
	_, reissued, err := codec.Decode(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "AT2", reissued.AccessToken)
	assert.Equal(t, "RT2", reissued.RefreshToken)
}

func TestRequireSessionClearsCookieOnInvalidSession(t *testing.T) {
	ref := &stubRefresher{err: apperrors.AuthenticationRequired("invalid refresh token")}
	g, codec, _ := newGuardFixture(t, ref)

	tok := domain.Token{
		AccessToken:  "AT1",
		RefreshToken: "RT1",
		ExpiresAt:    time.Now().Add(-time.Hour),
		User:         domain.User{ID: "u1"},
	}

	var called bool
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/dialogs", nil)
	r.AddCookie(signedCookie(t, codec, tok))
	g.RequireSession(false)(okHandler(&called)).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0, "invalid session must clear the cookie")
}
