package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udara94/interpret-academy-client/internal/domain"
)

func TestLoginIssuesSessionAndRedirectsToLanguageSelection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sam@example.com", body["email"])
		writePlatformData(w, platformCredentials("at-1", "rt-1", ""))
	})
	e := newEnv(t, mux)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"sam@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(t, rec)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	var data SessionResponse
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &data))
	assert.Equal(t, "/select-language", data.RedirectTo, "no language chosen yet, selection comes first")
	assert.NotZero(t, data.ExpiresAt)
}

func TestLoginWithLanguageRedirectsToDashboard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writePlatformData(w, platformCredentials("at-1", "rt-1", "lang-es"))
	})
	e := newEnv(t, mux)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"sam@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var data SessionResponse
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &data))
	assert.Equal(t, "/dashboard", data.RedirectTo)
}

func TestLoginRejectedByPlatform(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writePlatformError(w, http.StatusUnauthorized, "invalid credentials")
	})
	e := newEnv(t, mux)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"sam@example.com","password":"wrong-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := e.do(req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "AUTHENTICATION_REQUIRED", resp.Error.Code)
}

func TestLoginValidationDoesNotReachPlatform(t *testing.T) {
	var hits counter
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits.inc()
		writePlatformError(w, http.StatusBadRequest, "unexpected")
	})
	e := newEnv(t, mux)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"not-an-email","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := e.do(req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "email")
	assert.Contains(t, resp.Error.Fields, "password")
	assert.Zero(t, hits.get(), "rejected payloads must not hit the platform")
}

func TestSessionEndpointWithoutCookie(t *testing.T) {
	e := newEnv(t, http.NewServeMux())

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "AUTHENTICATION_REQUIRED", resp.Error.Code)
}

func TestSessionEndpointReturnsSnapshotWithoutRefresh(t *testing.T) {
	var refreshes counter
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writePlatformData(w, platformCredentials("at-1", "rt-1", "lang-es"))
	})
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshes.inc()
		writePlatformData(w, platformCredentials("at-2", "rt-2", "lang-es"))
	})
	e := newEnv(t, mux)

	login := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"sam@example.com","password":"secret1"}`))
	login.Header.Set("Content-Type", "application/json")
	cookie := sessionCookie(t, e.do(login))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.AddCookie(cookie)
	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		User domain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &data))
	assert.Equal(t, "user-1", data.User.ID)
	assert.Zero(t, refreshes.get(), "a fresh token must be used as-is")
}

func TestLogoutIsIdempotent(t *testing.T) {
	e := newEnv(t, http.NewServeMux())

	rec := e.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	cookie := sessionCookie(t, rec)
	assert.Less(t, cookie.MaxAge, 0, "logout clears the cookie even without a session")
}

func TestNavigationDecisionAnonymousOnProtectedPath(t *testing.T) {
	e := newEnv(t, http.NewServeMux())

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/v1/navigation/decision?path=/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var decision struct {
		Allow      bool   `json:"allow"`
		RedirectTo string `json:"redirectTo"`
	}
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &decision))
	assert.False(t, decision.Allow)
	assert.Equal(t, "/login", decision.RedirectTo)
}

func TestNavigationDecisionAuthenticatedOnLoginPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writePlatformData(w, platformCredentials("at-1", "rt-1", ""))
	})
	e := newEnv(t, mux)

	login := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"sam@example.com","password":"secret1"}`))
	login.Header.Set("Content-Type", "application/json")
	cookie := sessionCookie(t, e.do(login))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/navigation/decision?path=/login", nil)
	req.AddCookie(cookie)
	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var decision struct {
		Allow      bool   `json:"allow"`
		RedirectTo string `json:"redirectTo"`
	}
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &decision))
	assert.False(t, decision.Allow)
	assert.Equal(t, "/select-language", decision.RedirectTo, "signed-in user without language leaves auth pages for selection")
}

func TestNavigationDecisionRejectsRelativePath(t *testing.T) {
	e := newEnv(t, http.NewServeMux())

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/v1/navigation/decision?path=dashboard", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}
