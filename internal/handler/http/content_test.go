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

// contentPlatform is a fake platform API hosting one dialog and one word
// category, with hit counters on the paywalled payload endpoints.
type contentPlatform struct {
	mux *http.ServeMux

	membershipActive bool

	membershipHits counter
	segmentHits    counter
	wordHits       counter
	refreshHits    counter
}

func newContentPlatform(dialogFree, membershipActive bool) *contentPlatform {
	p := &contentPlatform{mux: http.NewServeMux(), membershipActive: membershipActive}

	p.mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writePlatformData(w, platformCredentials("at-1", "rt-1", "lang-es"))
	})
	p.mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		p.refreshHits.inc()
		writePlatformData(w, platformCredentials("at-2", "rt-2", "lang-es"))
	})
	p.mux.HandleFunc("GET /payments/membership-status", func(w http.ResponseWriter, r *http.Request) {
		p.membershipHits.inc()
		writePlatformData(w, map[string]any{"isActive": p.membershipActive})
	})
	p.mux.HandleFunc("GET /dialogs/dlg-1", func(w http.ResponseWriter, r *http.Request) {
		writePlatformData(w, map[string]any{
			"id": "dlg-1", "title": "At the clinic", "languageId": "lang-es", "isFree": dialogFree,
		})
	})
	p.mux.HandleFunc("GET /segments", func(w http.ResponseWriter, r *http.Request) {
		p.segmentHits.inc()
		writePlatformData(w, []map[string]any{
			{"id": "seg-1", "dialogId": "dlg-1", "order": 1, "text": "Hola", "translation": "Hello"},
		})
	})
	p.mux.HandleFunc("GET /word-categories/cat-1", func(w http.ResponseWriter, r *http.Request) {
		writePlatformData(w, map[string]any{"id": "cat-1", "name": "Anatomy", "isFree": dialogFree})
	})
	p.mux.HandleFunc("GET /words", func(w http.ResponseWriter, r *http.Request) {
		p.wordHits.inc()
		writePlatformData(w, []map[string]any{
			{"id": "w-1", "categoryId": "cat-1", "text": "hueso", "translation": "bone"},
		})
	})

	return p
}

func loginCookie(t *testing.T, e *env) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"sam@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := e.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	return sessionCookie(t, rec)
}

func TestSegmentsDeniedWithoutMembership(t *testing.T) {
	platform := newContentPlatform(false, false)
	e := newEnv(t, platform.mux)
	cookie := loginCookie(t, e)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dialogs/dlg-1/segments", nil)
	req.AddCookie(cookie)
	rec := e.do(req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MEMBERSHIP_REQUIRED", resp.Error.Code)
	assert.Zero(t, platform.segmentHits.get(), "denied requests must not dispatch the paywalled fetch")
}

func TestSegmentsForFreeDialogSkipEntitlementCheck(t *testing.T) {
	platform := newContentPlatform(true, false)
	e := newEnv(t, platform.mux)
	cookie := loginCookie(t, e)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dialogs/dlg-1/segments", nil)
	req.AddCookie(cookie)
	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var segments []domain.Segment
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &segments))
	require.Len(t, segments, 1)
	assert.Equal(t, "seg-1", segments[0].ID)
	assert.Zero(t, platform.membershipHits.get(), "free content must not cost an entitlement fetch")
}

func TestSegmentsAllowedWithActiveMembership(t *testing.T) {
	platform := newContentPlatform(false, true)
	e := newEnv(t, platform.mux)
	cookie := loginCookie(t, e)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dialogs/dlg-1/segments", nil)
	req.AddCookie(cookie)
	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), platform.membershipHits.get())
	assert.Equal(t, int64(1), platform.segmentHits.get())
}

func TestWordsDeniedWithoutMembership(t *testing.T) {
	platform := newContentPlatform(false, false)
	e := newEnv(t, platform.mux)
	cookie := loginCookie(t, e)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vocabulary/categories/cat-1/words", nil)
	req.AddCookie(cookie)
	rec := e.do(req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, platform.wordHits.get())
}

func TestContentWithoutLanguageTriggersRepairRefresh(t *testing.T) {
	var refreshes counter
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writePlatformData(w, platformCredentials("at-1", "rt-1", ""))
	})
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshes.inc()
		// Backend truth: still no language selected.
		writePlatformData(w, platformCredentials("at-2", "rt-2", ""))
	})
	e := newEnv(t, mux)
	cookie := loginCookie(t, e)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dialogs", nil)
	req.AddCookie(cookie)
	rec := e.do(req)

	// The repaired snapshot still has no language, so the request is rejected
	// as incomplete setup, not as an authentication failure.
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
	assert.Equal(t, int64(1), refreshes.get(), "missing language on a content route forces one snapshot refresh")
}

func TestExpiredAccessTokenIsRefreshedAndRetried(t *testing.T) {
	var refreshes counter
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writePlatformData(w, platformCredentials("at-1", "rt-1", "lang-es"))
	})
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshes.inc()
		writePlatformData(w, platformCredentials("at-2", "rt-2", "lang-es"))
	})
	mux.HandleFunc("GET /languages", func(w http.ResponseWriter, r *http.Request) {
		// The platform considers at-1 already expired despite the client's
		// freshness estimate.
		if r.Header.Get("Authorization") != "Bearer at-2" {
			writePlatformError(w, http.StatusUnauthorized, "token expired")
			return
		}
		writePlatformData(w, []map[string]any{{"id": "lang-es", "name": "Spanish", "code": "es"}})
	})
	e := newEnv(t, mux)
	cookie := loginCookie(t, e)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/languages", nil)
	req.AddCookie(cookie)
	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var languages []domain.Language
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &languages))
	require.Len(t, languages, 1)
	assert.Equal(t, "Spanish", languages[0].Name)
	assert.Equal(t, int64(1), refreshes.get(), "a platform 401 on a believed-fresh token forces exactly one refresh")
}

func TestSelectLanguageConvergesSnapshot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writePlatformData(w, platformCredentials("at-1", "rt-1", ""))
	})
	mux.HandleFunc("PUT /profile/language", func(w http.ResponseWriter, r *http.Request) {
		writePlatformData(w, map[string]any{
			"message": "language updated",
			"user":    platformUser("lang-es"),
		})
	})
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		writePlatformData(w, platformCredentials("at-2", "rt-2", "lang-es"))
	})
	e := newEnv(t, mux)
	cookie := loginCookie(t, e)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile/language",
		strings.NewReader(`{"languageId":"lang-es"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var data SelectLanguageResponse
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &data))
	assert.True(t, data.Converged)
	require.NotNil(t, data.User.LanguageID)
	assert.Equal(t, "lang-es", *data.User.LanguageID)
	assert.Equal(t, "/dashboard", data.RedirectTo)

	// The rotated pair must be re-issued to the browser.
	reissued := sessionCookie(t, rec)
	assert.NotEqual(t, cookie.Value, reissued.Value)
}
