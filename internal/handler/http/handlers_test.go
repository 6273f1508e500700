package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/udara94/interpret-academy-client/internal/backend"
	"github.com/udara94/interpret-academy-client/internal/gate"
	"github.com/udara94/interpret-academy-client/internal/membership"
	intmw "github.com/udara94/interpret-academy-client/internal/middleware"
	"github.com/udara94/interpret-academy-client/internal/session"
	"github.com/udara94/interpret-academy-client/pkg/health"
	"github.com/udara94/interpret-academy-client/pkg/httpclient"
	"github.com/udara94/interpret-academy-client/pkg/httputil"
	pkgmw "github.com/udara94/interpret-academy-client/pkg/middleware"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writePlatformData emulates a platform API success envelope.
func writePlatformData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"statusCode": 200, "data": data})
}

// writePlatformError emulates a platform API error envelope.
func writePlatformError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"statusCode": status, "message": message})
}

// platformUser builds the user snapshot payload; languageID "" means no
// language selected yet.
func platformUser(languageID string) map[string]any {
	u := map[string]any{
		"id":       "user-1",
		"email":    "sam@example.com",
		"username": "sam",
	}
	if languageID != "" {
		u["languageId"] = languageID
	}
	return u
}

func platformCredentials(accessToken, refreshToken, languageID string) map[string]any {
	return map[string]any{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user":         platformUser(languageID),
	}
}

// env is a full handler stack over a fake platform API, wired the same way the
// application wires production dependencies.
type env struct {
	router   http.Handler
	registry *session.Registry
}

func newEnv(t *testing.T, platform http.Handler) *env {
	t.Helper()

	srv := httptest.NewServer(platform)
	t.Cleanup(srv.Close)

	log := testLogger()
	base := backend.NewClient(srv.URL, httpclient.New(httpclient.NoRetryConfig()), log)
	authClient := backend.NewAuthClient(base)
	profileClient := backend.NewProfileClient(base)
	paymentsClient := backend.NewPaymentsClient(base)
	contentClient := backend.NewContentClient(base)

	sessionCfg := session.DefaultConfig()
	sessionCfg.PollDelay = time.Millisecond

	codec := session.NewCodec("handler-test-secret-0123456789abcdef", time.Hour, false)
	registry := session.NewRegistry(sessionCfg, authClient, time.Hour, log)
	t.Cleanup(registry.Close)

	cache := membership.NewCache(paymentsClient, 30*time.Second, time.Millisecond, log)
	contentGate := gate.New(cache, log)
	guard := intmw.NewGuard(codec, registry, log)

	router := NewRouter(Deps{
		Logger:     log,
		Auth:       NewAuthHandler(authClient, codec, registry, cache, log),
		Navigation: NewNavigationHandler(guard, log),
		Language:   NewLanguageHandler(contentClient, profileClient, guard, log),
		Content:    NewContentHandler(contentClient, contentGate, log),
		Payments:   NewPaymentsHandler(paymentsClient, cache, log),
		Guard:      guard,
		Health:     health.NewHandler(),
		CORS:       pkgmw.DefaultCORSConfig(),

		AuthRPS:        100,
		AuthBurst:      100,
		RequestTimeout: 5 * time.Second,
		ServiceName:    "webclient-test",
	})

	return &env{router: router, registry: registry}
}

// do runs a request through the router and returns the recorder.
func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// sessionCookie extracts the session cookie from a login response.
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

// apiResponse decodes the client-facing response envelope, with Data left raw
// for per-test decoding.
type apiResponse struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return resp
}

// counter is a concurrency-safe hit counter for fake platform endpoints.
type counter struct {
	n atomic.Int64
}

func (c *counter) inc()       { c.n.Add(1) }
func (c *counter) get() int64 { return c.n.Load() }
