package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/udara94/interpret-academy-client/internal/middleware"
	"github.com/udara94/interpret-academy-client/pkg/health"
	pkgmw "github.com/udara94/interpret-academy-client/pkg/middleware"
)

// Deps bundles everything the router mounts.
type Deps struct {
	Logger     *slog.Logger
	Auth       *AuthHandler
	Navigation *NavigationHandler
	Language   *LanguageHandler
	Content    *ContentHandler
	Payments   *PaymentsHandler
	Guard      *middleware.Guard
	Health     *health.Handler

	CORS           pkgmw.CORSConfig
	AuthRPS        int
	AuthBurst      int
	RequestTimeout time.Duration
	ServiceName    string
}

// NewRouter builds the HTTP surface. Credential endpoints sit behind the
// per-IP rate limit; content routes additionally require a completed language
// selection (the guard's repair refresh runs for them).
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(pkgmw.Recovery(d.Logger))
	r.Use(pkgmw.CORS(d.CORS))
	r.Use(chimw.Timeout(d.RequestTimeout))
	r.Use(pkgmw.RequestLogging(d.Logger))
	r.Use(pkgmw.PrometheusMetrics())
	r.Use(pkgmw.Tracing(d.ServiceName))
	r.Use(pkgmw.RequestLogger(d.Logger))

	r.Get("/health/live", d.Health.LivenessHandler())
	r.Get("/health/ready", d.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Use(middleware.RateLimit(d.AuthRPS, d.AuthBurst, d.Logger))
			auth.Post("/login", d.Auth.Login)
			auth.Post("/register", d.Auth.Register)
			auth.Post("/google", d.Auth.GoogleCallback)
			auth.Post("/logout", d.Auth.Logout)
			auth.Post("/forgot-password", d.Auth.ForgotPassword)
			auth.Post("/reset-password", d.Auth.ResetPassword)
		})

		api.Get("/navigation/decision", d.Navigation.Decide)

		// Session required; language selection may still be pending.
		api.Group(func(pr chi.Router) {
			pr.Use(d.Guard.RequireSession(false))
			pr.Get("/session", d.Auth.Session)
			pr.Get("/languages", d.Language.List)
			pr.Put("/profile/language", d.Language.Select)
			pr.Get("/payments/products", d.Payments.Products)
			pr.Get("/payments/membership", d.Payments.Membership)
			pr.Post("/payments/checkout", d.Payments.CreateCheckout)
			pr.Get("/payments/verify", d.Payments.Verify)
		})

		// Content routes need a language on the snapshot.
		api.Group(func(pr chi.Router) {
			pr.Use(d.Guard.RequireSession(true))
			pr.Get("/dialogs", d.Content.ListDialogs)
			pr.Get("/dialogs/{dialogID}", d.Content.GetDialog)
			pr.Get("/dialogs/{dialogID}/segments", d.Content.GetSegments)
			pr.Get("/vocabulary/categories", d.Content.ListCategories)
			pr.Get("/vocabulary/categories/{categoryID}/words", d.Content.GetWords)
		})
	})

	return r
}
