package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/udara94/interpret-academy-client/internal/backend"
	"github.com/udara94/interpret-academy-client/internal/config"
	"github.com/udara94/interpret-academy-client/internal/gate"
	handlerhttp "github.com/udara94/interpret-academy-client/internal/handler/http"
	"github.com/udara94/interpret-academy-client/internal/membership"
	intmw "github.com/udara94/interpret-academy-client/internal/middleware"
	"github.com/udara94/interpret-academy-client/internal/session"
	"github.com/udara94/interpret-academy-client/pkg/health"
	"github.com/udara94/interpret-academy-client/pkg/httpclient"
	pkgmw "github.com/udara94/interpret-academy-client/pkg/middleware"
	"github.com/udara94/interpret-academy-client/pkg/tracing"
)

const serviceName = "webclient"

// App wires together all dependencies and runs the web client backend.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	httpServer     *http.Server
	registry       *session.Registry
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance. The web client holds no database
// or broker connections; its only external dependency is the platform API.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TracingSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Two transports against the platform API. Credential exchange must never
	// be replayed (the refresh token rotates on use), so it goes through the
	// retry-free client. Reads and payment calls go through the retrying
	// client behind a circuit breaker.
	credentialHTTP := httpclient.New(func() httpclient.Config {
		c := httpclient.NoRetryConfig()
		c.Timeout = cfg.HTTPClientTimeout
		return c
	}())
	platformHTTP := httpclient.New(func() httpclient.Config {
		c := httpclient.DefaultConfig()
		c.Timeout = cfg.HTTPClientTimeout
		return c
	}())
	platformCB := httpclient.NewCircuitBreakerClient(
		platformHTTP,
		httpclient.DefaultCircuitBreakerConfig("platform-api"),
		logger,
	)

	credentialBase := backend.NewClient(cfg.PlatformAPIURL, credentialHTTP, logger)
	platformBase := backend.NewClient(cfg.PlatformAPIURL, platformCB, logger)

	authClient := backend.NewAuthClient(credentialBase)
	profileClient := backend.NewProfileClient(platformBase)
	paymentsClient := backend.NewPaymentsClient(platformBase)
	contentClient := backend.NewContentClient(platformBase)

	// Session machinery: cookie codec, per-session refresh managers.
	sessionCfg := session.Config{
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshMargin: cfg.RefreshMargin,
		PollAttempts:  cfg.SnapshotPollAttempts,
		PollDelay:     cfg.SnapshotPollDelay,
	}
	codec := session.NewCodec(cfg.SessionSecret, cfg.SessionMaxAge, cfg.IsProduction())
	registry := session.NewRegistry(sessionCfg, authClient, cfg.SessionRegistryTTL, logger)

	membershipCache := membership.NewCache(paymentsClient, cfg.MembershipCacheTTL, cfg.MembershipRefetchDelay, logger)
	contentGate := gate.New(membershipCache, logger)
	guard := intmw.NewGuard(codec, registry, logger)

	// Health checks: platform API reachability is reported but non-critical;
	// with the platform down this service still answers navigation decisions
	// from cached sessions.
	healthHandler := health.NewHandler()
	healthHandler.RegisterNonCritical("platform_api", func(ctx context.Context) error {
		u, err := url.Parse(cfg.PlatformAPIURL)
		if err != nil {
			return fmt.Errorf("parse platform API URL: %w", err)
		}
		host := u.Host
		if u.Port() == "" {
			if u.Scheme == "https" {
				host += ":443"
			} else {
				host += ":80"
			}
		}
		d := net.Dialer{Timeout: 2 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", host)
		if err != nil {
			return fmt.Errorf("platform API unreachable: %w", err)
		}
		_ = conn.Close()
		return nil
	})

	router := handlerhttp.NewRouter(handlerhttp.Deps{
		Logger:     logger,
		Auth:       handlerhttp.NewAuthHandler(authClient, codec, registry, membershipCache, logger),
		Navigation: handlerhttp.NewNavigationHandler(guard, logger),
		Language:   handlerhttp.NewLanguageHandler(contentClient, profileClient, guard, logger),
		Content:    handlerhttp.NewContentHandler(contentClient, contentGate, logger),
		Payments:   handlerhttp.NewPaymentsHandler(paymentsClient, membershipCache, logger),
		Guard:      guard,
		Health:     healthHandler,
		CORS: pkgmw.CORSConfig{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowCredentials: true,
			Environment:      cfg.Environment,
		},
		AuthRPS:        cfg.AuthRateLimitRPS,
		AuthBurst:      cfg.AuthRateLimitBurst,
		RequestTimeout: cfg.RequestTimeout,
		ServiceName:    serviceName,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		httpServer:     httpServer,
		registry:       registry,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Session registry (stop the eviction loop)
// 3. Tracer (flush pending spans from drained requests)
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.registry.Close()

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
