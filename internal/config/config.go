package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/udara94/interpret-academy-client/pkg/config"
)

const devSessionSecret = "dev-session-secret-do-not-use-in-prod"

// Config holds the web client configuration. Every lifecycle constant the
// session machinery depends on (token TTL, refresh margin, poll bounds,
// membership cache TTL) is configuration, not a literal.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// PlatformAPIURL is the base URL of the remote platform API.
	PlatformAPIURL string `env:"PLATFORM_API_URL" envDefault:"http://localhost:3001/api"`

	// SessionSecret signs the session cookie.
	SessionSecret string `env:"SESSION_SECRET" envDefault:"dev-session-secret-do-not-use-in-prod"`

	// SessionMaxAge bounds the session cookie (default 7 days).
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"168h"`

	// SessionRegistryTTL evicts in-memory session managers not seen within it.
	SessionRegistryTTL time.Duration `env:"SESSION_REGISTRY_TTL" envDefault:"24h"`

	// AccessTokenTTL is the assumed access-token lifetime; the platform does
	// not report one.
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`

	// RefreshMargin is how long before the estimated expiry a refresh runs.
	RefreshMargin time.Duration `env:"REFRESH_MARGIN" envDefault:"5m"`

	// SnapshotPollAttempts / SnapshotPollDelay bound the post-write
	// convergence poll.
	SnapshotPollAttempts int           `env:"SNAPSHOT_POLL_ATTEMPTS" envDefault:"5"`
	SnapshotPollDelay    time.Duration `env:"SNAPSHOT_POLL_DELAY" envDefault:"300ms"`

	// MembershipCacheTTL / MembershipRefetchDelay tune the entitlement cache.
	MembershipCacheTTL     time.Duration `env:"MEMBERSHIP_CACHE_TTL" envDefault:"30s"`
	MembershipRefetchDelay time.Duration `env:"MEMBERSHIP_REFETCH_DELAY" envDefault:"1s"`

	// HTTPClientTimeout is the per-call timeout against the platform API;
	// hitting it is treated as a network failure.
	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"10s"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	AuthRateLimitRPS   int `env:"AUTH_RATE_LIMIT_RPS" envDefault:"5"`
	AuthRateLimitBurst int `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	TracingEnabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint      string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.PlatformAPIURL == "" {
		return fmt.Errorf("PLATFORM_API_URL is required")
	}
	if c.IsProduction() {
		if c.SessionSecret == devSessionSecret {
			return fmt.Errorf("SESSION_SECRET must be set in production")
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
		}
	}
	if c.RefreshMargin >= c.AccessTokenTTL {
		return fmt.Errorf("REFRESH_MARGIN (%s) must be shorter than ACCESS_TOKEN_TTL (%s)", c.RefreshMargin, c.AccessTokenTTL)
	}
	if c.SnapshotPollAttempts < 1 {
		return fmt.Errorf("SNAPSHOT_POLL_ATTEMPTS must be at least 1")
	}
	return nil
}
