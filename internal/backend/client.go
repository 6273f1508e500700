package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/udara94/interpret-academy-client/pkg/apperrors"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

var backendRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webclient_backend_requests_total",
		Help: "Total number of platform API requests by endpoint and outcome",
	},
	[]string{"endpoint", "outcome"},
)

// Client is the shared base for all platform API clients. It owns request
// construction, bearer-token injection, and envelope decoding; the typed
// clients (auth, profile, payments, content) layer operations on top.
type Client struct {
	baseURL string
	http    HTTPDoer
	logger  *slog.Logger
}

// NewClient creates a base platform API client.
func NewClient(baseURL string, doer HTTPDoer, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		logger:  logger,
	}
}

// get performs an authenticated GET and decodes the envelope data into out.
func (c *Client) get(ctx context.Context, path, bearer string, out any) error {
	return c.send(ctx, http.MethodGet, path, bearer, nil, out)
}

// send performs a request against the platform API. A non-empty bearer is
// attached as `Authorization: Bearer <token>`. Network failures, including
// client-side timeouts, are converted to the transient class at this boundary
// and never propagate as raw transport errors.
func (c *Client) send(ctx context.Context, method, path, bearer string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	endpoint := method + " " + routeLabel(path)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		backendRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		if errors.Is(err, context.Canceled) {
			return err
		}
		c.logger.WarnContext(ctx, "platform API unreachable",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return apperrors.TransientNetwork("platform API unreachable", err)
	}
	defer resp.Body.Close()

	if err := decodeEnvelope(resp, out); err != nil {
		backendRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return err
	}

	backendRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

// routeLabel strips the query string so metric labels stay low-cardinality.
func routeLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
