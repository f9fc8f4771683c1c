// Package cursor talks to the Cursor team dashboard API using a browser
// session cookie.
package cursor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/time/rate"

	"github.com/j-veylop/cursor-usage-dashboard/internal/logger"
)

// Dashboard endpoints, relative to the base URL.
const (
	endpointTeamSpend     = "/api/dashboard/get-team-spend"
	endpointUserAnalytics = "/api/dashboard/get-user-analytics"
	endpointTeamRawData   = "/api/dashboard/get-team-raw-data?format=csv"
)

// Config holds the client settings.
type Config struct {
	BaseURL string
	Cookie  string
	Timeout time.Duration

	// MaxRetries is the number of extra attempts for retryable failures.
	// Zero means a single attempt.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// RequestsPerSecond throttles outgoing calls. Zero disables throttling.
	RequestsPerSecond float64
	UserAgent         string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://cursor.com",
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		BaseDelay:         time.Second,
		MaxDelay:          60 * time.Second,
		RequestsPerSecond: 4,
		UserAgent:         "Mozilla/5.0 (compatible; cursor-usage-dashboard)",
	}
}

// Client is a Cursor dashboard API client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   failsafe.Executor[[]byte]
	cookie     string
	config     Config
}

// New creates a client. It fails when the cookie string has no usable pairs.
func New(config Config) (*Client, error) {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.BaseDelay == 0 {
		config.BaseDelay = defaults.BaseDelay
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = defaults.MaxDelay
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	if _, err := ParseCookies(config.Cookie); err != nil {
		return nil, &AuthError{Message: err.Error()}
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		executor:   failsafe.With(newRetryPolicy(config)),
		cookie:     cookieHeader(config.Cookie),
		config:     config,
	}, nil
}

func newRetryPolicy(config Config) retrypolicy.RetryPolicy[[]byte] {
	builder := retrypolicy.NewBuilder[[]byte]().
		HandleIf(func(_ []byte, err error) bool { return IsRetryable(err) }).
		WithMaxRetries(config.MaxRetries).
		WithBackoff(config.BaseDelay, config.MaxDelay).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[[]byte]) {
			logger.Warn("Retrying dashboard request", "attempt", e.Attempts(), "error", e.LastError())
		})
	if jitter := config.BaseDelay / 10; jitter > 0 {
		builder = builder.WithJitter(jitter)
	}
	return builder.Build()
}

// post sends a JSON payload and returns the raw response body, retrying
// retryable failures according to the client's policy.
func (c *Client) post(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	var wait time.Duration
	return c.executor.WithContext(ctx).Get(func() ([]byte, error) {
		if wait > 0 {
			if err := sleepContext(ctx, wait); err != nil {
				return nil, err
			}
			wait = 0
		}

		body, err := c.do(ctx, endpoint, payload)
		var rl *RateLimitError
		if errors.As(err, &rl) {
			wait = min(rl.RetryAfter, c.config.MaxDelay)
		}
		return body, err
	})
}

// do performs a single request.
func (c *Client) do(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Origin", c.config.BaseURL)
	req.Header.Set("Referer", c.config.BaseURL+"/dashboard")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Cookie", c.cookie)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var netErr net.Error
		timeout := errors.As(err, &netErr) && netErr.Timeout()
		return nil, &NetworkError{Endpoint: endpoint, Timeout: timeout, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("Failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	logger.Debug("Dashboard request", "endpoint", endpoint, "status", resp.StatusCode,
		"bytes", len(body), "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp, body)
	}
	return body, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
