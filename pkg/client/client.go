// Package client provides the resilient outbound HTTP fetcher used to query
// the DOAB search API: fixed per-attempt timeout, bounded retry on timeouts,
// optional request pacing and a shared upstream failure budget.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/doab-scraper/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for outbound requests.
var (
	doabRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doab_requests_total",
		Help: "Total upstream requests by status",
	}, []string{"status"})

	doabRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "doab_request_duration_seconds",
		Help:    "Upstream request duration in seconds, retries included",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	doabErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doab_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// Waiter paces outbound requests. *ratelimit.Pacer implements it.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Gate is the shared upstream failure budget. *ratelimit.Tracker implements it.
type Gate interface {
	Allow(ctx context.Context) (bool, error)
	RecordSuccess(ctx context.Context) error
	RecordFailure(ctx context.Context) error
}

// Config holds the client configuration.
type Config struct {
	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds a single attempt, body read included.
	Timeout time.Duration

	// Retry is the bounded retry policy applied to every request.
	Retry RetryPolicy

	// Pacer is optional; nil disables pacing.
	Pacer Waiter

	// Gate is optional; nil disables the failure budget.
	Gate Gate
}

// DefaultConfig returns the upstream defaults: 60s timeout, 3 attempts 5s apart.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Timeout:   60 * time.Second,
		Retry:     DefaultRetryPolicy(),
	}
}

// Client is the resilient fetcher.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}
	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("retry max attempts must be >= 1 (got %d)", cfg.Retry.MaxAttempts)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logging.NewLogger("doab-client"),
	}, nil
}

// Get performs a GET request against rawURL with the given query parameters
// and headers. Timeouts are retried per the configured policy; every other
// failure, including a non-2xx status, is returned on first occurrence.
//
// The caller must close the returned response body.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, headers http.Header) (*http.Response, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(params) > 0 {
		target.RawQuery = params.Encode()
	}

	startTime := time.Now()
	defer func() {
		doabRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	if c.config.Gate != nil {
		allowed, err := c.config.Gate.Allow(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failure budget check failed, allowing request")
		} else if !allowed {
			doabRequestsTotal.WithLabelValues("blocked").Inc()
			c.logger.Error().Str("url", target.Redacted()).Msg("Request blocked by failure budget")
			return nil, ErrUpstreamBlocked
		}
	}

	var resp *http.Response
	err = Retry(ctx, c.config.Retry, func(attempt int) error {
		if c.config.Pacer != nil {
			if err := c.config.Pacer.Wait(ctx); err != nil {
				return fmt.Errorf("pacer wait: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		for key, values := range headers {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}
		req.Header.Set("User-Agent", c.config.UserAgent)

		c.logger.Debug().
			Str("url", target.Redacted()).
			Int("attempt", attempt).
			Msg("Executing upstream request")

		r, err := c.httpClient.Do(req)
		if err != nil {
			class := ClassOf(err)
			doabErrorsTotal.WithLabelValues(string(class)).Inc()
			doabRequestsTotal.WithLabelValues(string(class)).Inc()
			c.logger.Warn().
				Err(err).
				Str("error_class", string(class)).
				Int("attempt", attempt).
				Msg("Upstream request failed")
			return err
		}

		doabRequestsTotal.WithLabelValues(strconv.Itoa(r.StatusCode)).Inc()
		if r.StatusCode < 200 || r.StatusCode > 299 {
			r.Body.Close()
			upstreamErr := newUpstreamError(r)
			doabErrorsTotal.WithLabelValues(string(upstreamErr.ErrorClass)).Inc()
			c.logger.Warn().
				Int("status", r.StatusCode).
				Str("error_class", string(upstreamErr.ErrorClass)).
				Msg("Upstream returned error status")
			return upstreamErr
		}

		resp = r
		return nil
	})

	c.recordOutcome(ctx, err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// recordOutcome feeds the failure budget. Only exhausted retries count as failures.
func (c *Client) recordOutcome(ctx context.Context, err error) {
	if c.config.Gate == nil {
		return
	}

	var gateErr error
	switch {
	case err == nil:
		gateErr = c.config.Gate.RecordSuccess(ctx)
	case errors.Is(err, ErrRetryExhausted):
		gateErr = c.config.Gate.RecordFailure(ctx)
	}
	if gateErr != nil {
		c.logger.Warn().Err(gateErr).Msg("Failed to update failure budget")
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
