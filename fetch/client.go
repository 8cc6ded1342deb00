// Package fetch holds the network tiers the pipeline draws from: a plain
// retrying HTTP client, the remote content-rendering service, a headless
// browser for infinite-scroll listings, and an optional SQLite page cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pevans/blogscout"
)

// StatusError is a non-2xx HTTP response surfaced as an error so callers
// can branch on the code.
type StatusError struct {
	Code int

	// RetryAfter carries a server-provided backoff hint, zero when absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// IsTransient reports whether an error is worth retrying: timeouts,
// connection resets and rate-limit or temporary-server responses.
// Non-transient client errors (4xx other than 429) are not retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "deadline exceeded")
}

// withRetry runs op with exponential backoff on transient failures. The
// delay doubles from the base up to the configured cap; a Retry-After hint
// on a 429 can stretch a single wait further.
func withRetry(ctx context.Context, cfg blogscout.Config, logger *log.Logger, what string, op func() (string, error)) (string, error) {
	delay := cfg.RetryBaseDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		body, err := op()
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !IsTransient(err) || attempt == cfg.MaxRetries {
			break
		}

		wait := delay
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
			wait = statusErr.RetryAfter
		}
		if wait > cfg.RetryMaxDelay {
			wait = cfg.RetryMaxDelay
		}

		logger.Debug("retrying after transient failure",
			"what", what, "attempt", attempt, "wait", wait, "err", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if delay > cfg.RetryMaxDelay {
			delay = cfg.RetryMaxDelay
		}
	}

	return "", lastErr
}

// Client is the raw HTTP tier: a plain GET with a descriptive User-Agent, a
// fixed timeout and transient-failure retries. When a page cache is
// attached, fresh entries short-circuit the network entirely.
type Client struct {
	cfg        blogscout.Config
	httpClient *http.Client
	logger     *log.Logger
	cache      *PageCache
}

// NewClient builds the raw HTTP tier from the pipeline configuration.
func NewClient(cfg blogscout.Config, logger *log.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		logger: logger,
	}
}

// WithCache attaches a page cache to the client and returns it.
func (c *Client) WithCache(cache *PageCache) *Client {
	c.cache = cache
	return c
}

// Get fetches a URL and returns the response body. Any non-2xx status is an
// error; transient failures are retried with backoff.
func (c *Client) Get(ctx context.Context, rawURL string) (string, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(rawURL, c.cfg.CacheTTL); ok {
			c.logger.Debug("cache hit", "url", rawURL)
			return body, nil
		}
	}

	body, err := withRetry(ctx, c.cfg, c.logger, "http get", func() (string, error) {
		return c.getOnce(ctx, rawURL)
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}

	if c.cache != nil {
		if err := c.cache.Put(rawURL, body); err != nil {
			c.logger.Warn("failed to cache page", "url", rawURL, "err", err)
		}
	}

	return body, nil
}

func (c *Client) getOnce(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{
			Code:       resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}
