package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/OHDSI/searchpubmed/internal/cache"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64

	// MinInterval is the minimum spacing between the starts of any two
	// outbound calls made through this client, across all goroutines.
	MinInterval time.Duration

	MaxRetries int
	RetryDelay time.Duration

	// Cache, when non-nil, memoizes successful responses for CacheTTL.
	Cache    cache.Cache
	CacheTTL time.Duration

	Logger zerolog.Logger
}

func (o *Options) applyDefaults() {
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = "searchpubmed/0.1"
	}
	if o.MaxBodyBytes == 0 {
		o.MaxBodyBytes = 20_000_000
	}
	if o.MinInterval == 0 {
		o.MinInterval = 334 * time.Millisecond
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = time.Second
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = 15 * time.Minute
	}
}

// Client issues rate-limited HTTP GETs with retry on transient failures.
// The token-bucket gate (burst 1, one token per MinInterval) is the only
// shared mutable state; rate.Limiter serializes access internally, so the
// client is safe for concurrent use by fetch workers.
type Client struct {
	httpClient   *http.Client
	gate         *rate.Limiter
	userAgent    string
	maxBodyBytes int64
	maxRetries   int
	retryDelay   time.Duration
	cache        cache.Cache
	cacheTTL     time.Duration
	logger       zerolog.Logger
}

// New creates a Client from opts.
func New(opts Options) *Client {
	opts.applyDefaults()
	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		gate:         rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		userAgent:    opts.UserAgent,
		maxBodyBytes: opts.MaxBodyBytes,
		maxRetries:   opts.MaxRetries,
		retryDelay:   opts.RetryDelay,
		cache:        opts.Cache,
		cacheTTL:     opts.CacheTTL,
		logger:       opts.Logger,
	}
}

// Get fetches rawURL and returns the response body. 429 and 5xx responses
// and connection-level failures are retried with exponentially increasing
// delay (doubling from RetryDelay, Retry-After respected); exhaustion
// surfaces a *TransientError. Other 4xx surface a *PermanentError at once.
// Both the rate-limit wait and the request honor ctx.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	key := cache.RequestKey(rawURL)
	if c.cache != nil {
		if body, ok := c.cache.Get(key); ok {
			return body, nil
		}
	}

	var lastErr error
	lastStatus := 0

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.gate.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = err
			lastStatus = 0
			if attempt < c.maxRetries {
				if werr := c.backoff(ctx, attempt, 0); werr != nil {
					return nil, werr
				}
				continue
			}
			break
		}

		if retryable(resp.StatusCode) {
			retryAfter := parseRetryAfter(resp)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			lastStatus = resp.StatusCode
			lastErr = nil
			if attempt < c.maxRetries {
				c.logger.Warn().
					Int("status", resp.StatusCode).
					Int("attempt", attempt+1).
					Str("url", rawURL).
					Msg("transient status, retrying")
				if werr := c.backoff(ctx, attempt, retryAfter); werr != nil {
					return nil, werr
				}
				continue
			}
			break
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, &PermanentError{Status: resp.StatusCode, URL: rawURL}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			_ = c.cache.Set(key, body, c.cacheTTL)
		}
		return body, nil
	}

	return nil, &TransientError{Status: lastStatus, Attempts: c.maxRetries + 1, Err: lastErr}
}

// backoff waits retryDelay doubled per attempt, or retryAfter when the
// server asked for a specific delay, honoring ctx cancellation.
func (c *Client) backoff(ctx context.Context, attempt int, retryAfter time.Duration) error {
	delay := c.retryDelay << attempt
	if retryAfter > delay {
		delay = retryAfter
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryable(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status < 600
}

// parseRetryAfter reads the Retry-After header as seconds or an HTTP date.
func parseRetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if seconds, err := strconv.ParseInt(v, 10, 64); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
