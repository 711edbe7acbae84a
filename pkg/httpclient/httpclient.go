// Package httpclient provides a plain HTTP client with per-host rate
// limiting, used by the EPUB Builder's cover download step. The Fetcher
// (pkg/sources) does not use it: it fetches through colly, with colly's
// own rate limiting.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const UserAgent = "wna-archiver/1.0 (+https://github.com/joskode/wna)"

// DefaultTimeout is the per-request timeout, spec.md §5.
const DefaultTimeout = 15 * time.Second

// DefaultMinInterval is the default minimum delay between requests to
// the same host, spec.md §5.
const DefaultMinInterval = 100 * time.Millisecond

// Client wraps *http.Client with a descriptive User-Agent and a
// per-host leaky-bucket rate limiter (golang.org/x/time/rate), grounded
// on other_examples/eafd5db4_fabienpiette-folio_fox's dependency on
// golang.org/x/time for exactly this purpose.
type Client struct {
	http        *http.Client
	minInterval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(minInterval time.Duration) *Client {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Client{
		http:        &http.Client{Timeout: DefaultTimeout},
		minInterval: minInterval,
		limiters:    make(map[string]*rate.Limiter),
	}
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		// One token every minInterval, burst of 1: a leaky bucket with a
		// fixed minimum inter-request delay, per spec.md §4.7.
		l = rate.NewLimiter(rate.Every(c.minInterval), 1)
		c.limiters[host] = l
	}
	return l
}

// Get performs a rate-limited, context-aware GET and returns the body.
// statusCode is always returned so callers can apply their own
// semantics (404 -> ChapterGone, etc).
func (c *Client) Get(ctx context.Context, rawURL string) (statusCode int, body []byte, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, nil, fmt.Errorf("httpclient: parse %s: %w", rawURL, err)
	}

	if err := c.limiterFor(u.Host).Wait(ctx); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("httpclient: build request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, b, nil
}
