// Package httpbase is the shared HTTP-adapter scaffolding every concrete
// provider composes instead of hand-rolling its own transport: a timeout
// client, a token-bucket rate limiter (golang.org/x/time/rate), and a
// circuit breaker (github.com/sony/gobreaker) that protects a single
// upstream from being hammered across many arbitration requests — a
// layer underneath, and independent from, the engine's own
// cooldown/fallback logic.
package httpbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/fedmkt/internal/core"
)

// Client wraps net/http with rate limiting and circuit breaking tuned
// per provider.
type Client struct {
	Name    string
	BaseURL string
	HTTP    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// New builds a Client. ratePerMinute <= 0 disables rate limiting
// (unlimited).
func New(name, baseURL string, timeout time.Duration, ratePerMinute int) *Client {
	var limiter *rate.Limiter
	if ratePerMinute > 0 {
		perSecond := float64(ratePerMinute) / 60.0
		burst := ratePerMinute
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}

	settings := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.5
		},
	}

	return &Client{
		Name:    name,
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
		limiter: limiter,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Get performs a GET request against the client's base URL plus path,
// enforcing the rate limiter and circuit breaker, and decodes the JSON
// body into out. A rate-limit exhaustion or an open breaker surfaces as
// a structured core.ProviderError so the engine's fallback logic never
// needs to sniff error text for this client's failures.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	if c.limiter != nil && !c.limiter.Allow() {
		return core.NewProviderError(c.Name, core.KindRateLimit, 60*time.Second,
			fmt.Errorf("local rate limit exceeded for %s", c.Name))
	}

	_, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
		if err != nil {
			return nil, core.NewProviderError(c.Name, core.KindTransport, 0, err)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, core.NewProviderError(c.Name, core.KindTransport, 0, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			return nil, core.NewProviderError(c.Name, core.KindRateLimit, retryAfter,
				fmt.Errorf("rate limit exceeded for %s", c.Name))
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, core.NewProviderError(c.Name, core.KindAuth, 0,
				fmt.Errorf("authentication failed for %s: HTTP %d", c.Name, resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return nil, core.NewProviderError(c.Name, core.KindProtocol, 0,
				fmt.Errorf("unexpected status from %s: HTTP %d", c.Name, resp.StatusCode))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, core.NewProviderError(c.Name, core.KindTransport, 0, err)
		}
		if len(body) == 0 {
			return nil, core.NewProviderError(c.Name, core.KindStructural, 0,
				fmt.Errorf("empty body from %s", c.Name))
		}
		if err := json.Unmarshal(body, out); err != nil {
			return nil, core.NewProviderError(c.Name, core.KindStructural, 0, err)
		}
		return nil, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return core.NewProviderError(c.Name, core.KindTransport, 0, err)
		}
		return err
	}
	return nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := time.ParseDuration(header + "s"); err == nil {
		return secs
	}
	return 0
}
