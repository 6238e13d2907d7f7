// Package provider implements the catchment weather and level providers over HTTP.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aouyang1/go-riverforecast/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

var (
	ErrRateLimited  = errors.New("rate limited")
	ErrServerError  = errors.New("server error")
	ErrUnexpected   = errors.New("unexpected status code")
	ErrCircuitOpen  = errors.New("circuit breaker open")
	ErrNoHTTPClient = errors.New("http client not configured")
)

// RetryOptions bounds the exponential backoff around each request
type RetryOptions struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// NewDefaultRetryOptions backs off exponentially from half a second for up to two minutes
func NewDefaultRetryOptions() RetryOptions {
	return RetryOptions{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxElapsedTime:  2 * time.Minute,
	}
}

func (r RetryOptions) backoff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	if r.InitialInterval > 0 {
		bo.InitialInterval = r.InitialInterval
	}
	if r.MaxInterval > 0 {
		bo.MaxInterval = r.MaxInterval
	}
	bo.MaxElapsedTime = r.MaxElapsedTime
	return backoff.WithContext(bo, ctx)
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// client executes GET requests with retries and a circuit breaker. Rate limits, server errors and
// transport failures are retried. Other statuses fail immediately.
type client struct {
	name    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	retry   RetryOptions
}

func newClient(name string, httpClient *http.Client, retry RetryOptions) *client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &client{
		name:    name,
		http:    httpClient,
		breaker: newBreaker(name),
		retry:   retry,
	}
}

func (c *client) get(ctx context.Context, endpoint, url string) ([]byte, error) {
	if c.http == nil {
		return nil, ErrNoHTTPClient
	}

	start := time.Now()
	defer func() {
		metrics.ProviderLatency.WithLabelValues(c.name, endpoint).Observe(time.Since(start).Seconds())
	}()

	var body []byte
	operation := func() error {
		res, err := c.breaker.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			resp, err := c.http.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			metrics.ProviderRequestsTotal.WithLabelValues(c.name, endpoint, fmt.Sprint(resp.StatusCode)).Inc()
			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				return nil, ErrRateLimited
			case resp.StatusCode >= 500:
				return nil, fmt.Errorf("status %d, %w", resp.StatusCode, ErrServerError)
			case resp.StatusCode != http.StatusOK:
				b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
				return nil, backoff.Permanent(fmt.Errorf("status %d: %s, %w", resp.StatusCode, string(b), ErrUnexpected))
			}

			b, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, err
			}
			return b, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(fmt.Errorf("%s, %w", err.Error(), ErrCircuitOpen))
		}
		if err != nil {
			return err
		}
		body = res.([]byte)
		return nil
	}

	if err := backoff.Retry(operation, c.retry.backoff(ctx)); err != nil {
		return nil, fmt.Errorf("unable to fetch %s from %s, %w", endpoint, c.name, err)
	}
	return body, nil
}
