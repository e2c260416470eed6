package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// BackoffConfig controls retry behaviour for outbound provider calls.
type BackoffConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// doRequestWithResilience executes the HTTP request with bounded
// exponential-backoff retries and a circuit breaker. Rate limits and
// 5xx responses are retried; other non-2xx statuses and an open
// circuit fail immediately.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.Backoff.InitialInterval
	policy.MaxInterval = cfg.Backoff.MaxInterval

	var resp *http.Response

	operation := func() error {
		req, err := buildRequest()
		if err != nil {
			return backoff.Permanent(err)
		}
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			r, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			if r.StatusCode == http.StatusTooManyRequests {
				r.Body.Close()
				return nil, errRateLimited
			}
			if r.StatusCode >= 500 {
				r.Body.Close()
				return nil, errServerError
			}
			if r.StatusCode < 200 || r.StatusCode >= 300 {
				r.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUnexpected, r.StatusCode)
			}
			return r, nil
		})
		if err != nil {
			// An open circuit will not recover within this request.
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(fmt.Errorf("%w: %v", errCircuitOpen, err))
			}
			if errors.Is(err, errUnexpected) {
				return backoff.Permanent(err)
			}
			return err
		}

		resp = result.(*http.Response)
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, cfg.Backoff.MaxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return resp, nil
}
