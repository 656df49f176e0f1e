package reputation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRetriesExhausted is returned once every attempt has failed with a
// transient condition (network error, 5xx, or 429).
var ErrRetriesExhausted = errors.New("reputation: retries exhausted")

// RetryPolicy retries transient failures with exponential backoff. 5xx and
// network errors back off at BaseDelay doubling per attempt; 429 responses
// use the same schedule scaled by RateLimitedMultiplier since the provider
// explicitly asked us to slow down. 4xx responses other than 429 are
// non-transient (bad auth or request) and are returned to the caller
// immediately.
type RetryPolicy struct {
	MaxAttempts           int
	BaseDelay             time.Duration
	RateLimitedMultiplier int
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.RateLimitedMultiplier <= 0 {
		p.RateLimitedMultiplier = 4
	}
	return p
}

// do runs build+Do until a non-transient outcome or attempts run out. The
// request is rebuilt for every attempt so bodies are never reused.
func (p RetryPolicy) do(ctx context.Context, hc *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	p = p.withDefaults()

	var lastErr error
	rateLimited := false
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << (attempt - 1)
			if rateLimited {
				delay *= time.Duration(p.RateLimitedMultiplier)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := hc.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			rateLimited = false
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			drain(resp)
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			rateLimited = true
		case resp.StatusCode >= 500:
			drain(resp)
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			rateLimited = false
		default:
			return resp, nil
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, p.MaxAttempts, lastErr)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
