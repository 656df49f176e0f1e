// Package reputation wraps the external threat-intel providers. Each client
// issues one outbound request through a shared retry wrapper and reports the
// provider's raw finding; normalizing findings into scores is the
// aggregator's job, never the client's.
package reputation

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"pagesentry/internal/common"
)

// Finding is the uniform result shape every client returns. Failures are
// normalized into ErrorKind; a Finding is never accompanied by a Go error.
type Finding struct {
	Source    common.SourceID  `json:"source"`
	Matched   bool             `json:"matched"`
	Positives int              `json:"positives,omitempty"`
	Total     int              `json:"total,omitempty"`
	Raw       json.RawMessage  `json:"raw,omitempty"`
	ErrorKind common.ErrorKind `json:"error_kind,omitempty"`
}

// Client is one external reputation source.
type Client interface {
	Source() common.SourceID
	// CacheTTL is how long a successful Finding for a URL stays valid.
	CacheTTL() time.Duration
	Check(ctx context.Context, pageURL string) Finding
}

// Options configures a provider client. Zero values fall back to the
// provider's defaults; Endpoint overrides exist for tests.
type Options struct {
	APIKey     string
	Endpoint   string
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Retry      RetryPolicy
	// RateLimit caps outbound request frequency per provider; most of the
	// free tiers are heavily rate-limited.
	RateLimit rate.Limit
	Burst     int
}

// providerClient carries the plumbing shared by all three clients.
type providerClient struct {
	source  common.SourceID
	ttl     time.Duration
	hc      *http.Client
	retry   RetryPolicy
	limiter *rate.Limiter
}

func newProviderClient(source common.SourceID, opts Options, defaultTTL time.Duration) providerClient {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	limit := opts.RateLimit
	if limit <= 0 {
		limit = rate.Limit(1) // 1 req/s default
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 3
	}
	return providerClient{
		source:  source,
		ttl:     ttl,
		hc:      hc,
		retry:   opts.Retry,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (p *providerClient) Source() common.SourceID { return p.source }

func (p *providerClient) CacheTTL() time.Duration { return p.ttl }

// fetch applies the rate limit and the retry policy around one request.
func (p *providerClient) fetch(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.retry.do(ctx, p.hc, build)
}

func (p *providerClient) failure(kind common.ErrorKind) Finding {
	return Finding{Source: p.source, ErrorKind: kind}
}

// configured reports whether an API key looks usable. Placeholder values
// left over from sample configs count as missing.
func configured(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	lower := strings.ToLower(key)
	return lower != "changeme" && !strings.Contains(lower, "your_api_key") && !strings.Contains(lower, "your-api-key")
}
