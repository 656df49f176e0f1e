package reputation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pagesentry/internal/common"
)

const phishTankEndpoint = "https://checkurl.phishtank.com"

// PhishTank queries the PhishTank checkurl API. A URL is flagged when it is
// in the database and the report has been verified. Without an app key the
// client short-circuits to NOT_CONFIGURED, which is also the out-of-the-box
// state: PhishTank stopped issuing new keys, so most deployments run with
// this source disabled.
type PhishTank struct {
	providerClient
	appKey   string
	endpoint string
}

// NewPhishTank creates a PhishTank client.
func NewPhishTank(opts Options) *PhishTank {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = phishTankEndpoint
	}
	return &PhishTank{
		providerClient: newProviderClient(common.SourcePhishTank, opts, time.Hour),
		appKey:         opts.APIKey,
		endpoint:       endpoint,
	}
}

type ptResponse struct {
	Results struct {
		InDatabase bool `json:"in_database"`
		Verified   bool `json:"verified"`
	} `json:"results"`
}

func (c *PhishTank) Check(ctx context.Context, pageURL string) Finding {
	if !configured(c.appKey) {
		return c.failure(common.ErrNotConfigured)
	}

	form := url.Values{}
	form.Set("url", pageURL)
	form.Set("format", "json")
	form.Set("app_key", c.appKey)
	encoded := form.Encode()

	resp, err := c.fetch(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.endpoint+"/checkurl/", strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return c.failure(common.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.failure(common.ErrProviderRejected)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return c.failure(common.ErrProviderUnavailable)
	}
	var parsed ptResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return c.failure(common.ErrProviderUnavailable)
	}

	return Finding{
		Source:  c.source,
		Matched: parsed.Results.InDatabase && parsed.Results.Verified,
		Raw:     raw,
	}
}
