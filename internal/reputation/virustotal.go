package reputation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"pagesentry/internal/common"
)

const virusTotalEndpoint = "https://www.virustotal.com"

// VirusTotal queries the VirusTotal v2 URL report API. Unlike the boolean
// providers it reports a positives/total ratio.
type VirusTotal struct {
	providerClient
	apiKey   string
	endpoint string
}

// NewVirusTotal creates a VirusTotal client.
func NewVirusTotal(opts Options) *VirusTotal {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = virusTotalEndpoint
	}
	return &VirusTotal{
		providerClient: newProviderClient(common.SourceVirusTotal, opts, 24*time.Hour),
		apiKey:         opts.APIKey,
		endpoint:       endpoint,
	}
}

type vtResponse struct {
	ResponseCode int `json:"response_code"`
	Positives    int `json:"positives"`
	Total        int `json:"total"`
}

func (c *VirusTotal) Check(ctx context.Context, pageURL string) Finding {
	if !configured(c.apiKey) {
		return c.failure(common.ErrNotConfigured)
	}

	resp, err := c.fetch(ctx, func() (*http.Request, error) {
		q := url.Values{}
		q.Set("apikey", c.apiKey)
		q.Set("resource", pageURL)
		return http.NewRequest(http.MethodGet, c.endpoint+"/vtapi/v2/url/report?"+q.Encode(), nil)
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
	var parsed vtResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return c.failure(common.ErrProviderUnavailable)
	}

	// response_code 0 means the URL is not in the dataset: a clean finding.
	if parsed.ResponseCode != 1 {
		return Finding{Source: c.source, Raw: raw}
	}
	return Finding{
		Source:    c.source,
		Matched:   parsed.Positives > 0,
		Positives: parsed.Positives,
		Total:     parsed.Total,
		Raw:       raw,
	}
}
