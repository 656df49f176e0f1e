package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"pagesentry/internal/common"
)

const safeBrowsingEndpoint = "https://safebrowsing.googleapis.com"

// SafeBrowsing queries the Google Safe Browsing v4 threatMatches API. The
// wire shape is fixed by the provider; a URL is flagged when the lookup
// returns any match.
type SafeBrowsing struct {
	providerClient
	apiKey   string
	endpoint string
}

// NewSafeBrowsing creates a Safe Browsing client.
func NewSafeBrowsing(opts Options) *SafeBrowsing {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = safeBrowsingEndpoint
	}
	return &SafeBrowsing{
		providerClient: newProviderClient(common.SourceSafeBrowsing, opts, 12*time.Hour),
		apiKey:         opts.APIKey,
		endpoint:       endpoint,
	}
}

type sbThreatEntry struct {
	URL string `json:"url"`
}

type sbRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string        `json:"threatTypes"`
		PlatformTypes    []string        `json:"platformTypes"`
		ThreatEntryTypes []string        `json:"threatEntryTypes"`
		ThreatEntries    []sbThreatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

type sbResponse struct {
	Matches []json.RawMessage `json:"matches"`
}

func (c *SafeBrowsing) Check(ctx context.Context, pageURL string) Finding {
	if !configured(c.apiKey) {
		return c.failure(common.ErrNotConfigured)
	}

	var payload sbRequest
	payload.Client.ClientID = "pagesentry"
	payload.Client.ClientVersion = common.Version
	payload.ThreatInfo.ThreatTypes = []string{
		"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION",
	}
	payload.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	payload.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	payload.ThreatInfo.ThreatEntries = []sbThreatEntry{{URL: pageURL}}
	body, err := json.Marshal(payload)
	if err != nil {
		return c.failure(common.ErrInvalidInput)
	}

	resp, err := c.fetch(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost,
			c.endpoint+"/v4/threatMatches:find?key="+c.apiKey, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
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
	var parsed sbResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return c.failure(common.ErrProviderUnavailable)
	}

	return Finding{
		Source:  c.source,
		Matched: len(parsed.Matches) > 0,
		Raw:     raw,
	}
}
