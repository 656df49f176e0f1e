// Package pagetext turns an HTML document into the visible text the content
// heuristic scans, approximating what a reader of the page actually sees.
package pagetext

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Pages larger than this are truncated before parsing. Scam text appears in
// the rendered body, not megabytes deep in markup.
const maxBodyBytes = 2 << 20

// Extract returns the visible text of an HTML document with script, style,
// and other non-rendered content removed and whitespace collapsed.
func Extract(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	doc.Find("script, style, noscript, template, iframe").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return strings.Join(strings.Fields(root.Text()), " "), nil
}

// Fetch downloads a page and extracts its visible text. Pass nil for hc to
// use a default client with a 15s timeout.
func Fetch(ctx context.Context, hc *http.Client, pageURL string) (string, error) {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "pagesentry/0.3")
	req.Header.Set("Accept", "text/html")

	resp, err := hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %d", pageURL, resp.StatusCode)
	}
	return Extract(io.LimitReader(resp.Body, maxBodyBytes))
}
