// Package feeds pulls published phishing-domain lists into the local
// blacklist so known-bad hosts are caught without any remote lookup.
package feeds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"pagesentry/internal/blocklist"
	"pagesentry/internal/metrics"
)

// Fetcher retrieves one feed's hostnames.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]string, error)
}

// HostStore receives the fetched hostnames. AddHost reports false for hosts
// already present.
type HostStore interface {
	AddHost(ctx context.Context, host string) (bool, error)
}

// Syncer runs all registered fetchers and merges their results into the
// blacklist. One failing feed never blocks the others.
type Syncer struct {
	fetchers []Fetcher
	store    HostStore
	logger   *slog.Logger
}

// NewSyncer creates a syncer. Pass nil for logger to disable logging.
func NewSyncer(store HostStore, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Syncer{store: store, logger: logger}
}

// Register adds a fetcher to the syncer.
func (s *Syncer) Register(f Fetcher) {
	s.fetchers = append(s.fetchers, f)
}

// Run executes all fetchers concurrently and waits for every one.
func (s *Syncer) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, f := range s.fetchers {
		wg.Add(1)
		go func(fetcher Fetcher) {
			defer wg.Done()
			s.sync(ctx, fetcher)
		}(f)
	}
	wg.Wait()
}

func (s *Syncer) sync(ctx context.Context, fetcher Fetcher) {
	hosts, err := fetcher.Fetch(ctx)
	if err != nil {
		metrics.FeedSyncs.WithLabelValues(fetcher.Name(), "error").Inc()
		s.logger.Error("feed fetch failed", "feed", fetcher.Name(), "error", err)
		return
	}

	added := 0
	for _, host := range hosts {
		ok, err := s.store.AddHost(ctx, host)
		if err != nil {
			metrics.FeedSyncs.WithLabelValues(fetcher.Name(), "error").Inc()
			s.logger.Error("feed store failed", "feed", fetcher.Name(), "error", err)
			return
		}
		if ok {
			added++
		}
	}
	metrics.FeedSyncs.WithLabelValues(fetcher.Name(), "ok").Inc()
	s.logger.Info("feed synced", "feed", fetcher.Name(), "hosts", len(hosts), "added", added)
}

// HTTPFetcher downloads a plain-text domain list. Both bare-domain lists and
// hosts-file formatted lists (sinkhole IP followed by the domain) are
// accepted; comment and empty lines are skipped.
type HTTPFetcher struct {
	name string
	url  string
	hc   *http.Client
}

// NewHTTPFetcher creates a fetcher for one feed URL. Pass nil for hc to use
// a default client with a 30s timeout.
func NewHTTPFetcher(name, feedURL string, hc *http.Client) *HTTPFetcher {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFetcher{name: name, url: feedURL, hc: hc}
}

func (f *HTTPFetcher) Name() string { return f.name }

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s: unexpected status %d", f.name, resp.StatusCode)
	}
	return ParseHostList(resp.Body)
}

// ParseHostList extracts hostnames from a plain-text feed body.
func ParseHostList(r io.Reader) ([]string, error) {
	var hosts []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		fields := strings.Fields(line)
		host := fields[0]
		// Hosts-file format: "<sinkhole ip> <domain>".
		if len(fields) >= 2 && (host == "0.0.0.0" || host == "127.0.0.1") {
			host = fields[1]
		}
		host = blocklist.NormalizeHost(host)
		if host == "" || !strings.Contains(host, ".") {
			continue
		}
		hosts = append(hosts, host)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return hosts, nil
}
