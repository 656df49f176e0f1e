// Package aggregator combines the local blacklist, the local heuristics, and
// the external reputation sources into one unified risk score per query.
package aggregator

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pagesentry/internal/blocklist"
	"pagesentry/internal/cache"
	"pagesentry/internal/common"
	"pagesentry/internal/heuristic"
	"pagesentry/internal/metrics"
	"pagesentry/internal/reputation"
)

// Severity tier boundaries, inclusive at the lower bound of each tier.
const (
	thresholdHigh   = 0.8
	thresholdMedium = 0.6
	thresholdLow    = 0.3
)

// Query is the immutable input to one assessment pass.
type Query struct {
	URL      string `json:"url"`
	PageText string `json:"page_text,omitempty"`
}

// SourceResult is one source's normalized contribution to an assessment.
type SourceResult struct {
	Source    common.SourceID     `json:"source"`
	Score     float64             `json:"score"`
	Matched   bool                `json:"matched,omitempty"`
	Factors   []string            `json:"factors,omitempty"`
	Matches   map[string][]string `json:"matches,omitempty"`
	Raw       json.RawMessage     `json:"raw,omitempty"`
	ErrorKind common.ErrorKind    `json:"error_kind,omitempty"`
}

// Assessment is the outcome of one pass over all sources.
type Assessment struct {
	ID                  string                           `json:"id"`
	URL                 string                           `json:"url"`
	UnifiedScore        float64                          `json:"unified_score"`
	Severity            common.Severity                  `json:"severity"`
	ContributingSources []common.SourceID                `json:"contributing_sources"`
	Sources             map[common.SourceID]SourceResult `json:"sources"`
	TimestampMs         int64                            `json:"timestamp_ms"`
}

// Weights are the fixed per-source multipliers. The non-authoritative
// weights intentionally sum above 1.0 so that independent corroboration can
// push the unified score near 1.0 even when no single source is fully
// confident. Tunable via config, clamped after summing either way.
type Weights struct {
	Blacklist        float64 `yaml:"blacklist"`
	PhishTank        float64 `yaml:"phishtank"`
	SafeBrowsing     float64 `yaml:"safe_browsing"`
	VirusTotal       float64 `yaml:"virustotal"`
	URLHeuristic     float64 `yaml:"url_heuristic"`
	ContentHeuristic float64 `yaml:"content_heuristic"`
}

// DefaultWeights returns the hand-tuned defaults.
func DefaultWeights() Weights {
	return Weights{
		Blacklist:        1.0,
		PhishTank:        0.30,
		SafeBrowsing:     0.35,
		VirusTotal:       0.35,
		URLHeuristic:     0.25,
		ContentHeuristic: 0.20,
	}
}

// For returns the weight for one source.
func (w Weights) For(source common.SourceID) float64 {
	switch source {
	case common.SourceBlacklist:
		return w.Blacklist
	case common.SourcePhishTank:
		return w.PhishTank
	case common.SourceSafeBrowsing:
		return w.SafeBrowsing
	case common.SourceVirusTotal:
		return w.VirusTotal
	case common.SourceURLHeuristic:
		return w.URLHeuristic
	case common.SourceContentHeuristic:
		return w.ContentHeuristic
	default:
		return 0
	}
}

// Aggregator runs assessment passes. Safe for concurrent use.
type Aggregator struct {
	lists   *blocklist.Manager
	cache   cache.Cache
	clients []reputation.Client
	weights Weights
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an aggregator. Pass nil for logger to disable logging.
func New(lists *blocklist.Manager, c cache.Cache, clients []reputation.Client, weights Weights, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{
		lists:   lists,
		cache:   c,
		clients: clients,
		weights: weights,
		logger:  logger,
		now:     time.Now,
	}
}

// Assess runs one full pass. It always completes with whatever sources
// succeeded: a failing source contributes zero, it never aborts the pass.
func (a *Aggregator) Assess(ctx context.Context, q Query) Assessment {
	assessment := Assessment{
		ID:          uuid.New().String(),
		URL:         q.URL,
		Sources:     make(map[common.SourceID]SourceResult),
		TimestampMs: a.now().UnixMilli(),
	}

	host := hostnameOf(q.URL)

	// The blacklist is an authoritative local signal: a hit decides the
	// outcome on its own, no further scoring needed.
	if host != "" && a.lists.MatchHost(ctx, host) {
		metrics.BlacklistHits.Inc()
		assessment.Sources[common.SourceBlacklist] = SourceResult{
			Source:  common.SourceBlacklist,
			Score:   1,
			Matched: true,
		}
		assessment.UnifiedScore = clamp01(a.weights.Blacklist)
		assessment.Severity = common.SeverityHigh
		assessment.ContributingSources = []common.SourceID{common.SourceBlacklist}
		metrics.AssessmentsTotal.WithLabelValues(assessment.Severity.String()).Inc()
		return assessment
	}

	results := a.collect(ctx, q, host)
	for _, res := range results {
		if res.ErrorKind != common.ErrNone {
			metrics.SourceErrors.WithLabelValues(string(res.Source), string(res.ErrorKind)).Inc()
		}
		assessment.Sources[res.Source] = res
	}

	var sum float64
	for src, res := range assessment.Sources {
		if res.ErrorKind != common.ErrNone {
			continue // errors never inflate risk
		}
		sum += res.Score * a.weights.For(src)
		if res.Score > 0 {
			assessment.ContributingSources = append(assessment.ContributingSources, src)
		}
	}
	sort.Slice(assessment.ContributingSources, func(i, j int) bool {
		return assessment.ContributingSources[i] < assessment.ContributingSources[j]
	})

	assessment.UnifiedScore = clamp01(sum)
	assessment.Severity = severityFor(assessment.UnifiedScore)
	metrics.AssessmentsTotal.WithLabelValues(assessment.Severity.String()).Inc()
	return assessment
}

// collect fires all applicable non-authoritative checks concurrently and
// waits for every one of them.
func (a *Aggregator) collect(ctx context.Context, q Query, host string) []SourceResult {
	var (
		mu      sync.Mutex
		results []SourceResult
		wg      sync.WaitGroup
	)
	add := func(res SourceResult) {
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		rep := heuristic.AnalyzeURL(q.URL)
		add(SourceResult{
			Source:    common.SourceURLHeuristic,
			Score:     rep.Score,
			Factors:   rep.Factors,
			ErrorKind: rep.ErrorKind,
		})
	}()

	if q.PageText != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rep := heuristic.AnalyzeContent(q.PageText)
			add(SourceResult{
				Source:    common.SourceContentHeuristic,
				Score:     rep.Score,
				Matches:   rep.Matches,
				ErrorKind: rep.ErrorKind,
			})
		}()
	}

	// Reputation lookups only make sense for a resolvable URL.
	if host != "" {
		for _, client := range a.clients {
			wg.Add(1)
			go func(client reputation.Client) {
				defer wg.Done()
				add(a.checkReputation(ctx, client, q.URL))
			}(client)
		}
	}

	wg.Wait()
	return results
}

// checkReputation consults the cache before the provider and stores the raw
// finding (never the normalized score) on a fresh successful fetch.
func (a *Aggregator) checkReputation(ctx context.Context, client reputation.Client, pageURL string) SourceResult {
	source := client.Source()

	if data, ok := a.cache.Get(ctx, source, pageURL); ok {
		var finding reputation.Finding
		if err := json.Unmarshal(data, &finding); err == nil {
			metrics.CacheHits.WithLabelValues(string(source)).Inc()
			return a.normalize(finding)
		}
		a.logger.Warn("corrupt cache entry, refetching", "source", source)
	}
	metrics.CacheMisses.WithLabelValues(string(source)).Inc()

	start := a.now()
	finding := client.Check(ctx, pageURL)
	metrics.ProviderDuration.WithLabelValues(string(source)).Observe(time.Since(start).Seconds())

	if finding.ErrorKind == common.ErrNone {
		if data, err := json.Marshal(finding); err == nil {
			a.cache.Set(ctx, source, pageURL, data, client.CacheTTL())
		}
	} else {
		a.logger.Warn("reputation source failed",
			"source", source, "kind", finding.ErrorKind, "url", pageURL)
	}
	return a.normalize(finding)
}

// normalize converts a raw provider finding into a [0,1] score: boolean-flag
// sources map to 1.0/0.0, ratio sources to positives/total.
func (a *Aggregator) normalize(f reputation.Finding) SourceResult {
	res := SourceResult{
		Source:    f.Source,
		Matched:   f.Matched,
		Raw:       f.Raw,
		ErrorKind: f.ErrorKind,
	}
	if f.ErrorKind != common.ErrNone {
		return res
	}
	switch f.Source {
	case common.SourceVirusTotal:
		if f.Total > 0 {
			res.Score = clamp01(float64(f.Positives) / float64(f.Total))
		}
	default:
		if f.Matched {
			res.Score = 1
		}
	}
	return res
}

func severityFor(score float64) common.Severity {
	switch {
	case score >= thresholdHigh:
		return common.SeverityHigh
	case score >= thresholdMedium:
		return common.SeverityMedium
	case score >= thresholdLow:
		return common.SeverityLow
	default:
		return common.SeverityNone
	}
}

func hostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
