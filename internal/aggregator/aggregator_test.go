package aggregator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagesentry/internal/blocklist"
	"pagesentry/internal/cache"
	"pagesentry/internal/common"
	"pagesentry/internal/reputation"
	"pagesentry/internal/storage"
)

type fakeClient struct {
	source  common.SourceID
	finding reputation.Finding
	calls   atomic.Int32
}

func (f *fakeClient) Source() common.SourceID { return f.source }

func (f *fakeClient) CacheTTL() time.Duration { return time.Hour }

func (f *fakeClient) Check(ctx context.Context, pageURL string) reputation.Finding {
	f.calls.Add(1)
	finding := f.finding
	finding.Source = f.source
	return finding
}

func newTestAggregator(t *testing.T, clients ...reputation.Client) (*Aggregator, *blocklist.Manager) {
	t.Helper()
	lists := blocklist.NewManager(storage.NewMemoryStore(), nil)
	agg := New(lists, cache.NewMemoryCache(), clients, DefaultWeights(), nil)
	return agg, lists
}

func TestAssessBlacklistIsAuthoritative(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{
		source:  common.SourcePhishTank,
		finding: reputation.Finding{Matched: false},
	}
	agg, lists := newTestAggregator(t, client)

	_, err := lists.AddHost(ctx, "evil.example")
	require.NoError(t, err)

	// A blacklist hit decides the outcome even when every other source
	// would have reported the page clean.
	a := agg.Assess(ctx, Query{URL: "https://evil.example/totally/benign"})

	assert.Equal(t, common.SeverityHigh, a.Severity)
	assert.Equal(t, 1.0, a.UnifiedScore)
	assert.Equal(t, []common.SourceID{common.SourceBlacklist}, a.ContributingSources)
	assert.Len(t, a.Sources, 1)
	assert.Equal(t, int32(0), client.calls.Load(), "remote sources must not be consulted on a blacklist hit")
}

func TestAssessWeightedSum(t *testing.T) {
	ctx := context.Background()
	agg, _ := newTestAggregator(t,
		&fakeClient{source: common.SourcePhishTank, finding: reputation.Finding{Matched: true}},
		&fakeClient{source: common.SourceSafeBrowsing, finding: reputation.Finding{Matched: true}},
		&fakeClient{source: common.SourceVirusTotal, finding: reputation.Finding{Matched: true, Positives: 30, Total: 60}},
	)

	a := agg.Assess(ctx, Query{URL: "https://example.com/"})

	// 0.30*1 + 0.35*1 + 0.35*0.5, heuristics finding nothing on a bland URL.
	assert.InDelta(t, 0.825, a.UnifiedScore, 1e-9)
	assert.Equal(t, common.SeverityHigh, a.Severity)
	assert.Contains(t, a.ContributingSources, common.SourcePhishTank)
	assert.Contains(t, a.ContributingSources, common.SourceSafeBrowsing)
	assert.Contains(t, a.ContributingSources, common.SourceVirusTotal)
	assert.NotContains(t, a.ContributingSources, common.SourceURLHeuristic)
}

func TestAssessOrderIndependence(t *testing.T) {
	ctx := context.Background()
	build := func(reversed bool) float64 {
		clients := []reputation.Client{
			&fakeClient{source: common.SourcePhishTank, finding: reputation.Finding{Matched: true}},
			&fakeClient{source: common.SourceVirusTotal, finding: reputation.Finding{Matched: true, Positives: 12, Total: 48}},
			&fakeClient{source: common.SourceSafeBrowsing, finding: reputation.Finding{Matched: false}},
		}
		if reversed {
			for i, j := 0, len(clients)-1; i < j; i, j = i+1, j-1 {
				clients[i], clients[j] = clients[j], clients[i]
			}
		}
		agg, _ := newTestAggregator(t, clients...)
		return agg.Assess(ctx, Query{URL: "https://example.com/"}).UnifiedScore
	}

	assert.InDelta(t, build(false), build(true), 1e-12)
}

func TestAssessErrorsNeverInflate(t *testing.T) {
	ctx := context.Background()
	agg, _ := newTestAggregator(t,
		&fakeClient{source: common.SourcePhishTank, finding: reputation.Finding{ErrorKind: common.ErrNotConfigured}},
		&fakeClient{source: common.SourceSafeBrowsing, finding: reputation.Finding{ErrorKind: common.ErrProviderUnavailable}},
		&fakeClient{source: common.SourceVirusTotal, finding: reputation.Finding{ErrorKind: common.ErrProviderRejected}},
	)

	a := agg.Assess(ctx, Query{URL: "https://example.com/"})

	assert.Equal(t, 0.0, a.UnifiedScore)
	assert.Equal(t, common.SeverityNone, a.Severity)
	assert.Empty(t, a.ContributingSources)
	assert.Equal(t, common.ErrNotConfigured, a.Sources[common.SourcePhishTank].ErrorKind)
	assert.Equal(t, common.ErrProviderUnavailable, a.Sources[common.SourceSafeBrowsing].ErrorKind)
	assert.Equal(t, common.ErrProviderRejected, a.Sources[common.SourceVirusTotal].ErrorKind)
}

func TestAssessFailedSourcesLeaveHeuristicsStanding(t *testing.T) {
	ctx := context.Background()
	agg, _ := newTestAggregator(t,
		&fakeClient{source: common.SourcePhishTank, finding: reputation.Finding{ErrorKind: common.ErrProviderUnavailable}},
	)

	a := agg.Assess(ctx, Query{URL: "http://203.0.113.5/secure/login/verify"})

	assert.Greater(t, a.UnifiedScore, 0.0, "local heuristics must still score when every remote source fails")
	assert.Contains(t, a.ContributingSources, common.SourceURLHeuristic)
}

func TestAssessCachesSuccessfulFindings(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{source: common.SourceVirusTotal, finding: reputation.Finding{Matched: true, Positives: 10, Total: 50}}
	agg, _ := newTestAggregator(t, client)

	first := agg.Assess(ctx, Query{URL: "https://example.com/"})
	second := agg.Assess(ctx, Query{URL: "https://example.com/"})

	assert.Equal(t, int32(1), client.calls.Load(), "second assessment must be served from cache")
	assert.Equal(t, first.UnifiedScore, second.UnifiedScore)
	assert.InDelta(t, 0.2, second.Sources[common.SourceVirusTotal].Score, 1e-9)
}

func TestAssessDoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{source: common.SourcePhishTank, finding: reputation.Finding{ErrorKind: common.ErrProviderUnavailable}}
	agg, _ := newTestAggregator(t, client)

	agg.Assess(ctx, Query{URL: "https://example.com/"})
	agg.Assess(ctx, Query{URL: "https://example.com/"})

	assert.Equal(t, int32(2), client.calls.Load(), "failed lookups must be retried, never cached")
}

func TestAssessSkipsContentWithoutPageText(t *testing.T) {
	ctx := context.Background()
	agg, _ := newTestAggregator(t)

	a := agg.Assess(ctx, Query{URL: "https://example.com/"})

	_, present := a.Sources[common.SourceContentHeuristic]
	assert.False(t, present)
}

func TestAssessContentContributes(t *testing.T) {
	ctx := context.Background()
	agg, _ := newTestAggregator(t)

	text := "URGENT! verify your account now or it will be suspended. " +
		"This notice is the final reminder regarding the status of your profile and pending services."
	a := agg.Assess(ctx, Query{URL: "https://example.com/", PageText: text})

	res, present := a.Sources[common.SourceContentHeuristic]
	require.True(t, present)
	assert.Greater(t, res.Score, 0.0)
	assert.Contains(t, a.ContributingSources, common.SourceContentHeuristic)
}

func TestAssessInvalidURLSkipsRemoteSources(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{source: common.SourcePhishTank, finding: reputation.Finding{Matched: true}}
	agg, _ := newTestAggregator(t, client)

	a := agg.Assess(ctx, Query{URL: "not a url at all"})

	assert.Equal(t, int32(0), client.calls.Load())
	assert.Equal(t, common.SeverityNone, a.Severity)
	assert.Equal(t, common.ErrInvalidInput, a.Sources[common.SourceURLHeuristic].ErrorKind)
}

func TestSeverityTiers(t *testing.T) {
	cases := []struct {
		score float64
		want  common.Severity
	}{
		{0.0, common.SeverityNone},
		{0.29, common.SeverityNone},
		{0.3, common.SeverityLow},
		{0.59, common.SeverityLow},
		{0.6, common.SeverityMedium},
		{0.79, common.SeverityMedium},
		{0.8, common.SeverityHigh},
		{1.0, common.SeverityHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, severityFor(tc.score), "score %v", tc.score)
	}
}
