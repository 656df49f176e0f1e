package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ps_assessments_total",
			Help: "Completed threat assessments by severity",
		},
		[]string{"severity"},
	)

	BlacklistHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ps_blacklist_hits_total",
			Help: "Assessments short-circuited by a blacklist match",
		},
	)

	SourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ps_source_errors_total",
			Help: "Source failures by source and error kind",
		},
		[]string{"source", "kind"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ps_cache_hits_total",
			Help: "Reputation cache hits by source",
		},
		[]string{"source"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ps_cache_misses_total",
			Help: "Reputation cache misses by source",
		},
		[]string{"source"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ps_provider_request_duration_seconds",
			Help:    "Time spent per reputation provider check, retries included",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	WarningsShown = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ps_warnings_shown_total",
			Help: "Warnings presented to the user by level",
		},
		[]string{"level"},
	)

	FeedSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ps_feed_syncs_total",
			Help: "Blocklist feed fetches by feed and result",
		},
		[]string{"feed", "result"},
	)
)
