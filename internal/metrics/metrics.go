// Package metrics exposes Prometheus collectors for the rank-tracking service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsTotal           *prometheus.CounterVec
	keywordsTotal           *prometheus.CounterVec
	proxyFailoversTotal     prometheus.Counter
	partialExtractionsTotal prometheus.Counter
	navigationDurationSecs  *prometheus.HistogramVec
	sessionDurationSecs     prometheus.Histogram

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		sessionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "serptrack_sessions_total",
				Help: "Tracking sessions, labeled by search engine and outcome.",
			},
			[]string{"engine", "outcome"},
		)
		keywordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "serptrack_keywords_total",
				Help: "Keyword queries processed, labeled by engine and status.",
			},
			[]string{"engine", "status"},
		)
		proxyFailoversTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "serptrack_proxy_failovers_total",
				Help: "Mid-session proxy replacements.",
			},
		)
		partialExtractionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "serptrack_partial_extractions_total",
				Help: "Extractions that proceeded after the selector wait timed out.",
			},
		)
		navigationDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "serptrack_navigation_duration_seconds",
				Help:    "Time to load one results page.",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
			},
			[]string{"engine"},
		)
		sessionDurationSecs = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "serptrack_session_duration_seconds",
				Help:    "End-to-end tracking session duration.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		)
	})
}

// RecordSession counts a completed or aborted session.
func RecordSession(engine, outcome string, duration time.Duration) {
	if sessionsTotal == nil {
		return
	}
	sessionsTotal.WithLabelValues(engine, outcome).Inc()
	sessionDurationSecs.Observe(duration.Seconds())
}

// RecordKeyword counts one processed keyword.
func RecordKeyword(engine, status string) {
	if keywordsTotal == nil {
		return
	}
	keywordsTotal.WithLabelValues(engine, status).Inc()
}

// RecordProxyFailover counts a mid-session proxy replacement.
func RecordProxyFailover() {
	if proxyFailoversTotal == nil {
		return
	}
	proxyFailoversTotal.Inc()
}

// RecordPartialExtraction counts a best-effort extraction after a selector
// wait timeout.
func RecordPartialExtraction() {
	if partialExtractionsTotal == nil {
		return
	}
	partialExtractionsTotal.Inc()
}

// RecordNavigation observes one page-load duration.
func RecordNavigation(engine string, duration time.Duration) {
	if navigationDurationSecs == nil {
		return
	}
	navigationDurationSecs.WithLabelValues(engine).Observe(duration.Seconds())
}
