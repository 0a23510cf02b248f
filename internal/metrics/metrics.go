// Package metrics exposes Prometheus counters for ingestion and model
// usage.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	emailsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inboxai",
			Name:      "emails_processed_total",
			Help:      "Emails handled during sync, by outcome.",
		},
		[]string{"status"},
	)

	llmCalls = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inboxai",
			Name:      "llm_calls_total",
			Help:      "Model calls issued.",
		},
	)

	llmTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inboxai",
			Name:      "llm_tokens_total",
			Help:      "Approximate tokens exchanged with the model.",
		},
		[]string{"direction"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inboxai",
			Name:      "analysis_cache_lookups_total",
			Help:      "Analysis cache lookups, by result.",
		},
		[]string{"result"},
	)
)

// Outcome labels for RecordEmail.
const (
	StatusPersisted   = "persisted"
	StatusParseFailed = "parse_failed"
	StatusStoreFailed = "store_failed"
)

// RecordEmail counts one email with the given outcome.
func RecordEmail(status string) {
	emailsProcessed.WithLabelValues(status).Inc()
}

// RecordLLMCall counts one model call and its approximate token usage.
func RecordLLMCall(tokensIn, tokensOut int) {
	llmCalls.Inc()
	llmTokens.WithLabelValues("input").Add(float64(tokensIn))
	llmTokens.WithLabelValues("output").Add(float64(tokensOut))
}

// RecordCacheHit counts an analysis served from the cache.
func RecordCacheHit() {
	cacheLookups.WithLabelValues("hit").Inc()
}

// RecordCacheMiss counts an analysis that required a model call.
func RecordCacheMiss() {
	cacheLookups.WithLabelValues("miss").Inc()
}
