package ai

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Определяем метрики Prometheus
var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kidzy_ai_requests_total",
			Help: "Total number of requests to the generative AI API.",
		},
		[]string{"model", "kind", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kidzy_ai_request_duration_seconds",
			Help:    "Histogram of generative AI request durations.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model", "kind"},
	)
	aiTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kidzy_ai_tokens",
			Help:    "Histogram of token counts per text request.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"model", "type"},
	)
	aiFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kidzy_ai_fallbacks_total",
			Help: "Number of text-only fallback attempts after a failed image-conditioned request.",
		},
		[]string{"operation"},
	)
	aiRateLimitWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kidzy_ai_rate_limit_wait_seconds",
			Help:    "Time spent waiting for the global AI rate limiter.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)

// Статусы запросов для метрик.
const (
	statusSuccess = "success"
	statusError   = "error"
	statusEmpty   = "error_empty_response"
	statusNoImage = "no_image"
)

func observeRequest(model, kind, status string, duration time.Duration) {
	aiRequestsTotal.With(prometheus.Labels{"model": model, "kind": kind, "status": status}).Inc()
	if status == statusSuccess {
		aiRequestDuration.With(prometheus.Labels{"model": model, "kind": kind}).Observe(duration.Seconds())
	}
}

func observeUsage(model string, usage UsageInfo) {
	if usage.TotalTokens <= 0 {
		return
	}
	aiTokens.With(prometheus.Labels{"model": model, "type": "prompt"}).Observe(float64(usage.PromptTokens))
	aiTokens.With(prometheus.Labels{"model": model, "type": "completion"}).Observe(float64(usage.CompletionTokens))
	aiTokens.With(prometheus.Labels{"model": model, "type": "total"}).Observe(float64(usage.TotalTokens))
}
