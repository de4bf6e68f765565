package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SIARCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siarpm_siar_api_calls_total",
			Help: "Total calls to the SIAR provider API",
		},
		[]string{"endpoint", "status"},
	)

	SIARCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "siarpm_siar_api_latency_seconds",
			Help:    "SIAR provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	TokenRefreshTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "siarpm_token_refresh_total",
			Help: "Total token acquisitions against the SIAR auth endpoints",
		},
	)

	FallbackAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siarpm_fallback_attempts_total",
			Help: "Total per-station fallback attempts by outcome",
		},
		[]string{"outcome"},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siarpm_requests_total",
			Help: "Total climatology requests by mode and result",
		},
		[]string{"mode", "result"},
	)
)
