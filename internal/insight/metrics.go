package insight

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess     = "success"
	outcomeError       = "error"
	outcomeTimeout     = "timeout"
	outcomeUnavailable = "unavailable"
	outcomeCircuitOpen = "circuit_open"
)

var (
	oracleCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_oracle_calls_total",
		Help: "Remote text analysis oracle calls by outcome",
	}, []string{"oracle", "outcome"})

	oracleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insight_oracle_duration_seconds",
		Help:    "Duration of remote text analysis oracle calls",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"oracle"})

	insightsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_responses_total",
		Help: "Insight responses by producing source",
	}, []string{"source"})
)
