package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alexandria",
		Subsystem: "search",
		Name:      "requests_total",
		Help:      "Total search requests by outcome.",
	}, []string{"outcome"})

	searchDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "alexandria",
		Subsystem: "search",
		Name:      "duration_seconds",
		Help:      "End to end search latency including rerank.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"})
)

func observeSearch(outcome string, d time.Duration) {
	searchRequestsTotal.WithLabelValues(outcome).Inc()
	searchDurationSeconds.WithLabelValues(outcome).Observe(d.Seconds())
}
