package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jsoncms",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Duration of record store operations, including the document read and rewrite.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"type", "op"})

	opErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jsoncms",
		Subsystem: "store",
		Name:      "operation_errors_total",
		Help:      "Record store operations that failed with a storage error.",
	}, []string{"type", "op"})
)

func observe(typ, op string, start time.Time) {
	opDuration.WithLabelValues(typ, op).Observe(time.Since(start).Seconds())
}

func countError(typ, op string) {
	opErrors.WithLabelValues(typ, op).Inc()
}
