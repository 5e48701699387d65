package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "strafen",
		Subsystem: "ledger",
		Name:      "rows_recorded_total",
		Help:      "Ledger rows appended, by submission kind.",
	}, []string{"kind"})

	storeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "strafen",
		Subsystem: "ledger",
		Name:      "store_failures_total",
		Help:      "Ledger operations that failed because the store was unavailable.",
	}, []string{"operation"})

	suspiciousRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "strafen",
		Subsystem: "security",
		Name:      "suspicious_requests_total",
		Help:      "Requests flagged by the suspicious request detector.",
	})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "strafen",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})
)
