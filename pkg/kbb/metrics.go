package kbb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kbb_requests_total",
		Help: "Total KBB API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kbb_retries_total",
		Help: "Total retries after a 429 throttle response",
	})

	quotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kbb_quota_remaining_day",
		Help: "Minimum remaining daily quota observed this run",
	})
)
