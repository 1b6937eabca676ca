package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dieti",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dieti",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	foodEntriesStored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dieti",
		Subsystem: "api",
		Name:      "food_entries_stored_total",
		Help:      "New food entries written to the daily log",
	})

	rolloverEntries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dieti",
		Subsystem: "api",
		Name:      "rollover_entries_total",
		Help:      "Food entries moved to the historical log",
	})
)
