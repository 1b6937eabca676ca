package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dieti",
		Subsystem: "ledger",
		Name:      "offline_queue_depth",
		Help:      "Food entries waiting for connectivity",
	})

	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dieti",
		Subsystem: "ledger",
		Name:      "writes_total",
		Help:      "Food entry writes by outcome (persisted, queued, failed)",
	}, []string{"outcome"})

	correctionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dieti",
		Subsystem: "ledger",
		Name:      "reconcile_corrections_total",
		Help:      "Reconciliations where local totals were replaced by the store's",
	})
)
