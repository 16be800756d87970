package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feeTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traslados_fee_transitions_total",
		Help: "Service fee status transitions applied, labeled by resulting status and source path",
	}, []string{"status", "source"})

	reconcileRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traslados_reconcile_runs_total",
		Help: "Reconciliation passes executed",
	})

	reconcileItemErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traslados_reconcile_item_errors_total",
		Help: "Per-item gateway or store errors during reconciliation",
	})
)
