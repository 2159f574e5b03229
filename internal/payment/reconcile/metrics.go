package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_reconcile_outcomes_total",
			Help: "Reconciliation outcomes by result",
		},
		[]string{"outcome"},
	)

	intentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_intents_created_total",
			Help: "Payment intents created by backend",
		},
		[]string{"backend"},
	)
)
