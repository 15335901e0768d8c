package payment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var paymentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kidzy_payments_total",
		Help: "Total number of completed payments, by purchase type and final status.",
	},
	[]string{"type", "status"},
)
