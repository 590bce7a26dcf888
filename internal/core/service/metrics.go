package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts hold lifecycle outcomes. Counters work unregistered, so
// tests can construct a service without touching the default registry.
type Metrics struct {
	HoldsCreated      prometheus.Counter
	HoldsCancelled    prometheus.Counter
	HoldsCommitted    prometheus.Counter
	HoldsExpired      prometheus.Counter
	InsufficientStock prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		HoldsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockhold",
			Name:      "holds_created_total",
			Help:      "Holds created with a successful stock reservation.",
		}),
		HoldsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockhold",
			Name:      "holds_cancelled_total",
			Help:      "Holds cancelled by the caller.",
		}),
		HoldsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockhold",
			Name:      "holds_committed_total",
			Help:      "Holds committed as permanent sales.",
		}),
		HoldsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockhold",
			Name:      "holds_expired_total",
			Help:      "Holds expired by the reaper or a lazy status read.",
		}),
		InsufficientStock: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockhold",
			Name:      "insufficient_stock_total",
			Help:      "Checkout attempts rejected for insufficient stock.",
		}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.HoldsCreated,
		m.HoldsCancelled,
		m.HoldsCommitted,
		m.HoldsExpired,
		m.InsufficientStock,
	)
}
