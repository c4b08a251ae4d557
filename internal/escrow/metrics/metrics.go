package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Deposits    prometheus.Counter
	Settlements *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Deposits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_escrow_deposits_total",
			Help: "Total number of escrow deposits accepted",
		}),
		Settlements: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_escrow_settlements_total",
			Help: "Escrow settlements by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementDeposits() {
	if m != nil {
		m.Deposits.Inc()
	}
}

func (m *Metrics) IncrementSettlements(outcome string) {
	if m != nil {
		m.Settlements.WithLabelValues(outcome).Inc()
	}
}
