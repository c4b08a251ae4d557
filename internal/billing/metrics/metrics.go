package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	FeeAdjustments prometheus.Counter
	FeesCollected  prometheus.Counter
	Withdrawals    *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		FeeAdjustments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_billing_fee_adjustments_total",
			Help: "Fee amount changes",
		}),
		FeesCollected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_billing_fees_collected_total",
			Help: "Successful fee payments",
		}),
		Withdrawals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_billing_withdrawals_total",
			Help: "Withdrawals by scope",
		}, []string{"scope"}),
	}
}

func (m *Metrics) IncrementFeeAdjustments() {
	if m != nil {
		m.FeeAdjustments.Inc()
	}
}

func (m *Metrics) IncrementFeesCollected() {
	if m != nil {
		m.FeesCollected.Inc()
	}
}

func (m *Metrics) IncrementWithdrawals(scope string) {
	if m != nil {
		m.Withdrawals.WithLabelValues(scope).Inc()
	}
}
