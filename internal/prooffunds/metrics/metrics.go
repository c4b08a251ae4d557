package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Deposits      prometheus.Counter
	ProofsCreated prometheus.Counter
	ProofUses     *prometheus.CounterVec
	Withdrawals   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Deposits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_prooffunds_deposits_total",
			Help: "Deposits into proof-of-funds custody",
		}),
		ProofsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_prooffunds_proofs_created_total",
			Help: "Proofs created",
		}),
		ProofUses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_prooffunds_proof_uses_total",
			Help: "Proof use attempts by result",
		}, []string{"result"}),
		Withdrawals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_prooffunds_withdrawals_total",
			Help: "Withdrawals from proof-of-funds custody",
		}),
	}
}

func (m *Metrics) IncrementDeposits() {
	if m != nil {
		m.Deposits.Inc()
	}
}

func (m *Metrics) IncrementProofsCreated() {
	if m != nil {
		m.ProofsCreated.Inc()
	}
}

func (m *Metrics) ObserveProofUse(result string) {
	if m != nil {
		m.ProofUses.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementWithdrawals() {
	if m != nil {
		m.Withdrawals.Inc()
	}
}
