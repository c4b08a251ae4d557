package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	IdentitiesRegistered prometheus.Counter
	DelegateChanges      prometheus.Counter
	AuthorizationChecks  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		IdentitiesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_identities_registered_total",
			Help: "Total number of identities registered",
		}),
		DelegateChanges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_identity_delegate_changes_total",
			Help: "Total number of delegate set mutations",
		}),
		AuthorizationChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_identity_authorization_checks_total",
			Help: "Authorization checks by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementRegistered() {
	if m != nil {
		m.IdentitiesRegistered.Inc()
	}
}

func (m *Metrics) IncrementDelegateChanges() {
	if m != nil {
		m.DelegateChanges.Inc()
	}
}

func (m *Metrics) ObserveAuthorization(allowed bool) {
	if m == nil {
		return
	}
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.AuthorizationChecks.WithLabelValues(result).Inc()
}
