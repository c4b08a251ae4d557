package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ScoreUpdates  *prometheus.CounterVec
	DecayedPoints prometheus.Counter
	WeightChanges prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ScoreUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_reputation_score_updates_total",
			Help: "Score updates by role and direction",
		}, []string{"role", "direction"}),
		DecayedPoints: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_reputation_decayed_points_total",
			Help: "Score points removed by lazy decay",
		}),
		WeightChanges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_reputation_weight_changes_total",
			Help: "Action weight configuration changes",
		}),
	}
}

func (m *Metrics) IncrementScoreUpdate(role string, positive bool) {
	if m == nil {
		return
	}
	direction := "down"
	if positive {
		direction = "up"
	}
	m.ScoreUpdates.WithLabelValues(role, direction).Inc()
}

func (m *Metrics) AddDecayedPoints(points int64) {
	if m != nil && points > 0 {
		m.DecayedPoints.Add(float64(points))
	}
}

func (m *Metrics) IncrementWeightChanges() {
	if m != nil {
		m.WeightChanges.Inc()
	}
}
