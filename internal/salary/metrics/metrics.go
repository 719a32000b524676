package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SalariesCreated  prometheus.Counter
	Moderations      *prometheus.CounterVec
	InsightsDuration prometheus.Histogram
}

// New registers the service metrics on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SalariesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "salaries_created_total",
			Help: "Total number of salary and story submissions created",
		}),
		Moderations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "salaries_moderation_total",
			Help: "Moderation transitions by action and outcome",
		}, []string{"action", "outcome"}),
		InsightsDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "salaries_insights_duration_seconds",
			Help:    "Duration of insights aggregation over the approved set",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.SalariesCreated.Inc()
}

// ObserveModeration records one transition attempt. outcome is "ok" or an
// error class such as "conflict" or "invalid_transition".
func (m *Metrics) ObserveModeration(action, outcome string) {
	m.Moderations.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) ObserveInsights(start time.Time) {
	m.InsightsDuration.Observe(time.Since(start).Seconds())
}
