package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder feeds the occurrence store's activity into prometheus.
type Recorder struct {
	materializeLatency prometheus.Gauge
	materialized       prometheus.Counter
	overrideWrites     *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		materializeLatency: factory.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_materialize_microsec",
			Help: "The latency of the last materialization in microseconds",
		}),
		materialized: factory.NewCounter(prometheus.CounterOpts{
			Name: "schedule_occurrences_materialized_total",
			Help: "Occurrences produced by materialization",
		}),
		overrideWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_override_writes_total",
			Help: "Overrides written, by kind",
		}, []string{"kind"}),
	}
}

func (r *Recorder) ObserveMaterialize(_ string, n int, elapsed time.Duration) {
	r.materializeLatency.Set(float64(elapsed.Microseconds()))
	r.materialized.Add(float64(n))
}

func (r *Recorder) ObserveOverrideWrite(_ string, cancelled bool) {
	kind := "reschedule"
	if cancelled {
		kind = "cancel"
	}
	r.overrideWrites.WithLabelValues(kind).Inc()
}
