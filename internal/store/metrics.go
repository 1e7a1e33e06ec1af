package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aselya-coder/PraktisiMengajar/internal/model"
)

// Metrics counts loads and updates and times remote calls. A nil *Metrics
// records nothing.
type Metrics struct {
	Loads   *prometheus.CounterVec
	Updates *prometheus.CounterVec
	Remote  *prometheus.HistogramVec
}

// NewMetrics registers the store collectors with reg. It panics when they
// are already registered, like promauto.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Loads tracks which source each load settled on
		Loads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecontent_loads_total",
				Help: "Total number of content loads by winning source",
			},
			[]string{"source"},
		),
		// Updates tracks section updates by outcome
		Updates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecontent_updates_total",
				Help: "Total number of section updates by section and status",
			},
			[]string{"section", "status"},
		),
		Remote: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitecontent_remote_seconds",
				Help:    "Latency of remote content store calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op", "result"},
		),
	}
}

func (m *Metrics) loaded(source Source) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) updated(key model.SectionKey, status Status) {
	if m == nil {
		return
	}
	section := string(key)
	if !key.Valid() {
		section = "unknown"
	}
	m.Updates.WithLabelValues(section, status.String()).Inc()
}

func (m *Metrics) observeRemote(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Remote.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}
