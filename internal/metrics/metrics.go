// Package metrics exposes interlock behaviour as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sweeney/laser-interlock/internal/logic"
)

// Metrics provides observability for the control loop.
type Metrics struct {
	registry *prometheus.Registry

	// Completed control cycles
	Cycles prometheus.Counter

	// Outcome of the latest cycle, 1 or 0
	Ready  prometheus.Gauge
	Manual prometheus.Gauge
	Armed  prometheus.Gauge
	Firing prometheus.Gauge

	// Cycles in which each interlock reported unsafe
	InterlockTrips *prometheus.CounterVec

	// Time from sampling the inputs to both outputs written
	CycleDuration prometheus.Histogram

	// Telemetry events discarded by the publish queue, set by TrackDropped
	TelemetryDropped prometheus.CounterFunc
}

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Cycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "laser_interlock_cycles_total",
			Help: "Total completed control cycles",
		}),
		Ready: factory.NewGauge(prometheus.GaugeOpts{
			Name: "laser_interlock_ready",
			Help: "1 if every interlock was safe in the latest cycle",
		}),
		Manual: factory.NewGauge(prometheus.GaugeOpts{
			Name: "laser_interlock_manual",
			Help: "1 if the panel button was the selected fire source in the latest cycle",
		}),
		Armed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "laser_interlock_armed",
			Help: "1 if the arm output was driven active in the latest cycle",
		}),
		Firing: factory.NewGauge(prometheus.GaugeOpts{
			Name: "laser_interlock_firing",
			Help: "1 if the fire output was driven active in the latest cycle",
		}),
		InterlockTrips: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "laser_interlock_interlock_trips_total",
			Help: "Cycles in which an interlock reported unsafe, by interlock",
		}, []string{"interlock"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "laser_interlock_cycle_duration_seconds",
			Help:    "Duration of one sample, evaluate and assert pass",
			Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
		}),
	}
}

// ObserveCycle records the outcome of one cycle.
func (m *Metrics) ObserveCycle(st logic.State, armed, firing bool, d time.Duration) {
	if m == nil {
		return
	}
	m.Cycles.Inc()
	m.Ready.Set(boolToFloat(st.Ready))
	m.Manual.Set(boolToFloat(st.Manual))
	m.Armed.Set(boolToFloat(armed))
	m.Firing.Set(boolToFloat(firing))
	for _, name := range st.Failing {
		m.InterlockTrips.WithLabelValues(name).Inc()
	}
	m.CycleDuration.Observe(d.Seconds())
}

// ObserveSafe records that both outputs were forced inactive outside a cycle.
func (m *Metrics) ObserveSafe() {
	if m == nil {
		return
	}
	m.Armed.Set(0)
	m.Firing.Set(0)
}

// TrackDropped exports the publish queue's dropped count, read at scrape time.
func (m *Metrics) TrackDropped(dropped func() int) {
	if m == nil {
		return
	}
	m.TelemetryDropped = promauto.With(m.registry).NewCounterFunc(prometheus.CounterOpts{
		Name: "laser_interlock_telemetry_dropped_total",
		Help: "Telemetry events discarded because the publish queue was full or closing",
	}, func() float64 { return float64(dropped()) })
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
