// Package observability exposes Prometheus metrics and Sentry error reporting.
package observability

import (
	"net/http"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "gearguard"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ingestTotal     *prometheus.CounterVec
	ingestDuration  *prometheus.HistogramVec
	ticketsTotal    *prometheus.CounterVec
	suppressedTotal prometheus.Counter
	sinkPublished   *prometheus.CounterVec
	sinkErrors      *prometheus.CounterVec
	mqttConnected   prometheus.Gauge
}

// NewMetrics registers all collectors, including Go runtime and process collectors.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cbm",
			Name:      "readings_total",
			Help:      "Readings submitted to the trigger engine by result.",
		}, []string{"result"}),
		ingestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cbm",
			Name:      "ingest_duration_seconds",
			Help:      "Time spent ingesting one reading.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"result"}),
		ticketsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cbm",
			Name:      "tickets_created_total",
			Help:      "Condition-based maintenance requests created.",
		}, []string{"equipment_id", "priority"}),
		suppressedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cbm",
			Name:      "violations_suppressed_total",
			Help:      "Violations the incident policy did not turn into requests.",
		}),
		sinkPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "published_total",
			Help:      "Outcomes forwarded to downstream sinks.",
		}, []string{"sink"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "Failed forwards to downstream sinks.",
		}, []string{"sink"}),
		mqttConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "connected",
			Help:      "1 while the MQTT sensor bridge is connected.",
		}),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ingestTotal,
		m.ingestDuration,
		m.ticketsTotal,
		m.suppressedTotal,
		m.sinkPublished,
		m.sinkErrors,
		m.mqttConnected,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveIngest implements cbm.Metrics.
func (m *Metrics) ObserveIngest(result string, duration time.Duration) {
	m.ingestTotal.WithLabelValues(result).Inc()
	m.ingestDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// AddTickets implements cbm.Metrics.
func (m *Metrics) AddTickets(equipmentID, priority string, count int) {
	m.ticketsTotal.WithLabelValues(equipmentID, priority).Add(float64(count))
}

// AddSuppressed implements cbm.Metrics.
func (m *Metrics) AddSuppressed(count int) {
	m.suppressedTotal.Add(float64(count))
}

// ObserveSink counts one forward attempt to a downstream sink.
func (m *Metrics) ObserveSink(sink string, err error) {
	if err != nil {
		m.sinkErrors.WithLabelValues(sink).Inc()
		return
	}
	m.sinkPublished.WithLabelValues(sink).Inc()
}

// SetMQTTConnected records the sensor bridge connection state.
func (m *Metrics) SetMQTTConnected(connected bool) {
	if connected {
		m.mqttConnected.Set(1)
		return
	}
	m.mqttConnected.Set(0)
}

// MQTTConnectedGauge exposes the connection gauge for assertions.
func (m *Metrics) MQTTConnectedGauge() prometheus.Gauge { return m.mqttConnected }

// RegisterBus exposes the outcome bus drop counter.
func (m *Metrics) RegisterBus(bus *cbm.OutcomeBus) error {
	return m.registry.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cbm",
		Name:      "outcomes_dropped_total",
		Help:      "Outcomes discarded because the observer queue was full.",
	}, func() float64 { return float64(bus.Dropped()) }))
}

// ReadingCounts gathers the readings counter keyed by result, for the health endpoint.
func (m *Metrics) ReadingCounts() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	counts := make(map[string]float64)
	for _, mf := range families {
		if mf.GetName() != namespace+"_cbm_readings_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			counts[labelValue(metric, "result")] = metric.GetCounter().GetValue()
		}
	}
	return counts, nil
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

var _ cbm.Metrics = (*Metrics)(nil)
