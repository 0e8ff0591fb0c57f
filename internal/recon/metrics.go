package recon

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Probe outcomes recorded by Metrics.
const (
	OutcomeFound = "found"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

// Metrics holds the Prometheus collectors for the scan engine. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	probes        *prometheus.CounterVec
	workerFailure prometheus.Counter
	passes        *prometheus.CounterVec
	passDuration  *prometheus.HistogramVec
	hosts         prometheus.Gauge
	lastPass      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lanscan",
			Name:      "probes_total",
			Help:      "Probes run, by outcome.",
		}, []string{"outcome"}),
		workerFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lanscan",
			Name:      "worker_failures_total",
			Help:      "Workers that ended a pass early on a probe failure.",
		}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lanscan",
			Name:      "passes_total",
			Help:      "Completed scan passes, by result.",
		}, []string{"result"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lanscan",
			Name:      "pass_phase_seconds",
			Help:      "Duration of scan pass phases.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"phase"}),
		hosts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lanscan",
			Name:      "hosts",
			Help:      "Hosts in the most recently published snapshot.",
		}),
		lastPass: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lanscan",
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time the most recent snapshot was published.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.probes, m.workerFailure, m.passes, m.passDuration, m.hosts, m.lastPass)
	}
	return m
}

func (m *Metrics) observeProbe(outcome string) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeWorkerFailure() {
	if m == nil {
		return
	}
	m.workerFailure.Inc()
}

func (m *Metrics) observePass(r PassReport) {
	if m == nil {
		return
	}
	result := "ok"
	if r.Degraded() {
		result = "degraded"
	}
	m.passes.WithLabelValues(result).Inc()
	m.passDuration.WithLabelValues("prep").Observe(r.Prep.Seconds())
	m.passDuration.WithLabelValues("scan").Observe(r.Scan.Seconds())
	m.hosts.Set(float64(r.Hosts))
	m.lastPass.Set(float64(r.Completed.Unix()))
}
