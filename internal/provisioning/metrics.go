package provisioning

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ensure results recorded in amldeploy_ensure_total.
const (
	resultExists  = "exists"
	resultCreated = "created"
	resultFailed  = "failed"
	resultInvalid = "invalid"
)

// Metrics collects run metrics in a private registry. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	ensureTotal     *prometheus.CounterVec
	phaseDuration   *prometheus.HistogramVec
	jobPollsTotal   prometheus.Counter
	jobDuration     *prometheus.HistogramVec
	invokeTotal     *prometheus.CounterVec
	trafficUpdates  prometheus.Counter
	runDuration     *prometheus.HistogramVec
	runResultsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the run metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ensureTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amldeploy",
				Name:      "ensure_total",
				Help:      "Get-or-create operations by resource kind and result",
			},
			[]string{"kind", "result"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "amldeploy",
				Name:      "phase_duration_seconds",
				Help:      "Duration of workflow phases in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8), // 100ms to ~27min
			},
			[]string{"phase"},
		),
		jobPollsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "amldeploy",
				Subsystem: "job",
				Name:      "status_polls_total",
				Help:      "Training job status checks",
			},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "amldeploy",
				Subsystem: "job",
				Name:      "duration_seconds",
				Help:      "Time from job submission to a terminal status",
				Buckets:   prometheus.ExponentialBuckets(30, 2, 9), // 30s to ~2h
			},
			[]string{"status"},
		),
		invokeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amldeploy",
				Name:      "invoke_total",
				Help:      "Scoring requests by target and result",
			},
			[]string{"target", "result"},
		),
		trafficUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "amldeploy",
				Name:      "traffic_updates_total",
				Help:      "Endpoint traffic updates pushed by the cutover",
			},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "amldeploy",
				Name:      "run_duration_seconds",
				Help:      "Duration of a whole workflow run in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8), // 1s to ~4.5h
			},
			[]string{"workflow"},
		),
		runResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amldeploy",
				Name:      "runs_total",
				Help:      "Workflow runs by result",
			},
			[]string{"workflow", "result"},
		),
	}

	m.registry.MustRegister(
		m.ensureTotal,
		m.phaseDuration,
		m.jobPollsTotal,
		m.jobDuration,
		m.invokeTotal,
		m.trafficUpdates,
		m.runDuration,
		m.runResultsTotal,
	)
	return m
}

// Registry exposes the registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) recordEnsure(kind, result string) {
	if m == nil {
		return
	}
	m.ensureTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) recordPhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *Metrics) recordJobPoll() {
	if m == nil {
		return
	}
	m.jobPollsTotal.Inc()
}

func (m *Metrics) recordJobFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) recordInvoke(target, result string) {
	if m == nil {
		return
	}
	m.invokeTotal.WithLabelValues(target, result).Inc()
}

func (m *Metrics) recordTrafficUpdate() {
	if m == nil {
		return
	}
	m.trafficUpdates.Inc()
}

func (m *Metrics) recordRun(workflow, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.runResultsTotal.WithLabelValues(workflow, result).Inc()
	m.runDuration.WithLabelValues(workflow).Observe(d.Seconds())
}
