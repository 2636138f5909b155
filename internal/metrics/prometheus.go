// Package metrics exposes autoscaler internals in Prometheus format.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/cku-autoscaler/internal/resilience"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

const namespace = "cku_autoscaler"

type Metrics struct {
	registry *prometheus.Registry

	clusterCapacity   *prometheus.GaugeVec
	metricUtilization *prometheus.GaugeVec
	circuitState      *prometheus.GaugeVec
	decisionsTotal    *prometheus.CounterVec
	resizesTotal      *prometheus.CounterVec
	metricFailures    *prometheus.CounterVec
	cyclesTotal       *prometheus.CounterVec
	cycleDuration     *prometheus.HistogramVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics set.
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New builds a metrics set on its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		clusterCapacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cluster_capacity",
			Help:      "Provisioned CKU as reported by the cluster API",
		}, []string{"cluster", "kind"}),
		metricUtilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "metric_utilization_percent",
			Help:      "Latest utilization percentage per metric",
		}, []string{"cluster", "metric"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Scaling decisions by action",
		}, []string{"cluster", "action"}),
		resizesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resizes_total",
			Help:      "Resize requests by result",
		}, []string{"cluster", "result"}),
		metricFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metric_failures_total",
			Help:      "Metrics that could not be evaluated, by outcome",
		}, []string{"cluster", "metric", "outcome"}),
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Poll cycles by result",
		}, []string{"cluster", "result"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of poll cycles",
			Buckets:   prometheus.DefBuckets,
		}, []string{"cluster"}),
	}

	m.registry.MustRegister(
		m.clusterCapacity,
		m.metricUtilization,
		m.circuitState,
		m.decisionsTotal,
		m.resizesTotal,
		m.metricFailures,
		m.cyclesTotal,
		m.cycleDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) SetClusterState(state *models.ClusterState) {
	m.clusterCapacity.WithLabelValues(state.ClusterID, "current").Set(float64(state.CurrentCapacity))
	m.clusterCapacity.WithLabelValues(state.ClusterID, "target").Set(float64(state.TargetCapacity))
}

// ObserveDecision records the decision and the newest utilization point of
// every evaluated metric.
func (m *Metrics) ObserveDecision(d *models.ScalingDecision) {
	m.decisionsTotal.WithLabelValues(d.ClusterID, string(d.Action)).Inc()
	for _, eval := range d.Evaluations {
		if eval.Outcome != models.OutcomeEvaluated {
			m.metricFailures.WithLabelValues(d.ClusterID, string(eval.Metric), string(eval.Outcome)).Inc()
			continue
		}
		if n := len(eval.Window); n > 0 {
			m.metricUtilization.WithLabelValues(d.ClusterID, string(eval.Metric)).Set(float64(eval.Window[n-1].Percent))
		}
	}
}

func (m *Metrics) IncResize(clusterID string, status models.ResizeStatus) {
	m.resizesTotal.WithLabelValues(clusterID, string(status)).Inc()
}

func (m *Metrics) ObserveCycle(clusterID, result string, duration time.Duration) {
	m.cyclesTotal.WithLabelValues(clusterID, result).Inc()
	m.cycleDuration.WithLabelValues(clusterID).Observe(duration.Seconds())
}

func (m *Metrics) SetCircuitState(name string, state resilience.State) {
	m.circuitState.WithLabelValues(name).Set(float64(state))
}

// Forget drops every series labelled with the cluster.
func (m *Metrics) Forget(clusterID string) {
	labels := prometheus.Labels{"cluster": clusterID}
	m.clusterCapacity.DeletePartialMatch(labels)
	m.metricUtilization.DeletePartialMatch(labels)
	m.decisionsTotal.DeletePartialMatch(labels)
	m.resizesTotal.DeletePartialMatch(labels)
	m.metricFailures.DeletePartialMatch(labels)
	m.cyclesTotal.DeletePartialMatch(labels)
	m.cycleDuration.DeletePartialMatch(labels)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
