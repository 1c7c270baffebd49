package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "assetbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg                *prom.Registry
	stepDuration       *prom.HistogramVec
	stepResults        *prom.CounterVec
	invocationDuration *prom.HistogramVec
	invocationOutcome  *prom.CounterVec
	watchTriggers      *prom.CounterVec
	reloads            prom.Counter
}

// NewPrometheusRecorder constructs and registers the metrics on reg (a new registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		stepDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of individual pipeline steps",
			Buckets:   prom.DefBuckets,
		}, []string{"step"}),
		stepResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "step_results_total",
			Help:      "Step results by outcome",
		}, []string{"step", "result"}),
		invocationDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Duration of graph invocations by entry target",
			Buckets:   prom.DefBuckets,
		}, []string{"target"}),
		invocationOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "invocation_outcomes_total",
			Help:      "Graph invocation outcomes",
		}, []string{"target", "outcome"}),
		watchTriggers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_triggers_total",
			Help:      "Watch-triggered invocations by target",
		}, []string{"target"}),
		reloads: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "livereload_broadcasts_total",
			Help:      "Reload signals sent to connected clients",
		}),
	}
	reg.MustRegister(pr.stepDuration, pr.stepResults, pr.invocationDuration, pr.invocationOutcome, pr.watchTriggers, pr.reloads)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

// Handler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *PrometheusRecorder) ObserveStepDuration(step string, d time.Duration) {
	if p == nil {
		return
	}
	p.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStepResult(step string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stepResults.WithLabelValues(step, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveInvocationDuration(target string, d time.Duration) {
	if p == nil {
		return
	}
	p.invocationDuration.WithLabelValues(target).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncInvocationOutcome(target string, ok bool) {
	if p == nil {
		return
	}
	outcome := "failed"
	if ok {
		outcome = "success"
	}
	p.invocationOutcome.WithLabelValues(target, outcome).Inc()
}

func (p *PrometheusRecorder) IncWatchTrigger(target string) {
	if p == nil {
		return
	}
	p.watchTriggers.WithLabelValues(target).Inc()
}

func (p *PrometheusRecorder) IncReload() {
	if p == nil {
		return
	}
	p.reloads.Inc()
}
