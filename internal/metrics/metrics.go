// Package metrics exports classification counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veil-waf/flowscan/internal/classify"
)

const namespace = "flowscan"

// Recorder implements classify.Observer.
type Recorder struct {
	registry   *prometheus.Registry
	verdicts   *prometheus.CounterVec
	rejections *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	confidence *prometheus.HistogramVec
}

// New creates a Recorder with its own registry. Go runtime and process
// collectors are registered alongside the classification metrics.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Successful classifications by mode, category and verdict label.",
		}, []string{"mode", "category", "verdict"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Rejected classification requests by mode and error kind.",
		}, []string{"mode", "kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_seconds",
			Help:      "Time spent scaling and evaluating the model.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14),
		}, []string{"mode"}),
		confidence: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verdict_confidence",
			Help:      "Probability of the winning class.",
			Buckets:   prometheus.LinearBuckets(0.5, 0.05, 10),
		}, []string{"mode"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.verdicts, r.rejections, r.latency, r.confidence,
	)
	return r
}

// ObserveResult counts a verdict and records its latency.
func (r *Recorder) ObserveResult(mode classify.Mode, res *classify.Result, elapsed time.Duration) {
	m := modeLabel(mode)
	r.verdicts.WithLabelValues(m, string(res.Category), res.Verdict).Inc()
	r.latency.WithLabelValues(m).Observe(elapsed.Seconds())
	r.confidence.WithLabelValues(m).Observe(res.Probability)
}

// ObserveRejection counts a request that failed before producing a verdict.
func (r *Recorder) ObserveRejection(mode classify.Mode, kind classify.Kind) {
	r.rejections.WithLabelValues(modeLabel(mode), kind.String()).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry so other components can add
// their own collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func modeLabel(m classify.Mode) string {
	switch m {
	case classify.Binary, classify.Multi:
		return m.String()
	default:
		return "unknown"
	}
}
