// Package prometheus exposes synapse runtime metrics in the Prometheus
// format.
package prometheus

import (
	"context"
	"net/http"
	"time"

	"github.com/fwojciec/synapse"
	"github.com/fwojciec/synapse/capture"
	"github.com/fwojciec/synapse/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "synapse"

var (
	_ capture.Recorder = (*Metrics)(nil)
	_ task.Recorder    = (*Metrics)(nil)
)

// Metrics holds the synapse collectors, registered on their own registry.
type Metrics struct {
	reg *prometheus.Registry

	CapturesTotal   *prometheus.CounterVec
	CaptureDuration *prometheus.HistogramVec
	FetchesTotal    *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	TasksTotal      *prometheus.CounterVec
	TaskDuration    prometheus.Histogram
}

// NewMetrics creates and registers all collectors, including the Go runtime
// and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		reg: reg,
		CapturesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "captures_total",
			Help:      "Finished captures by kind and outcome.",
		}, []string{"kind", "outcome"}),
		CaptureDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "capture_duration_seconds",
			Help:      "Capture pipeline duration.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"kind"}),
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetches_total",
			Help:      "HTTP fetches by result.",
		}, []string{"result"}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fetch_duration_seconds",
			Help:      "HTTP fetch duration.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		TasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tasks_total",
			Help:      "Finished background tasks by status.",
		}, []string{"status"}),
		TaskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "task_duration_seconds",
			Help:      "Background task duration.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
}

// ObserveCapture implements capture.Recorder.
func (m *Metrics) ObserveCapture(kind string, outcome capture.Outcome, elapsed time.Duration) {
	m.CapturesTotal.WithLabelValues(kind, string(outcome)).Inc()
	m.CaptureDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveTask implements task.Recorder.
func (m *Metrics) ObserveTask(err error, elapsed time.Duration) {
	m.TasksTotal.WithLabelValues(status(err)).Inc()
	m.TaskDuration.Observe(elapsed.Seconds())
}

// RegisterQueueDepth exposes the number of queued tasks, read from fn at
// scrape time.
func (m *Metrics) RegisterQueueDepth(fn func() int) {
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "task_queue_depth",
		Help:      "Tasks waiting for a worker.",
	}, func() float64 { return float64(fn()) })
}

// RegisterItemCount exposes the approximate number of distinct captured
// URLs, read from fn at scrape time.
func (m *Metrics) RegisterItemCount(fn func() uint) {
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "seen_urls",
		Help:      "Approximate number of distinct captured URLs.",
	}, func() float64 { return float64(fn()) })
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Ensure Fetcher implements synapse.Fetcher at compile time.
var _ synapse.Fetcher = (*Fetcher)(nil)

// Fetcher counts and times the calls of an underlying fetcher.
type Fetcher struct {
	fetcher synapse.Fetcher
	metrics *Metrics
}

// NewFetcher wraps fetcher with metrics.
func NewFetcher(fetcher synapse.Fetcher, metrics *Metrics) *Fetcher {
	return &Fetcher{fetcher: fetcher, metrics: metrics}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*synapse.FetchResult, error) {
	start := time.Now()
	res, err := f.fetcher.Fetch(ctx, url)
	f.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	f.metrics.FetchesTotal.WithLabelValues(status(err)).Inc()
	return res, err
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
