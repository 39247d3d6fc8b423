// Package metrics exposes reconciliation counters and durations to
// prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "whalesbook"

// Recorder implements ports.Recorder on top of a prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	reconciles *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	builds     *prometheus.CounterVec
	starts     *prometheus.CounterVec
	stops      *prometheus.CounterVec
	prunes     *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		reconciles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliation cycles by book and outcome.",
		}, []string{"book", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconciliation_duration_seconds",
			Help:      "Wall time of reconciliation cycles.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"book"}),
		builds: result(f, "builds_total", "Image builds by book and result."),
		starts: result(f, "container_starts_total", "Container starts by book and result."),
		stops:  result(f, "container_stops_total", "Container stops by book and result."),
		prunes: result(f, "tags_pruned_total", "Registry tag deletions by book and result."),
	}
}

func result(f promauto.Factory, name, help string) *prometheus.CounterVec {
	return f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, []string{"book", "result"})
}

func label(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (r *Recorder) ReconcileFinished(book, outcome string, elapsed time.Duration) {
	r.reconciles.WithLabelValues(book, outcome).Inc()
	r.duration.WithLabelValues(book).Observe(elapsed.Seconds())
}

func (r *Recorder) BuildFinished(book string, err error) {
	r.builds.WithLabelValues(book, label(err)).Inc()
}

func (r *Recorder) ContainerStarted(book string, err error) {
	r.starts.WithLabelValues(book, label(err)).Inc()
}

func (r *Recorder) ContainerStopped(book string, err error) {
	r.stops.WithLabelValues(book, label(err)).Inc()
}

func (r *Recorder) TagPruned(book string, err error) {
	r.prunes.WithLabelValues(book, label(err)).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
