package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "expensetracker"

// Recorder owns a private registry so several trackers can coexist in one
// process (tests create many).
type Recorder struct {
	registry *prometheus.Registry

	mutations      *prometheus.CounterVec
	storedExpenses prometheus.Gauge
	responseTime   *prometheus.HistogramVec
	published      *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tracker",
				Name:      "mutations_total",
				Help:      "Collection mutations by operation and outcome.",
			},
			[]string{"operation", "status"},
		),
		storedExpenses: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "tracker",
				Name:      "stored_expenses",
				Help:      "Number of expenses currently held.",
			},
		),
		responseTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "histogram_response_time_seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
			},
			[]string{"method", "code"},
		),
		published: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Mutation events handed to the broker.",
			},
			[]string{"type", "status"},
		),
	}
}

func (r *Recorder) ObserveMutation(op string, err error) {
	r.mutations.WithLabelValues(op, status(err)).Inc()
}

func (r *Recorder) SetStored(n int) {
	r.storedExpenses.Set(float64(n))
}

func (r *Recorder) ObserveResponse(method string, code int, elapsed time.Duration) {
	r.responseTime.
		WithLabelValues(method, strconv.Itoa(code)).
		Observe(elapsed.Seconds())
}

func (r *Recorder) ObservePublish(eventType string, err error) {
	r.published.WithLabelValues(eventType, status(err)).Inc()
}

// Handler serves the exposition format for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
