package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notekeep"

// PrometheusRecorder exports metrics through a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	notes               *prometheus.CounterVec
	attachmentsStored   prometheus.Counter
	attachmentsRejected *prometheus.CounterVec
	authRejected        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

// NewPrometheus creates a recorder with its own registry, including the
// standard Go and process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()

	p := &PrometheusRecorder{
		registry: reg,
		notes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_total",
			Help:      "Note mutations by operation.",
		}, []string{"op"}),
		attachmentsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachments_stored_total",
			Help:      "Attachments written to storage.",
		}),
		attachmentsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachments_rejected_total",
			Help:      "Uploads rejected before storage.",
		}, []string{"reason"}),
		authRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_rejected_total",
			Help:      "Requests rejected by the authorizer or login.",
		}, []string{"reason"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		p.notes,
		p.attachmentsStored,
		p.attachmentsRejected,
		p.authRejected,
		p.httpDuration,
	)

	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncNoteCreated() { p.notes.WithLabelValues("create").Inc() }
func (p *PrometheusRecorder) IncNoteUpdated() { p.notes.WithLabelValues("update").Inc() }
func (p *PrometheusRecorder) IncNoteDeleted() { p.notes.WithLabelValues("delete").Inc() }

func (p *PrometheusRecorder) IncAttachmentStored() { p.attachmentsStored.Inc() }

func (p *PrometheusRecorder) IncAttachmentRejected(reason string) {
	p.attachmentsRejected.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncAuthRejected(reason string) {
	p.authRejected.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
