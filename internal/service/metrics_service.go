package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the webhook
// surface and the filing pipeline. A nil *MetricsService is a no-op, so
// callers never have to guard.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	submissions *prometheus.CounterVec
	attachments prometheus.Counter
	folders     prometheus.Counter
	fallbacks   *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_submissions_total",
		Help: "Form submissions handled, by outcome",
	}, []string{"outcome"})

	attachments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intake_attachments_filed_total",
		Help: "Attachments moved, renamed and annotated",
	})

	folders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intake_folders_created_total",
		Help: "Classification folders created",
	})

	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_classification_fallbacks_total",
		Help: "Submissions that fell back to a default or invalid label",
	}, []string{"reason"})

	registry.MustRegister(requestDuration, requestTotal, submissions, attachments, folders, fallbacks)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		submissions:     submissions,
		attachments:     attachments,
		folders:         folders,
		fallbacks:       fallbacks,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}

// ObserveHTTPRequest records one handled HTTP request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// SubmissionObserved counts one submission with its outcome.
func (m *MetricsService) SubmissionObserved(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// AttachmentFiled counts one fully filed attachment.
func (m *MetricsService) AttachmentFiled() {
	if m == nil {
		return
	}
	m.attachments.Inc()
}

// FolderCreated counts one created classification folder.
func (m *MetricsService) FolderCreated() {
	if m == nil {
		return
	}
	m.folders.Inc()
}

// ClassificationFallback counts a default or invalid-label fallback.
func (m *MetricsService) ClassificationFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}
