package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	qaSessionsTotal  *prometheus.CounterVec
	qaAnswersTotal   *prometheus.CounterVec
	qaCitations      *prometheus.HistogramVec
	qaAnswerDuration *prometheus.HistogramVec
	uploadsTotal     *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	qaSessionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "qa",
			Name:      "sessions_opened_total",
			Help:      "Total opened QA sessions by initial status.",
		},
		[]string{"service", "status"},
	)
	qaAnswersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "qa",
			Name:      "answers_total",
			Help:      "Total QA questions by outcome.",
		},
		[]string{"service", "outcome"},
	)
	qaCitations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "qa",
			Name:      "citations",
			Help:      "Distribution of cited source documents per answer.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8},
		},
		[]string{"service"},
	)
	qaAnswerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "qa",
			Name:      "answer_duration_seconds",
			Help:      "Time spent answering one question, including completion retries.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"service"},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "catalog",
			Name:      "uploads_total",
			Help:      "Total upload submissions by terminal state and failing step.",
		},
		[]string{"service", "state", "step"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		qaSessionsTotal,
		qaAnswersTotal,
		qaCitations,
		qaAnswerDuration,
		uploadsTotal,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		qaSessionsTotal:  qaSessionsTotal,
		qaAnswersTotal:   qaAnswersTotal,
		qaCitations:      qaCitations,
		qaAnswerDuration: qaAnswerDuration,
		uploadsTotal:     uploadsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses ids and object keys so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/objects/"):
		return "/v1/objects/{key}"
	case strings.HasPrefix(path, "/v1/qa/sessions/"):
		if strings.HasSuffix(path, "/query") {
			return "/v1/qa/sessions/{session_id}/query"
		}
		return "/v1/qa/sessions/{session_id}"
	case strings.HasPrefix(path, "/v1/catalog/") && strings.HasSuffix(path, "/preview"):
		return "/v1/catalog/{record_id}/preview"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordSessionOpened(service, status string) {
	if status == "" {
		status = "unknown"
	}
	m.qaSessionsTotal.WithLabelValues(service, status).Inc()
}

func (m *HTTPServerMetrics) RecordAnswer(service, outcome string, citations int, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.qaAnswersTotal.WithLabelValues(service, outcome).Inc()
	m.qaAnswerDuration.WithLabelValues(service).Observe(duration.Seconds())
	if outcome == "ok" {
		m.qaCitations.WithLabelValues(service).Observe(float64(citations))
	}
}

func (m *HTTPServerMetrics) RecordUpload(service, state, step string) {
	if state == "" {
		state = "unknown"
	}
	m.uploadsTotal.WithLabelValues(service, state, step).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
