package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/docqa/internal/config"
	"github.com/kirillkom/docqa/internal/core/ports"
	"github.com/kirillkom/docqa/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	uploader ports.CatalogUploader
	catalog  ports.CatalogReader
	qa       ports.QASessions

	objects http.Handler
	metrics *metrics.HTTPServerMetrics

	maxUploadBytes int64
	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
	queueWait      time.Duration
}

type Option func(*Router)

// WithObjects mounts the signed object download handler under /v1/objects/.
func WithObjects(handler http.Handler) Option {
	return func(rt *Router) {
		rt.objects = handler
	}
}

func WithMetrics(m *metrics.HTTPServerMetrics) Option {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func NewRouter(
	cfg config.Config,
	uploader ports.CatalogUploader,
	catalog ports.CatalogReader,
	qa ports.QASessions,
	opts ...Option,
) *Router {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	rt := &Router{
		uploader:       uploader,
		catalog:        catalog,
		qa:             qa,
		maxUploadBytes: maxUpload,
		rateLimitRPS:   cfg.APIRateLimitRPS,
		rateLimitBurst: cfg.APIRateLimitBurst,
		maxInFlight:    cfg.APIMaxInFlight,
		queueWait:      cfg.APIQueueWait(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/catalog", rt.catalogCollection)
	mux.HandleFunc("/v1/catalog/export", rt.exportCatalog)
	mux.HandleFunc("/v1/catalog/", rt.previewCatalogRecord)
	mux.HandleFunc("/v1/qa/sessions", rt.openSession)
	mux.HandleFunc("/v1/qa/sessions/", rt.sessionResource)
	if rt.objects != nil {
		mux.Handle("/v1/objects/", rt.objects)
	}
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.queueWait)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) catalogCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadCatalogRecord(w, r)
	case http.MethodGet:
		rt.listCatalog(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (rt *Router) openSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	rt.createSession(w, r)
}

// sessionResource serves /v1/qa/sessions/{id} and /v1/qa/sessions/{id}/query.
func (rt *Router) sessionResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/qa/sessions/"), "/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session id is required", Kind: "invalid input"})
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			rt.getSession(w, id)
		case http.MethodDelete:
			rt.closeSession(w, id)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodDelete)
		}
	case "query":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		rt.askSession(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
