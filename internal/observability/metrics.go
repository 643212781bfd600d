// Package observability exposes Prometheus metrics for the Lagerhof service.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the application metrics on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	syncCustomers   *prometheus.CounterVec
	syncRuns        prometheus.Counter
	invoiceBuilds   prometheus.Counter
	schemaGaps      *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lagerhof_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lagerhof_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	syncCustomers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lagerhof_sync_customers_total",
		Help: "Customers written by sync runs, by outcome.",
	}, []string{"outcome"})
	syncRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lagerhof_sync_runs_total",
		Help: "Completed customer sync runs.",
	})
	invoiceBuilds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lagerhof_invoice_builds_total",
		Help: "Invoice aggregates built.",
	})
	schemaGaps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lagerhof_schema_gaps_total",
		Help: "Rental tables skipped for lack of a safe column.",
	}, []string{"table", "missing"})
	registry.MustRegister(requests, duration, syncCustomers, syncRuns, invoiceBuilds, schemaGaps)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		syncCustomers:   syncCustomers,
		syncRuns:        syncRuns,
		invoiceBuilds:   invoiceBuilds,
		schemaGaps:      schemaGaps,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveSync records the outcome of one sync run.
func (m *Metrics) ObserveSync(inserted, updated int) {
	if m == nil {
		return
	}
	m.syncRuns.Inc()
	m.syncCustomers.WithLabelValues("inserted").Add(float64(inserted))
	m.syncCustomers.WithLabelValues("updated").Add(float64(updated))
}

// ObserveInvoiceBuild records one invoice aggregate build.
func (m *Metrics) ObserveInvoiceBuild() {
	if m == nil {
		return
	}
	m.invoiceBuilds.Inc()
}

// SchemaGap records a rental table skipped during line-item selection.
func (m *Metrics) SchemaGap(table, missing string) {
	if m == nil {
		return
	}
	m.schemaGaps.WithLabelValues(table, missing).Inc()
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for registering custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
