package service

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the ingestion pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	uploadsTotal     *prometheus.CounterVec
	rowsReconciled   *prometheus.CounterVec
	payrollRuns      *prometheus.CounterVec
	payoutTransfers  *prometheus.CounterVec
	ingestionLatency prometheus.Observer
}

// NewMetricsService registers core Prometheus collectors.
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

	uploadsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_uploads_total",
		Help: "Attendance report uploads by outcome",
	}, []string{"outcome"})

	rowsReconciled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_rows_total",
		Help: "Attendance rows reconciled by disposition",
	}, []string{"disposition"})

	payrollRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_runs_total",
		Help: "Payroll processing runs by outcome",
	}, []string{"outcome"})

	payoutTransfers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_transfers_total",
		Help: "Payout gateway transfers by outcome",
	}, []string{"outcome"})

	ingestionLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "attendance_ingestion_seconds",
		Help:    "End-to-end latency of one upload's reconciliation",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, uploadsTotal, rowsReconciled, payrollRuns, payoutTransfers, ingestionLatency, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		uploadsTotal:     uploadsTotal,
		rowsReconciled:   rowsReconciled,
		payrollRuns:      payrollRuns,
		payoutTransfers:  payoutTransfers,
		ingestionLatency: ingestionLatency,
	}
}

// Handler exposes the scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// RecordRequest observes one HTTP request.
func (s *MetricsService) RecordRequest(method, path, status string, duration time.Duration) {
	s.requestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, status).Inc()
}

// RecordUpload counts one upload with its outcome label.
func (s *MetricsService) RecordUpload(outcome string, duration time.Duration) {
	s.uploadsTotal.WithLabelValues(outcome).Inc()
	s.ingestionLatency.Observe(duration.Seconds())
}

// RecordRows counts reconciled rows by disposition.
func (s *MetricsService) RecordRows(disposition string, n int) {
	if n > 0 {
		s.rowsReconciled.WithLabelValues(disposition).Add(float64(n))
	}
}

// RecordPayrollRun counts one payroll processing attempt.
func (s *MetricsService) RecordPayrollRun(outcome string) {
	s.payrollRuns.WithLabelValues(outcome).Inc()
}

// RecordPayout counts one gateway transfer attempt.
func (s *MetricsService) RecordPayout(outcome string) {
	s.payoutTransfers.WithLabelValues(outcome).Inc()
}
