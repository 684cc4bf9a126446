// Package metrics exposes Prometheus instrumentation for the API. All
// recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketplace"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	bidsAccepted  prometheus.Counter
	bidsSubmitted prometheus.Counter
	orderStatus   *prometheus.CounterVec
	payments      *prometheus.CounterVec
	messages      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	emails        *prometheus.CounterVec
	emailQueue    prometheus.Gauge
	sseClients    prometheus.Gauge
	jobRuns       *prometheus.CounterVec
}

// New creates the collectors on a dedicated registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		bidsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_accepted_total",
			Help:      "Bids accepted by clients.",
		}),
		bidsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_submitted_total",
			Help:      "Bids submitted by partners.",
		}),
		orderStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transitions by target status.",
		}, []string{"status"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_transitions_total",
			Help:      "Payment status changes by resulting status.",
		}, []string{"status"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Chat messages stored, split by whether content was redacted.",
		}, []string{"redacted"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications dispatched by type and result.",
		}, []string{"type", "result"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Transactional emails by result (sent, failed, dropped).",
		}, []string{"result"}),
		emailQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "email_queue_depth",
			Help:      "Emails waiting to be sent.",
		}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_subscribers",
			Help:      "Open server-sent event streams.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job executions by job and result.",
		}, []string{"job", "result"}),
	}

	reg.MustRegister(
		m.httpRequests, m.httpDuration, m.bidsAccepted, m.bidsSubmitted,
		m.orderStatus, m.payments, m.messages, m.notifications, m.emails,
		m.emailQueue, m.sseClients, m.jobRuns,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) BidSubmitted() {
	if m == nil {
		return
	}
	m.bidsSubmitted.Inc()
}

func (m *Metrics) BidAccepted() {
	if m == nil {
		return
	}
	m.bidsAccepted.Inc()
}

func (m *Metrics) OrderTransition(status string) {
	if m == nil {
		return
	}
	m.orderStatus.WithLabelValues(status).Inc()
}

func (m *Metrics) PaymentTransition(status string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(status).Inc()
}

func (m *Metrics) MessageStored(redacted bool) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(strconv.FormatBool(redacted)).Inc()
}

func (m *Metrics) NotificationDispatched(notificationType string, ok bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.notifications.WithLabelValues(notificationType, result).Inc()
}

// EmailResult records an email outcome: sent, failed or dropped
func (m *Metrics) EmailResult(result string) {
	if m == nil {
		return
	}
	m.emails.WithLabelValues(result).Inc()
}

func (m *Metrics) SetEmailQueueDepth(n int) {
	if m == nil {
		return
	}
	m.emailQueue.Set(float64(n))
}

func (m *Metrics) SSESubscribed() {
	if m == nil {
		return
	}
	m.sseClients.Inc()
}

func (m *Metrics) SSEUnsubscribed() {
	if m == nil {
		return
	}
	m.sseClients.Dec()
}

func (m *Metrics) JobRun(job string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}
