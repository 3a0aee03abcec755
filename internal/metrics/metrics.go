// Package metrics exposes Prometheus metrics for the incident pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the incident workflow.
type Metrics struct {
	WorkflowsTotal     *prometheus.CounterVec
	WorkflowDuration   *prometheus.HistogramVec
	FallbacksTotal     prometheus.Counter
	RetrievalHits      prometheus.Histogram
	TicketsTotal       *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	EmailsRejected     prometheus.Counter
	QueueDepth         prometheus.Gauge
}

// New registers and returns workflow metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WorkflowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragincident_workflows_total",
			Help: "Total processed incidents by outcome.",
		}, []string{"outcome"}),
		WorkflowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragincident_workflow_duration_seconds",
			Help:    "End-to-end incident processing time in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		}, []string{"outcome"}),
		FallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ragincident_fallbacks_total",
			Help: "Total incidents that took the fallback ticket path.",
		}),
		RetrievalHits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ragincident_retrieval_hits",
			Help:    "Knowledge base hits above threshold per incident.",
			Buckets: prometheus.LinearBuckets(0, 1, 11), // 0 .. 10
		}),
		TicketsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragincident_tickets_total",
			Help: "Total ticket creation attempts by result.",
		}, []string{"result"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragincident_notifications_total",
			Help: "Total notification sends by result.",
		}, []string{"result"}),
		EmailsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ragincident_emails_rejected_total",
			Help: "Total inbound emails rejected by trigger validation.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ragincident_queue_depth",
			Help: "Incidents currently waiting in the processing queue.",
		}),
	}

	reg.MustRegister(
		m.WorkflowsTotal,
		m.WorkflowDuration,
		m.FallbacksTotal,
		m.RetrievalHits,
		m.TicketsTotal,
		m.NotificationsTotal,
		m.EmailsRejected,
		m.QueueDepth,
	)

	return m
}

// ObserveWorkflow records one finished workflow run.
func (m *Metrics) ObserveWorkflow(success, fallback bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	switch {
	case !success:
		outcome = "failure"
	case fallback:
		outcome = "fallback"
	}
	m.WorkflowsTotal.WithLabelValues(outcome).Inc()
	m.WorkflowDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if fallback {
		m.FallbacksTotal.Inc()
	}
}

// ObserveEmailRejected records an inbound email rejected by validation.
func (m *Metrics) ObserveEmailRejected() {
	if m == nil {
		return
	}
	m.EmailsRejected.Inc()
}

// TaskEnqueued bumps the queue depth gauge.
func (m *Metrics) TaskEnqueued() {
	if m == nil {
		return
	}
	m.QueueDepth.Inc()
}

// TaskDone lowers the queue depth gauge.
func (m *Metrics) TaskDone() {
	if m == nil {
		return
	}
	m.QueueDepth.Dec()
}

// ObserveRetrieval records the number of knowledge base hits used for one
// incident.
func (m *Metrics) ObserveRetrieval(hits int) {
	if m == nil {
		return
	}
	m.RetrievalHits.Observe(float64(hits))
}

// ObserveTicket records a ticket creation attempt.
func (m *Metrics) ObserveTicket(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.TicketsTotal.WithLabelValues(result).Inc()
}

// ObserveNotification records a notification send attempt.
func (m *Metrics) ObserveNotification(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.NotificationsTotal.WithLabelValues(result).Inc()
}
