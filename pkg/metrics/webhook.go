package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records pipeline counters per processor.
type WebhookMetrics struct {
	received          *prometheus.CounterVec
	rejectedSignature *prometheus.CounterVec
	duplicates        *prometheus.CounterVec
	outcomes          *prometheus.CounterVec
	sideEffectFailure *prometheus.CounterVec
	handleDuration    *prometheus.HistogramVec
}

// NewWebhookMetrics registers the pipeline metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Webhook deliveries accepted past signature verification.",
	}, []string{"processor"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_signature_rejected",
		Help: "Webhook deliveries rejected for a bad signature.",
	}, []string{"processor"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_duplicate_deliveries",
		Help: "Deliveries short-circuited by the dedupe guard.",
	}, []string{"processor"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_handle_outcomes",
		Help: "Orchestrator results by outcome.",
	}, []string{"processor", "outcome"})
	sideEffect := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_side_effect_failures",
		Help: "Post-commit payout/notification failures.",
	}, []string{"effect"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_handle_duration_seconds",
		Help:    "Duration of webhook handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"processor"})
	reg.MustRegister(received, rejected, duplicates, outcomes, sideEffect, duration)
	return &WebhookMetrics{
		received:          received,
		rejectedSignature: rejected,
		duplicates:        duplicates,
		outcomes:          outcomes,
		sideEffectFailure: sideEffect,
		handleDuration:    duration,
	}
}

// IncReceived counts a verified delivery for the processor.
func (m *WebhookMetrics) IncReceived(processor string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(processor)).Inc()
}

// IncRejectedSignature counts a delivery rejected at the verification step.
func (m *WebhookMetrics) IncRejectedSignature(processor string) {
	if m == nil || m.rejectedSignature == nil {
		return
	}
	m.rejectedSignature.WithLabelValues(normalizeLabel(processor)).Inc()
}

// IncDuplicate counts a delivery swallowed by the dedupe guard.
func (m *WebhookMetrics) IncDuplicate(processor string) {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.WithLabelValues(normalizeLabel(processor)).Inc()
}

// IncOutcome counts an orchestrator result.
func (m *WebhookMetrics) IncOutcome(processor, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(processor), normalizeLabel(outcome)).Inc()
}

// IncSideEffectFailure counts a post-commit payout/notify failure.
func (m *WebhookMetrics) IncSideEffectFailure(effect string) {
	if m == nil || m.sideEffectFailure == nil {
		return
	}
	m.sideEffectFailure.WithLabelValues(normalizeLabel(effect)).Inc()
}

// ObserveHandleDuration records how long a delivery took end to end.
func (m *WebhookMetrics) ObserveHandleDuration(processor string, duration time.Duration) {
	if m == nil || m.handleDuration == nil {
		return
	}
	m.handleDuration.WithLabelValues(normalizeLabel(processor)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
