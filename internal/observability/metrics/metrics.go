package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the webhook intake flow.
type IntakeMetrics struct {
	inboundTotal    *prometheus.CounterVec
	transitionTotal *prometheus.CounterVec
	outboundTotal   *prometheus.CounterVec
	webhookLatency  *prometheus.HistogramVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "whatsapp",
			Name:      "inbound_events_total",
			Help:      "Total inbound webhook events by kind and outcome",
		}, []string{"kind", "status"}),
		transitionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "conversation",
			Name:      "transitions_total",
			Help:      "Conversation state transitions",
		}, []string{"from", "to"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "whatsapp",
			Name:      "outbound_total",
			Help:      "Total outbound Graph API sends",
		}, []string{"type", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "whatsapp",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of inbound webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.transitionTotal, m.outboundTotal, m.webhookLatency)
	return m
}

func (m *IntakeMetrics) ObserveInbound(kind, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *IntakeMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionTotal.WithLabelValues(from, to).Inc()
}

func (m *IntakeMetrics) ObserveOutbound(messageType, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(messageType, status).Inc()
}

func (m *IntakeMetrics) ObserveWebhookLatency(status string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(status).Observe(seconds)
}
