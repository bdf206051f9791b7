package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIntakeMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIntakeMetrics(reg)
	m.ObserveInbound("text", "processed")
	m.ObserveInbound("text", "processed")
	m.ObserveTransition("INITIAL", "AWAITING_RESPONSE")
	m.ObserveOutbound("interactive", "sent")
	m.ObserveWebhookLatency("200", 0.05)

	if got := testutil.ToFloat64(m.inboundTotal.WithLabelValues("text", "processed")); got != 2 {
		t.Fatalf("expected 2 inbound events, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitionTotal.WithLabelValues("INITIAL", "AWAITING_RESPONSE")); got != 1 {
		t.Fatalf("expected 1 transition, got %v", got)
	}
	if got := testutil.ToFloat64(m.outboundTotal.WithLabelValues("interactive", "sent")); got != 1 {
		t.Fatalf("expected 1 outbound, got %v", got)
	}
}

func TestIntakeMetricsNilSafe(t *testing.T) {
	var m *IntakeMetrics
	m.ObserveInbound("text", "processed")
	m.ObserveTransition("INITIAL", "INITIAL")
	m.ObserveOutbound("text", "failed")
	m.ObserveWebhookLatency("200", 0.1)
}
