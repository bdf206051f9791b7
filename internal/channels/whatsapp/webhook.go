package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/whatsapp-intake-agent/internal/conversation"
	"github.com/wolfman30/whatsapp-intake-agent/internal/observability/metrics"
	"github.com/wolfman30/whatsapp-intake-agent/pkg/logging"
)

const maxWebhookBytes = 1 << 20

var webhookTracer = otel.Tracer("intake.internal.channels.whatsapp.webhook")

// EventHandler consumes normalized inbound events.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev conversation.InboundEvent) (*conversation.Action, error)
}

// WebhookHandler handles WhatsApp webhook verification and inbound messages.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	normalizer  *Normalizer
	events      EventHandler
	metrics     *metrics.IntakeMetrics
	logger      *logging.Logger
}

// NewWebhookHandler creates a new webhook handler. An empty appSecret
// disables signature verification.
func NewWebhookHandler(verifyToken, appSecret string, normalizer *Normalizer, events EventHandler, logger *logging.Logger) *WebhookHandler {
	if normalizer == nil {
		normalizer = MustNewNormalizer()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		normalizer:  normalizer,
		events:      events,
		logger:      logger,
	}
}

func (h *WebhookHandler) WithMetrics(m *metrics.IntakeMetrics) *WebhookHandler {
	h.metrics = m
	return h
}

// HandleVerification handles the GET webhook verification challenge from Meta.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && h.verifyToken != "" && token == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleInbound handles POST webhook events. Recognized payloads are
// acknowledged with 200 whether or not a message could be extracted.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		h.metrics.ObserveWebhookLatency(strconv.Itoa(status), time.Since(start).Seconds())
	}()

	ctx, span := webhookTracer.Start(r.Context(), "whatsapp.webhook")
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		status = http.StatusBadRequest
		http.Error(w, "Bad Request", status)
		return
	}

	if h.appSecret != "" && !VerifySignature(h.appSecret, body, r.Header.Get("X-Hub-Signature-256")) {
		status = http.StatusUnauthorized
		h.logger.Warn("whatsapp: webhook signature rejected", "remote_ip", r.RemoteAddr)
		http.Error(w, "Unauthorized", status)
		return
	}

	h.logger.Debug("whatsapp: webhook received", "body", string(body))

	ev, err := h.normalizer.Normalize(body)
	switch {
	case errors.Is(err, ErrInvalidPayload):
		status = http.StatusBadRequest
		http.Error(w, "Bad Request", status)
		return
	case errors.Is(err, ErrNotPlatformEvent):
		status = http.StatusNotFound
		http.Error(w, "Not Found", status)
		return
	case errors.Is(err, ErrMalformedEvent):
		// Status-only callbacks land here too; acknowledge so Meta does not retry.
		h.metrics.ObserveInbound("none", "malformed")
		h.logger.Debug("whatsapp: no message extracted", "error", err)
		w.WriteHeader(status)
		return
	case err != nil:
		h.logger.Error("whatsapp: normalize failed", "error", err)
		w.WriteHeader(status)
		return
	}

	span.SetAttributes(
		attribute.String("intake.event_kind", string(ev.Kind)),
		attribute.String("intake.message_id", ev.MessageID),
	)

	// Flush the 200 before handling so a slow store does not trigger Meta retries.
	w.WriteHeader(status)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	if h.events == nil {
		return
	}
	if _, err := h.events.HandleEvent(ctx, ev); err != nil {
		span.RecordError(err)
		h.logger.Error("whatsapp: event handling failed",
			"user_id", ev.UserID,
			"message_id", ev.MessageID,
			"error", err,
		)
	}
}

// VerifySignature verifies the X-Hub-Signature-256 header.
func VerifySignature(appSecret string, body []byte, signature string) bool {
	if appSecret == "" || signature == "" {
		return false
	}

	// Signature format: "sha256=<hex>"
	const prefix = "sha256="
	if len(signature) <= len(prefix) || signature[:len(prefix)] != prefix {
		return false
	}
	sigHex := signature[len(prefix):]

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sigHex))
}
