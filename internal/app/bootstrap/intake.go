package bootstrap

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/whatsapp-intake-agent/internal/channels/whatsapp"
	appconfig "github.com/wolfman30/whatsapp-intake-agent/internal/config"
	"github.com/wolfman30/whatsapp-intake-agent/internal/conversation"
	"github.com/wolfman30/whatsapp-intake-agent/internal/observability/metrics"
	deliveryworker "github.com/wolfman30/whatsapp-intake-agent/internal/worker/delivery"
	"github.com/wolfman30/whatsapp-intake-agent/pkg/logging"
)

// Intake bundles the components serving the WhatsApp webhook.
type Intake struct {
	Service    *conversation.Service
	Dispatcher *deliveryworker.Dispatcher
	Webhook    *whatsapp.WebhookHandler
}

// BuildIntake wires the conversation engine, session storage, outbound
// delivery and webhook handler from config. A nil redisClient selects the
// in-memory stores.
func BuildIntake(cfg *appconfig.Config, redisClient *redis.Client, m *metrics.IntakeMetrics, logger *logging.Logger) (*Intake, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.WhatsAppToken == "" {
		logger.Warn("WHATSAPP_TOKEN not set; replies will fail to deliver")
	}
	if cfg.WhatsAppVerifyToken == "" {
		logger.Warn("WHATSAPP_VERIFY_TOKEN not set; webhook verification is disabled")
	}
	if cfg.WhatsAppAppSecret == "" {
		logger.Warn("WHATSAPP_APP_SECRET not set; webhook signatures are not checked")
	}

	client := whatsapp.NewClient(cfg.WhatsAppToken, logger).
		WithMaxAttempts(cfg.DeliveryMaxAttempts).
		WithRetryDelay(cfg.DeliveryRetryBaseDelay).
		WithTimeout(cfg.DeliveryTimeout)
	if cfg.WhatsAppGraphAPIBase != "" {
		client.SetGraphAPIBase(cfg.WhatsAppGraphAPIBase)
	}

	dispatcher := deliveryworker.NewDispatcher(client, logger).
		WithWorkers(cfg.DeliveryWorkers).
		WithQueueSize(cfg.DeliveryQueueSize).
		WithTimeout(cfg.DeliveryTimeout).
		WithMetrics(m)

	svc := conversation.NewService(
		BuildSessionStore(redisClient, cfg, logger),
		conversation.NewEngine(
			conversation.WithUnexpectedInputFeedback(cfg.UnexpectedInputFeedback),
			conversation.WithExperienceCapture(cfg.CaptureExperience),
		),
		dispatcher,
		logger,
	).
		WithProcessedStore(BuildProcessedStore(redisClient, cfg)).
		WithMetrics(m)

	webhook := whatsapp.NewWebhookHandler(
		cfg.WhatsAppVerifyToken,
		cfg.WhatsAppAppSecret,
		whatsapp.MustNewNormalizer(),
		svc,
		logger,
	).WithMetrics(m)

	return &Intake{
		Service:    svc,
		Dispatcher: dispatcher,
		Webhook:    webhook,
	}, nil
}
