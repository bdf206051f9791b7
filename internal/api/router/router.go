package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/whatsapp-intake-agent/internal/channels/whatsapp"
	httpmiddleware "github.com/wolfman30/whatsapp-intake-agent/internal/http/middleware"
	"github.com/wolfman30/whatsapp-intake-agent/pkg/logging"
)

const healthCheckTimeout = 2 * time.Second

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	WhatsAppWebhook *whatsapp.WebhookHandler
	MetricsHandler  http.Handler

	// HealthCheck reports backing store health (optional).
	HealthCheck func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg.HealthCheck))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.WhatsAppWebhook != nil {
		r.Route("/webhook", func(wh chi.Router) {
			wh.Get("/", cfg.WhatsAppWebhook.HandleVerification)
			wh.Post("/", cfg.WhatsAppWebhook.HandleInbound)
		})
	}

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body = map[string]string{"status": "degraded", "error": err.Error()}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
