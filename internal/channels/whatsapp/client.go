package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/whatsapp-intake-agent/pkg/logging"
)

const (
	defaultGraphAPIBase = "https://graph.facebook.com/v18.0"
	defaultHTTPTimeout  = 10 * time.Second
	defaultMaxAttempts  = 3
	defaultRetryDelay   = 200 * time.Millisecond
	maxResponseBytes    = 64 << 10
)

var sendTracer = otel.Tracer("intake.internal.channels.whatsapp.send")

// ErrDelivery wraps every failure to hand a message to the Graph API.
var ErrDelivery = errors.New("whatsapp: delivery failed")

// APIError is a non-2xx Graph API response.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp: API error status=%d code=%d: %s", e.StatusCode, e.Code, e.Message)
}

// Retryable reports whether the request may succeed if repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client sends messages via the WhatsApp Cloud (Graph) API.
type Client struct {
	accessToken  string
	graphAPIBase string
	httpClient   *http.Client
	maxAttempts  int
	retryDelay   time.Duration
	logger       *logging.Logger
}

// NewClient creates a new Graph API client.
func NewClient(accessToken string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		accessToken:  accessToken,
		graphAPIBase: defaultGraphAPIBase,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		maxAttempts:  defaultMaxAttempts,
		retryDelay:   defaultRetryDelay,
		logger:       logger,
	}
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (c *Client) SetGraphAPIBase(base string) {
	c.graphAPIBase = strings.TrimRight(base, "/")
}

func (c *Client) WithMaxAttempts(n int) *Client {
	if n > 0 {
		c.maxAttempts = n
	}
	return c
}

func (c *Client) WithRetryDelay(d time.Duration) *Client {
	if d >= 0 {
		c.retryDelay = d
	}
	return c
}

func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.httpClient.Timeout = d
	}
	return c
}

// Send posts msg on behalf of the business phone number phoneNumberID,
// retrying transport errors, 429 and 5xx responses.
func (c *Client) Send(ctx context.Context, phoneNumberID string, msg OutboundMessage) (*SendResponse, error) {
	if c.accessToken == "" {
		return nil, fmt.Errorf("%w: access token missing", ErrDelivery)
	}
	if phoneNumberID == "" {
		return nil, fmt.Errorf("%w: phone number id required", ErrDelivery)
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal: %v", ErrDelivery, err)
	}

	ctx, span := sendTracer.Start(ctx, "whatsapp.send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("intake.routing_id", phoneNumberID),
		attribute.String("intake.message_type", msg.Type),
	)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.post(ctx, phoneNumberID, body)
		if err == nil {
			span.SetAttributes(attribute.Int("intake.attempts", attempt))
			return resp, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			break
		}
		if attempt == c.maxAttempts {
			break
		}
		c.logger.Warn("whatsapp send attempt failed", "attempt", attempt, "to", msg.To, "error", err)
		if err := c.sleep(ctx, attempt); err != nil {
			lastErr = err
			break
		}
	}

	span.RecordError(lastErr)
	return nil, fmt.Errorf("%w: %w", ErrDelivery, lastErr)
}

func (c *Client) post(ctx context.Context, phoneNumberID string, body []byte) (*SendResponse, error) {
	url := fmt.Sprintf("%s/%s/messages", c.graphAPIBase, phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var sendResp SendResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &sendResp); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || sendResp.Error != nil {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		if sendResp.Error != nil {
			apiErr.Code = sendResp.Error.Code
			apiErr.Message = sendResp.Error.Message
		}
		return nil, apiErr
	}
	return &sendResp, nil
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	if c.retryDelay <= 0 {
		return ctx.Err()
	}
	delay := c.retryDelay * time.Duration(1<<(attempt-1))
	delay += time.Duration(rand.Int63n(int64(c.retryDelay)))
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
