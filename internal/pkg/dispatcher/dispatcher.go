package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/skuforge/skuforge/app/models"
	"github.com/skuforge/skuforge/app/repository"
)

const (
	// RequestTimeout bounds one delivery attempt end to end
	RequestTimeout = 10 * time.Second

	// ResponseExcerptLimit bounds the stored response body excerpt
	ResponseExcerptLimit = 1000

	userAgent = "SkuForge-Webhook/1.0"
)

// Dispatcher sends one outbound notification per triggered event and
// unconditionally records the outcome in the webhook's delivery log. Each
// dispatch is a single terminal attempt; callers needing retry re-invoke it.
type Dispatcher struct {
	webhooks repository.WebhookRepository
	client   *http.Client
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithHTTPClient overrides the default delivery client (used in tests to
// shrink the timeout).
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		d.client = client
	}
}

// New creates a dispatcher persisting through the given webhook repository.
func New(webhooks repository.WebhookRepository, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		webhooks: webhooks,
		client:   &http.Client{Timeout: RequestTimeout},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers one event to one webhook. Missing or disabled webhooks
// are skipped silently with no log entry. Any attempted delivery writes
// exactly one delivery record; transient failures (timeout, connection
// refused) are logged with the 0 status sentinel and never returned as an
// error to the worker runtime.
func (d *Dispatcher) Dispatch(ctx context.Context, webhookID uint64, eventType string, payload map[string]interface{}) error {
	webhook, err := d.webhooks.GetByID(webhookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Infof("[Webhook] Webhook %d not found, skipping dispatch", webhookID)
			return nil
		}
		return fmt.Errorf("failed to load webhook %d: %w", webhookID, err)
	}
	if !webhook.Enabled {
		log.Infof("[Webhook] Webhook %d is disabled, skipping dispatch", webhookID)
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := d.client.Do(req)
	latency := int(time.Since(start).Milliseconds())

	if err != nil {
		// Timeout or connection failure: delivery record only, the cached
		// last-status fields are not touched.
		excerpt := truncate(err.Error(), ResponseExcerptLimit)
		d.record(webhook.ID, eventType, body, 0, excerpt, latency)
		log.Errorf("[Webhook] Delivery to webhook %d failed: %v", webhook.ID, err)
		return nil
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, ResponseExcerptLimit))
	excerpt := string(respBody)

	d.record(webhook.ID, eventType, body, resp.StatusCode, excerpt, latency)
	if err := d.webhooks.UpdateLastDelivery(webhook.ID, resp.StatusCode, excerpt); err != nil {
		log.Errorf("[Webhook] Failed to cache last delivery for webhook %d: %v", webhook.ID, err)
	}

	log.Infof("[Webhook] Sent %s to %s, status: %d, time: %dms", eventType, webhook.URL, resp.StatusCode, latency)
	return nil
}

// record appends the delivery log entry; a log write failure is reported but
// never turned into a dispatch failure.
func (d *Dispatcher) record(webhookID uint64, eventType string, payload []byte, status int, excerpt string, latencyMs int) {
	event := &models.WebhookEvent{
		WebhookID:      webhookID,
		EventType:      eventType,
		Payload:        payload,
		Status:         status,
		ResponseText:   excerpt,
		ResponseTimeMs: latencyMs,
	}
	if err := d.webhooks.RecordDelivery(event); err != nil {
		log.Errorf("[Webhook] Failed to record delivery for webhook %d: %v", webhookID, err)
	}
}

func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
