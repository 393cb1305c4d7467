package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/skuforge/skuforge/app/models"
	"github.com/skuforge/skuforge/app/repository"
	"github.com/skuforge/skuforge/internal/pkg/jobqueue"
)

// Webhook delivery log query bounds
const (
	DefaultDeliveryLogLimit = 50
	MaxDeliveryLogLimit     = 200
)

// WebhookCreateRequest is the body for POST /api/webhooks
type WebhookCreateRequest struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Event   string `json:"event"`
	Enabled *bool  `json:"enabled"`
}

// WebhookUpdateRequest is the body for PUT /api/webhooks/:id, all fields optional
type WebhookUpdateRequest struct {
	Name    *string `json:"name"`
	URL     *string `json:"url"`
	Event   *string `json:"event"`
	Enabled *bool   `json:"enabled"`
}

// HandleListWebhooks returns all webhooks, newest first
func HandleListWebhooks(c *fiber.Ctx) error {
	webhooks, err := repository.GetGlobalFactory().GetWebhookRepository().GetAll()
	if err != nil {
		fiberlog.Errorf("[Webhooks] Failed to list webhooks: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list webhooks"})
	}
	return c.JSON(webhooks)
}

// HandleGetWebhook returns a single webhook by id
func HandleGetWebhook(c *fiber.Ctx) error {
	webhook, status, err := loadWebhook(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(webhook)
}

// HandleCreateWebhook registers a new webhook subscription
func HandleCreateWebhook(c *fiber.Ctx) error {
	var req WebhookCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	webhook := &models.Webhook{
		Name:    req.Name,
		URL:     req.URL,
		Event:   req.Event,
		Enabled: true,
	}
	if req.Enabled != nil {
		webhook.Enabled = *req.Enabled
	}

	if err := webhook.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := repository.GetGlobalFactory().GetWebhookRepository().Create(webhook); err != nil {
		fiberlog.Errorf("[Webhooks] Failed to create webhook: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create webhook"})
	}

	fiberlog.Infof("[Webhooks] Created webhook %d (%s)", webhook.ID, webhook.Name)
	return c.Status(fiber.StatusCreated).JSON(webhook)
}

// HandleUpdateWebhook applies a partial update to a webhook
func HandleUpdateWebhook(c *fiber.Ctx) error {
	webhook, status, err := loadWebhook(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	var req WebhookUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.Name != nil {
		webhook.Name = *req.Name
	}
	if req.URL != nil {
		webhook.URL = *req.URL
	}
	if req.Event != nil {
		webhook.Event = *req.Event
	}
	if req.Enabled != nil {
		webhook.Enabled = *req.Enabled
	}

	if err := webhook.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := repository.GetGlobalFactory().GetWebhookRepository().Update(webhook); err != nil {
		fiberlog.Errorf("[Webhooks] Failed to update webhook %d: %v", webhook.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update webhook"})
	}

	fiberlog.Infof("[Webhooks] Updated webhook %d", webhook.ID)
	return c.JSON(webhook)
}

// HandleDeleteWebhook removes a webhook and its delivery log
func HandleDeleteWebhook(c *fiber.Ctx) error {
	webhook, status, err := loadWebhook(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	if err := repository.GetGlobalFactory().GetWebhookRepository().Delete(webhook.ID); err != nil {
		fiberlog.Errorf("[Webhooks] Failed to delete webhook %d: %v", webhook.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete webhook"})
	}

	fiberlog.Infof("[Webhooks] Deleted webhook %d", webhook.ID)
	return c.JSON(fiber.Map{
		"deleted": webhook.ID,
		"message": fmt.Sprintf("Webhook %d deleted successfully", webhook.ID),
	})
}

// HandleTestWebhook enqueues one test delivery against the webhook's URL
func HandleTestWebhook(c *fiber.Ctx) error {
	webhook, status, err := loadWebhook(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	if !webhook.Enabled {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("webhook %d is disabled, enable it first", webhook.ID),
		})
	}

	payload := jobqueue.WebhookDispatchJobPayload{
		WebhookID: webhook.ID,
		EventType: models.WebhookEventTest,
		Payload: map[string]interface{}{
			"event":      models.WebhookEventTest,
			"webhook_id": webhook.ID,
			"message":    "This is a test webhook event",
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		},
	}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeWebhookDispatch, payload.ToMap()); err != nil {
		fiberlog.Errorf("[Webhooks] Failed to enqueue test dispatch for webhook %d: %v", webhook.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to dispatch test webhook"})
	}

	fiberlog.Infof("[Webhooks] Test webhook dispatched for webhook %d", webhook.ID)
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Test webhook dispatched to %s. Check logs for results.", webhook.URL),
	})
}

// HandleGetWebhookLogs returns recent delivery records, newest first
func HandleGetWebhookLogs(c *fiber.Ctx) error {
	webhook, status, err := loadWebhook(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	limit := c.QueryInt("limit", DefaultDeliveryLogLimit)
	if limit < 1 || limit > MaxDeliveryLogLimit {
		limit = DefaultDeliveryLogLimit
	}

	events, err := repository.GetGlobalFactory().GetWebhookRepository().GetDeliveryLog(webhook.ID, limit)
	if err != nil {
		fiberlog.Errorf("[Webhooks] Failed to load delivery log for webhook %d: %v", webhook.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load webhook logs"})
	}

	return c.JSON(events)
}

// loadWebhook resolves the :id path param to a webhook, mapping lookup
// failures to the right HTTP status.
func loadWebhook(c *fiber.Ctx) (*models.Webhook, int, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return nil, fiber.StatusBadRequest, errors.New("invalid webhook id")
	}

	webhook, err := repository.GetGlobalFactory().GetWebhookRepository().GetByID(uint64(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.StatusNotFound, fmt.Errorf("webhook %d not found", id)
		}
		fiberlog.Errorf("[Webhooks] Failed to load webhook %d: %v", id, err)
		return nil, fiber.StatusInternalServerError, errors.New("failed to load webhook")
	}

	return webhook, fiber.StatusOK, nil
}
