package repository

import (
	"gorm.io/gorm"

	"github.com/skuforge/skuforge/app/models"
)

// webhookRepository implements the WebhookRepository interface
type webhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository creates a new webhook repository instance
func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

// Create creates a new webhook in the database
func (r *webhookRepository) Create(webhook *models.Webhook) error {
	return r.db.Create(webhook).Error
}

// GetByID retrieves a webhook by its ID
func (r *webhookRepository) GetByID(id uint64) (*models.Webhook, error) {
	var webhook models.Webhook
	err := r.db.First(&webhook, id).Error
	if err != nil {
		return nil, err
	}
	return &webhook, nil
}

// GetAll retrieves all webhooks, newest first
func (r *webhookRepository) GetAll() ([]models.Webhook, error) {
	var webhooks []models.Webhook
	err := r.db.Order("created_at DESC").Find(&webhooks).Error
	return webhooks, err
}

// GetEnabledByEvent retrieves the enabled webhooks subscribed to an event type
func (r *webhookRepository) GetEnabledByEvent(event string) ([]models.Webhook, error) {
	var webhooks []models.Webhook
	err := r.db.Where("event = ? AND enabled = ?", event, true).Find(&webhooks).Error
	return webhooks, err
}

// Update updates an existing webhook in the database
func (r *webhookRepository) Update(webhook *models.Webhook) error {
	return r.db.Save(webhook).Error
}

// Delete removes a webhook and, via the FK cascade, its delivery log.
// The explicit two-step delete keeps the cascade working on databases
// where AutoMigrate did not install the constraint.
func (r *webhookRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("webhook_id = ?", id).Delete(&models.WebhookEvent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Webhook{}, id).Error
	})
}

// RecordDelivery appends one entry to the delivery log
func (r *webhookRepository) RecordDelivery(event *models.WebhookEvent) error {
	return r.db.Create(event).Error
}

// UpdateLastDelivery caches the outcome of the latest completed HTTP exchange
func (r *webhookRepository) UpdateLastDelivery(id uint64, status int, response string) error {
	return r.db.Model(&models.Webhook{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_status":   status,
		"last_response": response,
	}).Error
}

// GetDeliveryLog returns the most recent delivery records, newest first
func (r *webhookRepository) GetDeliveryLog(webhookID uint64, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.Where("webhook_id = ?", webhookID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Find(&events).Error
	return events, err
}
