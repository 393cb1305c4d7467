package models

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// Webhook event types a listener can subscribe to
const (
	WebhookEventProductCreated  = "product.created"
	WebhookEventProductUpdated  = "product.updated"
	WebhookEventProductDeleted  = "product.deleted"
	WebhookEventImportCompleted = "import.completed"
	WebhookEventTest            = "test"
)

var (
	ErrInvalidWebhookURL   = errors.New("webhook URL must start with http:// or https://")
	ErrInvalidWebhookEvent = errors.New("webhook event type is not recognized")
)

// ValidWebhookEvents lists all event types accepted on webhook creation.
var ValidWebhookEvents = []string{
	WebhookEventProductCreated,
	WebhookEventProductUpdated,
	WebhookEventProductDeleted,
	WebhookEventImportCompleted,
	WebhookEventTest,
}

// Webhook is an outbound notification target subscribed to one event type.
// Deleting a webhook cascades to its delivery log.
type Webhook struct {
	ID           uint64         `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name" validate:"required,min=1,max=255"`
	URL          string         `gorm:"type:varchar(2048);not null" json:"url" validate:"required,max=2048"`
	Event        string         `gorm:"type:varchar(100);not null;index" json:"event" validate:"required,min=1,max=100"`
	Enabled      bool           `gorm:"default:true;index" json:"enabled"`
	LastStatus   *int           `gorm:"type:int" json:"last_status"`
	LastResponse string         `gorm:"type:text" json:"last_response"`
	Events       []WebhookEvent `gorm:"foreignKey:WebhookID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Webhook model
func (Webhook) TableName() string {
	return "webhooks"
}

func (w *Webhook) Validate() error {
	v := validator.New()
	if err := v.Struct(w); err != nil {
		return err
	}
	if !strings.HasPrefix(w.URL, "http://") && !strings.HasPrefix(w.URL, "https://") {
		return ErrInvalidWebhookURL
	}
	if !IsValidWebhookEvent(w.Event) {
		return ErrInvalidWebhookEvent
	}
	return nil
}

// IsValidWebhookEvent checks an event type against the closed enum.
func IsValidWebhookEvent(event string) bool {
	for _, e := range ValidWebhookEvents {
		if e == event {
			return true
		}
	}
	return false
}

// WebhookEvent is one entry in a webhook's delivery log. Rows are append-only
// and never mutated after creation. Status 0 marks non-HTTP failures such as
// timeouts or connection errors.
type WebhookEvent struct {
	ID             uint64         `gorm:"primaryKey" json:"id"`
	WebhookID      uint64         `gorm:"not null;index" json:"webhook_id"`
	EventType      string         `gorm:"type:varchar(100);not null" json:"event_type"`
	Payload        datatypes.JSON `gorm:"type:json" json:"payload"`
	Status         int            `gorm:"type:int;not null;default:0" json:"status"`
	ResponseText   string         `gorm:"type:text" json:"response_text"`
	ResponseTimeMs int            `gorm:"type:int;not null;default:0" json:"response_time_ms"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name for the WebhookEvent model
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
