package repository

import (
	"github.com/skuforge/skuforge/app/models"
)

// ProductListParams carries pagination and filtering for product listings
type ProductListParams struct {
	Page     int
	PageSize int
	SKU      string // case-insensitive prefix match on sku_ci
	Query    string // substring search in name and description
	Active   *bool
}

// ProductRepository defines the interface for product-related database operations
type ProductRepository interface {
	Create(product *models.Product) error
	GetByID(id uint64) (*models.Product, error)
	GetBySKUCI(skuCI string) (*models.Product, error)
	Update(product *models.Product) error
	Delete(id uint64) error
	List(params ProductListParams) ([]models.Product, int64, error)
	Count() (int64, error)
	DeleteAll() error
}

// ImportJobRepository defines the interface for import job bookkeeping
type ImportJobRepository interface {
	Create(job *models.ImportJob) error
	GetByID(id string) (*models.ImportJob, error)
	UpdateStatus(id string, status models.ImportJobStatus, errDetail *string) error
	UpdateProgress(id string, processedRows int) error
	Complete(id string, totalRows int) error
}

// WebhookRepository defines the interface for webhook configuration and the
// append-only delivery log
type WebhookRepository interface {
	Create(webhook *models.Webhook) error
	GetByID(id uint64) (*models.Webhook, error)
	GetAll() ([]models.Webhook, error)
	GetEnabledByEvent(event string) ([]models.Webhook, error)
	Update(webhook *models.Webhook) error
	Delete(id uint64) error
	RecordDelivery(event *models.WebhookEvent) error
	UpdateLastDelivery(id uint64, status int, response string) error
	GetDeliveryLog(webhookID uint64, limit int) ([]models.WebhookEvent, error)
}
