package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/skuforge/skuforge/app/models"
	"github.com/skuforge/skuforge/app/repository"
	"github.com/skuforge/skuforge/internal/pkg/cache"
	"github.com/skuforge/skuforge/internal/pkg/jobqueue"
	"github.com/skuforge/skuforge/internal/pkg/progress"
	"github.com/skuforge/skuforge/internal/pkg/statistics"
)

// ProductCreateRequest is the body for POST /api/products
type ProductCreateRequest struct {
	SKU         string           `json:"sku"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Active      *bool            `json:"active"`
}

// ProductUpdateRequest is the body for PUT /api/products/:id, all fields optional
type ProductUpdateRequest struct {
	SKU         *string          `json:"sku"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Active      *bool            `json:"active"`
}

// HandleListProducts returns a paginated, filtered product listing
func HandleListProducts(c *fiber.Ctx) error {
	params := repository.ProductListParams{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
		SKU:      c.Query("sku"),
		Query:    c.Query("q"),
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	if active := c.Query("active"); active != "" {
		value := strings.EqualFold(active, "true") || active == "1"
		params.Active = &value
	}

	products, total, err := repository.GetGlobalFactory().GetProductRepository().List(params)
	if err != nil {
		fiberlog.Errorf("[Products] Failed to list products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list products"})
	}

	pages := 0
	if total > 0 {
		pages = int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	}

	return c.JSON(fiber.Map{
		"items":     products,
		"total":     total,
		"page":      params.Page,
		"page_size": params.PageSize,
		"pages":     pages,
	})
}

// HandleGetProduct returns a single product by id
func HandleGetProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	product, err := repository.GetGlobalFactory().GetProductRepository().GetByID(uint64(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fmt.Sprintf("product %d not found", id),
			})
		}
		fiberlog.Errorf("[Products] Failed to load product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load product"})
	}

	return c.JSON(product)
}

// HandleCreateProduct creates a product. The SKU must be unique after
// case-insensitive canonicalization; a collision yields 409.
func HandleCreateProduct(c *fiber.Ctx) error {
	var req ProductCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Active:      true,
	}
	product.SetSKU(req.SKU)
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := product.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	repo := repository.GetGlobalFactory().GetProductRepository()
	if existing, err := repo.GetBySKUCI(product.SKUCI); err == nil && existing != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": fmt.Sprintf("product with SKU '%s' already exists (case-insensitive)", req.SKU),
		})
	}

	if err := repo.Create(product); err != nil {
		if isDuplicateKeyError(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": fmt.Sprintf("product with SKU '%s' already exists (case-insensitive)", req.SKU),
			})
		}
		fiberlog.Errorf("[Products] Failed to create product: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create product"})
	}

	fiberlog.Infof("[Products] Created product %d (SKU: %s)", product.ID, product.SKU)
	statistics.InvalidateTotalProducts()
	jobqueue.GetManager().GetQueue().FanOutEvent(models.WebhookEventProductCreated, productEventPayload(product))

	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct applies a partial update. Changing the SKU recomputes
// sku_ci and re-checks uniqueness.
func HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	var req ProductUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	repo := repository.GetGlobalFactory().GetProductRepository()
	product, err := repo.GetByID(uint64(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fmt.Sprintf("product %d not found", id),
			})
		}
		fiberlog.Errorf("[Products] Failed to load product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load product"})
	}

	if req.SKU != nil {
		newCI := models.CanonicalSKU(*req.SKU)
		if newCI != product.SKUCI {
			if existing, err := repo.GetBySKUCI(newCI); err == nil && existing != nil {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": fmt.Sprintf("product with SKU '%s' already exists (case-insensitive)", *req.SKU),
				})
			}
		}
		product.SetSKU(*req.SKU)
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = req.Price
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := product.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := repo.Update(product); err != nil {
		if isDuplicateKeyError(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": fmt.Sprintf("product with SKU '%s' already exists (case-insensitive)", product.SKU),
			})
		}
		fiberlog.Errorf("[Products] Failed to update product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update product"})
	}

	fiberlog.Infof("[Products] Updated product %d", product.ID)
	jobqueue.GetManager().GetQueue().FanOutEvent(models.WebhookEventProductUpdated, productEventPayload(product))

	return c.JSON(product)
}

// HandleDeleteProduct deletes one product by id
func HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	repo := repository.GetGlobalFactory().GetProductRepository()
	product, err := repo.GetByID(uint64(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fmt.Sprintf("product %d not found", id),
			})
		}
		fiberlog.Errorf("[Products] Failed to load product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load product"})
	}

	if err := repo.Delete(product.ID); err != nil {
		fiberlog.Errorf("[Products] Failed to delete product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete product"})
	}

	fiberlog.Infof("[Products] Deleted product %d", product.ID)
	statistics.InvalidateTotalProducts()
	jobqueue.GetManager().GetQueue().FanOutEvent(models.WebhookEventProductDeleted, productEventPayload(product))

	return c.JSON(fiber.Map{
		"deleted": product.ID,
		"message": fmt.Sprintf("Product %d deleted successfully", product.ID),
	})
}

// HandleBulkDeleteProducts enqueues a background job deleting every product.
// The response carries a tracking id usable with the progress stream.
func HandleBulkDeleteProducts(c *fiber.Ctx) error {
	trackingID := uuid.New().String()

	bus := progress.NewRedisBus(cache.GetClient())
	if err := bus.Publish(c.Context(), trackingID, progress.Queued(trackingID, "Bulk delete queued")); err != nil {
		fiberlog.Errorf("[Products] Failed to publish bulk delete queued event: %v", err)
	}

	payload := jobqueue.BulkDeleteJobPayload{JobID: trackingID}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeBulkDelete, payload.ToMap()); err != nil {
		fiberlog.Errorf("[Products] Failed to enqueue bulk delete: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to start bulk delete task"})
	}

	fiberlog.Infof("[Products] Triggered bulk delete, tracking id %s", trackingID)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  trackingID,
		"status":  "queued",
		"message": fmt.Sprintf("Bulk delete started. Use /api/progress/%s to track progress.", trackingID),
	})
}

// productEventPayload snapshots a product for webhook notifications
func productEventPayload(p *models.Product) map[string]interface{} {
	payload := map[string]interface{}{
		"id":     p.ID,
		"sku":    p.SKU,
		"name":   p.Name,
		"active": p.Active,
	}
	if p.Price != nil {
		payload["price"] = p.Price.String()
	}
	return payload
}

// isDuplicateKeyError matches unique constraint violations across drivers
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
