package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/skuforge/skuforge/app/controllers"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Catalog and queue snapshot
	api.Get("/stats", controllers.HandleGetStats)

	// CSV import
	api.Post("/upload", controllers.HandleUploadCSV)
	api.Get("/jobs/:id", controllers.HandleGetImportJob)
	api.Post("/jobs/:id/cancel", controllers.HandleCancelImportJob)
	api.Get("/progress/:id", controllers.HandleStreamProgress)

	// Products
	api.Get("/products", controllers.HandleListProducts)
	api.Post("/products", controllers.HandleCreateProduct)
	// Registered before :id so "bulk" is not parsed as a product id
	api.Delete("/products/bulk", controllers.HandleBulkDeleteProducts)
	api.Get("/products/:id", controllers.HandleGetProduct)
	api.Put("/products/:id", controllers.HandleUpdateProduct)
	api.Delete("/products/:id", controllers.HandleDeleteProduct)

	// Webhooks
	api.Get("/webhooks", controllers.HandleListWebhooks)
	api.Post("/webhooks", controllers.HandleCreateWebhook)
	api.Get("/webhooks/:id", controllers.HandleGetWebhook)
	api.Put("/webhooks/:id", controllers.HandleUpdateWebhook)
	api.Delete("/webhooks/:id", controllers.HandleDeleteWebhook)
	api.Post("/webhooks/:id/test", controllers.HandleTestWebhook)
	api.Get("/webhooks/:id/logs", controllers.HandleGetWebhookLogs)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
