package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/skuforge/skuforge/internal/pkg/env"
	"github.com/skuforge/skuforge/internal/pkg/jobqueue"
	"github.com/skuforge/skuforge/internal/pkg/statistics"
)

// HandleGetStats reports the catalog size and the state of the background
// job queue in one snapshot.
func HandleGetStats(c *fiber.Ctx) error {
	manager := jobqueue.GetManager()
	queue := manager.GetQueue()
	ctx := c.Context()

	jobStats, err := queue.GetJobStats(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": statsErrorMessage(err),
		})
	}

	pending, err := queue.GetQueueSize(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": statsErrorMessage(err),
		})
	}

	processing, err := queue.GetProcessingSize(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": statsErrorMessage(err),
		})
	}

	return c.JSON(fiber.Map{
		"products_total": statistics.GetTotalProducts(),
		"queue": fiber.Map{
			"workers_running": manager.IsRunning(),
			"pending":         pending,
			"processing":      processing,
			"jobs":            jobStats,
		},
	})
}

// statsErrorMessage includes the Redis error detail only in development.
func statsErrorMessage(err error) string {
	if env.IsDev() {
		return fmt.Sprintf("Failed to read queue state: %v", err)
	}
	return "Failed to read queue state"
}
