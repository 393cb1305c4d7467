package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/skuforge/skuforge/app/repository"
	"github.com/skuforge/skuforge/internal/pkg/cache"
	"github.com/skuforge/skuforge/internal/pkg/progress"
	"github.com/skuforge/skuforge/internal/pkg/statistics"
)

// processBulkDeleteJob removes every product from the catalog. Progress is
// streamed on the tracking id from the payload; there is no database row
// behind a bulk delete.
func (q *Queue) processBulkDeleteJob(ctx context.Context, job *Job) error {
	payload, err := BulkDeleteJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to parse bulk delete payload: %w", err)
	}

	bus := progress.NewRedisBus(cache.GetClient())
	publish := func(event progress.Event) {
		if payload.JobID == "" {
			return
		}
		if err := bus.Publish(ctx, payload.JobID, event); err != nil {
			log.Errorf("[JobQueue] Failed to publish bulk delete progress for %s: %v", payload.JobID, err)
		}
	}

	publish(progress.Working("Deleting all products..."))

	products := repository.GetGlobalFactory().GetProductRepository()
	count, err := products.Count()
	if err != nil {
		log.Errorf("[JobQueue] Failed to count products before bulk delete: %v", err)
		count = 0
	}

	if err := products.DeleteAll(); err != nil {
		publish(progress.Errored(err.Error(), fmt.Sprintf("Bulk delete failed: %s", err.Error())))
		return fmt.Errorf("bulk delete failed: %w", err)
	}

	statistics.InvalidateTotalProducts()

	log.Infof("[JobQueue] Bulk delete removed %d products", count)
	publish(progress.Done(fmt.Sprintf("Bulk delete completed. %d products removed.", count)))
	return nil
}
