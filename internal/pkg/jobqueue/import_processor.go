package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/skuforge/skuforge/app/models"
	"github.com/skuforge/skuforge/app/repository"
	"github.com/skuforge/skuforge/internal/pkg/cache"
	"github.com/skuforge/skuforge/internal/pkg/cancellation"
	"github.com/skuforge/skuforge/internal/pkg/database"
	"github.com/skuforge/skuforge/internal/pkg/env"
	"github.com/skuforge/skuforge/internal/pkg/importer"
	"github.com/skuforge/skuforge/internal/pkg/progress"
	"github.com/skuforge/skuforge/internal/pkg/statistics"
)

// processCSVImportJob runs the import pipeline for one stored CSV upload
func (q *Queue) processCSVImportJob(ctx context.Context, job *Job) error {
	payload, err := CSVImportJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to parse csv import payload: %w", err)
	}
	if payload.ImportJobID == "" {
		return fmt.Errorf("csv import job %s has no import_job_id", job.ID)
	}

	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	repos := repository.GetGlobalFactory().GetRepositories()

	opts := []importer.Option{
		importer.WithCompletionHook(func(imp *models.ImportJob, processed, inserted, updated int) {
			statistics.InvalidateTotalProducts()
			q.FanOutEvent(models.WebhookEventImportCompleted, map[string]interface{}{
				"job_id":    imp.ID,
				"filename":  imp.Filename,
				"processed": processed,
				"inserted":  inserted,
				"updated":   updated,
			})
		}),
	}
	if batchSize := env.GetEnvInt("IMPORT_BATCH_SIZE", 0); batchSize > 0 {
		opts = append(opts, importer.WithBatchSize(batchSize))
	}

	pipeline := importer.NewPipeline(
		db,
		repos.ImportJob,
		progress.NewRedisBus(cache.GetClient()),
		cancellation.NewRedisSignal(cache.GetClient()),
		opts...,
	)

	return pipeline.Process(ctx, payload.ImportJobID)
}

// FanOutEvent enqueues one webhook dispatch job per enabled webhook
// subscribed to the event type. Enqueue failures are logged and skipped so
// one bad webhook never blocks the rest of the fan-out.
func (q *Queue) FanOutEvent(eventType string, payload map[string]interface{}) {
	webhooks, err := repository.GetGlobalFactory().GetWebhookRepository().GetEnabledByEvent(eventType)
	if err != nil {
		log.Errorf("[JobQueue] Failed to load webhooks for event %s: %v", eventType, err)
		return
	}

	for _, webhook := range webhooks {
		dispatch := WebhookDispatchJobPayload{
			WebhookID: webhook.ID,
			EventType: eventType,
			Payload:   payload,
		}
		if _, err := q.EnqueueJob(JobTypeWebhookDispatch, dispatch.ToMap()); err != nil {
			log.Errorf("[JobQueue] Failed to enqueue %s dispatch for webhook %d: %v", eventType, webhook.ID, err)
		}
	}
}
