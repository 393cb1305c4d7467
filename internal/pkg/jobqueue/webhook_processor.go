package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/skuforge/skuforge/app/repository"
	"github.com/skuforge/skuforge/internal/pkg/dispatcher"
)

// processWebhookDispatchJob delivers one webhook notification
func (q *Queue) processWebhookDispatchJob(ctx context.Context, job *Job) error {
	payload, err := WebhookDispatchJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to parse webhook dispatch payload: %w", err)
	}

	log.Infof("[JobQueue] Dispatching %s to webhook %d", payload.EventType, payload.WebhookID)

	d := dispatcher.New(repository.GetGlobalFactory().GetWebhookRepository())
	return d.Dispatch(ctx, payload.WebhookID, payload.EventType, payload.Payload)
}
