package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/skuforge/skuforge/app/models"
	"github.com/skuforge/skuforge/app/repository"
	"github.com/skuforge/skuforge/internal/pkg/cache"
	"github.com/skuforge/skuforge/internal/pkg/cancellation"
	"github.com/skuforge/skuforge/internal/pkg/env"
	"github.com/skuforge/skuforge/internal/pkg/jobqueue"
	"github.com/skuforge/skuforge/internal/pkg/progress"
)

// DefaultMaxUploadMB caps CSV uploads when MAX_FILE_SIZE_MB is unset
const DefaultMaxUploadMB = 100

var allowedCSVContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true,
	"application/octet-stream": true,
}

// HandleUploadCSV accepts a multipart CSV upload, persists the import job
// with the raw CSV text and enqueues the background import.
// Response: 202 + ImportJob JSON.
func HandleUploadCSV(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no file uploaded"})
	}

	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "only CSV files are allowed"})
	}
	if ct := fileHeader.Header.Get("Content-Type"); ct != "" && !allowedCSVContentTypes[ct] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid content type: %s, expected CSV file", ct),
		})
	}

	maxBytes := int64(env.GetEnvInt("MAX_FILE_SIZE_MB", DefaultMaxUploadMB)) * 1024 * 1024
	if fileHeader.Size > maxBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("file too large, maximum size: %dMB", maxBytes/(1024*1024)),
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
	}
	defer file.Close()

	buf := new(strings.Builder)
	if _, err := io.Copy(buf, file); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
	}

	job := &models.ImportJob{
		ID:       uuid.New().String(),
		Filename: fileHeader.Filename,
		CSVData:  buf.String(),
		Status:   models.ImportJobStatusQueued,
	}

	jobs := repository.GetGlobalFactory().GetImportJobRepository()
	if err := jobs.Create(job); err != nil {
		fiberlog.Errorf("[Upload] Failed to create import job: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create import job"})
	}
	fiberlog.Infof("[Upload] Created import job %s (%s, %d bytes)", job.ID, job.Filename, fileHeader.Size)

	payload := jobqueue.CSVImportJobPayload{ImportJobID: job.ID}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeCSVImport, payload.ToMap()); err != nil {
		fiberlog.Errorf("[Upload] Failed to enqueue import for job %s: %v", job.ID, err)
		detail := fmt.Sprintf("Failed to start import task: %s", err.Error())
		if uerr := jobs.UpdateStatus(job.ID, models.ImportJobStatusFailed, &detail); uerr != nil {
			fiberlog.Errorf("[Upload] Failed to mark job %s failed: %v", job.ID, uerr)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to start import task"})
	}

	return c.Status(fiber.StatusAccepted).JSON(job)
}

// HandleGetImportJob returns the current state of an import job
func HandleGetImportJob(c *fiber.Ctx) error {
	jobID := c.Params("id")

	job, err := repository.GetGlobalFactory().GetImportJobRepository().GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fmt.Sprintf("import job %s not found", jobID),
			})
		}
		fiberlog.Errorf("[Jobs] Failed to load job %s: %v", jobID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load import job"})
	}

	return c.JSON(job)
}

// HandleCancelImportJob requests cooperative cancellation of a running import.
// The durable status flips to cancelled immediately; the worker observes the
// flag within at most one batch.
func HandleCancelImportJob(c *fiber.Ctx) error {
	jobID := c.Params("id")

	jobs := repository.GetGlobalFactory().GetImportJobRepository()
	job, err := jobs.GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fmt.Sprintf("import job %s not found", jobID),
			})
		}
		fiberlog.Errorf("[Cancel] Failed to load job %s: %v", jobID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load import job"})
	}

	if job.IsTerminal() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": fmt.Sprintf("cannot cancel job with status: %s", job.Status),
		})
	}

	signal := cancellation.NewRedisSignal(cache.GetClient())
	if err := signal.Request(c.Context(), jobID); err != nil {
		fiberlog.Errorf("[Cancel] Failed to set cancel flag for job %s: %v", jobID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to request cancellation"})
	}

	detail := "Cancelled by user"
	if err := jobs.UpdateStatus(jobID, models.ImportJobStatusCancelled, &detail); err != nil {
		fiberlog.Errorf("[Cancel] Failed to persist cancellation of job %s: %v", jobID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to cancel import job"})
	}

	fiberlog.Infof("[Cancel] Job %s marked for cancellation", jobID)
	return c.JSON(fiber.Map{"message": fmt.Sprintf("Job %s has been cancelled", jobID)})
}

// HandleStreamProgress streams progress events for a job as Server-Sent
// Events. The stream opens with a connected marker, forwards published events
// and closes after a terminal status. A dropped subscriber never affects the
// running job.
func HandleStreamProgress(c *fiber.Ctx) error {
	jobID := c.Params("id")
	if jobID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "job id missing"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	bus := progress.NewRedisBus(cache.GetClient())

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, stop := bus.Subscribe(ctx, jobID)
		defer stop()

		fiberlog.Infof("[SSE] Client connected to progress stream for job %s", jobID)

		if !writeSSEEvent(w, progress.Connected(jobID)) {
			return
		}

		for event := range events {
			if !writeSSEEvent(w, event) {
				fiberlog.Infof("[SSE] Client disconnected from job %s", jobID)
				return
			}
			if event.IsTerminal() {
				fiberlog.Infof("[SSE] Job %s finished with status %s", jobID, event.Status)
				return
			}
		}
	}))

	return nil
}

// writeSSEEvent writes one event in SSE framing and reports whether the
// client is still reachable.
func writeSSEEvent(w *bufio.Writer, event progress.Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return false
	}
	return w.Flush() == nil
}
