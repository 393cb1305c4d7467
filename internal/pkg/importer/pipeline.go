package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/skuforge/skuforge/app/models"
	"github.com/skuforge/skuforge/app/repository"
	"github.com/skuforge/skuforge/internal/pkg/cancellation"
	"github.com/skuforge/skuforge/internal/pkg/progress"
)

const (
	// DefaultBatchSize is the number of parsed rows committed per upsert
	DefaultBatchSize = 10000

	// cancelCheckInterval is how many CSV rows are read between cancel flag
	// polls. The flag is additionally checked before every batch commit.
	cancelCheckInterval = 100
)

// CompletionHook is invoked after a job reaches completed, with final counts.
type CompletionHook func(job *models.ImportJob, processed, inserted, updated int)

// Pipeline owns the lifecycle of an ImportJob: it parses the stored CSV,
// forms batches, drives the batch upsert, polls the cancellation signal and
// reports progress. One Process call occupies one worker for its whole
// duration; batches are strictly sequential.
type Pipeline struct {
	db          *gorm.DB
	jobs        repository.ImportJobRepository
	bus         progress.Bus
	signal      cancellation.Signal
	batchSize   int
	onCompleted CompletionHook
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithBatchSize overrides the default upsert batch size
func WithBatchSize(size int) Option {
	return func(p *Pipeline) {
		if size > 0 {
			p.batchSize = size
		}
	}
}

// WithCompletionHook registers a callback fired after successful completion
func WithCompletionHook(hook CompletionHook) Option {
	return func(p *Pipeline) {
		p.onCompleted = hook
	}
}

// NewPipeline creates an import pipeline with explicitly injected
// collaborators; the pipeline itself holds no global state.
func NewPipeline(db *gorm.DB, jobs repository.ImportJobRepository, bus progress.Bus, signal cancellation.Signal, opts ...Option) *Pipeline {
	p := &Pipeline{
		db:        db,
		jobs:      jobs,
		bus:       bus,
		signal:    signal,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one import job to a terminal state. It is invoked by the
// worker runtime, not by HTTP callers. The returned error is the job's
// fatal error, already recorded on the job row; the runtime applies no
// retry on top of it.
func (p *Pipeline) Process(ctx context.Context, jobID string) error {
	// A flag set before the worker picked the job up means the requester
	// already marked it cancelled; leave the row untouched.
	if p.signal.IsRequested(ctx, jobID) {
		log.Infof("[Import] Job %s was cancelled before starting", jobID)
		return nil
	}

	job, err := p.jobs.GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[Import] Job %s not found in database", jobID)
			return nil
		}
		return fmt.Errorf("failed to load import job %s: %w", jobID, err)
	}

	// A terminal row must stay terminal. The queue's stuck-job sweeper can
	// hand us a job whose cancel flag already expired; the durable status is
	// the authority here.
	if job.IsTerminal() {
		log.Infof("[Import] Job %s is already %s, nothing to do", jobID, job.Status)
		return nil
	}

	if job.CSVData == "" {
		return p.fail(ctx, jobID, errors.New("no CSV data found"))
	}

	if err := p.jobs.UpdateStatus(jobID, models.ImportJobStatusRunning, nil); err != nil {
		return fmt.Errorf("failed to mark job %s running: %w", jobID, err)
	}
	p.publish(ctx, jobID, progress.Processing(0, 0, 0, 0, "Starting CSV import..."))

	reader := csv.NewReader(strings.NewReader(job.CSVData))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		// Empty input: nothing to do, the job completes with zero rows.
		return p.complete(ctx, job, 0, 0, 0)
	}
	if err != nil {
		return p.fail(ctx, jobID, fmt.Errorf("failed to read CSV header: %w", err))
	}
	cols := resolveColumns(header)

	estimatedTotal := estimateRowCount(job.CSVData)

	var (
		batch     = make([]Row, 0, p.batchSize)
		rowsRead  int
		processed int
		inserted  int
		updated   int
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return p.fail(ctx, jobID, fmt.Errorf("failed to parse CSV at row %d: %w", rowsRead+1, err))
		}
		rowsRead++

		if rowsRead%cancelCheckInterval == 0 && p.signal.IsRequested(ctx, jobID) {
			return p.cancelled(ctx, jobID, processed)
		}

		row, ok := rowFromRecord(cols, record)
		if !ok {
			// Rows without a sku are skipped, not counted as errors.
			continue
		}
		batch = append(batch, row)

		if len(batch) >= p.batchSize {
			// Last look at the flag before committing; a set flag aborts
			// the batch entirely, earlier batches stay applied.
			if p.signal.IsRequested(ctx, jobID) {
				return p.cancelled(ctx, jobID, processed)
			}

			ins, upd, err := UpsertBatch(p.db, batch)
			if err != nil {
				return p.fail(ctx, jobID, err)
			}
			inserted += ins
			updated += upd
			processed += len(batch)
			batch = batch[:0]

			if err := p.jobs.UpdateProgress(jobID, processed); err != nil {
				return p.fail(ctx, jobID, fmt.Errorf("failed to persist progress: %w", err))
			}
			p.publish(ctx, jobID, progress.Processing(
				processed, inserted, updated,
				percentOf(processed, estimatedTotal),
				fmt.Sprintf("Processed %d rows", processed),
			))
			log.Infof("[Import] Job %s processed %d rows", jobID, processed)
		}
	}

	if p.signal.IsRequested(ctx, jobID) {
		return p.cancelled(ctx, jobID, processed)
	}

	if len(batch) > 0 {
		ins, upd, err := UpsertBatch(p.db, batch)
		if err != nil {
			return p.fail(ctx, jobID, err)
		}
		inserted += ins
		updated += upd
		processed += len(batch)
	}

	return p.complete(ctx, job, processed, inserted, updated)
}

func (p *Pipeline) complete(ctx context.Context, job *models.ImportJob, processed, inserted, updated int) error {
	if err := p.jobs.Complete(job.ID, processed); err != nil {
		return p.fail(ctx, job.ID, fmt.Errorf("failed to finalize job: %w", err))
	}
	p.publish(ctx, job.ID, progress.Complete(processed, inserted, updated,
		fmt.Sprintf("Import complete! Processed %d products (%d new, %d updated)", processed, inserted, updated)))
	log.Infof("[Import] Job %s completed: %d rows (%d inserted, %d updated)", job.ID, processed, inserted, updated)

	if p.onCompleted != nil {
		p.onCompleted(job, processed, inserted, updated)
	}
	return nil
}

// cancelled finalizes a cooperatively cancelled job. The requester usually
// already flipped the durable status; the guarded update then matches no row.
func (p *Pipeline) cancelled(ctx context.Context, jobID string, processed int) error {
	detail := "Cancelled by user"
	if err := p.jobs.UpdateStatus(jobID, models.ImportJobStatusCancelled, &detail); err != nil {
		log.Errorf("[Import] Failed to persist cancellation of job %s: %v", jobID, err)
	}
	p.publish(ctx, jobID, progress.Cancelled(processed,
		fmt.Sprintf("Import cancelled after processing %d rows", processed)))
	log.Infof("[Import] Job %s cancelled at %d rows", jobID, processed)
	return nil
}

// fail records the fatal error on the job, emits the terminal error event and
// hands the error back to the worker runtime.
func (p *Pipeline) fail(ctx context.Context, jobID string, cause error) error {
	detail := cause.Error()
	if err := p.jobs.UpdateStatus(jobID, models.ImportJobStatusFailed, &detail); err != nil {
		log.Errorf("[Import] Failed to persist failure of job %s: %v", jobID, err)
	}
	p.publish(ctx, jobID, progress.Errored(detail, fmt.Sprintf("Import failed: %s", detail)))
	log.Errorf("[Import] Job %s failed: %v", jobID, cause)
	return cause
}

func (p *Pipeline) publish(ctx context.Context, jobID string, event progress.Event) {
	if err := p.bus.Publish(ctx, jobID, event); err != nil {
		// Progress is best-effort; a pub/sub hiccup must not fail the import.
		log.Errorf("[Import] Failed to publish progress for job %s: %v", jobID, err)
	}
}

// estimateRowCount approximates the data row count from the raw CSV text so
// running imports can report a percentage before the true total is known.
func estimateRowCount(csvData string) int {
	lines := strings.Count(csvData, "\n")
	if !strings.HasSuffix(csvData, "\n") {
		lines++
	}
	// Minus the header row.
	if lines > 0 {
		lines--
	}
	return lines
}

// percentOf caps at 99 so only the terminal event reports 100.
func percentOf(processed, estimatedTotal int) int {
	if estimatedTotal <= 0 {
		return 0
	}
	percent := processed * 100 / estimatedTotal
	if percent > 99 {
		percent = 99
	}
	return percent
}
