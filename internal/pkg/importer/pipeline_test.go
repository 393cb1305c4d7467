package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skuforge/skuforge/app/models"
	"github.com/skuforge/skuforge/app/repository"
	"github.com/skuforge/skuforge/internal/pkg/progress"
)

func newTestPipeline(t *testing.T, db *gorm.DB, bus *memoryBus, signal *countingSignal, opts ...Option) (*Pipeline, repository.ImportJobRepository) {
	t.Helper()
	jobs := repository.NewImportJobRepository(db)
	return NewPipeline(db, jobs, bus, signal, opts...), jobs
}

func createJob(t *testing.T, jobs repository.ImportJobRepository, csvData string) string {
	t.Helper()
	job := &models.ImportJob{
		ID:       uuid.New().String(),
		Filename: "products.csv",
		CSVData:  csvData,
		Status:   models.ImportJobStatusQueued,
	}
	require.NoError(t, jobs.Create(job))
	return job.ID
}

func TestProcessEndToEndSkipsRowWithoutSKU(t *testing.T) {
	db := newTestDB(t)
	bus := newMemoryBus()
	pipeline, jobs := newTestPipeline(t, db, bus, &countingSignal{})

	jobID := createJob(t, jobs, "sku,name,price\nA1,Widget,9.99\n,NoSku,1.00\n")
	require.NoError(t, pipeline.Process(context.Background(), jobID))

	job, err := jobs.GetByID(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportJobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.ProcessedRows)
	require.NotNil(t, job.TotalRows)
	assert.Equal(t, 1, *job.TotalRows)

	var products []models.Product
	require.NoError(t, db.Find(&products).Error)
	require.Len(t, products, 1)
	assert.Equal(t, "a1", products[0].SKUCI)
	assert.Equal(t, "Widget", products[0].Name)

	events := bus.published(jobID)
	require.NotEmpty(t, events)
	final := events[len(events)-1]
	assert.Equal(t, progress.StatusComplete, final.Status)
	require.NotNil(t, final.Inserted)
	assert.Equal(t, 1, *final.Inserted)
}

func TestProcessIdempotentReimport(t *testing.T) {
	db := newTestDB(t)
	bus := newMemoryBus()
	pipeline, jobs := newTestPipeline(t, db, bus, &countingSignal{})

	csvData := "sku,name,price\nA1,Widget,9.99\nB2,Gadget,5.00\n"

	first := createJob(t, jobs, csvData)
	require.NoError(t, pipeline.Process(context.Background(), first))

	second := createJob(t, jobs, csvData)
	require.NoError(t, pipeline.Process(context.Background(), second))

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	events := bus.published(second)
	final := events[len(events)-1]
	require.Equal(t, progress.StatusComplete, final.Status)
	assert.Equal(t, 0, *final.Inserted)
	assert.Equal(t, 2, *final.Updated)
}

func TestProcessProgressMonotonicity(t *testing.T) {
	db := newTestDB(t)
	bus := newMemoryBus()
	pipeline, jobs := newTestPipeline(t, db, bus, &countingSignal{}, WithBatchSize(2))

	var sb strings.Builder
	sb.WriteString("sku,name\n")
	for i := 0; i < 7; i++ {
		fmt.Fprintf(&sb, "SKU-%d,Item %d\n", i, i)
	}
	jobID := createJob(t, jobs, sb.String())
	require.NoError(t, pipeline.Process(context.Background(), jobID))

	last := -1
	for _, ev := range bus.published(jobID) {
		if ev.Processed == nil {
			continue
		}
		assert.GreaterOrEqual(t, *ev.Processed, last)
		last = *ev.Processed
	}
	assert.Equal(t, 7, last)
}

func TestProcessCancelledBeforeStart(t *testing.T) {
	db := newTestDB(t)
	bus := newMemoryBus()
	signal := &countingSignal{cancelAtNth: 1}
	pipeline, jobs := newTestPipeline(t, db, bus, signal)

	jobID := createJob(t, jobs, "sku\nA1\n")
	require.NoError(t, pipeline.Process(context.Background(), jobID))

	// The requester already marked the job; the worker leaves it untouched.
	job, err := jobs.GetByID(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportJobStatusQueued, job.Status)
	assert.Empty(t, bus.published(jobID))
}

func TestProcessLeavesTerminalJobUntouched(t *testing.T) {
	db := newTestDB(t)
	bus := newMemoryBus()
	// The cancel flag carries a TTL; a requeued job can reach a worker after
	// the flag expired, so only the durable status protects the row here.
	pipeline, jobs := newTestPipeline(t, db, bus, &countingSignal{})

	jobID := createJob(t, jobs, "sku,name\nA1,Widget\n")
	detail := "Cancelled by user"
	require.NoError(t, jobs.UpdateStatus(jobID, models.ImportJobStatusCancelled, &detail))

	require.NoError(t, pipeline.Process(context.Background(), jobID))

	job, err := jobs.GetByID(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportJobStatusCancelled, job.Status)

	// No rows imported, no events published.
	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	assert.Empty(t, bus.published(jobID))
}

func TestProcessCancelledMidImport(t *testing.T) {
	db := newTestDB(t)
	bus := newMemoryBus()
	// First check (job entry) passes, second check onward reports cancelled,
	// so the flag is seen right before the second batch commit.
	signal := &countingSignal{cancelAtNth: 3}
	pipeline, jobs := newTestPipeline(t, db, bus, signal, WithBatchSize(10))

	var sb strings.Builder
	sb.WriteString("sku,name\n")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "SKU-%d,Item %d\n", i, i)
	}
	jobID := createJob(t, jobs, sb.String())
	require.NoError(t, pipeline.Process(context.Background(), jobID))

	job, err := jobs.GetByID(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportJobStatusCancelled, job.Status)

	// The first batch was committed before the flag was observed; the
	// aborted batch was not.
	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.Equal(t, int64(10), count)

	events := bus.published(jobID)
	require.NotEmpty(t, events)
	final := events[len(events)-1]
	assert.Equal(t, progress.StatusCancelled, final.Status)
	require.NotNil(t, final.Processed)
	assert.Equal(t, 10, *final.Processed)
}

func TestProcessMalformedCSVFailsJob(t *testing.T) {
	db := newTestDB(t)
	bus := newMemoryBus()
	pipeline, jobs := newTestPipeline(t, db, bus, &countingSignal{})

	jobID := createJob(t, jobs, "sku,name\nA1,\"unterminated\nB2,ok\n")
	err := pipeline.Process(context.Background(), jobID)
	require.Error(t, err)

	job, gerr := jobs.GetByID(jobID)
	require.NoError(t, gerr)
	assert.Equal(t, models.ImportJobStatusFailed, job.Status)
	require.NotNil(t, job.Error)

	events := bus.published(jobID)
	require.NotEmpty(t, events)
	assert.Equal(t, progress.StatusError, events[len(events)-1].Status)
}

func TestProcessEmptyCSVDataFailsJob(t *testing.T) {
	db := newTestDB(t)
	bus := newMemoryBus()
	pipeline, jobs := newTestPipeline(t, db, bus, &countingSignal{})

	jobID := createJob(t, jobs, "")
	require.Error(t, pipeline.Process(context.Background(), jobID))

	job, err := jobs.GetByID(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportJobStatusFailed, job.Status)
}

func TestProcessCompletionHook(t *testing.T) {
	db := newTestDB(t)
	bus := newMemoryBus()

	var hookProcessed, hookInserted int
	hook := func(job *models.ImportJob, processed, inserted, updated int) {
		hookProcessed = processed
		hookInserted = inserted
	}
	pipeline, jobs := newTestPipeline(t, db, bus, &countingSignal{}, WithCompletionHook(hook))

	jobID := createJob(t, jobs, "sku\nA1\nB2\n")
	require.NoError(t, pipeline.Process(context.Background(), jobID))

	assert.Equal(t, 2, hookProcessed)
	assert.Equal(t, 2, hookInserted)
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, 0, percentOf(10, 0))
	assert.Equal(t, 50, percentOf(50, 100))
	assert.Equal(t, 99, percentOf(100, 100))
	assert.Equal(t, 99, percentOf(500, 100))
}

func TestEstimateRowCount(t *testing.T) {
	assert.Equal(t, 2, estimateRowCount("sku\nA1\nB2\n"))
	assert.Equal(t, 2, estimateRowCount("sku\nA1\nB2"))
	assert.Equal(t, 0, estimateRowCount("sku\n"))
	assert.Equal(t, 0, estimateRowCount(""))
}
