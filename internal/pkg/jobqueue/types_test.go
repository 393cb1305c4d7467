package jobqueue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobType(t *testing.T) {
	tests := []struct {
		name     string
		jobType  JobType
		expected string
	}{
		{"CSV Import", JobTypeCSVImport, "csv_import"},
		{"Webhook Dispatch", JobTypeWebhookDispatch, "webhook_dispatch"},
		{"Bulk Delete", JobTypeBulkDelete, "bulk_delete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.jobType))
		})
	}
}

func TestJobStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   JobStatus
		expected string
	}{
		{"Pending", JobStatusPending, "pending"},
		{"Processing", JobStatusProcessing, "processing"},
		{"Completed", JobStatusCompleted, "completed"},
		{"Failed", JobStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
		})
	}
}

func TestJob_StatusTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-job",
		Type:      JobTypeCSVImport,
		Status:    JobStatusPending,
		CreatedAt: time.Now(),
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)

	job.MarkAsFailed("test error")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "test error", job.ErrorMsg)
}

func TestJob_MarkAsCompletedClearsError(t *testing.T) {
	job := &Job{Status: JobStatusProcessing, ErrorMsg: "transient"}
	job.MarkAsCompleted()
	assert.Empty(t, job.ErrorMsg)
}

func TestCSVImportJobPayload_RoundTrip(t *testing.T) {
	payload := CSVImportJobPayload{ImportJobID: "0f4b8c9e-1111-2222-3333-444455556666"}

	m := payload.ToMap()
	assert.Equal(t, payload.ImportJobID, m["import_job_id"])

	parsed, err := CSVImportJobPayloadFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, payload.ImportJobID, parsed.ImportJobID)
}

func TestWebhookDispatchJobPayload_RoundTrip(t *testing.T) {
	payload := WebhookDispatchJobPayload{
		WebhookID: 42,
		EventType: "product.created",
		Payload:   map[string]interface{}{"sku": "A1", "name": "Widget"},
	}

	parsed, err := WebhookDispatchJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), parsed.WebhookID)
	assert.Equal(t, "product.created", parsed.EventType)
	assert.Equal(t, "A1", parsed.Payload["sku"])
}

// A payload that went through Redis comes back with JSON number types;
// FromMap must still produce the original typed payload.
func TestWebhookDispatchJobPayload_SurvivesJSONStorage(t *testing.T) {
	original := WebhookDispatchJobPayload{WebhookID: 7, EventType: "test"}

	data, err := json.Marshal(original.ToMap())
	require.NoError(t, err)

	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &stored))

	parsed, err := WebhookDispatchJobPayloadFromMap(stored)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), parsed.WebhookID)
	assert.Equal(t, "test", parsed.EventType)
}

func TestBulkDeleteJobPayload_RoundTrip(t *testing.T) {
	payload := BulkDeleteJobPayload{JobID: "tracking-id"}

	parsed, err := BulkDeleteJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, "tracking-id", parsed.JobID)
}
