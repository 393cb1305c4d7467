package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeCSVImport       JobType = "csv_import"
	JobTypeWebhookDispatch JobType = "webhook_dispatch"
	JobTypeBulkDelete      JobType = "bulk_delete"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a background job. Jobs run at most once: a failed job is
// marked failed and left in Redis for inspection until its key expires.
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
}

// CSVImportJobPayload contains the payload for CSV import jobs
type CSVImportJobPayload struct {
	ImportJobID string `json:"import_job_id"`
}

// ToMap converts the payload to a map for storage
func (p CSVImportJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"import_job_id": p.ImportJobID,
	}
}

// FromMap creates a payload from a map
func CSVImportJobPayloadFromMap(data map[string]interface{}) (*CSVImportJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload CSVImportJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// WebhookDispatchJobPayload contains the payload for webhook dispatch jobs
type WebhookDispatchJobPayload struct {
	WebhookID uint64                 `json:"webhook_id"`
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
}

// ToMap converts the payload to a map for storage
func (p WebhookDispatchJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"webhook_id": p.WebhookID,
		"event_type": p.EventType,
		"payload":    p.Payload,
	}
}

// FromMap creates a payload from a map
func WebhookDispatchJobPayloadFromMap(data map[string]interface{}) (*WebhookDispatchJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload WebhookDispatchJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// BulkDeleteJobPayload contains the payload for bulk product delete jobs.
// JobID is a tracking id for progress streaming only; bulk deletes have no
// database job row.
type BulkDeleteJobPayload struct {
	JobID string `json:"job_id"`
}

// ToMap converts the payload to a map for storage
func (p BulkDeleteJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"job_id": p.JobID,
	}
}

// FromMap creates a payload from a map
func BulkDeleteJobPayloadFromMap(data map[string]interface{}) (*BulkDeleteJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload BulkDeleteJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
}
