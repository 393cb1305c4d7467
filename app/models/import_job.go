package models

import (
	"errors"
	"time"
)

// ImportJobStatus defines the lifecycle state of a CSV import job
type ImportJobStatus string

const (
	ImportJobStatusQueued    ImportJobStatus = "queued"
	ImportJobStatusRunning   ImportJobStatus = "running"
	ImportJobStatusCompleted ImportJobStatus = "completed"
	ImportJobStatusFailed    ImportJobStatus = "failed"
	ImportJobStatusCancelled ImportJobStatus = "cancelled"
)

var (
	ErrNegativePrice = errors.New("price must not be negative")
)

// ImportJob tracks a single CSV import. The raw CSV text is kept on the row so
// any worker can pick the job up without shared filesystem access.
type ImportJob struct {
	ID            string          `gorm:"type:char(36);primaryKey" json:"id"`
	Filename      string          `gorm:"type:varchar(512);not null" json:"filename"`
	CSVData       string          `gorm:"column:csv_data;type:longtext" json:"-"`
	Status        ImportJobStatus `gorm:"type:varchar(50);not null;default:'queued';index" json:"status"`
	TotalRows     *int            `gorm:"type:int" json:"total_rows"`
	ProcessedRows int             `gorm:"type:int;not null;default:0" json:"processed_rows"`
	Error         *string         `gorm:"type:text" json:"error"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name for the ImportJob model
func (ImportJob) TableName() string {
	return "import_jobs"
}

// IsTerminal reports whether the job can no longer change state.
func (j *ImportJob) IsTerminal() bool {
	switch j.Status {
	case ImportJobStatusCompleted, ImportJobStatusFailed, ImportJobStatusCancelled:
		return true
	}
	return false
}
