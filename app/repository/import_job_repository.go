package repository

import (
	"gorm.io/gorm"

	"github.com/skuforge/skuforge/app/models"
)

// importJobRepository implements the ImportJobRepository interface
type importJobRepository struct {
	db *gorm.DB
}

// NewImportJobRepository creates a new import job repository instance
func NewImportJobRepository(db *gorm.DB) ImportJobRepository {
	return &importJobRepository{db: db}
}

// Create creates a new import job in the database
func (r *importJobRepository) Create(job *models.ImportJob) error {
	return r.db.Create(job).Error
}

// GetByID retrieves an import job by its ID
func (r *importJobRepository) GetByID(id string) (*models.ImportJob, error) {
	var job models.ImportJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// terminalStatuses guards status writers: a job that already reached a
// terminal status must never transition again.
var terminalStatuses = []models.ImportJobStatus{
	models.ImportJobStatusCompleted,
	models.ImportJobStatusFailed,
	models.ImportJobStatusCancelled,
}

// UpdateStatus transitions a job and optionally records error detail. Writes
// against a job already in a terminal status match no row.
func (r *importJobRepository) UpdateStatus(id string, status models.ImportJobStatus, errDetail *string) error {
	updates := map[string]interface{}{"status": status}
	if errDetail != nil {
		updates["error"] = *errDetail
	}
	return r.db.Model(&models.ImportJob{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses).
		Updates(updates).Error
}

// UpdateProgress persists the cumulative processed row counter
func (r *importJobRepository) UpdateProgress(id string, processedRows int) error {
	return r.db.Model(&models.ImportJob{}).Where("id = ?", id).
		Update("processed_rows", processedRows).Error
}

// Complete marks a job completed and freezes its row totals
func (r *importJobRepository) Complete(id string, totalRows int) error {
	return r.db.Model(&models.ImportJob{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses).
		Updates(map[string]interface{}{
			"status":         models.ImportJobStatusCompleted,
			"total_rows":     totalRows,
			"processed_rows": totalRows,
		}).Error
}
