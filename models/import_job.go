package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ImportStatusPending    = "pending"
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
	ImportStatusPartial    = "partial"
)

const (
	ImportSourceCSVExport   = "csv_export"
	ImportSourceManual      = "manual"
	ImportSourceExternalAPI = "external_api"
)

// ImportJob tracks one upload attempt through its lifecycle:
// pending -> processing -> completed | failed | partial.
type ImportJob struct {
	ID     uuid.UUID `gorm:"primaryKey;column:id;type:char(36)" json:"id"`
	UserID uuid.UUID `gorm:"column:user_id;type:char(36);index:idx_import_jobs_user" json:"user_id"`

	Source string `gorm:"column:source;type:varchar(50);not null" json:"source"`
	Status string `gorm:"column:status;type:varchar(50);not null;default:'pending'" json:"status"`

	// Counters are monotonically non-decreasing while processing and frozen
	// once the job reaches a terminal status. Skips are counted apart from
	// successes so the stats reflect true new-data volume.
	TotalRows      int `gorm:"column:total_rows;not null;default:0" json:"total_rows"`
	ProcessedRows  int `gorm:"column:processed_rows;not null;default:0" json:"processed_rows"`
	SuccessfulRows int `gorm:"column:successful_rows;not null;default:0" json:"successful_rows"`
	FailedRows     int `gorm:"column:failed_rows;not null;default:0" json:"failed_rows"`
	SkippedRows    int `gorm:"column:skipped_rows;not null;default:0" json:"skipped_rows"`

	ErrorLog ImportErrorList `gorm:"column:error_log;type:json" json:"error_log"`

	// Upload provenance. The hash is recorded for future duplicate-upload
	// detection but not currently enforced.
	Filename string `gorm:"column:filename;type:varchar(255)" json:"filename,omitempty"`
	FileSize int64  `gorm:"column:file_size" json:"file_size,omitempty"`
	FileHash string `gorm:"column:file_hash;type:char(64)" json:"file_hash,omitempty"`

	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime;index:idx_import_jobs_created" json:"created_at"`
	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (ImportJob) TableName() string { return "import_jobs" }

// IsTerminal reports whether the job reached a final status.
func (j *ImportJob) IsTerminal() bool {
	switch j.Status {
	case ImportStatusCompleted, ImportStatusFailed, ImportStatusPartial:
		return true
	}
	return false
}
