package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"media-tracker-api/models"

	"github.com/google/uuid"
)

// ImportJobService owns creation, lookup and cancellation of import jobs.
// Status mutation during a run belongs to the orchestrator.
type ImportJobService struct {
	store Store
}

func NewImportJobService(store Store) *ImportJobService {
	if store == nil {
		store = NewGormStore(nil)
	}
	return &ImportJobService{store: store}
}

// CreateJob records a pending job for an accepted upload. The content hash
// is kept for future duplicate-upload detection; it is not enforced.
func (s *ImportJobService) CreateJob(ctx context.Context, userID uuid.UUID, source string, totalRows int, content []byte, filename string) (*models.ImportJob, error) {
	sum := sha256.Sum256(content)

	job := &models.ImportJob{
		ID:        uuid.New(),
		UserID:    userID,
		Source:    source,
		Status:    models.ImportStatusPending,
		TotalRows: totalRows,
		ErrorLog:  models.ImportErrorList{},
		Filename:  filename,
		FileSize:  int64(len(content)),
		FileHash:  hex.EncodeToString(sum[:]),
	}
	if err := s.store.CreateImportJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob returns a job scoped to its owner, for status polling.
func (s *ImportJobService) GetJob(ctx context.Context, jobID, userID uuid.UUID) (*models.ImportJob, error) {
	return s.store.ImportJobForUser(ctx, jobID, userID)
}

// History returns the user's import jobs, newest first.
func (s *ImportJobService) History(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.ImportJob, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return s.store.ListImportJobs(ctx, userID, pageSize, (page-1)*pageSize)
}

// Cancel marks a pending job failed with a "cancelled by user" entry. Jobs
// that already started (or finished) are left untouched and Cancel reports
// false.
func (s *ImportJobService) Cancel(ctx context.Context, jobID, userID uuid.UUID) (bool, error) {
	job, err := s.store.ImportJobForUser(ctx, jobID, userID)
	if err != nil {
		if errors.Is(err, ErrImportJobNotFound) {
			return false, nil
		}
		return false, err
	}
	if job.Status != models.ImportStatusPending {
		return false, nil
	}

	now := time.Now().UTC()
	err = s.store.UpdateImportJob(ctx, job.ID, map[string]interface{}{
		"status":       models.ImportStatusFailed,
		"completed_at": now,
		"error_log":    models.ImportErrorList{{Error: "cancelled by user"}},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
