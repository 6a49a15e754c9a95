package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"media-tracker-api/config"
	"media-tracker-api/models"

	"github.com/google/uuid"
)

// Notifier is told about finished jobs. Delivery is best-effort; failures are
// logged, never surfaced to the job.
type Notifier interface {
	NotifyImportFinished(ctx context.Context, job *models.ImportJob) error
}

// ImportOrchestrator drives a job through its lifecycle: pending ->
// processing -> completed/failed/partial. Each row runs in its own
// transaction so one bad row cannot roll back its neighbours, and progress
// snapshots are persisted at a fixed interval so pollers see movement on
// large files.
type ImportOrchestrator struct {
	store     Store
	processor *RowProcessor
	notifier  Notifier
	settings  config.ImportSettings
}

func NewImportOrchestrator(store Store, processor *RowProcessor, notifier Notifier, settings config.ImportSettings) *ImportOrchestrator {
	if store == nil {
		store = NewGormStore(nil)
	}
	if settings.ErrorLogCap <= 0 {
		settings.ErrorLogCap = 100
	}
	if settings.ProgressInterval <= 0 {
		settings.ProgressInterval = 10
	}
	return &ImportOrchestrator{
		store:     store,
		processor: processor,
		notifier:  notifier,
		settings:  settings,
	}
}

// Run executes the job against the given file content. It always leaves the
// job in a terminal state: a panic or parse failure marks it failed rather
// than abandoning it in processing. Re-running a terminal job is a no-op.
func (o *ImportOrchestrator) Run(ctx context.Context, jobID uuid.UUID, content []byte) error {
	job, err := o.store.ImportJobByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("import job %s panicked: %v", jobID, r)
			o.failJob(jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": models.ImportStatusProcessing}
	if job.StartedAt == nil {
		updates["started_at"] = now
	}
	if err := o.store.UpdateImportJob(ctx, jobID, updates); err != nil {
		return err
	}

	rows, err := ParseViewingHistory(content)
	if err != nil {
		o.failJob(jobID, err.Error())
		return nil
	}

	var (
		processed  int
		successful int
		failed     int
		skipped    int
		errLog     = models.ImportErrorList{}
	)

	for i, row := range rows {
		if ctx.Err() != nil {
			break
		}

		outcome, rowErr := o.processRow(ctx, job.UserID, row)
		processed++
		switch outcome {
		case OutcomeSuccess:
			successful++
		case OutcomeSkipped:
			skipped++
		default:
			failed++
			if len(errLog) < o.settings.ErrorLogCap {
				errLog = append(errLog, models.ImportError{
					Row:   i + 1,
					Error: rowErr.Error(),
					Data:  row.Raw,
				})
			}
		}

		if processed%o.settings.ProgressInterval == 0 {
			o.snapshot(ctx, jobID, processed, successful, failed, skipped, errLog)
		}
	}

	status := terminalStatus(successful, failed)
	if ctx.Err() != nil && processed < len(rows) {
		// Cancelled between rows. Work already committed stays committed;
		// the job records how far it got.
		if len(errLog) < o.settings.ErrorLogCap {
			errLog = append(errLog, models.ImportError{Error: "import cancelled before completion"})
		}
		status = models.ImportStatusFailed
		if successful > 0 {
			status = models.ImportStatusPartial
		}
	}

	final := map[string]interface{}{
		"status":          status,
		"processed_rows":  processed,
		"successful_rows": successful,
		"failed_rows":     failed,
		"skipped_rows":    skipped,
		"error_log":       errLog,
		"completed_at":    time.Now().UTC(),
	}
	// Use a fresh context so a cancelled run still gets its terminal state.
	if err := o.store.UpdateImportJob(context.Background(), jobID, final); err != nil {
		return err
	}

	o.notify(jobID)
	return nil
}

// processRow wraps one row in its own transaction. A failed row rolls back
// everything it wrote, including any media it created, without touching work
// done by earlier rows.
func (o *ImportOrchestrator) processRow(ctx context.Context, userID uuid.UUID, row ImportRow) (RowOutcome, error) {
	var outcome RowOutcome
	err := o.store.Transaction(ctx, func(tx Store) error {
		var perr error
		outcome, perr = o.processor.Process(ctx, tx, userID, row)
		return perr
	})
	if err != nil {
		return OutcomeFailed, err
	}
	return outcome, nil
}

func (o *ImportOrchestrator) snapshot(ctx context.Context, jobID uuid.UUID, processed, successful, failed, skipped int, errLog models.ImportErrorList) {
	err := o.store.UpdateImportJob(ctx, jobID, map[string]interface{}{
		"processed_rows":  processed,
		"successful_rows": successful,
		"failed_rows":     failed,
		"skipped_rows":    skipped,
		"error_log":       errLog,
	})
	if err != nil {
		log.Printf("failed to persist progress for import job %s: %v", jobID, err)
	}
}

// failJob marks the job failed with a single job-level error entry. It runs
// on a background context so it works even when the run's context is gone.
func (o *ImportOrchestrator) failJob(jobID uuid.UUID, message string) {
	err := o.store.UpdateImportJob(context.Background(), jobID, map[string]interface{}{
		"status":       models.ImportStatusFailed,
		"error_log":    models.ImportErrorList{{Error: message}},
		"completed_at": time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, ErrImportJobNotFound) {
		log.Printf("failed to mark import job %s as failed: %v", jobID, err)
	}
}

func (o *ImportOrchestrator) notify(jobID uuid.UUID) {
	if o.notifier == nil {
		return
	}
	job, err := o.store.ImportJobByID(context.Background(), jobID)
	if err != nil {
		log.Printf("failed to load import job %s for notification: %v", jobID, err)
		return
	}
	if err := o.notifier.NotifyImportFinished(context.Background(), job); err != nil {
		log.Printf("failed to send completion notification for job %s: %v", jobID, err)
	}
}

// terminalStatus maps final counters to a job status. Skipped rows count
// toward neither side: a job of nothing but skips completes cleanly.
func terminalStatus(successful, failed int) string {
	switch {
	case failed == 0:
		return models.ImportStatusCompleted
	case successful == 0:
		return models.ImportStatusFailed
	default:
		return models.ImportStatusPartial
	}
}
