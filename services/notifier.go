package services

import (
	"context"
	"fmt"

	"media-tracker-api/config"
	"media-tracker-api/models"
)

// EmailNotifier mails the job owner a short summary once a job finishes.
type EmailNotifier struct {
	store Store
}

func NewEmailNotifier(store Store) *EmailNotifier {
	if store == nil {
		store = NewGormStore(nil)
	}
	return &EmailNotifier{store: store}
}

func (n *EmailNotifier) NotifyImportFinished(ctx context.Context, job *models.ImportJob) error {
	user, err := n.store.UserByID(ctx, job.UserID)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Your import finished: %s", job.Status)
	html := fmt.Sprintf(`
		<p>Your viewing-history import has finished with status <b>%s</b>.</p>
		<ul>
			<li>Processed: %d of %d rows</li>
			<li>Imported: %d</li>
			<li>Already present: %d</li>
			<li>Failed: %d</li>
		</ul>`,
		job.Status, job.ProcessedRows, job.TotalRows,
		job.SuccessfulRows, job.SkippedRows, job.FailedRows)

	return config.SendMail([]string{user.Email}, subject, html)
}
