package services

import (
	"context"
	"errors"
	"time"

	"media-tracker-api/models"

	"github.com/google/uuid"
)

// ErrMissingTitle is returned for rows with an empty title field.
var ErrMissingTitle = errors.New("missing title")

// RowOutcome distinguishes a newly created record from an idempotent skip.
// Skips are neither successes nor failures in the job statistics.
type RowOutcome string

const (
	OutcomeSuccess RowOutcome = "success"
	OutcomeSkipped RowOutcome = "skipped"
	OutcomeFailed  RowOutcome = "failed"
)

// ImportRow is one validated row of a viewing-history export. Raw keeps the
// verbatim source cells for audit.
type ImportRow struct {
	Title string
	Date  string
	Raw   map[string]string
}

// RowProcessor turns one input row into a persisted consumption record,
// enforcing episode-level idempotence: re-processing the same decomposed
// identity is a skip, not a duplicate insert and not a failure. Duplicate
// movie rows are skipped as well; an existing record's consumed_at is never
// overwritten.
type RowProcessor struct {
	resolver *MediaResolver
	source   string
	platform string
}

func NewRowProcessor(resolver *MediaResolver, source, platform string) *RowProcessor {
	return &RowProcessor{resolver: resolver, source: source, platform: platform}
}

// Process handles a single row inside the caller's transaction.
func (p *RowProcessor) Process(ctx context.Context, store Store, userID uuid.UUID, row ImportRow) (RowOutcome, error) {
	title := row.Title
	if title == "" {
		return OutcomeFailed, ErrMissingTitle
	}

	dec := DecomposeTitle(title)

	var consumedAt *time.Time
	if row.Date != "" {
		t, err := ResolveDate(row.Date)
		if err != nil {
			return OutcomeFailed, err
		}
		consumedAt = &t
	}

	media, err := p.resolver.Resolve(ctx, store, dec)
	if err != nil {
		return OutcomeFailed, err
	}

	existing, err := p.findExisting(ctx, store, userID, media.ID, dec)
	if err != nil {
		return OutcomeFailed, err
	}
	if existing != nil {
		return OutcomeSkipped, nil
	}

	entry := &models.UserMedia{
		ID:           uuid.New(),
		UserID:       userID,
		MediaID:      media.ID,
		Status:       "watched",
		Platform:     p.platform,
		ConsumedAt:   consumedAt,
		ImportedFrom: p.source,
		RawImportData: models.JSONMap{
			"original_title": title,
			"date":           row.Date,
		},
	}
	for k, v := range row.Raw {
		if k != "Title" && k != "Date" {
			entry.RawImportData[k] = v
		}
	}

	if dec.Type == models.MediaTypeTVSeries {
		entry.SeasonNumber = dec.SeasonNumber
		entry.EpisodeNumber = dec.EpisodeNumber
		if dec.EpisodeDescriptor != "" {
			episodeTitle := dec.EpisodeDescriptor
			entry.EpisodeTitle = &episodeTitle
		}
	}

	if err := store.CreateUserMedia(ctx, entry); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeSuccess, nil
}

// findExisting probes for a record with the row's identity key: for movies
// (user, media); for series (user, media, season, episode title) with a
// fallback to the episode number when no title is available.
func (p *RowProcessor) findExisting(ctx context.Context, store Store, userID, mediaID uuid.UUID, dec DecomposedTitle) (*models.UserMedia, error) {
	if dec.Type != models.MediaTypeTVSeries {
		return store.UserMediaForMovie(ctx, userID, mediaID)
	}
	var episodeTitle *string
	if dec.EpisodeDescriptor != "" {
		episodeTitle = &dec.EpisodeDescriptor
	}
	return store.UserMediaForEpisode(ctx, userID, mediaID, dec.SeasonNumber, episodeTitle, dec.EpisodeNumber)
}
