package services

import (
	"context"
	"errors"

	"media-tracker-api/models"

	"github.com/google/uuid"
)

var (
	ErrImportJobNotFound = errors.New("import job not found")
	ErrUserNotFound      = errors.New("user not found")
	// ErrDuplicateMedia signals that another writer created a media row with
	// the same identity title first. Callers re-fetch instead of failing.
	ErrDuplicateMedia = errors.New("media already exists")
)

// Store is the persistence boundary of the import pipeline. Lookup methods
// return (nil, nil) when no row matches; per-row fault isolation is provided
// by Transaction, which rolls back everything the callback wrote when it
// returns an error.
type Store interface {
	CreateImportJob(ctx context.Context, job *models.ImportJob) error
	ImportJobByID(ctx context.Context, id uuid.UUID) (*models.ImportJob, error)
	ImportJobForUser(ctx context.Context, id, userID uuid.UUID) (*models.ImportJob, error)
	UpdateImportJob(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	ListImportJobs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ImportJob, int64, error)

	MediaByNormalizedTitle(ctx context.Context, normalized string) (*models.Media, error)
	// CreateMedia returns ErrDuplicateMedia when the identity title is
	// already taken.
	CreateMedia(ctx context.Context, media *models.Media) error
	UpdateMedia(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error

	UserMediaForMovie(ctx context.Context, userID, mediaID uuid.UUID) (*models.UserMedia, error)
	UserMediaForEpisode(ctx context.Context, userID, mediaID uuid.UUID, season *int, episodeTitle *string, episodeNumber *int) (*models.UserMedia, error)
	CreateUserMedia(ctx context.Context, entry *models.UserMedia) error

	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	Transaction(ctx context.Context, fn func(tx Store) error) error
}
