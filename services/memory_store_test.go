package services

import (
	"context"
	"sync"
	"time"

	"media-tracker-api/models"

	"github.com/google/uuid"
)

// memoryStore is an in-memory Store used by the pipeline tests. Transaction
// snapshots all tables and restores them when the callback fails, matching
// the per-row rollback the MySQL store provides.
type memoryStore struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]*models.ImportJob
	media     map[uuid.UUID]*models.Media
	userMedia map[uuid.UUID]*models.UserMedia
	users     map[uuid.UUID]*models.User

	// hooks for fault injection
	beforeCreateMedia func(media *models.Media) error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		jobs:      make(map[uuid.UUID]*models.ImportJob),
		media:     make(map[uuid.UUID]*models.Media),
		userMedia: make(map[uuid.UUID]*models.UserMedia),
		users:     make(map[uuid.UUID]*models.User),
	}
}

func (s *memoryStore) CreateImportJob(_ context.Context, job *models.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memoryStore) ImportJobByID(_ context.Context, id uuid.UUID) (*models.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrImportJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *memoryStore) ImportJobForUser(_ context.Context, id, userID uuid.UUID) (*models.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.UserID != userID {
		return nil, ErrImportJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *memoryStore) UpdateImportJob(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ErrImportJobNotFound
	}
	for key, value := range updates {
		switch key {
		case "status":
			job.Status = value.(string)
		case "total_rows":
			job.TotalRows = value.(int)
		case "processed_rows":
			job.ProcessedRows = value.(int)
		case "successful_rows":
			job.SuccessfulRows = value.(int)
		case "failed_rows":
			job.FailedRows = value.(int)
		case "skipped_rows":
			job.SkippedRows = value.(int)
		case "error_log":
			log := value.(models.ImportErrorList)
			job.ErrorLog = append(models.ImportErrorList{}, log...)
		case "started_at":
			t := toTime(value)
			job.StartedAt = &t
		case "completed_at":
			t := toTime(value)
			job.CompletedAt = &t
		}
	}
	return nil
}

func (s *memoryStore) ListImportJobs(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.ImportJob, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var jobs []models.ImportJob
	for _, job := range s.jobs {
		if job.UserID == userID {
			jobs = append(jobs, *job)
		}
	}
	total := int64(len(jobs))
	if offset >= len(jobs) {
		return nil, total, nil
	}
	jobs = jobs[offset:]
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs, total, nil
}

func (s *memoryStore) MediaByNormalizedTitle(_ context.Context, normalized string) (*models.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.media {
		if m.TitleNormalized == normalized {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) CreateMedia(_ context.Context, media *models.Media) error {
	if s.beforeCreateMedia != nil {
		if err := s.beforeCreateMedia(media); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.media {
		if m.TitleNormalized == media.TitleNormalized {
			return ErrDuplicateMedia
		}
	}
	copied := *media
	s.media[media.ID] = &copied
	return nil
}

func (s *memoryStore) UpdateMedia(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.media[id]
	if !ok {
		return nil
	}
	for key, value := range updates {
		switch key {
		case "media_metadata":
			m.Metadata = value.(models.JSONMap)
		case "type":
			m.Type = value.(string)
		}
	}
	return nil
}

func (s *memoryStore) UserMediaForMovie(_ context.Context, userID, mediaID uuid.UUID) (*models.UserMedia, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.userMedia {
		if e.UserID == userID && e.MediaID == mediaID {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) UserMediaForEpisode(_ context.Context, userID, mediaID uuid.UUID, season *int, episodeTitle *string, episodeNumber *int) (*models.UserMedia, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.userMedia {
		if e.UserID != userID || e.MediaID != mediaID {
			continue
		}
		if !intPtrEqual(e.SeasonNumber, season) {
			continue
		}
		if episodeTitle != nil && *episodeTitle != "" {
			if e.EpisodeTitle == nil || *e.EpisodeTitle != *episodeTitle {
				continue
			}
		} else if episodeNumber != nil {
			if e.EpisodeNumber == nil || *e.EpisodeNumber != *episodeNumber {
				continue
			}
		} else if e.EpisodeTitle != nil || e.EpisodeNumber != nil {
			continue
		}
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

func (s *memoryStore) CreateUserMedia(_ context.Context, entry *models.UserMedia) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *entry
	s.userMedia[entry.ID] = &copied
	return nil
}

func (s *memoryStore) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *memoryStore) Transaction(_ context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	jobs := snapshotMap(s.jobs)
	media := snapshotMap(s.media)
	userMedia := snapshotMap(s.userMedia)
	users := snapshotMap(s.users)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.jobs = jobs
		s.media = media
		s.userMedia = userMedia
		s.users = users
		s.mu.Unlock()
		return err
	}
	return nil
}

func snapshotMap[V any](src map[uuid.UUID]*V) map[uuid.UUID]*V {
	out := make(map[uuid.UUID]*V, len(src))
	for k, v := range src {
		copied := *v
		out[k] = &copied
	}
	return out
}

func toTime(v interface{}) time.Time {
	if t, ok := v.(time.Time); ok {
		return t
	}
	return time.Time{}
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
