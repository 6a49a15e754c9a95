package services

import (
	"context"
	"errors"

	"media-tracker-api/config"
	"media-tracker-api/models"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStore is the MySQL-backed Store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps the given connection. A nil db means "use the global
// connection", resolved per call so stores built before InitDB still work.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) conn() *gorm.DB {
	if s.db != nil {
		return s.db
	}
	return config.DB
}

func (s *GormStore) CreateImportJob(ctx context.Context, job *models.ImportJob) error {
	return s.conn().WithContext(ctx).Create(job).Error
}

func (s *GormStore) ImportJobByID(ctx context.Context, id uuid.UUID) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := s.conn().WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImportJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (s *GormStore) ImportJobForUser(ctx context.Context, id, userID uuid.UUID) (*models.ImportJob, error) {
	var job models.ImportJob
	err := s.conn().WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImportJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (s *GormStore) UpdateImportJob(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	res := s.conn().WithContext(ctx).Model(&models.ImportJob{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.conn().WithContext(ctx).Model(&models.ImportJob{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrImportJobNotFound
		}
	}
	return nil
}

func (s *GormStore) ListImportJobs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ImportJob, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := s.conn().WithContext(ctx).Model(&models.ImportJob{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []models.ImportJob
	err := s.conn().WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (s *GormStore) MediaByNormalizedTitle(ctx context.Context, normalized string) (*models.Media, error) {
	var media models.Media
	err := s.conn().WithContext(ctx).Where("title_normalized = ?", normalized).First(&media).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &media, nil
}

func (s *GormStore) CreateMedia(ctx context.Context, media *models.Media) error {
	if err := s.conn().WithContext(ctx).Create(media).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateMedia
		}
		return err
	}
	return nil
}

func (s *GormStore) UpdateMedia(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return s.conn().WithContext(ctx).Model(&models.Media{}).Where("id = ?", id).Updates(updates).Error
}

func (s *GormStore) UserMediaForMovie(ctx context.Context, userID, mediaID uuid.UUID) (*models.UserMedia, error) {
	var entry models.UserMedia
	err := s.conn().WithContext(ctx).
		Where("user_id = ? AND media_id = ?", userID, mediaID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (s *GormStore) UserMediaForEpisode(ctx context.Context, userID, mediaID uuid.UUID, season *int, episodeTitle *string, episodeNumber *int) (*models.UserMedia, error) {
	query := s.conn().WithContext(ctx).Where("user_id = ? AND media_id = ?", userID, mediaID)
	if season != nil {
		query = query.Where("season_number = ?", *season)
	} else {
		query = query.Where("season_number IS NULL")
	}
	if episodeTitle != nil && *episodeTitle != "" {
		query = query.Where("episode_title = ?", *episodeTitle)
	} else if episodeNumber != nil {
		query = query.Where("episode_number = ?", *episodeNumber)
	} else {
		query = query.Where("episode_title IS NULL AND episode_number IS NULL")
	}

	var entry models.UserMedia
	if err := query.First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (s *GormStore) CreateUserMedia(ctx context.Context, entry *models.UserMedia) error {
	return s.conn().WithContext(ctx).Create(entry).Error
}

func (s *GormStore) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.conn().WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Transaction runs fn against a transactional copy of the store. An error
// from fn rolls back everything written inside it.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.conn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// isDuplicateKeyError recognizes a unique-constraint violation from the
// MySQL driver (error 1062) or from gorm's translated error.
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
