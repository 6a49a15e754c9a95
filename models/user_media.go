package models

import (
	"time"

	"github.com/google/uuid"
)

// UserMedia is one unit of consumption: a watched movie, or a single watched
// episode of a series. For series, identity within (user, media) is the
// season plus episode title when one is available, falling back to the
// season plus episode number.
type UserMedia struct {
	ID      uuid.UUID `gorm:"primaryKey;column:id;type:char(36)" json:"id"`
	UserID  uuid.UUID `gorm:"column:user_id;type:char(36);index:idx_user_media_user" json:"user_id"`
	MediaID uuid.UUID `gorm:"column:media_id;type:char(36);index:idx_user_media_media" json:"media_id"`

	Status     string     `gorm:"column:status;type:varchar(50)" json:"status"`
	Platform   string     `gorm:"column:platform;type:varchar(50)" json:"platform"`
	ConsumedAt *time.Time `gorm:"column:consumed_at;type:date" json:"consumed_at,omitempty"`

	SeasonNumber  *int    `gorm:"column:season_number;index:idx_user_media_season" json:"season_number,omitempty"`
	EpisodeNumber *int    `gorm:"column:episode_number" json:"episode_number,omitempty"`
	EpisodeTitle  *string `gorm:"column:episode_title;type:varchar(500)" json:"episode_title,omitempty"`

	ImportedFrom  string  `gorm:"column:imported_from;type:varchar(50)" json:"imported_from"`
	RawImportData JSONMap `gorm:"column:raw_import_data;type:json" json:"raw_import_data"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (UserMedia) TableName() string { return "user_media" }
