package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MediaTypeMovie    = "movie"
	MediaTypeTVSeries = "tv_series"
	MediaTypeUnknown  = "unknown"
)

// Media is one canonical catalog entry. Identity is the case-insensitive
// title (series name for TV, full title for movies), enforced by the unique
// index on title_normalized so two concurrent imports cannot create
// duplicates.
type Media struct {
	ID    uuid.UUID `gorm:"primaryKey;column:id;type:char(36)" json:"id"`
	Title string    `gorm:"column:title;type:varchar(255);index" json:"title"`
	// TitleNormalized is the lowercased, trimmed identity title.
	TitleNormalized string  `gorm:"column:title_normalized;type:varchar(255);uniqueIndex:idx_media_title_normalized" json:"-"`
	BaseTitle       *string `gorm:"column:base_title;type:varchar(255);index" json:"base_title,omitempty"`
	Type            string  `gorm:"column:type;type:varchar(50)" json:"type"`
	Platform        *string `gorm:"column:platform;type:varchar(50)" json:"platform,omitempty"`

	PlatformIDs JSONMap `gorm:"column:platform_ids;type:json" json:"platform_ids"`
	Metadata    JSONMap `gorm:"column:media_metadata;type:json" json:"metadata"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Media) TableName() string { return "media" }

// ProvenanceEntry records one sighting of a media title during an import.
type ProvenanceEntry struct {
	Source     string `json:"source"`
	ImportedAt string `json:"imported_at"`
	Season     string `json:"season,omitempty"`
	Episode    string `json:"episode,omitempty"`
	FullTitle  string `json:"full_title"`
}

const provenanceKey = "import_history"

// MergeProvenance returns a new metadata map with the provenance entry
// appended to the import history. The input map is not modified, so callers
// persist the result with an explicit update instead of relying on in-place
// mutation of a tracked column.
func MergeProvenance(meta JSONMap, entry ProvenanceEntry) JSONMap {
	merged := make(JSONMap, len(meta)+1)
	for k, v := range meta {
		merged[k] = v
	}

	var history []interface{}
	if existing, ok := merged[provenanceKey].([]interface{}); ok {
		history = make([]interface{}, len(existing), len(existing)+1)
		copy(history, existing)
	}
	merged[provenanceKey] = append(history, map[string]interface{}{
		"source":      entry.Source,
		"imported_at": entry.ImportedAt,
		"season":      entry.Season,
		"episode":     entry.Episode,
		"full_title":  entry.FullTitle,
	})
	return merged
}

// MergeEpisodeTotals returns a new metadata map with externally sourced
// season/episode totals filled in. The input map is not modified.
func MergeEpisodeTotals(meta JSONMap, totalSeasons, totalEpisodes, externalID int) JSONMap {
	merged := make(JSONMap, len(meta)+3)
	for k, v := range meta {
		merged[k] = v
	}
	merged["total_seasons"] = totalSeasons
	merged["total_episodes"] = totalEpisodes
	merged["tmdb_id"] = externalID
	return merged
}

// HasEpisodeTotals reports whether enrichment already filled in totals.
func (m *Media) HasEpisodeTotals() bool {
	if m.Metadata == nil {
		return false
	}
	_, ok := m.Metadata["total_episodes"]
	return ok
}
