package config

import (
	"os"
	"strconv"
	"time"
)

// ImportSettings holds the tunables for the CSV import pipeline.
type ImportSettings struct {
	// ErrorLogCap bounds the number of individually logged row errors per job.
	// Rows beyond the cap still count toward failed_rows.
	ErrorLogCap int
	// ProgressInterval is the number of processed rows between persisted
	// progress snapshots.
	ProgressInterval int
	// EnrichmentTimeout bounds a single external episode-totals lookup.
	EnrichmentTimeout time.Duration
	// MaxFileSize is the upload size limit in bytes.
	MaxFileSize int64
	// MaxRows is the maximum number of data rows accepted per upload.
	MaxRows int
}

// ImportConfig reads pipeline settings from the environment, falling back to
// the defaults used by the original deployment.
func ImportConfig() ImportSettings {
	return ImportSettings{
		ErrorLogCap:       envInt("IMPORT_ERROR_LOG_CAP", 100),
		ProgressInterval:  envInt("IMPORT_PROGRESS_INTERVAL", 10),
		EnrichmentTimeout: time.Duration(envInt("ENRICHMENT_TIMEOUT_SECONDS", 10)) * time.Second,
		MaxFileSize:       int64(envInt("IMPORT_MAX_FILE_SIZE_MB", 10)) * 1024 * 1024,
		MaxRows:           envInt("IMPORT_MAX_CSV_ROWS", 10000),
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
