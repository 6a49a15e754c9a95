// Command csv-import runs a viewing-history CSV through the import pipeline
// from the command line, synchronously, for a single user.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"media-tracker-api/config"
	"media-tracker-api/models"
	"media-tracker-api/services"
	"media-tracker-api/utils"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config.InitDB()

	var (
		userIDRaw string
		filePath  string
		platform  string
	)

	flag.StringVar(&userIDRaw, "user-id", "", "ID of the user to import for (required)")
	flag.StringVar(&filePath, "file", "", "path to the viewing-history CSV (required)")
	flag.StringVar(&platform, "platform", "netflix", "platform label stored on imported records")
	flag.Parse()

	userID, err := uuid.Parse(userIDRaw)
	if err != nil {
		log.Fatalf("invalid user id '%s'", userIDRaw)
	}
	if filePath == "" {
		log.Fatal("a CSV file path is required")
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatalf("failed to read %s: %v", filePath, err)
	}

	settings := config.ImportConfig()
	if err := utils.ValidateCSVContent(content, settings.MaxFileSize, settings.MaxRows); err != nil {
		log.Fatalf("file rejected: %v", err)
	}

	store := services.NewGormStore(nil)
	if _, err := store.UserByID(context.Background(), userID); err != nil {
		log.Fatalf("user lookup failed: %v", err)
	}

	var enricher services.EpisodeTotalsProvider
	if c := services.NewTMDBClientFromEnv(); c != nil {
		enricher = c
	}

	resolver := services.NewMediaResolver(store, enricher,
		models.ImportSourceCSVExport, platform, settings.EnrichmentTimeout)
	processor := services.NewRowProcessor(resolver, models.ImportSourceCSVExport, platform)
	orchestrator := services.NewImportOrchestrator(store, processor, nil, settings)

	jobs := services.NewImportJobService(store)
	job, err := jobs.CreateJob(context.Background(), userID,
		models.ImportSourceCSVExport, utils.CountRows(content), content, filepath.Base(filePath))
	if err != nil {
		log.Fatalf("failed to create import job: %v", err)
	}

	// Ctrl-C stops between rows; the job still reaches a terminal state.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("import job %s started (%d rows)", job.ID, job.TotalRows)
	if err := orchestrator.Run(ctx, job.ID, content); err != nil {
		log.Fatalf("import run failed: %v", err)
	}

	final, err := store.ImportJobByID(context.Background(), job.ID)
	if err != nil {
		log.Fatalf("failed to load final job state: %v", err)
	}

	fmt.Printf("status:     %s\n", final.Status)
	fmt.Printf("processed:  %d of %d\n", final.ProcessedRows, final.TotalRows)
	fmt.Printf("imported:   %d\n", final.SuccessfulRows)
	fmt.Printf("skipped:    %d\n", final.SkippedRows)
	fmt.Printf("failed:     %d\n", final.FailedRows)
	for _, e := range final.ErrorLog {
		fmt.Printf("  row %d: %s\n", e.Row, e.Error)
	}
}
