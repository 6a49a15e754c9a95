package controllers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"media-tracker-api/config"
	"media-tracker-api/middleware"
	"media-tracker-api/models"
	"media-tracker-api/services"
	"media-tracker-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// The import services are wired once, on first request, so the background
// runs share one resolver and enrichment client. Construction is deferred
// past package init because main loads .env only after all packages are
// initialized; building here would capture the pre-.env environment.
var (
	pipelineOnce sync.Once
	pipelineInst *pipeline
)

func importPipeline() *pipeline {
	pipelineOnce.Do(func() {
		pipelineInst = newImportPipeline()
	})
	return pipelineInst
}

type pipeline struct {
	jobs         *services.ImportJobService
	orchestrator *services.ImportOrchestrator
	manual       *services.RowProcessor
	settings     config.ImportSettings
}

func newImportPipeline() *pipeline {
	settings := config.ImportConfig()
	store := services.NewGormStore(nil)

	var enricher services.EpisodeTotalsProvider
	if c := services.NewTMDBClientFromEnv(); c != nil {
		enricher = c
	}

	resolver := services.NewMediaResolver(store, enricher,
		models.ImportSourceCSVExport, "netflix", settings.EnrichmentTimeout)
	processor := services.NewRowProcessor(resolver, models.ImportSourceCSVExport, "netflix")
	notifier := services.NewEmailNotifier(store)

	manualResolver := services.NewMediaResolver(store, enricher,
		models.ImportSourceManual, "manual", settings.EnrichmentTimeout)
	manual := services.NewRowProcessor(manualResolver, models.ImportSourceManual, "manual")

	return &pipeline{
		jobs:         services.NewImportJobService(store),
		orchestrator: services.NewImportOrchestrator(store, processor, notifier, settings),
		manual:       manual,
		settings:     settings,
	}
}

// UploadCSV accepts a viewing-history export, creates a pending job, and
// processes it in the background. Responds 202 with the job for polling.
func UploadCSV(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A CSV file is required"})
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file type, upload a .csv file"})
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, importPipeline().settings.MaxFileSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}

	if err := utils.ValidateCSVContent(content, importPipeline().settings.MaxFileSize, importPipeline().settings.MaxRows); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := importPipeline().jobs.CreateJob(c.Request.Context(), userID,
		models.ImportSourceCSVExport, utils.CountRows(content), content, header.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create import job"})
		return
	}

	// The run owns its own context: closing the HTTP connection must not
	// abort a job that already started.
	go importPipeline().orchestrator.Run(context.Background(), job.ID, content)

	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

// GetImportStatus returns one of the caller's jobs for progress polling.
func GetImportStatus(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job id"})
		return
	}

	job, err := importPipeline().jobs.GetJob(c.Request.Context(), jobID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Import job not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": job})
}

// GetImportHistory lists the caller's jobs, newest first.
func GetImportHistory(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	jobs, total, err := importPipeline().jobs.History(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load import history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": total,
		"page":  page,
	})
}

// CancelImport cancels a job that has not started yet.
func CancelImport(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job id"})
		return
	}

	cancelled, err := importPipeline().jobs.Cancel(c.Request.Context(), jobID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel import job"})
		return
	}
	if !cancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "Only pending jobs can be cancelled"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Import job cancelled"})
}

type ManualEntryRequest struct {
	Title string `json:"title" binding:"required"`
	Date  string `json:"date"`
}

// CreateManualEntry records a single title through the same pipeline the CSV
// import uses, so decomposition and idempotence rules match exactly.
func CreateManualEntry(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req ManualEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	store := services.NewGormStore(nil)
	row := services.ImportRow{
		Title: utils.SanitizeCell(req.Title),
		Date:  utils.SanitizeCell(req.Date),
		Raw:   map[string]string{"Title": req.Title, "Date": req.Date},
	}

	var outcome services.RowOutcome
	err := store.Transaction(c.Request.Context(), func(tx services.Store) error {
		var perr error
		outcome, perr = importPipeline().manual.Process(c.Request.Context(), tx, userID, row)
		return perr
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if outcome == services.OutcomeSkipped {
		c.JSON(http.StatusOK, gin.H{"message": "Already recorded", "outcome": outcome})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Entry recorded", "outcome": outcome})
}
