package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"media-tracker-api/config"
	"media-tracker-api/models"

	"github.com/google/uuid"
)

func testSettings() config.ImportSettings {
	return config.ImportSettings{ErrorLogCap: 100, ProgressInterval: 10}
}

func newTestOrchestrator(store Store, settings config.ImportSettings) *ImportOrchestrator {
	resolver := newTestResolver(store, nil)
	processor := NewRowProcessor(resolver, models.ImportSourceCSVExport, "netflix")
	return NewImportOrchestrator(store, processor, nil, settings)
}

func seedJob(t *testing.T, store *memoryStore, totalRows int) (*models.ImportJob, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	job := &models.ImportJob{
		ID:        uuid.New(),
		UserID:    userID,
		Source:    models.ImportSourceCSVExport,
		Status:    models.ImportStatusPending,
		TotalRows: totalRows,
	}
	if err := store.CreateImportJob(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job, userID
}

func csvContent(rows ...string) []byte {
	return []byte("Title,Date\n" + strings.Join(rows, "\n") + "\n")
}

func TestRunAllRowsSucceed(t *testing.T) {
	store := newMemoryStore()
	orch := newTestOrchestrator(store, testSettings())
	job, _ := seedJob(t, store, 3)

	content := csvContent(
		`"Breaking Bad: Season 5: Live Free or Die","6/26/25"`,
		`"Breaking Bad: Season 5: Madrigal","6/27/25"`,
		`"Inception","6/28/25"`,
	)

	if err := orch.Run(context.Background(), job.ID, content); err != nil {
		t.Fatalf("Run: %v", err)
	}

	final, _ := store.ImportJobByID(context.Background(), job.ID)
	if final.Status != models.ImportStatusCompleted {
		t.Errorf("Status = %q, want completed", final.Status)
	}
	if final.ProcessedRows != 3 || final.SuccessfulRows != 3 || final.FailedRows != 0 {
		t.Errorf("counters = %d/%d/%d, want 3/3/0",
			final.ProcessedRows, final.SuccessfulRows, final.FailedRows)
	}
	if final.StartedAt == nil || final.CompletedAt == nil {
		t.Error("timestamps not set")
	}
	if len(store.media) != 2 {
		t.Errorf("catalog has %d entries, want 2", len(store.media))
	}
}

// One bad row must not take down its neighbours: K failures out of N rows
// still processes all N and lands on partial.
func TestRunPartialFailure(t *testing.T) {
	store := newMemoryStore()
	orch := newTestOrchestrator(store, testSettings())
	job, _ := seedJob(t, store, 3)

	content := csvContent(
		`"Dark: Season 1: Secrets","1/5/25"`,
		`"Inception","not a date"`,
		`"Arcane: Season 1: Episode 1","1/7/25"`,
	)

	if err := orch.Run(context.Background(), job.ID, content); err != nil {
		t.Fatalf("Run: %v", err)
	}

	final, _ := store.ImportJobByID(context.Background(), job.ID)
	if final.Status != models.ImportStatusPartial {
		t.Errorf("Status = %q, want partial", final.Status)
	}
	if final.ProcessedRows != 3 {
		t.Errorf("ProcessedRows = %d, want 3", final.ProcessedRows)
	}
	if final.SuccessfulRows != 2 || final.FailedRows != 1 {
		t.Errorf("success/failed = %d/%d, want 2/1", final.SuccessfulRows, final.FailedRows)
	}
	if len(final.ErrorLog) != 1 {
		t.Fatalf("ErrorLog has %d entries, want 1", len(final.ErrorLog))
	}
	if final.ErrorLog[0].Row != 2 {
		t.Errorf("error row = %d, want 2", final.ErrorLog[0].Row)
	}
}

func TestRunAllRowsFail(t *testing.T) {
	store := newMemoryStore()
	orch := newTestOrchestrator(store, testSettings())
	job, _ := seedJob(t, store, 2)

	content := csvContent(
		`"Inception","garbage"`,
		`"","1/5/25"`,
	)

	if err := orch.Run(context.Background(), job.ID, content); err != nil {
		t.Fatalf("Run: %v", err)
	}

	final, _ := store.ImportJobByID(context.Background(), job.ID)
	if final.Status != models.ImportStatusFailed {
		t.Errorf("Status = %q, want failed", final.Status)
	}
	if final.SuccessfulRows != 0 || final.FailedRows != 2 {
		t.Errorf("success/failed = %d/%d, want 0/2", final.SuccessfulRows, final.FailedRows)
	}
}

// Duplicate rows inside one file are skips: they count toward neither side
// and an all-skip tail still completes cleanly.
func TestRunDuplicateRowsSkipped(t *testing.T) {
	store := newMemoryStore()
	orch := newTestOrchestrator(store, testSettings())
	job, _ := seedJob(t, store, 3)

	content := csvContent(
		`"Dark: Season 1: Secrets","1/5/25"`,
		`"Dark: Season 1: Secrets","1/5/25"`,
		`"Dark: Season 1: Secrets","2/9/25"`,
	)

	if err := orch.Run(context.Background(), job.ID, content); err != nil {
		t.Fatalf("Run: %v", err)
	}

	final, _ := store.ImportJobByID(context.Background(), job.ID)
	if final.Status != models.ImportStatusCompleted {
		t.Errorf("Status = %q, want completed", final.Status)
	}
	if final.SuccessfulRows != 1 || final.SkippedRows != 2 || final.FailedRows != 0 {
		t.Errorf("success/skipped/failed = %d/%d/%d, want 1/2/0",
			final.SuccessfulRows, final.SkippedRows, final.FailedRows)
	}
	if len(store.userMedia) != 1 {
		t.Errorf("user has %d records, want 1", len(store.userMedia))
	}
}

// Re-running a file converges: everything already imported is skipped and
// nothing is duplicated.
func TestRunRerunConverges(t *testing.T) {
	store := newMemoryStore()
	orch := newTestOrchestrator(store, testSettings())

	content := csvContent(
		`"Arcane: Season 1: Episode 1","1/1/25"`,
		`"Arcane: Season 1: Episode 2","1/2/25"`,
	)

	first, _ := seedJob(t, store, 2)
	userID := first.UserID
	if err := orch.Run(context.Background(), first.ID, content); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := &models.ImportJob{
		ID:     uuid.New(),
		UserID: userID,
		Source: models.ImportSourceCSVExport,
		Status: models.ImportStatusPending,
	}
	if err := store.CreateImportJob(context.Background(), second); err != nil {
		t.Fatalf("seed second job: %v", err)
	}
	if err := orch.Run(context.Background(), second.ID, content); err != nil {
		t.Fatalf("second run: %v", err)
	}

	final, _ := store.ImportJobByID(context.Background(), second.ID)
	if final.Status != models.ImportStatusCompleted {
		t.Errorf("Status = %q, want completed", final.Status)
	}
	if final.SkippedRows != 2 || final.SuccessfulRows != 0 {
		t.Errorf("skipped/success = %d/%d, want 2/0", final.SkippedRows, final.SuccessfulRows)
	}
	if len(store.userMedia) != 2 || len(store.media) != 1 {
		t.Errorf("records/media = %d/%d, want 2/1", len(store.userMedia), len(store.media))
	}
}

func TestRunUnparseableContentFailsJob(t *testing.T) {
	store := newMemoryStore()
	orch := newTestOrchestrator(store, testSettings())
	job, _ := seedJob(t, store, 0)

	if err := orch.Run(context.Background(), job.ID, []byte("Name,When\nfoo,bar\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}

	final, _ := store.ImportJobByID(context.Background(), job.ID)
	if final.Status != models.ImportStatusFailed {
		t.Errorf("Status = %q, want failed", final.Status)
	}
	if len(final.ErrorLog) != 1 {
		t.Errorf("ErrorLog has %d entries, want 1", len(final.ErrorLog))
	}
	if final.CompletedAt == nil {
		t.Error("CompletedAt not set on parse failure")
	}
}

func TestRunTerminalJobIsNoOp(t *testing.T) {
	store := newMemoryStore()
	orch := newTestOrchestrator(store, testSettings())
	job, _ := seedJob(t, store, 1)

	content := csvContent(`"Inception","1/1/25"`)
	if err := orch.Run(context.Background(), job.ID, content); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := orch.Run(context.Background(), job.ID, content); err != nil {
		t.Fatalf("rerun: %v", err)
	}

	final, _ := store.ImportJobByID(context.Background(), job.ID)
	if final.ProcessedRows != 1 {
		t.Errorf("rerun modified counters: ProcessedRows = %d", final.ProcessedRows)
	}
	if len(store.userMedia) != 1 {
		t.Errorf("rerun created records: %d", len(store.userMedia))
	}
}

func TestRunErrorLogCap(t *testing.T) {
	settings := testSettings()
	settings.ErrorLogCap = 2

	store := newMemoryStore()
	orch := newTestOrchestrator(store, settings)
	job, _ := seedJob(t, store, 4)

	content := csvContent(
		`"A","bad"`,
		`"B","bad"`,
		`"C","bad"`,
		`"D","bad"`,
	)

	if err := orch.Run(context.Background(), job.ID, content); err != nil {
		t.Fatalf("Run: %v", err)
	}

	final, _ := store.ImportJobByID(context.Background(), job.ID)
	if final.FailedRows != 4 {
		t.Errorf("FailedRows = %d, want 4 (rows beyond the cap still count)", final.FailedRows)
	}
	if len(final.ErrorLog) != 2 {
		t.Errorf("ErrorLog has %d entries, want capped 2", len(final.ErrorLog))
	}
}

func TestRunCancelledBetweenRows(t *testing.T) {
	store := newMemoryStore()
	orch := newTestOrchestrator(store, testSettings())
	job, _ := seedJob(t, store, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	content := csvContent(
		`"Inception","1/1/25"`,
		`"Dark: Season 1: Secrets","1/2/25"`,
		`"Arcane: Season 1: Episode 1","1/3/25"`,
	)

	if err := orch.Run(ctx, job.ID, content); err != nil {
		t.Fatalf("Run: %v", err)
	}

	final, _ := store.ImportJobByID(context.Background(), job.ID)
	if !final.IsTerminal() {
		t.Fatalf("cancelled job left non-terminal status %q", final.Status)
	}
	if final.Status != models.ImportStatusFailed {
		t.Errorf("Status = %q, want failed (nothing imported)", final.Status)
	}
	if final.ProcessedRows != 0 {
		t.Errorf("ProcessedRows = %d, want 0", final.ProcessedRows)
	}
}

// panicStore blows up on the first insert, standing in for a driver-level
// fault the per-row error handling cannot catch.
type panicStore struct {
	*memoryStore
}

func (s *panicStore) Transaction(_ context.Context, fn func(tx Store) error) error {
	return fn(s)
}

func (s *panicStore) CreateUserMedia(_ context.Context, _ *models.UserMedia) error {
	panic("connection state corrupted")
}

// A panic mid-run must never leave the job stuck in processing: it lands in
// failed with a closed completed_at and an error entry.
func TestRunPanicMarksJobFailed(t *testing.T) {
	mem := newMemoryStore()
	store := &panicStore{memoryStore: mem}
	resolver := newTestResolver(store, nil)
	processor := NewRowProcessor(resolver, models.ImportSourceCSVExport, "netflix")
	orch := NewImportOrchestrator(store, processor, nil, testSettings())

	job, _ := seedJob(t, mem, 1)

	if err := orch.Run(context.Background(), job.ID, csvContent(`"Inception","1/1/25"`)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	final, _ := mem.ImportJobByID(context.Background(), job.ID)
	if final.Status != models.ImportStatusFailed {
		t.Errorf("Status = %q, want failed", final.Status)
	}
	if final.CompletedAt == nil {
		t.Error("CompletedAt not set after panic")
	}
	if len(final.ErrorLog) != 1 || !strings.Contains(final.ErrorLog[0].Error, "internal error") {
		t.Errorf("ErrorLog = %v, want single internal-error entry", final.ErrorLog)
	}
}

// snapshotStore records every persisted processed_rows value so the test can
// check intermediate progress, not just the final state.
type snapshotStore struct {
	*memoryStore
	mu        sync.Mutex
	processed []int
}

func (s *snapshotStore) UpdateImportJob(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if v, ok := updates["processed_rows"].(int); ok {
		s.mu.Lock()
		s.processed = append(s.processed, v)
		s.mu.Unlock()
	}
	return s.memoryStore.UpdateImportJob(ctx, id, updates)
}

func TestRunProgressSnapshots(t *testing.T) {
	settings := testSettings()
	settings.ProgressInterval = 2

	mem := newMemoryStore()
	store := &snapshotStore{memoryStore: mem}
	resolver := newTestResolver(store, nil)
	processor := NewRowProcessor(resolver, models.ImportSourceCSVExport, "netflix")
	orch := NewImportOrchestrator(store, processor, nil, settings)

	job, _ := seedJob(t, mem, 5)

	content := csvContent(
		`"A","1/1/25"`,
		`"B","1/1/25"`,
		`"C","1/1/25"`,
		`"D","1/1/25"`,
		`"E","1/1/25"`,
	)

	if err := orch.Run(context.Background(), job.ID, content); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Snapshots after rows 2 and 4, then the terminal write at 5.
	want := []int{2, 4, 5}
	if len(store.processed) != len(want) {
		t.Fatalf("persisted processed_rows %v, want %v", store.processed, want)
	}
	for i, v := range want {
		if store.processed[i] != v {
			t.Fatalf("persisted processed_rows %v, want %v", store.processed, want)
		}
	}
	for i := 1; i < len(store.processed); i++ {
		if store.processed[i] < store.processed[i-1] {
			t.Errorf("progress regressed: %v", store.processed)
		}
	}
}
