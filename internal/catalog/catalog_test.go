package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	c, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOpen_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before opening catalog")
	}

	c, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	defer c.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after opening catalog")
	}
}

func TestOpen_RunsMigrations(t *testing.T) {
	c := testCatalog(t)

	tables := []string{"runs", "validations"}
	for _, table := range tables {
		var name string
		err := c.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}
}

func TestRuns_CreateAndGet(t *testing.T) {
	c := testCatalog(t)
	repo := c.Runs()

	run := &Run{
		Kind:     RunKindExtract,
		Input:    "video.avi",
		Output:   "video.hog",
		CellSize: 8,
	}
	if err := repo.Create(run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if run.ID == "" {
		t.Fatal("Create should assign a run ID")
	}

	got, err := repo.GetByID(run.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Kind != RunKindExtract || got.Input != "video.avi" || got.CellSize != 8 {
		t.Errorf("round-tripped run mismatch: %+v", got)
	}
	if !got.FinishedAt.IsZero() {
		t.Error("unfinished run should have zero FinishedAt")
	}
}

func TestRuns_Finish(t *testing.T) {
	c := testCatalog(t)
	repo := c.Runs()

	run := &Run{Kind: RunKindExtract, Input: "frames/", Output: "out.hog", CellSize: 8}
	if err := repo.Create(run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	run.FrameCount = 120
	run.Rows = 12
	run.Cols = 12
	run.Channels = 31
	if err := repo.Finish(run); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	got, err := repo.GetByID(run.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.FrameCount != 120 || got.Rows != 12 || got.Cols != 12 || got.Channels != 31 {
		t.Errorf("finished run mismatch: %+v", got)
	}
	if got.FinishedAt.IsZero() {
		t.Error("finished run should have a completion timestamp")
	}
}

func TestRuns_FinishUnknownRun(t *testing.T) {
	c := testCatalog(t)

	err := c.Runs().Finish(&Run{ID: "no-such-run"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestRuns_GetByIDNotFound(t *testing.T) {
	c := testCatalog(t)

	if _, err := c.Runs().GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestRuns_List(t *testing.T) {
	c := testCatalog(t)
	repo := c.Runs()

	for _, input := range []string{"a.avi", "b.avi"} {
		if err := repo.Create(&Run{Kind: RunKindExtract, Input: input, CellSize: 8}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	runs, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}
}

func TestRuns_RecordValidation(t *testing.T) {
	c := testCatalog(t)
	repo := c.Runs()

	run := &Run{Kind: RunKindValidate, Input: "aligned/", CellSize: 8}
	if err := repo.Create(run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	v := &Validation{
		RunID:           run.ID,
		Reference:       "reference.hog",
		Frames:          8,
		Passed:          8,
		MinCorrelation:  0.9995,
		MeanCorrelation: 0.9999,
		MeanRMSE:        0.0001,
	}
	if err := repo.RecordValidation(v); err != nil {
		t.Fatalf("RecordValidation failed: %v", err)
	}

	got, err := repo.GetValidation(run.ID)
	if err != nil {
		t.Fatalf("GetValidation failed: %v", err)
	}
	if got.Frames != 8 || got.Passed != 8 || got.Reference != "reference.hog" {
		t.Errorf("validation mismatch: %+v", got)
	}
	if got.MinCorrelation != 0.9995 {
		t.Errorf("MinCorrelation = %f, want 0.9995", got.MinCorrelation)
	}
}

func TestRuns_GetValidationNotFound(t *testing.T) {
	c := testCatalog(t)

	if _, err := c.Runs().GetValidation("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestRuns_ValidationCascadesOnDelete(t *testing.T) {
	c := testCatalog(t)
	repo := c.Runs()

	run := &Run{Kind: RunKindValidate, Input: "x", CellSize: 8}
	if err := repo.Create(run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.RecordValidation(&Validation{RunID: run.ID, Reference: "r.hog"}); err != nil {
		t.Fatalf("RecordValidation failed: %v", err)
	}

	if _, err := c.DB().Exec("DELETE FROM runs WHERE id = ?", run.ID); err != nil {
		t.Fatalf("delete run: %v", err)
	}

	if _, err := repo.GetValidation(run.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("validation should cascade on run delete, got %v", err)
	}
}
