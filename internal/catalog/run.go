package catalog

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// RunKind distinguishes extraction runs from validation runs.
type RunKind string

const (
	// RunKindExtract is a feature-extraction run that produced a .hog file.
	RunKindExtract RunKind = "extract"
	// RunKindValidate is a run compared against a reference .hog file.
	RunKindValidate RunKind = "validate"
)

// Run records one tool invocation: its input, parameters, and the shape of
// the descriptors it produced.
type Run struct {
	ID         string
	Kind       RunKind
	Input      string
	Output     string
	CellSize   int
	FrameCount int
	Rows       int
	Cols       int
	Channels   int
	StartedAt  time.Time
	FinishedAt time.Time // zero until Finish is called
}

// Validation records the comparison outcome of a validation run.
type Validation struct {
	RunID           string
	Reference       string
	Frames          int
	Passed          int
	MinCorrelation  float64
	MeanCorrelation float64
	MeanRMSE        float64
}

// RunRepository provides CRUD operations for runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this catalog.
func (c *Catalog) Runs() *RunRepository {
	return &RunRepository{db: c.db}
}

// Create inserts a new run. A missing ID is generated.
func (r *RunRepository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO runs (id, kind, input, output, cell_size, frame_count, rows, cols, channels, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.Input, run.Output, run.CellSize,
		run.FrameCount, run.Rows, run.Cols, run.Channels, run.StartedAt,
	)
	return err
}

// Finish stores the final frame count and descriptor shape of a run and
// stamps its completion time.
func (r *RunRepository) Finish(run *Run) error {
	run.FinishedAt = time.Now()

	res, err := r.db.Exec(
		`UPDATE runs SET frame_count = ?, rows = ?, cols = ?, channels = ?, finished_at = ?
		 WHERE id = ?`,
		run.FrameCount, run.Rows, run.Cols, run.Channels, run.FinishedAt, run.ID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run := &Run{}
	var kind string
	var finishedAt sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, kind, input, output, cell_size, frame_count, rows, cols, channels, started_at, finished_at
		 FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &kind, &run.Input, &run.Output, &run.CellSize,
		&run.FrameCount, &run.Rows, &run.Cols, &run.Channels, &run.StartedAt, &finishedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	run.Kind = RunKind(kind)
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return run, nil
}

// List returns all runs, most recent first.
func (r *RunRepository) List() ([]*Run, error) {
	rows, err := r.db.Query(
		`SELECT id, kind, input, output, cell_size, frame_count, rows, cols, channels, started_at, finished_at
		 FROM runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var kind string
		var finishedAt sql.NullTime

		if err := rows.Scan(&run.ID, &kind, &run.Input, &run.Output, &run.CellSize,
			&run.FrameCount, &run.Rows, &run.Cols, &run.Channels, &run.StartedAt, &finishedAt); err != nil {
			return nil, err
		}

		run.Kind = RunKind(kind)
		if finishedAt.Valid {
			run.FinishedAt = finishedAt.Time
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// RecordValidation stores the comparison outcome for a validation run.
func (r *RunRepository) RecordValidation(v *Validation) error {
	_, err := r.db.Exec(
		`INSERT INTO validations (run_id, reference, frames, passed, min_correlation, mean_correlation, mean_rmse)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.RunID, v.Reference, v.Frames, v.Passed, v.MinCorrelation, v.MeanCorrelation, v.MeanRMSE,
	)
	return err
}

// GetValidation retrieves the validation outcome for a run.
func (r *RunRepository) GetValidation(runID string) (*Validation, error) {
	v := &Validation{}

	err := r.db.QueryRow(
		`SELECT run_id, reference, frames, passed, min_correlation, mean_correlation, mean_rmse
		 FROM validations WHERE run_id = ?`,
		runID,
	).Scan(&v.RunID, &v.Reference, &v.Frames, &v.Passed,
		&v.MinCorrelation, &v.MeanCorrelation, &v.MeanRMSE)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return v, nil
}
