package catalog

// runMigrations executes all database migrations.
func (c *Catalog) runMigrations() error {
	migrations := []string{
		// Runs table - one row per extraction or validation invocation
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL CHECK(kind IN ('extract', 'validate')),
			input TEXT NOT NULL,
			output TEXT NOT NULL DEFAULT '',
			cell_size INTEGER NOT NULL,
			frame_count INTEGER NOT NULL DEFAULT 0,
			rows INTEGER NOT NULL DEFAULT 0,
			cols INTEGER NOT NULL DEFAULT 0,
			channels INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		)`,

		// Validations table - comparison outcome against a reference file
		`CREATE TABLE IF NOT EXISTS validations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			reference TEXT NOT NULL,
			frames INTEGER NOT NULL,
			passed INTEGER NOT NULL,
			min_correlation REAL NOT NULL,
			mean_correlation REAL NOT NULL,
			mean_rmse REAL NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Index for per-run validation lookup
		`CREATE INDEX IF NOT EXISTS idx_validations_run_id ON validations(run_id)`,
	}

	for _, migration := range migrations {
		if _, err := c.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
