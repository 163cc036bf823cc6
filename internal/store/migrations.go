package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Runs table - one row per analysed stream
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			exercise TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL CHECK(status IN ('running', 'finished', 'failed', 'cancelled')),
			rep_count INTEGER NOT NULL DEFAULT 0,
			frames INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		)`,

		// Reps table - completed repetitions in rep order
		`CREATE TABLE IF NOT EXISTS reps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			timestamp DATETIME NOT NULL,
			exercise TEXT NOT NULL,
			rep_count INTEGER NOT NULL,
			primary_metric REAL NOT NULL,
			secondary_metric REAL NOT NULL,
			error_tag TEXT NOT NULL,
			feedback TEXT NOT NULL,
			side TEXT NOT NULL DEFAULT '',
			frame INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reps_run_id ON reps(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
