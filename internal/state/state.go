package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gymvault/gymvault/internal/model"
)

// DB is gymvault's own state database. It holds structured logs and the
// scheduled-run history, never application data: the guarded gym database
// stays opaque to this package.
type DB struct {
	db *sql.DB
}

func Init(dbPath string) (*DB, error) {
	// Retry logic for handling concurrent initialization
	var db *sql.DB
	var err error
	maxRetries := 5
	baseDelay := 100 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			time.Sleep(delay)
		}

		db, err = sql.Open("sqlite", dbPath)
		if err != nil {
			if attempt == maxRetries-1 {
				return nil, fmt.Errorf("failed to open state database after %d attempts: %w", maxRetries, err)
			}
			continue
		}

		// Set connection pool limits for better concurrency
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Minute * 5)

		// Configure SQLite pragmas for better concurrency and performance
		pragmas := []string{
			"PRAGMA busy_timeout = 10000", // 10 second timeout - set this FIRST
			"PRAGMA journal_mode = WAL",
			"PRAGMA foreign_keys = ON",
			"PRAGMA synchronous = NORMAL", // Faster writes with WAL mode
			"PRAGMA cache_size = -64000",  // 64MB cache
			"PRAGMA temp_store = MEMORY",  // Use memory for temp tables
		}

		pragmaFailed := false
		for _, pragma := range pragmas {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				if attempt == maxRetries-1 {
					return nil, fmt.Errorf("failed to set pragma %q after %d attempts: %w", pragma, maxRetries, err)
				}
				pragmaFailed = true
				break
			}
		}

		if pragmaFailed {
			continue
		}

		if err := createSchema(db); err != nil {
			db.Close()
			if attempt == maxRetries-1 {
				return nil, fmt.Errorf("failed to create schema after %d attempts: %w", maxRetries, err)
			}
			continue
		}

		return &DB{db: db}, nil
	}

	// Ensure any open connection is closed before returning error
	if db != nil {
		db.Close()
	}
	return nil, fmt.Errorf("failed to initialize state database after %d attempts: %w", maxRetries, err)
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS schedule_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		frequency TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP,
		backup_path TEXT NOT NULL DEFAULT '',
		remote_id TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_schedule_runs_status ON schedule_runs(status);
	CREATE INDEX IF NOT EXISTS idx_schedule_runs_started_at ON schedule_runs(started_at);

	CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		operation TEXT,
		run_id INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_logs_level ON logs(level);
	CREATE INDEX IF NOT EXISTS idx_logs_operation ON logs(operation);
	CREATE INDEX IF NOT EXISTS idx_logs_run_id ON logs(run_id);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// GetDB returns the underlying *sql.DB for use by other packages (e.g., logger)
func (d *DB) GetDB() *sql.DB {
	return d.db
}

// StartRun records the beginning of a scheduled backup execution and returns
// the new run's ID.
func (d *DB) StartRun(ctx context.Context, freq model.Frequency) (int64, error) {
	result, err := d.db.ExecContext(ctx,
		`INSERT INTO schedule_runs (frequency, status, started_at) VALUES (?, ?, ?)`,
		freq, model.RunRunning, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert schedule run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

// CompleteRun marks a run successful and stores the produced backup's details.
func (d *DB) CompleteRun(ctx context.Context, id int64, rec model.BackupRecord) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE schedule_runs SET status = ?, completed_at = ?, backup_path = ?, remote_id = ? WHERE id = ?`,
		model.RunSuccess, time.Now(), rec.Path, rec.RemoteID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete schedule run %d: %w", id, err)
	}
	return nil
}

// FailRun marks a run failed with the error text.
func (d *DB) FailRun(ctx context.Context, id int64, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := d.db.ExecContext(ctx,
		`UPDATE schedule_runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		model.RunFailed, time.Now(), msg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to fail schedule run %d: %w", id, err)
	}
	return nil
}

// AbortInterruptedRuns fails any runs still marked running, e.g. after an
// unclean shutdown. Returns the number of runs touched.
func (d *DB) AbortInterruptedRuns(ctx context.Context) (int, error) {
	result, err := d.db.ExecContext(ctx,
		`UPDATE schedule_runs SET status = ?, completed_at = ?, error = ? WHERE status = ?`,
		model.RunFailed, time.Now(), "interrupted by shutdown", model.RunRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to abort interrupted runs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// RecentRuns returns up to limit runs, newest first.
func (d *DB) RecentRuns(ctx context.Context, limit int) ([]*model.ScheduleRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, frequency, status, started_at, completed_at, backup_path, remote_id, error
		FROM schedule_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule runs: %w", err)
	}
	defer rows.Close()

	// Initialize as empty slice so JSON encodes as [] instead of null
	runs := make([]*model.ScheduleRun, 0)
	for rows.Next() {
		run := &model.ScheduleRun{}
		err := rows.Scan(
			&run.ID, &run.Frequency, &run.Status,
			&run.StartedAt, &run.CompletedAt,
			&run.BackupPath, &run.RemoteID, &run.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// LatestRun returns the most recent run, or nil when none exists.
func (d *DB) LatestRun(ctx context.Context) (*model.ScheduleRun, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, frequency, status, started_at, completed_at, backup_path, remote_id, error
		FROM schedule_runs ORDER BY id DESC LIMIT 1`)

	run := &model.ScheduleRun{}
	err := row.Scan(
		&run.ID, &run.Frequency, &run.Status,
		&run.StartedAt, &run.CompletedAt,
		&run.BackupPath, &run.RemoteID, &run.Error,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan schedule run: %w", err)
	}

	return run, nil
}
