package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store owns the live connection to the guarded gym database. The file's
// schema belongs to the gym application and stays opaque here: the store only
// snapshots, replaces and checks it as a whole.
type Store struct {
	path string
	db   *sql.DB
}

// Open connects to the gym database file. The file must already exist; the
// gym application creates it, gymvault only guards it.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database file %s: %w", path, err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, db: db}, nil
}

func openDB(path string) (*sql.DB, error) {
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

		db, err = sql.Open("sqlite", path)
		if err != nil {
			if attempt == maxRetries-1 {
				return nil, fmt.Errorf("failed to open database after %d attempts: %w", maxRetries, err)
			}
			continue
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Minute * 5)

		// Configure SQLite pragmas for better concurrency and performance
		pragmas := []string{
			"PRAGMA busy_timeout = 10000", // 10 second timeout - set this FIRST
			"PRAGMA journal_mode = WAL",
			"PRAGMA foreign_keys = ON",
			"PRAGMA synchronous = NORMAL",
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

		return db, nil
	}

	if db != nil {
		db.Close()
	}
	return nil, fmt.Errorf("failed to open database after %d attempts: %w", maxRetries, err)
}

// Path returns the live database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the live connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the live database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Backup writes a consistent snapshot of the live database to destPath.
// VACUUM INTO produces a compact single-file copy that includes everything
// committed at snapshot time, WAL included.
func (s *Store) Backup(ctx context.Context, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	// VACUUM INTO refuses to overwrite; a stale file at the destination is
	// replaced to keep copy-to-same-path semantics.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("replace existing backup file: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("snapshot database: %w", err)
	}
	return nil
}

// Restore replaces the live database file with the backup at sourcePath.
// The source is validated before the live file is touched; a failed
// validation leaves the live database untouched and open.
func (s *Store) Restore(ctx context.Context, sourcePath string) error {
	if _, err := os.Stat(sourcePath); err != nil {
		return fmt.Errorf("backup file %s: %w", sourcePath, err)
	}
	if err := ValidateBackupFile(ctx, sourcePath); err != nil {
		return err
	}

	// The live handle must be closed before the file swap; SQLite keeps the
	// old inode alive otherwise and the WAL would reference the wrong data.
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close live database: %w", err)
	}

	if err := copyFile(sourcePath, s.path); err != nil {
		// Swap failed before rename, the old file is still in place.
		reopenErr := s.reopen()
		if reopenErr != nil {
			return fmt.Errorf("restore copy failed (%v) and reopen failed: %w", err, reopenErr)
		}
		return fmt.Errorf("copy backup over live database: %w", err)
	}

	// Stale journal files belong to the replaced database.
	_ = os.Remove(s.path + "-wal")
	_ = os.Remove(s.path + "-shm")

	return s.reopen()
}

func (s *Store) reopen() error {
	db, err := openDB(s.path)
	if err != nil {
		return fmt.Errorf("reopen database: %w", err)
	}
	s.db = db
	return nil
}

// Repair attempts to fix index and layout corruption in place: rebuild all
// indexes, compact, then verify. One attempt, no retries.
func (s *Store) Repair(ctx context.Context) error {
	var before string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&before); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "REINDEX"); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}

	var after string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&after); err != nil {
		return fmt.Errorf("integrity re-check: %w", err)
	}
	if after != "ok" {
		return fmt.Errorf("database still corrupt after repair: %s", after)
	}
	return nil
}

// ValidateBackupFile opens a candidate backup read-only and runs an integrity
// check, rejecting files that are not intact SQLite databases.
func ValidateBackupFile(ctx context.Context, path string) error {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("backup file is not a valid database: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("backup file failed integrity check: %s", result)
	}
	return nil
}

func copyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp := dstPath + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dstPath)
}
