package logging

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
	_ "modernc.org/sqlite"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

var levelRank = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel maps a config string onto a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides structured logging with both console and database output
type Logger struct {
	db       *sql.DB
	console  io.Writer
	minLevel LogLevel
	mu       sync.Mutex
}

// LogEntry represents a single log entry
type LogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Operation string    `json:"operation"` // lifecycle operation ("backup", "restore", "repair", "schedule", "upload")
	RunID     int64     `json:"runId"`     // schedule_runs.id when emitted by a scheduled execution
}

// New creates a new Logger using an existing database connection.
// The caller is responsible for closing the database connection.
func New(db *sql.DB, console io.Writer) (*Logger, error) {
	if console == nil {
		console = os.Stdout
	}

	l := &Logger{
		db:       db,
		console:  console,
		minLevel: LevelDebug,
	}

	return l, nil
}

// SetLevel sets the minimum level written to either sink.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// NewRotatingWriter returns a size-rotated log file writer. Combine it with
// os.Stdout via io.MultiWriter to keep console output.
func NewRotatingWriter(path string, maxSizeMB int) io.Writer {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
}

// Log writes a log entry to both console and database
func (l *Logger) Log(level LogLevel, operation string, runID int64, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	message := fmt.Sprintf(format, args...)
	timestamp := time.Now()

	// Write to console with timestamp
	prefix := timestamp.Format("2006-01-02 15:04:05")
	if operation != "" {
		prefix += fmt.Sprintf(" [%s", operation)
		if runID != 0 {
			prefix += fmt.Sprintf("/run-%d", runID)
		}
		prefix += "]"
	}
	fmt.Fprintf(l.console, "%s %s: %s\n", prefix, level, message)

	// Write to database
	_, err := l.db.Exec(
		"INSERT INTO logs (timestamp, level, message, operation, run_id) VALUES (?, ?, ?, ?, ?)",
		timestamp, string(level), message, nullString(operation), nullInt64(runID),
	)
	if err != nil {
		// If DB write fails, at least we have console output
		fmt.Fprintf(l.console, "ERROR: failed to write to log database: %v\n", err)
	}
}

// Info logs an info-level message
func (l *Logger) Info(format string, args ...any) {
	l.Log(LevelInfo, "", 0, format, args...)
}

// Warn logs a warning-level message
func (l *Logger) Warn(format string, args ...any) {
	l.Log(LevelWarn, "", 0, format, args...)
}

// Error logs an error-level message
func (l *Logger) Error(format string, args ...any) {
	l.Log(LevelError, "", 0, format, args...)
}

// Debug logs a debug-level message
func (l *Logger) Debug(format string, args ...any) {
	l.Log(LevelDebug, "", 0, format, args...)
}

// QueryOptions defines filters for querying logs
type QueryOptions struct {
	Operation string
	RunID     int64
	Level     LogLevel
	Since     time.Time
	Until     time.Time
	Limit     int
}

// Query retrieves log entries based on filters
func (l *Logger) Query(opts QueryOptions) ([]LogEntry, error) {
	query := "SELECT id, timestamp, level, message, COALESCE(operation, ''), COALESCE(run_id, 0) FROM logs WHERE 1=1"
	args := []any{}

	if opts.Operation != "" {
		query += " AND operation = ?"
		args = append(args, opts.Operation)
	}
	if opts.RunID != 0 {
		query += " AND run_id = ?"
		args = append(args, opts.RunID)
	}
	if opts.Level != "" {
		query += " AND level = ?"
		args = append(args, string(opts.Level))
	}
	if !opts.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since)
	}
	if !opts.Until.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, opts.Until)
	}

	query += " ORDER BY timestamp DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	// Initialize as empty slice so JSON encodes as [] instead of null
	entries := make([]LogEntry, 0)
	for rows.Next() {
		var e LogEntry
		var levelStr string
		if err := rows.Scan(&e.ID, &e.Timestamp, &levelStr, &e.Message, &e.Operation, &e.RunID); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Level = LogLevel(levelStr)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// QueryByRunID retrieves log entries for a specific scheduled run
func (l *Logger) QueryByRunID(runID int64, limit int) ([]LogEntry, error) {
	query := "SELECT id, timestamp, level, message, COALESCE(operation, ''), COALESCE(run_id, 0) FROM logs WHERE run_id = ? ORDER BY timestamp ASC"
	args := []any{runID}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs by run ID: %w", err)
	}
	defer rows.Close()

	// Initialize as empty slice so JSON encodes as [] instead of null
	entries := make([]LogEntry, 0)
	for rows.Next() {
		var e LogEntry
		var levelStr string
		if err := rows.Scan(&e.ID, &e.Timestamp, &levelStr, &e.Message, &e.Operation, &e.RunID); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Level = LogLevel(levelStr)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// PruneOldLogs removes log entries older than the specified duration
func (l *Logger) PruneOldLogs(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := l.db.Exec("DELETE FROM logs WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune logs: %w", err)
	}
	return result.RowsAffected()
}

// nullString returns a sql.NullString for use with nullable columns
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullInt64 returns a sql.NullInt64 for use with nullable columns
func nullInt64(i int64) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: i, Valid: true}
}

// OpLogger wraps a Logger with operation and optional run context
type OpLogger struct {
	logger    *Logger
	operation string
	runID     int64
}

// NewOpLogger creates an OpLogger scoped to a lifecycle operation.
func (l *Logger) NewOpLogger(operation string) *OpLogger {
	return &OpLogger{
		logger:    l,
		operation: operation,
	}
}

// WithRun creates a new OpLogger with scheduled-run context added
func (ol *OpLogger) WithRun(runID int64) *OpLogger {
	return &OpLogger{
		logger:    ol.logger,
		operation: ol.operation,
		runID:     runID,
	}
}

// Info logs an info-level message with operation context
func (ol *OpLogger) Info(format string, args ...any) {
	ol.logger.Log(LevelInfo, ol.operation, ol.runID, format, args...)
}

// Warn logs a warning-level message with operation context
func (ol *OpLogger) Warn(format string, args ...any) {
	ol.logger.Log(LevelWarn, ol.operation, ol.runID, format, args...)
}

// Error logs an error-level message with operation context
func (ol *OpLogger) Error(format string, args ...any) {
	ol.logger.Log(LevelError, ol.operation, ol.runID, format, args...)
}

// Debug logs a debug-level message with operation context
func (ol *OpLogger) Debug(format string, args ...any) {
	ol.logger.Log(LevelDebug, ol.operation, ol.runID, format, args...)
}
