// Log query tool for gymvault's state database.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gymvault/gymvault/internal/config"
	"github.com/gymvault/gymvault/internal/helpers"
	"github.com/gymvault/gymvault/internal/logging"
	"github.com/gymvault/gymvault/internal/state"
)

func main() {
	dbPath := flag.String("db", "", "Path to the gymvault state database (default: <data dir>/gymvault.db)")
	operation := flag.String("operation", "", "Filter by operation (backup, restore, repair, schedule)")
	runID := flag.Int64("run", 0, "Filter by scheduled run ID")
	level := flag.String("level", "", "Filter by log level (debug, info, warn, error)")
	since := flag.String("since", "", "Filter logs since time (RFC3339 format)")
	until := flag.String("until", "", "Filter logs until time (RFC3339 format)")
	limit := flag.Int("limit", 100, "Maximum number of logs to return")
	prune := flag.String("prune", "", "Prune logs older than duration (e.g., '720h' for 30 days)")

	flag.Parse()

	path := *dbPath
	if path == "" {
		dataDir, err := config.DefaultDataDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving data dir: %v\n", err)
			os.Exit(1)
		}
		path = filepath.Join(dataDir, "gymvault.db")
	}

	db, err := state.Init(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	logger, err := logging.New(db.GetDB(), os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	// Handle pruning if requested
	if *prune != "" {
		duration, err := time.ParseDuration(*prune)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid duration format: %v\n", err)
			os.Exit(1)
		}
		deleted, err := logger.PruneOldLogs(duration)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error pruning logs: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Pruned %d log entries older than %v\n", deleted, duration)
		return
	}

	// Build query options
	opts := logging.QueryOptions{
		Operation: *operation,
		RunID:     *runID,
		Limit:     *limit,
	}

	if *level != "" {
		opts.Level = logging.ParseLevel(strings.ToLower(*level))
	}

	if *since != "" {
		t, err := time.Parse(time.RFC3339, *since)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid since time format: %v\n", err)
			os.Exit(1)
		}
		opts.Since = t
	}

	if *until != "" {
		t, err := time.Parse(time.RFC3339, *until)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid until time format: %v\n", err)
			os.Exit(1)
		}
		opts.Until = t
	}

	// Query logs
	entries, err := logger.Query(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying logs: %v\n", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Println("No logs found matching criteria")
		return
	}

	// Print results in a table
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tLEVEL\tOPERATION\tRUN\tMESSAGE")
	fmt.Fprintln(w, "─────────\t─────\t─────────\t───\t───────")

	for _, entry := range entries {
		ts := entry.Timestamp.Format("2006-01-02 15:04:05")
		op := entry.Operation
		if op == "" {
			op = "-"
		}
		run := "-"
		if entry.RunID != 0 {
			run = fmt.Sprintf("%d", entry.RunID)
		}
		msg := helpers.TruncateString(entry.Message, 80)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ts, entry.Level, op, run, msg)
	}

	w.Flush()
	fmt.Printf("\nShowing %d results\n", len(entries))
}
