package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gymvault/gymvault/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Init(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.StartRun(ctx, model.FrequencyDaily)
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero run id")
	}

	latest, err := db.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun error: %v", err)
	}
	if latest == nil || latest.ID != id {
		t.Fatalf("unexpected latest run: %#v", latest)
	}
	if latest.Status != model.RunRunning {
		t.Fatalf("expected running status, got %q", latest.Status)
	}
	if latest.CompletedAt != nil {
		t.Fatalf("running run should have nil completedAt")
	}

	rec := model.BackupRecord{Path: "/backups/gym-auto-backup-x.db", SizeBytes: 42, RemoteID: "drive-123"}
	if err := db.CompleteRun(ctx, id, rec); err != nil {
		t.Fatalf("CompleteRun error: %v", err)
	}

	latest, err = db.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun error: %v", err)
	}
	if latest.Status != model.RunSuccess {
		t.Fatalf("expected success status, got %q", latest.Status)
	}
	if latest.CompletedAt == nil {
		t.Fatalf("completed run should have completedAt set")
	}
	if latest.BackupPath != rec.Path || latest.RemoteID != rec.RemoteID {
		t.Fatalf("run does not carry backup details: %#v", latest)
	}
}

func TestFailRun(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.StartRun(ctx, model.FrequencyWeekly)
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	if err := db.FailRun(ctx, id, errors.New("disk full")); err != nil {
		t.Fatalf("FailRun error: %v", err)
	}

	latest, err := db.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun error: %v", err)
	}
	if latest.Status != model.RunFailed {
		t.Fatalf("expected failed status, got %q", latest.Status)
	}
	if latest.Error != "disk full" {
		t.Fatalf("unexpected error text: %q", latest.Error)
	}
}

func TestAbortInterruptedRuns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.StartRun(ctx, model.FrequencyDaily); err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	id2, err := db.StartRun(ctx, model.FrequencyDaily)
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	if err := db.CompleteRun(ctx, id2, model.BackupRecord{Path: "/b.db"}); err != nil {
		t.Fatalf("CompleteRun error: %v", err)
	}

	n, err := db.AbortInterruptedRuns(ctx)
	if err != nil {
		t.Fatalf("AbortInterruptedRuns error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 aborted run, got %d", n)
	}

	runs, err := db.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	// Newest first: runs[0] is the completed one, runs[1] the aborted one.
	if runs[0].Status != model.RunSuccess {
		t.Fatalf("completed run should stay successful, got %q", runs[0].Status)
	}
	if runs[1].Status != model.RunFailed || runs[1].Error != "interrupted by shutdown" {
		t.Fatalf("interrupted run not aborted: %#v", runs[1])
	}
}

func TestLatestRun_Empty(t *testing.T) {
	db := newTestDB(t)

	latest, err := db.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun error: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil run on empty db, got %#v", latest)
	}
}

func TestRecentRuns_EmptyIsNotNil(t *testing.T) {
	db := newTestDB(t)

	runs, err := db.RecentRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentRuns error: %v", err)
	}
	if runs == nil {
		t.Fatalf("expected empty slice, got nil")
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}
}
