package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gymvault/gymvault/internal/drive"
	"github.com/gymvault/gymvault/internal/logging"
	"github.com/gymvault/gymvault/internal/metrics"
	"github.com/gymvault/gymvault/internal/model"
	"github.com/gymvault/gymvault/internal/schedule"
	"github.com/gymvault/gymvault/internal/state"
)

// Backend is the slice of the guarded database the manager drives. Implemented
// by store.Store; tests substitute fakes.
type Backend interface {
	Backup(ctx context.Context, destPath string) error
	Restore(ctx context.Context, sourcePath string) error
	Repair(ctx context.Context) error
	Path() string
	Close() error
}

// Uploader ships a finished backup file to remote storage and returns the
// remote file ID.
type Uploader interface {
	Upload(ctx context.Context, localPath, remoteName string) (string, error)
}

// UploaderFactory turns a credential bundle into a ready Uploader.
type UploaderFactory func(ctx context.Context, creds model.DriveCredentials) (Uploader, error)

func driveUploader(ctx context.Context, creds model.DriveCredentials) (Uploader, error) {
	return drive.Authenticate(ctx, creds)
}

// Manager owns the backup lifecycle of a single guarded database: manual and
// scheduled backups, restore, integrity repair, and the optional Drive upload
// step. Backend work is serialized on one mutex; uploads run outside it so a
// slow network never blocks local operations.
type Manager struct {
	backend  Backend
	resolver *Resolver
	trigger  schedule.Trigger
	runs     *state.DB
	log      *logging.Logger

	authenticate  UploaderFactory
	uploadTimeout time.Duration

	mu sync.Mutex // serializes backup, restore and repair on the backend

	schedMu  sync.Mutex
	schedule model.ScheduleConfig
}

type Option func(*Manager)

// WithUploaderFactory replaces the Drive authentication step, mainly for tests.
func WithUploaderFactory(f UploaderFactory) Option {
	return func(m *Manager) { m.authenticate = f }
}

// WithUploadTimeout bounds the whole remote upload step, authentication
// included. Values <= 0 keep the default of 30 seconds.
func WithUploadTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.uploadTimeout = d
		}
	}
}

func New(backend Backend, resolver *Resolver, trigger schedule.Trigger, runs *state.DB, log *logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		backend:       backend,
		resolver:      resolver,
		trigger:       trigger,
		runs:          runs,
		log:           log,
		authenticate:  driveUploader,
		uploadTimeout: 30 * time.Second,
		schedule:      model.ScheduleConfig{Frequency: model.FrequencyManual},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnhancedOptions controls CreateBackupEnhanced.
type EnhancedOptions struct {
	CustomPath    string // empty falls back to the default backup directory
	UploadToDrive bool
	Credentials   *model.DriveCredentials
}

// CreateBackup writes a consistent snapshot of the live database to destPath.
// An empty destPath falls back to a timestamped file in the backup directory.
func (m *Manager) CreateBackup(ctx context.Context, destPath string) (model.BackupRecord, error) {
	return m.createBackup(ctx, EnhancedOptions{CustomPath: destPath}, m.log.NewOpLogger("backup"))
}

// CreateBackupEnhanced writes a snapshot and optionally uploads it to Drive.
// The local backup is the operation: an upload failure is logged, leaves
// RemoteID empty and does not fail the call.
func (m *Manager) CreateBackupEnhanced(ctx context.Context, opts EnhancedOptions) (model.BackupRecord, error) {
	return m.createBackup(ctx, opts, m.log.NewOpLogger("backup"))
}

func (m *Manager) createBackup(ctx context.Context, opts EnhancedOptions, log *logging.OpLogger) (model.BackupRecord, error) {
	destPath := opts.CustomPath
	if destPath == "" {
		if err := m.resolver.Ensure(); err != nil {
			return model.BackupRecord{}, &StorageError{Op: "create backup directory", Err: err}
		}
		destPath = m.resolver.ManualPath(time.Now())
	}

	rec, err := m.writeSnapshot(ctx, destPath)
	if err != nil {
		log.Error("backup to %s failed: %v", destPath, err)
		metrics.OperationsTotal.WithLabelValues("backup", "failed").Inc()
		return model.BackupRecord{}, &BackupError{Err: err}
	}
	log.Info("backup written to %s (%d bytes)", rec.Path, rec.SizeBytes)
	metrics.OperationsTotal.WithLabelValues("backup", "success").Inc()
	metrics.BackupSizeBytes.Set(float64(rec.SizeBytes))

	if opts.UploadToDrive {
		rec.RemoteID = m.uploadSnapshot(ctx, rec.Path, opts.Credentials, log)
	}
	return rec, nil
}

// writeSnapshot runs the backend copy under the operation mutex and stats the
// produced file.
func (m *Manager) writeSnapshot(ctx context.Context, destPath string) (model.BackupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	if err := m.backend.Backup(ctx, destPath); err != nil {
		return model.BackupRecord{}, err
	}
	metrics.OperationDuration.WithLabelValues("backup").Observe(time.Since(start).Seconds())

	info, err := os.Stat(destPath)
	if err != nil {
		return model.BackupRecord{}, fmt.Errorf("stat backup file: %w", err)
	}
	return model.BackupRecord{Path: destPath, CreatedAt: time.Now(), SizeBytes: info.Size()}, nil
}

// uploadSnapshot runs the remote step. It never returns an error: failures are
// logged and leave the remote ID empty, the local backup already stands.
func (m *Manager) uploadSnapshot(ctx context.Context, localPath string, creds *model.DriveCredentials, log *logging.OpLogger) string {
	if creds == nil {
		log.Warn("drive upload requested without credentials, skipping")
		metrics.UploadsTotal.WithLabelValues("skipped").Inc()
		return ""
	}

	uploadCtx, cancel := context.WithTimeout(ctx, m.uploadTimeout)
	defer cancel()

	uploader, err := m.authenticate(uploadCtx, *creds)
	if err != nil {
		log.Warn("drive authentication failed: %v", err)
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return ""
	}

	name := filepath.Base(localPath)
	fileID, err := uploader.Upload(uploadCtx, localPath, name)
	if err != nil {
		log.Warn("drive upload of %s failed: %v", name, err)
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return ""
	}
	log.Info("uploaded %s to drive (file id %s)", name, fileID)
	metrics.UploadsTotal.WithLabelValues("success").Inc()
	return fileID
}

// Restore replaces the live database with the backup at sourcePath. On any
// failure the live database keeps its pre-restore contents. A successful
// restore invalidates connections other parts of the process may hold, so
// callers surface it as a restart requirement.
func (m *Manager) Restore(ctx context.Context, sourcePath string) error {
	log := m.log.NewOpLogger("restore")
	if sourcePath == "" {
		return &RestoreError{Err: errors.New("no backup file selected")}
	}

	m.mu.Lock()
	start := time.Now()
	err := m.backend.Restore(ctx, sourcePath)
	elapsed := time.Since(start)
	m.mu.Unlock()

	if err != nil {
		log.Error("restore from %s failed: %v", sourcePath, err)
		metrics.OperationsTotal.WithLabelValues("restore", "failed").Inc()
		return &RestoreError{Err: err}
	}
	metrics.OperationsTotal.WithLabelValues("restore", "success").Inc()
	metrics.OperationDuration.WithLabelValues("restore").Observe(elapsed.Seconds())
	log.Info("database restored from %s", sourcePath)
	return nil
}

// Repair rebuilds indexes and compacts the live database, verifying integrity
// afterwards.
func (m *Manager) Repair(ctx context.Context) error {
	log := m.log.NewOpLogger("repair")

	m.mu.Lock()
	start := time.Now()
	err := m.backend.Repair(ctx)
	elapsed := time.Since(start)
	m.mu.Unlock()

	if err != nil {
		log.Error("repair failed: %v", err)
		metrics.OperationsTotal.WithLabelValues("repair", "failed").Inc()
		return &RepairError{Err: err}
	}
	metrics.OperationsTotal.WithLabelValues("repair", "success").Inc()
	metrics.OperationDuration.WithLabelValues("repair").Observe(elapsed.Seconds())
	log.Info("repair completed, integrity check passed")
	return nil
}

// ScheduleRecurringBackup replaces the active recurring-backup configuration.
// The previous trigger is always stopped first; FrequencyManual therefore just
// disables scheduling. Credentials are held in memory only for the lifetime of
// the schedule.
func (m *Manager) ScheduleRecurringBackup(cfg model.ScheduleConfig) error {
	m.schedMu.Lock()
	defer m.schedMu.Unlock()

	log := m.log.NewOpLogger("schedule")
	m.trigger.Stop()
	m.schedule = model.ScheduleConfig{Frequency: model.FrequencyManual}

	if cfg.Frequency == model.FrequencyManual {
		log.Info("recurring backups disabled")
		return nil
	}

	expr, err := schedule.CronExpr(cfg.Frequency)
	if err != nil {
		return &ScheduleError{Err: err}
	}

	// Detach from the caller's struct so later mutations can't race the job.
	var creds *model.DriveCredentials
	if cfg.Drive != nil {
		c := *cfg.Drive
		creds = &c
	}

	if err := m.trigger.Start(expr, func() { m.runScheduled(cfg.Frequency, creds) }); err != nil {
		return &ScheduleError{Err: err}
	}

	m.schedule = model.ScheduleConfig{Frequency: cfg.Frequency, Drive: creds}
	log.Info("recurring %s backups active (cron %q)", cfg.Frequency, expr)
	return nil
}

// runScheduled is the trigger callback. It never propagates errors: a failed
// run is recorded and logged, and the schedule stays active.
func (m *Manager) runScheduled(freq model.Frequency, creds *model.DriveCredentials) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	log := m.log.NewOpLogger("schedule")
	runID, err := m.runs.StartRun(ctx, freq)
	if err != nil {
		log.Error("failed to record scheduled run: %v", err)
	} else {
		log = log.WithRun(runID)
	}
	log.Info("scheduled %s backup starting", freq)

	rec, err := m.scheduledBackup(ctx, creds, log)
	if err != nil {
		log.Error("scheduled backup failed: %v", err)
		metrics.ScheduledRunsTotal.WithLabelValues("failed").Inc()
		if runID != 0 {
			if ferr := m.runs.FailRun(ctx, runID, err); ferr != nil {
				log.Error("failed to record run failure: %v", ferr)
			}
		}
		return
	}

	metrics.ScheduledRunsTotal.WithLabelValues("success").Inc()
	if runID != 0 {
		if cerr := m.runs.CompleteRun(ctx, runID, rec); cerr != nil {
			log.Error("failed to record run completion: %v", cerr)
		}
	}
	log.Info("scheduled backup completed: %s", rec.Path)
}

func (m *Manager) scheduledBackup(ctx context.Context, creds *model.DriveCredentials, log *logging.OpLogger) (model.BackupRecord, error) {
	if err := m.resolver.Ensure(); err != nil {
		return model.BackupRecord{}, &StorageError{Op: "create backup directory", Err: err}
	}
	return m.createBackup(ctx, EnhancedOptions{
		CustomPath:    m.resolver.AutoPath(time.Now()),
		UploadToDrive: creds != nil,
		Credentials:   creds,
	}, log)
}

// ActiveSchedule reports the current schedule plus the most recent run for
// status displays.
func (m *Manager) ActiveSchedule(ctx context.Context) model.ScheduleView {
	m.schedMu.Lock()
	view := model.ScheduleView{
		Frequency:       m.schedule.Frequency,
		DriveConfigured: m.schedule.Drive != nil && m.schedule.Drive.Complete(),
	}
	if m.schedule.Frequency != model.FrequencyManual {
		view.CronExpr, _ = schedule.CronExpr(m.schedule.Frequency)
		view.NextRunAt = m.trigger.NextRun()
	}
	m.schedMu.Unlock()

	run, err := m.runs.LatestRun(ctx)
	if err != nil {
		m.log.Debug("latest run lookup failed: %v", err)
		return view
	}
	if run != nil {
		status := run.Status
		view.LatestRunStatus = &status
		view.LatestRunCompletedAt = run.CompletedAt
	}
	return view
}

// SuggestBackupPath returns where the next manual backup would land by
// default. The UI shows it as the preselected save location.
func (m *Manager) SuggestBackupPath() string {
	return m.resolver.ManualPath(time.Now())
}

// DatabasePath returns the path of the guarded database.
func (m *Manager) DatabasePath() string {
	return m.backend.Path()
}

// Shutdown stops the schedule and closes the backend, waiting for an
// in-flight backend operation to finish first.
func (m *Manager) Shutdown() error {
	m.schedMu.Lock()
	m.trigger.Stop()
	m.schedule = model.ScheduleConfig{Frequency: model.FrequencyManual}
	m.schedMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.backend.Close(); err != nil {
		return &StorageError{Op: "close", Err: err}
	}
	return nil
}
