package backup

import "fmt"

// StorageError reports a failure of the storage backend or the filesystem
// around it, before any lifecycle operation got to run.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// BackupError reports a failed backup creation. The destination file may not
// exist or may be incomplete.
type BackupError struct {
	Err error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("create backup: %v", e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }

// RestoreError reports a failed restore. The live database is left in its
// pre-restore state.
type RestoreError struct {
	Err error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore backup: %v", e.Err)
}

func (e *RestoreError) Unwrap() error { return e.Err }

// RepairError reports a failed integrity repair.
type RepairError struct {
	Err error
}

func (e *RepairError) Error() string {
	return fmt.Sprintf("repair database: %v", e.Err)
}

func (e *RepairError) Unwrap() error { return e.Err }

// ScheduleError reports an invalid schedule request. The previously active
// trigger is already stopped when this is returned.
type ScheduleError struct {
	Err error
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("schedule backup: %v", e.Err)
}

func (e *ScheduleError) Unwrap() error { return e.Err }
