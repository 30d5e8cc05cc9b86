package model

import (
	"fmt"
	"time"
)

// Frequency selects how often the recurring backup job fires.
type Frequency string

const (
	FrequencyManual  Frequency = "manual"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ParseFrequency validates a user-supplied frequency string.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyManual, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return Frequency(s), nil
	default:
		return "", fmt.Errorf("unknown backup frequency %q", s)
	}
}

// BackupRecord describes one completed backup file. Records are returned to the
// caller and never registered anywhere; the path is only guaranteed valid at
// creation time.
type BackupRecord struct {
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"createdAt"`
	SizeBytes int64     `json:"sizeBytes"`
	RemoteID  string    `json:"remoteId,omitempty"` // Drive file ID, empty when not uploaded
}

// DriveCredentials is the opaque OAuth bundle for Google Drive uploads. The
// manager never persists it; callers supply it with each schedule change.
type DriveCredentials struct {
	ClientID     string `json:"clientId" yaml:"clientId"`
	ClientSecret string `json:"clientSecret" yaml:"clientSecret"`
	RedirectURI  string `json:"redirectUri" yaml:"redirectUri"`
	RefreshToken string `json:"refreshToken" yaml:"refreshToken"`
}

// Complete reports whether the bundle carries everything an upload needs.
func (c DriveCredentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// ScheduleConfig is the single active recurring-backup configuration.
// Replacing it always deactivates the previous one first.
type ScheduleConfig struct {
	Frequency Frequency
	Drive     *DriveCredentials // nil disables the upload step
}

type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// ScheduleRun is one recorded execution of the scheduled backup job.
// Used for API/dashboard display only, never to restore trigger state.
type ScheduleRun struct {
	ID          int64      `json:"id"`
	Frequency   Frequency  `json:"frequency"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"` // nil while running
	BackupPath  string     `json:"backupPath,omitempty"`
	RemoteID    string     `json:"remoteId,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// ScheduleView is the API representation of the active schedule.
type ScheduleView struct {
	Frequency            Frequency  `json:"frequency"`
	CronExpr             string     `json:"cronExpr,omitempty"` // empty for manual
	DriveConfigured      bool       `json:"driveConfigured"`
	NextRunAt            *time.Time `json:"nextRunAt"` // nil if not scheduled
	LatestRunStatus      *RunStatus `json:"latestRunStatus,omitempty"`
	LatestRunCompletedAt *time.Time `json:"latestRunCompletedAt,omitempty"`
}
