package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gymvault/gymvault/internal/model"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad_EnvExpansionAndDefaults(t *testing.T) {
	t.Setenv("GYM_DB", "/var/lib/gym/gym.db")
	t.Setenv("API_PASS", "sekrit")
	cfgYAML := `
database: ${GYM_DB}
dataDir: /var/lib/gymvault
api:
  password: $API_PASS
  corsOrigins: "https://gym.example.com,https://admin.example.com"
`
	p := writeTempConfig(t, cfgYAML)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database != "/var/lib/gym/gym.db" {
		t.Fatalf("database not expanded: %q", cfg.Database)
	}
	if cfg.API.Password != "sekrit" {
		t.Fatalf("password not expanded: %q", cfg.API.Password)
	}
	if cfg.API.Listen != ":8080" {
		t.Fatalf("listen default not applied: %q", cfg.API.Listen)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log level default not applied: %q", cfg.Log.Level)
	}
	if cfg.Log.MaxSizeMB != 10 {
		t.Fatalf("log maxSizeMb default not applied: %d", cfg.Log.MaxSizeMB)
	}
	if got := cfg.UploadTimeout(); got != 30*time.Second {
		t.Fatalf("upload timeout default: got %v", got)
	}
}

func TestLoad_ScheduleObjectNotation(t *testing.T) {
	t.Setenv("GDRIVE_SECRET", "shhh")
	cfgYAML := `
database: /tmp/gym.db
schedule:
  frequency: weekly
  drive:
    clientId: client-1
    clientSecret: ${GDRIVE_SECRET}
    redirectUri: urn:ietf:wg:oauth:2.0:oob
    refreshToken: refresh-1
driveUploadTimeout: 45s
`
	p := writeTempConfig(t, cfgYAML)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	sched, err := cfg.ModelSchedule()
	if err != nil {
		t.Fatalf("ModelSchedule error: %v", err)
	}
	if sched.Frequency != model.FrequencyWeekly {
		t.Fatalf("unexpected frequency: %q", sched.Frequency)
	}
	if sched.Drive == nil {
		t.Fatalf("drive credentials missing")
	}
	if sched.Drive.ClientSecret != "shhh" {
		t.Fatalf("client secret not expanded: %q", sched.Drive.ClientSecret)
	}
	if !sched.Drive.Complete() {
		t.Fatalf("credentials should be complete: %#v", sched.Drive)
	}
	if got := cfg.UploadTimeout(); got != 45*time.Second {
		t.Fatalf("upload timeout: got %v", got)
	}
}

func TestLoad_ScheduleShorthand(t *testing.T) {
	cfgYAML := `
database: /tmp/gym.db
schedule: daily
`
	p := writeTempConfig(t, cfgYAML)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	sched, err := cfg.ModelSchedule()
	if err != nil {
		t.Fatalf("ModelSchedule error: %v", err)
	}
	if sched.Frequency != model.FrequencyDaily {
		t.Fatalf("shorthand frequency not parsed: %q", sched.Frequency)
	}
	if sched.Drive != nil {
		t.Fatalf("shorthand schedule should not have drive credentials")
	}
}

func TestLoad_MissingSchedule_DefaultsManual(t *testing.T) {
	p := writeTempConfig(t, "database: /tmp/gym.db\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	sched, err := cfg.ModelSchedule()
	if err != nil {
		t.Fatalf("ModelSchedule error: %v", err)
	}
	if sched.Frequency != model.FrequencyManual {
		t.Fatalf("expected manual default, got %q", sched.Frequency)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		cfgYAML string
		wantErr string
	}{
		{
			name:    "missing database",
			cfgYAML: "api:\n  listen: \":9000\"\n",
			wantErr: "database path is required",
		},
		{
			name:    "bad frequency",
			cfgYAML: "database: /tmp/gym.db\nschedule: hourly\n",
			wantErr: "unknown backup frequency",
		},
		{
			name:    "empty shorthand",
			cfgYAML: "database: /tmp/gym.db\nschedule: \"\"\n",
			wantErr: "frequency cannot be empty",
		},
		{
			name:    "bad timeout",
			cfgYAML: "database: /tmp/gym.db\ndriveUploadTimeout: fast\n",
			wantErr: "invalid driveUploadTimeout",
		},
		{
			name:    "bad log level",
			cfgYAML: "database: /tmp/gym.db\nlog:\n  level: loud\n",
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeTempConfig(t, tt.cfgYAML)
			_, err := Load(p)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResolveBackupDir(t *testing.T) {
	cfg := &Config{Database: "/tmp/gym.db", DataDir: "/data/gymvault"}
	dir, err := cfg.ResolveBackupDir()
	if err != nil {
		t.Fatalf("ResolveBackupDir error: %v", err)
	}
	if dir != filepath.Join("/data/gymvault", "backups") {
		t.Fatalf("unexpected backup dir: %q", dir)
	}

	cfg.BackupDir = "/mnt/backups"
	dir, err = cfg.ResolveBackupDir()
	if err != nil {
		t.Fatalf("ResolveBackupDir error: %v", err)
	}
	if dir != "/mnt/backups" {
		t.Fatalf("override not honored: %q", dir)
	}
}
