package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gymvault/gymvault/internal/model"
)

const defaultUploadTimeout = 30 * time.Second

// Config represents the complete configuration file
type Config struct {
	Database           string          `yaml:"database"`                     // path to the guarded gym database file
	DataDir            string          `yaml:"dataDir,omitempty"`            // state db + default backup dir parent (default: per-OS app data dir)
	BackupDir          string          `yaml:"backupDir,omitempty"`          // optional override of <dataDir>/backups
	API                APIConfig       `yaml:"api,omitempty"`
	Log                LogConfig       `yaml:"log,omitempty"`
	Schedule           *ScheduleConfig `yaml:"schedule,omitempty"`           // applied at startup; replaced via the API at runtime
	DriveUploadTimeout string          `yaml:"driveUploadTimeout,omitempty"` // e.g. "30s", "2m"
}

// APIConfig configures the HTTP façade
type APIConfig struct {
	Listen      string `yaml:"listen,omitempty"`      // default ":8080"
	Password    string `yaml:"password,omitempty"`    // empty disables token auth
	CORSOrigins string `yaml:"corsOrigins,omitempty"` // comma-separated allowed origins
}

// LogConfig configures console and optional rotating file output
type LogConfig struct {
	Level     string `yaml:"level,omitempty"`     // debug|info|warn|error, default info
	File      string `yaml:"file,omitempty"`      // optional rotating log file
	MaxSizeMB int    `yaml:"maxSizeMb,omitempty"` // rotation threshold, default 10
}

// ScheduleConfig is the startup recurring-backup configuration.
// Supports both object notation and shorthand string notation:
//
//	Object: {frequency: daily, drive: {clientId: ..., ...}}
//	Shorthand: "daily"
type ScheduleConfig struct {
	Frequency string                  `yaml:"frequency"`
	Drive     *model.DriveCredentials `yaml:"drive,omitempty"`
}

// UnmarshalYAML implements custom YAML unmarshaling to support the shorthand string notation
func (sc *ScheduleConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		if value.Value == "" {
			return fmt.Errorf("invalid schedule shorthand: frequency cannot be empty")
		}
		sc.Frequency = value.Value
		return nil
	}

	type rawScheduleConfig ScheduleConfig
	var raw rawScheduleConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*sc = ScheduleConfig(raw)
	return nil
}

// Load reads and parses the config file, expanding environment variables
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Expand environment variables in all fields
	cfg.Database = expandEnv(cfg.Database)
	cfg.DataDir = expandEnv(cfg.DataDir)
	cfg.BackupDir = expandEnv(cfg.BackupDir)
	cfg.API.Listen = expandEnv(cfg.API.Listen)
	cfg.API.Password = expandEnv(cfg.API.Password)
	cfg.API.CORSOrigins = expandEnv(cfg.API.CORSOrigins)
	cfg.Log.Level = expandEnv(cfg.Log.Level)
	cfg.Log.File = expandEnv(cfg.Log.File)
	cfg.DriveUploadTimeout = expandEnv(cfg.DriveUploadTimeout)
	if cfg.Schedule != nil {
		cfg.Schedule.Frequency = expandEnv(cfg.Schedule.Frequency)
		if cfg.Schedule.Drive != nil {
			cfg.Schedule.Drive.ClientID = expandEnv(cfg.Schedule.Drive.ClientID)
			cfg.Schedule.Drive.ClientSecret = expandEnv(cfg.Schedule.Drive.ClientSecret)
			cfg.Schedule.Drive.RedirectURI = expandEnv(cfg.Schedule.Drive.RedirectURI)
			cfg.Schedule.Drive.RefreshToken = expandEnv(cfg.Schedule.Drive.RefreshToken)
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.Listen == "" {
		c.API.Listen = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 10
	}
}

// Validate checks the config for errors that would only surface later at runtime
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("config: database path is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log level %q", c.Log.Level)
	}
	if c.DriveUploadTimeout != "" {
		if _, err := time.ParseDuration(c.DriveUploadTimeout); err != nil {
			return fmt.Errorf("config: invalid driveUploadTimeout: %w", err)
		}
	}
	if c.Schedule != nil {
		if _, err := model.ParseFrequency(c.Schedule.Frequency); err != nil {
			return fmt.Errorf("config: invalid schedule: %w", err)
		}
	}
	return nil
}

// UploadTimeout returns the parsed Drive upload timeout, falling back to 30s.
func (c *Config) UploadTimeout() time.Duration {
	if c.DriveUploadTimeout == "" {
		return defaultUploadTimeout
	}
	d, err := time.ParseDuration(c.DriveUploadTimeout)
	if err != nil || d <= 0 {
		return defaultUploadTimeout
	}
	return d
}

// ModelSchedule converts the startup schedule into the manager's config type.
// Returns a manual schedule when the section is absent.
func (c *Config) ModelSchedule() (model.ScheduleConfig, error) {
	if c.Schedule == nil {
		return model.ScheduleConfig{Frequency: model.FrequencyManual}, nil
	}
	freq, err := model.ParseFrequency(c.Schedule.Frequency)
	if err != nil {
		return model.ScheduleConfig{}, err
	}
	return model.ScheduleConfig{Frequency: freq, Drive: c.Schedule.Drive}, nil
}

// ResolveDataDir returns the configured data directory or the per-OS default.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	return DefaultDataDir()
}

// ResolveBackupDir returns the directory backups are written to when the
// caller does not pick a path: backupDir if set, else <dataDir>/backups.
func (c *Config) ResolveBackupDir() (string, error) {
	if c.BackupDir != "" {
		return c.BackupDir, nil
	}
	dataDir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "backups"), nil
}

// expandEnv expands environment variable references in the format ${VAR} or $VAR
func expandEnv(s string) string {
	// Match ${VAR} or $VAR patterns
	re := regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name
		var varName string
		if match[1] == '{' {
			varName = match[2 : len(match)-1] // ${VAR}
		} else {
			varName = match[1:] // $VAR
		}
		// Return environment variable value or empty string if not set
		return os.Getenv(varName)
	})
}
