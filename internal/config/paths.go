package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	// AppName is the application name used for data and config directories.
	AppName = "gymvault"
	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yml"
)

// DefaultDataDir returns the default application data directory for the
// current OS. Backups default to the "backups" subdirectory of this path and
// the state database lives directly inside it.
func DefaultDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		// %APPDATA%\gymvault
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, AppName), nil

	case "darwin":
		// ~/Library/Application Support/gymvault
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppName), nil

	default:
		// Linux and other Unix-like systems:
		// $XDG_DATA_HOME/gymvault or ~/.local/share/gymvault
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return filepath.Join(xdgData, AppName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", AppName), nil
	}
}

// DefaultConfigPath returns the full path to the default config file.
func DefaultConfigPath() (string, error) {
	switch runtime.GOOS {
	case "windows", "darwin":
		dir, err := DefaultDataDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, ConfigFileName), nil

	default:
		// $XDG_CONFIG_HOME/gymvault or ~/.config/gymvault
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, AppName, ConfigFileName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName, ConfigFileName), nil
	}
}
