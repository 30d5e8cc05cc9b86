// Package cli provides the command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gymvault/gymvault/internal/backup"
	"github.com/gymvault/gymvault/internal/config"
	"github.com/gymvault/gymvault/internal/logging"
	"github.com/gymvault/gymvault/internal/schedule"
	"github.com/gymvault/gymvault/internal/state"
	"github.com/gymvault/gymvault/internal/store"
	"github.com/gymvault/gymvault/pkg/version"
)

var cfgFile string

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gymvault",
		Short: "Backup lifecycle manager for the gym management database",
		Long: `gymvault guards a gym management SQLite database: consistent backups,
restore, integrity repair, recurring schedules and optional Google Drive
uploads. Run it as a sidecar service next to the desktop app or drive
individual operations from the command line.`,
		Version:      version.Get().String(),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewBackupCmd())
	rootCmd.AddCommand(NewRestoreCmd())
	rootCmd.AddCommand(NewRepairCmd())
	rootCmd.AddCommand(NewPathCmd())
	rootCmd.AddCommand(NewDriveCmd())
	rootCmd.AddCommand(NewValidateCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the configuration from --config or the per-OS default path.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}
	return config.Load(path)
}

// deps bundles everything a lifecycle command needs. Close releases the
// backend and the state database in the right order.
type deps struct {
	cfg     *config.Config
	stateDB *state.DB
	logger  *logging.Logger
	manager *backup.Manager
}

func (d *deps) Close() {
	if d.manager != nil {
		if err := d.manager.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		}
	}
	if d.stateDB != nil {
		d.stateDB.Close()
	}
}

// buildDeps opens the state database, logger, guarded database and manager
// from the loaded config.
func buildDeps(cfg *config.Config) (*deps, error) {
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	stateDB, err := state.Init(filepath.Join(dataDir, "gymvault.db"))
	if err != nil {
		return nil, err
	}

	console := io.Writer(os.Stdout)
	if cfg.Log.File != "" {
		console = io.MultiWriter(os.Stdout, logging.NewRotatingWriter(cfg.Log.File, cfg.Log.MaxSizeMB))
	}
	logger, err := logging.New(stateDB.GetDB(), console)
	if err != nil {
		stateDB.Close()
		return nil, err
	}
	logger.SetLevel(logging.ParseLevel(cfg.Log.Level))

	st, err := store.Open(cfg.Database)
	if err != nil {
		stateDB.Close()
		return nil, err
	}

	backupDir, err := cfg.ResolveBackupDir()
	if err != nil {
		st.Close()
		stateDB.Close()
		return nil, err
	}

	mgr := backup.New(st, backup.NewResolver(backupDir), schedule.NewCronTrigger(), stateDB, logger,
		backup.WithUploadTimeout(cfg.UploadTimeout()))

	return &deps{
		cfg:     cfg,
		stateDB: stateDB,
		logger:  logger,
		manager: mgr,
	}, nil
}
