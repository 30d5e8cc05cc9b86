package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gymvault/gymvault/internal/auth"
	"github.com/gymvault/gymvault/internal/helpers"
	"github.com/gymvault/gymvault/internal/server"
	"github.com/gymvault/gymvault/pkg/version"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backup service in foreground",
		Long: `Run the backup service in foreground mode.

This starts the recurring-backup scheduler and the management API the gym
desktop app talks to. Use Ctrl+C to stop; in-flight operations finish first.`,
		RunE: runServe,
	}

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	log := d.logger
	log.Info("gymvault %s starting, guarding %s", version.Get().Short(), cfg.Database)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Runs left "running" by a crash can never complete now.
	if aborted, err := d.stateDB.AbortInterruptedRuns(ctx); err != nil {
		log.Warn("abort interrupted runs: %v", err)
	} else if aborted > 0 {
		log.Warn("marked %d interrupted runs as failed", aborted)
	}

	// Apply the startup schedule from the config; the API can replace it later.
	schedCfg, err := cfg.ModelSchedule()
	if err != nil {
		return fmt.Errorf("startup schedule: %w", err)
	}
	if err := d.manager.ScheduleRecurringBackup(schedCfg); err != nil {
		return fmt.Errorf("startup schedule: %w", err)
	}

	srv := server.New(server.Options{
		Manager:     d.manager,
		Runs:        d.stateDB,
		Logs:        d.logger,
		Auth:        auth.New(cfg.API.Password),
		Listen:      cfg.API.Listen,
		CORSOrigins: helpers.SplitCSV(cfg.API.CORSOrigins),
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received %s, shutting down", sig)
		cancel()
	}()

	log.Info("api listening on %s", cfg.API.Listen)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	log.Info("gymvault stopped")
	return nil
}
