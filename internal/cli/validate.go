package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gymvault/gymvault/internal/config"
	"github.com/gymvault/gymvault/internal/store"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and check the environment",
		Long: `Validate the configuration file and check the environment.

This checks:
- Config file syntax
- Guarded database reachability
- Backup directory writability
- Drive credential completeness (if configured)`,
		RunE: runValidate,
	}

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	fmt.Println("Configuration:")
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  ✗ Config file: %v\n", err)
		return err
	}
	fmt.Printf("  ✓ Config file syntax valid\n")

	configPath := cfgFile
	if configPath == "" {
		configPath, _ = config.DefaultConfigPath()
	}
	backupDir, _ := cfg.ResolveBackupDir()

	fmt.Printf("  Config file: %s\n", configPath)
	fmt.Printf("  Database: %s\n", cfg.Database)
	fmt.Printf("  Backup directory: %s\n", backupDir)
	fmt.Printf("  API listen: %s\n", cfg.API.Listen)
	fmt.Printf("  API auth: %t\n", cfg.API.Password != "")
	if cfg.Schedule != nil {
		fmt.Printf("  Schedule: %s\n", cfg.Schedule.Frequency)
		fmt.Printf("  Drive upload: %t\n", cfg.Schedule.Drive != nil)
	} else {
		fmt.Printf("  Schedule: manual\n")
	}
	fmt.Println()

	fmt.Println("Checks:")

	st, err := store.Open(cfg.Database)
	if err != nil {
		fmt.Printf("  ✗ Gym database: %v\n", err)
	} else {
		if err := st.Ping(ctx); err != nil {
			fmt.Printf("  ✗ Gym database: %v\n", err)
		} else {
			fmt.Printf("  ✓ Gym database reachable\n")
		}
		st.Close()
	}

	if err := os.MkdirAll(backupDir, 0755); err != nil {
		fmt.Printf("  ✗ Backup directory: %v\n", err)
	} else {
		fmt.Printf("  ✓ Backup directory writable\n")
	}

	if cfg.Schedule != nil && cfg.Schedule.Drive != nil {
		if cfg.Schedule.Drive.Complete() {
			fmt.Printf("  ✓ Drive credentials complete\n")
		} else {
			fmt.Printf("  ✗ Drive credentials incomplete (need clientId, clientSecret, refreshToken)\n")
		}
	}

	fmt.Println()
	fmt.Println("Validation complete.")
	return nil
}
