package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gymvault/gymvault/internal/backup"
)

var (
	backupOutput string
	backupDrive  bool
)

// NewBackupCmd creates the backup command.
func NewBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a backup of the gym database",
		Long: `Create a consistent snapshot of the guarded database.

Without --output the backup lands in the configured backup directory under a
timestamped name. With --drive the snapshot is also uploaded to Google Drive
using the credentials from the config's schedule section; a failed upload is
logged and does not fail the backup.`,
		RunE: runBackup,
	}

	cmd.Flags().StringVarP(&backupOutput, "output", "o", "", "destination file (default: timestamped file in the backup directory)")
	cmd.Flags().BoolVar(&backupDrive, "drive", false, "upload the backup to Google Drive after writing it")

	return cmd
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	opts := backup.EnhancedOptions{CustomPath: backupOutput}
	if backupDrive {
		if cfg.Schedule == nil || cfg.Schedule.Drive == nil {
			return fmt.Errorf("--drive requires drive credentials in the config's schedule section")
		}
		opts.UploadToDrive = true
		opts.Credentials = cfg.Schedule.Drive
	}

	rec, err := d.manager.CreateBackupEnhanced(cmd.Context(), opts)
	if err != nil {
		return err
	}

	fmt.Printf("Backup written to %s (%d bytes)\n", rec.Path, rec.SizeBytes)
	if rec.RemoteID != "" {
		fmt.Printf("Uploaded to Google Drive (file id %s)\n", rec.RemoteID)
	} else if backupDrive {
		fmt.Println("Drive upload failed; see logs. The local backup is intact.")
	}
	return nil
}
