package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gymvault/gymvault/internal/backup"
)

// NewPathCmd creates the path command.
func NewPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the default destination for the next backup",
		RunE:  runPath,
	}

	return cmd
}

func runPath(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	backupDir, err := cfg.ResolveBackupDir()
	if err != nil {
		return fmt.Errorf("resolve backup dir: %w", err)
	}

	fmt.Println(backup.NewResolver(backupDir).ManualPath(time.Now()))
	return nil
}
