package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRestoreCmd creates the restore command.
func NewRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Replace the gym database with a backup",
		Long: `Replace the live gym database with the given backup file.

The backup is integrity-checked before anything is touched; on any failure the
live database keeps its current contents. After a successful restore the gym
desktop app must be restarted so it reopens the database file.`,
		Args: cobra.ExactArgs(1),
		RunE: runRestore,
	}

	return cmd
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.manager.Restore(cmd.Context(), args[0]); err != nil {
		return err
	}

	fmt.Printf("Database restored from %s\n", args[0])
	fmt.Println("Restart the gym application so it reopens the database.")
	return nil
}
