package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRepairCmd creates the repair command.
func NewRepairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Repair the gym database in place",
		Long: `Rebuild indexes and compact the live gym database, then verify its
integrity. Useful after an unclean shutdown left the database slow or
reporting errors.`,
		RunE: runRepair,
	}

	return cmd
}

func runRepair(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.manager.Repair(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("Repair completed, integrity check passed.")
	return nil
}
