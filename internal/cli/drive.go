package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gymvault/gymvault/internal/config"
	"github.com/gymvault/gymvault/internal/drive"
	"github.com/gymvault/gymvault/internal/model"
)

var (
	driveClientID     string
	driveClientSecret string
)

// NewDriveCmd creates the drive command group.
func NewDriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drive",
		Short: "Google Drive authorization helpers",
		Long: `Helpers for the one-time Google Drive authorization flow.

Run "drive auth-url" to get a consent URL, authorize gymvault in a browser,
then run "drive exchange <code>" with the code Google shows you. The printed
refresh token goes into the config's schedule.drive section.`,
	}

	cmd.PersistentFlags().StringVar(&driveClientID, "client-id", "", "OAuth client ID (default: from config)")
	cmd.PersistentFlags().StringVar(&driveClientSecret, "client-secret", "", "OAuth client secret (default: from config)")

	cmd.AddCommand(newDriveAuthURLCmd())
	cmd.AddCommand(newDriveExchangeCmd())

	return cmd
}

func newDriveAuthURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth-url",
		Short: "Print the Google Drive consent URL",
		RunE:  runDriveAuthURL,
	}
}

func newDriveExchangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exchange <code>",
		Short: "Trade a consent code for a refresh token",
		Args:  cobra.ExactArgs(1),
		RunE:  runDriveExchange,
	}
}

// driveAppCreds pulls the OAuth app credentials from the config, letting the
// flags override them.
func driveAppCreds(cfg *config.Config) model.DriveCredentials {
	var creds model.DriveCredentials
	if cfg.Schedule != nil && cfg.Schedule.Drive != nil {
		creds = *cfg.Schedule.Drive
	}
	if driveClientID != "" {
		creds.ClientID = driveClientID
	}
	if driveClientSecret != "" {
		creds.ClientSecret = driveClientSecret
	}
	return creds
}

func runDriveAuthURL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	url, err := drive.AuthURL(driveAppCreds(cfg))
	if err != nil {
		return err
	}

	fmt.Println("Open this URL in a browser and authorize gymvault:")
	fmt.Println(url)
	return nil
}

func runDriveExchange(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	token, err := drive.ExchangeCode(cmd.Context(), driveAppCreds(cfg), args[0])
	if err != nil {
		return err
	}
	if token.RefreshToken == "" {
		return fmt.Errorf("google returned no refresh token; revoke gymvault's access and run the flow again")
	}

	fmt.Println("Refresh token (store it as schedule.drive.refreshToken in the config):")
	fmt.Println(token.RefreshToken)
	return nil
}
