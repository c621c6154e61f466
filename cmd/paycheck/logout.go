package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/paycheck/internal/config"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove tracker credentials from the OS keychain",
	Long: `Remove the API token and the password stored by 'paycheck login' for the
tracker host. Credentials in environment variables or the config file are not
affected.`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func init() {
	logoutCmd.Flags().StringVar(&loginHost, "host", "", "tracker host (default: tracker.hostname from config)")
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	host, err := credentialHost()
	if err != nil {
		return err
	}

	km := config.NewKeyringManager()
	if err := km.DeleteTrackerToken(host); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	if err := km.DeleteTrackerPassword(host); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Credentials for %s removed from keychain\n", host)
	return nil
}
