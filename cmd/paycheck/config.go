package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/paycheck/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging defaults, the config file, .env files,
PAYCHECK_* environment variables and the OS keychain. Secrets are masked.

The validation result is printed below the configuration; the command fails
when the configuration cannot produce a report.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig(cfg, cmd.OutOrStdout())
	},
}

func showConfig(cfg *config.Config, out io.Writer) error {
	file := cfg.File
	if file == "" {
		file = "(none, defaults and environment only)"
	}
	fmt.Fprintf(out, "# config file: %s\n", file)
	fmt.Fprintf(out, "# token source: %s\n", cfg.Tracker.TokenSource)
	fmt.Fprintf(out, "# password source: %s\n", cfg.Tracker.PasswordSource)

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg.Redacted()); err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	result := cfg.Validate()
	for _, warn := range result.Warnings {
		fmt.Fprintf(out, "# warning: %s\n", warn)
	}
	if err := result.Err(); err != nil {
		return err
	}
	fmt.Fprintln(out, "# configuration is valid")
	return nil
}
