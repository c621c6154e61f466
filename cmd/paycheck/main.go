package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/paycheck/internal/config"
	"github.com/rohankatakam/paycheck/internal/errors"
	"github.com/rohankatakam/paycheck/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
	runLog  *logging.Logger
	runID   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if runLog != nil {
		runLog.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, errorMessage(err, verbose))
		os.Exit(errors.ExitCode(err))
	}
}

// errorMessage is the line printed on failure; verbose adds type, severity and context
func errorMessage(err error, verbose bool) string {
	if verbose {
		return "Error: " + strings.TrimSuffix(errors.Detailed(err), "\n")
	}
	return "Error: " + err.Error()
}

var rootCmd = &cobra.Command{
	Use:   "paycheck",
	Short: "Paycheck - work-log hours against full-time budgets",
	Long: `Paycheck pulls work logs from a Jira-compatible tracker and reports, per
author, the hours logged in the previous and the current pay period next to
the full-time hours of each period.

Running paycheck without a subcommand prints the report.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// CLI-level messages
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			if cfgFile != "" {
				return err
			}
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
		if cfg.File != "" {
			logger.WithField("file", cfg.File).Debug("Loaded config")
		}

		// Component logging
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		runLog, err = logging.NewLogger(logging.Config{
			Level:      level,
			OutputFile: cfg.Log.File,
			JSONFormat: cfg.Log.JSON,
			AddSource:  verbose,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		runID = uuid.NewString()
		runLog = runLog.With("run_id", runID)
		runLog.Install()

		return nil
	},
	RunE: runReport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .paycheck/config.yaml, ./config.json is also read)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`Paycheck {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	addReportFlags(rootCmd)

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(periodsCmd)
	rootCmd.AddCommand(configCmd)
}
