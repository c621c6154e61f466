package main

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/paycheck/internal/config"
	"github.com/rohankatakam/paycheck/internal/output"
	"github.com/rohankatakam/paycheck/internal/payperiod"
	"github.com/rohankatakam/paycheck/internal/report"
	"github.com/rohankatakam/paycheck/internal/worklog"
)

var periodsFormat string

var periodsCmd = &cobra.Command{
	Use:   "periods",
	Short: "Print the pay days and full-time hours without contacting the tracker",
	Long: `Print the previous, current and next pay day and the full-time hours of the
two periods between them, as the report header shows them.

Examples:
  paycheck periods
  PAYCHECK_PAY_DAY=25 paycheck periods --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printPeriods(cfg, periodsFormat, cmd.OutOrStdout(), time.Now())
	},
}

func init() {
	periodsCmd.Flags().StringVarP(&periodsFormat, "format", "f", "", "output format: text, json or yaml")
}

func printPeriods(cfg *config.Config, format string, out io.Writer, now time.Time) error {
	if err := cfg.ValidateCalendar().Err(); err != nil {
		return err
	}
	f, err := resolveFormat(format, out)
	if err != nil {
		return err
	}

	cal := payperiod.New(now, cfg.Pay.Day, decimal.NewFromFloat(cfg.Pay.HoursPerDay))
	logger.WithField("calendar", cal.String()).Debug("Computed pay periods")

	// an empty graph renders the header only
	empty := worklog.NewGraph()
	empty.Freeze()
	return output.NewFormatter(f).Format(report.Build(empty, cal, now), out)
}
