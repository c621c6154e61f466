package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rohankatakam/paycheck/internal/config"
	"github.com/rohankatakam/paycheck/internal/metrics"
	"github.com/rohankatakam/paycheck/internal/output"
	"github.com/rohankatakam/paycheck/internal/payperiod"
	"github.com/rohankatakam/paycheck/internal/report"
	"github.com/rohankatakam/paycheck/internal/tracker"
	"github.com/rohankatakam/paycheck/internal/worklog"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print hours per author for the previous and current pay period",
	Long: `Fetch every issue with time logged since the previous pay day, collect
their work logs and print, per author, the hours and the share of the
full-time budget for the previous and the current pay period.

Examples:
  # Console report
  paycheck report

  # JSON for scripts, keep going when single issues fail
  paycheck report --format json --continue-on-error

  # Also write run metrics for the node-exporter textfile collector
  paycheck report --metrics-file /var/lib/node_exporter/paycheck.prom`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

type reportOptions struct {
	format          string
	metricsFile     string
	continueOnError bool
}

var reportOpts reportOptions

func init() {
	addReportFlags(reportCmd)
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&reportOpts.format, "format", "f", "", "output format: text, json or yaml (default: text on a terminal, json otherwise)")
	cmd.Flags().StringVar(&reportOpts.metricsFile, "metrics-file", "", "write Prometheus metrics of this run to a textfile")
	cmd.Flags().BoolVar(&reportOpts.continueOnError, "continue-on-error", false, "report issues whose work logs failed as gaps instead of aborting")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportOpts.continueOnError {
		cfg.Fetch.FailFast = false
	}
	return generateReport(cmd.Context(), cfg, reportOpts, cmd.OutOrStdout(), time.Now(), slog.Default())
}

// generateReport runs one fetch-aggregate-render cycle. Nothing is written to
// out unless every step before rendering succeeded.
func generateReport(ctx context.Context, cfg *config.Config, opts reportOptions, out io.Writer, now time.Time, log *slog.Logger) error {
	start := time.Now()

	validation := cfg.Validate()
	if err := validation.Err(); err != nil {
		return err
	}
	for _, warn := range validation.Warnings {
		log.Warn("configuration warning", "detail", warn)
	}

	format, err := resolveFormat(opts.format, out)
	if err != nil {
		return err
	}

	cal := payperiod.New(now, cfg.Pay.Day, decimal.NewFromFloat(cfg.Pay.HoursPerDay))
	log.Info("pay calendar", "previous", cal.Previous.String(), "current", cal.Current.String())

	reg := metrics.NewRegistry()
	summary := metrics.RunSummary{}
	defer func() {
		if opts.metricsFile == "" {
			return
		}
		summary.Elapsed = time.Since(start)
		summary.FinishedAt = time.Now()
		reg.RecordRun(summary)
		if err := reg.WriteTextfile(opts.metricsFile); err != nil {
			log.Error("metrics not written", "error", err)
		}
	}()

	client, err := tracker.NewClient(tracker.Options{
		BaseURL:    tracker.BaseURL(cfg.Tracker.Scheme, cfg.Tracker.Hostname, cfg.Tracker.Port),
		APIVersion: cfg.Tracker.APIVersion,
		Token:      cfg.Tracker.Token,
		Username:   cfg.Tracker.Username,
		Password:   cfg.Tracker.Password,
		HTTPClient: &http.Client{},
		Observer:   reg,
		Logger:     log.With("component", "tracker"),
	})
	if err != nil {
		return err
	}

	fetcher := tracker.NewFetcher(client, tracker.FetcherConfig{
		Concurrency:    cfg.Fetch.Concurrency,
		RateLimit:      cfg.Fetch.RateLimit,
		RequestTimeout: cfg.Fetch.RequestTimeout,
		MaxResults:     cfg.Fetch.MaxResults,
		FailFast:       cfg.Fetch.FailFast,
	}, log)

	graph := worklog.NewGraph()
	stats, err := fetcher.Fetch(ctx, cal.PreviousPayDay, graph)
	if stats != nil {
		summary.Issues = stats.Issues
		summary.Gaps = len(stats.Gaps)
	}
	if err != nil {
		log.Error("fetch failed", "error", err)
		return err
	}

	// every fetch has completed; the graph is read-only from here on
	graph.Freeze()

	r := report.Build(graph, cal, now)
	for _, gap := range stats.Gaps {
		r.Gaps = append(r.Gaps, report.Gap{IssueKey: gap.IssueKey, Reason: gap.Err.Error()})
	}

	summary.Authors = r.Stats.Authors
	summary.Worklogs = r.Stats.Worklogs
	summary.Duplicates = r.Stats.Duplicates

	if err := output.NewFormatter(format).Format(r, out); err != nil {
		return err
	}

	summary.Succeeded = len(r.Gaps) == 0
	log.Info("report written",
		"authors", r.Stats.Authors,
		"worklogs", r.Stats.Worklogs,
		"gaps", len(r.Gaps),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func resolveFormat(flag string, out io.Writer) (output.Format, error) {
	if flag != "" {
		return output.ParseFormat(flag)
	}
	return output.DefaultFormat(isTerminal(out)), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
