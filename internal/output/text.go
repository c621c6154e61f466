package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/rohankatakam/paycheck/internal/payperiod"
	"github.com/rohankatakam/paycheck/internal/report"
)

// TextFormatter prints the console report: pay days and budgets first, then
// one block per author.
type TextFormatter struct{}

// Format writes r to w and stops at the first write error
func (f *TextFormatter) Format(r *report.Report, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.println()
	ew.println("Previous pay day:", r.PreviousPayDay.Format(payperiod.DateLayout))
	ew.println("Current pay day:", r.CurrentPayDay.Format(payperiod.DateLayout))
	ew.println("Next pay day:", r.NextPayDay.Format(payperiod.DateLayout))
	ew.println()
	ew.println("Full-time work hours up to current pay day:", r.PreviousBudget.String())
	ew.println("Full-time work hours up to next pay day:", r.CurrentBudget.String())
	ew.println()

	for _, e := range r.Entries {
		ew.println(strings.ToUpper(displayName(e)))
		ew.println()
		ew.println("Time worked up to current pay day:", shareText(e.Previous))
		ew.println("Time worked up to next pay day:", shareText(e.Current))
		ew.println()
		ew.println("Issues worked on:")
		ew.println()
		for _, line := range e.Issues {
			ew.println(line.Key, line.Summary, "-", line.Hours.StringFixed(1), "hours")
		}
		ew.println()
	}

	if len(r.Gaps) > 0 {
		ew.println("WARNING: work logs of these issues could not be fetched and are missing above:")
		for _, gap := range r.Gaps {
			ew.println(" ", gap.IssueKey+":", gap.Reason)
		}
		ew.println()
	}

	return ew.err
}

func shareText(s report.Share) string {
	percent := "n/a"
	if s.Defined {
		percent = s.Percent.StringFixed(1)
	}
	return s.Hours.StringFixed(1) + " hours / " + percent + " percent"
}

func displayName(e report.Entry) string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	if e.Name != "" {
		return e.Name
	}
	return e.AuthorKey
}

// errWriter keeps the first write error so Format can report it once
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) println(a ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, a...)
}
