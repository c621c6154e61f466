// Package report aggregates the frozen work-log graph into per-author totals
// for the previous and current pay periods.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rohankatakam/paycheck/internal/payperiod"
	"github.com/rohankatakam/paycheck/internal/worklog"
)

var (
	hundred   = decimal.NewFromInt(100)
	msPerHour = decimal.NewFromInt(int64(time.Hour / time.Millisecond))
)

// Share is hours worked in a period against that period's full-time budget.
// Percent is meaningless when Defined is false, which happens when the
// budget is zero.
type Share struct {
	Hours   decimal.Decimal
	Percent decimal.Decimal
	Defined bool
}

// IssueLine is the time one author spent on one issue
type IssueLine struct {
	Key     string
	Summary string
	Hours   decimal.Decimal
}

// Entry is the report for one author
type Entry struct {
	AuthorKey   string
	Name        string
	DisplayName string
	Previous    Share
	Current     Share
	Issues      []IssueLine
}

// Gap is an issue whose work logs are missing from the report
type Gap struct {
	IssueKey string
	Reason   string
}

// Report is the assembled output of a run
type Report struct {
	GeneratedAt time.Time

	PreviousPayDay time.Time
	CurrentPayDay  time.Time
	NextPayDay     time.Time
	PreviousBudget decimal.Decimal
	CurrentBudget  decimal.Decimal

	Entries []Entry
	Gaps    []Gap
	Stats   worklog.Stats
}

// Build aggregates every author of g. g must be frozen; the caller owns the
// barrier that guarantees all fetches have completed.
func Build(g *worklog.Graph, cal *payperiod.Calendar, now time.Time) *Report {
	r := &Report{
		GeneratedAt:    now,
		PreviousPayDay: cal.PreviousPayDay,
		CurrentPayDay:  cal.CurrentPayDay,
		NextPayDay:     cal.NextPayDay,
		PreviousBudget: cal.PreviousBudget,
		CurrentBudget:  cal.CurrentBudget,
		Stats:          g.Stats(),
	}

	for _, author := range g.Authors() {
		r.Entries = append(r.Entries, buildEntry(g, cal, author))
	}
	return r
}

func buildEntry(g *worklog.Graph, cal *payperiod.Calendar, author worklog.Author) Entry {
	logs := g.AuthorWorklogs(author.Key)
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Started.Before(logs[j].Started)
	})

	var prev, cur time.Duration
	for _, wl := range logs {
		switch {
		case cal.Previous.Contains(wl.Started):
			prev += wl.Duration
		case cal.Current.Contains(wl.Started):
			cur += wl.Duration
		}
	}

	entry := Entry{
		AuthorKey:   author.Key,
		Name:        author.Name,
		DisplayName: author.DisplayName,
		Previous:    NewShare(Hours(prev), cal.PreviousBudget),
		Current:     NewShare(Hours(cur), cal.CurrentBudget),
	}

	for _, issueKey := range author.IssueKeys {
		issue, _ := g.Issue(issueKey)
		var spent time.Duration
		for _, wl := range g.IssueWorklogs(issueKey) {
			if wl.AuthorKey == author.Key {
				spent += wl.Duration
			}
		}
		entry.Issues = append(entry.Issues, IssueLine{
			Key:     issue.Key,
			Summary: issue.Summary,
			Hours:   Hours(spent),
		})
	}

	return entry
}

// Hours converts d to hours at millisecond precision
func Hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(d.Milliseconds()).Div(msPerHour)
}

// NewShare computes hours*100/budget. A zero budget yields an undefined share.
func NewShare(hours, budget decimal.Decimal) Share {
	if budget.IsZero() {
		return Share{Hours: hours}
	}
	return Share{
		Hours:   hours,
		Percent: hours.Mul(hundred).Div(budget),
		Defined: true,
	}
}
