package output

import (
	"encoding/json"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/paycheck/internal/report"
)

// JSONFormatter writes the report as one indented JSON document
type JSONFormatter struct{}

func (f *JSONFormatter) Format(r *report.Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(toView(r))
}

// YAMLFormatter writes the report as YAML
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(r *report.Report, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(toView(r)); err != nil {
		return err
	}
	return encoder.Close()
}

// reportView is the stable machine-readable schema. Hours and percentages
// are rounded to two decimals; an undefined percentage is null.
type reportView struct {
	GeneratedAt string       `json:"generated_at" yaml:"generated_at"`
	PayDays     payDaysView  `json:"pay_days" yaml:"pay_days"`
	Budgets     budgetsView  `json:"full_time_hours" yaml:"full_time_hours"`
	Authors     []authorView `json:"authors" yaml:"authors"`
	Gaps        []gapView    `json:"gaps,omitempty" yaml:"gaps,omitempty"`
	Stats       statsView    `json:"stats" yaml:"stats"`
}

type payDaysView struct {
	Previous string `json:"previous" yaml:"previous"`
	Current  string `json:"current" yaml:"current"`
	Next     string `json:"next" yaml:"next"`
}

type budgetsView struct {
	Previous float64 `json:"previous_period" yaml:"previous_period"`
	Current  float64 `json:"current_period" yaml:"current_period"`
}

type shareView struct {
	Hours   float64  `json:"hours" yaml:"hours"`
	Percent *float64 `json:"percent" yaml:"percent"`
}

type issueView struct {
	Key     string  `json:"key" yaml:"key"`
	Summary string  `json:"summary" yaml:"summary"`
	Hours   float64 `json:"hours" yaml:"hours"`
}

type authorView struct {
	Key            string      `json:"key" yaml:"key"`
	Name           string      `json:"name" yaml:"name"`
	DisplayName    string      `json:"display_name" yaml:"display_name"`
	PreviousPeriod shareView   `json:"previous_period" yaml:"previous_period"`
	CurrentPeriod  shareView   `json:"current_period" yaml:"current_period"`
	Issues         []issueView `json:"issues" yaml:"issues"`
}

type gapView struct {
	IssueKey string `json:"issue" yaml:"issue"`
	Reason   string `json:"reason" yaml:"reason"`
}

type statsView struct {
	Issues     int `json:"issues" yaml:"issues"`
	Authors    int `json:"authors" yaml:"authors"`
	Worklogs   int `json:"worklogs" yaml:"worklogs"`
	Duplicates int `json:"duplicates" yaml:"duplicates"`
}

func toView(r *report.Report) reportView {
	v := reportView{
		GeneratedAt: r.GeneratedAt.Format(time.RFC3339),
		PayDays: payDaysView{
			Previous: r.PreviousPayDay.Format("2006-01-02"),
			Current:  r.CurrentPayDay.Format("2006-01-02"),
			Next:     r.NextPayDay.Format("2006-01-02"),
		},
		Budgets: budgetsView{
			Previous: r.PreviousBudget.Round(2).InexactFloat64(),
			Current:  r.CurrentBudget.Round(2).InexactFloat64(),
		},
		Authors: make([]authorView, 0, len(r.Entries)),
		Stats: statsView{
			Issues:     r.Stats.Issues,
			Authors:    r.Stats.Authors,
			Worklogs:   r.Stats.Worklogs,
			Duplicates: r.Stats.Duplicates,
		},
	}

	for _, e := range r.Entries {
		a := authorView{
			Key:            e.AuthorKey,
			Name:           e.Name,
			DisplayName:    e.DisplayName,
			PreviousPeriod: toShareView(e.Previous),
			CurrentPeriod:  toShareView(e.Current),
			Issues:         make([]issueView, 0, len(e.Issues)),
		}
		for _, line := range e.Issues {
			a.Issues = append(a.Issues, issueView{
				Key:     line.Key,
				Summary: line.Summary,
				Hours:   line.Hours.Round(2).InexactFloat64(),
			})
		}
		v.Authors = append(v.Authors, a)
	}

	for _, g := range r.Gaps {
		v.Gaps = append(v.Gaps, gapView{IssueKey: g.IssueKey, Reason: g.Reason})
	}
	return v
}

func toShareView(s report.Share) shareView {
	sv := shareView{Hours: s.Hours.Round(2).InexactFloat64()}
	if s.Defined {
		p := s.Percent.Round(2).InexactFloat64()
		sv.Percent = &p
	}
	return sv
}
