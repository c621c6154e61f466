// Package payperiod derives pay-period boundaries and full-time hour budgets.
package payperiod

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the human-readable layout used for pay days in reports
const DateLayout = "Monday, January 2, 2006"

// Period is the half-open interval [Start, End)
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t is within [Start, End)
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + ")"
}

// WorkingDays counts the Monday-Friday calendar days in the period.
func (p Period) WorkingDays() int {
	count := 0
	for day := p.Start; day.Before(p.End); day = nextDay(day) {
		if IsWorkingDay(day) {
			count++
		}
	}
	return count
}

// IsWorkingDay reports whether t falls on Monday through Friday
func IsWorkingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// nextDay steps one calendar day. AddDate keeps wall-clock midnight across
// DST transitions where Add(24*time.Hour) would not.
func nextDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1)
}

// Budget returns the full-time hours expected in p.
func Budget(p Period, hoursPerDay decimal.Decimal) decimal.Decimal {
	return hoursPerDay.Mul(decimal.NewFromInt(int64(p.WorkingDays())))
}

// Calendar holds the three pay days around "now" and the budgets of the two
// periods between them. It is built once per run and never mutated.
type Calendar struct {
	PayDay      int
	HoursPerDay decimal.Decimal

	PreviousPayDay time.Time
	CurrentPayDay  time.Time
	NextPayDay     time.Time

	// Previous is [PreviousPayDay, CurrentPayDay)
	Previous Period
	// Current is [CurrentPayDay, NextPayDay)
	Current Period

	PreviousBudget decimal.Decimal
	CurrentBudget  decimal.Decimal
}

// New anchors the current pay day on (now.Year, now.Month, payDay) in now's
// location; the previous and next pay days sit in the adjacent months.
//
// payDay is not validated. A day past the end of a month rolls into the next
// month, following time.Date normalization.
func New(now time.Time, payDay int, hoursPerDay decimal.Decimal) *Calendar {
	prev := payDate(now, -1, payDay)
	cur := payDate(now, 0, payDay)
	next := payDate(now, 1, payDay)

	c := &Calendar{
		PayDay:         payDay,
		HoursPerDay:    hoursPerDay,
		PreviousPayDay: prev,
		CurrentPayDay:  cur,
		NextPayDay:     next,
		Previous:       Period{Start: prev, End: cur},
		Current:        Period{Start: cur, End: next},
	}
	c.PreviousBudget = Budget(c.Previous, hoursPerDay)
	c.CurrentBudget = Budget(c.Current, hoursPerDay)
	return c
}

func payDate(now time.Time, monthOffset, day int) time.Time {
	return time.Date(now.Year(), now.Month()+time.Month(monthOffset), day, 0, 0, 0, 0, now.Location())
}

// String summarizes the calendar for log lines
func (c *Calendar) String() string {
	return fmt.Sprintf("previous=%s current=%s budgets=%s/%s",
		c.Previous, c.Current, c.PreviousBudget, c.CurrentBudget)
}
