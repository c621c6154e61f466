package payperiod

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eight = decimal.NewFromInt(8)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestNew_PayDayFifteenth(t *testing.T) {
	now := time.Date(2026, time.March, 20, 10, 30, 0, 0, time.Local)
	c := New(now, 15, eight)

	assert.Equal(t, date(2026, time.February, 15), c.PreviousPayDay)
	assert.Equal(t, date(2026, time.March, 15), c.CurrentPayDay)
	assert.Equal(t, date(2026, time.April, 15), c.NextPayDay)

	// Mar 15 2026 is a Sunday; Mar 16 - Apr 14 holds 22 weekdays
	assert.Equal(t, 22, c.Current.WorkingDays())
	assert.True(t, c.CurrentBudget.Equal(decimal.NewFromInt(176)), "got %s", c.CurrentBudget)

	// Feb 15 - Mar 14 2026 is exactly four weeks
	assert.Equal(t, 20, c.Previous.WorkingDays())
	assert.True(t, c.PreviousBudget.Equal(decimal.NewFromInt(160)), "got %s", c.PreviousBudget)
}

func TestNew_PeriodsAreContiguous(t *testing.T) {
	nows := []time.Time{
		date(2026, time.January, 3),
		date(2026, time.March, 31),
		date(2024, time.February, 29),
		date(2025, time.December, 31),
	}

	for _, now := range nows {
		for day := 1; day <= 28; day++ {
			t.Run(fmt.Sprintf("%s/day-%d", now.Format("2006-01-02"), day), func(t *testing.T) {
				c := New(now, day, eight)

				assert.Equal(t, c.Previous.End, c.Current.Start)
				assert.Equal(t, c.PreviousPayDay, c.Previous.Start)
				assert.Equal(t, c.NextPayDay, c.Current.End)
				assert.True(t, c.Previous.Start.Before(c.Previous.End))
				assert.True(t, c.Current.Start.Before(c.Current.End))
				assert.Equal(t, day, c.CurrentPayDay.Day())
			})
		}
	}
}

func TestNew_YearBoundaries(t *testing.T) {
	c := New(date(2026, time.January, 10), 5, eight)
	assert.Equal(t, date(2025, time.December, 5), c.PreviousPayDay)

	c = New(date(2025, time.December, 10), 5, eight)
	assert.Equal(t, date(2026, time.January, 5), c.NextPayDay)
}

func TestNew_DayOverflowRollsIntoNextMonth(t *testing.T) {
	// Feb 31 2026 does not exist; calendar normalization lands on Mar 3
	c := New(date(2026, time.March, 20), 31, eight)

	assert.Equal(t, date(2026, time.March, 3), c.PreviousPayDay)
	assert.Equal(t, date(2026, time.March, 31), c.CurrentPayDay)
	assert.Equal(t, date(2026, time.May, 1), c.NextPayDay)
}

func TestBudget_WholeWeeksIgnoreMonthLength(t *testing.T) {
	starts := []time.Time{
		date(2026, time.February, 2),  // crosses a 28-day month
		date(2024, time.February, 20), // crosses a leap day
		date(2026, time.January, 28),  // crosses a 31-day month
		date(2026, time.April, 27),    // crosses a 30-day month
	}

	for _, start := range starts {
		for weeks := 1; weeks <= 6; weeks++ {
			p := Period{Start: start, End: start.AddDate(0, 0, 7*weeks)}
			assert.Equal(t, 5*weeks, p.WorkingDays(), "period %s", p)
			assert.True(t, Budget(p, eight).Equal(decimal.NewFromInt(int64(40*weeks))))
		}
	}
}

func TestBudget_FractionalHours(t *testing.T) {
	p := Period{Start: date(2026, time.March, 16), End: date(2026, time.March, 21)}
	got := Budget(p, decimal.RequireFromString("7.5"))
	assert.True(t, got.Equal(decimal.RequireFromString("37.5")), "got %s", got)
}

func TestBudget_WeekendOnlyIsZero(t *testing.T) {
	p := Period{Start: date(2026, time.March, 14), End: date(2026, time.March, 16)}
	assert.Equal(t, 0, p.WorkingDays())
	assert.True(t, Budget(p, eight).IsZero())

	empty := Period{Start: date(2026, time.March, 16), End: date(2026, time.March, 16)}
	assert.True(t, Budget(empty, eight).IsZero())
}

func TestPeriod_ContainsIsHalfOpen(t *testing.T) {
	p := Period{Start: date(2026, time.March, 15), End: date(2026, time.April, 15)}

	assert.True(t, p.Contains(p.Start))
	assert.True(t, p.Contains(p.End.Add(-time.Millisecond)))
	assert.False(t, p.Contains(p.End))
	assert.False(t, p.Contains(p.Start.Add(-time.Millisecond)))
}

func TestCalendar_String(t *testing.T) {
	c := New(date(2026, time.March, 20), 15, eight)
	require.Equal(t, "previous=[2026-02-15, 2026-03-15) current=[2026-03-15, 2026-04-15) budgets=160/176", c.String())
}
