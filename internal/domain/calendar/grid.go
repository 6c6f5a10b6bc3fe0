package calendar

import (
	"time"

	"teammood/internal/domain/mood"
)

// MonthStart returns UTC midnight on the first day of t's month. The month
// is read in t's location.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns UTC midnight on the last day of t's month.
func MonthEnd(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

// GridSpan returns the Sunday on or before the first of the month and the
// Saturday on or after the last of the month, both at UTC midnight.
func GridSpan(reference time.Time) (time.Time, time.Time) {
	start := MonthStart(reference)
	end := MonthEnd(reference)
	start = start.AddDate(0, 0, -int(start.Weekday()))
	end = end.AddDate(0, 0, int(time.Saturday-end.Weekday()))
	return start, end
}

// BuildGrid lays out reference's month as whole weeks, attaching whatever
// lookup reports for each day. A nil lookup yields cells without data.
// Cell dates are UTC midnights of the calendar days, whatever reference's
// location, so DST gaps at local midnight cannot repeat or skip a day.
// PRE: none
// POST: len(week) == 7 for every week; span is GridSpan(reference)
func BuildGrid(reference time.Time, lookup Lookup) Grid {
	start, end := GridSpan(reference)
	month := MonthStart(reference)

	var cells []Cell
	for i := 0; ; i++ {
		d := start.AddDate(0, 0, i)
		if d.After(end) {
			break
		}
		cell := Cell{
			Date:           d,
			InCurrentMonth: d.Year() == month.Year() && d.Month() == month.Month(),
		}
		if lookup != nil {
			if agg, ok := lookup(d); ok {
				a := agg
				cell.Aggregate = &a
			}
		}
		cells = append(cells, cell)
	}

	weeks := make([][]Cell, 0, len(cells)/DaysPerWeek)
	for i := 0; i+DaysPerWeek <= len(cells); i += DaysPerWeek {
		weeks = append(weeks, cells[i:i+DaysPerWeek])
	}
	return Grid{Month: month, Weeks: weeks}
}

// Detail returns the aggregate for a selected day. ok is false when the
// day has no submissions, which callers render as "no data" rather than
// an average of zero.
func Detail(lookup Lookup, day time.Time) (agg mood.DayAggregate, ok bool) {
	if lookup == nil {
		return mood.DayAggregate{}, false
	}
	return lookup(day)
}
