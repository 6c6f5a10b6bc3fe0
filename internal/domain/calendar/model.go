package calendar

import (
	"time"

	"teammood/internal/domain/mood"
)

// DaysPerWeek is the width of every grid row. Weeks start on Sunday.
const DaysPerWeek = 7

// Lookup returns the aggregate recorded for a calendar day, if any.
type Lookup func(day time.Time) (mood.DayAggregate, bool)

// MapLookup adapts a YYYY-MM-DD keyed map into a Lookup.
func MapLookup(m map[string]mood.DayAggregate) Lookup {
	return func(day time.Time) (mood.DayAggregate, bool) {
		agg, ok := m[mood.DateKey(day)]
		return agg, ok
	}
}

// Cell is one day in the month grid.
type Cell struct {
	Date           time.Time
	InCurrentMonth bool
	Aggregate      *mood.DayAggregate // nil when no submissions exist for the day
}

// Key returns the cell's YYYY-MM-DD key.
func (c Cell) Key() string {
	return mood.DateKey(c.Date)
}

// HasData reports whether the cell carries an aggregate.
func (c Cell) HasData() bool {
	return c.Aggregate != nil
}

// Grid is a month view laid out as whole Sunday-to-Saturday weeks.
// INVARIANT: every week has exactly DaysPerWeek cells; dates are contiguous
// and ascending; the span covers the whole reference month.
type Grid struct {
	Month time.Time // first day of the reference month
	Weeks [][]Cell
}

// Cells returns every cell in row-major order.
func (g Grid) Cells() []Cell {
	out := make([]Cell, 0, len(g.Weeks)*DaysPerWeek)
	for _, w := range g.Weeks {
		out = append(out, w...)
	}
	return out
}

// Start returns the first date in the grid, or the zero time for an empty grid.
func (g Grid) Start() time.Time {
	if len(g.Weeks) == 0 {
		return time.Time{}
	}
	return g.Weeks[0][0].Date
}

// End returns the last date in the grid, or the zero time for an empty grid.
func (g Grid) End() time.Time {
	if len(g.Weeks) == 0 {
		return time.Time{}
	}
	last := g.Weeks[len(g.Weeks)-1]
	return last[len(last)-1].Date
}

// Find returns the cell for day if it lies within the grid.
func (g Grid) Find(day time.Time) (Cell, bool) {
	key := mood.DateKey(day)
	for _, w := range g.Weeks {
		for _, c := range w {
			if c.Key() == key {
				return c, true
			}
		}
	}
	return Cell{}, false
}

// PrevMonth returns the first day of the month before the grid's month.
func (g Grid) PrevMonth() time.Time {
	return g.Month.AddDate(0, -1, 0)
}

// NextMonth returns the first day of the month after the grid's month.
func (g Grid) NextMonth() time.Time {
	return g.Month.AddDate(0, 1, 0)
}
