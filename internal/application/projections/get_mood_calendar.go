package projections

import (
	"context"
	"errors"
	"fmt"
	"time"

	moodStore "teammood/internal/adapters/storage/mood"
	"teammood/internal/domain/calendar"
	domainMood "teammood/internal/domain/mood"
	domainTeam "teammood/internal/domain/team"
)

// MonthLayout is the format of the month query parameter.
const MonthLayout = "2006-01"

// Calendar query errors.
var (
	ErrInvalidMonth = errors.New("month must be YYYY-MM")
	ErrInvalidDay   = errors.New("selected day must be YYYY-MM-DD")
)

// GetMoodCalendarQuery carries input for the calendar projection.
type GetMoodCalendarQuery struct {
	AccountID string
	Month     string    // YYYY-MM; empty means the month containing Now
	TeamID    string    // empty means every team the caller belongs to
	Selected  string    // optional YYYY-MM-DD
	Now       time.Time // optional: if zero, time.Now() is used
}

// SelectedDay is the detail panel for one clicked date.
type SelectedDay struct {
	Date      time.Time
	Aggregate domainMood.DayAggregate
	HasData   bool
}

// GetMoodCalendarResult carries the output of the calendar projection.
type GetMoodCalendarResult struct {
	Grid     calendar.Grid
	Teams    []domainTeam.Team
	TeamID   string
	Selected *SelectedDay
}

// GetMoodCalendarDeps holds dependencies for the calendar projection.
type GetMoodCalendarDeps struct {
	SubmissionStore SubmissionStore
	TeamStore       TeamLister
}

// QueryGetMoodCalendar builds the month grid of daily mood averages.
// PRE: query.AccountID is non-empty; TeamID, when set, is one of the caller's teams
// POST: Grid spans whole weeks around the month; cells carry the day's average when any mood was logged
func QueryGetMoodCalendar(ctx context.Context, query GetMoodCalendarQuery, deps GetMoodCalendarDeps) (GetMoodCalendarResult, error) {
	if query.AccountID == "" {
		return GetMoodCalendarResult{}, fmt.Errorf("account_id is required")
	}
	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}

	reference := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if query.Month != "" {
		m, err := time.Parse(MonthLayout, query.Month)
		if err != nil {
			return GetMoodCalendarResult{}, ErrInvalidMonth
		}
		reference = m
	}

	var selected time.Time
	if query.Selected != "" {
		d, err := domainMood.ParseDate(query.Selected, time.UTC)
		if err != nil {
			return GetMoodCalendarResult{}, ErrInvalidDay
		}
		selected = d
	}

	teams, err := deps.TeamStore.ListForAccount(ctx, query.AccountID)
	if err != nil {
		return GetMoodCalendarResult{}, err
	}
	ids := make([]string, 0, len(teams))
	for _, t := range teams {
		if query.TeamID == "" || t.ID == query.TeamID {
			ids = append(ids, t.ID)
		}
	}
	if query.TeamID != "" && len(ids) == 0 {
		return GetMoodCalendarResult{}, domainTeam.ErrNotMember
	}

	from, to := calendar.GridSpan(reference)
	subs, err := deps.SubmissionStore.ListSubmissions(ctx, moodStore.SubmissionFilter{TeamIDs: ids, From: from, To: to})
	if err != nil {
		return GetMoodCalendarResult{}, err
	}

	lookup := calendar.MapLookup(domainMood.DailyOverall(subs))
	result := GetMoodCalendarResult{
		Grid:   calendar.BuildGrid(reference, lookup),
		Teams:  teams,
		TeamID: query.TeamID,
	}
	if !selected.IsZero() {
		agg, ok := calendar.Detail(lookup, selected)
		result.Selected = &SelectedDay{Date: selected, Aggregate: agg, HasData: ok}
	}
	return result, nil
}
