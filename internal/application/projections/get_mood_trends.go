package projections

import (
	"context"
	"fmt"

	moodStore "teammood/internal/adapters/storage/mood"
	domainMood "teammood/internal/domain/mood"
	domainTeam "teammood/internal/domain/team"
)

// DefaultTrendLimit caps how many submissions feed the trend chart.
const DefaultTrendLimit = 30

// TrendPalette is cycled through when colouring series.
var TrendPalette = []string{"#54A0FF", "#00D2D3", "#FF9F43", "#5E72E4", "#11CDEF"}

// GetMoodTrendsQuery carries input for the trends projection.
type GetMoodTrendsQuery struct {
	AccountID string
	Limit     int // most recent submissions considered; <= 0 uses DefaultTrendLimit
}

// TrendSeries is one line on the chart.
// Values[i] is meaningful only when Counts[i] > 0; a zero count is a gap.
type TrendSeries struct {
	Name   string
	Color  string
	Values []float64
	Counts []int
}

// GetMoodTrendsResult carries the output of the trends projection.
type GetMoodTrendsResult struct {
	Dates    []string // YYYY-MM-DD, ascending
	Series   []TrendSeries
	Days     []domainMood.DailyTeamAverages
	HasTeams bool
}

// GetMoodTrendsDeps holds dependencies for the trends projection.
type GetMoodTrendsDeps struct {
	SubmissionStore SubmissionStore
	TeamStore       TeamLister
}

// QueryGetMoodTrends averages the most recent submissions across the caller's teams per day.
// PRE: query.AccountID is non-empty
// POST: one series per team label, aligned with Dates
func QueryGetMoodTrends(ctx context.Context, query GetMoodTrendsQuery, deps GetMoodTrendsDeps) (GetMoodTrendsResult, error) {
	if query.AccountID == "" {
		return GetMoodTrendsResult{}, fmt.Errorf("account_id is required")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultTrendLimit
	}

	teams, err := deps.TeamStore.ListForAccount(ctx, query.AccountID)
	if err != nil {
		return GetMoodTrendsResult{}, err
	}
	result := GetMoodTrendsResult{Dates: []string{}, Series: []TrendSeries{}, HasTeams: len(teams) > 0}
	if len(teams) == 0 {
		return result, nil
	}

	labels := TeamLabels(teams)
	ids := make([]string, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}

	subs, err := deps.SubmissionStore.ListSubmissions(ctx, moodStore.SubmissionFilter{TeamIDs: ids, Limit: limit})
	if err != nil {
		return GetMoodTrendsResult{}, err
	}
	for i := range subs {
		if label, ok := labels[subs[i].TeamID]; ok {
			subs[i].TeamName = label
		}
	}

	days := domainMood.Aggregate(subs)
	result.Days = days
	for _, d := range days {
		result.Dates = append(result.Dates, domainMood.DateKey(d.Date))
	}
	for i, name := range domainMood.TeamNames(days) {
		s := TrendSeries{
			Name:   name,
			Color:  TrendPalette[i%len(TrendPalette)],
			Values: make([]float64, len(days)),
			Counts: make([]int, len(days)),
		}
		for j, d := range days {
			if agg, ok := d.Averages[name]; ok {
				s.Values[j] = agg.Mean
				s.Counts[j] = agg.Count
			}
		}
		result.Series = append(result.Series, s)
	}
	return result, nil
}

// TeamLabels maps team IDs to display labels. Names shared by several of
// the given teams get the invite code appended so their series stay apart.
func TeamLabels(teams []domainTeam.Team) map[string]string {
	counts := make(map[string]int, len(teams))
	for _, t := range teams {
		counts[t.Name]++
	}
	labels := make(map[string]string, len(teams))
	for _, t := range teams {
		if counts[t.Name] > 1 {
			labels[t.ID] = t.Name + " · " + t.InviteCode
			continue
		}
		labels[t.ID] = t.Name
	}
	return labels
}
