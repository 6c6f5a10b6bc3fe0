package mood

import (
	"sort"
	"time"
)

type accumulator struct {
	total float64
	count int
}

// Aggregate groups submissions into per-day, per-team averages.
// Teams are keyed by display name. Days are compared by calendar date and
// appear in the order they are first seen, which is ascending when the
// input is sorted by date. Submissions without a date are skipped.
// PRE: none
// POST: every Mean is total/count over exactly the matching submissions
func Aggregate(submissions []Submission) []DailyTeamAverages {
	order := make([]string, 0)
	days := make(map[string]time.Time)
	sums := make(map[string]map[string]*accumulator)

	for _, s := range submissions {
		if s.Date.IsZero() {
			continue
		}
		key := DateKey(s.Date)
		teams, seen := sums[key]
		if !seen {
			order = append(order, key)
			days[key] = Day(s.Date)
			teams = make(map[string]*accumulator)
			sums[key] = teams
		}
		acc, ok := teams[s.TeamName]
		if !ok {
			acc = &accumulator{}
			teams[s.TeamName] = acc
		}
		acc.total += s.Value
		acc.count++
	}

	out := make([]DailyTeamAverages, 0, len(order))
	for _, key := range order {
		teams := sums[key]
		averages := make(map[string]DayAggregate, len(teams))
		for name, acc := range teams {
			averages[name] = DayAggregate{Mean: acc.total / float64(acc.count), Count: acc.count}
		}
		out = append(out, DailyTeamAverages{Date: days[key], Averages: averages})
	}
	return out
}

// DailyOverall collapses submissions into one aggregate per calendar day,
// keyed by YYYY-MM-DD, across every team in the input.
// PRE: none
// POST: Count per day equals the number of dated submissions on that day
func DailyOverall(submissions []Submission) map[string]DayAggregate {
	sums := make(map[string]*accumulator)
	for _, s := range submissions {
		if s.Date.IsZero() {
			continue
		}
		key := DateKey(s.Date)
		acc, ok := sums[key]
		if !ok {
			acc = &accumulator{}
			sums[key] = acc
		}
		acc.total += s.Value
		acc.count++
	}
	out := make(map[string]DayAggregate, len(sums))
	for key, acc := range sums {
		out[key] = DayAggregate{Mean: acc.total / float64(acc.count), Count: acc.count}
	}
	return out
}

// TeamNames returns the distinct team keys across all days, in first-seen
// order of the day records and alphabetical within a day.
func TeamNames(days []DailyTeamAverages) []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range days {
		dayNames := make([]string, 0, len(d.Averages))
		for name := range d.Averages {
			if !seen[name] {
				dayNames = append(dayNames, name)
			}
		}
		sort.Strings(dayNames)
		for _, name := range dayNames {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
