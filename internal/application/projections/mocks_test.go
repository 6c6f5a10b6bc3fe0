package projections

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	moodStore "teammood/internal/adapters/storage/mood"
	domainMood "teammood/internal/domain/mood"
	domainPreference "teammood/internal/domain/preference"
	domainTeam "teammood/internal/domain/team"
)

type mockSubmissionStore struct {
	subs []domainMood.Submission // ascending by date
	last moodStore.SubmissionFilter
}

// ListSubmissions filters seeded submissions the way the SQLite store does.
// PRE: subs are sorted ascending
// POST: Returns matching submissions, most recent Limit when set
func (m *mockSubmissionStore) ListSubmissions(_ context.Context, f moodStore.SubmissionFilter) ([]domainMood.Submission, error) {
	m.last = f
	ids := make(map[string]bool, len(f.TeamIDs))
	for _, id := range f.TeamIDs {
		ids[id] = true
	}
	out := []domainMood.Submission{}
	for _, s := range m.subs {
		if !ids[s.TeamID] {
			continue
		}
		if !f.From.IsZero() && s.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && s.Date.After(f.To) {
			continue
		}
		out = append(out, s)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

type mockTeamStore struct {
	teams   map[string][]domainTeam.Team   // by account
	members map[string][]domainTeam.Member // by team
}

// ListForAccount returns seeded teams.
func (m *mockTeamStore) ListForAccount(_ context.Context, accountID string) ([]domainTeam.Team, error) {
	return m.teams[accountID], nil
}

// ListMembers returns seeded members.
func (m *mockTeamStore) ListMembers(_ context.Context, teamID string) ([]domainTeam.Member, error) {
	return m.members[teamID], nil
}

type mockPreferenceStore struct {
	prefs map[string]domainPreference.Preferences
	err   error
}

// Get returns seeded preferences or a wrapped sql.ErrNoRows.
func (m *mockPreferenceStore) Get(_ context.Context, accountID string) (domainPreference.Preferences, error) {
	if m.err != nil {
		return domainPreference.Preferences{}, m.err
	}
	p, ok := m.prefs[accountID]
	if !ok {
		return domainPreference.Preferences{}, fmt.Errorf("preferences not found: %w", sql.ErrNoRows)
	}
	return p, nil
}

func day(s string) time.Time {
	d, err := domainMood.ParseDate(s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

func sub(date, teamID, name string, v float64) domainMood.Submission {
	return domainMood.Submission{Date: day(date), TeamID: teamID, TeamName: name, Value: v}
}
