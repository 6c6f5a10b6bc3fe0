package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"teammood/internal/domain/mood"
	"teammood/internal/domain/team"
)

// MembershipLookup resolves an account's membership in a team.
// POST: error wraps sql.ErrNoRows when the account is not a member
type MembershipLookup interface {
	GetMember(ctx context.Context, teamID, accountID string) (team.Member, error)
}

// MoodStoreForSubmit defines the store interface needed by SubmitMood.
type MoodStoreForSubmit interface {
	Save(ctx context.Context, e mood.Entry) error
}

// SubmitMoodInput carries input for the orchestrator.
type SubmitMoodInput struct {
	AccountID string
	TeamID    string
	Option    string // "1".."5" or "ooo"
	Date      string // YYYY-MM-DD; empty means today
}

// SubmitMoodDeps holds dependencies for SubmitMood.
type SubmitMoodDeps struct {
	TeamStore  MembershipLookup
	MoodStore  MoodStoreForSubmit
	GenerateID func() string
	Now        func() time.Time
}

// Submit errors.
var (
	ErrFutureMood      = errors.New("mood cannot be logged for a future date")
	ErrInvalidMoodDate = errors.New("date must be YYYY-MM-DD")
)

// ExecuteSubmitMood records the caller's mood for one team and day.
// Resubmitting for the same team and day replaces the earlier entry.
// PRE: caller is a member of TeamID
// POST: entry persisted; out-of-office entries carry no value
func ExecuteSubmitMood(ctx context.Context, input SubmitMoodInput, deps SubmitMoodDeps) (mood.Entry, error) {
	if input.TeamID == "" {
		return mood.Entry{}, mood.ErrEmptyTeam
	}
	opt, err := mood.ParseOption(strings.TrimSpace(input.Option))
	if err != nil {
		return mood.Entry{}, err
	}

	if err := requireMember(ctx, deps.TeamStore, input.TeamID, input.AccountID); err != nil {
		return mood.Entry{}, err
	}

	now := deps.Now().UTC()
	today := mood.Day(now)
	day := today
	if input.Date != "" {
		day, err = mood.ParseDate(input.Date, time.UTC)
		if err != nil {
			return mood.Entry{}, ErrInvalidMoodDate
		}
		if day.After(today) {
			return mood.Entry{}, ErrFutureMood
		}
	}

	e := mood.Entry{
		ID:          deps.GenerateID(),
		AccountID:   input.AccountID,
		TeamID:      input.TeamID,
		Date:        day,
		Value:       opt.Value,
		OutOfOffice: opt.IsOutOfOffice(),
		CreatedAt:   now,
	}
	if err := e.Validate(); err != nil {
		return mood.Entry{}, err
	}
	if err := deps.MoodStore.Save(ctx, e); err != nil {
		return mood.Entry{}, err
	}

	slog.Info("mood_submitted", "account_id", e.AccountID, "team_id", e.TeamID, "date", mood.DateKey(e.Date), "out_of_office", e.OutOfOffice)
	return e, nil
}

// requireMember maps a missing membership to team.ErrNotMember.
func requireMember(ctx context.Context, store MembershipLookup, teamID, accountID string) error {
	_, err := lookupMember(ctx, store, teamID, accountID)
	return err
}

func lookupMember(ctx context.Context, store MembershipLookup, teamID, accountID string) (team.Member, error) {
	if accountID == "" {
		return team.Member{}, team.ErrNotMember
	}
	m, err := store.GetMember(ctx, teamID, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return team.Member{}, team.ErrNotMember
	}
	return m, err
}
