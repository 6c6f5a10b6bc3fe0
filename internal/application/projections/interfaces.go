package projections

import (
	"context"

	moodStore "teammood/internal/adapters/storage/mood"
	domainMood "teammood/internal/domain/mood"
	domainPreference "teammood/internal/domain/preference"
	domainTeam "teammood/internal/domain/team"
)

// SubmissionStore interface for mood submission queries.
type SubmissionStore interface {
	ListSubmissions(ctx context.Context, f moodStore.SubmissionFilter) ([]domainMood.Submission, error)
}

// TeamStore interface for team queries.
type TeamStore interface {
	ListForAccount(ctx context.Context, accountID string) ([]domainTeam.Team, error)
	ListMembers(ctx context.Context, teamID string) ([]domainTeam.Member, error)
}

// TeamLister is the subset of TeamStore that only lists an account's teams.
type TeamLister interface {
	ListForAccount(ctx context.Context, accountID string) ([]domainTeam.Team, error)
}

// PreferenceStore interface for preference queries.
type PreferenceStore interface {
	Get(ctx context.Context, accountID string) (domainPreference.Preferences, error)
}
