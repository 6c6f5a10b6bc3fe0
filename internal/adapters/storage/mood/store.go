package mood

import (
	"context"
	"time"

	domain "teammood/internal/domain/mood"
)

// SubmissionFilter narrows ListSubmissions.
type SubmissionFilter struct {
	TeamIDs []string  // required; an empty list matches nothing
	From    time.Time // first day included; zero means unbounded
	To      time.Time // last day included; zero means unbounded
	Limit   int       // when > 0, keep only the most recent Limit rows
}

// Store persists mood entries.
type Store interface {
	// Save records an entry, replacing any earlier entry by the same
	// account for the same team and day.
	Save(ctx context.Context, e domain.Entry) error

	// ListForAccountOn returns the account's entries for one day across teams.
	ListForAccountOn(ctx context.Context, accountID string, day time.Time) ([]domain.Entry, error)

	// ListSubmissions returns valued (not out-of-office) submissions with team
	// names joined in, sorted by ascending date.
	ListSubmissions(ctx context.Context, f SubmissionFilter) ([]domain.Submission, error)
}
