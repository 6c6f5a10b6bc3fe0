package preference

import (
	"context"

	domain "teammood/internal/domain/preference"
)

// Store persists display and notification preferences.
type Store interface {
	// Get returns the stored preferences with their team overrides.
	// POST: error wraps sql.ErrNoRows when none are stored
	Get(ctx context.Context, accountID string) (domain.Preferences, error)

	// Save replaces the account's preferences and overrides.
	Save(ctx context.Context, p domain.Preferences) error
}
