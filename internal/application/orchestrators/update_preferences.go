package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"teammood/internal/domain/preference"
	"teammood/internal/domain/team"
)

// PreferenceStoreForUpdate defines the store interface needed by UpdatePreferences.
type PreferenceStoreForUpdate interface {
	Save(ctx context.Context, p preference.Preferences) error
}

// TeamListerForAccount lists the teams an account belongs to.
type TeamListerForAccount interface {
	ListForAccount(ctx context.Context, accountID string) ([]team.Team, error)
}

// UpdatePreferencesInput carries the complete new settings.
type UpdatePreferencesInput struct {
	AccountID string
	Theme     string
	Language  string
	Channels  preference.Channels
	Overrides []preference.TeamOverride
}

// UpdatePreferencesDeps holds dependencies for UpdatePreferences.
type UpdatePreferencesDeps struct {
	PreferenceStore PreferenceStoreForUpdate
	TeamStore       TeamListerForAccount
	Now             func() time.Time
}

// ExecuteUpdatePreferences replaces the caller's theme, language and notification settings.
// PRE: AccountID identifies an existing account
// POST: preferences persisted; overrides exist only for the caller's teams
func ExecuteUpdatePreferences(ctx context.Context, input UpdatePreferencesInput, deps UpdatePreferencesDeps) (preference.Preferences, error) {
	lang, err := preference.NormalizeLanguage(input.Language)
	if err != nil {
		return preference.Preferences{}, err
	}
	p := preference.Preferences{
		AccountID: input.AccountID,
		Theme:     input.Theme,
		Language:  lang,
		Channels:  input.Channels,
		UpdatedAt: deps.Now(),
	}

	if len(input.Overrides) > 0 {
		teams, err := deps.TeamStore.ListForAccount(ctx, input.AccountID)
		if err != nil {
			return preference.Preferences{}, err
		}
		mine := make(map[string]bool, len(teams))
		for _, t := range teams {
			mine[t.ID] = true
		}
		for _, o := range input.Overrides {
			if !mine[o.TeamID] {
				return preference.Preferences{}, team.ErrNotMember
			}
			p.Overrides = append(p.Overrides, o)
		}
	}

	if err := p.Validate(); err != nil {
		return preference.Preferences{}, err
	}
	if err := deps.PreferenceStore.Save(ctx, p); err != nil {
		return preference.Preferences{}, err
	}

	slog.Info("preferences_updated", "account_id", p.AccountID, "theme", p.Theme, "language", p.Language, "overrides", len(p.Overrides))
	return p, nil
}
