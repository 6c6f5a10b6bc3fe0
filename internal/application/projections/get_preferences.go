package projections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domainPreference "teammood/internal/domain/preference"
	domainTeam "teammood/internal/domain/team"
)

// GetPreferencesQuery carries input for the preferences projection.
type GetPreferencesQuery struct {
	AccountID      string
	AcceptLanguage string // used for defaults when nothing is stored yet
}

// TeamChannels shows one team's notification settings.
type TeamChannels struct {
	Team      domainTeam.Team
	Override  domainPreference.TeamOverride
	Effective domainPreference.Channels
}

// GetPreferencesResult carries the output of the preferences projection.
type GetPreferencesResult struct {
	Preferences domainPreference.Preferences
	Languages   []domainPreference.Language
	Teams       []TeamChannels
	Stored      bool
}

// GetPreferencesDeps holds dependencies for the preferences projection.
type GetPreferencesDeps struct {
	PreferenceStore PreferenceStore
	TeamStore       TeamLister // optional; nil skips the per-team list
}

// QueryGetPreferences returns stored preferences or defaults.
// PRE: query.AccountID is non-empty
// POST: Preferences is always valid; Teams lists every team the caller belongs to
func QueryGetPreferences(ctx context.Context, query GetPreferencesQuery, deps GetPreferencesDeps) (GetPreferencesResult, error) {
	if query.AccountID == "" {
		return GetPreferencesResult{}, fmt.Errorf("account_id is required")
	}

	result := GetPreferencesResult{Languages: domainPreference.SupportedLanguages()}
	p, err := deps.PreferenceStore.Get(ctx, query.AccountID)
	switch {
	case err == nil:
		result.Stored = true
	case errors.Is(err, sql.ErrNoRows):
		p = domainPreference.Defaults(query.AccountID, domainPreference.MatchAcceptLanguage(query.AcceptLanguage))
	default:
		return GetPreferencesResult{}, err
	}
	result.Preferences = p

	if deps.TeamStore == nil {
		return result, nil
	}
	teams, err := deps.TeamStore.ListForAccount(ctx, query.AccountID)
	if err != nil {
		return GetPreferencesResult{}, err
	}
	for _, t := range teams {
		result.Teams = append(result.Teams, TeamChannels{
			Team:      t,
			Override:  p.Override(t.ID),
			Effective: p.EffectiveChannels(t.ID),
		})
	}
	return result, nil
}
