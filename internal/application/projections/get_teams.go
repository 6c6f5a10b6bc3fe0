package projections

import (
	"context"
	"fmt"

	domainTeam "teammood/internal/domain/team"
)

// GetTeamsQuery carries input for the teams projection.
type GetTeamsQuery struct {
	AccountID string
}

// TeamView is one team with its roster as seen by the caller.
type TeamView struct {
	Team        domainTeam.Team
	Members     []domainTeam.Member
	MemberCount int
	MyRole      string
	CanManage   bool
}

// GetTeamsDeps holds dependencies for the teams projection.
type GetTeamsDeps struct {
	TeamStore TeamStore
}

// QueryGetTeams lists the caller's teams with their members.
// PRE: query.AccountID is non-empty
// POST: teams ordered by name; MyRole is the caller's role in each
func QueryGetTeams(ctx context.Context, query GetTeamsQuery, deps GetTeamsDeps) ([]TeamView, error) {
	if query.AccountID == "" {
		return nil, fmt.Errorf("account_id is required")
	}
	teams, err := deps.TeamStore.ListForAccount(ctx, query.AccountID)
	if err != nil {
		return nil, err
	}

	views := make([]TeamView, 0, len(teams))
	for _, t := range teams {
		members, err := deps.TeamStore.ListMembers(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("list members of %s: %w", t.ID, err)
		}
		v := TeamView{Team: t, Members: members, MemberCount: len(members)}
		for _, m := range members {
			if m.AccountID == query.AccountID {
				v.MyRole = m.Role
				v.CanManage = m.CanManage()
				break
			}
		}
		views = append(views, v)
	}
	return views, nil
}
