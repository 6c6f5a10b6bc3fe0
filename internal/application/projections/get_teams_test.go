package projections

import (
	"context"
	"testing"

	domainTeam "teammood/internal/domain/team"
)

// TestQueryGetTeams tests rosters and the caller's role per team.
func TestQueryGetTeams(t *testing.T) {
	store := &mockTeamStore{
		teams: map[string][]domainTeam.Team{
			"a1": {{ID: "t1", Name: "Design"}, {ID: "t2", Name: "Ops"}},
		},
		members: map[string][]domainTeam.Member{
			"t1": {{AccountID: "a1", Role: domainTeam.RoleOwner}, {AccountID: "a2", Role: domainTeam.RoleMember}},
			"t2": {{AccountID: "a3", Role: domainTeam.RoleOwner}, {AccountID: "a1", Role: domainTeam.RoleMember}},
		},
	}

	views, err := QueryGetTeams(context.Background(), GetTeamsQuery{AccountID: "a1"}, GetTeamsDeps{TeamStore: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("views = %+v", views)
	}
	if views[0].MyRole != domainTeam.RoleOwner || !views[0].CanManage || views[0].MemberCount != 2 {
		t.Errorf("Design view = %+v", views[0])
	}
	if views[1].MyRole != domainTeam.RoleMember || views[1].CanManage {
		t.Errorf("Ops view = %+v", views[1])
	}

	empty, err := QueryGetTeams(context.Background(), GetTeamsQuery{AccountID: "nobody"}, GetTeamsDeps{TeamStore: store})
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("no teams: %v, %v", empty, err)
	}
}
