package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"teammood/internal/domain/account"
	"teammood/internal/domain/team"
)

// TeamStoreForManage defines the store interface needed by the team orchestrators.
type TeamStoreForManage interface {
	Create(ctx context.Context, t team.Team, owner team.Member) error
	GetByInviteCode(ctx context.Context, code string) (team.Team, error)
	GetMember(ctx context.Context, teamID, accountID string) (team.Member, error)
	SaveMember(ctx context.Context, m team.Member) error
	DeleteMember(ctx context.Context, teamID, accountID string) error
	DemoteOwner(ctx context.Context, teamID, accountID, role string) error
	RemoveOwner(ctx context.Context, teamID, accountID string) error
}

// AccountLookupByEmail finds the account being added to a team.
type AccountLookupByEmail interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
}

// Team orchestration errors.
var (
	ErrTeamNotFound    = errors.New("no team matches that invite code")
	ErrAccountNotFound = errors.New("no account exists with that email")
	ErrOwnerRequired   = errors.New("only team owners can grant or change the Owner role")
	ErrInviteExhausted = errors.New("could not allocate a unique invite code")
)

// maxInviteAttempts bounds invite code regeneration on collision.
const maxInviteAttempts = 5

// --- Create Team ---

// CreateTeamInput carries input for CreateTeam.
type CreateTeamInput struct {
	AccountID string
	Name      string
}

// CreateTeamDeps holds dependencies for CreateTeam.
type CreateTeamDeps struct {
	TeamStore    TeamStoreForManage
	GenerateID   func() string
	GenerateCode func() (string, error)
	Now          func() time.Time
}

// ExecuteCreateTeam creates a team with a fresh invite code; the creator becomes Owner.
// PRE: AccountID identifies an existing account
// POST: team and owner membership persisted together
func ExecuteCreateTeam(ctx context.Context, input CreateTeamInput, deps CreateTeamDeps) (team.Team, error) {
	if input.AccountID == "" {
		return team.Team{}, errors.New("account is required")
	}
	now := deps.Now()
	t := team.Team{
		ID:        deps.GenerateID(),
		Name:      strings.TrimSpace(input.Name),
		CreatedBy: input.AccountID,
		CreatedAt: now,
	}

	code, err := uniqueInviteCode(ctx, deps)
	if err != nil {
		return team.Team{}, err
	}
	t.InviteCode = code
	if err := t.Validate(); err != nil {
		return team.Team{}, err
	}

	owner := team.Member{
		ID:        deps.GenerateID(),
		TeamID:    t.ID,
		AccountID: input.AccountID,
		Role:      team.RoleOwner,
		CreatedAt: now,
	}
	if err := deps.TeamStore.Create(ctx, t, owner); err != nil {
		return team.Team{}, err
	}

	slog.Info("team_event", "event", "team_created", "team_id", t.ID, "account_id", input.AccountID)
	return t, nil
}

func uniqueInviteCode(ctx context.Context, deps CreateTeamDeps) (string, error) {
	for i := 0; i < maxInviteAttempts; i++ {
		code, err := deps.GenerateCode()
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		_, err = deps.TeamStore.GetByInviteCode(ctx, code)
		if errors.Is(err, sql.ErrNoRows) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
		slog.Debug("invite_code_collision", "attempt", i+1)
	}
	return "", ErrInviteExhausted
}

// --- Join Team ---

// JoinTeamInput carries input for JoinTeam.
type JoinTeamInput struct {
	AccountID  string
	InviteCode string
}

// JoinTeamDeps holds dependencies for JoinTeam.
type JoinTeamDeps struct {
	TeamStore  TeamStoreForManage
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteJoinTeam adds the caller to the team with the given invite code as a Member.
// PRE: AccountID identifies an existing account
// POST: caller is a member; an existing membership is left unchanged
func ExecuteJoinTeam(ctx context.Context, input JoinTeamInput, deps JoinTeamDeps) (team.Team, error) {
	code := team.NormalizeInviteCode(input.InviteCode)
	if !team.IsValidInviteCode(code) {
		return team.Team{}, team.ErrInvalidInviteCode
	}

	t, err := deps.TeamStore.GetByInviteCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return team.Team{}, ErrTeamNotFound
	}
	if err != nil {
		return team.Team{}, err
	}

	if _, err := lookupMember(ctx, deps.TeamStore, t.ID, input.AccountID); err == nil {
		return t, nil
	} else if !errors.Is(err, team.ErrNotMember) {
		return team.Team{}, err
	}

	m := team.Member{
		ID:        deps.GenerateID(),
		TeamID:    t.ID,
		AccountID: input.AccountID,
		Role:      team.RoleMember,
		CreatedAt: deps.Now(),
	}
	if err := m.Validate(); err != nil {
		return team.Team{}, err
	}
	if err := deps.TeamStore.SaveMember(ctx, m); err != nil {
		return team.Team{}, err
	}

	slog.Info("team_event", "event", "team_joined", "team_id", t.ID, "account_id", input.AccountID)
	return t, nil
}

// --- Add Member ---

// AddTeamMemberInput carries input for AddTeamMember.
type AddTeamMemberInput struct {
	ActorID string
	TeamID  string
	Email   string
	Role    string // defaults to Member
}

// AddTeamMemberDeps holds dependencies for AddTeamMember.
type AddTeamMemberDeps struct {
	TeamStore    TeamStoreForManage
	AccountStore AccountLookupByEmail
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteAddTeamMember adds an existing account to a team by email.
// PRE: actor is an Owner or Admin of TeamID
// POST: new membership persisted with the requested role
func ExecuteAddTeamMember(ctx context.Context, input AddTeamMemberInput, deps AddTeamMemberDeps) (team.Member, error) {
	role := input.Role
	if role == "" {
		role = team.RoleMember
	}
	if !team.IsValidRole(role) {
		return team.Member{}, team.ErrInvalidRole
	}

	actor, err := requireManager(ctx, deps.TeamStore, input.TeamID, input.ActorID)
	if err != nil {
		return team.Member{}, err
	}
	if role == team.RoleOwner && actor.Role != team.RoleOwner {
		return team.Member{}, ErrOwnerRequired
	}

	acct, err := deps.AccountStore.GetByEmail(ctx, account.NormalizeEmail(input.Email))
	if err != nil {
		return team.Member{}, ErrAccountNotFound
	}

	if _, err := lookupMember(ctx, deps.TeamStore, input.TeamID, acct.ID); err == nil {
		return team.Member{}, team.ErrAlreadyMember
	} else if !errors.Is(err, team.ErrNotMember) {
		return team.Member{}, err
	}

	m := team.Member{
		ID:          deps.GenerateID(),
		TeamID:      input.TeamID,
		AccountID:   acct.ID,
		Role:        role,
		CreatedAt:   deps.Now(),
		Email:       acct.Email,
		DisplayName: acct.DisplayName,
	}
	if err := deps.TeamStore.SaveMember(ctx, m); err != nil {
		return team.Member{}, err
	}

	slog.Info("team_event", "event", "member_added", "team_id", m.TeamID, "account_id", m.AccountID, "role", m.Role, "actor_id", input.ActorID)
	return m, nil
}

// --- Update Role ---

// UpdateMemberRoleInput carries input for UpdateMemberRole.
type UpdateMemberRoleInput struct {
	ActorID   string
	TeamID    string
	AccountID string
	Role      string
}

// UpdateMemberRoleDeps holds dependencies for UpdateMemberRole.
type UpdateMemberRoleDeps struct {
	TeamStore TeamStoreForManage
}

// ExecuteUpdateMemberRole changes a member's role.
// PRE: actor is an Owner or Admin of TeamID
// POST: role updated
// INVARIANT: the team keeps at least one Owner
func ExecuteUpdateMemberRole(ctx context.Context, input UpdateMemberRoleInput, deps UpdateMemberRoleDeps) (team.Member, error) {
	if !team.IsValidRole(input.Role) {
		return team.Member{}, team.ErrInvalidRole
	}
	actor, err := requireManager(ctx, deps.TeamStore, input.TeamID, input.ActorID)
	if err != nil {
		return team.Member{}, err
	}

	target, err := lookupMember(ctx, deps.TeamStore, input.TeamID, input.AccountID)
	if err != nil {
		return team.Member{}, err
	}
	if target.Role == input.Role {
		return target, nil
	}
	if (target.Role == team.RoleOwner || input.Role == team.RoleOwner) && actor.Role != team.RoleOwner {
		return team.Member{}, ErrOwnerRequired
	}
	if target.Role == team.RoleOwner {
		err = deps.TeamStore.DemoteOwner(ctx, input.TeamID, input.AccountID, input.Role)
	} else {
		updated := target
		updated.Role = input.Role
		err = deps.TeamStore.SaveMember(ctx, updated)
	}
	if err != nil {
		return team.Member{}, err
	}
	target.Role = input.Role

	slog.Info("team_event", "event", "member_role_changed", "team_id", target.TeamID, "account_id", target.AccountID, "role", target.Role, "actor_id", input.ActorID)
	return target, nil
}

// --- Remove Member ---

// RemoveTeamMemberInput carries input for RemoveTeamMember.
type RemoveTeamMemberInput struct {
	ActorID   string
	TeamID    string
	AccountID string
}

// RemoveTeamMemberDeps holds dependencies for RemoveTeamMember.
type RemoveTeamMemberDeps struct {
	TeamStore TeamStoreForManage
}

// ExecuteRemoveTeamMember removes a member from a team. Members may always remove themselves.
// PRE: actor is an Owner or Admin of TeamID, or AccountID == ActorID
// POST: membership deleted
// INVARIANT: the team keeps at least one Owner
func ExecuteRemoveTeamMember(ctx context.Context, input RemoveTeamMemberInput, deps RemoveTeamMemberDeps) error {
	var actor team.Member
	var err error
	if input.ActorID == input.AccountID {
		actor, err = lookupMember(ctx, deps.TeamStore, input.TeamID, input.ActorID)
	} else {
		actor, err = requireManager(ctx, deps.TeamStore, input.TeamID, input.ActorID)
	}
	if err != nil {
		return err
	}

	target, err := lookupMember(ctx, deps.TeamStore, input.TeamID, input.AccountID)
	if err != nil {
		return err
	}
	if target.Role == team.RoleOwner {
		if actor.Role != team.RoleOwner {
			return ErrOwnerRequired
		}
		err = deps.TeamStore.RemoveOwner(ctx, input.TeamID, input.AccountID)
	} else {
		err = deps.TeamStore.DeleteMember(ctx, input.TeamID, input.AccountID)
	}
	if err != nil {
		return err
	}

	slog.Info("team_event", "event", "member_removed", "team_id", input.TeamID, "account_id", input.AccountID, "actor_id", input.ActorID)
	return nil
}

func requireManager(ctx context.Context, store MembershipLookup, teamID, actorID string) (team.Member, error) {
	actor, err := lookupMember(ctx, store, teamID, actorID)
	if err != nil {
		return team.Member{}, err
	}
	if !actor.CanManage() {
		return team.Member{}, team.ErrNotManager
	}
	return actor, nil
}
