package team

import (
	"context"

	domain "teammood/internal/domain/team"
)

// Store persists teams and their memberships.
type Store interface {
	// Create inserts the team and its first member in one transaction.
	// PRE: t and owner validated; owner.TeamID == t.ID
	// POST: both rows exist or neither does
	Create(ctx context.Context, t domain.Team, owner domain.Member) error

	GetByID(ctx context.Context, id string) (domain.Team, error)
	GetByInviteCode(ctx context.Context, code string) (domain.Team, error)

	// ListForAccount returns the teams accountID belongs to, ordered by name.
	ListForAccount(ctx context.Context, accountID string) ([]domain.Team, error)

	GetMember(ctx context.Context, teamID, accountID string) (domain.Member, error)

	// ListMembers returns members with account details, owners first.
	ListMembers(ctx context.Context, teamID string) ([]domain.Member, error)

	// SaveMember inserts a membership or updates its role.
	SaveMember(ctx context.Context, m domain.Member) error

	DeleteMember(ctx context.Context, teamID, accountID string) error

	// DemoteOwner and RemoveOwner check for another Owner and write in one
	// statement, returning domain.ErrLastOwner when none remains.
	DemoteOwner(ctx context.Context, teamID, accountID, role string) error
	RemoveOwner(ctx context.Context, teamID, accountID string) error
}
