package team

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"teammood/internal/adapters/storage"
	domain "teammood/internal/domain/team"
)

var teamColumns = []string{"t.id", "t.name", "t.invite_code", "t.created_by", "t.created_at"}

var memberColumns = []string{"m.id", "m.team_id", "m.account_id", "m.role", "m.created_at", "a.email", "a.display_name"}

// roleRank orders owners, then admins, then members.
const roleRank = "CASE m.role WHEN 'Owner' THEN 0 WHEN 'Admin' THEN 1 ELSE 2 END"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new team store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts the team and its owner membership atomically.
// PRE: t and owner validated; owner.TeamID == t.ID
// POST: both rows exist or neither does
func (s *SQLiteStore) Create(ctx context.Context, t domain.Team, owner domain.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q, args, err := sq.Insert("team").
		Columns("id", "name", "invite_code", "created_by", "created_at").
		Values(t.ID, t.Name, t.InviteCode, t.CreatedBy, storage.FormatTime(t.CreatedAt)).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert team: %w", err)
	}

	q, args, err = insertMember(owner).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert owner: %w", err)
	}
	return tx.Commit()
}

// GetByID retrieves a team by ID.
// PRE: id is non-empty
// POST: Returns the team or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Team, error) {
	return s.getOne(ctx, sq.Eq{"t.id": id})
}

// GetByInviteCode retrieves a team by its normalized invite code.
// PRE: code is non-empty
// POST: Returns the team or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByInviteCode(ctx context.Context, code string) (domain.Team, error) {
	return s.getOne(ctx, sq.Eq{"t.invite_code": domain.NormalizeInviteCode(code)})
}

func (s *SQLiteStore) getOne(ctx context.Context, where sq.Eq) (domain.Team, error) {
	q, args, err := sq.Select(teamColumns...).From("team t").Where(where).ToSql()
	if err != nil {
		return domain.Team{}, err
	}
	t, err := scanTeam(s.db.QueryRowContext(ctx, q, args...).Scan)
	if err == sql.ErrNoRows {
		return domain.Team{}, fmt.Errorf("team not found: %w", err)
	}
	return t, err
}

// ListForAccount returns the teams accountID belongs to, ordered by name.
// PRE: accountID is non-empty
// POST: Returns zero or more teams
func (s *SQLiteStore) ListForAccount(ctx context.Context, accountID string) ([]domain.Team, error) {
	q, args, err := sq.Select(teamColumns...).
		From("team t").
		Join("team_member m ON m.team_id = t.id").
		Where(sq.Eq{"m.account_id": accountID}).
		OrderBy("t.name COLLATE NOCASE", "t.created_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		t, err := scanTeam(rows.Scan)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// GetMember retrieves one membership.
// PRE: teamID and accountID non-empty
// POST: Returns the member or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetMember(ctx context.Context, teamID, accountID string) (domain.Member, error) {
	q, args, err := selectMembers().Where(sq.Eq{"m.team_id": teamID, "m.account_id": accountID}).ToSql()
	if err != nil {
		return domain.Member{}, err
	}
	m, err := scanMember(s.db.QueryRowContext(ctx, q, args...).Scan)
	if err == sql.ErrNoRows {
		return domain.Member{}, fmt.Errorf("member not found: %w", err)
	}
	return m, err
}

// ListMembers returns members with account details, owners first then by join time.
// PRE: teamID non-empty
// POST: Returns zero or more members
func (s *SQLiteStore) ListMembers(ctx context.Context, teamID string) ([]domain.Member, error) {
	q, args, err := selectMembers().
		Where(sq.Eq{"m.team_id": teamID}).
		OrderBy(roleRank, "m.created_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		m, err := scanMember(rows.Scan)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// SaveMember inserts a membership or updates the role of an existing one.
// PRE: m validated
// POST: exactly one row for (m.TeamID, m.AccountID) with m.Role
func (s *SQLiteStore) SaveMember(ctx context.Context, m domain.Member) error {
	q, args, err := insertMember(m).
		Suffix("ON CONFLICT(team_id, account_id) DO UPDATE SET role=excluded.role").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("save member: %w", err)
	}
	return nil
}

// DeleteMember removes a membership. Missing rows are not an error.
func (s *SQLiteStore) DeleteMember(ctx context.Context, teamID, accountID string) error {
	q, args, err := sq.Delete("team_member").Where(sq.Eq{"team_id": teamID, "account_id": accountID}).ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, q, args...)
	return err
}

// ownersRemain is true while the team has another owner besides the row
// being changed. Evaluated inside the write statement, so two owners
// stepping down at once cannot both pass it.
const ownersRemain = "(SELECT COUNT(*) FROM team_member WHERE team_id = ? AND role = ?) > 1"

// DemoteOwner sets a new role on an Owner, unless they are the team's last Owner.
// PRE: role is valid and not Owner
// POST: role updated, or domain.ErrLastOwner and nothing changed
func (s *SQLiteStore) DemoteOwner(ctx context.Context, teamID, accountID, role string) error {
	q, args, err := sq.Update("team_member").
		Set("role", role).
		Where(sq.Eq{"team_id": teamID, "account_id": accountID, "role": domain.RoleOwner}).
		Where(ownersRemain, teamID, domain.RoleOwner).
		ToSql()
	if err != nil {
		return err
	}
	return s.execGuarded(ctx, "demote owner", q, args)
}

// RemoveOwner deletes an Owner's membership, unless they are the team's last Owner.
// POST: membership deleted, or domain.ErrLastOwner and nothing changed
func (s *SQLiteStore) RemoveOwner(ctx context.Context, teamID, accountID string) error {
	q, args, err := sq.Delete("team_member").
		Where(sq.Eq{"team_id": teamID, "account_id": accountID, "role": domain.RoleOwner}).
		Where(ownersRemain, teamID, domain.RoleOwner).
		ToSql()
	if err != nil {
		return err
	}
	return s.execGuarded(ctx, "remove owner", q, args)
}

func (s *SQLiteStore) execGuarded(ctx context.Context, op, q string, args []any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return domain.ErrLastOwner
	}
	return nil
}

func selectMembers() sq.SelectBuilder {
	return sq.Select(memberColumns...).
		From("team_member m").
		Join("account a ON a.id = m.account_id")
}

func insertMember(m domain.Member) sq.InsertBuilder {
	return sq.Insert("team_member").
		Columns("id", "team_id", "account_id", "role", "created_at").
		Values(m.ID, m.TeamID, m.AccountID, m.Role, storage.FormatTime(m.CreatedAt))
}

func scanTeam(scan func(dest ...any) error) (domain.Team, error) {
	var t domain.Team
	var createdAt string
	if err := scan(&t.ID, &t.Name, &t.InviteCode, &t.CreatedBy, &createdAt); err != nil {
		return domain.Team{}, err
	}
	t.CreatedAt, _ = storage.ParseTime(createdAt)
	return t, nil
}

func scanMember(scan func(dest ...any) error) (domain.Member, error) {
	var m domain.Member
	var createdAt string
	if err := scan(&m.ID, &m.TeamID, &m.AccountID, &m.Role, &createdAt, &m.Email, &m.DisplayName); err != nil {
		return domain.Member{}, err
	}
	m.CreatedAt, _ = storage.ParseTime(createdAt)
	return m, nil
}
