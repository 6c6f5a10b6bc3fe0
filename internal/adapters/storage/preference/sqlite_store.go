package preference

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"teammood/internal/adapters/storage"
	domain "teammood/internal/domain/preference"
)

var channelColumns = []string{"notify_email", "notify_slack", "notify_teams", "notify_discord", "notify_realtime"}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new preference store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get returns the stored preferences with their team overrides.
// PRE: accountID non-empty
// POST: Overrides ordered by team id; error wraps sql.ErrNoRows when none are stored
func (s *SQLiteStore) Get(ctx context.Context, accountID string) (domain.Preferences, error) {
	q, args, err := sq.Select(append([]string{"account_id", "theme", "language", "updated_at"}, channelColumns...)...).
		From("preference").
		Where(sq.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return domain.Preferences{}, err
	}
	var p domain.Preferences
	var updatedAt string
	c := &p.Channels
	err = s.db.QueryRowContext(ctx, q, args...).Scan(&p.AccountID, &p.Theme, &p.Language, &updatedAt,
		&c.Email, &c.Slack, &c.Teams, &c.Discord, &c.Realtime)
	if err == sql.ErrNoRows {
		return domain.Preferences{}, fmt.Errorf("preferences not found: %w", err)
	}
	if err != nil {
		return domain.Preferences{}, err
	}
	p.UpdatedAt, _ = storage.ParseTime(updatedAt)

	q, args, err = sq.Select(append([]string{"team_id", "override_global"}, channelColumns...)...).
		From("team_notification").
		Where(sq.Eq{"account_id": accountID}).
		OrderBy("team_id").
		ToSql()
	if err != nil {
		return domain.Preferences{}, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var o domain.TeamOverride
		oc := &o.Channels
		if err := rows.Scan(&o.TeamID, &o.OverrideGlobal, &oc.Email, &oc.Slack, &oc.Teams, &oc.Discord, &oc.Realtime); err != nil {
			return domain.Preferences{}, err
		}
		p.Overrides = append(p.Overrides, o)
	}
	return p, rows.Err()
}

// Save replaces the account's preferences and overrides atomically.
// PRE: p validated
// POST: stored overrides equal p.Overrides
func (s *SQLiteStore) Save(ctx context.Context, p domain.Preferences) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c := p.Channels
	q, args, err := sq.Insert("preference").
		Columns(append([]string{"account_id", "theme", "language", "updated_at"}, channelColumns...)...).
		Values(p.AccountID, p.Theme, p.Language, storage.FormatTime(p.UpdatedAt),
			c.Email, c.Slack, c.Teams, c.Discord, c.Realtime).
		Suffix(`ON CONFLICT(account_id) DO UPDATE SET
		   theme=excluded.theme, language=excluded.language, updated_at=excluded.updated_at,
		   notify_email=excluded.notify_email, notify_slack=excluded.notify_slack,
		   notify_teams=excluded.notify_teams, notify_discord=excluded.notify_discord,
		   notify_realtime=excluded.notify_realtime`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM team_notification WHERE account_id = ?`, p.AccountID); err != nil {
		return fmt.Errorf("clear overrides: %w", err)
	}
	if len(p.Overrides) > 0 {
		ins := sq.Insert("team_notification").
			Columns(append([]string{"account_id", "team_id", "override_global"}, channelColumns...)...)
		for _, o := range p.Overrides {
			oc := o.Channels
			ins = ins.Values(p.AccountID, o.TeamID, o.OverrideGlobal, oc.Email, oc.Slack, oc.Teams, oc.Discord, oc.Realtime)
		}
		q, args, err := ins.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("save overrides: %w", err)
		}
	}
	return tx.Commit()
}
