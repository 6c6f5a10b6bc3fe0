package mood

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"teammood/internal/adapters/storage"
	domain "teammood/internal/domain/mood"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new mood store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save upserts on (account_id, team_id, mood_date).
// PRE: e validated
// POST: exactly one row for the account, team and day carries e's value
func (s *SQLiteStore) Save(ctx context.Context, e domain.Entry) error {
	var value any
	if !e.OutOfOffice {
		value = e.Value
	}
	q, args, err := sq.Insert("mood_submission").
		Columns("id", "account_id", "team_id", "mood_date", "value", "out_of_office", "created_at").
		Values(e.ID, e.AccountID, e.TeamID, domain.DateKey(e.Date), value, e.OutOfOffice, storage.FormatTime(e.CreatedAt)).
		Suffix(`ON CONFLICT(account_id, team_id, mood_date) DO UPDATE SET
		   value=excluded.value, out_of_office=excluded.out_of_office, created_at=excluded.created_at`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("save mood: %w", err)
	}
	return nil
}

// ListForAccountOn returns the account's entries for day, ordered by team.
// PRE: accountID non-empty
// POST: at most one entry per team
func (s *SQLiteStore) ListForAccountOn(ctx context.Context, accountID string, day time.Time) ([]domain.Entry, error) {
	q, args, err := sq.Select("id", "account_id", "team_id", "mood_date", "value", "out_of_office", "created_at").
		From("mood_submission").
		Where(sq.Eq{"account_id": accountID, "mood_date": domain.DateKey(day)}).
		OrderBy("team_id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list moods: %w", err)
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		var e domain.Entry
		var date, createdAt string
		var value sql.NullInt64
		if err := rows.Scan(&e.ID, &e.AccountID, &e.TeamID, &date, &value, &e.OutOfOffice, &createdAt); err != nil {
			return nil, err
		}
		e.Date, _ = domain.ParseDate(date, day.Location())
		e.Value = int(value.Int64)
		e.CreatedAt, _ = storage.ParseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListSubmissions returns valued submissions for the filter's teams in
// ascending date order. With a Limit, the most recent rows are kept.
// PRE: none
// POST: out-of-office rows are never returned; len <= f.Limit when f.Limit > 0
func (s *SQLiteStore) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]domain.Submission, error) {
	if len(f.TeamIDs) == 0 {
		return []domain.Submission{}, nil
	}

	filtered := func(cols ...string) sq.SelectBuilder {
		b := sq.Select(cols...).
			From("mood_submission s").
			Join("team t ON t.id = s.team_id").
			Where(sq.Eq{"s.team_id": f.TeamIDs}).
			Where(sq.Eq{"s.out_of_office": false}).
			Where(sq.NotEq{"s.value": nil})
		if !f.From.IsZero() {
			b = b.Where(sq.GtOrEq{"s.mood_date": domain.DateKey(f.From)})
		}
		if !f.To.IsZero() {
			b = b.Where(sq.LtOrEq{"s.mood_date": domain.DateKey(f.To)})
		}
		return b
	}

	var query sq.SelectBuilder
	if f.Limit > 0 {
		recent := filtered("s.mood_date", "s.team_id", "t.name", "s.value", "s.created_at").
			OrderBy("s.mood_date DESC", "s.created_at DESC").
			Limit(uint64(f.Limit))
		query = sq.Select("mood_date", "team_id", "name", "value").
			FromSelect(recent, "recent").
			OrderBy("mood_date", "created_at")
	} else {
		query = filtered("s.mood_date", "s.team_id", "t.name", "s.value").
			OrderBy("s.mood_date", "s.created_at")
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	out := []domain.Submission{}
	for rows.Next() {
		var sub domain.Submission
		var date string
		var value int
		if err := rows.Scan(&date, &sub.TeamID, &sub.TeamName, &value); err != nil {
			return nil, err
		}
		// A malformed date leaves the zero time, which aggregation skips.
		sub.Date, _ = domain.ParseDate(date, time.UTC)
		sub.Value = float64(value)
		out = append(out, sub)
	}
	return out, rows.Err()
}
