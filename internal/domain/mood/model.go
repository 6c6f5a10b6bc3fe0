package mood

import (
	"errors"
	"time"
)

// Mood scale bounds.
const (
	MinValue = 1
	MaxValue = 5
)

// DateLayout is the canonical day key format used across storage and lookups.
const DateLayout = "2006-01-02"

// OptionOutOfOffice is the option key for an out-of-office day.
const OptionOutOfOffice = "ooo"

// Domain errors
var (
	ErrValueOutOfRange = errors.New("mood must be between 1 and 5")
	ErrEmptyAccount    = errors.New("mood entry requires an account")
	ErrEmptyTeam       = errors.New("mood entry requires a team")
	ErrEmptyDate       = errors.New("mood entry requires a date")
	ErrOutOfOfficeMood = errors.New("out-of-office entries cannot carry a mood value")
	ErrUnknownOption   = errors.New("mood must be 1-5 or ooo")
)

// Option is one selectable choice on the mood input.
type Option struct {
	Key   string // "1".."5" or "ooo"
	Value int    // 0 for out of office
	Label string
	Band  int
}

// Options returns the six choices offered on the mood input, lowest first.
func Options() []Option {
	return []Option{
		{Key: "1", Value: 1, Label: "Very bad", Band: 1},
		{Key: "2", Value: 2, Label: "Bad", Band: 2},
		{Key: "3", Value: 3, Label: "Neutral", Band: 3},
		{Key: "4", Value: 4, Label: "Good", Band: 4},
		{Key: "5", Value: 5, Label: "Very good", Band: 5},
		{Key: OptionOutOfOffice, Value: 0, Label: "Out of office"},
	}
}

// ParseOption resolves a submitted option key.
// PRE: none
// POST: returns one of Options() or ErrUnknownOption
func ParseOption(key string) (Option, error) {
	for _, o := range Options() {
		if o.Key == key {
			return o, nil
		}
	}
	return Option{}, ErrUnknownOption
}

// IsOutOfOffice reports whether the option records an absence.
func (o Option) IsOutOfOffice() bool {
	return o.Key == OptionOutOfOffice
}

// Entry is one account's recorded mood for one team on one day.
// INVARIANT: OutOfOffice entries have Value == 0; others have 1 <= Value <= 5.
type Entry struct {
	ID          string
	AccountID   string
	TeamID      string
	Date        time.Time // day granularity
	Value       int
	OutOfOffice bool
	CreatedAt   time.Time
}

// Validate checks the entry's invariants.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (e *Entry) Validate() error {
	if e.AccountID == "" {
		return ErrEmptyAccount
	}
	if e.TeamID == "" {
		return ErrEmptyTeam
	}
	if e.Date.IsZero() {
		return ErrEmptyDate
	}
	if e.OutOfOffice {
		if e.Value != 0 {
			return ErrOutOfOfficeMood
		}
		return nil
	}
	if e.Value < MinValue || e.Value > MaxValue {
		return ErrValueOutOfRange
	}
	return nil
}

// Submission is the read-side view of an entry used for aggregation:
// the team's display name is joined in by the store.
type Submission struct {
	Date     time.Time
	TeamID   string
	TeamName string
	Value    float64
}

// DayAggregate summarises all submissions for one key on one date.
type DayAggregate struct {
	Mean  float64
	Count int
}

// Band returns the colour band (1..5) for this aggregate's mean.
func (a DayAggregate) Band() int {
	return Band(a.Mean)
}

// DailyTeamAverages holds one aggregate per team observed on a date.
type DailyTeamAverages struct {
	Date     time.Time
	Averages map[string]DayAggregate
}

// Band buckets a mean into the five display bands: >=4.5, >=4, >=3, >=2, else.
func Band(mean float64) int {
	switch {
	case mean >= 4.5:
		return 5
	case mean >= 4:
		return 4
	case mean >= 3:
		return 3
	case mean >= 2:
		return 2
	default:
		return 1
	}
}

// Day returns UTC midnight of t's calendar day, read in t's own location.
// Local midnight does not exist on some DST transition days, so the result
// is anchored in UTC to keep one value per calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats t's calendar day as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD key in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}
