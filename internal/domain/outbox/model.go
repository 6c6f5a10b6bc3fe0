package outbox

import (
	"encoding/json"
	"errors"
	"time"
)

// Status constants for outbox entry lifecycle.
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// ActionTypePasswordReset is the only outbound action: a password reset email.
const ActionTypePasswordReset = "password_reset_email"

// DefaultMaxAttempts applies when an entry is saved without a limit.
const DefaultMaxAttempts = 5

// Domain errors.
var (
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
	ErrTerminal        = errors.New("entry is in a terminal state")
)

// EmailPayload is the JSON stored for an email action.
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Entry is an outbound email that failed its first delivery and waits for retry.
type Entry struct {
	ID              string
	ActionType      string
	Payload         string
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	ExternalID      string // provider message ID once sent
	ErrorMessage    string
}

// NewEmailEntry builds a pending entry carrying p as its payload.
// PRE: id non-empty, p.To non-empty
// POST: returned entry passes Validate
func NewEmailEntry(id, actionType string, p EmailPayload, now time.Time) (Entry, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		ID:          id,
		ActionType:  actionType,
		Payload:     string(raw),
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
	}
	return e, e.Validate()
}

// Email decodes the entry's payload.
func (e *Entry) Email() (EmailPayload, error) {
	var p EmailPayload
	if err := json.Unmarshal([]byte(e.Payload), &p); err != nil {
		return EmailPayload{}, err
	}
	if p.To == "" {
		return EmailPayload{}, errors.New("email payload has no recipient")
	}
	return p, nil
}

// Validate checks that the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise; MaxAttempts defaulted when unset
func (e *Entry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// CanRetry returns true if the entry can be retried.
func (e *Entry) CanRetry() bool {
	return (e.Status == StatusPending || e.Status == StatusRetrying) && e.Attempts < e.MaxAttempts
}

// IsTerminal returns true for done, failed or abandoned entries.
func (e *Entry) IsTerminal() bool {
	return e.Status == StatusDone || e.Status == StatusFailed || e.Status == StatusAbandoned
}

// Due reports whether the backoff window since the last attempt has passed.
func (e *Entry) Due(now time.Time, baseDelay, maxDelay time.Duration) bool {
	if !e.CanRetry() {
		return false
	}
	if e.LastAttemptedAt.IsZero() {
		return true
	}
	return !now.Before(e.LastAttemptedAt.Add(e.NextRetryDelay(baseDelay, maxDelay)))
}

// MarkAttempt records a delivery attempt.
// POST: Attempts incremented, LastAttemptedAt = now, status retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSuccess marks the entry as delivered.
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records err and fails the entry once attempts are exhausted.
// POST: ErrorMessage set; status failed iff Attempts >= MaxAttempts
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}

// MarkAbandoned stops any further retries.
func (e *Entry) MarkAbandoned() {
	e.Status = StatusAbandoned
}

// NextRetryDelay is baseDelay * 2^attempts, capped at maxDelay.
func (e *Entry) NextRetryDelay(baseDelay, maxDelay time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return maxDelay
	}
	delay := baseDelay * (1 << e.Attempts)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}
