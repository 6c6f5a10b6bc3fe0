package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"teammood/internal/domain/account"
	"teammood/internal/domain/preference"
)

// AccountStoreForSignup defines the store interface needed by Signup.
type AccountStoreForSignup interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// PreferenceStoreForSignup defines the store interface needed by Signup.
type PreferenceStoreForSignup interface {
	Save(ctx context.Context, p preference.Preferences) error
}

// SignupInput carries input for the orchestrator.
type SignupInput struct {
	Email          string
	Password       string
	DisplayName    string
	AcceptLanguage string // raw header, picks the initial language
}

// SignupDeps holds dependencies for Signup.
type SignupDeps struct {
	AccountStore    AccountStoreForSignup
	PreferenceStore PreferenceStoreForSignup
	GenerateID      func() string
	Now             func() time.Time
}

var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

// ExecuteSignup coordinates account creation.
// PRE: Valid email, password >= 12 chars
// POST: Account created with hashed password and default preferences
// INVARIANT: Email must be unique
func ExecuteSignup(ctx context.Context, input SignupInput, deps SignupDeps) (account.Account, error) {
	if input.Password == "" {
		return account.Account{}, account.ErrEmptyPassword
	}

	acct := account.Account{
		ID:          deps.GenerateID(),
		Email:       account.NormalizeEmail(input.Email),
		DisplayName: strings.TrimSpace(input.DisplayName),
		CreatedAt:   deps.Now(),
	}
	if err := acct.Validate(); err != nil {
		return account.Account{}, err
	}

	if _, err := deps.AccountStore.GetByEmail(ctx, acct.Email); err == nil {
		return account.Account{}, ErrEmailAlreadyExists
	}

	if err := acct.SetPassword(input.Password); err != nil {
		return account.Account{}, err
	}

	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return account.Account{}, err
	}

	prefs := preference.Defaults(acct.ID, preference.MatchAcceptLanguage(input.AcceptLanguage))
	prefs.UpdatedAt = acct.CreatedAt
	if err := deps.PreferenceStore.Save(ctx, prefs); err != nil {
		return account.Account{}, err
	}

	slog.Info("auth_event", "event", "account_created", "email", acct.Email, "language", prefs.Language)
	return acct, nil
}
